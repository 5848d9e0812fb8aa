package drive

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/skx/dosfs/dosname"
	"github.com/spf13/afero"
)

// entry is a single host file, and the name DOS sees it by.
type entry struct {
	short string
	host  string
	info  os.FileInfo
}

// listing is the content of a host directory.
type listing struct {
	entries []entry
}

// find returns the entry with the given short name.
func (l *listing) find(short string) (entry, bool) {
	for _, e := range l.entries {
		if e.short == short {
			return e, true
		}
	}
	return entry{}, false
}

// cache maps the short names DOS uses to host names, per directory.
type cache struct {
	fs   afero.Fs
	dirs map[string]*listing
}

func newCache(fs afero.Fs) *cache {
	return &cache{fs: fs, dirs: make(map[string]*listing)}
}

// list returns the listing of the given host directory, reading it if
// we haven't already.
func (c *cache) list(hostDir string) (*listing, error) {
	if l, ok := c.dirs[hostDir]; ok {
		return l, nil
	}

	infos, err := afero.ReadDir(c.fs, hostDir)
	if err != nil {
		return nil, err
	}

	l := &listing{}
	used := make(map[string]bool)
	taken := func(s string) bool { return used[s] }

	// Names which are already valid keep them, so the generated names
	// are only assigned once those are known.
	var long []os.FileInfo
	for _, fi := range infos {
		if !dosname.IsShort(fi.Name()) {
			long = append(long, fi)
			continue
		}
		short := dosname.ShortName(fi.Name(), nil)
		if used[short] {
			long = append(long, fi)
			continue
		}
		used[short] = true
		l.entries = append(l.entries, entry{short: short, host: fi.Name(), info: fi})
	}
	for _, fi := range long {
		short := dosname.ShortName(fi.Name(), taken)
		if dosname.IsShort(fi.Name()) {
			// Two names which differ only in case.
			short = dosname.NumberedName(fi.Name(), taken)
		}
		used[short] = true
		l.entries = append(l.entries, entry{short: short, host: fi.Name(), info: fi})
	}

	c.dirs[hostDir] = l
	return l, nil
}

// forget discards the listing of the given host directory.
func (c *cache) forget(hostDir string) {
	delete(c.dirs, hostDir)
}

// reset discards everything.
func (c *cache) reset() {
	c.dirs = make(map[string]*listing)
}

// resolve maps a DOS name, relative to the root of the drive, to a host
// path.  The final component need not exist, in which case found is
// false and the host path is the one a new file would be given.  The
// parent directory must exist, otherwise ok is false.
func (c *cache) resolve(name string) (host string, found bool, ok bool) {
	host = string(filepath.Separator)
	if name == "" {
		return host, true, true
	}

	parts := strings.Split(name, "\\")
	for i, part := range parts {
		l, err := c.list(host)
		if err != nil {
			return "", false, false
		}

		e, exists := l.find(part)
		last := i == len(parts)-1

		if !exists {
			if !last {
				return "", false, false
			}
			return filepath.Join(host, dosname.ToHost(part)), false, true
		}
		if !last && !e.info.IsDir() {
			return "", false, false
		}
		host = filepath.Join(host, e.host)
	}
	return host, true, true
}

// lookup returns the entry for the given DOS name.
func (c *cache) lookup(name string) (entry, bool) {
	if name == "" {
		return entry{}, false
	}
	dir, base := splitDir(name)
	host, found, _ := c.resolve(dir)
	if !found {
		return entry{}, false
	}
	l, err := c.list(host)
	if err != nil {
		return entry{}, false
	}
	return l.find(base)
}

// splitDir splits a DOS name into the directory and the final component.
func splitDir(name string) (string, string) {
	i := strings.LastIndexByte(name, '\\')
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}
