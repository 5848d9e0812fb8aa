package drive

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/dosname"
	"github.com/skx/dosfs/dta"
	"github.com/spf13/afero"
)

// maxSearches is the number of searches which may be in progress at
// once.  Older searches are forgotten when the slots are reused.
const maxSearches = 2048

// search is the state of a FindFirst/FindNext sequence.
type search struct {
	dir     string
	entries []entry
	pos     int
}

// FSDrive is a drive whose content is held in an afero file-system,
// which is how we implement host directories, scratch drives held in
// RAM, and the internal Z: drive.
type FSDrive struct {
	fs    afero.Fs
	info  string
	label string
	alloc Allocation
	media uint8

	// fileInfo is the device information word of opened files
	fileInfo uint16

	// fixedDate and fixedTime, when set, are reported for every file
	fixedDate uint16
	fixedTime uint16

	curdir     string
	cache      *cache
	searches   [maxSearches]*search
	nextSearch uint16
}

// NewFSDrive returns a drive backed by the given file-system, which
// reports the default geometry of a mounted directory.
func NewFSDrive(fsys afero.Fs, info string) *FSDrive {
	return &FSDrive{
		fs:   fsys,
		info: info,
		alloc: Allocation{
			BytesPerSector:    512,
			SectorsPerCluster: 127,
			TotalClusters:     16000,
			FreeClusters:      4000,
		},
		media: 0xF8,
		cache: newCache(fsys),
	}
}

// Fs returns the file-system of the drive.
func (d *FSDrive) Fs() afero.Fs {
	return d.fs
}

// SetAllocation changes the geometry the drive reports.
func (d *FSDrive) SetAllocation(a Allocation, media uint8) {
	d.alloc = a
	d.media = media
}

// open opens the host file, and sets up the DOS state of it.
func (d *FSDrive) open(name, host string, mode int, flags uint8) (File, error) {
	f, err := d.fs.OpenFile(host, mode, 0644)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.IsDir() {
		f.Close()
		return nil, doserr.AccessDenied
	}

	ff := &fsFile{
		Base:  NewBase(name, flags, AttrArchive),
		f:     f,
		info:  d.fileInfo,
		fixed: d.fixedDate != 0,
	}
	stamp(&ff.Base, fi, d.fixedDate, d.fixedTime)
	return ff, nil
}

// FileOpen opens an existing file.
func (d *FSDrive) FileOpen(name string, flags uint8) (File, error) {
	mode := os.O_RDONLY
	switch flags & 0x0F {
	case OpenRead:
	case OpenWrite, OpenReadWrite:
		mode = os.O_RDWR
	default:
		return nil, doserr.AccessCodeInvalid
	}

	host, found, _ := d.cache.resolve(name)
	if !found {
		return nil, doserr.FileNotFound
	}

	f, err := d.open(name, host, mode, flags)
	if err != nil {
		var c doserr.Code
		if errors.As(err, &c) {
			return nil, c
		}
		if mode != os.O_RDONLY && d.exists(host) {
			return nil, doserr.AccessDenied
		}
		return nil, doserr.FileNotFound
	}
	return f, nil
}

// exists reports whether the host path exists.
func (d *FSDrive) exists(host string) bool {
	_, err := d.fs.Stat(host)
	return err == nil
}

// FileCreate creates a file, truncating it if it exists already.
func (d *FSDrive) FileCreate(name string, attr uint8) (File, error) {
	host, _, ok := d.cache.resolve(name)
	if !ok {
		return nil, doserr.PathNotFound
	}

	f, err := d.open(name, host, os.O_RDWR|os.O_CREATE|os.O_TRUNC, OpenReadWrite)
	if err != nil {
		return nil, doserr.As(err)
	}
	d.cache.forget(filepath.Dir(host))
	return f, nil
}

// FileUnlink removes a file.
func (d *FSDrive) FileUnlink(name string) error {
	host, found, _ := d.cache.resolve(name)
	if !found {
		return doserr.FileNotFound
	}
	fi, err := d.fs.Stat(host)
	if err != nil {
		return doserr.FileNotFound
	}
	if fi.IsDir() {
		return doserr.AccessDenied
	}
	if err = d.fs.Remove(host); err != nil {
		return doserr.As(err)
	}
	d.cache.forget(filepath.Dir(host))
	return nil
}

// MakeDir creates a directory.
func (d *FSDrive) MakeDir(name string) error {
	host, found, ok := d.cache.resolve(name)
	if !ok {
		return doserr.PathNotFound
	}
	if found {
		return doserr.AccessDenied
	}
	if err := d.fs.Mkdir(host, 0755); err != nil {
		return doserr.As(err)
	}
	d.cache.forget(filepath.Dir(host))
	return nil
}

// RemoveDir removes an empty directory.
func (d *FSDrive) RemoveDir(name string) error {
	host, found, _ := d.cache.resolve(name)
	if !found || name == "" {
		return doserr.PathNotFound
	}
	fi, err := d.fs.Stat(host)
	if err != nil || !fi.IsDir() {
		return doserr.PathNotFound
	}
	entries, err := afero.ReadDir(d.fs, host)
	if err != nil || len(entries) > 0 {
		return doserr.AccessDenied
	}
	if err = d.fs.Remove(host); err != nil {
		return doserr.AccessDenied
	}
	d.cache.forget(host)
	d.cache.forget(filepath.Dir(host))
	return nil
}

// TestDir reports whether the given directory exists.
func (d *FSDrive) TestDir(name string) bool {
	host, found, _ := d.cache.resolve(name)
	if !found {
		return false
	}
	fi, err := d.fs.Stat(host)
	return err == nil && fi.IsDir()
}

// FindFirst starts a search of the given directory.
func (d *FSDrive) FindFirst(dir string, t *dta.DTA, fcbFind bool) error {
	host, found, _ := d.cache.resolve(dir)
	if !found || !d.TestDir(dir) {
		return doserr.PathNotFound
	}

	l, err := d.cache.list(host)
	if err != nil {
		return doserr.PathNotFound
	}

	s := &search{dir: host}
	if dir != "" {
		// Sub-directories have the dot entries.
		fi, err := d.fs.Stat(host)
		if err == nil {
			s.entries = append(s.entries, entry{short: ".", info: fi}, entry{short: "..", info: fi})
		}
	}
	s.entries = append(s.entries, l.entries...)

	id := d.nextSearch
	d.nextSearch = (d.nextSearch + 1) % maxSearches
	d.searches[id] = s
	t.SetDirID(id)

	attr, pattern := t.SearchParams()
	if attr == AttrVolume {
		if d.label == "" {
			return doserr.NoMoreFiles
		}
		t.SetResult(dta.Result{Name: d.label, Attr: AttrVolume})
		return nil
	}
	if attr&AttrVolume != 0 && dir == "" && !fcbFind {
		if d.label != "" && dosname.WildFileCmp(d.label, pattern) {
			t.SetResult(dta.Result{Name: d.label, Attr: AttrVolume})
			return nil
		}
	}
	return d.FindNext(t)
}

// FindNext continues a search.
func (d *FSDrive) FindNext(t *dta.DTA) error {
	attr, pattern := t.SearchParams()

	id := t.DirID()
	if id >= maxSearches || d.searches[id] == nil {
		return doserr.NoMoreFiles
	}
	s := d.searches[id]

	for s.pos < len(s.entries) {
		e := s.entries[s.pos]
		s.pos++

		if !dosname.WildFileCmp(e.short, pattern) {
			continue
		}

		// The listing may be older than the file.
		if fi, err := d.fs.Stat(filepath.Join(s.dir, e.host)); err == nil {
			e.info = fi
		}

		found := uint8(AttrArchive)
		if e.info.IsDir() {
			found = AttrDirectory
		}
		if ^attr&found&(AttrDirectory|AttrHidden|AttrSystem) != 0 {
			continue
		}

		r := dta.Result{Name: e.short, Attr: found}
		if !e.info.IsDir() {
			r.Size = uint32(e.info.Size())
		}
		if d.fixedDate != 0 {
			r.Date, r.Time = d.fixedDate, d.fixedTime
		} else {
			r.Date, r.Time = dosname.FromTime(e.info.ModTime())
		}
		t.SetResult(r)
		return nil
	}

	d.searches[id] = nil
	return doserr.NoMoreFiles
}

// GetFileAttr returns the attributes of the given name.
func (d *FSDrive) GetFileAttr(name string) (uint16, error) {
	host, found, _ := d.cache.resolve(name)
	if !found {
		return 0, doserr.FileNotFound
	}
	fi, err := d.fs.Stat(host)
	if err != nil {
		return 0, doserr.FileNotFound
	}
	attr := uint16(AttrArchive)
	if fi.IsDir() {
		attr |= AttrDirectory
	}
	return attr, nil
}

// Rename moves a file, or directory, to a new name.
func (d *FSDrive) Rename(oldName, newName string) error {
	src, found, _ := d.cache.resolve(oldName)
	if !found {
		return doserr.FileNotFound
	}
	dst, exists, ok := d.cache.resolve(newName)
	if !ok {
		return doserr.PathNotFound
	}
	if exists {
		return doserr.AccessDenied
	}
	if err := d.fs.Rename(src, dst); err != nil {
		return doserr.AccessDenied
	}
	d.cache.forget(filepath.Dir(src))
	d.cache.forget(filepath.Dir(dst))
	d.cache.forget(src)
	return nil
}

// AllocationInfo returns the geometry of the drive.
func (d *FSDrive) AllocationInfo() Allocation {
	return d.alloc
}

// FileExists reports whether the given file exists.
func (d *FSDrive) FileExists(name string) bool {
	host, found, _ := d.cache.resolve(name)
	if !found {
		return false
	}
	fi, err := d.fs.Stat(host)
	return err == nil && !fi.IsDir()
}

// FileStat returns the size, date and time of the given file.
func (d *FSDrive) FileStat(name string) (Stat, error) {
	host, found, _ := d.cache.resolve(name)
	if !found {
		return Stat{}, doserr.FileNotFound
	}
	fi, err := d.fs.Stat(host)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stat{}, doserr.FileNotFound
		}
		return Stat{}, doserr.As(err)
	}

	st := Stat{Attr: AttrArchive, Size: uint32(fi.Size())}
	if fi.IsDir() {
		st.Attr = AttrDirectory
		st.Size = 0
	}
	if d.fixedDate != 0 {
		st.Date, st.Time = d.fixedDate, d.fixedTime
	} else {
		st.Date, st.Time = dosname.FromTime(fi.ModTime())
	}
	return st, nil
}

// MediaByte returns the media descriptor.
func (d *FSDrive) MediaByte() uint8 {
	return d.media
}

// Label returns the volume label.
func (d *FSDrive) Label() string {
	return d.label
}

// SetLabel sets the volume label.
func (d *FSDrive) SetLabel(label string) {
	d.label = dosname.Label(label)
}

// Info returns a description of the drive.
func (d *FSDrive) Info() string {
	return d.info
}

// CurDir returns the current directory.
func (d *FSDrive) CurDir() string {
	return d.curdir
}

// SetCurDir sets the current directory.
func (d *FSDrive) SetCurDir(dir string) {
	d.curdir = dir
}

// IsRemote is false for all our drives.
func (d *FSDrive) IsRemote() bool {
	return false
}

// IsRemovable is false for all our drives.
func (d *FSDrive) IsRemovable() bool {
	return false
}

// EmptyCache forgets all the short names.
func (d *FSDrive) EmptyCache() {
	d.cache.reset()
}
