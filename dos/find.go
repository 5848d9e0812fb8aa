package dos

import (
	"log/slog"
	"strings"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/dosname"
	"github.com/skx/dosfs/drive"
	"github.com/skx/dosfs/dta"
)

// noDrive is the search drive of a search which can find nothing more.
const noDrive = 0xFF

// FindFirst starts a search for files matching the given pattern, and
// stores the first match in the current DTA.  Files with the hidden,
// system, or directory attributes are only found when the attributes
// ask for them.
func (k *Kernel) FindFirst(search string, attr uint8) error {
	return k.findFirst(search, attr, false)
}

// findFirst is FindFirst, also used by the FCB searches which never
// match the volume label outside the root.
func (k *Kernel) findFirst(search string, attr uint8, fcbFind bool) error {

	k.Logger.Debug("FindFirst",
		slog.String("search", search),
		slog.Int("attr", int(attr)),
		slog.Bool("fcb", fcbFind))

	t := dta.New(k.Memory, k.dta)

	// A trailing backslash finds nothing, except for the volume label
	// of a root directory.
	if n := len(search); n > 0 && search[n-1] == '\\' {
		if !(n > 2 && search[n-2] == ':' && attr == drive.AttrVolume) {
			return k.fail(doserr.NoMoreFiles)
		}
	}

	full, idx, err := k.MakeName(search)
	if err != nil {
		return err
	}

	dir, pattern := "", full
	if i := strings.LastIndexByte(full, '\\'); i >= 0 {
		dir, pattern = full[:i], full[i+1:]
	}

	// Devices are found once, and the search ends there.
	if _, ok := k.devices.Find(search); ok {
		name := pattern
		if i := strings.IndexByte(name, '.'); i >= 0 {
			name = name[:i]
		}
		t.SetupSearch(noDrive, attr, pattern)
		t.SetResult(dta.Result{Name: name, Attr: drive.AttrDevice})
		return nil
	}

	t.SetupSearch(idx, attr, pattern)

	if err = k.drives[idx].FindFirst(dir, t, fcbFind); err != nil {
		return k.fail(err)
	}
	return nil
}

// FindNext continues the search the current DTA holds.
func (k *Kernel) FindNext() error {
	t := dta.New(k.Memory, k.dta)

	idx := t.SearchDrive()
	if idx >= dosname.Drives || k.drives[idx] == nil {
		return k.fail(doserr.NoMoreFiles)
	}
	if err := k.drives[idx].FindNext(t); err != nil {
		return k.fail(err)
	}
	return nil
}

// FindResult returns the file the last search found.
func (k *Kernel) FindResult() dta.Result {
	return dta.New(k.Memory, k.dta).Result()
}
