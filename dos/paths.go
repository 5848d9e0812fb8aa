package dos

import (
	"log/slog"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/drive"
)

// driveIndex resolves a drive number, where 0 is the default drive and
// 1 is A:, to the index of a mounted drive.
func (k *Kernel) driveIndex(num uint8) (uint8, bool) {
	idx := k.currentDrive
	if num != 0 {
		idx = num - 1
	}
	return idx, k.Drive(idx) != nil
}

// GetCurrentDir returns the current directory of the given drive, where
// 0 is the default drive and 1 is A:.
func (k *Kernel) GetCurrentDir(num uint8) (string, error) {
	idx, ok := k.driveIndex(num)
	if !ok {
		return "", k.fail(doserr.InvalidDrive)
	}
	return k.drives[idx].CurDir(), nil
}

// ChangeDir changes the current directory of a drive.
func (k *Kernel) ChangeDir(dir string) error {

	k.Logger.Debug("ChangeDir", slog.String("dir", dir))

	full, idx, err := k.MakeName(dir)
	if err != nil {
		return err
	}
	if !k.drives[idx].TestDir(full) {
		return k.fail(doserr.PathNotFound)
	}
	k.drives[idx].SetCurDir(full)
	return nil
}

// MakeDir creates a directory.
func (k *Kernel) MakeDir(dir string) error {

	k.Logger.Debug("MakeDir", slog.String("dir", dir))

	if dir == "" || dir[len(dir)-1] == '\\' {
		return k.fail(doserr.PathNotFound)
	}
	full, idx, err := k.MakeName(dir)
	if err != nil {
		return err
	}
	if err = k.drives[idx].MakeDir(full); err != nil {
		if k.drives[idx].TestDir(full) {
			return k.fail(doserr.AccessDenied)
		}
		return k.fail(doserr.PathNotFound)
	}
	return nil
}

// RemoveDir removes an empty directory, which must not be the current
// directory of its drive.
func (k *Kernel) RemoveDir(dir string) error {

	k.Logger.Debug("RemoveDir", slog.String("dir", dir))

	full, idx, err := k.MakeName(dir)
	if err != nil {
		return err
	}
	d := k.drives[idx]
	if !d.TestDir(full) {
		return k.fail(doserr.PathNotFound)
	}
	if full == d.CurDir() {
		return k.fail(doserr.RemoveCurrentDir)
	}
	if err = d.RemoveDir(full); err != nil {
		return k.fail(doserr.AccessDenied)
	}
	return nil
}

// Rename renames a file or a directory, which must stay upon the
// same drive.
func (k *Kernel) Rename(oldName, newName string) error {

	k.Logger.Debug("Rename",
		slog.String("old", oldName),
		slog.String("new", newName))

	fullOld, oldIdx, err := k.MakeName(oldName)
	if err != nil {
		return err
	}
	fullNew, newIdx, err := k.MakeName(newName)
	if err != nil {
		return err
	}

	_, oldDev := k.devices.Find(oldName)
	_, newDev := k.devices.Find(newName)
	if oldDev || newDev {
		return k.fail(doserr.FileNotFound)
	}
	if oldIdx != newIdx {
		return k.fail(doserr.NotSameDevice)
	}

	d := k.drives[oldIdx]
	if _, err = d.GetFileAttr(fullNew); err == nil {
		return k.fail(doserr.AccessDenied)
	}
	if _, err = d.GetFileAttr(fullOld); err != nil {
		return k.fail(doserr.FileNotFound)
	}
	if err = d.Rename(fullOld, fullNew); err != nil {
		return k.fail(doserr.FileNotFound)
	}
	return nil
}

// UnlinkFile removes a file.
func (k *Kernel) UnlinkFile(name string) error {

	k.Logger.Debug("UnlinkFile", slog.String("name", name))

	full, idx, err := k.MakeName(name)
	if err != nil {
		return err
	}
	if err = k.drives[idx].FileUnlink(full); err != nil {
		return k.fail(doserr.FileNotFound)
	}
	return nil
}

// fileAttr returns the attributes of a name, without recording any
// failure.
func (k *Kernel) fileAttr(name string) (uint16, error) {
	full, idx, err := k.quietName(name)
	if err != nil {
		return 0, err
	}
	return k.drives[idx].GetFileAttr(full)
}

// GetFileAttr returns the attributes of a file or directory.
func (k *Kernel) GetFileAttr(name string) (uint16, error) {
	full, idx, err := k.MakeName(name)
	if err != nil {
		return 0, err
	}
	attr, err := k.drives[idx].GetFileAttr(full)
	if err != nil {
		return 0, k.fail(doserr.FileNotFound)
	}
	return attr, nil
}

// SetFileAttr changes the attributes of a file.  Our drives keep no
// attributes, so this only checks the file exists.
func (k *Kernel) SetFileAttr(name string, attr uint16) error {

	k.Logger.Debug("SetFileAttr",
		slog.String("name", name),
		slog.Int("attr", int(attr)))

	_, err := k.GetFileAttr(name)
	return err
}

// FileExists reports whether the given file exists.  Directories are not
// files.
func (k *Kernel) FileExists(name string) bool {
	full, idx, err := k.quietName(name)
	if err != nil {
		return false
	}
	return k.drives[idx].FileExists(full)
}

// Canonicalize returns the fully qualified form of a name.
func (k *Kernel) Canonicalize(name string) (string, error) {
	full, idx, err := k.MakeName(name)
	if err != nil {
		return "", err
	}
	return driveLetter(idx) + ":\\" + full, nil
}

// GetFreeDiskSpace returns the geometry of the given drive, where 0 is
// the default drive and 1 is A:.
func (k *Kernel) GetFreeDiskSpace(num uint8) (drive.Allocation, error) {
	idx, ok := k.driveIndex(num)
	if !ok {
		return drive.Allocation{}, k.fail(doserr.InvalidDrive)
	}
	return k.drives[idx].AllocationInfo(), nil
}

// GetAllocationInfo returns the geometry of the given drive, along with
// its media descriptor.
func (k *Kernel) GetAllocationInfo(num uint8) (drive.Allocation, uint8, error) {
	idx, ok := k.driveIndex(num)
	if !ok {
		return drive.Allocation{}, 0, k.fail(doserr.InvalidDrive)
	}
	d := k.drives[idx]
	return d.AllocationInfo(), d.MediaByte(), nil
}
