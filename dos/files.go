package dos

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/skx/dosfs/device"
	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/drive"
	"github.com/skx/dosfs/psp"
)

// realHandle returns the index into the table of open files which the
// given handle of the current process refers to.
func (k *Kernel) realHandle(handle uint16) uint8 {
	return k.currentPSP().GetFileHandle(handle)
}

// lookup returns the open file the handle refers to.
func (k *Kernel) lookup(handle uint16) (*openFile, bool) {
	idx := int(k.realHandle(handle))
	if idx >= len(k.files) || k.files[idx] == nil || !k.files[idx].file.IsOpen() {
		return nil, false
	}
	return k.files[idx], true
}

// freeSlot returns the first unused entry of the table of open files.
func (k *Kernel) freeSlot() (uint8, bool) {
	for i, of := range k.files {
		if of == nil {
			return uint8(i), true
		}
	}
	return 0, false
}

// install adds the file to the table, and the handle of the current
// process which refers to it.
func (k *Kernel) install(f drive.File, slot uint8, entry uint16) {
	k.files[slot] = &openFile{file: f, refs: 1}
	k.currentPSP().SetFileHandle(entry, slot)
}

// pathExists reports whether the directory a name lives in exists.
func (k *Kernel) pathExists(name string) bool {
	i := strings.LastIndexByte(name, '\\')
	if i <= 0 {
		return true
	}
	parent := name[:i]
	if strings.HasSuffix(parent, ":") {
		parent += "\\"
	}
	full, idx, err := k.quietName(parent)
	if err != nil {
		return false
	}
	return k.drives[idx].TestDir(full)
}

// quietName canonicalizes a name without recording any failure.
func (k *Kernel) quietName(name string) (string, uint8, error) {
	last := k.lastError
	full, idx, err := k.MakeName(name)
	k.lastError = last
	return full, idx, err
}

// OpenFile opens an existing file, or a device, returning the handle.
func (k *Kernel) OpenFile(name string, flags uint8) (uint16, error) {

	k.Logger.Debug("OpenFile",
		slog.String("name", name),
		slog.Int("flags", int(flags)))

	_, isDevice := k.devices.Find(name)
	if !isDevice {
		if attr, err := k.fileAttr(name); err == nil && attr&(drive.AttrDirectory|drive.AttrVolume) != 0 {
			return 0, k.fail(doserr.AccessDenied)
		}
	}

	full, idx, err := k.MakeName(name)
	if err != nil {
		return 0, err
	}

	slot, ok := k.freeSlot()
	if !ok {
		return 0, k.fail(doserr.TooManyOpenFiles)
	}
	entry := k.currentPSP().FindFreeFileEntry()
	if entry == psp.Unused {
		return 0, k.fail(doserr.TooManyOpenFiles)
	}

	var f drive.File
	if isDevice {
		f, _ = k.devices.Open(name, flags)
	} else {
		f, err = k.drives[idx].FileOpen(full, flags)
		if err != nil {
			if errors.Is(err, doserr.AccessCodeInvalid) {
				return 0, k.fail(err)
			}
			if flags&0x03 != drive.OpenRead && k.drives[idx].FileExists(full) {
				return 0, k.fail(doserr.AccessDenied)
			}
			if !k.pathExists(name) {
				return 0, k.fail(doserr.PathNotFound)
			}
			return 0, k.fail(doserr.FileNotFound)
		}
		f.SetDrive(idx)
	}

	k.install(f, slot, entry)
	return entry, nil
}

// CreateFile creates a file, truncating it if it exists, and returns
// the handle.  Device names open the device instead.
func (k *Kernel) CreateFile(name string, attr uint8) (uint16, error) {

	k.Logger.Debug("CreateFile",
		slog.String("name", name),
		slog.Int("attr", int(attr)))

	if _, ok := k.devices.Find(name); ok {
		return k.OpenFile(name, drive.OpenRead)
	}

	full, idx, err := k.MakeName(name)
	if err != nil {
		return 0, err
	}

	slot, ok := k.freeSlot()
	if !ok {
		return 0, k.fail(doserr.TooManyOpenFiles)
	}
	entry := k.currentPSP().FindFreeFileEntry()
	if entry == psp.Unused {
		return 0, k.fail(doserr.TooManyOpenFiles)
	}

	if attr&drive.AttrDirectory != 0 {
		return 0, k.fail(doserr.AccessDenied)
	}

	f, err := k.drives[idx].FileCreate(full, attr)
	if err != nil {
		if !k.pathExists(name) {
			return 0, k.fail(doserr.PathNotFound)
		}
		return 0, k.fail(doserr.FileNotFound)
	}
	f.SetDrive(idx)

	k.install(f, slot, entry)
	return entry, nil
}

// The status codes returned by OpenFileExtended.
const (
	StatusOpened   = 1
	StatusCreated  = 2
	StatusReplaced = 3
)

// OpenFileExtended opens, creates, or replaces a file, according to the
// action given.  The low nibble of the action says what to do if the
// file exists (0 fail, 1 open, 2 replace) and the high nibble what to do
// if it doesn't (0 fail, 1 create).
func (k *Kernel) OpenFileExtended(name string, flags, attr, action uint8) (uint16, uint8, error) {

	k.Logger.Debug("OpenFileExtended",
		slog.String("name", name),
		slog.Int("flags", int(flags)),
		slog.Int("action", int(action)))

	if action == 0 || action&0x0F > 2 || action&0xF0 > 0x10 {
		return 0, 0, k.fail(doserr.FunctionNumberInvalid)
	}

	handle, err := k.OpenFile(name, flags)
	if err == nil {
		switch action & 0x0F {
		case 0x00:
			k.CloseFile(handle)
			return 0, 0, k.fail(doserr.FileExists)
		case 0x01:
			return handle, StatusOpened, nil
		default:
			k.CloseFile(handle)
			if handle, err = k.CreateFile(name, attr); err != nil {
				return 0, 0, err
			}
			return handle, StatusReplaced, nil
		}
	}

	if action&0xF0 == 0 {
		return 0, 0, err
	}
	if handle, err = k.CreateFile(name, attr); err != nil {
		return 0, 0, err
	}
	return handle, StatusCreated, nil
}

// CloseFile closes the given handle.  The file itself is closed once the
// last handle which refers to it is.
func (k *Kernel) CloseFile(handle uint16) error {

	k.Logger.Debug("CloseFile", slog.Int("handle", int(handle)))

	idx := int(k.realHandle(handle))
	if idx >= len(k.files) || k.files[idx] == nil {
		return k.fail(doserr.InvalidHandle)
	}
	of := k.files[idx]

	k.currentPSP().SetFileHandle(handle, psp.Unused)

	of.refs--
	if of.refs <= 0 {
		k.files[idx] = nil
		if of.file.IsOpen() {
			if err := of.file.Close(); err != nil {
				k.Logger.Warn("failed to close file",
					slog.String("name", of.file.Name()),
					slog.String("error", err.Error()))
			}
		}
	}
	return nil
}

// ReadFile reads from the given handle, returning the number of bytes
// read, which is zero at the end of the file.
func (k *Kernel) ReadFile(handle uint16, buf []byte) (int, error) {
	of, ok := k.lookup(handle)
	if !ok {
		return 0, k.fail(doserr.InvalidHandle)
	}
	n, err := of.file.Read(buf)
	if err != nil {
		return n, k.fail(err)
	}
	return n, nil
}

// WriteFile writes to the given handle.  A zero-length write truncates
// the file at the current position.
func (k *Kernel) WriteFile(handle uint16, buf []byte) (int, error) {
	of, ok := k.lookup(handle)
	if !ok {
		return 0, k.fail(doserr.InvalidHandle)
	}
	n, err := of.file.Write(buf)
	if err != nil {
		return n, k.fail(err)
	}
	return n, nil
}

// SeekFile moves the position of the given handle, returning the new
// position.
func (k *Kernel) SeekFile(handle uint16, pos int32, whence int) (uint32, error) {
	of, ok := k.lookup(handle)
	if !ok {
		return 0, k.fail(doserr.InvalidHandle)
	}
	n, err := of.file.Seek(pos, whence)
	if err != nil {
		return 0, k.fail(err)
	}
	return n, nil
}

// FlushFile commits the file to disk.  Our files are never buffered so
// this only validates the handle.
func (k *Kernel) FlushFile(handle uint16) error {
	if _, ok := k.lookup(handle); !ok {
		return k.fail(doserr.InvalidHandle)
	}
	return nil
}

// DuplicateEntry returns a new handle which refers to the same file as
// the given one.
func (k *Kernel) DuplicateEntry(handle uint16) (uint16, error) {
	of, ok := k.lookup(handle)
	if !ok {
		return 0, k.fail(doserr.InvalidHandle)
	}
	p := k.currentPSP()
	entry := p.FindFreeFileEntry()
	if entry == psp.Unused {
		return 0, k.fail(doserr.TooManyOpenFiles)
	}
	of.refs++
	p.SetFileHandle(entry, k.realHandle(handle))
	return entry, nil
}

// ForceDuplicateEntry makes the second handle refer to the same file as
// the first, closing whatever it referred to before.
func (k *Kernel) ForceDuplicateEntry(handle, newHandle uint16) error {
	if handle == newHandle || newHandle >= k.currentPSP().MaxFiles() {
		return k.fail(doserr.InvalidHandle)
	}
	of, ok := k.lookup(handle)
	if !ok {
		return k.fail(doserr.InvalidHandle)
	}
	if idx := int(k.realHandle(newHandle)); idx < len(k.files) && k.files[idx] != nil {
		k.CloseFile(newHandle)
	}
	of.refs++
	k.currentPSP().SetFileHandle(newHandle, k.realHandle(handle))
	return nil
}

// CreateTempFile creates a file with a unique name in the given
// directory, returning the handle and the full name.
func (k *Kernel) CreateTempFile(dir string) (uint16, string, error) {
	if dir == "" || (!strings.HasSuffix(dir, "\\") && !strings.HasSuffix(dir, "/")) {
		dir += "\\"
	}

	var name string
	for {
		b := make([]byte, 8)
		for i := range b {
			b[i] = byte('A' + k.random.Intn(26))
		}
		name = dir + string(b)
		if !k.FileExists(name) {
			break
		}
	}

	handle, err := k.CreateFile(name, drive.AttrArchive)
	if err != nil {
		return 0, "", err
	}
	return handle, name, nil
}

// GetFileDate returns the date and time of the file the handle refers to.
func (k *Kernel) GetFileDate(handle uint16) (uint16, uint16, error) {
	of, ok := k.lookup(handle)
	if !ok || !of.file.UpdateDateTimeFromHost() {
		return 0, 0, k.fail(doserr.InvalidHandle)
	}
	return of.file.Date(), of.file.Time(), nil
}

// SetFileDate changes the date and time of the file the handle refers to.
func (k *Kernel) SetFileDate(handle uint16, date, tm uint16) error {
	of, ok := k.lookup(handle)
	if !ok {
		return k.fail(doserr.InvalidHandle)
	}
	of.file.SetDateTime(date, tm)
	return nil
}

// GetFileInfo returns the device information word of the handle.  For
// files the low bits hold the drive they live upon.
func (k *Kernel) GetFileInfo(handle uint16) (uint16, error) {
	of, ok := k.lookup(handle)
	if !ok {
		return 0, k.fail(doserr.InvalidHandle)
	}
	info := of.file.Information()
	if info&0x8000 == 0 {
		info |= uint16(of.file.Drive()) & 0x3F
	}
	return info, nil
}

// SetFileInfo changes the device information word of the handle.  Only
// devices accept it, and the high byte must be zero.
func (k *Kernel) SetFileInfo(handle uint16, info uint16) (uint16, error) {
	of, ok := k.lookup(handle)
	if !ok {
		return 0, k.fail(doserr.InvalidHandle)
	}
	if info&0xFF00 != 0 {
		return 0, k.fail(doserr.DataInvalid)
	}
	current := of.file.Information()
	if current&0x8000 == 0 {
		return 0, k.fail(doserr.FunctionNumberInvalid)
	}
	return current, nil
}

// InputStatus reports whether the handle has input ready.  A file is
// ready until its position reaches the end, the console when a key is
// waiting, and other devices unless they are at EOF.
func (k *Kernel) InputStatus(handle uint16) (bool, error) {
	of, ok := k.lookup(handle)
	if !ok {
		return false, k.fail(doserr.InvalidHandle)
	}

	info := of.file.Information()
	if info&0x8000 != 0 {
		if df, ok := of.file.(*device.File); ok {
			if con, ok := df.Device().(*device.Console); ok {
				return con.Ready(), nil
			}
		}
		return info&0x40 == 0, nil
	}

	pos, err := of.file.Seek(0, drive.SeekCur)
	if err != nil {
		return false, k.fail(err)
	}
	end, err := of.file.Seek(0, drive.SeekEnd)
	if err != nil {
		return false, k.fail(err)
	}
	if _, err = of.file.Seek(int32(pos), drive.SeekSet); err != nil {
		return false, k.fail(err)
	}
	return pos < end, nil
}

// OutputStatus reports whether the handle is ready for output, which
// every open handle is.
func (k *Kernel) OutputStatus(handle uint16) (bool, error) {
	if _, ok := k.lookup(handle); !ok {
		return false, k.fail(doserr.InvalidHandle)
	}
	return true, nil
}

// HandleIsRemote reports whether the handle is a file upon a remote
// drive.
func (k *Kernel) HandleIsRemote(handle uint16) (bool, error) {
	of, ok := k.lookup(handle)
	if !ok {
		return false, k.fail(doserr.InvalidHandle)
	}
	if of.file.Information()&0x8000 != 0 {
		return false, nil
	}
	d := k.Drive(of.file.Drive())
	return d != nil && d.IsRemote(), nil
}

// OpenFiles returns the number of entries of the table of open files
// which are in use.
func (k *Kernel) OpenFiles() int {
	count := 0
	for _, of := range k.files {
		if of != nil {
			count++
		}
	}
	return count
}
