package drive

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/dosname"
	"github.com/spf13/afero"
)

// Base holds the state every open file has, and implements the
// bookkeeping parts of the File interface.
type Base struct {
	name  string
	flags uint8
	date  uint16
	time  uint16
	attr  uint8
	drive uint8
	open  bool
}

// NewBase returns the state of a newly opened file.
func NewBase(name string, flags, attr uint8) Base {
	return Base{name: name, flags: flags, attr: attr, open: true}
}

// Name returns the name the file was opened with.
func (b *Base) Name() string { return b.name }

// IsName reports whether the file was opened with the given name,
// ignoring case.
func (b *Base) IsName(name string) bool { return strings.EqualFold(b.name, name) }

// IsOpen reports whether the file is still open.
func (b *Base) IsOpen() bool { return b.open }

// MarkClosed records the file as closed.
func (b *Base) MarkClosed() { b.open = false }

// Flags returns the flags the file was opened with.
func (b *Base) Flags() uint8 { return b.flags }

// SetFlags updates the flags.
func (b *Base) SetFlags(flags uint8) { b.flags = flags }

// Date returns the packed date of the file.
func (b *Base) Date() uint16 { return b.date }

// Time returns the packed time of the file.
func (b *Base) Time() uint16 { return b.time }

// SetDateTime updates the date and time of the file.
func (b *Base) SetDateTime(date, tm uint16) {
	b.date = date
	b.time = tm
}

// Attr returns the attributes of the file.
func (b *Base) Attr() uint8 { return b.attr }

// Drive returns the drive number the file lives upon.
func (b *Base) Drive() uint8 { return b.drive }

// SetDrive sets the drive number.
func (b *Base) SetDrive(drive uint8) { b.drive = drive }

// fsFile is a file opened upon an FSDrive.
type fsFile struct {
	Base

	f afero.File

	// info is the device information word
	info uint16

	// fixed holds the date and time of a virtual file, which never
	// change.
	fixed bool
}

// Read reads into the buffer, returning zero bytes at the end of the file.
func (ff *fsFile) Read(p []byte) (int, error) {
	if ff.flags&0x0F == OpenWrite {
		return 0, doserr.AccessDenied
	}
	n, err := io.ReadFull(ff.f, p)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return n, err
}

// Write writes the buffer, and a zero-length write truncates the file
// at the current position.
func (ff *fsFile) Write(p []byte) (int, error) {
	if ff.flags&0x0F == OpenRead {
		return 0, doserr.AccessDenied
	}

	if len(p) == 0 {
		pos, err := ff.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, doserr.AccessDenied
		}
		if err = ff.f.Truncate(pos); err != nil {
			return 0, doserr.AccessDenied
		}
		return 0, nil
	}

	n, err := ff.f.Write(p)
	if err != nil {
		return n, doserr.AccessDenied
	}
	return n, nil
}

// Seek moves the file position.  A position before the start of the
// file moves to the end.
func (ff *fsFile) Seek(pos int32, whence int) (uint32, error) {
	switch whence {
	case SeekSet, SeekCur, SeekEnd:
	default:
		return 0, doserr.FunctionNumberInvalid
	}

	fi, err := ff.f.Stat()
	if err != nil {
		return 0, doserr.AccessDenied
	}

	var base int64
	switch whence {
	case SeekCur:
		if base, err = ff.f.Seek(0, io.SeekCurrent); err != nil {
			return 0, doserr.AccessDenied
		}
	case SeekEnd:
		base = fi.Size()
	}

	target := base + int64(pos)
	if target < 0 {
		target = fi.Size()
	}

	n, err := ff.f.Seek(target, io.SeekStart)
	if err != nil {
		return 0, doserr.AccessDenied
	}
	return uint32(n), nil
}

// Close closes the host file.
func (ff *fsFile) Close() error {
	if !ff.open {
		return nil
	}
	ff.open = false
	return ff.f.Close()
}

// Information returns the device information word.
func (ff *fsFile) Information() uint16 {
	return ff.info
}

// UpdateDateTimeFromHost refreshes the date and time from the host file.
func (ff *fsFile) UpdateDateTimeFromHost() bool {
	if !ff.open {
		return false
	}
	if ff.fixed {
		return true
	}
	fi, err := ff.f.Stat()
	if err != nil {
		return false
	}
	ff.date, ff.time = dosname.FromTime(fi.ModTime())
	return true
}

// stamp sets the date and time of the file from its host information.
func stamp(b *Base, fi os.FileInfo, fixedDate, fixedTime uint16) {
	if fixedDate != 0 {
		b.date, b.time = fixedDate, fixedTime
		return
	}
	b.date, b.time = dosname.FromTime(fi.ModTime())
}
