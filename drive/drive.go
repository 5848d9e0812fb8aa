// Package drive contains the interfaces implemented by DOS drives, and
// the files which are opened upon them, along with the drives we ship.
//
// All names passed to a drive are relative to its root, are upper-case,
// and use '\' as the directory separator.  This is the form MakeName
// produces once the drive letter has been removed.
package drive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skx/dosfs/dta"
)

// File attributes.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolume    = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrDevice    = 0x40
)

// Access modes, held in the low nibble of the open flags.
const (
	OpenRead      = 0x00
	OpenWrite     = 0x01
	OpenReadWrite = 0x02

	// OpenNoInherit stops a child process inheriting the handle.
	OpenNoInherit = 0x80
)

// Seek origins.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// File is something which has been opened, either upon a drive or a
// character device.
//
// Read follows DOS, rather than Go, conventions: reaching the end of the
// file returns zero bytes and no error.
type File interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(pos int32, whence int) (uint32, error)
	Close() error

	// Information returns the device information word.
	Information() uint16

	Name() string
	IsName(name string) bool
	IsOpen() bool
	Flags() uint8
	SetFlags(flags uint8)
	Date() uint16
	Time() uint16
	SetDateTime(date, tm uint16)
	Attr() uint8
	Drive() uint8
	SetDrive(drive uint8)

	// UpdateDateTimeFromHost refreshes the date and time from the
	// underlying storage, returning false if that isn't possible.
	UpdateDateTimeFromHost() bool
}

// Allocation describes the geometry a drive reports.
type Allocation struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	TotalClusters     uint16
	FreeClusters      uint16
}

// Stat is the result of FileStat.
type Stat struct {
	Size uint32
	Date uint16
	Time uint16
	Attr uint8
}

// Drive is the interface implemented by everything which can be mounted
// as a drive letter.
type Drive interface {
	FileOpen(name string, flags uint8) (File, error)
	FileCreate(name string, attr uint8) (File, error)
	FileUnlink(name string) error
	RemoveDir(name string) error
	MakeDir(name string) error
	TestDir(name string) bool

	// FindFirst starts a search of the given directory, using the
	// pattern and attributes already stored in the DTA.  The search
	// state is kept in the DTA so that FindNext can continue it.
	FindFirst(dir string, d *dta.DTA, fcbFind bool) error
	FindNext(d *dta.DTA) error

	GetFileAttr(name string) (uint16, error)
	Rename(oldName, newName string) error
	AllocationInfo() Allocation
	FileExists(name string) bool
	FileStat(name string) (Stat, error)
	MediaByte() uint8
	Label() string
	SetLabel(label string)
	Info() string

	// CurDir returns the current directory, without a leading '\'.
	CurDir() string
	SetCurDir(dir string)

	IsRemote() bool
	IsRemovable() bool

	// EmptyCache discards anything cached about the host.
	EmptyCache()
}

// Constructor creates a drive, given the argument the user supplied
// when mounting it.
type Constructor func(arg string) (Drive, error)

// This is a map of known drive types.
var handlers = struct {
	m map[string]Constructor
}{m: make(map[string]Constructor)}

// Register makes a drive type available, by name.
func Register(name string, obj Constructor) {
	handlers.m[strings.ToLower(name)] = obj
}

// Create instantiates a drive of the given type.
func Create(name, arg string) (Drive, error) {
	ctor, ok := handlers.m[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("failed to lookup drive type by name '%s'", name)
	}
	return ctor(arg)
}

// GetDrivers returns the names of all the drive types, sorted.
func GetDrivers() []string {
	valid := []string{}
	for x := range handlers.m {
		valid = append(valid, x)
	}
	sort.Strings(valid)
	return valid
}
