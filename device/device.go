// Package device contains the character devices, which may be opened
// by name from any directory of any drive.
package device

import (
	"strings"

	"github.com/skx/dosfs/drive"
	"github.com/skx/dosfs/dosname"
)

// Device information words.
const (
	InfoCON     = 0x80D3
	InfoNUL     = 0x8084
	InfoPrinter = 0x80C0
)

// Device is a character device.
type Device interface {

	// Name returns the name of the device.
	Name() string

	// Read reads from the device, returning zero bytes when there
	// is nothing to read.
	Read(p []byte) (int, error)

	// Write writes to the device.
	Write(p []byte) (int, error)

	// Information returns the device information word.
	Information() uint16
}

// Set is the collection of devices the kernel knows about.
type Set struct {
	devices map[string]Device
}

// NewSet returns an empty set of devices.
func NewSet() *Set {
	return &Set{devices: make(map[string]Device)}
}

// Add adds a device to the set, under its own name and any aliases.
func (s *Set) Add(d Device, aliases ...string) {
	s.devices[strings.ToUpper(d.Name())] = d
	for _, a := range aliases {
		s.devices[strings.ToUpper(a)] = d
	}
}

// Get returns the device with the given name.
func (s *Set) Get(name string) (Device, bool) {
	d, ok := s.devices[strings.ToUpper(name)]
	return d, ok
}

// Find returns the device the given path refers to.  Devices exist in
// every directory, and an extension is ignored, so "C:\TMP\NUL.TXT" is
// the NUL device.
func (s *Set) Find(path string) (Device, bool) {
	return s.Get(dosname.DeviceName(path))
}

// Open returns a handle upon the named device.
func (s *Set) Open(path string, flags uint8) (drive.File, bool) {
	d, ok := s.Find(path)
	if !ok {
		return nil, false
	}
	return &File{
		Base: drive.NewBase(strings.ToUpper(d.Name()), flags, drive.AttrDevice),
		dev:  d,
	}, true
}

// File is an open device.
type File struct {
	drive.Base

	dev Device
}

// Device returns the device which was opened.
func (f *File) Device() Device {
	return f.dev
}

// Read reads from the device.
func (f *File) Read(p []byte) (int, error) {
	return f.dev.Read(p)
}

// Write writes to the device.
func (f *File) Write(p []byte) (int, error) {
	return f.dev.Write(p)
}

// Seek is meaningless upon a device, so the position is always zero.
func (f *File) Seek(pos int32, whence int) (uint32, error) {
	return 0, nil
}

// Close closes the handle.
func (f *File) Close() error {
	f.MarkClosed()
	return nil
}

// Information returns the device information word.
func (f *File) Information() uint16 {
	return f.dev.Information()
}

// UpdateDateTimeFromHost is a NOP for devices.
func (f *File) UpdateDateTimeFromHost() bool {
	return true
}

// Null is the NUL device.
type Null struct{}

// Name returns the name of the device.
func (n *Null) Name() string { return "NUL" }

// Read returns nothing.
func (n *Null) Read(p []byte) (int, error) { return 0, nil }

// Write discards the data.
func (n *Null) Write(p []byte) (int, error) { return len(p), nil }

// Information returns the device information word.
func (n *Null) Information() uint16 { return InfoNUL }
