package device

import (
	"fmt"
	"io"
	"os"
)

// sink is the part of *os.File the printer uses.
type sink interface {
	io.WriteCloser
}

// opener is how the printer opens its output, which is replaced in
// tests.
var opener = func(name string, flag int, perm os.FileMode) (sink, error) {
	return os.OpenFile(name, flag, perm)
}

// Printer is a device whose output is appended to a file, which is how
// we support PRN and AUX.
type Printer struct {
	name string
	path string
}

// NewPrinter returns a device of the given name, whose output is
// appended to the given file.
func NewPrinter(name, path string) *Printer {
	return &Printer{name: name, path: path}
}

// Name returns the name of the device.
func (p *Printer) Name() string { return p.name }

// Path returns the file output is written to.
func (p *Printer) Path() string { return p.path }

// Information returns the device information word.
func (p *Printer) Information() uint16 { return InfoPrinter }

// Read returns nothing.
func (p *Printer) Read(data []byte) (int, error) { return 0, nil }

// Write appends the data to our file, creating it if necessary.
func (p *Printer) Write(data []byte) (int, error) {

	f, err := opener(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to open file %s: %w", p.name, p.path, err)
	}

	n, err := f.Write(data)
	if err != nil {
		f.Close()
		return n, fmt.Errorf("%s: failed to write to file %s: %w", p.name, p.path, err)
	}

	if err = f.Close(); err != nil {
		return n, fmt.Errorf("%s: failed to close file %s: %w", p.name, p.path, err)
	}
	return n, nil
}
