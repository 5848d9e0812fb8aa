// Package consoleout is an abstraction over console output.
//
// DOS programs write bytes in the active codepage, possibly with ANSI
// escape sequences, so we have a raw pass-through driver and one which
// translates codepage 437 to UTF-8.  A factory instantiates, and changes,
// a driver given just a name.
package consoleout

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// ConsoleOutput is a sink for the bytes written to the CON device, by
// handle writes, the shell, or the character-output INT 21h functions.
//
// Drivers register themselves by name, via Register, and are selected
// with the -output flag.
type ConsoleOutput interface {

	// PutCharacter emits one byte in the active codepage.
	//
	// Output goes to STDOUT unless SetWriter redirects it.
	PutCharacter(c uint8)

	// GetName returns the name the driver registered under.
	GetName() string

	// SetWriter redirects the output.
	SetWriter(io.Writer)
}

// ConsoleRecorder is implemented by drivers which keep what was written
// to CON, so the shell and kernel tests can compare it.
type ConsoleRecorder interface {

	// GetOutput returns the contents which have been displayed.
	GetOutput() string

	// Reset removes any stored state.
	Reset()
}

// handlers maps driver names to their constructors.
var handlers = struct {
	m map[string]Constructor
}{m: make(map[string]Constructor)}

// Constructor creates a fresh instance of a driver.
type Constructor func() ConsoleOutput

// Register makes a console driver available, by name.  Names are
// case-insensitive.
func Register(name string, obj Constructor) {
	// Downcase for consistency.
	name = strings.ToLower(name)

	handlers.m[name] = obj
}

// ConsoleOut is the output half of the CON device.
type ConsoleOut struct {

	// driver is the thing that actually writes our output.
	driver ConsoleOutput
}

// New returns a console output using the named driver.
func New(name string) (*ConsoleOut, error) {
	// Downcase for consistency.
	name = strings.ToLower(name)

	ctor, ok := handlers.m[name]
	if !ok {
		return nil, fmt.Errorf("failed to lookup driver by name '%s'", name)
	}

	return &ConsoleOut{
		driver: ctor(),
	}, nil
}

// GetDriver returns the active driver.
func (co *ConsoleOut) GetDriver() ConsoleOutput {
	return co.driver
}

// ChangeDriver swaps the active driver by name.
func (co *ConsoleOut) ChangeDriver(name string) error {

	ctor, ok := handlers.m[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("failed to lookup driver by name '%s'", name)
	}

	co.driver = ctor()
	return nil
}

// GetName returns the name of our selected driver.
func (co *ConsoleOut) GetName() string {
	return co.driver.GetName()
}

// GetDrivers returns all available driver-names, sorted.
//
// We hide the internal "null", and "logger" drivers.
func (co *ConsoleOut) GetDrivers() []string {
	valid := []string{}

	for x := range handlers.m {
		if x != "null" && x != "logger" {
			valid = append(valid, x)
		}
	}
	sort.Strings(valid)
	return valid
}

// SetWriter changes where the driver sends its output.
func (co *ConsoleOut) SetWriter(w io.Writer) {
	co.driver.SetWriter(w)
}

// PutCharacter outputs a character, using our selected driver.
func (co *ConsoleOut) PutCharacter(c byte) {
	co.driver.PutCharacter(c)
}

// Write outputs each byte through the driver, so a ConsoleOut can be
// used as an io.Writer.
func (co *ConsoleOut) Write(p []byte) (int, error) {
	for _, c := range p {
		co.driver.PutCharacter(c)
	}
	return len(p), nil
}
