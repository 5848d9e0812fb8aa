// Package consolein is an abstraction over console input.
//
// We support a number of drivers, which are registered by name, and a
// wrapper which adds the line-editing the shell uses on top of them.
// The DOS console device reads characters through this package, the
// cooked processing DOS does for CON lives with the device itself.
package consolein

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// ErrInterrupted is returned when the user presses Ctrl-C, repeatedly,
// at the start of a line.
var ErrInterrupted = errors.New("INTERRUPTED")

// ConsoleInput is the interface that must be implemented by anything
// that wishes to be used as an input driver.
type ConsoleInput interface {

	// Setup performs any specific setup which is required.
	Setup() error

	// TearDown performs any specific cleanup which is required.
	TearDown() error

	// PendingInput returns true if there is pending input available
	// to be read.
	PendingInput() bool

	// BlockForCharacterNoEcho reads a single character from the
	// console, blocking until one is available.
	BlockForCharacterNoEcho() (byte, error)

	// GetName returns the name of the driver.
	GetName() string
}

// Constructor is the signature of a constructor-function
// which is used to instantiate an instance of a driver.
type Constructor func() ConsoleInput

// handlers is a map of known-drivers.
var handlers = struct {
	m  map[string]Constructor
	mu sync.RWMutex
}{m: make(map[string]Constructor)}

// Register adds the given driver, by name.
func Register(name string, obj Constructor) {
	handlers.mu.Lock()
	handlers.m[name] = obj
	handlers.mu.Unlock()
}

// GetDrivers returns the names of all registered drivers, sorted.
func GetDrivers() []string {
	handlers.mu.RLock()
	defer handlers.mu.RUnlock()

	var valid []string
	for name := range handlers.m {
		valid = append(valid, name)
	}
	sort.Strings(valid)
	return valid
}

// interruptCount is the number of Ctrl-C characters which must be
// seen at the start of a line to interrupt.
var interruptCount = 2

// history holds the lines ReadLine has returned.
var history []string

// ConsoleIn holds our state, which is the driver we're using and any
// input which has been stuffed into the buffer.
type ConsoleIn struct {

	// driver is the thing we delegate to.
	driver ConsoleInput

	// stuffed holds fake input, which is returned before the
	// driver is consulted.
	stuffed string

	// interrupts is the count of Ctrl-C characters required.
	interrupts int
}

// New is our constructor, it creates an input device which uses
// the specified driver.
func New(name string) (*ConsoleIn, error) {

	name = strings.ToLower(name)

	handlers.mu.RLock()
	ctor, ok := handlers.m[name]
	handlers.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("failed to lookup driver by name '%s'", name)
	}

	return &ConsoleIn{
		driver:     ctor(),
		interrupts: interruptCount,
	}, nil
}

// NewWithDriver creates an input device which uses the given driver,
// which need not be registered.
func NewWithDriver(drv ConsoleInput) *ConsoleIn {
	return &ConsoleIn{driver: drv, interrupts: interruptCount}
}

// GetDriver returns the driver we're using.
func (co *ConsoleIn) GetDriver() ConsoleInput {
	return co.driver
}

// GetName returns the name of our selected driver.
func (co *ConsoleIn) GetName() string {
	return co.driver.GetName()
}

// Setup proxies into our registered console-input driver.
func (co *ConsoleIn) Setup() error {
	return co.driver.Setup()
}

// TearDown proxies into our registered console-input driver.
func (co *ConsoleIn) TearDown() error {
	return co.driver.TearDown()
}

// StuffInput inserts fake values into our input-buffer.
func (co *ConsoleIn) StuffInput(input string) {
	co.stuffed += input
}

// SetInterruptCount sets the number of consecutive Ctrl-C characters
// which are required to interrupt ReadLine.
func (co *ConsoleIn) SetInterruptCount(n int) {
	co.interrupts = n
}

// GetInterruptCount returns the number of consecutive Ctrl-C characters
// which are required to interrupt ReadLine.
func (co *ConsoleIn) GetInterruptCount() int {
	return co.interrupts
}

// PendingInput returns true if there is pending input available.
func (co *ConsoleIn) PendingInput() bool {
	if len(co.stuffed) > 0 {
		return true
	}
	return co.driver.PendingInput()
}

// BlockForCharacterNoEcho proxies into our registered console-input
// driver, after returning any stuffed input.
func (co *ConsoleIn) BlockForCharacterNoEcho() (byte, error) {
	if len(co.stuffed) > 0 {
		c := co.stuffed[0]
		co.stuffed = co.stuffed[1:]
		return c, nil
	}
	return co.driver.BlockForCharacterNoEcho()
}

// BlockForCharacterWithEcho reads a character, and writes it to the
// given output.
func (co *ConsoleIn) BlockForCharacterWithEcho(out io.Writer) (byte, error) {
	c, err := co.BlockForCharacterNoEcho()
	if err != nil {
		return c, err
	}
	fmt.Fprintf(out, "%c", c)
	return c, nil
}

// ReadLine reads a line of input from the console, truncating to the
// length specified, echoing the characters to the given output.
//
// Backspace deletes, ESC discards the line, and Ctrl-P / Ctrl-N move
// backwards and forwards through the history of previous lines.  A
// line is ended by either CR or LF.
func (co *ConsoleIn) ReadLine(max uint8, out io.Writer) (string, error) {

	// The text the user has entered
	text := ""

	// The number of Ctrl-C characters seen at the start of the line
	ctrlCount := 0

	// Our offset in the history
	offset := 0

	// replace erases the echoed line, and shows the replacement.
	replace := func(s string) {
		for range text {
			fmt.Fprintf(out, "\b \b")
		}
		text = s
		fmt.Fprintf(out, "%s", text)
	}

	for {
		c, err := co.BlockForCharacterNoEcho()
		if err != nil {
			return "", err
		}

		switch c {
		case 0x03:
			// Ctrl-C only interrupts at the start of a line
			if len(text) == 0 {
				ctrlCount++
				if ctrlCount == co.interrupts {
					return "", ErrInterrupted
				}
			}
			continue

		case 0x08, 0x7F:
			if len(text) > 0 {
				text = text[:len(text)-1]
				fmt.Fprintf(out, "\b \b")
			}
			continue

		case 0x0E:
			// Ctrl-N
			if offset > 1 {
				offset--
				replace(history[len(history)-offset])
			} else if offset == 1 {
				offset = 0
				replace("")
			}
			continue

		case 0x10:
			// Ctrl-P
			if offset < len(history) {
				offset++
				replace(history[len(history)-offset])
			}
			continue

		case 0x1B:
			replace("")
			continue

		case '\r', '\n':
			fmt.Fprintf(out, "\r\n")

			if len(text) > int(max) {
				text = text[:max]
			}
			if text != "" && (len(history) == 0 || history[len(history)-1] != text) {
				history = append(history, text)
			}
			return text, nil
		}

		ctrlCount = 0
		text += string(c)
		fmt.Fprintf(out, "%c", c)
	}
}
