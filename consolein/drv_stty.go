//go:build unix

// drv_stty creates a console input-driver which uses the
// `stty` binary to set our echo/no-echo state, and select(2)
// to poll for pending keystrokes.
//
// This is obviously not portable outwith Unix-like systems.

package consolein

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// EchoStatus is used to record our current state.
type EchoStatus int

const (
	// Unknown means we don't know the status of echo/noecho
	Unknown EchoStatus = iota

	// Echo means that input will echo characters.
	Echo

	// NoEcho means that input will not echo characters.
	NoEcho
)

// STTYInput is an input-driver that executes the 'stty' binary
// to toggle between echoing character input, and disabling the
// echo.
//
// We keep track of "echo" versus "noecho" states, to minimise the
// executions.
type STTYInput struct {

	// state holds our state
	state EchoStatus
}

// Setup is a NOP.
func (si *STTYInput) Setup() error {
	return nil
}

// TearDown resets the state of the terminal.
func (si *STTYInput) TearDown() error {
	if si.state != Echo {
		return si.enableEcho()
	}
	return nil
}

// canSelect uses select(2), with a short timeout, to see if STDIN
// has something to read.
func canSelect() bool {

	fd := int(os.Stdin.Fd())

	fds := new(unix.FdSet)
	fds.Zero()
	fds.Set(fd)

	tv := unix.Timeval{Usec: 200}

	nRead, err := unix.Select(fd+1, fds, nil, nil, &tv)
	if err != nil {
		return false
	}
	return nRead > 0
}

// PendingInput returns true if there is pending input from STDIN.
//
// We have to set RAW mode, without this input is line-buffered and
// nothing is pending until Enter is pressed.
func (si *STTYInput) PendingInput() bool {

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return false
	}

	res := canSelect()

	if err = term.Restore(int(os.Stdin.Fd()), oldState); err != nil {
		return false
	}
	return res
}

// BlockForCharacterNoEcho returns the next character from the console,
// blocking until one is available.
func (si *STTYInput) BlockForCharacterNoEcho() (byte, error) {

	// Do we need to change state?  If so then do it.
	if si.state != NoEcho {
		if err := si.disableEcho(); err != nil {
			return 0x00, err
		}
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return 0x00, fmt.Errorf("error making raw terminal %w", err)
	}

	b := make([]byte, 1)
	_, err = os.Stdin.Read(b)
	if err != nil {
		_ = term.Restore(int(os.Stdin.Fd()), oldState)
		return 0x00, fmt.Errorf("error reading a byte from stdin %w", err)
	}

	if err = term.Restore(int(os.Stdin.Fd()), oldState); err != nil {
		return 0x00, fmt.Errorf("error restoring terminal state %w", err)
	}
	return b[0], nil
}

// disableEcho is the single place where we disable echoing.
func (si *STTYInput) disableEcho() error {
	si.state = NoEcho
	return exec.Command("stty", "-F", "/dev/tty", "-echo").Run()
}

// enableEcho is the single place where we enable echoing.
func (si *STTYInput) enableEcho() error {
	si.state = Echo
	return exec.Command("stty", "-F", "/dev/tty", "echo").Run()
}

// GetName is part of the module API, and returns the name of this driver.
func (si *STTYInput) GetName() string {
	return "stty"
}

// init registers our driver, by name.
func init() {
	Register("stty", func() ConsoleInput {
		return new(STTYInput)
	})
}
