package device

import (
	"fmt"

	"github.com/skx/dosfs/consolein"
	"github.com/skx/dosfs/consoleout"
)

// Console is the CON device, which reads from the keyboard and writes
// to the screen.
type Console struct {
	in  *consolein.ConsoleIn
	out *consoleout.ConsoleOut

	// pending holds the LF which follows a CR, when the caller didn't
	// have room for it.
	pending []byte
}

// NewConsole returns the CON device, using the given drivers.
func NewConsole(in *consolein.ConsoleIn, out *consoleout.ConsoleOut) *Console {
	return &Console{in: in, out: out}
}

// Input returns the console input driver.
func (c *Console) Input() *consolein.ConsoleIn {
	return c.in
}

// Output returns the console output driver.
func (c *Console) Output() *consoleout.ConsoleOut {
	return c.out
}

// Name returns the name of the device.
func (c *Console) Name() string { return "CON" }

// Information returns the device information word.
func (c *Console) Information() uint16 { return InfoCON }

// Ready reports whether a read would return without waiting for a key.
func (c *Console) Ready() bool {
	return len(c.pending) > 0 || c.in.PendingInput()
}

// Read reads a line of input, in cooked mode.
//
// Characters are echoed, backspace removes them, and the line ends with
// CR which is returned as CR LF.  Ctrl-Z is the end of the input, and
// is returned as the final character.
func (c *Console) Read(p []byte) (int, error) {
	count := 0

	for len(c.pending) > 0 && count < len(p) {
		p[count] = c.pending[0]
		c.pending = c.pending[1:]
		count++
	}

	for count < len(p) {
		ch, err := c.in.BlockForCharacterNoEcho()
		if err != nil {
			return count, fmt.Errorf("failed to read from the console: %w", err)
		}

		switch ch {
		case '\r':
			p[count] = '\r'
			count++
			if count < len(p) {
				p[count] = '\n'
				count++
			} else {
				c.pending = append(c.pending, '\n')
			}
			fmt.Fprintf(c.out, "\r\n")
			return count, nil

		case 0x08, 0x7F:
			if count > 0 {
				count--
				fmt.Fprintf(c.out, "\b \b")
			}

		case 0x1A:
			p[count] = ch
			count++
			fmt.Fprintf(c.out, "^Z")
			return count, nil

		default:
			p[count] = ch
			count++
			c.out.PutCharacter(ch)
		}
	}
	return count, nil
}

// Write writes to the screen.
func (c *Console) Write(p []byte) (int, error) {
	return c.out.Write(p)
}
