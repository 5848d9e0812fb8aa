package consoleout

import (
	"io"
	"os"
)

// NullOutputDriver discards everything written to CON.  It is hidden
// from -list-output-drivers, but "-output null" selects it for runs which
// only care about the files a command leaves behind.
type NullOutputDriver struct {
	writer io.Writer
}

// GetName returns "null".
func (no *NullOutputDriver) GetName() string {
	return "null"
}

// PutCharacter drops the byte.
func (no *NullOutputDriver) PutCharacter(c uint8) {
}

// SetWriter is accepted, but nothing is ever written.
func (no *NullOutputDriver) SetWriter(w io.Writer) {
	no.writer = w
}

func init() {
	Register("null", func() ConsoleOutput {
		return &NullOutputDriver{
			writer: os.Stdout,
		}
	})
}
