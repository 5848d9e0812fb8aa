package consoleout

import (
	"io"
	"os"
)

// AnsiOutputDriver passes the bytes programs write straight through to
// the terminal, which handles any escape sequences itself.
//
// Characters above 0x7F are written as the raw OEM byte, so a terminal
// using UTF-8 will show them badly; the cp437 driver translates them.
type AnsiOutputDriver struct {
	writer io.Writer
}

// GetName returns "ansi".
func (ad *AnsiOutputDriver) GetName() string {
	return "ansi"
}

// PutCharacter writes the byte unchanged.
func (ad *AnsiOutputDriver) PutCharacter(c uint8) {
	_, _ = ad.writer.Write([]byte{c})
}

// SetWriter redirects the output.
func (ad *AnsiOutputDriver) SetWriter(w io.Writer) {
	ad.writer = w
}

// ansi is the default driver.
func init() {
	Register("ansi", func() ConsoleOutput {
		return &AnsiOutputDriver{
			writer: os.Stdout,
		}
	})
}
