package consoleout

import (
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// CP437OutputDriver translates the DOS codepage into UTF-8, so that
// box-drawing and accented characters display on a modern terminal.
//
// Control characters, including ESC, are passed through untouched so
// ANSI sequences still work.
type CP437OutputDriver struct {

	// writer is where we send our output
	writer io.Writer
}

// GetName returns the name of this driver.
//
// This is part of the OutputDriver interface.
func (cd *CP437OutputDriver) GetName() string {
	return "cp437"
}

// PutCharacter writes the UTF-8 form of the specified character.
//
// This is part of the OutputDriver interface.
func (cd *CP437OutputDriver) PutCharacter(c uint8) {
	if c < 0x80 {
		_, _ = cd.writer.Write([]byte{c})
		return
	}

	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], charmap.CodePage437.DecodeByte(c))
	_, _ = cd.writer.Write(buf[:n])
}

// SetWriter will update the writer.
func (cd *CP437OutputDriver) SetWriter(w io.Writer) {
	cd.writer = w
}

// init registers our driver, by name.
func init() {
	Register("cp437", func() ConsoleOutput {
		return &CP437OutputDriver{
			writer: os.Stdout,
		}
	})
}
