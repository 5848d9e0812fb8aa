// drv_file creates a console input-driver which reads and
// returns fake console input from a file.
//
// The intent is that this driver will be useful for scripted
// automation.  We add a small delay to all operations just to
// make things seem a little real, and we replace "#" characters
// with a longer delay.

package consolein

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
	"time"
)

// FileInput is an input-driver that returns fake "console input"
// by reading the content of a file.
//
// The file may begin with a header of "key: value" options, which is
// terminated by a line containing "--".  The only option we recognize
// is "newline", which may be "m" to return Ctrl-M for each newline (the
// default, since that is what the Enter key sends under DOS), "n" to
// return a newline, or "both".
type FileInput struct {

	// offset shows the offset into the buffer we're at
	offset int

	// content contains the content of the input file
	content []byte

	// options holds the header of the file
	options map[string]string

	// pending holds a character injected after a newline
	pending []byte

	// delayUntil is used to see if we're in the middle of a delay,
	// where we pretend we have no input.
	delayUntil time.Time

	// delaySmall is the time we sleep when polling
	delaySmall time.Duration

	// delayLarge is the time a "#" pauses for
	delayLarge time.Duration
}

// NewFileInput returns a file-driver which returns the given content,
// without any delays.
func NewFileInput(data []byte) *FileInput {
	fi := &FileInput{}
	fi.parseOptions(data)
	return fi
}

// Setup reads the contents of the file specified by the
// environmental variable $INPUT_FILE, and saves it away as
// a source of fake console input.
//
// If no filename is chosen "input.txt" will be used as a default.
func (fi *FileInput) Setup() error {

	fileName := os.Getenv("INPUT_FILE")
	if fileName == "" {
		fileName = "input.txt"
	}

	dat, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}

	fi.delaySmall = 15 * time.Millisecond
	fi.delayLarge = 5 * time.Second
	fi.parseOptions(dat)
	return nil
}

// parseOptions processes the header of the input, and saves the
// remainder as our content.
func (fi *FileInput) parseOptions(data []byte) []byte {

	fi.options = make(map[string]string)
	fi.offset = 0
	fi.delayUntil = time.Now()
	fi.content = data

	// No header?
	idx := bytes.Index(data, []byte("--\n"))
	if idx < 0 {
		return fi.content
	}

	header := data[:idx]
	fi.content = data[idx+3:]

	scanner := bufio.NewScanner(bytes.NewReader(header))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, val, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fi.options[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return fi.content
}

// TearDown is a NOP.
func (fi *FileInput) TearDown() error {
	return nil
}

// PendingInput returns true if there is pending input which we
// can return.  This is always true unless we've exhausted the contents
// of our input-file.
func (fi *FileInput) PendingInput() bool {

	if fi.delaySmall > 0 {
		time.Sleep(fi.delaySmall)
	}

	if len(fi.pending) > 0 {
		return true
	}

	// If we're not in a delay period return the real result
	if time.Now().After(fi.delayUntil) {
		return fi.offset < len(fi.content)
	}

	// We're in a delay period, so just pretend nothing is happening.
	return false
}

// BlockForCharacterNoEcho returns the next character from the file we
// use to fake our input.
func (fi *FileInput) BlockForCharacterNoEcho() (byte, error) {

	if len(fi.pending) > 0 {
		c := fi.pending[0]
		fi.pending = fi.pending[1:]
		return c, nil
	}

	if fi.offset >= len(fi.content) {
		return 0x00, io.EOF
	}

	x := fi.content[fi.offset]
	fi.offset++

	// A hash introduces a delay, and returns the next character.
	if x == '#' {
		fi.delayUntil = time.Now().Add(fi.delayLarge)
		if fi.offset >= len(fi.content) {
			return 0x00, nil
		}
		x = fi.content[fi.offset]
		fi.offset++
	}

	if x == '\n' {
		switch fi.options["newline"] {
		case "n":
			return '\n', nil
		case "both":
			fi.pending = append(fi.pending, '\n')
			return '\r', nil
		default:
			return '\r', nil
		}
	}
	return x, nil
}

// GetName is part of the module API, and returns the name of this driver.
func (fi *FileInput) GetName() string {
	return "file"
}

// init registers our driver, by name.
func init() {
	Register("file", func() ConsoleInput {
		return new(FileInput)
	})
}
