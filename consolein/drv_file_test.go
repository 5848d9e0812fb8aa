package consolein

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

// TestFileOptions tests the header is removed, and newlines translated.
func TestFileOptions(t *testing.T) {

	type TestCase struct {
		input  string
		output string
	}

	tests := []TestCase{
		{"DIR\n", "DIR\r"},
		{"newline: n\n--\nDIR\n", "DIR\n"},
		{"newline: both\n--\nDIR\n", "DIR\r\n"},
		{"# comment\nnewline: m\n--\nDIR\n", "DIR\r"},
		{"bogus\n--\nA#B", "AB"},
	}

	for _, test := range tests {
		fi := NewFileInput([]byte(test.input))

		out := ""
		for {
			c, err := fi.BlockForCharacterNoEcho()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("unexpected error %s", err)
			}
			out += string(c)
		}
		if out != test.output {
			t.Fatalf("%q: got %q, expected %q", test.input, out, test.output)
		}
	}
}

// TestFileSetup reads the input from a file.
func TestFileSetup(t *testing.T) {

	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte("VER\n"), 0644); err != nil {
		t.Fatalf("failed to write input %s", err)
	}
	t.Setenv("INPUT_FILE", path)

	fi := &FileInput{}
	if err := fi.Setup(); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	fi.delaySmall = 0

	if !fi.PendingInput() {
		t.Fatalf("expected pending input")
	}
	c, err := fi.BlockForCharacterNoEcho()
	if err != nil || c != 'V' {
		t.Fatalf("unexpected result %c %v", c, err)
	}
	if err = fi.TearDown(); err != nil {
		t.Fatalf("unexpected error %s", err)
	}

	t.Setenv("INPUT_FILE", filepath.Join(t.TempDir(), "missing"))
	if err = fi.Setup(); err == nil {
		t.Fatalf("expected error with a missing file")
	}
}
