package consolein

import (
	"io"
	"testing"
)

func FuzzOptionsParser(f *testing.F) {

	f.Add([]byte(""))
	f.Add([]byte("--\n"))
	f.Add([]byte("newline: n\n--\nDIR\n"))
	f.Add([]byte("a:b:c\n\n--\n#\n"))

	f.Fuzz(func(t *testing.T, input []byte) {
		fi := NewFileInput(input)

		// We should terminate, having consumed at most every byte
		for i := 0; i <= 2*len(input)+1; i++ {
			if _, err := fi.BlockForCharacterNoEcho(); err == io.EOF {
				return
			}
		}
		t.Fatalf("input was not consumed")
	})
}
