package dosname

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// cp437 is the codepage used for names, as DOS would see them.
var cp437 = charmap.CodePage437

// FromHost converts a host filename to the bytes DOS would see,
// using '_' for any character the codepage cannot represent.
func FromHost(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if r < 0x80 {
			sb.WriteByte(byte(r))
			continue
		}
		b, ok := cp437.EncodeRune(r)
		if !ok {
			b = '_'
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// ToHost converts a DOS filename into a UTF-8 host filename.
func ToHost(name string) string {
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x80 {
			sb.WriteByte(c)
			continue
		}
		sb.WriteRune(cp437.DecodeByte(c))
	}
	return sb.String()
}

// upper upper-cases the ASCII letters of a DOS name, leaving the
// codepage characters alone.
func upper(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

// legal reports whether the character may appear in the component of
// a short name, which is the set MakeName accepts without the path
// separator and the wildcards.
func legal(c byte) bool {
	switch c {
	case '\\', '*', '?':
		return false
	}
	return allowed(c)
}

// parseShort upper-cases a host name and removes the characters DOS
// refuses, returning the result, the length of its name part, and
// whether it needs a generated short name.
func parseShort(host string) (string, int, bool) {

	name := upper(FromHost(host))

	// Spaces, and anything MakeName would refuse, are removed, but
	// force a generated name.
	short := false
	kept := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if !legal(name[i]) {
			short = true
			continue
		}
		kept = append(kept, name[i])
	}
	name = string(kept)

	length := len(name)
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		// ignore leading dots if the extension is too long
		if len(name)-dot > 4 {
			name = strings.TrimLeft(name, ".")
			short = true
		}
		if dot = strings.IndexByte(name, '.'); dot >= 0 {
			length = dot
		} else {
			length = len(name)
		}
	}

	// More than one dot isn't valid either.
	if strings.Count(name, ".") > 1 {
		short = true
	}

	return name, length, short || length > 8
}

// IsShort reports whether the host filename is already a valid 8.3
// name, once upper-cased.
func IsShort(host string) bool {
	_, _, generate := parseShort(host)
	return !generate
}

// ShortName returns the 8.3 name which DOS programs will see for the
// given host filename.
//
// Names which already fit are merely upper-cased.  Others are given
// the familiar "LONGNA~1.TXT" form, where the number is the first
// which the taken function doesn't report as being in use.
func ShortName(host string, taken func(string) bool) string {

	name, length, generate := parseShort(host)
	if !generate {
		return name
	}
	return numbered(name, length, taken)
}

// NumberedName always returns a "NAME~1.EXT" form of the host name, for
// names which are valid but clash with another once upper-cased.
func NumberedName(host string, taken func(string) bool) string {
	name, length, _ := parseShort(host)
	return numbered(name, length, taken)
}

// numbered returns the first numbered short name which isn't taken.
func numbered(name string, length int, taken func(string) bool) string {
	ext := ""
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		ext = name[dot:]
		if len(ext) > 4 {
			ext = ext[:4]
		}
	}

	for nr := 1; ; nr++ {
		num := strconv.Itoa(nr)
		tocopy := length
		if length+len(num)+1 > 8 {
			tocopy = 8 - len(num) - 1
		}
		if tocopy > len(name) {
			tocopy = len(name)
		}
		candidate := name[:tocopy] + "~" + num + ext
		if taken == nil || !taken(candidate) {
			return candidate
		}
	}
}
