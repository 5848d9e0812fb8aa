// Package dosname contains the helpers for working with DOS filenames.
//
// DOS filenames are always upper-case, are limited to an eight character
// name and a three character extension, and are made of bytes in the
// current OEM codepage rather than unicode.  The canonicalization of a
// name that a program passes to the kernel, the matching of wildcards
// used by searches, and the generation of short-names for host files
// all live here.
package dosname

import (
	"strings"

	"github.com/skx/dosfs/doserr"
)

const (
	// PathLength is the maximum length of a path, including the
	// terminating NUL byte, DOS allows.
	PathLength = 80

	// Drives is the number of drives DOS supports, A: to Z:.
	Drives = 26
)

// CurDirFunc returns the current directory of the given drive, and
// whether that drive exists at all.
type CurDirFunc func(drive uint8) (string, bool)

// allowed reports whether the character may appear in a canonical
// DOS filename, in addition to letters and digits.
func allowed(c byte) bool {
	if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
		return true
	}
	switch c {
	case '\\', '$', '#', '@', '(', ')', '!', '%', '{', '}', '`', '~',
		'_', '-', '.', '*', '?', '&', '\'', '+', '^',
		246, 255, 0xa0, 0xe5, 0xbd, 0x9d:
		return true
	}
	return false
}

// onlyDots reports whether the given component is made of nothing
// but dots.
func onlyDots(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			return false
		}
	}
	return len(s) > 0
}

// climb removes levels from the end of the given path, for a component
// made of dots.  Each dot after the first moves up one more level.
func climb(full string, levels int) string {
	if len(full) == 0 {
		return full
	}
	last := 0
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '\\' || i == 0 {
			last = i
			levels--
			if levels == 0 {
				break
			}
		}
	}
	return full[:last]
}

// MakeName converts the name a program passed us into the canonical
// form used by the drives: upper-cased, 8.3 components, separated by
// backslashes, relative to the root of the drive, without the leading
// backslash and without the drive letter.
//
// Paths which don't begin with a backslash are relative to the current
// directory of the drive, which is obtained via the given function.
//
// The drive index is returned even upon failure, once it has been
// decoded, since some callers use that to report errors.
func MakeName(name string, defaultDrive uint8, curdir CurDirFunc) (string, uint8, error) {

	// Both NUL and space are separators, and empty
	// filenames report "file not found".
	if len(name) == 0 || name[0] == 0x00 || name[0] == ' ' {
		return "", defaultDrive, doserr.FileNotFound
	}

	// C strings end at the first NUL.
	if i := strings.IndexByte(name, 0x00); i >= 0 {
		name = name[:i]
	}

	drive := defaultDrive
	if len(name) >= 2 && name[1] == ':' {
		drive = (name[0] | 0x20) - 'a'
		name = name[2:]
	}
	if drive >= Drives {
		return "", drive, doserr.PathNotFound
	}
	cur, ok := curdir(drive)
	if !ok {
		return "", drive, doserr.PathNotFound
	}
	if len(name) >= PathLength {
		return "", drive, doserr.PathNotFound
	}

	// Upper-case, convert slashes, and drop spaces.
	var up strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
			up.WriteByte(c - 32)
		case c == '/':
			up.WriteByte('\\')
		case c == ' ':
			// separator
		default:
			up.WriteByte(c)
		}
	}
	upname := up.String()

	full := ""
	if !strings.HasPrefix(upname, "\\") {
		full = cur
	}

	parts := strings.Split(upname, "\\")
	for i, part := range parts {
		last := (i == len(parts)-1)

		if part == "" || part == "." {
			continue
		}

		if onlyDots(part) {
			full = climb(full, len(part)-1)
			continue
		}

		if len(full) != 0 {
			full += "\\"
		}

		if dot := strings.IndexByte(part, '.'); dot >= 0 {
			ext := part[dot:]

			// Another dot in the extension is "file not found",
			// or "path not found" depending on whether we're
			// still in the directory-stage or at the file.
			if strings.IndexByte(ext[1:], '.') >= 0 {
				if last {
					return "", drive, doserr.FileNotFound
				}
				return "", drive, doserr.PathNotFound
			}
			if len(ext) > 4 {
				ext = ext[:4]
			}
			// A bare dot is the empty extension of an FCB name.
			if ext == "." {
				ext = ""
			}
			base := part[:dot]
			if len(base) > 8 {
				base = base[:8]
			}
			part = base + ext
		} else if len(part) > 8 {
			part = part[:8]
		}

		// Illegal characters are tested after the 8.3 trimming
		for j := 0; j < len(part); j++ {
			if !allowed(part[j]) {
				return "", drive, doserr.PathNotFound
			}
		}

		if len(full)+len(part) >= PathLength {
			return "", drive, doserr.PathNotFound
		}
		full += part
	}
	return full, drive, nil
}

// Split83 splits a name into the space-padded name and extension
// fields used by FCBs and DTAs.  Both parts are truncated to fit.
func Split83(name string) ([8]byte, [3]byte) {
	var base [8]byte
	var ext [3]byte

	for i := range base {
		base[i] = ' '
	}
	for i := range ext {
		ext[i] = ' '
	}

	b, e, _ := strings.Cut(name, ".")
	copy(base[:], b)
	copy(ext[:], e)
	return base, ext
}

// Join83 is the inverse of Split83, trimming the padding and only
// adding the dot when there is an extension.
func Join83(base, ext []byte) string {
	b := strings.TrimRight(string(trimNul(base)), " ")
	e := strings.TrimRight(string(trimNul(ext)), " ")
	if e == "" {
		return b
	}
	return b + "." + e
}

// trimNul truncates the given bytes at the first NUL.
func trimNul(b []byte) []byte {
	for i, c := range b {
		if c == 0x00 {
			return b[:i]
		}
	}
	return b
}

// Label converts the given name into the form used for volume labels,
// which are eight characters, an optional dot, and three more.
func Label(input string) string {
	var out []byte

	togo := 8
	pos := 0
	point := false

	for togo > 0 && pos < len(input) {
		if !point && input[pos] == '.' {
			togo = 4
			point = true
		}
		c := input[pos]
		if c >= 'a' && c <= 'z' {
			c -= 32
		}
		out = append(out, c)
		pos++
		togo--

		if togo == 0 && !point {
			if pos < len(input) && input[pos] == '.' {
				pos++
			}
			out = append(out, '.')
			point = true
			togo = 3
		}
	}

	// Remove any trailing dot.
	if len(out) > 0 && out[len(out)-1] == '.' {
		out = out[:len(out)-1]
	}
	return string(out)
}

// BaseName returns the final component of a DOS path, with any drive
// and directories removed.
func BaseName(path string) string {
	if len(path) >= 2 && path[1] == ':' {
		path = path[2:]
	}
	if i := strings.LastIndexAny(path, "\\/"); i >= 0 {
		path = path[i+1:]
	}
	return path
}

// DeviceName returns the name used to look up character devices from
// a path: the final component, upper-cased, without any extension.
func DeviceName(path string) string {
	name := BaseName(path)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return strings.ToUpper(strings.TrimRight(name, " "))
}
