package dosname

import "strings"

// splitExt splits a name at its last dot, returning the name and the
// extension without any dot.  The parts are truncated to the given
// lengths and upper-cased.
func splitExt(name string, nlen, elen int) (string, string) {
	base := name
	ext := ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		base = name[:i]
		ext = name[i+1:]
	}
	if len(base) > nlen {
		base = base[:nlen]
	}
	if len(ext) > elen {
		ext = ext[:elen]
	}
	return strings.ToUpper(base), strings.ToUpper(ext)
}

// matchPart compares one half of a filename against the wildcard.
//
// A '*' matches everything which follows, and '?' matches any single
// character, including the absence of one.
func matchPart(file, wild string, width int) bool {
	at := func(s string, i int) byte {
		if i < len(s) {
			return s[i]
		}
		return 0x00
	}

	r := 0
	for ; r < width; r++ {
		w := at(wild, r)
		if w == '*' {
			return true
		}
		if w != '?' && w != at(file, r) {
			return false
		}
	}

	// Anything left in the wildcard, beyond the field, must be a star.
	if w := at(wild, r); w != 0x00 && w != '*' {
		return false
	}
	return true
}

// WildFileCmp reports whether the filename matches the given DOS
// wildcard pattern.
func WildFileCmp(file, wild string) bool {
	fname, fext := splitExt(file, 8, 3)
	wname, wext := splitExt(wild, 9, 4)

	if !matchPart(fname, wname, 8) {
		return false
	}
	return matchPart(fext, wext, 3)
}
