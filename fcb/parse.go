package fcb

import "strings"

// The flags which control ParseName.
const (
	// ParseSepStop skips a single leading separator.
	ParseSepStop = 0x01

	// ParseDefaultDrive leaves the drive alone if none is given.
	ParseDefaultDrive = 0x02

	// ParseBlankName leaves the name alone if none is given.
	ParseBlankName = 0x04

	// ParseBlankExt leaves the extension alone if none is given.
	ParseBlankExt = 0x08
)

// The results of ParseName.
const (
	ParseNoWild   = 0x00
	ParseWild     = 0x01
	ParseBadDrive = 0xFF
)

const (
	// separators may be skipped before a name.
	separators = ":.;,=+"

	// illegal characters terminate a name.
	illegal = ":.;,=+ \t/\"[]<>|"
)

// valid returns true if the character may be part of an FCB name.
func valid(c byte) bool {
	return c > 0x1F && strings.IndexByte(illegal, c) < 0
}

// toUpper upper-cases the ASCII letters only.
func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 32
	}
	return c
}

// isAlpha is used to test drive letters.
func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parser walks over the input string, returning NUL at the end.
type parser struct {
	input []byte
	pos   int
}

func (p *parser) peek(n int) byte {
	if p.pos+n < len(p.input) {
		return p.input[p.pos+n]
	}
	return 0x00
}

// field copies up to len(dst) characters into the destination,
// expanding '*' by filling the rest with '?'.  It returns true if a
// wildcard was seen.
func (p *parser) field(dst []uint8, starIsWild bool) bool {
	wild := false
	finished := false
	fill := uint8(' ')

	for i := 0; i < len(dst); {
		if finished {
			dst[i] = fill
			i++
			continue
		}

		c := p.peek(0)
		switch {
		case c == '*':
			fill = '?'
			dst[i] = '?'
			if starIsWild {
				wild = true
			}
			finished = true
		case c == '?':
			dst[i] = '?'
			wild = true
		case valid(c):
			dst[i] = toUpper(c)
		default:
			finished = true
			continue
		}
		p.pos++
		i++
	}
	return wild
}

// ParseName parses a filename into the given FCB, in the same way as
// the INT21,29 function.
//
// The exists function is used to test whether a drive letter refers to
// a valid drive.  The number of bytes consumed from the input is
// returned along with the ParseNoWild, ParseWild, or ParseBadDrive
// status.
//
// The existing contents of the FCB's name are used for the parts the
// flags say should be left alone, so the drive is resolved against the
// given default.
func ParseName(f *FCB, flags uint8, input []byte, def uint8, exists func(drive uint8) bool) (int, uint8) {

	ret := uint8(ParseNoWild)

	if flags&ParseDefaultDrive == 0 {
		f.Drive = 0
	}

	// Get the old information from the FCB
	drive := f.GetDrive(def) + 1
	name := f.Name
	ext := f.Ext

	hasDrive := false
	hasName := false
	hasExt := false

	p := &parser{input: input}

	// Skip a leading separator
	if flags&ParseSepStop != 0 && p.peek(0) != 0x00 {
		if strings.IndexByte(separators, p.peek(0)) >= 0 {
			p.pos++
		}
	}

	// and leading whitespace
	for p.peek(0) == ' ' || p.peek(0) == '\t' {
		p.pos++
	}

	// Drive prefix?
	if p.peek(1) == ':' {
		drive = 0
		hasDrive = true

		c := p.peek(0)
		if isAlpha(c) && exists(toUpper(c)-'A') {
			drive = toUpper(c) - 'A' + 1
		} else {
			ret = ParseBadDrive
		}
		p.pos += 2
	}

	wild := false

	switch {
	case p.peek(0) == '.' && p.peek(1) == 0x00:
		p.pos++
		hasName = true
		ret = ParseNoWild
		copy(name[:], ".       ")

	case p.peek(0) == '.' && p.peek(1) == '.' && p.peek(2) == 0x00:
		p.pos += 2
		hasName = true
		ret = ParseNoWild
		copy(name[:], "..      ")

	case p.peek(0) == '.':
		// Only an extension
		p.pos++
		hasExt = true
		wild = p.field(ext[:], false)

	default:
		hasName = true
		wild = p.field(name[:], true)

		if p.peek(0) == '.' {
			p.pos++
			hasExt = true
			if p.field(ext[:], false) {
				wild = true
			}
		}
	}

	if wild && ret == ParseNoWild {
		ret = ParseWild
	}

	if !hasDrive && flags&ParseDefaultDrive == 0 {
		drive = 0
	}
	if !hasName && flags&ParseBlankName == 0 {
		copy(name[:], "        ")
	}
	if !hasExt && flags&ParseBlankExt == 0 {
		copy(ext[:], "   ")
	}

	f.SetName(drive, name, ext)
	return p.pos, ret
}
