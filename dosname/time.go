package dosname

import "time"

// PackDate converts a date into the 16-bit form used by DOS
// directory entries, FCBs, and DTAs.
func PackDate(year, mon, day int) uint16 {
	return uint16((year-1980)<<9 | mon<<5 | day)
}

// PackTime converts a time into the 16-bit DOS form, which only has
// a two-second resolution.
func PackTime(hour, min, sec int) uint16 {
	return uint16(hour<<11 | min<<5 | sec/2)
}

// FromTime returns the packed date and time for the given time.
//
// Dates before 1980 cannot be represented, and are clamped.
func FromTime(t time.Time) (uint16, uint16) {
	if t.Year() < 1980 {
		t = time.Date(1980, time.January, 1, 0, 0, 0, 0, t.Location())
	}
	return PackDate(t.Year(), int(t.Month()), t.Day()),
		PackTime(t.Hour(), t.Minute(), t.Second())
}

// ToTime converts a packed date and time back into a time.
func ToTime(date, tm uint16) time.Time {
	return time.Date(
		int(date>>9)+1980,
		time.Month((date>>5)&0x0F),
		int(date&0x1F),
		int(tm>>11),
		int((tm>>5)&0x3F),
		int(tm&0x1F)*2,
		0, time.Local)
}
