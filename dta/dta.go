// Package dta provides access to the disk transfer area.
//
// The DTA is the buffer the FCB functions read and write records into,
// and is also where FindFirst and FindNext store both the state of the
// search and the file they found.
package dta

import (
	"github.com/skx/dosfs/memory"
)

// Offsets of the fields within the DTA.
const (
	offDrive   = 0x00
	offName    = 0x01
	offExt     = 0x09
	offSAttr   = 0x0C
	offDirID   = 0x0D
	offCluster = 0x0F
	offAttr    = 0x15
	offTime    = 0x16
	offDate    = 0x18
	offSize    = 0x1A
	offResult  = 0x1E

	// NameLength is the space for the ASCIIZ name of the result.
	NameLength = 13

	// Size is the size of the search structure.
	Size = offResult + NameLength
)

// Result is a file found by a search.
type Result struct {
	Name string
	Size uint32
	Date uint16
	Time uint16
	Attr uint8
}

// DTA is a view of a DTA held in memory.
type DTA struct {
	mem  *memory.Memory
	addr uint32
}

// New returns the DTA at the given far pointer.
func New(mem *memory.Memory, rp memory.RealPt) *DTA {
	return &DTA{mem: mem, addr: memory.Real2Phys(rp)}
}

// Addr returns the physical address of the DTA.
func (d *DTA) Addr() uint32 {
	return d.addr
}

// SetupSearch prepares the DTA for a new search.
//
// The pattern is split at its first dot into the name and extension
// fields, each truncated to fit.
func (d *DTA) SetupSearch(drive, attr uint8, pattern string) {
	d.mem.FillRange(d.addr+offName, 11, 0x00)

	d.mem.Set(d.addr+offDrive, drive)
	d.mem.Set(d.addr+offSAttr, attr)

	name := pattern
	ext := ""
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '.' {
			name = pattern[:i]
			ext = pattern[i+1:]
			break
		}
	}
	if len(name) > 8 {
		name = name[:8]
	}
	if len(ext) > 3 {
		ext = ext[:3]
	}
	d.mem.SetRange(d.addr+offName, []byte(name)...)
	d.mem.SetRange(d.addr+offExt, []byte(ext)...)
}

// SearchDrive returns the drive the search is taking place upon.
func (d *DTA) SearchDrive() uint8 {
	return d.mem.Get(d.addr + offDrive)
}

// SearchParams returns the attributes and pattern of the search.
func (d *DTA) SearchParams() (uint8, string) {
	attr := d.mem.Get(d.addr + offSAttr)
	name := d.mem.GetString(d.addr+offName, 8)
	ext := d.mem.GetString(d.addr+offExt, 3)
	return attr, name + "." + ext
}

// SetDirID stores the identifier of the search, used by the drive to
// continue it.
func (d *DTA) SetDirID(id uint16) {
	d.mem.SetU16(d.addr+offDirID, id)
}

// DirID returns the identifier of the search.
func (d *DTA) DirID() uint16 {
	return d.mem.GetU16(d.addr + offDirID)
}

// SetDirCluster stores the second search identifier.
func (d *DTA) SetDirCluster(c uint16) {
	d.mem.SetU16(d.addr+offCluster, c)
}

// DirCluster returns the second search identifier.
func (d *DTA) DirCluster() uint16 {
	return d.mem.GetU16(d.addr + offCluster)
}

// SetResult stores the details of a file that was found.
func (d *DTA) SetResult(r Result) {
	name := r.Name
	if len(name) > NameLength-1 {
		name = name[:NameLength-1]
	}
	d.mem.SetString(d.addr+offResult, name)
	d.mem.SetU32(d.addr+offSize, r.Size)
	d.mem.SetU16(d.addr+offDate, r.Date)
	d.mem.SetU16(d.addr+offTime, r.Time)
	d.mem.Set(d.addr+offAttr, r.Attr)
}

// Result returns the file which was found.
func (d *DTA) Result() Result {
	return Result{
		Name: d.mem.GetString(d.addr+offResult, NameLength),
		Size: d.mem.GetU32(d.addr + offSize),
		Date: d.mem.GetU16(d.addr + offDate),
		Time: d.mem.GetU16(d.addr + offTime),
		Attr: d.mem.Get(d.addr + offAttr),
	}
}
