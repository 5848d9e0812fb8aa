// Package psp provides access to the program segment prefix.
//
// Every DOS process has a PSP, which lives at the start of its memory,
// and which holds the process' table of file handles, its command-line,
// and the addresses DOS needs to return to its parent.
//
// Handles a program uses are indexes into the PSP's table, whose entries
// in turn refer to the kernel's table of open files.  An unused entry
// holds Unused.
package psp

import (
	"fmt"

	"github.com/skx/dosfs/memory"
)

// Offsets of the fields within the PSP.
const (
	offExit      = 0x00
	offNextSeg   = 0x02
	offFarCall   = 0x05
	offCPMEntry  = 0x06
	offInt22     = 0x0A
	offInt23     = 0x0E
	offInt24     = 0x12
	offParent    = 0x16
	offFiles     = 0x18
	offEnv       = 0x2C
	offStack     = 0x2E
	offMaxFiles  = 0x32
	offFileTable = 0x34
	offPrevPSP   = 0x38
	offVersion   = 0x40
	offService   = 0x50
	offFCB1      = 0x5C
	offFCB2      = 0x6C
	offCmdTail   = 0x80

	// Size is the size of the PSP, in bytes.
	Size = 0x100

	// TailSize is the space for the command-tail, after the count.
	TailSize = 127

	// DefaultFiles is the size of the handle table within the PSP.
	DefaultFiles = 20

	// Unused marks a free entry in the handle table.
	Unused = 0xFF

	// cpmMaxSeg is the size, in paragraphs, above which the CP/M
	// entry-point refers to the HMA copy of INT 30h.
	cpmMaxSeg = 0x1000
)

// PSP is a view of a PSP held in memory.
type PSP struct {
	mem *memory.Memory
	seg uint16
}

// New returns the PSP at the given segment.
func New(mem *memory.Memory, seg uint16) *PSP {
	return &PSP{mem: mem, seg: seg}
}

// Segment returns the segment of this PSP.
func (p *PSP) Segment() uint16 {
	return p.seg
}

// addr returns the physical address of the given field.
func (p *PSP) addr(off uint16) uint32 {
	return memory.PhysMake(p.seg, off)
}

// MakeNew initializes a new PSP, for a process owning memSize
// paragraphs, whose parent is at the given segment.
func (p *PSP) MakeNew(memSize uint16, parent uint16) {

	p.mem.FillRange(p.addr(0), Size, 0x00)

	p.mem.SetU16(p.addr(offNextSeg), p.seg+memSize)

	// CP/M compatible entry-point, as MS-DOS 5 does it.
	p.mem.Set(p.addr(offFarCall), 0x9A)
	if memSize >= cpmMaxSeg {
		p.mem.SetU32(p.addr(offCPMEntry), uint32(memory.RealMake(0xF01D, 0xFEF0)))
	} else {
		p.mem.SetU32(p.addr(offCPMEntry), uint32(memory.RealMake(0x0000, 0x00C0)))
	}

	// int 20h
	p.mem.SetRange(p.addr(offExit), 0xCD, 0x20)

	// int 21h, retf
	p.mem.SetRange(p.addr(offService), 0xCD, 0x21, 0xCB)

	p.mem.SetU16(p.addr(offParent), parent)
	p.mem.SetU32(p.addr(offPrevPSP), 0xFFFFFFFF)
	p.mem.SetU16(p.addr(offVersion), 0x0005)

	p.SaveVectors()

	p.mem.SetU32(p.addr(offFileTable), uint32(memory.RealMake(p.seg, offFiles)))
	p.mem.SetU16(p.addr(offMaxFiles), DefaultFiles)
	for i := uint16(0); i < DefaultFiles; i++ {
		p.SetFileHandle(i, Unused)
	}
}

// vector returns the interrupt vector from the IVT.
func (p *PSP) vector(n uint32) uint32 {
	return p.mem.GetU32(n * 4)
}

// SaveVectors stores the terminate, break, and critical-error vectors.
func (p *PSP) SaveVectors() {
	p.mem.SetU32(p.addr(offInt22), p.vector(0x22))
	p.mem.SetU32(p.addr(offInt23), p.vector(0x23))
	p.mem.SetU32(p.addr(offInt24), p.vector(0x24))
}

// RestoreVectors puts the saved vectors back into the IVT.
func (p *PSP) RestoreVectors() {
	p.mem.SetU32(0x22*4, p.mem.GetU32(p.addr(offInt22)))
	p.mem.SetU32(0x23*4, p.mem.GetU32(p.addr(offInt23)))
	p.mem.SetU32(0x24*4, p.mem.GetU32(p.addr(offInt24)))
}

// Parent returns the segment of the parent PSP.
func (p *PSP) Parent() uint16 {
	return p.mem.GetU16(p.addr(offParent))
}

// SetParent updates the segment of the parent PSP.
func (p *PSP) SetParent(seg uint16) {
	p.mem.SetU16(p.addr(offParent), seg)
}

// NextSegment returns the first segment beyond the process' memory.
func (p *PSP) NextSegment() uint16 {
	return p.mem.GetU16(p.addr(offNextSeg))
}

// Environment returns the segment of the environment block.
func (p *PSP) Environment() uint16 {
	return p.mem.GetU16(p.addr(offEnv))
}

// SetEnvironment sets the segment of the environment block.
func (p *PSP) SetEnvironment(seg uint16) {
	p.mem.SetU16(p.addr(offEnv), seg)
}

// Version returns the DOS version which is reported to the process.
func (p *PSP) Version() uint16 {
	return p.mem.GetU16(p.addr(offVersion))
}

// MaxFiles returns the size of the handle table.
func (p *PSP) MaxFiles() uint16 {
	return p.mem.GetU16(p.addr(offMaxFiles))
}

// FileTable returns the address of the handle table, which might be
// outside the PSP.
func (p *PSP) FileTable() memory.RealPt {
	return memory.RealPt(p.mem.GetU32(p.addr(offFileTable)))
}

// GetFileHandle returns the entry at the given index of the handle
// table, which is Unused for out of range indexes.
func (p *PSP) GetFileHandle(index uint16) uint8 {
	if index >= p.MaxFiles() {
		return Unused
	}
	return p.mem.Get(memory.Real2Phys(p.FileTable()) + uint32(index))
}

// SetFileHandle updates the given entry of the handle table.  Out of
// range indexes are ignored.
func (p *PSP) SetFileHandle(index uint16, handle uint8) {
	if index < p.MaxFiles() {
		p.mem.Set(memory.Real2Phys(p.FileTable())+uint32(index), handle)
	}
}

// FindFreeFileEntry returns the first unused index of the handle
// table, or 0xFF if there is none.
func (p *PSP) FindFreeFileEntry() uint16 {
	return p.FindEntryByHandle(Unused)
}

// FindEntryByHandle returns the index of the handle table which refers
// to the given file, or 0xFF if there is none.
func (p *PSP) FindEntryByHandle(handle uint8) uint16 {
	files := memory.Real2Phys(p.FileTable())
	max := p.MaxFiles()

	for i := uint16(0); i < max; i++ {
		if p.mem.Get(files+uint32(i)) == handle {
			return i
		}
	}
	return 0xFF
}

// CopyFileTable copies the first twenty handles from the given PSP.
//
// When creating a child the inherit function is called for each entry,
// and must return true, having added a reference to the file, if the
// entry may be inherited.  Otherwise the table is copied as-is.
func (p *PSP) CopyFileTable(src *PSP, createChild bool, inherit func(handle uint8) bool) {
	for i := uint16(0); i < DefaultFiles; i++ {
		handle := src.GetFileHandle(i)

		if createChild {
			if handle != Unused && inherit != nil && inherit(handle) {
				p.SetFileHandle(i, handle)
			} else {
				p.SetFileHandle(i, Unused)
			}
			continue
		}
		p.SetFileHandle(i, handle)
	}
}

// SetNumFiles changes the size of the handle table.
//
// Tables larger than the default are moved to memory obtained from the
// given allocator, which receives a count of paragraphs and returns a
// segment.
func (p *PSP) SetNumFiles(n uint16, alloc func(paras uint16) (uint16, error)) error {

	// 20 minimum.
	if n < DefaultFiles {
		n = DefaultFiles
	}

	if n > DefaultFiles && n+2 > p.MaxFiles() {
		// Add a few more, for safety.
		n += 2

		paras := n / 16
		if n%16 > 0 {
			paras++
		}
		seg, err := alloc(paras)
		if err != nil {
			return fmt.Errorf("failed to allocate handle table: %w", err)
		}

		data := memory.PhysMake(seg, 0)
		for i := uint16(0); i < n; i++ {
			v := uint8(Unused)
			if i < DefaultFiles {
				v = p.GetFileHandle(i)
			}
			p.mem.Set(data+uint32(i), v)
		}
		p.mem.SetU32(p.addr(offFileTable), uint32(memory.RealMake(seg, 0)))
	}
	p.mem.SetU16(p.addr(offMaxFiles), n)
	return nil
}

// SetCommandLine stores the given string as the command-tail.
func (p *PSP) SetCommandLine(tail string) {
	if len(tail) > TailSize-1 {
		tail = tail[:TailSize-1]
	}
	p.mem.Set(p.addr(offCmdTail), uint8(len(tail)))
	p.mem.SetRange(p.addr(offCmdTail+1), []byte(tail)...)
	p.mem.Set(p.addr(offCmdTail+1+uint16(len(tail))), 0x0D)
}

// CommandLine returns the command-tail.
func (p *PSP) CommandLine() string {
	n := int(p.mem.Get(p.addr(offCmdTail)))
	if n > TailSize {
		n = TailSize
	}
	return string(p.mem.GetRange(p.addr(offCmdTail+1), n))
}

// FCB1 returns the address of the first default FCB.
func (p *PSP) FCB1() uint32 {
	return p.addr(offFCB1)
}

// FCB2 returns the address of the second default FCB.
func (p *PSP) FCB2() uint32 {
	return p.addr(offFCB2)
}

// DTA returns the default DTA of the process, which overlaps the
// command-tail.
func (p *PSP) DTA() memory.RealPt {
	return memory.RealMake(p.seg, offCmdTail)
}
