// Package mcb implements the DOS memory control block chain.
//
// Conventional memory is divided into a linked list of blocks, each
// preceded by a one-paragraph header that records the owner of the block
// and its size.  The final block in the chain is marked with a 'Z', all
// earlier ones with an 'M'.
package mcb

import (
	"github.com/skx/dosfs/memory"
)

const (
	// TypeMiddle marks a block which is followed by more.
	TypeMiddle = 0x4D

	// TypeLast marks the final block of a chain.
	TypeLast = 0x5A

	// Free is the owner of unallocated blocks.
	Free = 0x0000

	// DOS is the owner of blocks used by the system.
	DOS = 0x0008
)

// Offsets of the fields within the header.
const (
	offType = 0x00
	offPSP  = 0x01
	offSize = 0x03
	offName = 0x08
)

// MCB is a view of a memory control block header.
type MCB struct {
	mem *memory.Memory
	seg uint16
}

// New returns the MCB at the given segment.
func New(mem *memory.Memory, seg uint16) *MCB {
	return &MCB{mem: mem, seg: seg}
}

// Segment returns the segment of the header.
func (m *MCB) Segment() uint16 {
	return m.seg
}

// At moves the view to another segment.
func (m *MCB) At(seg uint16) {
	m.seg = seg
}

// Next returns the segment of the header which follows this block.
func (m *MCB) Next() uint16 {
	return m.seg + m.Size() + 1
}

func (m *MCB) addr(off uint16) uint32 {
	return memory.PhysMake(m.seg, off)
}

// Type returns the type of the block.
func (m *MCB) Type() uint8 {
	return m.mem.Get(m.addr(offType))
}

// SetType sets the type of the block.
func (m *MCB) SetType(t uint8) {
	m.mem.Set(m.addr(offType), t)
}

// Valid returns true if the type is one we expect.
func (m *MCB) Valid() bool {
	t := m.Type()
	return t == TypeMiddle || t == TypeLast
}

// PSP returns the owner of the block.
func (m *MCB) PSP() uint16 {
	return m.mem.GetU16(m.addr(offPSP))
}

// SetPSP sets the owner of the block.
func (m *MCB) SetPSP(seg uint16) {
	m.mem.SetU16(m.addr(offPSP), seg)
}

// Size returns the size of the block, in paragraphs, excluding the header.
func (m *MCB) Size() uint16 {
	return m.mem.GetU16(m.addr(offSize))
}

// SetSize sets the size of the block.
func (m *MCB) SetSize(size uint16) {
	m.mem.SetU16(m.addr(offSize), size)
}

// FileName returns the name of the program owning the block.
func (m *MCB) FileName() string {
	return m.mem.GetString(m.addr(offName), 8)
}

// SetFileName sets the name of the program owning the block, which is
// padded with NUL bytes, or truncated, to eight characters.
func (m *MCB) SetFileName(name string) {
	b := make([]byte, 8)
	copy(b, name)
	m.mem.SetRange(m.addr(offName), b...)
}

// Long2Para converts a size in bytes to the number of paragraphs needed
// to hold it, which is limited to what a header can record.
func Long2Para(size uint32) uint16 {
	if size > 0xFFFF0 {
		return 0xFFFF
	}
	if size&0xF != 0 {
		return uint16(size>>4) + 1
	}
	return uint16(size >> 4)
}
