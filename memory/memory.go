// Package memory provides the 1MB of real-mode RAM within which the
// DOS structures we emulate live.
//
// Addresses are physical, and wrap at the 1MB boundary in the same way
// that a real 8086 would wrap (we don't emulate the A20 line).  Helpers
// are provided to convert between segment:offset pairs, the packed
// "real pointer" format DOS stores in its tables, and physical addresses.
package memory

import "strings"

// Size is the number of bytes of RAM we provide.
const Size = 0x100000

// mask is used to wrap addresses at the 1MB boundary.
const mask = Size - 1

// RealPt is a far pointer, stored as segment<<16 | offset.
type RealPt uint32

// RealMake returns the far pointer for the given segment and offset.
func RealMake(seg, off uint16) RealPt {
	return RealPt(uint32(seg)<<16 | uint32(off))
}

// RealSeg returns the segment half of a far pointer.
func RealSeg(rp RealPt) uint16 {
	return uint16(rp >> 16)
}

// RealOff returns the offset half of a far pointer.
func RealOff(rp RealPt) uint16 {
	return uint16(rp & 0xFFFF)
}

// PhysMake converts a segment and offset to a physical address.
func PhysMake(seg, off uint16) uint32 {
	return (uint32(seg)<<4 + uint32(off)) & mask
}

// Real2Phys converts a far pointer to a physical address.
func Real2Phys(rp RealPt) uint32 {
	return PhysMake(RealSeg(rp), RealOff(rp))
}

// Memory provides 1MB of byte-addressable memory.
type Memory struct {
	buf [Size]uint8
}

// New returns a new, zeroed, block of memory.
func New() *Memory {
	return new(Memory)
}

// Set sets a byte at addr of memory.
func (m *Memory) Set(addr uint32, value uint8) {
	m.buf[addr&mask] = value
}

// Get returns a byte at addr of memory.
func (m *Memory) Get(addr uint32) uint8 {
	return m.buf[addr&mask]
}

// GetU16 returns a little-endian word from the given address of memory.
func (m *Memory) GetU16(addr uint32) uint16 {
	l := m.Get(addr)
	h := m.Get(addr + 1)
	return (uint16(h) << 8) | uint16(l)
}

// SetU16 stores a little-endian word at the given address.
func (m *Memory) SetU16(addr uint32, value uint16) {
	m.Set(addr, uint8(value&0xFF))
	m.Set(addr+1, uint8(value>>8))
}

// GetU32 returns a little-endian double-word from the given address.
func (m *Memory) GetU32(addr uint32) uint32 {
	return uint32(m.GetU16(addr)) | uint32(m.GetU16(addr+2))<<16
}

// SetU32 stores a little-endian double-word at the given address.
func (m *Memory) SetU32(addr uint32, value uint32) {
	m.SetU16(addr, uint16(value&0xFFFF))
	m.SetU16(addr+2, uint16(value>>16))
}

// SetRange copies bytes from the given data to the specified
// starting address in RAM.
func (m *Memory) SetRange(addr uint32, data ...uint8) {
	for i, b := range data {
		m.Set(addr+uint32(i), b)
	}
}

// FillRange fills an area of memory with the given byte.
func (m *Memory) FillRange(addr uint32, size int, char uint8) {
	for size > 0 {
		m.Set(addr, char)
		addr++
		size--
	}
}

// GetRange returns a copy of the contents of a given range.
func (m *Memory) GetRange(addr uint32, size int) []uint8 {
	ret := make([]uint8, size)
	for i := range ret {
		ret[i] = m.Get(addr + uint32(i))
	}
	return ret
}

// CopyRange copies size bytes from src to dst, which may overlap.
func (m *Memory) CopyRange(dst, src uint32, size int) {
	m.SetRange(dst, m.GetRange(src, size)...)
}

// GetString returns the NUL-terminated string at the given address,
// reading no more than max bytes.
func (m *Memory) GetString(addr uint32, max int) string {
	var sb strings.Builder
	for i := 0; i < max; i++ {
		c := m.Get(addr + uint32(i))
		if c == 0x00 {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// SetString stores the given string, followed by a NUL byte.
func (m *Memory) SetString(addr uint32, str string) {
	m.SetRange(addr, []byte(str)...)
	m.Set(addr+uint32(len(str)), 0x00)
}
