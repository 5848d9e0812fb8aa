// Package fcb contains helpers for reading, writing, and working with the
// DOS file control block (FCB) structure.
//
// FCBs predate handles, and were inherited by DOS from CP/M.  A program
// fills in the drive, name, and extension of the structure, and then
// passes its address to the kernel, which uses the rest of the fields to
// track the open file and the current record.
package fcb

import (
	"encoding/binary"

	"github.com/skx/dosfs/dosname"
	"github.com/skx/dosfs/memory"
)

const (
	// Size is the size of a normal FCB, in bytes.
	Size = 37

	// HeaderSize is the size of the header which precedes an
	// extended FCB.
	HeaderSize = 7

	// ExtendedFlag is the first byte of an extended FCB.
	ExtendedFlag = 0xFF

	// RecordSize is the default record size, set when a file is opened.
	RecordSize = 128

	// createSize is the number of bytes cleared when creating an FCB.
	createSize = 33
)

// FCB is the structure a program passes to the FCB functions.
type FCB struct {
	// Drive holds the drive number, 0 for default, 1 for A:, etc.
	Drive uint8

	// Name holds the name of the file, space-padded.
	Name [8]uint8

	// Ext holds the extension, space-padded.
	Ext [3]uint8

	// CurBlock is the current block, of 128 records.
	CurBlock uint16

	// RecSize is the logical record size.
	RecSize uint16

	// FileSize is the size of the file.
	FileSize uint32

	Date uint16
	Time uint16

	// These are used internally by DOS.
	SFTEntries uint8
	ShareAttr  uint8
	ExtraInfo  uint8

	// Handle is the handle the kernel opened the file with.
	Handle uint8

	Reserved [4]uint8

	// CurRec is the current record within the current block.
	CurRec uint8

	// Random is the record used by the random-access functions.
	Random uint32
}

// FromBytes returns an FCB entry from the given bytes.
func FromBytes(bytes []uint8) FCB {
	tmp := FCB{}

	tmp.Drive = bytes[0]
	copy(tmp.Name[:], bytes[1:9])
	copy(tmp.Ext[:], bytes[9:12])
	tmp.CurBlock = binary.LittleEndian.Uint16(bytes[0x0C:])
	tmp.RecSize = binary.LittleEndian.Uint16(bytes[0x0E:])
	tmp.FileSize = binary.LittleEndian.Uint32(bytes[0x10:])
	tmp.Date = binary.LittleEndian.Uint16(bytes[0x14:])
	tmp.Time = binary.LittleEndian.Uint16(bytes[0x16:])
	tmp.SFTEntries = bytes[0x18]
	tmp.ShareAttr = bytes[0x19]
	tmp.ExtraInfo = bytes[0x1A]
	tmp.Handle = bytes[0x1B]
	copy(tmp.Reserved[:], bytes[0x1C:0x20])
	tmp.CurRec = bytes[0x20]
	tmp.Random = binary.LittleEndian.Uint32(bytes[0x21:])

	return tmp
}

// AsBytes returns the entry of the FCB in a format suitable
// for copying to RAM.
func (f *FCB) AsBytes() []uint8 {
	r := make([]uint8, Size)

	r[0] = f.Drive
	copy(r[1:], f.Name[:])
	copy(r[9:], f.Ext[:])
	binary.LittleEndian.PutUint16(r[0x0C:], f.CurBlock)
	binary.LittleEndian.PutUint16(r[0x0E:], f.RecSize)
	binary.LittleEndian.PutUint32(r[0x10:], f.FileSize)
	binary.LittleEndian.PutUint16(r[0x14:], f.Date)
	binary.LittleEndian.PutUint16(r[0x16:], f.Time)
	r[0x18] = f.SFTEntries
	r[0x19] = f.ShareAttr
	r[0x1A] = f.ExtraInfo
	r[0x1B] = f.Handle
	copy(r[0x1C:], f.Reserved[:])
	r[0x20] = f.CurRec
	binary.LittleEndian.PutUint32(r[0x21:], f.Random)

	return r
}

// GetName returns the name component of an FCB entry.
func (f *FCB) GetName() string {
	return dosname.Join83(f.Name[:], nil)
}

// GetType returns the type/extension component of an FCB entry.
func (f *FCB) GetType() string {
	return dosname.Join83(f.Ext[:], nil)
}

// GetDrive returns the drive index the FCB refers to, resolving the
// default drive if necessary.
func (f *FCB) GetDrive(def uint8) uint8 {
	if f.Drive == 0 {
		return def
	}
	return f.Drive - 1
}

// Filename returns the name in the padded "D:NAME    .EXT" form, which is
// suitable for passing to the handle-based functions.
func (f *FCB) Filename(def uint8) string {
	b := make([]byte, 0, 14)
	b = append(b, 'A'+f.GetDrive(def), ':')
	b = append(b, f.Name[:]...)
	b = append(b, '.')
	b = append(b, f.Ext[:]...)
	return string(b)
}

// SetName updates the drive, name, and extension.
func (f *FCB) SetName(drive uint8, name [8]uint8, ext [3]uint8) {
	f.Drive = drive
	f.Name = name
	f.Ext = ext
}

// SetSizeDateTime updates the file-details.
func (f *FCB) SetSizeDateTime(size uint32, date, tm uint16) {
	f.FileSize = size
	f.Date = date
	f.Time = tm
}

// FileOpen records that the given handle was opened for this FCB.
func (f *FCB) FileOpen(handle uint8, def uint8, size uint32, date, tm uint16) {
	f.Drive = f.GetDrive(def) + 1
	f.Handle = handle
	f.CurBlock = 0
	f.RecSize = RecordSize
	f.SetSizeDateTime(size, date, tm)
}

// FileClose marks the FCB as closed, returning the handle it used.
func (f *FCB) FileClose() uint8 {
	h := f.Handle
	f.Handle = 0xFF
	return h
}

// Valid performs a simple sanity-check of the FCB.
func (f *FCB) Valid() bool {
	return !(f.Name[0] == 0 && f.Handle == 0)
}

// Offset returns the file position of the current record.
func (f *FCB) Offset() uint32 {
	return (uint32(f.CurBlock)*128 + uint32(f.CurRec)) * uint32(f.RecSize)
}

// NextRecord advances the current record, moving to the next block
// as necessary.
func (f *FCB) NextRecord() {
	f.CurRec++
	if f.CurRec > 127 {
		f.CurRec = 0
		f.CurBlock++
	}
}

// SeekRandom sets the current record from the random record.
func (f *FCB) SeekRandom() {
	f.CurBlock = uint16(f.Random / 128)
	f.CurRec = uint8(f.Random & 127)
}

// UpdateRandom sets the random record from the current record.
func (f *FCB) UpdateRandom() {
	f.Random = uint32(f.CurBlock)*128 + uint32(f.CurRec)
}

// Block is an FCB which has been loaded from memory, and which records
// where it came from.
type Block struct {
	FCB

	// Addr is the address the program gave us.
	Addr uint32

	// Extended is true if the FCB has the extended header.
	Extended bool

	// Attr holds the attribute from the extended header.
	Attr uint8
}

// Load reads the FCB at the given address.
//
// If allowExtended is true an extended FCB is recognized by its leading
// 0xFF byte, and the header skipped.
func Load(mem *memory.Memory, addr uint32, allowExtended bool) *Block {
	b := &Block{Addr: addr}

	pt := addr
	if allowExtended && mem.Get(addr) == ExtendedFlag {
		b.Extended = true
		b.Attr = mem.Get(addr + HeaderSize - 1)
		pt += HeaderSize
	}
	b.FCB = FromBytes(mem.GetRange(pt, Size))
	return b
}

// Create clears the FCB at the given address, optionally writing the
// extended header, and returns it.
func Create(mem *memory.Memory, addr uint32, extended bool) *Block {
	n := createSize
	if extended {
		n += HeaderSize
	}
	mem.FillRange(addr, n, 0x00)
	if extended {
		mem.Set(addr, ExtendedFlag)
	}
	return Load(mem, addr, true)
}

// body returns the address of the normal part of the FCB.
func (b *Block) body() uint32 {
	if b.Extended {
		return b.Addr + HeaderSize
	}
	return b.Addr
}

// Store writes the FCB back to the memory it was loaded from.
func (b *Block) Store(mem *memory.Memory) {
	if b.Extended {
		mem.Set(b.Addr+HeaderSize-1, b.Attr)
	}
	mem.SetRange(b.body(), b.AsBytes()...)
}

// SetAttr sets the attribute, for extended FCBs only.
func (b *Block) SetAttr(attr uint8) {
	if b.Extended {
		b.Attr = attr
	}
}

// SetResult writes the details of a file found by a search, in the
// layout of a directory entry rather than that of an open FCB.  The
// FCB should be stored before this is called.
func (b *Block) SetResult(mem *memory.Memory, size uint32, date, tm uint16, attr uint8) {
	pt := b.body()
	mem.SetU32(pt+0x1D, size)
	mem.SetU16(pt+0x19, date)
	mem.SetU16(pt+0x17, tm)
	mem.Set(pt+0x0C, attr)
}
