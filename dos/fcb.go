package dos

import (
	"log/slog"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/dosname"
	"github.com/skx/dosfs/drive"
	"github.com/skx/dosfs/dta"
	"github.com/skx/dosfs/fcb"
	"github.com/skx/dosfs/memory"
)

// The results of the FCB record functions.
const (
	FCBSuccess     = 0x00
	FCBReadNoData  = 0x01
	FCBReadPartial = 0x03
	FCBErrWrite    = 0x01
)

// loadFCB reads the FCB a program passed us.
func (k *Kernel) loadFCB(seg, off uint16) *fcb.Block {
	return fcb.Load(k.Memory, memory.PhysMake(seg, off), true)
}

// recordSize returns the record size of the FCB, which is the default
// if the program cleared it.
func recordSize(b *fcb.Block) uint16 {
	if b.RecSize == 0 {
		return fcb.RecordSize
	}
	return b.RecSize
}

// fcbOpened records the handle in the FCB, along with the details of
// the file it refers to.
func (k *Kernel) fcbOpened(b *fcb.Block, handle uint16) {
	var size uint32
	var date, tm uint16

	if of, ok := k.lookup(handle); ok {
		size, _ = of.file.Seek(0, drive.SeekEnd)
		of.file.Seek(0, drive.SeekSet)
		date, tm = of.file.Date(), of.file.Time()
	}
	b.FileOpen(uint8(handle), k.currentDrive, size, date, tm)
	b.Store(k.Memory)
}

// FCBParseName parses a filename into the FCB, returning the number of
// bytes consumed and the ParseName result.
func (k *Kernel) FCBParseName(seg, off uint16, flags uint8, input []byte) (int, uint8) {
	return k.parseFCB(memory.PhysMake(seg, off), flags, input)
}

// parseFCB parses a filename into the FCB at the given address.
func (k *Kernel) parseFCB(addr uint32, flags uint8, input []byte) (int, uint8) {
	b := fcb.Load(k.Memory, addr, flags&fcb.ParseDefaultDrive != 0)
	exists := func(idx uint8) bool { return k.Drive(idx) != nil }

	n, ret := fcb.ParseName(&b.FCB, flags, input, k.currentDrive, exists)
	b.Store(k.Memory)
	return n, ret
}

// FCBCreate creates the file the FCB names, and opens it.
func (k *Kernel) FCBCreate(seg, off uint16) error {
	b := k.loadFCB(seg, off)

	k.Logger.Debug("FCBCreate", slog.String("name", b.Filename(k.currentDrive)))

	handle, err := k.CreateFile(b.Filename(k.currentDrive), drive.AttrArchive)
	if err != nil {
		return err
	}
	k.fcbOpened(b, handle)
	return nil
}

// FCBOpen opens the file the FCB names.  A file which is already open
// is shared with the handle that opened it.
func (k *Kernel) FCBOpen(seg, off uint16) error {
	b := k.loadFCB(seg, off)
	name := b.Filename(k.currentDrive)

	k.Logger.Debug("FCBOpen", slog.String("name", name))

	full, idx, err := k.MakeName(name)
	if err != nil {
		return err
	}

	for i, of := range k.files {
		if of == nil || !of.file.IsOpen() || !of.file.IsName(full) || of.file.Drive() != idx {
			continue
		}
		handle := k.currentPSP().FindEntryByHandle(uint8(i))
		if handle == 0xFF {
			k.Logger.Error("file is open but has no handle",
				slog.String("name", name))
			return k.fail(doserr.InvalidHandle)
		}
		k.fcbOpened(b, handle)
		return nil
	}

	handle, err := k.OpenFile(name, drive.OpenReadWrite)
	if err != nil && k.lastError == doserr.AccessDenied {
		// Read-only files are opened for reading.
		handle, err = k.OpenFile(name, drive.OpenRead)
	}
	if err != nil {
		return err
	}
	k.fcbOpened(b, handle)
	return nil
}

// FCBClose closes the file the FCB refers to.
func (k *Kernel) FCBClose(seg, off uint16) error {
	b := k.loadFCB(seg, off)
	if !b.Valid() {
		return k.fail(doserr.InvalidHandle)
	}
	handle := b.FileClose()
	b.Store(k.Memory)
	return k.CloseFile(uint16(handle))
}

// FCBFindFirst searches for the files the FCB names.  The search itself
// uses a private DTA, and the FCB of the file found is written to the
// current one.
func (k *Kernel) FCBFindFirst(seg, off uint16) error {
	b := k.loadFCB(seg, off)

	attr := uint8(drive.AttrArchive)
	if b.Extended {
		attr = b.Attr
	}

	old := k.dta
	k.dta = k.tempDTA
	err := k.findFirst(b.Filename(k.currentDrive), attr, true)
	k.dta = old

	if err != nil {
		return err
	}
	k.saveFindResult(b)
	return nil
}

// FCBFindNext continues the search begun by FCBFindFirst.
func (k *Kernel) FCBFindNext(seg, off uint16) error {
	b := k.loadFCB(seg, off)

	old := k.dta
	k.dta = k.tempDTA
	err := k.FindNext()
	k.dta = old

	if err != nil {
		return err
	}
	k.saveFindResult(b)
	return nil
}

// saveFindResult writes the result of an FCB search to the current DTA,
// as an FCB of the same kind as the one searched with.
func (k *Kernel) saveFindResult(search *fcb.Block) {
	r := dta.New(k.Memory, k.tempDTA).Result()

	base, ext := dosname.Split83(r.Name)
	if r.Name == "." || r.Name == ".." {
		base, _ = dosname.Split83("")
		copy(base[:], r.Name)
	}

	out := fcb.Create(k.Memory, memory.Real2Phys(k.dta), search.Extended)
	out.SetName(search.GetDrive(k.currentDrive)+1, base, ext)
	out.SetAttr(r.Attr)
	out.Store(k.Memory)
	out.SetResult(k.Memory, r.Size, r.Date, r.Time, r.Attr)
}

// FCBRead reads the current record into the DTA, at the given record
// offset, and advances to the next record.
func (k *Kernel) FCBRead(seg, off uint16, recno uint16) uint8 {
	b := k.loadFCB(seg, off)
	handle := uint16(b.Handle)
	size := recordSize(b)
	b.RecSize = size

	if _, err := k.SeekFile(handle, int32(b.Offset()), drive.SeekSet); err != nil {
		return FCBReadNoData
	}
	buf := make([]byte, size)
	n, err := k.ReadFile(handle, buf)
	if err != nil || n == 0 {
		return FCBReadNoData
	}

	// Partial records are padded with zeros.
	k.Memory.SetRange(memory.Real2Phys(k.dta)+uint32(recno)*uint32(size), buf...)

	b.NextRecord()
	b.Store(k.Memory)

	if n == int(size) {
		return FCBSuccess
	}
	return FCBReadPartial
}

// fcbStamp updates the size of the file the FCB records, and sets the
// date and time of both to now.
func (k *Kernel) fcbStamp(b *fcb.Block, end uint32) {
	size := b.FileSize
	if end > size {
		size = end
	}
	date, tm := k.now()
	if of, ok := k.lookup(uint16(b.Handle)); ok {
		of.file.SetDateTime(date, tm)
	}
	b.SetSizeDateTime(size, date, tm)
}

// FCBWrite writes the record from the DTA, at the given record offset,
// to the current record and advances to the next.
func (k *Kernel) FCBWrite(seg, off uint16, recno uint16) uint8 {
	b := k.loadFCB(seg, off)
	handle := uint16(b.Handle)
	size := recordSize(b)
	b.RecSize = size

	pos := b.Offset()
	if _, err := k.SeekFile(handle, int32(pos), drive.SeekSet); err != nil {
		return FCBErrWrite
	}
	buf := k.Memory.GetRange(memory.Real2Phys(k.dta)+uint32(recno)*uint32(size), int(size))
	n, err := k.WriteFile(handle, buf)
	if err != nil {
		return FCBErrWrite
	}

	k.fcbStamp(b, pos+uint32(n))
	b.NextRecord()
	b.Store(k.Memory)
	return FCBSuccess
}

// FCBIncreaseSize sets the size of the file to the current record,
// which truncates or extends it.
func (k *Kernel) FCBIncreaseSize(seg, off uint16) uint8 {
	b := k.loadFCB(seg, off)
	handle := uint16(b.Handle)
	b.RecSize = recordSize(b)

	pos := b.Offset()
	if _, err := k.SeekFile(handle, int32(pos), drive.SeekSet); err != nil {
		return FCBErrWrite
	}
	if _, err := k.WriteFile(handle, nil); err != nil {
		return FCBErrWrite
	}

	k.fcbStamp(b, pos)
	b.Store(k.Memory)
	return FCBSuccess
}

// FCBRandomRead reads records starting at the random record.
//
// When restore is true, as for a single random read, the current record
// is left at the random record.  Otherwise, as for a block read, the
// random record is advanced past the records read.
func (k *Kernel) FCBRandomRead(seg, off uint16, numRec uint16, restore bool) uint8 {
	return k.fcbRandom(seg, off, numRec, restore, k.FCBRead, nil)
}

// FCBRandomWrite writes records starting at the random record, in the
// same way as FCBRandomRead.  Writing zero records sets the size of
// the file instead.
func (k *Kernel) FCBRandomWrite(seg, off uint16, numRec uint16, restore bool) uint8 {
	return k.fcbRandom(seg, off, numRec, restore, k.FCBWrite, k.FCBIncreaseSize)
}

// fcbRandom implements the random record functions, calling op for
// each record, or none if there are no records.
func (k *Kernel) fcbRandom(seg, off uint16, numRec uint16, restore bool, op func(seg, off, recno uint16) uint8, none func(seg, off uint16) uint8) uint8 {
	b := k.loadFCB(seg, off)
	b.SeekRandom()
	oldBlock, oldRec := b.CurBlock, b.CurRec
	b.Store(k.Memory)

	result := uint8(FCBSuccess)
	if numRec == 0 && none != nil {
		none(seg, off)
	}
	for i := uint16(0); i < numRec; i++ {
		if result = op(seg, off, i); result != FCBSuccess {
			break
		}
	}

	b = k.loadFCB(seg, off)
	if restore {
		b.CurBlock, b.CurRec = oldBlock, oldRec
	} else {
		b.UpdateRandom()
	}
	b.Store(k.Memory)
	return result
}

// FCBGetFileSize sets the random record to the size of the named file,
// in records.
func (k *Kernel) FCBGetFileSize(seg, off uint16) error {
	b := k.loadFCB(seg, off)

	handle, err := k.OpenFile(b.Filename(k.currentDrive), drive.OpenRead)
	if err != nil {
		return err
	}
	size, _ := k.SeekFile(handle, 0, drive.SeekEnd)
	k.CloseFile(handle)

	rec := uint32(recordSize(b))
	b.Random = size / rec
	if size%rec != 0 {
		b.Random++
	}
	b.Store(k.Memory)
	return nil
}

// FCBDeleteFile removes every file matching the name in the FCB, and
// fails only if nothing was removed.
func (k *Kernel) FCBDeleteFile(seg, off uint16) error {

	old := k.dta
	k.dta = k.tempDTADelete
	defer func() { k.dta = old }()

	found := memory.Real2Phys(k.tempDTADelete)
	deleted := false

	err := k.FCBFindFirst(seg, off)
	for err == nil {
		f := fcb.Load(k.Memory, found, true)
		if k.UnlinkFile(f.Filename(k.currentDrive)) == nil {
			deleted = true
		}
		err = k.FCBFindNext(seg, off)
	}

	if !deleted {
		return k.fail(doserr.FileNotFound)
	}
	return nil
}

// FCBRenameFile renames the file the FCB names to the name held in the
// second FCB, which begins sixteen bytes later.
func (k *Kernel) FCBRenameFile(seg, off uint16) error {
	old := k.loadFCB(seg, off)

	addr := old.Addr
	if old.Extended {
		addr += fcb.HeaderSize
	}
	renamed := fcb.Load(k.Memory, addr+16, false)

	return k.Rename(old.Filename(k.currentDrive), renamed.Filename(k.currentDrive))
}

// FCBSetRandomRecord sets the random record from the current record.
func (k *Kernel) FCBSetRandomRecord(seg, off uint16) {
	b := k.loadFCB(seg, off)
	b.UpdateRandom()
	b.Store(k.Memory)
}
