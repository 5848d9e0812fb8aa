package dos

import (
	"bytes"
	"testing"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/dosname"
	"github.com/skx/dosfs/fcb"
	"github.com/skx/dosfs/memory"
	"github.com/spf13/afero"
)

// The segments our FCBs and DTA live in.
const (
	fcbSeg = 0x2000
	dtaSeg = 0x3000
)

// putFCB writes a normal FCB, naming the given file on the default
// drive, to the given address.
func putFCB(k *Kernel, seg, off uint16, name string) {
	f := fcb.FCB{}
	f.Name, f.Ext = dosname.Split83(name)
	k.Memory.SetRange(memory.PhysMake(seg, off), f.AsBytes()...)
}

// getFCB returns the FCB at the given address.
func getFCB(k *Kernel, seg, off uint16) *fcb.Block {
	return fcb.Load(k.Memory, memory.PhysMake(seg, off), true)
}

// fcbKernel returns a kernel with the DTA set to a known location.
func fcbKernel(t *testing.T, files map[string]string) (*Kernel, afero.Fs) {
	t.Helper()
	k, c := newKernel(t, files)
	k.SetDTA(memory.RealMake(dtaSeg, 0))
	return k, c.Fs()
}

// dtaBytes returns the content of the DTA.
func dtaBytes(k *Kernel, n int) []byte {
	return k.Memory.GetRange(memory.PhysMake(dtaSeg, 0), n)
}

// TestFCBCreateWriteRead tests writing and reading records.
func TestFCBCreateWriteRead(t *testing.T) {
	k, fs := fcbKernel(t, nil)
	putFCB(k, fcbSeg, 0, "TEST.DAT")

	if err := k.FCBCreate(fcbSeg, 0); err != nil {
		t.Fatalf("failed to create %s", err)
	}
	b := getFCB(k, fcbSeg, 0)
	if b.Drive != 3 || b.RecSize != fcb.RecordSize || b.FileSize != 0 {
		t.Fatalf("unexpected FCB %v", b.FCB)
	}

	for _, c := range []byte{'A', 'B'} {
		k.Memory.FillRange(memory.PhysMake(dtaSeg, 0), fcb.RecordSize, c)
		if ret := k.FCBWrite(fcbSeg, 0, 0); ret != FCBSuccess {
			t.Fatalf("failed to write record %c: %d", c, ret)
		}
	}

	b = getFCB(k, fcbSeg, 0)
	if b.CurRec != 2 || b.FileSize != 256 {
		t.Fatalf("unexpected FCB %v", b.FCB)
	}
	date, tm := dosname.PackDate(2024, 3, 15), dosname.PackTime(12, 30, 0)
	if b.Date != date || b.Time != tm {
		t.Fatalf("unexpected timestamp %04X %04X", b.Date, b.Time)
	}

	if err := k.FCBClose(fcbSeg, 0); err != nil {
		t.Fatalf("failed to close %s", err)
	}
	if getFCB(k, fcbSeg, 0).Handle != 0xFF {
		t.Fatalf("FCB was not closed")
	}

	data, _ := afero.ReadFile(fs, "/TEST.DAT")
	if len(data) != 256 || data[0] != 'A' || data[255] != 'B' {
		t.Fatalf("unexpected content %q", data)
	}

	putFCB(k, fcbSeg, 0, "TEST.DAT")
	if err := k.FCBOpen(fcbSeg, 0); err != nil {
		t.Fatalf("failed to open %s", err)
	}
	if b = getFCB(k, fcbSeg, 0); b.FileSize != 256 {
		t.Fatalf("unexpected size %d", b.FileSize)
	}

	for _, c := range []byte{'A', 'B'} {
		if ret := k.FCBRead(fcbSeg, 0, 0); ret != FCBSuccess {
			t.Fatalf("failed to read record %c: %d", c, ret)
		}
		if !bytes.Equal(dtaBytes(k, fcb.RecordSize), bytes.Repeat([]byte{c}, fcb.RecordSize)) {
			t.Fatalf("unexpected record %q", dtaBytes(k, fcb.RecordSize))
		}
	}
	if ret := k.FCBRead(fcbSeg, 0, 0); ret != FCBReadNoData {
		t.Fatalf("unexpected result at EOF %d", ret)
	}
}

// TestFCBPartial tests the last record of a file is padded.
func TestFCBPartial(t *testing.T) {
	k, _ := fcbKernel(t, map[string]string{"SHORT.TXT": string(bytes.Repeat([]byte{'x'}, 200))})
	putFCB(k, fcbSeg, 0, "SHORT.TXT")

	if err := k.FCBOpen(fcbSeg, 0); err != nil {
		t.Fatalf("failed to open %s", err)
	}
	if ret := k.FCBRead(fcbSeg, 0, 0); ret != FCBSuccess {
		t.Fatalf("unexpected result %d", ret)
	}

	k.Memory.FillRange(memory.PhysMake(dtaSeg, 0), fcb.RecordSize, 0xAA)
	if ret := k.FCBRead(fcbSeg, 0, 0); ret != FCBReadPartial {
		t.Fatalf("unexpected result %d", ret)
	}
	rec := dtaBytes(k, fcb.RecordSize)
	if rec[71] != 'x' || rec[72] != 0x00 || rec[127] != 0x00 {
		t.Fatalf("record was not padded %v", rec)
	}
}

// TestFCBShared tests opening a file twice shares the handle.
func TestFCBShared(t *testing.T) {
	k, _ := fcbKernel(t, map[string]string{"SHARE.TXT": "shared"})
	putFCB(k, fcbSeg, 0, "SHARE.TXT")
	putFCB(k, fcbSeg, 0x100, "SHARE.TXT")

	if err := k.FCBOpen(fcbSeg, 0); err != nil {
		t.Fatalf("failed to open %s", err)
	}
	open := k.OpenFiles()
	if err := k.FCBOpen(fcbSeg, 0x100); err != nil {
		t.Fatalf("failed to open %s", err)
	}
	if k.OpenFiles() != open {
		t.Fatalf("file was opened twice")
	}
	if getFCB(k, fcbSeg, 0).Handle != getFCB(k, fcbSeg, 0x100).Handle {
		t.Fatalf("handles differ")
	}

	putFCB(k, fcbSeg, 0x200, "MISSING.TXT")
	if err := k.FCBOpen(fcbSeg, 0x200); doserr.As(err) != doserr.FileNotFound {
		t.Fatalf("unexpected error %v", err)
	}

	// A cleared FCB was never opened
	k.Memory.FillRange(memory.PhysMake(fcbSeg, 0x300), fcb.Size, 0x00)
	if err := k.FCBClose(fcbSeg, 0x300); doserr.As(err) != doserr.InvalidHandle {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestFCBRandom tests the random record functions.
func TestFCBRandom(t *testing.T) {
	content := append(bytes.Repeat([]byte{'0'}, 128), bytes.Repeat([]byte{'1'}, 72)...)
	k, fs := fcbKernel(t, map[string]string{"RANDOM.DAT": string(content)})
	putFCB(k, fcbSeg, 0, "RANDOM.DAT")

	if err := k.FCBOpen(fcbSeg, 0); err != nil {
		t.Fatalf("failed to open %s", err)
	}

	setRandom := func(n uint32) {
		b := getFCB(k, fcbSeg, 0)
		b.Random = n
		b.Store(k.Memory)
	}

	// A single read leaves the current record upon the random one
	setRandom(1)
	if ret := k.FCBRandomRead(fcbSeg, 0, 1, true); ret != FCBReadPartial {
		t.Fatalf("unexpected result %d", ret)
	}
	if dtaBytes(k, 1)[0] != '1' {
		t.Fatalf("wrong record was read")
	}
	b := getFCB(k, fcbSeg, 0)
	if b.CurRec != 1 || b.Random != 1 {
		t.Fatalf("unexpected position %d %d", b.CurRec, b.Random)
	}

	// A block read advances the random record
	setRandom(0)
	if ret := k.FCBRandomRead(fcbSeg, 0, 2, false); ret != FCBReadPartial {
		t.Fatalf("unexpected result %d", ret)
	}
	got := dtaBytes(k, 129)
	if got[0] != '0' || got[128] != '1' {
		t.Fatalf("unexpected records")
	}
	if b = getFCB(k, fcbSeg, 0); b.Random != 2 {
		t.Fatalf("unexpected random record %d", b.Random)
	}

	// A random write of a record
	k.Memory.FillRange(memory.PhysMake(dtaSeg, 0), fcb.RecordSize, 'W')
	setRandom(2)
	if ret := k.FCBRandomWrite(fcbSeg, 0, 1, true); ret != FCBSuccess {
		t.Fatalf("unexpected result %d", ret)
	}
	if b = getFCB(k, fcbSeg, 0); b.FileSize != 384 {
		t.Fatalf("unexpected size %d", b.FileSize)
	}

	// Writing zero records sets the size
	setRandom(1)
	if ret := k.FCBRandomWrite(fcbSeg, 0, 0, false); ret != FCBSuccess {
		t.Fatalf("unexpected result %d", ret)
	}
	fi, err := fs.Stat("/RANDOM.DAT")
	if err != nil || fi.Size() != 128 {
		t.Fatalf("file was not truncated %v", err)
	}
	if b = getFCB(k, fcbSeg, 0); b.Random != 1 {
		t.Fatalf("unexpected random record %d", b.Random)
	}

	// Set the random record from the current one
	b.CurBlock, b.CurRec = 1, 5
	b.Store(k.Memory)
	k.FCBSetRandomRecord(fcbSeg, 0)
	if b = getFCB(k, fcbSeg, 0); b.Random != 133 {
		t.Fatalf("unexpected random record %d", b.Random)
	}
}

// TestFCBFileSize tests the size of a file is given in records.
func TestFCBFileSize(t *testing.T) {
	k, _ := fcbKernel(t, map[string]string{"SIZE.DAT": string(make([]byte, 200))})

	putFCB(k, fcbSeg, 0, "SIZE.DAT")
	if err := k.FCBGetFileSize(fcbSeg, 0); err != nil {
		t.Fatalf("failed to get size %s", err)
	}
	if b := getFCB(k, fcbSeg, 0); b.Random != 2 {
		t.Fatalf("unexpected size %d", b.Random)
	}

	putFCB(k, fcbSeg, 0, "MISSING.DAT")
	if err := k.FCBGetFileSize(fcbSeg, 0); err == nil {
		t.Fatalf("expected error")
	}
}

// TestFCBFind tests searching with FCBs.
func TestFCBFind(t *testing.T) {
	k, _ := fcbKernel(t, map[string]string{"ONE.DAT": "1", "TWO.DAT": "22", "OTHER.TXT": "x"})
	putFCB(k, fcbSeg, 0, "????????.DAT")

	sizes := map[string]uint32{"ONE.DAT": 1, "TWO.DAT": 2}

	var names []string
	err := k.FCBFindFirst(fcbSeg, 0)
	for err == nil {
		found := getFCB(k, dtaSeg, 0)
		if found.Drive != 3 {
			t.Fatalf("unexpected drive %d", found.Drive)
		}
		names = append(names, dosname.Join83(found.Name[:], found.Ext[:]))

		size := k.Memory.GetU32(memory.PhysMake(dtaSeg, 0x1D))
		if size != sizes[names[len(names)-1]] {
			t.Fatalf("unexpected size %d", size)
		}
		err = k.FCBFindNext(fcbSeg, 0)
	}
	if doserr.As(err) != doserr.NoMoreFiles {
		t.Fatalf("unexpected error %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("unexpected results %v", names)
	}

	// The DTA was not changed by the search
	if k.GetDTA() != memory.RealMake(dtaSeg, 0) {
		t.Fatalf("DTA was changed")
	}
}

// TestFCBFindExtended tests searching for directories, with an extended
// FCB.
func TestFCBFindExtended(t *testing.T) {
	k, _ := fcbKernel(t, map[string]string{"FILE.DAT": "1"})
	k.MakeDir("GAMES")

	k.Memory.FillRange(memory.PhysMake(fcbSeg, 0), fcb.HeaderSize, 0x00)
	k.Memory.Set(memory.PhysMake(fcbSeg, 0), fcb.ExtendedFlag)
	k.Memory.Set(memory.PhysMake(fcbSeg, fcb.HeaderSize-1), 0x10)
	putFCB(k, fcbSeg, fcb.HeaderSize, "GAMES")

	if err := k.FCBFindFirst(fcbSeg, 0); err != nil {
		t.Fatalf("failed to find %s", err)
	}
	found := getFCB(k, dtaSeg, 0)
	if !found.Extended || found.Attr != 0x10 || found.GetName() != "GAMES" {
		t.Fatalf("unexpected result %v %02X %s", found.Extended, found.Attr, found.GetName())
	}
}

// TestFCBDelete tests deleting files matching a wildcard.
func TestFCBDelete(t *testing.T) {
	k, fs := fcbKernel(t, map[string]string{"A.TMP": "a", "B.TMP": "b", "C.DAT": "c"})
	putFCB(k, fcbSeg, 0, "????????.TMP")

	if err := k.FCBDeleteFile(fcbSeg, 0); err != nil {
		t.Fatalf("failed to delete %s", err)
	}
	for name, exists := range map[string]bool{"/A.TMP": false, "/B.TMP": false, "/C.DAT": true} {
		if ok, _ := afero.Exists(fs, name); ok != exists {
			t.Fatalf("%s: unexpected state %v", name, ok)
		}
	}
	if k.GetDTA() != memory.RealMake(dtaSeg, 0) {
		t.Fatalf("DTA was not restored")
	}

	if err := k.FCBDeleteFile(fcbSeg, 0); doserr.As(err) != doserr.FileNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestFCBRename tests renaming via a pair of FCBs.
func TestFCBRename(t *testing.T) {
	k, fs := fcbKernel(t, map[string]string{"OLD.TXT": "old"})
	putFCB(k, fcbSeg, 0, "OLD.TXT")

	base, ext := dosname.Split83("NEW.TXT")
	k.Memory.Set(memory.PhysMake(fcbSeg, 16), 0)
	k.Memory.SetRange(memory.PhysMake(fcbSeg, 17), base[:]...)
	k.Memory.SetRange(memory.PhysMake(fcbSeg, 25), ext[:]...)

	if err := k.FCBRenameFile(fcbSeg, 0); err != nil {
		t.Fatalf("failed to rename %s", err)
	}
	if ok, _ := afero.Exists(fs, "/NEW.TXT"); !ok {
		t.Fatalf("file was not renamed")
	}
	// The target exists now
	if err := k.FCBRenameFile(fcbSeg, 0); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestFCBParseName tests parsing a name into an FCB.
func TestFCBParseName(t *testing.T) {
	k, _ := fcbKernel(t, nil)

	n, ret := k.FCBParseName(fcbSeg, 0, 0, []byte("c:hello.txt\x00"))
	if n != 11 || ret != fcb.ParseNoWild {
		t.Fatalf("unexpected result %d %d", n, ret)
	}
	b := getFCB(k, fcbSeg, 0)
	if b.Drive != 3 || b.GetName() != "HELLO" || b.GetType() != "TXT" {
		t.Fatalf("unexpected FCB %v", b.FCB)
	}

	if _, ret = k.FCBParseName(fcbSeg, 0, 0, []byte("*.txt\x00")); ret != fcb.ParseWild {
		t.Fatalf("unexpected result %d", ret)
	}
	if _, ret = k.FCBParseName(fcbSeg, 0, 0, []byte("q:foo\x00")); ret != fcb.ParseBadDrive {
		t.Fatalf("unexpected result %d", ret)
	}
}
