package drive

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/dosname"
	"github.com/skx/dosfs/dta"
	"github.com/skx/dosfs/memory"
	"github.com/spf13/afero"
)

// newDTA returns a DTA in a fresh block of memory.
func newDTA() *dta.DTA {
	return dta.New(memory.New(), memory.RealMake(0x1000, 0x80))
}

// find returns the names a search for the given pattern produces.
func find(t *testing.T, d Drive, dir, pattern string, attr uint8) []string {
	t.Helper()

	x := newDTA()
	x.SetupSearch(0, attr, pattern)

	var out []string
	err := d.FindFirst(dir, x, false)
	for err == nil {
		out = append(out, x.Result().Name)
		err = d.FindNext(x)
	}
	if doserr.As(err) != doserr.NoMoreFiles {
		t.Fatalf("unexpected error %v", err)
	}
	return out
}

// TestFiles tests creating, reading, and writing files.
func TestFiles(t *testing.T) {
	d := NewMemory()

	f, err := d.FileCreate("TEST.TXT", AttrArchive)
	if err != nil {
		t.Fatalf("failed to create file %s", err)
	}
	if f.Name() != "TEST.TXT" || !f.IsName("test.txt") || !f.IsOpen() {
		t.Fatalf("unexpected file state")
	}
	if f.Flags() != OpenReadWrite {
		t.Fatalf("unexpected flags %02X", f.Flags())
	}

	n, err := f.Write([]byte("Hello, World"))
	if err != nil || n != 12 {
		t.Fatalf("unexpected write %d %v", n, err)
	}

	pos, err := f.Seek(5, SeekSet)
	if err != nil || pos != 5 {
		t.Fatalf("unexpected seek %d %v", pos, err)
	}

	// Truncate
	if n, err = f.Write(nil); err != nil || n != 0 {
		t.Fatalf("unexpected truncate %d %v", n, err)
	}

	pos, _ = f.Seek(0, SeekEnd)
	if pos != 5 {
		t.Fatalf("file was not truncated %d", pos)
	}

	// Before the start moves to the end
	pos, _ = f.Seek(-100, SeekCur)
	if pos != 5 {
		t.Fatalf("unexpected position %d", pos)
	}

	if _, err = f.Seek(0, 7); doserr.As(err) != doserr.FunctionNumberInvalid {
		t.Fatalf("unexpected error %v", err)
	}

	_, _ = f.Seek(0, SeekSet)
	buf := make([]byte, 10)
	n, err = f.Read(buf)
	if err != nil || n != 5 || string(buf[:n]) != "Hello" {
		t.Fatalf("unexpected read %d %v %q", n, err, buf[:n])
	}

	// End of file is not an error
	n, err = f.Read(buf)
	if err != nil || n != 0 {
		t.Fatalf("unexpected read at EOF %d %v", n, err)
	}

	if err = f.Close(); err != nil {
		t.Fatalf("failed to close %s", err)
	}
	if f.IsOpen() {
		t.Fatalf("file is still open")
	}
	if f.UpdateDateTimeFromHost() {
		t.Fatalf("closed file can't be updated")
	}

	// Read only
	f, err = d.FileOpen("TEST.TXT", OpenRead)
	if err != nil {
		t.Fatalf("failed to open %s", err)
	}
	if _, err = f.Write([]byte("x")); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
	if !f.UpdateDateTimeFromHost() || f.Date() == 0 {
		t.Fatalf("failed to get date")
	}
	f.Close()

	// Write only
	f, err = d.FileOpen("TEST.TXT", OpenWrite)
	if err != nil {
		t.Fatalf("failed to open %s", err)
	}
	if _, err = f.Read(buf); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
	f.Close()

	// Bogus access code
	if _, err = d.FileOpen("TEST.TXT", 3); doserr.As(err) != doserr.AccessCodeInvalid {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err = d.FileOpen("MISSING.TXT", OpenRead); doserr.As(err) != doserr.FileNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err = d.FileCreate("NODIR\\TEST.TXT", 0); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}

	st, err := d.FileStat("TEST.TXT")
	if err != nil || st.Size != 5 || st.Attr != AttrArchive {
		t.Fatalf("unexpected stat %v %v", st, err)
	}
	if !d.FileExists("TEST.TXT") || d.FileExists("MISSING") {
		t.Fatalf("FileExists is broken")
	}
}

// TestDirectories tests the directory functions.
func TestDirectories(t *testing.T) {
	d := NewMemory()

	if err := d.MakeDir("GAMES"); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if err := d.MakeDir("GAMES"); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
	if err := d.MakeDir("A\\B"); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if !d.TestDir("GAMES") || !d.TestDir("") || d.TestDir("MISSING") {
		t.Fatalf("TestDir is broken")
	}

	f, err := d.FileCreate("GAMES\\DOOM.EXE", 0)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	f.Close()

	if d.TestDir("GAMES\\DOOM.EXE") {
		t.Fatalf("a file is not a directory")
	}
	if _, err = d.FileOpen("GAMES", OpenRead); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}

	attr, err := d.GetFileAttr("GAMES")
	if err != nil || attr != AttrArchive|AttrDirectory {
		t.Fatalf("unexpected attributes %02X %v", attr, err)
	}

	if err = d.RemoveDir("GAMES"); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
	if err = d.FileUnlink("GAMES"); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
	if err = d.FileUnlink("GAMES\\DOOM.EXE"); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if err = d.FileUnlink("GAMES\\DOOM.EXE"); doserr.As(err) != doserr.FileNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if err = d.RemoveDir("GAMES"); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if err = d.RemoveDir("GAMES"); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestRename tests renaming files.
func TestRename(t *testing.T) {
	d := NewMemory()

	for _, name := range []string{"ONE", "TWO"} {
		f, _ := d.FileCreate(name, 0)
		f.Close()
	}
	_ = d.MakeDir("DIR")

	if err := d.Rename("ONE", "TWO"); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
	if err := d.Rename("MISSING", "THREE"); doserr.As(err) != doserr.FileNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if err := d.Rename("ONE", "DIR\\THREE"); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if d.FileExists("ONE") || !d.FileExists("DIR\\THREE") {
		t.Fatalf("rename failed")
	}
}

// TestShortNames tests that host names are shown as 8.3 names.
func TestShortNames(t *testing.T) {
	d := NewMemory()

	fs := d.Fs()
	for _, name := range []string{"longfilename.txt", "longfile.c", "README", "readme", "My Doc.txt"} {
		_ = afero.WriteFile(fs, "/"+name, []byte(name), 0644)
	}

	names := find(t, d, "", "*.*", 0)
	expected := map[string]bool{"LONGFI~1.TXT": true, "LONGFILE.C": true, "README": true, "README~1": true, "MYDOC~1.TXT": true}
	if len(names) != len(expected) {
		t.Fatalf("unexpected names %v", names)
	}
	for _, n := range names {
		if !expected[n] {
			t.Fatalf("unexpected name %s in %v", n, names)
		}
	}

	f, err := d.FileOpen("LONGFI~1.TXT", OpenRead)
	if err != nil {
		t.Fatalf("failed to open by short name %s", err)
	}
	buf := make([]byte, 100)
	n, _ := f.Read(buf)
	if string(buf[:n]) != "longfilename.txt" {
		t.Fatalf("opened the wrong file %s", buf[:n])
	}
	f.Close()

	// Only matching names
	names = find(t, d, "", "*.TXT", 0)
	if len(names) != 2 {
		t.Fatalf("unexpected names %v", names)
	}
}

// TestIllegalHostNames tests that host names holding characters DOS
// refuses are given short names which can be opened.
func TestIllegalHostNames(t *testing.T) {
	d := NewMemory()

	fs := d.Fs()
	hosts := []string{"a[1].txt", "my;file.txt", "b=c.txt"}
	for _, name := range hosts {
		_ = afero.WriteFile(fs, "/"+name, []byte(name), 0644)
	}

	root := func(uint8) (string, bool) { return "", true }

	names := find(t, d, "", "*.*", 0)
	if len(names) != len(hosts) {
		t.Fatalf("unexpected names %v", names)
	}

	seen := make(map[string]bool)
	for _, name := range names {
		full, _, err := dosname.MakeName(name, 2, root)
		if err != nil {
			t.Fatalf("found name %q is not a valid DOS name: %s", name, err)
		}

		f, err := d.FileOpen(full, OpenRead)
		if err != nil {
			t.Fatalf("failed to open found name %q: %s", full, err)
		}
		buf := make([]byte, 100)
		n, _ := f.Read(buf)
		f.Close()
		seen[string(buf[:n])] = true
	}

	for _, name := range hosts {
		if !seen[name] {
			t.Fatalf("host file %s was not reachable", name)
		}
	}
}

// TestFind tests the attribute rules of searches.
func TestFind(t *testing.T) {
	d := NewMemory()

	_ = d.MakeDir("SUB")
	f, _ := d.FileCreate("SUB\\FILE.TXT", 0)
	f.Write([]byte("data"))
	f.Close()

	// Directories need asking for
	if names := find(t, d, "", "*.*", 0); len(names) != 0 {
		t.Fatalf("unexpected names %v", names)
	}
	if names := find(t, d, "", "*.*", AttrDirectory); len(names) != 1 || names[0] != "SUB" {
		t.Fatalf("unexpected names %v", names)
	}

	// Sub-directories have dot entries
	names := find(t, d, "SUB", "*.*", AttrDirectory)
	if len(names) != 3 || names[0] != "." || names[1] != ".." || names[2] != "FILE.TXT" {
		t.Fatalf("unexpected names %v", names)
	}

	x := newDTA()
	x.SetupSearch(0, 0, "FILE.TXT")
	if err := d.FindFirst("SUB", x, false); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	r := x.Result()
	if r.Size != 4 || r.Attr != AttrArchive {
		t.Fatalf("unexpected result %v", r)
	}

	if err := d.FindFirst("MISSING", x, false); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}

	// No label
	x.SetupSearch(0, AttrVolume, "*.*")
	if err := d.FindFirst("", x, false); doserr.As(err) != doserr.NoMoreFiles {
		t.Fatalf("unexpected error %v", err)
	}
	d.SetLabel("scratch")
	if err := d.FindFirst("", x, false); err != nil || x.Result().Name != "SCRATCH" {
		t.Fatalf("unexpected label %v", err)
	}

	// A bogus search
	x.SetDirID(maxSearches + 1)
	if err := d.FindNext(x); doserr.As(err) != doserr.NoMoreFiles {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestVirtual tests the internal drive.
func TestVirtual(t *testing.T) {
	RegisterFile("extra.txt", []byte("extra"))
	defer RemoveFile("EXTRA.TXT")

	src := fstest.MapFS{
		"README.TXT":   {Data: []byte("Welcome")},
		"AUTOEXEC.BAT": {Data: []byte("@ECHO OFF\r\n")},
		"SUB/IGNORED":  {Data: []byte("not at the top")},
	}
	d, err := NewVirtual(src)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}

	names := find(t, d, "", "*.*", 0)
	if len(names) != 3 || names[0] != "AUTOEXEC.BAT" || names[1] != "EXTRA.TXT" || names[2] != "README.TXT" {
		t.Fatalf("unexpected names %v", names)
	}

	x := newDTA()
	x.SetupSearch(25, AttrVolume, "*.*")
	if err = d.FindFirst("", x, false); err != nil || x.Result().Name != VirtualLabel {
		t.Fatalf("unexpected label %v", err)
	}

	f, err := d.FileOpen("README.TXT", OpenRead)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if f.Information() != 0x40 {
		t.Fatalf("unexpected information word %04X", f.Information())
	}
	if f.Date() != dosname.PackDate(2002, 10, 1) || f.Time() != dosname.PackTime(12, 34, 56) {
		t.Fatalf("unexpected date")
	}
	f.Close()

	if _, err = d.FileOpen("README.TXT", OpenReadWrite); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err = d.FileCreate("NEW.TXT", 0); err == nil {
		t.Fatalf("expected error creating a file")
	}
	if err = d.MakeDir("NEW"); err == nil {
		t.Fatalf("expected error creating a directory")
	}

	a := d.AllocationInfo()
	if a.BytesPerSector != 512 || a.SectorsPerCluster != 32 || a.TotalClusters != 32765 || a.FreeClusters != 0 {
		t.Fatalf("unexpected allocation %v", a)
	}
	if d.MediaByte() != 0xF8 {
		t.Fatalf("unexpected media byte")
	}
}

// TestLocal tests mounting a host directory.
func TestLocal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Host File.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("failed to write file %s", err)
	}

	d, err := Create("LOCAL", dir)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}

	names := find(t, d, "", "*.*", 0)
	if len(names) != 1 || names[0] != "HOSTFI~1.TXT" {
		t.Fatalf("unexpected names %v", names)
	}

	f, err := d.FileCreate("NEW.TXT", 0)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	f.Write([]byte("new"))
	f.Close()

	if _, err = os.Stat(filepath.Join(dir, "NEW.TXT")); err != nil {
		t.Fatalf("file not created on the host %s", err)
	}

	if _, err = Create("local", filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error mounting a missing directory")
	}
	if _, err = Create("local", filepath.Join(dir, "NEW.TXT")); err == nil {
		t.Fatalf("expected error mounting a file")
	}
	if _, err = Create("floppy", ""); err == nil {
		t.Fatalf("expected error with a bogus type")
	}

	all := GetDrivers()
	if len(all) != 3 || all[0] != "local" || all[1] != "memory" || all[2] != "virtual" {
		t.Fatalf("unexpected drive types %v", all)
	}

	a := d.AllocationInfo()
	if a.BytesPerSector != 512 || a.SectorsPerCluster != 127 || a.TotalClusters != 16000 || a.FreeClusters != 4000 {
		t.Fatalf("unexpected allocation %v", a)
	}
	if d.Info() != "local directory "+dir {
		t.Fatalf("unexpected info %s", d.Info())
	}
}
