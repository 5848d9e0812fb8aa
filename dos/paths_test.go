package dos

import (
	"sort"
	"testing"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/drive"
)

// TestDirectories tests creating, changing, and removing directories.
func TestDirectories(t *testing.T) {
	k, _ := newKernel(t, nil)

	if err := k.MakeDir("GAMES"); err != nil {
		t.Fatalf("failed to make directory %s", err)
	}
	if err := k.MakeDir("GAMES"); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
	if err := k.MakeDir("MISSING\\GAMES"); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if err := k.MakeDir("GAMES\\"); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if err := k.MakeDir("C:\\GAMES\\DOOM"); err != nil {
		t.Fatalf("failed to make directory %s", err)
	}

	if err := k.ChangeDir("\\GAMES\\DOOM"); err != nil {
		t.Fatalf("failed to change directory %s", err)
	}
	dir, err := k.GetCurrentDir(0)
	if err != nil || dir != "GAMES\\DOOM" {
		t.Fatalf("unexpected directory %q %v", dir, err)
	}
	if dir, _ = k.GetCurrentDir(3); dir != "GAMES\\DOOM" {
		t.Fatalf("unexpected directory %q", dir)
	}
	if _, err = k.GetCurrentDir(4); doserr.As(err) != doserr.InvalidDrive {
		t.Fatalf("unexpected error %v", err)
	}

	if err = k.ChangeDir("NOWHERE"); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}

	if err = k.RemoveDir("."); doserr.As(err) != doserr.RemoveCurrentDir {
		t.Fatalf("unexpected error %v", err)
	}
	if err = k.ChangeDir(".."); err != nil {
		t.Fatalf("failed to change directory %s", err)
	}

	if err = k.ChangeDir("\\"); err != nil {
		t.Fatalf("failed to change directory %s", err)
	}

	// Not empty
	if err = k.RemoveDir("GAMES"); doserr.As(err) != doserr.AccessDenied {
		t.Fatalf("unexpected error %v", err)
	}
	if err = k.RemoveDir("GAMES\\DOOM"); err != nil {
		t.Fatalf("failed to remove directory %s", err)
	}
	if err = k.RemoveDir("GAMES\\DOOM"); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestRename tests renaming files.
func TestRename(t *testing.T) {
	k, _ := newKernel(t, map[string]string{"OLD.TXT": "old", "OTHER.TXT": "other"})
	if err := k.Mount('D', drive.NewMemory()); err != nil {
		t.Fatalf("failed to mount %s", err)
	}

	tests := []struct {
		old string
		new string
		err doserr.Code
	}{
		{"OLD.TXT", "D:NEW.TXT", doserr.NotSameDevice},
		{"OLD.TXT", "OTHER.TXT", doserr.AccessDenied},
		{"MISSING.TXT", "NEW.TXT", doserr.FileNotFound},
		{"NUL", "NEW.TXT", doserr.FileNotFound},
		{"OLD.TXT", "NEW.TXT", doserr.None},
	}

	for _, test := range tests {
		err := k.Rename(test.old, test.new)
		if doserr.As(err) != test.err {
			t.Fatalf("%s->%s: expected %v, got %v", test.old, test.new, test.err, err)
		}
	}

	if k.FileExists("OLD.TXT") || !k.FileExists("NEW.TXT") {
		t.Fatalf("file was not renamed")
	}
}

// TestUnlink tests removing files.
func TestUnlink(t *testing.T) {
	k, _ := newKernel(t, map[string]string{"OLD.TXT": "old"})
	k.MakeDir("DIR")

	if err := k.UnlinkFile("OLD.TXT"); err != nil {
		t.Fatalf("failed to remove %s", err)
	}
	if err := k.UnlinkFile("OLD.TXT"); doserr.As(err) != doserr.FileNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if err := k.UnlinkFile("DIR"); doserr.As(err) != doserr.FileNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if k.FileExists("DIR") {
		t.Fatalf("directories are not files")
	}
}

// TestAttributes tests reading the attributes of files.
func TestAttributes(t *testing.T) {
	k, _ := newKernel(t, map[string]string{"FILE.TXT": "file"})
	k.MakeDir("DIR")

	attr, err := k.GetFileAttr("FILE.TXT")
	if err != nil || attr != drive.AttrArchive {
		t.Fatalf("unexpected attributes %02X %v", attr, err)
	}
	attr, err = k.GetFileAttr("DIR")
	if err != nil || attr&drive.AttrDirectory == 0 {
		t.Fatalf("unexpected attributes %02X %v", attr, err)
	}
	if _, err = k.GetFileAttr("MISSING"); doserr.As(err) != doserr.FileNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if err = k.SetFileAttr("FILE.TXT", drive.AttrReadOnly); err != nil {
		t.Fatalf("failed to set attributes %s", err)
	}
	if err = k.SetFileAttr("MISSING", drive.AttrReadOnly); doserr.As(err) != doserr.FileNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestFreeSpace tests the geometry of drives.
func TestFreeSpace(t *testing.T) {
	k, _ := newKernel(t, nil)

	a, err := k.GetFreeDiskSpace(0)
	if err != nil || a.BytesPerSector != 512 || a.FreeClusters == 0 {
		t.Fatalf("unexpected geometry %v %v", a, err)
	}

	a, media, err := k.GetAllocationInfo(26)
	if err != nil || a.FreeClusters != 0 || media != 0xF8 {
		t.Fatalf("unexpected geometry of Z: %v %02X %v", a, media, err)
	}

	if _, err = k.GetFreeDiskSpace(1); doserr.As(err) != doserr.InvalidDrive {
		t.Fatalf("unexpected error %v", err)
	}
	if _, _, err = k.GetAllocationInfo(1); doserr.As(err) != doserr.InvalidDrive {
		t.Fatalf("unexpected error %v", err)
	}
}

// search returns the names matching a pattern.
func search(t *testing.T, k *Kernel, pattern string, attr uint8) []string {
	t.Helper()

	var out []string
	err := k.FindFirst(pattern, attr)
	for err == nil {
		out = append(out, k.FindResult().Name)
		err = k.FindNext()
	}
	if doserr.As(err) != doserr.NoMoreFiles {
		t.Fatalf("%s: unexpected error %v", pattern, err)
	}
	sort.Strings(out)
	return out
}

// TestFind tests searching for files.
func TestFind(t *testing.T) {
	k, c := newKernel(t, map[string]string{
		"ONE.TXT":   "1",
		"TWO.TXT":   "22",
		"THREE.DOC": "333",
	})
	c.SetLabel("SCRATCH")
	k.MakeDir("DIR")
	k.CreateFile("DIR\\FOUR.TXT", drive.AttrArchive)

	tests := []struct {
		pattern string
		attr    uint8
		names   []string
	}{
		{"*.TXT", drive.AttrArchive, []string{"ONE.TXT", "TWO.TXT"}},
		{"*.*", drive.AttrArchive, []string{"ONE.TXT", "THREE.DOC", "TWO.TXT"}},
		{"*.*", drive.AttrDirectory, []string{"DIR", "ONE.TXT", "THREE.DOC", "TWO.TXT"}},
		{"T*.*", drive.AttrArchive, []string{"THREE.DOC", "TWO.TXT"}},
		{"DIR\\*.*", drive.AttrArchive, []string{"FOUR.TXT"}},
		{"DIR\\*.*", drive.AttrDirectory, []string{".", "..", "FOUR.TXT"}},
		{"NUL", drive.AttrArchive, []string{"NUL"}},
		{"C:\\DIR\\", drive.AttrArchive, nil},
	}

	for _, test := range tests {
		got := search(t, k, test.pattern, test.attr)
		if len(got) != len(test.names) {
			t.Fatalf("%s: unexpected results %v", test.pattern, got)
		}
		for i := range got {
			if got[i] != test.names[i] {
				t.Fatalf("%s: unexpected results %v", test.pattern, got)
			}
		}
	}

	if err := k.FindFirst("*.*", drive.AttrVolume); err != nil || k.FindResult().Name != "SCRATCH" {
		t.Fatalf("unexpected label %v %v", k.FindResult(), err)
	}
	if err := k.FindFirst("MISSING\\*.*", drive.AttrArchive); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestFindResult tests the details of the file found.
func TestFindResult(t *testing.T) {
	k, _ := newKernel(t, map[string]string{"TWO.TXT": "22"})

	if err := k.FindFirst("TWO.TXT", drive.AttrArchive); err != nil {
		t.Fatalf("failed to find %s", err)
	}
	r := k.FindResult()
	if r.Name != "TWO.TXT" || r.Size != 2 || r.Attr != drive.AttrArchive || r.Date == 0 {
		t.Fatalf("unexpected result %v", r)
	}

	if err := k.FindFirst("NUL.TXT", drive.AttrArchive); err != nil {
		t.Fatalf("failed to find device %s", err)
	}
	r = k.FindResult()
	if r.Name != "NUL" || r.Attr != drive.AttrDevice {
		t.Fatalf("unexpected result %v", r)
	}
}
