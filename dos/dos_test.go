package dos

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/drive"
	"github.com/spf13/afero"
)

// newKernel returns a kernel with a scratch C: drive, which is returned
// too, and the given files created upon it.
func newKernel(t *testing.T, files map[string]string, options ...Option) (*Kernel, *drive.FSDrive) {
	t.Helper()

	c := drive.NewMemory()
	for name, content := range files {
		if err := afero.WriteFile(c.Fs(), "/"+name, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create %s: %s", name, err)
		}
	}

	opts := []Option{
		WithDrive('C', c),
		WithPrinterPath(filepath.Join(t.TempDir(), "print.log")),
		WithClock(func() time.Time { return time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC) }),
	}
	k, err := New(append(opts, options...)...)
	if err != nil {
		t.Fatalf("failed to create kernel: %s", err)
	}
	return k, c
}

// TestNew tests the state of a new kernel.
func TestNew(t *testing.T) {
	k, _ := newKernel(t, nil)

	if k.GetDefaultDrive() != 2 {
		t.Fatalf("unexpected default drive %d", k.GetDefaultDrive())
	}
	if k.Drive(25) == nil {
		t.Fatalf("Z: is not mounted")
	}
	if k.Drive(0) != nil || k.Drive(30) != nil {
		t.Fatalf("unexpected drive")
	}

	// CON, AUX, and PRN
	if k.OpenFiles() != 3 {
		t.Fatalf("unexpected open files %d", k.OpenFiles())
	}
	if k.LastError() != doserr.None {
		t.Fatalf("unexpected error %v", k.LastError())
	}
	if k.PSP() == 0 || k.GetDTA() == 0 {
		t.Fatalf("root process was not created")
	}

	// stdin, stdout, and stderr are the console
	for h := uint16(0); h < 3; h++ {
		info, err := k.GetFileInfo(h)
		if err != nil {
			t.Fatalf("GetFileInfo(%d) failed %s", h, err)
		}
		if info&0x8000 == 0 {
			t.Fatalf("handle %d is not a device %04X", h, info)
		}
	}
}

// TestNewEmpty tests a kernel with only the Z: drive.
func TestNewEmpty(t *testing.T) {
	k, err := New()
	if err != nil {
		t.Fatalf("failed to create kernel %s", err)
	}
	if k.GetDefaultDrive() != 25 {
		t.Fatalf("unexpected default drive %d", k.GetDefaultDrive())
	}
}

// TestOptions tests the options which fail.
func TestOptions(t *testing.T) {

	tests := []struct {
		name string
		opt  Option
	}{
		{"few files", WithFiles(4)},
		{"many files", WithFiles(300)},
		{"bad letter", WithDrive('!', drive.NewMemory())},
		{"mounted", WithDrive('Z', drive.NewMemory())},
	}

	for _, test := range tests {
		if _, err := New(test.opt); err == nil {
			t.Fatalf("%s: expected error", test.name)
		}
	}

	k, err := New(WithFiles(20))
	if err != nil {
		t.Fatalf("failed to create kernel %s", err)
	}
	if len(k.files) != 20 {
		t.Fatalf("unexpected table size %d", len(k.files))
	}
}

// TestDrives tests changing, mounting, and unmounting drives.
func TestDrives(t *testing.T) {
	k, _ := newKernel(t, nil)

	if err := k.SetDrive(5); doserr.As(err) != doserr.InvalidDrive {
		t.Fatalf("unexpected error %v", err)
	}
	if k.LastError() != doserr.InvalidDrive {
		t.Fatalf("error was not recorded")
	}

	if err := k.Mount('d', drive.NewMemory()); err != nil {
		t.Fatalf("failed to mount %s", err)
	}
	if err := k.SetDrive(3); err != nil {
		t.Fatalf("failed to change drive %s", err)
	}
	if err := k.Unmount('D'); doserr.As(err) != doserr.RemoveCurrentDir {
		t.Fatalf("unexpected error %v", err)
	}
	if err := k.SetDrive(2); err != nil {
		t.Fatalf("failed to change drive %s", err)
	}
	if err := k.Unmount('D'); err != nil {
		t.Fatalf("failed to unmount %s", err)
	}
	if err := k.Unmount('D'); doserr.As(err) != doserr.InvalidDrive {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestMakeName tests names are resolved against the current drive.
func TestMakeName(t *testing.T) {
	k, c := newKernel(t, nil)

	if err := c.MakeDir("GAMES"); err != nil {
		t.Fatalf("failed to make directory %s", err)
	}
	if err := k.ChangeDir("games"); err != nil {
		t.Fatalf("failed to change directory %s", err)
	}

	full, idx, err := k.MakeName("doom.exe")
	if err != nil || idx != 2 || full != "GAMES\\DOOM.EXE" {
		t.Fatalf("unexpected result %q %d %v", full, idx, err)
	}

	name, err := k.Canonicalize("..\\autoexec.bat")
	if err != nil || name != "C:\\AUTOEXEC.BAT" {
		t.Fatalf("unexpected result %q %v", name, err)
	}

	if _, _, err = k.MakeName("Q:\\FOO"); doserr.As(err) != doserr.PathNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}
