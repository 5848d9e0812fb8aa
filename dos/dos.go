// Package dos is the kernel of our emulator.
//
// It owns the guest memory, the chain of memory control blocks, the
// drives, the character devices, and the table of open files.  The
// functions it exports are those the INT 21h services are built upon:
// handles, paths, searches, FCBs, and processes.
//
// Every function which fails records the DOS error code, which may be
// retrieved via LastError, and also returns it as a Go error.
package dos

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/skx/dosfs/consolein"
	"github.com/skx/dosfs/consoleout"
	"github.com/skx/dosfs/device"
	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/dosname"
	"github.com/skx/dosfs/drive"
	"github.com/skx/dosfs/dta"
	"github.com/skx/dosfs/mcb"
	"github.com/skx/dosfs/memory"
	"github.com/skx/dosfs/psp"
)

const (
	// DefaultFiles is the default size of the table of open files.
	DefaultFiles = 127

	// maxFiles is the largest table we allow, since 0xFF marks an
	// unused entry in a PSP.
	maxFiles = 254

	// privateStart and privateEnd bound the memory used for the
	// kernel's own tables.
	privateStart = 0xC800
	privateEnd   = 0xD000

	// rootParas is the size of the memory given to the root process.
	rootParas = 0x100

	// DefaultPrinter is the file which printer output is appended to.
	DefaultPrinter = "print.log"
)

var (
	// ErrRootProcess is returned when the root process tries to exit.
	ErrRootProcess = errors.New("the root process cannot exit")
)

// openFile is an entry in the table of open files.
//
// The same entry may be referred to by several handles, in one process
// or many, so the file is only closed when the last of those is.
type openFile struct {
	file drive.File
	refs int
}

// Option is used to configure the kernel.
type Option func(k *Kernel) error

// Kernel holds the state of our DOS.
type Kernel struct {

	// Memory is the guest's memory.
	Memory *memory.Memory

	// Arena is the chain of memory control blocks.
	Arena *mcb.Arena

	// private is the allocator for our own tables.
	private *mcb.Private

	drives  [dosname.Drives]drive.Drive
	devices *device.Set
	console *device.Console

	// files is the table of open files, which handles index.
	files []*openFile

	// numFiles is the size of the table.
	numFiles int

	// currentDrive is the default drive, 0 for A:.
	currentDrive uint8

	// dta is the current disk transfer area.
	dta memory.RealPt

	// psp is the segment of the current process.
	psp uint16

	// rootPSP is the segment of the first process.
	rootPSP uint16

	// tempDTA is used by the FCB searches, and tempDTADelete by the
	// FCB delete which is built upon them.
	tempDTA       memory.RealPt
	tempDTADelete memory.RealPt

	lastError doserr.Code

	// printerPath is where PRN and AUX output goes.
	printerPath string

	// clock returns the time used to stamp files written via FCBs.
	clock func() time.Time

	// random is used to generate the names of temporary files.
	random *rand.Rand

	// Syscalls contains the INT 21h services we implement, indexed by
	// the value of AH.
	Syscalls map[uint8]Syscall

	// Logger holds a logger which we use for debugging and diagnostics.
	Logger *slog.Logger
}

// WithLogger sets the logger to use.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kernel) error {
		k.Logger = logger
		return nil
	}
}

// WithDrive mounts the given drive at the given letter.
func WithDrive(letter byte, d drive.Drive) Option {
	return func(k *Kernel) error {
		return k.Mount(letter, d)
	}
}

// WithFiles sets the size of the table of open files.
func WithFiles(n int) Option {
	return func(k *Kernel) error {
		if n < 8 || n > maxFiles {
			return fmt.Errorf("the number of files must be between 8 and %d, not %d", maxFiles, n)
		}
		k.numFiles = n
		return nil
	}
}

// WithConsole sets the console drivers used by CON.
func WithConsole(in *consolein.ConsoleIn, out *consoleout.ConsoleOut) Option {
	return func(k *Kernel) error {
		k.console = device.NewConsole(in, out)
		return nil
	}
}

// WithPrinterPath sets the file which printer output is appended to.
func WithPrinterPath(path string) Option {
	return func(k *Kernel) error {
		k.printerPath = path
		return nil
	}
}

// WithClock sets the function used to obtain the current time.
func WithClock(clock func() time.Time) Option {
	return func(k *Kernel) error {
		k.clock = clock
		return nil
	}
}

// WithVirtualDrive replaces the internal Z: drive.
func WithVirtualDrive(d drive.Drive) Option {
	return func(k *Kernel) error {
		k.drives['Z'-'A'] = d
		return nil
	}
}

// New returns a new kernel, configured by the given options.
//
// Unless a console is supplied the CON device is created upon the file
// input driver, with no input, and the logger output driver.
func New(options ...Option) (*Kernel, error) {

	k := &Kernel{
		Memory:      memory.New(),
		devices:     device.NewSet(),
		numFiles:    DefaultFiles,
		printerPath: DefaultPrinter,
		clock:       time.Now,
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Syscalls:    syscalls(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	z, err := drive.NewVirtual(nil)
	if err != nil {
		return nil, err
	}
	k.drives['Z'-'A'] = z
	k.currentDrive = 'Z' - 'A'

	for _, opt := range options {
		if err = opt(k); err != nil {
			return nil, err
		}
	}

	// Start upon the first drive which was mounted, if any.
	for i := uint8(0); i < 'Z'-'A'; i++ {
		if k.drives[i] != nil {
			k.currentDrive = i
			break
		}
	}

	if err = k.setup(); err != nil {
		return nil, err
	}
	return k, nil
}

// setup creates the memory arena, the devices, and the root process.
func (k *Kernel) setup() error {

	k.Arena = mcb.NewArena(k.Memory, func() uint16 { return k.psp }, k.Logger)
	if err := k.Arena.Setup(0xA000); err != nil {
		return err
	}
	if err := k.Arena.BuildUMBChain(); err != nil {
		return err
	}
	k.private = mcb.NewPrivate(privateStart, privateEnd)

	paras := mcb.Long2Para(dta.Size)
	seg, err := k.private.Get(paras)
	if err != nil {
		return err
	}
	k.tempDTA = memory.RealMake(seg, 0)
	if seg, err = k.private.Get(paras); err != nil {
		return err
	}
	k.tempDTADelete = memory.RealMake(seg, 0)

	if k.console == nil {
		out, err := consoleout.New("logger")
		if err != nil {
			return err
		}
		k.console = device.NewConsole(consolein.NewWithDriver(consolein.NewFileInput(nil)), out)
	}
	k.devices.Add(k.console)
	k.devices.Add(&device.Null{})
	k.devices.Add(device.NewPrinter("PRN", k.printerPath), "LPT1")
	k.devices.Add(device.NewPrinter("AUX", k.printerPath), "COM1")

	k.files = make([]*openFile, k.numFiles)

	// The root process owns the memory it lives in.
	seg, _, err = k.Arena.Allocate(rootParas)
	if err != nil {
		return fmt.Errorf("failed to allocate the root process: %w", err)
	}
	mcb.New(k.Memory, seg-1).SetPSP(seg)
	mcb.New(k.Memory, seg-1).SetFileName("COMMAND")

	root := psp.New(k.Memory, seg)
	root.MakeNew(rootParas, seg)
	k.psp = seg
	k.rootPSP = seg
	k.dta = root.DTA()

	// stdin, stdout, and stderr share the console.
	if _, err = k.OpenFile("CON", drive.OpenReadWrite); err != nil {
		return fmt.Errorf("failed to open CON: %w", err)
	}
	if _, err = k.DuplicateEntry(0); err != nil {
		return err
	}
	if _, err = k.DuplicateEntry(0); err != nil {
		return err
	}
	if _, err = k.OpenFile("AUX", drive.OpenReadWrite); err != nil {
		return fmt.Errorf("failed to open AUX: %w", err)
	}
	if _, err = k.OpenFile("PRN", drive.OpenReadWrite); err != nil {
		return fmt.Errorf("failed to open PRN: %w", err)
	}
	k.lastError = doserr.None
	return nil
}

// fail records the error code, and returns it.
func (k *Kernel) fail(err error) error {
	k.lastError = doserr.As(err)
	return k.lastError
}

// LastError returns the code of the most recent failure.
func (k *Kernel) LastError() doserr.Code {
	return k.lastError
}

// Console returns the CON device.
func (k *Kernel) Console() *device.Console {
	return k.console
}

// Devices returns the character devices.
func (k *Kernel) Devices() *device.Set {
	return k.devices
}

// Mount attaches a drive at the given letter.
func (k *Kernel) Mount(letter byte, d drive.Drive) error {
	idx := (letter | 0x20) - 'a'
	if idx >= dosname.Drives {
		return fmt.Errorf("invalid drive letter %q", letter)
	}
	if k.drives[idx] != nil {
		return fmt.Errorf("drive %c: is already mounted", 'A'+idx)
	}
	k.drives[idx] = d
	k.Logger.Debug("Mount",
		slog.String("drive", string(rune('A'+idx))),
		slog.String("info", d.Info()))
	return nil
}

// Unmount detaches the drive at the given letter.  The current drive
// cannot be removed.
func (k *Kernel) Unmount(letter byte) error {
	idx := (letter | 0x20) - 'a'
	if idx >= dosname.Drives || k.drives[idx] == nil {
		return k.fail(doserr.InvalidDrive)
	}
	if idx == k.currentDrive {
		return k.fail(doserr.RemoveCurrentDir)
	}
	k.drives[idx] = nil
	return nil
}

// Drive returns the drive with the given index, 0 for A:, or nil if
// there is no such drive.
func (k *Kernel) Drive(idx uint8) drive.Drive {
	if idx >= dosname.Drives {
		return nil
	}
	return k.drives[idx]
}

// ioctlDrive returns the drive an IOCTL call names, where zero is the
// current drive and one is A:.
func (k *Kernel) ioctlDrive(num uint8) (drive.Drive, error) {
	idx := k.currentDrive
	if num != 0 {
		idx = num - 1
	}
	d := k.Drive(idx)
	if d == nil {
		return nil, k.fail(doserr.InvalidDrive)
	}
	return d, nil
}

// IsRemovable reports whether the media of the drive can change.  The
// number is zero for the current drive, or one for A:.
func (k *Kernel) IsRemovable(num uint8) (bool, error) {
	d, err := k.ioctlDrive(num)
	if err != nil {
		return false, err
	}
	return d.IsRemovable(), nil
}

// IsRemote reports whether the drive is remote, numbered as for
// IsRemovable.
func (k *Kernel) IsRemote(num uint8) (bool, error) {
	d, err := k.ioctlDrive(num)
	if err != nil {
		return false, err
	}
	return d.IsRemote(), nil
}

// Rescan discards what every drive has cached about the host, so files
// changed outside of DOS are seen.
func (k *Kernel) Rescan() {
	for idx, d := range k.drives {
		if d == nil {
			continue
		}
		k.Logger.Debug("Rescan", slog.String("drive", string(rune('A'+idx))))
		d.EmptyCache()
	}
}

// GetDefaultDrive returns the index of the current drive.
func (k *Kernel) GetDefaultDrive() uint8 {
	return k.currentDrive
}

// SetDrive changes the current drive.
func (k *Kernel) SetDrive(idx uint8) error {
	if k.Drive(idx) == nil {
		return k.fail(doserr.InvalidDrive)
	}
	k.currentDrive = idx
	return nil
}

// curdir returns the current directory of the given drive, for MakeName.
func (k *Kernel) curdir(idx uint8) (string, bool) {
	d := k.Drive(idx)
	if d == nil {
		return "", false
	}
	return d.CurDir(), true
}

// MakeName converts a name into the drive-relative form the drives use,
// returning the index of the drive it lives upon.
func (k *Kernel) MakeName(name string) (string, uint8, error) {
	full, idx, err := dosname.MakeName(name, k.currentDrive, k.curdir)
	if err != nil {
		return "", idx, k.fail(err)
	}
	return full, idx, nil
}

// GetDTA returns the address of the current disk transfer area.
func (k *Kernel) GetDTA() memory.RealPt {
	return k.dta
}

// SetDTA changes the current disk transfer area.
func (k *Kernel) SetDTA(rp memory.RealPt) {
	k.dta = rp
}

// PSP returns the segment of the current process.
func (k *Kernel) PSP() uint16 {
	return k.psp
}

// currentPSP returns the current process.
func (k *Kernel) currentPSP() *psp.PSP {
	return psp.New(k.Memory, k.psp)
}

// now returns the packed date and time.
func (k *Kernel) now() (uint16, uint16) {
	return dosname.FromTime(k.clock())
}

// driveLetter returns the letter of the given drive index.
func driveLetter(idx uint8) string {
	return string(rune('A' + idx))
}
