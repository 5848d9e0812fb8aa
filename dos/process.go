package dos

import (
	"fmt"
	"log/slog"

	"github.com/skx/dosfs/drive"
	"github.com/skx/dosfs/mcb"
	"github.com/skx/dosfs/psp"
)

// NewProcess creates a child of the current process, owning a block of
// memory of the given size, and makes it current.
//
// The child inherits the handles of its parent, except those opened
// with OpenNoInherit.  The tail is stored as its command line, and its
// first two arguments are parsed into the default FCBs.
func (k *Kernel) NewProcess(paras uint16, tail string) (uint16, error) {

	if paras < psp.Size/16 {
		paras = psp.Size / 16
	}

	seg, _, err := k.Arena.Allocate(paras)
	if err != nil {
		return 0, k.fail(err)
	}

	parent := k.currentPSP()
	mcb.New(k.Memory, seg-1).SetPSP(seg)

	child := psp.New(k.Memory, seg)
	child.MakeNew(paras, parent.Segment())
	child.SetEnvironment(parent.Environment())
	child.CopyFileTable(parent, true, func(handle uint8) bool {
		if int(handle) >= len(k.files) || k.files[handle] == nil {
			return false
		}
		of := k.files[handle]
		if of.file.Flags()&drive.OpenNoInherit != 0 {
			return false
		}
		of.refs++
		return true
	})

	child.SetCommandLine(tail)
	args := []byte(child.CommandLine())
	n, _ := k.parseFCB(child.FCB1(), 0, args)
	k.parseFCB(child.FCB2(), 0, args[n:])

	k.Logger.Debug("NewProcess",
		slog.Int("psp", int(seg)),
		slog.Int("parent", int(parent.Segment())),
		slog.Int("paras", int(paras)),
		slog.String("tail", child.CommandLine()))

	k.psp = seg
	k.dta = child.DTA()
	return seg, nil
}

// ExitProcess closes the files of the current process, releases its
// memory, and returns to the parent.
func (k *Kernel) ExitProcess() error {
	if k.psp == k.rootPSP {
		return ErrRootProcess
	}

	p := k.currentPSP()
	for i := uint16(0); i < p.MaxFiles(); i++ {
		if p.GetFileHandle(i) != psp.Unused {
			k.CloseFile(i)
		}
	}

	seg := k.psp
	parent := p.Parent()

	k.Logger.Debug("ExitProcess",
		slog.Int("psp", int(seg)),
		slog.Int("parent", int(parent)))

	k.psp = parent
	k.dta = psp.New(k.Memory, parent).DTA()

	if err := k.Arena.FreeProcess(seg); err != nil {
		return k.fail(err)
	}
	return nil
}

// SetNumFiles changes the size of the handle table of the current
// process.  Large tables live in the kernel's own memory.
func (k *Kernel) SetNumFiles(n uint16) error {
	err := k.currentPSP().SetNumFiles(n, k.private.Get)
	if err != nil {
		k.Logger.Error("failed to grow handle table",
			slog.Int("files", int(n)),
			slog.String("error", err.Error()))
		return fmt.Errorf("SetNumFiles(%d): %w", n, err)
	}
	return nil
}

// AllocateMemory allocates a block of memory for the current process,
// returning its segment.  On failure the size of the largest free block
// is returned.
func (k *Kernel) AllocateMemory(paras uint16) (uint16, uint16, error) {
	seg, largest, err := k.Arena.Allocate(paras)
	if err != nil {
		return 0, largest, k.fail(err)
	}
	return seg, paras, nil
}

// ResizeMemory changes the size of a block of memory.  If it cannot
// grow enough the largest possible size is returned.
func (k *Kernel) ResizeMemory(seg, paras uint16) (uint16, error) {
	n, err := k.Arena.Resize(seg, paras)
	if err != nil {
		return n, k.fail(err)
	}
	return n, nil
}

// FreeMemory releases a block of memory.
func (k *Kernel) FreeMemory(seg uint16) error {
	if err := k.Arena.Free(seg); err != nil {
		return k.fail(err)
	}
	return nil
}
