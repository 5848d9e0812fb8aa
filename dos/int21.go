// This file implements the INT 21h file services, upon the kernel.
//
// These are documented online:
//
// * https://www.ctyme.com/intr/int-21.htm

package dos

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/dosname"
	"github.com/skx/dosfs/memory"
)

// ErrUnimplemented is returned when a program calls a service we don't
// implement.
var ErrUnimplemented = errors.New("UNIMPLEMENTED")

// Registers holds the CPU registers the services receive their arguments
// in, and return their results in.
type Registers struct {
	AX, BX, CX, DX uint16
	SI, DI         uint16
	DS, ES         uint16

	// Carry is set when a service fails.
	Carry bool
}

// AH returns the high byte of AX, which selects the service.
func (r *Registers) AH() uint8 { return uint8(r.AX >> 8) }

// AL returns the low byte of AX.
func (r *Registers) AL() uint8 { return uint8(r.AX) }

// SetAL updates the low byte of AX.
func (r *Registers) SetAL(v uint8) { r.AX = r.AX&0xFF00 | uint16(v) }

// BL returns the low byte of BX.
func (r *Registers) BL() uint8 { return uint8(r.BX) }

// CL returns the low byte of CX.
func (r *Registers) CL() uint8 { return uint8(r.CX) }

// DL returns the low byte of DX.
func (r *Registers) DL() uint8 { return uint8(r.DX) }

// status sets the result of a service which reports failure via the
// carry flag and the error code in AX.
func (r *Registers) status(err error) {
	if err != nil {
		r.Carry = true
		r.AX = uint16(doserr.As(err))
		return
	}
	r.Carry = false
}

// fcbStatus sets the result of an FCB service, which reports failure
// with 0xFF in AL.
func (r *Registers) fcbStatus(err error) {
	if err != nil {
		r.SetAL(0xFF)
		return
	}
	r.SetAL(0x00)
}

// Handler is the signature of a service.  Failures of the service are
// reported in the registers, the error is reserved for problems which
// should stop the program.
type Handler func(k *Kernel, r *Registers) error

// Syscall describes one service.
type Syscall struct {
	// Desc contains the human-readable name of the service.
	Desc string

	// Handler implements it.
	Handler Handler
}

// syscalls returns the table of the services we implement, indexed by
// the value of AH.
func syscalls() map[uint8]Syscall {
	sys := make(map[uint8]Syscall)

	sys[0x0E] = Syscall{Desc: "SELECT_DISK", Handler: sysSelectDisk}
	sys[0x0F] = Syscall{Desc: "FCB_OPEN", Handler: sysFCBOpen}
	sys[0x10] = Syscall{Desc: "FCB_CLOSE", Handler: sysFCBClose}
	sys[0x11] = Syscall{Desc: "FCB_FINDFIRST", Handler: sysFCBFindFirst}
	sys[0x12] = Syscall{Desc: "FCB_FINDNEXT", Handler: sysFCBFindNext}
	sys[0x13] = Syscall{Desc: "FCB_DELETE", Handler: sysFCBDelete}
	sys[0x14] = Syscall{Desc: "FCB_READ", Handler: sysFCBRead}
	sys[0x15] = Syscall{Desc: "FCB_WRITE", Handler: sysFCBWrite}
	sys[0x16] = Syscall{Desc: "FCB_CREATE", Handler: sysFCBCreate}
	sys[0x17] = Syscall{Desc: "FCB_RENAME", Handler: sysFCBRename}
	sys[0x19] = Syscall{Desc: "GET_DEFAULT_DRIVE", Handler: sysGetDefaultDrive}
	sys[0x1A] = Syscall{Desc: "SET_DTA", Handler: sysSetDTA}
	sys[0x21] = Syscall{Desc: "FCB_RANDOM_READ", Handler: sysFCBRandomRead}
	sys[0x22] = Syscall{Desc: "FCB_RANDOM_WRITE", Handler: sysFCBRandomWrite}
	sys[0x23] = Syscall{Desc: "FCB_FILE_SIZE", Handler: sysFCBFileSize}
	sys[0x24] = Syscall{Desc: "FCB_SET_RANDOM", Handler: sysFCBSetRandom}
	sys[0x27] = Syscall{Desc: "FCB_BLOCK_READ", Handler: sysFCBBlockRead}
	sys[0x28] = Syscall{Desc: "FCB_BLOCK_WRITE", Handler: sysFCBBlockWrite}
	sys[0x29] = Syscall{Desc: "FCB_PARSE_NAME", Handler: sysFCBParseName}
	sys[0x2F] = Syscall{Desc: "GET_DTA", Handler: sysGetDTA}
	sys[0x36] = Syscall{Desc: "GET_FREE_SPACE", Handler: sysGetFreeSpace}
	sys[0x39] = Syscall{Desc: "MKDIR", Handler: sysMakeDir}
	sys[0x3A] = Syscall{Desc: "RMDIR", Handler: sysRemoveDir}
	sys[0x3B] = Syscall{Desc: "CHDIR", Handler: sysChangeDir}
	sys[0x3C] = Syscall{Desc: "CREATE", Handler: sysCreate}
	sys[0x3D] = Syscall{Desc: "OPEN", Handler: sysOpen}
	sys[0x3E] = Syscall{Desc: "CLOSE", Handler: sysClose}
	sys[0x3F] = Syscall{Desc: "READ", Handler: sysRead}
	sys[0x40] = Syscall{Desc: "WRITE", Handler: sysWrite}
	sys[0x41] = Syscall{Desc: "UNLINK", Handler: sysUnlink}
	sys[0x42] = Syscall{Desc: "SEEK", Handler: sysSeek}
	sys[0x43] = Syscall{Desc: "ATTRIBUTES", Handler: sysAttributes}
	sys[0x44] = Syscall{Desc: "IOCTL", Handler: sysIOCTL}
	sys[0x45] = Syscall{Desc: "DUP", Handler: sysDup}
	sys[0x46] = Syscall{Desc: "DUP2", Handler: sysDup2}
	sys[0x47] = Syscall{Desc: "GETCWD", Handler: sysGetCurrentDir}
	sys[0x48] = Syscall{Desc: "ALLOCATE", Handler: sysAllocate}
	sys[0x49] = Syscall{Desc: "FREE", Handler: sysFree}
	sys[0x4A] = Syscall{Desc: "RESIZE", Handler: sysResize}
	sys[0x4E] = Syscall{Desc: "FINDFIRST", Handler: sysFindFirst}
	sys[0x4F] = Syscall{Desc: "FINDNEXT", Handler: sysFindNext}
	sys[0x56] = Syscall{Desc: "RENAME", Handler: sysRename}
	sys[0x57] = Syscall{Desc: "FILE_DATE", Handler: sysFileDate}
	sys[0x59] = Syscall{Desc: "EXTENDED_ERROR", Handler: sysExtendedError}
	sys[0x5A] = Syscall{Desc: "CREATE_TEMP", Handler: sysCreateTemp}
	sys[0x5B] = Syscall{Desc: "CREATE_NEW", Handler: sysCreateNew}
	sys[0x60] = Syscall{Desc: "TRUENAME", Handler: sysTruename}
	sys[0x67] = Syscall{Desc: "SET_HANDLE_COUNT", Handler: sysSetHandleCount}
	sys[0x6C] = Syscall{Desc: "EXTENDED_OPEN", Handler: sysExtendedOpen}

	return sys
}

// Call invokes the service AH selects.
func (k *Kernel) Call(r *Registers) error {
	ah := r.AH()

	handler, ok := k.Syscalls[ah]
	if !ok {
		k.Logger.Error("Unimplemented syscall",
			slog.Int("syscall", int(ah)),
			slog.String("syscallHex", fmt.Sprintf("0x%02X", ah)))
		return fmt.Errorf("%w syscall %02Xh", ErrUnimplemented, ah)
	}

	k.Logger.Debug("Syscall",
		slog.String("name", handler.Desc),
		slog.Int("syscall", int(ah)))

	return handler.Handler(k, r)
}

// str returns the ASCIIZ string at the given address.
func (k *Kernel) str(seg, off uint16) string {
	return k.Memory.GetString(memory.PhysMake(seg, off), dosname.PathLength*2)
}

func sysSelectDisk(k *Kernel, r *Registers) error {
	k.SetDrive(r.DL())
	r.SetAL(dosname.Drives)
	return nil
}

func sysFCBOpen(k *Kernel, r *Registers) error {
	r.fcbStatus(k.FCBOpen(r.DS, r.DX))
	return nil
}

func sysFCBClose(k *Kernel, r *Registers) error {
	r.fcbStatus(k.FCBClose(r.DS, r.DX))
	return nil
}

func sysFCBFindFirst(k *Kernel, r *Registers) error {
	r.fcbStatus(k.FCBFindFirst(r.DS, r.DX))
	return nil
}

func sysFCBFindNext(k *Kernel, r *Registers) error {
	r.fcbStatus(k.FCBFindNext(r.DS, r.DX))
	return nil
}

func sysFCBDelete(k *Kernel, r *Registers) error {
	r.fcbStatus(k.FCBDeleteFile(r.DS, r.DX))
	return nil
}

func sysFCBRead(k *Kernel, r *Registers) error {
	r.SetAL(k.FCBRead(r.DS, r.DX, 0))
	return nil
}

func sysFCBWrite(k *Kernel, r *Registers) error {
	r.SetAL(k.FCBWrite(r.DS, r.DX, 0))
	return nil
}

func sysFCBCreate(k *Kernel, r *Registers) error {
	r.fcbStatus(k.FCBCreate(r.DS, r.DX))
	return nil
}

func sysFCBRename(k *Kernel, r *Registers) error {
	r.fcbStatus(k.FCBRenameFile(r.DS, r.DX))
	return nil
}

func sysGetDefaultDrive(k *Kernel, r *Registers) error {
	r.SetAL(k.GetDefaultDrive())
	return nil
}

func sysSetDTA(k *Kernel, r *Registers) error {
	k.SetDTA(memory.RealMake(r.DS, r.DX))
	return nil
}

func sysFCBRandomRead(k *Kernel, r *Registers) error {
	r.SetAL(k.FCBRandomRead(r.DS, r.DX, 1, true))
	return nil
}

func sysFCBRandomWrite(k *Kernel, r *Registers) error {
	r.SetAL(k.FCBRandomWrite(r.DS, r.DX, 1, true))
	return nil
}

func sysFCBFileSize(k *Kernel, r *Registers) error {
	r.fcbStatus(k.FCBGetFileSize(r.DS, r.DX))
	return nil
}

func sysFCBSetRandom(k *Kernel, r *Registers) error {
	k.FCBSetRandomRecord(r.DS, r.DX)
	return nil
}

func sysFCBBlockRead(k *Kernel, r *Registers) error {
	r.SetAL(k.FCBRandomRead(r.DS, r.DX, r.CX, false))
	return nil
}

func sysFCBBlockWrite(k *Kernel, r *Registers) error {
	r.SetAL(k.FCBRandomWrite(r.DS, r.DX, r.CX, false))
	return nil
}

func sysFCBParseName(k *Kernel, r *Registers) error {
	input := k.Memory.GetRange(memory.PhysMake(r.DS, r.SI), 128)
	n, ret := k.FCBParseName(r.ES, r.DI, r.AL(), input)
	r.SI += uint16(n)
	r.SetAL(ret)
	return nil
}

func sysGetDTA(k *Kernel, r *Registers) error {
	dta := k.GetDTA()
	r.ES = memory.RealSeg(dta)
	r.BX = memory.RealOff(dta)
	return nil
}

func sysGetFreeSpace(k *Kernel, r *Registers) error {
	a, err := k.GetFreeDiskSpace(r.DL())
	if err != nil {
		r.AX = 0xFFFF
		return nil
	}
	r.AX = uint16(a.SectorsPerCluster)
	r.BX = a.FreeClusters
	r.CX = a.BytesPerSector
	r.DX = a.TotalClusters
	return nil
}

func sysMakeDir(k *Kernel, r *Registers) error {
	r.status(k.MakeDir(k.str(r.DS, r.DX)))
	return nil
}

func sysRemoveDir(k *Kernel, r *Registers) error {
	r.status(k.RemoveDir(k.str(r.DS, r.DX)))
	return nil
}

func sysChangeDir(k *Kernel, r *Registers) error {
	r.status(k.ChangeDir(k.str(r.DS, r.DX)))
	return nil
}

func sysCreate(k *Kernel, r *Registers) error {
	h, err := k.CreateFile(k.str(r.DS, r.DX), r.CL())
	r.status(err)
	if err == nil {
		r.AX = h
	}
	return nil
}

func sysOpen(k *Kernel, r *Registers) error {
	h, err := k.OpenFile(k.str(r.DS, r.DX), r.AL())
	r.status(err)
	if err == nil {
		r.AX = h
	}
	return nil
}

func sysClose(k *Kernel, r *Registers) error {
	r.status(k.CloseFile(r.BX))
	return nil
}

func sysRead(k *Kernel, r *Registers) error {
	buf := make([]byte, r.CX)
	n, err := k.ReadFile(r.BX, buf)
	r.status(err)
	if err == nil {
		k.Memory.SetRange(memory.PhysMake(r.DS, r.DX), buf[:n]...)
		r.AX = uint16(n)
	}
	return nil
}

func sysWrite(k *Kernel, r *Registers) error {
	buf := k.Memory.GetRange(memory.PhysMake(r.DS, r.DX), int(r.CX))
	n, err := k.WriteFile(r.BX, buf)
	r.status(err)
	if err == nil {
		r.AX = uint16(n)
	}
	return nil
}

func sysUnlink(k *Kernel, r *Registers) error {
	r.status(k.UnlinkFile(k.str(r.DS, r.DX)))
	return nil
}

func sysSeek(k *Kernel, r *Registers) error {
	pos := int32(uint32(r.CX)<<16 | uint32(r.DX))
	n, err := k.SeekFile(r.BX, pos, int(r.AL()))
	r.status(err)
	if err == nil {
		r.DX = uint16(n >> 16)
		r.AX = uint16(n)
	}
	return nil
}

func sysAttributes(k *Kernel, r *Registers) error {
	name := k.str(r.DS, r.DX)
	switch r.AL() {
	case 0x00:
		attr, err := k.GetFileAttr(name)
		r.status(err)
		if err == nil {
			r.CX = attr
			r.AX = attr
		}
	case 0x01:
		r.status(k.SetFileAttr(name, r.CX))
	default:
		r.status(k.fail(doserr.FunctionNumberInvalid))
	}
	return nil
}

// ready converts a status into the AL value of the IOCTL status calls.
func ready(ok bool) uint8 {
	if ok {
		return 0xFF
	}
	return 0x00
}

func sysIOCTL(k *Kernel, r *Registers) error {
	switch r.AL() {
	case 0x00:
		info, err := k.GetFileInfo(r.BX)
		r.status(err)
		if err == nil {
			r.DX = info
		}

	case 0x01:
		info, err := k.SetFileInfo(r.BX, r.DX)
		r.status(err)
		if err == nil {
			r.SetAL(uint8(info))
		}

	case 0x06:
		ok, err := k.InputStatus(r.BX)
		r.status(err)
		if err == nil {
			r.SetAL(ready(ok))
		}

	case 0x07:
		ok, err := k.OutputStatus(r.BX)
		r.status(err)
		if err == nil {
			r.SetAL(ready(ok))
		}

	case 0x08:
		removable, err := k.IsRemovable(r.BL())
		r.status(err)
		if err == nil {
			r.AX = 1
			if removable {
				r.AX = 0
			}
		}

	case 0x09:
		remote, err := k.IsRemote(r.BL())
		r.status(err)
		if err == nil {
			r.AX = 0x0300
			r.DX = 0x0802
			if remote {
				r.DX = 0x1000
			}
		}

	case 0x0A:
		remote, err := k.HandleIsRemote(r.BX)
		r.status(err)
		if err == nil {
			r.DX = 0
			if remote {
				r.DX = 0x8000
			}
		}

	default:
		r.status(k.fail(doserr.FunctionNumberInvalid))
	}
	return nil
}

func sysDup(k *Kernel, r *Registers) error {
	h, err := k.DuplicateEntry(r.BX)
	r.status(err)
	if err == nil {
		r.AX = h
	}
	return nil
}

func sysDup2(k *Kernel, r *Registers) error {
	r.status(k.ForceDuplicateEntry(r.BX, r.CX))
	return nil
}

func sysGetCurrentDir(k *Kernel, r *Registers) error {
	dir, err := k.GetCurrentDir(r.DL())
	r.status(err)
	if err == nil {
		k.Memory.SetString(memory.PhysMake(r.DS, r.SI), dir)
		r.AX = 0x0100
	}
	return nil
}

func sysAllocate(k *Kernel, r *Registers) error {
	seg, largest, err := k.AllocateMemory(r.BX)
	r.status(err)
	if err == nil {
		r.AX = seg
	} else {
		r.BX = largest
	}
	return nil
}

func sysFree(k *Kernel, r *Registers) error {
	r.status(k.FreeMemory(r.ES))
	return nil
}

func sysResize(k *Kernel, r *Registers) error {
	n, err := k.ResizeMemory(r.ES, r.BX)
	r.status(err)
	if err != nil {
		r.BX = n
	}
	return nil
}

func sysFindFirst(k *Kernel, r *Registers) error {
	r.status(k.FindFirst(k.str(r.DS, r.DX), uint8(r.CX)))
	return nil
}

func sysFindNext(k *Kernel, r *Registers) error {
	r.status(k.FindNext())
	return nil
}

func sysRename(k *Kernel, r *Registers) error {
	r.status(k.Rename(k.str(r.DS, r.DX), k.str(r.ES, r.DI)))
	return nil
}

func sysFileDate(k *Kernel, r *Registers) error {
	switch r.AL() {
	case 0x00:
		date, tm, err := k.GetFileDate(r.BX)
		r.status(err)
		if err == nil {
			r.CX = tm
			r.DX = date
		}
	case 0x01:
		r.status(k.SetFileDate(r.BX, r.DX, r.CX))
	default:
		r.status(k.fail(doserr.FunctionNumberInvalid))
	}
	return nil
}

func sysExtendedError(k *Kernel, r *Registers) error {
	r.AX = uint16(k.LastError())
	return nil
}

func sysCreateTemp(k *Kernel, r *Registers) error {
	h, name, err := k.CreateTempFile(k.str(r.DS, r.DX))
	r.status(err)
	if err == nil {
		k.Memory.SetString(memory.PhysMake(r.DS, r.DX), name)
		r.AX = h
	}
	return nil
}

func sysCreateNew(k *Kernel, r *Registers) error {
	name := k.str(r.DS, r.DX)
	if k.FileExists(name) {
		r.status(k.fail(doserr.FileExists))
		return nil
	}
	return sysCreate(k, r)
}

func sysTruename(k *Kernel, r *Registers) error {
	name, err := k.Canonicalize(k.str(r.DS, r.SI))
	r.status(err)
	if err == nil {
		k.Memory.SetString(memory.PhysMake(r.ES, r.DI), name)
	}
	return nil
}

func sysSetHandleCount(k *Kernel, r *Registers) error {
	err := k.SetNumFiles(r.BX)
	if err != nil {
		err = k.fail(doserr.InsufficientMemory)
	}
	r.status(err)
	return nil
}

func sysExtendedOpen(k *Kernel, r *Registers) error {
	h, status, err := k.OpenFileExtended(k.str(r.DS, r.SI), r.BL(), r.CL(), r.DL())
	r.status(err)
	if err == nil {
		r.AX = h
		r.CX = uint16(status)
	}
	return nil
}
