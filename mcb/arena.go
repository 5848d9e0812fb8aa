package mcb

import (
	"fmt"
	"log/slog"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/memory"
)

const (
	// MemStart is the segment of the first MCB.
	MemStart = 0x0158

	// UMBStart is the segment of the MCB which links the
	// conventional chain to the upper memory blocks.
	UMBStart = 0x9FFF

	// NoUMB is the chain-start used when there are no UMBs.
	NoUMB = 0xFFFF

	// firstUMB is the segment of the first upper memory block.
	firstUMB = 0xD000

	// umbSize is the size of the upper memory area, in paragraphs.
	umbSize = 0x2000

	// maxChain is the number of blocks we'll walk before deciding
	// the chain is corrupt.
	maxChain = 0x10000
)

// allocation strategies, in the low bits.
const (
	FirstFit = 0x00
	BestFit  = 0x01
	LastFit  = 0x02

	// HighFirst tries upper memory first, then conventional.
	HighFirst = 0x80

	// HighOnly tries upper memory only.
	HighOnly = 0x40
)

// Arena manages the chain of memory control blocks.
type Arena struct {
	mem *memory.Memory

	// first is the segment of the first MCB.
	first uint16

	// umbStart is the segment the UMB chain begins at, from the
	// point of view of the conventional chain.
	umbStart uint16

	// umbLinked records whether the UMBs are part of the chain.
	umbLinked bool

	strategy uint16

	// owner returns the PSP allocations are made for.
	owner func() uint16

	// Logger is used for reporting problems.
	Logger *slog.Logger
}

// NewArena returns a new arena, with an empty chain.  Setup must be
// called before it can be used.
//
// Blocks are allocated on behalf of the PSP returned by the given
// function.
func NewArena(mem *memory.Memory, owner func() uint16, logger *slog.Logger) *Arena {
	return &Arena{
		mem:      mem,
		first:    MemStart,
		umbStart: NoUMB,
		owner:    owner,
		Logger:   logger,
	}
}

// First returns the segment of the first MCB.
func (a *Arena) First() uint16 {
	return a.first
}

// Setup creates the initial chain, for memory up to the given segment.
func (a *Arena) Setup(segLimit uint16) error {
	if segLimit > 0xA000 {
		segLimit = 0xA000
	}
	if segLimit < (192*1024)/16 {
		return fmt.Errorf("DOS requires at least 192K, have %dK", int(segLimit)*16/1024)
	}

	// A dummy device block
	dev := New(a.mem, MemStart)
	dev.SetPSP(DOS)
	dev.SetSize(1)
	dev.SetType(TypeMiddle)

	sizes := uint16(2)

	// A small empty block, as left by a growing environment.
	tmp := New(a.mem, MemStart+sizes)
	tmp.SetPSP(Free)
	tmp.SetSize(4)
	tmp.SetType(TypeMiddle)
	sizes += 5

	// Lock the previous empty block
	lock := New(a.mem, MemStart+sizes)
	lock.SetPSP(0x40)
	lock.SetSize(16)
	lock.SetType(TypeMiddle)
	sizes += 17

	// The rest of memory, leaving the last paragraph to link the UMBs.
	rest := New(a.mem, MemStart+sizes)
	rest.SetPSP(Free)
	rest.SetType(TypeLast)
	rest.SetSize((segLimit - 2) - MemStart - sizes)

	a.first = MemStart
	a.umbStart = NoUMB
	a.umbLinked = false
	return nil
}

// BuildUMBChain creates the upper memory blocks, which are not linked
// into the chain until Link is called.
func (a *Arena) BuildUMBChain() error {

	umb := New(a.mem, firstUMB)
	umb.SetPSP(Free)
	umb.SetSize(umbSize - 1)
	umb.SetType(TypeLast)

	// Find the last block
	m, err := a.last()
	if err != nil {
		return err
	}

	// A system block covers the gap between the chain and the UMBs.
	m.At(m.Next())
	m.SetType(TypeMiddle)
	m.SetPSP(DOS)
	m.SetSize(firstUMB - m.Segment() - 1)
	m.SetFileName("SC      ")

	a.umbStart = UMBStart
	a.umbLinked = false
	return nil
}

// last returns the final block of the conventional chain.
func (a *Arena) last() (*MCB, error) {
	m := New(a.mem, a.first)
	for count := 0; m.Type() != TypeLast; count++ {
		if count > maxChain || !m.Valid() {
			return nil, doserr.MCBDestroyed
		}
		m.At(m.Next())
	}
	return m, nil
}

// UMBStart returns the start of the UMB chain, or NoUMB.
func (a *Arena) UMBStart() uint16 {
	return a.umbStart
}

// Linked returns true if the UMBs are linked into the chain.
func (a *Arena) Linked() bool {
	return a.umbLinked
}

// Link links, or unlinks, the UMBs into the chain.
func (a *Arena) Link(state uint16) error {
	if a.umbStart != UMBStart {
		if a.umbStart != NoUMB {
			a.Logger.Error("corrupt UMB chain", slog.Int("start", int(a.umbStart)))
		}
		return doserr.FunctionNumberInvalid
	}

	if (state&1 == 1) == a.umbLinked {
		return nil
	}

	seg := a.first
	prevSeg := a.first
	m := New(a.mem, seg)
	for count := 0; seg != a.umbStart && m.Type() != TypeLast; count++ {
		if count > maxChain {
			return doserr.MCBDestroyed
		}
		prevSeg = seg
		seg = m.Next()
		m.At(seg)
	}
	prev := New(a.mem, prevSeg)

	switch state {
	case 0:
		if prev.Type() == TypeMiddle && seg == a.umbStart {
			prev.SetType(TypeLast)
		}
		a.umbLinked = false
	case 1:
		if m.Type() == TypeLast {
			if m.Next() != a.umbStart {
				a.Logger.Warn("MCB chain no longer goes to end of memory, not linking in UMB")
				return doserr.MCBDestroyed
			}
			m.SetType(TypeMiddle)
			a.umbLinked = true
		}
	default:
		return doserr.FunctionNumberInvalid
	}
	return nil
}

// Strategy returns the allocation strategy.
func (a *Arena) Strategy() uint16 {
	return a.strategy
}

// SetStrategy changes the allocation strategy.
func (a *Arena) SetStrategy(s uint16) error {
	if s&0x3F < 3 {
		a.strategy = s
		return nil
	}
	return doserr.FunctionNumberInvalid
}

// Compress merges adjacent free blocks.
func (a *Arena) Compress() error {
	m := New(a.mem, a.first)
	next := New(a.mem, 0)

	for count := 0; m.Type() != TypeLast; count++ {
		if count > maxChain || !m.Valid() {
			a.Logger.Error("MCB chain corrupted", slog.Int("segment", int(m.Segment())))
			return doserr.MCBDestroyed
		}
		next.At(m.Next())
		if m.PSP() == Free && next.PSP() == Free {
			m.SetSize(m.Size() + next.Size() + 1)
			m.SetType(next.Type())
		} else {
			m.At(m.Next())
		}
	}
	return nil
}

// ownerName returns the name of the program the PSP belongs to, from
// its own MCB.
func (a *Arena) ownerName(psp uint16) string {
	return New(a.mem, psp-1).FileName()
}

// split divides the free block m, giving the first blocks paragraphs to
// the current owner.
func (a *Arena) split(m *MCB, size, blocks uint16) {
	next := New(a.mem, m.Segment()+blocks+1)
	next.SetPSP(Free)
	next.SetType(m.Type())
	next.SetSize(size - blocks - 1)

	owner := a.owner()
	m.SetSize(blocks)
	m.SetType(TypeMiddle)
	m.SetPSP(owner)
	m.SetFileName(a.ownerName(owner))
}

// Allocate finds a free block of the given size, returning the segment
// of the memory.
//
// When there is no block large enough the size of the largest free
// block is returned along with InsufficientMemory.
func (a *Arena) Allocate(blocks uint16) (uint16, uint16, error) {
	if err := a.Compress(); err != nil {
		return 0, 0, err
	}

	bigsize := uint16(0)
	strat := a.strategy
	seg := a.first

	if a.umbStart == UMBStart {
		// start with UMBs if requested
		if strat&(HighFirst|HighOnly) != 0 {
			seg = a.umbStart
		}
	} else if a.umbStart != NoUMB {
		a.Logger.Error("corrupt UMB chain", slog.Int("start", int(a.umbStart)))
	}

	owner := a.owner()
	m := New(a.mem, 0)

	foundSeg := uint16(0)
	foundSize := uint16(0)

	for count := 0; ; count++ {
		if count > maxChain {
			return 0, 0, doserr.MCBDestroyed
		}
		m.At(seg)

		if !m.Valid() {
			return 0, 0, doserr.MCBDestroyed
		}

		if m.PSP() == Free {
			size := m.Size()

			switch {
			case size < blocks:
				if bigsize < size {
					bigsize = size
				}
			case size == blocks && strat&0x3F < LastFit:
				// Exact fit, for firstfit and bestfit
				m.SetPSP(owner)
				return seg + 1, 0, nil
			default:
				switch strat & 0x3F {
				case FirstFit:
					a.split(m, size, blocks)
					return seg + 1, 0, nil
				case BestFit:
					if foundSize == 0 || size < foundSize {
						foundSeg = seg
						foundSize = size
					}
				default:
					// lastfit records the final block which is large enough
					foundSeg = seg
					foundSize = size
				}
			}
		}

		if m.Type() != TypeLast {
			seg = m.Next()
			continue
		}

		// Try low memory after high
		if strat&HighFirst != 0 && a.umbStart == UMBStart {
			seg = a.first
			strat &^= (HighFirst | HighOnly)
			continue
		}

		if foundSeg == 0 {
			return 0, bigsize, doserr.InsufficientMemory
		}

		m.At(foundSeg)
		if strat&0x3F == BestFit {
			// allocate at the beginning of the block
			a.split(m, foundSize, blocks)
			return foundSeg + 1, 0, nil
		}

		// lastfit, allocate at the end of the block
		if foundSize == blocks {
			m.SetPSP(owner)
			m.SetFileName(a.ownerName(owner))
			return foundSeg + 1, 0, nil
		}

		start := foundSeg + 1 + foundSize - blocks
		tail := New(a.mem, start-1)
		tail.SetSize(blocks)
		tail.SetType(m.Type())
		tail.SetPSP(owner)
		tail.SetFileName(a.ownerName(owner))

		m.SetSize(foundSize - blocks - 1)
		m.SetPSP(Free)
		m.SetType(TypeMiddle)
		return start, 0, nil
	}
}

// Resize changes the size of the block at the given segment.
//
// If the block cannot grow large enough it is grown as far as possible,
// and the new size is returned with InsufficientMemory.
func (a *Arena) Resize(segment uint16, blocks uint16) (uint16, error) {
	if segment < MemStart+1 {
		a.Logger.Warn("program resizes low memory", slog.Int("segment", int(segment)))
	}

	m := New(a.mem, segment-1)
	if !m.Valid() {
		return 0, doserr.MCBDestroyed
	}

	if err := a.Compress(); err != nil {
		return 0, err
	}

	owner := a.owner()
	total := m.Size()
	next := New(a.mem, segment+total)

	if blocks <= total {
		if blocks == total {
			return blocks, nil
		}

		// Shrinking
		nn := New(a.mem, segment+blocks)
		m.SetSize(blocks)
		nn.SetType(m.Type())
		if m.Type() == TypeLast {
			// further blocks follow
			m.SetType(TypeMiddle)
		}
		nn.SetSize(total - blocks - 1)
		nn.SetPSP(Free)
		m.SetPSP(owner)
		return blocks, nil
	}

	// Growing, join with the following block if it's free.
	if m.Type() != TypeLast && next.PSP() == Free {
		total += next.Size() + 1
	}

	if blocks < total {
		if m.Type() != TypeLast {
			m.SetType(next.Type())
		}
		m.SetSize(blocks)
		next.At(segment + blocks)
		next.SetSize(total - blocks - 1)
		next.SetType(m.Type())
		next.SetPSP(Free)
		m.SetType(TypeMiddle)
		m.SetPSP(owner)
		return blocks, nil
	}

	// Either an exact fit, or as large as it can be
	if next.PSP() == Free && m.Type() != TypeLast {
		m.SetType(next.Type())
	}
	m.SetSize(total)
	m.SetPSP(owner)
	if blocks == total {
		return blocks, nil
	}
	return total, doserr.InsufficientMemory
}

// Free releases the block at the given segment.
func (a *Arena) Free(segment uint16) error {
	if segment < MemStart+1 {
		a.Logger.Error("program tried to free low memory", slog.Int("segment", int(segment)))
		return doserr.MBAddressInvalid
	}

	m := New(a.mem, segment-1)
	if !m.Valid() {
		return doserr.MBAddressInvalid
	}
	m.SetPSP(Free)
	return nil
}

// FreeProcess releases every block owned by the given PSP.
func (a *Arena) FreeProcess(psp uint16) error {
	m := New(a.mem, a.first)

	for count := 0; ; count++ {
		if count > maxChain || !m.Valid() {
			return doserr.MCBDestroyed
		}
		if m.PSP() == psp {
			m.SetPSP(Free)
		}
		if m.Type() == TypeLast {
			break
		}
		m.At(m.Next())
	}

	if a.umbStart == UMBStart {
		u := New(a.mem, a.umbStart)
		for count := 0; count <= maxChain; count++ {
			if u.PSP() == psp {
				u.SetPSP(Free)
			}
			if u.Type() != TypeMiddle {
				break
			}
			u.At(u.Next())
		}
	} else if a.umbStart != NoUMB {
		a.Logger.Error("corrupt UMB chain", slog.Int("start", int(a.umbStart)))
	}

	return a.Compress()
}

// Block describes one entry of the chain.
type Block struct {
	Segment uint16
	Type    uint8
	PSP     uint16
	Size    uint16
	Name    string
}

// Blocks returns the entries of the chain, including the UMBs if they
// are linked.
func (a *Arena) Blocks() ([]Block, error) {
	var out []Block

	m := New(a.mem, a.first)
	for count := 0; ; count++ {
		if count > maxChain || !m.Valid() {
			return out, doserr.MCBDestroyed
		}
		out = append(out, Block{
			Segment: m.Segment(),
			Type:    m.Type(),
			PSP:     m.PSP(),
			Size:    m.Size(),
			Name:    m.FileName(),
		})
		if m.Type() == TypeLast {
			return out, nil
		}
		m.At(m.Next())
	}
}

// Private is a simple allocator for the memory used by the kernel's
// own tables.  Memory is never released.
type Private struct {
	next uint16
	end  uint16
}

// NewPrivate returns an allocator for the segments between start and end.
func NewPrivate(start, end uint16) *Private {
	return &Private{next: start, end: end}
}

// Get returns the segment of a new allocation of the given number
// of paragraphs.
func (p *Private) Get(paras uint16) (uint16, error) {
	if uint32(paras)+uint32(p.next) >= uint32(p.end) {
		return 0, fmt.Errorf("not enough memory for internal tables, wanted %d paragraphs", paras)
	}
	seg := p.next
	p.next += paras
	return seg, nil
}
