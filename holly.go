// holly.go - the Holly system block: interrupt controller plus the two
// DMA engines, tied together behind one register-mapped region (spec
// §4.7).

package dcore

// Normal-class interrupt source bits this core models (spec §4.7 names
// sources as enums without bit positions; these positions in the
// normal-interrupt pending register are this core's own assignment, used
// consistently by the controller and every raiser).
const (
	hollyIntCh2DMAComplete   = 1 << 19
	hollyIntSortDMAComplete  = 1 << 17
	hollyIntGDROMComplete    = 1 << 0
)

// Holly is the system block aggregate: the interrupt controller, the
// Channel-2 and Sort-DMA engines, and the 4-kilobyte register file spec
// §4.7 "Backing store" describes.
type Holly struct {
	interrupts *HollyInterrupts
	channel2   channel2DMA
	sortDMA    sortDMA

	regs      *ByteStore // the 4KB warn-on-access-by-default cell file
	regWrite  map[uint32]func(v uint32)
	regRead   map[uint32]func() uint32

	mem         *MemoryMap
	graphics    Graphics
	hostClock   *Clock
	hostFreqHz  uint64

	lastErr error
}

// NewHolly constructs the system block wired against main memory, a
// graphics sink, and the host clock it schedules DMA completions on.
func NewHolly(mem *MemoryMap, graphics Graphics, hostClock *Clock, hostFreqHz uint64) *Holly {
	h := &Holly{
		interrupts: newHollyInterrupts(),
		regs:       NewByteStore("holly-regs", 0x1000),
		regWrite:   make(map[uint32]func(v uint32)),
		regRead:    make(map[uint32]func() uint32),
		mem:        mem,
		graphics:   graphics,
		hostClock:  hostClock,
		hostFreqHz: hostFreqHz,
	}
	h.wireCustomCells()
	return h
}

// Interrupts exposes the controller for wiring to the host CPU and for
// other devices (AICA, GD-ROM) to raise their own normal-interrupt bits
// through one shared pending register.
func (h *Holly) Interrupts() *HollyInterrupts { return h.interrupts }
