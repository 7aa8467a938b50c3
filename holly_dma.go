// holly_dma.go - Channel-2 DMA and Sort-DMA engines (spec §4.7).
//
// Grounded on spec.md's literal timing formula for Channel-2 DMA and the
// link-table-walk description for Sort-DMA; no pack repo implements a
// tile-accelerator feed, so the engines are built directly from spec.md
// against this core's MemoryMap/Clock/Graphics collaborators.

package dcore

// channel2DMA is the straightforward main-RAM-to-graphics-bus burst (spec
// §4.7 "Channel-2 DMA").
type channel2DMA struct {
	srcAddr, destAddr, length uint32
	lmmode0                   uint8
	running                   bool
}

// tileAccelAddrBase is the texture-window base the destAddr is relative
// to; the graphics bus windows beyond this core's scope are addressed
// symbolically through the Graphics interface rather than a real memory
// region.
const tileAccelAddrBase = 0x10000000

// channel2TransferCycles implements spec §8 scenario 6's literal timing
// formula, converting the computed seconds into host cycles.
func channel2TransferCycles(lengthBytes uint32, hostFreqHz uint64) uint64 {
	const bytesPerBurstCycle = 50.0 * 1024 * 1024 / 4.0
	seconds := (float64(lengthBytes)*0.019373669 + 10.9678658) / bytesPerBurstCycle
	return uint64(seconds * float64(hostFreqHz))
}

// StartChannel2DMA performs the copy synchronously (spec §4.7: "Executes
// synchronously") and schedules the completion interrupt at the moment a
// real burst of this length would have finished, so the observable timing
// matches spec §8 scenario 6 even though the bytes land immediately.
func (h *Holly) StartChannel2DMA() error {
	c := &h.channel2
	c.running = true
	buf := make([]byte, c.length)
	for i := uint32(0); i < c.length; i++ {
		b, err := h.mem.Read8(c.srcAddr + i)
		if err != nil {
			return err
		}
		buf[i] = b
	}
	for i, b := range buf {
		h.graphics.TexMemWrite32(c.destAddr+uint32(i), uint32(b))
	}

	delay := channel2TransferCycles(c.length, h.hostFreqHz)
	h.hostClock.ScheduleRelative(delay, func(when CycleStamp, _ any) {
		c.running = false
		h.interrupts.Raise(hollyIntNormal, hollyIntCh2DMAComplete)
	}, nil)
	return nil
}

// Sort-DMA link-table sentinels (spec §4.7).
const (
	sortDMALinkEndOfChain = 1
	sortDMALinkEndOfAll   = 2
)

// sortDMA walks a software-supplied link table feeding the tile
// accelerator in back-to-front sorted order (spec §4.7 "Sort-DMA").
type sortDMA struct {
	tableAddr uint32 // SDBAAW
	running   bool
}

// RunSortDMA executes the full link-table walk to completion synchronously
// and schedules the sort-DMA-complete interrupt, per spec §4.7's
// description (no partial-progress register is specified for this engine,
// unlike Channel-2 and GD-ROM DMA).
func (h *Holly) RunSortDMA() error {
	s := &h.sortDMA
	s.running = true

	entryAddr := s.tableAddr
	var lastVertexLen uint32 = 32 // fallback before any header packet is seen

outer:
	for {
		link, err := h.mem.Read32(entryAddr)
		if err != nil {
			return err
		}
		switch link {
		case sortDMALinkEndOfAll:
			break outer
		case sortDMALinkEndOfChain:
			entryAddr += 4
			continue
		}

		cur := link
		for {
			control, err := h.mem.Read32(cur)
			if err != nil {
				return err
			}
			opcode := control & 0xff
			isHeader := opcode == 0

			var length, dataOffset uint32
			if isHeader {
				lenField, err := h.mem.Read32(cur + 4)
				if err != nil {
					return err
				}
				length = lenField
				lastVertexLen = length
				dataOffset = 8 // control word + length word
			} else {
				length = lastVertexLen
				dataOffset = 4 // control word only
			}

			for off := uint32(0); off < length; off += 4 {
				word, err := h.mem.Read32(cur + dataOffset + off)
				if err != nil {
					return err
				}
				h.graphics.TAFIFOInput(word)
			}

			next, err := h.mem.Read32(cur + dataOffset + length)
			if err != nil {
				return err
			}
			if next == sortDMALinkEndOfChain {
				entryAddr += 4
				break
			}
			if next == sortDMALinkEndOfAll {
				break outer
			}
			cur = next
		}
	}

	s.running = false
	h.hostClock.ScheduleRelative(1, func(when CycleStamp, _ any) {
		h.interrupts.Raise(hollyIntNormal, hollyIntSortDMAComplete)
	}, nil)
	return nil
}
