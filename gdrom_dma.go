// gdrom_dma.go - GD-ROM DMA engine (spec §4.6 "DMA protection", "Timing").
//
// Grounded on original_source/src/libwashdc/hw/gdrom/gdrom.c's
// gdrom_dma_prot_top/gdrom_dma_prot_bot formula and its scheduled
// completion-event shape, reimplemented against this core's Clock instead
// of washdc's SchedEvent.

package dcore

// beginDMATransfer starts a drive-to-host DMA of `data` into the address
// already latched in dmaWin.start, scheduling a completion event
// additional_dma_delay cycles out (spec §4.6 "Timing"). Chained transfers
// within a single READ are not modeled, so every transfer carries the
// nonzero initial latency spec §4.6 describes for "the first transfer
// after a READ".
func (g *GDROM) beginDMATransfer(data []byte, firstOfRead bool) {
	g.dmaWin.length = uint32(len(data))
	g.dmaWin.progress = 0
	g.dmaWin.dir = 1 // drive-to-host
	g.dmaWin.enable = true
	g.dmaWin.final = true
	g.dmaWin.startStamp = g.hostClock.Now()

	delay := g.additionalDMADelay
	if delay == 0 {
		delay = 1800 // spec leaves the exact nonzero constant unspecified; a small fixed latency stands in
	}

	g.statusFlags = statusDRDY | statusDSC | statusDRQ
	g.state = gdromDMAReading

	pending := data
	g.dmaWin.handle = g.hostClock.ScheduleRelative(delay, func(when CycleStamp, _ any) {
		if err := g.completeDMATransfer(pending); err != nil {
			g.lastErr = err
		}
	}, nil)
	g.dmaWin.completeStamp = g.hostClock.Now() + CycleStamp(delay)
}

// completeDMATransfer drains the transfer into main memory respecting the
// protection window, then raises a normal interrupt and returns to norm
// (spec §4.6 "dma_reading").
func (g *GDROM) completeDMATransfer(data []byte) error {
	g.state = gdromDMAReading
	top, bot := g.dmaProtTop(), g.dmaProtBot()

	addr := g.dmaWin.start
	for i := 0; i+3 < len(data); i += 4 {
		word := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16 | uint32(data[i+3])<<24
		if addr < top || addr > bot {
			return unimplemented("gdrom.dma-out-of-window", addr, 4, uint64(word))
		}
		if err := g.mem.Write32(addr, word); err != nil {
			return err
		}
		addr += 4
		g.dmaWin.progress += 4
	}

	g.dmaWin.enable = false
	g.statusFlags = statusDRDY | statusDSC
	g.state = gdromNorm
	g.interrupts()
	return nil
}

// dmaProgress interpolates the "bytes transferred so far" register
// linearly between the transfer's start and completion stamps (spec §4.6
// "Timing").
func (g *GDROM) dmaProgress(now CycleStamp) uint32 {
	if !g.dmaWin.enable {
		return g.dmaWin.length
	}
	total := uint64(g.dmaWin.completeStamp - g.dmaWin.startStamp)
	if total == 0 {
		return g.dmaWin.length
	}
	elapsed := uint64(now - g.dmaWin.startStamp)
	if elapsed >= total {
		return g.dmaWin.length
	}
	return uint32(uint64(g.dmaWin.length) * elapsed / total)
}
