// gdrom_regs.go - memory-mapped register dispatch for the GD-ROM ATA task
// file (spec §6 "GD-ROM register layout", offsets from 0x5f7000) and the
// expansion-bus DMA control registers at 0x5f7400 (spec §6 "expansion bus
// 1 / GD-ROM DMA registers").
//
// Grounded on original_source/src/hw/gdrom/gdrom_reg.cpp's per-register
// dispatch table idiom, reimplemented against this core's RegionOps
// interface (memory_map.go) instead of washdc's own mmio table.

package dcore

// ATA task-file register offsets, relative to the 0x5f7000 base.
const (
	ataRegData           = 0x80 // data, 16-bit
	ataRegError          = 0x84 // error (r) / features (w)
	ataRegIntReasonCount = 0x88 // interrupt-reason (r) / sector-count (w)
	ataRegSectorNumber   = 0x8c
	ataRegByteCountLow   = 0x90
	ataRegByteCountHigh  = 0x94
	ataRegDriveSelect    = 0x98
	ataRegStatusCommand  = 0x9c // status (r) / command (w)
	ataRegAltStatusDevCtl = 0x18c // alt-status (r) / device-control (w)
)

// Expansion-bus DMA control register offsets, relative to the 0x5f7400 base.
const (
	dmaRegStartAddr  = 0x04
	dmaRegLength     = 0x08
	dmaRegDirection  = 0x0c
	dmaRegEnable     = 0x14
	dmaRegStart      = 0x18
	dmaRegProtection = 0x80 // GDAPRO
)

type gdromOps struct {
	UnimplementedOps
	g *GDROM
}

// Ops returns the RegionOps for the ATA task-file window (0x5f7000..0x5f70ff).
func (g *GDROM) Ops() RegionOps {
	return gdromOps{UnimplementedOps: UnimplementedOps{Name: "gdrom"}, g: g}
}

func (o gdromOps) Read8(offset uint32) (uint8, error) {
	g := o.g
	switch offset {
	case ataRegStatusCommand, ataRegAltStatusDevCtl:
		return g.statusFlags, nil
	case ataRegError:
		return g.senseKey<<4 | g.errorKind, nil
	case ataRegIntReasonCount:
		return g.interruptReason, nil
	case ataRegSectorNumber:
		return uint8(g.state), nil
	case ataRegByteCountLow:
		return uint8(g.byteCount), nil
	case ataRegByteCountHigh:
		return uint8(g.byteCount >> 8), nil
	case ataRegDriveSelect:
		return g.driveSelect, nil
	}
	return o.UnimplementedOps.Read8(offset)
}

func (o gdromOps) Write8(offset uint32, v uint8) error {
	g := o.g
	switch offset {
	case ataRegStatusCommand:
		g.beginCommand(v)
		return nil
	case ataRegAltStatusDevCtl:
		g.deviceControl = v
		return nil
	case ataRegError:
		g.features = v
		g.dmaEnabled = v&0x01 != 0
		return nil
	case ataRegIntReasonCount:
		g.sectorCountReg = v
		return nil
	case ataRegByteCountLow:
		g.byteCount = g.byteCount&0xff00 | uint16(v)
		return nil
	case ataRegByteCountHigh:
		g.byteCount = g.byteCount&0x00ff | uint16(v)<<8
		return nil
	case ataRegDriveSelect:
		g.driveSelect = v
		return nil
	}
	return o.UnimplementedOps.Write8(offset, v)
}

func (o gdromOps) Read16(offset uint32) (uint16, error) {
	g := o.g
	if offset == ataRegData {
		return g.readDataRegister(), nil
	}
	return o.UnimplementedOps.Read16(offset)
}

func (o gdromOps) Write16(offset uint32, v uint16) error {
	g := o.g
	if offset == ataRegData {
		g.writePacketOrData(v)
		return nil
	}
	return o.UnimplementedOps.Write16(offset, v)
}

// ATA command-register codes relevant to this core (spec §4.6 "norm").
const (
	ataCmdPacket      = 0xa0
	ataCmdIdentify    = 0xa1
	ataCmdSetFeatures = 0xef
)

// beginCommand dispatches a command-register write (spec §4.6 "norm"):
// PACKET arms await_packet to receive the 12-byte packet over the data
// register; IDENTIFY queues a fixed 80-byte response and schedules the
// pio_delay -> pio_reading handoff; SET_FEATURES records a transfer-mode
// selection from the sector-count register.
func (g *GDROM) beginCommand(cmd uint8) {
	switch cmd {
	case ataCmdPacket:
		g.nBytesReceived = 0
		g.statusFlags = statusDRDY | statusDSC | statusDRQ
		g.interruptReason = 1 << 0 // CoD=1: command bytes incoming
		g.state = gdromAwaitPacket
	case ataCmdIdentify:
		g.beginIdentify()
	case ataCmdSetFeatures:
		g.dmaEnabled = g.sectorCountReg&0x01 != 0
		g.completeNoData()
	default:
		g.statusFlags = statusDRDY | statusDSC
		g.interrupts()
	}
}

// identifyResponse is the fixed 80-byte (40-word) response spec §8
// scenario 2 drains and compares against a captured golden response. Its
// exact field layout beyond the model/serial identification bytes is not
// specified, so the remainder is zero-filled.
func identifyResponse() []byte {
	resp := make([]byte, 80)
	copy(resp, []byte("SE      "))
	return resp
}

// beginIdentify queues the identify frame and schedules the pio_delay ->
// pio_reading handoff spec §4.6 describes for "norm" -> IDENTIFY: status
// stays busy with DRQ clear until the scheduled event fires.
func (g *GDROM) beginIdentify() {
	g.pushFrame(identifyResponse())
	g.statusFlags = statusBSY
	g.state = gdromPIODelay
	g.hostClock.ScheduleRelative(1, func(when CycleStamp, _ any) {
		pending := g.totalQueuedBytes()
		byteCount := pending
		if byteCount > 0x8000 {
			byteCount = 0x8000
		}
		g.beginPIORead(uint16(byteCount))
		g.interrupts()
	}, nil)
}

// writePacketOrData routes a 16-bit data-register write to either packet
// assembly (await_packet) or SET_MODE payload consumption
// (set_mode_data), per spec §4.6's state list.
func (g *GDROM) writePacketOrData(v uint16) {
	switch g.state {
	case gdromAwaitPacket:
		lo, hi := byte(v), byte(v>>8)
		g.packetBuffer[g.nBytesReceived] = lo
		g.packetBuffer[g.nBytesReceived+1] = hi
		g.nBytesReceived += 2
		if g.nBytesReceived >= len(g.packetBuffer) {
			g.statusFlags = statusBSY
			g.dispatchPacket()
		}
	case gdromSetModeData:
		g.writeSetModeData(byte(v), byte(v>>8))
	}
}

// gdromDMAOps dispatches the expansion-bus DMA control window
// (0x5f7400..0x5f74ff).
type gdromDMAOps struct {
	UnimplementedOps
	g *GDROM
}

// DMAOps returns the RegionOps for the expansion-bus DMA control window.
func (g *GDROM) DMAOps() RegionOps {
	return gdromDMAOps{UnimplementedOps: UnimplementedOps{Name: "gdrom-dma"}, g: g}
}

func (o gdromDMAOps) Read32(offset uint32) (uint32, error) {
	g := o.g
	switch offset {
	case dmaRegStartAddr:
		return g.dmaWin.start, nil
	case dmaRegLength:
		return g.dmaProgress(g.hostClock.Now()), nil
	case dmaRegDirection:
		return g.dmaWin.dir, nil
	case dmaRegEnable:
		if g.dmaWin.enable {
			return 1, nil
		}
		return 0, nil
	case dmaRegProtection:
		return g.gdaproReg, nil
	}
	return o.UnimplementedOps.Read32(offset)
}

func (o gdromDMAOps) Write32(offset uint32, v uint32) error {
	g := o.g
	switch offset {
	case dmaRegStartAddr:
		g.dmaWin.start = v
		return nil
	case dmaRegLength:
		g.dmaWin.length = v
		return nil
	case dmaRegDirection:
		g.dmaWin.dir = v
		return nil
	case dmaRegEnable:
		g.dmaWin.enable = v&1 != 0
		return nil
	case dmaRegStart:
		if v&1 != 0 && g.state == gdromDMAWaiting && g.pendingDMAData != nil {
			data := g.pendingDMAData
			g.pendingDMAData = nil
			g.beginDMATransfer(data, true)
		}
		return nil
	case dmaRegProtection:
		g.gdaproReg = v
		return nil
	}
	return o.UnimplementedOps.Write32(offset, v)
}
