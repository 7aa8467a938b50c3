// gdrom_packet.go - GD-ROM ATAPI packet command dispatch (spec §4.6
// "Packet command dispatch").
//
// Grounded on original_source/src/libwashdc/hw/gdrom/gdrom.c's packet
// command switch (GDROM_PKT_TEST_UNIT/REQ_STAT/REQ_MODE/SET_MODE/
// REQ_ERROR/READ_TOC/REQ_SES/READ/PLAY/SEEK/SUBCODE/START_DISK and the
// vendor 0x71 command), reimplemented as a Go method table keyed by the
// first packet byte rather than a switch over a C enum, following the
// teacher's registers.go dispatch-table idiom (name/addr/handler rows)
// generalized to a command-code table.

package dcore

// Packet command codes (spec §4.6).
const (
	pktTestUnit   = 0x00
	pktReqStat    = 0x10
	pktReqMode    = 0x11
	pktSetMode    = 0x12
	pktReqError   = 0x13
	pktGetToc     = 0x14
	pktReqSession = 0x15
	pktStartDisk  = 0x70
	pktVendor71   = 0x71
	pktRead       = 0x30
	pktPlay       = 0x20
	pktSeek       = 0x21
	pktSubcode    = 0x40
)

// Sense keys (spec §4.6 "sense_key").
const (
	senseNoSense    = 0x0
	senseNotReady   = 0x2
	senseIllegalReq = 0x5
)

type packetHandler func(g *GDROM, pkt [12]byte)

var packetHandlers = map[byte]packetHandler{
	pktTestUnit:   (*GDROM).cmdTestUnit,
	pktReqStat:    (*GDROM).cmdReqStat,
	pktReqMode:    (*GDROM).cmdReqMode,
	pktSetMode:    (*GDROM).cmdSetMode,
	pktReqError:   (*GDROM).cmdReqError,
	pktGetToc:     (*GDROM).cmdGetToc,
	pktReqSession: (*GDROM).cmdReqSession,
	pktStartDisk:  (*GDROM).cmdStartDisk,
	pktVendor71:   (*GDROM).cmdVendor71,
	pktRead:       (*GDROM).cmdRead,
	pktPlay:       (*GDROM).cmdPlay,
	pktSeek:       (*GDROM).cmdSeek,
	pktSubcode:    (*GDROM).cmdSubcode,
}

// dispatchPacket runs the 12-byte packet buffer's command through the
// handler table, defaulting to an ABRT/illegal-request completion for
// anything unrecognized (spec §4.6 "an unrecognized packet command
// completes with CHECK set and sense key ILLEGAL_REQUEST").
func (g *GDROM) dispatchPacket() {
	h, ok := packetHandlers[g.packetBuffer[0]]
	if !ok {
		g.completeError(senseIllegalReq, 0x20)
		return
	}
	h(g, g.packetBuffer)
}

// completeError finishes the current command with CHECK set and the given
// sense key/additional-sense code latched for a following REQ_ERROR (spec
// §4.6).
func (g *GDROM) completeError(senseKey, additional uint8) {
	g.senseKey = senseKey
	g.additionalSense = additional
	g.statusFlags = statusDRDY | statusDSC | statusCHECK
	g.errorKind = errorABRT
	g.state = gdromNorm
	g.interrupts()
}

// completeNoData finishes a command that produces no response payload:
// BSY clears, DRQ stays clear (spec §8 invariant 5 is trivially satisfied
// since the queue is empty), a normal interrupt fires.
func (g *GDROM) completeNoData() {
	g.statusFlags = statusDRDY | statusDSC
	g.state = gdromNorm
	g.interrupts()
}

// completeWithData queues a response frame and begins the PIO read
// sequence that will drain it (spec §4.6 "pio_reading").
func (g *GDROM) completeWithData(data []byte) {
	g.pushFrame(data)
	g.beginPIORead(uint16(len(data)))
}

func (g *GDROM) cmdTestUnit(_ [12]byte) {
	if !g.mount.Check() {
		g.completeError(senseNotReady, 0x04)
		return
	}
	g.completeNoData()
}

// cmdReqStat is an interrupt-only stub: it completes with no data.
func (g *GDROM) cmdReqStat(_ [12]byte) {
	g.completeNoData()
}

func (g *GDROM) cmdReqMode(pkt [12]byte) {
	starting := pkt[2]
	length := int(pkt[4])
	// 32-byte mode info block; only the standby-time bytes and the ID string
	// carry values, every other byte reads zero.
	full := make([]byte, 32)
	full[0] = 0x00 // speed
	full[1] = 0x00
	full[2] = 0x00
	full[3] = 0x00
	full[4] = 0xb4 // standby time low default
	full[5] = 0x19
	full[6] = 0x00
	full[7] = 0x08
	copy(full[8:16], []byte("SEGA    "))
	if int(starting) >= len(full) {
		g.completeWithData(nil)
		return
	}
	out := full[starting:]
	if length < len(out) {
		out = out[:length]
	}
	g.completeWithData(out)
}

func (g *GDROM) cmdSetMode(pkt [12]byte) {
	starting := int(pkt[2])
	length := int(pkt[4])
	_ = starting
	g.setModeBytesRemain = length
	if length == 0 {
		g.completeNoData()
		return
	}
	g.statusFlags = statusDRDY | statusDSC | statusDRQ
	g.byteCount = uint16(length)
	g.interruptReason = 0 // CoD=0, IO=0: host is writing data to the device
	g.state = gdromSetModeData
}

// writeSetModeData accepts SET_MODE payload bytes written to the data
// register while in the set_mode_data state, completing once the
// programmed length has been consumed (spec §4.6).
func (g *GDROM) writeSetModeData(lo, hi byte) {
	if g.state != gdromSetModeData {
		return
	}
	g.setModeBytesRemain -= 2
	if g.setModeBytesRemain <= 0 {
		g.completeNoData()
	}
}

func (g *GDROM) cmdReqError(pkt [12]byte) {
	length := int(pkt[4])
	resp := make([]byte, 10)
	resp[2] = g.senseKey
	resp[8] = g.additionalSense
	if length > len(resp) {
		length = len(resp)
	}
	g.completeWithData(resp[:length])
}

func (g *GDROM) cmdGetToc(pkt [12]byte) {
	region := pkt[1] & 0x1
	length := uint16(pkt[3])<<8 | uint16(pkt[4])
	toc := make([]byte, 408)
	if err := g.mount.ReadTOC(toc, region); err != nil {
		g.completeError(senseNotReady, 0x04)
		return
	}
	if int(length) < len(toc) {
		toc = toc[:length]
	}
	g.completeWithData(toc)
}

func (g *GDROM) cmdReqSession(pkt [12]byte) {
	idx := int(pkt[2])
	trackNo, fad, err := g.mount.SessionStart(idx)
	if err != nil {
		g.completeError(senseNotReady, 0x04)
		return
	}
	resp := make([]byte, 6)
	resp[0] = 0 // drive_state
	resp[1] = 0
	if idx == 0 {
		resp[2] = 1 // session count, single-session stub
		fad = g.mount.Leadout()
	} else {
		resp[2] = byte(trackNo)
	}
	resp[3] = byte(fad >> 16)
	resp[4] = byte(fad >> 8)
	resp[5] = byte(fad)
	g.completeWithData(resp)
}

func (g *GDROM) cmdStartDisk(_ [12]byte) {
	g.completeNoData()
}

func (g *GDROM) cmdVendor71(pkt [12]byte) {
	// Vendor security-check command 0x71: replies with a fixed 80-byte
	// blob. (The identify path is ATA command 0xa1.)
	resp := make([]byte, 80)
	copy(resp, []byte("SE      "))
	g.completeWithData(resp)
}

func (g *GDROM) cmdRead(pkt [12]byte) {
	startFAD := uint32(pkt[2])<<16 | uint32(pkt[3])<<8 | uint32(pkt[4])
	sectorCount := uint32(pkt[8])<<16 | uint32(pkt[9])<<8 | uint32(pkt[10])
	if sectorCount == 0 {
		// Zero-length READ completes immediately with no data and no
		// additional interrupt side effect beyond normal completion
		// (spec §8 edge case).
		g.completeNoData()
		return
	}
	const sectorSize = 2048
	data := make([]byte, int(sectorCount)*sectorSize)
	if err := g.mount.ReadSectors(data, startFAD, sectorCount); err != nil {
		g.completeError(senseNotReady, 0x04)
		return
	}
	if g.dmaEnabled {
		g.pendingDMAData = data
		g.dmaWin.length = uint32(len(data))
		g.statusFlags = statusDRDY | statusDSC
		g.state = gdromDMAWaiting
		return
	}
	g.completeWithData(data)
}

func (g *GDROM) cmdPlay(_ [12]byte) {
	g.completeNoData()
}

func (g *GDROM) cmdSeek(_ [12]byte) {
	g.completeNoData()
}

func (g *GDROM) cmdSubcode(pkt [12]byte) {
	length := uint16(pkt[3])<<8 | uint16(pkt[4])
	resp := make([]byte, length)
	g.completeWithData(resp)
}
