// gdrom_drive.go - the GD-ROM ATAPI state machine and status/error/ATA-task
// registers (spec §3 "GD-ROM state", §4.6).
//
// Grounded on original_source/src/libwashdc/hw/gdrom/gdrom.c's state enum
// and transition shape (gdrom_state_transition, the norm/input_pkt/
// pio_read_delay/pio_reading/dma_waiting/dma_reading cycle) and on
// gdrom_reg.cpp's per-register dispatch table idiom, reimplemented against
// this core's RegionOps/Scheduler rather than washdc's own bus/exception
// plumbing. No pack example repo implements ATAPI, so the per-file split
// (drive state machine / packet dispatch / DMA engine) follows the
// teacher's per-concern file convention instead.

package dcore

// gdromState enumerates the ATAPI transfer states spec §3 names.
type gdromState int

const (
	gdromNorm gdromState = iota
	gdromAwaitPacket
	gdromSetModeData
	gdromPIODelay
	gdromPIOReading
	gdromDMAWaiting
	gdromDMAReading
)

// Status register bits (spec §6).
const (
	statusBSY   = 1 << 7
	statusDRDY  = 1 << 6
	statusDF    = 1 << 5
	statusDSC   = 1 << 4
	statusDRQ   = 1 << 3
	statusCORR  = 1 << 2
	statusCHECK = 1 << 0
)

// Error register bits (spec §6).
const (
	errorABRT = 1 << 2
	errorEOMF = 1 << 1
	errorILI  = 1 << 0
)

// dmaWindow is the GD-ROM DMA engine's transfer descriptor (spec §3
// "dma_window").
type dmaWindow struct {
	start    uint32 // zero out of reset; the hardware power-on value is not defined
	length   uint32
	dir      uint32 // 0 = host-to-drive, 1 = drive-to-host, per spec's packet convention
	enable   bool
	progress uint32
	final    bool

	startStamp    CycleStamp
	completeStamp CycleStamp
	handle        EventHandle
}

// readMeta tracks an in-progress PIO transfer's accounting (spec §3
// "read_meta").
type readMeta struct {
	byteCount uint16
	bytesRead uint16
}

// GDROM is the full drive state spec §3 "GD-ROM state" describes.
type GDROM struct {
	state gdromState

	statusFlags    uint8
	errorKind      uint8
	features       uint8
	sectorCountReg uint8 // sector_count_mode: interrupt-reason on read, transfer-mode select on write
	interruptReason uint8
	deviceControl  uint8
	byteCount      uint16
	driveSelect    uint8

	dmaWin dmaWindow

	packetBuffer      [12]byte
	nBytesReceived    int
	senseKey          uint8
	additionalSense   uint8

	bufQueue [][]byte // FIFO of frames produced by command handlers

	readMetaState      readMeta
	setModeBytesRemain int

	// Supplemented fields (SPEC_FULL §3.1, from original_source's gdrom_reg.cpp).
	gdaproReg  uint32 // DMA protection register: bits 0-6 bot, bits 8-14 top
	dmaEnabled bool   // G1_ATA DMA-enable latch (SET_FEATURES subcommand 0x03)

	additionalDMADelay uint64
	firstDMATransfer   bool
	pendingDMAData     []byte // payload latched by a READ while dma_waiting for the DMA-start register write

	mem        *MemoryMap // main RAM, for DMA transfers
	hostClock  *Clock
	interrupts func() // called on normal-interrupt completion; wired by system.go to Holly's GD-ROM IRQ source
	mount      Mount   // disc-image collaborator (spec §6); defaults to NullMount until system.go wires a real one

	lastErr error // fatal error from a scheduled DMA completion, mirroring SH4/ARM7's LastError convention
}

// LastError returns the fatal error that halted DMA processing, if any.
func (g *GDROM) LastError() error { return g.lastErr }

// NewGDROM creates a drive in the idle state with DRDY set, matching a
// powered-up, ready optical drive.
func NewGDROM(mem *MemoryMap, hostClock *Clock) *GDROM {
	return &GDROM{
		state:       gdromNorm,
		statusFlags: statusDRDY | statusDSC,
		gdaproReg:   0x00007f00, // GDROM_GDAPRO_DEFAULT (original_source gdrom.c:73)
		mem:         mem,
		hostClock:   hostClock,
		interrupts:  func() {},
		mount:       NullMount{},
	}
}

// SetInterruptHandler wires the drive's normal-interrupt signal to the
// system's interrupt controller (spec §4.6 "a normal interrupt is raised").
func (g *GDROM) SetInterruptHandler(fn func()) { g.interrupts = fn }

// SetMount wires the disc-image collaborator spec §6 specifies; until
// called, the drive behaves as if no disc were loaded (NullMount).
func (g *GDROM) SetMount(m Mount) { g.mount = m }

// dmaProtTop / dmaProtBot decode the protection-window register exactly per
// spec §4.6's literal formula.
func (g *GDROM) dmaProtTop() uint32 {
	return ((g.gdaproReg >> 8) & 0x7f << 20) | 0x08000000
}

func (g *GDROM) dmaProtBot() uint32 {
	return (g.gdaproReg&0x7f)<<20 | 0x080fffff
}

// pushFrame enqueues a response frame to be drained by PIO reads or DMA.
func (g *GDROM) pushFrame(data []byte) {
	g.bufQueue = append(g.bufQueue, data)
}

// totalQueuedBytes sums the remaining unconsumed bytes across the queue.
func (g *GDROM) totalQueuedBytes() int {
	total := 0
	for _, f := range g.bufQueue {
		total += len(f)
	}
	return total
}

// beginPIORead transitions into the PIO read sequence for a queued response,
// setting BSY/DRQ per spec §4.6's pio_delay -> pio_reading handoff.
func (g *GDROM) beginPIORead(byteCount uint16) {
	g.readMetaState = readMeta{byteCount: byteCount}
	g.statusFlags = statusDRDY | statusDSC | statusDRQ
	g.byteCount = byteCount
	g.interruptReason = 1 << 1 // CoD=0, IO=1: data is flowing device-to-host
	g.state = gdromPIOReading
}

// readDataRegister drains one 16-bit word from the head of the buffer
// queue, advancing read_meta and transitioning to norm once drained (spec
// §4.6 pio_reading transition rule).
func (g *GDROM) readDataRegister() uint16 {
	if g.state != gdromPIOReading || len(g.bufQueue) == 0 {
		return 0
	}
	frame := g.bufQueue[0]
	var lo, hi byte
	if len(frame) > 0 {
		lo = frame[0]
		frame = frame[1:]
	}
	if len(frame) > 0 {
		hi = frame[0]
		frame = frame[1:]
	}
	if len(frame) == 0 {
		g.bufQueue = g.bufQueue[1:]
	} else {
		g.bufQueue[0] = frame
	}

	g.readMetaState.bytesRead += 2
	if g.readMetaState.bytesRead >= g.readMetaState.byteCount {
		if len(g.bufQueue) > 0 {
			g.state = gdromPIODelay
		} else {
			g.statusFlags = statusDRDY | statusDSC
			g.state = gdromNorm
			g.interrupts()
		}
	}
	return uint16(lo) | uint16(hi)<<8
}

// BSY/DRQ invariant checker (spec §8 testable property 5): DRQ is asserted
// only when bytes remain in the buffer queue.
func (g *GDROM) drqConsistentWithQueue() bool {
	drq := g.statusFlags&statusDRQ != 0
	return drq == (g.totalQueuedBytes() > 0 && g.state == gdromPIOReading)
}
