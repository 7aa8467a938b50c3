// arm7.go - audio CPU register file (spec §3 "Audio CPU register file",
// §4.4). Grounded on the same per-CPU Execute()/register-file idiom as
// sh4.go; no ARM7-class core exists anywhere in the retrieved corpus, so
// the mode-bank contract follows spec.md directly.

package dcore

// CPSR mode field values (M[4:0]).
const (
	modeUser       = 0x10
	modeFIQ        = 0x11
	modeIRQ        = 0x12
	modeSupervisor = 0x13
	modeAbort      = 0x17
	modeUndefined  = 0x1b
	modeSystem     = 0x1f
)

// CPSR flag/control bits relevant here.
const (
	cpsrN   = 1 << 31
	cpsrZ   = 1 << 30
	cpsrC   = 1 << 29
	cpsrV   = 1 << 28
	cpsrI   = 1 << 7 // IRQ disable
	cpsrF   = 1 << 6 // fast-IRQ disable
	cpsrMask = 0x1f
)

// Exception vector offsets (spec §4.4 "Exception sources": "0 for reset and
// SWI, 0x1c for fast IRQ").
const (
	arm7VectorReset = 0x00
	arm7VectorSWI   = 0x00
	arm7VectorFIQ   = 0x1c
)

// ARM7 is the audio CPU: 16 visible registers, banked R13/R14 per
// privileged mode plus a full banked R8-R14 for FIQ mode, CPSR and five
// SPSRs, and a 2-deep visible pipeline (spec §3, §4.4).
type ARM7 struct {
	R    [16]uint32 // R0-R15 as currently visible (R15 == PC, always 2 instructions ahead)
	CPSR uint32

	// Banked low registers, valid only in FIQ mode.
	fiqR8_12    [5]uint32 // banked R8-R12 while in FIQ mode
	normalR8_12 [5]uint32 // the shared (non-FIQ) bank for all other modes

	// Banked R13 (SP) / R14 (LR), one pair per mode that has its own bank:
	// user/system share a bank, FIQ, IRQ, supervisor, abort, undefined.
	bankedR13 map[uint32]uint32
	bankedR14 map[uint32]uint32
	spsr      map[uint32]uint32 // no SPSR for user/system mode

	// Visible 2-instruction pipeline (spec §4.4 "Pipeline model").
	pipeline    [2]uint32
	pipelineLen int // 0, 1 or 2 valid entries

	Disabled   bool // external reset line held; PC "advances" only conceptually
	pendingFIQ bool
	execAddr   uint32 // address of the instruction currently being dispatched

	mem *MemoryMap

	CycleCount uint64
	Halted     bool
	lastErr    error
}

// NewARM7 creates an audio CPU wired to the given memory map, reset and
// ready to run.
func NewARM7(mem *MemoryMap) *ARM7 {
	c := &ARM7{mem: mem}
	c.Reset()
	return c
}

// Reset puts the CPU in supervisor mode with interrupts masked and the
// pipeline empty, per spec §4.4 "Exception sources: Reset (on enable)".
func (c *ARM7) Reset() {
	*c = ARM7{
		mem:       c.mem,
		bankedR13: map[uint32]uint32{},
		bankedR14: map[uint32]uint32{},
		spsr:      map[uint32]uint32{},
	}
	c.CPSR = modeSupervisor | cpsrI | cpsrF
	c.R[15] = arm7VectorReset
	c.refillPipeline()
}

func (c *ARM7) mode() uint32 { return c.CPSR & cpsrMask }

// setMode performs the bank swap spec §4.4 "Mode changes" describes:
// snapshot the outgoing mode's private registers from the visible file,
// then load the incoming mode's copies into the visible file.
func (c *ARM7) setMode(newMode uint32) {
	oldMode := c.mode()
	if oldMode == newMode {
		return
	}

	if oldMode == modeFIQ {
		copy(c.fiqR8_12[:], c.R[8:13])
	} else {
		copy(c.normalR8_12[:], c.R[8:13])
	}
	if oldMode != modeUser && oldMode != modeSystem {
		c.bankedR13[oldMode] = c.R[13]
		c.bankedR14[oldMode] = c.R[14]
	} else {
		c.bankedR13[modeUser] = c.R[13]
		c.bankedR14[modeUser] = c.R[14]
	}

	c.CPSR = (c.CPSR &^ cpsrMask) | newMode

	if newMode == modeFIQ {
		copy(c.R[8:13], c.fiqR8_12[:])
	} else {
		copy(c.R[8:13], c.normalR8_12[:])
	}

	if newMode == modeUser || newMode == modeSystem {
		c.R[13] = c.bankedR13[modeUser]
		c.R[14] = c.bankedR14[modeUser]
	} else {
		c.R[13] = c.bankedR13[newMode]
		c.R[14] = c.bankedR14[newMode]
	}
}

// setCPSR writes the whole status register, triggering a mode-bank swap if
// the mode field changed (spec §4.4 "Mode changes").
func (c *ARM7) setCPSR(v uint32) {
	newMode := v & cpsrMask
	if newMode != c.mode() {
		c.setMode(newMode)
	}
	c.CPSR = v&^cpsrMask | newMode
}

func (c *ARM7) flagN() bool { return c.CPSR&cpsrN != 0 }
func (c *ARM7) flagZ() bool { return c.CPSR&cpsrZ != 0 }
func (c *ARM7) flagC() bool { return c.CPSR&cpsrC != 0 }
func (c *ARM7) flagV() bool { return c.CPSR&cpsrV != 0 }

func (c *ARM7) setFlags(n, z, cf, v bool) {
	c.CPSR &^= cpsrN | cpsrZ | cpsrC | cpsrV
	if n {
		c.CPSR |= cpsrN
	}
	if z {
		c.CPSR |= cpsrZ
	}
	if cf {
		c.CPSR |= cpsrC
	}
	if v {
		c.CPSR |= cpsrV
	}
}

// condPass evaluates the 4-bit condition field against N/Z/C/V (spec §4.4
// "Condition codes").
func (c *ARM7) condPass(cond uint32) bool {
	switch cond {
	case 0x0: // EQ
		return c.flagZ()
	case 0x1: // NE
		return !c.flagZ()
	case 0x2: // CS
		return c.flagC()
	case 0x3: // CC
		return !c.flagC()
	case 0x4: // MI
		return c.flagN()
	case 0x5: // PL
		return !c.flagN()
	case 0x6: // VS
		return c.flagV()
	case 0x7: // VC
		return !c.flagV()
	case 0x8: // HI
		return c.flagC() && !c.flagZ()
	case 0x9: // LS
		return !c.flagC() || c.flagZ()
	case 0xa: // GE
		return c.flagN() == c.flagV()
	case 0xb: // LT
		return c.flagN() != c.flagV()
	case 0xc: // GT
		return !c.flagZ() && c.flagN() == c.flagV()
	case 0xd: // LE
		return c.flagZ() || c.flagN() != c.flagV()
	case 0xe: // AL
		return true
	default: // 0xf: reserved, never executes
		return false
	}
}

// RaiseFIQ marks the fast-IRQ line pending; delivery happens at the start
// of the next instruction step if CPSR.F is clear (spec §4.4 "Exception
// sources").
func (c *ARM7) RaiseFIQ() {
	c.pendingFIQ = true
}

// refillPipeline empties and refetches both pipeline slots, as any
// branch/exception must (spec §4.4 "Pipeline model").
func (c *ARM7) refillPipeline() {
	c.pipelineLen = 0
	for c.pipelineLen < 2 {
		w, err := c.mem.Read32(c.R[15])
		if err != nil {
			c.lastErr = err
			c.Halted = true
			return
		}
		c.pipeline[c.pipelineLen] = w
		c.pipelineLen++
		c.R[15] += 4
	}
}
