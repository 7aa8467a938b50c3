// holly_regs.go - the per-cell register dispatch table backing Holly's
// 4-kilobyte register file (spec §4.7 "Backing store").
//
// Register offsets below follow the Dreamcast system-block layout's
// well-known names (SB_C2DSTAT/SB_C2DLEN/SB_C2DST, SB_SDSTAW/SB_SDBAAW/
// SB_SDST/SB_SDWLT/SB_SDLAS, SB_LMMODE0/1, SB_ISTNRM/EXT/ERR,
// SB_IML{2,4,6}{NRM,EXT,ERR}, SB_SBREV) so that spec §8 scenario 5's and
// 6's literal register names (SDSTAW, SDBAAW, SDST, LMMODE0) land on the
// cells this file actually wires, grounded on the teacher's registers.go
// address-to-device dispatch idiom generalized to a per-cell handler
// table per spec §4.7's "handler-per-cell" backing-store description.

package dcore

import "log/slog"

const (
	regC2DSTAT = 0x000
	regC2DLEN  = 0x004
	regC2DST   = 0x008

	regSDSTAW = 0x010
	regSDBAAW = 0x014
	regSDWLT  = 0x018
	regSDLAS  = 0x01c
	regSDST   = 0x020

	regLMMODE0 = 0x084
	regLMMODE1 = 0x088

	regISTNRM = 0x100
	regISTEXT = 0x104
	regISTERR = 0x108

	regIML2NRM = 0x110
	regIML2EXT = 0x114
	regIML2ERR = 0x118
	regIML4NRM = 0x120
	regIML4EXT = 0x124
	regIML4ERR = 0x128
	regIML6NRM = 0x130
	regIML6EXT = 0x134
	regIML6ERR = 0x138

	regSBREV = 0x09c
)

// wireCustomCells installs the "semantically important cells" spec §4.7
// names; every other offset falls through to the default warn-and-store
// behavior in holly's RegionOps.
func (h *Holly) wireCustomCells() {
	h.regWrite[regC2DSTAT] = func(v uint32) { h.channel2.srcAddr = v }
	h.regWrite[regC2DLEN] = func(v uint32) { h.channel2.length = v }
	h.regWrite[regC2DST] = func(v uint32) {
		if v&1 != 0 {
			if err := h.StartChannel2DMA(); err != nil {
				h.lastErr = err
			}
		}
	}
	h.regRead[regC2DST] = func() uint32 {
		if h.channel2.running {
			return 1
		}
		return 0
	}

	h.regWrite[regSDSTAW] = func(v uint32) { h.channel2.destAddr = v }
	h.regWrite[regSDBAAW] = func(v uint32) { h.sortDMA.tableAddr = v }
	h.regWrite[regSDST] = func(v uint32) {
		if v&1 != 0 {
			if err := h.RunSortDMA(); err != nil {
				h.lastErr = err
			}
		}
	}
	h.regRead[regSDST] = func() uint32 {
		if h.sortDMA.running {
			return 1
		}
		return 0
	}

	h.regWrite[regLMMODE0] = func(v uint32) { h.channel2.lmmode0 = uint8(v) }

	h.regWrite[regISTNRM] = func(v uint32) { h.interrupts.Clear(hollyIntNormal, v) }
	h.regRead[regISTNRM] = func() uint32 { return h.interrupts.pending[hollyIntNormal] }
	h.regWrite[regISTEXT] = func(v uint32) { h.interrupts.Clear(hollyIntExternal, v) }
	h.regRead[regISTEXT] = func() uint32 { return h.interrupts.pending[hollyIntExternal] }
	h.regWrite[regISTERR] = func(v uint32) { h.interrupts.Clear(hollyIntError, v) }
	h.regRead[regISTERR] = func() uint32 { return h.interrupts.pending[hollyIntError] }

	h.regWrite[regIML2NRM] = func(v uint32) { h.interrupts.SetMask(0, hollyIntNormal, v) }
	h.regWrite[regIML2EXT] = func(v uint32) { h.interrupts.SetMask(0, hollyIntExternal, v) }
	h.regWrite[regIML2ERR] = func(v uint32) { h.interrupts.SetMask(0, hollyIntError, v) }
	h.regWrite[regIML4NRM] = func(v uint32) { h.interrupts.SetMask(1, hollyIntNormal, v) }
	h.regWrite[regIML4EXT] = func(v uint32) { h.interrupts.SetMask(1, hollyIntExternal, v) }
	h.regWrite[regIML4ERR] = func(v uint32) { h.interrupts.SetMask(1, hollyIntError, v) }
	h.regWrite[regIML6NRM] = func(v uint32) { h.interrupts.SetMask(2, hollyIntNormal, v) }
	h.regWrite[regIML6EXT] = func(v uint32) { h.interrupts.SetMask(2, hollyIntExternal, v) }
	h.regWrite[regIML6ERR] = func(v uint32) { h.interrupts.SetMask(2, hollyIntError, v) }

	h.regRead[regSBREV] = func() uint32 { return 0x11 } // fixed revision, matches retail hardware
}

// LastError returns the fatal error raised by a DMA engine's memory
// access, if any.
func (h *Holly) LastError() error { return h.lastErr }

type hollyOps struct {
	UnimplementedOps
	h *Holly
}

// Ops returns the RegionOps for the system-block register window.
func (h *Holly) Ops() RegionOps { return hollyOps{UnimplementedOps{Name: "holly"}, h} }

func (o hollyOps) Read32(offset uint32) (uint32, error) {
	h := o.h
	if fn, ok := h.regRead[offset]; ok {
		return fn(), nil
	}
	slog.Debug("holly: warn-on-access register read", "offset", offset)
	return h.regs.Read32(offset)
}

func (o hollyOps) Write32(offset uint32, v uint32) error {
	h := o.h
	if fn, ok := h.regWrite[offset]; ok {
		fn(v)
		return h.regs.Write32(offset, v)
	}
	slog.Debug("holly: warn-on-access register write", "offset", offset, "value", v)
	return h.regs.Write32(offset, v)
}
