// arm7_exec.go - audio CPU instruction interpretation (spec §4.4).
//
// Implements fetch/decode/handler per spec's `fetch(cpu) -> (instruction,
// extra_cycles)` / `decode(instruction) -> handler_fn` contract. Like
// sh4_exec.go, the opcode table is a representative subset (data-processing
// core ops, load/store word, branch, SWI) rather than the full ARM7 ISA;
// anything else decodes to an UnimplementedError.

package dcore

// Execute runs instructions until at least `countdown` cycles have been
// consumed, or the CPU halts. Matches the Clock dispatchFn contract.
func (c *ARM7) Execute(countdown uint64) uint64 {
	var consumed uint64
	for consumed < countdown && !c.Halted {
		if c.Disabled {
			// PC conceptually advances but no dispatch happens (spec §4.4
			// "Disabled state").
			return countdown
		}
		cycles, err := c.step()
		if err != nil {
			c.Halted = true
			c.lastErr = err
			return consumed
		}
		consumed += uint64(cycles)
		c.CycleCount += uint64(cycles)
	}
	return consumed
}

func (c *ARM7) LastError() error { return c.lastErr }

// step executes the instruction currently decoded (pipeline[0]), then
// fetches the next one into the pipeline, keeping PC two instructions
// ahead of the one just executed (spec §4.4 "Pipeline model").
func (c *ARM7) step() (uint32, error) {
	if c.pendingFIQ && c.CPSR&cpsrF == 0 {
		c.pendingFIQ = false
		c.enterException(modeFIQ, arm7VectorFIQ, cpsrF)
		return 3, nil
	}

	// R[15] is two instructions ahead of pipeline[0] at this point; capture
	// that instruction's real address before advancing the pipeline, since
	// decode/branch/exception entry all need the address of the
	// instruction being dispatched, not of whatever gets fetched next.
	c.execAddr = c.R[15] - 8

	inst := c.pipeline[0]
	c.pipeline[0] = c.pipeline[1]

	next, err := c.mem.Read32(c.R[15])
	if err != nil {
		return 0, err
	}
	c.pipeline[1] = next
	c.R[15] += 4

	return c.decode(inst)
}

// enterException performs the save/mode-switch/vector-jump spec §4.4
// "Exception sources" describes: CPSR -> SPSR, mode forced, interrupts of
// this priority masked, R15+4 into LR (R15 as currently visible, which
// already reads ahead of the instruction about to be preempted), jump to
// the mode vector, pipeline refilled.
func (c *ARM7) enterException(mode uint32, vector uint32, maskBit uint32) {
	savedCPSR := c.CPSR
	// Spec §4.4 "Exception sources": write PC+4 into the mode's link
	// register, PC being whatever is currently software-visible in R15.
	linkValue := c.R[15] + 4
	c.setMode(mode)
	c.spsr[mode] = savedCPSR
	c.CPSR |= maskBit | cpsrI
	c.R[14] = linkValue
	c.R[15] = vector
	c.refillPipeline()
}

// decode dispatches a single 32-bit ARM7 word. Predication is applied
// uniformly: a failed condition still consumes a cycle but performs no
// register/memory effect (spec §4.4 "Condition codes").
func (c *ARM7) decode(inst uint32) (uint32, error) {
	cond := (inst >> 28) & 0xf
	if !c.condPass(cond) {
		return 1, nil
	}

	switch {
	case inst&0x0f000000 == 0x0f000000: // SWI
		c.enterException(modeSupervisor, arm7VectorSWI, 0)
		return 3, nil
	case inst&0x0e000000 == 0x0a000000: // B/BL
		return c.branch(inst)
	case inst&0x0c000000 == 0x00000000: // data processing
		return c.dataProcessing(inst)
	case inst&0x0c000000 == 0x04000000: // single data transfer (LDR/STR word/byte, immediate offset)
		return c.singleDataTransfer(inst)
	default:
		return 0, unimplemented("arm7.opcode", c.execAddr, 4, uint64(inst))
	}
}

func (c *ARM7) branch(inst uint32) (uint32, error) {
	link := inst&0x01000000 != 0
	offset := int32(inst&0x00ffffff) << 8 >> 6 // sign-extend 24-bit, x4
	target := uint32(int32(c.execAddr) + 8 + offset)
	if link {
		c.R[14] = c.execAddr + 4
	}
	c.R[15] = target
	c.refillPipeline()
	return 3, nil
}

// dataProcessing handles the register-register and immediate forms of
// ADD/SUB/MOV/CMP/AND/ORR/EOR - enough of the ALU family to exercise the
// predication and flag-update contract without reproducing all sixteen
// opcodes.
func (c *ARM7) dataProcessing(inst uint32) (uint32, error) {
	opcode := (inst >> 21) & 0xf
	setFlags := inst&(1<<20) != 0
	rnIdx := (inst >> 16) & 0xf
	rdIdx := (inst >> 12) & 0xf
	immediate := inst&(1<<25) != 0

	var operand2 uint32
	if immediate {
		imm := inst & 0xff
		rot := ((inst >> 8) & 0xf) * 2
		operand2 = (imm >> rot) | (imm << (32 - rot))
	} else {
		operand2 = c.R[inst&0xf]
	}
	rn := c.R[rnIdx]

	var result uint32
	switch opcode {
	case 0x4: // ADD
		result = rn + operand2
	case 0x2: // SUB
		result = rn - operand2
	case 0x0: // AND
		result = rn & operand2
	case 0xc: // ORR
		result = rn | operand2
	case 0x1: // EOR
		result = rn ^ operand2
	case 0xd: // MOV
		result = operand2
	case 0xa: // CMP (result discarded, flags only)
		result = rn - operand2
	default:
		return 0, unimplemented("arm7.dataproc", c.execAddr, 4, uint64(inst))
	}

	if opcode != 0xa {
		c.R[rdIdx] = result
	}
	if setFlags || opcode == 0xa {
		c.setFlags(result&0x80000000 != 0, result == 0, c.flagC(), c.flagV())
	}
	return 1, nil
}

func (c *ARM7) singleDataTransfer(inst uint32) (uint32, error) {
	load := inst&(1<<20) != 0
	byteWidth := inst&(1<<22) != 0
	up := inst&(1<<23) != 0
	rnIdx := (inst >> 16) & 0xf
	rdIdx := (inst >> 12) & 0xf
	offset := inst & 0xfff

	addr := c.R[rnIdx]
	if up {
		addr += offset
	} else {
		addr -= offset
	}

	if load {
		if byteWidth {
			v, err := c.mem.Read8(addr)
			if err != nil {
				return 2, err
			}
			c.R[rdIdx] = uint32(v)
		} else {
			v, err := c.mem.Read32(addr)
			if err != nil {
				return 2, err
			}
			c.R[rdIdx] = v
		}
	} else {
		if byteWidth {
			if err := c.mem.Write8(addr, uint8(c.R[rdIdx])); err != nil {
				return 2, err
			}
		} else {
			if err := c.mem.Write32(addr, c.R[rdIdx]); err != nil {
				return 2, err
			}
		}
	}
	return 2, nil
}
