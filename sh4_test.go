package dcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSH4(t *testing.T) (*SH4, *MemoryMap) {
	mem := NewMemoryMap(false)
	ram := NewByteStore("ram", 0x10000)
	mem.AddRegion(0, 0xffff, 0xffffffff, 0xffff, RegionRAM, ram, "ram")
	cpu := NewSH4(mem)
	cpu.PC = 0
	cpu.SR = 0
	return cpu, mem
}

func putInst(t *testing.T, mem *MemoryMap, addr uint32, inst uint16) {
	require.NoError(t, mem.Write16(addr, inst))
}

func TestSH4RegisterBankSwapIsConsistent(t *testing.T) {
	cpu, _ := newTestSH4(t)
	cpu.SR &^= srRB
	cpu.R[0] = 0x11111111
	cpu.RBank[0] = 0x22222222

	cpu.setSR(cpu.SR | srRB)
	require.Equal(t, uint32(0x22222222), cpu.R[0], "toggling RB must swap in the alternate bank")
	require.Equal(t, uint32(0x11111111), cpu.RBank[0])

	cpu.setSR(cpu.SR &^ srRB)
	require.Equal(t, uint32(0x11111111), cpu.R[0], "toggling RB back must restore the original bank")
}

func TestSH4FPUBankSwap(t *testing.T) {
	cpu, _ := newTestSH4(t)
	cpu.FPSCR &^= fpscrFR
	cpu.FPR[0] = 0xaaaaaaaa
	cpu.FPRBank[0] = 0xbbbbbbbb

	cpu.setFPSCR(cpu.FPSCR | fpscrFR)
	require.Equal(t, uint32(0xbbbbbbbb), cpu.FPR[0])
}

func TestSH4DelaySlotExecutesBeforeBranchTarget(t *testing.T) {
	cpu, mem := newTestSH4(t)
	// BRA +0 (branch to PC+4), delay slot ADD #1,R0, target NOP.
	putInst(t, mem, 0, 0xa000) // BRA disp=0 -> target = PC+4+0 = 4
	putInst(t, mem, 2, 0x7001) // ADD #1,R0  (delay slot)
	putInst(t, mem, 4, 0x0009) // NOP at target

	_ = cpu.Execute(1) // BRA
	require.True(t, cpu.DelayedBranch)
	require.Equal(t, uint32(2), cpu.PC, "PC must advance to the delay slot, not the target, right after the branch")

	_ = cpu.Execute(1) // delay slot executes, then PC becomes the target
	require.Equal(t, uint32(1), cpu.R[0], "delay slot instruction must execute")
	require.Equal(t, uint32(4), cpu.PC)
	require.False(t, cpu.DelayedBranch)
}

func TestSH4InterruptHeldDuringDelaySlot(t *testing.T) {
	cpu, mem := newTestSH4(t)
	cpu.VBR = 0x1000
	putInst(t, mem, 0, 0xa000) // BRA +0
	putInst(t, mem, 2, 0x0009) // NOP delay slot
	putInst(t, mem, 4, 0x0009) // NOP target

	cpu.Execute(1) // BRA
	require.True(t, cpu.DelayedBranch)

	cpu.RaiseInterrupt(0xf) // arrives while the delay slot is still pending

	cpu.Execute(1) // delay slot must run to completion despite the pending interrupt
	require.Equal(t, uint32(4), cpu.PC, "delay slot must complete before the interrupt is taken")
	require.False(t, cpu.SR&srBL != 0, "interrupt must not have been taken yet")

	cpu.Execute(1) // now at a true instruction boundary, the interrupt fires
	require.Equal(t, cpu.VBR+interruptOffset, cpu.PC)
	require.True(t, cpu.SR&srBL != 0)
}

func TestSH4TrapaEntersExceptionVector(t *testing.T) {
	cpu, mem := newTestSH4(t)
	cpu.VBR = 0x2000
	putInst(t, mem, 0, 0xc300) // TRAPA #0

	cpu.Execute(1)
	require.Equal(t, cpu.VBR+generalExceptionOffset, cpu.PC)
	require.Equal(t, uint32(ExcTrap), cpu.expEventCode)
	require.Equal(t, uint32(0), cpu.SPC, "SPC must hold the address of the faulting instruction")
	require.True(t, cpu.SR&srMD != 0)
}

func TestSH4UnimplementedOpcodeHaltsWithError(t *testing.T) {
	cpu, mem := newTestSH4(t)
	putInst(t, mem, 0, 0xffff) // not decoded by this core's table

	cpu.Execute(10)
	require.True(t, cpu.Halted)
	require.Error(t, cpu.LastError())
	var u *UnimplementedError
	require.ErrorAs(t, cpu.LastError(), &u)
}

func TestSH4BTSkipsDelaySlot(t *testing.T) {
	cpu, mem := newTestSH4(t)
	cpu.setT(true)
	putInst(t, mem, 0, 0x8900) // BT disp=0 -> PC+4+0
	putInst(t, mem, 4, 0x0009)

	cpu.Execute(1)
	require.Equal(t, uint32(4), cpu.PC, "BT takes effect immediately, with no delay slot")
	require.False(t, cpu.DelayedBranch)
}
