package dcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestARM7(t *testing.T) (*ARM7, *MemoryMap) {
	mem := NewMemoryMap(true)
	ram := NewByteStore("aram", 0x10000)
	mem.AddRegion(0, 0xffff, 0xffffffff, 0xffff, RegionRAM, ram, "aram")
	cpu := NewARM7(mem)
	return cpu, mem
}

func armInst(t *testing.T, mem *MemoryMap, addr uint32, inst uint32) {
	require.NoError(t, mem.Write32(addr, inst))
}

func TestARM7ModeTransitionBanksRegisters(t *testing.T) {
	cpu, _ := newTestARM7(t)
	cpu.R[13] = 0x1111
	cpu.R[14] = 0x2222

	cpu.setMode(modeIRQ)
	require.NotEqual(t, uint32(0x1111), cpu.R[13], "IRQ mode must have its own R13 bank")

	cpu.R[13] = 0x3333
	cpu.setMode(modeSupervisor)
	require.Equal(t, uint32(0x1111), cpu.R[13], "supervisor's own R13 bank must be independent of IRQ's")

	cpu.setMode(modeIRQ)
	require.Equal(t, uint32(0x3333), cpu.R[13], "returning to IRQ mode must restore what was banked there")
}

func TestARM7FIQBanksR8ThroughR12(t *testing.T) {
	cpu, _ := newTestARM7(t)
	cpu.R[8] = 0xaaaa

	cpu.setMode(modeFIQ)
	cpu.R[8] = 0xbbbb
	cpu.setMode(modeSystem)
	require.Equal(t, uint32(0xaaaa), cpu.R[8], "leaving FIQ mode must restore the shared R8 bank")

	cpu.setMode(modeFIQ)
	require.Equal(t, uint32(0xbbbb), cpu.R[8], "re-entering FIQ mode must restore its own R8 bank")
}

func TestARM7ConditionCodesPredicateExecution(t *testing.T) {
	cpu, mem := newTestARM7(t)
	cpu.setFlags(false, true, false, false) // Z set
	// MOV R0, #5 with EQ condition (cond=0x0): encoding 0x03a00005
	instAddr := cpu.R[15] - 8
	armInst(t, mem, instAddr, 0x03a00005)
	cpu.R[15] = instAddr
	cpu.refillPipeline()
	cpu.R[0] = 0
	cpu.step()
	require.Equal(t, uint32(5), cpu.R[0], "EQ must execute when Z is set")
}

func TestARM7FailedConditionIsNoOp(t *testing.T) {
	cpu, mem := newTestARM7(t)
	cpu.setFlags(false, false, false, false) // Z clear
	instAddr := cpu.R[15] - 8
	armInst(t, mem, instAddr, 0x03a00005) // MOV R0,#5 EQ
	cpu.R[15] = instAddr
	cpu.refillPipeline()
	cpu.R[0] = 0x99
	cpu.step()
	require.Equal(t, uint32(0x99), cpu.R[0], "failed condition must not perform the register write")
}

func TestARM7SWIEntersSupervisorMode(t *testing.T) {
	cpu, mem := newTestARM7(t)
	instAddr := cpu.R[15] - 8
	armInst(t, mem, instAddr, 0xef000000) // SWI #0, AL condition
	cpu.setMode(modeSystem)
	cpu.R[15] = instAddr
	cpu.refillPipeline()

	cpu.step()
	require.Equal(t, uint32(modeSupervisor), cpu.mode())
	require.Equal(t, uint32(arm7VectorSWI)+8, cpu.R[15], "R15 stays two instructions ahead of the vector after refill")
	require.True(t, cpu.CPSR&cpsrI != 0)
}

func TestARM7BranchRefillsPipeline(t *testing.T) {
	cpu, mem := newTestARM7(t)
	target := uint32(0x100)
	// B <target>, AL: offset = (target - (instAddr+8)) / 4
	instAddr := cpu.R[15] - 8
	offset := (int32(target) - int32(instAddr+8)) / 4
	armInst(t, mem, instAddr, 0xea000000|uint32(offset)&0x00ffffff)
	cpu.R[15] = instAddr
	cpu.refillPipeline()

	cpu.step()
	require.Equal(t, target+8, cpu.R[15], "PC must land two instructions past the branch target")
}

func TestARM7FIQHeldWhileMasked(t *testing.T) {
	cpu, _ := newTestARM7(t)
	cpu.CPSR |= cpsrF
	cpu.RaiseFIQ()
	oldMode := cpu.mode()
	cpu.Execute(1)
	require.Equal(t, oldMode, cpu.mode(), "FIQ must stay pending while the F bit is set")
}

func TestARM7DisabledSkipsDispatch(t *testing.T) {
	cpu, _ := newTestARM7(t)
	cpu.Disabled = true
	consumed := cpu.Execute(10)
	require.Equal(t, uint64(10), consumed)
	require.Equal(t, uint64(0), cpu.CycleCount)
}
