package dcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHolly(t *testing.T) (*Holly, *MemoryMap, *NullGraphics) {
	mem := NewMemoryMap(false)
	mem.AddRegion(0x0c000000, 0x0cffffff, 0xffffffff, 0x00ffffff, RegionRAM, NewByteStore("ram", 0x1000000), "ram")
	hostClock := NewClock("host", 200000000, func(countdown uint64) uint64 { return countdown })
	gfx := &NullGraphics{}
	h := NewHolly(mem, gfx, hostClock, 200000000)
	return h, mem, gfx
}

func TestHollyInterruptEncodedLevelPicksHighestQualifyingPriority(t *testing.T) {
	h, _, _ := newTestHolly(t)
	h.interrupts.SetMask(0, hollyIntNormal, 0xffffffff) // level 2
	h.interrupts.SetMask(2, hollyIntNormal, 0xffffffff) // level 6
	h.interrupts.Raise(hollyIntNormal, 1<<3)

	require.Equal(t, uint32(6), h.interrupts.EncodedLevel())
}

func TestHollyInterruptDefaultsToNoInterrupt(t *testing.T) {
	h, _, _ := newTestHolly(t)
	require.Equal(t, uint32(hollyNoInterrupt), h.interrupts.EncodedLevel())
}

func TestHollyChannel2DMACopiesBytesAndSchedulesCompletion(t *testing.T) {
	h, mem, _ := newTestHolly(t)
	h.interrupts.SetMask(0, hollyIntNormal, hollyIntCh2DMAComplete)

	require.NoError(t, mem.Write32(0x0c001000, 0xdeadbeef))
	h.channel2.srcAddr = 0x0c001000
	h.channel2.destAddr = tileAccelAddrBase
	h.channel2.length = 4

	require.NoError(t, h.StartChannel2DMA())

	for i := 0; i < 64 && h.interrupts.pending[hollyIntNormal]&hollyIntCh2DMAComplete == 0; i++ {
		h.hostClock.RunTimeslice()
	}
	require.NotEqual(t, uint32(0), h.interrupts.pending[hollyIntNormal]&hollyIntCh2DMAComplete)
}

func TestHollySortDMAWalksLinkTableInOrder(t *testing.T) {
	h, mem, gfx := newTestHolly(t)

	const tableAddr = 0x0c002000
	const headerAddr = 0x0c002100

	// header packet: control(opcode 0) + length(8 bytes = 2 words) + 2 data words + next-link
	require.NoError(t, mem.Write32(headerAddr, 0x00))
	require.NoError(t, mem.Write32(headerAddr+4, 8))
	require.NoError(t, mem.Write32(headerAddr+8, 0x1111))
	require.NoError(t, mem.Write32(headerAddr+12, 0x2222))
	vertex1Addr := headerAddr + 16 + 4 // leave room for header's next-link field
	require.NoError(t, mem.Write32(headerAddr+16, vertex1Addr))

	// vertex packet 1: control(opcode 1, non-header) + 2 data words (matches header length) + next-link
	require.NoError(t, mem.Write32(vertex1Addr, 0x01))
	require.NoError(t, mem.Write32(vertex1Addr+4, 0x3333))
	require.NoError(t, mem.Write32(vertex1Addr+8, 0x4444))
	vertex2Addr := vertex1Addr + 12 + 4
	require.NoError(t, mem.Write32(vertex1Addr+12, vertex2Addr))

	// vertex packet 2: ends the entire transfer via sentinel 2
	require.NoError(t, mem.Write32(vertex2Addr, 0x01))
	require.NoError(t, mem.Write32(vertex2Addr+4, 0x5555))
	require.NoError(t, mem.Write32(vertex2Addr+8, 0x6666))
	require.NoError(t, mem.Write32(vertex2Addr+12, sortDMALinkEndOfAll))

	require.NoError(t, mem.Write32(tableAddr, headerAddr))
	require.NoError(t, mem.Write32(tableAddr+4, sortDMALinkEndOfChain))

	h.sortDMA.tableAddr = tableAddr
	require.NoError(t, h.RunSortDMA())

	require.Equal(t, []uint32{0x1111, 0x2222, 0x3333, 0x4444, 0x5555, 0x6666}, gfx.TAWords)
	require.False(t, h.sortDMA.running)
}

func TestHollyRegisterDispatchRoutesNamedCellsAndDefaultsElsewhere(t *testing.T) {
	h, _, _ := newTestHolly(t)
	ops := h.Ops()

	require.NoError(t, ops.Write32(regLMMODE0, 1))
	require.Equal(t, uint8(1), h.channel2.lmmode0)

	require.NoError(t, ops.Write32(0x7f0, 0xabcd))
	v, err := ops.Read32(0x7f0)
	require.NoError(t, err)
	require.Equal(t, uint32(0xabcd), v)

	rev, err := ops.Read32(regSBREV)
	require.NoError(t, err)
	require.Equal(t, uint32(0x11), rev)
}
