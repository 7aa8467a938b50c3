// system_test.go - end-to-end coverage of the top-level aggregate (spec §8
// scenario 1 and the cross-component wiring it implies).

package dcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T) *System {
	bootROM := make([]byte, bootROMSize)
	// NOP at the reset vector alias (0xa0000000 folds to physical 0x00000000).
	bootROM[0] = 0x09
	bootROM[1] = 0x00
	return NewSystem(bootROM, nil, nil, nil, nil)
}

func TestSystemBootToFirstInstruction(t *testing.T) {
	sys := newTestSystem(t)

	require.Equal(t, uint32(0xa0000000), sys.Host.PC)
	startCycles := sys.Host.CycleCount

	consumed := sys.Host.Execute(1)

	require.Greater(t, consumed, uint64(0))
	require.Equal(t, uint32(0xa0000002), sys.Host.PC)
	require.Greater(t, sys.Host.CycleCount, startCycles)
	require.False(t, sys.Host.Halted)
	require.NoError(t, sys.Host.LastError())
}

func TestSystemBootROMIsReadOnly(t *testing.T) {
	sys := newTestSystem(t)
	err := sys.HostMem.Write8(0x00000000, 0xff)
	require.Error(t, err)
}

func TestSystemMainRAMMirrorsFourTimes(t *testing.T) {
	sys := newTestSystem(t)
	require.NoError(t, sys.HostMem.Write32(0x0c000100, 0xcafef00d))

	for _, mirror := range []uint32{0x0c000100, 0x0d000100, 0x0e000100, 0x0f000100} {
		v, err := sys.HostMem.Read32(mirror)
		require.NoError(t, err)
		require.Equal(t, uint32(0xcafef00d), v, "mirror at 0x%08x", mirror)
	}
}

func TestSystemGDROMInterruptReachesHolly(t *testing.T) {
	sys := newTestSystem(t)
	sys.Holly.Interrupts().SetMask(0, hollyIntNormal, hollyIntGDROMComplete)

	sys.GDROM.interrupts() // the callback NewSystem wired to Holly's GD-ROM source

	require.Equal(t, uint32(2), sys.Holly.Interrupts().EncodedLevel())
}

func TestSystemHollyIRQLineReachesHostCPU(t *testing.T) {
	sys := newTestSystem(t)
	sys.Holly.Interrupts().SetMask(0, hollyIntNormal, hollyIntGDROMComplete)

	sys.Holly.Interrupts().Raise(hollyIntNormal, hollyIntGDROMComplete)

	require.True(t, sys.Host.pendingIRQ)
	require.Equal(t, uint32(2), sys.Host.pendingLevel)
}

func TestSystemAICARegistersReachableFromBothBuses(t *testing.T) {
	sys := newTestSystem(t)

	require.NoError(t, sys.HostMem.Write32(0x00700000+regTimerA, 0x1234))
	v, err := sys.AudioMem.Read32(0x00800000 + regTimerA)
	require.NoError(t, err)
	require.Equal(t, uint32(0x1234), v)
}

func TestSystemGDROMReadUsesMount(t *testing.T) {
	sys := newTestSystem(t)
	mount := &recordingMount{sectorFill: 0x5a}
	sys.SetMount(mount)

	sys.GDROM.packetBuffer = [12]byte{pktRead}
	sys.GDROM.packetBuffer[8], sys.GDROM.packetBuffer[9], sys.GDROM.packetBuffer[10] = 0, 0, 1 // 1 sector
	sys.GDROM.dispatchPacket()

	require.Equal(t, 1, mount.readCalls)
}

// recordingMount is a minimal Mount used to confirm GDROM actually
// delegates sector reads rather than synthesizing zeroed payloads itself.
type recordingMount struct {
	NullMount
	sectorFill byte
	readCalls  int
}

func (m *recordingMount) Check() bool { return true }

func (m *recordingMount) ReadSectors(buf []byte, fad uint32, n uint32) error {
	m.readCalls++
	for i := range buf {
		buf[i] = m.sectorFill
	}
	return nil
}

func TestSystemGraphicsStubWindowsAreInertNotFatal(t *testing.T) {
	sys := newTestSystem(t)
	require.NoError(t, sys.HostMem.Write32(0x04001000, 0xdeadbeef))
	v, err := sys.HostMem.Read32(0x04001000)
	require.NoError(t, err)
	require.Equal(t, uint32(0), v)
}

func TestSystemOnChipRAMRequiresExactAddress(t *testing.T) {
	sys := newTestSystem(t)
	require.NoError(t, sys.HostMem.Write32(0x7c000010, 0x11223344))
	v, err := sys.HostMem.Read32(0x7c000010)
	require.NoError(t, err)
	require.Equal(t, uint32(0x11223344), v)

	_, err = sys.HostMem.Read32(0x9c000010)
	require.Error(t, err)
}
