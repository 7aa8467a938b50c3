package dcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAICA(t *testing.T) *AICA {
	hostClock := NewClock("host", 200000000, func(countdown uint64) uint64 { return countdown })
	audioClock := NewClock("audio", 45000000, func(countdown uint64) uint64 { return countdown })
	a := NewAICA(hostClock, audioClock)
	a.SetWaveRAM(NewByteStore("wave-ram", 0x10000))
	return a
}

func TestAICAKeyOnResetsPlaybackState(t *testing.T) {
	a := newTestAICA(t)
	ch := &a.channels[3]
	ch.addrStart = 0x100
	ch.samplePos = 77
	ch.addrCur = 0x500
	ch.atten = 0

	ch.keyOn()

	require.True(t, ch.playing)
	require.Equal(t, uint32(0), ch.samplePos)
	require.Equal(t, ch.addrStart, ch.addrCur)
	require.Equal(t, envAttack, ch.envelopeState)
	require.Equal(t, int32(envelopeSilence), ch.atten)
}

func TestAICAKeyOffMovesToRelease(t *testing.T) {
	a := newTestAICA(t)
	ch := &a.channels[0]
	ch.keyOn()
	ch.envelopeState = envSustain

	ch.keyOff()

	require.Equal(t, envRelease, ch.envelopeState)
}

func TestAICAKeyOnSweepAppliesToEveryReadyChannel(t *testing.T) {
	a := newTestAICA(t)
	a.channels[1].readyKeyOn = true
	a.channels[1].addrStart = 0x10
	a.channels[5].readyKeyOn = true
	a.channels[5].addrStart = 0x20
	a.channels[9].playing = true
	a.channels[9].envelopeState = envSustain

	a.TriggerKeyOnSweep()

	require.True(t, a.channels[1].playing)
	require.True(t, a.channels[5].playing)
	require.Equal(t, envRelease, a.channels[9].envelopeState, "channel without ready-keyon but currently playing is swept to release")
}

func TestAICAADPCMFirstNibbleMovesPredictorOffZero(t *testing.T) {
	a := newTestAICA(t)
	ch := &a.channels[0]
	ch.fmt = aicaFormatADPCM
	ch.volume = 0xff
	ch.addrStart = 0
	ch.loopEnd = 0xffffffff // effectively disable loop wraparound for this test
	ch.fns = 0
	ch.octave = 0
	ch.keyOn()

	a.waveRAM.Bytes[0] = 0x5a // two nibbles: 0xa then 0x5

	first := a.readChannelSample(ch)
	require.NotEqual(t, int16(0), first, "first nonzero nibble should move the predictor off zero")
}

func TestAICALoopWrapsToLoopStartOnFirstOverrun(t *testing.T) {
	a := newTestAICA(t)
	ch := &a.channels[2]
	ch.fmt = aicaFormatPCM8
	ch.addrStart = 0
	ch.loopStart = 2
	ch.loopEnd = 4
	ch.loopEnable = true
	ch.fns = 0
	ch.octave = 0 // one whole sample per call, so the loop stops on the call that first overruns
	ch.keyOn()

	for i := 0; i < 64 && !ch.loopEndSeenLatch; i++ {
		a.advanceChannel(ch)
	}

	require.True(t, ch.loopEndSeenLatch)
	require.Equal(t, ch.loopStart, ch.samplePos)
	require.Equal(t, ch.addrStart+loopOffsetBytes(ch, ch.loopStart), ch.addrCur)
}

func TestAICALoopFreezesAtEndWhenDisabled(t *testing.T) {
	a := newTestAICA(t)
	ch := &a.channels[2]
	ch.fmt = aicaFormatPCM8
	ch.addrStart = 0
	ch.loopStart = 2
	ch.loopEnd = 4
	ch.loopEnable = false
	ch.fns = 0
	ch.octave = 4
	ch.keyOn()

	for i := 0; i < 64; i++ {
		a.advanceChannel(ch)
	}

	require.True(t, ch.playing, "sample_pos freezing at loop_end must not itself stop playback")
	require.Equal(t, ch.loopEnd, ch.samplePos)
}

func TestAICATimerOverflowFiresAfterProgrammedRemainder(t *testing.T) {
	a := newTestAICA(t)
	a.timers[0].counter = 255
	a.timers[0].prescaleLog = 0 // prescale = 1 sample per tick

	overflowed := false
	for i := 0; i < 4; i++ {
		a.sampleCount++
		if a.timers[0].sync(a.sampleCount, uint64(a.timers[0].lastSampleSync)) {
			overflowed = true
			a.timers[0].lastSampleSync = CycleStamp(a.sampleCount)
			break
		}
		a.timers[0].lastSampleSync = CycleStamp(a.sampleCount)
	}

	require.True(t, overflowed, "counter programmed at 255 should overflow after exactly one more tick")
}

func TestAICAStepTimersRaisesInterruptOnOverflow(t *testing.T) {
	a := newTestAICA(t)
	a.timers[1].counter = 255
	a.timers[1].prescaleLog = 0
	a.hostInterrupts.enable = aicaIntTimerB
	a.hostInterrupts.validMask = 0xffffffff

	a.stepTimers()

	require.NotEqual(t, uint32(0), a.hostInterrupts.pending&aicaIntTimerB)
	require.NotEqual(t, uint32(0), a.audioInterrupts.pending&aicaIntTimerB)
}

func TestAICARegisterRoundTripPreservesPitchFields(t *testing.T) {
	a := newTestAICA(t)
	ops := a.Ops()

	require.NoError(t, ops.Write32(uint32(0*aicaChannelRegSize+chRegPitch), 0x3ff|uint32(5)<<10))

	v, err := ops.Read32(uint32(0*aicaChannelRegSize + chRegPitch))
	require.NoError(t, err)
	require.Equal(t, uint16(0x3ff), a.channels[0].fns)
	require.Equal(t, int8(5), a.channels[0].octave)
	require.Equal(t, uint32(0x3ff)|uint32(5)<<10, v)
}

func TestAICAPlayControlWriteTriggersKeyOnSweep(t *testing.T) {
	a := newTestAICA(t)
	ops := a.Ops()
	a.channels[7].readyKeyOn = true

	require.NoError(t, ops.Write32(uint32(7*aicaChannelRegSize+chRegPlayControl), 1<<31|1<<30))

	require.True(t, a.channels[7].playing)
}

func TestAICAInterruptPriorityLevelRespectsSourceRegisters(t *testing.T) {
	ai := newAICAInterrupts()
	ai.enable = aicaIntTimerA | aicaIntTimerB
	ai.raise(aicaIntTimerA)
	ai.raise(aicaIntTimerB)
	ai.prioritySource[0] = 1 << 6 // mark timer A's bit as contributing priority

	require.Equal(t, uint32(1), ai.priorityLevel())
}
