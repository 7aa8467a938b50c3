// aica.go - the AICA audio DSP engine: 64-channel sample player with
// envelopes, ADPCM, timers and interrupt routing (spec §3 "AICA channel
// state"/"AICA interval timer", §4.5).
//
// Grounded on the teacher's audio_chip.go: a per-channel struct driven by a
// shared GenerateSample/updateEnvelope pump, and a HandleRegisterWrite
// dispatch keyed by address range. The domain differs completely - these
// channels play back wave-RAM samples (PCM/ADPCM) rather than synthesizing
// square/triangle/sine/noise - so the channel fields, the envelope-rate
// formula, and the register zones are all rebuilt from spec.md §3/§4.5; the
// shape of "one struct per channel, memory-mapped register dispatch,
// sample-at-a-time pump" survives from the teacher.

package dcore

const aicaNumChannels = 64
const aicaChannelRegSize = 0x80 // 128 bytes per channel, per spec §3

// Sample formats a channel's wave-RAM data may be encoded in (spec §3 "fmt").
type aicaSampleFormat int

const (
	aicaFormatPCM16 aicaSampleFormat = iota
	aicaFormatPCM8
	aicaFormatADPCM
)

// aicaChannel is the full per-channel state spec §3 "AICA channel state"
// describes: the raw register block plus all derived playback fields.
type aicaChannel struct {
	regs [aicaChannelRegSize / 4]uint32 // raw 32-bit mirror, indexed by offset/4, for exact register readback

	playing    bool
	readyKeyOn bool // armed by a play-ctrl write with KEYONB set, consumed by a KEYONEX sweep
	keyOnBit   bool // the literal KEYONB bit as last written, mirrored back on readback
	fmt        aicaSampleFormat
	addrStart  uint32
	addrCur    uint32
	loopStart  uint32
	loopEnd    uint32
	loopEnable bool

	samplePos     uint32 // whole-sample position, compared against loopEnd
	samplePartial uint32 // fixed-point fractional accumulator, 16 fractional bits

	envelopeState    envelopePhase
	envelopeSampleNo uint32
	envelopeStepNo   uint32
	atten            int32 // 10-bit pseudo-float attenuation, 0 = loudest

	attackRate, decayRate, sustainRate, releaseRate uint8
	decayLevel                                      uint8
	krs                                              uint8 // key-rate-scaling
	octave                                           int8  // signed 4-bit
	fns                                              uint16

	volume uint8
	pan    uint8

	adpcm           adpcmState
	adpcmNibbleHigh bool

	loopEndSeenLatch bool
}

// rateMultiplier reconstructs the pseudo-float step rate from octave
// (signed exponent) and fns (10-bit mantissa with an implicit leading 1),
// per spec §4.5 "sample_partial is incremented by the per-channel rate
// multiplier... converted to a fixed-point step in units of 1/65536 sample".
// The extra shift of 6 scales the 11-bit mantissa so that octave 0, fns 0
// is exactly 0x10000 (one whole sample per output sample).
func (ch *aicaChannel) rateMultiplier() uint32 {
	mantissa := uint32(ch.fns) | 0x400 // implicit leading 1 in bit 10
	shift := int32(ch.octave) + 6
	if shift >= 0 {
		return mantissa << uint32(shift)
	}
	return mantissa >> uint32(-shift)
}

// AICA owns all 64 channels, the three interval timers, interrupt routing,
// and the DSP mixer/program register banks (exposed but not functionally
// modeled - spec §4.5's "DSP mixer, DSP program registers" zones are scope
// for a full mixer, not for this core's channel-playback contract).
type AICA struct {
	channels [aicaNumChannels]aicaChannel

	timers      [3]aicaTimer
	sampleCount uint64

	hostInterrupts  *aicaInterrupts
	audioInterrupts *aicaInterrupts

	dsp     ByteStore // raw DSP mixer/program register space, passthrough only
	waveRAM *ByteStore

	sysRegs map[uint32]uint32 // raw mirror for system-zone registers with no modeled behavior (master volume, ring buffer, play status/pos, ARM reset)

	ringBufferSizeMode uint8  // spec supplement: COMMON-area ring buffer size bits
	monitorReg         uint32 // fixed MIDI/monitor stub register, Open Question decision #5

	hostClock  *Clock
	audioClock *Clock
}

// NewAICA creates the engine with the DSP register space sized to cover the
// documented zone (spec §3 memory map "AICA register bank").
func NewAICA(hostClock, audioClock *Clock) *AICA {
	a := &AICA{
		hostInterrupts:  newAICAInterrupts(),
		audioInterrupts: newAICAInterrupts(),
		dsp:             *NewByteStore("aica-dsp", aicaSystemBase-aicaDSPZoneBase),
		sysRegs:         make(map[uint32]uint32),
		hostClock:       hostClock,
		audioClock:      audioClock,
	}
	a.timers[0].interruptBit = aicaIntTimerA
	a.timers[1].interruptBit = aicaIntTimerB
	a.timers[2].interruptBit = aicaIntTimerC
	return a
}

// StepSample advances every channel by one sample period: wave-RAM read,
// mixing, rate stepping, loop handling and envelope advance, per spec
// §4.5 "Sample pump". Returns the mixed output sample.
func (a *AICA) StepSample() int32 {
	var mix int32

	for i := range a.channels {
		ch := &a.channels[i]
		if !ch.playing {
			continue
		}

		sample := a.readChannelSample(ch)
		scaled := (int32(sample) * int32(ch.volume)) >> 8
		mix += scaled
		if mix > 32767 {
			mix = 32767
		} else if mix < -32768 {
			mix = -32768
		}

		a.advanceChannel(ch)
		ch.stepEnvelope()
	}

	a.stepTimers()
	return mix
}

// readChannelSample decodes the sample currently at addr_cur without
// advancing any position state (spec §4.5 step 1).
func (a *AICA) readChannelSample(ch *aicaChannel) int16 {
	switch ch.fmt {
	case aicaFormatPCM16:
		lo, _ := a.waveRead8(ch.addrCur)
		hi, _ := a.waveRead8(ch.addrCur + 1)
		return int16(uint16(lo) | uint16(hi)<<8)
	case aicaFormatPCM8:
		b, _ := a.waveRead8(ch.addrCur)
		return int16(int8(b)) << 8
	default: // ADPCM
		b, _ := a.waveRead8(ch.addrCur)
		var nibble uint8
		if ch.adpcmNibbleHigh {
			nibble = b >> 4
		} else {
			nibble = b & 0xf
		}
		return ch.adpcm.decodeNibble(nibble)
	}
}

// waveRead8 is overridden by the system wiring (set via SetWaveRAM);
// without wiring it returns silence, matching the audio-side unmapped
// contract elsewhere in this core.
var defaultWaveRAM = func(addr uint32) (uint8, error) { return 0, nil }

func (a *AICA) waveRead8(addr uint32) (uint8, error) {
	if a.waveRAM == nil {
		return defaultWaveRAM(addr)
	}
	return a.waveRAM.Read8(addr)
}

// waveRAM, set by system.go wiring, is the backing store sample playback
// reads from (spec §3 memory map "audio wave RAM").
func (a *AICA) SetWaveRAM(store *ByteStore) { a.waveRAM = store }

// advanceChannel implements the fixed-point stepping, nibble-flip, and
// loop-position logic of spec §4.5 steps 3-4.
func (a *AICA) advanceChannel(ch *aicaChannel) {
	ch.samplePartial += ch.rateMultiplier()
	for ch.samplePartial >= 0x10000 {
		ch.samplePartial -= 0x10000

		switch ch.fmt {
		case aicaFormatADPCM:
			if ch.adpcmNibbleHigh {
				ch.addrCur++
			}
			ch.adpcmNibbleHigh = !ch.adpcmNibbleHigh
		case aicaFormatPCM8:
			ch.addrCur++
		default:
			ch.addrCur += 2
		}
		ch.samplePos++

		if ch.samplePos > ch.loopEnd {
			first := !ch.loopEndSeenLatch
			ch.loopEndSeenLatch = true
			if first {
				ch.adpcm.reset()
				ch.adpcmNibbleHigh = false
			}
			if ch.loopEnable {
				ch.samplePos = ch.loopStart
				ch.addrCur = ch.addrStart + loopOffsetBytes(ch, ch.loopStart)
			} else {
				ch.samplePos = ch.loopEnd // frozen; envelope/attenuation alone ends playback
			}
		}
	}
}

func loopOffsetBytes(ch *aicaChannel, samplePos uint32) uint32 {
	switch ch.fmt {
	case aicaFormatPCM16:
		return samplePos * 2
	case aicaFormatPCM8:
		return samplePos
	default:
		return samplePos / 2
	}
}

// TriggerKeyOnSweep applies the key-on sweep rule from spec §4.5: writing
// the play-control bit sweeps every channel whose ready-keyon bit is set,
// not just the one addressed by the write.
func (a *AICA) TriggerKeyOnSweep() {
	for i := range a.channels {
		ch := &a.channels[i]
		if ch.readyKeyOn {
			ch.keyOn()
		} else if ch.playing {
			ch.keyOff()
		}
	}
}

// stepTimers applies one sample period of elapsed time to all three interval
// timers, syncing, detecting overflow and raising the matching interrupt bit
// on both interrupt-routing blocks (spec §4.5 "Interval timers").
func (a *AICA) stepTimers() {
	a.sampleCount++
	for i := range a.timers {
		t := &a.timers[i]
		if t.sync(a.sampleCount, uint64(t.lastSampleSync)) {
			a.hostInterrupts.raise(t.interruptBit)
			a.audioInterrupts.raise(t.interruptBit)
		}
		t.lastSampleSync = CycleStamp(a.sampleCount)
	}
}

// Channel per-block register offsets within the 128-byte channel window,
// exactly as spec.md §6 "Audio register offsets" lists them: play-ctrl
// (0x00), sample-addr-low (0x04), loop-start (0x08), loop-end (0x0c), env1
// (0x10), env2 (0x14), pitch (0x18), LFO-ctrl (0x1c), DSP-send (0x20),
// direct-pan/vol (0x24). LFO-ctrl and DSP-send round-trip through the raw
// register mirror but have no modeled behavior in this core (no LFO/DSP
// mixer component exists - see DESIGN.md).
const (
	chRegPlayControl = 0x00 // bit31 KEYONB, bit30 KEYONEX (sweep trigger), bits9-8 fmt, bit15 loop enable
	chRegAddrLow     = 0x04
	chRegLoopStart   = 0x08
	chRegLoopEnd     = 0x0c
	chRegEnvelope1   = 0x10 // bits4-0 AR, bits9-5 D1R, bits14-10 D2R
	chRegEnvelope2   = 0x14 // bits4-0 RR, bits9-5 DL, bits13-10 KRS
	chRegPitch       = 0x18 // bits9-0 FNS, bits13-10 OCT (signed)
	chRegLFOControl  = 0x1c
	chRegDSPSend     = 0x20
	chRegVolPan      = 0x24 // bits7-0 volume, bits15-8 pan
)

// readReg32 returns the raw mirror for a register, re-deriving the
// play-control KEYONB bit (as last written), format bits and loop-enable
// bit from the channel fields they were decoded into (spec §8: "reading
// the register back returns the same bit pattern").
func (ch *aicaChannel) readReg32(offset uint32) uint32 {
	if offset == chRegPlayControl {
		v := ch.regs[offset/4] &^ (1<<31 | 1<<9 | 1<<8 | 1<<15)
		if ch.keyOnBit {
			v |= 1 << 31
		}
		v |= uint32(ch.fmt) << 8
		if ch.loopEnable {
			v |= 1 << 15
		}
		return v
	}
	idx := offset / 4
	if int(idx) >= len(ch.regs) {
		return 0
	}
	return ch.regs[idx]
}

// writeReg32 applies a register write and returns whether this write should
// trigger the key-on sweep (writing the play-control register's KEYONEX
// bit, per spec §4.5).
func (ch *aicaChannel) writeReg32(offset uint32, v uint32) (sweep bool) {
	idx := offset / 4
	if int(idx) < len(ch.regs) {
		ch.regs[idx] = v
	}
	switch offset {
	case chRegPlayControl:
		ch.loopEnable = v&(1<<15) != 0
		ch.fmt = aicaSampleFormat((v >> 8) & 0x3)
		ch.keyOnBit = v&(1<<31) != 0
		ch.readyKeyOn = ch.keyOnBit
		return v&(1<<30) != 0
	case chRegAddrLow:
		ch.addrStart = v & 0x7fffff
		ch.addrCur = ch.addrStart
	case chRegLoopStart:
		ch.loopStart = v
	case chRegLoopEnd:
		ch.loopEnd = v
	case chRegEnvelope1:
		ch.attackRate = uint8(v & 0x1f)
		ch.decayRate = uint8((v >> 5) & 0x1f)
		ch.sustainRate = uint8((v >> 10) & 0x1f)
	case chRegEnvelope2:
		ch.releaseRate = uint8(v & 0x1f)
		ch.decayLevel = uint8((v >> 5) & 0x1f)
		ch.krs = uint8((v >> 10) & 0xf)
	case chRegPitch:
		ch.fns = uint16(v & 0x3ff)
		nib := uint8((v >> 10) & 0xf)
		ch.octave = int8(nib<<4) >> 4 // sign-extend the 4-bit field via int8 arithmetic shift
	case chRegVolPan:
		ch.volume = uint8(v & 0xff)
		ch.pan = uint8((v >> 8) & 0xff)
	}
	return false
}

// System-level register zone, at offset 0x2800 from the base of the AICA
// register window exactly as spec.md §6 "Audio register offsets (system
// area, from 0x2800)" lists: timers A/B/C at 0x90/0x94/0x98, the three
// local (audio-CPU-side) interrupt registers at 0x9c/0xa0/0xa4 plus the
// three 8-bit priority-source registers at 0xa8/0xac/0xb0, and the three
// host-side interrupt registers at 0xb4/0xb8/0xbc.
const (
	aicaSystemBase = 0x2800

	regMasterVolume     = aicaSystemBase + 0x00
	regRingBuffer       = aicaSystemBase + 0x04
	regMIDI             = aicaSystemBase + 0x08 // supplemented from original_source; Open Question decision #5
	regChannelInfoReq   = aicaSystemBase + 0x0c
	regPlayStatus       = aicaSystemBase + 0x10
	regPlayPos          = aicaSystemBase + 0x14
	regTimerA           = aicaSystemBase + 0x90
	regTimerB           = aicaSystemBase + 0x94
	regTimerC           = aicaSystemBase + 0x98
	regLocalIntEnable   = aicaSystemBase + 0x9c
	regLocalIntPending  = aicaSystemBase + 0xa0
	regLocalIntReset    = aicaSystemBase + 0xa4
	regPrioritySource0  = aicaSystemBase + 0xa8
	regPrioritySource1  = aicaSystemBase + 0xac
	regPrioritySource2  = aicaSystemBase + 0xb0
	regHostIntEnable    = aicaSystemBase + 0xb4
	regHostIntPending   = aicaSystemBase + 0xb8
	regHostIntReset     = aicaSystemBase + 0xbc
	regARMReset         = aicaSystemBase + 0x0c00
	regIntRequest       = aicaSystemBase + 0x0d00
	regIntClear         = aicaSystemBase + 0x0d04

	aicaDSPZoneBase = aicaNumChannels * aicaChannelRegSize // 0x2000: channel block ends here, DSP mixer/program zone starts
)

// Read32 and Write32 implement spec §4.5's memory interface contract: the
// channel zone, the system/interrupt zone, and a passthrough DSP zone.
// 8/16-bit accesses are unimplemented, matching real AICA register access
// width (spec §4.5 calls out 32-bit-only register access as representative
// of the real device; narrower widths raise UnimplementedError like any
// other region that doesn't serve that width).
type aicaOps struct {
	UnimplementedOps
	a *AICA
}

func (a *AICA) Ops() RegionOps { return aicaOps{UnimplementedOps{Name: "aica"}, a} }

func (o aicaOps) Read32(offset uint32) (uint32, error) {
	a := o.a
	switch {
	case offset < aicaDSPZoneBase:
		ch := &a.channels[offset/aicaChannelRegSize]
		return ch.readReg32(offset % aicaChannelRegSize), nil
	case offset == regTimerA:
		return uint32(a.timers[0].counter) | uint32(a.timers[0].prescaleLog)<<8, nil
	case offset == regTimerB:
		return uint32(a.timers[1].counter) | uint32(a.timers[1].prescaleLog)<<8, nil
	case offset == regTimerC:
		return uint32(a.timers[2].counter) | uint32(a.timers[2].prescaleLog)<<8, nil
	case offset == regLocalIntEnable:
		return a.audioInterrupts.enable, nil
	case offset == regLocalIntPending:
		return a.audioInterrupts.effective(), nil
	case offset == regHostIntEnable:
		return a.hostInterrupts.enable, nil
	case offset == regHostIntPending:
		return a.hostInterrupts.effective(), nil
	case offset == regPrioritySource0:
		return uint32(a.audioInterrupts.prioritySource[0]), nil
	case offset == regPrioritySource1:
		return uint32(a.audioInterrupts.prioritySource[1]), nil
	case offset == regPrioritySource2:
		return uint32(a.audioInterrupts.prioritySource[2]), nil
	case offset == regMIDI:
		return a.monitorReg, nil
	case offset == regRingBuffer:
		return uint32(a.ringBufferSizeMode), nil
	case offset >= aicaDSPZoneBase && offset < aicaSystemBase:
		return a.dsp.Read32(offset - aicaDSPZoneBase)
	default:
		return a.sysRegs[offset], nil
	}
}

func (o aicaOps) Write32(offset uint32, v uint32) error {
	a := o.a
	switch {
	case offset < aicaDSPZoneBase:
		chIdx := offset / aicaChannelRegSize
		ch := &a.channels[chIdx]
		if ch.writeReg32(offset%aicaChannelRegSize, v) {
			a.TriggerKeyOnSweep()
		}
		return nil
	case offset == regTimerA:
		a.timers[0].counter = uint8(v)
		a.timers[0].prescaleLog = uint8(v >> 8)
	case offset == regTimerB:
		a.timers[1].counter = uint8(v)
		a.timers[1].prescaleLog = uint8(v >> 8)
	case offset == regTimerC:
		a.timers[2].counter = uint8(v)
		a.timers[2].prescaleLog = uint8(v >> 8)
	case offset == regLocalIntEnable:
		a.audioInterrupts.enable = v
	case offset == regLocalIntReset:
		a.audioInterrupts.clearBits(v)
	case offset == regHostIntEnable:
		a.hostInterrupts.enable = v
	case offset == regHostIntReset:
		a.hostInterrupts.clearBits(v)
	case offset == regIntClear:
		a.hostInterrupts.clearBits(v)
		a.audioInterrupts.clearBits(v)
	case offset == regPrioritySource0:
		a.audioInterrupts.prioritySource[0] = uint8(v)
		a.hostInterrupts.prioritySource[0] = uint8(v)
	case offset == regPrioritySource1:
		a.audioInterrupts.prioritySource[1] = uint8(v)
		a.hostInterrupts.prioritySource[1] = uint8(v)
	case offset == regPrioritySource2:
		a.audioInterrupts.prioritySource[2] = uint8(v)
		a.hostInterrupts.prioritySource[2] = uint8(v)
	case offset == regMIDI:
		// fixed constant on retail hardware; writes are accepted but ignored.
	case offset == regRingBuffer:
		a.ringBufferSizeMode = uint8(v & 0x3)
	case offset >= aicaDSPZoneBase && offset < aicaSystemBase:
		return a.dsp.Write32(offset-aicaDSPZoneBase, v)
	default:
		a.sysRegs[offset] = v
	}
	return nil
}
