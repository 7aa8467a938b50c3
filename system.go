// system.go - the top-level emulator aggregate: both CPUs, both clocks, both
// memory maps, every backing store and device, wired together exactly as
// spec §3 "Ownership" and §6 describe (spec §4.1, §5).
//
// Grounded on the teacher's single-top-level-struct convention
// (machine_bus.go's SystemBus, read before its own deletion as a CLI-only
// concern): one value exclusively owns every mutable resource, and every
// collaborator below it holds only a weak (non-owning) pointer back for
// wiring interrupts and arming events, per spec.md's explicit ownership
// rule.

package dcore

import "log/slog"

const (
	hostFreqHz  uint64 = 200_000_000 // SH4-class host CPU (spec §4.3)
	audioFreqHz uint64 = 45_000_000  // ARM7-class audio CPU (spec §4.4)
	aicaSampleRateHz uint64 = 44100
)

// Region sizes and spans, per spec §6's literal host memory map.
const (
	bootROMSize = 0x200000  // 0x00000000-0x001fffff
	flashSize   = 0x20000   // 0x00200000-0x0021ffff
	mainRAMSize = 0x1000000 // 16 MiB, mirrored 4x over 0x0c000000-0x0fffffff
	waveRAMSize = 0x200000  // 2 MiB, mirrored 4x on the audio side
	onChipRAMSize = 0x2000  // 0x7c000000-0x7fffffff

	hostAddrMask = 0x1fffffff // upper 3 bits are don't-care cache-area aliasing (spec §6)
)

// System is the complete execution core: everything an embedder needs to
// drive a Dreamcast guest program one instruction or one frame at a time.
type System struct {
	Scheduler *Scheduler

	Host  *SH4
	Audio *ARM7

	HostMem  *MemoryMap
	AudioMem *MemoryMap

	AICA  *AICA
	GDROM *GDROM
	Holly *Holly

	BootROM *ByteStore
	Flash   *ByteStore
	MainRAM *ByteStore
	WaveRAM *ByteStore
	OnChip  *ByteStore

	mount    Mount
	graphics Graphics
	sound    Sound

	audioSampleAccum uint64
}

// stubRegionOps backs the graphics-core address windows spec §6 names as
// "out of scope but covered by stubbed region ops": reads return zero,
// writes are silently discarded, so a guest probing these windows observes
// a present-but-inert device rather than a fatal fault.
type stubRegionOps struct{ UnimplementedOps }

func (stubRegionOps) Read8(uint32) (uint8, error)   { return 0, nil }
func (stubRegionOps) Write8(uint32, uint8) error    { return nil }
func (stubRegionOps) Read16(uint32) (uint16, error) { return 0, nil }
func (stubRegionOps) Write16(uint32, uint16) error  { return nil }
func (stubRegionOps) Read32(uint32) (uint32, error) { return 0, nil }
func (stubRegionOps) Write32(uint32, uint32) error  { return nil }
func (stubRegionOps) Read64(uint32) (uint64, error) { return 0, nil }
func (stubRegionOps) Write64(uint32, uint64) error  { return nil }

// NewSystem constructs the whole core: backing stores sized per spec §6,
// both memory maps populated with every region the spec names as "in
// core", both CPUs reset and ready, and every device cross-wired to the
// interrupt and DMA collaborators it needs. bootROM and flash are copied in
// verbatim (flash is zero-padded/truncated to flashSize); mount, graphics,
// and sound may be nil, in which case the Null* no-op implementations from
// mount.go are used.
func NewSystem(bootROM []byte, flash []byte, mount Mount, graphics Graphics, sound Sound) *System {
	if mount == nil {
		mount = NullMount{}
	}
	if graphics == nil {
		graphics = &NullGraphics{}
	}
	if sound == nil {
		sound = NullSound{}
	}

	sys := &System{
		HostMem:  NewMemoryMap(false),
		AudioMem: NewMemoryMap(true),
		mount:    mount,
		graphics: graphics,
		sound:    sound,
	}

	sys.BootROM = NewByteStoreFrom("boot-rom", padOrTrim(bootROM, bootROMSize), true)
	sys.Flash = NewByteStoreFrom("flash", padOrTrim(flash, flashSize), false)
	sys.MainRAM = NewByteStore("main-ram", mainRAMSize)
	sys.WaveRAM = NewByteStore("wave-ram", waveRAMSize)
	sys.OnChip = NewByteStore("on-chip-ram", onChipRAMSize)

	sys.Host = NewSH4(sys.HostMem)
	sys.Audio = NewARM7(sys.AudioMem)

	sys.Scheduler = NewScheduler(
		NewClock("host", hostFreqHz, sys.dispatchHost),
		NewClock("audio", audioFreqHz, sys.dispatchAudio),
	)

	sys.AICA = NewAICA(sys.Scheduler.Host, sys.Scheduler.Audio)
	sys.AICA.SetWaveRAM(sys.WaveRAM)

	sys.GDROM = NewGDROM(sys.HostMem, sys.Scheduler.Host)
	sys.GDROM.SetMount(sys.mount)
	sys.GDROM.SetInterruptHandler(func() {
		sys.Holly.Interrupts().Raise(hollyIntNormal, hollyIntGDROMComplete)
	})

	sys.Holly = NewHolly(sys.HostMem, sys.graphics, sys.Scheduler.Host, hostFreqHz)
	sys.Holly.Interrupts().SetIRQLine(sys.Host.RaiseInterrupt)

	sys.wireHostMemoryMap()
	sys.wireAudioMemoryMap()

	return sys
}

func padOrTrim(data []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}

// wireHostMemoryMap registers every region spec §6 lists as in-core against
// the host CPU's memory map, with addr_mask stripping the 3 don't-care
// cache-aliasing bits everywhere except the on-chip RAM window, which spec
// §6 says requires all three bits set (no aliasing).
func (sys *System) wireHostMemoryMap() {
	m := sys.HostMem

	m.AddRegion(0x00000000, 0x001fffff, hostAddrMask, uint32(bootROMSize-1), RegionRAM, sys.BootROM, "boot-rom")
	m.AddRegion(0x00200000, 0x0021ffff, hostAddrMask, uint32(flashSize-1), RegionRAM, sys.Flash, "flash")

	m.AddRegion(0x005f6800, 0x005f69ff, hostAddrMask, 0x1ff, RegionUnknown, sys.Holly.Ops(), "holly-regs")
	m.AddRegion(0x005f7000, 0x005f70ff, hostAddrMask, 0xff, RegionUnknown, sys.GDROM.Ops(), "gdrom-regs")
	m.AddRegion(0x005f7400, 0x005f74ff, hostAddrMask, 0xff, RegionUnknown, sys.GDROM.DMAOps(), "gdrom-dma")

	m.AddRegion(0x00700000, 0x00707fff, hostAddrMask, 0x7fff, RegionUnknown, sys.AICA.Ops(), "aica-regs")
	m.AddRegion(0x00800000, 0x009fffff, hostAddrMask, uint32(waveRAMSize-1), RegionRAM, sys.WaveRAM, "wave-ram-mirror")

	m.AddRegion(0x0c000000, 0x0fffffff, hostAddrMask, uint32(mainRAMSize-1), RegionRAM, sys.MainRAM, "main-ram")

	// Out-of-scope graphics windows: present but inert, per spec §6.
	stub := stubRegionOps{UnimplementedOps{Name: "graphics-stub"}}
	m.AddRegion(0x04000000, 0x07ffffff, hostAddrMask, 0xffffffff, RegionUnknown, stub, "graphics-core-stub")
	m.AddRegion(0x10000000, 0x11ffffff, hostAddrMask, 0xffffffff, RegionUnknown, stub, "graphics-dma-stub")

	m.AddRegion(0x7c000000, 0x7fffffff, 0xffffffff, uint32(onChipRAMSize-1), RegionRAM, sys.OnChip, "on-chip-ram")
}

// wireAudioMemoryMap registers the ARM7-visible map: wave RAM mirrored four
// times over the bottom 8 MiB, and the same AICA register bank spec §6
// places at 0x00800000 on the audio side (the audio CPU drives its own
// channels directly rather than through the host-side mirror).
func (sys *System) wireAudioMemoryMap() {
	m := sys.AudioMem
	m.AddRegion(0x00000000, 0x007fffff, 0xffffffff, uint32(waveRAMSize-1), RegionRAM, sys.WaveRAM, "wave-ram")
	m.AddRegion(0x00800000, 0x00807fff, 0xffffffff, 0x7fff, RegionUnknown, sys.AICA.Ops(), "aica-regs-audio-side")
}

// dispatchHost is the host clock's dispatch function: run the SH4 for the
// requested cycle budget. Holly's interrupt controller pushes its encoded
// level to the host CPU directly on every Raise/Clear (see
// HollyInterrupts.irqLine), so no polling is needed here; this only
// surfaces fatal errors latched by a scheduled DMA completion that had no
// synchronous caller to report to.
func (sys *System) dispatchHost(countdown uint64) uint64 {
	consumed := sys.Host.Execute(countdown)
	if err := sys.GDROM.LastError(); err != nil {
		slog.Error("gdrom: fatal error raised from scheduled event", "err", err)
	}
	if err := sys.Holly.LastError(); err != nil {
		slog.Error("holly: fatal error raised from scheduled event", "err", err)
	}
	return consumed
}

// dispatchAudio is the audio clock's dispatch function: run the ARM7, pump
// AICA's sample generator at its fixed playback rate regardless of the
// audio clock's much higher instruction-execution frequency, and deliver a
// pending FIQ for any enabled AICA audio-side interrupt source.
func (sys *System) dispatchAudio(countdown uint64) uint64 {
	consumed := sys.Audio.Execute(countdown)

	sys.audioSampleAccum += consumed
	cyclesPerSample := audioFreqHz / aicaSampleRateHz
	for sys.audioSampleAccum >= cyclesPerSample {
		sys.audioSampleAccum -= cyclesPerSample
		sample := sys.AICA.StepSample()
		sys.sound.SubmitSamples([]int32{sample})
	}

	if sys.AICA.audioInterrupts.effective() != 0 {
		sys.Audio.RaiseFIQ()
	}
	return consumed
}

// RunFrame advances the whole system by one frame, per spec §4.1/§5: the
// scheduler alternates timeslices on both clocks until end-of-frame is
// signalled (normally by the graphics collaborator, out of scope here, or
// by a test driving Scheduler.SignalEndOfFrame directly).
func (sys *System) RunFrame() TerminationReason {
	return sys.Scheduler.RunFrame()
}

// Mount exposes the disc-image collaborator, e.g. so a test can swap it
// after construction.
func (sys *System) Mount() Mount { return sys.mount }

// SetMount swaps the disc-image collaborator, e.g. when an embedder loads a
// disc image after construction.
func (sys *System) SetMount(m Mount) {
	sys.mount = m
	sys.GDROM.SetMount(m)
}
