// mount.go - the three consumed external interfaces spec §6 names as
// contracts only (Mount, Graphics, Sound), plus null implementations used
// by tests and by any embedder that has not wired a real disc image,
// renderer, or audio sink yet.
//
// Grounded on the teacher's pattern of small, synchronous callback
// interfaces for its own video/audio output sinks (video_chip.go's
// FrameSink-style consumer), generalized to the three boundary contracts
// spec.md §6 specifies only as signatures.

package dcore

// DiscType enumerates the disc classifications Mount.DiscType reports.
type DiscType int

const (
	DiscTypeNone DiscType = iota
	DiscTypeCDDA
	DiscTypeGDROM
)

// Mount is the disc-image collaborator spec §6 specifies: "check() ->
// bool, read_sectors(buf, fad, n), read_toc(out, region),
// get_session_start(idx, &tno, &fad), get_leadout() -> lba,
// get_disc_type() -> enum".
type Mount interface {
	Check() bool
	ReadSectors(buf []byte, fad uint32, n uint32) error
	ReadTOC(out []byte, region uint8) error
	SessionStart(idx int) (trackNo int, fad uint32, err error)
	Leadout() uint32
	DiscType() DiscType
}

// Graphics is the tile-accelerator/video collaborator spec §6 specifies.
type Graphics interface {
	TAFIFOInput(dword uint32)
	TAFIFOPolyWrite32(addr uint32, val uint32)
	TexMemWrite32(addr uint32, val uint32)
	TexMemWrite64(addr uint32, val uint64)
	YUVInputData(buf []byte)
	EndOfFrame()
}

// Sound is the audio-output collaborator spec §6 specifies.
type Sound interface {
	SubmitSamples(buf []int32)
}

// NullMount reports an empty drive: Check fails, every read is a no-op
// success over a zeroed buffer.
type NullMount struct{}

func (NullMount) Check() bool                                     { return false }
func (NullMount) ReadSectors(buf []byte, fad uint32, n uint32) error { return nil }
func (NullMount) ReadTOC(out []byte, region uint8) error            { return nil }
func (NullMount) SessionStart(idx int) (int, uint32, error)         { return 0, 0, nil }
func (NullMount) Leadout() uint32                                   { return 0 }
func (NullMount) DiscType() DiscType                                { return DiscTypeNone }

// NullGraphics renders nothing; it records the words passed to
// TAFIFOInput and TAFIFOPolyWrite32 so tests can check what the DMA
// engines delivered without an actual renderer.
type NullGraphics struct {
	TAWords   []uint32
	PolyWords []uint32
}

func (g *NullGraphics) TAFIFOInput(dword uint32)              { g.TAWords = append(g.TAWords, dword) }
func (g *NullGraphics) TAFIFOPolyWrite32(addr uint32, val uint32) { g.PolyWords = append(g.PolyWords, val) }
func (g *NullGraphics) TexMemWrite32(addr uint32, val uint32) {}
func (g *NullGraphics) TexMemWrite64(addr uint32, val uint64) {}
func (g *NullGraphics) YUVInputData(buf []byte)               {}
func (g *NullGraphics) EndOfFrame()                           {}

// NullSound discards submitted samples.
type NullSound struct{}

func (NullSound) SubmitSamples(buf []int32) {}
