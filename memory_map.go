// memory_map.go - compositional physical-memory map (spec §3 "Memory region
// descriptor", §4.2).
//
// Adapted from the teacher's machine_bus.go: that file dispatches a single
// 32-bit-wide bus through a map[uint32][]IORegion page table. Here the
// dispatch is generalized to the full {u8,u16,u32,u64,f32,f64} width matrix
// spec §4.2 requires, region lookup moves from a page-table map to a
// linear scan over a slice kept sorted by First (sort.Search places each new
// region on insert; spec: "linear or binary search over sorted
// descriptors"), and address folding gains the two-stage
// addr_mask / region_mask scheme spec §3 specifies (strip mirror bits, then
// re-mask to a local offset) instead of machine_bus.go's direct range
// comparison.

package dcore

import (
	"math"
	"sort"
)

// RegionKind distinguishes a plain linear-byte-backed RAM-like region from
// one with custom device semantics (spec §3).
type RegionKind int

const (
	RegionRAM RegionKind = iota
	RegionUnknown
)

// RegionOps is the polymorphic capability-set a region implements. A region
// that embeds UnimplementedOps inherits an UnimplementedError for every
// width it does not override (spec §4.2 "Width contracts"). offset passed to every method is already
// (addr & addr_mask) & region_mask, i.e. the region-local offset.
type RegionOps interface {
	Read8(offset uint32) (uint8, error)
	Write8(offset uint32, v uint8) error
	Read16(offset uint32) (uint16, error)
	Write16(offset uint32, v uint16) error
	Read32(offset uint32) (uint32, error)
	Write32(offset uint32, v uint32) error
	Read64(offset uint32) (uint64, error)
	Write64(offset uint32, v uint64) error
	ReadFloat(offset uint32) (float32, error)
	WriteFloat(offset uint32, v float32) error
	ReadDouble(offset uint32) (float64, error)
	WriteDouble(offset uint32, v float64) error
}

// UnimplementedOps embeds into a concrete RegionOps to default every method
// to "unimplemented", so a region only has to override the widths it
// actually serves.
type UnimplementedOps struct{ Name string }

func (u UnimplementedOps) Read8(offset uint32) (uint8, error) {
	return 0, unimplemented(u.Name+".Read8", offset, 1, 0)
}
func (u UnimplementedOps) Write8(offset uint32, v uint8) error {
	return unimplemented(u.Name+".Write8", offset, 1, uint64(v))
}
func (u UnimplementedOps) Read16(offset uint32) (uint16, error) {
	return 0, unimplemented(u.Name+".Read16", offset, 2, 0)
}
func (u UnimplementedOps) Write16(offset uint32, v uint16) error {
	return unimplemented(u.Name+".Write16", offset, 2, uint64(v))
}
func (u UnimplementedOps) Read32(offset uint32) (uint32, error) {
	return 0, unimplemented(u.Name+".Read32", offset, 4, 0)
}
func (u UnimplementedOps) Write32(offset uint32, v uint32) error {
	return unimplemented(u.Name+".Write32", offset, 4, uint64(v))
}
func (u UnimplementedOps) Read64(offset uint32) (uint64, error) {
	return 0, unimplemented(u.Name+".Read64", offset, 8, 0)
}
func (u UnimplementedOps) Write64(offset uint32, v uint64) error {
	return unimplemented(u.Name+".Write64", offset, 8, v)
}
func (u UnimplementedOps) ReadFloat(offset uint32) (float32, error) {
	return 0, unimplemented(u.Name+".ReadFloat", offset, 4, 0)
}
func (u UnimplementedOps) WriteFloat(offset uint32, v float32) error {
	return unimplemented(u.Name+".WriteFloat", offset, 4, uint64(math.Float32bits(v)))
}
func (u UnimplementedOps) ReadDouble(offset uint32) (float64, error) {
	return 0, unimplemented(u.Name+".ReadDouble", offset, 8, 0)
}
func (u UnimplementedOps) WriteDouble(offset uint32, v float64) error {
	return unimplemented(u.Name+".WriteDouble", offset, 8, math.Float64bits(v))
}

// Region is a memory region descriptor (spec §3).
type Region struct {
	First      uint32
	Last       uint32
	AddrMask   uint32
	RegionMask uint32
	Kind       RegionKind
	Ops        RegionOps
	Name       string // diagnostic only, not part of spec's descriptor but useful for faults
}

// fold applies the mask-based mirror folding spec §3/§4.2 describe: strip
// mirror bits with AddrMask, then (after the region is found) re-mask with
// RegionMask to produce the local offset.
func (r *Region) fold(addr uint32) uint32 {
	return addr & r.AddrMask
}

func (r *Region) offsetOf(masked uint32) uint32 {
	return masked & r.RegionMask
}

// audioUnmapOps is the audio-side unmap sentinel: silent, returns zero,
// discards writes (spec §4.2 "Errors").
type audioUnmapOps struct{}

func (audioUnmapOps) Read8(uint32) (uint8, error)     { return 0, nil }
func (audioUnmapOps) Write8(uint32, uint8) error      { return nil }
func (audioUnmapOps) Read16(uint32) (uint16, error)   { return 0, nil }
func (audioUnmapOps) Write16(uint32, uint16) error    { return nil }
func (audioUnmapOps) Read32(uint32) (uint32, error)   { return 0, nil }
func (audioUnmapOps) Write32(uint32, uint32) error    { return nil }
func (audioUnmapOps) Read64(uint32) (uint64, error)   { return 0, nil }
func (audioUnmapOps) Write64(uint32, uint64) error    { return nil }
func (audioUnmapOps) ReadFloat(uint32) (float32, error)   { return 0, nil }
func (audioUnmapOps) WriteFloat(uint32, float32) error    { return nil }
func (audioUnmapOps) ReadDouble(uint32) (float64, error)  { return 0, nil }
func (audioUnmapOps) WriteDouble(uint32, float64) error   { return nil }

// hostUnmapOps is the host-side unmap sentinel: every access is a fatal
// MemoryFaultError (spec §4.2 "Errors": "Unmapped access on the host side
// is fatal").
type hostUnmapOps struct{}

func (hostUnmapOps) Read8(off uint32) (uint8, error) {
	return 0, &MemoryFaultError{Addr: off, Length: 1, Unmapped: true}
}
func (hostUnmapOps) Write8(off uint32, v uint8) error {
	return &MemoryFaultError{Addr: off, Length: 1, Write: true, Value: uint64(v), Unmapped: true}
}
func (hostUnmapOps) Read16(off uint32) (uint16, error) {
	return 0, &MemoryFaultError{Addr: off, Length: 2, Unmapped: true}
}
func (hostUnmapOps) Write16(off uint32, v uint16) error {
	return &MemoryFaultError{Addr: off, Length: 2, Write: true, Value: uint64(v), Unmapped: true}
}
func (hostUnmapOps) Read32(off uint32) (uint32, error) {
	return 0, &MemoryFaultError{Addr: off, Length: 4, Unmapped: true}
}
func (hostUnmapOps) Write32(off uint32, v uint32) error {
	return &MemoryFaultError{Addr: off, Length: 4, Write: true, Value: uint64(v), Unmapped: true}
}
func (hostUnmapOps) Read64(off uint32) (uint64, error) {
	return 0, &MemoryFaultError{Addr: off, Length: 8, Unmapped: true}
}
func (hostUnmapOps) Write64(off uint32, v uint64) error {
	return &MemoryFaultError{Addr: off, Length: 8, Write: true, Value: v, Unmapped: true}
}
func (hostUnmapOps) ReadFloat(off uint32) (float32, error) {
	return 0, &MemoryFaultError{Addr: off, Length: 4, Unmapped: true}
}
func (hostUnmapOps) WriteFloat(off uint32, v float32) error {
	return &MemoryFaultError{Addr: off, Length: 4, Write: true, Value: uint64(math.Float32bits(v)), Unmapped: true}
}
func (hostUnmapOps) ReadDouble(off uint32) (float64, error) {
	return 0, &MemoryFaultError{Addr: off, Length: 8, Unmapped: true}
}
func (hostUnmapOps) WriteDouble(off uint32, v float64) error {
	return &MemoryFaultError{Addr: off, Length: 8, Write: true, Value: math.Float64bits(v), Unmapped: true}
}

// MemoryMap dispatches reads/writes across its registered regions (spec §4.2).
type MemoryMap struct {
	regions []*Region // sorted by First
	unmap   *Region
}

// NewMemoryMap creates a map whose fallback "unmap" region behaves per
// audioSide: silent-zero on the audio CPU side, fatal on the host side.
func NewMemoryMap(audioSide bool) *MemoryMap {
	var ops RegionOps
	if audioSide {
		ops = audioUnmapOps{}
	} else {
		ops = hostUnmapOps{}
	}
	return &MemoryMap{
		unmap: &Region{First: 0, Last: 0xffffffff, AddrMask: 0xffffffff, RegionMask: 0xffffffff, Kind: RegionUnknown, Ops: ops, Name: "unmap"},
	}
}

// AddRegion registers a region and keeps the region slice sorted by First,
// per spec §4.2 "Store regions sorted by first".
func (m *MemoryMap) AddRegion(first, last, addrMask, regionMask uint32, kind RegionKind, ops RegionOps, name string) *Region {
	r := &Region{First: first, Last: last, AddrMask: addrMask, RegionMask: regionMask, Kind: kind, Ops: ops, Name: name}
	i := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].First >= first })
	m.regions = append(m.regions, nil)
	copy(m.regions[i+1:], m.regions[i:])
	m.regions[i] = r
	return r
}

// lookup finds the region containing masked address `masked`, per spec
// §4.2: "mask address with the region's addr_mask, then require first <=
// masked <= last". Each candidate region may use a different addr_mask, so
// this searches all regions (sorted by First) rather than binary-searching
// on the raw address, which would be unsound once masks differ per region.
// In practice region counts are small (tens, not thousands) so this stays
// on the fast path; the host CPU's instruction-fetch bypass (spec §4.2)
// avoids this entirely for the hot path.
func (m *MemoryMap) lookup(addr uint32) (*Region, uint32) {
	for _, r := range m.regions {
		masked := r.fold(addr)
		if masked >= r.First && masked <= r.Last {
			return r, r.offsetOf(masked)
		}
	}
	return m.unmap, addr
}

func Read[T any](m *MemoryMap, addr uint32) (T, error) {
	var zero T
	r, off := m.lookup(addr)
	var v any
	var err error
	switch any(zero).(type) {
	case uint8:
		v, err = r.Ops.Read8(off)
	case uint16:
		v, err = r.Ops.Read16(off)
	case uint32:
		v, err = r.Ops.Read32(off)
	case uint64:
		v, err = r.Ops.Read64(off)
	case float32:
		v, err = r.Ops.ReadFloat(off)
	case float64:
		v, err = r.Ops.ReadDouble(off)
	default:
		return zero, integrityViolation("memory_map.bad-width", "unsupported read type")
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func Write[T any](m *MemoryMap, addr uint32, val T) error {
	r, off := m.lookup(addr)
	switch v := any(val).(type) {
	case uint8:
		return r.Ops.Write8(off, v)
	case uint16:
		return r.Ops.Write16(off, v)
	case uint32:
		return r.Ops.Write32(off, v)
	case uint64:
		return r.Ops.Write64(off, v)
	case float32:
		return r.Ops.WriteFloat(off, v)
	case float64:
		return r.Ops.WriteDouble(off, v)
	default:
		return integrityViolation("memory_map.bad-width", "unsupported write type")
	}
}

// Read8/Write8.../ReadDouble/WriteDouble are thin non-generic wrappers kept
// for callers (notably the two CPU cores) that want the spec's literal
// read<T>/write<T> contract without instantiating the generic helpers
// directly at every call site.
func (m *MemoryMap) Read8(addr uint32) (uint8, error)               { return Read[uint8](m, addr) }
func (m *MemoryMap) Write8(addr uint32, v uint8) error               { return Write(m, addr, v) }
func (m *MemoryMap) Read16(addr uint32) (uint16, error)              { return Read[uint16](m, addr) }
func (m *MemoryMap) Write16(addr uint32, v uint16) error             { return Write(m, addr, v) }
func (m *MemoryMap) Read32(addr uint32) (uint32, error)              { return Read[uint32](m, addr) }
func (m *MemoryMap) Write32(addr uint32, v uint32) error             { return Write(m, addr, v) }
func (m *MemoryMap) Read64(addr uint32) (uint64, error)              { return Read[uint64](m, addr) }
func (m *MemoryMap) Write64(addr uint32, v uint64) error             { return Write(m, addr, v) }
func (m *MemoryMap) ReadFloat(addr uint32) (float32, error)          { return Read[float32](m, addr) }
func (m *MemoryMap) WriteFloat(addr uint32, v float32) error         { return Write(m, addr, v) }
func (m *MemoryMap) ReadDouble(addr uint32) (float64, error)         { return Read[float64](m, addr) }
func (m *MemoryMap) WriteDouble(addr uint32, v float64) error        { return Write(m, addr, v) }
