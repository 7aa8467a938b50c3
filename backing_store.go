// backing_store.go - linear-byte stores for main RAM, boot ROM, flash, AICA
// wave RAM, and register arrays (spec §3 "Backing Stores"), adapted from the
// teacher's machine_bus.go contiguous-[]byte-plus-binary.LittleEndian idiom.

package dcore

import "encoding/binary"

// ByteStore is a flat little-endian-addressed byte array that implements
// RegionOps directly, serving as the backing store for RAM-like regions.
// Double-precision reads/writes are unimplemented by default since none of
// RAM/ROM/flash/wave-RAM is accessed at double width on real hardware; a
// region built from a ByteStore that needs it overrides ReadDouble/WriteDouble.
type ByteStore struct {
	UnimplementedOps
	Bytes    []byte
	ReadOnly bool
}

// NewByteStore allocates a zeroed store of the given size.
func NewByteStore(name string, size int) *ByteStore {
	return &ByteStore{UnimplementedOps: UnimplementedOps{Name: name}, Bytes: make([]byte, size)}
}

// NewByteStoreFrom wraps existing bytes (e.g. a loaded boot ROM image).
func NewByteStoreFrom(name string, data []byte, readOnly bool) *ByteStore {
	return &ByteStore{UnimplementedOps: UnimplementedOps{Name: name}, Bytes: data, ReadOnly: readOnly}
}

func (b *ByteStore) Read8(offset uint32) (uint8, error) {
	if int(offset) >= len(b.Bytes) {
		return 0, &MemoryFaultError{Addr: offset, Length: 1}
	}
	return b.Bytes[offset], nil
}

func (b *ByteStore) Write8(offset uint32, v uint8) error {
	if b.ReadOnly {
		return unimplemented(b.Name+".write-to-readonly", offset, 1, uint64(v))
	}
	if int(offset) >= len(b.Bytes) {
		return &MemoryFaultError{Addr: offset, Length: 1, Write: true, Value: uint64(v)}
	}
	b.Bytes[offset] = v
	return nil
}

func (b *ByteStore) Read16(offset uint32) (uint16, error) {
	if int(offset)+2 > len(b.Bytes) {
		return 0, &MemoryFaultError{Addr: offset, Length: 2}
	}
	return binary.LittleEndian.Uint16(b.Bytes[offset:]), nil
}

func (b *ByteStore) Write16(offset uint32, v uint16) error {
	if b.ReadOnly {
		return unimplemented(b.Name+".write-to-readonly", offset, 2, uint64(v))
	}
	if int(offset)+2 > len(b.Bytes) {
		return &MemoryFaultError{Addr: offset, Length: 2, Write: true, Value: uint64(v)}
	}
	binary.LittleEndian.PutUint16(b.Bytes[offset:], v)
	return nil
}

func (b *ByteStore) Read32(offset uint32) (uint32, error) {
	if int(offset)+4 > len(b.Bytes) {
		return 0, &MemoryFaultError{Addr: offset, Length: 4}
	}
	return binary.LittleEndian.Uint32(b.Bytes[offset:]), nil
}

func (b *ByteStore) Write32(offset uint32, v uint32) error {
	if b.ReadOnly {
		return unimplemented(b.Name+".write-to-readonly", offset, 4, uint64(v))
	}
	if int(offset)+4 > len(b.Bytes) {
		return &MemoryFaultError{Addr: offset, Length: 4, Write: true, Value: uint64(v)}
	}
	binary.LittleEndian.PutUint32(b.Bytes[offset:], v)
	return nil
}

func (b *ByteStore) Read64(offset uint32) (uint64, error) {
	if int(offset)+8 > len(b.Bytes) {
		return 0, &MemoryFaultError{Addr: offset, Length: 8}
	}
	return binary.LittleEndian.Uint64(b.Bytes[offset:]), nil
}

func (b *ByteStore) Write64(offset uint32, v uint64) error {
	if b.ReadOnly {
		return unimplemented(b.Name+".write-to-readonly", offset, 8, v)
	}
	if int(offset)+8 > len(b.Bytes) {
		return &MemoryFaultError{Addr: offset, Length: 8, Write: true, Value: v}
	}
	binary.LittleEndian.PutUint64(b.Bytes[offset:], v)
	return nil
}

// Reset clears the entire store to zero, mirroring machine_bus.go's Reset.
func (b *ByteStore) Reset() {
	for i := range b.Bytes {
		b.Bytes[i] = 0
	}
}

func (b *ByteStore) Len() int { return len(b.Bytes) }
