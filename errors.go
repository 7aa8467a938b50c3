// errors.go - error taxonomy for the Dreamcast execution core.
//
// See spec §7. The core distinguishes five error kinds; only the first three
// are represented as Go error types that escape a component, since guest
// exceptions are always handled inside the CPU core and host I/O failures
// are reported directly to whichever caller requested the I/O.

package dcore

import "fmt"

// UnimplementedError is raised when software exercises a path the core has
// not modeled. Always fatal to the frame loop.
type UnimplementedError struct {
	Feature string
	Addr    uint32
	Length  uint32
	Value   uint64
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("unimplemented: %s (addr=0x%08x len=%d value=0x%x)", e.Feature, e.Addr, e.Length, e.Value)
}

func unimplemented(feature string, addr uint32, length uint32, value uint64) *UnimplementedError {
	return &UnimplementedError{Feature: feature, Addr: addr, Length: length, Value: value}
}

// IntegrityError signals a broken internal invariant. Always fatal,
// indicates a bug in the core rather than in the guest program.
type IntegrityError struct {
	Invariant string
	Detail    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %s: %s", e.Invariant, e.Detail)
}

func integrityViolation(invariant, detail string) *IntegrityError {
	return &IntegrityError{Invariant: invariant, Detail: detail}
}

// MemoryFaultError is a bounds or alignment error raised by the memory map.
// Fatal on the host-CPU side. On the audio side only accesses that hit no
// region are silent (audioUnmapOps reads zero and discards writes); a
// bounds fault inside a mapped audio region is returned to the caller as
// this error, as on the host side.
type MemoryFaultError struct {
	Addr      uint32
	Length    uint32
	Write     bool
	Value     uint64
	Unmapped  bool
	OutOfWind bool // DMA protection-window violation (§4.6)
}

func (e *MemoryFaultError) Error() string {
	dir := "read"
	if e.Write {
		dir = "write"
	}
	reason := "out of bounds"
	if e.Unmapped {
		reason = "unmapped"
	}
	if e.OutOfWind {
		reason = "outside DMA protection window"
	}
	return fmt.Sprintf("memory %s fault: %s at addr=0x%08x len=%d", dir, reason, e.Addr, e.Length)
}

// TerminationReason is the result handed back from the frame loop on exit.
type TerminationReason int

const (
	TerminationNormal TerminationReason = iota
	TerminationError
	TerminationInterrupted
)

func (t TerminationReason) String() string {
	switch t {
	case TerminationNormal:
		return "NORMAL"
	case TerminationError:
		return "ERROR"
	case TerminationInterrupted:
		return "INTERRUPTED"
	default:
		return "UNKNOWN"
	}
}
