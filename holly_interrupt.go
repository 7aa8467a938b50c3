// holly_interrupt.go - the system block's three-priority-level interrupt
// controller (spec §4.7 "Interrupt controller").
//
// Grounded on the teacher's registers.go address-range-to-device-name
// dispatch idiom, generalized from a static lookup table into the
// runtime {pending, mask} register pairs spec §4.7 describes.

package dcore

// Interrupt source classes (spec §4.7): each has its own 32-bit pending
// register and a bank of per-priority-level mask registers.
type hollyIntClass int

const (
	hollyIntNormal hollyIntClass = iota
	hollyIntExternal
	hollyIntError
	hollyIntClassCount
)

// Priority levels the SH4's IRL encoding exposes for the system block
// (spec §4.7): 2, 4, 6.
var hollyPriorityLevels = [3]uint32{2, 4, 6}

// hollyNoInterrupt is the encoded "nothing pending" level (spec §4.7
// "defaulting to no-interrupt").
const hollyNoInterrupt = 0

// HollyInterrupts is the three-pending-register, nine-mask-register
// controller spec §4.7 names.
type HollyInterrupts struct {
	pending [hollyIntClassCount]uint32
	mask    [3][hollyIntClassCount]uint32 // indexed [priorityIndex][class]

	irqLine func(level uint32) // wired by system.go to the host CPU's external-interrupt input
}

func newHollyInterrupts() *HollyInterrupts {
	return &HollyInterrupts{irqLine: func(uint32) {}}
}

// SetIRQLine wires the encoded-level callback to the host CPU.
func (h *HollyInterrupts) SetIRQLine(fn func(level uint32)) { h.irqLine = fn }

// Raise ORs a source bit into the matching class's pending register and
// re-evaluates the encoded IRQ line (spec §4.7: "raising a source ORs its
// bit into the matching pending register").
func (h *HollyInterrupts) Raise(class hollyIntClass, bit uint32) {
	h.pending[class] |= bit
	h.irqLine(h.EncodedLevel())
}

// Clear clears bits in a class's pending register (software acknowledge).
func (h *HollyInterrupts) Clear(class hollyIntClass, bits uint32) {
	h.pending[class] &^= bits
	h.irqLine(h.EncodedLevel())
}

// SetMask programs the mask register for one (priority level, class) cell.
// priorityIdx is 0/1/2 selecting level 2/4/6 respectively.
func (h *HollyInterrupts) SetMask(priorityIdx int, class hollyIntClass, v uint32) {
	h.mask[priorityIdx][class] = v
}

// EncodedLevel returns the highest priority level whose (mask AND
// pending) is nonzero for any source class, or hollyNoInterrupt if none
// qualify (spec §4.7).
func (h *HollyInterrupts) EncodedLevel() uint32 {
	for i := len(hollyPriorityLevels) - 1; i >= 0; i-- {
		for class := hollyIntClass(0); class < hollyIntClassCount; class++ {
			if h.mask[i][class]&h.pending[class] != 0 {
				return hollyPriorityLevels[i]
			}
		}
	}
	return hollyNoInterrupt
}
