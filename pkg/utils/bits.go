package utils

import (
	"golang.org/x/exp/constraints"
)

// Returns an all ones bitmask of n bits of the given unsigned integer type
func AllOnes[T constraints.Unsigned](bits int) T {
	if bits <= 0 {
		return 0
	}
	return (T(1) << bits) - T(1)
}

// Extracts a range of bits given a first bit and a width
func Field[T constraints.Unsigned](value T, bit int, width int) T {
	return (value >> bit) & AllOnes[T](width)
}

// Sign extends the lowest n bits of a value to the full width of uint32
func SignExtend(value uint32, bits int) uint32 {
	shift := 32 - bits
	return uint32(int32(value<<shift) >> shift)
}

// Implements a read/write view over an unsigned interger, allowing manipullating individual bits easily
type BitView[T constraints.Unsigned] struct {
	Bits *T
}

// Returns the viewed unsigned int value
func (v BitView[T]) Value() T {
	return *v.Bits
}

// Extracts a range of bits given a first bit and a width
func (v BitView[T]) Read(bit int, width int) T {
	return Field(v.Value(), bit, width)
}

// Copies a value into a range of bits, given the start and width of the range.
// Bits of the value not fitting into the destination range are ignored.
func (v BitView[T]) Write(value T, bit int, width int) {
	mask := AllOnes[T](width) << bit
	*v.Bits = (*v.Bits &^ mask) | ((value << bit) & mask)
}

// Creates a bit view out of an unsigned int
func CreateBitView[T constraints.Unsigned](value *T) BitView[T] {
	return BitView[T]{
		Bits: value,
	}
}
