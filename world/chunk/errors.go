package chunk

import "errors"

// Sentinel errors returned by the palette containers, the bit-packed index
// array and the flat-format column decoder. Callers should use errors.Is to
// check for these rather than comparing strings.
var (
	// ErrOutOfBounds is returned when an index passed to a get/set/swap
	// operation is not smaller than the container's fixed entry count.
	ErrOutOfBounds = errors.New("chunk: index out of bounds")
	// ErrPrecondition is returned when with_bits/new is called with a bit
	// width outside the range the container or array is able to support.
	ErrPrecondition = errors.New("chunk: precondition violated")
	// ErrPaletteOverflow is returned when a biome palette is asked to hold
	// more distinct values than its largest variant (2^3) can address.
	ErrPaletteOverflow = errors.New("chunk: palette overflow")
	// ErrDecodeShort is returned when the cursor is exhausted before a
	// section or array finished decoding.
	ErrDecodeShort = errors.New("chunk: short read")
	// ErrDecodeInvalid is returned when an encoded palette container starts
	// with an unknown variant tag. Packed-array word counts are derived from
	// the entry count and bit width, not read from the stream.
	ErrDecodeInvalid = errors.New("chunk: invalid encoded data")
)
