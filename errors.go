package toncell

import "errors"

var (
	// Builder capacity violations. Appends are atomic: a failed store
	// leaves the builder exactly as it was.
	ErrBitsOverflow = errors.New("cell data capacity exceeded (1023 bits)")
	ErrRefsOverflow = errors.New("cell reference capacity exceeded (4 refs)")

	// ErrTooBigValue reports a value that does not fit the requested
	// bit width (or a coin amount over 15 bytes).
	ErrTooBigValue = errors.New("value does not fit requested width")

	// Slice exhaustion.
	ErrBitsUnderflow = errors.New("not enough bits remain in slice")
	ErrRefsUnderflow = errors.New("not enough refs remain in slice")

	// ErrNotExhausted reports leftover bits or refs where a strict
	// decoder required the slice to be fully consumed.
	ErrNotExhausted = errors.New("slice is not fully consumed")

	// ErrInvalidAddr reports an address layout this core does not
	// handle: an unknown tag or an anycast prefix.
	ErrInvalidAddr = errors.New("unsupported address layout")

	// ErrInvalidString reports a snake string whose chunk is not a
	// whole number of bytes.
	ErrInvalidString = errors.New("malformed snake string")

	// ErrInvalidBOC reports a malformed bag-of-cells envelope: bad
	// magic, inconsistent sizes, truncated records or padding.
	ErrInvalidBOC = errors.New("invalid bag of cells")

	// ErrChecksumMismatch reports a CRC32C trailer that does not match
	// the envelope content.
	ErrChecksumMismatch = errors.New("bag of cells checksum mismatch")

	// ErrBadRefIndex reports a cell reference index that is out of
	// range or not strictly greater than its source index (a cycle or
	// corruption signal).
	ErrBadRefIndex = errors.New("invalid cell reference index")

	// ErrInvalidExoticCell reports an exotic cell whose stored shape
	// does not match its declared kind.
	ErrInvalidExoticCell = errors.New("malformed exotic cell")

	// ErrDepthOverflow reports a cell tree deeper than the protocol
	// limit of 1024.
	ErrDepthOverflow = errors.New("cell depth limit exceeded")

	// ErrProofMismatch reports a merkle proof whose stored hash does
	// not match the expected root hash.
	ErrProofMismatch = errors.New("merkle proof hash mismatch")
)
