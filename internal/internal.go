// Package internal holds the raw wire forms of the bag-of-cells envelope,
// separate from the cell logic that interprets them.
package internal

// Header is the parsed fixed part of a BOC envelope.
type Header struct {
	HasIndex     bool
	HasChecksum  bool
	HasCacheBits bool
	SizeBytes    int // byte width of cell indices and counts
	OffBytes     int // byte width of data offsets
	Cells        uint64
	Roots        uint64
	Absent       uint64
	DataSize     uint64 // total byte size of the cell records
	RootList     []uint64
}

// RawCell is one undecoded cell record: descriptor pair, padded data and
// reference indices into the envelope's canonical order.
type RawCell struct {
	Exotic bool
	Mask   byte
	Bits   int
	Data   []byte // unpadded, completion tag stripped
	Refs   []uint64
}
