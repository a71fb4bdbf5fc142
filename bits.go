package toncell

// Low-level bit packing shared by Builder, Slice and the BOC codec. All
// multi-bit values are packed most-significant-bit first.

func bytesForBits(n int) int {
	return (n + 7) / 8
}

// bitWriter is a growable MSB-first bit sequence. Capacity checks are the
// caller's job; the writer itself never fails.
type bitWriter struct {
	data []byte
	len  int
}

func (w *bitWriter) writeBit(one bool) {
	if w.len%8 == 0 {
		w.data = append(w.data, 0)
	}
	if one {
		w.data[w.len/8] |= 0x80 >> (w.len % 8)
	}
	w.len++
}

func (w *bitWriter) writeUint(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.writeBit(v>>i&1 == 1)
	}
}

func (w *bitWriter) writeBytes(p []byte) {
	if w.len%8 == 0 {
		w.data = append(w.data, p...)
		w.len += len(p) * 8
		return
	}
	for _, b := range p {
		w.writeUint(uint64(b), 8)
	}
}

// writeBitsFrom copies n bits out of src starting at bit offset off.
func (w *bitWriter) writeBitsFrom(src []byte, off, n int) {
	for i := 0; i < n; i++ {
		w.writeBit(readBit(src, off+i))
	}
}

func readBit(data []byte, off int) bool {
	return data[off/8]&(0x80>>(off%8)) != 0
}

func readUint(data []byte, off, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v <<= 1
		if readBit(data, off+i) {
			v |= 1
		}
	}
	return v
}

// readBits returns n bits starting at off, packed MSB-first into a fresh
// byte slice (left-aligned, trailing bits zero).
func readBits(data []byte, off, n int) []byte {
	out := make([]byte, bytesForBits(n))
	if off%8 == 0 && n%8 == 0 {
		copy(out, data[off/8:off/8+n/8])
		return out
	}
	for i := 0; i < n; i++ {
		if readBit(data, off+i) {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}
