package toncell

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math/bits"
	"sync"

	"github.com/Dzeta-tech/toncell/internal"
	"golang.org/x/xerrors"
)

// Bag-of-cells envelope: magic, flags+index-width byte, offset width,
// cell/root/absent counts, total data size, root index list, optional
// cumulative offset index, cell records, optional CRC32C trailer. Cells
// are deduplicated by representation hash and ordered so that every
// reference points to a strictly greater index.

const bocMagic = 0xb5ee9c72

const (
	flagHasIndex     = 0x80
	flagHasChecksum  = 0x40
	flagHasCacheBits = 0x20
	// d1 bit 4 marks records with inlined hashes, which this codec
	// neither emits nor accepts.
	flagStoredHashes = 0x10
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(nil)
	},
}

// EncodeBOC serializes the given roots and everything reachable from them
// into the canonical envelope.
func EncodeBOC(roots []*Cell, opts ...Option) ([]byte, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if len(roots) == 0 {
		return nil, xerrors.Errorf("no roots to serialize: %w", ErrInvalidBOC)
	}

	order, index := orderCells(roots)
	sizeBytes := uintBytes(uint64(len(order)))

	var dataSize uint64
	for _, c := range order {
		dataSize += uint64(2 + len(c.data) + len(c.refs)*sizeBytes)
	}
	maxOff := dataSize
	if cfg.cacheBits {
		maxOff <<= 1
	}
	offBytes := uintBytes(maxOff)

	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	writeUintN(buf, bocMagic, 4)
	flags := byte(sizeBytes)
	if cfg.index {
		flags |= flagHasIndex
	}
	if cfg.checksum {
		flags |= flagHasChecksum
	}
	if cfg.cacheBits {
		flags |= flagHasCacheBits
	}
	buf.WriteByte(flags)
	buf.WriteByte(byte(offBytes))
	writeUintN(buf, uint64(len(order)), sizeBytes)
	writeUintN(buf, uint64(len(roots)), sizeBytes)
	writeUintN(buf, 0, sizeBytes) // absent cells
	writeUintN(buf, dataSize, offBytes)
	for _, r := range roots {
		writeUintN(buf, index[string(r.Hash())], sizeBytes)
	}

	if cfg.index {
		var off uint64
		for _, c := range order {
			off += uint64(2 + len(c.data) + len(c.refs)*sizeBytes)
			entry := off
			if cfg.cacheBits {
				entry <<= 1
			}
			writeUintN(buf, entry, offBytes)
		}
	}

	for _, c := range order {
		buf.WriteByte(c.descriptor1(c.mask))
		buf.WriteByte(c.descriptor2())
		buf.Write(c.paddedData())
		for _, ref := range c.refs {
			writeUintN(buf, index[string(ref.Hash())], sizeBytes)
		}
	}

	if cfg.checksum {
		sum := crc32.Checksum(buf.Bytes(), crcTable)
		var trailer [4]byte
		binary.LittleEndian.PutUint32(trailer[:], sum)
		buf.Write(trailer[:])
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// ToBOC serializes the cell as a single-root envelope.
func (c *Cell) ToBOC(opts ...Option) ([]byte, error) {
	return EncodeBOC([]*Cell{c}, opts...)
}

// orderCells deduplicates by representation hash and produces a
// topological order: reverse DFS post-order, roots visited last-first so
// roots occupy the earliest indices their first visit allows and every
// reference points forward.
func orderCells(roots []*Cell) ([]*Cell, map[string]uint64) {
	var post []*Cell
	seen := make(map[string]bool)
	var visit func(c *Cell)
	visit = func(c *Cell) {
		key := string(c.Hash())
		if seen[key] {
			return
		}
		seen[key] = true
		for _, ref := range c.refs {
			visit(ref)
		}
		post = append(post, c)
	}
	for i := len(roots) - 1; i >= 0; i-- {
		visit(roots[i])
	}

	order := make([]*Cell, len(post))
	index := make(map[string]uint64, len(post))
	for i, c := range post {
		j := len(post) - 1 - i
		order[j] = c
		index[string(c.Hash())] = uint64(j)
	}
	return order, index
}

// uintBytes is the minimum byte width able to represent v.
func uintBytes(v uint64) int {
	return 1 + (bits.Len64(v)-1)/8
}

func writeUintN(buf *bytes.Buffer, v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		buf.WriteByte(byte(v >> (8 * i)))
	}
}

// byteReader is a bounds-checked cursor over the envelope bytes.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, xerrors.Errorf("truncated envelope at byte %d: %w", r.pos, ErrInvalidBOC)
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) uintN(n int) (uint64, error) {
	raw, err := r.take(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range raw {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// DecodeBOC parses an envelope back into its root cells, validating the
// header, sizes, checksum, reference ordering and exotic cell shapes. It
// fails fast: no roots are returned on any violation.
func DecodeBOC(data []byte) ([]*Cell, error) {
	hdr, body, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	raws, err := parseRecords(hdr, body)
	if err != nil {
		return nil, err
	}

	// Resolve from the highest index down: the forward-reference
	// invariant guarantees every referenced cell is already built.
	cells := make([]*Cell, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		raw := raws[i]
		refs := make([]*Cell, len(raw.Refs))
		for j, ri := range raw.Refs {
			if ri <= uint64(i) || ri >= uint64(len(raws)) {
				return nil, xerrors.Errorf("cell %d references cell %d: %w", i, ri, ErrBadRefIndex)
			}
			refs[j] = cells[ri]
		}
		c, err := newCell(raw.Exotic, raw.Bits, raw.Data, refs)
		if err != nil {
			return nil, xerrors.Errorf("reconstructing cell %d: %w", i, err)
		}
		if c.mask != LevelMask(raw.Mask) {
			return nil, xerrors.Errorf("cell %d declares level mask %#x, computed %#x: %w",
				i, raw.Mask, uint8(c.mask), ErrInvalidBOC)
		}
		cells[i] = c
	}

	roots := make([]*Cell, len(hdr.RootList))
	for i, ri := range hdr.RootList {
		roots[i] = cells[ri]
	}
	return roots, nil
}

// FromBOC decodes an envelope that must contain exactly one root.
func FromBOC(data []byte) (*Cell, error) {
	roots, err := DecodeBOC(data)
	if err != nil {
		return nil, err
	}
	if len(roots) != 1 {
		return nil, xerrors.Errorf("expected a single root, got %d: %w", len(roots), ErrInvalidBOC)
	}
	return roots[0], nil
}

func decodeHeader(data []byte) (*internal.Header, []byte, error) {
	r := &byteReader{data: data}

	magic, err := r.uintN(4)
	if err != nil {
		return nil, nil, err
	}
	if magic != bocMagic {
		return nil, nil, xerrors.Errorf("bad magic %#x: %w", magic, ErrInvalidBOC)
	}

	flags, err := r.uintN(1)
	if err != nil {
		return nil, nil, err
	}
	hdr := &internal.Header{
		HasIndex:     flags&flagHasIndex != 0,
		HasChecksum:  flags&flagHasChecksum != 0,
		HasCacheBits: flags&flagHasCacheBits != 0,
		SizeBytes:    int(flags & 0x07),
	}
	if flags&0x18 != 0 {
		return nil, nil, xerrors.Errorf("reserved flag bits set: %w", ErrInvalidBOC)
	}
	if hdr.SizeBytes == 0 {
		return nil, nil, xerrors.Errorf("zero index width: %w", ErrInvalidBOC)
	}
	if hdr.HasCacheBits && !hdr.HasIndex {
		return nil, nil, xerrors.Errorf("cache bits without an index: %w", ErrInvalidBOC)
	}

	off, err := r.uintN(1)
	if err != nil {
		return nil, nil, err
	}
	if off == 0 || off > 8 {
		return nil, nil, xerrors.Errorf("offset width %d out of range: %w", off, ErrInvalidBOC)
	}
	hdr.OffBytes = int(off)

	if hdr.Cells, err = r.uintN(hdr.SizeBytes); err != nil {
		return nil, nil, err
	}
	if hdr.Roots, err = r.uintN(hdr.SizeBytes); err != nil {
		return nil, nil, err
	}
	if hdr.Absent, err = r.uintN(hdr.SizeBytes); err != nil {
		return nil, nil, err
	}
	if hdr.DataSize, err = r.uintN(hdr.OffBytes); err != nil {
		return nil, nil, err
	}
	if hdr.DataSize > uint64(len(data)) {
		return nil, nil, xerrors.Errorf("declared data size %d exceeds envelope: %w", hdr.DataSize, ErrInvalidBOC)
	}
	if hdr.Absent != 0 {
		return nil, nil, xerrors.Errorf("absent cells are not supported: %w", ErrInvalidBOC)
	}
	if hdr.Roots == 0 || hdr.Roots > hdr.Cells {
		return nil, nil, xerrors.Errorf("%d roots for %d cells: %w", hdr.Roots, hdr.Cells, ErrInvalidBOC)
	}
	// Every record is at least two descriptor bytes; this bounds the
	// cell count against the declared data size before any allocation.
	if hdr.Cells > hdr.DataSize/2 {
		return nil, nil, xerrors.Errorf("%d cells cannot fit %d data bytes: %w", hdr.Cells, hdr.DataSize, ErrInvalidBOC)
	}

	hdr.RootList = make([]uint64, hdr.Roots)
	for i := range hdr.RootList {
		ri, err := r.uintN(hdr.SizeBytes)
		if err != nil {
			return nil, nil, err
		}
		if ri >= hdr.Cells {
			return nil, nil, xerrors.Errorf("root index %d out of range: %w", ri, ErrBadRefIndex)
		}
		hdr.RootList[i] = ri
	}

	idxLen := 0
	if hdr.HasIndex {
		idxLen = int(hdr.Cells) * hdr.OffBytes
	}
	crcLen := 0
	if hdr.HasChecksum {
		crcLen = 4
	}
	expect := r.pos + idxLen + int(hdr.DataSize) + crcLen
	if expect != len(data) {
		return nil, nil, xerrors.Errorf("envelope is %d bytes, header declares %d: %w", len(data), expect, ErrInvalidBOC)
	}

	if hdr.HasChecksum {
		want := binary.LittleEndian.Uint32(data[len(data)-4:])
		if got := crc32.Checksum(data[:len(data)-4], crcTable); got != want {
			return nil, nil, xerrors.Errorf("crc32c %#08x, trailer says %#08x: %w", got, want, ErrChecksumMismatch)
		}
	}

	if hdr.HasIndex {
		var prev uint64
		for i := uint64(0); i < hdr.Cells; i++ {
			entry, err := r.uintN(hdr.OffBytes)
			if err != nil {
				return nil, nil, err
			}
			if hdr.HasCacheBits {
				entry >>= 1
			}
			if entry < prev || entry > hdr.DataSize {
				return nil, nil, xerrors.Errorf("index entry %d offset %d out of order: %w", i, entry, ErrInvalidBOC)
			}
			prev = entry
		}
		if prev != hdr.DataSize {
			return nil, nil, xerrors.Errorf("index ends at %d, data size is %d: %w", prev, hdr.DataSize, ErrInvalidBOC)
		}
	}

	return hdr, data[r.pos : r.pos+int(hdr.DataSize)], nil
}

func parseRecords(hdr *internal.Header, body []byte) ([]internal.RawCell, error) {
	r := &byteReader{data: body}
	raws := make([]internal.RawCell, hdr.Cells)
	for i := range raws {
		d, err := r.take(2)
		if err != nil {
			return nil, err
		}
		d1, d2 := d[0], d[1]
		if d1&flagStoredHashes != 0 {
			return nil, xerrors.Errorf("cell %d carries inlined hashes: %w", i, ErrInvalidBOC)
		}
		refsN := int(d1 & 0x07)
		if refsN > MaxCellRefs {
			return nil, xerrors.Errorf("cell %d declares %d refs: %w", i, refsN, ErrInvalidBOC)
		}

		dataLen := (int(d2) + 1) / 2
		raw, err := r.take(dataLen)
		if err != nil {
			return nil, err
		}
		bitsLen := dataLen * 8
		cellData := make([]byte, dataLen)
		copy(cellData, raw)
		if d2%2 == 1 {
			// Odd d2 marks a bit-padded final byte: a single 1
			// completion tag followed by zeros. Strip it.
			last := cellData[dataLen-1]
			if last == 0 {
				return nil, xerrors.Errorf("cell %d padding tag missing: %w", i, ErrInvalidBOC)
			}
			tz := bits.TrailingZeros8(last)
			if tz == 7 {
				// The final byte is pure padding: a correct
				// encoder would have dropped it.
				return nil, xerrors.Errorf("cell %d has an empty padded byte: %w", i, ErrInvalidBOC)
			}
			bitsLen = dataLen*8 - tz - 1
			cellData[dataLen-1] = last &^ (1 << tz)
		}

		refs := make([]uint64, refsN)
		for j := range refs {
			if refs[j], err = r.uintN(hdr.SizeBytes); err != nil {
				return nil, err
			}
		}

		raws[i] = internal.RawCell{
			Exotic: d1&0x08 != 0,
			Mask:   d1 >> 5,
			Bits:   bitsLen,
			Data:   cellData,
			Refs:   refs,
		}
	}
	if r.pos != len(body) {
		return nil, xerrors.Errorf("%d trailing bytes after cell records: %w", len(body)-r.pos, ErrInvalidBOC)
	}
	return raws, nil
}
