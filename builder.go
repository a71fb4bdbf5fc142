package toncell

import (
	"github.com/holiman/uint256"
	"golang.org/x/xerrors"
)

// Builder accumulates bits and references and finalizes them into exactly
// one immutable Cell. Every store operation checks capacity up front and
// either succeeds completely or leaves the builder untouched. A builder
// is single-owner mutable state and must not be shared across goroutines.
type Builder struct {
	w    bitWriter
	refs []*Cell
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BitsLeft returns the remaining data capacity in bits.
func (b *Builder) BitsLeft() int { return MaxCellBits - b.w.len }

// RefsLeft returns the remaining reference capacity.
func (b *Builder) RefsLeft() int { return MaxCellRefs - len(b.refs) }

// BitsLen returns the number of bits stored so far.
func (b *Builder) BitsLen() int { return b.w.len }

// RefsCount returns the number of references stored so far.
func (b *Builder) RefsCount() int { return len(b.refs) }

func (b *Builder) checkBits(n int) error {
	if n > b.BitsLeft() {
		return xerrors.Errorf("storing %d bits with %d left: %w", n, b.BitsLeft(), ErrBitsOverflow)
	}
	return nil
}

// StoreBit appends a single bit.
func (b *Builder) StoreBit(one bool) error {
	if err := b.checkBits(1); err != nil {
		return err
	}
	b.w.writeBit(one)
	return nil
}

// StoreUint appends v as an n-bit big-endian unsigned integer. Widths
// beyond 64 are zero-extended.
func (b *Builder) StoreUint(v uint64, n int) error {
	if n < 0 {
		return xerrors.Errorf("unsigned width %d out of range: %w", n, ErrTooBigValue)
	}
	if n < 64 && v>>n != 0 {
		return xerrors.Errorf("%d does not fit %d bits: %w", v, n, ErrTooBigValue)
	}
	if err := b.checkBits(n); err != nil {
		return err
	}
	if n > 64 {
		b.w.writeUint(0, n-64)
		n = 64
	}
	b.w.writeUint(v, n)
	return nil
}

// StoreInt appends v as an n-bit two's-complement signed integer. Widths
// beyond 64 are sign-extended.
func (b *Builder) StoreInt(v int64, n int) error {
	if n < 1 {
		return xerrors.Errorf("signed width %d out of range: %w", n, ErrTooBigValue)
	}
	if n < 64 {
		min, max := int64(-1)<<(n-1), int64(1)<<(n-1)-1
		if v < min || v > max {
			return xerrors.Errorf("%d does not fit %d signed bits: %w", v, n, ErrTooBigValue)
		}
	}
	if err := b.checkBits(n); err != nil {
		return err
	}
	if n > 64 {
		for i := n - 64; i > 0; i-- {
			b.w.writeBit(v < 0)
		}
		n = 64
	}
	b.w.writeUint(uint64(v), n)
	return nil
}

// StoreBigUint appends v as an n-bit big-endian unsigned integer, n <= 256.
func (b *Builder) StoreBigUint(v *uint256.Int, n int) error {
	if n < 0 || n > 256 {
		return xerrors.Errorf("unsigned width %d out of range: %w", n, ErrTooBigValue)
	}
	if v.BitLen() > n {
		return xerrors.Errorf("%s does not fit %d bits: %w", v.Dec(), n, ErrTooBigValue)
	}
	if err := b.checkBits(n); err != nil {
		return err
	}
	raw := v.Bytes32()
	b.w.writeBitsFrom(raw[:], 256-n, n)
	return nil
}

// StoreBytes appends p as 8*len(p) bits.
func (b *Builder) StoreBytes(p []byte) error {
	if err := b.checkBits(len(p) * 8); err != nil {
		return err
	}
	b.w.writeBytes(p)
	return nil
}

// StoreCoins appends a variable-length coin amount: a 4-bit byte-length
// prefix followed by that many big-endian bytes. Amounts over 15 bytes
// (2^120-1) are rejected.
func (b *Builder) StoreCoins(amount *uint256.Int) error {
	raw := amount.Bytes()
	if len(raw) > 15 {
		return xerrors.Errorf("coin amount needs %d bytes, limit is 15: %w", len(raw), ErrTooBigValue)
	}
	if err := b.checkBits(4 + len(raw)*8); err != nil {
		return err
	}
	b.w.writeUint(uint64(len(raw)), 4)
	b.w.writeBytes(raw)
	return nil
}

// StoreRef appends a child reference.
func (b *Builder) StoreRef(c *Cell) error {
	if len(b.refs) == MaxCellRefs {
		return xerrors.Errorf("storing a fifth ref: %w", ErrRefsOverflow)
	}
	b.refs = append(b.refs, c)
	return nil
}

// StoreMaybeRef appends a presence bit and, when c is non-nil, the ref.
func (b *Builder) StoreMaybeRef(c *Cell) error {
	if c == nil {
		return b.StoreBit(false)
	}
	if len(b.refs) == MaxCellRefs {
		return xerrors.Errorf("storing a fifth ref: %w", ErrRefsOverflow)
	}
	if err := b.StoreBit(true); err != nil {
		return err
	}
	return b.StoreRef(c)
}

// StoreSlice appends the unread remainder of s, bits and refs both.
func (b *Builder) StoreSlice(s *Slice) error {
	if err := b.checkBits(s.BitsLeft()); err != nil {
		return err
	}
	if s.RefsLeft() > b.RefsLeft() {
		return xerrors.Errorf("storing %d refs with %d left: %w", s.RefsLeft(), b.RefsLeft(), ErrRefsOverflow)
	}
	b.w.writeBitsFrom(s.cell.data, s.bitPos, s.BitsLeft())
	b.refs = append(b.refs, s.cell.refs[s.refPos:]...)
	return nil
}

// StoreStringTail appends s in snake format: as many whole bytes as fit
// in this cell, then the remainder chained through single-ref child
// cells. Fails without writing when the tail would need a ref and none is
// free.
func (b *Builder) StoreStringTail(s string) error {
	return b.storeSnake([]byte(s))
}

func (b *Builder) storeSnake(data []byte) error {
	fit := b.BitsLeft() / 8
	if len(data) <= fit {
		return b.StoreBytes(data)
	}
	if b.RefsLeft() == 0 {
		return xerrors.Errorf("string tail needs a continuation ref: %w", ErrRefsOverflow)
	}
	child := NewBuilder()
	if err := child.storeSnake(data[fit:]); err != nil {
		return err
	}
	cc, err := child.EndCell()
	if err != nil {
		return err
	}
	if err := b.StoreBytes(data[:fit]); err != nil {
		return err
	}
	return b.StoreRef(cc)
}

// StoreAddr appends a message address: addr_none for nil, addr_std with
// no anycast otherwise.
func (b *Builder) StoreAddr(a *Address) error {
	if a == nil {
		return b.StoreUint(0, 2)
	}
	if err := b.checkBits(2 + 1 + 8 + 256); err != nil {
		return err
	}
	b.w.writeUint(0b10, 2)
	b.w.writeBit(false) // no anycast
	b.w.writeUint(uint64(uint8(a.Workchain)), 8)
	b.w.writeBytes(a.Data[:])
	return nil
}

// EndCell finalizes the builder into an ordinary cell. The builder should
// not be used afterwards; the cell keeps its own copy of the staged data.
func (b *Builder) EndCell() (*Cell, error) {
	return b.endCell(false)
}

// EndExoticCell finalizes the builder into an exotic cell whose kind is
// derived from the first data byte. The stored shape is validated against
// that kind.
func (b *Builder) EndExoticCell() (*Cell, error) {
	return b.endCell(true)
}

func (b *Builder) endCell(exotic bool) (*Cell, error) {
	data := make([]byte, len(b.w.data))
	copy(data, b.w.data)
	refs := make([]*Cell, len(b.refs))
	copy(refs, b.refs)
	return newCell(exotic, b.w.len, data, refs)
}
