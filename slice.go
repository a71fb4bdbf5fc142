package toncell

import (
	"github.com/holiman/uint256"
	"golang.org/x/xerrors"
)

// Slice is a read cursor over one cell: a bit position and a ref index.
// It never mutates the cell, so any number of slices over the same cell
// may coexist; a single slice is single-owner mutable state like Builder.
type Slice struct {
	cell   *Cell
	bitPos int
	refPos int
}

// BitsLeft returns the number of unread bits.
func (s *Slice) BitsLeft() int { return s.cell.bits - s.bitPos }

// RefsLeft returns the number of unread refs.
func (s *Slice) RefsLeft() int { return len(s.cell.refs) - s.refPos }

// Copy duplicates the cursor for speculative lookahead; advancing the
// copy leaves the original untouched.
func (s *Slice) Copy() *Slice {
	dup := *s
	return &dup
}

// ExpectEnd fails unless every bit and ref has been consumed. Strict
// decoders use it to require exact accounting of a cell's content.
func (s *Slice) ExpectEnd() error {
	if s.BitsLeft() != 0 || s.RefsLeft() != 0 {
		return xerrors.Errorf("%d bits and %d refs left: %w", s.BitsLeft(), s.RefsLeft(), ErrNotExhausted)
	}
	return nil
}

func (s *Slice) checkBits(n int) error {
	if n > s.BitsLeft() {
		return xerrors.Errorf("loading %d bits with %d left: %w", n, s.BitsLeft(), ErrBitsUnderflow)
	}
	return nil
}

// LoadBit reads one bit.
func (s *Slice) LoadBit() (bool, error) {
	if err := s.checkBits(1); err != nil {
		return false, err
	}
	b := readBit(s.cell.data, s.bitPos)
	s.bitPos++
	return b, nil
}

// LoadUint reads an n-bit big-endian unsigned integer, n <= 64.
func (s *Slice) LoadUint(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, xerrors.Errorf("unsigned width %d out of range: %w", n, ErrTooBigValue)
	}
	if err := s.checkBits(n); err != nil {
		return 0, err
	}
	v := readUint(s.cell.data, s.bitPos, n)
	s.bitPos += n
	return v, nil
}

// LoadInt reads an n-bit two's-complement signed integer, n <= 64.
func (s *Slice) LoadInt(n int) (int64, error) {
	if n < 1 || n > 64 {
		return 0, xerrors.Errorf("signed width %d out of range: %w", n, ErrTooBigValue)
	}
	v, err := s.LoadUint(n)
	if err != nil {
		return 0, err
	}
	if n < 64 && v&(1<<(n-1)) != 0 {
		v |= ^uint64(0) << n // sign extend
	}
	return int64(v), nil
}

// LoadBigUint reads an n-bit big-endian unsigned integer, n <= 256.
func (s *Slice) LoadBigUint(n int) (*uint256.Int, error) {
	if n < 0 || n > 256 {
		return nil, xerrors.Errorf("unsigned width %d out of range: %w", n, ErrTooBigValue)
	}
	if err := s.checkBits(n); err != nil {
		return nil, err
	}
	raw := readBits(s.cell.data, s.bitPos, n)
	s.bitPos += n
	v := new(uint256.Int).SetBytes(raw)
	if pad := uint(len(raw)*8 - n); pad != 0 {
		v.Rsh(v, pad)
	}
	return v, nil
}

// LoadBytes reads n whole bytes.
func (s *Slice) LoadBytes(n int) ([]byte, error) {
	if n < 0 || n > MaxCellBits/8 {
		return nil, xerrors.Errorf("byte count %d out of range: %w", n, ErrTooBigValue)
	}
	if err := s.checkBits(n * 8); err != nil {
		return nil, err
	}
	raw := readBits(s.cell.data, s.bitPos, n*8)
	s.bitPos += n * 8
	return raw, nil
}

// LoadCoins reads a variable-length coin amount, the inverse of
// Builder.StoreCoins.
func (s *Slice) LoadCoins() (*uint256.Int, error) {
	n, err := s.LoadUint(4)
	if err != nil {
		return nil, err
	}
	raw, err := s.LoadBytes(int(n))
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(raw), nil
}

// LoadRef reads the next child cell.
func (s *Slice) LoadRef() (*Cell, error) {
	if s.RefsLeft() == 0 {
		return nil, xerrors.Errorf("loading a ref with none left: %w", ErrRefsUnderflow)
	}
	c := s.cell.refs[s.refPos]
	s.refPos++
	return c, nil
}

// LoadMaybeRef reads a presence bit and, when set, the next child cell.
// Returns nil for an absent ref.
func (s *Slice) LoadMaybeRef() (*Cell, error) {
	present, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return s.LoadRef()
}

// LoadAddr reads a message address: nil for addr_none, the workchain and
// account id for addr_std. Other address variants are rejected.
func (s *Slice) LoadAddr() (*Address, error) {
	tag, err := s.LoadUint(2)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0b00:
		return nil, nil
	case 0b10:
		anycast, err := s.LoadBit()
		if err != nil {
			return nil, err
		}
		if anycast {
			return nil, xerrors.Errorf("anycast addresses are not supported: %w", ErrInvalidAddr)
		}
		wc, err := s.LoadUint(8)
		if err != nil {
			return nil, err
		}
		raw, err := s.LoadBytes(32)
		if err != nil {
			return nil, err
		}
		a := &Address{Workchain: int8(wc)}
		copy(a.Data[:], raw)
		return a, nil
	}
	return nil, xerrors.Errorf("unsupported address tag %#b: %w", tag, ErrInvalidAddr)
}

// LoadStringTail reads a snake-format string: the remaining whole bytes
// of this cell, then the continuation chain through single child refs.
func (s *Slice) LoadStringTail() (string, error) {
	var out []byte
	for {
		if s.BitsLeft()%8 != 0 {
			return "", xerrors.Errorf("string tail has %d trailing bits: %w", s.BitsLeft()%8, ErrInvalidString)
		}
		chunk, err := s.LoadBytes(s.BitsLeft() / 8)
		if err != nil {
			return "", err
		}
		out = append(out, chunk...)
		if s.RefsLeft() == 0 {
			return string(out), nil
		}
		next, err := s.LoadRef()
		if err != nil {
			return "", err
		}
		s = next.BeginParse()
	}
}
