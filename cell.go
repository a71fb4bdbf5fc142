// Package toncell implements the TON cell data model: bounded binary tree
// nodes ("cells") with sub-byte bit packing, per-level merkle hashing over
// ordinary and exotic cell kinds, a mutable Builder, a read-only Slice
// cursor, and the canonical bag-of-cells (BOC) wire envelope.
package toncell

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/xerrors"
)

const (
	// MaxCellBits is the data capacity of a single cell.
	MaxCellBits = 1023
	// MaxCellRefs is the reference capacity of a single cell.
	MaxCellRefs = 4
	// maxDepth is the protocol limit on cell tree depth.
	maxDepth = 1024
)

// Kind tags the structural variant of a cell. Every kind except Ordinary
// is "exotic" and constrains the cell's data layout and reference count.
type Kind uint8

const (
	Ordinary Kind = iota
	PrunedBranch
	LibraryReference
	MerkleProof
	MerkleUpdate
)

// Exotic type tags as they appear in the first data byte of exotic cells.
const (
	exoticPruned  = 1
	exoticLibrary = 2
	exoticProof   = 3
	exoticUpdate  = 4
)

func (k Kind) String() string {
	switch k {
	case Ordinary:
		return "ordinary"
	case PrunedBranch:
		return "pruned branch"
	case LibraryReference:
		return "library reference"
	case MerkleProof:
		return "merkle proof"
	case MerkleUpdate:
		return "merkle update"
	}
	return "unknown"
}

// Cell is one immutable node of a cell DAG: up to 1023 data bits, up to 4
// ordered references, a kind tag, and hashes/depths cached per level at
// construction. Cells are safe to share across goroutines.
type Cell struct {
	bits int
	data []byte // len == bytesForBits(bits), trailing bits zero
	refs []*Cell
	kind Kind
	mask LevelMask

	// Computed at construction, one entry per computed hash index.
	// Pruned branches compute only their own representation hash; the
	// lower-level ones live in their data payload.
	hashes [][]byte
	depths []uint16
}

// BitsLen returns the number of data bits.
func (c *Cell) BitsLen() int { return c.bits }

// RefsCount returns the number of child references.
func (c *Cell) RefsCount() int { return len(c.refs) }

// Kind returns the cell's structural variant.
func (c *Cell) Kind() Kind { return c.kind }

// IsExotic reports whether the cell is of a non-ordinary kind.
func (c *Cell) IsExotic() bool { return c.kind != Ordinary }

// LevelMask returns the cell's level mask.
func (c *Cell) LevelMask() LevelMask { return c.mask }

// Level returns the cell's highest active merkle level.
func (c *Cell) Level() int { return c.mask.Level() }

// Hash returns the cell's representation hash (the hash at its own level).
// The returned slice must not be modified.
func (c *Cell) Hash() []byte { return c.hashAt(maxLevel) }

// HashAtLevel returns the cell's hash as seen from the given level.
func (c *Cell) HashAtLevel(level int) []byte { return c.hashAt(level) }

// Depth returns the cell's depth at its own level.
func (c *Cell) Depth() uint16 { return c.depthAt(maxLevel) }

// DepthAtLevel returns the cell's depth as seen from the given level.
func (c *Cell) DepthAtLevel(level int) uint16 { return c.depthAt(level) }

// BeginParse returns a fresh read cursor over the cell.
func (c *Cell) BeginParse() *Slice {
	return &Slice{cell: c}
}

func (c *Cell) hashAt(level int) []byte {
	idx := c.mask.Apply(level).HashIndex()
	if c.kind == PrunedBranch {
		if idx != c.mask.HashIndex() {
			// Lower-level hashes of a pruned branch are stored
			// verbatim in its payload, after the type and mask
			// bytes.
			return c.data[2+idx*32 : 2+(idx+1)*32]
		}
		idx = 0
	}
	return c.hashes[idx]
}

func (c *Cell) depthAt(level int) uint16 {
	idx := c.mask.Apply(level).HashIndex()
	if c.kind == PrunedBranch {
		stored := c.mask.HashIndex()
		if idx != stored {
			off := 2 + stored*32 + idx*2
			return binary.BigEndian.Uint16(c.data[off : off+2])
		}
		idx = 0
	}
	return c.depths[idx]
}

// Equal reports structural equality via representation hashes.
func (c *Cell) Equal(other *Cell) bool {
	if c == nil || other == nil {
		return c == other
	}
	return bytes.Equal(c.Hash(), other.Hash())
}

// newCell validates shape, derives kind and level mask, computes all
// hashes and depths, and seals the result. data must hold exactly
// bytesForBits(bits) bytes with unused trailing bits zero; refs is taken
// over by the cell.
func newCell(exotic bool, bitsLen int, data []byte, refs []*Cell) (*Cell, error) {
	if bitsLen > MaxCellBits {
		return nil, ErrBitsOverflow
	}
	if len(refs) > MaxCellRefs {
		return nil, ErrRefsOverflow
	}
	c := &Cell{
		bits: bitsLen,
		data: data,
		refs: refs,
		kind: Ordinary,
	}
	if exotic {
		if err := c.finalizeExotic(); err != nil {
			return nil, err
		}
	} else {
		for _, r := range refs {
			c.mask |= r.mask
		}
	}
	if err := c.computeHashes(); err != nil {
		return nil, err
	}
	return c, nil
}

// finalizeExotic dispatches on the exotic type byte and checks the kind's
// required shape, setting kind and level mask.
func (c *Cell) finalizeExotic() error {
	if c.bits < 8 {
		return xerrors.Errorf("exotic cell with %d bits has no type byte: %w", c.bits, ErrInvalidExoticCell)
	}
	switch c.data[0] {
	case exoticPruned:
		return c.finalizePruned()

	case exoticLibrary:
		if c.bits != 8+256 {
			return xerrors.Errorf("library cell must hold exactly a 256-bit hash, got %d bits: %w", c.bits, ErrInvalidExoticCell)
		}
		if len(c.refs) != 0 {
			return xerrors.Errorf("library cell must have no refs, got %d: %w", len(c.refs), ErrInvalidExoticCell)
		}
		c.kind = LibraryReference
		c.mask = 0
		return nil

	case exoticProof:
		if c.bits != 8+256+16 {
			return xerrors.Errorf("merkle proof cell must hold a hash and a depth, got %d bits: %w", c.bits, ErrInvalidExoticCell)
		}
		if len(c.refs) != 1 {
			return xerrors.Errorf("merkle proof cell must have one ref, got %d: %w", len(c.refs), ErrInvalidExoticCell)
		}
		ref := c.refs[0]
		if !bytes.Equal(c.data[1:33], ref.hashAt(0)) {
			return xerrors.Errorf("merkle proof stored hash differs from ref hash: %w", ErrInvalidExoticCell)
		}
		if binary.BigEndian.Uint16(c.data[33:35]) != ref.depthAt(0) {
			return xerrors.Errorf("merkle proof stored depth differs from ref depth: %w", ErrInvalidExoticCell)
		}
		c.kind = MerkleProof
		c.mask = ref.mask >> 1
		return nil

	case exoticUpdate:
		if c.bits != 8+2*(256+16) {
			return xerrors.Errorf("merkle update cell must hold two hashes and two depths, got %d bits: %w", c.bits, ErrInvalidExoticCell)
		}
		if len(c.refs) != 2 {
			return xerrors.Errorf("merkle update cell must have two refs, got %d: %w", len(c.refs), ErrInvalidExoticCell)
		}
		for i, ref := range c.refs {
			if !bytes.Equal(c.data[1+i*32:33+i*32], ref.hashAt(0)) {
				return xerrors.Errorf("merkle update stored hash %d differs from ref hash: %w", i, ErrInvalidExoticCell)
			}
			off := 65 + i*2
			if binary.BigEndian.Uint16(c.data[off:off+2]) != ref.depthAt(0) {
				return xerrors.Errorf("merkle update stored depth %d differs from ref depth: %w", i, ErrInvalidExoticCell)
			}
		}
		c.kind = MerkleUpdate
		c.mask = (c.refs[0].mask | c.refs[1].mask) >> 1
		return nil
	}
	return xerrors.Errorf("unknown exotic type byte %d: %w", c.data[0], ErrInvalidExoticCell)
}

func (c *Cell) finalizePruned() error {
	if len(c.refs) != 0 {
		return xerrors.Errorf("pruned branch must have no refs, got %d: %w", len(c.refs), ErrInvalidExoticCell)
	}
	if c.bits < 16 {
		return xerrors.Errorf("pruned branch missing level mask byte: %w", ErrInvalidExoticCell)
	}
	mask := LevelMask(c.data[1])
	if mask == 0 || mask.Level() > maxLevel {
		return xerrors.Errorf("pruned branch level mask %#x out of range: %w", uint8(mask), ErrInvalidExoticCell)
	}
	stored := mask.HashIndex()
	if c.bits != 16+stored*(256+16) {
		return xerrors.Errorf("pruned branch with mask %#x must hold %d hashes and depths, got %d bits: %w",
			uint8(mask), stored, c.bits, ErrInvalidExoticCell)
	}
	c.kind = PrunedBranch
	c.mask = mask
	return nil
}
