package toncell

import (
	"crypto/sha256"

	"golang.org/x/xerrors"
)

// Descriptor bytes. d1 packs the ref count, the exotic flag and the level
// mask; d2 packs the data length in half-bytes so that an odd value marks
// a bit-padded final byte. The same pair prefixes both the representation
// hash input and the serialized cell record.
func (c *Cell) descriptor1(mask LevelMask) byte {
	d1 := byte(len(c.refs))
	if c.kind != Ordinary {
		d1 |= 0x08
	}
	return d1 | byte(mask)<<5
}

func (c *Cell) descriptor2() byte {
	return byte(c.bits/8 + bytesForBits(c.bits))
}

// paddedData returns the data padded to a whole number of bytes with a
// single 1-bit completion tag when the bit length is not byte aligned.
func (c *Cell) paddedData() []byte {
	if c.bits%8 == 0 {
		return c.data
	}
	padded := make([]byte, len(c.data))
	copy(padded, c.data)
	padded[c.bits/8] |= 0x80 >> (c.bits % 8)
	return padded
}

// computeHashes fills the per-level hash and depth caches. The level-L
// representation of a cell is
//
//	d1(mask applied to L) d2 body depth(ref1)..depth(refN) hash(ref1)..hash(refN)
//
// where the body is the padded data for the first computed level and the
// previously computed own hash for the ones above, and refs are evaluated
// at level L, or L+1 across a merkle boundary. Pruned branches compute
// only their topmost hash; the rest are stored in their payload.
func (c *Cell) computeHashes() error {
	total := c.mask.HashIndex() + 1
	count := total
	if c.kind == PrunedBranch {
		count = 1
	}
	offset := total - count
	c.hashes = make([][]byte, count)
	c.depths = make([]uint16, count)

	hashIdx := 0
	for level := 0; level <= c.mask.Level(); level++ {
		if !c.mask.IsSignificant(level) {
			continue
		}
		if hashIdx < offset {
			hashIdx++
			continue
		}

		h := sha256.New()
		h.Write([]byte{c.descriptor1(c.mask.Apply(level)), c.descriptor2()})
		if hashIdx == offset {
			h.Write(c.paddedData())
		} else {
			h.Write(c.hashes[hashIdx-offset-1])
		}

		childLevel := level
		if c.kind == MerkleProof || c.kind == MerkleUpdate {
			childLevel = level + 1
		}
		var depth uint16
		for _, ref := range c.refs {
			d := ref.depthAt(childLevel)
			h.Write([]byte{byte(d >> 8), byte(d)})
			if d+1 > depth {
				depth = d + 1
			}
		}
		if depth > maxDepth {
			return xerrors.Errorf("depth %d: %w", depth, ErrDepthOverflow)
		}
		for _, ref := range c.refs {
			h.Write(ref.hashAt(childLevel))
		}

		c.hashes[hashIdx-offset] = h.Sum(nil)
		c.depths[hashIdx-offset] = depth
		hashIdx++
	}
	return nil
}
