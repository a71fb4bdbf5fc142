package toncell

import (
	"bytes"

	"golang.org/x/xerrors"
)

// NewPrunedBranch builds a level-1 pruned placeholder for c: an exotic
// leaf carrying c's level-0 hash and depth instead of its content. Inside
// a merkle proof it stands for the subtree that was cut away.
func NewPrunedBranch(c *Cell) (*Cell, error) {
	b := NewBuilder()
	if err := b.StoreUint(exoticPruned, 8); err != nil {
		return nil, err
	}
	if err := b.StoreUint(1, 8); err != nil { // level mask
		return nil, err
	}
	if err := b.StoreBytes(c.HashAtLevel(0)); err != nil {
		return nil, err
	}
	if err := b.StoreUint(uint64(c.DepthAtLevel(0)), 16); err != nil {
		return nil, err
	}
	return b.EndExoticCell()
}

// NewMerkleProof wraps body in a merkle proof cell. The body is typically
// a copy of some tree with unneeded subtrees replaced by pruned branches.
func NewMerkleProof(body *Cell) (*Cell, error) {
	b := NewBuilder()
	if err := b.StoreUint(exoticProof, 8); err != nil {
		return nil, err
	}
	if err := b.StoreBytes(body.HashAtLevel(0)); err != nil {
		return nil, err
	}
	if err := b.StoreUint(uint64(body.DepthAtLevel(0)), 16); err != nil {
		return nil, err
	}
	if err := b.StoreRef(body); err != nil {
		return nil, err
	}
	return b.EndExoticCell()
}

// UnwrapProof checks that proof is a merkle proof cell whose stored hash
// matches rootHash and returns its body. The stored hash is already known
// to match the body's virtualized hash from construction, so a match here
// ties the body to the expected root.
func UnwrapProof(proof *Cell, rootHash []byte) (*Cell, error) {
	if proof.kind != MerkleProof {
		return nil, xerrors.Errorf("cell is a %s, not a merkle proof: %w", proof.kind, ErrInvalidExoticCell)
	}
	if !bytes.Equal(proof.data[1:33], rootHash) {
		return nil, xerrors.Errorf("proof is for %x, expected %x: %w", proof.data[1:33], rootHash, ErrProofMismatch)
	}
	return proof.refs[0], nil
}
