package toncell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildAccountState is a stand-in for a real tree a proof would be cut
// from: a root with two subtrees, of which only one is of interest.
func buildAccountState(t *testing.T) (root, keep, prune *Cell) {
	t.Helper()
	keep = mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(0x600D, 16))
	})
	prune = mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(0xDEAD, 16))
		require.NoError(t, b.StoreRef(mustCell(t, func(b *Builder) {
			require.NoError(t, b.StoreUint(1, 1))
		})))
	})
	root = mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(5, 8))
		require.NoError(t, b.StoreRef(keep))
		require.NoError(t, b.StoreRef(prune))
	})
	return root, keep, prune
}

func TestProofRoundTrip(t *testing.T) {
	root, keep, prune := buildAccountState(t)

	pruned, err := NewPrunedBranch(prune)
	require.NoError(t, err)

	// Rebuild the root with the uninteresting subtree cut away. Its
	// level-0 hash must still be the original root hash.
	body := mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(5, 8))
		require.NoError(t, b.StoreRef(keep))
		require.NoError(t, b.StoreRef(pruned))
	})
	assert.Equal(t, root.Hash(), body.HashAtLevel(0))
	assert.Equal(t, root.Depth(), body.DepthAtLevel(0))

	proof, err := NewMerkleProof(body)
	require.NoError(t, err)
	assert.Equal(t, MerkleProof, proof.Kind())
	assert.Equal(t, 0, proof.Level(), "the proof swallows the pruned level")

	got, err := UnwrapProof(proof, root.Hash())
	require.NoError(t, err)
	assert.True(t, body.Equal(got))

	s := got.BeginParse()
	tag, err := s.LoadUint(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), tag)
	gotKeep, err := s.LoadRef()
	require.NoError(t, err)
	assert.True(t, keep.Equal(gotKeep))
}

func TestUnwrapProofRejectsWrongRoot(t *testing.T) {
	root, _, prune := buildAccountState(t)

	pruned, err := NewPrunedBranch(prune)
	require.NoError(t, err)
	proof, err := NewMerkleProof(pruned)
	require.NoError(t, err)

	_, err = UnwrapProof(proof, root.Hash())
	require.ErrorIs(t, err, ErrProofMismatch)

	notAProof := mustCell(t, func(b *Builder) {})
	_, err = UnwrapProof(notAProof, root.Hash())
	require.ErrorIs(t, err, ErrInvalidExoticCell)
}

func TestProofSurvivesSerialization(t *testing.T) {
	_, _, prune := buildAccountState(t)
	pruned, err := NewPrunedBranch(prune)
	require.NoError(t, err)

	proof, err := NewMerkleProof(pruned)
	require.NoError(t, err)

	data, err := proof.ToBOC()
	require.NoError(t, err)
	back, err := FromBOC(data)
	require.NoError(t, err)

	assert.Equal(t, MerkleProof, back.Kind())
	assert.Equal(t, proof.Hash(), back.Hash())
	assert.Equal(t, proof.LevelMask(), back.LevelMask())

	got, err := UnwrapProof(back, prune.Hash())
	require.NoError(t, err)
	assert.Equal(t, PrunedBranch, got.Kind())
}
