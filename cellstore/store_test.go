package cellstore

import (
	"bytes"
	"context"
	"sync"
	"testing"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/Dzeta-tech/toncell"
)

type mockBlocks struct {
	mu   sync.Mutex
	data map[cid.Cid]blocks.Block
}

func newMockBlocks() *mockBlocks {
	return &mockBlocks{data: make(map[cid.Cid]blocks.Block)}
}

func (mb *mockBlocks) Get(_ context.Context, c cid.Cid) (blocks.Block, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if b, ok := mb.data[c]; ok {
		return b, nil
	}
	return nil, xerrors.Errorf("block %s not found", c)
}

func (mb *mockBlocks) Put(_ context.Context, b blocks.Block) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.data[b.Cid()] = b
	return nil
}

func numberCell(t *testing.T, v uint64) *toncell.Cell {
	t.Helper()
	b := toncell.NewBuilder()
	require.NoError(t, b.StoreUint(v, 64))
	c, err := b.EndCell()
	require.NoError(t, err)
	return c
}

func TestPutGetCell(t *testing.T) {
	ctx := context.Background()
	s := New(newMockBlocks())

	child := numberCell(t, 7)
	b := toncell.NewBuilder()
	require.NoError(t, b.StoreUint(1, 8))
	require.NoError(t, b.StoreRef(child))
	root, err := b.EndCell()
	require.NoError(t, err)

	id, err := s.PutCell(ctx, root)
	require.NoError(t, err)

	back, err := s.GetCell(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, root.Hash(), back.Hash())

	// Content addressing: storing the same DAG again yields the same CID.
	again, err := s.PutCell(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestGetCellMissing(t *testing.T) {
	ctx := context.Background()
	s := New(newMockBlocks())

	id, err := cellPrefix.Sum([]byte("nothing here"))
	require.NoError(t, err)
	_, err = s.GetCell(ctx, id)
	require.Error(t, err)
}

func TestGetCellRejectsNonCellBlock(t *testing.T) {
	ctx := context.Background()
	mb := newMockBlocks()
	s := New(mb)

	raw := []byte("not a bag of cells")
	id, err := cellPrefix.Sum(raw)
	require.NoError(t, err)
	blk, err := blocks.NewBlockWithCid(raw, id)
	require.NoError(t, err)
	require.NoError(t, mb.Put(ctx, blk))

	_, err = s.GetCell(ctx, id)
	require.ErrorIs(t, err, toncell.ErrInvalidBOC)
}

func TestArchiveRestore(t *testing.T) {
	ctx := context.Background()
	s := New(newMockBlocks())

	roots := make([]*toncell.Cell, 9)
	for i := range roots {
		roots[i] = numberCell(t, uint64(i))
	}

	manifest, err := s.Archive(ctx, 3, roots...)
	require.NoError(t, err)

	back, err := s.Restore(ctx, manifest)
	require.NoError(t, err)
	require.Len(t, back, len(roots))
	for i := range roots {
		assert.Equal(t, roots[i].Hash(), back[i].Hash(), "root %d", i)
	}
}

func TestArchiveUnboundedWorkers(t *testing.T) {
	ctx := context.Background()
	s := New(newMockBlocks())

	manifest, err := s.Archive(ctx, 0, numberCell(t, 1), numberCell(t, 2))
	require.NoError(t, err)
	back, err := s.Restore(ctx, manifest)
	require.NoError(t, err)
	require.Len(t, back, 2)
}

func TestManifestRoundTrip(t *testing.T) {
	id, err := cellPrefix.Sum([]byte("root"))
	require.NoError(t, err)
	m := &Manifest{Version: ManifestVersion, Roots: []cid.Cid{id, id}}

	var buf bytes.Buffer
	require.NoError(t, m.MarshalCBOR(&buf))

	var back Manifest
	require.NoError(t, back.UnmarshalCBOR(&buf))
	assert.Equal(t, *m, back)
}

func TestManifestRejectsWrongShape(t *testing.T) {
	var m Manifest
	// A bare unsigned int is not a manifest tuple.
	require.Error(t, m.UnmarshalCBOR(bytes.NewReader([]byte{0x01})))
}
