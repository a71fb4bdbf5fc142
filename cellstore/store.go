// Package cellstore archives cell DAGs in a content-addressed block
// store: each root is serialized to its bag-of-cells form and keyed by
// the CID of those bytes, and a CBOR manifest records the roots of one
// archive.
package cellstore

import (
	"context"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	cbor "github.com/ipfs/go-ipld-cbor"
	mh "github.com/multiformats/go-multihash"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/Dzeta-tech/toncell"
)

var cellPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   mh.SHA2_256,
	MhLength: -1,
}

// Store wraps a block store with cell- and manifest-level operations.
type Store struct {
	bs   cbor.IpldBlockstore
	cbor cbor.IpldStore
}

// New returns a store over bs.
func New(bs cbor.IpldBlockstore) *Store {
	return &Store{bs: bs, cbor: cbor.NewCborStore(bs)}
}

// PutCell stores the cell's DAG as one block and returns its CID.
func (s *Store) PutCell(ctx context.Context, c *toncell.Cell) (cid.Cid, error) {
	data, err := c.ToBOC()
	if err != nil {
		return cid.Undef, xerrors.Errorf("serializing cell: %w", err)
	}
	id, err := cellPrefix.Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	blk, err := blocks.NewBlockWithCid(data, id)
	if err != nil {
		return cid.Undef, err
	}
	if err := s.bs.Put(ctx, blk); err != nil {
		return cid.Undef, xerrors.Errorf("storing cell block: %w", err)
	}
	return id, nil
}

// GetCell loads and decodes the cell DAG stored under id.
func (s *Store) GetCell(ctx context.Context, id cid.Cid) (*toncell.Cell, error) {
	blk, err := s.bs.Get(ctx, id)
	if err != nil {
		return nil, xerrors.Errorf("loading cell block: %w", err)
	}
	c, err := toncell.FromBOC(blk.RawData())
	if err != nil {
		return nil, xerrors.Errorf("decoding cell block %s: %w", id, err)
	}
	return c, nil
}

// Archive stores every root, at most workers at a time (unbounded when
// workers <= 0), and returns the CID of a manifest listing them in order.
func (s *Store) Archive(ctx context.Context, workers int, roots ...*toncell.Cell) (cid.Cid, error) {
	ids := make([]cid.Cid, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, c := range roots {
		i, c := i, c
		g.Go(func() error {
			id, err := s.PutCell(gctx, c)
			if err != nil {
				return xerrors.Errorf("archiving root %d: %w", i, err)
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cid.Undef, err
	}
	return s.cbor.Put(ctx, &Manifest{Version: ManifestVersion, Roots: ids})
}

// Restore loads the manifest and every root it lists.
func (s *Store) Restore(ctx context.Context, manifest cid.Cid) ([]*toncell.Cell, error) {
	var m Manifest
	if err := s.cbor.Get(ctx, manifest, &m); err != nil {
		return nil, xerrors.Errorf("loading manifest %s: %w", manifest, err)
	}
	if m.Version != ManifestVersion {
		return nil, xerrors.Errorf("unsupported manifest version %d", m.Version)
	}
	roots := make([]*toncell.Cell, len(m.Roots))
	for i, id := range m.Roots {
		c, err := s.GetCell(ctx, id)
		if err != nil {
			return nil, xerrors.Errorf("restoring root %d: %w", i, err)
		}
		roots[i] = c
	}
	return roots, nil
}
