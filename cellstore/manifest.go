package cellstore

import (
	"io"

	cid "github.com/ipfs/go-cid"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

// ManifestVersion is the current manifest tuple layout.
const ManifestVersion = 1

// Manifest is the CBOR tuple [version, roots] recording the root cells of
// one archive in insertion order.
type Manifest struct {
	Version uint64
	Roots   []cid.Cid
}

func (m *Manifest) MarshalCBOR(w io.Writer) error {
	if m == nil {
		_, err := w.Write(cbg.CborNull)
		return err
	}
	cw := cbg.NewCborWriter(w)

	if err := cw.WriteMajorTypeHeader(cbg.MajArray, 2); err != nil {
		return err
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajUnsignedInt, m.Version); err != nil {
		return err
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajArray, uint64(len(m.Roots))); err != nil {
		return err
	}
	for _, id := range m.Roots {
		if err := cbg.WriteCid(cw, id); err != nil {
			return xerrors.Errorf("writing root cid: %w", err)
		}
	}
	return nil
}

func (m *Manifest) UnmarshalCBOR(r io.Reader) error {
	*m = Manifest{}
	cr := cbg.NewCborReader(r)

	maj, extra, err := cr.ReadHeader()
	if err != nil {
		return err
	}
	if maj != cbg.MajArray || extra != 2 {
		return xerrors.Errorf("manifest must be a 2-tuple")
	}

	maj, extra, err = cr.ReadHeader()
	if err != nil {
		return err
	}
	if maj != cbg.MajUnsignedInt {
		return xerrors.Errorf("manifest version must be an unsigned int")
	}
	m.Version = extra

	maj, extra, err = cr.ReadHeader()
	if err != nil {
		return err
	}
	if maj != cbg.MajArray {
		return xerrors.Errorf("manifest roots must be an array")
	}
	if extra > cbg.MaxLength {
		return xerrors.Errorf("manifest lists too many roots (%d)", extra)
	}
	m.Roots = make([]cid.Cid, extra)
	for i := range m.Roots {
		id, err := cbg.ReadCid(cr)
		if err != nil {
			return xerrors.Errorf("reading root cid: %w", err)
		}
		m.Roots[i] = id
	}
	return nil
}
