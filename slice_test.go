package toncell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUnderflow(t *testing.T) {
	c := mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(0xFF, 8))
	})

	s := c.BeginParse()
	_, err := s.LoadUint(9)
	require.ErrorIs(t, err, ErrBitsUnderflow)
	assert.Equal(t, 8, s.BitsLeft(), "failed load must not advance")

	_, err = s.LoadRef()
	require.ErrorIs(t, err, ErrRefsUnderflow)

	v, err := s.LoadUint(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFF), v)

	_, err = s.LoadBit()
	require.ErrorIs(t, err, ErrBitsUnderflow)
}

func TestLoadBytesRejectsBadCounts(t *testing.T) {
	c := mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(0xFF, 8))
	})

	s := c.BeginParse()
	_, err := s.LoadBytes(-1)
	require.ErrorIs(t, err, ErrTooBigValue)

	_, err = s.LoadBytes(128)
	require.ErrorIs(t, err, ErrTooBigValue, "counts beyond cell capacity must fail up front")

	_, err = s.LoadBytes(2)
	require.ErrorIs(t, err, ErrBitsUnderflow)
	assert.Equal(t, 8, s.BitsLeft(), "failed load must not advance")

	raw, err := s.LoadBytes(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, raw)
}

func TestSliceCopyLookahead(t *testing.T) {
	c := mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(0xAABB, 16))
	})

	s := c.BeginParse()
	peek := s.Copy()
	v, err := peek.LoadUint(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAABB), v)

	assert.Equal(t, 16, s.BitsLeft(), "copy must not advance the original")
	v, err = s.LoadUint(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAA), v)
}

func TestExpectEnd(t *testing.T) {
	child := mustCell(t, func(b *Builder) {})
	c := mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(3, 2))
		require.NoError(t, b.StoreRef(child))
	})

	s := c.BeginParse()
	require.ErrorIs(t, s.ExpectEnd(), ErrNotExhausted)

	_, err := s.LoadUint(2)
	require.NoError(t, err)
	require.ErrorIs(t, s.ExpectEnd(), ErrNotExhausted, "unread ref must fail")

	_, err = s.LoadRef()
	require.NoError(t, err)
	require.NoError(t, s.ExpectEnd())
}

func TestConcurrentSlices(t *testing.T) {
	c := mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(0x123456789A, 40))
	})

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			s := c.BeginParse()
			v, err := s.LoadUint(40)
			assert.NoError(t, err)
			assert.Equal(t, uint64(0x123456789A), v)
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}

func TestLoadAddrRejectsUnknownTags(t *testing.T) {
	// addr_extern (01) is not part of this core.
	c := mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(0b01, 2))
	})
	_, err := c.BeginParse().LoadAddr()
	require.ErrorIs(t, err, ErrInvalidAddr)
}

func TestLoadStringTailRejectsDanglingBits(t *testing.T) {
	c := mustCell(t, func(b *Builder) {
		require.NoError(t, b.StoreUint(0, 3))
	})
	_, err := c.BeginParse().LoadStringTail()
	require.ErrorIs(t, err, ErrInvalidString)
}
