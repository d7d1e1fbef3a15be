package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostAllocate(t *testing.T) {
	h := NewHost()

	buf, err := h.Allocate(64)
	require.NoError(t, err)
	assert.Equal(t, 64, buf.Size())
	assert.Len(t, buf.Bytes(), 64)

	for _, b := range buf.Bytes() {
		assert.Zero(t, b, "host buffers start zeroed")
	}

	require.NoError(t, h.Release(buf))
}

func TestHostAllocateZero(t *testing.T) {
	h := NewHost()
	buf, err := h.Allocate(0)
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Size())
}

func TestHostAllocateNegative(t *testing.T) {
	h := NewHost()
	_, err := h.Allocate(-1)
	assert.Error(t, err)
}

type foreignBuffer struct{}

func (foreignBuffer) Bytes() []byte { return nil }
func (foreignBuffer) Size() int     { return 0 }

func TestHostRejectsForeignBuffer(t *testing.T) {
	h := NewHost()
	assert.Error(t, h.Release(foreignBuffer{}))
}
