package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsZeroDimension(t *testing.T) {
	_, err := New(NewShape(3, 0, 2))
	require.Error(t, err)

	_, err = New(NewShape())
	require.Error(t, err)
}

func TestNewIsAligned(t *testing.T) {
	for _, shape := range []Shape{NewShape(1), NewShape(3), NewShape(4, 8), NewShape(1, 1, 1)} {
		tt, err := New(shape)
		require.NoError(t, err)
		assert.Zero(t, tt.Ptr()%alignment, "shape %v", shape)
		assert.Equal(t, shape.Size(), tt.Size())
	}
}

func TestFlatIndexRowMajor(t *testing.T) {
	tt := MustNew(NewShape(2, 3))
	for i := 0; i < 6; i++ {
		tt.Data()[i] = float32(i)
	}
	assert.Equal(t, float32(0), tt.At(0, 0))
	assert.Equal(t, float32(4), tt.At(1, 1))
	assert.Equal(t, float32(5), tt.At(1, 2))
}

func TestCloneIsIndependent(t *testing.T) {
	a := MustNew(NewShape(4))
	a.Fill(1)
	b := a.Clone()
	b.Fill(2)
	for _, v := range a.Data() {
		assert.Equal(t, float32(1), v)
	}
	for _, v := range b.Data() {
		assert.Equal(t, float32(2), v)
	}
}

func TestMoveEmptiesSource(t *testing.T) {
	a := MustNew(NewShape(4))
	a.Fill(3)
	moved := a.Move()

	assert.True(t, a.Empty())
	assert.Equal(t, 0, a.Size())
	assert.Nil(t, a.Shape())
	assert.False(t, moved.Empty())
	assert.Equal(t, float32(3), moved.At(0))

	// Destroying (discarding) the zeroed source must remain safe.
	a = Tensor{}
	_ = a
}

func TestHasNaN(t *testing.T) {
	tt := MustNew(NewShape(3))
	assert.False(t, tt.HasNaN())
	tt.Data()[1] = float32(nan())
	assert.True(t, tt.HasNaN())
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestQuantizedAlignment(t *testing.T) {
	qt, err := NewQuantized(NewShape(100), 0.5, -3)
	require.NoError(t, err)
	assert.Zero(t, qt.Ptr()%alignment)
	assert.Equal(t, float32(0.5), qt.Scale())
	assert.Equal(t, int8(-3), qt.ZeroPoint())
}
