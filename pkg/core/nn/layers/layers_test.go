package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/titaninfer/pkg/core/tensor"
)

func TestDenseForward1D(t *testing.T) {
	weight, err := tensor.FromSlice(tensor.NewShape(2, 3), []float32{1, 0, 0, 0, 1, 0})
	require.NoError(t, err)
	bias, err := tensor.FromSlice(tensor.NewShape(3), []float32{0, 0, 1})
	require.NoError(t, err)
	dense, err := NewDense(weight, bias)
	require.NoError(t, err)

	in, err := tensor.FromSlice(tensor.NewShape(2), []float32{5, 7})
	require.NoError(t, err)
	var out tensor.Tensor
	require.NoError(t, dense.Forward(in, &out))
	assert.Equal(t, tensor.NewShape(3), out.Shape())
	assert.Equal(t, []float32{5, 7, 1}, out.Data())
}

func TestDenseForwardBatch(t *testing.T) {
	weight, err := tensor.FromSlice(tensor.NewShape(2, 2), []float32{1, 2, 3, 4})
	require.NoError(t, err)
	dense, err := NewDense(weight, tensor.Tensor{})
	require.NoError(t, err)

	in, err := tensor.FromSlice(tensor.NewShape(2, 2), []float32{1, 0, 0, 1})
	require.NoError(t, err)
	var out tensor.Tensor
	require.NoError(t, dense.Forward(in, &out))
	assert.Equal(t, tensor.NewShape(2, 2), out.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4}, out.Data())
}

func TestActivationReLU(t *testing.T) {
	relu := NewReLU("")
	in, err := tensor.FromSlice(tensor.NewShape(3), []float32{-1, 0, 2})
	require.NoError(t, err)
	var out tensor.Tensor
	require.NoError(t, relu.Forward(in, &out))
	assert.Equal(t, []float32{0, 0, 2}, out.Data())
}

func TestFlattenCollapsesShape(t *testing.T) {
	flatten := NewFlatten("")
	in := tensor.MustNew(tensor.NewShape(2, 3, 4))
	var out tensor.Tensor
	require.NoError(t, flatten.Forward(in, &out))
	assert.Equal(t, tensor.NewShape(24), out.Shape())
}

func TestFlattenPassesThrough1DAnd2D(t *testing.T) {
	flatten := NewFlatten("")

	shape1D, err := flatten.OutputShape(tensor.NewShape(5))
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(5), shape1D)

	shape2D, err := flatten.OutputShape(tensor.NewShape(4, 7))
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(4, 7), shape2D)
}

func TestFlattenCollapsesRankFourToBatchAndFeatures(t *testing.T) {
	flatten := NewFlatten("")
	shape, err := flatten.OutputShape(tensor.NewShape(2, 3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(2, 60), shape)
}

func TestConv2DOutputShapeSame(t *testing.T) {
	weight := tensor.MustNew(tensor.NewShape(4, 1*3*3))
	conv, err := NewConv2D(1, 3, 3, 1, PaddingSame, weight, tensor.Tensor{}, "")
	require.NoError(t, err)
	shape, err := conv.OutputShape(tensor.NewShape(1, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(4, 8, 8), shape)
}

func TestConv2DForwardBatch(t *testing.T) {
	weight, err := tensor.FromSlice(tensor.NewShape(1, 1), []float32{2})
	require.NoError(t, err)
	conv, err := NewConv2D(1, 1, 1, 1, PaddingValid, weight, tensor.Tensor{}, "")
	require.NoError(t, err)

	in, err := tensor.FromSlice(tensor.NewShape(2, 1, 2, 2), []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})
	require.NoError(t, err)

	var out tensor.Tensor
	require.NoError(t, conv.Forward(in, &out))
	assert.Equal(t, tensor.NewShape(2, 1, 2, 2), out.Shape())
	assert.Equal(t, []float32{2, 4, 6, 8, 10, 12, 14, 16}, out.Data())
}

func TestConv2DOutputShapeRejectsUnsupportedRank(t *testing.T) {
	weight := tensor.MustNew(tensor.NewShape(4, 1*3*3))
	conv, err := NewConv2D(1, 3, 3, 1, PaddingSame, weight, tensor.Tensor{}, "")
	require.NoError(t, err)
	_, err = conv.OutputShape(tensor.NewShape(8, 8))
	require.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	weight, err := tensor.FromSlice(tensor.NewShape(1, 1), []float32{2})
	require.NoError(t, err)
	dense, err := NewDense(weight, tensor.Tensor{})
	require.NoError(t, err)

	clone := dense.Clone().(*Dense)
	clone.weight.Data()[0] = 99
	assert.Equal(t, float32(2), dense.weight.Data()[0])
	assert.NotEqual(t, dense.Name(), clone.Name())
}
