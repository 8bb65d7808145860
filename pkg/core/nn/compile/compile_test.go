package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/titaninfer/pkg/core/nn/layers"
	"github.com/itohio/titaninfer/pkg/core/nn/model"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

func buildDenseReluModel(t *testing.T) *model.Sequential {
	t.Helper()
	weight, err := tensor.FromSlice(tensor.NewShape(2, 2), []float32{1, -1, -1, 1})
	require.NoError(t, err)
	dense, err := layers.NewDense(weight, tensor.Tensor{})
	require.NoError(t, err)
	m, err := model.New(tensor.NewShape(2), []layers.Layer{dense, layers.NewReLU("")})
	require.NoError(t, err)
	return m
}

func TestCompileFusesDenseAndReLU(t *testing.T) {
	m := buildDenseReluModel(t)
	compiled, err := Compile(m, Options{Fuse: true})
	require.NoError(t, err)
	require.Equal(t, 1, compiled.LayerCount())
	_, ok := compiled.Layers()[0].(*layers.FusedDense)
	assert.True(t, ok)
}

func TestCompileLeavesOriginalModelUntouched(t *testing.T) {
	m := buildDenseReluModel(t)
	_, err := Compile(m, Options{Fuse: true})
	require.NoError(t, err)
	assert.Equal(t, 2, m.LayerCount())
}

func TestCompileQuantizeConvertsDense(t *testing.T) {
	m := buildDenseReluModel(t)
	compiled, err := Compile(m, Options{Quantize: true})
	require.NoError(t, err)
	_, ok := compiled.Layers()[0].(*layers.QuantizedDense)
	assert.True(t, ok)
}

func TestCompileRejectsEmptyModel(t *testing.T) {
	_, err := Compile(&model.Sequential{}, Options{})
	require.Error(t, err)
}
