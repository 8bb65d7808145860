package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/titaninfer/pkg/core/nn/layers"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

func buildTwoLayerModel(t *testing.T) *Sequential {
	t.Helper()
	w1, err := tensor.FromSlice(tensor.NewShape(2, 2), []float32{1, 0, 0, 1})
	require.NoError(t, err)
	dense1, err := layers.NewDense(w1, tensor.Tensor{})
	require.NoError(t, err)
	relu := layers.NewReLU("")

	m, err := New(tensor.NewShape(2), []layers.Layer{dense1, relu})
	require.NoError(t, err)
	return m
}

func TestSequentialForward(t *testing.T) {
	m := buildTwoLayerModel(t)
	in, err := tensor.FromSlice(tensor.NewShape(2), []float32{-1, 3})
	require.NoError(t, err)
	out, err := m.Forward(in)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 3}, out.Data())
}

func TestSequentialForwardTimedRecordsEachLayer(t *testing.T) {
	m := buildTwoLayerModel(t)
	in, err := tensor.FromSlice(tensor.NewShape(2), []float32{-1, 3})
	require.NoError(t, err)
	deltas := make([]time.Duration, m.LayerCount())
	out, err := m.ForwardTimed(in, deltas)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 3}, out.Data())
	for _, d := range deltas {
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
}

func TestSequentialForwardTimedRejectsWrongDeltasLength(t *testing.T) {
	m := buildTwoLayerModel(t)
	in, err := tensor.FromSlice(tensor.NewShape(2), []float32{-1, 3})
	require.NoError(t, err)
	_, err = m.ForwardTimed(in, make([]time.Duration, 1))
	require.Error(t, err)
}

func TestSequentialRejectsEmptyLayerList(t *testing.T) {
	_, err := New(tensor.NewShape(2), nil)
	require.Error(t, err)
}

func TestSequentialRejectsWrongInputShape(t *testing.T) {
	m := buildTwoLayerModel(t)
	in := tensor.MustNew(tensor.NewShape(3))
	_, err := m.Forward(in)
	require.Error(t, err)
}

func TestSequentialCloneIsIndependent(t *testing.T) {
	m := buildTwoLayerModel(t)
	clone := m.Clone()
	assert.Equal(t, m.LayerCount(), clone.LayerCount())
	assert.NotSame(t, m.layers[0], clone.layers[0])
}

func TestSequentialSummaryListsEveryLayer(t *testing.T) {
	m := buildTwoLayerModel(t)
	summary := m.Summary()
	assert.True(t, strings.Contains(summary, "Dense_"))
	assert.True(t, strings.Contains(summary, "ReLU_"))
	assert.True(t, strings.Contains(summary, "Total params:"))
}
