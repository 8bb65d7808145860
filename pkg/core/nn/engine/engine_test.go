package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/titaninfer/pkg/core/nn/layers"
	"github.com/itohio/titaninfer/pkg/core/nn/model"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

func buildModel(t *testing.T) *model.Sequential {
	t.Helper()
	weight, err := tensor.FromSlice(tensor.NewShape(2, 2), []float32{1, 0, 0, 1})
	require.NoError(t, err)
	dense, err := layers.NewDense(weight, tensor.Tensor{})
	require.NoError(t, err)
	m, err := model.New(tensor.NewShape(2), []layers.Layer{dense})
	require.NoError(t, err)
	return m
}

func TestPredictRejectsShapeMismatch(t *testing.T) {
	e := New(buildModel(t), false)
	_, err := e.Predict(tensor.MustNew(tensor.NewShape(3)))
	require.Error(t, err)
}

func TestPredictRejectsNaN(t *testing.T) {
	e := New(buildModel(t), false)
	in := tensor.MustNew(tensor.NewShape(2))
	in.Data()[0] = float32(nan())
	_, err := e.Predict(in)
	require.Error(t, err)
}

func TestPredictRecordsStatsWhenProfiling(t *testing.T) {
	e := New(buildModel(t), true)
	in, err := tensor.FromSlice(tensor.NewShape(2), []float32{1, 2})
	require.NoError(t, err)
	_, err = e.Predict(in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Stats().Count)
}

func TestResetStatsZeroesCounters(t *testing.T) {
	e := New(buildModel(t), true)
	in, err := tensor.FromSlice(tensor.NewShape(2), []float32{1, 2})
	require.NoError(t, err)
	_, _ = e.Predict(in)
	e.ResetStats()
	assert.Equal(t, int64(0), e.Stats().Count)
	assert.Nil(t, e.Stats().PerLayerNanos)
}

func TestPredictAccumulatesPerLayerStats(t *testing.T) {
	e := New(buildModel(t), true)
	in, err := tensor.FromSlice(tensor.NewShape(2), []float32{1, 2})
	require.NoError(t, err)
	_, err = e.Predict(in)
	require.NoError(t, err)
	_, err = e.Predict(in)
	require.NoError(t, err)

	stats := e.Stats()
	require.Len(t, stats.PerLayerNanos, e.Model().LayerCount())
	for _, n := range stats.PerLayerNanos {
		assert.GreaterOrEqual(t, n, int64(0))
	}
}

func TestWarmupDoesNotAffectStats(t *testing.T) {
	e := New(buildModel(t), true)
	require.NoError(t, e.Warmup(5))
	assert.Equal(t, int64(0), e.Stats().Count)
}

func TestPredictReturnsIndependentResults(t *testing.T) {
	e := New(buildModel(t), false)
	in1, err := tensor.FromSlice(tensor.NewShape(2), []float32{1, 2})
	require.NoError(t, err)
	in2, err := tensor.FromSlice(tensor.NewShape(2), []float32{9, 9})
	require.NoError(t, err)

	r1, err := e.Predict(in1)
	require.NoError(t, err)
	_, err = e.Predict(in2)
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 2}, r1.Data())
}

func TestPredictBatchPreservesOrder(t *testing.T) {
	e := New(buildModel(t), true)
	inputs := make([]tensor.Tensor, 8)
	for i := range inputs {
		in, err := tensor.FromSlice(tensor.NewShape(2), []float32{float32(i), float32(-i)})
		require.NoError(t, err)
		inputs[i] = in
	}

	results, err := e.PredictBatch(inputs)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, r := range results {
		assert.Equal(t, []float32{float32(i), float32(-i)}, r.Data())
	}
	assert.Equal(t, int64(8), e.Stats().Count)
}

func TestPredictBatchRejectsBadInputAmongGood(t *testing.T) {
	e := New(buildModel(t), false)
	inputs := []tensor.Tensor{
		tensor.MustNew(tensor.NewShape(2)),
		tensor.MustNew(tensor.NewShape(3)),
	}
	_, err := e.PredictBatch(inputs)
	require.Error(t, err)
}

func nan() float64 {
	var zero float64
	return zero / zero
}
