package handle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/titaninfer/internal/errs"
	"github.com/itohio/titaninfer/pkg/core/nn/layers"
	"github.com/itohio/titaninfer/pkg/core/nn/model"
	"github.com/itohio/titaninfer/pkg/core/nn/serialize"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

func writeTestModel(t *testing.T) string {
	t.Helper()
	weight, err := tensor.FromSlice(tensor.NewShape(2, 2), []float32{1, 0, 0, 1})
	require.NoError(t, err)
	dense, err := layers.NewDense(weight, tensor.Tensor{})
	require.NoError(t, err)
	m, err := model.New(tensor.NewShape(2), []layers.Layer{dense})
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "model.titn")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, serialize.Save(m, f))
	return path
}

func TestOpenLoadsAndPredicts(t *testing.T) {
	path := writeTestModel(t)
	h, err := Open(path)
	require.NoError(t, err)
	assert.True(t, h.IsLoaded())
	assert.Equal(t, 1, h.LayerCount())

	in, err := tensor.FromSlice(tensor.NewShape(2), []float32{1, 2})
	require.NoError(t, err)
	out, err := h.Predict(in)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, out.Data())
}

func TestOpenMissingFileReportsFileNotFound(t *testing.T) {
	_, err := Open("/nonexistent/path.titn")
	require.Error(t, err)
	te, ok := err.(*errs.Error)
	require.True(t, ok)
	assert.Equal(t, errs.KindModelLoad, te.Kind)
	assert.Equal(t, errs.FileNotFound, te.SubKind)
}

func TestBuilderWithProfilingRecordsStats(t *testing.T) {
	path := writeTestModel(t)
	h, err := NewBuilder().WithPath(path).WithProfiling(true).Build()
	require.NoError(t, err)

	in, err := tensor.FromSlice(tensor.NewShape(2), []float32{1, 2})
	require.NoError(t, err)
	_, err = h.Predict(in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.Stats().Count)

	h.ResetStats()
	assert.Equal(t, int64(0), h.Stats().Count)
}

func TestPredictShapeMismatchIsValidationError(t *testing.T) {
	path := writeTestModel(t)
	h, err := Open(path)
	require.NoError(t, err)

	bad := tensor.MustNew(tensor.NewShape(3))
	_, err = h.Predict(bad)
	require.Error(t, err)
	te, ok := err.(*errs.Error)
	require.True(t, ok)
	assert.Equal(t, errs.KindValidation, te.Kind)
	assert.Equal(t, errs.ShapeMismatch, te.SubKind)
}

func TestSummaryIncludesContentID(t *testing.T) {
	path := writeTestModel(t)
	h, err := Open(path)
	require.NoError(t, err)
	assert.Contains(t, h.Summary(), "model ")
}
