package serialize

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/titaninfer/pkg/core/nn/layers"
	"github.com/itohio/titaninfer/pkg/core/nn/model"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

func buildModel(t *testing.T) *model.Sequential {
	t.Helper()
	w1, err := tensor.FromSlice(tensor.NewShape(4, 8), make([]float32, 32))
	require.NoError(t, err)
	for i := range w1.Data() {
		w1.Data()[i] = float32(i) * 0.1
	}
	b1, err := tensor.FromSlice(tensor.NewShape(8), make([]float32, 8))
	require.NoError(t, err)
	dense1, err := layers.NewDense(w1, b1)
	require.NoError(t, err)

	w2, err := tensor.FromSlice(tensor.NewShape(8, 2), make([]float32, 16))
	require.NoError(t, err)
	dense2, err := layers.NewDense(w2, tensor.Tensor{})
	require.NoError(t, err)

	m, err := model.New(tensor.NewShape(4), []layers.Layer{dense1, layers.NewReLU(""), dense2, layers.NewSoftmax("")})
	require.NoError(t, err)
	return m
}

func TestSaveLoadRoundTripBitExact(t *testing.T) {
	m := buildModel(t)
	var buf bytes.Buffer
	require.NoError(t, Save(m, &buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.LayerCount(), loaded.LayerCount())

	in, err := tensor.FromSlice(tensor.NewShape(4), []float32{1, 2, 3, 4})
	require.NoError(t, err)

	want, err := m.Forward(in.Clone())
	require.NoError(t, err)
	got, err := loaded.Forward(in.Clone())
	require.NoError(t, err)
	assert.Equal(t, want.Data(), got.Data())
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("XXXX")))
	require.Error(t, err)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	m := buildModel(t)
	var buf bytes.Buffer
	require.NoError(t, Save(m, &buf))

	truncated := buf.Bytes()[:len(buf.Bytes())/2]
	_, err := Load(bytes.NewReader(truncated))
	require.Error(t, err)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestLoadRejectsFutureVersion(t *testing.T) {
	m := buildModel(t)
	var buf bytes.Buffer
	require.NoError(t, Save(m, &buf))
	raw := buf.Bytes()
	raw[4] = 0xFF // version field immediately follows the 4-byte magic
	_, err := Load(bytes.NewReader(raw))
	require.Error(t, err)
}

// TestLoadParsesMinimalDenseLayout hand-assembles a one-layer file in the
// exact wire layout (magic, version, count, then a Dense record with no name
// field and no input-shape header before the layer count) and checks Load
// parses it and infers the input shape from the Dense layer itself.
func TestLoadParsesMinimalDenseLayout(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	require.NoError(t, writeU32(&buf, FormatVersion))
	require.NoError(t, writeU32(&buf, 1)) // layer count
	require.NoError(t, writeU32(&buf, uint32(tagDense)))
	require.NoError(t, writeU32(&buf, 2)) // in
	require.NoError(t, writeU32(&buf, 3)) // out
	require.NoError(t, writeBool(&buf, false))
	// out-major weights: 3 rows of 2 values each.
	weights := []float32{1, 2, 3, 4, 5, 6}
	for _, v := range weights {
		require.NoError(t, writeFloats(&buf, []float32{v}))
	}

	m, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(2), m.InputShape())
	assert.Equal(t, 1, m.LayerCount())

	dense := m.Layers()[0].(*layers.Dense)
	assert.Equal(t, 2, dense.InFeatures())
	assert.Equal(t, 3, dense.OutFeatures())
	// out-major [1,2, 3,4, 5,6] transposes to in-major [1,3,5, 2,4,6].
	assert.Equal(t, []float32{1, 3, 5, 2, 4, 6}, dense.Weight().Data())
}

func TestLoadRejectsModelWithoutDenseLayer(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	require.NoError(t, writeU32(&buf, FormatVersion))
	require.NoError(t, writeU32(&buf, 1)) // layer count
	require.NoError(t, writeU32(&buf, uint32(tagReLU)))

	_, err := Load(&buf)
	require.Error(t, err)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}
