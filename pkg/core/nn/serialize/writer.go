package serialize

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/itohio/titaninfer/pkg/core/nn/layers"
	"github.com/itohio/titaninfer/pkg/core/nn/model"
)

// Save writes m to w in the TITN binary format: magic, version, layer
// count, then one fixed-shape record per layer. The model's input shape is
// not part of the on-disk format; a loader infers it from the first Dense
// layer (or a caller overrides it explicitly, see pkg/core/handle.Builder).
func Save(m *model.Sequential, w io.Writer) error {
	if _, err := w.Write([]byte(Magic)); err != nil {
		return err
	}
	if err := writeU32(w, FormatVersion); err != nil {
		return err
	}
	if err := writeU32(w, uint32(m.LayerCount())); err != nil {
		return err
	}
	for _, l := range m.Layers() {
		if err := writeLayer(w, l); err != nil {
			return fmt.Errorf("serialize: Save: layer %q: %w", l.Name(), err)
		}
	}
	return nil
}

func writeLayer(w io.Writer, l layers.Layer) error {
	switch v := l.(type) {
	case *layers.Dense:
		return writeDense(w, v)
	case *layers.Activation:
		return writeActivation(w, v)
	case *layers.Conv2D:
		return writeConv2D(w, v)
	case *layers.Pool2D:
		return writePool2D(w, v)
	case *layers.Flatten:
		return writeTag(w, tagFlatten)
	case *layers.FusedDense:
		return fmt.Errorf("%s is a compile-time fused layer with no on-disk representation; save the model before compiling it", v.Name())
	case *layers.QuantizedDense:
		return fmt.Errorf("%s is a compile-time quantized layer with no on-disk representation; save the model before compiling it", v.Name())
	default:
		return fmt.Errorf("unknown layer type %T", l)
	}
}

func writeActivation(w io.Writer, a *layers.Activation) error {
	tag, err := activationTag(a)
	if err != nil {
		return err
	}
	return writeTag(w, tag)
}

func activationTag(a *layers.Activation) (layerTag, error) {
	switch a.Kind() {
	case "ReLU":
		return tagReLU, nil
	case "Sigmoid":
		return tagSigmoid, nil
	case "Tanh":
		return tagTanh, nil
	case "Softmax":
		return tagSoftmax, nil
	default:
		return 0, fmt.Errorf("cannot determine activation kind for layer %q", a.Name())
	}
}

// writeDense writes in(u32), out(u32), has_bias(u8), then out·in weight
// floats in out-major order, then out bias floats if present. The layer's
// own Weight() tensor is stored [in,out] (in-major, matching the GEMM it
// feeds); the wire format is transposed relative to that, so the weights
// are written element-by-element rather than via a raw data copy.
func writeDense(w io.Writer, d *layers.Dense) error {
	if err := writeTag(w, tagDense); err != nil {
		return err
	}
	in, out := d.InFeatures(), d.OutFeatures()
	if err := writeU32(w, uint32(in)); err != nil {
		return err
	}
	if err := writeU32(w, uint32(out)); err != nil {
		return err
	}
	bias := d.Bias()
	hasBias := !bias.Empty()
	if err := writeBool(w, hasBias); err != nil {
		return err
	}
	if err := writeOutMajor(w, d.Weight().Data(), in, out); err != nil {
		return err
	}
	if hasBias {
		return writeFloats(w, bias.Data())
	}
	return nil
}

func writeConv2D(w io.Writer, c *layers.Conv2D) error {
	if err := writeTag(w, tagConv2D); err != nil {
		return err
	}
	if err := writeU32(w, uint32(c.InChannels())); err != nil {
		return err
	}
	if err := writeU32(w, uint32(c.OutChannels())); err != nil {
		return err
	}
	if err := writeU32(w, uint32(c.KH())); err != nil {
		return err
	}
	if err := writeU32(w, uint32(c.KW())); err != nil {
		return err
	}
	// Conv2D applies one stride to both axes; the wire format's sH/sW pair
	// carries the same value twice rather than widening the layer's own
	// symmetric-stride API.
	if err := writeU32(w, uint32(c.Stride())); err != nil {
		return err
	}
	if err := writeU32(w, uint32(c.Stride())); err != nil {
		return err
	}
	if err := writeByte(w, byte(c.Padding())); err != nil {
		return err
	}
	bias := c.Bias()
	hasBias := !bias.Empty()
	if err := writeBool(w, hasBias); err != nil {
		return err
	}
	// Weight is stored [outChannels, inChannels*kh*kw], already outC-major
	// then inC then kH then kW in flat memory order, matching the wire
	// layout directly.
	if err := writeFloats(w, c.Weight().Data()); err != nil {
		return err
	}
	if hasBias {
		return writeFloats(w, bias.Data())
	}
	return nil
}

func writePool2D(w io.Writer, p *layers.Pool2D) error {
	tag := tagMaxPool2D
	if p.IsAvg() {
		tag = tagAvgPool2D
	}
	if p.KH() != p.KW() {
		return fmt.Errorf("%s: asymmetric kernel (%dx%d) has no on-disk representation; the format stores one square kernel size", p.Name(), p.KH(), p.KW())
	}
	if err := writeTag(w, tag); err != nil {
		return err
	}
	if err := writeU32(w, uint32(p.KH())); err != nil {
		return err
	}
	if err := writeU32(w, uint32(p.Stride())); err != nil {
		return err
	}
	return writeU32(w, uint32(p.Padding()))
}

func writeTag(w io.Writer, tag layerTag) error {
	return writeU32(w, uint32(tag))
}

func writeU32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func writeBool(w io.Writer, v bool) error {
	if v {
		return writeByte(w, 1)
	}
	return writeByte(w, 0)
}

func writeFloats(w io.Writer, data []float32) error {
	return binary.Write(w, binary.LittleEndian, data)
}

// writeOutMajor writes an [in,out]-ordered weight buffer in [out,in]
// (out-major) order, one float at a time, per §4.5's Dense record layout.
func writeOutMajor(w io.Writer, data []float32, in, out int) error {
	for o := 0; o < out; o++ {
		for i := 0; i < in; i++ {
			if err := binary.Write(w, binary.LittleEndian, data[i*out+o]); err != nil {
				return err
			}
		}
	}
	return nil
}
