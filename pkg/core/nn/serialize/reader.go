package serialize

import (
	"encoding/binary"
	"io"

	"github.com/itohio/titaninfer/pkg/core/nn/layers"
	"github.com/itohio/titaninfer/pkg/core/nn/model"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// Load reads a model previously written by Save. Returns a *FormatError for
// any structural problem: bad magic, unsupported version, unknown layer
// tag, or a stream that ends early. The file carries no input-shape header
// (§4.5); the returned model's input shape is inferred from the first Dense
// layer's input size, matching the builder's documented fallback (§4.10) —
// callers with a Conv2D-first model must supply an explicit shape via
// pkg/core/handle.Builder.WithInputShape.
func Load(r io.Reader) (*model.Sequential, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, formatErrorf("reading magic: %v", err)
	}
	if string(magic) != Magic {
		return nil, formatErrorf("bad magic %q, want %q", magic, Magic)
	}

	version, err := readU32(r)
	if err != nil {
		return nil, formatErrorf("reading version: %v", err)
	}
	if version > FormatVersion {
		return nil, formatErrorf("unsupported format version %d, this build reads up to %d", version, FormatVersion)
	}

	count, err := readU32(r)
	if err != nil {
		return nil, formatErrorf("reading layer count: %v", err)
	}
	if count == 0 {
		return nil, formatErrorf("model has no layers")
	}

	layerList := make([]layers.Layer, 0, count)
	for i := uint32(0); i < count; i++ {
		l, err := readLayer(r)
		if err != nil {
			return nil, formatErrorf("reading layer %d: %v", i, err)
		}
		layerList = append(layerList, l)
	}

	inputShape, err := inferInputShape(layerList)
	if err != nil {
		return nil, formatErrorf("%v", err)
	}

	m, err := model.New(inputShape, layerList)
	if err != nil {
		return nil, formatErrorf("assembling model: %v", err)
	}
	return m, nil
}

// inferInputShape scans for the first Dense layer and returns its expected
// 1-D input shape. A Conv2D-first model has no way to recover an
// unambiguous (C,H,W) shape from its weight tensor alone, so Load requires
// an explicit override for those models, per §4.10.
func inferInputShape(layerList []layers.Layer) (tensor.Shape, error) {
	for _, l := range layerList {
		if d, ok := l.(*layers.Dense); ok {
			return tensor.NewShape(d.InFeatures()), nil
		}
	}
	return nil, formatErrorf("model has no Dense layer; input shape cannot be inferred and must be supplied explicitly")
}

func readLayer(r io.Reader) (layers.Layer, error) {
	tagValue, err := readU32(r)
	if err != nil {
		return nil, err
	}
	tag := layerTag(tagValue)

	switch tag {
	case tagDense:
		return readDense(r)
	case tagReLU:
		return layers.NewReLU(""), nil
	case tagSigmoid:
		return layers.NewSigmoid(""), nil
	case tagTanh:
		return layers.NewTanh(""), nil
	case tagSoftmax:
		return layers.NewSoftmax(""), nil
	case tagConv2D:
		return readConv2D(r)
	case tagMaxPool2D:
		return readPool2D(r, false)
	case tagAvgPool2D:
		return readPool2D(r, true)
	case tagFlatten:
		return layers.NewFlatten(""), nil
	default:
		return nil, formatErrorf("unknown layer tag %d", uint32(tag))
	}
}

// readDense reads in(u32), out(u32), has_bias(u8), out·in weight floats in
// out-major order, and out bias floats if present, transposing the weights
// back into the [in,out] layout layers.Dense expects.
func readDense(r io.Reader) (*layers.Dense, error) {
	in, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out, err := readU32(r)
	if err != nil {
		return nil, err
	}
	hasBias, err := readBool(r)
	if err != nil {
		return nil, err
	}
	weight, err := readOutMajor(r, int(in), int(out))
	if err != nil {
		return nil, err
	}
	var bias tensor.Tensor
	if hasBias {
		bias, err = readFloatTensor(r, tensor.NewShape(int(out)))
		if err != nil {
			return nil, err
		}
	}
	return layers.NewDense(weight, bias)
}

func readConv2D(r io.Reader) (*layers.Conv2D, error) {
	inChannels, err := readU32(r)
	if err != nil {
		return nil, err
	}
	outChannels, err := readU32(r)
	if err != nil {
		return nil, err
	}
	kh, err := readU32(r)
	if err != nil {
		return nil, err
	}
	kw, err := readU32(r)
	if err != nil {
		return nil, err
	}
	sh, err := readU32(r)
	if err != nil {
		return nil, err
	}
	sw, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if sh != sw {
		return nil, formatErrorf("Conv2D: asymmetric stride (sH=%d, sW=%d) is not supported", sh, sw)
	}
	paddingByte, err := readByte(r)
	if err != nil {
		return nil, err
	}
	hasBias, err := readBool(r)
	if err != nil {
		return nil, err
	}
	weight, err := readFloatTensor(r, tensor.NewShape(int(outChannels), int(inChannels)*int(kh)*int(kw)))
	if err != nil {
		return nil, err
	}
	var bias tensor.Tensor
	if hasBias {
		bias, err = readFloatTensor(r, tensor.NewShape(int(outChannels)))
		if err != nil {
			return nil, err
		}
	}
	return layers.NewConv2D(int(inChannels), int(kh), int(kw), int(sh), layers.PaddingMode(paddingByte), weight, bias, "")
}

func readPool2D(r io.Reader, avg bool) (*layers.Pool2D, error) {
	kernelSize, err := readU32(r)
	if err != nil {
		return nil, err
	}
	stride, err := readU32(r)
	if err != nil {
		return nil, err
	}
	padding, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if avg {
		return layers.NewAvgPool2D(int(kernelSize), int(kernelSize), int(stride), layers.PaddingMode(padding), ""), nil
	}
	return layers.NewMaxPool2D(int(kernelSize), int(kernelSize), int(stride), layers.PaddingMode(padding), ""), nil
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readByte(r io.Reader) (byte, error) {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readBool(r io.Reader) (bool, error) {
	b, err := readByte(r)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// readFloatTensor allocates a tensor of shape and reads its raw float data
// directly (no shape header on the wire: the shape is already implied by
// the surrounding record's own fields).
func readFloatTensor(r io.Reader, shape tensor.Shape) (tensor.Tensor, error) {
	t, err := tensor.New(shape)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, t.Data()); err != nil {
		return tensor.Tensor{}, err
	}
	return t, nil
}

// readOutMajor reads out·in floats in out-major order and transposes them
// into an [in,out]-shaped tensor, the inverse of writeOutMajor.
func readOutMajor(r io.Reader, in, out int) (tensor.Tensor, error) {
	t, err := tensor.New(tensor.NewShape(in, out))
	if err != nil {
		return tensor.Tensor{}, err
	}
	data := t.Data()
	for o := 0; o < out; o++ {
		for i := 0; i < in; i++ {
			var v float32
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return tensor.Tensor{}, err
			}
			data[i*out+o] = v
		}
	}
	return t, nil
}
