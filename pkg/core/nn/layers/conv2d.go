package layers

import (
	"fmt"

	"github.com/itohio/titaninfer/pkg/core/kernel"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// PaddingMode selects how Conv2D/pooling layers derive padding from the
// input size.
type PaddingMode int

const (
	// PaddingValid applies no padding; the output shrinks by (kernel-1).
	PaddingValid PaddingMode = iota
	// PaddingSame pads so a stride-1 layer's output matches the input size
	// (TensorFlow SAME convention for stride > 1).
	PaddingSame
)

// Conv2D is a 2D convolution over a (C,H,W) input, implemented as
// im2col + GEMM against a weight tensor shaped
// [outChannels, inChannels*kh*kw].
type Conv2D struct {
	Base
	inChannels, outChannels int
	kh, kw, stride          int
	padding                 PaddingMode
	weight                  tensor.Tensor // [outChannels, inChannels*kh*kw]
	bias                    tensor.Tensor // [outChannels], optional

	col tensor.Tensor // scratch im2col buffer, reused across calls
}

// NewConv2D builds a Conv2D layer. weight must be rank 2, shaped
// [outChannels, inChannels*kh*kw]; bias, if non-empty, shaped [outChannels].
func NewConv2D(inChannels, kh, kw, stride int, padding PaddingMode, weight, bias tensor.Tensor, name string) (*Conv2D, error) {
	wshape := weight.Shape()
	if wshape.Rank() != 2 {
		return nil, fmt.Errorf("nn: Conv2D: weight must be rank 2, got %d", wshape.Rank())
	}
	outChannels := wshape[0]
	if wshape[1] != inChannels*kh*kw {
		return nil, fmt.Errorf("nn: Conv2D: weight shape %v incompatible with inChannels=%d,kh=%d,kw=%d", wshape, inChannels, kh, kw)
	}
	if !bias.Empty() {
		bshape := bias.Shape()
		if bshape.Rank() != 1 || bshape[0] != outChannels {
			return nil, fmt.Errorf("nn: Conv2D: bias shape %v incompatible with outChannels %d", bshape, outChannels)
		}
	}
	return &Conv2D{
		Base:        NewBase("Conv2D", name),
		inChannels:  inChannels,
		outChannels: outChannels,
		kh:          kh,
		kw:          kw,
		stride:      stride,
		padding:     padding,
		weight:      weight,
		bias:        bias,
	}, nil
}

// InChannels, KH, KW, Stride, Padding, Weight and Bias expose the layer's
// configuration and parameters for serialization.
func (c *Conv2D) InChannels() int         { return c.inChannels }
func (c *Conv2D) OutChannels() int        { return c.outChannels }
func (c *Conv2D) KH() int                 { return c.kh }
func (c *Conv2D) KW() int                 { return c.kw }
func (c *Conv2D) Stride() int             { return c.stride }
func (c *Conv2D) Padding() PaddingMode    { return c.padding }
func (c *Conv2D) Weight() tensor.Tensor   { return c.weight }
func (c *Conv2D) Bias() tensor.Tensor     { return c.bias }

func (c *Conv2D) pads(h, w int) (top, left, bottom, right int) {
	if c.padding == PaddingValid {
		return 0, 0, 0, 0
	}
	padH := kernel.SamePadding(h, c.kh, c.stride)
	padW := kernel.SamePadding(w, c.kw, c.stride)
	return padH / 2, padW / 2, padH - padH/2, padW - padW/2
}

// OutputShape accepts a 3-D (inC,H,W) sample shape or a 4-D (N,inC,H,W)
// batch shape of N stacked samples.
func (c *Conv2D) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	switch inputShape.Rank() {
	case 3:
		return c.sampleOutputShape(inputShape)
	case 4:
		n := inputShape[0]
		sampleOut, err := c.sampleOutputShape(inputShape[1:])
		if err != nil {
			return nil, err
		}
		return append(tensor.NewShape(n), sampleOut...), nil
	default:
		return nil, fmt.Errorf("nn: Conv2D: input must be rank 3 (C,H,W) or rank 4 (N,C,H,W), got %d", inputShape.Rank())
	}
}

func (c *Conv2D) sampleOutputShape(sampleShape tensor.Shape) (tensor.Shape, error) {
	if sampleShape[0] != c.inChannels {
		return nil, fmt.Errorf("nn: Conv2D: input channels %d != %d", sampleShape[0], c.inChannels)
	}
	h, w := sampleShape[1], sampleShape[2]
	top, left, bottom, right := c.pads(h, w)
	outH := kernel.ConvOutputSize(h, c.kh, c.stride, top+bottom)
	outW := kernel.ConvOutputSize(w, c.kw, c.stride, left+right)
	return tensor.NewShape(c.outChannels, outH, outW), nil
}

func (c *Conv2D) Forward(input tensor.Tensor, out *tensor.Tensor) error {
	if input.Shape().Rank() == 4 {
		return c.forwardBatch(input, out)
	}
	return c.forwardSample(input, out)
}

func (c *Conv2D) forwardSample(input tensor.Tensor, out *tensor.Tensor) error {
	outShape, err := c.sampleOutputShape(input.Shape())
	if err != nil {
		return err
	}
	h, w := input.Shape()[1], input.Shape()[2]
	top, left, bottom, right := c.pads(h, w)

	if err := kernel.Im2Col(input, c.kh, c.kw, c.stride, top, left, bottom, right, &c.col); err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", c.Name(), err)
	}
	// weight (outChannels, inChannels*kh*kw) x col (inChannels*kh*kw, outH*outW)
	outH, outW := outShape[1], outShape[2]
	if err := kernel.MatMul(c.weight.Data(), c.col.Data(), out, c.outChannels, c.inChannels*c.kh*c.kw, outH*outW); err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", c.Name(), err)
	}
	if !c.bias.Empty() {
		addBiasChannels(out.Data(), c.bias.Data(), outH*outW)
	}
	if err := tensor.ViewAs(out, outShape); err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", c.Name(), err)
	}
	return nil
}

// forwardBatch runs im2col+GEMM per sample against the (N,inC,H,W) input,
// writing each sample's result into its slice of the (N,outC,outH,outW)
// output buffer. c.col is reused sequentially across samples; safe because a
// single Conv2D instance is never called concurrently (pkg/core/nn/engine
// gives each concurrent worker its own cloned layer).
func (c *Conv2D) forwardBatch(input tensor.Tensor, out *tensor.Tensor) error {
	batchShape := input.Shape()
	n := batchShape[0]
	sampleShape := batchShape[1:]
	outShape, err := c.OutputShape(batchShape)
	if err != nil {
		return err
	}
	sampleOutShape := outShape[1:]
	sampleIn := sampleShape.Size()
	sampleOut := sampleOutShape.Size()

	if err := tensor.ReshapeInto(out, tensor.NewShape(outShape.Size())); err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", c.Name(), err)
	}
	inData := input.Data()
	outData := out.Data()

	var sample, sampleDst tensor.Tensor
	for i := 0; i < n; i++ {
		sample, err = tensor.FromSlice(sampleShape, inData[i*sampleIn:(i+1)*sampleIn])
		if err != nil {
			return fmt.Errorf("nn: %s.Forward: %w", c.Name(), err)
		}
		// forwardSample reshapes sampleDst itself via kernel.MatMul/ViewAs;
		// it's reused across iterations once the first sample sizes it.
		if err := c.forwardSample(sample, &sampleDst); err != nil {
			return err
		}
		copy(outData[i*sampleOut:(i+1)*sampleOut], sampleDst.Data())
	}
	return tensor.ViewAs(out, outShape)
}

// addBiasChannels adds bias[c] to every element of channel c in a
// (outChannels, spatial) buffer in place.
func addBiasChannels(data, bias []float32, spatial int) {
	for ch, b := range bias {
		row := data[ch*spatial : (ch+1)*spatial]
		for i := range row {
			row[i] += b
		}
	}
}

func (c *Conv2D) ParameterCount() int {
	n := c.weight.Size()
	if !c.bias.Empty() {
		n += c.bias.Size()
	}
	return n
}

func (c *Conv2D) Clone() Layer {
	clone := &Conv2D{
		Base:        c.cloneBase(),
		inChannels:  c.inChannels,
		outChannels: c.outChannels,
		kh:          c.kh,
		kw:          c.kw,
		stride:      c.stride,
		padding:     c.padding,
		weight:      c.weight.Clone(),
	}
	if !c.bias.Empty() {
		clone.bias = c.bias.Clone()
	}
	return clone
}
