package layers

import (
	"fmt"

	"github.com/itohio/titaninfer/pkg/core/kernel"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// Dense is a fully connected layer: output = input @ weight + bias, weight
// shaped [inFeatures, outFeatures], bias shaped [outFeatures] (bias is
// optional).
type Dense struct {
	Base
	inFeatures  int
	outFeatures int
	weight      tensor.Tensor
	bias        tensor.Tensor // Empty() when the layer has no bias.
}

// DenseOption configures a Dense layer at construction time.
type DenseOption func(*Dense)

// WithDenseName overrides the auto-generated layer name.
func WithDenseName(name string) DenseOption {
	return func(d *Dense) { d.Base = NewBase("Dense", name) }
}

// NewDense creates a Dense layer. weight must be shaped [inFeatures,
// outFeatures]; bias, if non-empty, must be shaped [outFeatures].
func NewDense(weight, bias tensor.Tensor, opts ...DenseOption) (*Dense, error) {
	shape := weight.Shape()
	if shape.Rank() != 2 {
		return nil, fmt.Errorf("nn: Dense: weight must be rank 2, got %d", shape.Rank())
	}
	inFeatures, outFeatures := shape[0], shape[1]
	if !bias.Empty() {
		bshape := bias.Shape()
		if bshape.Rank() != 1 || bshape[0] != outFeatures {
			return nil, fmt.Errorf("nn: Dense: bias shape %v incompatible with outFeatures %d", bshape, outFeatures)
		}
	}

	d := &Dense{
		Base:        NewBase("Dense", ""),
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// InFeatures and OutFeatures expose the layer's dimensions for serialization.
func (d *Dense) InFeatures() int  { return d.inFeatures }
func (d *Dense) OutFeatures() int { return d.outFeatures }

// Weight returns the layer's weight tensor.
func (d *Dense) Weight() tensor.Tensor { return d.weight }

// Bias returns the layer's bias tensor (Empty() if the layer has no bias).
func (d *Dense) Bias() tensor.Tensor { return d.bias }

func (d *Dense) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	switch inputShape.Rank() {
	case 1:
		if inputShape[0] != d.inFeatures {
			return nil, fmt.Errorf("nn: Dense: input shape %v incompatible with inFeatures %d", inputShape, d.inFeatures)
		}
		return tensor.NewShape(d.outFeatures), nil
	case 2:
		if inputShape[1] != d.inFeatures {
			return nil, fmt.Errorf("nn: Dense: input shape %v incompatible with inFeatures %d", inputShape, d.inFeatures)
		}
		return tensor.NewShape(inputShape[0], d.outFeatures), nil
	default:
		return nil, fmt.Errorf("nn: Dense: input must be 1D or 2D, got %dD", inputShape.Rank())
	}
}

func (d *Dense) Forward(input tensor.Tensor, out *tensor.Tensor) error {
	outShape, err := d.OutputShape(input.Shape())
	if err != nil {
		return err
	}

	// Weight is stored [inFeatures, outFeatures]; both the single-sample and
	// batch cases are the same (M,inFeatures)x(inFeatures,outFeatures) GEMM
	// with M=1 for a lone sample, so route both through MatMul and reshape
	// the result back to the 1D/2D output OutputShape expects.
	batch := 1
	if input.Rank() == 2 {
		batch = input.Shape()[0]
	}
	if err := kernel.MatMul(input.Data(), d.weight.Data(), out, batch, d.inFeatures, d.outFeatures); err != nil {
		return fmt.Errorf("nn: Dense.Forward: %w", err)
	}
	if err := tensor.ViewAs(out, outShape); err != nil {
		return fmt.Errorf("nn: Dense.Forward: %w", err)
	}

	if !d.bias.Empty() {
		addBiasRows(out.Data(), d.bias.Data(), d.outFeatures)
	}
	return nil
}

// addBiasRows adds bias (length outFeatures) to every row of a
// (rows,outFeatures) or (outFeatures) buffer in place.
func addBiasRows(data, bias []float32, outFeatures int) {
	for i := 0; i < len(data); i += outFeatures {
		row := data[i : i+outFeatures]
		for j, b := range bias {
			row[j] += b
		}
	}
}

func (d *Dense) ParameterCount() int {
	n := d.inFeatures * d.outFeatures
	if !d.bias.Empty() {
		n += d.outFeatures
	}
	return n
}

func (d *Dense) Clone() Layer {
	clone := &Dense{
		Base:        d.cloneBase(),
		inFeatures:  d.inFeatures,
		outFeatures: d.outFeatures,
		weight:      d.weight.Clone(),
	}
	if !d.bias.Empty() {
		clone.bias = d.bias.Clone()
	}
	return clone
}
