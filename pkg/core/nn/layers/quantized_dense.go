package layers

import (
	"fmt"

	"github.com/itohio/titaninfer/pkg/core/kernel"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// QuantizedDense is Dense's int8 counterpart: weight and (at forward time)
// the activation are both quantized, the GEMM accumulates in int32, and the
// result is dequantized back to float32 before the optional bias add. The
// compiler's quantize pass produces these from a Dense layer post-fusion.
type QuantizedDense struct {
	Base
	inFeatures, outFeatures int
	weight                  tensor.QuantizedTensor // [inFeatures, outFeatures]
	bias                    tensor.Tensor          // float32 [outFeatures], optional

	quantIn tensor.QuantizedTensor // last call's quantized input; Quantize allocates it afresh each call
}

// NewQuantizedDense builds a QuantizedDense from an already-quantized weight
// tensor and an optional float32 bias (bias stays full precision: its
// contribution is additive and small relative to the GEMM's dynamic range).
func NewQuantizedDense(weight tensor.QuantizedTensor, bias tensor.Tensor, name string) (*QuantizedDense, error) {
	shape := weight.Shape()
	if shape.Rank() != 2 {
		return nil, fmt.Errorf("nn: QuantizedDense: weight must be rank 2, got %d", shape.Rank())
	}
	inFeatures, outFeatures := shape[0], shape[1]
	if !bias.Empty() {
		bshape := bias.Shape()
		if bshape.Rank() != 1 || bshape[0] != outFeatures {
			return nil, fmt.Errorf("nn: QuantizedDense: bias shape %v incompatible with outFeatures %d", bshape, outFeatures)
		}
	}
	return &QuantizedDense{
		Base:        NewBase("QuantizedDense", name),
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
	}, nil
}

// Weight and Bias expose the layer's parameters for serialization.
func (q *QuantizedDense) Weight() tensor.QuantizedTensor { return q.weight }
func (q *QuantizedDense) Bias() tensor.Tensor            { return q.bias }

func (q *QuantizedDense) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	switch inputShape.Rank() {
	case 1:
		if inputShape[0] != q.inFeatures {
			return nil, fmt.Errorf("nn: QuantizedDense: input shape %v incompatible with inFeatures %d", inputShape, q.inFeatures)
		}
		return tensor.NewShape(q.outFeatures), nil
	case 2:
		if inputShape[1] != q.inFeatures {
			return nil, fmt.Errorf("nn: QuantizedDense: input shape %v incompatible with inFeatures %d", inputShape, q.inFeatures)
		}
		return tensor.NewShape(inputShape[0], q.outFeatures), nil
	default:
		return nil, fmt.Errorf("nn: QuantizedDense: input must be 1D or 2D, got %dD", inputShape.Rank())
	}
}

func (q *QuantizedDense) Forward(input tensor.Tensor, out *tensor.Tensor) error {
	outShape, err := q.OutputShape(input.Shape())
	if err != nil {
		return err
	}

	quantIn, err := kernel.Quantize(input)
	if err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", q.Name(), err)
	}
	q.quantIn = quantIn

	batch := 1
	if input.Rank() == 2 {
		batch = input.Shape()[0]
	}
	flatIn, err := tensor.NewQuantized(tensor.NewShape(batch, q.inFeatures), quantIn.Scale(), quantIn.ZeroPoint())
	if err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", q.Name(), err)
	}
	copy(flatIn.Data(), quantIn.Data())

	if err := kernel.GemmInt8(flatIn, q.weight, out); err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", q.Name(), err)
	}
	if !q.bias.Empty() {
		addBiasRows(out.Data(), q.bias.Data(), q.outFeatures)
	}
	if err := tensor.ViewAs(out, outShape); err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", q.Name(), err)
	}
	return nil
}

func (q *QuantizedDense) ParameterCount() int {
	n := q.inFeatures * q.outFeatures
	if !q.bias.Empty() {
		n += q.outFeatures
	}
	return n
}

func (q *QuantizedDense) Clone() Layer {
	clone := &QuantizedDense{
		Base:        q.cloneBase(),
		inFeatures:  q.inFeatures,
		outFeatures: q.outFeatures,
		weight:      q.weight.Clone(),
	}
	if !q.bias.Empty() {
		clone.bias = q.bias.Clone()
	}
	return clone
}
