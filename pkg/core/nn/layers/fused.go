package layers

import (
	"fmt"

	"github.com/itohio/titaninfer/pkg/core/kernel"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// FusedDense wraps a Dense layer immediately followed by an activation into
// a single layer, computing the activation directly on the matmul output
// without materializing an intermediate tensor. The compiler's fuse pass
// only ever produces this from an adjacent Dense+activation pair.
type FusedDense struct {
	Base
	dense *Dense
	kind  activationKind
}

// NewFusedDenseReLU and NewFusedDenseSigmoid build fused layers from an
// existing Dense layer (which the fuse pass takes ownership of).
func NewFusedDenseReLU(dense *Dense) *FusedDense {
	return &FusedDense{Base: NewBase("FusedDenseReLU", ""), dense: dense, kind: kindReLU}
}

func NewFusedDenseSigmoid(dense *Dense) *FusedDense {
	return &FusedDense{Base: NewBase("FusedDenseSigmoid", ""), dense: dense, kind: kindSigmoid}
}

// IsSigmoid reports whether the fused activation is Sigmoid (as opposed to
// ReLU). Weight and Bias expose the underlying Dense layer's parameters.
func (f *FusedDense) IsSigmoid() bool        { return f.kind == kindSigmoid }
func (f *FusedDense) Weight() tensor.Tensor  { return f.dense.Weight() }
func (f *FusedDense) Bias() tensor.Tensor    { return f.dense.Bias() }

func (f *FusedDense) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	return f.dense.OutputShape(inputShape)
}

func (f *FusedDense) Forward(input tensor.Tensor, out *tensor.Tensor) error {
	if err := f.dense.Forward(input, out); err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", f.Name(), err)
	}
	if err := f.kind.apply(*out, out); err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", f.Name(), err)
	}
	return nil
}

func (f *FusedDense) ParameterCount() int { return f.dense.ParameterCount() }

func (f *FusedDense) Clone() Layer {
	return &FusedDense{Base: f.cloneBase(), dense: f.dense.Clone().(*Dense), kind: f.kind}
}
