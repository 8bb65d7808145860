package layers

import "github.com/itohio/titaninfer/pkg/core/tensor"

// Flatten collapses a shape down to at most two dimensions. 1-D and 2-D
// inputs pass through unchanged; a 3-D (C,H,W) input becomes (C*H*W,); rank
// 4 and above collapses every dimension after the first (the batch/sample
// axis) into the second, e.g. (N,C,H,W) -> (N, C*H*W). Used between a
// convolutional stack and a Dense head.
type Flatten struct {
	Base
}

func NewFlatten(name string) *Flatten {
	return &Flatten{Base: NewBase("Flatten", name)}
}

func (f *Flatten) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	switch inputShape.Rank() {
	case 1, 2:
		return inputShape.Clone(), nil
	case 3:
		return tensor.NewShape(inputShape.Size()), nil
	default:
		n := inputShape[0]
		rest := inputShape.Size() / n
		return tensor.NewShape(n, rest), nil
	}
}

func (f *Flatten) Forward(input tensor.Tensor, out *tensor.Tensor) error {
	outShape, err := f.OutputShape(input.Shape())
	if err != nil {
		return err
	}
	if err := tensor.ReshapeInto(out, outShape); err != nil {
		return err
	}
	copy(out.Data(), input.Data())
	return nil
}

func (f *Flatten) ParameterCount() int { return 0 }

func (f *Flatten) Clone() Layer {
	return &Flatten{Base: f.cloneBase()}
}
