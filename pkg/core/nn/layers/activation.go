package layers

import (
	"fmt"

	"github.com/itohio/titaninfer/pkg/core/kernel"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

type activationKind int

const (
	kindReLU activationKind = iota
	kindSigmoid
	kindTanh
	kindSoftmax
)

func (k activationKind) prefix() string {
	switch k {
	case kindReLU:
		return "ReLU"
	case kindSigmoid:
		return "Sigmoid"
	case kindTanh:
		return "Tanh"
	case kindSoftmax:
		return "Softmax"
	default:
		return "Activation"
	}
}

func (k activationKind) apply(in tensor.Tensor, out *tensor.Tensor) error {
	switch k {
	case kindReLU:
		return kernel.ReLU(in, out)
	case kindSigmoid:
		return kernel.Sigmoid(in, out)
	case kindTanh:
		return kernel.Tanh(in, out)
	case kindSoftmax:
		return kernel.Softmax(in, out)
	default:
		return fmt.Errorf("nn: unknown activation kind %d", k)
	}
}

// Activation wraps one of the elementwise/row-wise activation kernels as a
// Layer. Softmax additionally requires rank 1 or 2 input.
type Activation struct {
	Base
	kind activationKind
}

// NewReLU, NewSigmoid, NewTanh and NewSoftmax construct the four supported
// activation layers.
func NewReLU(name string) *Activation    { return newActivation(kindReLU, name) }
func NewSigmoid(name string) *Activation { return newActivation(kindSigmoid, name) }
func NewTanh(name string) *Activation    { return newActivation(kindTanh, name) }
func NewSoftmax(name string) *Activation { return newActivation(kindSoftmax, name) }

func newActivation(kind activationKind, name string) *Activation {
	return &Activation{Base: NewBase(kind.prefix(), name), kind: kind}
}

func (a *Activation) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	if a.kind == kindSoftmax && inputShape.Rank() != 1 && inputShape.Rank() != 2 {
		return nil, fmt.Errorf("nn: Softmax: input must be rank 1 or 2, got %d", inputShape.Rank())
	}
	return inputShape.Clone(), nil
}

func (a *Activation) Forward(input tensor.Tensor, out *tensor.Tensor) error {
	if _, err := a.OutputShape(input.Shape()); err != nil {
		return err
	}
	if err := a.kind.apply(input, out); err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", a.Name(), err)
	}
	return nil
}

func (a *Activation) ParameterCount() int { return 0 }

// Kind returns the activation's name, e.g. "ReLU", for serialization.
func (a *Activation) Kind() string { return a.kind.prefix() }

func (a *Activation) Clone() Layer {
	return &Activation{Base: a.cloneBase(), kind: a.kind}
}
