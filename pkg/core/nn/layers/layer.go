// Package layers implements the inference-only layer set a compiled model is
// built from: each layer owns its parameters, knows its output shape given
// an input shape, and computes forward() directly into a caller-supplied
// output tensor.
package layers

import "github.com/itohio/titaninfer/pkg/core/tensor"

// Layer is the minimal contract every layer implements. Unlike a trainable
// layer, there is no Backward/Init/Parameters(optimizer) surface: a compiled
// model only ever runs forward.
type Layer interface {
	// Name returns the layer's name, explicit or auto-generated.
	Name() string

	// Forward computes output = layer(input), reallocating out if its shape
	// doesn't already match OutputShape(input.Shape()).
	Forward(input tensor.Tensor, out *tensor.Tensor) error

	// OutputShape returns the shape Forward will produce for a given input
	// shape, without running the computation. Used by Sequential to
	// validate the shape chain and to render Summary().
	OutputShape(inputShape tensor.Shape) (tensor.Shape, error)

	// ParameterCount returns the number of trainable-sized scalar
	// parameters the layer carries (weights + biases), for model summaries.
	ParameterCount() int

	// Clone returns a deep, independently owned copy of the layer.
	Clone() Layer
}
