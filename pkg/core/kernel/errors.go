// Package kernel implements the numeric building blocks every layer calls
// into: matrix products, activations, convolution rearrangement, pooling and
// int8 quantization. Every kernel follows the contract op(inputs...,
// output *tensor.Tensor): output is reallocated when its shape doesn't match
// the computed result, and reused otherwise.
package kernel

import "fmt"

// InvalidArgumentError reports a shape or parameter mismatch detected by a
// kernel. The handle façade (pkg/core/handle) translates these, like any
// other predict failure, into the public error taxonomy's Inference kind
// (or Validation when the message mentions NaN or a shape).
type InvalidArgumentError struct {
	Op      string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("kernel: %s: %s", e.Op, e.Message)
}

func invalidArgf(op, format string, args ...any) error {
	return &InvalidArgumentError{Op: op, Message: fmt.Sprintf(format, args...)}
}
