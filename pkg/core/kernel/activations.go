package kernel

import (
	"github.com/chewxy/math32"

	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// ReLU applies max(0, x) elementwise, writing into out (reallocated to in's
// shape if necessary).
func ReLU(in tensor.Tensor, out *tensor.Tensor) error {
	if err := ReshapeInto(out, in.Shape()); err != nil {
		return err
	}
	src, dst := in.Data(), out.Data()
	for i, v := range src {
		if v < 0 {
			v = 0
		}
		dst[i] = v
	}
	return nil
}

// Sigmoid applies 1/(1+exp(-x)) elementwise.
func Sigmoid(in tensor.Tensor, out *tensor.Tensor) error {
	if err := ReshapeInto(out, in.Shape()); err != nil {
		return err
	}
	src, dst := in.Data(), out.Data()
	for i, v := range src {
		dst[i] = 1 / (1 + math32.Exp(-v))
	}
	return nil
}

// Tanh applies the hyperbolic tangent elementwise.
func Tanh(in tensor.Tensor, out *tensor.Tensor) error {
	if err := ReshapeInto(out, in.Shape()); err != nil {
		return err
	}
	src, dst := in.Data(), out.Data()
	for i, v := range src {
		dst[i] = math32.Tanh(v)
	}
	return nil
}

// Softmax normalizes along the last axis of a rank-1 or rank-2 tensor (rows
// are independent distributions for rank 2). Subtracts the row max before
// exponentiating for numerical stability. Higher ranks are rejected: softmax
// is not defined over an implicit axis for them.
func Softmax(in tensor.Tensor, out *tensor.Tensor) error {
	switch in.Rank() {
	case 1:
		return softmaxRow(in.Data(), mustOutRow(out, in.Shape()))
	case 2:
		if err := ReshapeInto(out, in.Shape()); err != nil {
			return err
		}
		shape := in.Shape()
		rows, cols := shape[0], shape[1]
		src, dst := in.Data(), out.Data()
		for r := 0; r < rows; r++ {
			if err := softmaxRow(src[r*cols:r*cols+cols], dst[r*cols:r*cols+cols]); err != nil {
				return err
			}
		}
		return nil
	default:
		return invalidArgf("Softmax", "rank %d not supported, want 1 or 2", in.Rank())
	}
}

func mustOutRow(out *tensor.Tensor, shape tensor.Shape) []float32 {
	if err := ReshapeInto(out, shape); err != nil {
		panic(err)
	}
	return out.Data()
}

func softmaxRow(src, dst []float32) error {
	if len(src) == 0 {
		return invalidArgf("Softmax", "empty row")
	}
	max := src[0]
	for _, v := range src[1:] {
		if v > max {
			max = v
		}
	}
	var sum float32
	for i, v := range src {
		e := math32.Exp(v - max)
		dst[i] = e
		sum += e
	}
	inv := 1 / sum
	for i := range dst {
		dst[i] *= inv
	}
	return nil
}
