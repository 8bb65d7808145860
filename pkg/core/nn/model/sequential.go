// Package model implements the Sequential container a compiled graph of
// layers runs through at inference time.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/itohio/titaninfer/pkg/core/nn/layers"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// Sequential runs an ordered stack of layers front to back, alternating
// between two scratch tensors so that no layer ever allocates its own
// output storage after the first forward pass touches a given shape.
type Sequential struct {
	layers     []layers.Layer
	inputShape tensor.Shape
	buf        [2]tensor.Tensor
}

// New builds a Sequential from an ordered layer list and the shape every
// Predict call's input must match. Rejects an empty layer list: a model
// with no layers has nothing to compile or run.
func New(inputShape tensor.Shape, layerList []layers.Layer) (*Sequential, error) {
	if len(layerList) == 0 {
		return nil, fmt.Errorf("nn: model.New: empty layer list")
	}
	if err := inputShape.Validate(); err != nil {
		return nil, fmt.Errorf("nn: model.New: %w", err)
	}
	return &Sequential{layers: layerList, inputShape: inputShape.Clone()}, nil
}

// Layers returns the ordered layer list.
func (s *Sequential) Layers() []layers.Layer { return s.layers }

// LayerCount returns the number of layers in the model.
func (s *Sequential) LayerCount() int { return len(s.layers) }

// InputShape returns the shape every Predict input must match.
func (s *Sequential) InputShape() tensor.Shape { return s.inputShape.Clone() }

// OutputShape chains each layer's OutputShape to compute the model's final
// output shape without running Forward.
func (s *Sequential) OutputShape() (tensor.Shape, error) {
	shape := s.inputShape
	for i, l := range s.layers {
		next, err := l.OutputShape(shape)
		if err != nil {
			return nil, fmt.Errorf("nn: Sequential.OutputShape: layer %d (%s): %w", i, l.Name(), err)
		}
		shape = next
	}
	return shape, nil
}

// Forward runs input through every layer in order, ping-ponging between the
// two scratch buffers so each layer's output becomes the next layer's
// input. Returns a reference to whichever buffer holds the final output;
// callers that need to retain it across the next Forward call must Clone it.
func (s *Sequential) Forward(input tensor.Tensor) (tensor.Tensor, error) {
	if !input.Shape().Equal(s.inputShape) {
		return tensor.Tensor{}, fmt.Errorf("nn: Sequential.Forward: input shape %v does not match expected %v", input.Shape(), s.inputShape)
	}

	current := input
	for i, l := range s.layers {
		dst := &s.buf[i%2]
		if err := l.Forward(current, dst); err != nil {
			return tensor.Tensor{}, fmt.Errorf("nn: Sequential.Forward: layer %d (%s): %w", i, l.Name(), err)
		}
		current = *dst
	}
	return current, nil
}

// ForwardTimed runs Forward while recording each layer's elapsed wall-clock
// time into deltas, which must be pre-sized to LayerCount(). Used by callers
// that profile per-layer latency (pkg/core/nn/engine) instead of only
// aggregate end-to-end time.
func (s *Sequential) ForwardTimed(input tensor.Tensor, deltas []time.Duration) (tensor.Tensor, error) {
	if !input.Shape().Equal(s.inputShape) {
		return tensor.Tensor{}, fmt.Errorf("nn: Sequential.ForwardTimed: input shape %v does not match expected %v", input.Shape(), s.inputShape)
	}
	if len(deltas) != len(s.layers) {
		return tensor.Tensor{}, fmt.Errorf("nn: Sequential.ForwardTimed: deltas length %d does not match layer count %d", len(deltas), len(s.layers))
	}

	current := input
	for i, l := range s.layers {
		dst := &s.buf[i%2]
		start := time.Now()
		if err := l.Forward(current, dst); err != nil {
			return tensor.Tensor{}, fmt.Errorf("nn: Sequential.ForwardTimed: layer %d (%s): %w", i, l.Name(), err)
		}
		deltas[i] += time.Since(start)
		current = *dst
	}
	return current, nil
}

// ParameterCount sums ParameterCount across every layer.
func (s *Sequential) ParameterCount() int {
	total := 0
	for _, l := range s.layers {
		total += l.ParameterCount()
	}
	return total
}

// Clone returns a deep, independently owned copy: every layer is cloned and
// the scratch buffers start empty (they're reallocated on first Forward).
func (s *Sequential) Clone() *Sequential {
	cloned := make([]layers.Layer, len(s.layers))
	for i, l := range s.layers {
		cloned[i] = l.Clone()
	}
	return &Sequential{layers: cloned, inputShape: s.inputShape.Clone()}
}

// Summary renders a human-readable layer-by-layer table: name, output
// shape and parameter count per layer, followed by the running total.
func (s *Sequential) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-20s %12s\n", "Layer", "Output Shape", "Params")
	fmt.Fprintln(&b, strings.Repeat("-", 58))

	shape := s.inputShape
	total := 0
	for _, l := range s.layers {
		out, err := l.OutputShape(shape)
		outStr := "?"
		if err == nil {
			outStr = out.String()
			shape = out
		}
		n := l.ParameterCount()
		total += n
		fmt.Fprintf(&b, "%-24s %-20s %12d\n", l.Name(), outStr, n)
	}
	fmt.Fprintln(&b, strings.Repeat("-", 58))
	fmt.Fprintf(&b, "Total params: %d\n", total)
	return b.String()
}
