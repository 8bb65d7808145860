// Package compile implements the Compiler pass that turns a freshly loaded
// model into one ready for repeated inference: clone (so the loaded model
// stays untouched), fuse adjacent Dense+activation pairs, optionally
// quantize, then force one shape-chain validation pass so any layer
// incompatibility surfaces before the first Predict rather than mid-run.
package compile

import (
	"fmt"

	"github.com/itohio/titaninfer/pkg/core/kernel"
	"github.com/itohio/titaninfer/pkg/core/nn/layers"
	"github.com/itohio/titaninfer/pkg/core/nn/model"
)

// Options configures a Compile call.
type Options struct {
	// Fuse enables the Dense+activation fusion pass.
	Fuse bool
	// Quantize converts every remaining (non-fused) Dense layer to
	// QuantizedDense after fusion.
	Quantize bool
}

// Compile clones m and applies the requested passes, returning a new
// Sequential left untouched from m. Always validates the resulting layer
// chain's shapes before returning.
func Compile(m *model.Sequential, opts Options) (*model.Sequential, error) {
	if m.LayerCount() == 0 {
		return nil, fmt.Errorf("nn: compile: empty model")
	}

	working := m.Clone().Layers()

	if opts.Fuse {
		working = fusePass(working)
	}
	if opts.Quantize {
		var err error
		working, err = quantizePass(working)
		if err != nil {
			return nil, fmt.Errorf("nn: compile: quantize pass: %w", err)
		}
	}

	compiled, err := model.New(m.InputShape(), working)
	if err != nil {
		return nil, fmt.Errorf("nn: compile: %w", err)
	}
	if _, err := compiled.OutputShape(); err != nil {
		return nil, fmt.Errorf("nn: compile: shape chain invalid: %w", err)
	}
	return compiled, nil
}

// fusePass merges each Dense immediately followed by a ReLU or Sigmoid
// activation into a single FusedDense layer, scanning two layers at a time.
// Any other adjacent pair, and any layer that doesn't participate, passes
// through unchanged.
func fusePass(in []layers.Layer) []layers.Layer {
	out := make([]layers.Layer, 0, len(in))
	i := 0
	for i < len(in) {
		if i+1 < len(in) {
			if dense, ok := in[i].(*layers.Dense); ok {
				if act, ok := in[i+1].(*layers.Activation); ok {
					switch act.Kind() {
					case "ReLU":
						out = append(out, layers.NewFusedDenseReLU(dense))
						i += 2
						continue
					case "Sigmoid":
						out = append(out, layers.NewFusedDenseSigmoid(dense))
						i += 2
						continue
					}
				}
			}
		}
		out = append(out, in[i])
		i++
	}
	return out
}

// quantizePass replaces every Dense layer's weight with its quantized
// equivalent. FusedDense and already-quantized layers are left alone:
// fusion and quantization are mutually exclusive for a given layer in this
// pass ordering (fuse always runs first).
func quantizePass(in []layers.Layer) ([]layers.Layer, error) {
	out := make([]layers.Layer, len(in))
	for i, l := range in {
		dense, ok := l.(*layers.Dense)
		if !ok {
			out[i] = l
			continue
		}
		quantized, err := quantizeDense(dense)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.Name(), err)
		}
		out[i] = quantized
	}
	return out, nil
}

func quantizeDense(d *layers.Dense) (*layers.QuantizedDense, error) {
	qweight, err := kernel.Quantize(d.Weight())
	if err != nil {
		return nil, err
	}
	return layers.NewQuantizedDense(qweight, d.Bias(), d.Name())
}
