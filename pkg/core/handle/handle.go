// Package handle implements the mutex-guarded public façade over one
// compiled model: predict, predict_batch, stats, summary, and friends, each
// acquiring the handle's mutex, with every underlying failure translated
// into the internal/errs taxonomy at this boundary. Grounded on the
// teacher's pattern of a single owning wrapper serializing access to
// mutable per-layer buffers shared across callers.
package handle

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"

	"github.com/mr-tron/base58"

	"github.com/itohio/titaninfer/internal/errs"
	"github.com/itohio/titaninfer/internal/logging"
	"github.com/itohio/titaninfer/pkg/core/nn/compile"
	"github.com/itohio/titaninfer/pkg/core/nn/engine"
	"github.com/itohio/titaninfer/pkg/core/nn/model"
	"github.com/itohio/titaninfer/pkg/core/nn/serialize"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// Model is a mutex-guarded owning wrapper around one inference engine. All
// public operations acquire mu, so a Model is safe to share across
// goroutines; only one predict runs against it at a time.
type Model struct {
	mu        sync.Mutex
	engine    *engine.Engine
	logger    *logging.Logger
	contentID string
}

// Open loads a model file from path and compiles it with the default
// compile options, building a ready-to-serve Model. This is the non-fluent equivalent of Builder for
// callers who don't need profiling/warmup/overrides.
func Open(path string) (*Model, error) {
	return NewBuilder().WithPath(path).Build()
}

// Builder fluently assembles a Model: path, profiling flag, warmup count,
// an input-shape override, log level, and compile options.
type Builder struct {
	path           string
	profiling      bool
	warmupRuns     int
	inputShape     tensor.Shape
	hasInputShape  bool
	logLevel       logging.Level
	compileOptions compile.Options
}

// NewBuilder returns a Builder with defaults: profiling off, no warmup, no
// input-shape override (inferred from the model), Info logging.
func NewBuilder() *Builder {
	return &Builder{logLevel: logging.Info, compileOptions: compile.Options{Fuse: true}}
}

// WithPath sets the required model file path.
func (b *Builder) WithPath(path string) *Builder { b.path = path; return b }

// WithProfiling enables latency accumulation in Stats().
func (b *Builder) WithProfiling(enabled bool) *Builder { b.profiling = enabled; return b }

// WithWarmupRuns runs n throwaway predictions immediately after load.
func (b *Builder) WithWarmupRuns(n int) *Builder { b.warmupRuns = n; return b }

// WithInputShape overrides the shape inferred from the model file.
func (b *Builder) WithInputShape(shape tensor.Shape) *Builder {
	b.inputShape = shape.Clone()
	b.hasInputShape = true
	return b
}

// WithLogLevel sets the level for the Model's logger.
func (b *Builder) WithLogLevel(level logging.Level) *Builder { b.logLevel = level; return b }

// WithCompileOptions overrides the default compile pass options (fuse
// enabled, quantize disabled).
func (b *Builder) WithCompileOptions(opts compile.Options) *Builder {
	b.compileOptions = opts
	return b
}

// Build loads, optionally reshapes, compiles, and wraps the model,
// translating every failure into the internal/errs taxonomy.
func (b *Builder) Build() (*Model, error) {
	if b.path == "" {
		return nil, errs.New(errs.KindModelLoad, errs.FileNotFound, "model path is required")
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ModelLoad(errs.FileNotFound, err)
		}
		return nil, errs.ModelLoad(errs.InvalidFormat, err)
	}

	m, err := serialize.Load(bytes.NewReader(data))
	if err != nil {
		return nil, classifyLoadError(err)
	}

	if b.hasInputShape {
		m, err = model.New(b.inputShape, m.Layers())
		if err != nil {
			return nil, errs.ModelLoad(errs.InvalidFormat, err)
		}
	}

	compiled, err := compile.Compile(m, b.compileOptions)
	if err != nil {
		return nil, errs.ModelLoad(errs.InvalidFormat, err)
	}

	e := engine.New(compiled, b.profiling)
	if err := e.Warmup(b.warmupRuns); err != nil {
		return nil, errs.Inference(errs.InternalError, err)
	}

	logger := logging.New(b.logLevel, os.Stderr)
	h := &Model{engine: e, logger: logger, contentID: contentIDOf(data)}
	logger.Infof("loaded model %s (%d layers, content %s)", b.path, compiled.LayerCount(), h.contentID)
	return h, nil
}

func contentIDOf(data []byte) string {
	h := fnv.New64a()
	h.Write(data)
	return base58.Encode(h.Sum(nil))
}

// classifyLoadError maps a serialize.Load failure to ModelLoad/InvalidFormat
// or ModelLoad/EmptyModel depending on the reported reason.
func classifyLoadError(err error) error {
	if fe, ok := err.(*serialize.FormatError); ok && strings.Contains(fe.Reason, "no layers") {
		return errs.ModelLoad(errs.EmptyModel, err)
	}
	return errs.ModelLoad(errs.InvalidFormat, err)
}

// Predict runs one forward pass, translating validation and runtime
// failures into the error taxonomy.
func (h *Model) Predict(input tensor.Tensor) (tensor.Tensor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out, err := h.engine.Predict(input)
	if err != nil {
		h.logger.Warningf("predict failed: %v", err)
		return tensor.Tensor{}, translatePredictError(err)
	}
	return out, nil
}

// PredictBatch runs Predict for each input, fanned out concurrently by
// engine.PredictBatch, and returns the results in input order. On failure it
// returns the first error to occur (already taxonomy-classified) and no
// partial results.
func (h *Model) PredictBatch(inputs []tensor.Tensor) ([]tensor.Tensor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	results, err := h.engine.PredictBatch(inputs)
	if err != nil {
		return nil, translatePredictError(err)
	}
	return results, nil
}

func translatePredictError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NaN"):
		return errs.Validation(errs.NanInput, err)
	case strings.Contains(msg, "shape"):
		return errs.Validation(errs.ShapeMismatch, err)
	default:
		return errs.Inference(errs.InternalError, err)
	}
}

// Stats returns a snapshot of accumulated latency statistics.
func (h *Model) Stats() engine.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Stats()
}

// ResetStats zeroes the accumulated statistics.
func (h *Model) ResetStats() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.engine.ResetStats()
}

// IsLoaded reports whether this handle owns a usable model. Always true for
// a Model constructed via Build/Open; exists for API parity with the FFI
// surface, where a null handle reports false.
func (h *Model) IsLoaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine != nil
}

// LayerCount returns the number of layers in the compiled model.
func (h *Model) LayerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Model().LayerCount()
}

// ExpectedInputShape returns the shape every Predict call's input must
// match.
func (h *Model) ExpectedInputShape() tensor.Shape {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Model().InputShape()
}

// Summary returns a human-readable per-layer listing, including the
// content ID derived from the loaded file.
func (h *Model) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fmt.Sprintf("model %s\n%s", h.contentID, h.engine.Model().Summary())
}
