// Package engine implements validated single-request inference over a
// compiled model: shape and NaN checks on the input, optional latency
// profiling, and a warmup helper that primes OS/allocator caches before
// the first real request is timed.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/itohio/titaninfer/pkg/core/nn/model"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// Stats reports accumulated latency and call-count statistics. Zero value
// is "no calls observed yet".
type Stats struct {
	Count      int64
	TotalNanos int64
	MinNanos   int64
	MaxNanos   int64
	// PerLayerNanos holds cumulative nanoseconds spent in each layer
	// position across every profiled call, indexed the same as the
	// underlying model's Layers(). Nil until the first profiled Predict.
	PerLayerNanos []int64
}

// MeanNanos returns the mean per-call latency, or 0 if Count is 0.
func (s Stats) MeanNanos() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.TotalNanos) / float64(s.Count)
}

// Engine runs a compiled model's forward pass with input validation and
// optional profiling. Not safe for concurrent Predict calls on the same
// Engine; pkg/core/handle adds the mutex that makes it safe to share.
type Engine struct {
	model   *model.Sequential
	profile bool
	statsMu sync.Mutex
	stats   Stats
}

// New wraps a compiled model. profile enables latency accumulation in
// Stats(); when false, Predict skips the timing calls entirely so
// profiling has zero cost unless explicitly requested.
func New(m *model.Sequential, profile bool) *Engine {
	return &Engine{model: m, profile: profile}
}

// Predict validates input (matches the model's input shape, contains no
// NaN) and runs it through the model, recording latency if profiling is
// enabled.
func (e *Engine) Predict(input tensor.Tensor) (tensor.Tensor, error) {
	if err := e.validate(input); err != nil {
		return tensor.Tensor{}, err
	}

	if !e.profile {
		out, err := e.model.Forward(input)
		if err != nil {
			return tensor.Tensor{}, fmt.Errorf("engine: Predict: %w", err)
		}
		// Forward returns a reference into the model's ping-pong scratch
		// buffer; the next Predict call on this model overwrites it, so the
		// caller needs an independent copy to retain.
		return out.Clone(), nil
	}

	deltas := make([]time.Duration, e.model.LayerCount())
	start := time.Now()
	out, err := e.model.ForwardTimed(input, deltas)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("engine: Predict: %w", err)
	}
	e.record(time.Since(start), deltas)
	return out.Clone(), nil
}

// PredictBatch runs Predict for each input independently, fanned out across
// a bounded number of concurrent workers. Each worker gets its own model
// clone: a layer's scratch buffers (im2col columns, ping-pong output
// tensors) are not safe for concurrent Forward calls, so sharing e.model
// directly across goroutines would race. Results preserve input order
// regardless of completion order.
func (e *Engine) PredictBatch(inputs []tensor.Tensor) ([]tensor.Tensor, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	workers := runtime.NumCPU()
	if workers > len(inputs) {
		workers = len(inputs)
	}
	// idle is a pool of exclusively-owned worker engines: a goroutine must
	// hold one before calling Predict, and returns it when done, so no two
	// goroutines ever touch the same clone's scratch buffers concurrently.
	idle := make(chan *Engine, workers)
	for i := 0; i < workers; i++ {
		idle <- New(e.model.Clone(), e.profile)
	}

	out := make([]tensor.Tensor, len(inputs))
	sem := semaphore.NewWeighted(int64(workers))
	g, ctx := errgroup.WithContext(context.Background())

	for i, in := range inputs {
		i, in := i, in
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			worker := <-idle
			defer func() { idle <- worker }()

			result, err := worker.Predict(in)
			if err != nil {
				return fmt.Errorf("engine: PredictBatch: request %d: %w", i, err)
			}
			out[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	close(idle)
	if e.profile {
		engines := make([]*Engine, 0, workers)
		for w := range idle {
			engines = append(engines, w)
		}
		e.mergeWorkerStats(engines)
	}
	return out, nil
}

// mergeWorkerStats folds each per-worker clone's accumulated Stats into the
// parent Engine's, so PredictBatch's concurrent fan-out still contributes
// to the same profiling accumulator a caller reads via Stats().
func (e *Engine) mergeWorkerStats(engines []*Engine) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	for _, w := range engines {
		w.statsMu.Lock()
		s := w.stats
		w.statsMu.Unlock()
		if s.Count == 0 {
			continue
		}
		if e.stats.Count == 0 || s.MinNanos < e.stats.MinNanos {
			e.stats.MinNanos = s.MinNanos
		}
		if s.MaxNanos > e.stats.MaxNanos {
			e.stats.MaxNanos = s.MaxNanos
		}
		e.stats.Count += s.Count
		e.stats.TotalNanos += s.TotalNanos
		if len(s.PerLayerNanos) > 0 {
			if e.stats.PerLayerNanos == nil {
				e.stats.PerLayerNanos = make([]int64, len(s.PerLayerNanos))
			}
			for i, v := range s.PerLayerNanos {
				e.stats.PerLayerNanos[i] += v
			}
		}
	}
}

func (e *Engine) validate(input tensor.Tensor) error {
	expected := e.model.InputShape()
	if !input.Shape().Equal(expected) {
		return fmt.Errorf("engine: Predict: input shape %v does not match expected %v", input.Shape(), expected)
	}
	if input.HasNaN() {
		return fmt.Errorf("engine: Predict: input contains NaN")
	}
	return nil
}

// record folds one Predict call's total elapsed time d and its per-layer
// deltas into the accumulated Stats.
func (e *Engine) record(d time.Duration, deltas []time.Duration) {
	n := d.Nanoseconds()
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats.Count++
	e.stats.TotalNanos += n
	if e.stats.Count == 1 || n < e.stats.MinNanos {
		e.stats.MinNanos = n
	}
	if n > e.stats.MaxNanos {
		e.stats.MaxNanos = n
	}
	if e.stats.PerLayerNanos == nil {
		e.stats.PerLayerNanos = make([]int64, len(deltas))
	}
	for i, dl := range deltas {
		e.stats.PerLayerNanos[i] += dl.Nanoseconds()
	}
}

// Stats returns a snapshot of accumulated profiling statistics.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// ResetStats zeroes the accumulated statistics.
func (e *Engine) ResetStats() {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats = Stats{}
}

// Warmup runs n throwaway predictions with a zero-filled input of the
// model's expected shape, discarding the results. Useful immediately after
// load to let the allocator and any OS page cache warm up before serving
// real traffic; does not affect Stats() even when profiling is enabled.
func (e *Engine) Warmup(n int) error {
	if n <= 0 {
		return nil
	}
	wasProfiling := e.profile
	e.profile = false
	defer func() { e.profile = wasProfiling }()

	input := tensor.MustNew(e.model.InputShape())
	for i := 0; i < n; i++ {
		if _, err := e.Predict(input); err != nil {
			return fmt.Errorf("engine: Warmup: %w", err)
		}
	}
	return nil
}

// Model returns the underlying compiled model, e.g. for Summary().
func (e *Engine) Model() *model.Sequential { return e.model }
