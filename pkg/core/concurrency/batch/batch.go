// Package batch implements a dynamic request batcher: concurrent callers'
// single-row inputs are coalesced into one matrix, run through a single
// batched forward call, and the output rows are split back out to each
// waiting caller in the order they arrived.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// Config bounds how large a batch can grow and how long the batcher waits
// for it to fill before forwarding whatever it has collected.
type Config struct {
	MaxBatchSize int
	MaxWait      time.Duration
}

// PredictFunc runs one batched forward pass over a rank-2 (batch,features)
// input and returns a rank-2 (batch,outFeatures) output.
type PredictFunc func(tensor.Tensor) (tensor.Tensor, error)

type request struct {
	id     uuid.UUID
	input  tensor.Tensor
	respCh chan response
}

type response struct {
	output tensor.Tensor
	err    error
}

// Batcher runs a single consumer goroutine that coalesces concurrent
// Predict calls into batches of at most Config.MaxBatchSize, bounded by
// Config.MaxWait since the first request in the batch arrived.
type Batcher struct {
	cfg     Config
	predict PredictFunc
	reqCh   chan request
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New starts the batcher's consumer goroutine immediately.
func New(cfg Config, predict PredictFunc) *Batcher {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 1
	}
	b := &Batcher{
		cfg:     cfg,
		predict: predict,
		reqCh:   make(chan request),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go b.run()
	return b
}

// Predict enqueues a single-row input and blocks until its slice of the
// batch's result is ready, ctx is canceled, or the batcher is stopped.
func (b *Batcher) Predict(ctx context.Context, input tensor.Tensor) (tensor.Tensor, error) {
	respCh := make(chan response, 1)
	select {
	case b.reqCh <- request{id: uuid.New(), input: input, respCh: respCh}:
	case <-ctx.Done():
		return tensor.Tensor{}, ctx.Err()
	case <-b.stopCh:
		return tensor.Tensor{}, fmt.Errorf("batch: batcher stopped")
	}

	select {
	case resp := <-respCh:
		return resp.output, resp.err
	case <-ctx.Done():
		return tensor.Tensor{}, ctx.Err()
	}
}

// Stop signals the consumer goroutine to finish any batch already being
// collected, fail every request still queued, and exit. Blocks until the
// consumer goroutine has returned.
func (b *Batcher) Stop() {
	close(b.stopCh)
	<-b.doneCh
}

func (b *Batcher) run() {
	defer close(b.doneCh)
	for {
		first, ok := b.waitForFirst()
		if !ok {
			return
		}
		batch := []request{first}
		batch = b.collect(batch)
		b.forward(batch)
	}
}

func (b *Batcher) waitForFirst() (request, bool) {
	select {
	case req := <-b.reqCh:
		return req, true
	case <-b.stopCh:
		return request{}, false
	}
}

// collect grows batch up to MaxBatchSize, waiting at most MaxWait from the
// first request's arrival for the rest to show up.
func (b *Batcher) collect(batch []request) []request {
	deadline := time.NewTimer(b.cfg.MaxWait)
	defer deadline.Stop()

	for len(batch) < b.cfg.MaxBatchSize {
		select {
		case req := <-b.reqCh:
			batch = append(batch, req)
		case <-deadline.C:
			return batch
		case <-b.stopCh:
			return batch
		}
	}
	return batch
}

func (b *Batcher) forward(batch []request) {
	stacked, rowSize, err := stackInputs(batch)
	if err != nil {
		b.deliver(batch, nil, err)
		return
	}

	out, err := b.predict(stacked)
	if err != nil {
		b.deliver(batch, nil, err)
		return
	}

	rows, err := splitRows(out, len(batch), rowSize)
	if err != nil {
		b.deliver(batch, nil, err)
		return
	}
	b.deliver(batch, rows, nil)
}

// deliver sends each request its row of a successful batch, or the shared
// err to every request if the batch failed as a whole — a bad input from
// one caller fails the whole coalesced GEMM, so every waiter in that batch
// sees the same error.
func (b *Batcher) deliver(batch []request, rows []tensor.Tensor, err error) {
	for i, req := range batch {
		if err != nil {
			req.respCh <- response{err: err}
			continue
		}
		req.respCh <- response{output: rows[i]}
	}
}

func stackInputs(batch []request) (tensor.Tensor, int, error) {
	rowSize := batch[0].input.Size()
	for _, req := range batch {
		if req.input.Size() != rowSize {
			return tensor.Tensor{}, 0, fmt.Errorf("batch: row size mismatch: %d vs %d", req.input.Size(), rowSize)
		}
	}
	stacked, err := tensor.New(tensor.NewShape(len(batch), rowSize))
	if err != nil {
		return tensor.Tensor{}, 0, err
	}
	dst := stacked.Data()
	for i, req := range batch {
		copy(dst[i*rowSize:(i+1)*rowSize], req.input.Data())
	}
	return stacked, rowSize, nil
}

func splitRows(out tensor.Tensor, count, _ int) ([]tensor.Tensor, error) {
	if out.Rank() != 2 || out.Shape()[0] != count {
		return nil, fmt.Errorf("batch: output shape %v incompatible with batch size %d", out.Shape(), count)
	}
	outRowSize := out.Shape()[1]
	rows := make([]tensor.Tensor, count)
	data := out.Data()
	for i := range rows {
		row, err := tensor.FromSlice(tensor.NewShape(outRowSize), data[i*outRowSize:(i+1)*outRowSize])
		if err != nil {
			return nil, err
		}
		rows[i] = row.Clone()
	}
	return rows, nil
}
