package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// doubleAll doubles every element, used as a stand-in batched predict.
func doubleAll(in tensor.Tensor) (tensor.Tensor, error) {
	out := tensor.MustNew(in.Shape())
	for i, v := range in.Data() {
		out.Data()[i] = v * 2
	}
	return out, nil
}

func row(t *testing.T, v float32) tensor.Tensor {
	t.Helper()
	ten, err := tensor.FromSlice(tensor.NewShape(1), []float32{v})
	require.NoError(t, err)
	return ten
}

func TestConcurrentRequestsCoalesceIntoOneBatch(t *testing.T) {
	var calls int
	var mu sync.Mutex
	predict := func(in tensor.Tensor) (tensor.Tensor, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return doubleAll(in)
	}

	b := New(Config{MaxBatchSize: 4, MaxWait: 50 * time.Millisecond}, predict)
	defer b.Stop()

	var wg sync.WaitGroup
	results := make([]float32, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := b.Predict(context.Background(), row(t, float32(i)))
			require.NoError(t, err)
			results[i] = out.Data()[0]
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		assert.Equal(t, float32(i*2), r)
	}
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestTimeoutFlushesPartialBatch(t *testing.T) {
	b := New(Config{MaxBatchSize: 10, MaxWait: 10 * time.Millisecond}, doubleAll)
	defer b.Stop()

	out, err := b.Predict(context.Background(), row(t, 3))
	require.NoError(t, err)
	assert.Equal(t, float32(6), out.Data()[0])
}

func TestErrorBroadcastToAllWaitersInFailedBatch(t *testing.T) {
	wantErr := fmt.Errorf("boom")
	predict := func(in tensor.Tensor) (tensor.Tensor, error) {
		return tensor.Tensor{}, wantErr
	}
	b := New(Config{MaxBatchSize: 3, MaxWait: 50 * time.Millisecond}, predict)
	defer b.Stop()

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := b.Predict(context.Background(), row(t, float32(i)))
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		assert.ErrorIs(t, err, wantErr)
	}
}

func TestStopDrainsPendingAndRejectsNew(t *testing.T) {
	b := New(Config{MaxBatchSize: 1, MaxWait: time.Second}, doubleAll)

	out, err := b.Predict(context.Background(), row(t, 5))
	require.NoError(t, err)
	assert.Equal(t, float32(10), out.Data()[0])

	b.Stop()

	_, err = b.Predict(context.Background(), row(t, 1))
	require.Error(t, err)
}
