package threadpool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsAndReturnsResult(t *testing.T) {
	p := New(2)
	defer p.Stop()

	f := p.Submit(func() (any, error) { return 42, nil })
	result, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestSubmitPropagatesError(t *testing.T) {
	p := New(2)
	defer p.Stop()

	wantErr := errors.New("boom")
	f := p.Submit(func() (any, error) { return nil, wantErr })
	_, err := f.Wait()
	assert.Equal(t, wantErr, err)
}

func TestManyTasksAllComplete(t *testing.T) {
	p := New(4)
	defer p.Stop()

	futures := make([]*Future, 50)
	for i := range futures {
		i := i
		futures[i] = p.Submit(func() (any, error) { return i * i, nil })
	}
	for i, f := range futures {
		result, err := f.Wait()
		require.NoError(t, err)
		assert.Equal(t, i*i, result)
	}
}

func TestStopWaitsForPendingTasks(t *testing.T) {
	p := New(1)
	f := p.Submit(func() (any, error) { return "done", nil })
	p.Stop()
	result, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}
