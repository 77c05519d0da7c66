package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/crate/internal/domain"
)

func collect[T any](t *testing.T, ch <-chan domain.Resource[T]) []domain.Resource[T] {
	t.Helper()
	var out []domain.Resource[T]
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, r)
		case <-timeout:
			t.Fatal("stream did not close")
			return out
		}
	}
}

func TestStream_LoadingThenSuccess(t *testing.T) {
	p := NewPool(2, 2, nil)
	defer p.Close()

	ch := Stream(context.Background(), p, "test", func(ctx context.Context, emit *Emitter[int]) {
		emit.Success(42)
	})

	first := <-ch
	assert.IsType(t, domain.Loading[int]{}, first)

	rest := collect(t, ch)
	require.Len(t, rest, 1)
	assert.Equal(t, domain.Success[int]{Data: 42}, rest[0])
}

func TestStream_Failure(t *testing.T) {
	p := NewPool(1, 0, nil)
	defer p.Close()

	states := collect(t, Stream(context.Background(), p, "test", func(ctx context.Context, emit *Emitter[string]) {
		emit.Fail(domain.ErrNoData)
	}))

	require.Len(t, states, 2)
	f, ok := states[1].(domain.Failure[string])
	require.True(t, ok)
	assert.ErrorIs(t, f.Err, domain.ErrNoData)
}

func TestPool_RejectsWhenSaturated(t *testing.T) {
	p := NewPool(1, 0, nil)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), Job{Name: "blocker", Run: func(ctx context.Context) {
		close(started)
		<-release
	}}))
	<-started

	err := p.Submit(context.Background(), Job{Name: "extra", Run: func(context.Context) {}})
	assert.ErrorIs(t, err, ErrSaturated)

	states := collect(t, Stream(context.Background(), p, "extra", func(ctx context.Context, emit *Emitter[int]) {
		emit.Success(1)
	}))
	require.Len(t, states, 2)
	f, ok := states[1].(domain.Failure[int])
	require.True(t, ok)
	assert.ErrorIs(t, f.Err, ErrSaturated)

	close(release)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 2
	p := NewPool(size, 8, nil)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), Job{Name: "work", Run: func(context.Context) {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}}))
	}
	wg.Wait()
	p.Close()

	assert.LessOrEqual(t, peak.Load(), int32(size))
}

func TestPool_CloseCancelsRunning(t *testing.T) {
	p := NewPool(1, 0, nil)

	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, p.Submit(context.Background(), Job{Name: "long", Run: func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	}}))
	<-started

	p.Close()
	assert.True(t, cancelled.Load())
	assert.ErrorIs(t, p.Submit(context.Background(), Job{Run: func(context.Context) {}}), ErrClosed)
}

func TestLatest_DiscardsSuperseded(t *testing.T) {
	p := NewPool(2, 2, nil)
	defer p.Close()
	var lane Lane

	firstStarted := make(chan struct{})
	var firstCtxErr atomic.Value
	first := Latest(context.Background(), p, &lane, "search", func(ctx context.Context, emit *Emitter[string]) {
		close(firstStarted)
		<-ctx.Done()
		firstCtxErr.Store(ctx.Err())
		emit.Success("stale")
	})
	<-firstStarted

	second := Latest(context.Background(), p, &lane, "search", func(ctx context.Context, emit *Emitter[string]) {
		emit.Success("fresh")
	})

	firstStates := collect(t, first)
	require.Len(t, firstStates, 1)
	assert.IsType(t, domain.Loading[string]{}, firstStates[0])
	assert.True(t, errors.Is(firstCtxErr.Load().(error), context.Canceled))

	secondStates := collect(t, second)
	require.Len(t, secondStates, 2)
	assert.Equal(t, domain.Success[string]{Data: "fresh"}, secondStates[1])
	assert.Equal(t, uint64(2), lane.Generation())
}

func TestLane_Tickets(t *testing.T) {
	var lane Lane

	ctx1, t1 := lane.Begin(context.Background())
	assert.True(t, t1.Current())

	_, t2 := lane.Begin(context.Background())
	assert.False(t, t1.Current())
	assert.True(t, t2.Current())
	assert.Error(t, ctx1.Err())

	t2.Done()
	assert.True(t, t2.Current())
}
