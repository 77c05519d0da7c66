package task

import (
	"context"
	"sync"

	"github.com/mmcdole/crate/internal/domain"
)

// streamBuffer holds Loading plus the most states any request sends
// (cached Success, refreshed Success), so workers never block on a slow reader.
const streamBuffer = 4

// Emitter sends states of one request. Sends from a superseded or cancelled
// request are discarded.
type Emitter[T any] struct {
	ch   chan domain.Resource[T]
	ctx  context.Context
	live func() bool
}

// Success sends data and reports whether it was delivered.
func (e *Emitter[T]) Success(data T) bool {
	return e.send(domain.Success[T]{Data: data})
}

// Fail sends a Failure built from err and reports whether it was delivered.
func (e *Emitter[T]) Fail(err error) bool {
	return e.send(domain.Fail[T](err))
}

func (e *Emitter[T]) send(r domain.Resource[T]) bool {
	if e.ctx.Err() != nil || (e.live != nil && !e.live()) {
		return false
	}
	select {
	case e.ch <- r:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// Work produces the states of a request after Loading.
type Work[T any] func(ctx context.Context, emit *Emitter[T])

// Stream starts a request on p. The returned channel already holds Loading;
// it is closed once work returns.
func Stream[T any](ctx context.Context, p *Pool, name string, work Work[T]) <-chan domain.Resource[T] {
	return start(ctx, p, name, nil, nil, work)
}

// Latest is Stream bound to a lane: it supersedes the lane's previous request,
// whose context is cancelled and whose channel closes without further states.
func Latest[T any](ctx context.Context, p *Pool, lane *Lane, name string, work Work[T]) <-chan domain.Resource[T] {
	ctx, ticket := lane.Begin(ctx)
	return start(ctx, p, name, ticket.Current, ticket.Done, work)
}

func start[T any](ctx context.Context, p *Pool, name string, live func() bool, done func(), work Work[T]) <-chan domain.Resource[T] {
	ch := make(chan domain.Resource[T], streamBuffer)
	ch <- domain.Loading[T]{}

	emit := &Emitter[T]{ch: ch, ctx: ctx, live: live}
	var once sync.Once
	finish := func() {
		once.Do(func() {
			if done != nil {
				done()
			}
			close(ch)
		})
	}

	err := p.Submit(ctx, Job{
		Name: name,
		Run: func(jobCtx context.Context) {
			defer finish()
			emit.ctx = jobCtx
			work(jobCtx, emit)
		},
		Abort: func(err error) {
			defer finish()
			emit.Fail(err)
		},
	})
	if err != nil {
		ch <- domain.Fail[T](err)
		finish()
	}
	return ch
}
