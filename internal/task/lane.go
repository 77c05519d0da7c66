package task

import (
	"context"
	"sync"
)

// Lane orders requests of one kind with a generation counter. Only the most
// recent request is current; beginning a new one cancels the previous.
type Lane struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Ticket identifies one request on a lane.
type Ticket struct {
	lane   *Lane
	gen    uint64
	cancel context.CancelFunc
}

// Begin starts a new generation and returns its context.
func (l *Lane) Begin(parent context.Context) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.cancel = cancel
	gen := l.gen
	l.mu.Unlock()

	return ctx, Ticket{lane: l, gen: gen, cancel: cancel}
}

// Generation returns the number of requests begun so far.
func (l *Lane) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Current reports whether no newer request has begun.
func (t Ticket) Current() bool {
	t.lane.mu.Lock()
	defer t.lane.mu.Unlock()
	return t.lane.gen == t.gen
}

// Done releases the ticket's context.
func (t Ticket) Done() {
	t.cancel()
}
