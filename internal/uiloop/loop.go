package uiloop

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Dispatcher accepts tasks for the UI goroutine.
type Dispatcher interface {
	Post(task func())
}

// Loop runs posted tasks one at a time, in post order, on a single goroutine.
// Post never blocks the caller.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
}

func New() *Loop {
	l := &Loop{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		log.Debug().Msg("ui loop stopped; task dropped")
		return
	}
	l.queue = append(l.queue, task)
	l.cond.Signal()
}

// Run drains the queue until ctx is done. Tasks still queued at that point are dropped.
func (l *Loop) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.stopped = true
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.stopped {
			l.cond.Wait()
		}
		if l.stopped {
			l.queue = nil
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.exec(task)
	}
}

func (l *Loop) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("ui task panicked")
		}
	}()
	task()
}

// Flush blocks until every task posted before the call has run, or ctx is done.
func (l *Loop) Flush(ctx context.Context) error {
	done := make(chan struct{})
	l.Post(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
