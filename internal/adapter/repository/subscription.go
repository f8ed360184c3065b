package repository

import (
	"context"
	"runtime/debug"
	"sync"

	"petadopt/pkg/logger"
)

// listener queues snapshots for one subscriber and hands them to fn in order
// on its own goroutine, so a slow or failing callback never blocks writers or
// other subscribers.
type listener[T any] struct {
	name   string
	fn     func(T)
	mu     sync.Mutex
	queue  []T
	closed bool
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
	onStop func()
}

func newListener[T any](name string, fn func(T), onStop func()) *listener[T] {
	l := &listener[T]{
		name:   name,
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		onStop: onStop,
	}
	go l.run()
	return l
}

// watch ties the listener's lifetime to ctx. Call it once the listener is registered.
func (l *listener[T]) watch(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			l.Unsubscribe()
		case <-l.done:
		}
	}()
}

func (l *listener[T]) push(v T) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, v)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *listener[T]) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.signal:
		}
		for {
			l.mu.Lock()
			if l.closed || len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			v := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()

			safeCall(l.name, func() { l.fn(v) })
		}
	}
}

func (l *listener[T]) Unsubscribe() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
		if l.onStop != nil {
			l.onStop()
		}
	})
}

// cancelSubscription stops a store-driven listener by cancelling its context.
type cancelSubscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *cancelSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// safeCall runs a subscriber callback, logging instead of propagating a panic.
func safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Subscription %s: callback panicked: %v\n%s", name, r, debug.Stack())
		}
	}()
	fn()
}
