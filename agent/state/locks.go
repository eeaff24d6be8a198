package state

import (
	"context"
	"sync"
)

// ThreadLocks serializes turns per thread id. Different threads never block
// each other.
type ThreadLocks struct {
	mu    sync.Mutex
	slots map[string]*threadSlot
}

type threadSlot struct {
	ch   chan struct{}
	refs int
}

func NewThreadLocks() *ThreadLocks {
	return &ThreadLocks{slots: make(map[string]*threadSlot)}
}

// Acquire blocks until threadID is free or ctx is done. The returned release
// must be called exactly once.
func (l *ThreadLocks) Acquire(ctx context.Context, threadID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[threadID]
	if !ok {
		slot = &threadSlot{ch: make(chan struct{}, 1)}
		l.slots[threadID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(threadID, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.unref(threadID, slot)
		})
	}, nil
}

func (l *ThreadLocks) unref(threadID string, slot *threadSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, threadID)
	}
}

// Len reports how many threads currently hold or await a lock.
func (l *ThreadLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
