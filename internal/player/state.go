package player

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle state of a voice connection as reported by the transport.
type State int

const (
	StateIdle State = iota
	StateSignalling
	StateConnecting
	StateReady
	StateDisconnected
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSignalling:
		return "signalling"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateTracker holds the current state of one connection handle and fans
// transitions out to listeners and waiters. Transports embed it in their
// handle types. StateDestroyed is terminal: no transition leaves it.
type StateTracker struct {
	mu        sync.Mutex
	state     State
	nextID    int
	listeners []stateListener
	waiters   []*stateWaiter
}

type stateListener struct {
	id int
	fn func(old, next State)
}

type stateWaiter struct {
	want State
	done chan struct{}
}

// NewStateTracker returns a tracker starting in the given state.
func NewStateTracker(initial State) *StateTracker {
	return &StateTracker{state: initial}
}

// State returns the current state.
func (t *StateTracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// OnStateChange registers fn for every future transition. The returned
// func removes the listener.
func (t *StateTracker) OnStateChange(fn func(old, next State)) (remove func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.listeners = append(t.listeners, stateListener{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, l := range t.listeners {
			if l.id == id {
				t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
				return
			}
		}
	}
}

// Transition moves the tracker to next and notifies waiters and listeners.
// It reports false when nothing changed: next equals the current state or
// the tracker is already destroyed. Listeners run on the caller's goroutine.
func (t *StateTracker) Transition(next State) bool {
	t.mu.Lock()
	if t.state == next || t.state == StateDestroyed {
		t.mu.Unlock()
		return false
	}
	old := t.state
	t.state = next

	kept := t.waiters[:0]
	for _, w := range t.waiters {
		if w.want == next {
			close(w.done)
			continue
		}
		kept = append(kept, w)
	}
	t.waiters = kept

	listeners := make([]stateListener, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	for _, l := range listeners {
		l.fn(old, next)
	}
	return true
}

// AwaitState blocks until the tracker is in want, the timeout elapses, or
// ctx is done. Being in want already counts as success.
func (t *StateTracker) AwaitState(ctx context.Context, want State, timeout time.Duration) error {
	t.mu.Lock()
	if t.state == want {
		t.mu.Unlock()
		return nil
	}
	w := &stateWaiter{want: want, done: make(chan struct{})}
	t.waiters = append(t.waiters, w)
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		return nil
	case <-timer.C:
		t.dropWaiter(w)
		return fmt.Errorf("%w: %s after %s", ErrStateTimeout, want, timeout)
	case <-ctx.Done():
		t.dropWaiter(w)
		return ctx.Err()
	}
}

func (t *StateTracker) dropWaiter(w *stateWaiter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, cur := range t.waiters {
		if cur == w {
			t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
			return
		}
	}
}
