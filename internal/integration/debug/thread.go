package debug

import "sync"

// ThreadState is the scriptpoint state of one debuggee thread.
type ThreadState int

const (
	// ThreadRunning is the state of a thread not known to be stopped.
	ThreadRunning ThreadState = iota
	// ThreadStopped is after a stopped event, or after a script that left the thread stopped.
	ThreadStopped
	// ThreadExecuting is while a scriptpoint script runs for the thread.
	ThreadExecuting
)

// String returns a string representation of the state.
func (s ThreadState) String() string {
	switch s {
	case ThreadRunning:
		return "running"
	case ThreadStopped:
		return "stopped"
	case ThreadExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// threadTable tracks thread states. Threads never seen are running.
type threadTable struct {
	mu     sync.RWMutex
	states map[int]ThreadState
}

func newThreadTable() *threadTable {
	return &threadTable{states: make(map[int]ThreadState)}
}

func (t *threadTable) get(id int) ThreadState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[id]
}

func (t *threadTable) set(id int, state ThreadState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state == ThreadRunning {
		delete(t.states, id)
		return
	}
	t.states[id] = state
}

// setAll moves every tracked thread to state, and id as well when it is not tracked.
func (t *threadTable) setAll(id int, state ThreadState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state == ThreadRunning {
		t.states = make(map[int]ThreadState)
		return
	}
	for tid := range t.states {
		t.states[tid] = state
	}
	t.states[id] = state
}

func (t *threadTable) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[int]ThreadState)
}
