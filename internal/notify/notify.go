// Package notify delivers scriptpoint breakpoint change notifications.
//
// The scriptpoint registry publishes a Change whenever an adapter-assigned
// breakpoint descriptor is bound, updated or removed, and whenever a source
// file's scriptpoints are replaced by a new setBreakpoints request.
// Observers subscribe to every change or to the changes of one source path.
package notify

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/go-dap"
)

// ChangeType represents the type of breakpoint change.
type ChangeType int

const (
	// ChangeReplaced indicates a source's scriptpoints were replaced by a new request.
	ChangeReplaced ChangeType = iota

	// ChangeBound indicates a setBreakpoints response bound a descriptor.
	ChangeBound

	// ChangeUpdated indicates a breakpoint event replaced a descriptor.
	ChangeUpdated

	// ChangeRemoved indicates the adapter removed a breakpoint.
	ChangeRemoved
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeReplaced:
		return "replaced"
	case ChangeBound:
		return "bound"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change represents one breakpoint change.
type Change struct {
	// Path is the normalized source path owning the scriptpoint.
	Path string

	// Type is the type of change.
	Type ChangeType

	// Index is the scriptpoint's position in its setBreakpoints request.
	// It is -1 for ChangeReplaced.
	Index int

	// Script is the scriptpoint's script text.
	Script string

	// Breakpoint is the adapter descriptor after the change (nil for
	// ChangeReplaced).
	Breakpoint *dap.Breakpoint
}

// Observer is called when a change occurs.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type subscriber struct {
	id       uint64
	observer Observer
	// scope is empty for subscribers of every change.
	scope string
}

func (s subscriber) wants(path string) bool {
	return s.scope == "" || s.scope == path || isParentDir(s.scope, path)
}

// Notifier fans changes out to subscribers in subscription order.
type Notifier struct {
	mu          sync.RWMutex
	subscribers []subscriber
	nextID      uint64
	closed      bool

	queue chan Change
	done  chan struct{}
	wg    sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync delivers changes from a goroutine through a queue of bufferSize
// changes. Notify blocks while the queue is full.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.queue = make(chan Change, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{done: make(chan struct{})}
	for _, opt := range opts {
		opt(n)
	}
	if n.queue != nil {
		n.wg.Add(1)
		go n.drain()
	}
	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.add(observer, "")
}

// SubscribePath registers an observer for changes of one source file, or of
// every file below a directory.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	return n.add(observer, filepath.Clean(path))
}

func (n *Notifier) add(observer Observer, scope string) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.subscribers = append(n.subscribers, subscriber{id: n.nextID, observer: observer, scope: scope})
	return &Subscription{id: n.nextID, notifier: n}
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.subscribers = slices.DeleteFunc(n.subscribers, func(s subscriber) bool {
		return s.id == id
	})
}

// Notify sends a change to every interested observer. Changes sent after
// Close are dropped.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return
	}

	if n.queue == nil {
		n.deliver(change)
		return
	}
	select {
	case n.queue <- change:
	case <-n.done:
	}
}

// Close shuts down the notifier, delivering queued changes first. It is
// safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

// deliver calls observers outside the lock so they may subscribe or
// unsubscribe.
func (n *Notifier) deliver(change Change) {
	n.mu.RLock()
	var observers []Observer
	for _, s := range n.subscribers {
		if s.wants(change.Path) {
			observers = append(observers, s.observer)
		}
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) drain() {
	defer n.wg.Done()
	for {
		select {
		case change := <-n.queue:
			n.deliver(change)
		case <-n.done:
			for len(n.queue) > 0 {
				n.deliver(<-n.queue)
			}
			return
		}
	}
}

// isParentDir reports whether dir is a directory above path.
func isParentDir(dir, path string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Batch collects changes and delivers them together, letting a caller
// gather changes while it holds its own lock and publish them after.
type Batch struct {
	notifier *Notifier
	changes  []Change
}

// NewBatch creates a new batch for collecting changes.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add adds a change to the batch.
func (b *Batch) Add(change Change) {
	b.changes = append(b.changes, change)
}

// Len returns the number of pending changes.
func (b *Batch) Len() int {
	return len(b.changes)
}

// Commit sends all batched changes to observers in the order they were added.
func (b *Batch) Commit() {
	changes := b.changes
	b.changes = nil
	if b.notifier == nil {
		return
	}
	for _, change := range changes {
		b.notifier.Notify(change)
	}
}
