package command

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// EventScriptpointCommand is the custom event carrying unhandled commands.
const EventScriptpointCommand = "scriptpointCommand"

// Session is the debug session a command acts on.
type Session interface {
	// Post sends a request to the adapter and discards its response.
	Post(command string, arguments any) error

	// Emit sends an event to the front-end.
	Emit(event string, body any) error

	// Output appends a line to the debug console under category.
	Output(category, text string)
}

// SessionFunc returns the active session, or nil when there is none.
type SessionFunc func() Session

// Call is one command invocation.
type Call struct {
	// Name is the command name.
	Name string

	// Args are the script's arguments converted to Go values.
	Args []any

	// ThreadID is the thread whose stop ran the script.
	ThreadID int

	// FrameID is the frame the script ran against.
	FrameID int
}

// Handler executes a command against a session.
type Handler func(s Session, call Call) error

// Dispatcher dispatches commands.
type Dispatcher interface {
	Dispatch(call Call) error
}

// ForwardedCommand is the body of a scriptpointCommand event.
type ForwardedCommand struct {
	Command   string `json:"command"`
	Arguments []any  `json:"arguments"`
}

// Registry dispatches commands by exact name.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	session SessionFunc
	logger  *zap.SugaredLogger
}

var _ Dispatcher = (*Registry)(nil)

// NewRegistry creates a registry with the built-in commands registered.
func NewRegistry(session SessionFunc, logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Registry{
		handlers: make(map[string]Handler),
		session:  session,
		logger:   logger,
	}
	registerBuiltins(r)
	return r
}

// Register sets the handler for name, replacing any previous one.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Unregister removes the handler for name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// Has returns true if a handler is registered for name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// List returns the registered command names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler for call.Name against the active session, or
// forwards the call to the front-end when no handler is registered.
func (r *Registry) Dispatch(call Call) error {
	if call.Name == "" {
		return ErrInvalidName
	}
	var s Session
	if r.session != nil {
		s = r.session()
	}
	if s == nil {
		return ErrNoSession
	}

	r.mu.RLock()
	h, ok := r.handlers[call.Name]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debugw("forwarding command to front-end", "command", call.Name)
		args := call.Args
		if args == nil {
			args = []any{}
		}
		return s.Emit(EventScriptpointCommand, ForwardedCommand{Command: call.Name, Arguments: args})
	}
	return r.executeWithRecovery(h, s, call)
}

// executeWithRecovery executes a handler with panic recovery.
func (r *Registry) executeWithRecovery(h Handler, s Session, call Call) (err error) {
	defer func() {
		if p := recover(); p != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			r.logger.Errorw("command handler panic", "command", call.Name, "panic", p, "stack", string(stack[:n]))
			err = fmt.Errorf("%w: %s: %v", ErrPanic, call.Name, p)
		}
	}()
	return h(s, call)
}
