package scriptpoint

import (
	"sync"

	"github.com/google/go-dap"
	"go.uber.org/zap"

	"github.com/dshills/scriptpoint/internal/notify"
)

// Breakpoint event reasons.
const (
	ReasonChanged = "changed"
	ReasonNew     = "new"
	ReasonRemoved = "removed"
)

// Registry is the scriptpoint state of one debug session.
type Registry struct {
	mu sync.RWMutex

	// bySourcePath maps normalized paths, and case variants learnt from
	// breakpoint events, to their source.
	bySourcePath map[string]*Source

	// byBreakpointID maps adapter-assigned ids to the owning source.
	byBreakpointID map[int]*Source

	notifier *notify.Notifier
	logger   *zap.SugaredLogger
}

// Match is the result of a successful Registry.Match.
type Match struct {
	// Path is the owning source's path.
	Path string

	// Scriptpoint is a copy of the matched scriptpoint.
	Scriptpoint Scriptpoint
}

// NewRegistry creates an empty registry. notifier may be nil.
func NewRegistry(logger *zap.SugaredLogger, notifier *notify.Notifier) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Registry{
		bySourcePath:   make(map[string]*Source),
		byBreakpointID: make(map[int]*Source),
		notifier:       notifier,
		logger:         logger,
	}
}

// Rewrite registers the scriptpoints of an outgoing setBreakpoints request
// sent to the adapter with sequence number seq. It returns the indices of
// the breakpoints whose log message must be removed before forwarding.
//
// The source's previous scriptpoints are discarded even when the request
// declares none, since the request replaces every breakpoint in the file.
func (r *Registry) Rewrite(seq int, args *dap.SetBreakpointsArguments) ([]int, error) {
	path := NormalizePath(args.Source.Path)
	if path == "" {
		return nil, ErrNoSourcePath
	}

	var strip []int
	var scriptpoints []*Scriptpoint
	for i, bp := range args.Breakpoints {
		if bp.LogMessage == "" {
			continue
		}
		script, stop, err := ParseTag(bp.LogMessage)
		if err == ErrNotScriptpoint {
			continue
		}
		if err != nil {
			r.logger.Warnw("ignoring malformed scriptpoint",
				"path", path, "line", bp.Line, "logMessage", bp.LogMessage, "error", err)
			continue
		}
		scriptpoints = append(scriptpoints, &Scriptpoint{Index: i, Script: script, Stop: stop})
		strip = append(strip, i)
	}

	batch := r.notifier.NewBatch()

	r.mu.Lock()
	src, ok := r.bySourcePath[path]
	if !ok || src.Path != path {
		src = &Source{Path: path}
		r.bySourcePath[path] = src
	}
	r.forgetLocked(src)
	src.PendingSeq = seq
	src.Scriptpoints = scriptpoints
	r.mu.Unlock()

	batch.Add(notify.Change{Path: path, Type: notify.ChangeReplaced, Index: -1})
	batch.Commit()

	r.logger.Debugw("registered scriptpoints", "path", path, "seq", seq, "count", len(scriptpoints))
	return strip, nil
}

// forgetLocked drops the id backmap entries and path aliases pointing at src.
func (r *Registry) forgetLocked(src *Source) {
	for id, owner := range r.byBreakpointID {
		if owner == src {
			delete(r.byBreakpointID, id)
		}
	}
	for path, owner := range r.bySourcePath {
		if owner == src && path != src.Path {
			delete(r.bySourcePath, path)
		}
	}
}

// Pending reports whether a setBreakpoints response to requestSeq is awaited.
func (r *Registry) Pending(requestSeq int) bool {
	if requestSeq <= 0 {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for path, src := range r.bySourcePath {
		if path == src.Path && src.PendingSeq == requestSeq {
			return true
		}
	}
	return false
}

// Bind correlates a setBreakpoints response with the sources awaiting it.
// The response's descriptors are bound to scriptpoints by index. A failed
// response consumes the pending request and binds nothing. Bind returns the
// number of scriptpoints bound.
func (r *Registry) Bind(requestSeq int, success bool, body *dap.SetBreakpointsResponseBody) int {
	if requestSeq <= 0 {
		return 0
	}
	batch := r.notifier.NewBatch()
	bound := 0

	r.mu.Lock()
	for path, src := range r.bySourcePath {
		if path != src.Path || src.PendingSeq != requestSeq {
			continue
		}
		src.PendingSeq = 0
		if !success || body == nil {
			r.logger.Debugw("setBreakpoints failed, scriptpoints left unbound", "path", path, "seq", requestSeq)
			continue
		}
		for _, sp := range src.Scriptpoints {
			if sp.Index >= len(body.Breakpoints) {
				r.logger.Warnw("response has no descriptor for scriptpoint",
					"path", path, "index", sp.Index, "descriptors", len(body.Breakpoints))
				continue
			}
			bp := body.Breakpoints[sp.Index]
			sp.Descriptor = &bp
			if bp.Id != 0 {
				r.byBreakpointID[bp.Id] = src
			}
			bound++
			batch.Add(notify.Change{Path: path, Type: notify.ChangeBound, Index: sp.Index, Script: sp.Script, Breakpoint: copyBreakpoint(&bp)})
		}
	}
	r.mu.Unlock()

	batch.Commit()
	return bound
}

// Update applies a breakpoint event. The owning source is found by the
// breakpoint id, falling back to the breakpoint's path. It reports whether a
// scriptpoint was affected.
func (r *Registry) Update(reason string, bp dap.Breakpoint) bool {
	if bp.Id == 0 {
		return false
	}
	var eventPath string
	if bp.Source != nil {
		eventPath = NormalizePath(bp.Source.Path)
	}

	batch := r.notifier.NewBatch()

	r.mu.Lock()
	src, ok := r.byBreakpointID[bp.Id]
	if !ok && eventPath != "" {
		src, ok = r.bySourcePath[eventPath]
	}
	if !ok {
		r.mu.Unlock()
		return false
	}

	var target *Scriptpoint
	for _, sp := range src.Scriptpoints {
		if sp.Descriptor != nil && sp.Descriptor.Id == bp.Id {
			target = sp
			break
		}
	}
	if target == nil {
		r.mu.Unlock()
		return false
	}

	change := notify.Change{Path: src.Path, Index: target.Index, Script: target.Script}
	if reason == ReasonRemoved {
		delete(r.byBreakpointID, bp.Id)
		target.Descriptor = nil
		change.Type = notify.ChangeRemoved
		change.Breakpoint = copyBreakpoint(&bp)
	} else {
		updated := bp
		target.Descriptor = &updated
		r.byBreakpointID[bp.Id] = src
		if eventPath != "" && eventPath != src.Path {
			if _, taken := r.bySourcePath[eventPath]; !taken {
				r.bySourcePath[eventPath] = src
			}
		}
		change.Type = notify.ChangeUpdated
		change.Breakpoint = copyBreakpoint(&bp)
	}
	r.mu.Unlock()

	batch.Add(change)
	batch.Commit()
	return true
}

// Match returns the first scriptpoint of the frame's source whose descriptor
// matches the frame. The source is looked up by the frame's path and, when
// that fails, by the breakpoint ids the stopped event reported as hit.
func (r *Registry) Match(frame *dap.StackFrame, hitBreakpointIDs []int) (Match, bool) {
	if frame == nil || frame.Source == nil || frame.Source.Path == "" {
		return Match{}, false
	}
	path := NormalizePath(frame.Source.Path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.bySourcePath[path]
	if !ok {
		for _, id := range hitBreakpointIDs {
			if src, ok = r.byBreakpointID[id]; ok {
				break
			}
		}
	}
	if !ok {
		return Match{}, false
	}

	for _, sp := range src.Scriptpoints {
		if Matches(sp.Descriptor, src.Path, frame) {
			return Match{Path: src.Path, Scriptpoint: sp.clone()}, true
		}
	}
	return Match{}, false
}

// Lookup returns a copy of the source registered for path.
func (r *Registry) Lookup(path string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.bySourcePath[NormalizePath(path)]
	if !ok {
		return Source{}, false
	}
	return src.clone(), true
}

// Len returns the number of source files with registered scriptpoint state.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for path, src := range r.bySourcePath {
		if path == src.Path {
			n++
		}
	}
	return n
}

func copyBreakpoint(bp *dap.Breakpoint) *dap.Breakpoint {
	c := *bp
	return &c
}
