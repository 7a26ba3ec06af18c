package scriptpoint

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/go-dap"
)

// Marker starts the log message of every scriptpoint.
const Marker = "!"

// tagPattern strips one or two markers and the whitespace after them.
var tagPattern = regexp.MustCompile(`(?s)^!!?\s*(.*)$`)

// Scriptpoint is one scriptpoint as declared in a single setBreakpoints request.
type Scriptpoint struct {
	// Index is the position in the request's breakpoint array.
	Index int

	// Script is the text to execute.
	Script string

	// Stop leaves the debuggee stopped after the script ran.
	Stop bool

	// Descriptor is the adapter-assigned breakpoint, nil until the response arrives.
	Descriptor *dap.Breakpoint
}

// Source holds the scriptpoints of one source file.
type Source struct {
	// Path is the normalized source path.
	Path string

	// PendingSeq is the adapter-side seq of the setBreakpoints request
	// awaiting its response, 0 when none is outstanding.
	PendingSeq int

	// Scriptpoints are ordered by Index.
	Scriptpoints []*Scriptpoint
}

// clone returns a deep copy safe to hand out of the registry lock.
func (s *Source) clone() Source {
	c := Source{Path: s.Path, PendingSeq: s.PendingSeq}
	c.Scriptpoints = make([]*Scriptpoint, len(s.Scriptpoints))
	for i, sp := range s.Scriptpoints {
		cp := sp.clone()
		c.Scriptpoints[i] = &cp
	}
	return c
}

func (sp *Scriptpoint) clone() Scriptpoint {
	c := *sp
	if sp.Descriptor != nil {
		bp := *sp.Descriptor
		c.Descriptor = &bp
	}
	return c
}

// ParseTag extracts the script and stop flag from a breakpoint log message.
func ParseTag(logMessage string) (script string, stop bool, err error) {
	if !strings.HasPrefix(logMessage, Marker) {
		return "", false, ErrNotScriptpoint
	}
	m := tagPattern.FindStringSubmatch(logMessage)
	if m == nil {
		return "", false, ErrMalformedTag
	}
	script = strings.TrimSpace(m[1])
	if script == "" {
		return "", false, ErrMalformedTag
	}
	return script, strings.HasPrefix(logMessage, Marker+Marker), nil
}

// NormalizePath returns the registry key for a source path. Case is kept
// because source paths are case-sensitive on most file systems.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// Matches reports whether a bound descriptor identifies the position of a
// stack frame. ownerPath is the path of the source the descriptor belongs
// to; it stands in for a descriptor that reports no path of its own.
func Matches(bp *dap.Breakpoint, ownerPath string, frame *dap.StackFrame) bool {
	if bp == nil || frame == nil {
		return false
	}
	if bp.InstructionReference != "" {
		return bp.InstructionReference == frame.InstructionPointerReference
	}

	bpPath := ownerPath
	if bp.Source != nil && bp.Source.Path != "" {
		bpPath = NormalizePath(bp.Source.Path)
	}
	var framePath string
	if frame.Source != nil {
		framePath = NormalizePath(frame.Source.Path)
	}

	return bpPath == framePath &&
		bp.Line == frame.Line &&
		bp.EndLine == frame.EndLine &&
		bp.Column == frame.Column &&
		bp.EndColumn == frame.EndColumn
}
