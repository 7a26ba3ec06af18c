// Package scriptpoint tracks breakpoints whose log message carries a script.
//
// A scriptpoint is declared in a setBreakpoints request by a log message of
// the form
//
//	"!" ["!"] <whitespace>* <script text>
//
// A single "!" resumes the debuggee after the script ran; "!!" leaves it
// stopped. The Registry records the scriptpoints of every source file,
// correlates them with the breakpoint descriptors the debug adapter assigns
// in its response and in later breakpoint events, and finds the scriptpoint
// a stopped frame sits on.
//
// # Identity
//
// The adapter answers a setBreakpoints request with a descriptor array
// parallel to the request's breakpoint array, so a scriptpoint is bound by
// its index in the request. Each new request for a file replaces all of that
// file's scriptpoints; a response to a superseded request binds nothing.
// Descriptor ids are kept in a backmap because some adapters report
// breakpoint events under a path whose case differs from the request's.
//
// # Matching
//
// A descriptor carrying an instruction reference matches a frame whose
// instruction pointer reference is identical. Any other descriptor matches a
// frame with the same path, line, end line, column and end column.
package scriptpoint
