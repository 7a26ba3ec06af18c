package scriptpoint

// ReasonBreakpoint is the stopped-event reason for which auto-continue applies.
const ReasonBreakpoint = "breakpoint"

// Outcome describes a finished scriptpoint execution.
type Outcome struct {
	// Succeeded is the executor's result.
	Succeeded bool

	// Stop is the matched scriptpoint's stop flag.
	Stop bool

	// Stepped is set when the stop was caused by a step request.
	Stepped bool

	// Reason is the stopped event's reason.
	Reason string
}

// ShouldContinue reports whether execution resumes after a scriptpoint ran.
// Failed scripts, "!!" tags, steps that land on a scriptpoint and stops that
// were not caused by a breakpoint all leave the debuggee stopped.
func ShouldContinue(o Outcome) bool {
	return o.Succeeded && !o.Stop && !o.Stepped && o.Reason == ReasonBreakpoint
}
