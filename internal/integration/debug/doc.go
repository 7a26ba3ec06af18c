// Package debug executes scriptpoints for one proxied debug session.
//
// A Tracker observes the DAP traffic the proxy forwards:
//
//   - outgoing setBreakpoints requests are rewritten: log messages tagged
//     with "!" are removed and registered as scriptpoints
//   - setBreakpoints responses and breakpoint events bind the scriptpoints
//     to the descriptors the adapter assigned
//   - step requests mark the next stop as step induced
//   - stopped events are queued to a single worker per session
//
// For every queued stop the worker fetches the top frame, matches it
// against the registered scriptpoints, runs the matching script and
// resumes the thread when the script succeeded, the tag was a single "!",
// the stop was caused by a breakpoint and not by a step.
//
//	front-end ──▶ proxy ──▶ adapter
//	                │
//	                ▼
//	             Tracker ──▶ stop worker ──▶ script.Executor
//	                │                           │
//	                ▼                           ▼
//	      scriptpoint.Registry          evaluate / variables /
//	                                   readMemory / continue
//
// Round trips the worker issues go through the Adapter interface; their
// responses are never shown to the front-end.
package debug
