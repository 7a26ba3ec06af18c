// Package proxy relays DAP traffic between a front-end and a debug adapter
// and gives a debug.Tracker the hooks and round trips it needs.
//
// The proxy owns the sequence numbers of both connections. Requests from
// the front-end get fresh adapter-side numbers and their responses are
// mapped back; reverse requests from the adapter (runInTerminal,
// startDebugging) are mapped the same way in the other direction. Requests
// the proxy injects draw numbers from the same counter, and their responses
// never reach the front-end.
package proxy
