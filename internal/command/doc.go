// Package command dispatches the named commands scripts issue with
// command(name, ...).
//
// A Registry maps names to handlers. Built-in handlers act on the active
// debug session:
//
//	debug.pause [threadId]            send pause to the adapter
//	debug.continue [threadId]         send continue to the adapter
//	debug.request name [arguments]    send any request to the adapter
//	output.append text [category]     append a line to the debug console
//
// A name with no handler is forwarded to the front-end as a
// "scriptpointCommand" event carrying the name and the arguments, so an
// IDE extension can implement commands of its own.
//
// Dispatch never waits for the adapter.
package command
