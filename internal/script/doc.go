// Package script runs scriptpoint snippets in a restricted Lua state.
//
// Every execution gets a fresh gopher-lua state with only the base, table,
// string and math libraries opened. Functions that load code or reach
// outside the state are removed from the base library, and print writes to
// the scriptpoint log instead of the process's stdout.
//
// A snippet is compiled as the body of a chunk that receives five
// capabilities as parameters, in this order:
//
//	log(...)                 append a line to the debug console
//	command(name, ...)       dispatch a named command, fire and forget
//	evaluate(expr)           evaluate expr in the stopped frame
//	variables(expr)          evaluate expr and dump its variable tree
//	memory(expr, count)      read count bytes at the memory reference of expr
//
// Example log message of a scriptpoint using them:
//
//	!! log("len", evaluate("v.size()")) command("debug.pause")
//
// Executions are synchronous. The Host behind evaluate, variables and memory
// may block for adapter round trips; the context handed to Execute bounds
// them and the Lua code itself.
package script
