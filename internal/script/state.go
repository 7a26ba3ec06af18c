package script

import (
	lua "github.com/yuin/gopher-lua"
)

// DefaultCallStackSize is the Lua call stack depth of an execution's state.
const DefaultCallStackSize = 120

// newState creates a restricted Lua state for one execution.
func newState(callStackSize int, print lua.LGFunction) *lua.LState {
	if callStackSize <= 0 {
		callStackSize = DefaultCallStackSize
	}
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       callStackSize,
		IncludeGoStackTrace: false,
	})
	openSafeLibraries(L)
	installSandbox(L, print)
	return L
}

// openSafeLibraries opens only the libraries a snippet may use.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// Not opened: io, os, debug, package, coroutine, channel.
}
