package script

import (
	lua "github.com/yuin/gopher-lua"
)

// removedGlobals are base library functions a snippet must not reach.
var removedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"collectgarbage",
	"getfenv",
	"setfenv",
	"newproxy",
	"_printregs",
}

// installSandbox strips the base library and redirects print.
func installSandbox(L *lua.LState, print lua.LGFunction) {
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if print != nil {
		L.SetGlobal("print", L.NewFunction(print))
	}
}
