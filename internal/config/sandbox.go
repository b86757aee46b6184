package config

import (
	lua "github.com/yuin/gopher-lua"
)

// VM limits for config evaluation.
const (
	callStackSize = 256
	registrySize  = 1024 * 8
)

// blockedGlobals are removed from every config VM. The os and io libraries
// reach the host, the loaders pull in external code, and the raw and
// metatable functions can bypass the read-only platform table.
var blockedGlobals = []string{
	"os",
	"io",
	"debug",
	"require",
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"rawset",
	"rawget",
	"setmetatable",
	"getmetatable",
	"collectgarbage",
}

// sandboxLuaVM removes everything a declarative config has no business
// calling. string, table, math and the basic functions stay available.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a Lua state with limits and the sandbox applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{
		CallStackSize: callStackSize,
		RegistrySize:  registrySize,
	})
	sandboxLuaVM(L)
	return L
}
