package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable installs info as the read-only global "platform".
//
// Fields: os, arch, libc, distro, triple, library_prefix, library_suffix,
// is_linux, is_macos, is_windows, and when(cond, value), which yields value
// when cond is true and nil otherwise.
func InjectPlatformTable(L *lua.LState, info *Info) error {
	fields := L.NewTable()

	fields.RawSetString("os", lua.LString(info.OS))
	fields.RawSetString("arch", lua.LString(info.Arch))
	fields.RawSetString("library_prefix", lua.LString(info.LibraryPrefix()))
	fields.RawSetString("library_suffix", lua.LString(info.LibrarySuffix()))

	// Unknown values stay nil.
	optional := map[string]string{"libc": info.Libc, "distro": info.Distro}
	if triple, err := info.Triple(); err == nil {
		optional["triple"] = triple
	}
	for k, v := range optional {
		if v != "" {
			fields.RawSetString(k, lua.LString(v))
		}
	}

	fields.RawSetString("is_linux", lua.LBool(info.IsLinux()))
	fields.RawSetString("is_macos", lua.LBool(info.IsMacOS()))
	fields.RawSetString("is_windows", lua.LBool(info.IsWindows()))
	fields.RawSetString("when", L.NewFunction(luaWhen))

	L.SetGlobal("platform", readOnly(L, "platform", fields))
	return nil
}

func luaWhen(L *lua.LState) int {
	if L.CheckBool(1) {
		L.Push(L.Get(2))
	} else {
		L.Push(lua.LNil)
	}
	return 1
}

// readOnly wraps fields in an empty proxy whose metatable forwards reads and
// raises on writes. The metatable itself is hidden.
func readOnly(L *lua.LState, name string, fields *lua.LTable) *lua.LTable {
	meta := L.NewTable()
	meta.RawSetString("__index", fields)
	meta.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("%s is read-only", name)
		return 0
	}))
	meta.RawSetString("__metatable", lua.LString("locked"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, meta)
	return proxy
}
