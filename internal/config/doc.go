// Package config loads maaup settings.
//
// # Sources
//
// Values are merged in increasing precedence:
//   - built-in defaults (see Default)
//   - the first of maaup.lua, maaup.toml, maaup.yaml or maaup.yml found in
//     the config directory, or the file named with --config
//   - MAA_ environment variables, with dots replaced by underscores
//     (core.channel is MAA_CORE_CHANNEL)
//
// viper holds the layers; each file format is decoded to a map and merged.
//
// # Lua configs
//
// A Lua config must define a global maa table:
//
//	maa = {
//	    core = {
//	        channel = "beta",
//	        components = { resource = not platform.is_windows },
//	    },
//	}
//
// The file runs in a sandboxed gopher-lua VM. os, io, debug, the module
// loaders and the raw/metatable functions are removed; string, table and
// math remain. A read-only platform table describes the host (os, arch,
// triple, library_prefix, when, ...). Evaluation stops when the load
// context is canceled.
//
// Tables with consecutive integer keys decode as lists and nil entries are
// dropped, so platform.when(cond, value) can be used inside lists.
package config
