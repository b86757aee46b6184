package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/maaup/internal/platform"
)

// luaGlobal is the table a Lua config file must define.
const luaGlobal = "maa"

// maxTableDepth bounds recursion when converting nested tables.
const maxTableDepth = 32

// ParseError is a config file that could not be evaluated or decoded.
type ParseError struct {
	Message string // what went wrong, for the user
	Detail  string // raw decoder or Lua error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// FormatError renders err for display. A wrapped ParseError is rendered in
// place; without verbose, Lua stack traces are dropped.
func FormatError(err error, verbose bool) string {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return err.Error()
	}
	var formatted string
	if verbose {
		formatted = fmt.Sprintf("%s\n\nDetails:\n%s", pe.Message, pe.Detail)
	} else {
		detail := pe.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		formatted = fmt.Sprintf("%s: %s", pe.Message, detail)
	}
	return strings.Replace(err.Error(), pe.Error(), formatted, 1)
}

// parseLua evaluates a Lua config in the sandbox and returns the global
// maa table as a map. When detector is set, the read-only platform table
// is injected first so configs can branch on the host.
func parseLua(ctx context.Context, code string, detector platform.Detector) (map[string]any, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if detector != nil {
		info, err := detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(code); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("evaluate config: %w", ctx.Err())
		}
		return nil, &ParseError{Message: "Lua error", Detail: err.Error()}
	}

	global := L.GetGlobal(luaGlobal)
	table, ok := global.(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("missing or invalid '%s' table", luaGlobal),
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}

	v, err := fromLua(table, 0)
	if err != nil {
		return nil, &ParseError{Message: "unsupported config value", Detail: err.Error()}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("invalid '%s' table", luaGlobal),
			Detail:  "expected a table with named fields, got a list",
		}
	}
	return m, nil
}

// fromLua converts a Lua value to plain Go values. Tables with only
// positive integer keys become slices; other tables become maps keyed by
// string. Functions and userdata are rejected.
func fromLua(v lua.LValue, depth int) (any, error) {
	if depth > maxTableDepth {
		return nil, fmt.Errorf("tables nested deeper than %d levels", maxTableDepth)
	}

	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LString:
		return string(v), nil
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case *lua.LTable:
		return tableFromLua(v, depth)
	default:
		return nil, fmt.Errorf("cannot use %s in config", v.Type())
	}
}

func tableFromLua(t *lua.LTable, depth int) (any, error) {
	if n := t.MaxN(); n > 0 && isList(t, n) {
		list := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			item, err := fromLua(t.RawGetInt(i), depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			// Platform conditionals yield nil for skipped entries.
			if item != nil {
				list = append(list, item)
			}
		}
		return list, nil
	}

	m := make(map[string]any)
	var convErr error
	t.ForEach(func(key, value lua.LValue) {
		if convErr != nil {
			return
		}
		k, ok := key.(lua.LString)
		if !ok {
			convErr = fmt.Errorf("table key %s is not a string", key.String())
			return
		}
		item, err := fromLua(value, depth+1)
		if err != nil {
			convErr = fmt.Errorf("%s: %w", k, err)
			return
		}
		if item != nil {
			m[string(k)] = item
		}
	})
	if convErr != nil {
		return nil, convErr
	}
	return m, nil
}

// isList reports whether every key of t is an integer in 1..n.
func isList(t *lua.LTable, n int) bool {
	list := true
	t.ForEach(func(key, _ lua.LValue) {
		num, ok := key.(lua.LNumber)
		if !ok || float64(num) != math.Trunc(float64(num)) || int(num) < 1 || int(num) > n {
			list = false
		}
	})
	return list
}
