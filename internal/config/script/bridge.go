package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/confkit/internal/keymap"
)

// registerFacade injects the two names the script sees: "config", the
// façade table, and "c", the attribute-style shorthand for option
// access.
func registerFacade(L *lua.LState, api *API) {
	cfg := L.NewTable()

	L.SetField(cfg, "get", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		value, ok := api.GetOption(name)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toLValue(L, value))
		return 1
	}))

	L.SetField(cfg, "set", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		value := L.Get(2)
		api.SetOption(name, fromLValue(value))
		return 0
	}))

	L.SetField(cfg, "bind", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		command := L.CheckString(2)
		mode := L.OptString(3, keymap.DefaultMode)
		force := L.OptBool(4, false)
		api.Bind(key, command, mode, force)
		return 0
	}))

	L.SetField(cfg, "unbind", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		mode := L.OptString(2, keymap.DefaultMode)
		api.Unbind(key, mode)
		return 0
	}))

	// Plain attribute; the runner reads it back after execution.
	cfg.RawSetString("load_autoconfig", lua.LBool(api.LoadAutoconfig()))

	L.SetGlobal("config", cfg)
	L.SetGlobal("c", newOptionProxy(L, api, ""))
}

// newOptionProxy builds the attribute-style option container. Reading
// a field that names a registered option yields its value; reading
// anything else descends into a deeper proxy, so `c.tabs.show` reaches
// the "tabs.show" option. Assignment always targets the full dotted
// name, and unknown names surface through the façade's error list like
// any other bad set.
func newOptionProxy(L *lua.LState, api *API, prefix string) *lua.LTable {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}

	tbl := L.NewTable()
	mt := L.NewTable()

	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		full := join(L.CheckString(2))
		if api.knownOption(full) {
			value, ok := api.GetOption(full)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(toLValue(L, value))
			return 1
		}
		L.Push(newOptionProxy(L, api, full))
		return 1
	}))

	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		full := join(L.CheckString(2))
		api.SetOption(full, fromLValue(L.Get(3)))
		return 0
	}))

	L.SetMetatable(tbl, mt)
	return tbl
}

// toLValue converts a Go option value to its Lua representation.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []string:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, lua.LString(item))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, toLValue(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLValue(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// fromLValue converts a Lua value to the Go shape the schema layer
// validates. Integral numbers come back as int so they satisfy int
// settings.
func fromLValue(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return int(f)
		}
		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		return tableToGo(val)
	default:
		return v.String()
	}
}

// tableToGo converts a Lua table to a slice when its keys are the
// contiguous integers 1..n, and to a map otherwise.
func tableToGo(t *lua.LTable) any {
	isArray := true
	maxIdx := 0
	count := 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		num, ok := k.(lua.LNumber)
		if !ok {
			isArray = false
			return
		}
		idx := int(num)
		if float64(idx) != float64(num) || idx < 1 {
			isArray = false
			return
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	})

	if isArray && maxIdx > 0 && count == maxIdx {
		arr := make([]any, maxIdx)
		for i := 1; i <= maxIdx; i++ {
			arr[i-1] = fromLValue(t.RawGetInt(i))
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = fromLValue(v)
	})
	return m
}
