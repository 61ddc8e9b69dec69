package script

import (
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
)

// newState creates the sandboxed Lua state config scripts run in. Only
// the safe standard libraries are opened, and the functions that load
// arbitrary code from strings or files are removed; scripts reference
// sibling helper files through require, which is scoped to the
// script's own directory by scopeImportPath.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// io, os and debug stay closed: the script mutates configuration
	// through the façade, nothing else.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}

// scopeImportPath points the module search path at the script's
// directory so the script may require sibling helper files, and
// returns a restore function. The caller must defer the restore so the
// prior search path comes back on every exit path, including script
// errors.
func scopeImportPath(L *lua.LState, dir string) func() {
	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return func() {}
	}

	prior := L.GetField(pkg, "path")
	entry := filepath.Join(dir, "?.lua")
	L.SetField(pkg, "path", lua.LString(entry+";"+lua.LVAsString(prior)))

	return func() {
		L.SetField(pkg, "path", prior)
	}
}

// importPath returns the current module search path. Exposed for
// verifying the push/pop discipline.
func importPath(L *lua.LState) string {
	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return ""
	}
	return lua.LVAsString(L.GetField(pkg, "path"))
}
