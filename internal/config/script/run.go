package script

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/confkit/internal/config"
)

// DefaultScriptName is the well-known script file name under the
// configuration directory.
const DefaultScriptName = "config.lua"

// Runner compiles and executes a configuration script against a
// façade.
type Runner struct {
	api       *API
	configDir string
}

// NewRunner creates a runner for the given façade and configuration
// directory.
func NewRunner(api *API, configDir string) *Runner {
	return &Runner{api: api, configDir: configDir}
}

// Run executes the script at path. An empty path means the default
// location under the configuration directory; if that default does not
// exist, Run returns nil with zero effect since scripting is optional.
//
// Structural failures (unreadable file, NUL bytes, syntax errors)
// abort the run and come back as a *config.FileError keyed by the
// script's base name. Runtime failures never do: an unhandled script
// error becomes a single "Unhandled exception" descriptor on the
// façade, and effects applied before the error stand.
func (r *Runner) Run(path string) error {
	if path == "" {
		path = filepath.Join(r.configDir, DefaultScriptName)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	basename := filepath.Base(path)

	source, err := os.ReadFile(path)
	if err != nil {
		return config.NewFileError(basename, config.ErrorDesc{
			Action: "Error while reading",
			Err:    err,
		})
	}

	if bytes.IndexByte(source, 0) >= 0 {
		return config.NewFileError(basename, config.ErrorDesc{
			Action: "Error while compiling",
			Err:    errors.New("source contains NUL bytes"),
		})
	}

	L := newState()
	defer L.Close()

	// The restore runs on every exit path, compile failure included.
	restore := scopeImportPath(L, filepath.Dir(path))
	defer restore()

	fn, err := L.Load(bytes.NewReader(source), basename)
	if err != nil {
		return config.NewFileError(basename, config.ErrorDesc{
			Action:    "Syntax Error",
			Err:       err,
			Traceback: err.Error(),
		})
	}

	registerFacade(L, r.api)

	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		traceback := ""
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) {
			traceback = apiErr.StackTrace
		}
		r.api.AddError(config.ErrorDesc{
			Action:    "Unhandled exception",
			Err:       err,
			Traceback: traceback,
		})
	}

	r.readBackFlags(L)
	r.api.Finalize()
	return nil
}

// readBackFlags pulls the script-writable attributes off the façade
// table. They take effect even when the script later raised, matching
// the rule that work done before an unhandled error stands.
func (r *Runner) readBackFlags(L *lua.LState) {
	cfg, ok := L.GetGlobal("config").(*lua.LTable)
	if !ok {
		return
	}
	if b, ok := cfg.RawGetString("load_autoconfig").(lua.LBool); ok {
		r.api.SetLoadAutoconfig(bool(b))
	}
}
