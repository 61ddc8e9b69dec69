// Package main is a diagnostic front end for the configuration
// engine: it runs the full startup sequence against a config and data
// directory and prints the resolved options, key bindings and any
// errors the load collected.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/dshills/confkit/internal/config/files"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	f := files.New(opts.configDir, opts.dataDir,
		files.WithAppVersion(version),
		files.WithScriptPath(opts.scriptPath),
	)

	api, err := f.LoadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println("Options:")
	snapshot := f.Config().Snapshot()
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		marker := " "
		if f.Autoconf().Contains(name) {
			marker = "*"
		}
		fmt.Printf("  %s %-24s = %v\n", marker, name, snapshot[name])
	}

	modes := f.Keys().Modes()
	if len(modes) > 0 {
		fmt.Println("\nBindings:")
		for _, mode := range modes {
			bindings := f.Keys().Bindings(mode)
			keys := make([]string, 0, len(bindings))
			for key := range bindings {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Printf("  [%s] %-12s -> %s\n", mode, key, bindings[key])
			}
		}
	}

	errs := api.Errors()
	if len(errs) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d error(s) during load:\n", len(errs))
		for _, desc := range errs {
			fmt.Fprintf(os.Stderr, "  %s\n", desc)
		}
		return 1
	}

	return 0
}

type options struct {
	configDir  string
	dataDir    string
	scriptPath string
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configDir, "config", ".", "Configuration directory (script and overrides)")
	flag.StringVar(&opts.configDir, "c", ".", "Configuration directory (shorthand)")
	flag.StringVar(&opts.dataDir, "data", ".", "Data directory (persisted state)")
	flag.StringVar(&opts.dataDir, "d", ".", "Data directory (shorthand)")
	flag.StringVar(&opts.scriptPath, "script", "", "Configuration script (default: config.lua in the config directory)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "confkit - configuration engine diagnostics\n\n")
		fmt.Fprintf(os.Stderr, "Usage: confkit [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  confkit -c ~/.config/app -d ~/.local/share/app\n")
		fmt.Fprintf(os.Stderr, "  confkit -script ./config.lua\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("confkit %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		os.Exit(0)
	}

	return opts
}
