package main

import (
	"fmt"
	"os"

	"github.com/kolkov/gostm/cmd/stmify/modlink"
)

// linkCommand implements `stmify link`: it makes sure the target module
// requires the gostm runtime so instrumented code resolves.
func linkCommand(args []string) {
	path := "go.mod"
	if len(args) > 0 {
		path = args[0]
	}

	added, err := modlink.EnsureRequire(path, modlink.DefaultRuntimeVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stmify link: %v\n", err)
		os.Exit(1)
	}

	if added {
		fmt.Printf("%s: added require %s %s\n", path, modlink.RuntimeModulePath, modlink.DefaultRuntimeVersion)
	} else {
		fmt.Printf("%s: runtime already required\n", path)
	}
}
