// Package modlink wires the gostm runtime into a target Go module.
//
// Instrumented code imports the public stm package, so the target module
// must require this runtime. EnsureRequire edits the target's go.mod in
// place using golang.org/x/mod/modfile, preserving the file's existing
// structure and comments.
package modlink

import (
	"fmt"
	"os"

	"golang.org/x/mod/modfile"
)

const (
	// RuntimeModulePath is the module instrumented code depends on.
	RuntimeModulePath = "github.com/kolkov/gostm"

	// DefaultRuntimeVersion is the runtime version required when the target
	// module does not already pin one.
	DefaultRuntimeVersion = "v0.1.0"
)

// EnsureRequire makes sure the go.mod file at path requires the gostm
// runtime. It returns true if a requirement was added and false if the
// module already required the runtime (at any version - an existing pin is
// left alone).
func EnsureRequire(path, version string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading module file: %w", err)
	}

	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return false, fmt.Errorf("parsing module file: %w", err)
	}

	if f.Module != nil && f.Module.Mod.Path == RuntimeModulePath {
		// The runtime's own module file: nothing to link.
		return false, nil
	}

	for _, r := range f.Require {
		if r.Mod.Path == RuntimeModulePath {
			return false, nil
		}
	}

	if err := f.AddRequire(RuntimeModulePath, version); err != nil {
		return false, fmt.Errorf("adding requirement: %w", err)
	}
	f.Cleanup()

	out, err := f.Format()
	if err != nil {
		return false, fmt.Errorf("formatting module file: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return false, fmt.Errorf("writing module file: %w", err)
	}
	return true, nil
}
