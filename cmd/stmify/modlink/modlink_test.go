package modlink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempGoMod(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "go.mod")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestEnsureRequireAddsRuntime checks the requirement is appended to a
// module that does not have it.
func TestEnsureRequireAddsRuntime(t *testing.T) {
	path := writeTempGoMod(t, "module example.com/app\n\ngo 1.24.0\n")

	added, err := EnsureRequire(path, DefaultRuntimeVersion)
	require.NoError(t, err)
	assert.True(t, added, "requirement should have been added")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), RuntimeModulePath+" "+DefaultRuntimeVersion)
}

// TestEnsureRequireIsIdempotent checks a second run changes nothing and an
// existing pin at a different version is preserved.
func TestEnsureRequireIsIdempotent(t *testing.T) {
	path := writeTempGoMod(t,
		"module example.com/app\n\ngo 1.24.0\n\nrequire "+RuntimeModulePath+" v0.0.9\n")

	added, err := EnsureRequire(path, DefaultRuntimeVersion)
	require.NoError(t, err)
	assert.False(t, added, "existing requirement must be left alone")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "v0.0.9", "existing pin must be preserved")
	assert.NotContains(t, string(data), DefaultRuntimeVersion)
}

// TestEnsureRequireSkipsRuntimeItself checks the runtime's own module file
// is never self-required.
func TestEnsureRequireSkipsRuntimeItself(t *testing.T) {
	path := writeTempGoMod(t, "module "+RuntimeModulePath+"\n\ngo 1.24.0\n")

	added, err := EnsureRequire(path, DefaultRuntimeVersion)
	require.NoError(t, err)
	assert.False(t, added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "require"),
		"runtime module file must not gain a self-requirement")
}

// TestEnsureRequireMissingFile checks a readable error for a missing path.
func TestEnsureRequireMissingFile(t *testing.T) {
	_, err := EnsureRequire(filepath.Join(t.TempDir(), "absent", "go.mod"), DefaultRuntimeVersion)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading module file")
}
