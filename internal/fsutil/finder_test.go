package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	for _, name := range []string{"b.hcl", "a.JSON", "notes.txt", "nested/c.hcl"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}

	// --- Act ---
	files, err := FindFiles(root, ".hcl", ".json")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.JSON"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "c.hcl"),
	}, files)
}

func TestFindFiles_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	files, err := FindFiles(path, ".hcl")

	require.NoError(t, err)
	assert.Equal(t, []string{path}, files, "an explicit file is returned whatever its extension")
}

func TestFindFiles_Missing(t *testing.T) {
	_, err := FindFiles(filepath.Join(t.TempDir(), "absent"), ".hcl")
	assert.Error(t, err)
}
