package testutil

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/state"
)

// SetupTestDir creates a temporary repository with a .wreckit directory and
// the default config.yaml. Returns the repository path and a Store.
// The directory is automatically cleaned up when the test completes.
func SetupTestDir(t *testing.T) (string, *state.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	wreckitDir := filepath.Join(tmpDir, ".wreckit")
	require.NoError(t, os.MkdirAll(filepath.Join(wreckitDir, "items"), 0o755))
	require.NoError(t, os.WriteFile(config.ConfigPath(tmpDir), []byte(config.Template), 0o644))

	return tmpDir, state.NewStore(tmpDir)
}

// SeedItem saves a new item in the given state and returns it.
func SeedItem(t *testing.T, store *state.Store, id string, st state.ItemState, dependsOn ...string) *state.Item {
	t.Helper()

	item := &state.Item{ID: id, Title: "Item " + id, State: st, DependsOn: dependsOn}
	require.NoError(t, store.SaveItem(item))
	return item
}

// WriteArtifact writes one of an item's artifact files.
func WriteArtifact(t *testing.T, store *state.Store, id, name, content string) {
	t.Helper()
	path := store.ArtifactPath(id, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// MustMarshalJSON marshals a value to JSON, failing the test on error.
// Uses indented format for readability.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	return data
}

// MustUnmarshalJSON unmarshals JSON data into v, failing the test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v))
}

// WriteTestFile writes content to a file in the test directory.
// Creates parent directories as needed.
func WriteTestFile(t *testing.T, basePath, relativePath string, content []byte) {
	t.Helper()
	fullPath := filepath.Join(basePath, relativePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(t, os.WriteFile(fullPath, content, 0o644))
}

// Snapshot maps every regular file under a directory (by relative path) to
// its contents.
type Snapshot map[string][]byte

// TakeSnapshot reads every regular file under dir. A missing dir yields an
// empty snapshot.
func TakeSnapshot(t *testing.T, dir string) Snapshot {
	t.Helper()

	snap := Snapshot{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		snap[rel] = data
		return nil
	})
	require.NoError(t, err)
	return snap
}

// WritePRD writes prd as the item's prd.json.
func WritePRD(t *testing.T, store *state.Store, prd *state.PRD) {
	t.Helper()
	WriteArtifact(t, store, prd.ID, state.PRDFileName, string(MustMarshalJSON(t, prd)))
}
