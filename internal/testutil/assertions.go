package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/wreckit/internal/state"
)

// AssertItemState loads the item and asserts its state.
func AssertItemState(t *testing.T, store *state.Store, id string, expected state.ItemState) {
	t.Helper()
	item, err := store.GetItem(id)
	require.NoError(t, err)
	assert.Equal(t, expected, item.State, "item %s state mismatch", id)
}

// AssertLastError asserts the item's last_error contains substr.
func AssertLastError(t *testing.T, store *state.Store, id, substr string) {
	t.Helper()
	item, err := store.GetItem(id)
	require.NoError(t, err)
	require.NotNil(t, item.LastError, "item %s should have last_error", id)
	assert.Contains(t, *item.LastError, substr)
}

// AssertNoLastError asserts the item's last_error is null.
func AssertNoLastError(t *testing.T, store *state.Store, id string) {
	t.Helper()
	item, err := store.GetItem(id)
	require.NoError(t, err)
	assert.Nil(t, item.LastError, "item %s should not have last_error", id)
}

// AssertProgressAbsent asserts that no batch progress file exists.
func AssertProgressAbsent(t *testing.T, store *state.Store) {
	t.Helper()
	_, err := os.Stat(store.ProgressPath())
	assert.True(t, os.IsNotExist(err), "batch progress file should not exist")
}

// AssertProgressPresent loads the batch progress and fails if it is absent.
func AssertProgressPresent(t *testing.T, store *state.Store) *state.BatchProgress {
	t.Helper()
	p, err := store.LoadBatchProgress()
	require.NoError(t, err)
	require.NotNil(t, p, "batch progress file should exist")
	return p
}

// AssertSnapshotUnchanged asserts that dir has exactly the files and bytes
// recorded in before.
func AssertSnapshotUnchanged(t *testing.T, before Snapshot, dir string) {
	t.Helper()
	after := TakeSnapshot(t, dir)
	require.Len(t, after, len(before), "file count changed under %s", dir)
	for path, data := range before {
		got, ok := after[path]
		if assert.True(t, ok, "%s was removed", path) {
			assert.Equal(t, string(data), string(got), "%s changed", path)
		}
	}
}
