package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/wreckit/internal/agent"
	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/state"
)

func TestSetupTestDir(t *testing.T) {
	t.Parallel()

	dir, store := SetupTestDir(t)
	assert.Equal(t, dir, store.BasePath())

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), *cfg)
}

func TestSeedItem(t *testing.T) {
	t.Parallel()

	_, store := SetupTestDir(t)
	SeedItem(t, store, "features/002-b", state.StatePlanned, "features/001-a")

	item, err := store.GetItem("features/002-b")
	require.NoError(t, err)
	assert.Equal(t, state.StatePlanned, item.State)
	assert.Equal(t, []string{"features/001-a"}, item.DependsOn)
	AssertItemState(t, store, "features/002-b", state.StatePlanned)
	AssertNoLastError(t, store, "features/002-b")
}

func TestWritePRD(t *testing.T) {
	t.Parallel()

	_, store := SetupTestDir(t)
	SeedItem(t, store, "001-a", state.StatePlanned)
	WritePRD(t, store, SamplePRD("001-a", true))

	prd, err := store.LoadPRD("001-a")
	require.NoError(t, err)
	require.NotNil(t, prd)
	assert.True(t, prd.AllStoriesDone())

	WritePRD(t, store, SamplePRD("001-a", false))
	prd, err = store.LoadPRD("001-a")
	require.NoError(t, err)
	assert.False(t, prd.AllStoriesDone())
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	dir, store := SetupTestDir(t)
	SeedItem(t, store, "001-a", state.StateRaw)

	before := TakeSnapshot(t, store.Dir())
	assert.Contains(t, before, filepath.Join("items", "001-a", "item.json"))
	AssertSnapshotUnchanged(t, before, store.Dir())

	WriteTestFile(t, dir, filepath.Join(".wreckit", "extra.txt"), []byte("x"))
	after := TakeSnapshot(t, store.Dir())
	assert.Len(t, after, len(before)+1)

	assert.Empty(t, TakeSnapshot(t, filepath.Join(dir, "missing")))
}

func TestAssertProgress(t *testing.T) {
	t.Parallel()

	_, store := SetupTestDir(t)
	AssertProgressAbsent(t, store)

	require.NoError(t, store.SaveBatchProgress(&state.BatchProgress{SessionID: "s", QueuedItems: []string{}}))
	p := AssertProgressPresent(t, store)
	assert.Equal(t, "s", p.SessionID)

	require.NoError(t, os.Remove(store.ProgressPath()))
	AssertProgressAbsent(t, store)
}

func TestFakeExecutor(t *testing.T) {
	t.Parallel()

	f := &FakeExecutor{}
	res := f.Execute(context.Background(), agent.Request{CompletionSignal: "DONE"})
	assert.True(t, res.Success)
	assert.Equal(t, "DONE\n", res.Output)
	assert.Equal(t, 1, f.Calls())

	f.Respond = func(agent.Request) agent.Result { return FailureResult("boom") }
	res = f.Execute(context.Background(), agent.Request{Prompt: "p"})
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
	require.Len(t, f.Requests(), 2)
	assert.Equal(t, "p", f.Requests()[1].Prompt)
}

func TestFakeChecker(t *testing.T) {
	t.Parallel()

	c := NewFakeChecker(100, 200)
	assert.True(t, c.Alive(100))
	assert.False(t, c.Alive(300))
}
