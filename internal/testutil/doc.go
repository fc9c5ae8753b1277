// Package testutil provides shared test helpers for wreckit.
//
// # Environment
//
//   - SetupTestDir(t) - temp repository with .wreckit/config.yaml
//   - SeedItem(t, store, id, state, deps...) - saves a new item
//   - WriteArtifact, WritePRD - item artifact files
//   - TakeSnapshot(t, dir) - file contents for byte-identical checks
//
// # Fakes
//
//   - FakeExecutor - an agent.Executor that records requests
//   - FakeChecker - a process checker with a fixed set of live pids
//
// # Assertions
//
//   - AssertItemState, AssertLastError, AssertNoLastError
//   - AssertProgressAbsent, AssertProgressPresent
//   - AssertSnapshotUnchanged
//
// # Usage
//
//	func TestSomething(t *testing.T) {
//	    dir, store := testutil.SetupTestDir(t)
//	    testutil.SeedItem(t, store, "features/001-a", state.StateRaw)
//	    // ... run test ...
//	    testutil.AssertItemState(t, store, "features/001-a", state.StateDone)
//	}
package testutil
