package store_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
	"github.com/ethpandaops/benchreport/pkg/config"
	"github.com/ethpandaops/benchreport/pkg/results"
	"github.com/ethpandaops/benchreport/pkg/store"
)

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	cfg := &config.StoreConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{Path: ":memory:"},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := store.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func buildRun(runID string, timestamp int64, fastIterations int64) *results.RunResult {
	execs := []benchmark.Executable{{Name: "old"}, {Name: "new"}}
	fib := &benchmark.Job{Name: "fib"}

	rr := results.Build(runID, execs, []*benchmark.Result{
		{Job: fib, Executable: "old", Real: 1, Iterations: 100},
		{Job: fib, Executable: "new", Real: 1, Iterations: fastIterations},
	})
	rr.Timestamp = timestamp
	rr.System = &results.SystemInfo{Hostname: "bench-1"}

	return rr
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, buildRun("run-1", 1000, 300)))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, int64(1000), run.Timestamp)
	assert.Equal(t, "bench-1", run.Hostname)
	require.Len(t, run.Entries, 2)

	// Entries come back ordered by rank.
	assert.Equal(t, "new", run.Entries[0].Executable)
	assert.Equal(t, 1, run.Entries[0].Rank)
	assert.InDelta(t, 300.0, run.Entries[0].IPS, 1e-9)
	assert.Equal(t, "old", run.Entries[1].Executable)
	assert.InDelta(t, 3.0, run.Entries[1].Slowdown, 1e-9)
}

func TestStore_GetRunNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_SaveRunReplaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, buildRun("run-1", 1000, 300)))
	require.NoError(t, s.SaveRun(ctx, buildRun("run-1", 2000, 500)))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(2000), runs[0].Timestamp)

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, run.Entries, 2)
	assert.InDelta(t, 500.0, run.Entries[0].IPS, 1e-9)
}

func TestStore_ListRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, buildRun("run-1", 1000, 300)))
	require.NoError(t, s.SaveRun(ctx, buildRun("run-2", 3000, 300)))
	require.NoError(t, s.SaveRun(ctx, buildRun("run-3", 2000, 300)))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, "run-3", runs[1].RunID)
	assert.Equal(t, "run-1", runs[2].RunID)
	assert.Empty(t, runs[0].Entries)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_JobHistory(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, buildRun("run-1", 1000, 300)))
	require.NoError(t, s.SaveRun(ctx, buildRun("run-2", 2000, 400)))

	points, err := s.JobHistory(ctx, "fib", "new", 0)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "run-2", points[0].RunID)
	assert.Equal(t, int64(2000), points[0].Timestamp)
	assert.InDelta(t, 400.0, points[0].IPS, 1e-9)
	assert.Equal(t, int64(400), points[0].Iterations)
	assert.Equal(t, "run-1", points[1].RunID)

	none, err := s.JobHistory(ctx, "fib", "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_UnsupportedDriver(t *testing.T) {
	s := store.NewStore(logrus.New(), &config.StoreConfig{Driver: "mysql"})

	require.Error(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
}
