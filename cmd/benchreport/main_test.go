package main

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
	"github.com/ethpandaops/benchreport/pkg/results"
	"github.com/ethpandaops/benchreport/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMegahertz(t *testing.T) {
	assert.Zero(t, megahertz(nil))
	assert.InDelta(t, 2400.0, megahertz(big.NewRat(2_400_000_000, 1)), 1e-9)
	assert.InDelta(t, 0.5, megahertz(big.NewRat(500_000, 1)), 1e-9)
}

func TestGenerateShortID(t *testing.T) {
	id := generateShortID()
	assert.Len(t, id, 8)
	assert.NotEqual(t, id, generateShortID())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1.500k", formatIPS(1500))
	assert.Equal(t, "12.000", formatIPS(12))
	assert.Equal(t, "-", formatIPS(0))

	assert.Equal(t, "-", formatTimestamp(0))
	assert.Equal(t, "2023-11-14 22:13:20", formatTimestamp(1700000000))

	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "host", orDash("host"))
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printRuns(&buf, []store.Run{
		{RunID: "run-1", Timestamp: 1700000000, Hostname: "bench-1", ClockMHz: 2400},
		{RunID: "run-2"},
	}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "RUN")
	assert.Contains(t, string(lines[1]), "2400 MHz")
	assert.Contains(t, string(lines[1]), "bench-1")
	assert.Contains(t, string(lines[2]), "run-2")
}

func TestWriteRunDir(t *testing.T) {
	log = logrus.New()
	log.SetOutput(&bytes.Buffer{})

	root := t.TempDir()
	fib := &benchmark.Job{Name: "fib"}

	rr := results.Build("run-1", []benchmark.Executable{{Name: "ruby"}}, []*benchmark.Result{
		{Job: fib, Executable: "ruby", Real: 1, Iterations: 50},
	})

	runDir := filepath.Join(root, "run-1")
	require.NoError(t, writeRunDir(runDir, rr, nil))
	require.NoError(t, refreshIndex(root, nil))

	for _, name := range []string{results.ResultFile, summaryFile} {
		_, err := os.Stat(filepath.Join(runDir, name))
		require.NoError(t, err, name)
	}

	index, err := results.GenerateIndex(root)
	require.NoError(t, err)
	require.Len(t, index.Entries, 1)
	assert.Equal(t, "run-1", index.Entries[0].RunID)

	_, err = os.Stat(filepath.Join(root, results.IndexFile))
	require.NoError(t, err)
}
