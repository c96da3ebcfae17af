package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapframe/internal/testutil"
)

const memoryLog = `time type used
10:00:00.000 build 734003200
10:00:00.100 load 1048576
10:00:00.200 load 1572864
10:00:00.300 done 10485760
`

func TestMemGraph(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")
	require.NoError(t, os.WriteFile(logPath, []byte(memoryLog), 0o600))
	plotPath := filepath.Join(dir, "mem_log", "plot.html")

	log, err := MemGraph(MemGraphConfig{LogPath: logPath, PlotPath: plotPath}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer log.Release()

	assert.Equal(t, []string{LogTime, LogType, LogUsed}, log.Columns())
	types, err := log.Strings(LogType)
	require.NoError(t, err)
	assert.Equal(t, []string{"load", "load", "done"}, types)

	used, err := log.Float64s(LogUsed)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1.5, 10}, used)

	page, err := os.ReadFile(plotPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), MemoryPlot.Title)
}

func TestMemGraph_Exclude(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, os.WriteFile(logPath, []byte(memoryLog), 0o600))

	log, err := MemGraph(MemGraphConfig{LogPath: logPath, ExcludeType: "load"}, nil)
	require.NoError(t, err)
	defer log.Release()

	used, err := log.Float64s(LogUsed)
	require.NoError(t, err)
	assert.Equal(t, []float64{700, 10}, used)
}

func TestMemGraph_MissingLog(t *testing.T) {
	_, err := MemGraph(MemGraphConfig{LogPath: filepath.Join(t.TempDir(), "out.log")}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemLog(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "prog_type.txt")
	logPath := filepath.Join(dir, "out.log")
	require.NoError(t, WriteMarker(marker, MarkerBuild))

	var calls atomic.Int64
	used := func() (uint64, error) {
		n := calls.Add(1)
		switch n {
		case 2:
			if err := WriteMarker(marker, MarkerLoad); err != nil {
				return 0, err
			}
		case 3:
			if err := WriteMarker(marker, MarkerDone); err != nil {
				return 0, err
			}
		}
		return uint64(n) * 1048576, nil
	}

	err := MemLog(context.Background(), MemLogConfig{
		LogPath:    logPath,
		MarkerPath: marker,
		Interval:   time.Millisecond,
		Used:       used,
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "time type used", lines[0])
	for i, want := range []string{"build 1048576", "build 2097152", "load 3145728", "done 4194304"} {
		assert.True(t, strings.HasSuffix(lines[i+1], want), "line %d is %q", i+1, lines[i+1])
	}

	// The log reads back through MemGraph without the build samples.
	log, err := MemGraph(MemGraphConfig{LogPath: logPath}, nil)
	require.NoError(t, err)
	defer log.Release()
	mib, err := log.Float64s(LogUsed)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, mib)
}

func TestMemLog_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := MemLog(ctx, MemLogConfig{
		LogPath:    filepath.Join(t.TempDir(), "out.log"),
		MarkerPath: filepath.Join(t.TempDir(), "prog_type.txt"),
		Used:       func() (uint64, error) { return 1, nil },
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUsedMemory(t *testing.T) {
	tests := []struct {
		name    string
		meminfo string
		want    uint64
		wantErr bool
	}{
		{
			name:    "used is total minus available",
			meminfo: "MemTotal:       16000 kB\nMemFree:         1000 kB\nMemAvailable:    6000 kB\n",
			want:    10000 * 1024,
		},
		{name: "missing available", meminfo: "MemTotal:       16000 kB\n", wantErr: true},
		{name: "bad number", meminfo: "MemTotal:       lots kB\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(root, "meminfo"), []byte(tt.meminfo), 0o600))

			got, err := usedMemory(root)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUsedMemory_MissingProc(t *testing.T) {
	_, err := usedMemory(filepath.Join(t.TempDir(), "proc"))
	assert.Error(t, err)
}
