package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/procfs"
)

// DefaultMemLogInterval is the sampling period of MemLog.
const DefaultMemLogInterval = 100 * time.Millisecond

const (
	idleType    = "idle"
)

// MemLogConfig configures MemLog.
type MemLogConfig struct {
	// LogPath receives one "time type used" line per sample.
	LogPath string
	// MarkerPath is read before each sample to label it.
	MarkerPath string
	// Interval between samples. Zero uses DefaultMemLogInterval.
	Interval time.Duration
	// Used returns the bytes of memory in use. Nil reads /proc/meminfo.
	Used func() (uint64, error)
}

// MemLog samples used memory into a log readable by MemGraph, labelling each
// sample with the current progress marker. It returns once a sample labelled
// MarkerDone is written or ctx is cancelled.
func MemLog(ctx context.Context, cfg MemLogConfig, logger *slog.Logger) error {
	logger = loggerOrDiscard(logger)
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultMemLogInterval
	}
	used := cfg.Used
	if used == nil {
		used = func() (uint64, error) { return usedMemory(procfs.DefaultMountPoint) }
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.Create(cfg.LogPath) //nolint:gosec // path is provided by the caller
	if err != nil {
		return fmt.Errorf("failed to create memory log: %w", err)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	if _, err := fmt.Fprintf(w, "%s %s %s\n", LogTime, LogType, LogUsed); err != nil {
		return fmt.Errorf("failed to write memory log: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var samples int
	for {
		marker, err := ReadMarker(cfg.MarkerPath)
		if err != nil {
			return err
		}
		if marker == "" {
			marker = idleType
		}
		n, err := used()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s %s %d\n", time.Now().Format("15:04:05.000"), marker, n); err != nil {
			return fmt.Errorf("failed to write memory log: %w", err)
		}
		samples++

		if marker == MarkerDone {
			break
		}
		select {
		case <-ctx.Done():
			logger.Debug("memory log cancelled", slog.Int("samples", samples))
			return flush(w, ctx.Err())
		case <-ticker.C:
		}
	}

	logger.Info("wrote memory log", slog.String("path", cfg.LogPath), slog.Int("samples", samples))
	return flush(w, nil)
}

func flush(w *bufio.Writer, err error) error {
	if ferr := w.Flush(); ferr != nil {
		return fmt.Errorf("failed to write memory log: %w", ferr)
	}
	return err
}

// usedMemory returns MemTotal minus MemAvailable in bytes from the meminfo
// file of the proc filesystem mounted at procRoot.
func usedMemory(procRoot string) (uint64, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", procRoot, err)
	}
	info, err := fs.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read meminfo: %w", err)
	}
	if info.MemTotal == nil || info.MemAvailable == nil {
		return 0, errors.New("meminfo lacks MemTotal or MemAvailable")
	}
	return (*info.MemTotal - *info.MemAvailable) * 1024, nil
}
