package pipeline

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/leapstack-labs/leapframe/pkg/frame"
	"github.com/leapstack-labs/leapframe/pkg/plot"
)

// Columns of a memory log.
const (
	LogTime = "time"
	LogType = "type"
	LogUsed = "used"
)

const bytesPerMiB = 1024 * 1024

// MemGraphConfig configures MemGraph.
type MemGraphConfig struct {
	// LogPath is a space separated log with a "time type used" header.
	LogPath string
	// PlotPath receives the time series page. Empty skips the plot.
	PlotPath string
	// ExcludeType drops samples of this type. Empty uses MarkerBuild.
	ExcludeType string
}

// MemoryPlot is the used memory over time chart.
var MemoryPlot = plot.TimeSeries{
	X:      LogTime,
	Y:      LogUsed,
	Title:  "Memory Usage",
	XTitle: "Time",
	YTitle: "Used (MiB)",
}

// MemGraph reads a memory log, drops the excluded samples, converts used
// bytes to MiB rounded to one decimal and plots the result. The caller must
// release the returned frame.
func MemGraph(cfg MemGraphConfig, logger *slog.Logger) (*frame.Frame, error) {
	logger = loggerOrDiscard(logger)
	exclude := cfg.ExcludeType
	if exclude == "" {
		exclude = MarkerBuild
	}

	raw, err := frame.ReadCSV(cfg.LogPath, frame.CSVOptions{
		Comma: ' ',
		ColumnTypes: map[string]arrow.DataType{
			LogTime: arrow.BinaryTypes.String,
			LogType: arrow.BinaryTypes.String,
			LogUsed: arrow.PrimitiveTypes.Int64,
		},
	})
	if err != nil {
		return nil, err
	}
	defer raw.Release()

	log, err := apply(raw,
		func(f *frame.Frame) (*frame.Frame, error) { return f.Select(LogTime, LogType, LogUsed) },
		func(f *frame.Frame) (*frame.Frame, error) {
			return f.WhereColumn(LogType, func(col arrow.Array, row int) bool {
				return !col.IsNull(row) && col.ValueStr(row) != exclude
			})
		},
		toMiB,
	)
	if err != nil {
		return nil, err
	}
	logger.Info("read memory log", slog.String("path", cfg.LogPath), slog.Int64("samples", log.NumRows()))

	if cfg.PlotPath != "" {
		p, err := MemoryPlot.Plot(log)
		if err != nil {
			log.Release()
			return nil, fmt.Errorf("failed to plot memory log: %w", err)
		}
		if err := plot.SaveHTML(cfg.PlotPath, p, MemoryPlot.Title, plot.DefaultWidth, plot.DefaultHeight); err != nil {
			log.Release()
			return nil, err
		}
		logger.Info("wrote plot", slog.String("path", cfg.PlotPath))
	}
	return log, nil
}

// toMiB replaces the used column with its value in MiB, rounded to one decimal.
func toMiB(f *frame.Frame) (*frame.Frame, error) {
	used, err := f.Float64s(LogUsed)
	if err != nil {
		return nil, err
	}

	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.Reserve(len(used))
	for _, v := range used {
		if math.IsNaN(v) {
			b.AppendNull()
			continue
		}
		b.UnsafeAppend(math.Round(v/bytesPerMiB*10) / 10)
	}
	arr := b.NewArray()
	defer arr.Release()
	return f.WithColumn(LogUsed, arr)
}
