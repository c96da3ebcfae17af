package pipeline

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/leapstack-labs/leapframe/internal/sample"
	"github.com/leapstack-labs/leapframe/pkg/adapter"
	"github.com/leapstack-labs/leapframe/pkg/frame"
	"github.com/leapstack-labs/leapframe/pkg/interchange"
	"github.com/leapstack-labs/leapframe/pkg/plot"
	"github.com/leapstack-labs/leapframe/pkg/stats"
)

// DefaultAlpha is the significance level of the species ANOVA.
const DefaultAlpha = 0.05

// InterchangeConfig configures Interchange.
type InterchangeConfig struct {
	ParquetPath string
	DuckDB      adapter.Config
	Relational  adapter.Config
	// PlotPath receives the scatter plot page. Empty skips the plot.
	PlotPath string
	// Alpha is the ANOVA significance level. Zero uses DefaultAlpha.
	Alpha float64
}

// InterchangeResult is the combined sample and the species ANOVA.
type InterchangeResult struct {
	// Penguins holds every row read back from the three targets. The caller
	// must release it.
	Penguins *frame.Frame
	Groups   []frame.Group
	ANOVA    *stats.TestResult
}

// Release drops the combined frame.
func (r *InterchangeResult) Release() {
	if r.Penguins != nil {
		r.Penguins.Release()
	}
}

// PenguinScatter is the flipper length against body mass chart by species.
var PenguinScatter = plot.Scatter{
	X:       sample.BodyMass,
	Y:       sample.FlipperLength,
	Group:   sample.Species,
	Opacity: 0.5,
	Size:    12,
	Colors: []color.Color{
		color.RGBA{R: 178, G: 34, B: 34, A: 255},
		color.RGBA{R: 65, G: 105, B: 225, A: 255},
		color.RGBA{R: 255, G: 140, A: 255},
	},
	Title:       "Penguin Flipper Length vs Body Mass",
	XTitle:      "Body Mass (g)",
	YTitle:      "Flipper Length (mm)",
	LegendTitle: "Species",
}

// Interchange reads the three parts written by Setup, each through its own
// representation, conforms them to the Parquet schema and combines them. It
// then plots the result and tests whether flipper length differs by species.
func Interchange(ctx context.Context, cfg InterchangeConfig, logger *slog.Logger) (*InterchangeResult, error) {
	logger = loggerOrDiscard(logger)
	alpha := cfg.Alpha
	if alpha == 0 {
		alpha = DefaultAlpha
	}

	parquetPart, err := frame.ReadParquet(ctx, cfg.ParquetPath)
	if err != nil {
		return nil, err
	}
	defer parquetPart.Release()
	target := parquetPart.Schema()

	duckPart, err := readConformed(ctx, cfg.DuckDB, target, logger)
	if err != nil {
		return nil, err
	}
	defer duckPart.Release()

	relPart, err := readConformed(ctx, cfg.Relational, target, logger)
	if err != nil {
		return nil, err
	}
	defer relPart.Release()

	penguins, err := frame.Concat(parquetPart, duckPart, relPart)
	if err != nil {
		return nil, fmt.Errorf("failed to combine parts: %w", err)
	}
	res := &InterchangeResult{Penguins: penguins}
	logger.Info("combined penguins",
		slog.Int64("parquet", parquetPart.NumRows()),
		slog.Int64("duckdb", duckPart.NumRows()),
		slog.Int64("relational", relPart.NumRows()))

	if cfg.PlotPath != "" {
		if err := plotPenguins(penguins, cfg.PlotPath); err != nil {
			res.Release()
			return nil, err
		}
		logger.Info("wrote plot", slog.String("path", cfg.PlotPath))
	}

	res.Groups, err = penguins.GroupFloat64(sample.Species, sample.FlipperLength)
	if err != nil {
		res.Release()
		return nil, err
	}
	values := make([][]float64, len(res.Groups))
	for i, g := range res.Groups {
		values[i] = g.Values
	}
	res.ANOVA, err = stats.OneWayANOVA(values, alpha)
	if err != nil {
		res.Release()
		return nil, fmt.Errorf("failed to run anova: %w", err)
	}
	return res, nil
}

func readConformed(ctx context.Context, cfg adapter.Config, target *arrow.Schema, logger *slog.Logger) (*frame.Frame, error) {
	tbl, err := readTarget(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	conformed, err := tbl.Conform(target)
	if err != nil {
		return nil, fmt.Errorf("failed to conform %s part: %w", cfg.Type, err)
	}
	defer conformed.Release()
	return conformed.Frame()
}

// plotPenguins renders the scatter plot from a go-gota copy of the sample,
// checking that the copy converts back unchanged.
func plotPenguins(penguins *frame.Frame, path string) error {
	tbl, err := interchange.FromFrame(penguins)
	if err != nil {
		return err
	}
	defer tbl.Release()

	df, err := tbl.DataFrame()
	if err != nil {
		return fmt.Errorf("failed to convert to dataframe: %w", err)
	}
	back, err := interchange.FromDataFrame(df)
	if err != nil {
		return fmt.Errorf("failed to convert from dataframe: %w", err)
	}
	defer back.Release()

	conformed, err := back.Conform(penguins.Schema())
	if err != nil {
		return fmt.Errorf("failed to conform dataframe: %w", err)
	}
	defer conformed.Release()

	f, err := conformed.Frame()
	if err != nil {
		return err
	}
	defer f.Release()

	p, err := PenguinScatter.Plot(f)
	if err != nil {
		return fmt.Errorf("failed to plot penguins: %w", err)
	}
	return plot.SaveHTML(path, p, PenguinScatter.Title, plot.DefaultWidth, plot.DefaultHeight)
}
