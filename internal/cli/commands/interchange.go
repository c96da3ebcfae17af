package commands

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapframe/internal/cli/config"
	"github.com/leapstack-labs/leapframe/internal/cli/output"
	"github.com/leapstack-labs/leapframe/internal/pipeline"
)

// InterchangeOutput is the JSON form of the interchange command's result.
// FStatistic and PValue are null when the test is degenerate (NaN or +Inf).
type InterchangeOutput struct {
	Rows       int64         `json:"rows"`
	Groups     []GroupOutput `json:"groups"`
	FStatistic *float64      `json:"f_statistic"`
	PValue     *float64      `json:"p_value"`
	Alpha      float64       `json:"alpha"`
	RejectNull bool          `json:"reject_null"`
	Plot       string        `json:"plot,omitempty"`

	fStatistic, pValue float64
}

func newInterchangeOutput(res *pipeline.InterchangeResult, plotPath string) InterchangeOutput {
	out := InterchangeOutput{
		Rows:       res.Penguins.NumRows(),
		FStatistic: finite(res.ANOVA.FStatistic),
		PValue:     finite(res.ANOVA.PValue),
		Alpha:      res.ANOVA.Alpha,
		RejectNull: res.ANOVA.RejectNull,
		Plot:       plotPath,
		fStatistic: res.ANOVA.FStatistic,
		pValue:     res.ANOVA.PValue,
	}
	for _, g := range res.Groups {
		out.Groups = append(out.Groups, GroupOutput{Species: g.Key, Count: len(g.Values)})
	}
	return out
}

// finite returns nil for the values encoding/json cannot represent.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// GroupOutput summarizes one species.
type GroupOutput struct {
	Species string `json:"species"`
	Count   int    `json:"count"`
}

// NewInterchangeCommand creates the interchange command.
func NewInterchangeCommand() *cobra.Command {
	var noPlot bool

	cmd := &cobra.Command{
		Use:   "interchange",
		Short: "Combine the three sample parts, plot them and test flipper length by species",
		Long: `Read back the parts written by setup: the Parquet file, the DuckDB table
through its native Arrow interface and the relational table through the SQL
driver. Each part is conformed to the Parquet schema and the parts are
combined. The result is plotted as flipper length against body mass by
species, and a one-way ANOVA tests whether flipper length differs by species.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			plotPath := cc.Cfg.PlotPath
			if noPlot {
				plotPath = ""
			}
			res, err := pipeline.Interchange(cmd.Context(), pipeline.InterchangeConfig{
				ParquetPath: cc.Cfg.ParquetPath,
				DuckDB:      adapterConfig(cc.Cfg.DuckDB),
				Relational:  adapterConfig(cc.Cfg.Relational),
				PlotPath:    plotPath,
				Alpha:       cc.Cfg.Alpha,
			}, cc.Logger)
			if err != nil {
				return err
			}
			defer res.Release()

			return renderInterchange(cc.Renderer, newInterchangeOutput(res, plotPath))
		},
	}

	cmd.Flags().BoolVar(&noPlot, "no-plot", false, "Skip writing "+config.DefaultPlot)
	return cmd
}

func renderInterchange(r *output.Renderer, out InterchangeOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Header(1, "Penguin flipper length by species")
		for _, g := range out.Groups {
			r.KeyValue(g.Species, r.Count(int64(g.Count)))
		}
		r.Println()
	}
	r.Printf("F-statistic: %v\np-value: %v\n", out.fStatistic, out.pValue)

	verdict := "flipper length does not differ significantly by species"
	if out.RejectNull {
		verdict = "flipper length differs by species"
	}
	r.Muted(fmt.Sprintf("%s (alpha %v, %s rows)", verdict, out.Alpha, r.Count(out.Rows)))
	if out.Plot != "" {
		r.Success("wrote " + out.Plot)
	}
	return nil
}
