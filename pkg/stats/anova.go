// Package stats implements the hypothesis tests used by the pipelines.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrTooFewGroups is returned when fewer than two groups are compared.
	ErrTooFewGroups = errors.New("at least two groups are required")
	// ErrEmptyGroup is returned when a group holds no observations.
	ErrEmptyGroup = errors.New("group has no observations")
	// ErrTooFewObservations is returned when there are no more observations than groups.
	ErrTooFewObservations = errors.New("need more observations than groups")
	// ErrInvalidAlpha is returned when the significance level is outside (0, 1).
	ErrInvalidAlpha = errors.New("alpha must be between 0 and 1")
	// ErrNaN is returned when an observation is NaN.
	ErrNaN = errors.New("observation is NaN")
)

// TestResult is the outcome of a one-way analysis of variance.
type TestResult struct {
	// FStatistic is the ratio of between-group to within-group mean squares.
	FStatistic float64
	// PValue is the probability of an F at least this large under the null hypothesis.
	PValue float64

	DFBetween float64
	DFWithin  float64
	SSBetween float64
	SSWithin  float64

	Alpha float64
	// RejectNull reports whether PValue < Alpha, that is whether the group
	// means differ at the requested significance level.
	RejectNull bool
}

// OneWayANOVA tests whether the means of groups are equal.
//
// When every group has zero variance but the means differ, FStatistic is
// +Inf and PValue is 0. When all observations are equal, both are NaN and
// the null hypothesis is kept.
func OneWayANOVA(groups [][]float64, alpha float64) (*TestResult, error) {
	if !(alpha > 0 && alpha < 1) {
		return nil, fmt.Errorf("%v: %w", alpha, ErrInvalidAlpha)
	}
	if len(groups) < 2 {
		return nil, fmt.Errorf("got %d: %w", len(groups), ErrTooFewGroups)
	}

	var all []float64
	for i, g := range groups {
		if len(g) == 0 {
			return nil, fmt.Errorf("group %d: %w", i, ErrEmptyGroup)
		}
		for _, v := range g {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("group %d: %w", i, ErrNaN)
			}
		}
		all = append(all, g...)
	}

	k := float64(len(groups))
	n := float64(len(all))
	if n-k < 1 {
		return nil, fmt.Errorf("%d observations in %d groups: %w", len(all), len(groups), ErrTooFewObservations)
	}

	grand := stat.Mean(all, nil)
	var ssb, ssw float64
	for _, g := range groups {
		mean := stat.Mean(g, nil)
		d := mean - grand
		ssb += float64(len(g)) * d * d
		for _, v := range g {
			e := v - mean
			ssw += e * e
		}
	}

	res := &TestResult{
		DFBetween: k - 1,
		DFWithin:  n - k,
		SSBetween: ssb,
		SSWithin:  ssw,
		Alpha:     alpha,
	}

	msb := ssb / res.DFBetween
	msw := ssw / res.DFWithin
	switch {
	case msw == 0 && msb == 0:
		res.FStatistic = math.NaN()
		res.PValue = math.NaN()
	case msw == 0:
		res.FStatistic = math.Inf(1)
		res.PValue = 0
	default:
		res.FStatistic = msb / msw
		res.PValue = distuv.F{D1: res.DFBetween, D2: res.DFWithin}.Survival(res.FStatistic)
	}
	res.RejectNull = res.PValue < alpha
	return res, nil
}
