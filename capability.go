// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import (
	"context"
	"math/rand/v2"
)

// A Dataset holds one iteration's simulated observations in column form. All
// populated columns have the same length. A Dataset is owned exclusively by
// the iteration that produced it and must not be mutated after the fitter has
// seen it; the engine retains datasets past their iteration only when
// [SimulationConfig.RetainAllDatasets] is set.
type Dataset struct {
	// Response is the simulated outcome value per observation.
	Response []float64
	// Arm is the treatment-arm label each observation's cluster was
	// randomized to. Zero is the control arm.
	Arm []int
	// Treat indicates whether the observation was made under treatment
	// exposure. For a parallel design this equals Arm != 0; for longitudinal
	// designs exposure can vary by period within an arm.
	Treat []int
	// Cluster identifies the observation's cluster.
	Cluster []int
	// Period is the measurement period label for longitudinal designs. Nil
	// for purely cross-sectional designs.
	Period []int
}

// N returns the number of observations.
func (d *Dataset) N() int {
	return len(d.Response)
}

// Longitudinal reports whether the dataset carries a period column.
func (d *Dataset) Longitudinal() bool {
	return len(d.Period) > 0
}

// A DatasetGenerator synthesizes one simulated dataset per iteration from a
// trial design. The provided rng is a stream derived from the run seed and
// the iteration index; a generator that draws only from it is reproducible
// and independent of iteration scheduling. Generators are called from worker
// goroutines when parallel execution is requested and must not share mutable
// state across calls.
//
// An error return is a collaborator fault (e.g. impossible variance
// parameters) and fails the whole run.
type DatasetGenerator interface {
	Generate(ctx context.Context, iteration int, rng *rand.Rand) (*Dataset, error)
}

// A FitResult is the outcome of fitting the treatment-effect model to one
// dataset. Non-convergence is a normal outcome: the fitter reports it by
// clearing Converged, not by returning an error.
type FitResult struct {
	// Estimate is the treatment effect estimate.
	Estimate float64
	// StdErr is the standard error of the estimate.
	StdErr float64
	// Statistic is the test statistic for the treatment effect.
	Statistic float64
	// PValue is the two-sided p-value for the treatment effect.
	PValue float64
	// Converged reports whether the fit reached a stable solution. When
	// false the remaining fields are undefined and excluded from
	// aggregation.
	Converged bool
	// Aux carries optional design-specific auxiliary estimates, keyed by
	// name (e.g. "icc.anova"). Aggregated as per-key means over converged
	// iterations.
	Aux map[string]float64
}

// A ModelFitter fits the treatment-effect model to a dataset. Implementations
// may internally retry or reparameterize, but must never return an error for
// ordinary non-convergence; an error matching [ErrTransientFit] is retried
// once by the engine, and any other error is a collaborator fault that fails
// the run. Fitters are called from worker goroutines when parallel execution
// is requested and must be safe for concurrent use.
type ModelFitter interface {
	Fit(ctx context.Context, d *Dataset) (FitResult, error)
}

// GeneratorFunc adapts a function to the [DatasetGenerator] interface.
type GeneratorFunc func(ctx context.Context, iteration int, rng *rand.Rand) (*Dataset, error)

func (f GeneratorFunc) Generate(ctx context.Context, iteration int, rng *rand.Rand) (*Dataset, error) {
	return f(ctx, iteration, rng)
}

// FitterFunc adapts a function to the [ModelFitter] interface.
type FitterFunc func(ctx context.Context, d *Dataset) (FitResult, error)

func (f FitterFunc) Fit(ctx context.Context, d *Dataset) (FitResult, error) {
	return f(ctx, d)
}
