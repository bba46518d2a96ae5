// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import (
	"errors"
	"fmt"
	"time"
)

// Method selects the model-fitting approach a run is labeled with. The engine
// itself is agnostic: the label is carried into the [PowerReport] so a caller
// can tell which fitter produced it.
type Method string

const (
	// GLMM labels fits from a generalized linear mixed model.
	GLMM Method = "glmm"
	// GEE labels fits from generalized estimating equations.
	GEE Method = "gee"
)

// Thresholds holds the empirical constants driving the early-stop monitors.
// The zero value adopts the package defaults via [Thresholds.withDefaults];
// callers normally leave it zero. The defaults are preserved from long use
// rather than derived, so changing them changes which runs abort.
type Thresholds struct {
	// MinSample is the number of iterations that must complete before the
	// convergence tracker and power monitor act. Below it the running rates
	// are too noisy to act on. Default 50.
	MinSample int
	// CheckInterval is the spacing, in iterations, between power monitor
	// evaluations after MinSample. Default 10.
	CheckInterval int
	// MaxNonconvergence is the fraction of the configured iteration count
	// whose exceedance by the non-converged count triggers an
	// excess-nonconvergence abort. Default 0.25.
	MaxNonconvergence float64
	// MinInterimPower is the running power below which the power monitor
	// aborts. Default 0.5.
	MinInterimPower float64
	// TimeSample is the iteration at which the runtime budget estimator
	// extrapolates total wall-clock time. Default 10.
	TimeSample int
	// TimeBudget is the projected-runtime ceiling. Default 2 minutes.
	TimeBudget time.Duration
}

func (t Thresholds) withDefaults() Thresholds {
	if t.MinSample == 0 {
		t.MinSample = 50
	}
	if t.CheckInterval == 0 {
		t.CheckInterval = 10
	}
	if t.MaxNonconvergence == 0 {
		t.MaxNonconvergence = 0.25
	}
	if t.MinInterimPower == 0 {
		t.MinInterimPower = 0.5
	}
	if t.TimeSample == 0 {
		t.TimeSample = 10
	}
	if t.TimeBudget == 0 {
		t.TimeBudget = 2 * time.Minute
	}
	return t
}

// A SimulationConfig holds the immutable parameters of one run. The zero
// value is not valid; NSim and Alpha must be set.
type SimulationConfig struct {
	// NSim is the number of iterations to attempt. Zero yields an empty
	// report whose power estimate is marked undefined.
	NSim int
	// Alpha is both the significance threshold applied to per-iteration
	// p-values and the confidence level (1-Alpha) of the reported interval.
	// Must lie strictly between 0 and 1.
	Alpha float64
	// Method labels which fitter variant the caller injected.
	Method Method
	// Seed makes dataset generation reproducible: each iteration draws from
	// a stream derived from (Seed, iteration index). Zero selects a
	// nondeterministic seed at run start.
	Seed uint64
	// PoorFitOverride suppresses the excess-nonconvergence abort. The
	// condition is still recorded in [PowerReport.Suppressed].
	PoorFitOverride bool
	// LowPowerOverride suppresses the low-power abort. The condition is
	// still recorded in [PowerReport.Suppressed].
	LowPowerOverride bool
	// EnforceTimeLimit opts in to the runtime budget abort. The ceiling is
	// off by default to avoid surprising batch callers; interactive
	// front ends should set it.
	EnforceTimeLimit bool
	// RetainAllDatasets accumulates every simulated dataset into the report
	// instead of discarding each after its fit.
	RetainAllDatasets bool
	// Workers is the requested parallelism for the generate+fit step. Values
	// below 2 run iterations sequentially in the calling goroutine.
	Workers int
	// Thresholds overrides the early-stop monitor constants. Zero fields
	// adopt the package defaults.
	Thresholds Thresholds
	// Progress receives one event per completed iteration. Nil means no
	// progress reporting. Events are always emitted from the calling
	// goroutine, in iteration order, even under parallel execution.
	Progress ProgressReporter
}

// Validate rejects a configuration before any simulation starts. All
// violations are reported, joined with [errors.Join].
func (c *SimulationConfig) Validate() error {
	var errs []error
	if c.NSim < 0 {
		errs = append(errs, &ValidationError{Field: "NSim", Reason: fmt.Sprintf("must be non-negative, got %d", c.NSim)})
	}
	if !(c.Alpha > 0 && c.Alpha < 1) {
		errs = append(errs, &ValidationError{Field: "Alpha", Reason: fmt.Sprintf("must lie in (0,1), got %v", c.Alpha)})
	}
	switch c.Method {
	case GLMM, GEE:
	default:
		errs = append(errs, &ValidationError{Field: "Method", Reason: fmt.Sprintf("must be %q or %q, got %q", GLMM, GEE, c.Method)})
	}
	if c.Workers < 0 {
		errs = append(errs, &ValidationError{Field: "Workers", Reason: fmt.Sprintf("must be non-negative, got %d", c.Workers)})
	}
	t := c.Thresholds
	if t.MinSample < 0 {
		errs = append(errs, &ValidationError{Field: "Thresholds.MinSample", Reason: "must be non-negative"})
	}
	if t.CheckInterval < 0 {
		errs = append(errs, &ValidationError{Field: "Thresholds.CheckInterval", Reason: "must be non-negative"})
	}
	if t.MaxNonconvergence < 0 || t.MaxNonconvergence > 1 {
		errs = append(errs, &ValidationError{Field: "Thresholds.MaxNonconvergence", Reason: "must lie in [0,1]"})
	}
	if t.MinInterimPower < 0 || t.MinInterimPower > 1 {
		errs = append(errs, &ValidationError{Field: "Thresholds.MinInterimPower", Reason: "must lie in [0,1]"})
	}
	if t.TimeSample < 0 {
		errs = append(errs, &ValidationError{Field: "Thresholds.TimeSample", Reason: "must be non-negative"})
	}
	if t.TimeBudget < 0 {
		errs = append(errs, &ValidationError{Field: "Thresholds.TimeBudget", Reason: "must be non-negative"})
	}
	return errors.Join(errs...)
}
