// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import (
	"fmt"
	"strings"
)

// An AbortReason names a policy abort: an intentional early termination
// driven by a monitoring rule, distinct from a fault.
type AbortReason string

const (
	// AbortExcessNonconvergence fires when the non-converged count exceeds
	// the configured fraction of the requested iterations.
	AbortExcessNonconvergence AbortReason = "excess-nonconvergence"
	// AbortLowPower fires when the running power among converged iterations
	// falls below the configured interim floor.
	AbortLowPower AbortReason = "low-power"
	// AbortTimeBudget fires when the projected total runtime exceeds the
	// configured ceiling.
	AbortTimeBudget AbortReason = "time-budget-exceeded"
)

// A Termination records how a run ended.
type Termination string

// TerminationCompleted indicates the run evaluated all requested iterations.
const TerminationCompleted Termination = "completed"

func abortTermination(reason AbortReason) Termination {
	return Termination("aborted:" + string(reason))
}

// Aborted reports whether the termination is a policy abort, and if so which.
func (t Termination) Aborted() (AbortReason, bool) {
	s, ok := strings.CutPrefix(string(t), "aborted:")
	if !ok {
		return "", false
	}
	return AbortReason(s), true
}

// An IterationResult is the immutable record of one completed iteration.
type IterationResult struct {
	// Iteration is the zero-based iteration index.
	Iteration int
	// Fit is the fitter's outcome for the iteration. When Fit.Converged is
	// false the iteration counted toward the non-convergence rate and is
	// excluded from the power estimate.
	Fit FitResult
	// Significant reports Fit.Converged && Fit.PValue < Alpha.
	Significant bool
}

// A PowerEstimate is a binomial proportion with a confidence interval.
// Defined is false when there were no converged iterations to estimate from,
// in which case the numeric fields are zero and meaningless.
type PowerEstimate struct {
	Value   float64
	Lower   float64
	Upper   float64
	Defined bool
}

// A PowerReport is the aggregate outcome of a run. Policy aborts produce the
// same shape with a truncated Results slice and a non-completed Termination.
type PowerReport struct {
	// NSim is the configured iteration count.
	NSim int
	// Evaluated is the number of iterations that actually completed. Equal
	// to NSim iff Termination is [TerminationCompleted].
	Evaluated int
	// Method labels the fitter variant used.
	Method Method
	// Alpha is the significance threshold and interval confidence level.
	Alpha float64
	// Power is the fraction of converged iterations with p-value below
	// Alpha, with a Wilson score interval at confidence 1-Alpha.
	Power PowerEstimate
	// ConvergenceRate is converged count / Evaluated. Zero when nothing was
	// evaluated.
	ConvergenceRate float64
	// MeanEstimate is the mean treatment-effect estimate over converged
	// iterations.
	MeanEstimate float64
	// AuxMeans holds per-key means of the fitters' auxiliary estimates over
	// converged iterations. Nil when no converged iteration reported any.
	AuxMeans map[string]float64
	// Results is the per-iteration record, in iteration order.
	Results []IterationResult
	// Termination is how the run ended. Set exactly once.
	Termination Termination
	// Suppressed lists abort conditions that fired but were disabled by an
	// override flag, in first-detection order without duplicates.
	Suppressed []AbortReason
	// Datasets holds every simulated dataset, in iteration order, when
	// [SimulationConfig.RetainAllDatasets] was set. Nil otherwise.
	Datasets []*Dataset
}

// Overview renders a short human-readable summary of the run.
func (r *PowerReport) Overview() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Monte Carlo power estimation (%s) based on %d of %d requested simulations.\n",
		strings.ToUpper(string(r.Method)), r.Evaluated, r.NSim)
	if r.Power.Defined {
		fmt.Fprintf(&b, "Power: %.4f (%.0f%% CI %.4f to %.4f), alpha = %v.\n",
			r.Power.Value, (1-r.Alpha)*100, r.Power.Lower, r.Power.Upper, r.Alpha)
	} else {
		fmt.Fprintf(&b, "Power: no data (no converged iterations), alpha = %v.\n", r.Alpha)
	}
	fmt.Fprintf(&b, "Convergence rate: %.4f.", r.ConvergenceRate)
	if reason, ok := r.Termination.Aborted(); ok {
		fmt.Fprintf(&b, " Run aborted early: %s.", reason)
	}
	for _, reason := range r.Suppressed {
		fmt.Fprintf(&b, " Suppressed abort condition: %s.", reason)
	}
	return b.String()
}
