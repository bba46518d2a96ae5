// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package crtpower estimates statistical power for cluster-randomized trial
// designs by repeated Monte Carlo simulation. For each of a configured number
// of iterations it asks an injected [DatasetGenerator] to synthesize a dataset
// consistent with the trial design, asks an injected [ModelFitter] to test the
// treatment effect, and aggregates the fraction of significant results into a
// power estimate with a binomial confidence interval.
//
// The engine treats its collaborators as capabilities: the generator and
// fitter are interfaces, and fit non-convergence is a normal return value
// rather than an error. Three monitors watch the running history and may
// terminate the loop early: a convergence tracker (too many non-converged
// fits), a power monitor (interim power too low to be worth finishing), and a
// runtime budget estimator (projected wall-clock time over a ceiling). The
// statistical monitors can be suppressed by per-monitor overrides in
// [SimulationConfig]; the runtime estimator is opt-in via EnforceTimeLimit.
// A policy abort is not a failure: the call still returns a best-effort
// [PowerReport] carrying a named termination reason.
//
// When a seed is set, per-iteration random streams are derived from the seed
// and the iteration index, so a run is reproducible and, when parallel
// execution is requested, independent of worker scheduling. Parallel runs fan
// dataset generation and model fitting out across a fixed pool of workers but
// evaluate monitors over results re-sequenced into strict iteration order, so
// a seeded parallel run produces the same report as the sequential one.
//
// The designs and fit subpackages provide working collaborator
// implementations for common designs (parallel, difference-in-differences,
// stepped-wedge) and fitting approaches (GEE-style cluster-robust least
// squares, GLMM-style cluster-level analysis). The engine itself depends only
// on the interfaces defined here.
package crtpower
