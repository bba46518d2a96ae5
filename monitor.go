// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import "time"

// A monitor inspects the run state once per completed iteration, in strict
// iteration order, and may request a policy abort. Monitors do not act on
// override flags; the orchestrator decides whether a fired condition aborts
// the loop or is merely recorded.
type monitor interface {
	observe(s *runState) (AbortReason, bool)
}

// convergenceTracker enforces the non-convergence budget. Below minSample
// iterations the running convergence rate is too noisy to act on; past it, a
// non-converged count exceeding maxFraction of the requested iterations flags
// a design or parameter misspecification rather than a null simulation.
type convergenceTracker struct {
	minSample   int
	maxFraction float64
}

func (m *convergenceTracker) observe(s *runState) (AbortReason, bool) {
	i := s.evaluated()
	if i <= m.minSample {
		return "", false
	}
	nonconverged := i - s.converged
	if float64(nonconverged) > m.maxFraction*float64(s.nsim) {
		return AbortExcessNonconvergence, true
	}
	return "", false
}

// powerMonitor evaluates the running proportion of significant results among
// converged iterations, starting one iteration past minSample and every
// interval iterations thereafter. A proportion below floor signals the
// configuration cannot plausibly reach a usable power estimate. While no
// iteration has converged the proportion is undefined and the check is
// skipped; the convergence tracker covers that regime.
type powerMonitor struct {
	minSample int
	interval  int
	floor     float64
}

func (m *powerMonitor) observe(s *runState) (AbortReason, bool) {
	i := s.evaluated()
	if i <= m.minSample || (i-m.minSample-1)%m.interval != 0 {
		return "", false
	}
	if s.converged == 0 {
		return "", false
	}
	if float64(s.significant)/float64(s.converged) < m.floor {
		return AbortLowPower, true
	}
	return "", false
}

// runtimeEstimator measures elapsed wall-clock time over the first sample
// iterations and linearly extrapolates the full run. It fires at most once,
// at iteration sample. This is soft admission control for interactive
// callers; batch callers leave enforcement off.
type runtimeEstimator struct {
	sample int
	budget time.Duration
	now    func() time.Time
}

func (m *runtimeEstimator) observe(s *runState) (AbortReason, bool) {
	if s.evaluated() != m.sample {
		return "", false
	}
	elapsed := m.now().Sub(s.startTime)
	projected := time.Duration(float64(elapsed) / float64(m.sample) * float64(s.nsim))
	if projected > m.budget {
		return AbortTimeBudget, true
	}
	return "", false
}
