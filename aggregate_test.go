// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestWilsonIntervalProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)

		n := rapid.IntRange(1, 10000).Draw(t, "n")
		k := rapid.IntRange(0, n).Draw(t, "k")
		alpha := rapid.Float64Range(0.001, 0.5).Draw(t, "alpha")

		p := float64(k) / float64(n)
		lower, upper := wilsonInterval(k, n, alpha)
		chk.GreaterOrEqual(lower, 0.0)
		chk.LessOrEqual(upper, 1.0)
		chk.LessOrEqual(lower, p+1e-12)
		chk.GreaterOrEqual(upper, p-1e-12)

		// Doubling the sample at the same proportion must not widen the
		// interval.
		lower2, upper2 := wilsonInterval(2*k, 2*n, alpha)
		chk.LessOrEqual(upper2-lower2, upper-lower+1e-12)
	})
}

func TestWilsonIntervalDegenerateProportions(t *testing.T) {
	chk := require.New(t)

	lower, upper := wilsonInterval(0, 20, 0.05)
	chk.Zero(lower)
	chk.Greater(upper, 0.0)

	lower, upper = wilsonInterval(20, 20, 0.05)
	chk.Less(lower, 1.0)
	chk.InDelta(1.0, upper, 1e-12)
}

func TestAggregateSummaries(t *testing.T) {
	chk := require.New(t)

	cfg := &SimulationConfig{NSim: 4, Alpha: 0.05, Method: GLMM}
	s := &runState{nsim: 4, termination: TerminationCompleted}
	add := func(converged, significant bool, estimate, icc float64) {
		fr := FitResult{Estimate: estimate, Converged: converged}
		if converged {
			fr.Aux = map[string]float64{"icc.anova": icc}
		}
		s.results = append(s.results, IterationResult{
			Iteration:   len(s.results),
			Fit:         fr,
			Significant: significant,
		})
		if converged {
			s.converged++
		}
		if significant {
			s.significant++
		}
	}
	add(true, true, 2, 0.1)
	add(true, false, 4, 0.3)
	add(false, false, 99, 0) // excluded from every summary
	add(true, true, 6, 0.2)

	r := aggregate(cfg, s)
	chk.Equal(4, r.Evaluated)
	chk.InDelta(0.75, r.ConvergenceRate, 1e-12)
	chk.True(r.Power.Defined)
	chk.InDelta(2.0/3.0, r.Power.Value, 1e-12)
	chk.InDelta(4.0, r.MeanEstimate, 1e-12)
	chk.InDelta(0.2, r.AuxMeans["icc.anova"], 1e-12)
}

func TestAggregateNoConvergedIterations(t *testing.T) {
	chk := require.New(t)

	cfg := &SimulationConfig{NSim: 2, Alpha: 0.05, Method: GEE}
	s := &runState{nsim: 2, termination: TerminationCompleted}
	s.results = []IterationResult{{Iteration: 0}, {Iteration: 1}}

	r := aggregate(cfg, s)
	chk.False(r.Power.Defined)
	chk.Zero(r.ConvergenceRate)
	chk.Nil(r.AuxMeans)
}

func TestPowerReportOverview(t *testing.T) {
	chk := require.New(t)

	r := &PowerReport{
		NSim:            100,
		Evaluated:       51,
		Method:          GEE,
		Alpha:           0.05,
		Power:           PowerEstimate{Value: 0.2, Lower: 0.1, Upper: 0.3, Defined: true},
		ConvergenceRate: 1,
		Termination:     abortTermination(AbortLowPower),
	}
	s := r.Overview()
	chk.Contains(s, "GEE")
	chk.Contains(s, "51 of 100")
	chk.Contains(s, "aborted early: low-power")

	r.Power = PowerEstimate{}
	s = r.Overview()
	chk.Contains(s, "no data")
}
