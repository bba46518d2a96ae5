// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// aggregate folds the run state into the final report. It is called exactly
// once per run, after the loop ends for any reason.
func aggregate(cfg *SimulationConfig, s *runState) *PowerReport {
	r := &PowerReport{
		NSim:        cfg.NSim,
		Evaluated:   s.evaluated(),
		Method:      cfg.Method,
		Alpha:       cfg.Alpha,
		Results:     s.results,
		Termination: s.termination,
		Suppressed:  s.suppressed,
		Datasets:    s.datasets,
	}
	if r.Evaluated > 0 {
		r.ConvergenceRate = float64(s.converged) / float64(r.Evaluated)
	}
	if s.converged == 0 {
		return r
	}

	power := float64(s.significant) / float64(s.converged)
	lower, upper := wilsonInterval(s.significant, s.converged, cfg.Alpha)
	r.Power = PowerEstimate{Value: power, Lower: lower, Upper: upper, Defined: true}

	estimates := make([]float64, 0, s.converged)
	auxSums := make(map[string][]float64)
	for _, res := range s.results {
		if !res.Fit.Converged {
			continue
		}
		estimates = append(estimates, res.Fit.Estimate)
		for k, v := range res.Fit.Aux {
			auxSums[k] = append(auxSums[k], v)
		}
	}
	r.MeanEstimate = stat.Mean(estimates, nil)
	if len(auxSums) > 0 {
		r.AuxMeans = make(map[string]float64, len(auxSums))
		for k, vs := range auxSums {
			r.AuxMeans[k] = stat.Mean(vs, nil)
		}
	}
	return r
}

// wilsonInterval returns the Wilson score interval for k successes out of n
// trials at confidence 1-alpha. Unlike the Wald interval it stays within
// [0,1], always brackets the point estimate, and widens as n shrinks.
func wilsonInterval(k, n int, alpha float64) (lower, upper float64) {
	p := float64(k) / float64(n)
	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	nf := float64(n)
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	lower = max(0, center-half)
	upper = min(1, center+half)
	return lower, upper
}
