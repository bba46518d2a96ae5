// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package fit

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	crtpower "github.com/petenewcomb/crtpower-go"
)

// GEE fits the treatment effect by least squares with a cluster-robust (CR0
// sandwich) standard error, the working-independence special case of
// generalized estimating equations. The design matrix is an intercept, the
// treatment exposure indicator, and fixed effects for each period beyond the
// first when the dataset is longitudinal. The test statistic is the Wald z
// for the exposure coefficient.
//
// Non-convergence is reported for rank-deficient design matrices and for
// degenerate sandwich variances; neither is an error.
type GEE struct{}

func (f *GEE) Fit(_ context.Context, d *crtpower.Dataset) (crtpower.FitResult, error) {
	n := d.N()
	if n == 0 {
		return crtpower.FitResult{}, nil
	}

	periods := 0
	for _, p := range d.Period {
		if p+1 > periods {
			periods = p + 1
		}
	}
	cols := 2
	if periods > 1 {
		cols += periods - 1
	}
	if n <= cols {
		return crtpower.FitResult{}, nil
	}

	X := mat.NewDense(n, cols, nil)
	y := mat.NewVecDense(n, nil)
	for i := range n {
		X.Set(i, 0, 1)
		X.Set(i, 1, float64(d.Treat[i]))
		if periods > 1 && d.Period[i] > 0 {
			X.Set(i, 1+d.Period[i], 1)
		}
		y.SetVec(i, d.Response[i])
	}

	var qr mat.QR
	qr.Factorize(X)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return crtpower.FitResult{}, nil
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)
	resid := make([]float64, n)
	for i := range n {
		resid[i] = y.AtVec(i) - fitted.AtVec(i)
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var bread mat.Dense
	if err := bread.Inverse(&xtx); err != nil {
		return crtpower.FitResult{}, nil
	}

	// Sandwich meat: sum over clusters of the outer product of the
	// cluster's score contribution.
	scores := make(map[int][]float64)
	for i := range n {
		s := scores[d.Cluster[i]]
		if s == nil {
			s = make([]float64, cols)
			scores[d.Cluster[i]] = s
		}
		for j := range cols {
			s[j] += X.At(i, j) * resid[i]
		}
	}
	meat := mat.NewDense(cols, cols, nil)
	for _, s := range scores {
		for j := range cols {
			for k := range cols {
				meat.Set(j, k, meat.At(j, k)+s[j]*s[k])
			}
		}
	}

	var tmp, v mat.Dense
	tmp.Mul(&bread, meat)
	v.Mul(&tmp, &bread)

	estimate := beta.AtVec(1)
	variance := v.At(1, 1)
	if !(variance > 0) || math.IsInf(variance, 0) || math.IsNaN(estimate) {
		return crtpower.FitResult{}, nil
	}
	se := math.Sqrt(variance)
	z := estimate / se
	p := 2 * distuv.UnitNormal.CDF(-math.Abs(z))

	return crtpower.FitResult{
		Estimate:  estimate,
		StdErr:    se,
		Statistic: z,
		PValue:    p,
		Converged: true,
	}, nil
}
