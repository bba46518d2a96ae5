// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package designs

import (
	"context"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	crtpower "github.com/petenewcomb/crtpower-go"
)

// DiffInDiffConfig describes a two-arm, two-period difference-in-differences
// design: every cluster is measured before and after, and only treatment-arm
// clusters are exposed in the second period.
type DiffInDiffConfig struct {
	// Clusters is the number of clusters randomized to each arm.
	Clusters int
	// Subjects is the number of subjects observed per cluster per period.
	Subjects int
	// BaselineMean is the control-arm, first-period outcome mean.
	BaselineMean float64
	// TimeEffect is the secular change from the first to the second period,
	// common to both arms.
	TimeEffect float64
	// Effect is the treatment effect, carried by the exposed cluster-periods
	// only.
	Effect float64
	// ClusterSD is the between-cluster standard deviation of the random
	// intercept, shared across periods within a cluster.
	ClusterSD float64
	// ResidualSD is the within-cluster standard deviation.
	ResidualSD float64
}

// DiffInDiff generates datasets for a difference-in-differences design.
// Construct with [NewDiffInDiff].
type DiffInDiff struct {
	cfg DiffInDiffConfig
}

// NewDiffInDiff validates the configuration.
func NewDiffInDiff(cfg DiffInDiffConfig) (*DiffInDiff, error) {
	if cfg.Clusters < 1 {
		return nil, fmt.Errorf("designs: clusters per arm must be positive, got %d", cfg.Clusters)
	}
	if cfg.Subjects < 1 {
		return nil, fmt.Errorf("designs: subjects per cluster must be positive, got %d", cfg.Subjects)
	}
	if cfg.ResidualSD <= 0 {
		return nil, fmt.Errorf("designs: residual SD must be positive, got %v", cfg.ResidualSD)
	}
	if cfg.ClusterSD < 0 {
		return nil, fmt.Errorf("designs: cluster SD must be non-negative, got %v", cfg.ClusterSD)
	}
	return &DiffInDiff{cfg: cfg}, nil
}

// Generate synthesizes one dataset. The cluster random intercept persists
// across both periods, which is what gives the within-cluster differencing
// its power.
func (g *DiffInDiff) Generate(_ context.Context, _ int, rng *rand.Rand) (*crtpower.Dataset, error) {
	n := 2 * 2 * g.cfg.Clusters * g.cfg.Subjects
	d := &crtpower.Dataset{
		Response: make([]float64, 0, n),
		Arm:      make([]int, 0, n),
		Treat:    make([]int, 0, n),
		Cluster:  make([]int, 0, n),
		Period:   make([]int, 0, n),
	}
	re := distuv.Normal{Mu: 0, Sigma: g.cfg.ClusterSD, Src: rng}
	resid := distuv.Normal{Mu: 0, Sigma: g.cfg.ResidualSD, Src: rng}
	cluster := 0
	for arm := range 2 {
		for range g.cfg.Clusters {
			intercept := 0.0
			if g.cfg.ClusterSD > 0 {
				intercept = re.Rand()
			}
			for period := range 2 {
				treat := 0
				if arm == 1 && period == 1 {
					treat = 1
				}
				mean := g.cfg.BaselineMean + intercept +
					float64(period)*g.cfg.TimeEffect +
					float64(treat)*g.cfg.Effect
				for range g.cfg.Subjects {
					d.Response = append(d.Response, mean+resid.Rand())
					d.Arm = append(d.Arm, arm)
					d.Treat = append(d.Treat, treat)
					d.Cluster = append(d.Cluster, cluster)
					d.Period = append(d.Period, period)
				}
			}
			cluster++
		}
	}
	return d, nil
}
