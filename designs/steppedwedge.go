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

// SteppedWedgeConfig describes a stepped-wedge design: all clusters start
// under control and cross over to treatment in waves, one wave per step,
// until every cluster is exposed in the final period.
type SteppedWedgeConfig struct {
	// Clusters is the total number of clusters. Must be divisible by Steps
	// so the crossover waves are balanced.
	Clusters int
	// Subjects is the number of subjects observed per cluster per period.
	Subjects int
	// Steps is the number of crossover waves. The design has Steps+1
	// measurement periods.
	Steps int
	// BaselineMean is the unexposed outcome mean in the first period.
	BaselineMean float64
	// TimeEffect is the secular change per period, common to all clusters.
	TimeEffect float64
	// Effect is the treatment effect carried by exposed cluster-periods.
	Effect float64
	// ClusterSD is the between-cluster standard deviation of the random
	// intercept, shared across periods within a cluster.
	ClusterSD float64
	// ResidualSD is the within-cluster standard deviation.
	ResidualSD float64
}

// SteppedWedge generates datasets for a stepped-wedge design. Construct with
// [NewSteppedWedge].
type SteppedWedge struct {
	cfg     SteppedWedgeConfig
	periods int
	wave    int // clusters per crossover wave
}

// NewSteppedWedge validates the configuration and fixes the crossover
// schedule.
func NewSteppedWedge(cfg SteppedWedgeConfig) (*SteppedWedge, error) {
	if cfg.Steps < 1 {
		return nil, fmt.Errorf("designs: steps must be positive, got %d", cfg.Steps)
	}
	if cfg.Clusters < cfg.Steps || cfg.Clusters%cfg.Steps != 0 {
		return nil, fmt.Errorf("designs: clusters (%d) must be a positive multiple of steps (%d)", cfg.Clusters, cfg.Steps)
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
	return &SteppedWedge{
		cfg:     cfg,
		periods: cfg.Steps + 1,
		wave:    cfg.Clusters / cfg.Steps,
	}, nil
}

// Generate synthesizes one dataset. Cluster c (zero-based) crosses over at
// period 1+c/wave, so period 0 is all-control and the final period is
// all-treatment.
func (g *SteppedWedge) Generate(_ context.Context, _ int, rng *rand.Rand) (*crtpower.Dataset, error) {
	n := g.cfg.Clusters * g.periods * g.cfg.Subjects
	d := &crtpower.Dataset{
		Response: make([]float64, 0, n),
		Arm:      make([]int, 0, n),
		Treat:    make([]int, 0, n),
		Cluster:  make([]int, 0, n),
		Period:   make([]int, 0, n),
	}
	re := distuv.Normal{Mu: 0, Sigma: g.cfg.ClusterSD, Src: rng}
	resid := distuv.Normal{Mu: 0, Sigma: g.cfg.ResidualSD, Src: rng}
	for cluster := range g.cfg.Clusters {
		intercept := 0.0
		if g.cfg.ClusterSD > 0 {
			intercept = re.Rand()
		}
		crossover := 1 + cluster/g.wave
		for period := range g.periods {
			treat := 0
			if period >= crossover {
				treat = 1
			}
			mean := g.cfg.BaselineMean + intercept +
				float64(period)*g.cfg.TimeEffect +
				float64(treat)*g.cfg.Effect
			for range g.cfg.Subjects {
				d.Response = append(d.Response, mean+resid.Rand())
				d.Arm = append(d.Arm, treat)
				d.Treat = append(d.Treat, treat)
				d.Cluster = append(d.Cluster, cluster)
				d.Period = append(d.Period, period)
			}
		}
	}
	return d, nil
}
