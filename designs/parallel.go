// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package designs provides dataset generators for the trial designs the
// engine is commonly used with: two-arm or multi-arm parallel designs with
// gaussian or binary outcomes, difference-in-differences, and stepped-wedge.
// Each generator draws only from the per-iteration random stream handed to
// it, so generation is reproducible and independent of iteration scheduling.
package designs

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	crtpower "github.com/petenewcomb/crtpower-go"
)

// ParallelConfig describes a parallel cluster-randomized design with a
// gaussian outcome. Treatment arms may carry distinct effects and distinct
// between-cluster standard deviations; scalar convenience fields cover the
// common homogeneous case.
type ParallelConfig struct {
	// Arms is the number of arms including control. Zero means two.
	Arms int
	// Clusters is the number of clusters randomized to each arm.
	Clusters int
	// Subjects is the number of subjects observed per cluster.
	Subjects int
	// BaselineMean is the control-arm outcome mean.
	BaselineMean float64
	// Effects is the treatment effect per non-control arm. A single element
	// is broadcast across arms.
	Effects []float64
	// ClusterSD is the between-cluster standard deviation per arm (control
	// first). A single element is broadcast across arms.
	ClusterSD []float64
	// ResidualSD is the within-cluster standard deviation.
	ResidualSD float64
}

// Parallel generates datasets for a parallel design. Construct with
// [NewParallel].
type Parallel struct {
	cfg       ParallelConfig
	shape     ModelShape
	effects   []float64 // per arm including control (zero)
	clusterSD []float64 // per arm
}

// NewParallel validates the configuration, broadcasts scalar parameters
// across arms, and resolves the design's [ModelShape] once, before any
// simulation loop runs.
func NewParallel(cfg ParallelConfig) (*Parallel, error) {
	if cfg.Arms == 0 {
		cfg.Arms = 2
	}
	if cfg.Arms < 2 {
		return nil, fmt.Errorf("designs: parallel design needs at least 2 arms, got %d", cfg.Arms)
	}
	if cfg.Clusters < 1 {
		return nil, fmt.Errorf("designs: clusters per arm must be positive, got %d", cfg.Clusters)
	}
	if cfg.Subjects < 1 {
		return nil, fmt.Errorf("designs: subjects per cluster must be positive, got %d", cfg.Subjects)
	}
	if cfg.ResidualSD <= 0 {
		return nil, fmt.Errorf("designs: residual SD must be positive, got %v", cfg.ResidualSD)
	}
	effects, err := broadcast(cfg.Effects, cfg.Arms-1, "effects")
	if err != nil {
		return nil, err
	}
	clusterSD, err := broadcast(cfg.ClusterSD, cfg.Arms, "cluster SD")
	if err != nil {
		return nil, err
	}
	for _, sd := range clusterSD {
		if sd < 0 {
			return nil, fmt.Errorf("designs: cluster SD must be non-negative, got %v", sd)
		}
	}
	return &Parallel{
		cfg:       cfg,
		shape:     ResolveShape(effects, clusterSD),
		effects:   append([]float64{0}, effects...),
		clusterSD: clusterSD,
	}, nil
}

// Shape reports the design's resolved shape.
func (p *Parallel) Shape() ModelShape {
	return p.shape
}

// Generate synthesizes one dataset: a random intercept per cluster plus
// independent residual noise per subject.
func (p *Parallel) Generate(_ context.Context, _ int, rng *rand.Rand) (*crtpower.Dataset, error) {
	n := p.cfg.Arms * p.cfg.Clusters * p.cfg.Subjects
	d := &crtpower.Dataset{
		Response: make([]float64, 0, n),
		Arm:      make([]int, 0, n),
		Treat:    make([]int, 0, n),
		Cluster:  make([]int, 0, n),
	}
	resid := distuv.Normal{Mu: 0, Sigma: p.cfg.ResidualSD, Src: rng}
	cluster := 0
	for arm := range p.cfg.Arms {
		re := distuv.Normal{Mu: 0, Sigma: p.clusterSD[arm], Src: rng}
		mean := p.cfg.BaselineMean + p.effects[arm]
		treat := 0
		if arm > 0 {
			treat = 1
		}
		for range p.cfg.Clusters {
			intercept := 0.0
			if p.clusterSD[arm] > 0 {
				intercept = re.Rand()
			}
			for range p.cfg.Subjects {
				d.Response = append(d.Response, mean+intercept+resid.Rand())
				d.Arm = append(d.Arm, arm)
				d.Treat = append(d.Treat, treat)
				d.Cluster = append(d.Cluster, cluster)
			}
			cluster++
		}
	}
	return d, nil
}

// ParallelBinaryConfig describes a two-arm parallel design with a binary
// outcome modeled on the log-odds scale.
type ParallelBinaryConfig struct {
	// Clusters is the number of clusters randomized to each arm.
	Clusters int
	// Subjects is the number of subjects observed per cluster.
	Subjects int
	// BaselineProb is the control-arm outcome probability.
	BaselineProb float64
	// OddsRatio is the treatment odds ratio. The treatment-arm probability
	// is derived from it and BaselineProb.
	OddsRatio float64
	// ClusterSD is the between-cluster standard deviation of the random
	// intercept on the log-odds scale.
	ClusterSD float64
}

// ParallelBinary generates datasets for a binary-outcome parallel design.
// Construct with [NewParallelBinary].
type ParallelBinary struct {
	cfg        ParallelBinaryConfig
	logitUnder [2]float64 // baseline log-odds per arm
}

// NewParallelBinary validates the configuration and derives the per-arm
// log-odds from the baseline probability and odds ratio.
func NewParallelBinary(cfg ParallelBinaryConfig) (*ParallelBinary, error) {
	if cfg.Clusters < 1 {
		return nil, fmt.Errorf("designs: clusters per arm must be positive, got %d", cfg.Clusters)
	}
	if cfg.Subjects < 1 {
		return nil, fmt.Errorf("designs: subjects per cluster must be positive, got %d", cfg.Subjects)
	}
	if !(cfg.BaselineProb > 0 && cfg.BaselineProb < 1) {
		return nil, fmt.Errorf("designs: baseline probability must lie in (0,1), got %v", cfg.BaselineProb)
	}
	if cfg.OddsRatio <= 0 {
		return nil, fmt.Errorf("designs: odds ratio must be positive, got %v", cfg.OddsRatio)
	}
	if cfg.ClusterSD < 0 {
		return nil, fmt.Errorf("designs: cluster SD must be non-negative, got %v", cfg.ClusterSD)
	}
	base := math.Log(cfg.BaselineProb / (1 - cfg.BaselineProb))
	return &ParallelBinary{
		cfg:        cfg,
		logitUnder: [2]float64{base, base + math.Log(cfg.OddsRatio)},
	}, nil
}

// Generate synthesizes one dataset: a gaussian random intercept per cluster
// on the log-odds scale, then a Bernoulli draw per subject.
func (p *ParallelBinary) Generate(_ context.Context, _ int, rng *rand.Rand) (*crtpower.Dataset, error) {
	n := 2 * p.cfg.Clusters * p.cfg.Subjects
	d := &crtpower.Dataset{
		Response: make([]float64, 0, n),
		Arm:      make([]int, 0, n),
		Treat:    make([]int, 0, n),
		Cluster:  make([]int, 0, n),
	}
	re := distuv.Normal{Mu: 0, Sigma: p.cfg.ClusterSD, Src: rng}
	cluster := 0
	for arm := range 2 {
		for range p.cfg.Clusters {
			intercept := 0.0
			if p.cfg.ClusterSD > 0 {
				intercept = re.Rand()
			}
			prob := logistic(p.logitUnder[arm] + intercept)
			bern := distuv.Bernoulli{P: prob, Src: rng}
			for range p.cfg.Subjects {
				d.Response = append(d.Response, bern.Rand())
				d.Arm = append(d.Arm, arm)
				d.Treat = append(d.Treat, arm)
				d.Cluster = append(d.Cluster, cluster)
			}
			cluster++
		}
	}
	return d, nil
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func broadcast(xs []float64, n int, what string) ([]float64, error) {
	switch len(xs) {
	case n:
		out := make([]float64, n)
		copy(out, xs)
		return out, nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = xs[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("designs: %s must have 1 or %d elements, got %d", what, n, len(xs))
	}
}
