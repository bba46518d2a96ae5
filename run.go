// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/petenewcomb/crtpower-go/internal/fanout"
)

// maxFitAttempts bounds the retry loop for transient fit failures. The retry
// state is local to one iteration and never leaks across iterations.
const maxFitAttempts = 2

// runState is the mutable state of one run, owned by a single call to [Run].
// All mutation happens in the orchestrating goroutine; workers only ever see
// the read-only configuration.
type runState struct {
	nsim        int
	results     []IterationResult
	converged   int
	significant int
	startTime   time.Time
	termination Termination
	suppressed  []AbortReason
	datasets    []*Dataset
}

func (s *runState) evaluated() int {
	return len(s.results)
}

// terminate records the termination reason. The first reason wins; later
// calls are ignored so the reason is set exactly once.
func (s *runState) terminate(t Termination) {
	if s.termination == "" {
		s.termination = t
	}
}

func (s *runState) suppress(reason AbortReason) {
	if !slices.Contains(s.suppressed, reason) {
		s.suppressed = append(s.suppressed, reason)
	}
}

type runner struct {
	cfg       *SimulationConfig
	gen       DatasetGenerator
	fitter    ModelFitter
	seed      uint64
	state     *runState
	monitors  []monitor
	overrides map[AbortReason]bool
}

// iterationOutcome bundles what one iteration hands back to the orchestrator.
// The dataset is non-nil only when the run retains datasets.
type iterationOutcome struct {
	res     IterationResult
	dataset *Dataset
}

// Run executes a power simulation: up to cfg.NSim iterations of dataset
// generation and model fitting, watched by the early-stop monitors, folded
// into a [PowerReport].
//
// A policy abort is not an error: the returned report carries the abort
// reason in its Termination field alongside the partial result set. Run
// returns a nil report only for invalid configuration, a collaborator fault,
// or cancellation of ctx.
//
// Run is synchronous. When cfg.Workers requests parallelism the generate and
// fit steps fan out across a worker pool, but monitor evaluation, result
// recording, and progress reporting stay in the calling goroutine and
// process results in strict iteration order, so a seeded parallel run yields
// the same report as a sequential one.
func Run(ctx context.Context, cfg SimulationConfig, gen DatasetGenerator, fitter ModelFitter) (*PowerReport, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}
	if fitter == nil {
		return nil, ErrNilFitter
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	th := cfg.Thresholds.withDefaults()
	cfg.Thresholds = th

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	monitors := []monitor{
		&convergenceTracker{minSample: th.MinSample, maxFraction: th.MaxNonconvergence},
		&powerMonitor{minSample: th.MinSample, interval: th.CheckInterval, floor: th.MinInterimPower},
	}
	if cfg.EnforceTimeLimit {
		monitors = append(monitors, &runtimeEstimator{sample: th.TimeSample, budget: th.TimeBudget, now: time.Now})
	}

	r := &runner{
		cfg:      &cfg,
		gen:      gen,
		fitter:   fitter,
		seed:     seed,
		state:    &runState{nsim: cfg.NSim, startTime: time.Now()},
		monitors: monitors,
		overrides: map[AbortReason]bool{
			AbortExcessNonconvergence: cfg.PoorFitOverride,
			AbortLowPower:             cfg.LowPowerOverride,
		},
	}

	var err error
	if cfg.Workers > 1 {
		err = r.runParallel(ctx)
	} else {
		err = r.runSequential(ctx)
	}
	if err != nil {
		return nil, err
	}
	r.state.terminate(TerminationCompleted)
	return aggregate(&cfg, r.state), nil
}

func (r *runner) runSequential(ctx context.Context) error {
	for i := range r.cfg.NSim {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := r.iterate(ctx, i)
		if err != nil {
			return err
		}
		if r.record(out) {
			return nil
		}
	}
	return nil
}

// runParallel fans iterations out across a fixed-size pool. A launcher
// goroutine feeds the pool while the orchestrator consumes completions
// re-sequenced into iteration order, preserving the monitors' "after
// iteration i" semantics. Iterations completed beyond an abort point are
// discarded, matching where a sequential run would have stopped.
func (r *runner) runParallel(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := fanout.New[iterationOutcome](ctx, r.cfg.Workers)
	defer pool.Close()

	go func() {
		for i := range r.cfg.NSim {
			err := pool.Launch(ctx, i, func(ctx context.Context) (iterationOutcome, error) {
				return r.iterate(ctx, i)
			})
			if err != nil {
				// Cancellation; the orchestrator already knows why.
				return
			}
		}
	}()

	for range r.cfg.NSim {
		_, out, err := pool.Next(ctx)
		if err != nil {
			return err
		}
		if r.record(out) {
			return nil
		}
	}
	return nil
}

// iterate performs one generate-then-fit sequence. Transient fit failures are
// retried up to maxFitAttempts total and then recorded as non-convergence;
// any other collaborator error is returned as a fatal [FaultError].
func (r *runner) iterate(ctx context.Context, i int) (iterationOutcome, error) {
	rng := rand.New(rand.NewPCG(r.seed, uint64(i)))
	ds, err := r.gen.Generate(ctx, i, rng)
	if err != nil {
		return iterationOutcome{}, &FaultError{Iteration: i, Stage: "generate", Err: err}
	}

	var fr FitResult
	for attempt := 1; ; attempt++ {
		fr, err = r.fitter.Fit(ctx, ds)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTransientFit) {
			return iterationOutcome{}, &FaultError{Iteration: i, Stage: "fit", Err: err}
		}
		if attempt >= maxFitAttempts {
			fr = FitResult{Converged: false}
			break
		}
	}

	out := iterationOutcome{
		res: IterationResult{
			Iteration:   i,
			Fit:         fr,
			Significant: fr.Converged && fr.PValue < r.cfg.Alpha,
		},
	}
	if r.cfg.RetainAllDatasets {
		out.dataset = ds
	}
	return out, nil
}

// record appends one iteration's outcome to the run state, emits progress,
// and consults the monitors. It returns true when a monitor's abort request
// stands, after marking the termination reason.
func (r *runner) record(out iterationOutcome) bool {
	s := r.state
	s.results = append(s.results, out.res)
	if out.res.Fit.Converged {
		s.converged++
	}
	if out.res.Significant {
		s.significant++
	}
	if out.dataset != nil {
		s.datasets = append(s.datasets, out.dataset)
	}

	if r.cfg.Progress != nil {
		r.cfg.Progress.Report(ProgressEvent{
			Iteration:   out.res.Iteration,
			Total:       s.nsim,
			Converged:   out.res.Fit.Converged,
			Significant: out.res.Significant,
		})
	}

	if s.evaluated() == s.nsim {
		// The run is complete; there are no iterations left for an abort to
		// save.
		return false
	}
	for _, m := range r.monitors {
		reason, fired := m.observe(s)
		if !fired {
			continue
		}
		if r.overrides[reason] {
			s.suppress(reason)
			continue
		}
		s.terminate(abortTermination(reason))
		return true
	}
	return false
}
