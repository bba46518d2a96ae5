// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import "fmt"

type constError string

func (e constError) Error() string {
	return string(e)
}

// ErrTransientFit marks a fitter error as transient. The orchestrator retries
// a fit whose error matches ErrTransientFit (via [errors.Is]) once before
// recording the iteration as non-converged. Any other error from a fitter or
// generator is treated as a collaborator fault and fails the whole run.
const ErrTransientFit = constError("transient fit failure")

const ErrNilGenerator = constError("dataset generator must be non-nil")
const ErrNilFitter = constError("model fitter must be non-nil")

// A ValidationError describes a rejected configuration field. Validation
// happens before any simulation starts; a ValidationError is never produced
// mid-run.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// A FaultError wraps an error raised by a collaborator (generator or fitter)
// on malformed input. It is distinct from per-iteration non-convergence,
// which is a normal result, and from policy aborts, which are termination
// reasons rather than errors.
type FaultError struct {
	Iteration int
	Stage     string // "generate" or "fit"
	Err       error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("iteration %d: %s fault: %v", e.Iteration, e.Stage, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}
