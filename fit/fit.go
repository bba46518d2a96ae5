// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package fit provides model fitters satisfying the engine's contract: each
// returns an effect estimate, standard error, test statistic, p-value, and a
// convergence flag, and reports ordinary non-convergence as a normal result
// rather than an error.
package fit

import (
	"fmt"

	crtpower "github.com/petenewcomb/crtpower-go"
)

// New returns the fitter implementing the given method selector.
func New(method crtpower.Method) (crtpower.ModelFitter, error) {
	switch method {
	case crtpower.GEE:
		return &GEE{}, nil
	case crtpower.GLMM:
		return &GLMM{}, nil
	default:
		return nil, fmt.Errorf("fit: unknown method %q", method)
	}
}
