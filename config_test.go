// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThresholdsDefaults(t *testing.T) {
	chk := require.New(t)

	th := Thresholds{}.withDefaults()
	chk.Equal(50, th.MinSample)
	chk.Equal(10, th.CheckInterval)
	chk.Equal(0.25, th.MaxNonconvergence)
	chk.Equal(0.5, th.MinInterimPower)
	chk.Equal(10, th.TimeSample)
	chk.Equal(2*time.Minute, th.TimeBudget)

	// Explicit values survive.
	th = Thresholds{MinSample: 5, TimeBudget: time.Second}.withDefaults()
	chk.Equal(5, th.MinSample)
	chk.Equal(time.Second, th.TimeBudget)
	chk.Equal(10, th.CheckInterval)
}

func TestConfigValidate(t *testing.T) {
	chk := require.New(t)

	valid := SimulationConfig{NSim: 10, Alpha: 0.05, Method: GLMM}
	chk.NoError(valid.Validate())

	cases := []struct {
		name   string
		mutate func(*SimulationConfig)
		field  string
	}{
		{"negative nsim", func(c *SimulationConfig) { c.NSim = -1 }, "NSim"},
		{"alpha zero", func(c *SimulationConfig) { c.Alpha = 0 }, "Alpha"},
		{"alpha one", func(c *SimulationConfig) { c.Alpha = 1 }, "Alpha"},
		{"bad method", func(c *SimulationConfig) { c.Method = "anova" }, "Method"},
		{"negative workers", func(c *SimulationConfig) { c.Workers = -2 }, "Workers"},
		{"bad fraction", func(c *SimulationConfig) { c.Thresholds.MaxNonconvergence = 1.5 }, "Thresholds.MaxNonconvergence"},
		{"negative budget", func(c *SimulationConfig) { c.Thresholds.TimeBudget = -time.Second }, "Thresholds.TimeBudget"},
	}
	for _, tc := range cases {
		cfg := valid
		tc.mutate(&cfg)
		err := cfg.Validate()
		chk.Error(err, tc.name)
		var verr *ValidationError
		chk.True(errors.As(err, &verr), tc.name)
		chk.Equal(tc.field, verr.Field, tc.name)
	}
}

func TestConfigValidateReportsAllViolations(t *testing.T) {
	chk := require.New(t)

	cfg := SimulationConfig{NSim: -1, Alpha: 2, Method: "bogus"}
	err := cfg.Validate()
	chk.Error(err)
	var joined interface{ Unwrap() []error }
	chk.True(errors.As(err, &joined))
	chk.Len(joined.Unwrap(), 3)
}
