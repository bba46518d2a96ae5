// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	crtpower "github.com/petenewcomb/crtpower-go"
)

func TestWriterReporterEvery(t *testing.T) {
	chk := require.New(t)

	var buf strings.Builder
	rep := &crtpower.WriterReporter{W: &buf, Every: 10}
	for i := range 25 {
		rep.Report(crtpower.ProgressEvent{Iteration: i, Total: 25, Converged: true})
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Iterations 10, 20, and the final 25.
	chk.Len(lines, 3)
	chk.Contains(lines[0], "10/25")
	chk.Contains(lines[2], "25/25")
}

func TestMemoryReporterRing(t *testing.T) {
	chk := require.New(t)

	rep := &crtpower.MemoryReporter{Cap: 3}
	for i := range 10 {
		rep.Report(crtpower.ProgressEvent{Iteration: i})
	}
	events := rep.Events()
	chk.Len(events, 3)
	chk.Equal(7, events[0].Iteration)
	chk.Equal(9, events[2].Iteration)

	unbounded := &crtpower.MemoryReporter{}
	for i := range 10 {
		unbounded.Report(crtpower.ProgressEvent{Iteration: i})
	}
	chk.Len(unbounded.Events(), 10)
}

func TestNopReporter(t *testing.T) {
	// Must simply not panic.
	crtpower.NopReporter{}.Report(crtpower.ProgressEvent{})
}
