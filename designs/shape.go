// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package designs

// A ModelShape classifies a design by which of its per-arm parameters are
// numerically equal. It is resolved once when a generator is constructed,
// before the simulation loop begins, so generators and fitters never
// re-derive it per iteration.
type ModelShape int

const (
	// Heterogeneous: per-arm effects and per-arm variances both differ.
	Heterogeneous ModelShape = iota
	// HomogeneousVariance: per-arm variances are all equal, effects differ.
	HomogeneousVariance
	// HomogeneousEffect: per-arm effects are all equal, variances differ.
	HomogeneousEffect
	// FullyHomogeneous: a single effect and a single variance describe all
	// arms.
	FullyHomogeneous
)

func (s ModelShape) String() string {
	switch s {
	case Heterogeneous:
		return "heterogeneous"
	case HomogeneousVariance:
		return "homogeneous-variance"
	case HomogeneousEffect:
		return "homogeneous-effect"
	case FullyHomogeneous:
		return "fully-homogeneous"
	default:
		return "unknown"
	}
}

// ResolveShape classifies the given per-arm effect and variance parameters.
// Empty or single-element slices count as homogeneous.
func ResolveShape(effects, variances []float64) ModelShape {
	he := allEqual(effects)
	hv := allEqual(variances)
	switch {
	case he && hv:
		return FullyHomogeneous
	case he:
		return HomogeneousEffect
	case hv:
		return HomogeneousVariance
	default:
		return Heterogeneous
	}
}

func allEqual(xs []float64) bool {
	if len(xs) < 2 {
		return true
	}
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
