package density

import (
	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/kernel"
	"github.com/gekko3d/surfrecon/neighbor"
	"github.com/gekko3d/surfrecon/numeric"
)

// ParticleDensityParams bundles the inputs for evaluating each
// particle's own SPH density from its neighborhood, the step that
// precedes splatting density onto the grid (spec.md §4.3 → §4.4).
type ParticleDensityParams[R numeric.Real] struct {
	Positions            []geom.Vector3[R]
	ParticleRadius       R
	RestDensity          R
	KernelRadius         R
	EnableMultiThreading bool
	// Workers caps the goroutine fan-out of the underlying neighbor
	// search; <= 0 falls back to runtime.GOMAXPROCS(0).
	Workers int
	// Neighbors, if non-nil, is used instead of recomputing the
	// neighbor search, letting a caller that already holds a
	// workspace-owned neighbor-list buffer (from a prior neighbor.All
	// call) reuse it here rather than searching twice.
	Neighbors [][]int32
	// NeighborOut, if non-nil, is reused as the backing buffer for a
	// freshly computed neighbor search (ignored when Neighbors is set),
	// so a workspace's ParticleNeighborLists slot is filled in place
	// instead of reallocated every call (spec.md §4.8).
	NeighborOut [][]int32
}

// ComputeParticleDensities evaluates rho_i = sum_j mass * W(|x_i - x_j|)
// for every particle i over its neighbors j (including itself, since
// W(0) > 0), where mass is derived the same way as in Build
// (diameter^3 * RestDensity). Particles with no neighbors within
// KernelRadius still receive their own self-contribution.
//
// out, if it has enough capacity, is reused as the returned slice's
// backing array instead of allocating a fresh one, so a workspace's
// ParticleDensities buffer retains its capacity across reconstructions
// (spec.md §4.8).
func ComputeParticleDensities[R numeric.Real](p ParticleDensityParams[R], out []R) []R {
	diameter := 2 * p.ParticleRadius
	mass := diameter * diameter * diameter * p.RestDensity

	neighbors := p.Neighbors
	if neighbors == nil {
		neighbors = neighbor.All(neighbor.AllParams[R]{
			Positions:            p.Positions,
			Radius:               p.KernelRadius,
			EnableMultiThreading: p.EnableMultiThreading,
			Workers:              p.Workers,
			Out:                  p.NeighborOut,
		})
	}

	if cap(out) >= len(p.Positions) {
		out = out[:len(p.Positions)]
	} else {
		out = make([]R, len(p.Positions))
	}
	for i, pos := range p.Positions {
		rho := mass * kernel.CubicSpline(R(0), p.KernelRadius)
		for _, j := range neighbors[i] {
			dist := p.Positions[j].Sub(pos).Len()
			rho += mass * kernel.CubicSpline(dist, p.KernelRadius)
		}
		out[i] = rho
	}
	return out
}
