// Package density builds the sparse grid-vertex -> density mapping by
// splatting each particle's SPH kernel contribution onto the grid
// vertices within its kernel support.
//
// Grounded on voxelrt/rt/volume/xbrickmap.go's sparse, only-allocate-
// what's-touched storage, generalized from per-voxel payload bytes to
// per-vertex Real density accumulation.
package density

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/grid"
	"github.com/gekko3d/surfrecon/kernel"
	"github.com/gekko3d/surfrecon/numeric"
)

// Map is a sparse mapping from flat grid-point index to density value.
// A missing key implicitly denotes zero density.
type Map[I numeric.Index, R numeric.Real] map[I]R

// New returns an empty density map, optionally sized with a capacity
// hint to reduce rehashing during splatting.
func New[I numeric.Index, R numeric.Real](sizeHint int) Map[I, R] {
	return make(Map[I, R], sizeHint)
}

// Clear empties m in place so a workspace-owned map can be reused
// without reallocating its backing hash table's bucket array between
// reconstructions (the Go runtime does not reuse map storage across a
// "make" call, so this keeps the same map value cleared via delete).
func (m Map[I, R]) Clear() {
	for k := range m {
		delete(m, k)
	}
}

// BuildParams bundles the inputs needed to splat particle densities
// onto the grid (spec.md §4.4).
type BuildParams[I numeric.Index, R numeric.Real] struct {
	Grid                *grid.UniformGrid[I, R]
	Positions           []geom.Vector3[R]
	Densities           []R // per-particle SPH density rho_i; Build derives each particle's volume mass/rho_i from it
	ParticleRadius      R
	RestDensity         R
	KernelRadius        R
	Threshold           R
	EnableMultiThreading bool
	// Workers caps the number of goroutines Build fans out across when
	// EnableMultiThreading is set; <= 0 falls back to
	// runtime.GOMAXPROCS(0), mirroring density.Build's pre-pool-config
	// default.
	Workers int
	// Into, if non-nil, is cleared and reused as the returned map
	// instead of allocating a fresh one, so a workspace's DensityMap
	// buffer retains its backing hash table across reconstructions
	// (spec.md §4.8).
	Into Map[I, R]
}

func (p BuildParams[I, R]) reuseOrNew(sizeHint int) Map[I, R] {
	if p.Into != nil {
		p.Into.Clear()
		return p.Into
	}
	return New[I, R](sizeHint)
}

// particleVolume returns c = mass / rho for a particle, where mass is
// derived from particle_radius and rest_density as a cube of side
// 2*particle_radius (the conventional SPH mass estimate), and rho is
// the particle's locally evaluated density.
func particleVolume[R numeric.Real](particleRadius, restDensity, localDensity R) R {
	diameter := 2 * particleRadius
	mass := diameter * diameter * diameter * restDensity
	if localDensity == 0 {
		return 0
	}
	return mass / localDensity
}

// Build splats every particle's kernel contribution onto the grid
// vertices within kernel support, returning the resulting sparse
// density map. Values below eps*threshold are pruned (spec.md §4.4).
func Build[I numeric.Index, R numeric.Real](p BuildParams[I, R]) (Map[I, R], error) {
	if len(p.Positions) != len(p.Densities) {
		return nil, fmt.Errorf("density: positions (%d) and densities (%d) length mismatch", len(p.Positions), len(p.Densities))
	}

	evalRadius := kernel.EvaluationRadiusFor(p.KernelRadius, p.Grid.CubeSize())

	if !p.EnableMultiThreading || len(p.Positions) < 2 {
		m := p.reuseOrNew(len(p.Positions) * 8)
		splatRange(p, evalRadius.KernelEvaluationRadius, 0, len(p.Positions), m)
		prune(m, p.Threshold)
		return m, nil
	}

	workerCount := p.Workers
	if workerCount <= 0 {
		workerCount = runtime.GOMAXPROCS(0)
	}
	if workerCount > len(p.Positions) {
		workerCount = len(p.Positions)
	}
	if workerCount < 1 {
		workerCount = 1
	}

	partials := make([]Map[I, R], workerCount)
	chunk := (len(p.Positions) + workerCount - 1) / workerCount

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		start := w * chunk
		end := min(start+chunk, len(p.Positions))
		partials[w] = New[I, R](max(0, end-start) * 8)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(widx, start, end int) {
			defer wg.Done()
			splatRange(p, evalRadius.KernelEvaluationRadius, start, end, partials[widx])
		}(w, start, end)
	}
	wg.Wait()

	// Merge in fixed order (ascending worker/partition index, i.e.
	// ascending particle-index ranges), so a given worker count yields
	// the same map on every run (spec.md §4.4, §9). Each partial already
	// holds a per-range sum, so maps built with a different worker count,
	// or by the serial path, can differ by floating-point rounding.
	merged := p.reuseOrNew(len(p.Positions) * 4)
	for _, partial := range partials {
		for k, v := range partial {
			merged[k] += v
		}
	}
	prune(merged, p.Threshold)
	return merged, nil
}

func splatRange[I numeric.Index, R numeric.Real](p BuildParams[I, R], splatRadius R, start, end int, out Map[I, R]) {
	g := p.Grid
	for pi := start; pi < end; pi++ {
		pos := p.Positions[pi]
		c := particleVolume(p.ParticleRadius, p.RestDensity, p.Densities[pi])
		if c == 0 {
			continue
		}

		minCorner := pos.Sub(geom.V3(splatRadius, splatRadius, splatRadius))
		maxCorner := pos.Add(geom.V3(splatRadius, splatRadius, splatRadius))

		origin := g.Origin()
		h := g.CubeSize()

		iMin := clampPointIndex(int((minCorner.X-origin.X)/h), 0, int(g.PointsX())-1)
		iMax := clampPointIndex(int((maxCorner.X-origin.X)/h)+1, 0, int(g.PointsX())-1)
		jMin := clampPointIndex(int((minCorner.Y-origin.Y)/h), 0, int(g.PointsY())-1)
		jMax := clampPointIndex(int((maxCorner.Y-origin.Y)/h)+1, 0, int(g.PointsY())-1)
		kMin := clampPointIndex(int((minCorner.Z-origin.Z)/h), 0, int(g.PointsZ())-1)
		kMax := clampPointIndex(int((maxCorner.Z-origin.Z)/h)+1, 0, int(g.PointsZ())-1)

		for i := iMin; i <= iMax; i++ {
			for j := jMin; j <= jMax; j++ {
				for k := kMin; k <= kMax; k++ {
					coord := grid.Coord[I]{I: I(i), J: I(j), K: I(k)}
					vpos := g.PointPosition(coord)
					dist := vpos.Sub(pos).Len()
					if dist >= p.KernelRadius {
						continue
					}
					w := kernel.CubicSpline(dist, p.KernelRadius)
					if w == 0 {
						continue
					}
					out[g.PointIndex(coord)] += c * w
				}
			}
		}
	}
}

func clampPointIndex(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func prune[I numeric.Index, R numeric.Real](m Map[I, R], threshold R) {
	const eps = 1e-6
	cutoff := R(eps) * threshold
	for k, v := range m {
		if v < cutoff {
			delete(m, k)
		}
	}
}
