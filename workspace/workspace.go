// Package workspace holds the reusable scratch buffers a reconstruction
// keeps across calls so repeated reconstructions (e.g. one per
// simulation frame) avoid reallocating their working storage.
//
// Grounded on original_source/workspace.rs's ReconstructionWorkspace /
// LocalReconstructionWorkspace pair (global densities vector plus a
// thread_local set of per-worker scratch structs), adapted to Go's
// goroutine model via a fixed-size per-worker slice indexed by worker
// id instead of Rust's ThreadLocal, and to sync.Pool-style buffer reuse
// as seen in particles_ecs.go's instBufPool (new pooled buffers grown
// once, then Clear()-ed and reused rather than reallocated every call).
package workspace

import (
	"github.com/gekko3d/surfrecon/density"
	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/mesh"
	"github.com/gekko3d/surfrecon/numeric"
)

// Local is one worker's scratch storage for a single reconstruction
// leaf: particle positions, per-particle neighbor lists, per-particle
// densities, a temporary sparse density map, and a temporary mesh.
type Local[R numeric.Real, I numeric.Index] struct {
	ParticlePositions     []geom.Vector3[R]
	ParticleNeighborLists [][]int32
	ParticleDensities     []R
	DensityMap            density.Map[I, R]
	Mesh                  mesh.TriMesh3d[R, I]
}

// NewLocal constructs an empty local workspace with no pre-allocated
// capacity, mirroring LocalReconstructionWorkspace::new().
func NewLocal[R numeric.Real, I numeric.Index]() *Local[R, I] {
	return &Local[R, I]{DensityMap: density.New[I, R](0)}
}

// NewLocalWithCapacity pre-sizes the position/neighbor-list/density
// slices for capacity particles, mirroring
// LocalReconstructionWorkspace::with_capacity.
func NewLocalWithCapacity[R numeric.Real, I numeric.Index](capacity int) *Local[R, I] {
	return &Local[R, I]{
		ParticlePositions:     make([]geom.Vector3[R], 0, capacity),
		ParticleNeighborLists: make([][]int32, 0, capacity),
		ParticleDensities:     make([]R, 0, capacity),
		DensityMap:            density.New[I, R](capacity * 4),
	}
}

// Clear empties every buffer while retaining backing-array capacity,
// so the next reconstruction reusing this workspace does not
// reallocate (spec.md §3, §4.8 "Idempotence").
func (l *Local[R, I]) Clear() {
	l.ParticlePositions = l.ParticlePositions[:0]
	l.ParticleNeighborLists = l.ParticleNeighborLists[:0]
	l.ParticleDensities = l.ParticleDensities[:0]
	l.DensityMap.Clear()
	l.Mesh.Clear()
}

// Pool hands out per-worker Local workspaces keyed by a small integer
// worker id (0..workerCount-1), growing lazily as new worker ids are
// first seen. Pool does no locking: Get may grow the slot slice, so
// concurrent calls to Get or ClearAll race with each other.
type Pool[R numeric.Real, I numeric.Index] struct {
	byWorker []*Local[R, I]
}

// NewPool constructs an empty pool; workers are created on first use.
func NewPool[R numeric.Real, I numeric.Index]() *Pool[R, I] {
	return &Pool[R, I]{}
}

// Get returns the Local workspace for workerID, allocating it (and any
// intervening worker slots) on first use.
func (p *Pool[R, I]) Get(workerID int) *Local[R, I] {
	for len(p.byWorker) <= workerID {
		p.byWorker = append(p.byWorker, nil)
	}
	if p.byWorker[workerID] == nil {
		p.byWorker[workerID] = NewLocal[R, I]()
	}
	return p.byWorker[workerID]
}

// ClearAll clears every worker workspace currently allocated in the
// pool, for reuse across a fresh reconstruction call.
func (p *Pool[R, I]) ClearAll() {
	for _, l := range p.byWorker {
		if l != nil {
			l.Clear()
		}
	}
}

// Global holds process-wide reusable storage for the non-decomposed
// reconstruction path: the single leaf's particle density vector,
// mirroring ReconstructionWorkspace.global_densities.
type Global[R numeric.Real] struct {
	Densities []R
}

// NewGlobal constructs an empty global workspace.
func NewGlobal[R numeric.Real]() *Global[R] {
	return &Global[R]{}
}

// Clear empties the global densities buffer while retaining capacity.
func (g *Global[R]) Clear() {
	g.Densities = g.Densities[:0]
}
