package geom

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/gekko3d/surfrecon/numeric"
)

// AxisAlignedBoundingBox3d is a pair of points Min <= Max componentwise.
// Grounded on mod_spatialgrid.go's AABBComponent (Min/Max pair, grown
// and queried the same way), generalized over the Real kind.
type AxisAlignedBoundingBox3d[R numeric.Real] struct {
	Min Vector3[R]
	Max Vector3[R]
}

// NewAABB constructs a box, without checking Min <= Max (use Validate).
func NewAABB[R numeric.Real](min, max Vector3[R]) AxisAlignedBoundingBox3d[R] {
	return AxisAlignedBoundingBox3d[R]{Min: min, Max: max}
}

// Validate reports whether Min <= Max holds on every axis.
func (b AxisAlignedBoundingBox3d[R]) Validate() error {
	if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
		return fmt.Errorf("geom: invalid AABB, min %+v exceeds max %+v on some axis", b.Min, b.Max)
	}
	return nil
}

// Extents returns Max - Min componentwise.
func (b AxisAlignedBoundingBox3d[R]) Extents() Vector3[R] {
	return b.Max.Sub(b.Min)
}

// Contains reports whether p lies within the box, inclusive of the
// boundary.
func (b AxisAlignedBoundingBox3d[R]) Contains(p Vector3[R]) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// GrowUniformly expands the box symmetrically by delta on every axis.
func (b *AxisAlignedBoundingBox3d[R]) GrowUniformly(delta R) {
	margin := Vector3[R]{delta, delta, delta}
	b.Min = b.Min.Sub(margin)
	b.Max = b.Max.Add(margin)
}

// Grown returns a copy of b grown uniformly by delta, leaving b intact.
func (b AxisAlignedBoundingBox3d[R]) Grown(delta R) AxisAlignedBoundingBox3d[R] {
	b.GrowUniformly(delta)
	return b
}

// FromPoints computes the smallest AABB enclosing all given points.
// Panics-free: returns an error for an empty slice, mirroring the
// DegenerateInput condition callers must translate at the pipeline edge.
func FromPoints[R numeric.Real](points []Vector3[R]) (AxisAlignedBoundingBox3d[R], error) {
	if len(points) == 0 {
		return AxisAlignedBoundingBox3d[R]{}, fmt.Errorf("geom: cannot compute AABB of zero points")
	}
	minP, maxP := points[0], points[0]
	for _, p := range points[1:] {
		minP = Min(minP, p)
		maxP = Max(maxP, p)
	}
	return AxisAlignedBoundingBox3d[R]{Min: minP, Max: maxP}, nil
}

// FromPointsPar is the parallel variant of FromPoints, partitioning the
// point slice across worker goroutines and reducing their partial
// boxes. workers caps the goroutine count; <= 0 falls back to
// runtime.GOMAXPROCS(0).
// Grounded on particles_ecs.go's worker-pool-over-goroutines pattern.
func FromPointsPar[R numeric.Real](points []Vector3[R], workers int) (AxisAlignedBoundingBox3d[R], error) {
	if len(points) == 0 {
		return AxisAlignedBoundingBox3d[R]{}, fmt.Errorf("geom: cannot compute AABB of zero points")
	}

	workerCount := workers
	if workerCount <= 0 {
		workerCount = runtime.GOMAXPROCS(0)
	}
	if workerCount > len(points) {
		workerCount = len(points)
	}
	if workerCount < 1 {
		workerCount = 1
	}

	chunk := (len(points) + workerCount - 1) / workerCount
	partials := make([]AxisAlignedBoundingBox3d[R], workerCount)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		start := w * chunk
		end := min(start+chunk, len(points))
		if start >= end {
			partials[w] = AxisAlignedBoundingBox3d[R]{Min: points[0], Max: points[0]}
			continue
		}
		wg.Add(1)
		go func(widx, start, end int) {
			defer wg.Done()
			box, _ := FromPoints(points[start:end])
			partials[widx] = box
		}(w, start, end)
	}
	wg.Wait()

	result := partials[0]
	for _, p := range partials[1:] {
		result.Min = Min(result.Min, p.Min)
		result.Max = Max(result.Max, p.Max)
	}
	return result, nil
}

// TryConvertAABB converts an AABB from one Real instantiation to another.
func TryConvertAABB[To, From numeric.Real](b AxisAlignedBoundingBox3d[From]) (AxisAlignedBoundingBox3d[To], error) {
	min, err := TryConvert[To](b.Min)
	if err != nil {
		return AxisAlignedBoundingBox3d[To]{}, err
	}
	max, err := TryConvert[To](b.Max)
	if err != nil {
		return AxisAlignedBoundingBox3d[To]{}, err
	}
	return AxisAlignedBoundingBox3d[To]{Min: min, Max: max}, nil
}

// LongestAxis returns the index (0, 1 or 2) of the axis with the
// largest extent. The octree split does not use it: it splits all
// three axes at the node's center.
func (b AxisAlignedBoundingBox3d[R]) LongestAxis() int {
	ext := b.Extents()
	axis := 0
	best := ext.X
	if ext.Y > best {
		axis, best = 1, ext.Y
	}
	if ext.Z > best {
		axis = 2
	}
	return axis
}

// Diagonal returns the length of the box's main diagonal.
func (b AxisAlignedBoundingBox3d[R]) Diagonal() R {
	e := b.Extents()
	return R(math.Sqrt(float64(e.X)*float64(e.X) + float64(e.Y)*float64(e.Y) + float64(e.Z)*float64(e.Z)))
}
