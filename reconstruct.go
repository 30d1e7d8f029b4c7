package surfrecon

import (
	"fmt"

	"github.com/gekko3d/surfrecon/density"
	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/grid"
	"github.com/gekko3d/surfrecon/kernel"
	"github.com/gekko3d/surfrecon/mc"
	"github.com/gekko3d/surfrecon/mesh"
	"github.com/gekko3d/surfrecon/neighbor"
	"github.com/gekko3d/surfrecon/numeric"
	"github.com/gekko3d/surfrecon/octree"
	"github.com/gekko3d/surfrecon/stitch"
	"github.com/gekko3d/surfrecon/workspace"
	"github.com/google/uuid"
)

// SpatialDecompositionParameters configures the optional octree
// decomposition (spec.md §6, §4.6).
type SpatialDecompositionParameters[R numeric.Real] struct {
	SubdivisionCriterion      octree.SubdivisionCriterion
	GhostParticleSafetyFactor R
	EnableStitching           bool
}

// TryConvertSpatialDecompositionParameters converts the parameters
// from one Real instantiation to another, mirroring the original
// library's SpatialDecompositionParameters::try_convert.
func TryConvertSpatialDecompositionParameters[To, From numeric.Real](p SpatialDecompositionParameters[From]) (SpatialDecompositionParameters[To], error) {
	factor, err := numeric.ConvertReal[To](p.GhostParticleSafetyFactor)
	if err != nil {
		return SpatialDecompositionParameters[To]{}, wrapErr(NumericConversion, err)
	}
	return SpatialDecompositionParameters[To]{
		SubdivisionCriterion:      p.SubdivisionCriterion,
		GhostParticleSafetyFactor: factor,
		EnableStitching:           p.EnableStitching,
	}, nil
}

// Parameters configures a reconstruction (spec.md §6).
type Parameters[R numeric.Real] struct {
	ParticleRadius        R
	RestDensity           R
	KernelRadius          R
	SplashDetectionRadius *R
	CubeSize              R
	IsoSurfaceThreshold   R
	DomainAABB            *geom.AxisAlignedBoundingBox3d[R]
	EnableMultiThreading  bool
	SpatialDecomposition  *SpatialDecompositionParameters[R]
	// Logger receives grid construction info, if set; no stage of the
	// pipeline emits warnings through it. A nil Logger silently drops
	// everything (spec.md's ambient logging stack).
	Logger Logger
}

// Validate checks the documented ranges of Parameters, returning an
// InvalidParameter error describing the first violation found.
func (p Parameters[R]) Validate() error {
	if p.ParticleRadius <= 0 {
		return wrapErr(InvalidParameter, fmt.Errorf("particle_radius must be positive, got %v", p.ParticleRadius))
	}
	if p.RestDensity <= 0 {
		return wrapErr(InvalidParameter, fmt.Errorf("rest_density must be positive, got %v", p.RestDensity))
	}
	if p.KernelRadius <= 0 {
		return wrapErr(InvalidParameter, fmt.Errorf("kernel_radius must be positive, got %v", p.KernelRadius))
	}
	if p.CubeSize <= 0 {
		return wrapErr(InvalidParameter, fmt.Errorf("cube_size must be positive, got %v", p.CubeSize))
	}
	if p.IsoSurfaceThreshold <= 0 {
		return wrapErr(InvalidParameter, fmt.Errorf("iso_surface_threshold must be positive, got %v", p.IsoSurfaceThreshold))
	}
	return nil
}

// TryConvertParameters converts Parameters from one Real instantiation
// to another, failing if any field doesn't survive the conversion
// (spec.md §6, try_convert_params).
func TryConvertParameters[To, From numeric.Real](p Parameters[From]) (Parameters[To], error) {
	particleRadius, err := numeric.ConvertReal[To](p.ParticleRadius)
	if err != nil {
		return Parameters[To]{}, wrapErr(NumericConversion, err)
	}
	restDensity, err := numeric.ConvertReal[To](p.RestDensity)
	if err != nil {
		return Parameters[To]{}, wrapErr(NumericConversion, err)
	}
	kernelRadius, err := numeric.ConvertReal[To](p.KernelRadius)
	if err != nil {
		return Parameters[To]{}, wrapErr(NumericConversion, err)
	}
	cubeSize, err := numeric.ConvertReal[To](p.CubeSize)
	if err != nil {
		return Parameters[To]{}, wrapErr(NumericConversion, err)
	}
	threshold, err := numeric.ConvertReal[To](p.IsoSurfaceThreshold)
	if err != nil {
		return Parameters[To]{}, wrapErr(NumericConversion, err)
	}

	out := Parameters[To]{
		ParticleRadius:       particleRadius,
		RestDensity:          restDensity,
		KernelRadius:         kernelRadius,
		CubeSize:             cubeSize,
		IsoSurfaceThreshold:  threshold,
		EnableMultiThreading: p.EnableMultiThreading,
		Logger:               p.Logger,
	}
	if p.DomainAABB != nil {
		converted, err := geom.TryConvertAABB[To](*p.DomainAABB)
		if err != nil {
			return Parameters[To]{}, wrapErr(NumericConversion, err)
		}
		out.DomainAABB = &converted
	}
	if p.SplashDetectionRadius != nil {
		r, err := numeric.ConvertReal[To](*p.SplashDetectionRadius)
		if err != nil {
			return Parameters[To]{}, wrapErr(NumericConversion, err)
		}
		out.SplashDetectionRadius = &r
	}
	if p.SpatialDecomposition != nil {
		decomp, err := TryConvertSpatialDecompositionParameters[To](*p.SpatialDecomposition)
		if err != nil {
			return Parameters[To]{}, err
		}
		out.SpatialDecomposition = &decomp
	}
	return out, nil
}

// SurfaceReconstruction aggregates the final grid, optional octree,
// optional density map, final mesh, and workspace, reusable in-place
// for streaming multiple frames (spec.md §3, "Reconstruction Result").
type SurfaceReconstruction[I numeric.Index, R numeric.Real] struct {
	RunID       string
	Grid        *grid.UniformGrid[I, R]
	Octree      *octree.Node[R]
	DensityMap  density.Map[I, R]
	Mesh        mesh.TriMesh3d[R, I]
	workspace   *workspace.Pool[R, I]
	globalSpace *workspace.Global[R]
}

// NewSurfaceReconstruction returns a fresh, empty reconstruction handle
// ready to be passed to ReconstructInplace.
func NewSurfaceReconstruction[I numeric.Index, R numeric.Real]() *SurfaceReconstruction[I, R] {
	return &SurfaceReconstruction[I, R]{
		workspace:   workspace.NewPool[R, I](),
		globalSpace: workspace.NewGlobal[R](),
	}
}

// Reconstruct performs a one-shot surface reconstruction (spec.md §6).
func Reconstruct[I numeric.Index, R numeric.Real](positions []geom.Vector3[R], params Parameters[R]) (*SurfaceReconstruction[I, R], error) {
	out := NewSurfaceReconstruction[I, R]()
	if err := ReconstructInplace(positions, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReconstructInplace reuses out's workspace and buffers across calls,
// clearing previously retained mesh/grid/map contents before refilling
// (spec.md §4.8, "Idempotence").
func ReconstructInplace[I numeric.Index, R numeric.Real](positions []geom.Vector3[R], params Parameters[R], out *SurfaceReconstruction[I, R]) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if len(positions) == 0 {
		return wrapErr(DegenerateInput, fmt.Errorf("cannot reconstruct a surface from zero particles"))
	}

	out.Mesh.Clear()
	out.RunID = uuid.NewString()
	if out.workspace == nil {
		out.workspace = workspace.NewPool[R, I]()
	}
	out.workspace.ClearAll()
	if out.globalSpace == nil {
		out.globalSpace = workspace.NewGlobal[R]()
	}
	out.globalSpace.Clear()

	positions = filterSplashParticles(positions, params)
	if len(positions) == 0 {
		return wrapErr(DegenerateInput, fmt.Errorf("splash_detection_radius filtered out every particle"))
	}

	g, err := gridForReconstruction[I](positions, params)
	if err != nil {
		return err
	}
	out.Grid = g

	if params.SpatialDecomposition != nil {
		return reconstructDecomposed(positions, params, g, out)
	}
	return reconstructSingle(positions, params, g, out)
}

// filterSplashParticles drops particles with no neighbor within
// SplashDetectionRadius, mirroring the original library's commented-out
// splash/free-particle pre-filter (lib.rs): a particle reconstructed in
// total isolation produces a tiny spurious sphere rather than
// contributing to the fluid surface, so it is excluded up front. A nil
// SplashDetectionRadius disables the filter entirely.
func filterSplashParticles[R numeric.Real](positions []geom.Vector3[R], params Parameters[R]) []geom.Vector3[R] {
	if params.SplashDetectionRadius == nil {
		return positions
	}
	lists := neighbor.All(neighbor.AllParams[R]{
		Positions:            positions,
		Radius:               *params.SplashDetectionRadius,
		EnableMultiThreading: params.EnableMultiThreading,
		Workers:              workerCount(),
	})
	active := make([]geom.Vector3[R], 0, len(positions))
	for i, neighbors := range lists {
		if len(neighbors) > 0 {
			active = append(active, positions[i])
		}
	}
	return active
}

// gridForReconstruction builds or accepts the domain AABB, growing it
// by particle_radius + kernel_evaluation_radius so every particle's
// full kernel support lies inside the grid, then builds the uniform
// grid. Mirrors the original library's grid_for_reconstruction.
func gridForReconstruction[I numeric.Index, R numeric.Real](positions []geom.Vector3[R], params Parameters[R]) (*grid.UniformGrid[I, R], error) {
	var domain geom.AxisAlignedBoundingBox3d[R]
	if params.DomainAABB != nil {
		domain = *params.DomainAABB
	} else {
		var err error
		if params.EnableMultiThreading {
			domain, err = geom.FromPointsPar(positions, workerCount())
		} else {
			domain, err = geom.FromPoints(positions)
		}
		if err != nil {
			return nil, wrapErr(DegenerateInput, err)
		}
		domain.GrowUniformly(params.ParticleRadius)

		evalRadius := kernel.EvaluationRadiusFor(params.KernelRadius, params.CubeSize)
		domain.GrowUniformly(evalRadius.KernelEvaluationRadius)
	}

	ext := domain.Extents()
	if ext.X <= 0 || ext.Y <= 0 || ext.Z <= 0 {
		return nil, wrapErr(InvalidDomain, fmt.Errorf("domain extents %+v must be positive on every axis", ext))
	}

	logger := params.Logger
	if logger == nil {
		logger = NewNopLogger()
	}
	g, err := grid.NewWithLogger[I, R](domain, params.CubeSize, logger)
	if err != nil {
		// Cube size and extents are already checked, so what is left is a
		// cell or point count that does not fit in I.
		return nil, wrapErr(IndexOverflow, err)
	}
	return g, nil
}

// reconstructSingle treats the whole particle set as one leaf: find
// neighbors, evaluate densities, splat the density map, triangulate.
// It routes every scratch buffer (positions, neighbor lists, densities,
// density map, mesh) through out's worker-0 workspace slot and global
// density buffer, so a caller reusing out across frames via
// ReconstructInplace does not reallocate them each call (spec.md §4.8).
func reconstructSingle[I numeric.Index, R numeric.Real](positions []geom.Vector3[R], params Parameters[R], g *grid.UniformGrid[I, R], out *SurfaceReconstruction[I, R]) error {
	local := out.workspace.Get(0)
	local.ParticlePositions = append(local.ParticlePositions[:0], positions...)

	local.ParticleNeighborLists = neighbor.All(neighbor.AllParams[R]{
		Positions:            local.ParticlePositions,
		Radius:               params.KernelRadius,
		EnableMultiThreading: params.EnableMultiThreading,
		Workers:              workerCount(),
		Out:                  local.ParticleNeighborLists,
	})

	out.globalSpace.Densities = density.ComputeParticleDensities(density.ParticleDensityParams[R]{
		Positions:      local.ParticlePositions,
		Neighbors:      local.ParticleNeighborLists,
		ParticleRadius: params.ParticleRadius,
		RestDensity:    params.RestDensity,
		KernelRadius:   params.KernelRadius,
	}, out.globalSpace.Densities)
	local.ParticleDensities = append(local.ParticleDensities[:0], out.globalSpace.Densities...)

	densityMap, err := density.Build(density.BuildParams[I, R]{
		Grid:                 g,
		Positions:            local.ParticlePositions,
		Densities:            out.globalSpace.Densities,
		ParticleRadius:       params.ParticleRadius,
		RestDensity:          params.RestDensity,
		KernelRadius:         params.KernelRadius,
		Threshold:            params.IsoSurfaceThreshold,
		EnableMultiThreading: params.EnableMultiThreading,
		Workers:              workerCount(),
		Into:                 local.DensityMap,
	})
	if err != nil {
		return wrapErr(Unknown, err)
	}
	out.DensityMap = densityMap

	mc.TriangulateInto(&local.Mesh, g, densityMap, params.IsoSurfaceThreshold)
	out.Mesh = local.Mesh
	return nil
}

// cellCenter returns the world-space center of background-grid cell
// cellFlat, used to look up the cell's single owning octree leaf via
// Node.Locate.
func cellCenter[I numeric.Index, R numeric.Real](g *grid.UniformGrid[I, R], cellFlat I) geom.Vector3[R] {
	corner := g.PointPosition(g.CellCoord(cellFlat))
	half := g.CubeSize() / 2
	return corner.Add(geom.V3(half, half, half))
}

// reconstructDecomposed builds the octree, reconstructs each leaf
// independently (in ascending leaf order), then stitches or appends
// the resulting sub-meshes per spec.md §4.6-§4.8.
//
// Each leaf triangulates only the background-grid cells it owns
// (octree.Node.Locate, keyed off the cell's center), so a boundary
// cell whose corners both leaves' density maps touch is triangulated
// by exactly one of them; without this, the stitched mesh would
// contain the same triangle twice (spec.md §8.6, property 6).
func reconstructDecomposed[I numeric.Index, R numeric.Real](positions []geom.Vector3[R], params Parameters[R], g *grid.UniformGrid[I, R], out *SurfaceReconstruction[I, R]) error {
	decomp := params.SpatialDecomposition
	safetyFactor := decomp.GhostParticleSafetyFactor
	if safetyFactor == 0 {
		safetyFactor = 1
	}
	ghostMargin := safetyFactor * params.KernelRadius

	domain := geom.AxisAlignedBoundingBox3d[R]{
		Min: g.Origin(),
		Max: g.Origin().Add(geom.V3(R(g.CellsX()), R(g.CellsY()), R(g.CellsZ())).Scale(g.CubeSize())),
	}
	root := octree.Build(positions, domain, decomp.SubdivisionCriterion, ghostMargin)
	out.Octree = root

	leaves := octree.Leaves(root)
	leafMeshes := make([]stitch.LeafMesh[R, I], 0, len(leaves))
	out.DensityMap = density.New[I, R](0)

	for leafIdx, leaf := range leaves {
		leafIndices := append(append([]int32{}, leaf.Owned...), leaf.Ghost...)
		if len(leafIndices) == 0 {
			continue
		}

		local := out.workspace.Get(leafIdx)
		local.ParticlePositions = local.ParticlePositions[:0]
		for _, idx := range leafIndices {
			local.ParticlePositions = append(local.ParticlePositions, positions[idx])
		}
		leafPositions := local.ParticlePositions

		local.ParticleNeighborLists = neighbor.All(neighbor.AllParams[R]{
			Positions:            leafPositions,
			Radius:               params.KernelRadius,
			EnableMultiThreading: params.EnableMultiThreading,
			Workers:              workerCount(),
			Out:                  local.ParticleNeighborLists,
		})

		local.ParticleDensities = density.ComputeParticleDensities(density.ParticleDensityParams[R]{
			Positions:      leafPositions,
			Neighbors:      local.ParticleNeighborLists,
			ParticleRadius: params.ParticleRadius,
			RestDensity:    params.RestDensity,
			KernelRadius:   params.KernelRadius,
		}, local.ParticleDensities)

		densityMap, err := density.Build(density.BuildParams[I, R]{
			Grid:                 g,
			Positions:            leafPositions,
			Densities:            local.ParticleDensities,
			ParticleRadius:       params.ParticleRadius,
			RestDensity:          params.RestDensity,
			KernelRadius:         params.KernelRadius,
			Threshold:            params.IsoSurfaceThreshold,
			EnableMultiThreading: params.EnableMultiThreading,
			Workers:              workerCount(),
			Into:                 local.DensityMap,
		})
		if err != nil {
			return wrapErr(Unknown, err)
		}
		for point, value := range densityMap {
			out.DensityMap[point] = value
		}

		owns := func(cellFlat I) bool {
			return root.Locate(cellCenter(g, cellFlat)) == leaf
		}
		edgeIDs := mc.TriangulateIntoFiltered(&local.Mesh, g, densityMap, params.IsoSurfaceThreshold, owns)
		leafMeshes = append(leafMeshes, stitch.LeafMesh[R, I]{Mesh: &local.Mesh, EdgeIDs: edgeIDs})
	}

	if decomp.EnableStitching {
		merged := stitch.Stitch(leafMeshes)
		out.Mesh = *merged
		return nil
	}

	merged, err := stitch.AppendRaw(leafMeshes)
	if err != nil {
		return wrapErr(Unknown, err)
	}
	out.Mesh = *merged
	return nil
}
