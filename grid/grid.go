// Package grid implements the uniform background grid over which
// density is discretized for splatting and marching cubes. It maps
// between integer 3D coordinates, flat indices, and world-space
// positions.
//
// Flattening convention: flat = (i*ny + j)*nz + k, i.e. k varies
// fastest. Adjacent cells sharing a face, edge or vertex see identical
// flat indices for that shared point, which is the basis for triangle
// vertex deduplication performed by package mc.
package grid

import (
	"fmt"
	"math"

	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/numeric"
)

// Logger is the minimal interface the grid needs to report
// construction info; satisfied by the root package's Logger.
type Logger interface {
	Infof(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any) {}

// Coord is an integer 3D grid coordinate (i, j, k).
type Coord[I numeric.Index] struct {
	I, J, K I
}

// Edge identifies one of a cube's 12 edges by its two endpoint point
// coordinates (as a Coord pair), in the canonical cube-diagram order
// used by package mc's lookup table.
type Edge[I numeric.Index] struct {
	A, B Coord[I]
}

// UniformGrid is derived from an AABB and a cube edge length.
type UniformGrid[I numeric.Index, R numeric.Real] struct {
	origin             geom.Vector3[R]
	cubeSize           R
	cellsX, cellsY, cellsZ I
}

// New constructs a uniform grid covering aabb with cube edge length h,
// expanding aabb's max corner so the grid exactly tiles whole cells.
// Fails with an error if any axis extent is non-positive or if the
// resulting point counts would overflow I.
func New[I numeric.Index, R numeric.Real](aabb geom.AxisAlignedBoundingBox3d[R], h R) (*UniformGrid[I, R], error) {
	return newWithLogger[I, R](aabb, h, nopLogger{})
}

// NewWithLogger is like New but reports grid statistics through logger,
// mirroring the original's grid.log_grid_info() call site.
func NewWithLogger[I numeric.Index, R numeric.Real](aabb geom.AxisAlignedBoundingBox3d[R], h R, logger Logger) (*UniformGrid[I, R], error) {
	return newWithLogger[I, R](aabb, h, logger)
}

func newWithLogger[I numeric.Index, R numeric.Real](aabb geom.AxisAlignedBoundingBox3d[R], h R, logger Logger) (*UniformGrid[I, R], error) {
	if h <= 0 {
		return nil, fmt.Errorf("grid: cube size must be positive, got %v", h)
	}
	extents := aabb.Extents()
	if extents.X <= 0 || extents.Y <= 0 || extents.Z <= 0 {
		return nil, fmt.Errorf("grid: invalid domain, extents %+v must be positive on every axis", extents)
	}

	cellsXf := math.Ceil(float64(extents.X) / float64(h))
	cellsYf := math.Ceil(float64(extents.Y) / float64(h))
	cellsZf := math.Ceil(float64(extents.Z) / float64(h))

	cellsX, err := numeric.FromInt[I](int(cellsXf))
	if err != nil {
		return nil, fmt.Errorf("grid: cell count overflow on x axis: %w", err)
	}
	cellsY, err := numeric.FromInt[I](int(cellsYf))
	if err != nil {
		return nil, fmt.Errorf("grid: cell count overflow on y axis: %w", err)
	}
	cellsZ, err := numeric.FromInt[I](int(cellsZf))
	if err != nil {
		return nil, fmt.Errorf("grid: cell count overflow on z axis: %w", err)
	}

	// Point counts are cells+1 on every axis; check these for overflow
	// too since they are what gets flattened.
	if _, err := numeric.FromInt[I](int(cellsXf) + 1); err != nil {
		return nil, fmt.Errorf("grid: point count overflow on x axis: %w", err)
	}
	if _, err := numeric.FromInt[I](int(cellsYf) + 1); err != nil {
		return nil, fmt.Errorf("grid: point count overflow on y axis: %w", err)
	}
	if _, err := numeric.FromInt[I](int(cellsZf) + 1); err != nil {
		return nil, fmt.Errorf("grid: point count overflow on z axis: %w", err)
	}

	g := &UniformGrid[I, R]{
		origin:   aabb.Min,
		cubeSize: h,
		cellsX:   cellsX,
		cellsY:   cellsY,
		cellsZ:   cellsZ,
	}
	logger.Infof("uniform grid: cells=(%d,%d,%d) cube_size=%v origin=%+v", cellsX, cellsY, cellsZ, h, g.origin)
	return g, nil
}

// LogInfo reports grid statistics through logger; mirrors the original
// library calling grid.log_grid_info() after construction.
func (g *UniformGrid[I, R]) LogInfo(logger Logger) {
	logger.Infof("uniform grid: cells=(%d,%d,%d) points=(%d,%d,%d) cube_size=%v",
		g.cellsX, g.cellsY, g.cellsZ, g.PointsX(), g.PointsY(), g.PointsZ(), g.cubeSize)
}

func (g *UniformGrid[I, R]) CellsX() I { return g.cellsX }
func (g *UniformGrid[I, R]) CellsY() I { return g.cellsY }
func (g *UniformGrid[I, R]) CellsZ() I { return g.cellsZ }

func (g *UniformGrid[I, R]) PointsX() I { return g.cellsX + 1 }
func (g *UniformGrid[I, R]) PointsY() I { return g.cellsY + 1 }
func (g *UniformGrid[I, R]) PointsZ() I { return g.cellsZ + 1 }

func (g *UniformGrid[I, R]) CubeSize() R            { return g.cubeSize }
func (g *UniformGrid[I, R]) Origin() geom.Vector3[R] { return g.origin }

// NumCells returns the total number of cells in the grid.
func (g *UniformGrid[I, R]) NumCells() I {
	return g.cellsX * g.cellsY * g.cellsZ
}

// NumPoints returns the total number of grid points.
func (g *UniformGrid[I, R]) NumPoints() I {
	return g.PointsX() * g.PointsY() * g.PointsZ()
}

// PointIndex flattens a point coordinate: flat = (i*ny + j)*nz + k,
// where ny, nz are the per-axis POINT counts.
func (g *UniformGrid[I, R]) PointIndex(c Coord[I]) I {
	ny, nz := g.PointsY(), g.PointsZ()
	return (c.I*ny+c.J)*nz + c.K
}

// PointCoord is the inverse of PointIndex.
func (g *UniformGrid[I, R]) PointCoord(flat I) Coord[I] {
	ny, nz := g.PointsY(), g.PointsZ()
	k := flat % nz
	rest := flat / nz
	j := rest % ny
	i := rest / ny
	return Coord[I]{I: i, J: j, K: k}
}

// CellIndex flattens a cell coordinate using the cell counts.
func (g *UniformGrid[I, R]) CellIndex(c Coord[I]) I {
	ny, nz := g.cellsY, g.cellsZ
	return (c.I*ny+c.J)*nz + c.K
}

// CellCoord is the inverse of CellIndex.
func (g *UniformGrid[I, R]) CellCoord(flat I) Coord[I] {
	ny, nz := g.cellsY, g.cellsZ
	k := flat % nz
	rest := flat / nz
	j := rest % ny
	i := rest / ny
	return Coord[I]{I: i, J: j, K: k}
}

// PointPosition returns the world-space position of a grid point.
func (g *UniformGrid[I, R]) PointPosition(c Coord[I]) geom.Vector3[R] {
	h := g.cubeSize
	return geom.Vector3[R]{
		X: g.origin.X + R(c.I)*h,
		Y: g.origin.Y + R(c.J)*h,
		Z: g.origin.Z + R(c.K)*h,
	}
}

// cubeCornerOffsets gives the 8 corner offsets of a cube in the
// canonical order matching package mc's lookup table diagram:
//
//	7 ________ 6
//	/|       /|
//	4 /_______5/|
//	|     |  |    |
//	|    3|__|____|2
//	|    /   |   /
//	|  /     |  /
//	|/_______|/
//	0          1
var cubeCornerOffsets = [8][3]int{
	{0, 0, 0}, // 0
	{1, 0, 0}, // 1
	{1, 1, 0}, // 2
	{0, 1, 0}, // 3
	{0, 0, 1}, // 4
	{1, 0, 1}, // 5
	{1, 1, 1}, // 6
	{0, 1, 1}, // 7
}

// cubeEdgeCorners gives the two corner indices (into cubeCornerOffsets)
// for each of the 12 edges, matching package mc's edge diagram.
var cubeEdgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0}, // bottom face ring (edges 0-3)
	{4, 5}, {5, 6}, {6, 7}, {7, 4}, // top face ring (edges 4-7)
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // vertical edges (edges 8-11)
}

// CellCorner returns the point coordinate of the given corner (0-7) of
// cell c.
func (g *UniformGrid[I, R]) CellCorner(c Coord[I], corner int) Coord[I] {
	off := cubeCornerOffsets[corner]
	return Coord[I]{
		I: c.I + I(off[0]),
		J: c.J + I(off[1]),
		K: c.K + I(off[2]),
	}
}

// CellCornerPointIndices returns the flat point index of all 8 corners
// of cell c, in the canonical corner order.
func (g *UniformGrid[I, R]) CellCornerPointIndices(c Coord[I]) [8]I {
	var out [8]I
	for i := 0; i < 8; i++ {
		out[i] = g.PointIndex(g.CellCorner(c, i))
	}
	return out
}

// CellEdges returns the 12 edges of cell c, each identified by its two
// endpoint flat point indices, in the canonical edge order (0-11).
func (g *UniformGrid[I, R]) CellEdges(c Coord[I]) [12][2]I {
	corners := g.CellCornerPointIndices(c)
	var out [12][2]I
	for e := 0; e < 12; e++ {
		pair := cubeEdgeCorners[e]
		out[e] = [2]I{corners[pair[0]], corners[pair[1]]}
	}
	return out
}
