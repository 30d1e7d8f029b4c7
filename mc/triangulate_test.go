package mc_test

import (
	"testing"

	"github.com/gekko3d/surfrecon/density"
	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/grid"
	"github.com/gekko3d/surfrecon/mc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUnitGrid(t *testing.T) *grid.UniformGrid[int32, float64] {
	t.Helper()
	aabb := geom.AxisAlignedBoundingBox3d[float64]{
		Min: geom.V3(0.0, 0.0, 0.0),
		Max: geom.V3(1.0, 1.0, 1.0),
	}
	g, err := grid.New[int32, float64](aabb, 1.0)
	require.NoError(t, err)
	return g
}

// Empty density map yields an empty mesh (spec.md §8, S1-adjacent).
func TestTriangulate_EmptyMap(t *testing.T) {
	g := newUnitGrid(t)
	m := density.New[int32, float64](0)
	out := mc.Triangulate(g, m, 0.5)
	assert.Empty(t, out.Vertices)
	assert.Empty(t, out.Triangles)
}

// All-corners-above-threshold cube has no surface crossing: empty mesh.
func TestTriangulate_FullyInsideCubeProducesNoSurface(t *testing.T) {
	g := newUnitGrid(t)
	m := density.New[int32, float64](8)
	for _, c := range g.CellCornerPointIndices(grid.Coord[int32]{}) {
		m[c] = 1.0
	}
	out := mc.Triangulate(g, m, 0.5)
	assert.Empty(t, out.Triangles)
}

// Single corner above threshold carves one corner off the cube,
// producing exactly one triangle (matches mc.TriangulationIter's
// single-corner case).
func TestTriangulate_SingleCornerAboveThreshold(t *testing.T) {
	g := newUnitGrid(t)
	corners := g.CellCornerPointIndices(grid.Coord[int32]{})
	m := density.New[int32, float64](8)
	m[corners[0]] = 1.0 // all others implicitly zero, below threshold
	out := mc.Triangulate(g, m, 0.5)
	require.Len(t, out.Triangles, 1)
	require.Len(t, out.Vertices, 3)
}

// The interpolated edge vertex lies at the threshold crossing point
// along the edge, proportionally between the two corner values.
func TestTriangulate_EdgeInterpolationPosition(t *testing.T) {
	g := newUnitGrid(t)
	corners := g.CellCornerPointIndices(grid.Coord[int32]{})
	m := density.New[int32, float64](8)
	m[corners[0]] = 1.0 // corner 0 at (0,0,0), value 1.0; corner1 implicit 0
	out := mc.Triangulate(g, m, 0.5)
	require.Len(t, out.Vertices, 3)

	foundOnXAxis := false
	for _, v := range out.Vertices {
		if v.Y == 0 && v.Z == 0 {
			foundOnXAxis = true
			assert.InDelta(t, 0.5, v.X, 1e-9) // threshold 0.5 is exactly midway between 1.0 and 0.0
		}
	}
	assert.True(t, foundOnXAxis, "expected one vertex along the edge from corner 0 to corner 1")
}

// Two adjacent cells sharing a face must dedup the shared edge
// vertices: walking both cells should not double the vertex count for
// the shared face (spec.md §4.5, basis of §8.6 stitching equivalence).
func TestTriangulate_SharedEdgeVerticesAreDeduped(t *testing.T) {
	aabb := geom.AxisAlignedBoundingBox3d[float64]{
		Min: geom.V3(0.0, 0.0, 0.0),
		Max: geom.V3(2.0, 1.0, 1.0),
	}
	g, err := grid.New[int32, float64](aabb, 1.0)
	require.NoError(t, err)

	m := density.New[int32, float64](16)
	// Give the top layer of points (j == 1) high density so the
	// isosurface is the plane y = 0.5 running through both cells and
	// crossing their shared face at x = 1.
	for i := int32(0); i < g.PointsX(); i++ {
		for j := int32(0); j < g.PointsY(); j++ {
			for k := int32(0); k < g.PointsZ(); k++ {
				c := grid.Coord[int32]{I: i, J: j, K: k}
				if j == 1 {
					m[g.PointIndex(c)] = 1.0
				}
			}
		}
	}

	out := mc.Triangulate(g, m, 0.5)
	require.NotEmpty(t, out.Triangles)

	seen := make(map[geom.Vector3[float64]]int)
	for _, v := range out.Vertices {
		seen[v]++
	}
	for v, count := range seen {
		assert.Equalf(t, 1, count, "vertex %+v duplicated", v)
	}
}
