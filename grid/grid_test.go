package grid_test

import (
	"testing"

	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAABB() geom.AxisAlignedBoundingBox3d[float64] {
	return geom.NewAABB(geom.V3[float64](0, 0, 0), geom.V3[float64](2, 2, 2))
}

func TestNew_RejectsNonPositiveCubeSize(t *testing.T) {
	_, err := grid.New[int32](testAABB(), 0)
	assert.Error(t, err)
}

func TestNew_RejectsDegenerateDomain(t *testing.T) {
	box := geom.NewAABB(geom.V3[float64](0, 0, 0), geom.V3[float64](0, 1, 1))
	_, err := grid.New[int32](box, 0.5)
	assert.Error(t, err)
}

// Invariant: for every (i,j,k) in range, inverse(flat(i,j,k)) = (i,j,k).
func TestPointIndex_Bijection(t *testing.T) {
	g, err := grid.New[int32](testAABB(), 0.5)
	require.NoError(t, err)

	for i := int32(0); i < g.PointsX(); i++ {
		for j := int32(0); j < g.PointsY(); j++ {
			for k := int32(0); k < g.PointsZ(); k++ {
				c := grid.Coord[int32]{I: i, J: j, K: k}
				flat := g.PointIndex(c)
				back := g.PointCoord(flat)
				assert.Equal(t, c, back)
			}
		}
	}
}

func TestCellIndex_Bijection(t *testing.T) {
	g, err := grid.New[int32](testAABB(), 0.5)
	require.NoError(t, err)

	for i := int32(0); i < g.CellsX(); i++ {
		for j := int32(0); j < g.CellsY(); j++ {
			for k := int32(0); k < g.CellsZ(); k++ {
				c := grid.Coord[int32]{I: i, J: j, K: k}
				flat := g.CellIndex(c)
				back := g.CellCoord(flat)
				assert.Equal(t, c, back)
			}
		}
	}
}

// Adjacent cells sharing a face must see identical flat point indices
// for the shared corners.
func TestAdjacentCellsShareCornerIndices(t *testing.T) {
	g, err := grid.New[int32](testAABB(), 0.5)
	require.NoError(t, err)

	c0 := grid.Coord[int32]{I: 0, J: 0, K: 0}
	c1 := grid.Coord[int32]{I: 1, J: 0, K: 0}

	corners0 := g.CellCornerPointIndices(c0)
	corners1 := g.CellCornerPointIndices(c1)

	// Corners 1,2,5,6 of c0 (the +X face) must match corners 0,3,4,7 of c1.
	assert.Equal(t, corners0[1], corners1[0])
	assert.Equal(t, corners0[2], corners1[3])
	assert.Equal(t, corners0[5], corners1[4])
	assert.Equal(t, corners0[6], corners1[7])
}

func TestCellEdges_RoundTripsThroughPointIndex(t *testing.T) {
	g, err := grid.New[int32](testAABB(), 0.5)
	require.NoError(t, err)

	c := grid.Coord[int32]{I: 0, J: 0, K: 0}
	edges := g.CellEdges(c)
	assert.Len(t, edges, 12)

	for _, e := range edges {
		a := g.PointCoord(e[0])
		b := g.PointCoord(e[1])
		// Endpoints of a cube edge differ along exactly one axis.
		diffs := 0
		if a.I != b.I {
			diffs++
		}
		if a.J != b.J {
			diffs++
		}
		if a.K != b.K {
			diffs++
		}
		assert.Equal(t, 1, diffs)
	}
}

func TestPointPosition(t *testing.T) {
	g, err := grid.New[int32](testAABB(), 0.5)
	require.NoError(t, err)

	pos := g.PointPosition(grid.Coord[int32]{I: 2, J: 0, K: 0})
	assert.InDelta(t, 1.0, pos.X, 1e-9)
}
