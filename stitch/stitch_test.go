package stitch_test

import (
	"testing"

	"github.com/gekko3d/surfrecon/density"
	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/grid"
	"github.com/gekko3d/surfrecon/mc"
	"github.com/gekko3d/surfrecon/mesh"
	"github.com/gekko3d/surfrecon/stitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Splitting one dense density map into two leaves by cell range (one
// global grid, two sub-maps with overlapping boundary corners, as an
// octree decomposition would produce) and stitching them must equal
// triangulating the whole map in one call (spec.md §4.7, §8.6).
func TestStitch_MatchesNonDecomposedTriangulation(t *testing.T) {
	aabb := geom.AxisAlignedBoundingBox3d[float64]{
		Min: geom.V3(0.0, 0.0, 0.0),
		Max: geom.V3(4.0, 1.0, 1.0),
	}
	g, err := grid.New[int32, float64](aabb, 1.0)
	require.NoError(t, err)

	full := density.New[int32, float64](64)
	for i := int32(0); i < g.PointsX(); i++ {
		for j := int32(0); j < g.PointsY(); j++ {
			for k := int32(0); k < g.PointsZ(); k++ {
				c := grid.Coord[int32]{I: i, J: j, K: k}
				// A ramp along X crosses threshold 0.5 partway through
				// the domain, guaranteeing a non-trivial surface.
				full[g.PointIndex(c)] = float64(i) / float64(g.CellsX())
			}
		}
	}

	wholeMesh, wholeEdgeIDs := mc.TriangulateWithEdgeIDs(g, full, 0.5)
	require.NotEmpty(t, wholeMesh.Triangles)

	// Split the map into two leaves by cell-column, each leaf's map
	// including the shared boundary column of points so both leaves see
	// the same corners there (the overlap an octree's ghost margin
	// would supply in a real decomposition).
	leafA := density.New[int32, float64](32)
	leafB := density.New[int32, float64](32)
	midI := g.CellsX() / 2
	for flat, v := range full {
		c := g.PointCoord(flat)
		if c.I <= midI {
			leafA[flat] = v
		}
		if c.I >= midI {
			leafB[flat] = v
		}
	}

	// Each leaf triangulates only the cells it owns (cell columns below
	// midI for A, the rest for B), as a decomposed reconstruction does;
	// otherwise a cell next to a leaf's map edge would see its missing
	// corners as zero and emit a spurious surface.
	ownsA := func(cellFlat int32) bool { return g.CellCoord(cellFlat).I < midI }
	ownsB := func(cellFlat int32) bool { return g.CellCoord(cellFlat).I >= midI }

	meshA := &mesh.TriMesh3d[float64, int32]{}
	meshB := &mesh.TriMesh3d[float64, int32]{}
	edgeIDsA := mc.TriangulateIntoFiltered(meshA, g, leafA, 0.5, ownsA)
	edgeIDsB := mc.TriangulateIntoFiltered(meshB, g, leafB, 0.5, ownsB)

	stitched := stitch.Stitch([]stitch.LeafMesh[float64, int32]{
		{Mesh: meshA, EdgeIDs: edgeIDsA},
		{Mesh: meshB, EdgeIDs: edgeIDsB},
	})

	assert.Equal(t, len(wholeMesh.Triangles), len(stitched.Triangles))
	assert.Equal(t, len(wholeMesh.Vertices), len(stitched.Vertices))

	wholeSet := make(map[mc.EdgeID[int32]]struct{}, len(wholeEdgeIDs))
	for _, id := range wholeEdgeIDs {
		wholeSet[id] = struct{}{}
	}
	combined := append(append([]mc.EdgeID[int32]{}, edgeIDsA...), edgeIDsB...)
	for _, id := range combined {
		_, ok := wholeSet[id]
		assert.True(t, ok, "stitched edge id %+v not present in non-decomposed triangulation", id)
	}
}

// AppendRaw does no cross-leaf dedup: appending two triangulations of
// the same map keeps every vertex and triangle of both, so the shared
// vertices appear twice.
func TestAppendRaw_KeepsDuplicateBoundaryVertices(t *testing.T) {
	aabb := geom.AxisAlignedBoundingBox3d[float64]{
		Min: geom.V3(0.0, 0.0, 0.0),
		Max: geom.V3(2.0, 1.0, 1.0),
	}
	g, err := grid.New[int32, float64](aabb, 1.0)
	require.NoError(t, err)

	m := density.New[int32, float64](16)
	for i := int32(0); i < g.PointsX(); i++ {
		for j := int32(0); j < g.PointsY(); j++ {
			for k := int32(0); k < g.PointsZ(); k++ {
				c := grid.Coord[int32]{I: i, J: j, K: k}
				if i == 1 {
					m[g.PointIndex(c)] = 1.0
				}
			}
		}
	}

	meshA, edgeIDsA := mc.TriangulateWithEdgeIDs(g, m, 0.5)
	meshB, edgeIDsB := mc.TriangulateWithEdgeIDs(g, m, 0.5)

	appended, err := stitch.AppendRaw([]stitch.LeafMesh[float64, int32]{
		{Mesh: meshA, EdgeIDs: edgeIDsA},
		{Mesh: meshB, EdgeIDs: edgeIDsB},
	})
	require.NoError(t, err)
	assert.Equal(t, 2*len(meshA.Vertices), len(appended.Vertices))
	assert.Equal(t, 2*len(meshA.Triangles), len(appended.Triangles))
}
