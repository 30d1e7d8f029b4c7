package mc

import (
	"sort"

	"github.com/gekko3d/surfrecon/density"
	"github.com/gekko3d/surfrecon/grid"
	"github.com/gekko3d/surfrecon/mesh"
	"github.com/gekko3d/surfrecon/numeric"
)

// cellCornerOffsets mirrors package grid's cubeCornerOffsets (not
// exported from there), needed here to walk from a touched grid point
// back to the cells it is a corner of.
var cellCornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// EdgeID identifies a grid edge by its two endpoint flat point indices
// in canonical (min, max) order, independent of which cube the edge is
// visited from or which octree leaf emitted it. Using this as the
// vertex-dedup key is what makes output identical whether a seam is
// crossed from one side or the other (spec.md §4.5, §8.6), and it is
// exported so package stitch can dedup vertices across leaf meshes
// using the same global identifier.
type EdgeID[I numeric.Index] struct {
	Lo, Hi I
}

func makeEdgeKey[I numeric.Index](a, b I) EdgeID[I] {
	if a <= b {
		return EdgeID[I]{Lo: a, Hi: b}
	}
	return EdgeID[I]{Lo: b, Hi: a}
}

// Triangulate walks every cell touched by m (i.e. having at least one
// corner present in the sparse density map) in ascending flat-cell
// order, classifies each cell's corners against threshold, interpolates
// surface-crossing edges, and emits a deduplicated triangle mesh
// (spec.md §4.5).
//
// Missing density-map entries are treated as exactly zero (outside the
// fluid), matching the original library's sparse-map semantics.
func Triangulate[I numeric.Index, R numeric.Real](g *grid.UniformGrid[I, R], m density.Map[I, R], threshold R) *mesh.TriMesh3d[R, I] {
	out, _ := TriangulateWithEdgeIDs(g, m, threshold)
	return out
}

// TriangulateWithEdgeIDs is Triangulate, additionally returning each
// vertex's global EdgeID in the same order as out.Vertices. Used by
// package stitch to dedup vertices across octree leaves sharing a
// boundary.
func TriangulateWithEdgeIDs[I numeric.Index, R numeric.Real](g *grid.UniformGrid[I, R], m density.Map[I, R], threshold R) (*mesh.TriMesh3d[R, I], []EdgeID[I]) {
	out := &mesh.TriMesh3d[R, I]{}
	edgeIDs := TriangulateIntoFiltered(out, g, m, threshold, nil)
	return out, edgeIDs
}

// TriangulateInto is TriangulateWithEdgeIDs, writing into a
// caller-owned mesh instead of allocating a new one, so a workspace's
// per-leaf scratch mesh can be refilled across reconstructions without
// reallocating its vertex/triangle backing arrays (spec.md §4.8).
func TriangulateInto[I numeric.Index, R numeric.Real](out *mesh.TriMesh3d[R, I], g *grid.UniformGrid[I, R], m density.Map[I, R], threshold R) []EdgeID[I] {
	return TriangulateIntoFiltered(out, g, m, threshold, nil)
}

// TriangulateIntoFiltered is TriangulateInto, additionally restricting
// triangulation to cells for which owns(cellFlat) is true (or every
// touched cell, if owns is nil). This is what lets a decomposed
// reconstruction assign each background-grid cell to exactly one
// octree leaf: two leaves whose density maps both touch a shared
// boundary cell each call this with their own ownership predicate, so
// only one of them actually triangulates it, and the stitched mesh
// never receives the same triangle twice (spec.md §4.6, §8.6).
func TriangulateIntoFiltered[I numeric.Index, R numeric.Real](out *mesh.TriMesh3d[R, I], g *grid.UniformGrid[I, R], m density.Map[I, R], threshold R, owns func(cellFlat I) bool) []EdgeID[I] {
	out.Clear()
	if len(m) == 0 {
		return nil
	}

	touched := touchedCells(g, m)
	vertexOf := make(map[EdgeID[I]]I, len(touched)*4)
	var edgeIDs []EdgeID[I]

	for _, cellFlat := range touched {
		if owns != nil && !owns(cellFlat) {
			continue
		}
		c := g.CellCoord(cellFlat)
		corners := g.CellCornerPointIndices(c)

		var values [8]R
		var inside [8]bool
		anyInside, anyOutside := false, false
		for i := 0; i < 8; i++ {
			v := m[corners[i]] // zero value if absent
			values[i] = v
			inside[i] = v >= threshold
			if inside[i] {
				anyInside = true
			} else {
				anyOutside = true
			}
		}
		if !anyInside || !anyOutside {
			continue // cube is entirely inside or entirely outside: no surface crossing
		}

		edges := g.CellEdges(c)
		triangles := TriangulationIter(inside)
		for _, tri := range triangles {
			i0 := emitEdgeVertex(out, vertexOf, &edgeIDs, g, edges, corners, values, threshold, tri.E0)
			i1 := emitEdgeVertex(out, vertexOf, &edgeIDs, g, edges, corners, values, threshold, tri.E1)
			i2 := emitEdgeVertex(out, vertexOf, &edgeIDs, g, edges, corners, values, threshold, tri.E2)
			out.AddTriangle(mesh.Triangle[I]{A: i0, B: i1, C: i2})
		}
	}

	return edgeIDs
}

// emitEdgeVertex returns the mesh vertex index for the surface-crossing
// point on cube edge edgeIdx, creating and interpolating it on first
// visit and reusing it (via the global edge key) on every subsequent
// visit from a neighboring cube.
func emitEdgeVertex[I numeric.Index, R numeric.Real](
	out *mesh.TriMesh3d[R, I],
	vertexOf map[EdgeID[I]]I,
	edgeIDs *[]EdgeID[I],
	g *grid.UniformGrid[I, R],
	edges [12][2]I,
	corners [8]I,
	values [8]R,
	threshold R,
	edgeIdx int8,
) I {
	endpoints := edges[edgeIdx]
	key := makeEdgeKey(endpoints[0], endpoints[1])
	if idx, ok := vertexOf[key]; ok {
		return idx
	}

	pair := cubeEdgeCornerIndices[edgeIdx]
	cA, cB := pair[0], pair[1]
	dA, dB := values[cA], values[cB]
	posA := g.PointPosition(g.PointCoord(corners[cA]))
	posB := g.PointPosition(g.PointCoord(corners[cB]))

	var t R
	if dB == dA {
		t = 0.5
	} else {
		t = (threshold - dA) / (dB - dA)
	}
	pos := posA.Add(posB.Sub(posA).Scale(t))

	idx, err := out.AddVertex(pos)
	if err != nil {
		// Vertex count overflowed I; cannot recover mid-triangulation.
		// This mirrors an index-overflow failure the caller should have
		// avoided by sizing I generously (spec.md §6, IndexOverflow).
		panic(err)
	}
	vertexOf[key] = idx
	*edgeIDs = append(*edgeIDs, key)
	return idx
}

// cubeEdgeCornerIndices duplicates grid's cubeEdgeCorners table (corner
// indices, not offsets) so edge interpolation can look up each edge's
// two corner-local indices without re-deriving them from coordinates.
var cubeEdgeCornerIndices = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// touchedCells returns the flat cell indices of every cell having at
// least one corner present in m, in ascending order, so triangulation
// order (and therefore vertex emission order for any first-touch
// position-dependent logic) is deterministic regardless of map
// iteration order (spec.md §9).
func touchedCells[I numeric.Index, R numeric.Real](g *grid.UniformGrid[I, R], m density.Map[I, R]) []I {
	set := make(map[I]struct{}, len(m)*4)
	cellsX, cellsY, cellsZ := g.CellsX(), g.CellsY(), g.CellsZ()

	for flat := range m {
		p := g.PointCoord(flat)
		for _, off := range cellCornerOffsets {
			ci := int(p.I) - off[0]
			cj := int(p.J) - off[1]
			ck := int(p.K) - off[2]
			if ci < 0 || cj < 0 || ck < 0 {
				continue
			}
			if I(ci) >= cellsX || I(cj) >= cellsY || I(ck) >= cellsZ {
				continue
			}
			cellCoord := grid.Coord[I]{I: I(ci), J: I(cj), K: I(ck)}
			set[g.CellIndex(cellCoord)] = struct{}{}
		}
	}

	out := make([]I, 0, len(set))
	for flat := range set {
		out = append(out, flat)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}
