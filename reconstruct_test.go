package surfrecon_test

import (
	"math"
	"testing"

	"github.com/gekko3d/surfrecon"
	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/mesh"
	"github.com/gekko3d/surfrecon/octree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultParams() surfrecon.Parameters[float64] {
	return surfrecon.Parameters[float64]{
		ParticleRadius:      0.5,
		RestDensity:         1000,
		KernelRadius:        2.0,
		CubeSize:            0.5,
		IsoSurfaceThreshold: 0.6,
	}
}

// S1 — empty input.
func TestReconstruct_EmptyInputIsDegenerate(t *testing.T) {
	_, err := surfrecon.Reconstruct[int32](nil, defaultParams())
	require.Error(t, err)

	var reconErr *surfrecon.ReconstructionError
	require.ErrorAs(t, err, &reconErr)
	assert.Equal(t, surfrecon.DegenerateInput, reconErr.Kind)
}

// S2 — single particle at origin.
func TestReconstruct_SingleParticleYieldsClosedSphericalMesh(t *testing.T) {
	positions := []geom.Vector3[float64]{geom.V3(0.0, 0.0, 0.0)}
	out, err := surfrecon.Reconstruct[int32](positions, defaultParams())
	require.NoError(t, err)
	require.NotEmpty(t, out.Mesh.Triangles)

	maxDist := 1.5 * defaultParams().KernelRadius
	for _, tri := range out.Mesh.Triangles {
		centroid := out.Mesh.Vertices[tri.A].
			Add(out.Mesh.Vertices[tri.B]).
			Add(out.Mesh.Vertices[tri.C]).
			Scale(1.0 / 3.0)
		assert.LessOrEqual(t, centroid.Len(), maxDist)
	}
}

// S3 — two far-apart particles produce two topologically separate
// components, each with Euler characteristic 2.
func TestReconstruct_TwoFarApartParticlesProduceTwoSphericalComponents(t *testing.T) {
	params := defaultParams()
	params.KernelRadius = 1.0
	params.CubeSize = 0.25

	positions := []geom.Vector3[float64]{
		geom.V3(0.0, 0.0, 0.0),
		geom.V3(10.0, 0.0, 0.0),
	}
	out, err := surfrecon.Reconstruct[int32](positions, params)
	require.NoError(t, err)
	require.NotEmpty(t, out.Mesh.Triangles)

	components := connectedComponents(out.Mesh.Triangles)
	require.Len(t, components, 2)
	for _, comp := range components {
		v, e, f := eulerCounts(comp)
		assert.Equal(t, 2, v-e+f, "expected a closed topological sphere")
	}
}

// S4 — dense cube-packed block produces a single closed mesh.
func TestReconstruct_DenseBlockProducesSingleClosedMesh(t *testing.T) {
	params := defaultParams()
	positions := denseBlock(params.ParticleRadius)

	out, err := surfrecon.Reconstruct[int32](positions, params)
	require.NoError(t, err)
	require.NotEmpty(t, out.Mesh.Triangles)

	components := connectedComponents(out.Mesh.Triangles)
	assert.Len(t, components, 1)
}

// S6 — stitching equivalence: decomposed-with-stitching reproduces the
// non-decomposed mesh exactly, as an unordered multiset of triangles
// under vertex equality up to floating-point noise (spec.md §8.6,
// property 6). Triangle count alone would tolerate a leaf boundary
// emitting the same triangle twice or dropping one; this compares the
// actual triangle sets.
func TestReconstruct_StitchedDecompositionMatchesNonDecomposed(t *testing.T) {
	params := defaultParams()
	positions := denseBlock(params.ParticleRadius)

	whole, err := surfrecon.Reconstruct[int32](positions, params)
	require.NoError(t, err)

	decomposedParams := params
	decomposedParams.SpatialDecomposition = &surfrecon.SpatialDecompositionParameters[float64]{
		SubdivisionCriterion:      octree.SubdivisionCriterion{MaxParticlesPerLeaf: 64},
		GhostParticleSafetyFactor: 1.0,
		EnableStitching:           true,
	}
	decomposed, err := surfrecon.Reconstruct[int32](positions, decomposedParams)
	require.NoError(t, err)

	assert.Equal(t, triangleMultiset(&whole.Mesh), triangleMultiset(&decomposed.Mesh))
}

// vtxKey is a quantized vertex position: coordinates differing only by
// float noise (far below the mesh's cube_size) collapse to the same
// key, while distinct mesh vertices (separated on the order of
// cube_size) remain distinguishable.
type vtxKey [3]int64

const quantum = 1e-6

func quantize(v float64) int64 {
	return int64(math.Round(v / quantum))
}

func vertexKey(v geom.Vector3[float64]) vtxKey {
	return vtxKey{quantize(v.X), quantize(v.Y), quantize(v.Z)}
}

// canonicalTriangle rotates a triangle's three vertex keys so the
// smallest comes first, preserving winding (and therefore which
// triangle it actually is) while making the key independent of which
// corner a triangulator happened to emit first.
func canonicalTriangle(a, b, c vtxKey) [3]vtxKey {
	switch {
	case less(a, b) && less(a, c):
		return [3]vtxKey{a, b, c}
	case less(b, a) && less(b, c):
		return [3]vtxKey{b, c, a}
	default:
		return [3]vtxKey{c, a, b}
	}
}

func less(a, b vtxKey) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

// triangleMultiset counts each canonicalized triangle's occurrences,
// so two meshes compare equal only if they contain exactly the same
// triangles the same number of times, regardless of vertex/triangle
// emission order.
func triangleMultiset(m *mesh.TriMesh3d[float64, int32]) map[[3]vtxKey]int {
	counts := make(map[[3]vtxKey]int, len(m.Triangles))
	for _, tri := range m.Triangles {
		a := vertexKey(m.Vertices[tri.A])
		b := vertexKey(m.Vertices[tri.B])
		c := vertexKey(m.Vertices[tri.C])
		counts[canonicalTriangle(a, b, c)]++
	}
	return counts
}

func denseBlock(spacing float64) []geom.Vector3[float64] {
	positions := make([]geom.Vector3[float64], 0, 8*8*8)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			for k := 0; k < 8; k++ {
				positions = append(positions, geom.V3(
					float64(i)*spacing,
					float64(j)*spacing,
					float64(k)*spacing,
				))
			}
		}
	}
	return positions
}

// connectedComponents groups triangles whose vertex indices transitively
// overlap, via union-find, for the topology assertions in S3/S4.
func connectedComponents(triangles []mesh.Triangle[int32]) [][]mesh.Triangle[int32] {
	parent := map[int32]int32{}
	var find func(x int32) int32
	find = func(x int32) int32 {
		if _, ok := parent[x]; !ok {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int32) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, tri := range triangles {
		union(tri.A, tri.B)
		union(tri.B, tri.C)
	}

	groups := map[int32][]mesh.Triangle[int32]{}
	for _, tri := range triangles {
		root := find(tri.A)
		groups[root] = append(groups[root], tri)
	}

	components := make([][]mesh.Triangle[int32], 0, len(groups))
	for _, tris := range groups {
		components = append(components, tris)
	}
	return components
}

// eulerCounts returns V - E + F's constituent counts for a connected
// set of triangles, for the Euler-characteristic assertion in S3.
func eulerCounts(triangles []mesh.Triangle[int32]) (vertices, edges, faces int) {
	vertexSet := map[int32]struct{}{}
	type edgeKey struct{ lo, hi int32 }
	edgeSet := map[edgeKey]struct{}{}

	addEdge := func(a, b int32) {
		if a > b {
			a, b = b, a
		}
		edgeSet[edgeKey{a, b}] = struct{}{}
	}

	for _, tri := range triangles {
		vertexSet[tri.A] = struct{}{}
		vertexSet[tri.B] = struct{}{}
		vertexSet[tri.C] = struct{}{}
		addEdge(tri.A, tri.B)
		addEdge(tri.B, tri.C)
		addEdge(tri.C, tri.A)
	}

	return len(vertexSet), len(edgeSet), len(triangles)
}
