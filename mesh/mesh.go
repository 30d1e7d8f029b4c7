// Package mesh holds the plain indexed-triangle-mesh data model shared
// by the marching-cubes triangulator and the stitching stage. No
// file-format I/O lives here (out of scope, spec.md §1): this is purely
// the in-memory representation exchanged with external collaborators.
package mesh

import (
	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/numeric"
	"github.com/go-gl/mathgl/mgl32"
)

// Triangle is a triple of vertex indices.
type Triangle[I numeric.Index] struct {
	A, B, C I
}

// TriMesh3d is an indexed triangle mesh: vertices plus triangles
// referencing them by index.
type TriMesh3d[R numeric.Real, I numeric.Index] struct {
	Vertices  []geom.Vector3[R]
	Triangles []Triangle[I]
}

// Clear empties the mesh, retaining the backing array capacity so a
// reused reconstruction handle doesn't reallocate every frame.
func (m *TriMesh3d[R, I]) Clear() {
	m.Vertices = m.Vertices[:0]
	m.Triangles = m.Triangles[:0]
}

// AddVertex appends a vertex and returns its index.
func (m *TriMesh3d[R, I]) AddVertex(v geom.Vector3[R]) (I, error) {
	idx, err := numeric.FromInt[I](len(m.Vertices))
	if err != nil {
		return 0, err
	}
	m.Vertices = append(m.Vertices, v)
	return idx, nil
}

// AddTriangle appends a triangle. The caller is responsible for only
// passing indices that are valid vertex indices (invariant from
// spec.md §3).
func (m *TriMesh3d[R, I]) AddTriangle(t Triangle[I]) {
	m.Triangles = append(m.Triangles, t)
}

// Append concatenates another mesh's vertices and triangles onto m,
// remapping the other mesh's triangle indices by the vertex offset.
// Used for the "append sub-meshes raw" fallback of spec.md §4.8 when
// stitching is disabled.
func (m *TriMesh3d[R, I]) Append(other *TriMesh3d[R, I]) error {
	offset, err := numeric.FromInt[I](len(m.Vertices))
	if err != nil {
		return err
	}
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, t := range other.Triangles {
		m.Triangles = append(m.Triangles, Triangle[I]{A: t.A + offset, B: t.B + offset, C: t.C + offset})
	}
	return nil
}

// Attribute is a named per-vertex array, either a scalar or a vector3
// of Real, carried alongside a mesh (spec.md §3, "Mesh Attributes").
type Attribute[R numeric.Real] struct {
	Name   string
	Scalar []R
	Vector []geom.Vector3[R]
}

// IsVector reports whether this attribute stores vector3 data rather
// than scalars.
func (a Attribute[R]) IsVector() bool { return a.Vector != nil }

// ToMgl32Vertices converts the mesh's vertex positions to
// github.com/go-gl/mathgl Vec3 values, for a renderer that consumes
// single-precision buffers directly (see SPEC_FULL.md Domain Stack).
func (m *TriMesh3d[R, I]) ToMgl32Vertices() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.ToMgl32()
	}
	return out
}
