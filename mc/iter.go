package mc

// CornerMask packs 8 corner above/below-threshold flags into a bitfield
// index into Table, least-significant bit first (corner 0 is bit 0).
func CornerMask(inside [8]bool) uint8 {
	var mask uint8
	for i := 7; i >= 0; i-- {
		mask <<= 1
		if inside[i] {
			mask |= 1
		}
	}
	return mask
}

// CornerMaskToFlags is the inverse of CornerMask (used by the round-trip
// property test, spec.md §8.1).
func CornerMaskToFlags(mask uint8) [8]bool {
	var flags [8]bool
	for i := 0; i < 8; i++ {
		flags[i] = (mask>>uint(i))&1 == 1
	}
	return flags
}

// Raw returns the raw 16-entry table row for the given corner
// configuration (before winding reversal).
func Raw(inside [8]bool) *[16]int8 {
	return &Table[CornerMask(inside)]
}

// Triangle is one emitted triangle, as a triple of edge indices (0-11)
// into the cube's edge numbering (see package grid's CellEdges).
type Triangle struct {
	E0, E1, E2 int8
}

// TriangulationIter returns the (at most five) triangles for the given
// corner configuration. Triplets from the raw table are reversed so
// that the outward-facing winding convention documented in lut.go
// holds (original: "reverse the vertex index order to fix winding
// order").
func TriangulationIter(inside [8]bool) []Triangle {
	raw := Raw(inside)
	triangles := make([]Triangle, 0, 5)
	for i := 0; i < 5; i++ {
		if raw[3*i] == -1 {
			break
		}
		triangles = append(triangles, Triangle{
			E0: raw[3*i+2],
			E1: raw[3*i+1],
			E2: raw[3*i+0],
		})
	}
	return triangles
}
