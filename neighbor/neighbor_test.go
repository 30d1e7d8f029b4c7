package neighbor_test

import (
	"testing"

	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/neighbor"
	"github.com/stretchr/testify/assert"
)

func TestQueryRadius_FindsCloseExcludesFar(t *testing.T) {
	positions := []geom.Vector3[float64]{
		geom.V3(0, 0, 0),
		geom.V3(0.1, 0, 0),
		geom.V3(10, 10, 10),
	}
	g := neighbor.Build(positions, 1.0)
	got := g.QueryRadius(0, 1.0)
	assert.Equal(t, []int32{1}, got)
}

func TestQueryRadius_ExcludesSelf(t *testing.T) {
	positions := []geom.Vector3[float64]{
		geom.V3(0, 0, 0),
	}
	g := neighbor.Build(positions, 1.0)
	got := g.QueryRadius(0, 1.0)
	assert.Empty(t, got)
}

// Invariant (spec.md §4.3): serial and parallel computation produce
// identical neighbor lists regardless of worker count.
func TestAll_SerialAndParallelAgree(t *testing.T) {
	positions := make([]geom.Vector3[float64], 0, 200)
	for x := 0.0; x < 5; x += 0.3 {
		for y := 0.0; y < 5; y += 0.3 {
			positions = append(positions, geom.V3(x, y, 0))
		}
	}

	serial := neighbor.All(neighbor.AllParams[float64]{
		Positions:            positions,
		Radius:               0.5,
		EnableMultiThreading: false,
	})
	parallel := neighbor.All(neighbor.AllParams[float64]{
		Positions:            positions,
		Radius:               0.5,
		EnableMultiThreading: true,
	})

	if assert.Equal(t, len(serial), len(parallel)) {
		for i := range serial {
			assert.Equal(t, serial[i], parallel[i], "particle %d", i)
		}
	}
}

func TestQueryRadius_CrossesCellBoundary(t *testing.T) {
	// Two particles close together but straddling a cell boundary at a
	// multiple of the cell size must still find each other via the
	// 3x3x3 neighbor-cell probe.
	positions := []geom.Vector3[float64]{
		geom.V3(0.99, 0, 0),
		geom.V3(1.01, 0, 0),
	}
	g := neighbor.Build(positions, 1.0)
	got := g.QueryRadius(0, 1.0)
	assert.Equal(t, []int32{1}, got)
}
