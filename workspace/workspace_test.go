package workspace_test

import (
	"testing"

	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/workspace"
	"github.com/stretchr/testify/assert"
)

func TestLocal_ClearRetainsCapacity(t *testing.T) {
	l := workspace.NewLocalWithCapacity[float64, int32](16)
	l.ParticlePositions = append(l.ParticlePositions, geom.V3(1.0, 2.0, 3.0))
	l.ParticleDensities = append(l.ParticleDensities, 1000)
	l.DensityMap[5] = 42

	capBefore := cap(l.ParticlePositions)
	l.Clear()

	assert.Empty(t, l.ParticlePositions)
	assert.Empty(t, l.ParticleDensities)
	assert.Empty(t, l.DensityMap)
	assert.Equal(t, capBefore, cap(l.ParticlePositions))
}

func TestPool_GetIsStablePerWorkerID(t *testing.T) {
	p := workspace.NewPool[float64, int32]()
	a := p.Get(0)
	b := p.Get(0)
	assert.Same(t, a, b)

	c := p.Get(3)
	assert.NotSame(t, a, c)
}

func TestPool_ClearAll(t *testing.T) {
	p := workspace.NewPool[float64, int32]()
	w := p.Get(0)
	w.ParticleDensities = append(w.ParticleDensities, 1, 2, 3)
	p.ClearAll()
	assert.Empty(t, p.Get(0).ParticleDensities)
}

func TestGlobal_Clear(t *testing.T) {
	g := workspace.NewGlobal[float64]()
	g.Densities = append(g.Densities, 1, 2, 3)
	g.Clear()
	assert.Empty(t, g.Densities)
}
