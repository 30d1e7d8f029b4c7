package kernel_test

import (
	"testing"

	"github.com/gekko3d/surfrecon/kernel"
	"github.com/stretchr/testify/assert"
)

func TestCubicSpline_ZeroBeyondSupport(t *testing.T) {
	assert.Equal(t, 0.0, kernel.CubicSpline(2.0, 2.0))
	assert.Equal(t, 0.0, kernel.CubicSpline(5.0, 2.0))
}

func TestCubicSpline_PositiveWithinSupport(t *testing.T) {
	v := kernel.CubicSpline(0.1, 2.0)
	assert.Greater(t, v, 0.0)
}

func TestCubicSpline_Symmetric(t *testing.T) {
	assert.Equal(t, kernel.CubicSpline(0.5, 2.0), kernel.CubicSpline(-0.5, 2.0))
}

func TestCubicSpline_PeaksAtOrigin(t *testing.T) {
	center := kernel.CubicSpline(0.0, 2.0)
	near := kernel.CubicSpline(0.2, 2.0)
	far := kernel.CubicSpline(1.5, 2.0)
	assert.Greater(t, center, near)
	assert.Greater(t, near, far)
}

func TestEvaluationRadiusFor(t *testing.T) {
	r := kernel.EvaluationRadiusFor(2.0, 0.5)
	assert.Greater(t, r.KernelEvaluationRadius, r.KernelRadius)
}
