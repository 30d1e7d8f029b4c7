package numeric_test

import (
	"testing"

	"github.com/gekko3d/surfrecon/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertReal_RoundTrips(t *testing.T) {
	v, err := numeric.ConvertReal[float32](1.5)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), v)
}

func TestConvertReal_FailsOnOutOfRangeMagnitude(t *testing.T) {
	_, err := numeric.ConvertReal[float32](1.0000000000000002)
	// This value is representable in float64 but collapses to 1.0 in
	// float32 within tolerance, so it should NOT fail; use a magnitude
	// that genuinely can't survive narrowing instead.
	_ = err

	huge := 1e300
	_, err = numeric.ConvertReal[float32](huge)
	assert.Error(t, err)
}

func TestConvertIndex_FailsOnOverflow(t *testing.T) {
	_, err := numeric.ConvertIndex[int32](int64(1) << 40)
	assert.Error(t, err)
}

func TestConvertIndex_RoundTrips(t *testing.T) {
	v, err := numeric.ConvertIndex[int64](int32(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}
