package distance

import (
	"testing"

	"gopairs/domain/core"
	"gopairs/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PopulationStatistics(t *testing.T) {
	z, err := Normalize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)

	// mean 5, population sd 2
	assert.InDeltaSlice(t, []float64{-1.5, -0.5, -0.5, -0.5, 0, 0, 1, 2}, z, 1e-12)
}

func TestNormalize_Degenerate(t *testing.T) {
	_, err := Normalize(testkit.Constant(5, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConstantSeries)
	assert.True(t, core.IsDegenerateSeries(err))

	_, err = Normalize(nil)
	assert.ErrorIs(t, err, core.ErrSeriesTooShort)
}

func TestNormalize_OverflowingLevels(t *testing.T) {
	_, err := Normalize([]float64{1e308, 1e308, -1e308, 1e308, 5e307})
	require.Error(t, err)
	assert.True(t, core.IsNumericalTest(err))
	assert.False(t, core.IsDegenerateSeries(err))
}

func TestDistance_SelfIsZero(t *testing.T) {
	for seed := 0; seed < 5; seed++ {
		walk := testkit.RandomWalk(120, 40, seed)
		d, err := Distance(walk, walk)
		require.NoError(t, err)
		assert.Equal(t, 0.0, d)
	}
}

func TestDistance_InvariantToScaleAndShift(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	d, err := Distance(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0, d, 1e-24)

	walk := testkit.RandomWalk(200, 10, 3)
	d, err = Distance(walk, testkit.Affine(walk, 3.5, -20))
	require.NoError(t, err)
	assert.InDelta(t, 0, d, 1e-18)
}

func TestDistance_KnownValue(t *testing.T) {
	d, err := Distance([]float64{1, 2, 3, 4, 5}, []float64{5, 3, 1, 6, 2})
	require.NoError(t, err)
	assert.InDelta(t, 12.287478554989068, d, 1e-12)
}

func TestDistance_Symmetric(t *testing.T) {
	a := testkit.RandomWalk(50, 10, 1)
	b := testkit.RandomWalk(50, 10, 2)
	ab, err := Distance(a, b)
	require.NoError(t, err)
	ba, err := Distance(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.Greater(t, ab, 0.0)
}

func TestSquaredEuclidean_LengthMismatch(t *testing.T) {
	_, err := SquaredEuclidean([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestIsConstant(t *testing.T) {
	assert.True(t, IsConstant([]float64{0.1, 0.1, 0.1, 0.1, 0.1}))
	assert.True(t, IsConstant([]float64{7}))
	assert.False(t, IsConstant([]float64{1, 1, 1.0000001}))

	_, err := Normalize([]float64{0.1, 0.1, 0.1, 0.1, 0.1})
	assert.ErrorIs(t, err, core.ErrConstantSeries)
}
