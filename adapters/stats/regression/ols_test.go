package regression

import (
	"math"
	"testing"

	"gopairs/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOLS_InterceptAndSlope(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{2.9, 5.1, 7.0, 9.2, 10.8, 13.1}

	fit, err := OLS(y, Ones(len(y)), x)
	require.NoError(t, err)

	assert.InDelta(t, 0.98666666667, fit.Params[0], 1e-9)
	assert.InDelta(t, 2.00857142857, fit.Params[1], 1e-9)
	assert.InDelta(t, 0.15229461840, fit.StdErr[0], 1e-9)
	assert.InDelta(t, 0.03910564794, fit.StdErr[1], 1e-9)
	assert.InDelta(t, 51.3626939959, fit.TValues[1], 1e-6)
	assert.InDelta(t, 0.10704761905, fit.SSR, 1e-9)
	assert.InDelta(t, 0.99848606785, fit.RSquared, 1e-9)
	assert.InDelta(t, 3.56509172553, fit.LogLikelihood, 1e-8)
	assert.InDelta(t, -3.13018345106, fit.AIC(), 1e-8)
	assert.Equal(t, 4, fit.DFResid())

	for i := range y {
		assert.InDelta(t, y[i], fit.Fitted[i]+fit.Resid[i], 1e-12)
	}
}

func TestOLS_ExactFit(t *testing.T) {
	x := []float64{2, 4, 6, 8, 10}
	y := []float64{1, 2, 3, 4, 5}

	fit, err := OLS(y, Ones(len(y)), x)
	require.NoError(t, err)
	assert.InDelta(t, 0, fit.Params[0], 1e-12)
	assert.InDelta(t, 0.5, fit.Params[1], 1e-12)
	assert.InDelta(t, 1, fit.RSquared, 1e-12)
	for _, r := range fit.Resid {
		assert.InDelta(t, 0, r, 1e-12)
	}
}

func TestOLS_LargePriceLevels(t *testing.T) {
	const n = 50
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = 1e7 + 0.1*float64(i)
		y[i] = 2*x[i] + 3 + 0.01*math.Sin(float64(i))
	}

	fit, err := OLS(y, Ones(n), x)
	require.NoError(t, err)

	mx, my := 0.0, 0.0
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n
	sxy, sxx := 0.0, 0.0
	for i := range x {
		sxy += (x[i] - mx) * (y[i] - my)
		sxx += (x[i] - mx) * (x[i] - mx)
	}
	assert.InDelta(t, sxy/sxx, fit.Params[1], 1e-6)
	assert.False(t, math.IsNaN(fit.StdErr[1]))
	assert.Greater(t, fit.StdErr[1], 0.0)
}

func TestOLS_UncenteredWithoutConstant(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{1.1, 1.9, 3.2, 3.9}

	fit, err := OLS(y, x)
	require.NoError(t, err)

	tss := 0.0
	for _, v := range y {
		tss += v * v
	}
	assert.InDelta(t, 1-fit.SSR/tss, fit.RSquared, 1e-12)
}

func TestOLS_Errors(t *testing.T) {
	t.Run("too few rows", func(t *testing.T) {
		_, err := OLS([]float64{1, 2}, Ones(2), []float64{1, 2})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrSeriesTooShort)
	})

	t.Run("collinear regressors", func(t *testing.T) {
		x := []float64{1, 2, 3, 4, 5}
		_, err := OLS([]float64{3, 1, 4, 1, 5}, x, Ones(5), x)
		require.Error(t, err)
		assert.True(t, core.IsNumericalTest(err))
	})

	t.Run("constant regressor with intercept", func(t *testing.T) {
		_, err := OLS([]float64{3, 1, 4, 1, 5}, Ones(5), []float64{2, 2, 2, 2, 2})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrNumericalTest)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := OLS([]float64{1, 2, 3}, []float64{1, 2})
		require.Error(t, err)
	})

	t.Run("no regressors", func(t *testing.T) {
		_, err := OLS([]float64{1, 2, 3})
		require.Error(t, err)
	})
}

func TestOLS_ConstantDependentHasUndefinedR2(t *testing.T) {
	fit, err := OLS([]float64{4, 4, 4, 4}, Ones(4), []float64{1, 3, 2, 5})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(fit.RSquared))
}
