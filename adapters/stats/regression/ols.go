package regression

import (
	"errors"
	"fmt"
	"math"

	"gopairs/domain/core"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularDesign is returned when the design matrix is rank deficient or
// too ill-conditioned to invert
var ErrSingularDesign = errors.New("singular design matrix")

// maxCondition bounds the condition number of R in X = QR before a fit is
// refused. cond(XᵀX) is its square.
const maxCondition = 1e12

// Result holds an ordinary least squares fit
type Result struct {
	Params  []float64
	StdErr  []float64
	TValues []float64
	Fitted  []float64
	Resid   []float64

	SSR      float64
	RSquared float64 // centered when the design carries a constant column
	NObs     int
	K        int

	LogLikelihood float64
}

// DFResid returns the residual degrees of freedom
func (r *Result) DFResid() int {
	return r.NObs - r.K
}

// AIC returns the Akaike information criterion, -2·llf + 2·k
func (r *Result) AIC() float64 {
	return -2*r.LogLikelihood + 2*float64(r.K)
}

// Ones returns a constant regressor of length n
func Ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// OLS regresses y on the given regressor columns. Each column must have len(y)
// entries; add Ones(len(y)) explicitly for an intercept.
func OLS(y []float64, columns ...[]float64) (*Result, error) {
	n, k := len(y), len(columns)
	if k == 0 {
		return nil, core.NewNumericalTestError("ols", errors.New("no regressors"))
	}
	for j, col := range columns {
		if len(col) != n {
			return nil, core.NewNumericalTestError("ols", fmt.Errorf("regressor %d has %d rows, want %d", j, len(col), n))
		}
	}
	if n <= k {
		return nil, core.NewSeriesTooShortError("regression", n, k+1)
	}

	x := mat.NewDense(n, k, nil)
	for j, col := range columns {
		for i, v := range col {
			x.Set(i, j, v)
		}
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(x)
	if cond := qr.Cond(); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > maxCondition {
		return nil, core.NewNumericalTestError("ols", fmt.Errorf("%w: condition number %.3g", ErrSingularDesign, cond))
	}

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yv); err != nil {
		return nil, core.NewNumericalTestError("ols", err)
	}

	// (XᵀX)⁻¹ = R⁻¹R⁻ᵀ, so its diagonal is the squared row norms of R⁻¹
	var r mat.Dense
	qr.RTo(&r)
	upper := mat.NewTriDense(k, mat.Upper, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			upper.SetTri(i, j, r.At(i, j))
		}
	}
	var rinv mat.TriDense
	if err := rinv.InverseTri(upper); err != nil {
		return nil, core.NewNumericalTestError("ols", err)
	}

	res := &Result{
		Params:  make([]float64, k),
		StdErr:  make([]float64, k),
		TValues: make([]float64, k),
		Fitted:  make([]float64, n),
		Resid:   make([]float64, n),
		NObs:    n,
		K:       k,
	}
	for j := 0; j < k; j++ {
		res.Params[j] = beta.AtVec(j)
	}

	for i := 0; i < n; i++ {
		fit := 0.0
		for j, col := range columns {
			fit += col[i] * res.Params[j]
		}
		res.Fitted[i] = fit
		res.Resid[i] = y[i] - fit
		res.SSR += res.Resid[i] * res.Resid[i]
	}

	sigma2 := res.SSR / float64(n-k)
	for j := 0; j < k; j++ {
		unscaled := 0.0
		for m := j; m < k; m++ {
			v := rinv.At(j, m)
			unscaled += v * v
		}
		res.StdErr[j] = math.Sqrt(sigma2 * unscaled)
		res.TValues[j] = res.Params[j] / res.StdErr[j]
	}

	res.RSquared = rSquared(y, res.SSR, hasConstant(columns))

	half := float64(n) / 2
	res.LogLikelihood = -half*math.Log(2*math.Pi) - half*math.Log(res.SSR/float64(n)) - half

	return res, nil
}

func rSquared(y []float64, ssr float64, centered bool) float64 {
	mean := 0.0
	if centered {
		for _, v := range y {
			mean += v
		}
		mean /= float64(len(y))
	}
	tss := 0.0
	for _, v := range y {
		d := v - mean
		tss += d * d
	}
	if tss == 0 {
		return math.NaN()
	}
	return 1 - ssr/tss
}

// hasConstant reports whether any regressor is a nonzero constant column
func hasConstant(columns [][]float64) bool {
	for _, col := range columns {
		if len(col) == 0 || col[0] == 0 {
			continue
		}
		constant := true
		for _, v := range col[1:] {
			if v != col[0] {
				constant = false
				break
			}
		}
		if constant {
			return true
		}
	}
	return false
}
