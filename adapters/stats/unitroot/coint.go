package unitroot

import (
	"fmt"
	"math"

	"gopairs/adapters/stats/regression"
	"gopairs/domain/core"
)

// collinearR2 is the R² above which two series are treated as an exact
// linear combination of each other, leaving a residual with no variation
var collinearR2 = 1 - 100*math.Sqrt(machineEpsilon)

// residualTolerance scales max|y| into the largest residual still counted as zero
const residualTolerance = 1e3 * machineEpsilon

const machineEpsilon = 2.220446049250313e-16

// CointResult is a two-series cointegration test outcome
type CointResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Alpha     float64 `json:"alpha"`
	Beta      float64 `json:"beta"`
	// Collinear marks a fit treated as exact: the statistic is -Inf and
	// the residual is not tested.
	Collinear bool       `json:"collinear"`
	ADF       *ADFResult `json:"adf,omitempty"`
}

// Coint is the Engle-Granger test with a constant in the cointegrating
// regression y0 = β·y1 + α. Residuals are tested with an ADF regression that
// has no deterministic term, and the statistic is scored against the
// two-variable MacKinnon surface.
func Coint(y0, y1 []float64) (*CointResult, error) {
	if len(y0) != len(y1) {
		return nil, fmt.Errorf("%w: %d vs %d observations", core.ErrRaggedTable, len(y0), len(y1))
	}
	fit, err := regression.OLS(y0, y1, regression.Ones(len(y0)))
	if err != nil {
		return nil, err
	}
	res := &CointResult{Beta: fit.Params[0], Alpha: fit.Params[1]}

	if err := scoreResidual(res, fit, RegressionNone, highR2); err != nil {
		return nil, err
	}
	p, err := MacKinnonP(res.Statistic, RegressionConstant, 2)
	if err != nil {
		return nil, core.NewNumericalTestError("coint", err)
	}
	res.PValue = p
	return res, nil
}

// ResidualADF fits y = α + β·x by OLS and runs an ADF test with a constant on
// the fitted residual. Unlike Coint the p-value comes from the single-series
// surface, and only an exact fit (zero residual) skips the ADF step.
func ResidualADF(y, x []float64) (*CointResult, error) {
	if len(y) != len(x) {
		return nil, fmt.Errorf("%w: %d vs %d observations", core.ErrRaggedTable, len(y), len(x))
	}
	fit, err := regression.OLS(y, regression.Ones(len(y)), x)
	if err != nil {
		return nil, err
	}
	res := &CointResult{Alpha: fit.Params[0], Beta: fit.Params[1]}

	if err := scoreResidual(res, fit, RegressionConstant, zeroResidual(y)); err != nil {
		return nil, err
	}
	if res.ADF != nil {
		res.PValue = res.ADF.PValue
	}
	return res, nil
}

func scoreResidual(res *CointResult, fit *regression.Result, reg Regression, collinear func(*regression.Result) bool) error {
	if math.IsNaN(fit.RSquared) {
		return core.NewNumericalTestError("cointegrating regression", fmt.Errorf("undefined R²"))
	}
	if collinear(fit) {
		res.Collinear = true
		res.Statistic = math.Inf(-1)
		res.PValue = 0
		return nil
	}

	adf, err := ADF(fit.Resid, reg)
	if err != nil {
		return err
	}
	res.ADF = adf
	res.Statistic = adf.Statistic
	return nil
}

func highR2(fit *regression.Result) bool {
	return fit.RSquared >= collinearR2
}

// zeroResidual reports whether every residual is rounding noise relative to
// the dependent series. A near-perfect but nonzero fit still gets tested.
func zeroResidual(y []float64) func(*regression.Result) bool {
	scale := 0.0
	for _, v := range y {
		scale = math.Max(scale, math.Abs(v))
	}
	tol := residualTolerance * scale
	return func(fit *regression.Result) bool {
		for _, r := range fit.Resid {
			if math.Abs(r) > tol {
				return false
			}
		}
		return true
	}
}
