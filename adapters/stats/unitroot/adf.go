package unitroot

import (
	"fmt"
	"math"

	"gopairs/adapters/stats/regression"
	"gopairs/domain/core"
)

// ADFResult is the outcome of an augmented Dickey-Fuller test
type ADFResult struct {
	Statistic  float64    `json:"statistic"`
	PValue     float64    `json:"p_value"`
	UsedLag    int        `json:"used_lag"`
	NObs       int        `json:"nobs"`
	Regression Regression `json:"regression"`
}

// ADFOptions controls lag handling. MaxLag < 0 selects the Schwert rule
// ceil(12·(n/100)^¼), capped by the sample size.
type ADFOptions struct {
	MaxLag  int
	Autolag bool
}

// DefaultADFOptions selects the lag by AIC up to the Schwert maximum
func DefaultADFOptions() ADFOptions {
	return ADFOptions{MaxLag: -1, Autolag: true}
}

// ADF runs the augmented Dickey-Fuller test with default options
func ADF(x []float64, reg Regression) (*ADFResult, error) {
	return ADFWithOptions(x, reg, DefaultADFOptions())
}

// ADFWithOptions runs the augmented Dickey-Fuller test:
//
//	Δx_t = ρ·x_{t-1} + Σ γ_j·Δx_{t-j} [+ c] + ε_t
//
// and returns the t-statistic of ρ with its MacKinnon p-value. With Autolag
// every lag 0..MaxLag is fitted on a common sample and the lowest AIC wins;
// the chosen model is then refitted on the longest sample it allows.
func ADFWithOptions(x []float64, reg Regression, opts ADFOptions) (*ADFResult, error) {
	if reg != RegressionNone && reg != RegressionConstant {
		return nil, fmt.Errorf("unsupported regression %q", reg)
	}
	nobs := len(x)
	ntrend := reg.trendCount()
	limit := nobs/2 - ntrend - 1

	maxlag := opts.MaxLag
	if maxlag < 0 {
		maxlag = int(math.Ceil(12 * math.Pow(float64(nobs)/100, 0.25)))
		maxlag = min(limit, maxlag)
		if maxlag < 0 {
			return nil, core.NewSeriesTooShortError("adf input", nobs, 2*(ntrend+1))
		}
	} else if maxlag > limit {
		return nil, core.NewSeriesTooShortError(fmt.Sprintf("adf input at lag %d", maxlag), nobs, 2*(maxlag+ntrend+1))
	}

	usedLag := maxlag
	if opts.Autolag {
		best, err := selectLagAIC(x, reg, maxlag)
		if err != nil {
			return nil, err
		}
		usedLag = best
	}

	y, cols := dfDesign(x, usedLag, reg, false)
	fit, err := regression.OLS(y, cols...)
	if err != nil {
		return nil, err
	}

	stat := fit.TValues[0]
	if math.IsNaN(stat) || math.IsInf(stat, 0) {
		return nil, core.NewNumericalTestError("adf", fmt.Errorf("statistic is %v", stat))
	}
	p, err := MacKinnonP(stat, reg, 1)
	if err != nil {
		return nil, core.NewNumericalTestError("adf", err)
	}

	return &ADFResult{
		Statistic:  stat,
		PValue:     p,
		UsedLag:    usedLag,
		NObs:       fit.NObs,
		Regression: reg,
	}, nil
}

// selectLagAIC fits lags 0..maxlag on the sample trimmed for maxlag and
// returns the lag with minimum AIC, preferring the shorter lag on ties
func selectLagAIC(x []float64, reg Regression, maxlag int) (int, error) {
	y, cols := dfDesign(x, maxlag, reg, true)
	start := reg.trendCount() + 1

	bestLag, bestAIC := -1, math.Inf(1)
	for k := start; k <= start+maxlag; k++ {
		fit, err := regression.OLS(y, cols[:k]...)
		if err != nil {
			return 0, err
		}
		if aic := fit.AIC(); bestLag < 0 || aic < bestAIC {
			bestLag, bestAIC = k-start, aic
		}
	}
	return bestLag, nil
}

// dfDesign builds the Dickey-Fuller regression for a given lag. Column 0 is
// always the lagged level unless constFirst puts the constant ahead of it,
// which is the ordering lag selection needs so that prefixes are nested models.
func dfDesign(x []float64, lag int, reg Regression, constFirst bool) ([]float64, [][]float64) {
	diff := make([]float64, len(x)-1)
	for i := range diff {
		diff[i] = x[i+1] - x[i]
	}

	rows := len(diff) - lag
	y := make([]float64, rows)
	level := make([]float64, rows)
	for r := 0; r < rows; r++ {
		y[r] = diff[r+lag]
		level[r] = x[r+lag]
	}

	cols := make([][]float64, 0, lag+2)
	cols = append(cols, level)
	for j := 1; j <= lag; j++ {
		col := make([]float64, rows)
		for r := 0; r < rows; r++ {
			col[r] = diff[r+lag-j]
		}
		cols = append(cols, col)
	}

	if reg == RegressionConstant {
		ones := regression.Ones(rows)
		if constFirst {
			cols = append([][]float64{ones}, cols...)
		} else {
			cols = append(cols, ones)
		}
	}
	return y, cols
}
