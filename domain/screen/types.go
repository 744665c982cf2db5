package screen

import (
	"errors"

	"gopairs/domain/core"
	"gopairs/domain/pricetable"
)

// Method names a screening method
type Method string

const (
	MethodCointegration Method = "cointegration"
	MethodDistance      Method = "distance"
)

// ============================================================================
// OPTIONS
// ============================================================================

// CointegrationOptions configures the cointegration screener
type CointegrationOptions struct {
	// Intercept selects the two-step OLS-with-constant + ADF path. When false
	// the Engle-Granger test runs directly on the raw pair.
	Intercept bool `json:"intercept" yaml:"intercept"`
	// SigLevel is the strict upper bound a p-value must fall under
	SigLevel float64 `json:"sig_level" yaml:"sig_level" validate:"gt=0,lt=1"`
}

// DistanceOptions configures the distance screener
type DistanceOptions struct {
	N int `json:"n" yaml:"n" validate:"gt=0"`
}

const (
	DefaultSigLevel = 0.01
	DefaultTopN     = 10
)

// DefaultCointegrationOptions returns intercept=true, sig_level=0.01
func DefaultCointegrationOptions() CointegrationOptions {
	return CointegrationOptions{Intercept: true, SigLevel: DefaultSigLevel}
}

// DefaultDistanceOptions returns n=10
func DefaultDistanceOptions() DistanceOptions {
	return DistanceOptions{N: DefaultTopN}
}

// SkipPolicy decides what a per-pair failure does to the whole call
type SkipPolicy string

const (
	// PolicySkip records the failed pair in the report and keeps going
	PolicySkip SkipPolicy = "skip"
	// PolicyAbort fails the whole call on the first per-pair error
	PolicyAbort SkipPolicy = "abort"
)

// ParseSkipPolicy parses "skip" or "abort"
func ParseSkipPolicy(s string) (SkipPolicy, error) {
	switch SkipPolicy(s) {
	case PolicySkip, PolicyAbort:
		return SkipPolicy(s), nil
	case "":
		return PolicySkip, nil
	}
	return "", core.NewInvalidInputError("policy", "must be one of skip, abort")
}

// ============================================================================
// RESULTS
// ============================================================================

// CointegrationResult is one qualifying pair and the p-value of its test
type CointegrationResult struct {
	First  core.InstrumentID `json:"first"`
	Second core.InstrumentID `json:"second"`
	PValue float64           `json:"p_value"`
}

// DistanceResult pairs an instrument pair with its normalized distance
type DistanceResult struct {
	Pair     pricetable.Pair `json:"pair"`
	Distance float64         `json:"distance"`
}

// SkipCode classifies why a pair was dropped
type SkipCode string

const (
	SkipDegenerateSeries SkipCode = "DEGENERATE_SERIES"
	SkipNumericalTest    SkipCode = "NUMERICAL_TEST"
)

// SkippedPair records a pair that failed and was left out of the results
type SkippedPair struct {
	Pair   pricetable.Pair `json:"pair"`
	Code   SkipCode        `json:"code"`
	Reason string          `json:"reason"`
	Err    error           `json:"-"`
}

// NewSkippedPair classifies a per-pair error
func NewSkippedPair(pair pricetable.Pair, err error) SkippedPair {
	code := SkipNumericalTest
	if errors.Is(err, core.ErrDegenerateSeries) {
		code = SkipDegenerateSeries
	}
	return SkippedPair{Pair: pair, Code: code, Reason: err.Error(), Err: err}
}

// CointegrationReport is the output of a cointegration screen
type CointegrationReport struct {
	RunID     core.RunID            `json:"run_id"`
	Options   CointegrationOptions  `json:"options"`
	Pairs     []CointegrationResult `json:"pairs"`
	Skipped   []SkippedPair         `json:"skipped"`
	Evaluated int                   `json:"evaluated"`
	Table     core.Hash             `json:"table_fingerprint"`
	CreatedAt core.Timestamp        `json:"created_at"`
}

// DistanceReport is the output of a distance screen. Only pair identities are
// returned; distances stay internal to the ranking.
type DistanceReport struct {
	RunID     core.RunID        `json:"run_id"`
	Options   DistanceOptions   `json:"options"`
	Pairs     []pricetable.Pair `json:"pairs"`
	Skipped   []SkippedPair     `json:"skipped"`
	Evaluated int               `json:"evaluated"`
	Table     core.Hash         `json:"table_fingerprint"`
	CreatedAt core.Timestamp    `json:"created_at"`
}

// RunSummary is the stored header of a screening run
type RunSummary struct {
	RunID     core.RunID     `json:"run_id"`
	Method    Method         `json:"method"`
	Table     core.Hash      `json:"table_fingerprint"`
	Evaluated int            `json:"evaluated"`
	Qualified int            `json:"qualified"`
	Skipped   int            `json:"skipped"`
	CreatedAt core.Timestamp `json:"created_at"`
}
