package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"time"

	"gopairs/adapters/stats/distance"
	"gopairs/adapters/stats/unitroot"
	"gopairs/domain/core"
	"gopairs/domain/pricetable"
	"gopairs/domain/screen"
	"gopairs/ports"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// topPairsReported is how many ranked distance records reach the observer
const topPairsReported = 10

// ScreeningService runs the cointegration and distance screens over a price
// table. It holds no per-call state and is safe for concurrent use.
type ScreeningService struct {
	observer ports.ScreenObserver
	workers  int
	policy   screen.SkipPolicy
	validate *validator.Validate
}

// Option configures a ScreeningService
type Option func(*ScreeningService)

// WithObserver sets the telemetry sink. Nil keeps the no-op observer.
func WithObserver(o ports.ScreenObserver) Option {
	return func(s *ScreeningService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithWorkers bounds the number of pairs evaluated concurrently. Values below
// one fall back to one worker per CPU.
func WithWorkers(n int) Option {
	return func(s *ScreeningService) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		s.workers = n
	}
}

// WithPolicy sets what a per-pair failure does to the call
func WithPolicy(p screen.SkipPolicy) Option {
	return func(s *ScreeningService) {
		s.policy = p
	}
}

// WithValidator replaces the option validator
func WithValidator(v *validator.Validate) Option {
	return func(s *ScreeningService) {
		if v != nil {
			s.validate = v
		}
	}
}

// NewScreeningService creates a screening service
func NewScreeningService(opts ...Option) *ScreeningService {
	s := &ScreeningService{
		observer: ports.NopObserver{},
		workers:  runtime.NumCPU(),
		policy:   screen.PolicySkip,
		validate: newOptionValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newOptionValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ScreenCointegration tests every pair of the table for cointegration and
// returns those with p-value strictly below opts.SigLevel, in pair order
func (s *ScreeningService) ScreenCointegration(ctx context.Context, table *pricetable.Table, opts screen.CointegrationOptions) (*screen.CointegrationReport, error) {
	if err := s.checkInput(table, opts); err != nil {
		return nil, err
	}

	run := core.NewRunID()
	started := time.Now()
	pairs := table.Pairs()
	s.observer.ScreenStarted(run, screen.MethodCointegration, table.Width(), len(pairs))

	pvalues := make([]float64, len(pairs))
	skipped, err := s.evaluate(ctx, run, screen.MethodCointegration, pairs, func(k int) error {
		p, err := cointegrationPValue(table, pairs[k], opts.Intercept)
		pvalues[k] = p
		return err
	})
	if err != nil {
		s.observer.ScreenFinished(run, screen.MethodCointegration, ports.ScreenSummary{Duration: time.Since(started), Err: err})
		return nil, err
	}

	report := &screen.CointegrationReport{
		RunID:     run,
		Options:   opts,
		Pairs:     []screen.CointegrationResult{},
		Skipped:   compactSkipped(skipped),
		Table:     table.Fingerprint(),
		CreatedAt: core.Now(),
	}
	for k, pair := range pairs {
		if skipped[k] != nil {
			continue
		}
		report.Evaluated++
		if pvalues[k] < opts.SigLevel {
			report.Pairs = append(report.Pairs, screen.CointegrationResult{
				First:  pair.First,
				Second: pair.Second,
				PValue: pvalues[k],
			})
		}
	}

	s.observer.ScreenFinished(run, screen.MethodCointegration, ports.ScreenSummary{
		Table:     report.Table,
		Evaluated: report.Evaluated,
		Qualified: len(report.Pairs),
		Skipped:   len(report.Skipped),
		Duration:  time.Since(started),
	})
	return report, nil
}

// ScreenDistance ranks every pair by the squared distance between their
// z-scored paths and returns the opts.N closest, closest first. Ties keep
// pair order.
func (s *ScreeningService) ScreenDistance(ctx context.Context, table *pricetable.Table, opts screen.DistanceOptions) (*screen.DistanceReport, error) {
	if err := s.checkInput(table, opts); err != nil {
		return nil, err
	}

	run := core.NewRunID()
	started := time.Now()
	pairs := table.Pairs()
	s.observer.ScreenStarted(run, screen.MethodDistance, table.Width(), len(pairs))

	zscores, zerrs := normalizeColumns(table)
	distances := make([]float64, len(pairs))
	skipped, err := s.evaluate(ctx, run, screen.MethodDistance, pairs, func(k int) error {
		pair := pairs[k]
		if zerrs[pair.I] != nil {
			return zerrs[pair.I]
		}
		if zerrs[pair.J] != nil {
			return zerrs[pair.J]
		}
		d, err := distance.SquaredEuclidean(zscores[pair.I], zscores[pair.J])
		if err != nil {
			return err
		}
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("%w: distance %v", core.ErrNonFinite, d)
		}
		distances[k] = d
		return nil
	})
	if err != nil {
		s.observer.ScreenFinished(run, screen.MethodDistance, ports.ScreenSummary{Duration: time.Since(started), Err: err})
		return nil, err
	}

	ranked := make([]screen.DistanceResult, 0, len(pairs))
	for k, pair := range pairs {
		if skipped[k] == nil {
			ranked = append(ranked, screen.DistanceResult{Pair: pair, Distance: distances[k]})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Distance < ranked[b].Distance
	})
	s.observer.TopPairs(run, ranked[:min(topPairsReported, len(ranked))])

	top := ranked[:min(opts.N, len(ranked))]
	report := &screen.DistanceReport{
		RunID:     run,
		Options:   opts,
		Pairs:     make([]pricetable.Pair, len(top)),
		Skipped:   compactSkipped(skipped),
		Evaluated: len(ranked),
		Table:     table.Fingerprint(),
		CreatedAt: core.Now(),
	}
	for i, r := range top {
		report.Pairs[i] = r.Pair
	}

	s.observer.ScreenFinished(run, screen.MethodDistance, ports.ScreenSummary{
		Table:     report.Table,
		Evaluated: report.Evaluated,
		Qualified: len(report.Pairs),
		Skipped:   len(report.Skipped),
		Duration:  time.Since(started),
	})
	return report, nil
}

func (s *ScreeningService) checkInput(table *pricetable.Table, opts interface{}) error {
	if table == nil {
		return core.NewInvalidInputError("table", "is required")
	}
	if err := s.validate.Struct(opts); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return core.NewInvalidInputError(fe.Field(), fmt.Sprintf("must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value()))
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if table.Width() < 2 {
		return fmt.Errorf("%w (got %d)", core.ErrTooFewSeries, table.Width())
	}
	return nil
}

// evaluate runs fn for every pair index on a bounded worker pool. Per-pair
// errors are recorded and reported under PolicySkip. Under PolicyAbort a
// failure stops new launches and the call returns the lowest-indexed failure. The returned slice is indexed like
// pairs and nil where the pair succeeded.
func (s *ScreeningService) evaluate(ctx context.Context, run core.RunID, method screen.Method, pairs []pricetable.Pair, fn func(k int) error) ([]*screen.SkippedPair, error) {
	failures := make([]error, len(pairs))
	skipped := make([]*screen.SkippedPair, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for k := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// a launched pair still runs after a sibling fails so the lowest
			// failing index is always observed
			if err := ctx.Err(); err != nil {
				return err
			}
			err := fn(k)
			if err == nil {
				return nil
			}
			if s.policy == screen.PolicyAbort {
				failures[k] = err
				return err
			}
			sp := screen.NewSkippedPair(pairs[k], err)
			skipped[k] = &sp
			s.observer.PairSkipped(run, method, sp)
			return nil
		})
	}
	groupErr := g.Wait()

	for k, err := range failures {
		if err != nil {
			return nil, fmt.Errorf("pair %s: %w", pairs[k], err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if groupErr != nil {
		return nil, groupErr
	}
	return skipped, nil
}

func compactSkipped(skipped []*screen.SkippedPair) []screen.SkippedPair {
	out := []screen.SkippedPair{}
	for _, sp := range skipped {
		if sp != nil {
			out = append(out, *sp)
		}
	}
	return out
}

// cointegrationPValue scores one pair. With intercept the residual of the
// OLS fit with a constant is tested by ADF; without it the Engle-Granger
// test runs on the raw pair.
func cointegrationPValue(table *pricetable.Table, pair pricetable.Pair, intercept bool) (float64, error) {
	a, b := table.Column(pair.I), table.Column(pair.J)
	if distance.IsConstant(a) {
		return 0, core.NewConstantSeriesError(pair.First)
	}
	if distance.IsConstant(b) {
		return 0, core.NewConstantSeriesError(pair.Second)
	}

	var (
		res *unitroot.CointResult
		err error
	)
	if intercept {
		res, err = unitroot.ResidualADF(a, b)
	} else {
		res, err = unitroot.Coint(a, b)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(res.Statistic) || (math.IsInf(res.Statistic, 0) && !res.Collinear) {
		return 0, fmt.Errorf("%w: statistic %v", core.ErrNonFinite, res.Statistic)
	}
	if math.IsNaN(res.PValue) || math.IsInf(res.PValue, 0) {
		return 0, fmt.Errorf("%w: p-value %v", core.ErrNonFinite, res.PValue)
	}
	return res.PValue, nil
}

// normalizeColumns z-scores every column once. A column that cannot be
// normalized carries its error instead.
func normalizeColumns(table *pricetable.Table) ([][]float64, []error) {
	zscores := make([][]float64, table.Width())
	errs := make([]error, table.Width())
	for i := range zscores {
		z, err := distance.Normalize(table.Column(i))
		switch {
		case errors.Is(err, core.ErrConstantSeries):
			errs[i] = core.NewConstantSeriesError(table.ID(i))
		case err != nil:
			errs[i] = fmt.Errorf("%s: %w", table.ID(i), err)
		default:
			zscores[i] = z
		}
	}
	return zscores, errs
}
