package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"gopairs/domain/core"
	"gopairs/domain/pricetable"
	"gopairs/domain/screen"
	"gopairs/internal/errors"
	"gopairs/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ScreeningRepositoryImpl implements ScreeningRepository for PostgreSQL
type ScreeningRepositoryImpl struct {
	db *sqlx.DB
}

// NewScreeningRepository creates a new PostgreSQL screening repository
func NewScreeningRepository(db *sqlx.DB) ports.ScreeningRepository {
	return &ScreeningRepositoryImpl{db: db}
}

type runRow struct {
	ID               uuid.UUID `db:"id"`
	Method           string    `db:"method"`
	Options          string    `db:"options"`
	TableFingerprint string    `db:"table_fingerprint"`
	Evaluated        int       `db:"evaluated"`
	Qualified        int       `db:"qualified"`
	Skipped          int       `db:"skipped"`
	CreatedAt        time.Time `db:"created_at"`
}

func (r runRow) summary() screen.RunSummary {
	return screen.RunSummary{
		RunID:     core.RunID(r.ID.String()),
		Method:    screen.Method(r.Method),
		Table:     core.Hash(r.TableFingerprint),
		Evaluated: r.Evaluated,
		Qualified: r.Qualified,
		Skipped:   r.Skipped,
		CreatedAt: core.NewTimestamp(r.CreatedAt.UTC()),
	}
}

type cointegrationRow struct {
	FirstID  string  `db:"first_id"`
	SecondID string  `db:"second_id"`
	PValue   float64 `db:"p_value"`
}

type distanceRow struct {
	FirstID     string `db:"first_id"`
	SecondID    string `db:"second_id"`
	FirstIndex  int    `db:"first_index"`
	SecondIndex int    `db:"second_index"`
}

type skippedRow struct {
	FirstID  string `db:"first_id"`
	SecondID string `db:"second_id"`
	Code     string `db:"code"`
	Reason   string `db:"reason"`
}

// SaveCointegration stores the run header, qualifying pairs and skips in one transaction
func (r *ScreeningRepositoryImpl) SaveCointegration(ctx context.Context, report *screen.CointegrationReport) error {
	run, err := newRunRow(report.RunID, screen.MethodCointegration, report.Options, report.Table, report.Evaluated, len(report.Pairs), len(report.Skipped), report.CreatedAt)
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertRun(ctx, tx, run); err != nil {
			return err
		}
		for i, p := range report.Pairs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO cointegration_results (run_id, ordinal, first_id, second_id, p_value)
				VALUES ($1, $2, $3, $4, $5)`,
				run.ID, i, p.First.String(), p.Second.String(), p.PValue); err != nil {
				return err
			}
		}
		return insertSkipped(ctx, tx, run.ID, report.Skipped)
	})
}

// SaveDistance stores the run header, ranked pairs and skips in one transaction
func (r *ScreeningRepositoryImpl) SaveDistance(ctx context.Context, report *screen.DistanceReport) error {
	run, err := newRunRow(report.RunID, screen.MethodDistance, report.Options, report.Table, report.Evaluated, len(report.Pairs), len(report.Skipped), report.CreatedAt)
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertRun(ctx, tx, run); err != nil {
			return err
		}
		for rank, p := range report.Pairs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO distance_results (run_id, rank, first_id, second_id, first_index, second_index)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				run.ID, rank, p.First.String(), p.Second.String(), p.I, p.J); err != nil {
				return err
			}
		}
		return insertSkipped(ctx, tx, run.ID, report.Skipped)
	})
}

// ListRuns returns the most recent runs first
func (r *ScreeningRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]screen.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, method, options, table_fingerprint, evaluated, qualified, skipped, created_at
		FROM screening_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list screening runs", err)
	}

	out := make([]screen.RunSummary, len(rows))
	for i, row := range rows {
		out[i] = row.summary()
	}
	return out, nil
}

// GetCointegration loads a stored cointegration report
func (r *ScreeningRepositoryImpl) GetCointegration(ctx context.Context, runID core.RunID) (*screen.CointegrationReport, error) {
	run, err := r.getRun(ctx, runID, screen.MethodCointegration)
	if err != nil {
		return nil, err
	}
	report := &screen.CointegrationReport{
		RunID:     runID,
		Evaluated: run.Evaluated,
		Table:     core.Hash(run.TableFingerprint),
		CreatedAt: core.NewTimestamp(run.CreatedAt.UTC()),
		Pairs:     []screen.CointegrationResult{},
	}
	if err := json.Unmarshal([]byte(run.Options), &report.Options); err != nil {
		return nil, errors.Wrap(err, "failed to decode run options")
	}

	var rows []cointegrationRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT first_id, second_id, p_value
		FROM cointegration_results
		WHERE run_id = $1
		ORDER BY ordinal
	`, run.ID); err != nil {
		return nil, errors.DatabaseError("failed to load cointegration results", err)
	}
	for _, row := range rows {
		report.Pairs = append(report.Pairs, screen.CointegrationResult{
			First:  core.InstrumentID(row.FirstID),
			Second: core.InstrumentID(row.SecondID),
			PValue: row.PValue,
		})
	}

	if report.Skipped, err = r.loadSkipped(ctx, run.ID); err != nil {
		return nil, err
	}
	return report, nil
}

// GetDistance loads a stored distance report
func (r *ScreeningRepositoryImpl) GetDistance(ctx context.Context, runID core.RunID) (*screen.DistanceReport, error) {
	run, err := r.getRun(ctx, runID, screen.MethodDistance)
	if err != nil {
		return nil, err
	}
	report := &screen.DistanceReport{
		RunID:     runID,
		Evaluated: run.Evaluated,
		Table:     core.Hash(run.TableFingerprint),
		CreatedAt: core.NewTimestamp(run.CreatedAt.UTC()),
		Pairs:     []pricetable.Pair{},
	}
	if err := json.Unmarshal([]byte(run.Options), &report.Options); err != nil {
		return nil, errors.Wrap(err, "failed to decode run options")
	}

	var rows []distanceRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT first_id, second_id, first_index, second_index
		FROM distance_results
		WHERE run_id = $1
		ORDER BY rank
	`, run.ID); err != nil {
		return nil, errors.DatabaseError("failed to load distance results", err)
	}
	for _, row := range rows {
		report.Pairs = append(report.Pairs, pricetable.Pair{
			First:  core.InstrumentID(row.FirstID),
			Second: core.InstrumentID(row.SecondID),
			I:      row.FirstIndex,
			J:      row.SecondIndex,
		})
	}

	if report.Skipped, err = r.loadSkipped(ctx, run.ID); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *ScreeningRepositoryImpl) getRun(ctx context.Context, runID core.RunID, method screen.Method) (*runRow, error) {
	id, err := uuid.Parse(runID.String())
	if err != nil {
		return nil, errors.InvalidInput("invalid run ID: " + runID.String())
	}

	var run runRow
	err = r.db.GetContext(ctx, &run, `
		SELECT id, method, options, table_fingerprint, evaluated, qualified, skipped, created_at
		FROM screening_runs
		WHERE id = $1 AND method = $2
	`, id, string(method))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(string(method) + " run " + runID.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load screening run", err)
	}
	return &run, nil
}

func (r *ScreeningRepositoryImpl) loadSkipped(ctx context.Context, runID uuid.UUID) ([]screen.SkippedPair, error) {
	var rows []skippedRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT first_id, second_id, code, reason
		FROM skipped_pairs
		WHERE run_id = $1
		ORDER BY ordinal
	`, runID); err != nil {
		return nil, errors.DatabaseError("failed to load skipped pairs", err)
	}

	out := make([]screen.SkippedPair, len(rows))
	for i, row := range rows {
		out[i] = screen.SkippedPair{
			Pair:   pricetable.Pair{First: core.InstrumentID(row.FirstID), Second: core.InstrumentID(row.SecondID)},
			Code:   screen.SkipCode(row.Code),
			Reason: row.Reason,
		}
	}
	return out, nil
}

func (r *ScreeningRepositoryImpl) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return errors.New(errors.CodeValidationError, "screening run already stored")
		}
		return errors.DatabaseError("failed to store screening run", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit screening run", err)
	}
	return nil
}

func newRunRow(runID core.RunID, method screen.Method, options interface{}, table core.Hash, evaluated, qualified, skipped int, createdAt core.Timestamp) (runRow, error) {
	id, err := uuid.Parse(runID.String())
	if err != nil {
		return runRow{}, errors.InvalidInput("invalid run ID: " + runID.String())
	}
	opts, err := json.Marshal(options)
	if err != nil {
		return runRow{}, errors.Wrap(err, "failed to encode run options")
	}
	created := createdAt.Time()
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return runRow{
		ID:               id,
		Method:           string(method),
		Options:          string(opts),
		TableFingerprint: table.String(),
		Evaluated:        evaluated,
		Qualified:        qualified,
		Skipped:          skipped,
		CreatedAt:        created,
	}, nil
}

func insertRun(ctx context.Context, tx *sqlx.Tx, run runRow) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO screening_runs (id, method, options, table_fingerprint, evaluated, qualified, skipped, created_at)
		VALUES (:id, :method, :options, :table_fingerprint, :evaluated, :qualified, :skipped, :created_at)
	`, run)
	return err
}

func insertSkipped(ctx context.Context, tx *sqlx.Tx, runID uuid.UUID, skipped []screen.SkippedPair) error {
	for i, sp := range skipped {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO skipped_pairs (run_id, ordinal, first_id, second_id, code, reason)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, i, sp.Pair.First.String(), sp.Pair.Second.String(), string(sp.Code), sp.Reason); err != nil {
			return err
		}
	}
	return nil
}
