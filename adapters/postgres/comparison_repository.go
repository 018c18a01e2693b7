// Package postgres persists comparison runs in PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gostamp/domain/comparison"
	"gostamp/domain/core"
)

// Open connects to PostgreSQL and bounds the pool
func Open(ctx context.Context, url string, maxOpenConns int) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	return db, nil
}

// ComparisonRepository stores each run as a JSONB payload plus one indexed
// row per feature
type ComparisonRepository struct {
	db *sqlx.DB
}

// NewComparisonRepository creates a new comparison repository
func NewComparisonRepository(db *sqlx.DB) *ComparisonRepository {
	return &ComparisonRepository{db: db}
}

// featureRow is the queryable projection of one feature result
type featureRow struct {
	RunID      string          `db:"run_id"`
	Position   int             `db:"position"`
	FeatureKey string          `db:"feature_key"`
	PValue     sql.NullFloat64 `db:"p_value"`
	AdjustedP  sql.NullFloat64 `db:"adjusted_p"`
	Rejected   bool            `db:"rejected"`
	Error      string          `db:"error"`
}

func featureRows(run *comparison.Run) []featureRow {
	rows := make([]featureRow, 0, len(run.Features)+len(run.GroupFeatures))
	for i, f := range run.Features {
		row := featureRow{RunID: run.ID.String(), Position: i, FeatureKey: f.Key.String(), Error: f.Error}
		if f.Test != nil {
			row.PValue = sql.NullFloat64{Float64: f.Test.PTwoSided, Valid: true}
		}
		if f.Correction != nil {
			row.AdjustedP = sql.NullFloat64{Float64: f.Correction.AdjustedP, Valid: true}
		}
		row.Rejected = f.Significant()
		rows = append(rows, row)
	}
	for i, f := range run.GroupFeatures {
		row := featureRow{RunID: run.ID.String(), Position: i, FeatureKey: f.Key.String(), Error: f.Error}
		if f.Test != nil {
			row.PValue = sql.NullFloat64{Float64: f.Test.PValue, Valid: true}
		}
		if f.Correction != nil {
			row.AdjustedP = sql.NullFloat64{Float64: f.Correction.AdjustedP, Valid: true}
			row.Rejected = f.Correction.Reject
		}
		rows = append(rows, row)
	}
	return rows
}

// SaveRun upserts the run and replaces its feature rows in one transaction
func (r *ComparisonRepository) SaveRun(ctx context.Context, run *comparison.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	summary := run.Summary()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comparison_runs (
			id, kind, test_name, correction_name, alpha,
			feature_count, rejected, failed, started_at, created_at, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			test_name = EXCLUDED.test_name,
			correction_name = EXCLUDED.correction_name,
			alpha = EXCLUDED.alpha,
			feature_count = EXCLUDED.feature_count,
			rejected = EXCLUDED.rejected,
			failed = EXCLUDED.failed,
			started_at = EXCLUDED.started_at,
			created_at = EXCLUDED.created_at,
			payload = EXCLUDED.payload`,
		run.ID.String(), string(run.Kind), run.TestName, run.CorrectionName, run.Alpha,
		summary.FeatureCount, summary.Rejected, summary.Failed, run.StartedAt, run.CompletedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM comparison_features WHERE run_id = $1", run.ID.String()); err != nil {
		return fmt.Errorf("failed to clear feature rows: %w", err)
	}
	if rows := featureRows(run); len(rows) > 0 {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO comparison_features (run_id, position, feature_key, p_value, adjusted_p, rejected, error)
			VALUES (:run_id, :position, :feature_key, :p_value, :adjusted_p, :rejected, :error)`, rows)
		if err != nil {
			return fmt.Errorf("failed to insert feature rows: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun loads the stored payload of one run
func (r *ComparisonRepository) GetRun(ctx context.Context, id core.RunID) (*comparison.Run, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, "SELECT payload FROM comparison_runs WHERE id = $1", id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w with id %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run comparison.Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// ListRuns returns run summaries newest first
func (r *ComparisonRepository) ListRuns(ctx context.Context, limit, offset int) ([]comparison.RunSummary, error) {
	summaries := []comparison.RunSummary{}
	err := r.db.SelectContext(ctx, &summaries, `
		SELECT id, kind, test_name, correction_name, feature_count, rejected, failed, created_at
		FROM comparison_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return summaries, nil
}

// RejectedRuns returns summaries of runs in which the feature was rejected
func (r *ComparisonRepository) RejectedRuns(ctx context.Context, key core.FeatureKey, limit int) ([]comparison.RunSummary, error) {
	summaries := []comparison.RunSummary{}
	err := r.db.SelectContext(ctx, &summaries, `
		SELECT DISTINCT r.id, r.kind, r.test_name, r.correction_name, r.feature_count,
		       r.rejected, r.failed, r.created_at
		FROM comparison_runs r
		JOIN comparison_features f ON f.run_id = r.id
		WHERE f.feature_key = $1 AND f.rejected
		ORDER BY r.created_at DESC
		LIMIT $2`, key.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs for feature %s: %w", key, err)
	}
	return summaries, nil
}
