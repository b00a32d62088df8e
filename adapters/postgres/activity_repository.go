package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/internal/errors"
	"goviper/ports"

	"github.com/jmoiron/sqlx"
)

// ActivityRepositoryImpl implements ActivityRepository for PostgreSQL
type ActivityRepositoryImpl struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new PostgreSQL activity repository
func NewActivityRepository(db *sqlx.DB) ports.ActivityRepository {
	return &ActivityRepositoryImpl{db: db}
}

// SaveRun stores the run header and every score cell in one transaction
func (r *ActivityRepositoryImpl) SaveRun(ctx context.Context, run *activity.Run) error {
	options, err := json.Marshal(run.Options)
	if err != nil {
		return errors.Wrap(err, "failed to encode run options")
	}
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return errors.Wrap(err, "failed to encode run warnings")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError(err.Error())
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activity_runs (id, created_at, options, calibrated, bootstrap, regulators, samples, warnings, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID.String(), run.CreatedAt, string(options), run.Calibrated, run.Bootstrap != nil,
		len(run.Regulators()), len(run.Samples()), string(warnings), run.Fingerprint.String())
	if err != nil {
		return dbError(errors.Wrapf(err, "failed to insert run %s", run.ID))
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO activity_scores (run_id, regulator, sample, es, nes, sd)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return dbError(errors.Wrap(err, "failed to prepare score insert"))
	}
	defer stmt.Close()

	for _, sc := range run.Scores() {
		if _, err := stmt.ExecContext(ctx, run.ID.String(), sc.Regulator, sc.Sample, sc.ES, sc.NES, sc.SD); err != nil {
			return dbError(errors.Wrapf(err, "failed to insert score %s/%s", sc.Regulator, sc.Sample))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError(err.Error())
	}
	return nil
}

// GetRunScores retrieves the run summary and its score cells
func (r *ActivityRepositoryImpl) GetRunScores(ctx context.Context, id core.RunID) (*activity.RunSummary, []activity.Score, error) {
	var summary activity.RunSummary
	err := r.db.GetContext(ctx, &summary, `
		SELECT id, created_at, regulators, samples, bootstrap, fingerprint
		FROM activity_runs
		WHERE id = $1
	`, id.String())
	if err == sql.ErrNoRows {
		return nil, nil, errors.NotFound(fmt.Sprintf("run %s", id))
	}
	if err != nil {
		return nil, nil, dbError(errors.Wrapf(err, "failed to load run %s", id))
	}

	var scores []activity.Score
	err = r.db.SelectContext(ctx, &scores, `
		SELECT regulator, sample, es, nes, sd
		FROM activity_scores
		WHERE run_id = $1
		ORDER BY id
	`, id.String())
	if err != nil {
		return nil, nil, dbError(errors.Wrapf(err, "failed to load scores for run %s", id))
	}

	return &summary, scores, nil
}

// ListRuns returns the most recent runs, optionally limited
func (r *ActivityRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]activity.RunSummary, error) {
	query := `
		SELECT id, created_at, regulators, samples, bootstrap, fingerprint
		FROM activity_runs
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	runs := []activity.RunSummary{}
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, dbError(errors.Wrap(err, "failed to list runs"))
	}
	return runs, nil
}

func dbError(err error) error {
	return errors.WithCode(errors.CodeDatabaseError, err)
}
