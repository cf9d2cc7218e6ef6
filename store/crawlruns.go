/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Crawl-run lifecycle rows: single-flight start,
             terminal complete/fail, latest-run read, and
             startup reconciliation of runs interrupted by a
             process crash.
Root Cause:  Sprint task T218 — Crawl-run coordination state.
Context:     At most one run may be `running`; overlapping
             trigger attempts get ErrRunInProgress with the
             current run id.
Suitability: L3 — state-machine rows over sqlite.
──────────────────────────────────────────────────────────────
*/

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunInProgress is returned by StartRun while another run is running.
type ErrRunInProgress struct {
	RunID int64
}

func (e *ErrRunInProgress) Error() string {
	return fmt.Sprintf("crawl run %d already in progress", e.RunID)
}

// StartRun creates a new running crawl_run row, refusing while the latest
// run is still running. The check and insert share one transaction so two
// concurrent triggers cannot both pass.
func (s *Store) StartRun(ctx context.Context) (*CrawlRun, error) {
	var run *CrawlRun
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		var id int64
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT id, status FROM crawl_runs ORDER BY id DESC LIMIT 1`).Scan(&id, &status)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err == nil && RunStatus(status) == RunRunning {
			return &ErrRunInProgress{RunID: id}
		}

		ts := now()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO crawl_runs (started_at, status) VALUES (?, ?)`, ts, string(RunRunning))
		if err != nil {
			return fmt.Errorf("insert crawl run: %w", err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		run = &CrawlRun{ID: newID, StartedAt: ts, Status: RunRunning}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteRun marks a run completed with its counts.
func (s *Store) CompleteRun(ctx context.Context, id int64, found, added, updated int) error {
	ts := now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE crawl_runs SET status = ?, completed_at = ?,
			items_found = ?, items_new = ?, items_updated = ?
		WHERE id = ?`,
		string(RunCompleted), ts, found, added, updated, id)
	if err != nil {
		return fmt.Errorf("complete run %d: %w", id, err)
	}
	return nil
}

// FailRun marks a run failed with the orchestrator error message.
func (s *Store) FailRun(ctx context.Context, id int64, msg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE crawl_runs SET status = ?, completed_at = ?, error_message = ? WHERE id = ?`,
		string(RunFailed), now(), msg, id)
	if err != nil {
		return fmt.Errorf("fail run %d: %w", id, err)
	}
	return nil
}

// LatestRun returns the most recent run row, or sql.ErrNoRows when no run
// has ever happened.
func (s *Store) LatestRun(ctx context.Context) (*CrawlRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, status, items_found, items_new, items_updated,
		       COALESCE(error_message, '')
		FROM crawl_runs ORDER BY id DESC LIMIT 1`)
	var r CrawlRun
	var completed sql.NullString
	var status string
	if err := row.Scan(&r.ID, &r.StartedAt, &completed, &status,
		&r.ItemsFound, &r.ItemsNew, &r.ItemsUpdated, &r.ErrorMessage); err != nil {
		return nil, err
	}
	r.CompletedAt = strPtr(completed)
	r.Status = RunStatus(status)
	return &r, nil
}

// ReconcileInterrupted marks any `running` row left behind by a previous
// process as failed, restoring single-flight liveness after a crash.
// Called once at startup, before the server accepts triggers.
func (s *Store) ReconcileInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_runs SET status = ?, completed_at = ?, error_message = ?
		WHERE status = ?`,
		string(RunFailed), now(), "interrupted by process restart", string(RunRunning))
	if err != nil {
		return 0, fmt.Errorf("reconcile interrupted runs: %w", err)
	}
	return res.RowsAffected()
}
