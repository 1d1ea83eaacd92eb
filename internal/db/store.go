// Package db provides the lint history database and its migrations.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/metalagman/playlint/internal/lint"
	"github.com/rs/zerolog/log"
)

// Store provides persistence for lint runs.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a store for lint history.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Run is a recorded lint run.
type Run struct {
	ID        int64
	CreatedAt time.Time
	Paths     []string
	Files     int
	Matches   int
	Errors    int
}

// RecordRun stores a lint result and returns the new run id.
func (s *Store) RecordRun(ctx context.Context, paths []string, res *lint.Result) (int64, error) {
	encodedPaths, err := json.Marshal(paths)
	if err != nil {
		return 0, fmt.Errorf("encode paths: %w", err)
	}
	createdAt := s.now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin record run: %w", err)
	}
	result, err := tx.ExecContext(ctx, `INSERT INTO runs(created_at, paths, files, matches, errors) VALUES(?, ?, ?, ?, ?)`,
		createdAt, string(encodedPaths), len(res.Files), len(res.Matches), len(res.Errors))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("read run id: %w", err)
	}
	for _, m := range res.Matches {
		if _, err := tx.ExecContext(ctx, `INSERT INTO matches(run_id, rule_id, file, line, message) VALUES(?, ?, ?, ?, ?)`,
			runID, m.RuleID, m.File, m.Line, m.Message); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert match: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit record run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the newest runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT run_id, created_at, paths, files, matches, errors FROM runs ORDER BY run_id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			createdAt string
			paths     string
		)
		if err := rows.Scan(&r.ID, &createdAt, &paths, &r.Files, &r.Matches, &r.Errors); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			log.Warn().Err(err).Int64("run_id", r.ID).Msg("invalid run timestamp")
		}
		if err := json.Unmarshal([]byte(paths), &r.Paths); err != nil {
			return nil, fmt.Errorf("decode run paths: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RuleCounts returns the number of matches per rule id for a run.
func (s *Store) RuleCounts(ctx context.Context, runID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT rule_id, COUNT(*) FROM matches WHERE run_id=? GROUP BY rule_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("count matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan match count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// RetentionPolicy controls history cleanup.
type RetentionPolicy struct {
	KeepLast int
	KeepDays int
}

// PruneResult summarizes a prune operation.
type PruneResult struct {
	Considered int
	Kept       int
	Deleted    int
}

// PruneRuns deletes runs outside the retention policy. A run is kept when
// it is among the newest KeepLast runs or newer than KeepDays.
func (s *Store) PruneRuns(ctx context.Context, policy RetentionPolicy, dryRun bool) (PruneResult, error) {
	if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
		return PruneResult{}, nil
	}
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return PruneResult{}, err
	}
	cutoff := time.Time{}
	if policy.KeepDays > 0 {
		cutoff = s.now().UTC().Add(-time.Duration(policy.KeepDays) * 24 * time.Hour)
	}

	var res PruneResult
	var doomed []int64
	for i, r := range runs {
		res.Considered++
		keep := (policy.KeepLast > 0 && i < policy.KeepLast) ||
			(policy.KeepDays > 0 && r.CreatedAt.After(cutoff))
		if keep {
			res.Kept++
			continue
		}
		doomed = append(doomed, r.ID)
	}
	res.Deleted = len(doomed)
	if dryRun || len(doomed) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return PruneResult{}, fmt.Errorf("begin prune: %w", err)
	}
	for _, id := range doomed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id=?`, id); err != nil {
			_ = tx.Rollback()
			return PruneResult{}, fmt.Errorf("delete run %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return PruneResult{}, fmt.Errorf("commit prune: %w", err)
	}
	log.Debug().Int("deleted", res.Deleted).Msg("pruned lint history")
	return res, nil
}
