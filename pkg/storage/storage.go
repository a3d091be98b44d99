package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sw33tLie/vendorscope/pkg/model"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id           TEXT PRIMARY KEY,
  kind         TEXT NOT NULL CHECK (kind IN ('aggregate','acquire','verify')),
  run_date     TEXT NOT NULL,
  started_at   TEXT NOT NULL,
  vendor_count INTEGER NOT NULL DEFAULT 0,
  change_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE TABLE IF NOT EXISTS review_changes (
  id          INTEGER PRIMARY KEY,
  occurred_at TEXT NOT NULL,
  run_id      TEXT NOT NULL REFERENCES runs(id),
  vendor_slug TEXT NOT NULL,
  source      TEXT NOT NULL,
  change_type TEXT NOT NULL CHECK (change_type IN ('added','updated','removed')),
  old_score   REAL,
  old_count   INTEGER,
  new_score   REAL,
  new_count   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON review_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_vendor ON review_changes(vendor_slug, occurred_at);
CREATE TABLE IF NOT EXISTS verifications (
  id           INTEGER PRIMARY KEY,
  run_id       TEXT NOT NULL REFERENCES runs(id),
  vendor_ref   TEXT NOT NULL,
  website      TEXT,
  website_live INTEGER NOT NULL CHECK (website_live IN (0,1)),
  status       TEXT NOT NULL,
  category     TEXT NOT NULL,
  confidence   TEXT NOT NULL,
  corpus_hash  TEXT,
  UNIQUE(run_id, vendor_ref)
);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// RecordRun stores a run together with the review changes it produced.
func (d *DB) RecordRun(ctx context.Context, run Run, changes []model.Change) (err error) {
	if run.ID == "" || run.Kind == "" {
		return errors.New("invalid run identifiers")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	startedAt := run.StartedAt.UTC().Format(timeLayout)

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q, args, err := sq.Insert("runs").
		Columns("id", "kind", "run_date", "started_at", "vendor_count", "change_count").
		Values(run.ID, run.Kind, run.RunDate, startedAt, run.VendorCount, len(changes)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, q, args...); err != nil {
		return err
	}

	if len(changes) > 0 {
		ins := sq.Insert("review_changes").
			Columns("occurred_at", "run_id", "vendor_slug", "source", "change_type", "old_score", "old_count", "new_score", "new_count")
		for _, c := range changes {
			oldScore, oldCount, newScore, newCount := changeValues(c)
			ins = ins.Values(startedAt, run.ID, c.VendorSlug, string(c.Source), string(c.ChangeType), oldScore, oldCount, newScore, newCount)
		}
		q, args, err = ins.ToSql()
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// changeValues keeps the side of a change that does not exist NULL.
func changeValues(c model.Change) (oldScore, oldCount, newScore, newCount interface{}) {
	if c.ChangeType != model.ChangeAdded {
		oldScore, oldCount = c.OldScore, c.OldCount
	}
	if c.ChangeType != model.ChangeRemoved {
		newScore, newCount = c.NewScore, c.NewCount
	}
	return
}

// RecordVerifications stores the outcome of every verified vendor of a run.
// The run must have been recorded first.
func (d *DB) RecordVerifications(ctx context.Context, runID string, results []model.VendorVerification) error {
	if len(results) == 0 {
		return nil
	}
	ins := sq.Insert("verifications").
		Columns("run_id", "vendor_ref", "website", "website_live", "status", "category", "confidence", "corpus_hash")
	for _, v := range results {
		ins = ins.Values(runID, v.Report.VendorRef, nullIfEmpty(v.Report.Website), boolToInt(v.Report.WebsiteLive),
			string(v.Report.Status), string(v.Classification.Category), string(v.Classification.Confidence), nullIfEmpty(v.Report.CorpusHash))
	}
	q, args, err := ins.ToSql()
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx, q, args...)
	return err
}

// ListRecentChanges returns the most recent changes matching the filter,
// newest first.
func (d *DB) ListRecentChanges(ctx context.Context, f ChangeFilter) ([]Change, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	sel := sq.Select("occurred_at", "run_id", "vendor_slug", "source", "change_type", "old_score", "old_count", "new_score", "new_count").
		From("review_changes").
		OrderBy("occurred_at DESC", "id DESC").
		Limit(uint64(f.Limit))
	if f.VendorSlug != "" {
		sel = sel.Where(sq.Eq{"vendor_slug": f.VendorSlug})
	}
	if f.Source != "" {
		sel = sel.Where(sq.Eq{"source": string(f.Source)})
	}
	if !f.Since.IsZero() {
		sel = sel.Where(sq.GtOrEq{"occurred_at": f.Since.UTC().Format(timeLayout)})
	}

	q, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var (
			c                  Change
			occurredAt         string
			source, changeType string
			oldScore, newScore sql.NullFloat64
			oldCount, newCount sql.NullInt64
		)
		if err := rows.Scan(&occurredAt, &c.RunID, &c.VendorSlug, &source, &changeType, &oldScore, &oldCount, &newScore, &newCount); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(timeLayout, occurredAt); perr == nil {
			c.OccurredAt = t
		}
		c.Source = model.Source(source)
		c.ChangeType = model.ChangeType(changeType)
		c.OldScore, c.OldCount = oldScore.Float64, int(oldCount.Int64)
		c.NewScore, c.NewCount = newScore.Float64, int(newCount.Int64)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// ListRuns returns the most recent runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	q, args, err := sq.Select("id", "kind", "run_date", "started_at", "vendor_count", "change_count").
		From("runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		if err := rows.Scan(&r.ID, &r.Kind, &r.RunDate, &startedAt, &r.VendorCount, &r.ChangeCount); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(timeLayout, startedAt); perr == nil {
			r.StartedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
