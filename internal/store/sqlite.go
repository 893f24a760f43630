package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/studio-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	topic      TEXT NOT NULL,
	vertical   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_phases (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS fallback_events (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	component   TEXT NOT NULL,
	type        TEXT NOT NULL,
	reason      TEXT NOT NULL,
	severity    TEXT NOT NULL,
	occurred_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS outreach_drafts (
	id             TEXT PRIMARY KEY,
	article        TEXT NOT NULL,
	fit            TEXT NOT NULL,
	author         TEXT NOT NULL,
	subject        TEXT NOT NULL,
	body           TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	review_page_id TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_vertical ON runs(vertical);
CREATE INDEX IF NOT EXISTS idx_run_phases_run_id ON run_phases(run_id);
CREATE INDEX IF NOT EXISTS idx_fallback_events_run_id ON fallback_events(run_id);
CREATE INDEX IF NOT EXISTS idx_outreach_drafts_status ON outreach_drafts(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, topic, vertical string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, topic, vertical, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, topic, vertical, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Topic:     topic,
		Vertical:  vertical,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, topic, vertical, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, topic, vertical, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Vertical != "" {
		query += ` AND vertical = ?`
		args = append(args, filter.Vertical)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phase result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_phases SET status = ?, result = ? WHERE id = ?`,
		string(result.Status), string(resultJSON), phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete phase %s", phaseID)
	}
	return checkRowsAffected(res, "phase", phaseID)
}

func (s *SQLiteStore) RecordFallback(ctx context.Context, runID string, ev model.FallbackEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fallback_events (id, run_id, component, type, reason, severity, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, ev.Component, string(ev.Type), ev.Reason, string(ev.Severity), at,
	)
	return eris.Wrapf(err, "sqlite: record fallback for run %s", runID)
}

func (s *SQLiteStore) ListFallbacks(ctx context.Context, runID string) ([]model.FallbackEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT component, type, reason, severity, occurred_at FROM fallback_events WHERE run_id = ? ORDER BY occurred_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list fallbacks for run %s", runID)
	}
	defer rows.Close()

	var events []model.FallbackEvent
	for rows.Next() {
		var ev model.FallbackEvent
		if err := rows.Scan(&ev.Component, &ev.Type, &ev.Reason, &ev.Severity, &ev.At); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fallback event")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list fallbacks iterate")
}

func (s *SQLiteStore) SaveDraft(ctx context.Context, draft *model.EmailDraft) error {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now
	if draft.Status == "" {
		draft.Status = model.ReviewPending
	}

	articleJSON, err := json.Marshal(draft.Article)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal article")
	}
	fitJSON, err := json.Marshal(draft.Fit)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal fit")
	}
	authorJSON, err := json.Marshal(draft.Author)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal author")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outreach_drafts (id, article, fit, author, subject, body, status, review_page_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject, body = excluded.body,
			status = excluded.status, review_page_id = excluded.review_page_id,
			updated_at = excluded.updated_at`,
		draft.ID, string(articleJSON), string(fitJSON), string(authorJSON),
		draft.Subject, draft.Body, string(draft.Status), draft.ReviewPageID,
		draft.CreatedAt, draft.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: save draft %s", draft.ID)
}

func (s *SQLiteStore) UpdateDraftStatus(ctx context.Context, draftID string, status model.ReviewStatus, reviewPageID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE outreach_drafts SET status = ?, review_page_id = COALESCE(NULLIF(?, ''), review_page_id), updated_at = ? WHERE id = ?`,
		string(status), reviewPageID, time.Now().UTC(), draftID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update draft status %s", draftID)
	}
	return checkRowsAffected(res, "draft", draftID)
}

func (s *SQLiteStore) GetDraft(ctx context.Context, draftID string) (*model.EmailDraft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, article, fit, author, subject, body, status, review_page_id, created_at, updated_at
		 FROM outreach_drafts WHERE id = ?`,
		draftID,
	)
	return scanDraft(row)
}

func (s *SQLiteStore) ListDrafts(ctx context.Context, status model.ReviewStatus, limit int) ([]model.EmailDraft, error) {
	query := `SELECT id, article, fit, author, subject, body, status, review_page_id, created_at, updated_at
		 FROM outreach_drafts WHERE 1=1`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list drafts")
	}
	defer rows.Close()

	var drafts []model.EmailDraft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *d)
	}
	return drafts, eris.Wrap(rows.Err(), "sqlite: list drafts iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Topic, &r.Vertical, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

func scanDraft(row scannable) (*model.EmailDraft, error) {
	var d model.EmailDraft
	var articleJSON, fitJSON, authorJSON string
	var reviewPageID sql.NullString

	err := row.Scan(&d.ID, &articleJSON, &fitJSON, &authorJSON, &d.Subject, &d.Body, &d.Status, &reviewPageID, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("draft not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan draft")
	}

	if err := json.Unmarshal([]byte(articleJSON), &d.Article); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal article")
	}
	if err := json.Unmarshal([]byte(fitJSON), &d.Fit); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal fit")
	}
	if err := json.Unmarshal([]byte(authorJSON), &d.Author); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal author")
	}
	if reviewPageID.Valid {
		d.ReviewPageID = reviewPageID.String
	}
	return &d, nil
}
