package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/studio-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, topic, vertical, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"update_run_result": `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_run":           `SELECT id, topic, vertical, status, result, created_at, updated_at FROM runs WHERE id = $1`,
	"insert_phase":      `INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_phase":    `UPDATE run_phases SET status = $1, result = $2 WHERE id = $3`,
	"insert_fallback":   `INSERT INTO fallback_events (id, run_id, component, type, reason, severity, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	topic      TEXT NOT NULL,
	vertical   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_phases (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS fallback_events (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	component   TEXT NOT NULL,
	type        TEXT NOT NULL,
	reason      TEXT NOT NULL,
	severity    TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outreach_drafts (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	article        JSONB NOT NULL,
	fit            JSONB NOT NULL,
	author         JSONB NOT NULL,
	subject        TEXT NOT NULL,
	body           TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	review_page_id TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_vertical ON runs(vertical);
CREATE INDEX IF NOT EXISTS idx_run_phases_run_id ON run_phases(run_id);
CREATE INDEX IF NOT EXISTS idx_fallback_events_run_id ON fallback_events(run_id);
CREATE INDEX IF NOT EXISTS idx_outreach_drafts_status ON outreach_drafts(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, topic, vertical string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, topic, vertical, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, topic, vertical, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, topic, vertical, status, result, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)

	var r model.Run
	var resultJSON []byte
	err := row.Scan(&r.ID, &r.Topic, &r.Vertical, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	if len(resultJSON) > 0 {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, topic, vertical, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Vertical != "" {
		args = append(args, filter.Vertical)
		query += placeholderClause(` AND vertical = `, len(args))
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter)
		query += placeholderClause(` AND created_at > `, len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += placeholderClause(` LIMIT `, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += placeholderClause(` OFFSET `, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var resultJSON []byte
		if err := rows.Scan(&r.ID, &r.Topic, &r.Vertical, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if len(resultJSON) > 0 {
			r.Result = &model.RunResult{}
			if err := json.Unmarshal(resultJSON, r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal phase result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE run_phases SET status = $1, result = $2 WHERE id = $3`,
		string(result.Status), resultJSON, phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete phase %s", phaseID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("phase not found: %s", phaseID)
	}
	return nil
}

func (s *PostgresStore) RecordFallback(ctx context.Context, runID string, ev model.FallbackEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fallback_events (id, run_id, component, type, reason, severity, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), runID, ev.Component, string(ev.Type), ev.Reason, string(ev.Severity), at,
	)
	return eris.Wrapf(err, "postgres: record fallback for run %s", runID)
}

func (s *PostgresStore) ListFallbacks(ctx context.Context, runID string) ([]model.FallbackEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT component, type, reason, severity, occurred_at FROM fallback_events WHERE run_id = $1 ORDER BY occurred_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list fallbacks for run %s", runID)
	}
	defer rows.Close()

	var events []model.FallbackEvent
	for rows.Next() {
		var ev model.FallbackEvent
		if err := rows.Scan(&ev.Component, &ev.Type, &ev.Reason, &ev.Severity, &ev.At); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fallback event")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list fallbacks iterate")
}

func (s *PostgresStore) SaveDraft(ctx context.Context, draft *model.EmailDraft) error {
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
		return eris.Wrap(err, "postgres: marshal article")
	}
	fitJSON, err := json.Marshal(draft.Fit)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal fit")
	}
	authorJSON, err := json.Marshal(draft.Author)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal author")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO outreach_drafts (id, article, fit, author, subject, body, status, review_page_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			subject = EXCLUDED.subject, body = EXCLUDED.body,
			status = EXCLUDED.status, review_page_id = EXCLUDED.review_page_id,
			updated_at = EXCLUDED.updated_at`,
		draft.ID, articleJSON, fitJSON, authorJSON,
		draft.Subject, draft.Body, string(draft.Status), draft.ReviewPageID,
		draft.CreatedAt, draft.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: save draft %s", draft.ID)
}

func (s *PostgresStore) UpdateDraftStatus(ctx context.Context, draftID string, status model.ReviewStatus, reviewPageID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE outreach_drafts SET status = $1, review_page_id = COALESCE(NULLIF($2, ''), review_page_id), updated_at = $3 WHERE id = $4`,
		string(status), reviewPageID, time.Now().UTC(), draftID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update draft status %s", draftID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("draft not found: %s", draftID)
	}
	return nil
}

func (s *PostgresStore) GetDraft(ctx context.Context, draftID string) (*model.EmailDraft, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, article, fit, author, subject, body, status, review_page_id, created_at, updated_at
		 FROM outreach_drafts WHERE id = $1`,
		draftID,
	)

	d, err := scanDraftPg(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get draft %s", draftID)
	}
	return d, nil
}

func (s *PostgresStore) ListDrafts(ctx context.Context, status model.ReviewStatus, limit int) ([]model.EmailDraft, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, article, fit, author, subject, body, status, review_page_id, created_at, updated_at
		 FROM outreach_drafts`
	var args []any
	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, string(status), limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list drafts")
	}
	defer rows.Close()

	var drafts []model.EmailDraft
	for rows.Next() {
		d, err := scanDraftPg(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan draft")
		}
		drafts = append(drafts, *d)
	}
	return drafts, eris.Wrap(rows.Err(), "postgres: list drafts iterate")
}

func scanDraftPg(row scannable) (*model.EmailDraft, error) {
	var d model.EmailDraft
	var articleJSON, fitJSON, authorJSON []byte
	var reviewPageID *string

	if err := row.Scan(&d.ID, &articleJSON, &fitJSON, &authorJSON, &d.Subject, &d.Body, &d.Status, &reviewPageID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(articleJSON, &d.Article); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fitJSON, &d.Fit); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(authorJSON, &d.Author); err != nil {
		return nil, err
	}
	if reviewPageID != nil {
		d.ReviewPageID = *reviewPageID
	}
	return &d, nil
}

// placeholderClause appends a numbered placeholder to a clause prefix.
func placeholderClause(prefix string, n int) string {
	return prefix + "$" + strconv.Itoa(n)
}
