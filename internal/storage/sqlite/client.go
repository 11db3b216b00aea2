package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/langextract/backend/internal/storage/models"
	"github.com/langextract/backend/pkg/logger"
)

var ErrNotFound = errors.New("run not found")

const defaultListLimit = 50

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS extraction_runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		language TEXT NOT NULL,
		domain TEXT NOT NULL,
		schema_name TEXT,
		models TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		text_chars INTEGER NOT NULL,
		entity_count INTEGER NOT NULL DEFAULT 0,
		relationship_count INTEGER NOT NULL DEFAULT 0,
		agreement_score REAL,
		latency_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		cache_hit INTEGER NOT NULL DEFAULT 0,
		result TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_kind ON extraction_runs(kind);
	CREATE INDEX IF NOT EXISTS idx_runs_hash ON extraction_runs(text_hash);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON extraction_runs(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Database schema initialized")
	return nil
}

// InsertRun stores run, assigning an ID and creation time when they are unset.
func (c *Client) InsertRun(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	modelsJSON, err := json.Marshal(run.Models)
	if err != nil {
		return fmt.Errorf("failed to marshal models: %w", err)
	}

	var result sql.NullString
	if len(run.Result) > 0 {
		result = sql.NullString{String: string(run.Result), Valid: true}
	}

	query := `
		INSERT INTO extraction_runs (
			id, kind, language, domain, schema_name, models, text_hash, text_chars,
			entity_count, relationship_count, agreement_score, latency_ms,
			status, error, cache_hit, result, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.ExecContext(ctx,
		query,
		run.ID,
		run.Kind,
		run.Language,
		run.Domain,
		run.Schema,
		string(modelsJSON),
		run.TextHash,
		run.TextChars,
		run.EntityCount,
		run.RelationshipCount,
		run.AgreementScore,
		run.LatencyMS,
		run.Status,
		run.Error,
		run.CacheHit,
		result,
		run.CreatedAt.UnixMilli(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	logger.Debug("Run recorded", zap.String("run_id", run.ID), zap.String("kind", run.Kind), zap.String("status", run.Status))
	return nil
}

const runColumns = `id, kind, language, domain, schema_name, models, text_hash, text_chars,
	entity_count, relationship_count, agreement_score, latency_ms,
	status, error, cache_hit, result, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (models.Run, error) {
	var (
		r          models.Run
		schemaName sql.NullString
		modelsJSON string
		agreement  sql.NullFloat64
		errText    sql.NullString
		result     sql.NullString
		createdAt  int64
	)

	err := s.Scan(
		&r.ID,
		&r.Kind,
		&r.Language,
		&r.Domain,
		&schemaName,
		&modelsJSON,
		&r.TextHash,
		&r.TextChars,
		&r.EntityCount,
		&r.RelationshipCount,
		&agreement,
		&r.LatencyMS,
		&r.Status,
		&errText,
		&r.CacheHit,
		&result,
		&createdAt,
	)
	if err != nil {
		return r, err
	}

	if err := json.Unmarshal([]byte(modelsJSON), &r.Models); err != nil {
		return r, fmt.Errorf("failed to unmarshal models: %w", err)
	}
	r.Schema = schemaName.String
	r.Error = errText.String
	if agreement.Valid {
		score := agreement.Float64
		r.AgreementScore = &score
	}
	if result.Valid {
		r.Result = json.RawMessage(result.String)
	}
	r.CreatedAt = time.UnixMilli(createdAt)
	return r, nil
}

func (c *Client) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM extraction_runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs first. The stored result payload is
// omitted; fetch a single run to get it. kind filters when non-empty.
func (c *Client) ListRuns(ctx context.Context, kind string, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT ` + runColumns + `
		FROM extraction_runs
		WHERE (? = '' OR kind = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Result = nil
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func (c *Client) Stats(ctx context.Context) ([]models.RunStats, error) {
	query := `
		SELECT kind, status, COUNT(*), AVG(latency_ms)
		FROM extraction_runs
		GROUP BY kind, status
		ORDER BY kind, status
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query run stats: %w", err)
	}
	defer rows.Close()

	stats := []models.RunStats{}
	for rows.Next() {
		var s models.RunStats
		if err := rows.Scan(&s.Kind, &s.Status, &s.Count, &s.AvgMS); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
