package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/skylarklabs/reportloom/pkg/models"
)

// PostgresConfig bounds the connection pool for a Postgres-backed Store.
type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns conservative pool defaults.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

// postgresStore implements Store against a `prompt_executions` table.
type postgresStore struct {
	db *sql.DB
}

// NewPostgresStoreFromDSN opens a Postgres-backed Store.
func NewPostgresStoreFromDSN(dsn string, config *PostgresConfig) (Store, func() error, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultPostgresConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	return &postgresStore{db: db}, db.Close, nil
}

func (s *postgresStore) StoreRun(ctx context.Context, promptID int, artifact string, issues []models.Issue, metadata map[string]any) (string, error) {
	id := uuid.NewString()
	issueKeys := make([]string, 0, len(issues))
	for _, issue := range issues {
		issueKeys = append(issueKeys, issue.Key)
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return "", fmt.Errorf("marshal issues: %w", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prompt_executions (id, prompt_id, executed_at, artifact, issues, issue_keys, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, promptID, time.Now().UTC(), artifact, issuesJSON, pq.Array(issueKeys), metaJSON,
	)
	if err != nil {
		return "", fmt.Errorf("store run: %w", err)
	}
	return id, nil
}

func (s *postgresStore) LatestFor(ctx context.Context, promptID int) (*models.PromptExecution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, prompt_id, executed_at, artifact, issues, metadata
		 FROM prompt_executions WHERE prompt_id = $1 ORDER BY executed_at DESC, seq DESC LIMIT 1`, promptID)
	return scanExecution(row)
}

// AllFor orders by (executed_at, seq) ascending: seq is a monotonically
// increasing insertion sequence, so two runs stored within the same
// timestamp tick still come back in insertion order.
func (s *postgresStore) AllFor(ctx context.Context, promptID int) ([]*models.PromptExecution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt_id, executed_at, artifact, issues, metadata
		 FROM prompt_executions WHERE prompt_id = $1 ORDER BY executed_at ASC, seq ASC`, promptID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*models.PromptExecution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

func (s *postgresStore) Delete(ctx context.Context, executionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_executions WHERE id = $1`, executionID)
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *postgresStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_executions WHERE executed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// rowScanner abstracts *sql.Row / *sql.Rows for scanExecution.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*models.PromptExecution, error) {
	var exec models.PromptExecution
	var issuesJSON, metaJSON []byte
	if err := row.Scan(&exec.ID, &exec.PromptID, &exec.ExecutedAt, &exec.Artifact, &issuesJSON, &metaJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan execution: %w", err)
	}
	if len(issuesJSON) > 0 {
		if err := json.Unmarshal(issuesJSON, &exec.Issues); err != nil {
			return nil, fmt.Errorf("unmarshal issues: %w", err)
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &exec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &exec, nil
}

// PostgresSchema is the DDL the migrate subcommand applies.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS prompt_executions (
	id UUID PRIMARY KEY,
	seq BIGSERIAL NOT NULL,
	prompt_id INTEGER NOT NULL,
	executed_at TIMESTAMPTZ NOT NULL,
	artifact TEXT NOT NULL,
	issues JSONB NOT NULL,
	issue_keys TEXT[] NOT NULL,
	metadata JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prompt_executions_prompt_id ON prompt_executions (prompt_id, executed_at DESC, seq DESC);
`
