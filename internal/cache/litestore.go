package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/skylarklabs/reportloom/pkg/models"
)

// sqliteStore implements Store against a local SQLite file, for single-process
// deployments and tests that want a real durable store without a Postgres
// instance.
type sqliteStore struct {
	db *sql.DB
}

// SQLiteSchema is the DDL NewSQLiteStore applies on open.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS prompt_executions (
	id TEXT PRIMARY KEY,
	prompt_id INTEGER NOT NULL,
	executed_at TEXT NOT NULL,
	artifact TEXT NOT NULL,
	issues TEXT NOT NULL,
	metadata TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prompt_executions_prompt_id ON prompt_executions (prompt_id, executed_at DESC);
`

// NewSQLiteStore opens (creating if absent) a SQLite-backed Store at path.
func NewSQLiteStore(path string) (Store, func() error, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, fmt.Errorf("path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writes; one conn avoids SQLITE_BUSY

	if _, err := db.Exec(SQLiteSchema); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqliteStore{db: db}, db.Close, nil
}

func (s *sqliteStore) StoreRun(ctx context.Context, promptID int, artifact string, issues []models.Issue, metadata map[string]any) (string, error) {
	id := uuid.NewString()
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return "", fmt.Errorf("marshal issues: %w", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prompt_executions (id, prompt_id, executed_at, artifact, issues, metadata) VALUES (?,?,?,?,?,?)`,
		id, promptID, time.Now().UTC().Format(time.RFC3339Nano), artifact, string(issuesJSON), string(metaJSON),
	)
	if err != nil {
		return "", fmt.Errorf("store run: %w", err)
	}
	return id, nil
}

func (s *sqliteStore) LatestFor(ctx context.Context, promptID int) (*models.PromptExecution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, prompt_id, executed_at, artifact, issues, metadata
		 FROM prompt_executions WHERE prompt_id = ? ORDER BY executed_at DESC, rowid DESC LIMIT 1`, promptID)
	return scanSQLiteExecution(row)
}

// AllFor orders by (executed_at, rowid) ascending: SQLite's implicit rowid
// increases with insertion order, so two runs stored within the same
// timestamp tick still come back in insertion order.
func (s *sqliteStore) AllFor(ctx context.Context, promptID int) ([]*models.PromptExecution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt_id, executed_at, artifact, issues, metadata
		 FROM prompt_executions WHERE prompt_id = ? ORDER BY executed_at ASC, rowid ASC`, promptID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*models.PromptExecution
	for rows.Next() {
		exec, err := scanSQLiteExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Delete(ctx context.Context, executionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_executions WHERE id = ?`, executionID)
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *sqliteStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_executions WHERE executed_at < ?`, cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func scanSQLiteExecution(row rowScanner) (*models.PromptExecution, error) {
	var exec models.PromptExecution
	var executedAt, issuesJSON, metaJSON string
	if err := row.Scan(&exec.ID, &exec.PromptID, &executedAt, &exec.Artifact, &issuesJSON, &metaJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan execution: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, executedAt)
	if err != nil {
		return nil, fmt.Errorf("parse executed_at: %w", err)
	}
	exec.ExecutedAt = parsed
	if issuesJSON != "" {
		if err := json.Unmarshal([]byte(issuesJSON), &exec.Issues); err != nil {
			return nil, fmt.Errorf("unmarshal issues: %w", err)
		}
	}
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &exec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &exec, nil
}
