// Package cache implements the Execution Cache: a durable,
// append-only store keyed on prompt identity, plus a TTL-bounded admission
// guard (RunDedupe) above it. Uses a shared ErrNotFound sentinel, the
// QueryRowContext/ExecContext idiom, and a JSON-marshaled-column pattern for
// nested structures.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/skylarklabs/reportloom/pkg/models"
)

// ErrNotFound is returned by LatestFor when no execution exists for a prompt.
var ErrNotFound = errors.New("cache: not found")

// Store is the Execution Cache's contract. StoreRun never
// overwrites a prior run — it always inserts a new row — so a Store
// implementation must not treat re-storage of an identical artifact as an
// update.
type Store interface {
	// StoreRun persists a completed session's artifact and returns its new id.
	StoreRun(ctx context.Context, promptID int, artifact string, issues []models.Issue, metadata map[string]any) (string, error)
	// LatestFor returns the most recently executed run for promptID, or
	// ErrNotFound if none exists.
	LatestFor(ctx context.Context, promptID int) (*models.PromptExecution, error)
	// AllFor returns every run for promptID, ordered by executedAt ascending.
	AllFor(ctx context.Context, promptID int) ([]*models.PromptExecution, error)
	// Delete removes a run by id. Returns false if it did not exist.
	Delete(ctx context.Context, executionID string) (bool, error)
	// PruneOlderThan deletes every run executed before cutoff and returns
	// the number of rows removed. Used by the retention janitor.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExtractIssues scans a run's Execution History for search_issues and
// get_cached_issues results, deduplicating by issue key.
func ExtractIssues(history []models.HistoryRecord, resultsByCallID map[string]any) []models.Issue {
	seen := make(map[string]bool)
	var issues []models.Issue
	for _, record := range history {
		if record.ToolName != "search_issues" && record.ToolName != "get_cached_issues" {
			continue
		}
		raw, ok := resultsByCallID[record.CallID]
		if !ok {
			continue
		}
		for _, issue := range flattenIssues(raw) {
			if issue.Key == "" || seen[issue.Key] {
				continue
			}
			seen[issue.Key] = true
			issues = append(issues, issue)
		}
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	return issues
}

func flattenIssues(v any) []models.Issue {
	switch val := v.(type) {
	case []models.Issue:
		return val
	case models.Issue:
		return []models.Issue{val}
	default:
		return nil
	}
}
