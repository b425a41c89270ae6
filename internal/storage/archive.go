// Package storage archives run summaries and fetched items in SQLite
// so past runs can be inspected after the fact. Archive failures are
// logged by callers and never fail a run.
package storage

import (
	"context"
	"time"

	"newsbrief/internal/news"
)

// RunRecord is one archived pipeline run.
type RunRecord struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	State        string
	ItemCount    int
	Succeeded    []string
	Failed       []news.Failure
	ArtifactPath string
}

// Archive persists runs and items.
type Archive interface {
	SaveRun(ctx context.Context, rec RunRecord) (int64, error)
	SaveItems(ctx context.Context, items []news.Item) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}
