package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"newsbrief/internal/news"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteArchive implements Archive on a local SQLite database.
type SQLiteArchive struct {
	conn *sql.DB
}

// Open opens (or creates) the archive database and applies pending
// migrations.
func Open(dbPath string) (*SQLiteArchive, error) {
	slog.Debug("opening archive database", "path", dbPath)

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &SQLiteArchive{conn: conn}, nil
}

func runMigrations(conn *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteArchive) SaveRun(ctx context.Context, rec RunRecord) (int64, error) {
	succeeded, err := json.Marshal(rec.Succeeded)
	if err != nil {
		return 0, fmt.Errorf("failed to encode succeeded list: %w", err)
	}
	failed, err := json.Marshal(rec.Failed)
	if err != nil {
		return 0, fmt.Errorf("failed to encode failure list: %w", err)
	}

	query := `
		INSERT INTO runs (started_at, finished_at, state, item_count, succeeded, failed, artifact_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.conn.ExecContext(ctx, query,
		rec.StartedAt, rec.FinishedAt, rec.State, rec.ItemCount,
		string(succeeded), string(failed), rec.ArtifactPath)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	return res.LastInsertId()
}

func (s *SQLiteArchive) SaveItems(ctx context.Context, items []news.Item) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO items (key, source, title, url, published_at, summary, score, first_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, item := range items {
		var published any
		if item.PublishedAt != nil {
			published = *item.PublishedAt
		}
		if _, err := tx.ExecContext(ctx, query,
			item.DedupKey(), item.Source, item.Title, item.URL,
			published, item.Summary, item.Score, now); err != nil {
			return fmt.Errorf("failed to save item %q: %w", item.Title, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteArchive) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, started_at, finished_at, state, item_count, succeeded, failed, artifact_path
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var succeeded, failed string
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.State,
			&rec.ItemCount, &succeeded, &failed, &rec.ArtifactPath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(succeeded), &rec.Succeeded); err != nil {
			return nil, fmt.Errorf("failed to decode succeeded list: %w", err)
		}
		if err := json.Unmarshal([]byte(failed), &rec.Failed); err != nil {
			return nil, fmt.Errorf("failed to decode failure list: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *SQLiteArchive) Close() error {
	return s.conn.Close()
}
