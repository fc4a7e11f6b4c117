// Package journal persists an append-only record of publishing operations in
// SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lusky3/play-store-mcp/internal/platform/id"
	"github.com/lusky3/play-store-mcp/internal/platform/storage/journal/migrations"
	"github.com/lusky3/play-store-mcp/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 20

// MaxLimit is the largest page List returns.
const MaxLimit = 500

// Entry is one recorded operation outcome.
type Entry struct {
	ID          string    `json:"id"`
	RecordedAt  time.Time `json:"recorded_at"`
	Operation   string    `json:"operation"`
	PackageName string    `json:"package_name"`
	Track       string    `json:"track,omitempty"`
	Language    string    `json:"language,omitempty"`
	VersionCode *int64    `json:"version_code,omitempty"`
	EditID      string    `json:"edit_id,omitempty"`
	Success     bool      `json:"success"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Message     string    `json:"message"`
	BatchID     string    `json:"batch_id,omitempty"`
}

// Query filters List.
type Query struct {
	PackageName string
	Limit       int
}

// Store is a SQLite-backed journal.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the journal database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Record appends entry. Missing ids and times are filled in.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(entry.Operation) == "" {
		return fmt.Errorf("operation is required")
	}
	if strings.TrimSpace(entry.PackageName) == "" {
		return fmt.Errorf("package name is required")
	}
	if entry.ID == "" {
		generated, err := id.NewID()
		if err != nil {
			return fmt.Errorf("generate entry id: %w", err)
		}
		entry.ID = generated
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}

	var versionCode sql.NullInt64
	if entry.VersionCode != nil {
		versionCode = sql.NullInt64{Int64: *entry.VersionCode, Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO journal_entries (
	id, recorded_at, operation, package_name, track, language, version_code, edit_id, success, error_kind, message, batch_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		entry.ID,
		toMillis(entry.RecordedAt),
		entry.Operation,
		entry.PackageName,
		entry.Track,
		entry.Language,
		versionCode,
		entry.EditID,
		entry.Success,
		entry.ErrorKind,
		entry.Message,
		entry.BatchID,
	)
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

// List returns the newest entries first.
func (s *Store) List(ctx context.Context, query Query) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	stmt := `
SELECT id, recorded_at, operation, package_name, track, language, version_code, edit_id, success, error_kind, message, batch_id
FROM journal_entries`
	args := []any{}
	if pkg := strings.TrimSpace(query.PackageName); pkg != "" {
		stmt += " WHERE package_name = ?"
		args = append(args, pkg)
	}
	stmt += " ORDER BY recorded_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry       Entry
			recordedAt  int64
			versionCode sql.NullInt64
		)
		if err := rows.Scan(
			&entry.ID,
			&recordedAt,
			&entry.Operation,
			&entry.PackageName,
			&entry.Track,
			&entry.Language,
			&versionCode,
			&entry.EditID,
			&entry.Success,
			&entry.ErrorKind,
			&entry.Message,
			&entry.BatchID,
		); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entry.RecordedAt = fromMillis(recordedAt)
		if versionCode.Valid {
			code := versionCode.Int64
			entry.VersionCode = &code
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return entries, nil
}
