package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Store is the shared key-value store every persisted entity lives in. A single
// Set is atomic; there is no multi-key transaction.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Entry, error)
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	Close() error
}

// NotificationLog persists alerts until the extension has displayed them.
type NotificationLog interface {
	AppendNotification(ctx context.Context, n *Notification) error
	PendingNotifications(ctx context.Context, limit int) ([]Notification, error)
	MarkDelivered(ctx context.Context, ids []string) error
}

// SQLiteStore implements Store and NotificationLog backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getValue    *sql.Stmt
	setValue    *sql.Stmt
	deleteValue *sql.Stmt
	insertNote  *sql.Stmt
}

// Open creates the parent directory, opens the database at path, runs
// migrations and returns a ready store. The caller owns the returned *sql.DB.
func Open(path, journalMode string) (*SQLiteStore, *sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: merges are single-writer and :memory: databases are
	// per-connection.
	db.SetMaxOpenConns(1)

	if err := NewMigrationRunner(db).WithJournalMode(journalMode).Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}
	return store, db, nil
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getValue, err = s.db.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.setValue, err = s.db.Prepare(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	s.deleteValue, err = s.db.Prepare(`DELETE FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.insertNote, err = s.db.Prepare(`
		INSERT INTO notifications (id, kind, title, message, delivered, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// escapeLike escapes LIKE wildcards so prefixes match literally.
func escapeLike(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// Get returns the raw value stored under key, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.getValue.QueryRowContext(ctx, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set replaces the value stored under key.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.setValue.ExecContext(ctx, key, value, ts); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.deleteValue.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List returns every entry whose key starts with prefix, ordered by key.
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		escapeLike(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.Key, &e.Value, &ts); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.UpdatedAt, _ = parseTimestamp(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeletePrefix removes every key starting with prefix and reports how many.
func (s *SQLiteStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key LIKE ? ESCAPE '\'`, escapeLike(prefix))
	if err != nil {
		return 0, fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	return res.RowsAffected()
}

// AppendNotification records a notification for later delivery.
func (s *SQLiteStore) AppendNotification(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		return fmt.Errorf("notification id is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := s.insertNote.ExecContext(ctx,
		n.ID, n.Kind, n.Title, n.Message, n.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// PendingNotifications returns undelivered notifications, oldest first.
func (s *SQLiteStore) PendingNotifications(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, message, created_at
		FROM notifications WHERE delivered = 0
		ORDER BY created_at ASC, id ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notes := []Notification{}
	for rows.Next() {
		var n Notification
		var ts string
		if err := rows.Scan(&n.ID, &n.Kind, &n.Title, &n.Message, &ts); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.CreatedAt, _ = parseTimestamp(ts)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// MarkDelivered flags the given notifications as displayed.
func (s *SQLiteStore) MarkDelivered(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("UPDATE notifications SET delivered = 1 WHERE id IN (%s)", strings.Join(placeholders, ","))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// PurgeAll deletes every key and notification.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM kv",
		"DELETE FROM notifications",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// Summary returns aggregate facts about the database. dayPrefix selects the
// per-day keys (e.g. "daily:").
func (s *SQLiteStore) Summary(ctx context.Context, dayPrefix string) (*Summary, error) {
	sum := &Summary{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&sum.TotalKeys); err != nil {
		return nil, fmt.Errorf("count keys: %w", err)
	}

	var oldest, newest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(key), MAX(key) FROM kv WHERE key LIKE ? ESCAPE '\'`, escapeLike(dayPrefix),
	).Scan(&sum.DaysTracked, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("day range: %w", err)
	}
	sum.OldestDay = strings.TrimPrefix(oldest.String, dayPrefix)
	sum.NewestDay = strings.TrimPrefix(newest.String, dayPrefix)

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications WHERE delivered = 0").Scan(&sum.PendingNotifications)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	sum.SchemaVersion, err = NewMigrationRunner(s.db).CurrentVersion()
	if err != nil {
		return nil, fmt.Errorf("schema version: %w", err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			sum.DatabaseSizeBytes = pageCount * pageSize
		}
	}

	return sum, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.getValue, s.setValue, s.deleteValue, s.insertNote}
	var errs []error
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetJSON decodes the value under key into v. It reports false, with v
// untouched, when the key does not exist.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under key as one atomic write.
func PutJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// DecodeJSON decodes a listed entry's value into v.
func DecodeJSON(e Entry, v interface{}) error {
	if err := json.Unmarshal(e.Value, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Key, err)
	}
	return nil
}
