package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/amishk599/jobintake/internal/model"
)

// Dialect selects SQL placeholder style and driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS poll_cursor (
		source                  TEXT PRIMARY KEY,
		last_seen_internal_date BIGINT NOT NULL,
		updated_at              BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ingested_messages (
		message_id    TEXT PRIMARY KEY,
		thread_id     TEXT NOT NULL DEFAULT '',
		internal_date BIGINT NOT NULL DEFAULT 0,
		subject       TEXT NOT NULL DEFAULT '',
		sender        TEXT NOT NULL DEFAULT '',
		urls          TEXT NOT NULL DEFAULT '[]',
		job_keys      TEXT NOT NULL DEFAULT '[]',
		processed_at  BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS token_vault (
		id                INTEGER PRIMARY KEY,
		refresh_token_enc TEXT NOT NULL,
		access_token      TEXT NOT NULL DEFAULT '',
		expires_at        BIGINT NOT NULL DEFAULT 0,
		updated_at        BIGINT NOT NULL
	)`,
}

// vaultRowID is the primary key of the singleton vault row.
const vaultRowID = 1

// SQLStore keeps the poll cursors, the idempotency log and the token vault
// in one relational database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects to the database for the given dialect, verifies the
// connection and creates the tables if needed.
func Open(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	driver := "sqlite"
	switch dialect {
	case DialectSQLite:
	case DialectPostgres:
		driver = "pgx"
	default:
		return nil, &model.ConfigError{Field: "database.driver", Reason: fmt.Sprintf("unknown driver %q", dialect)}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer; serialize through a single connection.
		db.SetMaxOpenConns(1)
	}

	// Verify the connection is alive.
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s db: %w", dialect, err)
	}

	s := New(db, dialect)
	if dialect == DialectSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("configuring sqlite: %w", err)
		}
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	return Open(context.Background(), DialectSQLite, dbPath)
}

// New wraps an already-open database without touching the schema.
func New(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Migrate creates the tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// GetCursor returns the watermark stored for source.
func (s *SQLStore) GetCursor(ctx context.Context, source string) (int64, bool, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT last_seen_internal_date FROM poll_cursor WHERE source = ?"), source).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading cursor for %s: %w", source, err)
	}
	return v, true, nil
}

// PutCursor stores value for source. A stored watermark never moves backwards.
func (s *SQLStore) PutCursor(ctx context.Context, source string, value int64) error {
	q := `INSERT INTO poll_cursor (source, last_seen_internal_date, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (source) DO UPDATE SET
			last_seen_internal_date = excluded.last_seen_internal_date,
			updated_at = excluded.updated_at
		WHERE excluded.last_seen_internal_date > poll_cursor.last_seen_internal_date`
	if _, err := s.db.ExecContext(ctx, s.rebind(q), source, value, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("updating cursor for %s: %w", source, err)
	}
	return nil
}

// HasRecord reports whether itemID has an idempotency record.
func (s *SQLStore) HasRecord(ctx context.Context, itemID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT 1 FROM ingested_messages WHERE message_id = ?"), itemID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking record for %s: %w", itemID, err)
	}
	return true, nil
}

// InsertRecord writes an idempotency record. An existing record for the same
// item is left untouched.
func (s *SQLStore) InsertRecord(ctx context.Context, rec model.IdempotencyRecord) error {
	urls, err := marshalList(rec.URLs)
	if err != nil {
		return err
	}
	keys, err := marshalList(rec.JobKeys)
	if err != nil {
		return err
	}
	processed := rec.ProcessedAt
	if processed.IsZero() {
		processed = s.now()
	}

	q := `INSERT INTO ingested_messages
		(message_id, thread_id, internal_date, subject, sender, urls, job_keys, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id) DO NOTHING`
	_, err = s.db.ExecContext(ctx, s.rebind(q),
		rec.ItemID, rec.ThreadID, rec.OrderKey, rec.Subject, rec.From, urls, keys, processed.UnixMilli())
	if err != nil {
		return fmt.Errorf("recording item %s: %w", rec.ItemID, err)
	}
	return nil
}

// RecentRecords returns up to limit records, most recently processed first.
func (s *SQLStore) RecentRecords(ctx context.Context, limit int) ([]model.IdempotencyRecord, error) {
	q := `SELECT message_id, thread_id, internal_date, subject, sender, urls, job_keys, processed_at
		FROM ingested_messages ORDER BY processed_at DESC, internal_date DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []model.IdempotencyRecord
	for rows.Next() {
		var (
			rec             model.IdempotencyRecord
			urls, keys      string
			processedMillis int64
		)
		if err := rows.Scan(&rec.ItemID, &rec.ThreadID, &rec.OrderKey, &rec.Subject, &rec.From, &urls, &keys, &processedMillis); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.URLs = unmarshalList(urls)
		rec.JobKeys = unmarshalList(keys)
		rec.ProcessedAt = time.UnixMilli(processedMillis)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return out, nil
}

// GetVault returns the singleton vault row, or nil when none exists.
func (s *SQLStore) GetVault(ctx context.Context) (*model.VaultEntry, error) {
	var (
		e                  model.VaultEntry
		expires, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT refresh_token_enc, access_token, expires_at, updated_at FROM token_vault WHERE id = ?"),
		vaultRowID,
	).Scan(&e.RefreshCiphertext, &e.AccessToken, &expires, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token vault: %w", err)
	}
	if expires > 0 {
		e.ExpiresAt = time.UnixMilli(expires)
	}
	e.UpdatedAt = time.UnixMilli(updatedAt)
	return &e, nil
}

// PutVault creates or replaces the singleton vault row.
func (s *SQLStore) PutVault(ctx context.Context, e model.VaultEntry) error {
	var expires int64
	if !e.ExpiresAt.IsZero() {
		expires = e.ExpiresAt.UnixMilli()
	}
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	q := `INSERT INTO token_vault (id, refresh_token_enc, access_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			refresh_token_enc = excluded.refresh_token_enc,
			access_token = excluded.access_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, s.rebind(q), vaultRowID, e.RefreshCiphertext, e.AccessToken, expires, updated.UnixMilli()); err != nil {
		return fmt.Errorf("writing token vault: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(data), nil
}

func unmarshalList(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
