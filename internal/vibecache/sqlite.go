package vibecache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/metrics"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLite persists proposals in a SQLite database. Reads refresh accessed_at so
// capacity eviction is least-recently-used.
type SQLite struct {
	db     *sql.DB
	path   string
	opts   Options
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLite{db: db, path: path, opts: opts, logger: componentLogger(opts.Logger)}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Backend returns the backend name.
func (s *SQLite) Backend() string { return config.CacheBackendSQLite }

// Get returns the entry for key and marks it as recently used.
func (s *SQLite) Get(ctx context.Context, key string) (Entry, bool, error) {
	now := s.opts.now()
	row := s.db.QueryRowContext(ctx,
		"SELECT cache_key, candidates, cached_at, expires_at FROM proposals WHERE cache_key = ?", key)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query proposal: %w", err)
	}
	if entry.Expired(now) {
		return Entry{}, false, nil
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE proposals SET accessed_at = ? WHERE cache_key = ?", now.UnixNano(), key); err != nil {
		s.logger.Debug("failed to refresh proposal recency", logging.String("key", key), logging.Error(err))
	}
	return entry, true, nil
}

// Put upserts candidates under key and trims the table to MaxEntries.
func (s *SQLite) Put(ctx context.Context, key string, candidates []string) error {
	if strings.TrimSpace(key) == "" {
		return errKeyRequired("put")
	}
	encoded, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	now := s.opts.now()
	var expires int64
	if exp := s.opts.expiry(now); !exp.IsZero() {
		expires = exp.UnixNano()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO proposals (cache_key, candidates, cached_at, expires_at, accessed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			candidates = excluded.candidates,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at,
			accessed_at = excluded.accessed_at`,
		key, string(encoded), now.UnixNano(), expires, now.UnixNano()); err != nil {
		return fmt.Errorf("upsert proposal: %w", err)
	}

	if s.opts.MaxEntries > 0 {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM proposals WHERE cache_key IN (
				SELECT cache_key FROM proposals ORDER BY accessed_at DESC, cache_key LIMIT -1 OFFSET ?
			)`, s.opts.MaxEntries)
		if err != nil {
			return fmt.Errorf("trim proposals: %w", err)
		}
		if evicted, _ := res.RowsAffected(); evicted > 0 {
			metrics.CacheEvictions.WithLabelValues(s.Backend(), "capacity").Add(float64(evicted))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put tx: %w", err)
	}
	s.refreshGauge(ctx)
	return nil
}

// List returns live entries, newest first.
func (s *SQLite) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT cache_key, candidates, cached_at, expires_at FROM proposals ORDER BY cached_at DESC, cache_key")
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	now := s.opts.now()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if !entry.Expired(now) {
			entries = append(entries, entry)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CachedAt.After(entries[j].CachedAt) })
	return entries, nil
}

// Remove deletes key.
func (s *SQLite) Remove(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM proposals WHERE cache_key = ?", key)
	if err != nil {
		return fmt.Errorf("remove proposal: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errKeyNotFound(key)
	}
	s.refreshGauge(ctx)
	return nil
}

// Clear deletes every proposal.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM proposals"); err != nil {
		return fmt.Errorf("clear proposals: %w", err)
	}
	s.refreshGauge(ctx)
	return nil
}

// Len returns the number of stored proposals.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM proposals").Scan(&count); err != nil {
		return 0, fmt.Errorf("count proposals: %w", err)
	}
	return count, nil
}

// Sweep deletes expired proposals.
func (s *SQLite) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM proposals WHERE expires_at > 0 AND expires_at <= ?", s.opts.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweep proposals: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues(s.Backend(), "expired").Add(float64(removed))
		s.refreshGauge(ctx)
	}
	return int(removed), nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) refreshGauge(ctx context.Context) {
	if count, err := s.Len(ctx); err == nil {
		metrics.CacheEntries.WithLabelValues(s.Backend()).Set(float64(count))
	}
}

func (s *SQLite) applyMigrations(ctx context.Context) error {
	names, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	versions := make([]string, 0, len(names))
	for _, entry := range names {
		if !entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	sort.Strings(versions)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	for _, name := range versions {
		version := strings.TrimSuffix(name, ".sql")
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry      Entry
		candidates string
		cachedAt   int64
		expiresAt  int64
	)
	if err := scanner.Scan(&entry.Key, &candidates, &cachedAt, &expiresAt); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(candidates), &entry.Candidates); err != nil {
		return Entry{}, fmt.Errorf("decode candidates for %q: %w", entry.Key, err)
	}
	entry.CachedAt = time.Unix(0, cachedAt)
	if expiresAt > 0 {
		entry.ExpiresAt = time.Unix(0, expiresAt)
	}
	return entry, nil
}
