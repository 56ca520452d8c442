// Package cache is the daily snapshot store for fetched articles and
// editorial rankings, backed by SQLite. Snapshots are keyed by
// (topic, day, provider label); a snapshot is fresh when its day is today
// and serves as a stale fallback otherwise.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/briefwire/briefwire/pkg/domain"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when no entry exists for the requested key.
var ErrNotFound = errors.New("cache entry not found")

// Config represents cache store configuration
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store persists article snapshots and ranking sets.
type Store struct {
	db *sqlx.DB
}

// NewStore opens the SQLite store and initializes the schema.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		cfg.DSN = "file:briefwire.db?cache=shared&mode=rwc&_txlock=immediate"
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// snapshotSQL represents a snapshot row for SQL operations
type snapshotSQL struct {
	ID            int64        `db:"id"`
	Topic         string       `db:"topic"`
	Day           string       `db:"day"`
	ProviderLabel string       `db:"provider_label"`
	Articles      string       `db:"articles"`
	FetchDuration int64        `db:"fetch_duration_ms"`
	ExpiresAt     sql.NullTime `db:"expires_at"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

// Upsert writes a snapshot, replacing any earlier fetch for the same
// (topic, day, provider label).
func (s *Store) Upsert(ctx context.Context, entry domain.CacheEntry) error {
	articles, err := json.Marshal(entry.Articles)
	if err != nil {
		return fmt.Errorf("marshal articles: %w", err)
	}

	row := snapshotSQL{
		Topic:         entry.Topic,
		Day:           entry.Day,
		ProviderLabel: entry.ProviderLabel,
		Articles:      string(articles),
		FetchDuration: entry.FetchDuration,
	}
	if !entry.ExpiresAt.IsZero() {
		row.ExpiresAt = sql.NullTime{Time: entry.ExpiresAt, Valid: true}
	}

	query := `
		INSERT INTO snapshots (topic, day, provider_label, articles, fetch_duration_ms, expires_at)
		VALUES (:topic, :day, :provider_label, :articles, :fetch_duration_ms, :expires_at)
		ON CONFLICT (topic, day, provider_label) DO UPDATE SET
			articles = excluded.articles,
			fetch_duration_ms = excluded.fetch_duration_ms,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
			if isLockError(err) {
				return err // repeater will retry this
			}
			return &criticalError{err: fmt.Errorf("upsert snapshot: %w", err)}
		}
		return nil
	})
}

// Get looks up the snapshot for an exact (topic, day, provider label) key.
func (s *Store) Get(ctx context.Context, topic, day, providerLabel string) (*domain.CacheEntry, error) {
	var row snapshotSQL
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM snapshots WHERE topic = ? AND day = ? AND provider_label = ?",
		topic, day, providerLabel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return toEntry(&row)
}

// Latest returns the most recent snapshot for a topic regardless of day,
// used as the stale fallback when all live strategies fail.
func (s *Store) Latest(ctx context.Context, topic string) (*domain.CacheEntry, error) {
	var row snapshotSQL
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM snapshots WHERE topic = ? ORDER BY day DESC, updated_at DESC LIMIT 1", topic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return toEntry(&row)
}

// rankingSQL represents a ranking row for SQL operations
type rankingSQL struct {
	ID       int64     `db:"id"`
	Topic    string    `db:"topic"`
	Day      string    `db:"day"`
	Rankings string    `db:"rankings"`
	Model    string    `db:"model"`
	Fallback bool      `db:"fallback"`
	RankedAt time.Time `db:"ranked_at"`
}

// UpsertRanking stores the editorial ranking set for a (topic, day).
func (s *Store) UpsertRanking(ctx context.Context, set domain.RankingSet) error {
	rankings, err := json.Marshal(set.Rankings)
	if err != nil {
		return fmt.Errorf("marshal rankings: %w", err)
	}

	query := `
		INSERT INTO rankings (topic, day, rankings, model, fallback, ranked_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (topic, day) DO UPDATE SET
			rankings = excluded.rankings,
			model = excluded.model,
			fallback = excluded.fallback,
			ranked_at = excluded.ranked_at
	`

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, set.Topic, domain.Day(set.RankedAt), string(rankings),
			set.Model, set.Fallback, set.RankedAt)
		if err != nil {
			if isLockError(err) {
				return err
			}
			return &criticalError{err: fmt.Errorf("upsert ranking: %w", err)}
		}
		return nil
	})
}

// GetRanking looks up the editorial ranking set for a (topic, day).
func (s *Store) GetRanking(ctx context.Context, topic, day string) (*domain.RankingSet, error) {
	var row rankingSQL
	err := s.db.GetContext(ctx, &row, "SELECT * FROM rankings WHERE topic = ? AND day = ?", topic, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ranking: %w", err)
	}

	set := &domain.RankingSet{Topic: row.Topic, Model: row.Model, Fallback: row.Fallback, RankedAt: row.RankedAt}
	if err := json.Unmarshal([]byte(row.Rankings), &set.Rankings); err != nil {
		return nil, fmt.Errorf("unmarshal rankings: %w", err)
	}
	return set, nil
}

// toEntry converts a snapshot row to the domain entry
func toEntry(row *snapshotSQL) (*domain.CacheEntry, error) {
	entry := &domain.CacheEntry{
		Topic:         row.Topic,
		Day:           row.Day,
		ProviderLabel: row.ProviderLabel,
		FetchDuration: row.FetchDuration,
		CreatedAt:     row.CreatedAt,
	}
	if row.ExpiresAt.Valid {
		entry.ExpiresAt = row.ExpiresAt.Time
	}
	if err := json.Unmarshal([]byte(row.Articles), &entry.Articles); err != nil {
		return nil, fmt.Errorf("unmarshal articles: %w", err)
	}
	return entry, nil
}

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string { return e.err.Error() }

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
