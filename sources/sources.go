// Package sources stores the configured syndication feeds in SQLite.
package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/newsdesk/ingest"
)

// Custom errors for feed operations
var (
	ErrFeedNotFound  = errors.New("feed not found")
	ErrDuplicateName = errors.New("feed with this name already exists")
	ErrEmptyField    = errors.New("feed name and URL cannot be empty")
)

// Store manages feed configurations using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Feed is a configured feed. Name is its identity; Position is its place in
// the list, which is the order feeds are pulled and reported in.
type Feed struct {
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	Position        int        `json:"position"`
	EnabledAt       *time.Time `json:"enabled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastFetchedAt   *time.Time `json:"last_fetched_at,omitempty"`
	FetchErrorCount int        `json:"fetch_error_count"`
	LastError       *string    `json:"last_error,omitempty"`
}

// IsEnabled returns true if the feed is pulled.
func (f *Feed) IsEnabled() bool {
	return f.EnabledAt != nil
}

// Source returns the feed in the form the ingest coordinator takes.
func (f *Feed) Source() ingest.FeedSource {
	return ingest.FeedSource{Name: f.Name, URL: f.URL}
}

// FeedUpdate represents fields that can be updated on a feed. A non-nil Name
// renames the feed.
type FeedUpdate struct {
	Name           *string
	URL            *string
	EnabledAt      *time.Time
	ClearEnabledAt bool // Set to true to set enabled_at to NULL
}

// FeedFilter represents filtering options for listing feeds.
type FeedFilter struct {
	Enabled *bool
}

// NewStore opens (creating if needed) the feed database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feeds (
		name TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		position INTEGER NOT NULL,
		enabled_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_fetched_at TEXT,
		fetch_error_count INTEGER DEFAULT 0,
		last_error TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create adds a feed at the end of the list. Name and URL are trimmed and
// must not be empty.
func (s *Store) Create(name, url string, enabledAt *time.Time) (*Feed, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" || url == "" {
		return nil, ErrEmptyField
	}

	var position int
	err := s.db.QueryRow("SELECT COALESCE(MAX(position) + 1, 0) FROM feeds").Scan(&position)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed positions: %w", err)
	}

	now := s.now()
	feed := &Feed{
		Name:      name,
		URL:       url,
		Position:  position,
		EnabledAt: enabledAt,
		CreatedAt: now.Truncate(0),
		UpdatedAt: now.Truncate(0),
	}

	query := `
		INSERT INTO feeds (name, url, position, enabled_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		feed.Name,
		feed.URL,
		feed.Position,
		formatTime(feed.EnabledAt),
		formatTime(&feed.CreatedAt),
		formatTime(&feed.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to insert feed: %w", err)
	}

	return feed, nil
}

const feedColumns = `name, url, position, enabled_at, created_at, updated_at,
	last_fetched_at, fetch_error_count, last_error`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanFeed reads one row selected with feedColumns.
func scanFeed(row rowScanner) (*Feed, error) {
	var feed Feed
	var createdAtStr, updatedAtStr string
	var enabledAtStr, lastFetchedAtStr, lastError sql.NullString

	err := row.Scan(
		&feed.Name, &feed.URL, &feed.Position,
		&enabledAtStr, &createdAtStr, &updatedAtStr,
		&lastFetchedAtStr, &feed.FetchErrorCount, &lastError,
	)
	if err != nil {
		return nil, err
	}

	feed.CreatedAt = parseTime(createdAtStr)
	feed.UpdatedAt = parseTime(updatedAtStr)

	if enabledAtStr.Valid {
		t := parseTime(enabledAtStr.String)
		feed.EnabledAt = &t
	}
	if lastFetchedAtStr.Valid {
		t := parseTime(lastFetchedAtStr.String)
		feed.LastFetchedAt = &t
	}
	if lastError.Valid {
		feed.LastError = &lastError.String
	}

	return &feed, nil
}

// Get retrieves a feed by name.
func (s *Store) Get(name string) (*Feed, error) {
	row := s.db.QueryRow("SELECT "+feedColumns+" FROM feeds WHERE name = ?", name)
	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, ErrFeedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	return feed, nil
}

// List returns feeds in list order.
func (s *Store) List(filter FeedFilter) ([]Feed, error) {
	builder := sq.Select(feedColumns).From("feeds").OrderBy("position ASC", "name ASC")

	if filter.Enabled != nil {
		if *filter.Enabled {
			builder = builder.Where(sq.NotEq{"enabled_at": nil})
		} else {
			builder = builder.Where(sq.Eq{"enabled_at": nil})
		}
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, *feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feeds: %w", err)
	}

	return feeds, nil
}

// Sources returns the enabled feeds, in list order, ready for ingestion.
func (s *Store) Sources() ([]ingest.FeedSource, error) {
	enabled := true
	feeds, err := s.List(FeedFilter{Enabled: &enabled})
	if err != nil {
		return nil, err
	}

	sources := make([]ingest.FeedSource, 0, len(feeds))
	for i := range feeds {
		sources = append(sources, feeds[i].Source())
	}
	return sources, nil
}

// Update changes the named feed.
func (s *Store) Update(name string, update FeedUpdate) error {
	now := s.now()
	builder := sq.Update("feeds").Set("updated_at", formatTime(&now))

	if update.Name != nil {
		newName := strings.TrimSpace(*update.Name)
		if newName == "" {
			return ErrEmptyField
		}
		builder = builder.Set("name", newName)
	}
	if update.URL != nil {
		newURL := strings.TrimSpace(*update.URL)
		if newURL == "" {
			return ErrEmptyField
		}
		builder = builder.Set("url", newURL)
	}
	if update.ClearEnabledAt {
		builder = builder.Set("enabled_at", nil)
	} else if update.EnabledAt != nil {
		builder = builder.Set("enabled_at", formatTime(update.EnabledAt))
	}

	query, args, err := builder.Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	result, err := s.db.Exec(query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to update feed: %w", err)
	}

	return requireAffected(result)
}

// RecordFetch notes the outcome of pulling the named feed. A nil fetchErr
// resets the error count.
func (s *Store) RecordFetch(name string, at time.Time, fetchErr error) error {
	var result sql.Result
	var err error

	if fetchErr == nil {
		result, err = s.db.Exec(
			"UPDATE feeds SET last_fetched_at = ?, fetch_error_count = 0, last_error = NULL WHERE name = ?",
			formatTime(&at), name,
		)
	} else {
		result, err = s.db.Exec(
			"UPDATE feeds SET last_fetched_at = ?, fetch_error_count = fetch_error_count + 1, last_error = ? WHERE name = ?",
			formatTime(&at), fetchErr.Error(), name,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to record fetch: %w", err)
	}

	return requireAffected(result)
}

// Delete removes the named feed.
func (s *Store) Delete(name string) error {
	result, err := s.db.Exec("DELETE FROM feeds WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}

	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrFeedNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint") ||
		strings.Contains(err.Error(), "unique constraint")
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
