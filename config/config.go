package config

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Setting keys kept in the settings table.
const (
	KeyTimezone   = "timezone"
	KeyStoryLimit = "story_limit"

	// keyAnchor holds the rundown's show-end instant between runs. It is
	// written with SetAnchor, not Set.
	keyAnchor = "anchor"
)

// SettingsStore keeps settings changed from the command line using SQLite.
type SettingsStore struct {
	db *sql.DB
}

// Settings are the user-changeable values. Nil fields have not been set.
type Settings struct {
	Timezone   *string `json:"timezone,omitempty"`
	StoryLimit *int    `json:"story_limit,omitempty"`
}

// NewSettingsStore opens the settings table in the database at dbPath.
func NewSettingsStore(dbPath string) (*SettingsStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SettingsStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (c *SettingsStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (c *SettingsStore) Close() error {
	return c.db.Close()
}

// GetSettings retrieves the stored settings.
func (c *SettingsStore) GetSettings() (*Settings, error) {
	rows, err := c.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := &Settings{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}

		switch key {
		case KeyTimezone:
			tz := value
			settings.Timezone = &tz
		case KeyStoryLimit:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", key, err)
			}
			settings.StoryLimit = &n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	return settings, nil
}

// Set validates and stores one setting.
func (c *SettingsStore) Set(key, value string) error {
	switch key {
	case KeyTimezone:
		if _, err := time.LoadLocation(value); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, value, err)
		}
	case KeyStoryLimit:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: story_limit must be a non-negative integer, got %q", ErrInvalidConfig, value)
		}
	default:
		return fmt.Errorf("%w: unknown setting %q", ErrInvalidConfig, key)
	}

	query := "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)"
	if _, err := c.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to update setting: %w", err)
	}
	return nil
}

// Unset removes a stored setting so the config file value applies again.
func (c *SettingsStore) Unset(key string) error {
	if _, err := c.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove setting: %w", err)
	}
	return nil
}

// Anchor returns the saved show-end instant, if any.
func (c *SettingsStore) Anchor() (time.Time, bool, error) {
	var value string
	err := c.db.QueryRow("SELECT value FROM settings WHERE key = ?", keyAnchor).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query anchor: %w", err)
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse anchor: %w", err)
	}
	return t, true, nil
}

// SetAnchor saves the show-end instant. A zero time removes it.
func (c *SettingsStore) SetAnchor(t time.Time) error {
	if t.IsZero() {
		return c.Unset(keyAnchor)
	}

	query := "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)"
	if _, err := c.db.Exec(query, keyAnchor, t.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save anchor: %w", err)
	}
	return nil
}

// ApplySettings overlays stored settings onto the config. Environment
// overrides still win.
func (c *FileConfig) ApplySettings(s *Settings) error {
	if s == nil {
		return nil
	}
	if s.Timezone != nil {
		c.Timezone = *s.Timezone
	}
	if s.StoryLimit != nil {
		c.Ingest.StoryLimit = *s.StoryLimit
	}
	c.applyEnv()
	return c.Validate()
}
