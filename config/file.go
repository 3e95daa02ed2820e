package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pevans/newsdesk/ingest"
	"github.com/pevans/newsdesk/rundown"
	"github.com/pevans/newsdesk/timecode"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvConfigPath  = "NEWSDESK_CONFIG"
	EnvSourcesDSN  = "NEWSDESK_SOURCES_DSN"
	EnvRundownFile = "NEWSDESK_RUNDOWN_FILE"
	EnvLogLevel    = "NEWSDESK_LOG_LEVEL"
	EnvTimezone    = "NEWSDESK_TIMEZONE"
	EnvStoryLimit  = "NEWSDESK_STORY_LIMIT"
)

// DefaultTimezone is the display zone when none is configured.
const DefaultTimezone = "America/Chicago"

var ErrInvalidConfig = errors.New("invalid configuration")

// StorageConfig locates the feed database and the saved rundown.
type StorageConfig struct {
	SourcesDSN  string `yaml:"sources_dsn" validate:"required"`
	RundownFile string `yaml:"rundown_file" validate:"required"`
}

// IngestConfig tunes feed pulls.
type IngestConfig struct {
	// StoryLimit caps stories taken per feed; 0 takes all of them.
	StoryLimit   int           `yaml:"story_limit" validate:"min=0"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// SegmentConfig holds the values given to newly added segments.
type SegmentConfig struct {
	Duration string `yaml:"duration" validate:"required"`
	Profile  string `yaml:"profile"`
	Style    string `yaml:"style"`
	Tone     string `yaml:"tone"`
	Length   string `yaml:"length"`
}

// CatalogEntry describes one selectable profile, style, tone or length.
type CatalogEntry struct {
	Description string `yaml:"description"`
	Prompt      string `yaml:"prompt"`
}

// Catalog maps a selectable name to its entry.
type Catalog map[string]CatalogEntry

// Has reports whether name is in the catalog.
func (c Catalog) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// FileConfig represents the structure of ~/.newsdesk/config.yaml.
type FileConfig struct {
	Storage  StorageConfig `yaml:"storage"`
	Ingest   IngestConfig  `yaml:"ingest"`
	Timezone string        `yaml:"timezone" validate:"required"`
	Logging  LoggingConfig `yaml:"logging"`
	Segment  SegmentConfig `yaml:"segment"`

	Profiles Catalog `yaml:"profiles"`
	Styles   Catalog `yaml:"styles"`
	Tones    Catalog `yaml:"tones"`
	Lengths  Catalog `yaml:"lengths"`
}

// Dir returns ~/.newsdesk.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".newsdesk"), nil
}

// Path returns the config file location: $NEWSDESK_CONFIG if set, else
// ~/.newsdesk/config.yaml.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Defaults returns the built-in configuration with storage under dir.
func Defaults(dir string) *FileConfig {
	seg := rundown.DefaultSegmentDefaults()
	return &FileConfig{
		Storage: StorageConfig{
			SourcesDSN:  filepath.Join(dir, "sources.db"),
			RundownFile: filepath.Join(dir, "rundown.json"),
		},
		Ingest: IngestConfig{
			StoryLimit:   10,
			FetchTimeout: ingest.DefaultFetchTimeout,
		},
		Timezone: DefaultTimezone,
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Segment: SegmentConfig{
			Duration: seg.Duration,
			Profile:  seg.Profile,
			Style:    seg.Style,
			Tone:     seg.Tone,
			Length:   seg.Length,
		},
		Profiles: Catalog{
			"Default Narrator": {
				Description: "A standard, objective news narrator.",
				Prompt:      "You are an objective news narrator.",
			},
			"Sarcastic Reporter": {
				Description: "A reporter with a cynical and sarcastic tone.",
				Prompt:      "You are a cynical and sarcastic news reporter.",
			},
		},
		Styles: Catalog{
			"Standard":       {Prompt: "Rewrite in a standard, journalistic style."},
			"Conversational": {Prompt: "Rewrite in a conversational, informal style."},
			"Academic":       {Prompt: "Rewrite in a formal, academic style with precise language."},
		},
		Tones: Catalog{
			"Objective": {Prompt: "Maintain a neutral and objective tone."},
			"Humorous":  {Prompt: "Inject humor and wit into the summary."},
			"Serious":   {Prompt: "Maintain a serious and grave tone."},
		},
		Lengths: Catalog{
			"Concise":  {Prompt: "Make the summary very brief (around 50 words)."},
			"Standard": {Prompt: "Make the summary a standard length (around 150 words)."},
			"Detailed": {Prompt: "Provide a detailed summary (around 300 words)."},
		},
	}
}

// Load builds the effective configuration from the file at Path(), which
// honors NEWSDESK_CONFIG.
func Load() (*FileConfig, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadPath(configPath)
}

// LoadPath builds the effective configuration: built-in defaults, then the
// file at configPath if it exists, then environment overrides (including
// ~/.newsdesk/.env). Catalog entries from the file are added to the built-in
// ones. The result is validated.
func LoadPath(configPath string) (*FileConfig, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	cfg := Defaults(dir)

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv exports the variables in ~/.newsdesk/.env that are not already
// set in the environment.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *FileConfig) applyEnv() {
	c.Storage.SourcesDSN = getEnv(EnvSourcesDSN, c.Storage.SourcesDSN)
	c.Storage.RundownFile = getEnv(EnvRundownFile, c.Storage.RundownFile)
	c.Logging.Level = getEnv(EnvLogLevel, c.Logging.Level)
	c.Timezone = getEnv(EnvTimezone, c.Timezone)
	c.Ingest.StoryLimit = getEnvInt(EnvStoryLimit, c.Ingest.StoryLimit)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator reports field errors under their YAML names.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks values that would otherwise fail later.
func (c *FileConfig) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		messages := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			field := strings.TrimPrefix(fe.Namespace(), "FileConfig.")
			if fe.Param() != "" {
				messages = append(messages, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
			} else {
				messages = append(messages, fmt.Sprintf("%s failed %s", field, fe.Tag()))
			}
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(messages, "; "))
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := timecode.ParseDuration(c.Segment.Duration); err != nil {
		return fmt.Errorf("%w: segment.duration: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Location loads the configured display time zone.
func (c *FileConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// SegmentDefaults returns the values new segments start with.
func (c *FileConfig) SegmentDefaults() rundown.SegmentDefaults {
	return rundown.SegmentDefaults{
		Duration: c.Segment.Duration,
		Profile:  c.Segment.Profile,
		Style:    c.Segment.Style,
		Tone:     c.Segment.Tone,
		Length:   c.Segment.Length,
	}
}

// CheckSegmentValue reports an error when value is not a known entry of the
// catalog behind field. Fields without a catalog accept anything.
func (c *FileConfig) CheckSegmentValue(field rundown.Field, value string) error {
	var catalog Catalog
	switch field {
	case rundown.FieldProfile:
		catalog = c.Profiles
	case rundown.FieldStyle:
		catalog = c.Styles
	case rundown.FieldTone:
		catalog = c.Tones
	case rundown.FieldLength:
		catalog = c.Lengths
	default:
		return nil
	}
	if !catalog.Has(value) {
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, field, value)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt is getEnv for integers; unparseable values are ignored.
func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}
