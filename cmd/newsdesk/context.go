package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pevans/newsdesk/config"
	"github.com/pevans/newsdesk/events"
	"github.com/pevans/newsdesk/logging"
	"github.com/pevans/newsdesk/rundown"
	"github.com/pevans/newsdesk/sources"
	"github.com/pevans/newsdesk/timecode"
	"github.com/rs/zerolog"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	// errOut receives log output; set by the root command.
	errOut io.Writer
	now    func() time.Time

	configOnce sync.Once
	config     *config.FileConfig
	location   *time.Location
	logger     zerolog.Logger
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		errOut:       os.Stderr,
		now:          time.Now,
	}
}

// ensureConfig loads the configuration once, applies settings saved in the
// database, and sets up logging.
func (c *commandContext) ensureConfig() (*config.FileConfig, error) {
	c.configOnce.Do(func() {
		c.configErr = c.loadConfig()
	})
	return c.config, c.configErr
}

func (c *commandContext) loadConfig() error {
	path := ""
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}

	var cfg *config.FileConfig
	var err error
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadPath(path)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.SourcesDSN), 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	settings, err := config.NewSettingsStore(cfg.Storage.SourcesDSN)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}
	defer settings.Close()

	saved, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if err := cfg.ApplySettings(saved); err != nil {
		return err
	}

	if c.logLevelFlag != nil && *c.logLevelFlag != "" {
		cfg.Logging.Level = *c.logLevelFlag
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	c.config = cfg
	c.location = loc
	c.logger = logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: c.errOut,
	})
	return nil
}

func (c *commandContext) withSources(fn func(*sources.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	store, err := sources.NewStore(cfg.Storage.SourcesDSN)
	if err != nil {
		return fmt.Errorf("failed to open feed store: %w", err)
	}
	defer store.Close()

	return fn(store)
}

func (c *commandContext) withSettings(fn func(*config.SettingsStore) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	store, err := config.NewSettingsStore(cfg.Storage.SourcesDSN)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}
	defer store.Close()

	return fn(store)
}

// clock returns the current time in the display zone.
func (c *commandContext) clock() time.Time {
	return c.now().In(c.location)
}

// carryAnchor moves a saved anchor that is more than an hour old to the next
// occurrence of the same clock time, so yesterday's show time means today's.
func (c *commandContext) carryAnchor(anchor time.Time) time.Time {
	now := c.clock()
	if now.Sub(anchor) <= time.Hour {
		return anchor.In(c.location)
	}
	local := anchor.In(c.location)
	tod := timecode.TimeOfDay{Hour: local.Hour(), Minute: local.Minute(), Second: local.Second()}
	return timecode.ResolveClockTime(tod, now)
}

// deskSession is a rundown loaded from disk together with its saved anchor.
type deskSession struct {
	desk     *rundown.Desk
	log      *events.Log
	path     string
	settings *config.SettingsStore
}

// withDesk loads the saved rundown, runs fn against it, and saves the
// rundown and its anchor when fn succeeds and save is true.
func (c *commandContext) withDesk(save bool, fn func(*deskSession) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	unlock, err := lockRundown(cfg.Storage.RundownFile, save)
	if err != nil {
		return err
	}
	defer unlock()

	return c.withSettings(func(settings *config.SettingsStore) error {
		r, err := rundown.LoadFile(cfg.Storage.RundownFile, cfg.SegmentDefaults())
		if errors.Is(err, os.ErrNotExist) {
			r = rundown.New(cfg.SegmentDefaults())
		} else if err != nil {
			return err
		}

		anchor, ok, err := settings.Anchor()
		if err != nil {
			return err
		}
		if ok {
			r.SetAnchor(c.carryAnchor(anchor))
		}

		log := events.NewLog(nil, c.logger)
		scheduler := rundown.NewScheduler(c.now, c.location, log)
		session := &deskSession{
			desk:     rundown.NewDesk(r, scheduler),
			log:      log,
			path:     cfg.Storage.RundownFile,
			settings: settings,
		}

		if err := fn(session); err != nil {
			return err
		}
		if !save {
			return nil
		}
		return session.save()
	})
}

// lockRundown takes the lock file beside the rundown: exclusive for commands
// that save, shared for those that only read.
func lockRundown(path string, exclusive bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create rundown directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	var ok bool
	var err error
	if exclusive {
		ok, err = lock.TryLock()
	} else {
		ok, err = lock.TryRLock()
	}
	if err != nil {
		return nil, fmt.Errorf("acquire rundown lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another newsdesk command is editing the rundown")
	}
	return func() { _ = lock.Unlock() }, nil
}

func (s *deskSession) save() error {
	r := s.desk.Rundown()
	if err := rundown.SaveFile(s.path, r); err != nil {
		return err
	}

	anchor, _ := r.Anchor()
	return s.settings.SetAnchor(anchor)
}
