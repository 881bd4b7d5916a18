package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultLogLevel    = "info"
	defaultRefreshCron = "0 0 * * *"

	// DefaultMaxPreviewDates is the preview length used when unset.
	DefaultMaxPreviewDates = recurrence.DefaultMaxDates
	// MaxPreviewDates caps preview length regardless of config or request.
	MaxPreviewDates = 100
)

// ScheduleConfig describes a single named schedule.
type ScheduleConfig struct {
	// ID is a stable identifier used in URLs and ICS UIDs. Derived from
	// Name when empty.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`

	Recurrence recurrence.Definition `yaml:"recurrence" json:"recurrence"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxPreviewDates bounds how many dates a preview contains.
	MaxPreviewDates int `yaml:"max_preview_dates" json:"max_preview_dates"`

	// RefreshCron is a standard 5-field cron spec. A running server re-reads
	// the config file and drops cached previews on this schedule.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Schedules is the list of named schedules served by the API.
	Schedules []ScheduleConfig `yaml:"schedules" json:"schedules"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		LogLevel:        defaultLogLevel,
		MaxPreviewDates: DefaultMaxPreviewDates,
		RefreshCron:     defaultRefreshCron,
		Schedules:       []ScheduleConfig{},
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}

	if c.MaxPreviewDates <= 0 {
		c.MaxPreviewDates = DefaultMaxPreviewDates
	}
	if c.MaxPreviewDates > MaxPreviewDates {
		c.MaxPreviewDates = MaxPreviewDates
	}

	// Unparseable specs fall back to the default rather than failing startup.
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		c.RefreshCron = defaultRefreshCron
	}

	if c.Schedules == nil {
		c.Schedules = []ScheduleConfig{}
	}
	seen := make(map[string]int)
	for i := range c.Schedules {
		s := &c.Schedules[i]
		if s.ID == "" {
			s.ID = slugify(s.Name)
		}
		if s.ID == "" {
			s.ID = fmt.Sprintf("schedule-%d", i+1)
		}
		// Keep IDs unique so URLs stay unambiguous.
		if n := seen[s.ID]; n > 0 {
			seen[s.ID] = n + 1
			s.ID = fmt.Sprintf("%s-%d", s.ID, n+1)
		} else {
			seen[s.ID] = 1
		}
	}
}

// ModelSchedules converts the configured schedules into model.Schedule values.
// A schedule whose dates cannot be parsed is reported by ID.
func (c *Config) ModelSchedules() ([]model.Schedule, error) {
	out := make([]model.Schedule, 0, len(c.Schedules))
	var errs []error
	for _, s := range c.Schedules {
		rc, err := s.Recurrence.Config()
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", s.ID, err))
			continue
		}
		out = append(out, model.Schedule{ID: s.ID, Name: s.Name, Recurrence: rc})
	}
	return out, errors.Join(errs...)
}

// Schedule looks up a configured schedule by ID.
func (c *Config) Schedule(id string) (ScheduleConfig, bool) {
	for _, s := range c.Schedules {
		if s.ID == id {
			return s, true
		}
	}
	return ScheduleConfig{}, false
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// Read parses and normalizes the config file at path without ever writing
// it. A missing file is reported as an error wrapping fs.ErrNotExist.
func Read(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// ReadOrDefault is Read, except that a missing file yields DefaultConfig.
// Commands that only look at the config use it.
func ReadOrDefault(path string) (*Config, error) {
	cfg, err := Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Load is Read for long-running and writing commands: on first run it
// creates path with the default config (0600) and returns that. If the
// default cannot be written the default config is returned with the error.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	cfg = DefaultConfig()
	return cfg, Save(path, cfg)
}

// Save normalizes cfg and replaces path with it. The file is written next to
// its destination and renamed into place, so readers never see a partial
// config; the parent directory is created 0700 and the file ends up 0600.
func Save(path string, cfg *Config) error {
	switch {
	case path == "":
		return errors.New("config path is empty")
	case cfg == nil:
		return errors.New("config is nil")
	}
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".recurcal-config-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, werr := tmp.Write(data)
	if werr == nil {
		werr = tmp.Sync()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return werr
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Save writes c to path; see the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
