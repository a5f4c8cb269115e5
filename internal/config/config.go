package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalOverlayName is the unversioned overlay file looked up next to the main
// config. It is meant for secrets (ICS URL, SMTP password, API endpoints) so
// they stay out of the committed config.yaml.
const LocalOverlayName = "config.local.yaml"

// CalendarConfig describes the calendar source consumed by the schedule engine.
type CalendarConfig struct {
	// Source is either a local filesystem path or an HTTP(S) URL pointing
	// at an ICS document.
	Source string `yaml:"source" json:"source"`

	// NaivePolicy controls how floating (zone-less) timestamps are
	// interpreted: "local" (assume display timezone, default) or "utc".
	NaivePolicy string `yaml:"naive_policy" json:"naive_policy"`
}

// StudyBlocksConfig holds the working-hours window and gap thresholds.
type StudyBlocksConfig struct {
	MinBlockMinutes  int `yaml:"min_block_minutes" json:"min_block_minutes"`
	DeepBlockMinutes int `yaml:"deep_block_minutes" json:"deep_block_minutes"`
	DayStartHour     int `yaml:"day_start_hour" json:"day_start_hour"`
	DayEndHour       int `yaml:"day_end_hour" json:"day_end_hour"`
}

// NewsConfig controls the Google News RSS fetch.
type NewsConfig struct {
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Limit       int      `yaml:"limit" json:"limit"`
	MaxAgeHours int      `yaml:"max_age_hours" json:"max_age_hours"`
	Lang        string   `yaml:"lang" json:"lang"`
	Region      string   `yaml:"region" json:"region"`
}

// AIConfig controls the optional LLM editorial summary.
type AIConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	Model       string  `yaml:"model" json:"model"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec" json:"timeout_sec"`
}

// SMTPConfig holds SMTP transport settings.
type SMTPConfig struct {
	Host     string `yaml:"host" json:"host"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	// PortSSL is tried first with implicit TLS (465 by default).
	PortSSL int `yaml:"port_ssl" json:"port_ssl"`
	// Port is the STARTTLS fallback port (587 by default).
	Port     int  `yaml:"port" json:"port"`
	StartTLS bool `yaml:"starttls" json:"starttls"`
}

// EmailConfig controls brief delivery.
type EmailConfig struct {
	Enabled bool       `yaml:"enabled" json:"enabled"`
	From    string     `yaml:"from" json:"from"`
	To      []string   `yaml:"to" json:"to"`
	SMTP    SMTPConfig `yaml:"smtp" json:"smtp"`
}

// PublishConfig controls the post-render publish step.
type PublishConfig struct {
	Auto    bool   `yaml:"auto" json:"auto"`
	Script  string `yaml:"script" json:"script"`
	SiteURL string `yaml:"site_url" json:"site_url"`
}

// PathsConfig collects output locations.
type PathsConfig struct {
	ChartsDir  string `yaml:"charts_dir" json:"charts_dir"`
	OutputHTML string `yaml:"output_html" json:"output_html"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as the canonical display zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Schedule is a cron expression for the daily briefing run.
	Schedule string `yaml:"schedule" json:"schedule"`

	// Watchlist is the list of market tickers to include in the brief.
	Watchlist []string `yaml:"watchlist" json:"watchlist"`

	Calendar    CalendarConfig    `yaml:"calendar" json:"calendar"`
	StudyBlocks StudyBlocksConfig `yaml:"study_blocks" json:"study_blocks"`
	News        NewsConfig        `yaml:"news" json:"news"`
	AI          AIConfig          `yaml:"ai" json:"ai"`
	Email       EmailConfig       `yaml:"email" json:"email"`
	Publish     PublishConfig     `yaml:"publish" json:"publish"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "America/Mexico_City",
		Schedule: "0 6 * * *",
		Calendar: CalendarConfig{
			Source:      "data/calendar.ics",
			NaivePolicy: "local",
		},
		StudyBlocks: StudyBlocksConfig{
			MinBlockMinutes:  60,
			DeepBlockMinutes: 90,
			DayStartHour:     8,
			DayEndHour:       21,
		},
		News: NewsConfig{
			Keywords:    []string{"AI", "Machine Learning", "Fintech SaaS"},
			Limit:       6,
			MaxAgeHours: 48,
			Lang:        "en-US",
			Region:      "US",
		},
		AI: AIConfig{
			Enabled:     true,
			Endpoint:    "http://localhost:11434",
			Model:       "qwen2.5:3b-instruct",
			MaxTokens:   320,
			Temperature: 0.15,
			TimeoutSec:  35,
		},
		Email: EmailConfig{
			Enabled: false,
			SMTP: SMTPConfig{
				Host:     "smtp.gmail.com",
				PortSSL:  465,
				Port:     587,
				StartTLS: true,
			},
		},
		Publish: PublishConfig{
			Auto:   false,
			Script: "scripts/publish.sh",
		},
		Paths: PathsConfig{
			ChartsDir:  "docs/charts",
			OutputHTML: "docs/index.html",
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Mexico_City"
	}
	if c.Schedule == "" {
		c.Schedule = "0 6 * * *"
	}
	switch c.Calendar.NaivePolicy {
	case "local", "utc":
		// ok
	default:
		c.Calendar.NaivePolicy = "local"
	}
	if c.StudyBlocks.MinBlockMinutes <= 0 {
		c.StudyBlocks.MinBlockMinutes = 60
	}
	if c.StudyBlocks.DeepBlockMinutes <= 0 {
		c.StudyBlocks.DeepBlockMinutes = 90
	}
	if c.StudyBlocks.DayStartHour <= 0 {
		c.StudyBlocks.DayStartHour = 8
	}
	if c.StudyBlocks.DayEndHour <= 0 || c.StudyBlocks.DayEndHour <= c.StudyBlocks.DayStartHour {
		c.StudyBlocks.DayEndHour = 21
	}
	if c.News.Limit <= 0 {
		c.News.Limit = 6
	}
	if c.News.MaxAgeHours <= 0 {
		c.News.MaxAgeHours = 48
	}
	if c.News.Lang == "" {
		c.News.Lang = "en-US"
	}
	if c.News.Region == "" {
		c.News.Region = "US"
	}
	if c.AI.Endpoint == "" {
		c.AI.Endpoint = "http://localhost:11434"
	}
	if c.AI.Model == "" {
		c.AI.Model = "qwen2.5:3b-instruct"
	}
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = 320
	}
	if c.AI.TimeoutSec <= 0 {
		c.AI.TimeoutSec = 35
	}
	if c.Email.SMTP.Host == "" {
		c.Email.SMTP.Host = "smtp.gmail.com"
	}
	if c.Email.SMTP.PortSSL <= 0 {
		c.Email.SMTP.PortSSL = 465
	}
	if c.Email.SMTP.Port <= 0 {
		c.Email.SMTP.Port = 587
	}
	if c.Publish.Script == "" {
		c.Publish.Script = "scripts/publish.sh"
	}
	if c.Paths.ChartsDir == "" {
		c.Paths.ChartsDir = "docs/charts"
	}
	if c.Paths.OutputHTML == "" {
		c.Paths.OutputHTML = "docs/index.html"
	}
	if c.Watchlist == nil {
		c.Watchlist = []string{}
	}
}

// Load loads configuration from the given YAML path and, if present, applies
// the config.local.yaml overlay from the same directory.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - unmarshal the local overlay on top (present keys win, recursively)
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Optional local overlay next to the main config. Unmarshalling into
	// the already-populated struct overrides exactly the keys the overlay
	// sets, which matches the section-merge behavior we want.
	overlayPath := filepath.Join(filepath.Dir(path), LocalOverlayName)
	if overlay, oerr := os.ReadFile(overlayPath); oerr == nil {
		if err := yaml.Unmarshal(overlay, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".morningbrief-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
