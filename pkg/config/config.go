// Package config loads the fleetnotify settings: a YAML file, then
// FLEETNOTIFY_* environment overrides, then command-line flags.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/session"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DirName  = "fleetnotify"
	Filename = "config.yaml"

	EnvBaseURL = "FLEETNOTIFY_BASE_URL"
	EnvToken   = "FLEETNOTIFY_TOKEN"
	EnvMode    = "FLEETNOTIFY_MODE"
)

type Config struct {
	BaseURL string `yaml:"base_url"`
	// Token is normally supplied through the environment or the session
	// store; a token in the file is accepted for unattended hosts.
	Token   string `yaml:"token,omitempty"`
	Mode    string `yaml:"mode"`

	AutoFallback        bool          `yaml:"auto_fallback"`
	ReconnectAttempts   int           `yaml:"reconnect_attempts"`
	ReconnectDelay      time.Duration `yaml:"reconnect_delay"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
	HealthInterval      time.Duration `yaml:"health_interval"`
	AutoRefreshInterval time.Duration `yaml:"auto_refresh_interval"`

	Session Session `yaml:"session"`
	Sound   Sound   `yaml:"sound"`
}

type Session struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

type Sound struct {
	Enabled bool   `yaml:"enabled"`
	// Player is the command used to play the chime; empty picks the
	// first of paplay, aplay, afplay found on PATH.
	Player  string `yaml:"player"`
}

func Default() Config {
	return Config{
		Mode:                string(transport.Broker),
		AutoFallback:        true,
		ReconnectAttempts:   3,
		ReconnectDelay:      5 * time.Second,
		HeartbeatInterval:   30 * time.Second,
		HealthInterval:      10 * time.Second,
		AutoRefreshInterval: time.Minute,
		Session: Session{
			Backend: session.BackendFile,
			Dir:     session.DefaultDir(),
		},
		Sound: Sound{Enabled: true},
	}
}

// DefaultPath is ~/.config/fleetnotify/config.yaml (or the platform
// equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, DirName, Filename)
}

// Load reads path over the defaults. A missing file is only an error
// when required is set, i.e. the path was named explicitly.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides the connection settings from the environment.
// getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		c.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvMode)); v != "" {
		c.Mode = v
	}
}

func (c Config) TransportMode() (transport.Mode, error) {
	return transport.ParseMode(c.Mode)
}

func (c Config) Validate() error {
	if _, err := c.TransportMode(); err != nil {
		return err
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return errors.Wrap(err, "base_url")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.Errorf("base_url: unsupported scheme %q", u.Scheme)
		}
		if u.Host == "" {
			return errors.New("base_url: missing host")
		}
	}
	if c.ReconnectAttempts < 0 {
		return errors.New("reconnect_attempts must not be negative")
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"reconnect_delay", c.ReconnectDelay},
		{"heartbeat_interval", c.HeartbeatInterval},
		{"health_interval", c.HealthInterval},
		{"auto_refresh_interval", c.AutoRefreshInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return errors.Errorf("%s must be positive", d.name)
		}
	}
	switch c.Session.Backend {
	case session.BackendFile, session.BackendSQLite, session.BackendMemory:
	default:
		return errors.Wrapf(session.ErrUnknownBackend, "%q", c.Session.Backend)
	}
	return nil
}
