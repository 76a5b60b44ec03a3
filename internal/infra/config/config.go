// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Control  ControlConfig           `yaml:"control"`
	Catalog  CatalogConfig           `yaml:"catalog"`
	Spotify  SpotifyConfig           `yaml:"spotify"`
	Playback PlaybackConfig          `yaml:"playback"`
	Engine   EngineConfig            `yaml:"engine"`
	Storage  StorageConfig           `yaml:"storage"`
	Filters  map[string]FilterConfig `yaml:"filters"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// ControlConfig represents control API configuration.
// An empty token disables authentication.
type ControlConfig struct {
	Token string `yaml:"token"`
}

// CatalogConfig represents catalog configuration.
type CatalogConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single catalog provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=saavn spotify"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// SpotifyConfig represents Spotify API configuration.
// Credentials are only required when a spotify provider is configured.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// FilterConfig represents a queue admission filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	PollIntervalMs   int    `yaml:"poll_interval_ms" default:"1000" validate:"gte=100,lte=10000"`
	EndToleranceMs   int    `yaml:"end_tolerance_ms" default:"500" validate:"gte=0,lte=5000"`
	PreferredQuality string `yaml:"preferred_quality" default:"320kbps"`
}

// PollInterval returns the auto-advance poll interval.
func (p PlaybackConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

// EndTolerance returns the end-of-track tolerance.
func (p PlaybackConfig) EndTolerance() time.Duration {
	return time.Duration(p.EndToleranceMs) * time.Millisecond
}

// EngineConfig represents audio engine configuration.
type EngineConfig struct {
	Type string    `yaml:"type" default:"mpd" validate:"oneof=mpd speaker"`
	MPD  MPDConfig `yaml:"mpd"`
}

// MPDConfig represents Music Player Daemon connection configuration.
type MPDConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6600" validate:"gte=1,lte=65535"`
	Password string `yaml:"password"`
}

// Addr returns the host:port address of the daemon.
func (m MPDConfig) Addr() string {
	return m.Host + ":" + strconv.Itoa(m.Port)
}

// StorageConfig represents persistence configuration.
type StorageConfig struct {
	Path     string `yaml:"path" default:"tunebox.db"`
	QueueKey string `yaml:"queue_key" default:"MUSIC_QUEUE"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv("MPD_PASSWORD"); v != "" {
		c.Engine.MPD.Password = v
	}
	if v := os.Getenv("SAAVN_BASE_URL"); v != "" {
		for i := range c.Catalog.Providers {
			if c.Catalog.Providers[i].Type == "saavn" {
				if c.Catalog.Providers[i].Settings == nil {
					c.Catalog.Providers[i].Settings = map[string]any{}
				}
				c.Catalog.Providers[i].Settings["base_url"] = v
				break
			}
		}
	}
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// HasProvider reports whether a catalog provider of the given type is configured.
func (c *Config) HasProvider(providerType string) bool {
	for _, p := range c.Catalog.Providers {
		if p.Type == providerType {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.HasProvider("spotify") {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify provider requires client_id, client_secret and refresh_token")
		}
	}

	return nil
}
