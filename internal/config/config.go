// Package config holds the layered pitchmetrics configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/pitch"
)

// EnvPrefix prefixes every environment override, e.g. PITCHMETRICS_FPS.
const EnvPrefix = "PITCHMETRICS_"

// Config contains process configuration.
type Config struct {
	DBPath   string `koanf:"db_path"`
	LogLevel string `koanf:"log_level"`

	PitchLength float64 `koanf:"pitch_length"`
	PitchWidth  float64 `koanf:"pitch_width"`
	BucketsX    int     `koanf:"buckets_x"`
	BucketsY    int     `koanf:"buckets_y"`

	// FPS is the number of ball frames per non-static event.
	FPS int `koanf:"fps"`
	// Seed drives the duel jitter; 0 seeds from the clock.
	Seed int64 `koanf:"seed"`

	PreSec    float64 `koanf:"pre_sec"`
	PostSec   float64 `koanf:"post_sec"`
	MaxGapSec float64 `koanf:"max_gap_sec"`

	// ShotThreshold is the shot-decision probability below which goals are
	// treated as outliers.
	ShotThreshold float64 `koanf:"shot_threshold"`

	// FetchToken authenticates downloads of remote event exports.
	FetchToken      string `koanf:"fetch_token"`
	FetchTimeoutSec int    `koanf:"fetch_timeout_sec"`
}

// New returns the defaults.
func New() *Config {
	p := pitch.Default()
	return &Config{
		DBPath:        filepath.Join(userHome(), ".pitchmetrics", "metrics.db"),
		LogLevel:      "info",
		PitchLength:   p.Length,
		PitchWidth:    p.Width,
		BucketsX:      24,
		BucketsY:      17,
		FPS:           25,
		PreSec:        10,
		PostSec:       2,
		MaxGapSec:     4,
		ShotThreshold:   0.1,
		FetchTimeoutSec: 60,
	}
}

// Load builds a Config by layering defaults, an optional YAML file and env
// vars, lowest precedence first. path may be empty, in which case
// PITCHMETRICS_CONFIG is consulted.
func Load(path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// PITCHMETRICS_BUCKETS_X -> buckets_x
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no command can work with.
func (c *Config) Validate() error {
	if err := c.Pitch().Validate(); err != nil {
		return err
	}
	switch {
	case c.BucketsX < 1 || c.BucketsY < 1:
		return fmt.Errorf("%w: bucket counts must be positive, got %dx%d", model.ErrInvalidConfig, c.BucketsX, c.BucketsY)
	case c.FPS < 2:
		return fmt.Errorf("%w: fps must be at least 2, got %d", model.ErrInvalidConfig, c.FPS)
	case c.PreSec < 0 || c.PostSec < 0 || c.MaxGapSec < 0:
		return fmt.Errorf("%w: phase offsets must be non-negative", model.ErrInvalidConfig)
	case c.ShotThreshold < 0 || c.ShotThreshold > 1:
		return fmt.Errorf("%w: shot_threshold must be in [0,1], got %g", model.ErrInvalidConfig, c.ShotThreshold)
	case c.FetchTimeoutSec < 1:
		return fmt.Errorf("%w: fetch_timeout_sec must be positive", model.ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", model.ErrInvalidConfig)
	}
	return nil
}

// Pitch returns the configured pitch dimensions.
func (c *Config) Pitch() pitch.Pitch {
	return pitch.Pitch{Length: c.PitchLength, Width: c.PitchWidth}
}

// Grid builds the configured bucket grid.
func (c *Config) Grid() (*pitch.Grid, error) {
	return pitch.NewGrid(c.Pitch(), c.BucketsX, c.BucketsY)
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
