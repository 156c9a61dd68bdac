// Package config loads CLI settings from an optional YAML file and
// LIPSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	lipsync "github.com/ieee0824/lipsync-go"
	"github.com/ieee0824/lipsync-go/blend"
	"github.com/ieee0824/lipsync-go/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. LIPSYNC_ENGINE_SILENCE_RMS.
const EnvPrefix = "LIPSYNC"

// Config is the full CLI configuration.
type Config struct {
	Engine   lipsync.EngineConfig `mapstructure:"engine"`
	Log      logging.Config       `mapstructure:"log"`
	Profile  string               `mapstructure:"profile"`  // default profile path
	FPS      float64              `mapstructure:"fps"`      // frame rate of the run command
	Bindings []blend.Entry        `mapstructure:"bindings"` // slot table used by run
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Engine: lipsync.DefaultEngineConfig(),
		Log:    logging.DefaultConfig(),
		FPS:    60,
	}
}

// Load reads path, or ./lipsync.yaml when path is empty and that file
// exists, then applies environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("lipsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return unmarshal(v)
}

// Read parses YAML from r, then applies environment overrides.
func Read(r io.Reader) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so that environment variables are seen
// even when the file does not mention them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("engine.input_sample_rate", d.Engine.InputSampleRate)
	v.SetDefault("engine.silence_rms", d.Engine.SilenceRMS)
	v.SetDefault("engine.min_volume_db", d.Engine.MinVolumeDB)
	v.SetDefault("engine.max_volume_db", d.Engine.MaxVolumeDB)
	v.SetDefault("engine.smoothing_tau", d.Engine.SmoothingTau)
	v.SetDefault("engine.apply_epsilon", d.Engine.ApplyEpsilon)
	v.SetDefault("engine.transition_hz", d.Engine.TransitionHz)
	v.SetDefault("engine.normalize_scores", d.Engine.NormalizeScores)
	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("profile", d.Profile)
	v.SetDefault("fps", d.FPS)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no engine could run with.
func (c *Config) Validate() error {
	switch {
	case c.Engine.InputSampleRate <= 0:
		return fmt.Errorf("config: engine.input_sample_rate must be positive, got %d", c.Engine.InputSampleRate)
	case c.Engine.MaxVolumeDB < c.Engine.MinVolumeDB:
		return fmt.Errorf("config: engine.max_volume_db %.1f below min_volume_db %.1f",
			c.Engine.MaxVolumeDB, c.Engine.MinVolumeDB)
	case c.FPS <= 0:
		return fmt.Errorf("config: fps must be positive, got %g", c.FPS)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
