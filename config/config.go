// Package config loads conductor settings from defaults, optional config
// file, .env file and CONDUCTOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables.
const EnvPrefix = "CONDUCTOR"

// DefaultURI is played when no valid uri is provided.
const DefaultURI = "https://gstreamer.freedesktop.org/data/media/sintel_trailer-480p.webm"

// Config holds all settings.
type Config struct {
	Debug          bool          `mapstructure:"debug"`
	LogFormat      string        `mapstructure:"log_format"`
	URI            string        `mapstructure:"uri"`
	PipelineName   string        `mapstructure:"pipeline_name"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	SeekThreshold  time.Duration `mapstructure:"seek_threshold"`
	SeekTarget     time.Duration `mapstructure:"seek_target"`
	SwapInterval   time.Duration `mapstructure:"swap_interval"`
	PatternModulus int           `mapstructure:"pattern_modulus"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
}

var defaults = map[string]interface{}{
	"debug":           false,
	"log_format":      "text",
	"uri":             DefaultURI,
	"pipeline_name":   "test-pipeline",
	"poll_interval":   100 * time.Millisecond,
	"seek_threshold":  10 * time.Second,
	"seek_target":     30 * time.Second,
	"swap_interval":   time.Second,
	"pattern_modulus": 26,
	"metrics_addr":    "",
}

// Load reads configuration. Path is optional; if it's empty only defaults,
// .env and environment are used.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks that intervals and modulus are usable.
func (c Config) Validate() error {
	var problems []string
	if c.PollInterval <= 0 {
		problems = append(problems, "poll_interval must be positive")
	}
	if c.SwapInterval <= 0 {
		problems = append(problems, "swap_interval must be positive")
	}
	if c.PatternModulus <= 0 {
		problems = append(problems, "pattern_modulus must be positive")
	}
	if c.SeekThreshold < 0 || c.SeekTarget < 0 {
		problems = append(problems, "seek_threshold and seek_target must not be negative")
	}
	if c.PipelineName == "" {
		problems = append(problems, "pipeline_name is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
