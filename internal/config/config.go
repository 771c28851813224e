// Package config loads skyplan settings from defaults, an optional YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every tunable used by the CLI and the server
type Config struct {
	DB          string            `mapstructure:"db"`
	Server      ServerConfig      `mapstructure:"server"`
	OpenWeather OpenWeatherConfig `mapstructure:"openweather"`
	Places      PlacesConfig      `mapstructure:"places"`
	Planner     PlannerConfig     `mapstructure:"planner"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type OpenWeatherConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	Records int           `mapstructure:"records"`
}

type PlacesConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	RadiusM    int           `mapstructure:"radius_m"`
	MinRating  float64       `mapstructure:"min_rating"`
	TopK       int           `mapstructure:"top_k"`
	Selection  string        `mapstructure:"selection"`
	Seed       uint64        `mapstructure:"seed"` // 0 picks a random seed
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint64        `mapstructure:"max_retries"`
}

type PlannerConfig struct {
	Days        int    `mapstructure:"days"`
	Concurrency int    `mapstructure:"concurrency"`
	Timezone    string `mapstructure:"timezone"`
}

type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// legacyEnv maps keys to the environment variable names used by earlier
// deployments
var legacyEnv = map[string]string{
	"openweather.api_key": "OPENWEATHER_KEY",
	"places.api_key":      "GOOGLE_PLACES_API_KEY",
	"openai.api_key":      "OPENAI_API_KEY",
}

// Dir returns the per-user configuration directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".skyplan"
	}
	return filepath.Join(home, ".skyplan")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", filepath.Join(Dir(), "skyplan.db"))
	v.SetDefault("server.port", 8080)

	v.SetDefault("openweather.timeout", 10*time.Second)
	v.SetDefault("openweather.records", 24)

	v.SetDefault("places.radius_m", 5000)
	v.SetDefault("places.min_rating", 3.5)
	v.SetDefault("places.top_k", 5)
	v.SetDefault("places.selection", "best")
	v.SetDefault("places.seed", 0)
	v.SetDefault("places.timeout", 5*time.Second)
	v.SetDefault("places.max_retries", 1)

	v.SetDefault("planner.days", 3)
	v.SetDefault("planner.concurrency", 12)
	v.SetDefault("planner.timezone", "UTC")

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 8*time.Second)
}

// Load reads configuration. cfgFile may be empty, in which case
// $HOME/.skyplan/config.yaml is used when present. Missing files are not an
// error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("SKYPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "SKYPLAN_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the planner cannot work with
func (c *Config) Validate() error {
	switch c.Places.Selection {
	case "best", "random":
	default:
		return fmt.Errorf("places.selection must be best or random, got %q", c.Places.Selection)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Planner.Days <= 0 || c.Planner.Days > 3 {
		return fmt.Errorf("planner.days must be between 1 and 3, got %d", c.Planner.Days)
	}
	if c.Planner.Concurrency <= 0 {
		return fmt.Errorf("planner.concurrency must be positive, got %d", c.Planner.Concurrency)
	}
	if c.Places.TopK <= 0 || c.Places.TopK > 5 {
		return fmt.Errorf("places.top_k must be between 1 and 5, got %d", c.Places.TopK)
	}
	if c.Places.RadiusM <= 0 {
		return fmt.Errorf("places.radius_m must be positive, got %d", c.Places.RadiusM)
	}
	return nil
}

// Location resolves planner.timezone, the zone used for day boundaries
func (c *Config) Location() (*time.Location, error) {
	// Local follows the host zone, which would make grouping depend on
	// where the process runs
	if c.Planner.Timezone == "" || c.Planner.Timezone == "Local" {
		return nil, fmt.Errorf("planner.timezone must name an IANA zone, got %q", c.Planner.Timezone)
	}
	loc, err := time.LoadLocation(c.Planner.Timezone)
	if err != nil {
		return nil, fmt.Errorf("planner.timezone %q: %w", c.Planner.Timezone, err)
	}
	return loc, nil
}
