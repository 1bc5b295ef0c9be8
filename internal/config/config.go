package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lazypower/nanobrain/internal/learn"
)

// Config holds all nanobrain configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Learning     LearningConfig     `mapstructure:"learning" yaml:"learning"`
	Inference    InferenceConfig    `mapstructure:"inference" yaml:"inference"`
	Housekeeping HousekeepingConfig `mapstructure:"housekeeping" yaml:"housekeeping"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Bind   string `mapstructure:"bind" yaml:"bind"`
	Port   int    `mapstructure:"port" yaml:"port"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"` // empty disables privileged routes
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "file" or "sqlite"
	Dir     string `mapstructure:"dir" yaml:"dir"`         // file backend; resolved via store.DefaultDir() when empty
	DBPath  string `mapstructure:"db_path" yaml:"db_path"` // sqlite backend; resolved via store.DefaultDBPath() when empty
}

type LearningConfig struct {
	WordIncrement   float64 `mapstructure:"word_increment" yaml:"word_increment"`
	LetterIncrement float64 `mapstructure:"letter_increment" yaml:"letter_increment"`
	Decay           float64 `mapstructure:"decay" yaml:"decay"`
}

type InferenceConfig struct {
	MaxLength int    `mapstructure:"max_length" yaml:"max_length"`
	Seed      uint64 `mapstructure:"seed" yaml:"seed"` // 0 = unseeded
}

type HousekeepingConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	Schedule   string        `mapstructure:"schedule" yaml:"schedule"` // cron spec
	TempMaxAge time.Duration `mapstructure:"temp_max_age" yaml:"temp_max_age"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "json" or "console"
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8000,
		},
		Store: StoreConfig{
			Backend: "file",
		},
		Learning: LearningConfig{
			WordIncrement:   1.0,
			LetterIncrement: 0.05,
			Decay:           0.997,
		},
		Inference: InferenceConfig{
			MaxLength: 8,
		},
		Housekeeping: HousekeepingConfig{
			Enabled:    true,
			Schedule:   "@every 30s",
			TempMaxAge: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("config: store.backend %q must be file or sqlite", c.Store.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if !learn.ValidDecay(c.Learning.Decay) {
		return fmt.Errorf("config: learning.decay %v must be within [0,1]", c.Learning.Decay)
	}
	if !learn.ValidIncrement(c.Learning.WordIncrement) || !learn.ValidIncrement(c.Learning.LetterIncrement) {
		return errors.New("config: learning increments must be finite and non-negative")
	}
	if c.Housekeeping.Enabled && c.Housekeeping.Schedule == "" {
		return errors.New("config: housekeeping.schedule is required when enabled")
	}
	return nil
}

// DefaultPath returns ~/.nanobrain/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".nanobrain", "config.yaml"), nil
}

// Load reads configuration from path, or when path is empty from
// ./nanobrain.yaml or ~/.nanobrain/config.yaml, then applies environment
// overrides (NANOBRAIN_SERVER_PORT, NANOBRAIN_STORE_DIR, ...). NANO_API_KEY
// is honoured as an alias for server.api_key. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nanobrain")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".nanobrain"))
		}
	}

	v.SetEnvPrefix("NANOBRAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.api_key", "NANOBRAIN_SERVER_API_KEY", "NANO_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.bind", d.Server.Bind)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.db_path", d.Store.DBPath)
	v.SetDefault("learning.word_increment", d.Learning.WordIncrement)
	v.SetDefault("learning.letter_increment", d.Learning.LetterIncrement)
	v.SetDefault("learning.decay", d.Learning.Decay)
	v.SetDefault("inference.max_length", d.Inference.MaxLength)
	v.SetDefault("inference.seed", d.Inference.Seed)
	v.SetDefault("housekeeping.enabled", d.Housekeeping.Enabled)
	v.SetDefault("housekeeping.schedule", d.Housekeeping.Schedule)
	v.SetDefault("housekeeping.temp_max_age", d.Housekeeping.TempMaxAge)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// WriteDefault writes the default configuration as YAML to path. It refuses
// to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
