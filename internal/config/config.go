// Package config loads scanner settings from environment variables, an
// optional .env file, and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/rootscan/internal/fetcher/probe"
	"github.com/JakeFAU/rootscan/internal/input"
)

// ErrMissingSetting reports a required setting that was not provided.
var ErrMissingSetting = errors.New("missing required setting")

// DefaultDBPort is used when DB_PORT is unset or not a valid port.
const DefaultDBPort uint16 = 5432

// Config is the fully resolved scanner configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Queue    QueueConfig    `mapstructure:"queue"`
	DB       DBConfig       `mapstructure:"db"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Progress ProgressConfig `mapstructure:"progress"`
	API      APIConfig      `mapstructure:"api"`
}

// HTTPConfig controls the probe client.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
}

// ScannerConfig sizes the worker pool.
type ScannerConfig struct {
	// Workers overrides the CPU-derived pool size when positive.
	Workers      int           `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
}

// QueueConfig controls queue construction.
type QueueConfig struct {
	Dedup string `mapstructure:"dedup"`
}

// DBConfig holds Postgres connection settings. Name, User, Password, Host and
// Port come from DB_NAME, DB_USER, DB_PASS, DB_HOST and DB_PORT.
type DBConfig struct {
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     uint16 `mapstructure:"-"`
	SSLMode  string `mapstructure:"sslmode"`
	// MaxConns of zero sizes the pool to the worker count plus one.
	MaxConns int32 `mapstructure:"max_conns"`
	MinConns int32 `mapstructure:"min_conns"`
}

// LoggingConfig selects the zap encoder and level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ProgressConfig selects the progress renderer.
type ProgressConfig struct {
	// Bar draws a terminal progress bar; false logs progress lines instead.
	Bar bool `mapstructure:"bar"`
}

// APIConfig controls the optional status server.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoadDotEnv loads variables from the given files (".env" when none are
// given) without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds a Config from defaults, the optional YAML file at path, and
// environment variables (ROOTSCAN_ prefix, plus the DB_* variables).
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROOTSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDBEnv(v)

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.DB.Port = parsePort(v.GetString("db.port"))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindDBEnv(v *viper.Viper) {
	for key, env := range map[string]string{
		"db.name":     "DB_NAME",
		"db.user":     "DB_USER",
		"db.password": "DB_PASS",
		"db.host":     "DB_HOST",
		"db.port":     "DB_PORT",
	} {
		// BindEnv only errors when called without a key.
		_ = v.BindEnv(key, env)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", probe.DefaultTimeout)
	v.SetDefault("http.user_agent", probe.DefaultUserAgent)
	v.SetDefault("http.verify_tls", false)
	v.SetDefault("scanner.workers", 0)
	v.SetDefault("scanner.poll_interval", time.Second)
	v.SetDefault("scanner.store_timeout", 10*time.Second)
	v.SetDefault("queue.dedup", string(input.DedupAdjacent))
	v.SetDefault("db.port", DefaultDBPort)
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 0)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("progress.bar", true)
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.port", 9090)
}

// parsePort falls back to DefaultDBPort for anything that is not a port number.
func parsePort(raw string) uint16 {
	p, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 16)
	if err != nil || p == 0 {
		return DefaultDBPort
	}
	return uint16(p)
}

// Validate checks settings that every command needs.
func (c Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be > 0")
	}
	if c.Scanner.Workers < 0 {
		return errors.New("scanner.workers must be >= 0")
	}
	if c.Scanner.PollInterval <= 0 {
		return errors.New("scanner.poll_interval must be > 0")
	}
	if _, err := input.ParseDedupMode(c.Queue.Dedup); err != nil {
		return fmt.Errorf("queue.dedup: %w", err)
	}
	if c.DB.MinConns < 0 || c.DB.MaxConns < 0 {
		return errors.New("db connection limits must be >= 0")
	}
	if c.DB.MaxConns > 0 && c.DB.MinConns > c.DB.MaxConns {
		return errors.New("db.min_conns must not exceed db.max_conns")
	}
	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		return errors.New("api.port must be a valid port when the api is enabled")
	}
	return nil
}

// ValidateDB checks the settings needed to reach Postgres.
func (c Config) ValidateDB() error {
	var missing []string
	for _, f := range []struct{ env, val string }{
		{"DB_NAME", c.DB.Name},
		{"DB_USER", c.DB.User},
		{"DB_PASS", c.DB.Password},
		{"DB_HOST", c.DB.Host},
	} {
		if f.val == "" {
			missing = append(missing, f.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	return nil
}

// DedupMode returns the parsed queue.dedup setting.
func (c Config) DedupMode() input.DedupMode {
	mode, err := input.ParseDedupMode(c.Queue.Dedup)
	if err != nil {
		return input.DedupAdjacent
	}
	return mode
}
