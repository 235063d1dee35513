// Package config loads minitab's YAML configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	DataDir      string `yaml:"data_dir"`      // local records, session token, default log file
	DatabasePath string `yaml:"database_path"` // SQLite database of the account backend
	ExportDir    string `yaml:"export_dir"`    // where "export" writes group files

	Log      LogConfig      `yaml:"log"`
	Describe DescribeConfig `yaml:"describe"`
	Server   ServerConfig   `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level"` // "debug" | "info" | "warn" | "error"
	File   string `yaml:"file"`  // empty => <data_dir>/minitab.log
	Pretty bool   `yaml:"pretty"`
}

type DescribeConfig struct {
	Enabled bool `yaml:"enabled"`
	// Proxy is a URL template with one %s for the escaped page URL.
	// Empty fetches pages directly.
	Proxy       string        `yaml:"proxy"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheSize   int           `yaml:"cache_size"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	RatePerSec  float64       `yaml:"rate_per_sec"` // 0 = unlimited
	Burst       int           `yaml:"burst"`
	Concurrency int           `yaml:"concurrency"` // parallel fetches per imported group

	// Redis replaces the in-memory cache when RedisAddr is set.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultProxy is the CORS proxy the browser front-end has always used.
const DefaultProxy = "https://api.allorigins.win/raw?url=%s"

// Default returns the default configuration.
func Default() Config {
	dir := defaultDir()
	return Config{
		DataDir: dir,
		// DatabasePath stays empty so it follows data_dir.
		ExportDir: defaultExportDir(),
		Log: LogConfig{
			Level: "info",
		},
		Describe: DescribeConfig{
			Enabled:     true,
			Proxy:       DefaultProxy,
			Timeout:     5 * time.Second,
			CacheSize:   1024,
			CacheTTL:    24 * time.Hour,
			Concurrency: 8,
			Burst:       1,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			AllowedOrigins:  []string{"http://localhost:5173"},
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// DefaultPath returns the default config path: ~/.config/minitab/config.yaml
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.yaml")
}

// Load reads config from the YAML file, then applies MINITAB_* overrides.
// A missing file is created with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Non-fatal: run with defaults even if the file cannot be written.
		_ = Save(path, &cfg)
	case err != nil:
		return nil, err
	default:
		// Fields missing from the file keep their defaults.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the YAML file.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir must not be empty")
	}
	if c.Describe.Timeout <= 0 {
		return errors.New("config: describe.timeout must be positive")
	}
	if c.Describe.Proxy != "" && strings.Count(c.Describe.Proxy, "%s") != 1 {
		return errors.New("config: describe.proxy must contain exactly one %s")
	}
	if c.Describe.Concurrency < 1 {
		c.Describe.Concurrency = 1
	}
	return nil
}

// LogFile returns the log destination for the terminal UI.
func (c *Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "minitab.log")
}

func (c *Config) resolve() {
	c.DataDir = expandHome(c.DataDir)
	c.DatabasePath = expandHome(c.DatabasePath)
	c.ExportDir = expandHome(c.ExportDir)
	c.Log.File = expandHome(c.Log.File)
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "minitab.db")
	}
}

func applyEnv(c *Config) {
	c.DataDir = getenv("MINITAB_DATA_DIR", c.DataDir)
	c.DatabasePath = getenv("MINITAB_DATABASE_PATH", c.DatabasePath)
	c.ExportDir = getenv("MINITAB_EXPORT_DIR", c.ExportDir)

	c.Log.Level = getenv("MINITAB_LOG_LEVEL", c.Log.Level)
	c.Log.File = getenv("MINITAB_LOG_FILE", c.Log.File)
	c.Log.Pretty = mustBool("MINITAB_LOG_PRETTY", c.Log.Pretty)

	c.Describe.Enabled = mustBool("MINITAB_DESCRIBE_ENABLED", c.Describe.Enabled)
	if v, ok := os.LookupEnv("MINITAB_DESCRIBE_PROXY"); ok {
		c.Describe.Proxy = v // may be set empty to fetch directly
	}
	c.Describe.Timeout = mustDuration("MINITAB_DESCRIBE_TIMEOUT", c.Describe.Timeout)
	c.Describe.CacheSize = getenvInt("MINITAB_DESCRIBE_CACHE_SIZE", c.Describe.CacheSize)
	c.Describe.CacheTTL = mustDuration("MINITAB_DESCRIBE_CACHE_TTL", c.Describe.CacheTTL)
	c.Describe.Concurrency = getenvInt("MINITAB_DESCRIBE_CONCURRENCY", c.Describe.Concurrency)
	c.Describe.RedisAddr = getenv("MINITAB_REDIS_ADDR", c.Describe.RedisAddr)
	c.Describe.RedisPassword = getenv("MINITAB_REDIS_PASSWORD", c.Describe.RedisPassword)
	c.Describe.RedisDB = getenvInt("MINITAB_REDIS_DB", c.Describe.RedisDB)

	c.Server.ListenAddr = getenv("MINITAB_LISTEN_ADDR", c.Server.ListenAddr)
	if v := os.Getenv("MINITAB_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitAndTrim(v)
	}
	c.Server.ShutdownTimeout = mustDuration("MINITAB_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".minitab")
	}
	return filepath.Join(home, ".config", "minitab")
}

func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
