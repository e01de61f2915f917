package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config is the collector's configuration file.
type Config struct {
	Address       string         `toml:"address"`
	LogMode       string         `toml:"log_mode"`       // "production" or "development"
	ClosedCohorts []string       `toml:"closed_cohorts"` // cohorts whose data is no longer accepted
	MaxBodyBytes  int64          `toml:"max_body_bytes"` // request body cap for the save endpoints
	AllowOrigins  []string       `toml:"allow_origins"`  // extra CORS origins besides browser extensions
	SearchTerms   string         `toml:"search_terms"`   // optional YAML file replacing the built-in snapshot terms
	Database      DatabaseConfig `toml:"database"`
	Server        ServerConfig   `toml:"server"`
	Tracing       TracingConfig  `toml:"tracing"`
}

// DatabaseConfig uses a tagged union pattern: Type decides which fields apply.
type DatabaseConfig struct {
	Type string `toml:"type"` // "sqlite", "postgres" or "mysql"

	// sqlite
	Path string `toml:"path,omitempty"`

	// postgres and mysql
	Host            string `toml:"host,omitempty"`
	Port            int    `toml:"port,omitempty"`
	Name            string `toml:"name,omitempty"`
	CredentialsPath string `toml:"credentials_path,omitempty"`

	MaxOpenConns       int `toml:"max_open_conns,omitempty"`
	PoolRecycleSeconds int `toml:"pool_recycle_seconds,omitempty"`
}

type ServerConfig struct {
	ReadTimeoutSeconds     int `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int `toml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int `toml:"shutdown_timeout_seconds"`
}

type TracingConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

// Credentials is the external database credentials file.
type Credentials struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// Default returns a config that runs out of the box against a local SQLite
// file in the platform data directory.
func Default() *Config {
	return &Config{
		Address:       "127.0.0.1:5000",
		LogMode:       "development",
		ClosedCohorts: []string{"yougov"},
		MaxBodyBytes:  64 << 20,
		Database: DatabaseConfig{
			Type:               DriverSQLite,
			Path:               filepath.Join(DataDir(), "browsetrace.db"),
			PoolRecycleSeconds: 3600,
		},
		Server: ServerConfig{
			ReadTimeoutSeconds:     60,
			WriteTimeoutSeconds:    60,
			ShutdownTimeoutSeconds: 30,
		},
		Tracing: TracingConfig{ServiceName: "browsetrace-server"},
	}
}

// DataDir is the platform-specific application data directory.
func DataDir() string {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDirectory, "Library", "Application Support", "BrowserTrace")
	case "windows":
		return filepath.Join(homeDirectory, "AppData", "Roaming", "BrowserTrace")
	default: // linux and others
		return filepath.Join(homeDirectory, ".local", "share", "BrowserTrace")
	}
}

// Read decodes a Config from r on top of the defaults.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes cfg to w.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads path when given (defaults otherwise), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = ReadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("BROWSETRACE_ADDRESS")); v != "" {
		c.Address = v
	}
	if v := strings.TrimSpace(os.Getenv("BROWSETRACE_DB_PATH")); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		c.LogMode = v
	}
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("config: address is required")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("config: max_body_bytes must be positive")
	}
	switch c.Database.Type {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case DriverPostgres, DriverMySQL:
		if c.Database.Host == "" || c.Database.Name == "" || c.Database.Port <= 0 {
			return fmt.Errorf("config: database.host, database.port and database.name are required for %s", c.Database.Type)
		}
	default:
		return fmt.Errorf("config: unsupported database.type %q", c.Database.Type)
	}
	return nil
}

// ErrNoCredentials is returned by LoadCredentials when the file is missing.
var ErrNoCredentials = errors.New("credentials file not found")

// LoadCredentials reads the JSON credentials file. A missing file returns
// empty credentials together with ErrNoCredentials so the caller can warn
// and carry on.
func LoadCredentials(path string) (Credentials, error) {
	if path == "" {
		return Credentials{}, ErrNoCredentials
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode credentials %s: %w", path, err)
	}
	return creds, nil
}

// Init writes cfg to path, refusing to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
