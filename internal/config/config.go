package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/sqlextract/internal/catalog"
)

var ErrUnknownConnection = errors.New("no saved connection with that name")

// Config holds all application configuration.
type Config struct {
	Theme       string            `yaml:"theme"`
	Extract     ExtractConfig     `yaml:"extract"`
	Log         LogConfig         `yaml:"log"`
	History     HistoryConfig     `yaml:"history"`
	Connections []SavedConnection `yaml:"connections"`
}

// ExtractConfig holds the defaults for an extraction run.
type ExtractConfig struct {
	Separator             string `yaml:"separator"`
	Types                 string `yaml:"types"`
	Directory             string `yaml:"directory"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
}

// LogConfig controls the JSON Lines event log.
type LogConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SavedConnection holds parameters for a saved database connection.
type SavedConnection struct {
	Name     string `yaml:"name"`
	Adapter  string `yaml:"adapter"`
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
	File     string `yaml:"file,omitempty"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Theme: "default",
		Extract: ExtractConfig{
			Separator:             "_",
			Types:                 "all",
			Directory:             "./Scripts",
			ConnectTimeoutSeconds: 10,
		},
		Log: LogConfig{
			MaxSizeMB: 10,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// ConfigDir returns the sqlextract configuration directory, typically
// ~/.config/sqlextract/.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "sqlextract"), nil
}

// DefaultPath returns ConfigDir()/config.yaml.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads a Config from the YAML file at path. If the file does not exist,
// it returns DefaultConfig without error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from DefaultPath.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the Config to the YAML file at path, creating any necessary
// parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks the extraction defaults.
func (c *Config) Validate() error {
	if _, err := ParseSeparator(c.Extract.Separator); err != nil {
		return err
	}
	if _, err := catalog.ParseSet(c.Extract.Types); err != nil {
		return fmt.Errorf("extract.types: %w", err)
	}
	if c.Extract.Directory == "" {
		return errors.New("extract.directory must not be empty")
	}
	if c.Extract.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("extract.connect_timeout_seconds must be positive, got %d", c.Extract.ConnectTimeoutSeconds)
	}
	return nil
}

// ConnectTimeout returns the connectivity probe timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Extract.ConnectTimeoutSeconds) * time.Second
}

// LogPath returns the event log path, defaulting to ConfigDir()/events.jsonl.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events.jsonl"), nil
}

// Connection returns the saved connection called name.
func (c *Config) Connection(name string) (*SavedConnection, error) {
	for i := range c.Connections {
		if strings.EqualFold(c.Connections[i].Name, name) {
			return &c.Connections[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
}

// ParseSeparator returns the single character of s. s must be valid UTF-8.
func ParseSeparator(s string) (rune, error) {
	if !utf8.ValidString(s) {
		return 0, fmt.Errorf("separator is not valid UTF-8: %q", s)
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("separator must be exactly one character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// BuildDSN constructs a connection string from the individual fields of a
// SavedConnection. If DSN is already set, it is returned as-is. File-based
// adapters (sqlite, duckdb) use the File field; network adapters get a URL
// in the form their driver accepts.
func (sc *SavedConnection) BuildDSN() string {
	if sc.DSN != "" {
		return sc.DSN
	}

	adapter := strings.ToLower(sc.Adapter)
	if adapter == "sqlite" || adapter == "duckdb" {
		return sc.File
	}

	host := sc.Host
	if host == "" {
		host = "localhost"
	}
	if sc.Port > 0 {
		host = net.JoinHostPort(host, strconv.Itoa(sc.Port))
	}

	u := url.URL{Scheme: adapter, Host: host}
	if sc.User != "" {
		if sc.Password != "" {
			u.User = url.UserPassword(sc.User, sc.Password)
		} else {
			u.User = url.User(sc.User)
		}
	}

	if sc.Database != "" {
		if adapter == "sqlserver" {
			u.RawQuery = url.Values{"database": {sc.Database}}.Encode()
		} else {
			u.Path = "/" + sc.Database
		}
	}
	return u.String()
}

// DisplayString returns a human-readable representation of the connection
// without credentials, formatted as "adapter://host:port/database" for network
// adapters or "adapter://file" for file-based adapters.
func (sc *SavedConnection) DisplayString() string {
	adapter := strings.ToLower(sc.Adapter)
	if adapter == "sqlite" || adapter == "duckdb" {
		file := sc.File
		if file == "" {
			file = sc.DSN
		}
		return fmt.Sprintf("%s://%s", sc.Adapter, file)
	}

	host := sc.Host
	if host == "" {
		host = "localhost"
	}

	location := host
	if sc.Port > 0 {
		location = fmt.Sprintf("%s:%d", host, sc.Port)
	}

	if sc.Database != "" {
		return fmt.Sprintf("%s://%s/%s", sc.Adapter, location, sc.Database)
	}
	return fmt.Sprintf("%s://%s", sc.Adapter, location)
}
