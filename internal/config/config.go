package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvGitHubToken is the credential required for queue processing.
const EnvGitHubToken = "GITHUB_API_TOKEN"

// EnvGitHubAPIURL overrides github.api_url (GitHub Enterprise installs).
const EnvGitHubAPIURL = "MERGEQ_GITHUB_API_URL"

// Queue controls queue capacity and the processing schedule.
type Queue struct {
	Limit             int `toml:"limit"`
	IntervalInMinutes int `toml:"interval_in_minutes"`
}

// Merger overrides the squash commit title and message. Empty values leave
// GitHub's defaults in place.
type Merger struct {
	Title   string `toml:"title,omitempty"`
	Message string `toml:"message,omitempty"`
}

// Notification configures the desktop notification for one action.
type Notification struct {
	Enabled bool   `toml:"enabled"`
	Title   string `toml:"title"`
	Message string `toml:"message,omitempty"`
	Icon    string `toml:"icon,omitempty"`
}

// Notifier holds per-action notification settings. A nil section is the
// same as a disabled one.
type Notifier struct {
	Pop    *Notification `toml:"pop,omitempty"`
	Merge  *Notification `toml:"merge,omitempty"`
	Update *Notification `toml:"update,omitempty"`
}

// GitHub contains remote API settings. The token itself is never stored in
// the file; it is read from GITHUB_API_TOKEN.
type GitHub struct {
	APIURL            string  `toml:"api_url"`
	RequestTimeout    int     `toml:"request_timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for mergeq.
type Config struct {
	Queue    Queue    `toml:"queue"`
	Merger   Merger   `toml:"merger"`
	Notifier Notifier `toml:"notifier"`
	GitHub   GitHub   `toml:"github"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigRelativePath)
}

// Load locates, parses, and validates a configuration file. A missing file
// yields the defaults with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Store writes cfg as TOML to path, creating parent directories.
func Store(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("store config: config is nil")
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Marshal renders cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	c.Merger.Title = strings.TrimSpace(c.Merger.Title)
	c.Merger.Message = strings.TrimSpace(c.Merger.Message)

	if value, ok := os.LookupEnv(EnvGitHubAPIURL); ok && strings.TrimSpace(value) != "" {
		c.GitHub.APIURL = value
	}
	c.GitHub.APIURL = strings.TrimRight(strings.TrimSpace(c.GitHub.APIURL), "/")
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = defaultGitHubAPIURL
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if strings.TrimSpace(c.Logging.File) != "" {
		file, err := expandPath(c.Logging.File)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = file
	}
	return nil
}

// Interval returns the processing schedule as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Queue.IntervalInMinutes) * time.Minute
}

// RequestTimeout returns the per-request GitHub timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.GitHub.RequestTimeout) * time.Second
}

// GitHubToken reads the processing credential from the environment.
func GitHubToken() (string, bool) {
	token := strings.TrimSpace(os.Getenv(EnvGitHubToken))
	return token, token != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
