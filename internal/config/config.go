package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything xrayview needs to reach the scan service.
type Config struct {
	APIURL         string
	MediaURL       string
	LogDir         string
	UploadTimeout  time.Duration
	SearchDebounce time.Duration

	mediaExplicit bool
}

const (
	defaultConfigPath     = "~/.config/xrayview/config.toml"
	defaultLogDir         = "~/.local/share/xrayview"
	defaultAPIURL         = "http://localhost:8000/api"
	defaultUploadTimeout  = 30 * time.Second
	defaultSearchDebounce = 250 * time.Millisecond

	// EnvAPIURL overrides api_url.
	EnvAPIURL = "XRAY_API_URL"
	// EnvMediaURL overrides media_url.
	EnvMediaURL = "XRAY_MEDIA_URL"
	// envLegacyAPIURL is honoured so an existing frontend .env keeps working.
	envLegacyAPIURL = "REACT_APP_API_URL"
)

// Load locates and parses the xrayview config, falling back to defaults when
// missing. Environment variables win over file values.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw struct {
		APIURL         string `toml:"api_url"`
		MediaURL       string `toml:"media_url"`
		LogDir         string `toml:"log_dir"`
		UploadTimeout  string `toml:"upload_timeout"`
		SearchDebounce string `toml:"search_debounce"`
	}

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	cfg := Config{
		APIURL:         firstNonEmpty(os.Getenv(EnvAPIURL), os.Getenv(envLegacyAPIURL), raw.APIURL, defaultAPIURL),
		MediaURL:       firstNonEmpty(os.Getenv(EnvMediaURL), raw.MediaURL),
		LogDir:         mustExpand(firstNonEmpty(raw.LogDir, defaultLogDir)),
		UploadTimeout:  defaultUploadTimeout,
		SearchDebounce: defaultSearchDebounce,
	}

	if v := strings.TrimSpace(raw.UploadTimeout); v != "" {
		d, err := parseDuration("upload_timeout", v)
		if err != nil {
			return Config{}, err
		}
		if d == 0 {
			return Config{}, fmt.Errorf("parse config: upload_timeout must be positive")
		}
		cfg.UploadTimeout = d
	}
	if v := strings.TrimSpace(raw.SearchDebounce); v != "" {
		d, err := parseDuration("search_debounce", v)
		if err != nil {
			return Config{}, err
		}
		cfg.SearchDebounce = d
	}

	cfg.mediaExplicit = cfg.MediaURL != ""
	if err := cfg.SetAPIURL(cfg.APIURL); err != nil {
		return Config{}, err
	}
	cfg.MediaURL = strings.TrimRight(cfg.MediaURL, "/")
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// SetAPIURL replaces the API base URL. Unless media_url was given explicitly
// the media base follows it.
func (c *Config) SetAPIURL(raw string) error {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: want http(s)://host[/path]", raw)
	}
	c.APIURL = trimmed
	if !c.mediaExplicit {
		c.MediaURL = u.Scheme + "://" + u.Host
	}
	return nil
}

// LogPath returns the xrayview log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/xrayview.log")
	}
	return filepath.Join(c.LogDir, "xrayview.log")
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse config: %s must not be negative", key)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ to the home directory and makes path absolute.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
