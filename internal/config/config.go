// Package config loads the viewer session settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/penwyp/go-xpdf-session/internal/pagestore"
	"github.com/penwyp/go-xpdf-session/internal/util"
)

// Transport names.
const (
	TransportSocket   = "socket"
	TransportAbstract = "abstract"
)

// Duration is a time.Duration written as a string such as "5s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds every setting of the session layer.
type Config struct {
	SavePageNumbers *bool    `toml:"save_page_numbers"`
	PagesFile       string   `toml:"pages_file"`
	MaxSavedPages   int      `toml:"max_saved_pages"`
	SocketDir       string   `toml:"socket_dir"`
	Transport       string   `toml:"transport"`
	ConnectTimeout  Duration `toml:"connect_timeout"`
	LogLevel        string   `toml:"log_level"`
	LogFormat       string   `toml:"log_format"`
	LogFile         string   `toml:"log_file"`
}

// SavesPageNumbers reports whether the last viewed page should be remembered.
func (c *Config) SavesPageNumbers() bool {
	return c.SavePageNumbers == nil || *c.SavePageNumbers
}

// Dir returns the config directory path.
// Resolution order: $XPDF_CONFIG_DIR > $XDG_CONFIG_HOME/xpdf > ~/.config/xpdf
func Dir() string {
	if dir := os.Getenv("XPDF_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "xpdf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "xpdf-config")
	}
	return filepath.Join(home, ".config", "xpdf")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the built-in settings.
func Default() *Config {
	save := true
	return &Config{
		SavePageNumbers: &save,
		PagesFile:       defaultPagesFile(),
		MaxSavedPages:   pagestore.DefaultCapacity,
		SocketDir:       defaultSocketDir(),
		Transport:       TransportSocket,
		ConnectTimeout:  Duration{5 * time.Second},
		LogLevel:        "info",
		LogFormat:       string(util.FormatText),
		LogFile:         "~/.xpdf/logs/xpdf.log",
	}
}

func defaultPagesFile() string {
	return "~/.xpdf.pages"
}

func defaultSocketDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("xpdf-%d", os.Getuid()))
}

// Load reads the config at path, or at Path() when path is empty. A missing
// default file yields the defaults; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
	}

	cfg := Default()
	if _, err := toml.DecodeFile(util.ExpandPath(path), cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			util.LogDebug("No config file, using defaults", util.F("path", path))
		} else {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.PagesFile = util.ExpandPath(cfg.PagesFile)
	cfg.SocketDir = util.ExpandPath(cfg.SocketDir)
	cfg.LogFile = util.ExpandPath(cfg.LogFile)
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("XPDF_PAGES_FILE"); v != "" {
		c.PagesFile = v
	}
	if v := os.Getenv("XPDF_SOCKET_DIR"); v != "" {
		c.SocketDir = v
	}
}

// Validate fills unset fields with defaults and rejects bad values.
func (c *Config) Validate() error {
	defaults := Default()
	if c.PagesFile == "" {
		c.PagesFile = defaults.PagesFile
	}
	if c.SocketDir == "" {
		c.SocketDir = defaults.SocketDir
	}
	if c.LogFile == "" {
		c.LogFile = defaults.LogFile
	}
	if c.Transport == "" {
		c.Transport = defaults.Transport
	}
	if c.MaxSavedPages == 0 {
		c.MaxSavedPages = defaults.MaxSavedPages
	}
	if c.ConnectTimeout.Duration == 0 {
		c.ConnectTimeout = defaults.ConnectTimeout
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}

	if c.MaxSavedPages < 0 {
		return fmt.Errorf("max_saved_pages must be positive, got %d", c.MaxSavedPages)
	}
	if c.ConnectTimeout.Duration < 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	switch c.Transport {
	case TransportSocket, TransportAbstract:
	default:
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Transport, TransportSocket, TransportAbstract)
	}
	switch util.LogFormat(c.LogFormat) {
	case util.FormatText, util.FormatJSON:
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}
