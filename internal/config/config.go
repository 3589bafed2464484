// Package config provides configuration management for the chatkeeper CLI.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const appName = "chatkeeper"

// Defaults applied to unset fields.
const (
	DefaultAPIRoot    = "http://localhost:8080"
	DefaultTimeout    = 30 * time.Second
	DefaultRetryMax   = 3
	DefaultServerAddr = ":8080"
	DefaultRedirect   = "/"
	dbFileName        = "chatkeeper.db"
)

// ErrMissingToken is returned by RequireToken when no owner token is set.
var ErrMissingToken = errors.New("no owner token configured: run 'chatkeeper config set token <token>'")

// Duration is a time.Duration written as "30s" in files and env vars.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// API configures the remote session gateway.
type API struct {
	Root      string   `json:"root,omitempty" validate:"required,url"`
	Timeout   Duration `json:"timeout,omitempty" validate:"gte=0"`
	RetryMax  int      `json:"retry_max,omitempty" validate:"gte=0,lte=10"`
	RateLimit float64  `json:"rate_limit,omitempty" validate:"gte=0"`
}

// Server configures the reference session store started by 'serve'.
type Server struct {
	Addr      string `json:"addr,omitempty" validate:"required"`
	DBPath    string `json:"db_path,omitempty" validate:"required"`
	PublicURL string `json:"public_url,omitempty" validate:"omitempty,url"`
}

// Options holds optional configuration settings.
//
//nolint:govet // Field order is intentional for JSON readability.
type Options struct {
	DataDir string `json:"data_directory,omitempty"`
	Debug   bool   `json:"debug,omitempty"`
}

// Config is the top-level configuration structure.
type Config struct {
	API                    API      `json:"api"`
	Token                  string   `json:"token,omitempty"`
	RedirectAfterDeleteAll string   `json:"redirect_after_delete_all,omitempty"`
	Server                 Server   `json:"server"`
	Options                *Options `json:"options,omitempty"`
}

// NewConfig creates an empty Config.
func NewConfig() *Config {
	return &Config{
		Options: &Options{},
	}
}

// RequireToken returns the owner token, or ErrMissingToken.
func (c *Config) RequireToken() (string, error) {
	if c.Token == "" {
		return "", ErrMissingToken
	}
	return c.Token, nil
}

// Timeout returns the gateway request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.Timeout)
}

// DataDir returns the data directory path from configuration.
func (c *Config) DataDir() string {
	if c.Options != nil && c.Options.DataDir != "" {
		return c.Options.DataDir
	}
	return filepath.Join(xdg.DataHome, appName)
}

// DebugLogPath returns where --debug writes its log.
func (c *Config) DebugLogPath() string {
	return filepath.Join(c.DataDir(), "debug.log")
}

// GlobalConfigPath returns the path to the global configuration file.
func GlobalConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}
