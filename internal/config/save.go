package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tidwall/sjson"
)

// SettableKeys lists the keys accepted by SetConfigField.
var SettableKeys = []string{
	"api.root",
	"api.timeout",
	"api.retry_max",
	"api.rate_limit",
	"token",
	"redirect_after_delete_all",
	"server.addr",
	"server.db_path",
	"server.public_url",
	"options.data_directory",
	"options.debug",
}

// Save writes the configuration to the global config file.
func Save(cfg *Config) error {
	return SaveToFile(cfg, GlobalConfigPath())
}

// SaveToFile writes the configuration to a specific file path.
func SaveToFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil { //nolint:gosec // Restrictive permissions for security.
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// SetConfigField updates a single field in the global config file using
// JSON path notation.
func SetConfigField(key string, value any) error {
	return SetFileField(GlobalConfigPath(), key, value)
}

// SetFileField updates a single field of the config file at path. Only the
// named field is modified; the rest of the file is kept byte for byte.
func SetFileField(path, key string, value any) error {
	if !slices.Contains(SettableKeys, key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	//nolint:gosec // G304: path is a trusted config location, not user input.
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading config file: %w", err)
		}
		data = []byte("{}")
	}

	newData, err := sjson.SetBytes(data, key, value)
	if err != nil {
		return fmt.Errorf("setting config field %q: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	//nolint:gosec // 0o600 is intentionally restrictive for security.
	if err := os.WriteFile(path, newData, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ParseValue converts a command-line value into the JSON type stored under
// key: numbers for numeric keys, booleans for flags, strings otherwise.
func ParseValue(key, raw string) (any, error) {
	switch key {
	case "api.retry_max":
		var n int
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return n, nil
	case "api.rate_limit":
		var f float64
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, fmt.Errorf("%s must be a number: %w", key, err)
		}
		return f, nil
	case "options.debug":
		var b bool
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("%s must be true or false: %w", key, err)
		}
		return b, nil
	case "api.timeout":
		var d Duration
		if err := d.UnmarshalText([]byte(raw)); err != nil {
			return nil, err
		}
		return d.String(), nil
	}
	return raw, nil
}
