package config

import (
	"os"
)

// IsFirstRun reports whether chatkeeper has not been set up yet: no global
// config file exists or it carries no owner token.
func IsFirstRun() bool {
	if _, err := os.Stat(GlobalConfigPath()); os.IsNotExist(err) {
		return true
	}

	cfg, err := Load()
	if err != nil {
		return true
	}
	return !hasToken(cfg)
}

func hasToken(cfg *Config) bool {
	_, err := cfg.RequireToken()
	return err == nil
}
