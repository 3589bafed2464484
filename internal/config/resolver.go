package config

import (
	"fmt"
	"os"
	"strings"
)

// Resolver expands $VAR and ${VAR} references in configuration values.
type Resolver struct {
	lookup func(string) (string, bool)
}

// NewResolver creates a Resolver reading the process environment.
func NewResolver() *Resolver {
	return &Resolver{lookup: os.LookupEnv}
}

// NewResolverWithEnv creates a Resolver reading only the given variables.
func NewResolverWithEnv(env map[string]string) *Resolver {
	return &Resolver{lookup: func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}}
}

// Resolve expands every variable reference in value. A reference to an
// unset variable is an error; values without references are returned as is.
func (r *Resolver) Resolve(value string) (string, error) {
	if !strings.Contains(value, "$") {
		return value, nil
	}

	var missing []string
	resolved := os.Expand(value, func(key string) string {
		v, ok := r.lookup(key)
		if !ok {
			missing = append(missing, key)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("environment variable %s is not set", strings.Join(missing, ", "))
	}
	return resolved, nil
}

func (r *Resolver) resolveConfig(cfg *Config) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"api.root", &cfg.API.Root},
		{"token", &cfg.Token},
		{"server.addr", &cfg.Server.Addr},
		{"server.db_path", &cfg.Server.DBPath},
		{"server.public_url", &cfg.Server.PublicURL},
	}
	for _, f := range fields {
		resolved, err := r.Resolve(*f.value)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", f.name, err)
		}
		*f.value = resolved
	}
	return nil
}
