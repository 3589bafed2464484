package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	configFileName = "chatkeeper.json"
	envPrefix      = "CHATKEEPER_"
	dotEnvFile     = ".env"
)

// envOverrides holds CHATKEEPER_* variables. Unset variables stay nil and
// leave the file value alone.
type envOverrides struct {
	APIRoot    *string   `env:"API_ROOT"`
	Timeout    *Duration `env:"API_TIMEOUT"`
	RetryMax   *int      `env:"API_RETRY_MAX"`
	RateLimit  *float64  `env:"API_RATE_LIMIT"`
	Token      *string   `env:"TOKEN"`
	Redirect   *string   `env:"REDIRECT_AFTER_DELETE_ALL"`
	ServerAddr *string   `env:"SERVER_ADDR"`
	DBPath     *string   `env:"SERVER_DB_PATH"`
	PublicURL  *string   `env:"SERVER_PUBLIC_URL"`
	DataDir    *string   `env:"DATA_DIRECTORY"`
	Debug      *bool     `env:"DEBUG"`
}

// Load finds and loads configuration from standard locations.
// It merges global config with project config (project takes precedence),
// then applies .env, CHATKEEPER_* overrides, variable references and defaults.
func Load() (*Config, error) {
	cfg := NewConfig()
	if err := loadFile(GlobalConfigPath(), cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading global config: %w", err)
	}

	if projectPath := findProjectConfig(); projectPath != "" {
		projectCfg := NewConfig()
		if err := loadFile(projectPath, projectCfg); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
		mergeConfig(cfg, projectCfg)
	}

	return finish(cfg)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := NewResolver().resolveConfig(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	//nolint:gosec // G304: Path is from trusted config locations, not user input.
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads .env from the working directory. Variables already set
// in the environment win.
func loadDotEnv() error {
	err := godotenv.Load(dotEnvFile)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", dotEnvFile, err)
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	setIf(&cfg.API.Root, o.APIRoot)
	setIf(&cfg.API.Timeout, o.Timeout)
	setIf(&cfg.API.RetryMax, o.RetryMax)
	setIf(&cfg.API.RateLimit, o.RateLimit)
	setIf(&cfg.Token, o.Token)
	setIf(&cfg.RedirectAfterDeleteAll, o.Redirect)
	setIf(&cfg.Server.Addr, o.ServerAddr)
	setIf(&cfg.Server.DBPath, o.DBPath)
	setIf(&cfg.Server.PublicURL, o.PublicURL)
	if cfg.Options == nil {
		cfg.Options = &Options{}
	}
	setIf(&cfg.Options.DataDir, o.DataDir)
	setIf(&cfg.Options.Debug, o.Debug)
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// ProjectConfigPath returns the project config file found by walking up
// from the working directory, or "" when there is none.
func ProjectConfigPath() string {
	return findProjectConfig()
}

func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		hiddenPath := filepath.Join(dir, "."+configFileName)
		if _, err := os.Stat(hiddenPath); err == nil {
			return hiddenPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func mergeConfig(dst, src *Config) {
	mergeString(&dst.API.Root, src.API.Root)
	if src.API.Timeout != 0 {
		dst.API.Timeout = src.API.Timeout
	}
	if src.API.RetryMax != 0 {
		dst.API.RetryMax = src.API.RetryMax
	}
	if src.API.RateLimit != 0 {
		dst.API.RateLimit = src.API.RateLimit
	}
	mergeString(&dst.Token, src.Token)
	mergeString(&dst.RedirectAfterDeleteAll, src.RedirectAfterDeleteAll)
	mergeString(&dst.Server.Addr, src.Server.Addr)
	mergeString(&dst.Server.DBPath, src.Server.DBPath)
	mergeString(&dst.Server.PublicURL, src.Server.PublicURL)

	if src.Options != nil {
		if dst.Options == nil {
			dst.Options = &Options{}
		}
		mergeString(&dst.Options.DataDir, src.Options.DataDir)
		if src.Options.Debug {
			dst.Options.Debug = true
		}
	}
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	cfg := NewConfig()
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Options == nil {
		cfg.Options = &Options{}
	}
	if cfg.Options.DataDir == "" {
		cfg.Options.DataDir = filepath.Join(xdg.DataHome, appName)
	}
	if cfg.API.Root == "" {
		cfg.API.Root = DefaultAPIRoot
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = Duration(DefaultTimeout)
	}
	if cfg.API.RetryMax == 0 {
		cfg.API.RetryMax = DefaultRetryMax
	}
	if cfg.RedirectAfterDeleteAll == "" {
		cfg.RedirectAfterDeleteAll = DefaultRedirect
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = filepath.Join(cfg.Options.DataDir, dbFileName)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks cfg against the field constraints.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", field, fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
