// Package debug provides development logging for the chatkeeper CLI.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	logger  = zap.NewNop()
	enabled bool
	logPath string
)

// Enable turns on debug logging to the specified file. Lines are appended
// as JSON records.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{path},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	logger = l
	logPath = path
	enabled = true
	logger.Info("debug session started", zap.String("log_file", path))

	return nil
}

// Disable turns off debug logging and flushes the file.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if !enabled {
		return
	}

	_ = logger.Sync() //nolint:errcheck // Sync fails on some file types; nothing to do about it
	logger = zap.NewNop()
	enabled = false
}

// IsEnabled returns whether debug logging is enabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Logger returns the current logger; a no-op logger while disabled.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Log writes a debug message if logging is enabled.
func Log(format string, args ...any) {
	Logger().Debug(fmt.Sprintf(format, args...))
}

// LogPath returns the path to the log file.
func LogPath() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Event logs a component event.
func Event(component, eventType, details string) {
	Logger().Debug(details,
		zap.String("component", component),
		zap.String("event", eventType),
	)
}

// Error logs an error with context.
func Error(component string, err error, context string) {
	Logger().Error(context,
		zap.String("component", component),
		zap.Error(err),
	)
}
