package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFileField(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, configFileName, `{"token": "$CHAT_TOKEN", "api": {"root": "http://a:1"}}`)
	t.Setenv("CHAT_TOKEN", "secret")

	require.NoError(t, SetFileField(path, "api.retry_max", 5))
	require.NoError(t, SetFileField(path, "api.timeout", "10s"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// The reference is left unresolved on disk.
	assert.Contains(t, string(data), `"token": "$CHAT_TOKEN"`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.API.RetryMax)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, "http://a:1", cfg.API.Root)
	assert.Equal(t, "secret", cfg.Token)
}

func TestSetFileField_CreatesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", configFileName)

	require.NoError(t, SetFileField(path, "token", "tok1"))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tok1", cfg.Token)
}

func TestSetFileField_UnknownKey(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, configFileName)

	err := SetFileField(path, "api.password", "x")
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestSaveToFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out", configFileName)

	cfg := NewConfig()
	cfg.Token = "tok1"
	cfg.API.Timeout = Duration(3 * time.Second)
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tok1", loaded.Token)
	assert.Equal(t, 3*time.Second, loaded.Timeout())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		key     string
		raw     string
		want    any
		wantErr bool
	}{
		{key: "api.retry_max", raw: "4", want: 4},
		{key: "api.retry_max", raw: "four", wantErr: true},
		{key: "api.rate_limit", raw: "0.5", want: 0.5},
		{key: "options.debug", raw: "true", want: true},
		{key: "options.debug", raw: "yes", wantErr: true},
		{key: "api.timeout", raw: "1m30s", want: "1m30s"},
		{key: "api.timeout", raw: "later", wantErr: true},
		{key: "token", raw: "42", want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			got, err := ParseValue(tt.key, tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
