package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// isolate moves the test into an empty directory so no .env or project
// config leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadFromFile_Defaults(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, configFileName, `{"token": "tok1", "options": {"data_directory": "/data"}}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "tok1", cfg.Token)
	assert.Equal(t, DefaultAPIRoot, cfg.API.Root)
	assert.Equal(t, DefaultTimeout, cfg.Timeout())
	assert.Equal(t, DefaultRetryMax, cfg.API.RetryMax)
	assert.Zero(t, cfg.API.RateLimit)
	assert.Equal(t, DefaultRedirect, cfg.RedirectAfterDeleteAll)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, filepath.Join("/data", dbFileName), cfg.Server.DBPath)
	assert.Equal(t, filepath.Join("/data", "debug.log"), cfg.DebugLogPath())
}

func TestLoadFromFile_FileValues(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, configFileName, `{
		"api": {"root": "https://chats.example.com/api", "timeout": "5s", "retry_max": 1, "rate_limit": 2.5},
		"token": "tok1",
		"server": {"addr": "127.0.0.1:9000", "public_url": "https://chats.example.com"}
	}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chats.example.com/api", cfg.API.Root)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 1, cfg.API.RetryMax)
	assert.InDelta(t, 2.5, cfg.API.RateLimit, 0.001)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "https://chats.example.com", cfg.Server.PublicURL)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, configFileName, `{"api": {"root": "http://file:1"}, "token": "file-token"}`)

	t.Setenv("CHATKEEPER_API_ROOT", "http://env:2")
	t.Setenv("CHATKEEPER_API_TIMEOUT", "2s")
	t.Setenv("CHATKEEPER_API_RETRY_MAX", "7")
	t.Setenv("CHATKEEPER_DEBUG", "true")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env:2", cfg.API.Root)
	assert.Equal(t, 2*time.Second, cfg.Timeout())
	assert.Equal(t, 7, cfg.API.RetryMax)
	assert.True(t, cfg.Options.Debug)
	// Unset variables leave the file value alone.
	assert.Equal(t, "file-token", cfg.Token)
}

func TestLoadFromFile_InvalidEnv(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, configFileName, `{}`)
	t.Setenv("CHATKEEPER_API_RETRY_MAX", "many")

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing environment")
}

func TestLoadFromFile_DotEnv(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, configFileName, `{"token": "${CHATKEEPER_TEST_DOTENV_TOKEN}"}`)
	writeConfig(t, dir, dotEnvFile, "CHATKEEPER_TEST_DOTENV_TOKEN=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("CHATKEEPER_TEST_DOTENV_TOKEN") })

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Token)
}

func TestLoadFromFile_ResolvesReferences(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, configFileName, `{"api": {"root": "http://$API_HOST:8080"}, "token": "$CHAT_TOKEN"}`)
	t.Setenv("API_HOST", "store")
	t.Setenv("CHAT_TOKEN", "secret")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://store:8080", cfg.API.Root)
	assert.Equal(t, "secret", cfg.Token)
}

func TestLoadFromFile_UnsetReference(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, configFileName, `{"token": "${CHATKEEPER_TEST_UNSET}"}`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
	assert.Contains(t, err.Error(), "CHATKEEPER_TEST_UNSET")
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"root not a url", `{"api": {"root": "not a url"}}`, "api.root"},
		{"too many retries", `{"api": {"retry_max": 20}}`, "api.retry_max"},
		{"negative rate", `{"api": {"rate_limit": -1}}`, "api.rate_limit"},
		{"bad public url", `{"server": {"public_url": "nope"}}`, "server.public_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := writeConfig(t, dir, configFileName, tt.content)

			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := isolate(t)

	_, err := LoadFromFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := writeConfig(t, dir, configFileName, `{"token":`)
	_, err = LoadFromFile(path)
	require.Error(t, err)

	path = writeConfig(t, dir, "bad-duration.json", `{"api": {"timeout": "soon"}}`)
	_, err = LoadFromFile(path)
	require.Error(t, err)
}

func TestFindProjectConfig(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	t.Chdir(nested)
	assert.Empty(t, findProjectConfig())

	hidden := writeConfig(t, root, "."+configFileName, `{}`)
	assert.Equal(t, hidden, findProjectConfig())

	// A visible file closer to the cwd wins.
	visible := writeConfig(t, filepath.Join(root, "a"), configFileName, `{}`)
	assert.Equal(t, visible, findProjectConfig())
}

func TestMergeConfig(t *testing.T) {
	dst := NewConfig()
	dst.API.Root = "http://global"
	dst.API.RetryMax = 2
	dst.Token = "global-token"
	dst.Server.Addr = ":1"

	src := NewConfig()
	src.API.Root = "http://project"
	src.Options.Debug = true
	src.Options.DataDir = "/project"

	mergeConfig(dst, src)

	assert.Equal(t, "http://project", dst.API.Root)
	assert.Equal(t, 2, dst.API.RetryMax)
	assert.Equal(t, "global-token", dst.Token)
	assert.Equal(t, ":1", dst.Server.Addr)
	assert.True(t, dst.Options.Debug)
	assert.Equal(t, "/project", dst.DataDir())
}

func TestRequireToken(t *testing.T) {
	cfg := NewConfig()
	_, err := cfg.RequireToken()
	require.ErrorIs(t, err, ErrMissingToken)

	cfg.Token = "tok1"
	token, err := cfg.RequireToken()
	require.NoError(t, err)
	assert.Equal(t, "tok1", token)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, DefaultAPIRoot, cfg.API.Root)
	assert.Equal(t, filepath.Join(cfg.DataDir(), dbFileName), cfg.Server.DBPath)
}
