package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, BackendGemini, cfg.LLMBackend)
	assert.Equal(t, "GOOGLE_API_KEY", cfg.APIKeyEnv)
	assert.Equal(t, Duration(45*time.Second), cfg.UpstreamTimeout)
	assert.Equal(t, uint(800), cfg.MaxImageWidth)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen_addr": ":9000",
		"llm_backend": "local",
		"upstream_timeout": "10s",
		"cors_allow_origins": ["https://easywine.app"],
		"DATABASE_URL": "postgres://localhost/easywine"
	}`), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, BackendLocal, cfg.LLMBackend)
	assert.Equal(t, Duration(10*time.Second), cfg.UpstreamTimeout)
	assert.Equal(t, []string{"https://easywine.app"}, cfg.AllowOrigins)
	assert.Equal(t, "postgres://localhost/easywine", cfg.DatabaseURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen_addr": ":9000"}`), 0o644))
	t.Setenv("LISTEN_ADDR", ":7000")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("MAX_IMAGE_WIDTH", "1024")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
	assert.Equal(t, Duration(5*time.Second), cfg.UpstreamTimeout)
	assert.Equal(t, uint(1024), cfg.MaxImageWidth)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("LLM_BACKEND", "openai")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"upstream_timeout": 45}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestCredential_ReadAtCallTime(t *testing.T) {
	t.Setenv("EASYWINE_TEST_KEY", "")
	cfg := Default()
	cfg.APIKeyEnv = "EASYWINE_TEST_KEY"
	credential := cfg.Credential()

	assert.Equal(t, "", credential())

	t.Setenv("EASYWINE_TEST_KEY", "rotated-key")
	assert.Equal(t, "rotated-key", credential())
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogging(&buf, "debug", "json"))
	defer func() { _ = SetupLogging(os.Stderr, "info", "text") }()

	log.WithField("category", "Carnes").Debug("pairing generated")

	assert.Contains(t, buf.String(), `"category":"Carnes"`)
	assert.Contains(t, buf.String(), "pairing generated")

	assert.Error(t, SetupLogging(&buf, "loud", "json"))
}
