package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easywine/internal/config"
	"easywine/internal/pairing"
	"easywine/internal/platform/gemini"
	"easywine/internal/platform/localllm"
)

// mockGenerator is a mock of the model backend.
type mockGenerator struct {
	calls int
}

// GenerateContent mocks the GenerateContent method.
func (m *mockGenerator) GenerateContent(ctx context.Context, apiKey string, prompt pairing.Prompt) (string, error) {
	m.calls++
	return `{"estilo":"Malbec"}`, nil
}

func TestNewGenerator(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &gemini.Client{}, newGenerator(cfg))

	cfg.LLMBackend = config.BackendLocal
	assert.IsType(t, &localllm.Client{}, newGenerator(cfg))
}

func TestNewService_GeminiRequiresCredential(t *testing.T) {
	t.Setenv("EASYWINE_TEST_KEY", "")
	cfg := config.Default()
	cfg.APIKeyEnv = "EASYWINE_TEST_KEY"
	gen := &mockGenerator{}

	svc := newService(cfg, gen, pairing.NewFileTemplateSource(""))
	_, err := svc.Recommend(context.Background(), pairing.Request{Ingredients: "picanha"})

	assert.ErrorIs(t, err, pairing.ErrMissingCredential)
	assert.Equal(t, 0, gen.calls)

	t.Setenv("EASYWINE_TEST_KEY", "secret")
	out, err := svc.Recommend(context.Background(), pairing.Request{Ingredients: "picanha"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"estilo":"Malbec"}`, string(out))
	assert.Equal(t, 1, gen.calls)
}

func TestNewService_LocalBackendWithoutCredential(t *testing.T) {
	t.Setenv("EASYWINE_TEST_KEY", "")
	cfg := config.Default()
	cfg.APIKeyEnv = "EASYWINE_TEST_KEY"
	cfg.LLMBackend = config.BackendLocal
	gen := &mockGenerator{}

	svc := newService(cfg, gen, pairing.NewFileTemplateSource(""))
	_, err := svc.Recommend(context.Background(), pairing.Request{Category: "Massas"})

	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestNewTemplateSource_File(t *testing.T) {
	cfg := config.Default()
	cfg.PromptTemplatePath = ""

	src, closeFn, err := newTemplateSource(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	body, err := src.Template(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pairing.DefaultTemplate, body)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("EASYWINE_TEST_VALUE", "x")
	assert.Equal(t, "x", getEnv("EASYWINE_TEST_VALUE", "y"))
	assert.Equal(t, "y", getEnv("EASYWINE_TEST_UNSET_VALUE", "y"))
}
