package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends supported by LLMBackend.
const (
	BackendGemini = "gemini"
	BackendLocal  = "local"
)

// Config represents the application configuration. The provider API key is
// not part of it; see Credential.
type Config struct {
	ListenAddr         string   `json:"listen_addr"`
	LLMBackend         string   `json:"llm_backend"`
	GeminiModel        string   `json:"gemini_model"`
	LocalLLMURL        string   `json:"local_llm_url"`
	LocalLLMModel      string   `json:"local_llm_model"`
	APIKeyEnv          string   `json:"api_key_env"`
	PromptTemplatePath string   `json:"prompt_template_path"`
	PromptTemplateName string   `json:"prompt_template_name"`
	DatabaseURL        string   `json:"DATABASE_URL"`
	AllowOrigins       []string `json:"cors_allow_origins"`
	UpstreamTimeout    Duration `json:"upstream_timeout"`
	MaxImageWidth      uint     `json:"max_image_width"`
	MaxBodyBytes       int64    `json:"max_body_bytes"`
	LogLevel           string   `json:"log_level"`
	LogFormat          string   `json:"log_format"`
}

// Duration is a time.Duration that reads "45s" style strings from JSON.
type Duration time.Duration

// UnmarshalJSON implements the json.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"45s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		ListenAddr:         ":8080",
		LLMBackend:         BackendGemini,
		GeminiModel:        "gemini-1.5-flash",
		LocalLLMURL:        "http://localhost:1234/v1/chat/completions",
		LocalLLMModel:      "gemma-3-12b-it:2",
		APIKeyEnv:          "GOOGLE_API_KEY",
		PromptTemplateName: "sommelier",
		AllowOrigins:       []string{"http://localhost:5173"},
		UpstreamTimeout:    Duration(45 * time.Second),
		MaxImageWidth:      800,
		MaxBodyBytes:       10 << 20,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load builds the configuration from defaults, the optional JSON file at path
// and environment overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		configData, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		default:
			if err := json.Unmarshal(configData, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.LLMBackend = getEnv("LLM_BACKEND", c.LLMBackend)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.LocalLLMURL = getEnv("LOCAL_LLM_URL", c.LocalLLMURL)
	c.LocalLLMModel = getEnv("LOCAL_LLM_MODEL", c.LocalLLMModel)
	c.APIKeyEnv = getEnv("API_KEY_ENV", c.APIKeyEnv)
	c.PromptTemplatePath = getEnv("PROMPT_TEMPLATE_PATH", c.PromptTemplatePath)
	c.PromptTemplateName = getEnv("PROMPT_TEMPLATE_NAME", c.PromptTemplateName)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	if v, ok := os.LookupEnv("CORS_ALLOW_ORIGINS"); ok {
		c.AllowOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("UPSTREAM_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid UPSTREAM_TIMEOUT %q: %w", v, err)
		}
		c.UpstreamTimeout = Duration(d)
	}
	if v, ok := os.LookupEnv("MAX_IMAGE_WIDTH"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid MAX_IMAGE_WIDTH %q: %w", v, err)
		}
		c.MaxImageWidth = uint(n)
	}
	if v, ok := os.LookupEnv("MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_BODY_BYTES %q: %w", v, err)
		}
		c.MaxBodyBytes = n
	}
	return nil
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	switch c.LLMBackend {
	case BackendGemini, BackendLocal:
	default:
		return fmt.Errorf("unknown llm backend %q", c.LLMBackend)
	}
	if c.APIKeyEnv == "" && c.LLMBackend == BackendGemini {
		return fmt.Errorf("api_key_env is required for the gemini backend")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	return nil
}

// Credential returns a func that reads the API key from the environment each
// time it is called. An unset variable yields "".
func (c *Config) Credential() func() string {
	name := c.APIKeyEnv
	return func() string {
		if name == "" {
			return ""
		}
		return strings.TrimSpace(os.Getenv(name))
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
