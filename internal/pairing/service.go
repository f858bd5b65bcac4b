package pairing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
)

var (
	// ErrMissingCredential is returned when the provider API key is not configured.
	ErrMissingCredential = errors.New("api credential not configured")
	// ErrInvalidImage is returned when the image payload cannot be decoded.
	ErrInvalidImage = errors.New("invalid image payload")
	// ErrNothingToPair is returned when the request has no image, text or category.
	ErrNothingToPair = errors.New("no image, ingredients or category provided")
	// ErrInvalidCompletion is returned when the model output is not JSON.
	ErrInvalidCompletion = errors.New("upstream returned invalid data")
)

// Prompt is what gets sent to the model: an instruction plus an optional image.
type Prompt struct {
	Text        string
	Image       []byte
	ImageFormat string
}

// Generator defines the interface for a generative model backend.
type Generator interface {
	GenerateContent(ctx context.Context, apiKey string, prompt Prompt) (string, error)
}

// CredentialFunc returns the provider API key, read at request time.
type CredentialFunc func() string

// Service turns a pairing request into a model completion.
type Service struct {
	generator     Generator
	templates     TemplateSource
	credential    CredentialFunc
	timeout       time.Duration
	maxImageWidth uint
}

// Option configures a Service.
type Option func(*Service)

// WithCredential requires a non-empty credential for every request.
func WithCredential(fn CredentialFunc) Option {
	return func(s *Service) { s.credential = fn }
}

// WithTimeout bounds the upstream call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithMaxImageWidth downscales wider images before upload. Zero disables it.
func WithMaxImageWidth(w uint) Option {
	return func(s *Service) { s.maxImageWidth = w }
}

// NewService creates a new Service.
func NewService(generator Generator, templates TemplateSource, opts ...Option) *Service {
	s := &Service{
		generator:     generator,
		templates:     templates,
		timeout:       45 * time.Second,
		maxImageWidth: 800,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend builds the prompt for req, calls the model and returns the
// completion with any code fence removed. The returned bytes are the model's
// JSON text unchanged.
func (s *Service) Recommend(ctx context.Context, req Request) ([]byte, error) {
	if req.Empty() {
		return nil, ErrNothingToPair
	}

	var apiKey string
	if s.credential != nil {
		apiKey = s.credential()
		if apiKey == "" {
			return nil, ErrMissingCredential
		}
	}

	body, err := s.templates.Template(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt template: %w", err)
	}
	text, err := RenderPrompt(body, req)
	if err != nil {
		return nil, err
	}

	prompt := Prompt{Text: text}
	fields := log.Fields{
		"category":  req.Category,
		"has_text":  req.Ingredients != "",
		"has_image": req.Image != "",
	}
	if req.Image != "" {
		raw, err := DecodeImage(req.Image)
		if err != nil {
			return nil, err
		}
		prompt.Image, prompt.ImageFormat, err = PrepareImage(raw, s.maxImageWidth)
		if err != nil {
			return nil, err
		}
		fields["image_hash"] = ImageHash(raw)
		fields["image_bytes"] = len(prompt.Image)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := s.generator.GenerateContent(ctx, apiKey, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pairing: %w", err)
	}
	fields["duration_ms"] = time.Since(start).Milliseconds()
	log.WithFields(fields).Debug("pairing generated")

	cleaned := StripCodeFence(completion)
	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("%w: %.200q", ErrInvalidCompletion, cleaned)
	}
	return []byte(cleaned), nil
}
