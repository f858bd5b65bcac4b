package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"easywine/internal/api"
	"easywine/internal/config"
	"easywine/internal/pairing"
	"easywine/internal/platform/gemini"
	"easywine/internal/platform/localllm"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(getEnv("CONFIG_FILE", "config.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := config.SetupLogging(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	templates, closeTemplates, err := newTemplateSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTemplates()

	svc := newService(cfg, newGenerator(cfg), templates)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewHandler(svc), api.RouterConfig{
		AllowOrigins: cfg.AllowOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":    cfg.ListenAddr,
			"backend": cfg.LLMBackend,
		}).Info("easywine gateway listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newGenerator picks the model backend named in cfg.
func newGenerator(cfg *config.Config) pairing.Generator {
	if cfg.LLMBackend == config.BackendLocal {
		return localllm.NewClient(cfg.LocalLLMURL, cfg.LocalLLMModel)
	}
	return gemini.NewClient(cfg.GeminiModel)
}

func newService(cfg *config.Config, gen pairing.Generator, templates pairing.TemplateSource) *pairing.Service {
	opts := []pairing.Option{
		pairing.WithTimeout(time.Duration(cfg.UpstreamTimeout)),
		pairing.WithMaxImageWidth(cfg.MaxImageWidth),
	}
	if cfg.LLMBackend == config.BackendGemini {
		opts = append(opts, pairing.WithCredential(cfg.Credential()))
	}
	return pairing.NewService(gen, templates, opts...)
}

// newTemplateSource returns the Postgres store when DATABASE_URL is set and
// the file source otherwise. The returned func releases its resources.
func newTemplateSource(ctx context.Context, cfg *config.Config) (pairing.TemplateSource, func(), error) {
	if cfg.DatabaseURL == "" {
		log.WithField("path", cfg.PromptTemplatePath).Debug("using file prompt template")
		return pairing.NewFileTemplateSource(cfg.PromptTemplatePath), func() {}, nil
	}

	store, err := pairing.NewPostgresTemplateStore(cfg.DatabaseURL, cfg.PromptTemplateName)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating template store: %w", err)
	}
	if err := store.Seed(ctx, pairing.DefaultTemplate); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("error seeding template store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
