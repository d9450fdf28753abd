package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiranshivaraju/interviewbot/internal/ai"
	"github.com/kiranshivaraju/interviewbot/internal/annotate"
	"github.com/kiranshivaraju/interviewbot/internal/api"
	"github.com/kiranshivaraju/interviewbot/internal/api/handler"
	mw "github.com/kiranshivaraju/interviewbot/internal/api/middleware"
	"github.com/kiranshivaraju/interviewbot/internal/browser"
	"github.com/kiranshivaraju/interviewbot/internal/cache"
	"github.com/kiranshivaraju/interviewbot/internal/capture"
	"github.com/kiranshivaraju/interviewbot/internal/config"
	"github.com/kiranshivaraju/interviewbot/internal/report"
	"github.com/kiranshivaraju/interviewbot/internal/scoring"
	"github.com/kiranshivaraju/interviewbot/internal/session"
	"github.com/kiranshivaraju/interviewbot/internal/speech"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

const shutdownTimeout = 30 * time.Second

// newCache connects to Redis when configured and falls back to an in-process
// cache otherwise. The returned func releases the connection.
func newCache(ctx context.Context, cfg config.RedisConfig) (cache.Cache, func(), error) {
	if cfg.URL == "" {
		slog.Warn("REDIS_URL not set, using in-memory status cache")
		return cache.NewMemoryCache(), func() {}, nil
	}

	redisCache, err := cache.NewRedisCache(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		redisCache.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	return redisCache, func() { redisCache.Close() }, nil
}

func newEngine(cfg *config.Config) (*scoring.Engine, error) {
	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", provider.Name())

	return scoring.NewEngine(provider, scoring.PolicyFrom(cfg.Scoring)), nil
}

func newTranscriber(cfg *config.Config) (models.Transcriber, error) {
	switch cfg.Speech.Provider {
	case "sidecar":
		return speech.NewSidecarTranscriber(cfg.Speech.SidecarURL, cfg.Speech.Timeout), nil
	case "openai":
		return speech.NewOpenAITranscriber(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Speech.Provider)
	}
}

func newPipeline(cfg *config.Config) (*session.Pipeline, error) {
	transcriber, err := newTranscriber(cfg)
	if err != nil {
		return nil, err
	}
	diarizer := speech.NewSidecarDiarizer(cfg.DiarizerBaseURL(), cfg.Speech.Timeout)

	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}

	return session.NewPipeline(
		annotate.New(transcriber, diarizer, cfg.Speech.SpeakerRoles),
		engine,
		report.NewAssembler(cfg.Paths.Reports),
	), nil
}

// checkSpeech warns when the diarization sidecar is down. Sessions still run;
// their recordings are kept if processing fails.
func checkSpeech(ctx context.Context, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := speech.NewSidecarClient(cfg.DiarizerBaseURL(), 5*time.Second).Ready(ctx); err != nil {
		slog.Warn("speech sidecar not ready", "url", cfg.DiarizerBaseURL(), "error", err)
		return
	}
	slog.Info("speech sidecar ready", "url", cfg.DiarizerBaseURL())
}

func newController(cfg *config.Config, status cache.Cache) (*session.Controller, error) {
	pipeline, err := newPipeline(cfg)
	if err != nil {
		return nil, err
	}

	recorder := capture.NewService(capture.NewFFmpegDevice(cfg.Capture.Format, cfg.Capture.Input), capture.Config{
		SampleRate:   cfg.Capture.SampleRate,
		Channels:     cfg.Capture.Channels,
		FrameSize:    cfg.Capture.FrameSize,
		PollInterval: cfg.Capture.PollInterval,
	})

	return session.NewController(
		browser.NewLauncher(cfg.Browser),
		session.CaptureRecorder(recorder),
		pipeline,
		status,
		session.ConfigFrom(cfg),
	), nil
}

func newRouter(cfg *config.Config, status cache.Cache) http.Handler {
	reports := report.NewRepository(cfg.Paths.Reports)

	return api.NewRouter(api.Dependencies{
		RateLimit: mw.NewRateLimit(status, cfg.Server.RequestsPerMinute),

		HealthHandler:       handler.NewHealthHandler(status, cfg.Paths.Reports),
		ListReportsHandler:  handler.NewListReportsHandler(reports),
		LatestReportHandler: handler.NewLatestReportHandler(reports),
		GetReportHandler:    handler.NewGetReportHandler(reports),
		GetSessionHandler:   handler.NewGetSessionHandler(status),
	})
}

func newServer(cfg *config.Config, status cache.Cache) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(cfg, status),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// serve runs srv until ctx is done, then drains connections.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
