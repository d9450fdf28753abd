package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/interviewbot/internal/ai/openai"
	"github.com/kiranshivaraju/interviewbot/internal/ai/sidecar"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// maxInputBytes caps text sent to a provider. Long answers are truncated
// rather than rejected.
const maxInputBytes = 8000

// Service wraps a provider with a per-call inference timeout, input truncation
// and response validation. It implements models.AIProvider itself so the
// scoring engine is unaware of the wrapping.
type Service struct {
	provider models.AIProvider
	timeout  time.Duration
}

// NewService creates a Service around provider.
func NewService(provider models.AIProvider, timeout time.Duration) *Service {
	return &Service{provider: provider, timeout: timeout}
}

func (s *Service) Name() string { return s.provider.Name() }

func (s *Service) ClassifySentiment(ctx context.Context, text string) (models.Sentiment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sent, err := s.provider.ClassifySentiment(ctx, truncateString(text, maxInputBytes))
	if err != nil {
		return models.Sentiment{}, s.wrap(ctx, "classify sentiment", err)
	}

	switch sent.Label {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		return models.Sentiment{}, fmt.Errorf("%w: unknown sentiment label %q", ErrInvalidResponse, sent.Label)
	}
	sent.Score = clamp(sent.Score, 0, 1)
	return sent, nil
}

func (s *Service) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	in := make([]string, len(texts))
	for i, t := range texts {
		in[i] = truncateString(t, maxInputBytes)
	}

	vecs, err := s.provider.Embed(ctx, in)
	if err != nil {
		return nil, s.wrap(ctx, "embed", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrInvalidResponse, len(vecs), len(texts))
	}
	for i, vec := range vecs {
		for _, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: embedding %d has non-finite value %v", ErrInvalidResponse, i, v)
			}
		}
	}
	return vecs, nil
}

func (s *Service) Summarize(ctx context.Context, text string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	summary, err := s.provider.Summarize(ctx, truncateString(text, maxInputBytes))
	if err != nil {
		return "", s.wrap(ctx, "summarize", err)
	}
	return truncateString(summary, 2000), nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// wrap maps a provider error onto one of the package sentinels.
func (s *Service) wrap(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, ErrInferenceTimeout), errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrInvalidResponse):
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, sidecar.ErrTimeout):
		err = fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	case errors.Is(err, sidecar.ErrBadResponse), errors.Is(err, openai.ErrEmptyResponse):
		err = fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	default:
		err = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	slog.Warn("ai provider call failed", "provider", s.provider.Name(), "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

var _ models.AIProvider = (*Service)(nil)
