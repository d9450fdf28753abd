package ai

import (
	"fmt"

	"github.com/kiranshivaraju/interviewbot/internal/ai/mock"
	"github.com/kiranshivaraju/interviewbot/internal/ai/openai"
	"github.com/kiranshivaraju/interviewbot/internal/ai/sidecar"
	"github.com/kiranshivaraju/interviewbot/internal/config"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// NewProvider constructs the configured scoring provider, wrapped with the
// inference timeout. Construction is deferred until first use.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	var build func() (models.AIProvider, error)
	switch cfg.Provider {
	case "sidecar":
		build = func() (models.AIProvider, error) {
			p := sidecar.NewProvider(cfg.Sidecar.BaseURL, cfg.InferenceTimeout)
			return p, nil
		}
	case "openai":
		build = func() (models.AIProvider, error) {
			return openai.NewProvider(cfg.OpenAI), nil
		}
	case "mock":
		build = func() (models.AIProvider, error) {
			return mock.NewMockProvider(), nil
		}
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of sidecar, openai, mock", cfg.Provider)
	}
	return NewService(NewLazy(cfg.Provider, build), cfg.InferenceTimeout), nil
}
