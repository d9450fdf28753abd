package ai

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Lazy defers provider construction until the first call, so a process that
// never scores (e.g. serve) never loads models or dials the provider.
// Construction happens at most once; a failed construction is remembered.
type Lazy struct {
	name  string
	build func() (models.AIProvider, error)

	once     sync.Once
	provider models.AIProvider
	err      error
}

// NewLazy creates a Lazy provider. name is reported before construction.
func NewLazy(name string, build func() (models.AIProvider, error)) *Lazy {
	return &Lazy{name: name, build: build}
}

func (l *Lazy) get() (models.AIProvider, error) {
	l.once.Do(func() {
		l.provider, l.err = l.build()
	})
	return l.provider, l.err
}

func (l *Lazy) Name() string { return l.name }

func (l *Lazy) ClassifySentiment(ctx context.Context, text string) (models.Sentiment, error) {
	p, err := l.get()
	if err != nil {
		return models.Sentiment{}, err
	}
	return p.ClassifySentiment(ctx, text)
}

func (l *Lazy) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	p, err := l.get()
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, texts)
}

func (l *Lazy) Summarize(ctx context.Context, text string) (string, error) {
	p, err := l.get()
	if err != nil {
		return "", err
	}
	return p.Summarize(ctx, text)
}

var _ models.AIProvider = (*Lazy)(nil)
