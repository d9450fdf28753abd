package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

const embeddingDims = 64

var (
	positiveWords = []string{"great", "love", "excited", "enjoy", "confident", "excellent", "happy", "passionate", "successfully", "proud"}
	negativeWords = []string{"don't know", "not sure", "no idea", "never", "hate", "can't", "cannot", "bad", "failed", "unfortunately"}
)

// MockProvider satisfies models.AIProvider for testing and offline runs.
type MockProvider struct {
	Name_         string
	SentimentFunc func(ctx context.Context, text string) (models.Sentiment, error)
	EmbedFunc     func(ctx context.Context, texts []string) ([][]float64, error)
	SummarizeFunc func(ctx context.Context, text string) (string, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) ClassifySentiment(ctx context.Context, text string) (models.Sentiment, error) {
	if m.SentimentFunc != nil {
		return m.SentimentFunc(ctx, text)
	}
	return models.Sentiment{Label: models.SentimentNeutral, Score: 1}, nil
}

func (m *MockProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, texts)
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = make([]float64, embeddingDims)
	}
	return out, nil
}

func (m *MockProvider) Summarize(ctx context.Context, text string) (string, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text)
	}
	return "", nil
}

// NewMockProvider returns a MockProvider with deterministic keyword sentiment,
// bag-of-words embeddings and first-sentence summaries.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_:         "mock",
		SentimentFunc: func(_ context.Context, text string) (models.Sentiment, error) { return KeywordSentiment(text), nil },
		EmbedFunc: func(_ context.Context, texts []string) ([][]float64, error) {
			out := make([][]float64, len(texts))
			for i, t := range texts {
				out[i] = BagOfWords(t)
			}
			return out, nil
		},
		SummarizeFunc: func(_ context.Context, text string) (string, error) { return FirstSentence(text), nil },
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_:         "mock-failing",
		SentimentFunc: func(_ context.Context, _ string) (models.Sentiment, error) { return models.Sentiment{}, err },
		EmbedFunc:     func(_ context.Context, _ []string) ([][]float64, error) { return nil, err },
		SummarizeFunc: func(_ context.Context, _ string) (string, error) { return "", err },
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		SentimentFunc: func(ctx context.Context, _ string) (models.Sentiment, error) {
			<-ctx.Done()
			return models.Sentiment{}, ctx.Err()
		},
		EmbedFunc: func(ctx context.Context, _ []string) ([][]float64, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		SummarizeFunc: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
}

// KeywordSentiment labels text by counting positive and negative cue phrases.
func KeywordSentiment(text string) models.Sentiment {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}
	switch {
	case pos > neg:
		return models.Sentiment{Label: models.SentimentPositive, Score: 0.9}
	case neg > pos:
		return models.Sentiment{Label: models.SentimentNegative, Score: 0.9}
	default:
		return models.Sentiment{Label: models.SentimentNeutral, Score: 0.6}
	}
}

// BagOfWords hashes lowercased words into a fixed-size unit vector. Texts that
// share vocabulary have a high cosine similarity.
func BagOfWords(text string) []float64 {
	vec := make([]float64, embeddingDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// FirstSentence returns text up to and including its first sentence terminator.
func FirstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	return text
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
