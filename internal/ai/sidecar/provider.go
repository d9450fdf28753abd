// Package sidecar implements models.AIProvider against a local HTTP service
// hosting sentence-embedding, sentiment and summarization models.
package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Sentinel errors for sidecar failures. They mirror the ai package sentinels
// without importing it.
var (
	ErrUnavailable = errors.New("sidecar unavailable")
	ErrTimeout     = errors.New("sidecar timeout")
	ErrBadResponse = errors.New("sidecar returned invalid response")
)

// labelAliases maps raw classifier labels to sentiment buckets. Three-class
// RoBERTa sentiment models report LABEL_0..LABEL_2.
var labelAliases = map[string]string{
	"positive": models.SentimentPositive,
	"pos":      models.SentimentPositive,
	"label_2":  models.SentimentPositive,
	"neutral":  models.SentimentNeutral,
	"neu":      models.SentimentNeutral,
	"label_1":  models.SentimentNeutral,
	"negative": models.SentimentNegative,
	"neg":      models.SentimentNegative,
	"label_0":  models.SentimentNegative,
}

// Provider calls POST /sentiment, /embed and /summarize on the sidecar.
type Provider struct {
	baseURL string
	client  *http.Client
}

// NewProvider creates a sidecar provider.
func NewProvider(baseURL string, timeout time.Duration) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "sidecar" }

type sentimentRequest struct {
	Text string `json:"text"`
}

type sentimentResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (p *Provider) ClassifySentiment(ctx context.Context, text string) (models.Sentiment, error) {
	var resp sentimentResponse
	if err := p.post(ctx, "/sentiment", sentimentRequest{Text: text}, &resp); err != nil {
		return models.Sentiment{}, err
	}
	label, ok := labelAliases[strings.ToLower(strings.TrimSpace(resp.Label))]
	if !ok {
		return models.Sentiment{}, fmt.Errorf("%w: unknown sentiment label %q", ErrBadResponse, resp.Label)
	}
	return models.Sentiment{Label: label, Score: resp.Score}, nil
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	var resp embedResponse
	if err := p.post(ctx, "/embed", embedRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrBadResponse, len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	var resp summarizeResponse
	if err := p.post(ctx, "/summarize", summarizeRequest{Text: text}, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Summary), nil
}

func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s status %d: %s", ErrBadResponse, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrBadResponse, path, err)
	}
	return nil
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

var _ models.AIProvider = (*Provider)(nil)
