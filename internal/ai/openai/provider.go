package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kiranshivaraju/interviewbot/internal/config"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// ErrEmptyResponse is returned when the API answers without usable content.
var ErrEmptyResponse = errors.New("openai returned empty response")

const sentimentPrompt = `You classify the sentiment of a job candidate's interview answer.
Reply with a JSON object {"label": "positive"|"neutral"|"negative", "score": <confidence 0..1>}.`

const summarizePrompt = `Summarize the following interview answers as one short, factual statement
about the candidate. Do not add information that is not in the text.`

// Provider implements models.AIProvider using OpenAI embeddings and chat completions.
type Provider struct {
	client         *goopenai.Client
	chatModel      string
	embeddingModel string
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = goopenai.GPT4oMini
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = string(goopenai.SmallEmbedding3)
	}
	return &Provider{
		client:         goopenai.NewClientWithConfig(clientCfg),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) ClassifySentiment(ctx context.Context, text string) (models.Sentiment, error) {
	content, err := p.chat(ctx, sentimentPrompt, text, true)
	if err != nil {
		return models.Sentiment{}, err
	}

	var out struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return models.Sentiment{}, fmt.Errorf("%w: decoding sentiment: %v", ErrEmptyResponse, err)
	}
	return models.Sentiment{Label: strings.ToLower(strings.TrimSpace(out.Label)), Score: out.Score}, nil
}

func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := p.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmptyResponse, len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmptyResponse, d.Index)
		}
		vec := make([]float64, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float64(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	return p.chat(ctx, summarizePrompt, text, false)
}

func (p *Provider) chat(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: p.chatModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
	}
	if jsonMode {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

var _ models.AIProvider = (*Provider)(nil)
