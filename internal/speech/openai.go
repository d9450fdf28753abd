package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// OpenAITranscriber implements models.Transcriber using the Whisper API.
type OpenAITranscriber struct {
	client *openai.Client
	model  string
}

// NewOpenAITranscriber creates a Whisper transcriber. baseURL may be empty.
func NewOpenAITranscriber(apiKey, baseURL string) *OpenAITranscriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAITranscriber{client: openai.NewClientWithConfig(cfg), model: openai.Whisper1}
}

func (t *OpenAITranscriber) Name() string { return "openai-whisper" }

// Transcribe requests verbose JSON so segment timestamps are returned.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) ([]models.TextSpan, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	spans := make([]models.TextSpan, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		spans = append(spans, models.TextSpan{Start: seg.Start, End: seg.End, Text: text})
	}
	if len(spans) == 0 && strings.TrimSpace(resp.Text) != "" {
		return nil, fmt.Errorf("%w: transcription has text but no segments", ErrSpeechResponse)
	}
	return spans, nil
}

var _ models.Transcriber = (*OpenAITranscriber)(nil)
