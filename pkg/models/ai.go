// Package models contains shared data models used across the interviewbot codebase.
package models

import "context"

// AIProvider is the scoring oracle interface that all inference integrations must
// implement. The scoring engine never calls a concrete provider directly.
type AIProvider interface {
	// ClassifySentiment labels a piece of text as positive, neutral or negative.
	ClassifySentiment(ctx context.Context, text string) (Sentiment, error)
	// Embed returns one sentence embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	// Summarize condenses text into a single short statement.
	Summarize(ctx context.Context, text string) (string, error)
	// Name returns the provider identifier (e.g., "sidecar", "openai").
	Name() string
}

// Transcriber turns a recording into timestamped text spans.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]TextSpan, error)
	Name() string
}

// Diarizer turns a recording into timestamped speaker-label spans.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]SpeakerSpan, error)
	Name() string
}
