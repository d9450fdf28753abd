// Package annotate turns a call recording into a speaker-attributed transcript.
package annotate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Transcript is the annotated result of one recording.
type Transcript struct {
	Turns []models.TranscriptTurn
	Path  string
}

// Pipeline runs speech-to-text and diarization over a recording and aligns the two.
type Pipeline struct {
	transcriber models.Transcriber
	diarizer    models.Diarizer
	labels      map[string]string
}

// New creates a Pipeline. A nil labels map selects DefaultLabels.
func New(transcriber models.Transcriber, diarizer models.Diarizer, labels map[string]string) *Pipeline {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	return &Pipeline{transcriber: transcriber, diarizer: diarizer, labels: labels}
}

// Annotate transcribes and diarizes the recording concurrently, aligns the
// results and writes <recording>_annotated.txt next to it.
func (p *Pipeline) Annotate(ctx context.Context, recordingPath string) (*Transcript, error) {
	started := time.Now()

	var (
		text     []models.TextSpan
		speakers []models.SpeakerSpan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		spans, err := p.transcriber.Transcribe(gctx, recordingPath)
		if err != nil {
			return fmt.Errorf("transcribe with %s: %w", p.transcriber.Name(), err)
		}
		text = spans
		return nil
	})
	g.Go(func() error {
		spans, err := p.diarizer.Diarize(gctx, recordingPath)
		if err != nil {
			return fmt.Errorf("diarize with %s: %w", p.diarizer.Name(), err)
		}
		speakers = spans
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	turns := Align(text, speakers, p.labels)
	path := AnnotatedPath(recordingPath)
	if err := WriteTranscript(path, turns); err != nil {
		return nil, err
	}

	slog.Info("transcript annotated",
		"recording", recordingPath,
		"path", path,
		"text_spans", len(text),
		"speaker_spans", len(speakers),
		"turns", len(turns),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return &Transcript{Turns: turns, Path: path}, nil
}

// AnnotatedPath returns the transcript path for a recording.
func AnnotatedPath(recordingPath string) string {
	return strings.TrimSuffix(recordingPath, filepath.Ext(recordingPath)) + "_annotated.txt"
}

// WriteTranscript atomically writes one "Speaker: text" line per turn.
func WriteTranscript(path string, turns []models.TranscriptTurn) error {
	var buf bytes.Buffer
	for _, t := range turns {
		fmt.Fprintf(&buf, "%s: %s\n", t.Speaker, t.Text)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// ParseTranscript reads "Speaker: text" lines back into turns. Lines without a
// speaker prefix continue the previous turn. Timing is not preserved.
func ParseTranscript(r io.Reader) ([]models.TranscriptTurn, error) {
	var turns []models.TranscriptTurn
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		speaker, text, ok := strings.Cut(line, ":")
		speaker = strings.TrimSpace(speaker)
		// A multi-word prefix that names no role is ordinary prose, e.g. "Note: ...".
		prose := strings.ContainsAny(speaker, " \t") && models.ParseRole(speaker) == models.RoleUnknown
		if !ok || speaker == "" || prose {
			if n := len(turns); n > 0 {
				turns[n-1].Text += " " + line
				continue
			}
			speaker, text = unknownSpeaker, line
		}

		turns = append(turns, models.TranscriptTurn{
			Role:    models.ParseRole(speaker),
			Speaker: speaker,
			Text:    strings.TrimSpace(text),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return turns, nil
}
