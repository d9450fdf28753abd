package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/kiranshivaraju/interviewbot/internal/report"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Pipeline annotates, scores and reports one recording, in that order.
type Pipeline struct {
	annotator Annotator
	scorer    Scorer
	assembler Assembler
}

// NewPipeline creates a Pipeline.
func NewPipeline(annotator Annotator, scorer Scorer, assembler Assembler) *Pipeline {
	return &Pipeline{annotator: annotator, scorer: scorer, assembler: assembler}
}

// Process fills the session's transcript and report paths. A stage error or
// panic yields OutcomePipelineFailed; the recording is left in place.
func (p *Pipeline) Process(ctx context.Context, sess *models.Session) (outcome models.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in pipeline", "session_id", sess.ID, "error", r, "stack", string(debug.Stack()))
			outcome = models.OutcomePipelineFailed
			err = fmt.Errorf("%w: panic: %v", ErrPipelineFailed, r)
		}
	}()

	if sess.RecordingPath == "" {
		return models.OutcomePipelineFailed, fmt.Errorf("%w: no recording", ErrPipelineFailed)
	}

	tr, err := p.annotator.Annotate(ctx, sess.RecordingPath)
	if err != nil {
		return models.OutcomePipelineFailed, fmt.Errorf("%w: annotate: %w", ErrPipelineFailed, err)
	}
	sess.TranscriptPath = tr.Path

	res, err := p.scorer.Score(ctx, tr.Turns)
	if err != nil {
		return models.OutcomePipelineFailed, fmt.Errorf("%w: score: %w", ErrPipelineFailed, err)
	}
	if res.Skipped {
		slog.Info("no candidate responses, report not written", "session_id", sess.ID, "reason", res.SkipReason)
		return models.OutcomeNoResponses, nil
	}

	art, err := p.assembler.Assemble(res, report.Metadata{
		SessionID:   sess.ID.String(),
		CandidateID: sess.CandidateID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, report.ErrSkippedResult) {
			return models.OutcomeNoResponses, nil
		}
		return models.OutcomePipelineFailed, fmt.Errorf("%w: report: %w", ErrPipelineFailed, err)
	}
	sess.ReportPath = art.JSONPath
	return models.OutcomeCompleted, nil
}
