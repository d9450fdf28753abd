// Package report renders scored interviews into durable JSON and text
// artifacts and reads them back for the API.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/kiranshivaraju/interviewbot/internal/scoring"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

var (
	// ErrSkippedResult is returned when asked to render a skipped score.
	ErrSkippedResult = errors.New("score result was skipped")
	// ErrNotFound is returned when no report matches a lookup.
	ErrNotFound = errors.New("report not found")
)

const (
	VerdictSelected         = "SELECTED"
	VerdictNotSelected      = "NOT SELECTED"
	VerdictTooManyNegatives = "NOT SELECTED (Too many negative answers)"

	fileTimeLayout = "20060102_150405"
	jsonSuffix     = "_report.json"
	textSuffix     = "_report.txt"
	filePerm       = 0o644
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Metadata identifies the session a report belongs to.
type Metadata struct {
	SessionID   string
	CandidateID string
	CreatedAt   time.Time
}

// Artifact is the outcome of one Assemble call.
type Artifact struct {
	Report   *models.CandidateReport
	JSONPath string
	TextPath string
}

// Assembler writes report artifacts into a single directory.
type Assembler struct {
	dir string
}

// NewAssembler creates an Assembler writing into dir.
func NewAssembler(dir string) *Assembler {
	return &Assembler{dir: dir}
}

// Assemble renders result as JSON and text. Both files are written atomically;
// a reader never observes a partial report.
func (a *Assembler) Assemble(result *models.ScoreResult, meta Metadata) (*Artifact, error) {
	if result == nil {
		return nil, errors.New("assemble report: nil result")
	}
	if result.Skipped {
		return nil, fmt.Errorf("assemble report: %w: %s", ErrSkippedResult, result.SkipReason)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	rep := Build(result, meta)

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	base := filepath.Join(a.dir, baseName(rep.CandidateID, rep.CreatedAt))

	doc, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var text bytes.Buffer
	if err := RenderText(&text, rep); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	art := &Artifact{Report: rep, JSONPath: base + jsonSuffix, TextPath: base + textSuffix}
	if err := renameio.WriteFile(art.TextPath, text.Bytes(), filePerm); err != nil {
		return nil, fmt.Errorf("write text report: %w", err)
	}
	// JSON last: the repository only lists JSON files, so a report becomes
	// visible once both documents exist.
	if err := renameio.WriteFile(art.JSONPath, doc, filePerm); err != nil {
		return nil, fmt.Errorf("write json report: %w", err)
	}

	slog.Info("report written",
		"session_id", rep.SessionID,
		"candidate_id", rep.CandidateID,
		"path", art.JSONPath,
		"verdict", rep.Verdict,
	)
	return art, nil
}

// Build projects a ScoreResult into its durable form.
func Build(result *models.ScoreResult, meta Metadata) *models.CandidateReport {
	exchanges := make([]models.ReportExchange, 0, len(result.Exchanges))
	for _, ex := range result.Exchanges {
		exchanges = append(exchanges, models.ReportExchange{
			Question:   ex.Question,
			Answer:     ex.Answer,
			Sentiment:  ex.Sentiment,
			Relevance:  ex.Relevance,
			Similarity: ex.Similarity,
		})
	}
	return &models.CandidateReport{
		SessionID:     meta.SessionID,
		CandidateID:   meta.CandidateID,
		CreatedAt:     meta.CreatedAt,
		Date:          meta.CreatedAt.Format("2006-01-02"),
		Time:          meta.CreatedAt.Format("15:04"),
		ExchangeCount: len(exchanges),
		Exchanges:     exchanges,
		Metrics:       result.Metrics,
		Summary:       result.Tally,
		Rating:        result.Rating,
		Selected:      result.Selected,
		Verdict:       Verdict(result),
		Pros:          nonNil(result.Pros),
		Cons:          nonNil(result.Cons),
	}
}

// Verdict returns the human-readable verdict line for result.
func Verdict(result *models.ScoreResult) string {
	switch {
	case result.Selected:
		return VerdictSelected
	case result.Rejection == scoring.RejectTooManyNegatives:
		return VerdictTooManyNegatives
	default:
		return VerdictNotSelected
	}
}

// RenderText writes the plain-text form of rep.
func RenderText(w io.Writer, rep *models.CandidateReport) error {
	var b strings.Builder
	b.WriteString("Candidate Report - AI Interview Assistant\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Date: %s\nTime: %s\nCandidate: %s\n", rep.Date, rep.Time, rep.CandidateID)
	fmt.Fprintf(&b, "Questions Answered: %d\n\n", rep.ExchangeCount)

	for i, ex := range rep.Exchanges {
		fmt.Fprintf(&b, "%d. Q: %s\n", i+1, ex.Question)
		fmt.Fprintf(&b, "   Candidate: %s\n", ex.Answer)
		fmt.Fprintf(&b, "   Sentiment: %s\n", ex.Sentiment)
		fmt.Fprintf(&b, "   Relevance Score: %d (Similarity: %.2f)\n\n", ex.Relevance, ex.Similarity)
	}

	b.WriteString("Summary\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Positive Responses: %d\n", rep.Summary.Positive)
	fmt.Fprintf(&b, "Neutral Responses: %d\n", rep.Summary.Neutral)
	fmt.Fprintf(&b, "Negative Responses: %d\n", rep.Summary.Negative)

	writeList(&b, "Strengths", rep.Pros)
	writeList(&b, "Concerns", rep.Cons)

	m := rep.Metrics
	b.WriteString("\nCommunication\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Candidate Talk Share: %.0f%%\n", m.CandidateTalkShare*100)
	fmt.Fprintf(&b, "Average Answer Length: %.1f words\n", m.AvgAnswerWords)
	fmt.Fprintf(&b, "Average Response Latency: %.1fs\n", m.AvgResponseLatency)
	fmt.Fprintf(&b, "Filler Word Rate: %.2f\n", m.FillerWordRate)

	fmt.Fprintf(&b, "\nVerdict: %s\n", rep.Verdict)
	fmt.Fprintf(&b, "\nFinal Rating: %.1f/10\n", rep.Rating)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "\n%s\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// FileCandidate returns the filename-safe form of a candidate id.
func FileCandidate(candidateID string) string {
	s := strings.Trim(unsafeFileChars.ReplaceAllString(candidateID, "-"), "-.")
	if s == "" {
		return "candidate"
	}
	return s
}

func baseName(candidateID string, at time.Time) string {
	return FileCandidate(candidateID) + "_" + at.Format(fileTimeLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
