// Package scoring turns an annotated transcript into a rating and verdict.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/interviewbot/internal/analysis"
	"github.com/kiranshivaraju/interviewbot/internal/config"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// NoneIdentified is reported when an answer category is empty.
const NoneIdentified = "None identified"

// SkipReasonNoResponses marks a transcript with no question/answer exchange.
const SkipReasonNoResponses = "no valid responses"

const (
	maxRating          = 10.0
	maxSentimentPoints = 3
	maxRelevancePoints = 2
	highRelevance      = 0.7
	partialRelevance   = 0.4
	sentimentWorkers   = 4
)

// Rejection reasons recorded on a ScoreResult.
const (
	RejectTooManyNegatives = "too many negative answers"
	RejectBelowThreshold   = "rating below pass threshold"
)

// Policy is the verdict policy. It is used as given; defaults live in config.
type Policy struct {
	PassThreshold       float64
	NegativeRejectLimit int
}

// PolicyFrom builds a Policy from validated scoring config.
func PolicyFrom(cfg config.ScoringConfig) Policy {
	return Policy{PassThreshold: cfg.PassThreshold, NegativeRejectLimit: cfg.NegativeRejectLimit}
}

// DefaultPolicy is the policy of an unconfigured deployment.
func DefaultPolicy() Policy {
	return PolicyFrom(config.Defaults().Scoring)
}

// Engine scores transcripts using injected oracles.
type Engine struct {
	oracle models.AIProvider
	policy Policy
}

// NewEngine creates an Engine.
func NewEngine(oracle models.AIProvider, policy Policy) *Engine {
	return &Engine{oracle: oracle, policy: policy}
}

// Score extracts exchanges from turns and rates them. A transcript without
// any exchange yields a skipped result, not an error.
func (e *Engine) Score(ctx context.Context, turns []models.TranscriptTurn) (*models.ScoreResult, error) {
	exchanges := ExtractExchanges(turns)
	metrics := analysis.Metrics(turns)

	if len(exchanges) == 0 {
		return &models.ScoreResult{
			Exchanges:  []models.QAExchange{},
			Pros:       []string{},
			Cons:       []string{},
			Metrics:    metrics,
			Skipped:    true,
			SkipReason: SkipReasonNoResponses,
		}, nil
	}

	if err := e.classify(ctx, exchanges); err != nil {
		return nil, err
	}
	if err := e.relevance(ctx, exchanges); err != nil {
		return nil, err
	}

	res := &models.ScoreResult{
		Exchanges: exchanges,
		Metrics:   metrics,
	}
	var sentimentSum, relevanceSum int
	for _, ex := range exchanges {
		sentimentSum += ex.SentimentScore
		relevanceSum += ex.Relevance
		switch ex.Sentiment {
		case models.SentimentPositive:
			res.Tally.Positive++
		case models.SentimentNegative:
			res.Tally.Negative++
		default:
			res.Tally.Neutral++
		}
	}

	res.Rating = Rating(sentimentSum, relevanceSum, len(exchanges))
	res.Selected, res.Rejection = e.verdict(res.Tally, res.Rating)

	pros, cons := e.prosCons(ctx, exchanges)
	res.Pros = []string{pros}
	res.Cons = []string{cons}

	slog.Info("transcript scored",
		"exchanges", len(exchanges),
		"positive", res.Tally.Positive,
		"neutral", res.Tally.Neutral,
		"negative", res.Tally.Negative,
		"rating", res.Rating,
		"selected", res.Selected,
	)
	return res, nil
}

// ExtractExchanges pairs interviewer questions with candidate answers. An
// interviewer turn replaces any unanswered question; consecutive candidate
// turns extend the same answer. Unknown turns are ignored.
func ExtractExchanges(turns []models.TranscriptTurn) []models.QAExchange {
	var (
		out      []models.QAExchange
		question string
		answer   []string
	)
	flush := func() {
		if question != "" && len(answer) > 0 {
			out = append(out, models.QAExchange{Question: question, Answer: strings.Join(answer, " ")})
		}
		answer = nil
	}

	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		switch t.Role {
		case models.RoleInterviewer:
			flush()
			question = text
		case models.RoleCandidate:
			if question != "" {
				answer = append(answer, text)
			}
		}
	}
	flush()
	return out
}

// Rating combines sentiment and relevance, each normalized to 5 points.
func Rating(sentimentSum, relevanceSum, n int) float64 {
	if n == 0 {
		return 0
	}
	s := float64(sentimentSum) / float64(maxSentimentPoints*n) * 5
	r := float64(relevanceSum) / float64(maxRelevancePoints*n) * 5
	return math.Max(0, math.Min(maxRating, s+r))
}

// RoundRating rounds a rating to the one decimal shown in reports.
func RoundRating(rating float64) float64 {
	return math.Round(rating*10) / 10
}

// RelevancePoints discretizes a cosine similarity.
func RelevancePoints(similarity float64) int {
	switch {
	case similarity > highRelevance:
		return 2
	case similarity >= partialRelevance:
		return 1
	default:
		return 0
	}
}

// SentimentPoints maps a sentiment label to its ordinal score.
func SentimentPoints(label string) int {
	switch label {
	case models.SentimentPositive:
		return 3
	case models.SentimentNegative:
		return 1
	default:
		return 2
	}
}

func (e *Engine) verdict(tally models.SentimentTally, rating float64) (bool, string) {
	if tally.Negative >= e.policy.NegativeRejectLimit {
		return false, RejectTooManyNegatives
	}
	if RoundRating(rating) > e.policy.PassThreshold {
		return true, ""
	}
	return false, RejectBelowThreshold
}

func (e *Engine) classify(ctx context.Context, exchanges []models.QAExchange) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sentimentWorkers)
	for i := range exchanges {
		ex := &exchanges[i]
		g.Go(func() error {
			s, err := e.oracle.ClassifySentiment(gctx, ex.Answer)
			if err != nil {
				return fmt.Errorf("classify answer %d: %w", i+1, err)
			}
			ex.Sentiment = s.Label
			ex.SentimentConf = s.Score
			ex.SentimentScore = SentimentPoints(s.Label)
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) relevance(ctx context.Context, exchanges []models.QAExchange) error {
	texts := make([]string, 0, 2*len(exchanges))
	for _, ex := range exchanges {
		texts = append(texts, ex.Question, ex.Answer)
	}
	vecs, err := e.oracle.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed exchanges: %w", err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("embed exchanges: got %d vectors for %d texts", len(vecs), len(texts))
	}
	for i := range exchanges {
		sim := Cosine(vecs[2*i], vecs[2*i+1])
		exchanges[i].Similarity = sim
		exchanges[i].Relevance = RelevancePoints(sim)
	}
	return nil
}

// prosCons summarizes positive and negative answers into one bullet each.
// A summarizer failure falls back to the first answer of the category.
func (e *Engine) prosCons(ctx context.Context, exchanges []models.QAExchange) (string, string) {
	var positive, negative []string
	for _, ex := range exchanges {
		switch ex.Sentiment {
		case models.SentimentPositive:
			positive = append(positive, ex.Answer)
		case models.SentimentNegative:
			negative = append(negative, ex.Answer)
		}
	}

	var (
		wg         sync.WaitGroup
		pros, cons string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		pros = e.summarize(ctx, "pros", positive)
	}()
	go func() {
		defer wg.Done()
		cons = e.summarize(ctx, "cons", negative)
	}()
	wg.Wait()
	return pros, cons
}

func (e *Engine) summarize(ctx context.Context, category string, answers []string) string {
	if len(answers) == 0 {
		return NoneIdentified
	}
	summary, err := e.oracle.Summarize(ctx, strings.Join(answers, " "))
	if err != nil || strings.TrimSpace(summary) == "" {
		slog.Warn("summarizer unavailable, using first answer", "category", category, "error", err)
		return answers[0]
	}
	return strings.TrimSpace(summary)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or their lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
