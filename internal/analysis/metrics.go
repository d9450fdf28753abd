// Package analysis derives conversation-flow metrics from an annotated transcript.
package analysis

import (
	"math"
	"regexp"
	"strings"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Normalization regexes compiled once at package init.
var (
	reFiller     = regexp.MustCompile(`\b(u+m+|u+h+|e+r+m*|you know|i mean|basically|literally|sort of|kind of)\b`)
	rePunct      = regexp.MustCompile(`[^\p{L}\p{N}'\s]+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Metrics computes communication metrics over the transcript. Turns with an
// Unknown role count toward TurnCount only.
func Metrics(turns []models.TranscriptTurn) models.CommunicationMetrics {
	var (
		m            models.CommunicationMetrics
		answerWords  int
		answerTurns  int
		fillers      int
		latencySum   float64
		latencyCount int
	)

	m.TurnCount = len(turns)
	for i := range turns {
		t := &turns[i]
		dur := math.Max(0, t.End-t.Start)

		switch t.Role {
		case models.RoleInterviewer:
			m.InterviewerTalkSeconds += dur
		case models.RoleCandidate:
			m.CandidateTalkSeconds += dur
			norm := NormalizeText(t.Text)
			answerWords += len(strings.Fields(norm))
			fillers += len(reFiller.FindAllString(norm, -1))
			answerTurns++

			// Parsed transcripts carry no timing; skip them.
			if i > 0 && turns[i-1].Role == models.RoleInterviewer && turns[i-1].End > 0 {
				latencySum += math.Max(0, t.Start-turns[i-1].End)
				latencyCount++
			}
		}
	}

	if total := m.CandidateTalkSeconds + m.InterviewerTalkSeconds; total > 0 {
		m.CandidateTalkShare = round2(m.CandidateTalkSeconds / total)
	}
	if answerTurns > 0 {
		m.AvgAnswerWords = round2(float64(answerWords) / float64(answerTurns))
	}
	if answerWords > 0 {
		m.FillerWordRate = round2(float64(fillers) / float64(answerWords))
	}
	if latencyCount > 0 {
		m.AvgResponseLatency = round2(latencySum / float64(latencyCount))
	}
	m.CandidateTalkSeconds = round2(m.CandidateTalkSeconds)
	m.InterviewerTalkSeconds = round2(m.InterviewerTalkSeconds)
	return m
}

// NormalizeText lowercases text, strips punctuation and collapses whitespace.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = rePunct.ReplaceAllString(s, " ")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CountFillers returns the number of filler words and phrases in text.
func CountFillers(text string) int {
	return len(reFiller.FindAllString(NormalizeText(text), -1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
