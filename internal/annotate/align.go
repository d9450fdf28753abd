package annotate

import (
	"math"
	"sort"
	"strings"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// DefaultLabels maps raw diarizer labels to speaker names. The first voice
// heard is assumed to be the interviewer.
var DefaultLabels = map[string]string{
	"SPEAKER_00": string(models.RoleInterviewer),
	"SPEAKER_01": string(models.RoleCandidate),
}

const unknownSpeaker = string(models.RoleUnknown)

// Align assigns each text span to the speaker span it overlaps most, resolves
// the label through labels and merges adjacent spans with the same speaker.
// A span with no overlapping speaker, or a tie between speakers, is attributed
// to Unknown.
func Align(text []models.TextSpan, speakers []models.SpeakerSpan, labels map[string]string) []models.TranscriptTurn {
	spans := make([]models.TextSpan, len(text))
	copy(spans, text)
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	var turns []models.TranscriptTurn
	for _, span := range spans {
		txt := strings.TrimSpace(span.Text)
		if txt == "" {
			continue
		}

		speaker := resolve(bestSpeaker(span, speakers), labels)
		if n := len(turns); n > 0 && turns[n-1].Speaker == speaker {
			turns[n-1].Text += " " + txt
			turns[n-1].End = math.Max(turns[n-1].End, span.End)
			continue
		}
		turns = append(turns, models.TranscriptTurn{
			Role:    models.ParseRole(speaker),
			Speaker: speaker,
			Start:   span.Start,
			End:     span.End,
			Text:    txt,
		})
	}
	return turns
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	return math.Max(0, math.Min(aEnd, bEnd)-math.Max(aStart, bStart))
}

// bestSpeaker returns the raw label with maximal overlap, or "" when there is
// none or the best overlap is shared by two different labels.
func bestSpeaker(span models.TextSpan, speakers []models.SpeakerSpan) string {
	best := 0.0
	label := ""
	tied := false
	for _, s := range speakers {
		ov := overlap(span.Start, span.End, s.Start, s.End)
		switch {
		case ov > best:
			best, label, tied = ov, s.Label, false
		case ov == best && ov > 0 && s.Label != label:
			tied = true
		}
	}
	if best == 0 || tied {
		return ""
	}
	return label
}

func resolve(raw string, labels map[string]string) string {
	if raw == "" {
		return unknownSpeaker
	}
	if name, ok := labels[raw]; ok && name != "" {
		return name
	}
	return raw
}
