package models

import "strings"

// Role is the part a speaker plays in an interview.
type Role string

const (
	RoleInterviewer Role = "Interviewer"
	RoleCandidate   Role = "Candidate"
	RoleUnknown     Role = "Unknown"
)

// ParseRole classifies a speaker label. Matching is case-insensitive and accepts
// the common synonyms produced by annotators and hand-written transcripts.
func ParseRole(label string) Role {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "":
		return RoleUnknown
	case strings.Contains(l, "interviewer"):
		return RoleInterviewer
	case strings.Contains(l, "candidate"), strings.Contains(l, "interviewee"):
		return RoleCandidate
	default:
		return RoleUnknown
	}
}

// TextSpan is a timestamped piece of recognized speech. Times are seconds from
// the start of the recording.
type TextSpan struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SpeakerSpan is a timestamped speaker label produced by diarization.
type SpeakerSpan struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"speaker"`
}

// TranscriptTurn is a maximal run of text attributed to one resolved speaker.
type TranscriptTurn struct {
	Role    Role    `json:"role"`
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}
