package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the position of a meeting attempt in the controller's state machine.
type SessionState string

const (
	StateJoining           SessionState = "joining"
	StateConfiguringMedia  SessionState = "configuring_media"
	StateAwaitingAdmission SessionState = "awaiting_admission"
	StateRecording         SessionState = "recording"
	StateEnding            SessionState = "ending"
	StateTerminated        SessionState = "terminated"
)

// Outcome is set once a session reaches StateTerminated.
type Outcome string

const (
	OutcomeCompleted      Outcome = "completed"
	OutcomeJoinFailed     Outcome = "join_failed"
	OutcomeCaptureFailed  Outcome = "capture_failed"
	OutcomePipelineFailed Outcome = "pipeline_failed"
	// OutcomeNoResponses means the call was recorded and transcribed but no
	// question/answer exchange was found, so no report was written.
	OutcomeNoResponses Outcome = "no_responses"
)

// Session tracks one meeting attempt end-to-end.
type Session struct {
	ID             uuid.UUID    `json:"id"`
	Link           string       `json:"link"`
	CandidateID    string       `json:"candidate_id"`
	State          SessionState `json:"state"`
	Outcome        Outcome      `json:"outcome,omitempty"`
	RecordingPath  string       `json:"recording_path,omitempty"`
	TranscriptPath string       `json:"transcript_path,omitempty"`
	ReportPath     string       `json:"report_path,omitempty"`
	Error          string       `json:"error,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	EndedAt        *time.Time   `json:"ended_at,omitempty"`
}

// AudioSegment is one block of PCM frames read from the capture device, with its
// offsets relative to the start of the recording.
type AudioSegment struct {
	Start  time.Duration
	End    time.Duration
	Frames []int
}
