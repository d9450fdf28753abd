package session

import (
	"context"

	"github.com/kiranshivaraju/interviewbot/internal/annotate"
	"github.com/kiranshivaraju/interviewbot/internal/capture"
	"github.com/kiranshivaraju/interviewbot/internal/report"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Launcher starts a browser for one session.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser drives the meeting page. Every method must return once ctx is done.
type Browser interface {
	Open(ctx context.Context, link string) error
	MuteMicrophone(ctx context.Context) error
	DisableCamera(ctx context.Context) error
	RequestAdmission(ctx context.Context) error
	WaitInCall(ctx context.Context) error
	CallEnded(ctx context.Context) (bool, error)
	Close() error
}

// Recorder starts the capture task for a session.
type Recorder interface {
	Start(ctx context.Context, dir string) (Recording, error)
}

// Recording is a running capture task. Done is closed once the file is
// flushed and closed; Result is valid after that.
type Recording interface {
	Path() string
	Stop()
	Done() <-chan struct{}
	Result() capture.Result
}

// CaptureRecorder adapts a capture.Service to Recorder.
func CaptureRecorder(svc *capture.Service) Recorder {
	return captureRecorder{svc: svc}
}

type captureRecorder struct {
	svc *capture.Service
}

func (r captureRecorder) Start(ctx context.Context, dir string) (Recording, error) {
	h, err := r.svc.Start(ctx, dir)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Annotator turns a recording into speaker-attributed turns.
type Annotator interface {
	Annotate(ctx context.Context, recordingPath string) (*annotate.Transcript, error)
}

// Scorer rates an annotated transcript.
type Scorer interface {
	Score(ctx context.Context, turns []models.TranscriptTurn) (*models.ScoreResult, error)
}

// Assembler persists a score as a report.
type Assembler interface {
	Assemble(result *models.ScoreResult, meta report.Metadata) (*report.Artifact, error)
}

// Processor runs post-call processing for a terminated session.
type Processor interface {
	Process(ctx context.Context, sess *models.Session) (models.Outcome, error)
}
