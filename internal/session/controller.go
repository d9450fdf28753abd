// Package session drives one meeting attempt from join to report.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/interviewbot/internal/cache"
	"github.com/kiranshivaraju/interviewbot/internal/capture"
	"github.com/kiranshivaraju/interviewbot/internal/config"
	"github.com/kiranshivaraju/interviewbot/internal/invite"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Config holds the controller's timeouts and output location.
type Config struct {
	ControlTimeout     time.Duration
	AdmissionTimeout   time.Duration
	InCallTimeout      time.Duration
	PollInterval       time.Duration
	MaxSessionDuration time.Duration
	StopTimeout        time.Duration
	RecordingsDir      string
}

// ConfigFrom builds a controller Config from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		ControlTimeout:     cfg.Browser.ControlTimeout,
		AdmissionTimeout:   cfg.Browser.AdmissionTimeout,
		InCallTimeout:      cfg.Browser.InCallTimeout,
		PollInterval:       cfg.Browser.PollInterval,
		MaxSessionDuration: cfg.Browser.MaxSessionDuration,
		StopTimeout:        cfg.Capture.StopTimeout,
		RecordingsDir:      cfg.Paths.Recordings,
	}
}

// Controller runs sessions. It holds no per-session state and may run many
// sessions concurrently.
type Controller struct {
	launcher Launcher
	recorder Recorder
	pipeline Processor
	status   cache.Cache
	cfg      Config
}

const (
	defaultPollInterval = 5 * time.Second
	defaultStopTimeout  = 30 * time.Second
)

// NewController creates a Controller. status may be nil.
func NewController(launcher Launcher, recorder Recorder, pipeline Processor, status cache.Cache, cfg Config) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	return &Controller{launcher: launcher, recorder: recorder, pipeline: pipeline, status: status, cfg: cfg}
}

// run is the mutable state of one session. It is owned by a single goroutine.
type run struct {
	c      *Controller
	sess   *models.Session
	log    *slog.Logger
	closer func()
}

// Run joins the meeting at link, records it until the call ends and processes
// the recording. It always returns a terminated session; failures are
// reported through its Outcome and Error rather than returned.
func (c *Controller) Run(ctx context.Context, link string) (sess *models.Session) {
	sess = &models.Session{
		ID:          uuid.New(),
		Link:        link,
		CandidateID: invite.MeetingCode(link),
		StartedAt:   time.Now().UTC(),
	}
	r := &run{
		c:    c,
		sess: sess,
		log:  slog.With("session_id", sess.ID, "link", link),
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("panic in session", "state", sess.State, "error", p, "stack", string(debug.Stack()))
			r.terminate(ctx, panicOutcome(sess.State), fmt.Errorf("panic: %v", p))
		}
	}()
	defer r.closeBrowser()

	outcome, err := r.execute(ctx)
	r.terminate(ctx, outcome, err)
	return sess
}

func (r *run) execute(ctx context.Context) (models.Outcome, error) {
	cfg := r.c.cfg

	r.transition(ctx, models.StateJoining)
	browser, err := r.join(ctx)
	if err != nil {
		return models.OutcomeJoinFailed, err
	}

	r.transition(ctx, models.StateConfiguringMedia)
	r.configureMedia(ctx, browser)

	r.transition(ctx, models.StateAwaitingAdmission)
	if err := r.awaitAdmission(ctx, browser); err != nil {
		return models.OutcomeJoinFailed, err
	}

	r.transition(ctx, models.StateRecording)
	rec, err := r.c.recorder.Start(ctx, cfg.RecordingsDir)
	if err != nil {
		return models.OutcomeCaptureFailed, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	r.sess.RecordingPath = rec.Path()

	// The capture task must never outlive the session, panics included.
	stopped := false
	defer func() {
		if !stopped {
			rec.Stop()
		}
	}()

	reason := r.monitor(ctx, browser, rec)
	r.log.Info("leaving call", "reason", reason)

	r.transition(ctx, models.StateEnding)
	res, err := r.stopCapture(rec)
	stopped = true
	if err != nil {
		return models.OutcomePipelineFailed, err
	}
	if res.Err != nil {
		r.log.Warn("recording ended early, keeping partial file", "error", res.Err, "frames", res.Frames)
	}
	r.closeBrowser()

	r.transition(ctx, models.StateTerminated)
	// Processing finishes even when shutdown has begun.
	return r.c.pipeline.Process(context.WithoutCancel(ctx), r.sess)
}

func (r *run) join(ctx context.Context) (Browser, error) {
	b, err := r.c.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: launch browser: %w", ErrJoinFailed, err)
	}
	var once sync.Once
	r.closer = func() {
		once.Do(func() {
			if err := b.Close(); err != nil {
				r.log.Warn("close browser", "error", err)
			}
		})
	}

	if err := r.bounded(ctx, r.c.cfg.ControlTimeout, func(ctx context.Context) error { return b.Open(ctx, r.sess.Link) }); err != nil {
		return nil, fmt.Errorf("%w: open meeting: %w", ErrJoinFailed, err)
	}
	return b, nil
}

// configureMedia mutes the microphone and disables the camera. Failures are
// logged and ignored; joining unmuted is preferable to not joining.
func (r *run) configureMedia(ctx context.Context, b Browser) {
	if err := r.bounded(ctx, r.c.cfg.ControlTimeout, b.MuteMicrophone); err != nil {
		r.log.Warn("microphone control", "error", fmt.Errorf("%w: %w", ErrMediaConfig, err))
	}
	if err := r.bounded(ctx, r.c.cfg.ControlTimeout, b.DisableCamera); err != nil {
		r.log.Warn("camera control", "error", fmt.Errorf("%w: %w", ErrMediaConfig, err))
	}
}

func (r *run) awaitAdmission(ctx context.Context, b Browser) error {
	if err := r.bounded(ctx, r.c.cfg.AdmissionTimeout, b.RequestAdmission); err != nil {
		return fmt.Errorf("%w: request admission: %w", ErrJoinFailed, err)
	}
	if err := r.bounded(ctx, r.c.cfg.InCallTimeout, b.WaitInCall); err != nil {
		return fmt.Errorf("%w: not admitted: %w", ErrJoinFailed, err)
	}
	return nil
}

// monitor blocks until the call should be left and returns why.
func (r *run) monitor(ctx context.Context, b Browser, rec Recording) string {
	cfg := r.c.cfg
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var watchdog <-chan time.Time
	if cfg.MaxSessionDuration > 0 {
		t := time.NewTimer(cfg.MaxSessionDuration)
		defer t.Stop()
		watchdog = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return "cancelled"
		case <-rec.Done():
			return "capture exited"
		case <-watchdog:
			return "max session duration"
		case <-ticker.C:
			var ended bool
			err := r.bounded(ctx, cfg.ControlTimeout, func(ctx context.Context) error {
				var err error
				ended, err = b.CallEnded(ctx)
				return err
			})
			if err != nil {
				r.log.Debug("end-of-call check", "error", err)
				continue
			}
			if ended {
				return "call ended"
			}
		}
	}
}

// stopCapture requests a stop and waits for the acknowledgement. It ignores
// the session context so the file is flushed during shutdown too.
func (r *run) stopCapture(rec Recording) (capture.Result, error) {
	rec.Stop()

	timer := time.NewTimer(r.c.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-rec.Done():
		return rec.Result(), nil
	case <-timer.C:
		return capture.Result{}, fmt.Errorf("%w after %s", ErrStopTimeout, r.c.cfg.StopTimeout)
	}
}

func (r *run) bounded(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}

func (r *run) closeBrowser() {
	if r.closer != nil {
		r.closer()
	}
}

// panicOutcome maps the state a panic interrupted to the outcome it implies.
func panicOutcome(state models.SessionState) models.Outcome {
	switch state {
	case models.StateJoining, models.StateConfiguringMedia, models.StateAwaitingAdmission:
		return models.OutcomeJoinFailed
	case models.StateRecording, models.StateEnding:
		return models.OutcomeCaptureFailed
	default:
		return models.OutcomePipelineFailed
	}
}

func (r *run) transition(ctx context.Context, state models.SessionState) {
	r.sess.State = state
	r.log.Info("session state", "state", state)
	publish(ctx, r.c.status, r.sess)
}

func (r *run) terminate(ctx context.Context, outcome models.Outcome, err error) {
	if r.sess.Outcome != "" {
		return
	}
	now := time.Now().UTC()
	r.sess.State = models.StateTerminated
	r.sess.Outcome = outcome
	r.sess.EndedAt = &now

	attrs := []any{"outcome", outcome, "duration", now.Sub(r.sess.StartedAt).Round(time.Second).String()}
	if err != nil {
		r.sess.Error = err.Error()
		attrs = append(attrs, "error", err)
	}
	switch {
	case outcome == models.OutcomeCompleted || outcome == models.OutcomeNoResponses:
		r.log.Info("session finished", attrs...)
	case errors.Is(err, context.Canceled):
		r.log.Warn("session cancelled", attrs...)
	default:
		r.log.Error("session failed", attrs...)
	}
	publish(ctx, r.c.status, r.sess)
}
