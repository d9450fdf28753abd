// Package agent is the long-running loop that turns mailed invites into
// recorded, scored sessions.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kiranshivaraju/interviewbot/internal/invite"
	"github.com/kiranshivaraju/interviewbot/internal/scheduler"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Mailbox is the source of inbound messages.
type Mailbox interface {
	Unseen(ctx context.Context) ([]invite.Message, error)
	MarkSeen(ctx context.Context, uids []uint32) error
}

// Runner runs one session to completion.
type Runner interface {
	Run(ctx context.Context, link string) *models.Session
}

// Config sets the loop cadence.
type Config struct {
	MailPollInterval time.Duration
	TickInterval     time.Duration
}

// Agent polls the mailbox, schedules invites and dispatches due jobs.
type Agent struct {
	mailbox Mailbox
	scanner *invite.Scanner
	sched   *scheduler.Scheduler
	runner  Runner
	cfg     Config
	now     func() time.Time
	wg      sync.WaitGroup
}

// New creates an Agent. A nil mailbox disables mail polling; jobs can still be
// added through Dispatch.
func New(mailbox Mailbox, scanner *invite.Scanner, sched *scheduler.Scheduler, runner Runner, cfg Config) *Agent {
	if cfg.MailPollInterval <= 0 {
		cfg.MailPollInterval = time.Minute
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Agent{
		mailbox: mailbox,
		scanner: scanner,
		sched:   sched,
		runner:  runner,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run drives the loop until ctx is cancelled. The mailbox is checked once
// immediately. Sessions already dispatched keep running; use Wait to join them.
func (a *Agent) Run(ctx context.Context) error {
	slog.Info("agent started",
		"mail_enabled", a.mailbox != nil,
		"mail_poll_interval", a.cfg.MailPollInterval.String(),
		"tick_interval", a.cfg.TickInterval.String(),
	)

	var mailC <-chan time.Time
	if a.mailbox != nil {
		a.checkMail(ctx)
		t := time.NewTicker(a.cfg.MailPollInterval)
		defer t.Stop()
		mailC = t.C
	}
	tick := time.NewTicker(a.cfg.TickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("agent stopping", "pending_jobs", a.sched.Len())
			return nil
		case <-mailC:
			a.checkMail(ctx)
		case <-tick.C:
			a.Tick(ctx)
		}
	}
}

func (a *Agent) checkMail(ctx context.Context) {
	n, err := a.CheckMail(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("mail check failed", "error", err)
		}
		return
	}
	if n > 0 {
		slog.Info("invites scheduled", "count", n)
	}
}

// CheckMail fetches unseen messages, schedules the invites they carry and
// marks every fetched message seen. It returns the number of new jobs.
func (a *Agent) CheckMail(ctx context.Context) (int, error) {
	if a.mailbox == nil {
		return 0, nil
	}
	msgs, err := a.mailbox.Unseen(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch unseen: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	created := 0
	uids := make([]uint32, 0, len(msgs))
	for _, m := range msgs {
		uids = append(uids, m.UID)
		inv, err := a.scanner.Scan(bytes.NewReader(m.Raw))
		if err != nil {
			if !errors.Is(err, invite.ErrNoInvite) {
				slog.Warn("unreadable message", "uid", m.UID, "error", err)
			}
			continue
		}
		job, ok := a.sched.Schedule(*inv)
		if !ok {
			slog.Info("invite already scheduled", "link", job.Link, "fire_at", job.FireAt)
			continue
		}
		slog.Info("invite scheduled", "job_id", job.ID, "link", job.Link, "subject", job.Subject, "fire_at", job.FireAt)
		created++
	}

	if err := a.mailbox.MarkSeen(ctx, uids); err != nil {
		return created, fmt.Errorf("mark seen: %w", err)
	}
	return created, nil
}

// Tick dispatches every job that is due.
func (a *Agent) Tick(ctx context.Context) int {
	jobs := a.sched.Poll(a.now())
	for _, job := range jobs {
		slog.Info("job due", "job_id", job.ID, "link", job.Link)
		a.Dispatch(ctx, job.Link)
	}
	return len(jobs)
}

// Dispatch runs a session for link on its own goroutine. A panicking session
// is logged and never reaches the loop.
func (a *Agent) Dispatch(ctx context.Context, link string) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in session dispatch", "link", link, "error", r, "stack", string(debug.Stack()))
			}
		}()
		sess := a.runner.Run(ctx, link)
		if sess != nil {
			slog.Info("session done", "session_id", sess.ID, "link", link, "outcome", sess.Outcome)
		}
	}()
}

// Wait blocks until every dispatched session has returned.
func (a *Agent) Wait() {
	a.wg.Wait()
}
