package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/interviewbot/internal/agent"
	"github.com/kiranshivaraju/interviewbot/internal/annotate"
	"github.com/kiranshivaraju/interviewbot/internal/config"
	"github.com/kiranshivaraju/interviewbot/internal/invite"
	"github.com/kiranshivaraju/interviewbot/internal/report"
	"github.com/kiranshivaraju/interviewbot/internal/scheduler"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Dependencies is shared by all commands.
type Dependencies struct {
	Config *config.Config
}

func newRootCmd(deps *Dependencies) *cobra.Command {
	root := &cobra.Command{
		Use:           "interviewbot",
		Short:         "Join scheduled interviews, record them and score the candidate",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(deps))
	root.AddCommand(newServeCmd(deps))
	root.AddCommand(newJoinCmd(deps))
	root.AddCommand(newScoreCmd(deps))

	return root
}

func newRunCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the mailbox, join meetings when due and serve the read API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := deps.Config
			ctx := cmd.Context()

			status, closeCache, err := newCache(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer closeCache()

			ctrl, err := newController(cfg, status)
			if err != nil {
				return err
			}
			checkSpeech(ctx, cfg)

			scanner, err := invite.NewScanner(cfg.Mail.LinkPattern)
			if err != nil {
				return fmt.Errorf("meeting link pattern: %w", err)
			}

			var mailbox agent.Mailbox
			if cfg.MailEnabled() {
				mailbox = invite.NewIMAPMailbox(cfg.Mail.IMAPAddr, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.Mailbox)
			} else {
				slog.Warn("IMAP credentials not set, mailbox polling disabled")
			}

			a := agent.New(mailbox, scanner, scheduler.New(), ctrl, agent.Config{
				MailPollInterval: cfg.Mail.PollInterval,
				TickInterval:     cfg.Scheduler.TickInterval,
			})

			srv := newServer(cfg, status)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return a.Run(gctx) })
			g.Go(func() error { return serve(gctx, srv) })
			err = g.Wait()

			slog.Info("waiting for running sessions to finish")
			a.Wait()
			return err
		},
	}
}

func newServeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API for reports and session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, closeCache, err := newCache(cmd.Context(), deps.Config.Redis)
			if err != nil {
				return err
			}
			defer closeCache()

			return serve(cmd.Context(), newServer(deps.Config, status))
		},
	}
}

func newJoinCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "join <link>",
		Short: "Join a meeting now and run one session to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, closeCache, err := newCache(cmd.Context(), deps.Config.Redis)
			if err != nil {
				return err
			}
			defer closeCache()

			ctrl, err := newController(deps.Config, status)
			if err != nil {
				return err
			}
			checkSpeech(cmd.Context(), deps.Config)

			sess := ctrl.Run(cmd.Context(), invite.NormalizeLink(args[0]))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(sess); err != nil {
				return fmt.Errorf("write session: %w", err)
			}

			switch sess.Outcome {
			case models.OutcomeCompleted, models.OutcomeNoResponses:
				return nil
			default:
				return fmt.Errorf("session %s: %s", sess.ID, sess.Outcome)
			}
		},
	}
}

func newScoreCmd(deps *Dependencies) *cobra.Command {
	var candidate string

	cmd := &cobra.Command{
		Use:   "score <transcript>",
		Short: "Score an annotated transcript and write a candidate report",
		Long:  "Score a transcript of \"Speaker: text\" lines, as written next to each recording, and write the JSON and text report.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if candidate == "" {
				candidate = candidateFromPath(path)
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open transcript: %w", err)
			}
			defer f.Close()

			turns, err := annotate.ParseTranscript(f)
			if err != nil {
				return fmt.Errorf("parse transcript: %w", err)
			}

			engine, err := newEngine(deps.Config)
			if err != nil {
				return err
			}
			res, err := engine.Score(cmd.Context(), turns)
			if err != nil {
				return fmt.Errorf("score transcript: %w", err)
			}

			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintf(out, "No report written: %s\n", res.SkipReason)
				return nil
			}

			art, err := report.NewAssembler(deps.Config.Paths.Reports).Assemble(res, report.Metadata{
				SessionID:   uuid.NewString(),
				CandidateID: candidate,
				CreatedAt:   time.Now().UTC(),
			})
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			fmt.Fprintf(out, "%s (%.1f/10)\n", art.Report.Verdict, art.Report.Rating)
			fmt.Fprintf(out, "JSON report: %s\n", art.JSONPath)
			fmt.Fprintf(out, "Text report: %s\n", art.TextPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&candidate, "candidate", "c", "", "Candidate identifier for the report (default: transcript file name)")

	return cmd
}

func candidateFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimSuffix(name, "_annotated")
}
