// Package browser drives a meeting page in Chrome through the DevTools protocol.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/kiranshivaraju/interviewbot/internal/config"
	"github.com/kiranshivaraju/interviewbot/internal/session"
)

// ErrSelectorMissing is returned when a control the page should offer is absent.
var ErrSelectorMissing = errors.New("page element not found")

// Launcher starts one Chrome instance per session.
type Launcher struct {
	cfg config.BrowserConfig
}

// NewLauncher creates a Launcher.
func NewLauncher(cfg config.BrowserConfig) *Launcher {
	return &Launcher{cfg: cfg}
}

// Launch starts Chrome. The browser lives until Close, independent of ctx.
func (l *Launcher) Launch(ctx context.Context) (session.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(l.cfg)...)
	tab, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug("chrome", "message", fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			slog.Warn("chrome", "message", fmt.Sprintf(format, args...))
		}),
	)

	b := &Chrome{tab: tab, sel: l.cfg.Selectors, cancel: func() {
		tabCancel()
		allocCancel()
	}}

	// The first Run starts the browser process and ties it to the context it
	// is given, so it must be the tab itself and not a per-call child.
	if err := chromedp.Run(tab); err != nil {
		b.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return b, nil
}

func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("use-fake-ui-for-media-stream", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("profile-directory", "Default"),
	)
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Chrome is one running browser tab.
type Chrome struct {
	tab       context.Context
	sel       config.Selectors
	cancel    func()
	closeOnce sync.Once
}

func (b *Chrome) Open(ctx context.Context, link string) error {
	return b.run(ctx, chromedp.Navigate(link))
}

func (b *Chrome) MuteMicrophone(ctx context.Context) error {
	return b.run(ctx, chromedp.Click(b.sel.Microphone, chromedp.BySearch))
}

// DisableCamera clicks the camera toggle only while it reports the camera as on.
func (b *Chrome) DisableCamera(ctx context.Context) error {
	var (
		label string
		ok    bool
	)
	err := b.run(ctx,
		chromedp.WaitReady(b.sel.Camera, chromedp.BySearch),
		chromedp.AttributeValue(b.sel.Camera, "aria-label", &label, &ok, chromedp.BySearch),
	)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: camera toggle has no label", ErrSelectorMissing)
	}
	if label != b.sel.CameraOnLabel {
		slog.Debug("camera already off", "label", label)
		return nil
	}
	return b.run(ctx, chromedp.Click(b.sel.Camera, chromedp.BySearch))
}

func (b *Chrome) RequestAdmission(ctx context.Context) error {
	return b.run(ctx, chromedp.Click(b.sel.AskToJoin, chromedp.BySearch))
}

func (b *Chrome) WaitInCall(ctx context.Context) error {
	return b.run(ctx, chromedp.WaitVisible(b.sel.InCall, chromedp.BySearch))
}

// CallEnded reports whether the end-of-call indicator is on the page. It does
// not wait for the element to appear.
func (b *Chrome) CallEnded(ctx context.Context) (bool, error) {
	var n int
	if err := b.run(ctx, chromedp.Evaluate(xpathCountScript(b.sel.CallEnded), &n)); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close shuts down the tab and the browser process. It is safe to call twice.
func (b *Chrome) Close() error {
	b.closeOnce.Do(b.cancel)
	return nil
}

// run executes actions on the tab, bounded by ctx's deadline and cancellation.
func (b *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.tab)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// xpathCountScript returns a script evaluating to the number of nodes matching xpath.
func xpathCountScript(xpath string) string {
	quoted, _ := json.Marshal(xpath)
	return fmt.Sprintf(
		`document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength`,
		quoted,
	)
}

var (
	_ session.Launcher = (*Launcher)(nil)
	_ session.Browser  = (*Chrome)(nil)
)
