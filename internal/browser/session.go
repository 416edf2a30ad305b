// Package browser drives a headless Chrome tab over the DevTools protocol and
// exposes it as a capture.Page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/cortex-screenshots/internal/common"
	"github.com/bobmcallan/cortex-screenshots/internal/config"
)

// ErrElementNotFound is returned when an element action finds no element.
var ErrElementNotFound = errors.New("element not found")

// Config controls how the browser is started and how long element actions
// wait.
type Config struct {
	Headless  bool
	Width     int64
	Height    int64
	Scale     float64
	ExecPath  string
	RemoteURL string // DevTools endpoint of an already running Chrome

	ElementTimeout time.Duration // element waits and navigation
	IdleQuiet      time.Duration
}

// DefaultConfig returns the documentation viewport: 1440x900 at 2x.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		Width:          1440,
		Height:         900,
		Scale:          2,
		ElementTimeout: 30 * time.Second,
		IdleQuiet:      500 * time.Millisecond,
	}
}

// ConfigFrom maps the [browser] and [timing] sections onto a Config.
func ConfigFrom(c *config.Config) Config {
	return Config{
		Headless:       c.Browser.Headless,
		Width:          c.Browser.Width,
		Height:         c.Browser.Height,
		Scale:          c.Browser.Scale,
		ExecPath:       strings.TrimSpace(c.Browser.ExecPath),
		RemoteURL:      strings.TrimSpace(c.Browser.RemoteURL),
		ElementTimeout: c.Browser.GetElementTimeout(),
		IdleQuiet:      c.Timing.GetNetworkIdleQuiet(),
	}
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(int(cfg.Width), int(cfg.Height)),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Session is one browser tab. It implements capture.Page.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config
	logger *common.Logger
	idle   *idleTracker
	marker atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// NewSession starts (or attaches to) Chrome, opens a tab with the network
// domain enabled and applies the viewport. The returned Session must be
// closed.
func NewSession(ctx context.Context, cfg Config, logger *common.Logger) (*Session, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if cfg.ElementTimeout <= 0 {
		cfg.ElementTimeout = 30 * time.Second
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.RemoteURL != "" {
		logger.Info().Str("url", cfg.RemoteURL).Msg("attaching to remote chrome")
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		logger.Info().Bool("headless", cfg.Headless).Str("exec_path", cfg.ExecPath).Msg("launching chrome")
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug().Str("source", "chromedp").Msgf(format, args...)
		}),
	)

	s := &Session{
		ctx:    tabCtx,
		cfg:    cfg,
		logger: logger,
		idle:   newIdleTracker(cfg.IdleQuiet),
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}
	chromedp.ListenTarget(tabCtx, s.handleEvent)

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		emulation.SetDeviceMetricsOverride(cfg.Width, cfg.Height, cfg.Scale, false),
	); err != nil {
		s.cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	logger.Debug().
		Int64("width", cfg.Width).
		Int64("height", cfg.Height).
		Float64("scale", cfg.Scale).
		Msg("browser ready")
	return s, nil
}

func (s *Session) handleEvent(ev any) {
	if e, ok := ev.(*cdpruntime.EventExceptionThrown); ok {
		desc := e.ExceptionDetails.Text
		if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
			desc = e.ExceptionDetails.Exception.Description
		}
		s.logger.Debug().Str("exception", desc).Msg("page exception")
		return
	}
	s.idle.handle(ev)
}

// Close shuts the tab and, for a launched browser, the Chrome process. It is
// safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
		s.cancel()
		s.logger.Debug().Msg("browser closed")
	})
	return s.closeErr
}

// run executes actions on the tab, bounded by the deadline and cancellation
// of the caller's ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		runCtx, dcancel = context.WithDeadline(runCtx, deadline)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// runTimed is run with the element timeout applied on top of ctx.
func (s *Session) runTimed(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.ElementTimeout)
	defer cancel()
	return s.run(tctx, actions...)
}

func (s *Session) nextMarker() int64 {
	return s.marker.Add(1)
}
