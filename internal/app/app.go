package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/cortex-screenshots/internal/artifact"
	"github.com/bobmcallan/cortex-screenshots/internal/browser"
	"github.com/bobmcallan/cortex-screenshots/internal/capture"
	"github.com/bobmcallan/cortex-screenshots/internal/common"
	"github.com/bobmcallan/cortex-screenshots/internal/config"
)

// PageSession is a capture.Page that owns a browser and must be closed.
type PageSession interface {
	capture.Page
	Close() error
}

// Opener starts a browser session.
type Opener func(ctx context.Context, cfg browser.Config, logger *common.Logger) (PageSession, error)

// OpenBrowser is the chromedp-backed Opener.
func OpenBrowser(ctx context.Context, cfg browser.Config, logger *common.Logger) (PageSession, error) {
	s, err := browser.NewSession(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// App holds the components of one capture run.
type App struct {
	Config *config.Config
	Logger *common.Logger
	Store  *artifact.Store
	RunID  string

	open  Opener
	sleep capture.SleepFunc
}

// New initializes the application. The logger is tagged with a fresh run id.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", issues)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	runID := uuid.New().String()
	a := &App{
		Config: cfg,
		Logger: logger.WithCorrelationId(runID),
		Store:  artifact.NewStore(cfg.Output.Dir),
		RunID:  runID,
		open:   OpenBrowser,
		sleep:  capture.Sleep,
	}

	a.Logger.Debug().
		Str("base_url", cfg.BaseURL()).
		Str("output", a.Store.Dir()).
		Msg("application initialization complete")
	return a, nil
}

// WithOpener replaces the browser opener.
func (a *App) WithOpener(open Opener) *App {
	a.open = open
	return a
}

// WithSleep replaces the pause implementation used between steps.
func (a *App) WithSleep(fn capture.SleepFunc) *App {
	a.sleep = fn
	return a
}

// Run prepares the output directory, opens the browser, captures every step
// and verifies the written files. The browser is closed on every path.
func (a *App) Run(ctx context.Context, progress io.Writer) (report *capture.Report, err error) {
	start := time.Now()

	if err := a.Store.Prepare(); err != nil {
		return nil, err
	}

	page, err := a.open(ctx, browser.ConfigFrom(a.Config), a.Logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			a.Logger.Warn().Err(cerr).Msg("browser close failed")
		}
	}()

	out := capture.NewProgress(progress)
	seq := capture.New(page, a.Store, a.Logger, out, a.options()).WithSleep(a.sleep)

	report, err = seq.Run(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Int("written", len(report.Written)).Msg("capture run failed")
		return report, err
	}

	if err := a.Store.Verify(report.Written...); err != nil {
		return report, fmt.Errorf("verify screenshots: %w", err)
	}

	out.Done(a.Store.Dir())
	a.Logger.Info().
		Strs("written", report.Written).
		Strs("skipped", report.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("screenshots saved")
	return report, nil
}

func (a *App) options() capture.Options {
	cfg := a.Config
	login := capture.DefaultLogin(cfg.Auth.Email, cfg.Auth.Password)
	login.RedirectTimeout = cfg.Timing.GetLoginRedirectTimeout()

	return capture.Options{
		BaseURL: cfg.BaseURL(),
		Login:   login,
		Steps: capture.DefaultPlan(capture.PlanParams{
			TopicID:     cfg.Target.TopicID,
			SearchQuery: cfg.Target.SearchQuery,
			CSILinkText: cfg.Target.CSILinkText,
		}),
		IdleTimeout: cfg.Timing.GetNetworkIdleTimeout(),
	}
}
