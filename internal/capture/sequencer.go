package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/cortex-screenshots/internal/common"
)

// Options configures a Sequencer.
type Options struct {
	BaseURL     string
	Login       Login
	Steps       []Step
	IdleTimeout time.Duration // patience for each network-idle wait
}

// Report lists what a run produced, in plan order.
type Report struct {
	Written []string // output file names
	Skipped []string // step names that produced no file
}

// Sequencer authenticates once and then runs every step in order. The first
// error aborts the run; later steps never execute.
type Sequencer struct {
	page     Page
	store    ArtifactWriter
	logger   *common.Logger
	progress *Progress
	sleep    SleepFunc
	opts     Options
}

// New creates a Sequencer. A nil logger is replaced by a silent one.
func New(page Page, store ArtifactWriter, logger *common.Logger, progress *Progress, opts Options) *Sequencer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if progress == nil {
		progress = NewProgress(nil)
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Sequencer{
		page:     page,
		store:    store,
		logger:   logger,
		progress: progress,
		sleep:    Sleep,
		opts:     opts,
	}
}

// WithSleep replaces the pause implementation.
func (s *Sequencer) WithSleep(fn SleepFunc) *Sequencer {
	s.sleep = fn
	return s
}

// Run logs in and captures every step.
func (s *Sequencer) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := s.Authenticate(ctx); err != nil {
		return report, fmt.Errorf("login: %w", err)
	}

	for _, step := range s.opts.Steps {
		written, err := s.runStep(ctx, step)
		if err != nil {
			return report, fmt.Errorf("capture step %q: %w", step.Name, err)
		}
		if written {
			report.Written = append(report.Written, step.Output)
		} else {
			report.Skipped = append(report.Skipped, step.Name)
		}
	}

	s.logger.Info().
		Int("written", len(report.Written)).
		Int("skipped", len(report.Skipped)).
		Msg("capture run complete")
	return report, nil
}

// Authenticate fills and submits the login form. Missing credential fields
// fail the run; a submit that never changes the URL does not.
func (s *Sequencer) Authenticate(ctx context.Context) error {
	l := s.opts.Login
	loginURL := s.opts.BaseURL + l.Path
	s.progress.LoggingIn()

	if err := s.page.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("navigate %s: %w", loginURL, err)
	}
	if err := s.waitIdle(ctx); err != nil {
		return err
	}
	from, err := s.page.Location(ctx)
	if err != nil {
		return fmt.Errorf("read location: %w", err)
	}

	if err := s.page.Fill(ctx, l.EmailSelector, l.Email); err != nil {
		return err
	}
	if err := s.page.Fill(ctx, l.PasswordSelector, l.Password); err != nil {
		return err
	}
	if err := s.page.Click(ctx, l.SubmitSelector); err != nil {
		return err
	}

	redirected, err := Optimistic(ctx, l.RedirectTimeout, func(ctx context.Context) error {
		return s.page.WaitURLChange(ctx, from)
	})
	if err != nil {
		return fmt.Errorf("wait for redirect: %w", err)
	}
	if !redirected {
		s.logger.Warn().
			Str("url", from).
			Dur("timeout", l.RedirectTimeout).
			Msg("login did not navigate away, continuing")
	}

	if err := s.waitIdle(ctx); err != nil {
		return err
	}
	if err := s.sleep(ctx, l.Settle); err != nil {
		return err
	}

	s.logger.Info().Str("email", l.Email).Msg("logged in")
	return nil
}

func (s *Sequencer) runStep(ctx context.Context, step Step) (bool, error) {
	start := time.Now()
	s.progress.Capturing(step.Name)

	if step.Path != "" {
		url := s.opts.BaseURL + step.Path
		s.logger.Debug().Str("step", step.Name).Str("url", url).Msg("navigating")
		if err := s.page.Navigate(ctx, url); err != nil {
			return false, fmt.Errorf("navigate %s: %w", url, err)
		}
		if err := s.waitIdle(ctx); err != nil {
			return false, err
		}
		if err := s.sleep(ctx, step.Settle); err != nil {
			return false, err
		}
	}

	if step.Interact != nil {
		capture, err := step.Interact.Apply(ctx, s.actor())
		if err != nil {
			return false, err
		}
		if !capture {
			s.logger.Info().Str("step", step.Name).Msg("step skipped")
			return false, nil
		}
	}

	img, err := s.page.Screenshot(ctx)
	if err != nil {
		return false, fmt.Errorf("screenshot: %w", err)
	}
	path, err := s.store.Write(step.Output, img)
	if err != nil {
		return false, err
	}

	s.progress.Wrote(step.Output)
	s.logger.Info().
		Str("step", step.Name).
		Str("path", path).
		Int("bytes", len(img)).
		Dur("elapsed", time.Since(start)).
		Msg("screenshot written")
	return true, nil
}

// waitIdle waits for network idle, treating an exhausted wait as settled.
func (s *Sequencer) waitIdle(ctx context.Context) error {
	idle, err := Optimistic(ctx, s.opts.IdleTimeout, s.page.WaitNetworkIdle)
	if err != nil {
		return fmt.Errorf("wait for network idle: %w", err)
	}
	if !idle {
		s.logger.Warn().Dur("timeout", s.opts.IdleTimeout).Msg("network never went idle, continuing")
	}
	return nil
}

func (s *Sequencer) actor() *Actor {
	return &Actor{
		Page:     s.page,
		Logger:   s.logger,
		sleep:    s.sleep,
		waitIdle: s.waitIdle,
	}
}
