package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/cortex-screenshots/internal/common"
)

// Step is one entry of the capture plan.
type Step struct {
	Name string // progress label, e.g. "topics page"
	// Path is appended to the base URL. Empty keeps the current page and its
	// scroll position.
	Path     string
	Settle   time.Duration // pause after the page reaches network idle
	Interact Interaction   // optional
	Output   string        // file name inside the output directory
}

// Interaction runs on the loaded page before the screenshot. Returning false
// skips the screenshot for this step.
type Interaction interface {
	Apply(ctx context.Context, a *Actor) (bool, error)
}

// Actor gives interactions the page plus the sequencer's waits.
type Actor struct {
	Page   Page
	Logger *common.Logger

	sleep    SleepFunc
	waitIdle func(ctx context.Context) error
}

// Pause sleeps for d.
func (a *Actor) Pause(ctx context.Context, d time.Duration) error {
	return a.sleep(ctx, d)
}

// Idle waits for network idle with the sequencer's patience.
func (a *Actor) Idle(ctx context.Context) error {
	return a.waitIdle(ctx)
}

// ScrollTo brings a named section into view. Candidates are tried in order;
// when none is on the page the viewport is scrolled blindly by Fallback.
type ScrollTo struct {
	Candidates []string
	Offset     int // applied after scrolling the match into view
	Fallback   int
	Pause      time.Duration
}

func (s ScrollTo) Apply(ctx context.Context, a *Actor) (bool, error) {
	sel, desc, ok, err := Acquire(ctx, a.Page, ByTexts("", s.Candidates...)...)
	if err != nil {
		return false, err
	}

	if !ok {
		a.Logger.Debug().Strs("candidates", s.Candidates).Int("dy", s.Fallback).Msg("no section heading found, blind scroll")
		if err := a.Page.ScrollBy(ctx, 0, s.Fallback); err != nil {
			return false, fmt.Errorf("scroll by %d: %w", s.Fallback, err)
		}
		return true, a.Pause(ctx, s.Pause)
	}

	a.Logger.Debug().Str("match", desc).Msg("section heading found")
	if err := a.Page.ScrollIntoView(ctx, sel); err != nil {
		return false, fmt.Errorf("scroll to %s: %w", desc, err)
	}
	if err := a.Pause(ctx, s.Pause); err != nil {
		return false, err
	}
	if s.Offset != 0 {
		if err := a.Page.ScrollBy(ctx, 0, s.Offset); err != nil {
			return false, fmt.Errorf("scroll by %d: %w", s.Offset, err)
		}
		if err := a.Pause(ctx, s.Pause); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Search types Query into the first input matching Selector and submits it.
// A page without a matching input is captured as-is.
type Search struct {
	Selector string
	Query    string
	Settle   time.Duration
}

func (s Search) Apply(ctx context.Context, a *Actor) (bool, error) {
	sel, _, ok, err := Acquire(ctx, a.Page, BySelector(s.Selector))
	if err != nil {
		return false, err
	}
	if !ok {
		a.Logger.Info().Str("selector", s.Selector).Msg("no search input, capturing empty state")
		return true, nil
	}

	if err := a.Page.Fill(ctx, sel, s.Query); err != nil {
		return false, err
	}
	if err := a.Page.PressEnter(ctx, sel); err != nil {
		return false, err
	}
	a.Logger.Debug().Str("query", s.Query).Msg("search submitted")
	return true, a.Pause(ctx, s.Settle)
}

// FollowLink clicks the first link whose text contains Text and waits for
// the destination to load. No such link means the step produces no file.
type FollowLink struct {
	Text   string
	Settle time.Duration
}

func (f FollowLink) Apply(ctx context.Context, a *Actor) (bool, error) {
	sel, _, ok, err := Acquire(ctx, a.Page, ByText("a", f.Text))
	if err != nil {
		return false, err
	}
	if !ok {
		a.Logger.Info().Str("text", f.Text).Msg("link not found, skipping")
		return false, nil
	}

	if err := a.Page.Click(ctx, sel); err != nil {
		return false, err
	}
	if err := a.Idle(ctx); err != nil {
		return false, err
	}
	return true, a.Pause(ctx, f.Settle)
}
