package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const urlPoll = 100 * time.Millisecond

// Navigate loads url and waits for its load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.idle.reset()
	return s.runTimed(ctx, chromedp.Navigate(url))
}

// WaitNetworkIdle blocks until no request has been in flight for the quiet
// period.
func (s *Session) WaitNetworkIdle(ctx context.Context) error {
	if err := s.idle.wait(ctx); err != nil {
		s.logger.Debug().Int("inflight", s.idle.inFlight()).Msg("network idle wait ended")
		return err
	}
	return nil
}

// WaitURLChange polls the location until it differs from from.
func (s *Session) WaitURLChange(ctx context.Context, from string) error {
	ticker := time.NewTicker(urlPoll)
	defer ticker.Stop()
	for {
		loc, err := s.Location(ctx)
		switch {
		case err == nil && loc != from:
			return nil
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			// the old document may be torn down mid-navigation
			s.logger.Debug().Err(err).Msg("location unavailable, retrying")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Fill waits for selector to become visible and replaces its value.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := s.runTimed(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return s.elementErr(ctx, "fill", selector, err)
	}
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(fillScript(selector, value), &ok)); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("fill %s: %w", selector, ErrElementNotFound)
	}
	return nil
}

// Click clicks selector. A click may start a navigation, so the network quiet
// period restarts.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.idle.touch()
	if err := s.runTimed(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return s.elementErr(ctx, "click", selector, err)
	}
	return nil
}

func (s *Session) PressEnter(ctx context.Context, selector string) error {
	s.idle.touch()
	if err := s.runTimed(ctx, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery)); err != nil {
		return s.elementErr(ctx, "press enter", selector, err)
	}
	return nil
}

// Query tags the first element matching selector and returns a selector
// addressing exactly that element. It does not wait.
func (s *Session) Query(ctx context.Context, selector string) (string, bool, error) {
	id := s.nextMarker()
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(queryScript(selector, id), &found)); err != nil {
		return "", false, fmt.Errorf("query %s: %w", selector, err)
	}
	if !found {
		return "", false, nil
	}
	return markerSelector(id), true, nil
}

// QueryText tags the innermost visible element of tag containing text.
func (s *Session) QueryText(ctx context.Context, tag, text string) (string, bool, error) {
	id := s.nextMarker()
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(textScript(tag, text, id), &found)); err != nil {
		return "", false, fmt.Errorf("query %s text %q: %w", tag, text, err)
	}
	if !found {
		return "", false, nil
	}
	return markerSelector(id), true, nil
}

func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	if err := s.runTimed(ctx, chromedp.ScrollIntoView(selector, chromedp.ByQuery)); err != nil {
		return s.elementErr(ctx, "scroll into view", selector, err)
	}
	return nil
}

func (s *Session) ScrollBy(ctx context.Context, dx, dy int) error {
	var ok bool
	return s.run(ctx, chromedp.Evaluate(scrollByScript(dx, dy), &ok))
}

// Screenshot captures the current viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// elementErr reports an exhausted element wait as ErrElementNotFound. The
// caller's own cancellation passes through unchanged.
func (s *Session) elementErr(ctx context.Context, action, selector string, err error) error {
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w within %s", action, selector, ErrElementNotFound, s.cfg.ElementTimeout)
	}
	return fmt.Errorf("%s %s: %w", action, selector, err)
}
