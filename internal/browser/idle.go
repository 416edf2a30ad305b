package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

const idlePoll = 50 * time.Millisecond

// idleTracker counts in-flight requests from network events. The page is idle
// once nothing has been in flight for the quiet period.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
	quiet    time.Duration
	now      func() time.Time
}

func newIdleTracker(quiet time.Duration) *idleTracker {
	t := &idleTracker{
		inflight: map[network.RequestID]struct{}{},
		quiet:    quiet,
		now:      time.Now,
	}
	t.last = t.now()
	return t
}

// handle is registered with chromedp.ListenTarget.
func (t *idleTracker) handle(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.last = t.now()
}

// reset forgets requests of the previous document.
func (t *idleTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.inflight)
	t.last = t.now()
}

// touch restarts the quiet period.
func (t *idleTracker) touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = t.now()
}

func (t *idleTracker) inFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

func (t *idleTracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.last) >= t.quiet
}

// wait blocks until the page is idle or ctx is done.
func (t *idleTracker) wait(ctx context.Context) error {
	if t.idle() {
		return nil
	}
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.idle() {
				return nil
			}
		}
	}
}
