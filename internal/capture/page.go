// Package capture walks a fixed plan of Cortex pages and writes one viewport
// screenshot per step.
package capture

import (
	"context"
)

// Page is the browser surface the sequencer drives. The chromedp session in
// internal/browser implements it; tests use capturetest.Page.
//
// Lookup methods (Query, QueryText) never wait: they report whether a
// matching element exists right now and return a selector that addresses
// exactly that element for later calls.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitNetworkIdle blocks until no request has been in flight for the
	// session's quiet period, or ctx is done.
	WaitNetworkIdle(ctx context.Context) error
	// WaitURLChange blocks until the page location differs from from.
	WaitURLChange(ctx context.Context, from string) error
	Location(ctx context.Context) (string, error)

	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	PressEnter(ctx context.Context, selector string) error

	Query(ctx context.Context, selector string) (string, bool, error)
	QueryText(ctx context.Context, tag, text string) (string, bool, error)

	ScrollIntoView(ctx context.Context, selector string) error
	ScrollBy(ctx context.Context, dx, dy int) error

	// Screenshot captures the visible viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// ArtifactWriter persists a captured image under name and returns its path.
type ArtifactWriter interface {
	Write(name string, data []byte) (string, error)
}
