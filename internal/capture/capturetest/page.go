// Package capturetest provides scripted stand-ins for the browser page and
// the artifact store so capture runs can be exercised without Chrome.
package capturetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strings"
	"sync"
)

// ErrNotFound is returned by element actions on a selector the current page
// does not contain, standing in for an exhausted element wait.
var ErrNotFound = errors.New("element not found")

// Content describes one scripted page.
type Content struct {
	Selectors map[string]bool   // CSS selectors present on the page
	Texts     []string          // visible text blocks (headings, labels)
	Links     map[string]string // anchor text -> destination path
	SubmitTo  string            // path the submit button navigates to
	SearchTo  string            // path pressing Enter in the search box navigates to
}

// Page is a scripted capture.Page. Every call is appended to Calls.
type Page struct {
	mu sync.Mutex

	Base  string
	Pages map[string]*Content

	// BlockIdle makes WaitNetworkIdle block until its context is done.
	BlockIdle bool
	// BlockRedirect keeps the location unchanged after submit.
	BlockRedirect bool
	// Fail maps a call string (as recorded in Calls) to the error it returns.
	Fail map[string]error

	Calls []string

	path    string
	scrollY int
	handles map[string]string
	seq     int
}

// NewCortex returns a Page scripted like a healthy Cortex instance.
func NewCortex(base, topicID string) *Page {
	return &Page{
		Base: strings.TrimRight(base, "/"),
		Pages: map[string]*Content{
			"/login": {
				Selectors: map[string]bool{
					`input[type="email"]`:    true,
					`input[type="password"]`: true,
					`button[type="submit"]`:  true,
				},
				SubmitTo: "/",
			},
			"/": {
				Texts: []string{"Dashboard", "Recent activity"},
			},
			"/topics": {
				Texts: []string{"Topics"},
				Links: map[string]string{
					"SPY VWAP Mean Reversion": "/topics/" + topicID,
					"CSI Backtesting":         "/topics/csi-backtesting",
				},
			},
			"/topics/" + topicID: {
				Texts: []string{"SPY VWAP Mean Reversion", "First Principles", "Progress Scorecard", "AI Research Pipeline", "Run Full Cycle"},
			},
			"/topics/csi-backtesting": {
				Texts: []string{"CSI Backtesting"},
			},
			"/search": {
				Selectors: map[string]bool{
					`input[type="text"], input[type="search"], input[placeholder*="earch"]`: true,
				},
				SearchTo: "/search?q=decision+architecture",
			},
		},
		Fail:    map[string]error{},
		handles: map[string]string{},
	}
}

// WithoutCSILink removes the CSI Backtesting link from the topics page.
func (p *Page) WithoutCSILink() *Page {
	delete(p.Pages["/topics"].Links, "CSI Backtesting")
	return p
}

// WithoutLoginFields strips the credential inputs from the login page.
func (p *Page) WithoutLoginFields() *Page {
	p.Pages["/login"].Selectors = map[string]bool{`button[type="submit"]`: true}
	return p
}

// WithoutSearchInput removes every input from the search page.
func (p *Page) WithoutSearchInput() *Page {
	p.Pages["/search"].Selectors = nil
	return p
}

// WithoutSections removes the scorecard and pipeline headings from path.
func (p *Page) WithoutSections(path string) *Page {
	p.Pages[path].Texts = []string{"SPY VWAP Mean Reversion"}
	return p
}

// Path returns the current page path.
func (p *Page) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

// CallLog returns a copy of the recorded calls.
func (p *Page) CallLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Calls))
	copy(out, p.Calls)
	return out
}

func (p *Page) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, call)
	return p.Fail[call]
}

func (p *Page) content() *Content {
	if c, ok := p.Pages[strings.SplitN(p.path, "?", 2)[0]]; ok {
		return c
	}
	return &Content{}
}

func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if err := p.record("navigate " + path); err != nil {
		return err
	}
	p.mu.Lock()
	p.path = path
	p.scrollY = 0
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) WaitNetworkIdle(ctx context.Context) error {
	if err := p.record("idle"); err != nil {
		return err
	}
	if p.BlockIdle {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *Page) WaitURLChange(ctx context.Context, from string) error {
	if err := p.record("wait-url"); err != nil {
		return err
	}
	loc, _ := p.Location(ctx)
	if loc != from {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *Page) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Base + p.path, nil
}

// resolve maps a selector or a handle returned by Query/QueryText to the
// selector on the current page.
func (p *Page) resolve(selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if target, ok := p.handles[selector]; ok {
		return target, true
	}
	c := p.content()
	return selector, c.Selectors[selector]
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	if err := p.record("fill " + selector); err != nil {
		return err
	}
	if _, ok := p.resolve(selector); !ok {
		return fmt.Errorf("fill %s: %w", selector, ErrNotFound)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.record("click " + selector); err != nil {
		return err
	}
	target, ok := p.resolve(selector)
	if !ok {
		return fmt.Errorf("click %s: %w", selector, ErrNotFound)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.content()
	switch {
	case strings.HasPrefix(target, "link:"):
		if dest, ok := c.Links[strings.TrimPrefix(target, "link:")]; ok {
			p.path = dest
			p.scrollY = 0
		}
	case c.SubmitTo != "" && !p.BlockRedirect:
		p.path = c.SubmitTo
	}
	return nil
}

func (p *Page) PressEnter(ctx context.Context, selector string) error {
	if err := p.record("enter " + selector); err != nil {
		return err
	}
	if _, ok := p.resolve(selector); !ok {
		return fmt.Errorf("press enter %s: %w", selector, ErrNotFound)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.content(); c.SearchTo != "" {
		p.path = c.SearchTo
	}
	return nil
}

func (p *Page) handle(target string) string {
	p.seq++
	h := fmt.Sprintf(`[data-capture="%d"]`, p.seq)
	p.handles[h] = target
	return h
}

func (p *Page) Query(ctx context.Context, selector string) (string, bool, error) {
	if err := p.record("query " + selector); err != nil {
		return "", false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.content().Selectors[selector] {
		return "", false, nil
	}
	return p.handle(selector), true, nil
}

func (p *Page) QueryText(ctx context.Context, tag, text string) (string, bool, error) {
	if err := p.record(fmt.Sprintf("text %s %s", tag, text)); err != nil {
		return "", false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	needle := strings.ToLower(text)
	c := p.content()
	for linkText := range c.Links {
		if strings.Contains(strings.ToLower(linkText), needle) {
			return p.handle("link:" + linkText), true, nil
		}
	}
	if tag == "a" {
		return "", false, nil
	}
	for _, t := range c.Texts {
		if strings.Contains(strings.ToLower(t), needle) {
			return p.handle("text:" + t), true, nil
		}
	}
	return "", false, nil
}

func (p *Page) ScrollIntoView(ctx context.Context, selector string) error {
	target, ok := p.resolve(selector)
	if err := p.record("scroll-into-view " + target); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("scroll into view %s: %w", selector, ErrNotFound)
	}
	p.mu.Lock()
	p.scrollY += 1000
	p.mu.Unlock()
	return nil
}

func (p *Page) ScrollBy(ctx context.Context, dx, dy int) error {
	if err := p.record(fmt.Sprintf("scroll-by %d %d", dx, dy)); err != nil {
		return err
	}
	p.mu.Lock()
	p.scrollY += dy
	p.mu.Unlock()
	return nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	call := fmt.Sprintf("screenshot %s@%d", p.path, p.scrollY)
	p.mu.Unlock()
	if err := p.record(call); err != nil {
		return nil, err
	}
	return PNG(), nil
}

// PNG returns a small valid PNG image.
func PNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
