package capture

import (
	"context"
	"fmt"
)

// Lookup is one attempt at finding an element. It reports a selector for the
// match, or ok=false when the element is simply not on the page. A non-nil
// error means the browser failed, not that the element is absent.
type Lookup struct {
	Desc string
	Find func(ctx context.Context, p Page) (string, bool, error)
}

// BySelector finds the first element matching a CSS selector (or selector
// group) in document order.
func BySelector(selector string) Lookup {
	return Lookup{
		Desc: selector,
		Find: func(ctx context.Context, p Page) (string, bool, error) {
			return p.Query(ctx, selector)
		},
	}
}

// ByText finds the first visible element of the given tag whose text contains
// text. An empty tag matches the innermost element of any tag.
func ByText(tag, text string) Lookup {
	if tag == "" {
		tag = "*"
	}
	return Lookup{
		Desc: fmt.Sprintf("%s:text(%q)", tag, text),
		Find: func(ctx context.Context, p Page) (string, bool, error) {
			return p.QueryText(ctx, tag, text)
		},
	}
}

// ByTexts builds one ByText lookup per candidate, keeping their order.
func ByTexts(tag string, candidates ...string) []Lookup {
	lookups := make([]Lookup, 0, len(candidates))
	for _, c := range candidates {
		lookups = append(lookups, ByText(tag, c))
	}
	return lookups
}

// Acquire tries lookups in order and returns the first hit. The caller owns
// the terminal default when nothing matches.
func Acquire(ctx context.Context, p Page, lookups ...Lookup) (selector string, desc string, ok bool, err error) {
	for _, l := range lookups {
		sel, found, err := l.Find(ctx, p)
		if err != nil {
			return "", "", false, fmt.Errorf("lookup %s: %w", l.Desc, err)
		}
		if found {
			return sel, l.Desc, true, nil
		}
	}
	return "", "", false, nil
}
