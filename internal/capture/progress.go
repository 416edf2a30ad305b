package capture

import (
	"fmt"
	"io"
)

// Progress prints the human-facing run narrative. A nil writer discards it.
type Progress struct {
	w io.Writer
}

// NewProgress returns a Progress writing to w.
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = io.Discard
	}
	return &Progress{w: w}
}

func (p *Progress) LoggingIn() {
	fmt.Fprintln(p.w, "Logging in...")
}

func (p *Progress) Capturing(step string) {
	fmt.Fprintf(p.w, "Capturing %s...\n", step)
}

func (p *Progress) Wrote(file string) {
	fmt.Fprintf(p.w, "  -> %s\n", file)
}

// Done prints the closing line naming the output directory.
func (p *Progress) Done(dir string) {
	fmt.Fprintf(p.w, "\nDone! Screenshots saved to %s/\n", dir)
}
