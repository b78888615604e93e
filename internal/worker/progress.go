package worker

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Progress receives per-item progress from the Driver
type Progress interface {
	Begin(total int)
	Step(index, total int, name string)
	Finish(s Summary)
}

// NopProgress discards progress
type NopProgress struct{}

func (NopProgress) Begin(int)             {}
func (NopProgress) Step(int, int, string) {}
func (NopProgress) Finish(Summary)        {}

// LineProgress rewrites a single terminal line per item. When w is not a
// terminal it writes one plain line per item instead.
type LineProgress struct {
	w   io.Writer
	tty bool
}

// NewLineProgress creates a progress line writing to w
func NewLineProgress(w io.Writer) *LineProgress {
	return &LineProgress{w: w, tty: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *LineProgress) Begin(total int) {}

func (p *LineProgress) Step(index, total int, name string) {
	if !p.tty {
		_, _ = fmt.Fprintf(p.w, "[%d/%d] Processing: %s\n", index, total, name)
		return
	}
	// \033[K clears what a longer previous name left behind
	_, _ = fmt.Fprintf(p.w, "\r\033[K[%d/%d] Processing: %s", index, total, name)
}

func (p *LineProgress) Finish(s Summary) {
	if p.tty {
		_, _ = fmt.Fprintln(p.w)
	}
	_, _ = fmt.Fprintf(p.w, "%d processed: %d ok, %d failed", s.Total, s.Success, s.Failed)
	if s.Cached > 0 {
		_, _ = fmt.Fprintf(p.w, " (%d from cache)", s.Cached)
	}
	_, _ = fmt.Fprintf(p.w, " in %s\n", s.Duration.Round(time.Millisecond))
}
