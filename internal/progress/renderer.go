// Package progress renders engine progress events on the console.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/ytget/ytgrab/internal/engine"
	"github.com/ytget/ytgrab/internal/model"
)

// DefaultInterval is the minimum time between two rendered lines
const DefaultInterval = 200 * time.Millisecond

// NotAvailable is printed for unknown values
const NotAvailable = "N/A"

// Renderer prints a progress line for downloading events. On a terminal the
// line is rewritten in place, otherwise every event gets its own line.
type Renderer struct {
	w       io.Writer
	tty     bool
	limiter *rate.Limiter
	mu      sync.Mutex
	lastLen int
	pending bool
}

// Option configures a Renderer
type Option func(*Renderer)

// WithTerminal overrides terminal detection
func WithTerminal(tty bool) Option {
	return func(r *Renderer) { r.tty = tty }
}

// WithInterval sets the minimum time between rendered lines
func WithInterval(d time.Duration) Option {
	return func(r *Renderer) { r.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// NewRenderer creates a renderer writing to w
func NewRenderer(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		w:       w,
		tty:     IsTerminal(w),
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsTerminal reports whether w is a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Handle is the engine progress hook. Only downloading events are shown.
func (r *Renderer) Handle(p engine.Progress) {
	if p.Status != engine.StatusDownloading {
		return
	}
	final := p.Percent >= 100
	if !final && !r.limiter.Allow() {
		return
	}
	r.render(FormatLine(p))
}

// HandleRemux is the remux progress hook; fraction is in [0,1]
func (r *Renderer) HandleRemux(fraction float64) {
	final := fraction >= 1
	if !final && !r.limiter.Allow() {
		return
	}
	r.render(FormatRemuxLine(fraction))
}

func (r *Renderer) render(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.tty {
		fmt.Fprintln(r.w, line)
		return
	}

	n := utf8.RuneCountInString(line)
	pad := ""
	if r.lastLen > n {
		pad = strings.Repeat(" ", r.lastLen-n)
	}
	fmt.Fprint(r.w, "\r"+line+pad)
	r.lastLen = n
	r.pending = true
}

// Done terminates an in-place line so following output starts on a new line
func (r *Renderer) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending {
		fmt.Fprintln(r.w)
		r.pending = false
		r.lastLen = 0
	}
}

// FormatLine formats a progress event as
// "⏳ Downloading: <percent> | Speed: <speed> | ETA: <eta>"
func FormatLine(p engine.Progress) string {
	return fmt.Sprintf("⏳ Downloading: %s | Speed: %s | ETA: %s",
		formatPercent(p.Percent), formatSpeed(p.Speed), formatETA(p.ETA))
}

// FormatRemuxLine formats remux progress as "🔧 Remuxing: <percent>"
func FormatRemuxLine(fraction float64) string {
	return "🔧 Remuxing: " + formatPercent(fraction*100)
}

func formatPercent(percent float64) string {
	if percent < 0 {
		return NotAvailable
	}
	if percent > 100 {
		percent = 100
	}
	return fmt.Sprintf("%.1f%%", percent)
}

func formatSpeed(speed float64) string {
	if speed <= 0 {
		return NotAvailable
	}
	return humanize.Bytes(uint64(speed)) + "/s"
}

func formatETA(eta time.Duration) string {
	if eta < 0 {
		return NotAvailable
	}
	sec := int(eta.Round(time.Second).Seconds())
	if sec == 0 {
		return "00:00"
	}
	return model.FormatETA(sec)
}
