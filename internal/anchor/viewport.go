package anchor

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/hsinghweb/web-history-search-rag/internal/match"
	"github.com/hsinghweb/web-history-search-rag/internal/page"
)

const (
	// PulseClass is the transient emphasis class applied to the best span.
	PulseClass = "whs-pulse"
	// focusAttr records the element scrolled into the viewport center.
	focusAttr = "data-whs-focus"
	// DefaultPulse is how long the emphasis stays on.
	DefaultPulse = 2 * time.Second
)

// Viewport is the scroll/emphasis controller. Among the spans a pass
// created it scores each against the target text, scrolls the best into
// view and applies a pulse that expires after a fixed window. The
// scheduler is injectable so tests control elapsed time.
type Viewport struct {
	log   *slog.Logger
	pulse time.Duration
	after func(time.Duration, func()) // scheduler; defaults to time.AfterFunc

	mu     sync.Mutex
	gen    int
	pulsed *html.Node
}

// NewViewport creates a controller with the given pulse window.
// A nil scheduler uses real timers.
func NewViewport(log *slog.Logger, pulse time.Duration, after func(time.Duration, func())) *Viewport {
	if pulse <= 0 {
		pulse = DefaultPulse
	}
	if after == nil {
		after = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	return &Viewport{log: log, pulse: pulse, after: after}
}

// Focus picks the best span of a role by match score (ties keep the
// first in document order), scrolls it into the viewport center and
// starts the pulse window.
func (v *Viewport) Focus(doc *page.Document, role page.Role, target string) {
	spans := doc.Spans(role)
	if len(spans) == 0 {
		return
	}
	best := spans[0]
	bestScore := match.Score(best.Text, target)
	for _, s := range spans[1:] {
		if score := match.Score(s.Text, target); score > bestScore {
			best, bestScore = s, score
		}
	}

	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.pulsed = best.Element
	v.mu.Unlock()

	best.Element.Attr = append(best.Element.Attr, html.Attribute{Key: focusAttr, Val: "smooth-center"})
	page.AddClass(best.Element, PulseClass)
	v.log.Debug("focused span", "role", string(role), "score", bestScore)

	v.after(v.pulse, func() { v.expire(gen) })
}

// expire removes the pulse class once the window elapses, unless a newer
// pass has taken over.
func (v *Viewport) expire(gen int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen || v.pulsed == nil {
		return
	}
	page.RemoveClass(v.pulsed, PulseClass)
	v.pulsed = nil
}

// CancelPulse invalidates any pending pulse expiry. Called at the start
// of a new pass, before the previous spans are cleared, so a stale timer
// never touches nodes the pass is about to remove.
func (v *Viewport) CancelPulse() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.pulsed = nil
}
