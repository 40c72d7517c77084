package motion

import (
	"math"
	"sync"
)

// DefaultRevealThreshold is the visible-area fraction that reveals a section.
const DefaultRevealThreshold = 0.1

// Token identifies a registration. The zero Token is never issued and is
// returned for registrations that were ignored.
type Token uint64

// Intersection reports how much of a registered surface is inside the
// viewport, as a fraction of the surface's own area.
type Intersection struct {
	Handle string  `json:"section"`
	Ratio  float64 `json:"ratio"`
}

type observation struct {
	token     Token
	handle    string
	threshold float64
	onEntered func(handle string)
}

// ViewportObserver reports, once per registration, the first time a surface
// becomes visible past its threshold. A registration removes itself after
// firing, so leaving and re-entering the viewport never fires again.
type ViewportObserver struct {
	mu      sync.Mutex
	next    Token
	pending []*observation
}

// NewViewportObserver creates an observer with no registrations.
func NewViewportObserver() *ViewportObserver {
	return &ViewportObserver{}
}

// Register starts watching handle. onEntered runs once, the first time an
// observed ratio for handle reaches threshold. An empty handle or a nil
// callback is ignored and yields the zero Token.
func (o *ViewportObserver) Register(handle string, threshold float64, onEntered func(handle string)) Token {
	if handle == "" || onEntered == nil {
		return 0
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		threshold = DefaultRevealThreshold
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.next++
	o.pending = append(o.pending, &observation{
		token:     o.next,
		handle:    handle,
		threshold: threshold,
		onEntered: onEntered,
	})
	return o.next
}

// Unregister stops a registration. Unknown, fired and zero tokens are ignored.
func (o *ViewportObserver) Unregister(token Token) {
	if token == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, obs := range o.pending {
		if obs.token == token {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			return
		}
	}
}

// Observe feeds one batch of visibility measurements. Registrations that
// cross their threshold are removed and their callbacks run in registration
// order after the observer's lock is released, so callbacks may register or
// unregister freely.
func (o *ViewportObserver) Observe(batch []Intersection) {
	if len(batch) == 0 {
		return
	}
	// A handle may appear more than once when it entered and left within
	// one batch; the highest ratio decides.
	ratios := make(map[string]float64, len(batch))
	for _, in := range batch {
		if math.IsNaN(in.Ratio) {
			continue
		}
		if prev, ok := ratios[in.Handle]; !ok || in.Ratio > prev {
			ratios[in.Handle] = in.Ratio
		}
	}

	o.mu.Lock()
	var fired []*observation
	kept := o.pending[:0]
	for _, obs := range o.pending {
		ratio, ok := ratios[obs.handle]
		if ok && crosses(ratio, obs.threshold) {
			fired = append(fired, obs)
			continue
		}
		kept = append(kept, obs)
	}
	for i := len(kept); i < len(o.pending); i++ {
		o.pending[i] = nil
	}
	o.pending = kept
	o.mu.Unlock()

	for _, obs := range fired {
		obs.onEntered(obs.handle)
	}
}

// Watching reports whether token is still waiting to fire.
func (o *ViewportObserver) Watching(token Token) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, obs := range o.pending {
		if obs.token == token {
			return true
		}
	}
	return false
}

// Len returns the number of registrations still waiting to fire.
func (o *ViewportObserver) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

func crosses(ratio, threshold float64) bool {
	if math.IsNaN(ratio) || ratio <= 0 {
		return false
	}
	return ratio >= threshold
}

// IntersectionRatio returns the fraction of the span [top, top+height) that
// lies inside the viewport [viewTop, viewTop+viewHeight). Empty spans report 0.
func IntersectionRatio(top, height, viewTop, viewHeight float64) float64 {
	if height <= 0 || viewHeight <= 0 {
		return 0
	}
	lo := math.Max(top, viewTop)
	hi := math.Min(top+height, viewTop+viewHeight)
	if hi <= lo {
		return 0
	}
	return math.Min((hi-lo)/height, 1)
}
