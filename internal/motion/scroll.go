package motion

import (
	"sync"
	"sync/atomic"
)

// NearTopOffset is the offset below which the page counts as at the top.
const NearTopOffset = 100

// DocumentMetrics reports the current document and viewport heights. It is
// read on every snapshot because the document grows as content loads.
type DocumentMetrics func() (scrollHeight, viewportHeight int)

// ScrollSnapshot is what a renderer reads for scroll-driven effects.
type ScrollSnapshot struct {
	OffsetPixels     int     `json:"offsetPixels"`
	IsNearTop        bool    `json:"isNearTop"`
	ProgressFraction float64 `json:"progressFraction"`
}

// ScrollTracker holds the vertical scroll offset. It has one writer, the
// scroll event source, and any number of readers. Readers get snapshots and
// must not assume they saw every write.
type ScrollTracker struct {
	offset  atomic.Int64
	metrics DocumentMetrics

	mu     sync.Mutex
	subs   map[uint64]func(int)
	nextID uint64
}

// NewScrollTracker creates a tracker at offset 0. metrics may be nil, in
// which case progress is always 0.
func NewScrollTracker(metrics DocumentMetrics) *ScrollTracker {
	return &ScrollTracker{
		metrics: metrics,
		subs:    make(map[uint64]func(int)),
	}
}

// Set records a scroll event. Negative offsets are clamped to 0.
func (s *ScrollTracker) Set(offset int) {
	if offset < 0 {
		offset = 0
	}
	s.offset.Store(int64(offset))

	s.mu.Lock()
	subs := make([]func(int), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(offset)
	}
}

// Current returns the latest offset.
func (s *ScrollTracker) Current() int {
	return int(s.offset.Load())
}

// IsNearTop reports whether the offset is under NearTopOffset.
func (s *ScrollTracker) IsNearTop() bool {
	return s.Current() < NearTopOffset
}

// MaxScrollable returns how far the document can scroll right now.
func (s *ScrollTracker) MaxScrollable() int {
	if s.metrics == nil {
		return 0
	}
	scrollHeight, viewportHeight := s.metrics()
	if limit := scrollHeight - viewportHeight; limit > 0 {
		return limit
	}
	return 0
}

// Progress returns offset / maxScrollable clamped to [0, 1]. A document
// that cannot scroll reports 0.
func (s *ScrollTracker) Progress() float64 {
	return progressOf(s.Current(), s.MaxScrollable())
}

// Snapshot reads offset and derived values together.
func (s *ScrollTracker) Snapshot() ScrollSnapshot {
	offset := s.Current()
	return ScrollSnapshot{
		OffsetPixels:     offset,
		IsNearTop:        offset < NearTopOffset,
		ProgressFraction: progressOf(offset, s.MaxScrollable()),
	}
}

// Subscribe calls fn with the new offset after every Set. The returned func
// unsubscribes and is safe to call more than once.
func (s *ScrollTracker) Subscribe(fn func(offset int)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (s *ScrollTracker) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func progressOf(offset, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	p := float64(offset) / float64(limit)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
