package motion

import (
	"sync"
	"time"
)

// TypingState is what a renderer reads for a typed heading.
type TypingState struct {
	Text         string `json:"text"`
	CursorActive bool   `json:"cursorActive"`
}

// TypingSequencer starts typing runs against a shared clock.
type TypingSequencer struct {
	clock Clock
}

// NewTypingSequencer returns a sequencer reading time from clock. A nil clock
// uses the system clock.
func NewTypingSequencer(clock Clock) *TypingSequencer {
	return &TypingSequencer{clock: clockOrSystem(clock)}
}

// Start begins revealing text one rune per perChar. Every call returns an
// independent run; a finished run cannot be restarted. Empty text and
// non-positive rates complete immediately.
func (s *TypingSequencer) Start(text string, perChar time.Duration) *Typing {
	now := s.clock.Now()
	t := &Typing{
		runes:    []rune(text),
		interval: perChar,
		started:  now,
		nextAt:   now.Add(perChar),
	}
	if perChar <= 0 {
		t.revealed = len(t.runes)
	}
	return t
}

// Typing is one typing run. Each Tick reveals at most one more rune, and the
// next rune is due perChar after the previous one appeared, so late frames
// delay the run but never skip a prefix.
type Typing struct {
	mu       sync.Mutex
	runes    []rune
	interval time.Duration
	revealed int
	started  time.Time
	nextAt   time.Time
	stopped  bool
}

// Tick advances the run if the next rune is due and reports whether the
// visible prefix changed.
func (t *Typing) Tick(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.revealed >= len(t.runes) {
		return false
	}
	if now.Before(t.nextAt) {
		return false
	}
	t.revealed++
	t.nextAt = now.Add(t.interval)
	return true
}

// State returns the visible prefix. The cursor is active until the run
// completes or is stopped.
func (t *Typing) State() TypingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TypingState{
		Text:         string(t.runes[:t.revealed]),
		CursorActive: !t.stopped && t.revealed < len(t.runes),
	}
}

// Revealed returns how many runes are visible.
func (t *Typing) Revealed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revealed
}

// Done reports whether the full text is visible.
func (t *Typing) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revealed >= len(t.runes)
}

// Started returns the instant the run began.
func (t *Typing) Started() time.Time {
	return t.started
}

// Stop abandons the run. Safe to call more than once.
func (t *Typing) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// CursorBlinkPeriod is the full fade cycle of the typing cursor.
const CursorBlinkPeriod = 800 * time.Millisecond

// CursorBlink is the periodic cursor fade shown next to a typing run. It is
// independent of typing progress.
type CursorBlink struct {
	Origin time.Time
	Period time.Duration
}

// NewCursorBlink starts a blink cycle at origin.
func NewCursorBlink(origin time.Time) CursorBlink {
	return CursorBlink{Origin: origin, Period: CursorBlinkPeriod}
}

// Opacity ramps from 1 down to 0 across each period.
func (b CursorBlink) Opacity(now time.Time) float64 {
	period := b.Period
	if period <= 0 {
		period = CursorBlinkPeriod
	}
	elapsed := now.Sub(b.Origin)
	if elapsed < 0 {
		return 1
	}
	phase := float64(elapsed%period) / float64(period)
	return 1 - phase
}

// Visible reports whether the cursor is in the lit half of its cycle.
func (b CursorBlink) Visible(now time.Time) bool {
	return b.Opacity(now) > 0.5
}
