package motion

import (
	"fmt"
	"sync"
	"time"
)

// Phase is where a section is in its reveal.
//
//	Hidden ──viewport──► Revealing ──sub-animations done──► Revealed
//
// No section ever returns to Hidden.
type Phase int

const (
	PhaseHidden Phase = iota
	PhaseRevealing
	PhaseRevealed
)

func (p Phase) String() string {
	switch p {
	case PhaseHidden:
		return "hidden"
	case PhaseRevealing:
		return "revealing"
	case PhaseRevealed:
		return "revealed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "hidden":
		*p = PhaseHidden
	case "revealing":
		*p = PhaseRevealing
	case "revealed":
		*p = PhaseRevealed
	default:
		return fmt.Errorf("motion: unknown phase %q", text)
	}
	return nil
}

// CounterSpec describes one animated statistic in a section.
type CounterSpec struct {
	Label    string
	Target   int
	Suffix   string
	Duration time.Duration
}

// SectionSpec describes a section and the animations its reveal starts.
type SectionSpec struct {
	ID string
	// Heading is typed out on reveal. Empty means no typed heading.
	Heading    string
	TypingRate time.Duration
	// Stagger lists entrance delays, measured from the reveal instant, for
	// the section's sub-elements.
	Stagger  []time.Duration
	Counters []CounterSpec
	// Threshold is the visible fraction that reveals the section. Zero
	// selects DefaultRevealThreshold.
	Threshold float64
	// Immediate sections reveal on registration instead of waiting for the
	// viewport.
	Immediate bool
}

// SectionState is what a renderer reads for one section.
type SectionState struct {
	ID       string         `json:"id"`
	Phase    Phase          `json:"phase"`
	Revealed bool           `json:"revealed"`
	Heading  *TypingState   `json:"heading,omitempty"`
	Entered  []bool         `json:"entered,omitempty"`
	Counters []CounterState `json:"counters,omitempty"`
}

type section struct {
	spec       SectionSpec
	token      Token
	phase      Phase
	revealedAt time.Time
	typing     *Typing
	counters   []*Counter
	entered    []bool
}

func (s *section) state() SectionState {
	st := SectionState{
		ID:       s.spec.ID,
		Phase:    s.phase,
		Revealed: s.phase != PhaseHidden,
		Entered:  append([]bool(nil), s.entered...),
	}
	if s.spec.Heading != "" {
		heading := TypingState{}
		if s.typing != nil {
			heading = s.typing.State()
		}
		st.Heading = &heading
	}
	for _, c := range s.counters {
		st.Counters = append(st.Counters, c.State())
	}
	return st
}

// Coordinator decides the animation phase of every registered section. It
// registers sections with a ViewportObserver and, on reveal, starts the
// section's typed heading, counters and staggered entrances. Tick advances
// those animations and should be called once per frame.
type Coordinator struct {
	clock    Clock
	observer *ViewportObserver
	typist   *TypingSequencer

	mu       sync.Mutex
	sections map[string]*section
	order    []string
	nextSub  int
	onReveal map[int]func(id string)
}

// NewCoordinator builds a coordinator over observer. A nil observer gets a
// private one.
func NewCoordinator(clock Clock, observer *ViewportObserver) *Coordinator {
	clock = clockOrSystem(clock)
	if observer == nil {
		observer = NewViewportObserver()
	}
	return &Coordinator{
		clock:    clock,
		observer: observer,
		typist:   NewTypingSequencer(clock),
		sections: make(map[string]*section),
		onReveal: make(map[int]func(string)),
	}
}

// Observer returns the observer sections are registered with.
func (c *Coordinator) Observer() *ViewportObserver { return c.observer }

// Register adds a section in the Hidden phase. It returns false, and does
// nothing, for an empty or already registered ID.
func (c *Coordinator) Register(spec SectionSpec) bool {
	if spec.ID == "" {
		return false
	}
	if spec.Threshold == 0 {
		spec.Threshold = DefaultRevealThreshold
	}

	c.mu.Lock()
	if _, ok := c.sections[spec.ID]; ok {
		c.mu.Unlock()
		return false
	}
	s := &section{
		spec:    spec,
		entered: make([]bool, len(spec.Stagger)),
	}
	for _, cs := range spec.Counters {
		s.counters = append(s.counters, NewCounter(cs.Target, cs.Duration))
	}
	c.sections[spec.ID] = s
	c.order = append(c.order, spec.ID)
	c.mu.Unlock()

	if spec.Immediate {
		c.reveal(spec.ID)
		return true
	}

	token := c.observer.Register(spec.ID, spec.Threshold, c.reveal)
	c.mu.Lock()
	if cur, ok := c.sections[spec.ID]; ok && cur == s {
		s.token = token
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()
	c.observer.Unregister(token)
	return true
}

// Unregister removes a section, stops its observation and abandons any
// running sub-animation. Unknown IDs are ignored.
func (c *Coordinator) Unregister(id string) {
	c.mu.Lock()
	s, ok := c.sections[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sections, id)
	for i, sid := range c.order {
		if sid == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.observer.Unregister(s.token)
	if s.typing != nil {
		s.typing.Stop()
	}
	for _, counter := range s.counters {
		counter.Stop()
	}
}

// Close unregisters every section and drops every OnReveal subscription.
func (c *Coordinator) Close() {
	c.mu.Lock()
	ids := append([]string(nil), c.order...)
	c.onReveal = make(map[int]func(string))
	c.mu.Unlock()
	for _, id := range ids {
		c.Unregister(id)
	}
}

// OnReveal calls fn with a section ID each time a section leaves Hidden.
// The returned func unsubscribes.
func (c *Coordinator) OnReveal(fn func(id string)) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.onReveal[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.onReveal, id)
		c.mu.Unlock()
	}
}

// reveal moves a section from Hidden to Revealing.
func (c *Coordinator) reveal(id string) {
	now := c.clock.Now()

	c.mu.Lock()
	s, ok := c.sections[id]
	if !ok || s.phase != PhaseHidden {
		c.mu.Unlock()
		return
	}
	s.phase = PhaseRevealing
	s.revealedAt = now
	s.token = 0
	if s.spec.Heading != "" {
		s.typing = c.typist.Start(s.spec.Heading, s.spec.TypingRate)
	}
	for _, counter := range s.counters {
		counter.Trigger(now)
	}
	listeners := make([]func(string), 0, len(c.onReveal))
	for _, fn := range c.onReveal {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(id)
	}
}

// Tick advances every revealing section to now and reports whether any
// visible state changed.
func (c *Coordinator) Tick(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	for _, id := range c.order {
		s := c.sections[id]
		if s.phase != PhaseRevealing {
			continue
		}
		done := true
		if s.typing != nil {
			if s.typing.Tick(now) {
				changed = true
			}
			done = done && s.typing.Done()
		}
		for _, counter := range s.counters {
			before := counter.State().Value
			if counter.Tick(now) != before {
				changed = true
			}
			done = done && counter.Done()
		}
		for i, delay := range s.spec.Stagger {
			if !s.entered[i] && !now.Before(s.revealedAt.Add(delay)) {
				s.entered[i] = true
				changed = true
			}
			done = done && s.entered[i]
		}
		if done {
			s.phase = PhaseRevealed
			changed = true
		}
	}
	return changed
}

// State returns the state of one section.
func (c *Coordinator) State(id string) (SectionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sections[id]
	if !ok {
		return SectionState{}, false
	}
	return s.state(), true
}

// States returns every section in registration order.
func (c *Coordinator) States() []SectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SectionState, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.sections[id].state())
	}
	return out
}

// Revealed reports whether a section has left Hidden.
func (c *Coordinator) Revealed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sections[id]
	return ok && s.phase != PhaseHidden
}

// Len returns the number of registered sections.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
