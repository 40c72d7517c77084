package motion

import (
	"encoding/json"
	"testing"
	"time"
)

func aboutSpec() SectionSpec {
	return SectionSpec{
		ID:         "about",
		Heading:    "About",
		TypingRate: 100 * time.Millisecond,
		Stagger:    []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 600 * time.Millisecond},
		Counters: []CounterSpec{
			{Label: "Projects", Target: 14, Duration: time.Second},
			{Label: "Awards", Target: 3, Duration: time.Second},
		},
	}
}

func TestCoordinator_Lifecycle(t *testing.T) {
	clock := NewManualClock(epoch)
	c := NewCoordinator(clock, nil)
	if !c.Register(aboutSpec()) {
		t.Fatal("register failed")
	}

	st, _ := c.State("about")
	if st.Phase != PhaseHidden || st.Revealed || st.Heading.Text != "" {
		t.Fatalf("initial state = %+v", st)
	}
	c.Tick(clock.Advance(time.Second))
	if st, _ := c.State("about"); st.Counters[0].Value != 0 {
		t.Fatalf("hidden counter advanced to %d", st.Counters[0].Value)
	}

	c.Observer().Observe([]Intersection{{Handle: "about", Ratio: 0.3}})
	if !c.Revealed("about") {
		t.Fatal("section not revealed")
	}

	c.Tick(clock.Advance(250 * time.Millisecond))
	st, _ = c.State("about")
	if st.Phase != PhaseRevealing {
		t.Errorf("phase = %v, want revealing", st.Phase)
	}
	if want := []bool{true, false, false}; st.Entered[0] != want[0] || st.Entered[1] != want[1] {
		t.Errorf("entered = %v, want %v", st.Entered, want)
	}
	if st.Heading.Text != "A" || !st.Heading.CursorActive {
		t.Errorf("heading = %+v", st.Heading)
	}

	for i := 0; i < 100; i++ {
		c.Tick(clock.Advance(50 * time.Millisecond))
	}
	st, _ = c.State("about")
	if st.Phase != PhaseRevealed {
		t.Fatalf("phase = %v, want revealed", st.Phase)
	}
	if st.Heading.Text != "About" || st.Heading.CursorActive {
		t.Errorf("heading = %+v", st.Heading)
	}
	if st.Counters[0].Value != 14 || st.Counters[1].Value != 3 {
		t.Errorf("counters = %+v", st.Counters)
	}
}

// TestCoordinator_NeverHidesAgain verifies a revealed section stays revealed
// whatever the viewport does afterwards.
func TestCoordinator_NeverHidesAgain(t *testing.T) {
	clock := NewManualClock(epoch)
	c := NewCoordinator(clock, nil)
	c.Register(SectionSpec{ID: "projects", Heading: "Projects", TypingRate: 10 * time.Millisecond})

	reveals := 0
	c.OnReveal(func(string) { reveals++ })
	for i := 0; i < 5; i++ {
		c.Observer().Observe([]Intersection{{Handle: "projects", Ratio: 0.5}})
		c.Tick(clock.Advance(20 * time.Millisecond))
		c.Observer().Observe([]Intersection{{Handle: "projects", Ratio: 0}})
		c.Tick(clock.Advance(20 * time.Millisecond))
		if !c.Revealed("projects") {
			t.Fatalf("iteration %d: section hidden again", i)
		}
	}
	if reveals != 1 {
		t.Errorf("reveals = %d, want 1", reveals)
	}
}

func TestCoordinator_Immediate(t *testing.T) {
	clock := NewManualClock(epoch)
	c := NewCoordinator(clock, nil)
	c.Register(SectionSpec{ID: "hero", Immediate: true})
	if !c.Revealed("hero") {
		t.Fatal("immediate section not revealed")
	}
	c.Tick(clock.Now())
	if st, _ := c.State("hero"); st.Phase != PhaseRevealed {
		t.Errorf("phase = %v, want revealed", st.Phase)
	}
	if c.Observer().Len() != 0 {
		t.Error("immediate section should not be observed")
	}
}

func TestCoordinator_RegisterGuards(t *testing.T) {
	c := NewCoordinator(nil, nil)
	if c.Register(SectionSpec{}) {
		t.Error("empty ID registered")
	}
	if !c.Register(SectionSpec{ID: "resume"}) {
		t.Fatal("register failed")
	}
	if c.Register(SectionSpec{ID: "resume"}) {
		t.Error("duplicate ID registered")
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

// TestCoordinator_UnregisterMidAnimation verifies early removal releases the
// observer registration and freezes running sub-animations.
func TestCoordinator_UnregisterMidAnimation(t *testing.T) {
	clock := NewManualClock(epoch)
	c := NewCoordinator(clock, nil)
	c.Register(aboutSpec())
	c.Register(SectionSpec{ID: "contact", Heading: "Contact"})

	c.Observer().Observe([]Intersection{{Handle: "about", Ratio: 1}})
	c.Tick(clock.Advance(100 * time.Millisecond))

	c.Unregister("about")
	c.Unregister("about")
	c.Unregister("contact")
	c.Unregister("missing")

	if c.Len() != 0 {
		t.Errorf("len = %d", c.Len())
	}
	if c.Observer().Len() != 0 {
		t.Errorf("observer still holds %d registrations", c.Observer().Len())
	}
	if _, ok := c.State("about"); ok {
		t.Error("state still available after unregister")
	}
	c.Observer().Observe([]Intersection{{Handle: "contact", Ratio: 1}})
	c.Tick(clock.Advance(time.Second))
}

func TestCoordinator_StatesJSON(t *testing.T) {
	clock := NewManualClock(epoch)
	c := NewCoordinator(clock, nil)
	c.Register(SectionSpec{ID: "hero", Immediate: true})
	c.Register(SectionSpec{ID: "resume", Heading: "Resume"})

	raw, err := json.Marshal(c.States())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded []struct {
		ID       string `json:"id"`
		Phase    string `json:"phase"`
		Revealed bool   `json:"revealed"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 2 || decoded[0].ID != "hero" || decoded[1].Phase != "hidden" || decoded[1].Revealed {
		t.Errorf("decoded = %+v", decoded)
	}
}
