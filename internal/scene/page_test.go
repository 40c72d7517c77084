package scene

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Zachkp/orbit-portfolio/internal/content"
	"github.com/Zachkp/orbit-portfolio/internal/motion"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mountTest(t *testing.T, derive bool) (*Page, *motion.ManualClock) {
	t.Helper()
	c, err := content.Default()
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	clock := motion.NewManualClock(epoch)
	p, err := Mount(Options{
		Clock:            clock,
		Content:          c,
		DeriveVisibility: derive,
		Rand:             rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(p.Unmount)
	return p, clock
}

func TestMount_RequiresContent(t *testing.T) {
	if _, err := Mount(Options{}); err == nil {
		t.Fatal("expected error without content")
	}
}

func TestMount_HeroRevealsImmediately(t *testing.T) {
	p, clock := mountTest(t, true)

	hero, ok := p.Section(SectionHero)
	if !ok || hero.Phase != motion.PhaseRevealing {
		t.Fatalf("hero = %+v, ok=%v", hero, ok)
	}
	about, _ := p.Section(SectionAbout)
	if about.Revealed {
		t.Fatal("about revealed before it was scrolled to")
	}

	p.Tick(clock.Advance(2 * time.Second))
	hero, _ = p.Section(SectionHero)
	if hero.Phase != motion.PhaseRevealed {
		t.Errorf("hero phase after stagger = %v", hero.Phase)
	}
	for i, in := range hero.Entered {
		if !in {
			t.Errorf("hero element %d not entered", i)
		}
	}
}

func TestPage_DerivedScrollReveals(t *testing.T) {
	p, clock := mountTest(t, true)

	var revealed []string
	p.OnReveal(func(id string) { revealed = append(revealed, id) })

	// 100px of the 1800px about section is on screen: below the 10% threshold.
	p.Scroll(100)
	if st, _ := p.Section(SectionAbout); st.Revealed {
		t.Fatal("about revealed at 100px")
	}

	p.Scroll(300)
	if st, _ := p.Section(SectionAbout); !st.Revealed {
		t.Fatal("about not revealed at 300px")
	}
	if st, _ := p.Section(SectionProjects); st.Revealed {
		t.Fatal("projects revealed early")
	}
	if len(revealed) != 1 || revealed[0] != SectionAbout {
		t.Fatalf("OnReveal calls = %v", revealed)
	}

	p.Tick(clock.Advance(150 * time.Millisecond))
	st, _ := p.Section(SectionAbout)
	if st.Heading == nil || st.Heading.Text != "A" {
		t.Fatalf("heading after one step = %+v", st.Heading)
	}

	p.Tick(clock.Advance(2 * time.Second))
	st, _ = p.Section(SectionAbout)
	want := []int{14, 30, 3, 100}
	if len(st.Counters) != len(want) {
		t.Fatalf("counters = %+v", st.Counters)
	}
	for i, w := range want {
		if st.Counters[i].Value != w {
			t.Errorf("counter %d = %d, want %d", i, st.Counters[i].Value, w)
		}
	}

	// Scrolling back up never hides a revealed section.
	p.Scroll(0)
	if st, _ := p.Section(SectionAbout); !st.Revealed {
		t.Fatal("about hidden again after scrolling up")
	}
}

func TestPage_HostObservedVisibility(t *testing.T) {
	p, _ := mountTest(t, false)

	p.Scroll(2000)
	if st, _ := p.Section(SectionAbout); st.Revealed {
		t.Fatal("scroll revealed a section without derived visibility")
	}
	p.Observe([]motion.Intersection{{Handle: SectionAbout, Ratio: 0.2}})
	if st, _ := p.Section(SectionAbout); !st.Revealed {
		t.Fatal("observed intersection did not reveal about")
	}
}

func TestPage_Snapshot(t *testing.T) {
	p, _ := mountTest(t, true)

	snap := p.Snapshot()
	if !snap.Rocket.NearTop || snap.Rocket.Clickable || snap.Rocket.Rotation != 0 {
		t.Errorf("rocket at top = %+v", snap.Rocket)
	}
	if snap.Rocket.FlameOpacity != 0.5 || snap.Rocket.FlameHeight != 20 {
		t.Errorf("flame at top = %v/%v", snap.Rocket.FlameOpacity, snap.Rocket.FlameHeight)
	}
	if snap.HeaderScrolled {
		t.Error("header scrolled at offset 0")
	}
	if snap.AboutParallax != 100 {
		t.Errorf("about parallax at top = %v", snap.AboutParallax)
	}
	if len(snap.Sections) != 5 || snap.Sections[0].ID != SectionHero {
		t.Fatalf("sections = %+v", snap.Sections)
	}

	before := snap.Version
	p.Scroll(5400)
	snap = p.Snapshot()
	if snap.Version <= before {
		t.Errorf("version did not move on scroll: %d -> %d", before, snap.Version)
	}
	if snap.Scroll.ProgressFraction != 1 {
		t.Errorf("progress at bottom = %v", snap.Scroll.ProgressFraction)
	}
	if snap.Rocket.NearTop || !snap.Rocket.Clickable || snap.Rocket.Rotation != -90 {
		t.Errorf("rocket at bottom = %+v", snap.Rocket)
	}
	if snap.Rocket.FlameOpacity != 1 || snap.Rocket.FlameHeight != 50 {
		t.Errorf("flame at bottom = %v/%v", snap.Rocket.FlameOpacity, snap.Rocket.FlameHeight)
	}
	if !snap.HeaderScrolled {
		t.Error("header not scrolled at bottom")
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"phase":"revealing"`, `"isNearTop":false`, `"satellites":[`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("snapshot JSON missing %s", want)
		}
	}
}

func TestPage_StationFrameProducer(t *testing.T) {
	c, _ := content.Default()
	clock := motion.NewManualClock(epoch)
	var poses []Pose
	p, err := Mount(Options{
		Clock:        clock,
		Content:      c,
		Rand:         rand.New(rand.NewSource(1)),
		StationFrame: func(pose Pose) { poses = append(poses, pose) },
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	p.Tick(clock.Advance(time.Second))
	p.Tick(clock.Advance(time.Second))
	p.Unmount()
	p.Tick(clock.Advance(time.Second))

	if len(poses) != 2 {
		t.Fatalf("producer called %d times, want 2", len(poses))
	}
	if poses[1].Hub.X <= poses[0].Hub.X {
		t.Errorf("hub did not rotate: %v -> %v", poses[0].Hub.X, poses[1].Hub.X)
	}
}

// TestPage_UnmountWaitsForRunningFrame verifies Unmount from another
// goroutine does not tear down while a frame callback is still running.
func TestPage_UnmountWaitsForRunningFrame(t *testing.T) {
	c, _ := content.Default()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls, inside atomic.Int32
	p, err := Mount(Options{
		Clock:   motion.NewManualClock(epoch),
		Content: c,
		Rand:    rand.New(rand.NewSource(1)),
		StationFrame: func(Pose) {
			if calls.Add(1) == 1 {
				close(entered)
			}
			inside.Add(1)
			<-release
			inside.Add(-1)
		},
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	runDone := make(chan struct{})
	go func() {
		p.Run(context.Background(), time.Millisecond)
		close(runDone)
	}()
	<-entered

	unmounted := make(chan struct{})
	go func() {
		p.Unmount()
		close(unmounted)
	}()
	select {
	case <-unmounted:
		t.Fatal("Unmount returned while the station frame was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	select {
	case <-unmounted:
	case <-time.After(5 * time.Second):
		t.Fatal("Unmount did not return")
	}
	<-runDone
	if n := inside.Load(); n != 0 {
		t.Errorf("%d station frames still running", n)
	}
	if n := p.Resources(); n != 0 {
		t.Errorf("resources after unmount = %d", n)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("station frame ran %d times, want 1", got)
	}
}

func TestMount_OnRevealSeesHero(t *testing.T) {
	c, _ := content.Default()
	var revealed []string
	p, err := Mount(Options{
		Clock:            motion.NewManualClock(epoch),
		Content:          c,
		Rand:             rand.New(rand.NewSource(1)),
		DeriveVisibility: true,
		OnReveal:         func(id string) { revealed = append(revealed, id) },
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	p.Unmount()
	if len(revealed) != 1 || revealed[0] != SectionHero {
		t.Errorf("revealed during mount = %v, want [hero]", revealed)
	}
}

func TestPage_CursorBlinksWithoutVersionChange(t *testing.T) {
	p, clock := mountTest(t, true)
	if _, typing := p.Cursor(); typing {
		t.Fatal("cursor active before any heading is typing")
	}

	p.Scroll(300)
	p.Tick(clock.Advance(150 * time.Millisecond))
	first, typing := p.Cursor()
	if !typing {
		t.Fatal("cursor inactive while the about heading types")
	}
	v := p.Version()

	clock.Advance(200 * time.Millisecond)
	second, _ := p.Cursor()
	if second >= first {
		t.Errorf("opacity did not fade: %v -> %v", first, second)
	}
	if p.Version() != v {
		t.Errorf("blink bumped version %d -> %d", v, p.Version())
	}
}

func TestPage_ProjectCardsStagger(t *testing.T) {
	p, clock := mountTest(t, false)
	items := len(p.Content().Projects.Items)
	if items < 2 {
		t.Fatalf("need at least two projects, have %d", items)
	}

	p.Observe([]motion.Intersection{{Handle: SectionProjects, Ratio: 1}})
	st, _ := p.Section(SectionProjects)
	if len(st.Entered) != ProjectCardStagger+items {
		t.Fatalf("entrances = %d, want %d", len(st.Entered), ProjectCardStagger+items)
	}

	p.Tick(clock.Advance(550 * time.Millisecond))
	st, _ = p.Section(SectionProjects)
	if !st.Entered[ProjectCardStagger] || st.Entered[ProjectCardStagger+1] {
		t.Errorf("at 550ms cards = %v, want only the first", st.Entered[ProjectCardStagger:])
	}

	p.Tick(clock.Advance(50 * time.Millisecond))
	st, _ = p.Section(SectionProjects)
	if !st.Entered[ProjectCardStagger+1] {
		t.Error("second card not entered 100ms after the first")
	}

	about := SectionSpecs(p.Content())[1]
	images := len(p.Content().About.Images)
	if len(about.Stagger) != AboutImageStagger+images {
		t.Fatalf("about entrances = %d, want %d", len(about.Stagger), AboutImageStagger+images)
	}
	if images > 1 && about.Stagger[AboutImageStagger+1] != 600*time.Millisecond {
		t.Errorf("second image delay = %v, want 600ms", about.Stagger[AboutImageStagger+1])
	}
}

func TestPage_UnmountReleasesEverything(t *testing.T) {
	p, clock := mountTest(t, true)
	if p.Resources() == 0 {
		t.Fatal("mounted page reports no resources")
	}

	p.Scroll(300)
	p.Unmount()
	p.Unmount()

	if n := p.Resources(); n != 0 {
		t.Fatalf("resources after unmount = %d", n)
	}
	if !p.Closed() {
		t.Fatal("page not closed")
	}

	v := p.Version()
	p.Scroll(1000)
	p.Observe([]motion.Intersection{{Handle: SectionProjects, Ratio: 1}})
	p.Tick(clock.Advance(time.Second))
	if p.Version() != v {
		t.Errorf("version moved after unmount: %d -> %d", v, p.Version())
	}
	if st, ok := p.Section(SectionProjects); ok && st.Revealed {
		t.Error("section revealed after unmount")
	}
}

func TestPage_UnmountMidAnimation(t *testing.T) {
	p, clock := mountTest(t, true)
	p.Scroll(300)
	p.Tick(clock.Advance(150 * time.Millisecond))

	calls := 0
	p.OnReveal(func(string) { calls++ })
	p.Unmount()

	p.Tick(clock.Advance(10 * time.Second))
	p.Observe([]motion.Intersection{{Handle: SectionContact, Ratio: 1}})
	if calls != 0 {
		t.Errorf("OnReveal called %d times after unmount", calls)
	}
}

func TestPage_Resize(t *testing.T) {
	p, _ := mountTest(t, false)
	p.Resize(10900, 900)
	p.Scroll(5000)
	if got := p.Snapshot().Scroll.ProgressFraction; got != 0.5 {
		t.Errorf("progress after resize = %v, want 0.5", got)
	}
	p.Resize(0, 0)
	if got := p.Layout().Viewport; got != 900 {
		t.Errorf("viewport after zero resize = %d", got)
	}
}
