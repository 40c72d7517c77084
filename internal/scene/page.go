// Package scene composes the animation core into the portfolio page: the
// five sections, the parallax starfield and shooting stars, the orbital
// station and the return-to-top rocket.
package scene

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/Zachkp/orbit-portfolio/internal/content"
	"github.com/Zachkp/orbit-portfolio/internal/motion"
)

const (
	defaultStarCount = 200
	defaultViewport  = 900
	defaultWidth     = 1440
)

// Stagger delays for sub-elements of each section, measured from reveal.
var (
	aboutStagger   = []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 600 * time.Millisecond, 800 * time.Millisecond}
	sectionStagger = []time.Duration{300 * time.Millisecond, 500 * time.Millisecond}
	heroStagger    = []time.Duration{500 * time.Millisecond, 800 * time.Millisecond, 1200 * time.Millisecond, 1400 * time.Millisecond, 1600 * time.Millisecond}
)

// Per-item entrances: about images and project cards appear one after
// another, itemStep apart.
const (
	aboutImagesStart = 500 * time.Millisecond
	projectsStart    = 500 * time.Millisecond
	itemStep         = 100 * time.Millisecond
)

// Stagger indexes of the first about image and the first project card.
const (
	AboutImageStagger  = 4
	ProjectCardStagger = 2
)

// staggerItems appends n delays starting at start, itemStep apart.
func staggerItems(base []time.Duration, start time.Duration, n int) []time.Duration {
	out := append([]time.Duration(nil), base...)
	for i := 0; i < n; i++ {
		out = append(out, start+time.Duration(i)*itemStep)
	}
	return out
}

var errNoContent = errors.New("scene: content is required")

type Options struct {
	Clock   motion.Clock
	Content *content.Portfolio
	// Layout is the page geometry. Zero value uses DefaultLayout.
	Layout Layout
	// DeriveVisibility feeds the observer from Layout on every scroll. Hosts
	// that measure visibility themselves call Observe instead.
	DeriveVisibility bool
	Rand             *rand.Rand
	// StationFrame receives the station pose every frame. It runs on the
	// loop's goroutine and must not call Unmount.
	StationFrame FrameProducer
	// OnReveal is subscribed before any section registers, so it also sees
	// the hero reveal that happens during Mount.
	OnReveal func(id string)
}

// Snapshot is every state object a renderer consumes, in one read.
type Snapshot struct {
	Version        uint64                `json:"version"`
	Sections       []motion.SectionState `json:"sections"`
	Scroll         motion.ScrollSnapshot `json:"scroll"`
	Rocket         RocketState           `json:"rocket"`
	HeaderScrolled bool                  `json:"headerScrolled"`
	AboutParallax  float64               `json:"aboutParallax"`
	CursorOpacity  float64               `json:"cursorOpacity"`
	Starfield      StarfieldState        `json:"starfield"`
	ShootingStars  []ShootingStar        `json:"shootingStars"`
	Station        Pose                  `json:"station"`
}

// Page is one mounted portfolio page. It owns two independent loops: one
// for the orbital station and one for the starfield, shooting stars and
// section reveals. Unmount releases every registration it made.
type Page struct {
	clock       motion.Clock
	content     *content.Portfolio
	derive      bool
	observer    *motion.ViewportObserver
	coordinator *motion.Coordinator
	scroll      *motion.ScrollTracker
	effects     *motion.Loop
	orbit       *motion.Loop
	blink       motion.CursorBlink

	mu       sync.Mutex
	layout   Layout
	docH     int
	stars    *Starfield
	shooting *ShootingStars
	station  *Station
	version  uint64
	closed   bool

	teardown []func()
	runs     []context.CancelFunc
}

// Mount builds a page, registers its sections and starts both loops. The
// loops advance on Tick, or continuously under Run.
func Mount(opts Options) (*Page, error) {
	if opts.Content == nil {
		return nil, errNoContent
	}
	clock := opts.Clock
	if clock == nil {
		clock = motion.SystemClock{}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	layout := opts.Layout
	if len(layout.Sections) == 0 {
		layout = DefaultLayout(defaultViewport)
	}

	now := clock.Now()
	p := &Page{
		clock:    clock,
		content:  opts.Content,
		derive:   opts.DeriveVisibility,
		observer: motion.NewViewportObserver(),
		effects:  motion.NewLoop(clock),
		orbit:    motion.NewLoop(clock),
		blink:    motion.NewCursorBlink(now),
		layout:   layout,
		stars:    NewStarfield(defaultStarCount, rng),
		shooting: NewShootingStars(rng, defaultWidth, float64(layout.Viewport)),
		station:  NewStation(),
	}
	p.coordinator = motion.NewCoordinator(clock, p.observer)
	p.scroll = motion.NewScrollTracker(p.documentMetrics)

	p.teardown = append(p.teardown, p.coordinator.Close)
	p.teardown = append(p.teardown, p.coordinator.OnReveal(func(string) { p.bump() }))
	if opts.OnReveal != nil {
		p.teardown = append(p.teardown, p.coordinator.OnReveal(opts.OnReveal))
	}
	for _, spec := range SectionSpecs(opts.Content) {
		p.coordinator.Register(spec)
	}

	p.teardown = append(p.teardown, p.scroll.Subscribe(p.onScroll))

	reveals := p.effects.AddCallback(func(f motion.Frame) {
		if p.coordinator.Tick(f.Now) {
			p.bump()
		}
	})
	starfield := p.effects.AddCallback(func(f motion.Frame) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.stars.Advance(f)
		if p.shooting.Advance(f) {
			p.version++
		}
	})
	p.teardown = append(p.teardown, func() {
		p.effects.RemoveCallback(reveals)
		p.effects.RemoveCallback(starfield)
	})

	producer := opts.StationFrame
	station := p.orbit.AddCallback(func(f motion.Frame) {
		p.mu.Lock()
		p.station.Advance(f)
		pose := p.station.Pose()
		p.mu.Unlock()
		if producer != nil {
			producer(pose)
		}
	})
	p.teardown = append(p.teardown, func() { p.orbit.RemoveCallback(station) })

	p.effects.Start()
	p.orbit.Start()
	if p.derive {
		p.observer.Observe(layout.Intersections(0))
	}
	return p, nil
}

// SectionSpecs maps portfolio content to reveal specs in page order. The
// hero animates on mount; every other section waits for the viewport.
func SectionSpecs(c *content.Portfolio) []motion.SectionSpec {
	m := c.Motion
	specs := []motion.SectionSpec{{
		ID:        SectionHero,
		Stagger:   heroStagger,
		Immediate: true,
	}}
	about := motion.SectionSpec{
		ID:         SectionAbout,
		Heading:    c.About.Heading,
		TypingRate: m.TypingRate,
		Stagger:    staggerItems(aboutStagger, aboutImagesStart, len(c.About.Images)),
		Threshold:  m.RevealThreshold,
	}
	for _, s := range c.About.Stats {
		about.Counters = append(about.Counters, motion.CounterSpec{
			Label:    s.Label,
			Target:   s.Value,
			Suffix:   s.Suffix,
			Duration: m.CounterDuration,
		})
	}
	specs = append(specs, about)
	for _, s := range []struct {
		id, heading string
		stagger     []time.Duration
	}{
		{SectionProjects, c.Projects.Heading, staggerItems(sectionStagger, projectsStart, len(c.Projects.Items))},
		{SectionResume, c.Resume.Heading, sectionStagger},
		{SectionContact, c.Contact.Heading, sectionStagger},
	} {
		specs = append(specs, motion.SectionSpec{
			ID:         s.id,
			Heading:    s.heading,
			TypingRate: m.TypingRate,
			Stagger:    s.stagger,
			Threshold:  m.RevealThreshold,
		})
	}
	return specs
}

func (p *Page) documentMetrics() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := p.docH
	if h == 0 {
		h = p.layout.DocumentHeight()
	}
	return h, p.layout.Viewport
}

func (p *Page) onScroll(offset int) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.version++
	var batch []motion.Intersection
	if p.derive {
		batch = p.layout.Intersections(offset)
	}
	p.mu.Unlock()

	p.observer.Observe(batch)
}

func (p *Page) bump() {
	p.mu.Lock()
	p.version++
	p.mu.Unlock()
}

func (p *Page) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Scroll records a scroll event.
func (p *Page) Scroll(offset int) {
	if p.isClosed() {
		return
	}
	p.scroll.Set(offset)
}

// Resize updates the measured document and viewport heights. Non-positive
// values keep the current ones.
func (p *Page) Resize(documentHeight, viewportHeight int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if documentHeight > 0 {
		p.docH = documentHeight
	}
	if viewportHeight > 0 {
		p.layout.Viewport = viewportHeight
		p.shooting.Resize(defaultWidth, float64(viewportHeight))
	}
	p.version++
}

// Observe feeds visibility measured by the host.
func (p *Page) Observe(batch []motion.Intersection) {
	if p.isClosed() {
		return
	}
	p.observer.Observe(batch)
}

// Tick advances both loops by one frame at now.
func (p *Page) Tick(now time.Time) {
	p.orbit.Tick(now)
	p.effects.Tick(now)
}

// Run drives both loops every interval until ctx ends or the page is
// unmounted.
func (p *Page) Run(ctx context.Context, interval time.Duration) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.runs = append(p.runs, cancel)
	p.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.orbit.Run(ctx, interval)
	}()
	go func() {
		defer wg.Done()
		p.effects.Run(ctx, interval)
	}()
	wg.Wait()
}

// Unmount stops both loops, waits for a frame still being dispatched on
// another goroutine, then releases every registration. Safe to call more
// than once.
func (p *Page) Unmount() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	teardown := p.teardown
	p.teardown = nil
	runs := p.runs
	p.runs = nil
	p.mu.Unlock()

	for _, cancel := range runs {
		cancel()
	}
	p.orbit.Stop()
	p.effects.Stop()
	for i := len(teardown) - 1; i >= 0; i-- {
		teardown[i]()
	}
}

// Closed reports whether the page was unmounted.
func (p *Page) Closed() bool { return p.isClosed() }

// Version increases whenever discrete state changes: a reveal step, a
// scroll event, a resize, or a shooting star appearing or leaving.
func (p *Page) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// Content returns the portfolio the page was mounted with.
func (p *Page) Content() *content.Portfolio { return p.content }

// Layout returns the current page geometry.
func (p *Page) Layout() Layout {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := p.layout
	l.Sections = append([]Rect(nil), p.layout.Sections...)
	return l
}

// Section returns one section's state.
func (p *Page) Section(id string) (motion.SectionState, bool) {
	return p.coordinator.State(id)
}

// OnReveal calls fn when a section starts revealing. The returned func
// unsubscribes; subscriptions also end on Unmount.
func (p *Page) OnReveal(fn func(id string)) func() {
	return p.coordinator.OnReveal(fn)
}

// Snapshot reads everything a renderer needs.
func (p *Page) Snapshot() Snapshot {
	now := p.clock.Now()
	scroll := p.scroll.Snapshot()
	sections := p.coordinator.States()

	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Version:        p.version,
		Sections:       sections,
		Scroll:         scroll,
		Rocket:         RocketFor(scroll),
		HeaderScrolled: scroll.OffsetPixels > HeaderScrollOffset,
		AboutParallax:  AboutParallax(p.layout.SectionProgress(SectionAbout, scroll.OffsetPixels)),
		CursorOpacity:  p.blink.Opacity(now),
		Starfield:      p.stars.State(scroll.OffsetPixels),
		ShootingStars:  p.shooting.Active(),
		Station:        p.station.Pose(),
	}
}

// Cursor samples the typing cursor's blink opacity at the current time and
// reports whether any heading is still typing. The blink moves without
// bumping Version.
func (p *Page) Cursor() (opacity float64, typing bool) {
	for _, st := range p.coordinator.States() {
		if st.Heading != nil && st.Heading.CursorActive {
			typing = true
			break
		}
	}
	return p.blink.Opacity(p.clock.Now()), typing
}

// Stars returns a copy of the starfield for renderers that draw stars
// themselves.
func (p *Page) Stars() Starfield {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Starfield{Stars: p.stars.Stars, Rotation: p.stars.Rotation}
}

// Resources counts live registrations: observer entries, loop callbacks
// and scroll subscriptions. A fully unmounted page reports zero.
func (p *Page) Resources() int {
	return p.observer.Len() + p.effects.Len() + p.orbit.Len() + p.scroll.Subscribers() + p.coordinator.Len()
}
