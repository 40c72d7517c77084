package scene

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/Zachkp/orbit-portfolio/internal/motion"
)

// fixedSource makes every rand.Float64 draw return the same value.
type fixedSource int64

func (s fixedSource) Int63() int64 { return int64(s) }
func (fixedSource) Seed(int64)     {}

// quarter yields 0.25 from Float64, under ShootingStarChance.
const quarter = fixedSource(1 << 61)

// half yields 0.5 from Float64, over ShootingStarChance.
const half = fixedSource(1 << 62)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestLayout_Default(t *testing.T) {
	l := DefaultLayout(900)
	if h := l.DocumentHeight(); h != 6300 {
		t.Fatalf("document height = %d", h)
	}

	at := func(offset int) map[string]float64 {
		m := make(map[string]float64)
		for _, in := range l.Intersections(offset) {
			m[in.Handle] = in.Ratio
		}
		return m
	}
	top := at(0)
	if top[SectionHero] != 1 || top[SectionAbout] != 0 {
		t.Errorf("at 0: %v", top)
	}
	mid := at(900)
	if mid[SectionHero] != 0 || mid[SectionAbout] != 0.5 {
		t.Errorf("at 900: %v", mid)
	}
}

func TestLayout_SectionProgress(t *testing.T) {
	l := DefaultLayout(900)
	tests := []struct {
		offset int
		want   float64
	}{
		{0, 0},
		{1350, 0.5},
		{2700, 1},
		{6000, 1},
	}
	for _, tt := range tests {
		if got := l.SectionProgress(SectionAbout, tt.offset); !near(got, tt.want) {
			t.Errorf("progress(%d) = %v, want %v", tt.offset, got, tt.want)
		}
	}
	if got := l.SectionProgress("missing", 100); got != 0 {
		t.Errorf("unknown section progress = %v", got)
	}
	if AboutParallax(0) != 100 || AboutParallax(0.5) != 0 || AboutParallax(1) != -100 {
		t.Error("about parallax endpoints wrong")
	}
}

func TestRocketFor(t *testing.T) {
	mid := RocketFor(motion.ScrollSnapshot{OffsetPixels: 500, ProgressFraction: 0.5})
	if mid.Rotation != -90 || !mid.Clickable || mid.Title == "" {
		t.Errorf("scrolled rocket = %+v", mid)
	}
	if mid.FlameOpacity != 0.75 || mid.FlameHeight != 35 {
		t.Errorf("flame at 0.5 = %v/%v", mid.FlameOpacity, mid.FlameHeight)
	}
}

func TestStarfield_PositionWraps(t *testing.T) {
	sf := &Starfield{}
	star := Star{X: 0.5, Y: 0.1, Layer: 2}
	x, y := sf.Position(star, 200, 100, 100)
	if x != 100 || y != 60 {
		t.Errorf("position = (%d, %d), want (100, 60)", x, y)
	}
	if x, y := sf.Position(star, 0, 0, 0); x != 0 || y != 0 {
		t.Errorf("empty surface position = (%d, %d)", x, y)
	}
}

func TestStarfield_LayersMoveAtDepth(t *testing.T) {
	sf := NewStarfield(10, rand.New(rand.NewSource(1)))
	st := sf.State(1000)
	if len(st.Layers) != len(ParallaxLayers) {
		t.Fatalf("layers = %d", len(st.Layers))
	}
	for i := 1; i < len(st.Layers); i++ {
		if st.Layers[i].OffsetY >= st.Layers[i-1].OffsetY {
			t.Errorf("layer %d not further displaced than layer %d", i, i-1)
		}
	}
	if LayerOffset(5, 1000) != 0 {
		t.Error("unknown layer displaced")
	}
}

func TestShootingStars_Spawn(t *testing.T) {
	g := NewShootingStars(rand.New(quarter), 1000, 800)

	if g.Advance(motion.Frame{Now: epoch}) {
		t.Fatal("changed on first frame")
	}
	if !g.Advance(motion.Frame{Now: epoch.Add(ShootingStarInterval)}) {
		t.Fatal("no spawn at first interval")
	}
	active := g.Active()
	if len(active) != 1 {
		t.Fatalf("active = %d", len(active))
	}
	s := active[0]
	if s.Y > 800*0.3 || s.Length < 50 || s.Length >= 150 {
		t.Errorf("star out of bounds: %+v", s)
	}
	if s.Delay != 500*time.Millisecond || s.Duration != 1500*time.Millisecond {
		t.Errorf("timing = %v/%v", s.Delay, s.Duration)
	}
	if p := s.Progress(epoch.Add(3 * time.Second)); !near(p, 1.0/3) {
		t.Errorf("progress = %v", p)
	}

	// At 4s the first star expires as the next one spawns.
	g.Advance(motion.Frame{Now: epoch.Add(2 * ShootingStarInterval)})
	active = g.Active()
	if len(active) != 1 || active[0].ID != 2 {
		t.Fatalf("after expiry active = %+v", active)
	}
}

func TestShootingStars_NoSpawnAboveChance(t *testing.T) {
	g := NewShootingStars(rand.New(half), 1000, 800)
	for i := 0; i <= 20; i++ {
		g.Advance(motion.Frame{Now: epoch.Add(time.Duration(i) * time.Second)})
	}
	if n := len(g.Active()); n != 0 {
		t.Errorf("active = %d, want 0", n)
	}
}

// TestStation_FrameRateIndependent checks that one second of motion is the
// same at 60 frames per second and at one.
func TestStation_FrameRateIndependent(t *testing.T) {
	fast, slow := NewStation(), NewStation()
	for i := 0; i < 60; i++ {
		fast.Advance(motion.Frame{Delta: time.Second / 60})
	}
	slow.Advance(motion.Frame{Delta: time.Second})

	a, b := fast.Pose(), slow.Pose()
	if !near(a.Hub.X, 0.6) || !near(b.Hub.X, 0.6) {
		t.Errorf("hub x = %v / %v, want 0.6", a.Hub.X, b.Hub.X)
	}
	if !near(a.Satellites[3].Angle, b.Satellites[3].Angle) {
		t.Errorf("satellite angle = %v / %v", a.Satellites[3].Angle, b.Satellites[3].Angle)
	}
	if !near(a.Panels[1], b.Panels[1]) {
		t.Errorf("panel = %v / %v", a.Panels[1], b.Panels[1])
	}
}

func TestStation_PoseIsCopy(t *testing.T) {
	s := NewStation()
	p := s.Pose()
	p.Satellites[0].Angle = 99
	if s.Pose().Satellites[0].Angle == 99 {
		t.Fatal("pose aliases station state")
	}
	if len(p.Satellites) != stationSatellites || len(p.Panels) != stationPanels {
		t.Errorf("pose sizes = %d satellites, %d panels", len(p.Satellites), len(p.Panels))
	}
}
