package scene

import (
	"math"
	"math/rand"
	"time"

	"github.com/Zachkp/orbit-portfolio/internal/motion"
)

// Rotation rates in the decorative models are tuned per 60 Hz frame; perFrame
// converts such a rate into the amount for an arbitrary frame delta.
func perFrame(rate float64, delta time.Duration) float64 {
	return rate * 60 * delta.Seconds()
}

// ParallaxLayers are the depth bands stars are spread across. Deeper layers
// move less when the page scrolls.
var ParallaxLayers = []float64{0.2, 0.5, 1.0}

// ParallaxFactor scales scroll offset into starfield displacement.
const ParallaxFactor = 0.5

type Star struct {
	// X and Y are normalized to [0, 1).
	X, Y  float64
	Layer int
	Phase float64
}

type StarLayer struct {
	Depth   float64 `json:"depth"`
	OffsetY float64 `json:"offsetY"`
}

type StarfieldState struct {
	Rotation float64     `json:"rotation"`
	Layers   []StarLayer `json:"layers"`
}

// Starfield is the parallax background.
type Starfield struct {
	Stars    []Star
	Rotation float64
}

// NewStarfield scatters count stars using rng.
func NewStarfield(count int, rng *rand.Rand) *Starfield {
	s := &Starfield{Stars: make([]Star, count)}
	for i := range s.Stars {
		s.Stars[i] = Star{
			X:     rng.Float64(),
			Y:     rng.Float64(),
			Layer: rng.Intn(len(ParallaxLayers)),
			Phase: rng.Float64() * 2 * math.Pi,
		}
	}
	return s
}

// Advance rotates the field slowly.
func (s *Starfield) Advance(f motion.Frame) {
	s.Rotation += perFrame(0.0003, f.Delta)
}

// LayerOffset is the vertical displacement of a layer at a scroll offset.
func LayerOffset(layer int, scroll int) float64 {
	if layer < 0 || layer >= len(ParallaxLayers) {
		return 0
	}
	return -float64(scroll) * ParallaxLayers[layer] * ParallaxFactor
}

// Position maps a star into a width x height surface at a scroll offset,
// wrapping vertically so the field never runs out.
func (s *Starfield) Position(star Star, width, height, scroll int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	x := int(star.X * float64(width))
	y := star.Y*float64(height) + LayerOffset(star.Layer, scroll)
	wrapped := math.Mod(y, float64(height))
	if wrapped < 0 {
		wrapped += float64(height)
	}
	return x, int(wrapped)
}

// Twinkle returns a brightness in [0.4, 1] for a star at elapsed time.
func (s *Starfield) Twinkle(star Star, elapsed time.Duration) float64 {
	return 0.7 + 0.3*math.Sin(elapsed.Seconds()*2+star.Phase)
}

func (s *Starfield) State(scroll int) StarfieldState {
	st := StarfieldState{Rotation: s.Rotation, Layers: make([]StarLayer, len(ParallaxLayers))}
	for i, depth := range ParallaxLayers {
		st.Layers[i] = StarLayer{Depth: depth, OffsetY: LayerOffset(i, scroll)}
	}
	return st
}

const (
	ShootingStarInterval = 2 * time.Second
	// ShootingStarChance is the probability of a spawn at each interval.
	ShootingStarChance = 0.3
)

type ShootingStar struct {
	ID       uint64        `json:"id"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Length   float64       `json:"length"`
	Duration time.Duration `json:"duration"`
	Delay    time.Duration `json:"delay"`
	Born     time.Time     `json:"-"`
}

// Expires is when the star is removed.
func (s ShootingStar) Expires() time.Time {
	return s.Born.Add(s.Delay + s.Duration)
}

// Progress is how far along its streak the star is, 0 before its delay ends.
func (s ShootingStar) Progress(now time.Time) float64 {
	since := now.Sub(s.Born) - s.Delay
	if since <= 0 || s.Duration <= 0 {
		return 0
	}
	return math.Min(float64(since)/float64(s.Duration), 1)
}

// ShootingStars spawns short-lived streaks across the top of the viewport.
type ShootingStars struct {
	rng           *rand.Rand
	width, height float64
	lastRoll      time.Time
	nextID        uint64
	active        []ShootingStar
}

func NewShootingStars(rng *rand.Rand, width, height float64) *ShootingStars {
	return &ShootingStars{rng: rng, width: width, height: height}
}

// Resize changes the spawn area.
func (g *ShootingStars) Resize(width, height float64) {
	g.width, g.height = width, height
}

// Advance rolls for a spawn every ShootingStarInterval and drops expired
// stars. It reports whether the set of stars changed.
func (g *ShootingStars) Advance(f motion.Frame) bool {
	changed := false
	if g.lastRoll.IsZero() {
		g.lastRoll = f.Now
	}
	for f.Now.Sub(g.lastRoll) >= ShootingStarInterval {
		g.lastRoll = g.lastRoll.Add(ShootingStarInterval)
		if g.rng.Float64() < ShootingStarChance {
			g.spawn(g.lastRoll)
			changed = true
		}
	}

	kept := g.active[:0]
	for _, s := range g.active {
		if f.Now.Before(s.Expires()) {
			kept = append(kept, s)
			continue
		}
		changed = true
	}
	g.active = kept
	return changed
}

func (g *ShootingStars) spawn(at time.Time) {
	g.nextID++
	g.active = append(g.active, ShootingStar{
		ID:       g.nextID,
		X:        g.rng.Float64() * g.width,
		Y:        g.rng.Float64() * g.height * 0.3,
		Length:   g.rng.Float64()*100 + 50,
		Duration: time.Duration((g.rng.Float64()*2 + 1) * float64(time.Second)),
		Delay:    time.Duration(g.rng.Float64() * 2 * float64(time.Second)),
		Born:     at,
	})
}

// Active returns the live stars.
func (g *ShootingStars) Active() []ShootingStar {
	return append([]ShootingStar(nil), g.active...)
}
