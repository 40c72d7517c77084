package scene

import (
	"github.com/Zachkp/orbit-portfolio/internal/motion"
)

// Section IDs, in page order.
const (
	SectionHero     = "hero"
	SectionAbout    = "about"
	SectionProjects = "projects"
	SectionResume   = "resume"
	SectionContact  = "contact"
)

// HeaderScrollOffset is the offset past which the header switches to its
// compact style.
const HeaderScrollOffset = 50

type Rect struct {
	ID     string `json:"id"`
	Top    int    `json:"top"`
	Height int    `json:"height"`
}

// Layout is the vertical geometry of the page, used to derive visibility
// from a scroll offset when the host does not measure it itself.
type Layout struct {
	Sections []Rect `json:"sections"`
	Viewport int    `json:"viewport"`
}

// StackLayout stacks sections of the given heights from the top.
func StackLayout(viewport int, heights map[string]int, order ...string) Layout {
	l := Layout{Viewport: viewport}
	top := 0
	for _, id := range order {
		h := heights[id]
		l.Sections = append(l.Sections, Rect{ID: id, Top: top, Height: h})
		top += h
	}
	return l
}

// DefaultLayout approximates the desktop page for a viewport height.
func DefaultLayout(viewport int) Layout {
	return StackLayout(viewport, map[string]int{
		SectionHero:     viewport,
		SectionAbout:    2 * viewport,
		SectionProjects: 2 * viewport,
		SectionResume:   viewport,
		SectionContact:  viewport,
	}, SectionHero, SectionAbout, SectionProjects, SectionResume, SectionContact)
}

// DocumentHeight is the bottom edge of the last section.
func (l Layout) DocumentHeight() int {
	h := 0
	for _, r := range l.Sections {
		if bottom := r.Top + r.Height; bottom > h {
			h = bottom
		}
	}
	return h
}

func (l Layout) Rect(id string) (Rect, bool) {
	for _, r := range l.Sections {
		if r.ID == id {
			return r, true
		}
	}
	return Rect{}, false
}

// Intersections measures every section against the viewport at offset.
func (l Layout) Intersections(offset int) []motion.Intersection {
	out := make([]motion.Intersection, 0, len(l.Sections))
	for _, r := range l.Sections {
		out = append(out, motion.Intersection{
			Handle: r.ID,
			Ratio:  motion.IntersectionRatio(float64(r.Top), float64(r.Height), float64(offset), float64(l.Viewport)),
		})
	}
	return out
}

// SectionProgress runs from 0 when the section's top meets the bottom of
// the viewport to 1 when its bottom leaves the top.
func (l Layout) SectionProgress(id string, offset int) float64 {
	r, ok := l.Rect(id)
	span := r.Height + l.Viewport
	if !ok || span <= 0 {
		return 0
	}
	p := float64(offset+l.Viewport-r.Top) / float64(span)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// AboutParallax is the vertical shift of the about images, moving from
// +100 to -100 as the section scrolls through.
func AboutParallax(progress float64) float64 {
	return 100 - 200*progress
}

// RocketState drives the return-to-top control.
type RocketState struct {
	NearTop      bool    `json:"nearTop"`
	Clickable    bool    `json:"clickable"`
	Rotation     float64 `json:"rotation"`
	FlameOpacity float64 `json:"flameOpacity"`
	FlameHeight  float64 `json:"flameHeight"`
	Title        string  `json:"title,omitempty"`
}

// RocketFor derives the rocket from a scroll snapshot.
func RocketFor(s motion.ScrollSnapshot) RocketState {
	r := RocketState{
		NearTop:      s.IsNearTop,
		Clickable:    !s.IsNearTop,
		FlameOpacity: 0.5 + s.ProgressFraction*0.5,
		FlameHeight:  20 + s.ProgressFraction*30,
	}
	if !s.IsNearTop {
		r.Rotation = -90
		r.Title = "Scroll to top"
	}
	return r
}
