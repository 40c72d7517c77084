package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/Zachkp/orbit-portfolio/internal/content"
	"github.com/Zachkp/orbit-portfolio/internal/motion"
	"github.com/Zachkp/orbit-portfolio/internal/scene"
)

// rowPixels is how many page pixels one terminal row stands for.
const rowPixels = 20

const chimeRate = beep.SampleRate(48000)

var (
	styleBase    = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleDim     = styleBase.Foreground(tcell.ColorGray)
	styleAccent  = styleBase.Foreground(tcell.ColorCornflowerBlue)
	styleHeading = styleBase.Bold(true)
	styleHeader  = styleBase.Reverse(true)
	styleFlame   = styleBase.Foreground(tcell.ColorOrange)
	styleStreak  = styleBase.Foreground(tcell.ColorLightYellow)
)

// Pitches for the reveal chime, one per section.
var chimeNotes = map[string]float64{
	scene.SectionHero:     523.25,
	scene.SectionAbout:    659.25,
	scene.SectionProjects: 783.99,
	scene.SectionResume:   880.00,
	scene.SectionContact:  1046.50,
}

type chimer interface {
	Chime(section string)
}

// beepChime plays a short sine tone through the default audio device.
type beepChime struct {
	rate beep.SampleRate
}

func newBeepChime() (*beepChime, error) {
	if err := speaker.Init(chimeRate, chimeRate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return &beepChime{rate: chimeRate}, nil
}

func (b *beepChime) Chime(section string) {
	freq, ok := chimeNotes[section]
	if !ok {
		freq = 440
	}
	tone, err := generators.SineTone(b.rate, freq)
	if err != nil {
		return
	}
	quiet := &effects.Volume{Streamer: tone, Base: 2, Volume: -3}
	speaker.Play(beep.Take(b.rate.N(120*time.Millisecond), quiet))
}

func (b *beepChime) Close() {
	speaker.Close()
}

// preview draws a mounted page into a terminal screen and scrolls it from
// the keyboard.
type preview struct {
	screen tcell.Screen
	page   *scene.Page
	clock  motion.Clock
	offset int
	start  time.Time
}

func newPreview(screen tcell.Screen, page *scene.Page, clock motion.Clock) *preview {
	if clock == nil {
		clock = motion.SystemClock{}
	}
	return &preview{
		screen: screen,
		page:   page,
		clock:  clock,
		start:  clock.Now(),
	}
}

// mountPreviewPage mounts a page sized for a terminal of rows lines. The
// chime is subscribed before mount so the hero reveal plays too.
func mountPreviewPage(c *content.Portfolio, rows int, clock motion.Clock, chime chimer, rng *rand.Rand) (*scene.Page, error) {
	opts := scene.Options{
		Clock:            clock,
		Content:          c,
		Layout:           scene.DefaultLayout(rows * rowPixels),
		DeriveVisibility: true,
		Rand:             rng,
	}
	if chime != nil {
		opts.OnReveal = chime.Chime
	}
	page, err := scene.Mount(opts)
	if err != nil {
		return nil, fmt.Errorf("mount page: %w", err)
	}
	return page, nil
}

// maxOffset is the furthest the page scrolls.
func (p *preview) maxOffset() int {
	l := p.page.Layout()
	if m := l.DocumentHeight() - l.Viewport; m > 0 {
		return m
	}
	return 0
}

func (p *preview) scrollTo(offset int) {
	if offset < 0 {
		offset = 0
	}
	if m := p.maxOffset(); offset > m {
		offset = m
	}
	p.offset = offset
	p.page.Scroll(offset)
}

// press handles one key and reports whether the preview keeps running.
func (p *preview) press(key tcell.Key, r rune) bool {
	viewport := p.page.Layout().Viewport
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyDown:
		p.scrollTo(p.offset + rowPixels)
	case tcell.KeyUp:
		p.scrollTo(p.offset - rowPixels)
	case tcell.KeyPgDn:
		p.scrollTo(p.offset + viewport)
	case tcell.KeyPgUp:
		p.scrollTo(p.offset - viewport)
	case tcell.KeyHome:
		p.scrollTo(0)
	case tcell.KeyEnd:
		p.scrollTo(p.maxOffset())
	case tcell.KeyRune:
		switch r {
		case 'q':
			return false
		case 'j':
			p.scrollTo(p.offset + rowPixels)
		case 'k':
			p.scrollTo(p.offset - rowPixels)
		case 'g':
			p.scrollTo(0)
		case 'G':
			p.scrollTo(p.maxOffset())
		case 't':
			// The rocket only works away from the top.
			if p.page.Snapshot().Rocket.Clickable {
				p.scrollTo(0)
			}
		}
	}
	return true
}

// resize matches the page viewport to the terminal height.
func (p *preview) resize() {
	_, h := p.screen.Size()
	p.page.Resize(0, h*rowPixels)
}

func (p *preview) run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = motion.DefaultFrameInterval
	}
	done := make(chan struct{})
	defer close(done)
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.draw()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !p.press(ev.Key(), ev.Rune()) {
					return
				}
			case *tcell.EventResize:
				p.resize()
				p.screen.Sync()
			}
		case <-ticker.C:
			p.page.Tick(p.clock.Now())
			p.draw()
		}
	}
}

func (p *preview) draw() {
	s := p.screen
	w, h := s.Size()
	s.Fill(' ', styleBase)
	if w <= 0 || h <= 0 {
		return
	}

	snap := p.page.Snapshot()
	now := p.clock.Now()
	p.drawStars(w, h, snap, now)
	p.drawSections(w, h, snap)
	p.drawHeader(w, snap)
	p.drawRocket(w, h, snap)
	p.drawProgress(w, h, snap.Scroll.ProgressFraction)
	s.Show()
}

func (p *preview) drawStars(w, h int, snap scene.Snapshot, now time.Time) {
	field := p.page.Stars()
	scrollRows := snap.Scroll.OffsetPixels / rowPixels
	for _, star := range field.Stars {
		x, y := field.Position(star, w, h, scrollRows)
		glyph, style := '.', styleDim
		if field.Twinkle(star, now.Sub(p.start)) > 0.85 {
			style = styleBase
		}
		if star.Layer == len(scene.ParallaxLayers)-1 {
			glyph = '*'
		}
		p.screen.SetContent(x, y, glyph, nil, style)
	}

	vp := float64(p.page.Layout().Viewport)
	for _, ss := range snap.ShootingStars {
		progress := ss.Progress(now)
		if progress <= 0 || vp <= 0 {
			continue
		}
		x := int((ss.X - progress*ss.Length) / 1440 * float64(w))
		y := int(ss.Y / vp * float64(h))
		tail := int(math.Max(ss.Length/40, 1))
		for i := 0; i < tail; i++ {
			p.screen.SetContent(x+i, y-i/2, '\\', nil, styleStreak)
		}
	}
}

func (p *preview) drawHeader(w int, snap scene.Snapshot) {
	style := styleBase
	if snap.HeaderScrolled {
		style = styleHeader
		for x := 0; x < w; x++ {
			p.screen.SetContent(x, 0, ' ', nil, style)
		}
	}
	drawText(p.screen, 1, 0, w, style.Bold(true), p.page.Content().Owner)
	nav := "About  Projects  Resume  Contact"
	drawText(p.screen, w-len(nav)-1, 0, w, style, nav)
}

func (p *preview) drawRocket(w, h int, snap scene.Snapshot) {
	r := snap.Rocket
	x := w - 3
	y := h - 3
	if r.NearTop {
		p.screen.SetContent(x, y, '^', nil, styleDim)
		return
	}
	p.screen.SetContent(x, y, '^', nil, styleAccent.Bold(true))
	flame := styleFlame
	if r.FlameOpacity < 0.75 {
		flame = flame.Dim(true)
	}
	// One row of flame per rowPixels of flame height.
	rows := int(r.FlameHeight / rowPixels)
	for i := 1; i <= rows && y+i < h-1; i++ {
		p.screen.SetContent(x, y+i, '*', nil, flame)
	}
	if r.Title != "" {
		drawText(p.screen, x-len(r.Title)-5, y, w, styleDim, r.Title+" [t]")
	}
}

func (p *preview) drawProgress(w, h int, progress float64) {
	width := w - 8
	if width <= 0 {
		return
	}
	filled := int(progress * float64(width))
	for x := 0; x < width; x++ {
		glyph := '-'
		if x < filled {
			glyph = '='
		}
		p.screen.SetContent(x+1, h-1, glyph, nil, styleDim)
	}
	drawText(p.screen, width+2, h-1, w, styleDim, fmt.Sprintf("%3d%%", int(progress*100)))
}

type line struct {
	text  string
	style tcell.Style
}

func (p *preview) drawSections(w, h int, snap scene.Snapshot) {
	layout := p.page.Layout()
	for _, st := range snap.Sections {
		rect, ok := layout.Rect(st.ID)
		if !ok {
			continue
		}
		top := (rect.Top - snap.Scroll.OffsetPixels) / rowPixels
		bottom := top + rect.Height/rowPixels
		if bottom < 1 || top >= h-1 {
			continue
		}
		lines := sectionLines(p.page.Content(), st, snap.CursorOpacity, w-4)
		for i, ln := range lines {
			y := top + 2 + i
			if y >= bottom {
				break
			}
			if y < 1 || y >= h-1 {
				continue
			}
			drawText(p.screen, 2, y, w, ln.style, ln.text)
		}
	}
}

// entered reports whether the i-th staggered element of a section is shown.
func entered(st motion.SectionState, i int) bool {
	if len(st.Entered) == 0 {
		return st.Revealed
	}
	if i >= len(st.Entered) {
		i = len(st.Entered) - 1
	}
	return st.Entered[i]
}

func heading(number string, st motion.SectionState, cursorOpacity float64) line {
	text := ""
	if st.Heading != nil {
		text = st.Heading.Text
		if st.Heading.CursorActive && cursorOpacity > 0.5 {
			text += "_"
		}
	}
	if number != "" {
		text = number + ". " + text
	}
	return line{text: text, style: styleHeading}
}

func sectionLines(c *content.Portfolio, st motion.SectionState, cursorOpacity float64, width int) []line {
	var out []line
	add := func(i int, style tcell.Style, text ...string) {
		if !entered(st, i) {
			for range text {
				out = append(out, line{})
			}
			return
		}
		for _, t := range text {
			out = append(out, line{text: t, style: style})
		}
	}

	switch st.ID {
	case scene.SectionHero:
		for i, t := range c.Hero.Title {
			add(i, styleHeading, t)
		}
		add(len(c.Hero.Title), styleAccent, c.Hero.Subtitle)
		for i, t := range c.Hero.Lines {
			add(len(c.Hero.Title)+1+i, styleDim, t)
		}

	case scene.SectionAbout:
		out = append(out, heading(c.About.Number, st, cursorOpacity), line{})
		for i, para := range c.About.Paragraphs {
			add(i, styleBase, wrap(para, width)...)
			out = append(out, line{})
		}
		if st.Revealed {
			var stats []string
			for i, s := range c.About.Stats {
				value := 0
				if i < len(st.Counters) {
					value = st.Counters[i].Value
				}
				stats = append(stats, content.FormatStat(value, s.Suffix)+" "+s.Label)
			}
			out = append(out, line{text: strings.Join(stats, "   "), style: styleAccent.Bold(true)})
		}

	case scene.SectionProjects:
		out = append(out, heading(c.Projects.Number, st, cursorOpacity), line{})
		add(0, styleDim, c.Projects.Subtitle)
		out = append(out, line{})
		for i, pr := range c.Projects.Visible(false) {
			add(scene.ProjectCardStagger+i, styleBase, pr.Title+"  ["+strings.Join(pr.Tags, ", ")+"]")
		}

	case scene.SectionResume:
		out = append(out, heading(c.Resume.Number, st, cursorOpacity), line{})
		add(0, styleDim, c.Resume.Subtitle)
		out = append(out, line{})
		add(1, styleBase, c.Resume.Title, c.Resume.Blurb, c.Resume.Link)

	case scene.SectionContact:
		out = append(out, heading(c.Contact.Number, st, cursorOpacity), line{})
		add(0, styleDim, c.Contact.Subtitle)
		out = append(out, line{})
		for _, l := range c.Contact.Links {
			add(1, styleAccent, l.Label+": "+strings.TrimPrefix(l.Href, "mailto:"))
		}
		out = append(out, line{})
		add(1, styleDim, c.Contact.Footer...)
	}
	return out
}

// wrap breaks text into lines of at most width runes at word boundaries.
func wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(text) {
		wr := []rune(word)
		if len(cur) > 0 && len(cur)+1+len(wr) > width {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, wr...)
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

func drawText(s tcell.Screen, x, y, maxX int, style tcell.Style, text string) {
	for _, r := range text {
		if x >= maxX {
			return
		}
		if x >= 0 {
			s.SetContent(x, y, r, nil, style)
		}
		x++
	}
}

// runPreview renders the portfolio in the terminal until the user quits
// or ctx ends.
func runPreview(ctx context.Context, cfg Config, p *content.Portfolio, withChime bool) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	var chime chimer
	if withChime {
		bc, err := newBeepChime()
		if err != nil {
			// Audio is optional; the preview runs silent.
			log.Printf("Chime disabled: %v", err)
		} else {
			defer bc.Close()
			chime = bc
		}
	}

	_, h := screen.Size()
	page, err := mountPreviewPage(p, h, nil, chime, nil)
	if err != nil {
		return err
	}
	defer page.Unmount()

	newPreview(screen, page, nil).run(ctx, cfg.FrameInterval)
	return nil
}
