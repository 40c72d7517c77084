package scene

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zachkp/orbit-portfolio/internal/content"
	"github.com/Zachkp/orbit-portfolio/internal/motion"
)

var (
	ErrSessionNotFound = errors.New("scene: session not found")
	ErrTooManySessions = errors.New("scene: too many sessions")
	ErrRegistryClosed  = errors.New("scene: registry closed")
)

type RegistryOptions struct {
	Clock         motion.Clock
	Content       *content.Portfolio
	FrameInterval time.Duration
	// IdleTimeout unmounts sessions nobody has touched for this long.
	IdleTimeout time.Duration
	MaxSessions int
}

type session struct {
	page     *Page
	cancel   context.CancelFunc
	done     chan struct{}
	created  time.Time
	lastSeen time.Time
	ipHash   string
}

// SessionStat summarises one live page for the admin dashboard.
type SessionStat struct {
	ID       string        `json:"id"`
	Visitor  string        `json:"visitor"`
	Created  time.Time     `json:"created"`
	LastSeen time.Time     `json:"last_seen"`
	Uptime   time.Duration `json:"uptime"`
	Revealed []string      `json:"revealed"`
	Offset   int           `json:"offset"`
}

// Registry holds one mounted Page per browser visit, each driven by its
// own goroutine.
type Registry struct {
	opts  RegistryOptions
	clock motion.Clock

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = motion.SystemClock{}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = motion.DefaultFrameInterval
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 10 * time.Minute
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 256
	}
	return &Registry{
		opts:     opts,
		clock:    opts.Clock,
		sessions: make(map[string]*session),
	}
}

// Create mounts a page for a visitor and starts driving it.
func (r *Registry) Create(visitor string) (string, *Page, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", nil, ErrRegistryClosed
	}
	if len(r.sessions) >= r.opts.MaxSessions {
		r.mu.Unlock()
		return "", nil, ErrTooManySessions
	}
	r.mu.Unlock()

	page, err := Mount(Options{Clock: r.clock, Content: r.opts.Content})
	if err != nil {
		return "", nil, fmt.Errorf("mount page: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := r.clock.Now()
	s := &session{
		page:     page,
		cancel:   cancel,
		done:     make(chan struct{}),
		created:  now,
		lastSeen: now,
		ipHash:   visitor,
	}
	id := uuid.NewString()

	r.mu.Lock()
	if r.closed || len(r.sessions) >= r.opts.MaxSessions {
		r.mu.Unlock()
		cancel()
		page.Unmount()
		if r.closed {
			return "", nil, ErrRegistryClosed
		}
		return "", nil, ErrTooManySessions
	}
	r.sessions[id] = s
	r.mu.Unlock()

	go func() {
		defer close(s.done)
		page.Run(ctx, r.opts.FrameInterval)
	}()
	log.Printf("Scene %s mounted for %s", id, visitor)
	return id, page, nil
}

// Get returns a live page and marks it as recently used.
func (r *Registry) Get(id string) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = r.clock.Now()
	return s.page, nil
}

// Remove unmounts a page and waits for its loops to exit.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	stop(s)
	log.Printf("Scene %s unmounted", id)
	return nil
}

func stop(s *session) {
	s.page.Unmount()
	s.cancel()
	<-s.done
}

// Reap unmounts sessions idle since before now-IdleTimeout and returns how
// many it removed.
func (r *Registry) Reap(now time.Time) int {
	cutoff := now.Add(-r.opts.IdleTimeout)
	var expired []*session
	var ids []string

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			ids = append(ids, id)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for i, s := range expired {
		stop(s)
		log.Printf("Scene %s expired after %s idle", ids[i], now.Sub(s.lastSeen).Round(time.Second))
	}
	return len(expired)
}

// RunReaper calls Reap every interval until ctx ends.
func (r *Registry) RunReaper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reap(r.clock.Now())
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Stats lists live sessions, newest first.
func (r *Registry) Stats() []SessionStat {
	now := r.clock.Now()
	r.mu.Lock()
	type item struct {
		id string
		s  *session
	}
	items := make([]item, 0, len(r.sessions))
	for id, s := range r.sessions {
		items = append(items, item{id, s})
	}
	r.mu.Unlock()

	out := make([]SessionStat, 0, len(items))
	for _, it := range items {
		snap := it.s.page.Snapshot()
		stat := SessionStat{
			ID:       it.id,
			Visitor:  it.s.ipHash,
			Created:  it.s.created,
			Uptime:   now.Sub(it.s.created),
			Revealed: []string{},
			Offset:   snap.Scroll.OffsetPixels,
		}
		r.mu.Lock()
		stat.LastSeen = it.s.lastSeen
		r.mu.Unlock()
		for _, sec := range snap.Sections {
			if sec.Revealed {
				stat.Revealed = append(stat.Revealed, sec.ID)
			}
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out
}

// Close unmounts every session. Later Creates fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		stop(s)
	}
	if len(sessions) > 0 {
		log.Printf("Unmounted %d scenes on shutdown", len(sessions))
	}
}
