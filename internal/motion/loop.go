package motion

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Frame is passed to every loop callback. Callbacks should derive motion
// from Delta or Elapsed rather than assume a fixed rate.
type Frame struct {
	Now     time.Time
	Delta   time.Duration
	Elapsed time.Duration
	Seq     uint64
}

// FrameFunc runs once per frame while its loop is started.
type FrameFunc func(Frame)

// Handle identifies a loop callback. The zero Handle is never issued.
type Handle uint64

type frameEntry struct {
	handle Handle
	fn     FrameFunc
}

// Loop invokes its registered callbacks once per frame, in registration
// order, while started.
//
// Cancel bumps a generation counter and every callback is checked against
// the generation its frame was dispatched under, so no callback begins after
// it, including the remainder of a frame already in progress. Stop also
// waits for a callback still executing on another goroutine, so once it
// returns no callback is running or will run.
// Loops are independent: callbacks in one never observe another.
type Loop struct {
	clock Clock

	mu        sync.Mutex
	idle      *sync.Cond
	active    int
	entries   []frameEntry
	next      Handle
	running   bool
	gen       uint64
	startedAt time.Time
	lastFrame time.Time
	seq       uint64
	cancelRun context.CancelFunc
}

// NewLoop creates a stopped loop reading time from clock.
func NewLoop(clock Clock) *Loop {
	l := &Loop{clock: clockOrSystem(clock)}
	l.idle = sync.NewCond(&l.mu)
	return l
}

// AddCallback registers fn and returns its handle. Nil callbacks are ignored.
func (l *Loop) AddCallback(fn FrameFunc) Handle {
	if fn == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.entries = append(l.entries, frameEntry{handle: l.next, fn: fn})
	return l.next
}

// RemoveCallback unregisters a callback. Unknown handles are ignored. A
// callback removed mid-frame does not run for the rest of that frame.
func (l *Loop) RemoveCallback(h Handle) {
	if h == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.handle == h {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

// Start begins dispatching frames. Starting a running loop is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startLocked()
}

func (l *Loop) startLocked() {
	if l.running {
		return
	}
	l.running = true
	l.gen++
	l.startedAt = l.clock.Now()
	l.lastFrame = l.startedAt
	l.seq = 0
}

// Cancel ends dispatching without waiting for a frame in progress. No
// callback begins after Cancel returns. It is the way for a callback to
// stop its own loop. Cancelling a stopped loop is a no-op.
func (l *Loop) Cancel() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.gen++
	cancel := l.cancelRun
	l.cancelRun = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Stop ends dispatching and waits until no frame is being dispatched. After
// it returns no callback is running and none will begin. Calling Stop from
// one of the loop's own callbacks deadlocks; use Cancel there.
func (l *Loop) Stop() {
	l.Cancel()
	l.mu.Lock()
	for l.active > 0 {
		l.idle.Wait()
	}
	l.mu.Unlock()
}

// Running reports whether the loop is started.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Len returns the number of registered callbacks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Tick dispatches one frame at now and returns how many callbacks ran.
// A stopped loop runs nothing.
func (l *Loop) Tick(now time.Time) int {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return 0
	}
	gen := l.gen
	l.seq++
	frame := Frame{
		Now:     now,
		Delta:   now.Sub(l.lastFrame),
		Elapsed: now.Sub(l.startedAt),
		Seq:     l.seq,
	}
	if frame.Delta < 0 {
		frame.Delta = 0
	}
	l.lastFrame = now
	snapshot := make([]frameEntry, len(l.entries))
	copy(snapshot, l.entries)
	l.active++
	l.mu.Unlock()
	defer l.done()

	ran := 0
	for _, e := range snapshot {
		if !l.live(gen, e.handle) {
			continue
		}
		e.fn(frame)
		ran++
	}
	return ran
}

func (l *Loop) done() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		l.idle.Broadcast()
	}
	l.mu.Unlock()
}

// live reports whether a callback may still run in the frame dispatched
// under gen.
func (l *Loop) live(gen uint64, h Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running || l.gen != gen {
		return false
	}
	for _, e := range l.entries {
		if e.handle == h {
			return true
		}
	}
	return false
}

// Run starts the loop and drives it from a ticker every interval until ctx
// ends or the loop is stopped. It blocks; the loop is stopped when Run
// returns.
func (l *Loop) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	l.startLocked()
	l.cancelRun = cancel
	l.mu.Unlock()
	defer l.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick(l.clock.Now())
		}
	}
}
