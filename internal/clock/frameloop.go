package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// FrameLoop runs frame callbacks on a single goroutine, one frame per
// interval. Callbacks scheduled while a frame is running fire on the next
// frame. Work that touches state owned by the loop (animators) must be
// submitted with Do so it runs on the same goroutine.
type FrameLoop struct {
	interval time.Duration
	calls    chan func()
	onFrame  func(time.Duration)

	mu      sync.Mutex
	nextID  TickID
	pending map[TickID]func(time.Time)
	due     map[TickID]func(time.Time) // callbacks of the frame in progress
}

// NewFrameLoop builds a loop that ticks every interval. A non-positive
// interval falls back to ~60 frames per second.
func NewFrameLoop(interval time.Duration) *FrameLoop {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &FrameLoop{
		interval: interval,
		calls:    make(chan func(), 64),
		pending:  make(map[TickID]func(time.Time)),
	}
}

// OnFrame registers a hook invoked after every frame with the time spent
// running callbacks. Must be set before Run.
func (l *FrameLoop) OnFrame(fn func(time.Duration)) { l.onFrame = fn }

// Interval returns the frame period.
func (l *FrameLoop) Interval() time.Duration { return l.interval }

func (l *FrameLoop) Now() time.Time { return time.Now() }

func (l *FrameLoop) ScheduleTick(fn func(frame time.Time)) TickID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.pending[l.nextID] = fn
	return l.nextID
}

func (l *FrameLoop) CancelTick(id TickID) {
	l.mu.Lock()
	delete(l.pending, id)
	delete(l.due, id)
	l.mu.Unlock()
}

// Pending returns the number of callbacks waiting for the next frame.
func (l *FrameLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Do runs fn on the loop goroutine and waits for it to return. It must not
// be called from the loop goroutine itself.
func (l *FrameLoop) Do(fn func()) {
	done := make(chan struct{})
	l.calls <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// Run drives the loop until ctx is canceled.
func (l *FrameLoop) Run(ctx context.Context) error {
	tick := time.NewTicker(l.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			l.drainCalls()
			return ctx.Err()
		case fn := <-l.calls:
			fn()
		case now := <-tick.C:
			start := time.Now()
			l.frame(now)
			if l.onFrame != nil {
				l.onFrame(time.Since(start))
			}
		}
	}
}

// drainCalls runs calls queued before shutdown so Do callers are released.
func (l *FrameLoop) drainCalls() {
	for {
		select {
		case fn := <-l.calls:
			fn()
		default:
			return
		}
	}
}

func (l *FrameLoop) frame(now time.Time) {
	l.mu.Lock()
	l.due = l.pending
	l.pending = make(map[TickID]func(time.Time), len(l.due))
	ids := make([]TickID, 0, len(l.due))
	for id := range l.due {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		// an earlier callback of this frame may have canceled id
		l.mu.Lock()
		fn, ok := l.due[id]
		delete(l.due, id)
		l.mu.Unlock()
		if ok {
			fn(now)
		}
	}

	l.mu.Lock()
	l.due = nil
	l.mu.Unlock()
}
