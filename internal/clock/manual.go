package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Clock and Scheduler for tests and offline
// replays. Time only moves when Set, Add or Advance is called, and pending
// callbacks only run on Frame or Advance.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	nextID  TickID
	pending map[TickID]func(time.Time)
	due     map[TickID]func(time.Time)
	frames  int
}

// NewManual returns a Manual clock set to start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, pending: make(map[TickID]func(time.Time))}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t without running any callback.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Add moves the clock forward by d without running any callback.
func (m *Manual) Add(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *Manual) ScheduleTick(fn func(frame time.Time)) TickID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.pending[m.nextID] = fn
	return m.nextID
}

func (m *Manual) CancelTick(id TickID) {
	m.mu.Lock()
	delete(m.pending, id)
	delete(m.due, id)
	m.mu.Unlock()
}

// Pending returns the number of callbacks waiting for the next frame.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Frames returns how many frames have run.
func (m *Manual) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Frame runs every callback that was pending when it was called, stamped
// with the current time. Callbacks scheduled meanwhile wait for the next
// frame.
func (m *Manual) Frame() {
	m.mu.Lock()
	now := m.now
	m.frames++
	m.due = m.pending
	m.pending = make(map[TickID]func(time.Time), len(m.due))
	ids := make([]TickID, 0, len(m.due))
	for id := range m.due {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		m.mu.Lock()
		fn, ok := m.due[id]
		delete(m.due, id)
		m.mu.Unlock()
		if ok {
			fn(now)
		}
	}

	m.mu.Lock()
	m.due = nil
	m.mu.Unlock()
}

// Advance moves the clock forward by d and runs one frame.
func (m *Manual) Advance(d time.Duration) {
	m.Add(d)
	m.Frame()
}

// Do runs fn immediately; Manual has no goroutine of its own.
func (m *Manual) Do(fn func()) { fn() }
