// Package animator moves a marker along a multi-segment path over real
// time. It owns the path, the per-segment timing and the lifecycle state
// machine; rendering, camera work and frame scheduling are supplied by the
// host through Observer, Follower and clock.Scheduler.
package animator

import (
	"maps"
	"slices"
	"time"

	"marker-animator/internal/clock"
)

// Animator is not safe for concurrent use. Every method, and every
// callback it makes, runs on the goroutine that drives its Scheduler.
type Animator struct {
	sched    clock.Scheduler
	clock    clock.Clock
	observer Observer
	follow   Follower
	easing   EasingFunc
	loop     bool

	latlngs   []LatLng
	durations []time.Duration
	stations  map[int]time.Duration

	state    State
	position Position
	seg      segment
	pausedAt time.Time

	tick      clock.TickID
	requested bool
	// updating is set while the segment reduction runs, so observers that
	// call Pause or Stop from inside it do not recurse into it.
	updating bool
	// gen changes whenever a fresh animation replaces the current one.
	gen uint64
}

// segment is the active line. from is re-anchored on resume, so it can
// differ from latlngs[index].
type segment struct {
	index    int
	from, to LatLng
	duration time.Duration
	start    time.Time
}

// Option configures an Animator.
type Option func(*Animator)

// WithScheduler sets the frame scheduler. Required.
func WithScheduler(s clock.Scheduler) Option { return func(a *Animator) { a.sched = s } }

// WithClock sets the wall clock. Defaults to the scheduler when it is also
// a clock.Clock, else to clock.System.
func WithClock(c clock.Clock) Option { return func(a *Animator) { a.clock = c } }

// WithLoop restarts the path from its first segment when the end is reached.
func WithLoop(loop bool) Option { return func(a *Animator) { a.loop = loop } }

func WithObserver(o Observer) Option { return func(a *Animator) { a.observer = o } }

func WithFollower(f Follower) Option { return func(a *Animator) { a.follow = f } }

// WithEasing eases the fraction of every segment. Nil means linear.
func WithEasing(fn EasingFunc) Option { return func(a *Animator) { a.easing = fn } }

// New builds an Animator over latlngs with one duration per segment.
func New(latlngs []LatLng, durations []time.Duration, opts ...Option) (*Animator, error) {
	if len(latlngs) < 2 {
		return nil, configErrorf("path needs at least 2 waypoints, got %d", len(latlngs))
	}
	if len(durations) != len(latlngs)-1 {
		return nil, configErrorf("got %d durations for %d segments", len(durations), len(latlngs)-1)
	}
	return build(latlngs, durations, opts)
}

// NewWithTotal builds an Animator whose total duration is spread over the
// segments in proportion to their great-circle length.
func NewWithTotal(latlngs []LatLng, total time.Duration, opts ...Option) (*Animator, error) {
	if len(latlngs) < 2 {
		return nil, configErrorf("path needs at least 2 waypoints, got %d", len(latlngs))
	}
	if total < 0 {
		return nil, configErrorf("negative total duration %s", total)
	}
	return build(latlngs, DistributeDurations(latlngs, total), opts)
}

func build(latlngs []LatLng, durations []time.Duration, opts []Option) (*Animator, error) {
	for i, ll := range latlngs {
		if !ll.valid() {
			return nil, configErrorf("waypoint %d is not finite: %s", i, ll)
		}
	}
	for i, d := range durations {
		if d < 0 {
			return nil, configErrorf("segment %d has negative duration %s", i, d)
		}
	}
	a := &Animator{
		latlngs:   slices.Clone(latlngs),
		durations: slices.Clone(durations),
		stations:  make(map[int]time.Duration),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sched == nil {
		return nil, configErrorf("no scheduler")
	}
	if a.clock == nil {
		if c, ok := a.sched.(clock.Clock); ok {
			a.clock = c
		} else {
			a.clock = clock.System
		}
	}
	a.position = Position{LatLng: a.latlngs[0], Heading: Heading(a.latlngs[0], a.latlngs[1])}
	return a, nil
}

func (a *Animator) State() State      { return a.state }
func (a *Animator) IsStarted() bool   { return a.state != NotStarted }
func (a *Animator) IsRunning() bool   { return a.state == Running }
func (a *Animator) IsPaused() bool    { return a.state == Paused }
func (a *Animator) IsEnded() bool     { return a.state == Ended }
func (a *Animator) Loop() bool        { return a.loop }
func (a *Animator) SetLoop(loop bool) { a.loop = loop }

// Position returns the last published sample.
func (a *Animator) Position() Position { return a.position }

func (a *Animator) LatLngs() []LatLng { return slices.Clone(a.latlngs) }

func (a *Animator) Durations() []time.Duration { return slices.Clone(a.durations) }

func (a *Animator) Stations() map[int]time.Duration { return maps.Clone(a.stations) }

// TotalDuration is the time one pass over the path takes, stations included.
func (a *Animator) TotalDuration() time.Duration {
	var total time.Duration
	for _, d := range a.durations {
		total += d
	}
	for i, d := range a.stations {
		if i >= 1 && i <= len(a.latlngs)-2 {
			total += d
		}
	}
	return total
}

// Start begins the animation from the first waypoint. It resumes a paused
// animation and does nothing while running.
func (a *Animator) Start() {
	switch a.state {
	case Running:
		return
	case Paused:
		a.Resume()
		return
	}
	a.gen++
	now := a.clock.Now()
	a.loadSegment(0)
	a.seg.start = now
	a.state = Running
	a.emit(EventStart, 0, now)
	if a.state == Running && !a.requested {
		a.requestTick()
	}
}

// Pause freezes the marker where it is at this instant.
func (a *Animator) Pause() {
	if a.state != Running {
		return
	}
	now := a.clock.Now()
	a.pausedAt = now
	a.state = Paused
	a.cancelTick()
	if !a.updating {
		a.animate(now, false)
	}
}

// Resume continues a paused animation. Time spent paused does not count
// against the path.
func (a *Animator) Resume() {
	if a.state != Paused {
		return
	}
	// shift the segment clock by the pause so eased motion and served
	// dwell carry on unchanged
	a.seg.start = a.seg.start.Add(a.clock.Now().Sub(a.pausedAt))
	a.state = Running
	a.requestTick()
}

// Stop ends the animation. A running marker is first moved to where it is
// at this instant. The end event carries no overrun.
func (a *Animator) Stop() {
	if a.state == Ended {
		return
	}
	a.cancelTick()
	now := a.clock.Now()
	if a.state == Running && !a.updating {
		a.animate(now, false)
		if a.state == Ended {
			return
		}
	}
	a.end(0, now)
}

// MoveTo replaces the path with a single segment from the current position
// to ll and starts it. Stations and the loop flag are cleared.
func (a *Animator) MoveTo(ll LatLng, d time.Duration) {
	if !ll.valid() {
		return
	}
	if d < 0 {
		d = 0
	}
	a.cancelTick()
	a.latlngs = []LatLng{a.position.LatLng, ll}
	a.durations = []time.Duration{d}
	a.stations = make(map[int]time.Duration)
	a.loop = false
	a.state = NotStarted
	a.Start()
}

// AddLatLng appends a waypoint reached d after the current last one.
func (a *Animator) AddLatLng(ll LatLng, d time.Duration) {
	if !ll.valid() {
		return
	}
	if d < 0 {
		d = 0
	}
	a.latlngs = append(a.latlngs, ll)
	a.durations = append(a.durations, d)
}

// AddStation makes the marker wait d at an interior waypoint. Indexes
// outside [1, len-2] are ignored.
func (a *Animator) AddStation(index int, d time.Duration) {
	if index < 1 || index > len(a.latlngs)-2 || d < 0 {
		return
	}
	a.stations[index] = d
}

func (a *Animator) onFrame(frame time.Time) {
	a.requested = false
	if a.state != Running {
		return
	}
	a.animate(frame, true)
}

func (a *Animator) animate(now time.Time, schedule bool) {
	gen := a.gen
	a.updating = true
	elapsed, moving := a.updateSegment(now)
	a.updating = false
	if a.gen != gen || a.state == Ended {
		return
	}
	if moving {
		a.publish(a.interpolate(elapsed), a.seg.index, now)
	}
	if schedule && a.state == Running && !a.requested {
		a.requestTick()
	}
}

// updateSegment consumes whole segments and stations until now falls
// inside one. It returns the offset into the active segment, or false when
// the marker was placed directly (held at a station, or ended).
func (a *Animator) updateSegment(now time.Time) (time.Duration, bool) {
	elapsed := now.Sub(a.seg.start)
	if elapsed < a.seg.duration {
		return elapsed, true
	}

	gen := a.gen
	index := a.seg.index
	duration := a.seg.duration
	for elapsed >= duration {
		elapsed -= duration
		if dwell, ok := a.stations[index+1]; ok && index+1 < len(a.latlngs)-1 {
			if elapsed < dwell {
				a.publish(a.latlngs[index+1], index, now)
				return 0, false
			}
			elapsed -= dwell
		}
		index++

		if index >= len(a.latlngs)-1 {
			if !a.loop || a.TotalDuration() <= 0 {
				last := len(a.latlngs) - 1
				a.publish(a.latlngs[last], last-1, now)
				a.end(elapsed, now)
				return 0, false
			}
			index = 0
			a.emit(EventLoop, elapsed, now)
			if a.gen != gen || a.state == Ended {
				return 0, false
			}
		}
		duration = a.durations[index]
	}

	a.loadSegment(index)
	a.seg.start = now.Add(-elapsed)
	return elapsed, true
}

func (a *Animator) loadSegment(index int) {
	a.seg = segment{
		index:    index,
		from:     a.latlngs[index],
		to:       a.latlngs[index+1],
		duration: a.durations[index],
	}
}

func (a *Animator) interpolate(elapsed time.Duration) LatLng {
	k := fraction(a.seg.duration, elapsed)
	if a.easing != nil {
		k = a.easing(k)
	}
	return lerp(a.seg.from, a.seg.to, k)
}

func (a *Animator) publish(ll LatLng, segment int, now time.Time) {
	a.position = Position{
		LatLng:  ll,
		Heading: Heading(a.latlngs[segment], a.latlngs[segment+1]),
		Segment: segment,
		At:      now,
	}
	if a.observer != nil {
		a.observer.PositionChanged(a.position)
	}
	if a.follow != nil {
		a.follow(a.position)
	}
}

func (a *Animator) end(overrun time.Duration, now time.Time) {
	a.cancelTick()
	a.state = Ended
	a.emit(EventEnd, overrun, now)
}

func (a *Animator) emit(kind EventKind, elapsed time.Duration, now time.Time) {
	if a.observer != nil {
		a.observer.LifecycleEvent(Event{Kind: kind, Elapsed: elapsed, At: now})
	}
}

func (a *Animator) requestTick() {
	a.tick = a.sched.ScheduleTick(a.onFrame)
	a.requested = true
}

func (a *Animator) cancelTick() {
	if a.requested {
		a.sched.CancelTick(a.tick)
		a.requested = false
	}
}
