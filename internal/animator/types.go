package animator

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
)

// LatLng is a waypoint in degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Point converts to an orb point (lng, lat order).
func (ll LatLng) Point() orb.Point { return orb.Point{ll.Lng, ll.Lat} }

// FromPoint converts an orb point to a LatLng.
func FromPoint(p orb.Point) LatLng { return LatLng{Lat: p.Lat(), Lng: p.Lon()} }

func (ll LatLng) String() string { return fmt.Sprintf("(%g,%g)", ll.Lat, ll.Lng) }

func (ll LatLng) valid() bool {
	return !math.IsNaN(ll.Lat) && !math.IsNaN(ll.Lng) && !math.IsInf(ll.Lat, 0) && !math.IsInf(ll.Lng, 0)
}

// State is the lifecycle state of an Animator.
type State int

const (
	NotStarted State = iota
	Running
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind names a lifecycle event.
type EventKind string

const (
	EventStart EventKind = "start"
	EventLoop  EventKind = "loop"
	EventEnd   EventKind = "end"
)

// Event is published on start, on every lap of a looping path and on end.
// Elapsed is the overshoot past the path's end for loop and end events; it
// is zero for start and for explicit stops.
type Event struct {
	Kind    EventKind
	Elapsed time.Duration
	At      time.Time
}

// Position is a published marker sample.
type Position struct {
	LatLng
	// Heading is atan2(Δlat, Δlng) in degrees for the active segment, for
	// icon rotation.
	Heading float64
	Segment int
	At      time.Time
}

// Observer receives position samples and lifecycle events. Callbacks run
// on the scheduler's goroutine and must not block.
type Observer interface {
	PositionChanged(p Position)
	LifecycleEvent(e Event)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnPosition func(Position)
	OnEvent    func(Event)
}

func (o ObserverFuncs) PositionChanged(p Position) {
	if o.OnPosition != nil {
		o.OnPosition(p)
	}
}

func (o ObserverFuncs) LifecycleEvent(e Event) {
	if o.OnEvent != nil {
		o.OnEvent(e)
	}
}

// Follower is an optional camera hook called after every published
// position, e.g. to re-center or rotate a view.
type Follower func(p Position)
