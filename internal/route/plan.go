// Package route describes the paths markers are animated along and loads
// them from files or GTFS trips.
package route

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"marker-animator/internal/animator"
)

// Plan is everything needed to build one animator.
type Plan struct {
	ID        string            `validate:"required"`
	Waypoints []animator.LatLng `validate:"min=2"`
	// Durations holds one entry per segment. When empty, Total is spread
	// over the segments by length.
	Durations []time.Duration `validate:"omitempty,dive,gte=0"`
	Total     time.Duration   `validate:"gte=0"`
	// Stations maps interior waypoint indexes to dwell times.
	Stations map[int]time.Duration
	Loop     *bool
	Easing   string
}

var validate = validator.New()

// Validate checks the plan before an animator is built from it.
func (p Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("route %q: %w", p.ID, err)
	}
	for i, ll := range p.Waypoints {
		if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
			return fmt.Errorf("route %q: waypoint %d out of range: %s", p.ID, i, ll)
		}
	}
	if len(p.Durations) > 0 && len(p.Durations) != len(p.Waypoints)-1 {
		return fmt.Errorf("route %q: %d durations for %d segments", p.ID, len(p.Durations), len(p.Waypoints)-1)
	}
	if len(p.Durations) == 0 && p.Total <= 0 {
		return fmt.Errorf("route %q: needs a total duration or per-segment durations", p.ID)
	}
	for idx, d := range p.Stations {
		if idx < 1 || idx > len(p.Waypoints)-2 {
			return fmt.Errorf("route %q: station at %d is not an interior waypoint", p.ID, idx)
		}
		if d < 0 {
			return fmt.Errorf("route %q: station at %d has negative dwell", p.ID, idx)
		}
	}
	if _, err := animator.Easing(p.Easing); err != nil {
		return fmt.Errorf("route %q: %w", p.ID, err)
	}
	return nil
}

// LoopOr returns the plan's loop flag, or def when the plan leaves it unset.
func (p Plan) LoopOr(def bool) bool {
	if p.Loop == nil {
		return def
	}
	return *p.Loop
}

// Scaled returns a copy whose durations are divided by multiplier.
func (p Plan) Scaled(multiplier float64) Plan {
	if multiplier <= 0 || multiplier == 1 {
		return p
	}
	scale := func(d time.Duration) time.Duration {
		return time.Duration(math.Round(float64(d) / multiplier))
	}
	out := p
	out.Total = scale(p.Total)
	if len(p.Durations) > 0 {
		out.Durations = make([]time.Duration, len(p.Durations))
		for i, d := range p.Durations {
			out.Durations[i] = scale(d)
		}
	}
	if p.Stations != nil {
		out.Stations = make(map[int]time.Duration, len(p.Stations))
		for i, d := range p.Stations {
			out.Stations[i] = scale(d)
		}
	}
	return out
}

// Animator builds an animator for the plan. Easing and stations come from
// the plan; scheduler, observers and loop are passed as options.
func (p Plan) Animator(opts ...animator.Option) (*animator.Animator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	easing, err := animator.Easing(p.Easing)
	if err != nil {
		return nil, err
	}
	opts = append([]animator.Option{animator.WithEasing(easing)}, opts...)

	var a *animator.Animator
	if len(p.Durations) > 0 {
		a, err = animator.New(p.Waypoints, p.Durations, opts...)
	} else {
		a, err = animator.NewWithTotal(p.Waypoints, p.Total, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", p.ID, err)
	}
	for idx, d := range p.Stations {
		a.AddStation(idx, d)
	}
	return a, nil
}
