package route

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"marker-animator/internal/animator"
	"marker-animator/internal/gtfs"
)

// FromTrip builds a plan that replays a scheduled trip along its shape.
// The plan spans the first departure to the last arrival; scheduled dwells
// at intermediate stops become stations on the nearest interior waypoint
// and the remaining time is spread over the shape by length.
func FromTrip(trip gtfs.Trip, shape []gtfs.ShapePoint, stopTimes []gtfs.StopTime) (Plan, error) {
	if len(shape) < 2 {
		return Plan{}, fmt.Errorf("trip %s: shape %s has %d points", trip.TripID, trip.ShapeID, len(shape))
	}
	if len(stopTimes) < 2 {
		return Plan{}, fmt.Errorf("trip %s: %d stop times", trip.TripID, len(stopTimes))
	}

	first, last := stopTimes[0], stopTimes[len(stopTimes)-1]
	startSec := first.DepartureSec
	if startSec <= 0 {
		startSec = first.ArrivalSec
	}
	endSec := last.ArrivalSec
	if endSec <= 0 {
		endSec = last.DepartureSec
	}
	if endSec <= startSec {
		return Plan{}, fmt.Errorf("trip %s: schedule ends at %d before it starts at %d", trip.TripID, endSec, startSec)
	}

	p := Plan{ID: trip.TripID}
	line := make(orb.LineString, 0, len(shape))
	for _, sp := range shape {
		ll := animator.LatLng{Lat: sp.Lat, Lng: sp.Lon}
		p.Waypoints = append(p.Waypoints, ll)
		line = append(line, ll.Point())
	}

	var dwell time.Duration
	for _, st := range stopTimes[1 : len(stopTimes)-1] {
		d := time.Duration(st.Dwell()) * time.Second
		if d <= 0 {
			continue
		}
		idx := nearestInterior(line, shape, st)
		if idx < 0 {
			continue
		}
		if p.Stations == nil {
			p.Stations = make(map[int]time.Duration)
		}
		p.Stations[idx] += d
		dwell += d
	}

	p.Total = time.Duration(endSec-startSec)*time.Second - dwell
	if p.Total <= 0 {
		return Plan{}, fmt.Errorf("trip %s: dwells leave no time to travel", trip.TripID)
	}
	return p, p.Validate()
}

// nearestInterior picks the interior waypoint closest to the stop. When both
// the stop and the shape carry shape_dist_traveled it is matched along the
// shape; otherwise by planar distance to the stop's coordinates.
func nearestInterior(line orb.LineString, shape []gtfs.ShapePoint, st gtfs.StopTime) int {
	n := len(line)
	if n < 3 {
		return -1
	}
	best, bestDist := -1, math.Inf(1)
	useDist := st.ShapeDistTraveled > 0 && shape[n-1].DistTraveled > 0
	stop := orb.Point{st.StopLon, st.StopLat}
	for i := 1; i < n-1; i++ {
		var d float64
		if useDist {
			d = math.Abs(shape[i].DistTraveled - st.ShapeDistTraveled)
		} else {
			d = planar.Distance(line[i], stop)
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
