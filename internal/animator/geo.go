package animator

import (
	"math"
	"time"

	"github.com/paulmach/orb/geo"
)

// Distance returns the great-circle distance in metres.
func Distance(a, b LatLng) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// Bearing returns the initial compass bearing from a to b in [0,360).
func Bearing(a, b LatLng) float64 {
	brng := geo.Bearing(a.Point(), b.Point())
	if brng < 0 {
		brng += 360
	}
	return brng
}

// Heading returns atan2(Δlat, Δlng) in degrees, range (-180,180]. This is
// the screen-space angle used to rotate a marker icon.
func Heading(a, b LatLng) float64 {
	return math.Atan2(b.Lat-a.Lat, b.Lng-a.Lng) * 180 / math.Pi
}

// Interpolate returns the linear interpolation between a and b after
// elapsed of duration, with the fraction clamped to [0,1].
func Interpolate(a, b LatLng, duration, elapsed time.Duration) LatLng {
	return lerp(a, b, fraction(duration, elapsed))
}

func fraction(duration, elapsed time.Duration) float64 {
	if duration <= 0 {
		return 1
	}
	k := float64(elapsed) / float64(duration)
	if k < 0 {
		k = 0
	}
	if k > 1 {
		k = 1
	}
	return k
}

func lerp(a, b LatLng, k float64) LatLng {
	return LatLng{
		Lat: a.Lat + k*(b.Lat-a.Lat),
		Lng: a.Lng + k*(b.Lng-a.Lng),
	}
}

// DistributeDurations splits total across the segments of path in
// proportion to their great-circle length, so speed is constant along the
// whole path. A path with no length is split evenly.
func DistributeDurations(path []LatLng, total time.Duration) []time.Duration {
	if len(path) < 2 {
		return nil
	}
	n := len(path) - 1
	dists := make([]float64, n)
	sum := 0.0
	for i := 0; i < n; i++ {
		dists[i] = Distance(path[i], path[i+1])
		sum += dists[i]
	}
	out := make([]time.Duration, n)
	var assigned time.Duration
	if sum == 0 {
		for i := range out[:n-1] {
			out[i] = total / time.Duration(n)
			assigned += out[i]
		}
	} else {
		ratio := float64(total) / sum
		for i, d := range dists[:n-1] {
			out[i] = time.Duration(math.Round(d * ratio))
			assigned += out[i]
		}
	}
	// the last segment takes the rounding remainder so the sum is exactly total
	out[n-1] = total - assigned
	return out
}
