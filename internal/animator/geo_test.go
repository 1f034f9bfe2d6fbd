package animator

import (
	"math"
	"testing"
	"time"
)

func TestDistributeDurationsProportionalToLength(t *testing.T) {
	got := DistributeDurations([]LatLng{{0, 0}, {0, 10}, {0, 30}}, 3*time.Second)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] != time.Second || got[1] != 2*time.Second {
		t.Fatalf("durations = %v, want [1s 2s]", got)
	}
}

func TestDistributeDurationsWithoutLength(t *testing.T) {
	got := DistributeDurations([]LatLng{{5, 5}, {5, 5}, {5, 5}, {5, 5}}, 900*time.Millisecond)
	for i, d := range got {
		if d != 300*time.Millisecond {
			t.Fatalf("durations[%d] = %s, want 300ms", i, d)
		}
	}
	if DistributeDurations([]LatLng{{1, 1}}, time.Second) != nil {
		t.Fatal("single waypoint must yield no durations")
	}
}

func TestDistributeDurationsSumsToTotal(t *testing.T) {
	path := []LatLng{{0, 0}, {0, 1}, {0, 3}, {0, 7}}
	totals := []time.Duration{time.Second, 7 * time.Millisecond, 1000000007, 2}
	for _, total := range totals {
		var sum time.Duration
		for _, d := range DistributeDurations(path, total) {
			sum += d
		}
		if sum != total {
			t.Fatalf("sum of durations = %d, want %d", sum, total)
		}
	}
	var sum time.Duration
	for _, d := range DistributeDurations([]LatLng{{5, 5}, {5, 5}, {5, 5}, {5, 5}}, 1000) {
		sum += d
	}
	if sum != 1000 {
		t.Fatalf("sum of even split = %d, want 1000", sum)
	}
}

func TestInterpolateClampsFraction(t *testing.T) {
	a, b := LatLng{0, 0}, LatLng{10, -10}
	tests := []struct {
		elapsed time.Duration
		want    LatLng
	}{
		{-time.Second, a},
		{0, a},
		{500 * time.Millisecond, LatLng{5, -5}},
		{time.Second, b},
		{3 * time.Second, b},
	}
	for _, tt := range tests {
		got := Interpolate(a, b, time.Second, tt.elapsed)
		if got != tt.want {
			t.Errorf("Interpolate(%s) = %s, want %s", tt.elapsed, got, tt.want)
		}
	}
	if got := Interpolate(a, b, 0, 0); got != b {
		t.Errorf("zero duration = %s, want end point", got)
	}
}

func TestHeadingAndBearing(t *testing.T) {
	origin := LatLng{0, 0}
	if h := Heading(origin, LatLng{0, 1}); h != 0 {
		t.Errorf("east heading = %v, want 0", h)
	}
	if h := Heading(origin, LatLng{0, -1}); math.Abs(h-180) > 1e-9 {
		t.Errorf("west heading = %v, want 180", h)
	}
	if h := Heading(origin, LatLng{-1, 0}); math.Abs(h+90) > 1e-9 {
		t.Errorf("south heading = %v, want -90", h)
	}

	if b := Bearing(origin, LatLng{0, 1}); math.Abs(b-90) > 1e-6 {
		t.Errorf("east bearing = %v, want 90", b)
	}
	if b := Bearing(origin, LatLng{0, -1}); math.Abs(b-270) > 1e-6 {
		t.Errorf("west bearing = %v, want 270", b)
	}
}

func TestDistanceOneDegreeAtEquator(t *testing.T) {
	d := Distance(LatLng{0, 0}, LatLng{0, 1})
	if d < 111000 || d > 111400 {
		t.Fatalf("distance = %.1fm, want ~111.2km", d)
	}
	if Distance(LatLng{3, 4}, LatLng{3, 4}) != 0 {
		t.Fatal("distance to self must be 0")
	}
}
