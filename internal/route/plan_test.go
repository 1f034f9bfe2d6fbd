package route

import (
	"strings"
	"testing"
	"time"

	"marker-animator/internal/animator"
	"marker-animator/internal/clock"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func threePoint() []animator.LatLng {
	return []animator.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 0, Lng: 2}}
}

func TestPlanValidate(t *testing.T) {
	loop := true
	cases := []struct {
		name string
		plan Plan
		want string
	}{
		{"ok total", Plan{ID: "a", Waypoints: threePoint(), Total: ms(1000)}, ""},
		{"ok durations", Plan{ID: "a", Waypoints: threePoint(), Durations: []time.Duration{ms(1), ms(2)}, Loop: &loop}, ""},
		{"missing id", Plan{Waypoints: threePoint(), Total: ms(1)}, "ID"},
		{"one waypoint", Plan{ID: "a", Waypoints: threePoint()[:1], Total: ms(1)}, "Waypoints"},
		{"latitude", Plan{ID: "a", Waypoints: []animator.LatLng{{Lat: 91}, {Lat: 0}}, Total: ms(1)}, "out of range"},
		{"duration count", Plan{ID: "a", Waypoints: threePoint(), Durations: []time.Duration{ms(1)}}, "1 durations for 2 segments"},
		{"no timing", Plan{ID: "a", Waypoints: threePoint()}, "needs a total"},
		{"station endpoint", Plan{ID: "a", Waypoints: threePoint(), Total: ms(1), Stations: map[int]time.Duration{2: ms(1)}}, "not an interior"},
		{"station negative", Plan{ID: "a", Waypoints: threePoint(), Total: ms(1), Stations: map[int]time.Duration{1: -ms(1)}}, "negative dwell"},
		{"easing", Plan{ID: "a", Waypoints: threePoint(), Total: ms(1), Easing: "wobble"}, "wobble"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.plan.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate = %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestPlanLoopOr(t *testing.T) {
	p := Plan{}
	if !p.LoopOr(true) || p.LoopOr(false) {
		t.Fatalf("unset loop should fall back to default")
	}
	off := false
	p.Loop = &off
	if p.LoopOr(true) {
		t.Fatalf("explicit loop=false ignored")
	}
}

func TestPlanScaled(t *testing.T) {
	p := Plan{
		ID:        "a",
		Waypoints: threePoint(),
		Durations: []time.Duration{ms(1000), ms(500)},
		Total:     ms(1500),
		Stations:  map[int]time.Duration{1: ms(200)},
	}
	s := p.Scaled(2)
	if s.Durations[0] != ms(500) || s.Durations[1] != ms(250) {
		t.Fatalf("durations = %v", s.Durations)
	}
	if s.Total != ms(750) || s.Stations[1] != ms(100) {
		t.Fatalf("total = %s station = %s", s.Total, s.Stations[1])
	}
	if p.Durations[0] != ms(1000) || p.Stations[1] != ms(200) {
		t.Fatalf("Scaled modified the original plan")
	}
	if same := p.Scaled(0); same.Total != p.Total {
		t.Fatalf("non-positive multiplier should be ignored")
	}
}

func TestPlanAnimator(t *testing.T) {
	p := Plan{
		ID:        "a",
		Waypoints: threePoint(),
		Total:     ms(1000),
		Stations:  map[int]time.Duration{1: ms(200)},
		Easing:    "in-quad",
	}
	mc := clock.NewManual(time.Unix(0, 0))
	a, err := p.Animator(animator.WithScheduler(mc))
	if err != nil {
		t.Fatalf("Animator: %v", err)
	}
	if got := a.TotalDuration(); got != ms(1200) {
		t.Fatalf("TotalDuration = %s, want 1.2s", got)
	}
	if got := a.Stations()[1]; got != ms(200) {
		t.Fatalf("station = %s", got)
	}

	a.Start()
	mc.Advance(ms(1200))
	if !a.IsEnded() {
		t.Fatalf("state = %s, want ended", a.State())
	}
}

func TestPlanAnimatorRejectsInvalid(t *testing.T) {
	p := Plan{ID: "bad", Waypoints: threePoint()}
	if _, err := p.Animator(animator.WithScheduler(clock.NewManual(time.Unix(0, 0)))); err == nil {
		t.Fatalf("expected error for plan without timing")
	}
}
