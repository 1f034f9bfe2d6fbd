package sim

import (
	"log"

	"marker-animator/internal/animator"
	"marker-animator/internal/publisher"
)

// bridge turns animator callbacks into outbox messages. It runs on the
// driver goroutine.
type bridge struct {
	m *Manager
	t *tracked
}

func (b *bridge) PositionChanged(p animator.Position) {
	t := b.t
	if !t.last.At.IsZero() {
		if d := animator.Distance(t.last.LatLng, p.LatLng); d > 0 {
			t.bearing = animator.Bearing(t.last.LatLng, p.LatLng)
			if dt := p.At.Sub(t.last.At).Seconds(); dt > 0 {
				t.speed = d / dt
			}
		} else {
			t.speed = 0
		}
	}
	t.last = p

	state := animator.Running
	if t.anim != nil {
		state = t.anim.State()
	}
	b.m.enqueue(outMsg{position: &publisher.PositionMessage{
		AnimatorID: t.id,
		Timestamp:  p.At,
		Lat:        p.Lat,
		Lon:        p.Lng,
		Heading:    p.Heading,
		Bearing:    t.bearing,
		Segment:    p.Segment,
		State:      state.String(),
		SpeedMps:   t.speed,
	}})
}

func (b *bridge) LifecycleEvent(e animator.Event) {
	m, t := b.m, b.t
	switch e.Kind {
	case animator.EventStart:
		// a fresh lap or move-to should not be measured against the old path
		t.last = animator.Position{}
		t.speed = 0
		// MoveTo restarts without an end event
		if !t.running {
			t.running = true
			m.setActive(1)
		}
		if m.metrics != nil {
			m.metrics.AnimationsStarted.Inc()
		}
	case animator.EventLoop:
		t.last = animator.Position{}
		if m.metrics != nil {
			m.metrics.AnimationsLooped.Inc()
		}
		log.Printf("animator %s looped (overshoot %s)", t.id, e.Elapsed)
	case animator.EventEnd:
		t.speed = 0
		if t.running {
			t.running = false
			m.setActive(-1)
		}
		if m.metrics != nil {
			m.metrics.AnimationsEnded.Inc()
		}
		log.Printf("animator %s ended (overrun %s)", t.id, e.Elapsed)
	}
	m.enqueue(outMsg{event: &publisher.EventMessage{
		AnimatorID: t.id,
		Timestamp:  e.At,
		Event:      string(e.Kind),
		ElapsedMs:  e.Elapsed.Milliseconds(),
	}})
}
