// Package sim runs a fleet of animators on one frame loop and forwards what
// they do to a publisher.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"marker-animator/internal/animator"
	"marker-animator/internal/clock"
	mmetrics "marker-animator/internal/metrics"
	"marker-animator/internal/publisher"
	"marker-animator/internal/route"
)

// Driver owns the goroutine animators run on. Every Manager call that
// touches an animator goes through Do.
type Driver interface {
	clock.Scheduler
	clock.Clock
	Do(fn func())
}

type Publisher interface {
	PublishPosition(publisher.PositionMessage) error
	PublishEvent(publisher.EventMessage) error
}

var ErrUnknownAnimator = errors.New("unknown animator")

type Options struct {
	DefaultLoop     bool
	DefaultEasing   string
	SpeedMultiplier float64
	OutboxSize      int
	Metrics         *mmetrics.Collector
}

// Manager owns a set of animators. Its methods block on Driver.Do and must
// not be called from the driver goroutine, which includes animator observer
// and frame callbacks.
type Manager struct {
	driver  Driver
	pub     Publisher
	opts    Options
	metrics *mmetrics.Collector

	// owned by the driver goroutine
	animators map[string]*tracked
	active    int
	closed    bool

	outbox  chan outMsg
	wg      sync.WaitGroup
	closing sync.Once
}

type tracked struct {
	id   string
	anim *animator.Animator
	last animator.Position
	// bearing is carried over frames where the marker does not move.
	bearing float64
	speed   float64
	running bool
}

func NewManager(driver Driver, pub Publisher, opts Options) *Manager {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 1024
	}
	if opts.SpeedMultiplier <= 0 {
		opts.SpeedMultiplier = 1
	}
	m := &Manager{
		driver:    driver,
		pub:       pub,
		opts:      opts,
		metrics:   opts.Metrics,
		animators: make(map[string]*tracked),
		outbox:    make(chan outMsg, opts.OutboxSize),
	}
	m.wg.Add(1)
	go m.drain()
	return m
}

// Start builds an animator per plan and starts them all. Invalid plans are
// logged and skipped; an error is returned only when nothing could start.
// Not safe to call from the driver goroutine.
func (m *Manager) Start(ctx context.Context, plans []route.Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	started := 0
	m.driver.Do(func() {
		for _, p := range plans {
			if err := m.add(p); err != nil {
				log.Printf("skipping route %s: %v", p.ID, err)
				errs = append(errs, err)
				continue
			}
			started++
		}
	})
	if started == 0 && len(errs) > 0 {
		return fmt.Errorf("no route could start: %w", errors.Join(errs...))
	}
	return nil
}

func (m *Manager) add(p route.Plan) error {
	if m.closed {
		return errors.New("manager closed")
	}
	if _, dup := m.animators[p.ID]; dup {
		return fmt.Errorf("duplicate route id %q", p.ID)
	}
	if p.Easing == "" {
		p.Easing = m.opts.DefaultEasing
	}
	t := &tracked{id: p.ID}
	a, err := p.Scaled(m.opts.SpeedMultiplier).Animator(
		animator.WithScheduler(m.driver),
		animator.WithClock(m.driver),
		animator.WithLoop(p.LoopOr(m.opts.DefaultLoop)),
		animator.WithObserver(&bridge{m: m, t: t}),
	)
	if err != nil {
		return err
	}
	t.anim = a
	m.animators[p.ID] = t
	log.Printf("starting animator %s (%d waypoints, %s per lap, loop=%t)", p.ID, len(p.Waypoints), a.TotalDuration(), a.Loop())
	a.Start()
	return nil
}

// Pause, Resume and Stop control one animator. They must not be called from
// the driver goroutine.
func (m *Manager) Pause(id string) error {
	return m.with(id, func(a *animator.Animator) { a.Pause() })
}

func (m *Manager) Resume(id string) error {
	return m.with(id, func(a *animator.Animator) { a.Resume() })
}

func (m *Manager) Stop(id string) error {
	return m.with(id, func(a *animator.Animator) { a.Stop() })
}

// MoveTo sends the marker from where it is to ll over d, restarting it if it
// had ended. Not safe to call from the driver goroutine.
func (m *Manager) MoveTo(id string, ll animator.LatLng, d time.Duration) error {
	return m.with(id, func(a *animator.Animator) { a.MoveTo(ll, d) })
}

// Status is a point-in-time view of one animator.
type Status struct {
	ID       string
	State    animator.State
	Position animator.Position
	SpeedMps float64
}

// Status reports one animator. Not safe to call from the driver goroutine.
func (m *Manager) Status(id string) (Status, error) {
	var st Status
	err := m.with(id, func(*animator.Animator) {
		st = m.status(m.animators[id])
	})
	return st, err
}

// Active lists animators that are running or paused, sorted by id. Not safe
// to call from the driver goroutine.
func (m *Manager) Active() []Status {
	var out []Status
	m.driver.Do(func() {
		for _, t := range m.animators {
			if s := t.anim.State(); s == animator.Running || s == animator.Paused {
				out = append(out, m.status(t))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) status(t *tracked) Status {
	return Status{ID: t.id, State: t.anim.State(), Position: t.anim.Position(), SpeedMps: t.speed}
}

func (m *Manager) with(id string, fn func(*animator.Animator)) error {
	var err error
	m.driver.Do(func() {
		t, ok := m.animators[id]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrUnknownAnimator, id)
			return
		}
		fn(t.anim)
	})
	return err
}

// Close stops every animator, then waits until queued messages have been
// handed to the publisher. The driver must still be running and Close must
// not be called from its goroutine.
func (m *Manager) Close() {
	m.closing.Do(func() {
		m.driver.Do(func() {
			for _, t := range m.animators {
				t.anim.Stop()
			}
			m.closed = true
		})
		close(m.outbox)
		m.wg.Wait()
		log.Printf("manager closed")
	})
}

func (m *Manager) setActive(delta int) {
	m.active += delta
	if m.metrics != nil {
		m.metrics.ActiveAnimators.Set(float64(m.active))
	}
}
