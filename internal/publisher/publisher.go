// Package publisher ships animator positions and lifecycle events to a
// message broker as JSON.
package publisher

import (
	"encoding/json"
	"log"
	"strings"
	"time"
)

// PublisherMetrics receives publish outcomes. A nil PublisherMetrics is
// allowed everywhere.
type PublisherMetrics interface {
	PublishedInc()
	PublishErrInc()
	PublishObserve(d time.Duration)
	SetConnected(connected bool)
}

type PositionMessage struct {
	AnimatorID string    `json:"animatorId"`
	Timestamp  time.Time `json:"timestamp"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Heading    float64   `json:"heading"`
	Bearing    float64   `json:"bearing"`
	Segment    int       `json:"segment"`
	State      string    `json:"state"`
	SpeedMps   float64   `json:"speedMps"`
}

type EventMessage struct {
	AnimatorID string    `json:"animatorId"`
	Timestamp  time.Time `json:"timestamp"`
	Event      string    `json:"event"`
	ElapsedMs  int64     `json:"elapsedMs"`
}

// sink holds what every transport shares: subject layout, encoding, debug
// logging and metrics. send does the transport-specific write.
type sink struct {
	prefix      string
	sep         string
	logSubjects bool
	metrics     PublisherMetrics
	send        func(subject string, payload []byte) error
}

func (s *sink) subject(id, kind string) string {
	parts := []string{subjectToken(id), kind}
	if s.prefix != "" {
		parts = append([]string{s.prefix}, parts...)
	}
	return strings.Join(parts, s.sep)
}

func (s *sink) PublishPosition(msg PositionMessage) error {
	return s.publish(s.subject(msg.AnimatorID, "position"), msg)
}

func (s *sink) PublishEvent(msg EventMessage) error {
	return s.publish(s.subject(msg.AnimatorID, "event"), msg)
}

func (s *sink) publish(subject string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if s.logSubjects {
		log.Printf("publish subject=%s", subject)
	}
	start := time.Now()
	err = s.send(subject, b)
	if s.metrics != nil {
		s.metrics.PublishObserve(time.Since(start))
		if err != nil {
			s.metrics.PublishErrInc()
		} else {
			s.metrics.PublishedInc()
		}
	}
	return err
}

func (s *sink) setConnected(b bool) {
	if s.metrics != nil {
		s.metrics.SetConnected(b)
	}
}

// subjectToken makes s safe as one level of a NATS subject or MQTT topic:
// no whitespace, wildcards or level separators.
func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", "\t", "_", ".", "_", "/", "_", ">", "_", "*", "_", "+", "_", "#", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
