package sim

import (
	"log"

	"marker-animator/internal/publisher"
)

// outMsg carries exactly one of position or event.
type outMsg struct {
	position *publisher.PositionMessage
	event    *publisher.EventMessage
}

// enqueue never blocks the frame: when the publisher falls behind the
// message is dropped and counted.
func (m *Manager) enqueue(msg outMsg) {
	if m.closed {
		return
	}
	select {
	case m.outbox <- msg:
	default:
		if m.metrics != nil {
			m.metrics.OutboxDropped.Inc()
		}
	}
}

func (m *Manager) drain() {
	defer m.wg.Done()
	for msg := range m.outbox {
		var err error
		var id string
		switch {
		case msg.position != nil:
			id = msg.position.AnimatorID
			err = m.pub.PublishPosition(*msg.position)
		case msg.event != nil:
			id = msg.event.AnimatorID
			err = m.pub.PublishEvent(*msg.event)
		}
		if err != nil {
			log.Printf("publish error for %s: %v", id, err)
		}
	}
}
