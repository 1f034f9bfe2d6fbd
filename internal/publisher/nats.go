package publisher

import (
	"log"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes to <prefix>.<animator>.position and
// <prefix>.<animator>.event.
type NATSPublisher struct {
	*sink
	nc *nats.Conn
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	p := &NATSPublisher{sink: &sink{
		prefix:      strings.Trim(prefix, "."),
		sep:         ".",
		logSubjects: logSubjects,
		metrics:     m,
	}}
	nc, err := nats.Connect(url,
		nats.Name("marker-animator"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.setConnected(false)
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.setConnected(true)
			log.Printf("nats reconnected to %s", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			p.setConnected(false)
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	p.nc = nc
	p.send = nc.Publish
	p.setConnected(true)
	return p, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}
