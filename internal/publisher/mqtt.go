package publisher

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	URL string
	// ClientID must be unique per broker; empty generates one.
	ClientID string
	Username string
	Password string
	Prefix   string
	// LogTopics logs every topic published to.
	LogTopics bool
}

// MQTTPublisher publishes at QoS 0 to <prefix>/<animator>/position and
// <prefix>/<animator>/event.
type MQTTPublisher struct {
	*sink
	client  mqtt.Client
	timeout time.Duration
}

func NewMQTTPublisher(opts MQTTOptions, m PublisherMetrics) (*MQTTPublisher, error) {
	p := &MQTTPublisher{
		sink: &sink{
			prefix:      strings.Trim(opts.Prefix, "/"),
			sep:         "/",
			logSubjects: opts.LogTopics,
			metrics:     m,
		},
		timeout: 5 * time.Second,
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = DefaultClientID()
	}
	options := mqtt.NewClientOptions().
		AddBroker(opts.URL).
		SetClientID(clientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(mqtt.Client) {
			p.setConnected(true)
			log.Printf("mqtt connected to %s", opts.URL)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			p.setConnected(false)
			log.Printf("mqtt connection lost: %v", err)
		})
	p.client = mqtt.NewClient(options)

	tok := p.client.Connect()
	if !tok.WaitTimeout(p.timeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", opts.URL)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", opts.URL, err)
	}
	p.send = p.write
	return p, nil
}

// DefaultClientID returns a random client id so that several instances can
// share a broker.
func DefaultClientID() string { return "marker-animator-" + uuid.NewString()[:8] }

var errPublishTimeout = errors.New("mqtt publish timed out")

func (p *MQTTPublisher) write(topic string, payload []byte) error {
	tok := p.client.Publish(topic, 0, false, payload)
	if !tok.WaitTimeout(p.timeout) {
		return errPublishTimeout
	}
	return tok.Error()
}

func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
}
