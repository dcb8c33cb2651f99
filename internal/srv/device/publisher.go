package device

import (
	"encoding/json"
	"fmt"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jypelle/artbox/apimodel"
	"github.com/jypelle/artbox/internal/srv/config"
	"github.com/sirupsen/logrus"
	"sync"
	"time"
)

const publishQueueLength = 16

// Publisher announces display changes.
type Publisher interface {
	// Publish must not block the caller for long, failures are reported, never fatal.
	Publish(ev apimodel.DisplayEvent) error
	Close() error
}

func FormatDisplayPayload(ev apimodel.DisplayEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ev apimodel.DisplayEvent) error { return nil }
func (NopPublisher) Close() error                          { return nil }

// MqttPublisher publishes display events to a broker from its own goroutine,
// so a slow broker never stalls the caller.
type MqttPublisher struct {
	client paho.Client
	topic  string

	queue chan []byte
	done  chan bool
}

func NewMqttPublisher(mqttParam config.MqttParam) (*MqttPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(mqttParam.Broker).
		SetClientID(mqttParam.ClientId).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	if err := connect(client, 10*time.Second); err != nil {
		return nil, err
	}

	p := &MqttPublisher{
		client: client,
		topic:  mqttParam.Topic,
		queue:  make(chan []byte, publishQueueLength),
		done:   make(chan bool),
	}
	go p.run()
	return p, nil
}

// connect waits for the first connection. On failure the client is
// disconnected, otherwise it would keep retrying in the background.
func connect(client paho.Client, timeout time.Duration) error {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

func (p *MqttPublisher) run() {
	for payload := range p.queue {
		// QoS 0, retained so late subscribers get the current image
		token := p.client.Publish(p.topic, 0, true, payload)
		if !token.WaitTimeout(5 * time.Second) {
			logrus.Warnf("Mqtt publish timeout")
			continue
		}
		if err := token.Error(); err != nil {
			logrus.Warnf("Mqtt publish: %v", err)
		}
	}
	p.done <- true
}

func (p *MqttPublisher) Publish(ev apimodel.DisplayEvent) error {
	payload, err := FormatDisplayPayload(ev)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	select {
	case p.queue <- payload:
		return nil
	default:
		return fmt.Errorf("publish queue full, event dropped")
	}
}

// Close flushes queued events then disconnects from the broker.
func (p *MqttPublisher) Close() error {
	close(p.queue)
	<-p.done
	p.client.Disconnect(1000)
	return nil
}

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	lock sync.Mutex

	Events       []apimodel.DisplayEvent
	Payloads     [][]byte
	PublishError error
	Closed       bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(ev apimodel.DisplayEvent) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatDisplayPayload(ev)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, ev)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Closed = true
	return nil
}

// Published returns a copy of the recorded events.
func (f *FakePublisher) Published() []apimodel.DisplayEvent {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]apimodel.DisplayEvent(nil), f.Events...)
}
