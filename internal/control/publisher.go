// Package control is the MQTT control plane for a running tie:
// commands arrive on the control topic, acks and state events go out
// on the status topic.
package control

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/e7canasta/frametie/config"
)

// Publisher owns the MQTT client and publishes state events.
type Publisher struct {
	cfg    config.MQTT
	Client mqtt.Client // Exported for the command handler

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// NewPublisher creates a new publisher for the given broker settings
func NewPublisher(cfg config.MQTT) *Publisher {
	return &Publisher{cfg: cfg}
}

// Connect establishes the connection to the MQTT broker
func (p *Publisher) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		p.mu.Lock()
		p.connected = true
		p.mu.Unlock()
		slog.Info("control: mqtt connection established",
			"broker", p.cfg.Broker,
			"client_id", p.cfg.ClientID)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		p.mu.Lock()
		p.connected = false
		p.mu.Unlock()
		slog.Warn("control: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", p.cfg.Broker)
	}

	p.Client = mqtt.NewClient(opts)

	slog.Info("control: connecting to mqtt broker", "broker", p.cfg.Broker)

	token := p.Client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control: mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control: mqtt connection failed: %w", err)
	}

	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()

	return nil
}

// PublishEvent publishes a state event to the status topic
func (p *Publisher) PublishEvent(event string, data map[string]interface{}) error {
	if !p.isConnected() {
		p.mu.Lock()
		p.errors++
		p.mu.Unlock()
		return fmt.Errorf("control: mqtt not connected")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"event":     event,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("control: failed to marshal event: %w", err)
	}

	token := p.Client.Publish(p.cfg.Topics.Status, p.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		p.mu.Lock()
		p.errors++
		p.mu.Unlock()
		return fmt.Errorf("control: event publish timeout")
	}
	if err := token.Error(); err != nil {
		p.mu.Lock()
		p.errors++
		p.mu.Unlock()
		return fmt.Errorf("control: event publish failed: %w", err)
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()

	slog.Debug("control: event published", "event", event, "topic", p.cfg.Topics.Status)
	return nil
}

// Disconnect closes the MQTT connection
func (p *Publisher) Disconnect() error {
	if p.Client != nil && p.Client.IsConnected() {
		p.Client.Disconnect(250) // 250ms grace period
		slog.Info("control: mqtt disconnected")
	}

	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()

	return nil
}

// Stats contains publisher statistics
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// Stats returns publisher statistics
func (p *Publisher) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Stats{Connected: p.connected, Published: p.published, Errors: p.errors}
}

func (p *Publisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}
