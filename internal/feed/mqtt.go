// Package feed publishes telemetry snapshots to an MQTT broker for
// external consumers (historians, dashboards, fleet aggregation).
package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/setevik/cranewatch/internal/telemetry"
)

// Publisher sends each snapshot to a broker topic. It satisfies
// telemetry.Publisher.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// Connect dials the broker and returns a connected publisher. The client
// reconnects on its own after broker outages.
func Connect(broker, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("cranewatch").
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to mqtt broker: %w", token.Error())
	}

	slog.Info("telemetry feed connected", "broker", broker, "topic", topic)
	return &Publisher{client: client, topic: topic}, nil
}

// Publish sends one snapshot at QoS 0. A dropped message is not retried;
// the next tick supersedes it anyway.
func (p *Publisher) Publish(snap telemetry.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publishing snapshot: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
