package pubsub

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/mahjong-club/internal/livequery"
)

// NewBridge forwards every local change to topic and returns the bridge used
// to deliver changes pushed back from the subscription.
func NewBridge(c PubSubClient, topic string, broker livequery.Broker) *Bridge {
	b := &Bridge{client: c, topic: topic, broker: broker}
	broker.Forward(b.send)
	return b
}

func (b *Bridge) send(change livequery.Change) {
	go func() {
		if err := b.client.SendMessage(b.topic, change); err != nil {
			log.Warn("Failed to relay change", "error", err, "topic", change.Topic, "key", change.Key)
		}
	}()
}

// Receive decodes a push envelope and delivers the change locally.
// Changes this instance published itself are skipped by the broker.
func (b *Bridge) Receive(body []byte) error {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("invalid push envelope: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return fmt.Errorf("invalid base64 data: %w", err)
	}
	var change livequery.Change
	if err := b.client.ProcessMessage(raw, &change); err != nil {
		return fmt.Errorf("invalid change payload: %w", err)
	}
	if change.Topic == "" {
		return fmt.Errorf("change without topic in message %s", env.Message.MessageID)
	}
	log.Debug("Received relayed change", "topic", change.Topic, "key", change.Key, "origin", change.Origin)
	b.broker.Deliver(change)
	return nil
}
