package telemetry

import (
	"fmt"
	"log/slog"
)

// Messenger is the messaging collaborator.
type Messenger interface {
	Connected() bool
	Publish(topic string, payload []byte) error
}

// Publisher hands messages to the messenger on a single topic. It does not
// retry and does not look at the values.
type Publisher struct {
	messenger Messenger
	encoder   Encoder
	topic     string
}

func NewPublisher(m Messenger, enc Encoder, topic string) *Publisher {
	return &Publisher{messenger: m, encoder: enc, topic: topic}
}

func (p *Publisher) Topic() string { return p.topic }

func (p *Publisher) Publish(msg Message) error {
	payload, err := p.encoder.Encode(msg)
	if err != nil {
		return fmt.Errorf("encoding telemetry: %w", err)
	}
	if err := p.messenger.Publish(p.topic, payload); err != nil {
		return err
	}
	slog.Debug("published message", "topic", p.topic, "bytes", len(payload))
	return nil
}
