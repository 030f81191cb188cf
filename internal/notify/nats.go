package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

const (
	streamName          = "TOURNEY"
	subjectMatchResults = "tourney.matches.completed"
)

// NATSDispatcher publishes completion events to a JetStream stream so
// the Discord/alert workers can consume them at their own pace.
type NATSDispatcher struct {
	js nats.JetStreamContext
}

func Connect(url string) (*NATSDispatcher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"tourney.matches.>"},
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return nil, fmt.Errorf("failed to configure stream: %w", err)
	}

	return &NATSDispatcher{js: js}, nil
}

func (d *NATSDispatcher) MatchCompleted(ctx context.Context, event MatchCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := d.js.Publish(subjectMatchResults, payload, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish match completion: %w", err)
	}
	return nil
}
