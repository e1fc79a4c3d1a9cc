// internal/app/system/bus/bus.go
package bus

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
)

// SubjectDrawCompleted carries a DrawCompleted event after a group is
// finalized.
const SubjectDrawCompleted = "secretsanta.draws.completed"

// DrawCompleted is the payload published on SubjectDrawCompleted. It never
// includes the assignment itself.
type DrawCompleted struct {
	RunID        string `json:"runId"`
	GroupID      string `json:"groupId"`
	Participants int    `json:"participants"`
	At           string `json:"at"`
}

// Publisher is the subset of Bus the draw service depends on.
type Publisher interface {
	Publish(ctx context.Context, subj string, v any) error
}

// Bus wraps a NATS connection for publishing events. When JetStream is
// available publishes are acknowledged by the stream; otherwise they fall
// back to core NATS.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a Bus connected to the provided NATS endpoint.
func New(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Bus{conn: nc, js: js}, nil
}

// Close drains the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish encodes v as JSON and publishes it to the given subject.
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(subj, data, nats.Context(ctx))
	if errors.Is(err, nats.ErrNoStreamResponse) || errors.Is(err, nats.ErrNoResponders) {
		return b.conn.Publish(subj, data)
	}
	return err
}
