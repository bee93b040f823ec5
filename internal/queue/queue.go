// Package queue provides the durable, at-least-once task queue between the
// dispatcher and the worker processes, backed by a Redis Stream with a
// consumer group.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the queue
var (
	// ErrPublishFailed is returned when a message could not be durably
	// appended to the stream. The dispatcher compensates the charge when it
	// sees this error.
	ErrPublishFailed = errors.New("failed to publish queue message")

	// ErrNoMessage is returned by Fetch when the block timeout elapses
	// without a delivery. Callers loop on it.
	ErrNoMessage = errors.New("no message available")

	// ErrConnectionLost is returned when the broker connection dropped and
	// the consumer must reconnect.
	ErrConnectionLost = errors.New("queue connection lost")
)

// Message is the wire record carried by a queue entry. It is published
// verbatim and redelivered verbatim on negative acknowledgment.
type Message struct {
	TaskID     uuid.UUID `json:"task_id"`
	Input      string    `json:"input"`
	Model      string    `json:"model"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Encode serializes the message for the stream entry body.
func (m *Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode queue message: %w", err)
	}
	return data, nil
}

// DecodeMessage deserializes a stream entry body into a Message.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode queue message: %w", err)
	}
	if m.TaskID == uuid.Nil {
		return nil, fmt.Errorf("queue message has no task ID")
	}
	return &m, nil
}

// Delivery is one message handed to a consumer, together with the broker
// entry ID needed to acknowledge it.
type Delivery struct {
	Message *Message
	EntryID string
}

// Publisher is the dispatcher's side of the queue.
type Publisher interface {
	// Publish durably appends a message to the stream.
	// Returns ErrPublishFailed (wrapped) if the broker rejects the append.
	Publish(ctx context.Context, msg *Message) error
}

// Consumer is the worker's side of the queue. Each message is delivered to
// exactly one consumer of the group at a time; an unacknowledged message is
// redelivered after the consumer crashes or nacks it.
type Consumer interface {
	// Fetch blocks for up to the configured timeout waiting for a delivery.
	// Returns ErrNoMessage when the timeout elapses and ErrConnectionLost
	// when the broker connection dropped.
	Fetch(ctx context.Context) (*Delivery, error)

	// Ack marks the delivery as processed, removing it from redelivery.
	Ack(ctx context.Context, d *Delivery) error

	// Nack rejects the delivery. With requeue, the message is appended back
	// to the stream for redelivery; without, it is moved to the dead-letter
	// stream and dropped from normal delivery.
	Nack(ctx context.Context, d *Delivery, requeue bool) error

	// Close releases the broker connection. The worker closes a consumer
	// before replacing it, so reconnects do not leak connections.
	Close() error
}
