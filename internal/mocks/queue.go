package mocks

import (
	"context"
	"sync"

	"github.com/avkuzmin/predictq/internal/queue"
)

// FakePublisher records published messages and can be told to fail, which
// is how dispatch compensation paths are exercised.
type FakePublisher struct {
	mu        sync.Mutex
	published []*queue.Message

	// PublishErr, when set, is returned by Publish without recording.
	PublishErr error
}

// NewFakePublisher creates an empty FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Ensure FakePublisher implements queue.Publisher
var _ queue.Publisher = (*FakePublisher)(nil)

// Publish implements queue.Publisher.Publish
func (p *FakePublisher) Publish(ctx context.Context, msg *queue.Message) error {
	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
	return nil
}

// Published returns a copy of all recorded messages.
func (p *FakePublisher) Published() []*queue.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*queue.Message, len(p.published))
	copy(out, p.published)
	return out
}

// FakeConsumer replays a scripted sequence of deliveries and records the
// acknowledgments the worker makes, in order.
type FakeConsumer struct {
	mu         sync.Mutex
	deliveries []*queue.Delivery
	next       int

	// FetchErrs is consumed before deliveries: each call to Fetch pops one
	// error first, allowing connection-loss sequences to be scripted.
	FetchErrs []error

	Acks   []*queue.Delivery
	Nacks  []NackCall
	Closes int
}

// NackCall records one negative acknowledgment.
type NackCall struct {
	Delivery *queue.Delivery
	Requeue  bool
}

// NewFakeConsumer creates a consumer that will hand out the given
// deliveries in order, then report ErrNoMessage.
func NewFakeConsumer(deliveries ...*queue.Delivery) *FakeConsumer {
	return &FakeConsumer{deliveries: deliveries}
}

// Ensure FakeConsumer implements queue.Consumer
var _ queue.Consumer = (*FakeConsumer)(nil)

// Fetch implements queue.Consumer.Fetch
func (c *FakeConsumer) Fetch(ctx context.Context) (*queue.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.FetchErrs) > 0 {
		err := c.FetchErrs[0]
		c.FetchErrs = c.FetchErrs[1:]
		return nil, err
	}

	if c.next >= len(c.deliveries) {
		return nil, queue.ErrNoMessage
	}
	d := c.deliveries[c.next]
	c.next++
	return d, nil
}

// Ack implements queue.Consumer.Ack
func (c *FakeConsumer) Ack(ctx context.Context, d *queue.Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Acks = append(c.Acks, d)
	return nil
}

// Nack implements queue.Consumer.Nack
func (c *FakeConsumer) Nack(ctx context.Context, d *queue.Delivery, requeue bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Nacks = append(c.Nacks, NackCall{Delivery: d, Requeue: requeue})
	return nil
}

// Close implements queue.Consumer.Close
func (c *FakeConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closes++
	return nil
}

// CloseCount returns how many times the consumer has been closed. Safe to
// call while a worker goroutine is consuming.
func (c *FakeConsumer) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Closes
}

// Requeue appends a delivery back to the scripted sequence, letting tests
// model broker redelivery after a nack-with-requeue.
func (c *FakeConsumer) Requeue(d *queue.Delivery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, d)
}

// AckCount returns the number of acknowledgments recorded so far. Safe to
// call while a worker goroutine is consuming.
func (c *FakeConsumer) AckCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Acks)
}

// NackCount returns the number of negative acknowledgments recorded so far.
func (c *FakeConsumer) NackCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Nacks)
}
