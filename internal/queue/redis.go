package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avkuzmin/predictq/internal/config"
	"github.com/redis/go-redis/v9"
)

// bodyField is the stream entry field holding the encoded message.
const bodyField = "body"

// RedisQueue implements Publisher and Consumer on top of a Redis Stream
// with a consumer group. Entries survive a broker restart (Redis streams
// are persisted like any other key), the consumer group gives competing
// consumers exactly-one-delivery-at-a-time, and unacknowledged entries are
// redelivered — together this is the at-least-once contract the pipeline
// needs.
type RedisQueue struct {
	client     *redis.Client
	stream     string
	group      string
	deadLetter string
	consumer   string
	block      time.Duration
	logger     *slog.Logger

	// backlog tracks whether this consumer's own pending entries — deliveries
	// fetched but never acknowledged before a previous crash — still need to
	// be drained before reading new messages.
	backlog bool

	// claimMinIdle and claimEvery control the takeover of entries stuck in a
	// dead consumer's pending list.
	claimMinIdle time.Duration
	claimEvery   time.Duration
	nextClaim    time.Time
}

// Ensure RedisQueue implements both queue interfaces
var (
	_ Publisher = (*RedisQueue)(nil)
	_ Consumer  = (*RedisQueue)(nil)
)

// NewRedisQueue creates a queue handle from the given configuration.
// consumerName identifies this process within the consumer group; the
// server publishes with an empty consumer name.
func NewRedisQueue(cfg config.QueueConfig, consumerName string, logger *slog.Logger) *RedisQueue {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &RedisQueue{
		client:       client,
		stream:       cfg.Stream,
		group:        cfg.Group,
		deadLetter:   cfg.DeadLetter,
		consumer:     consumerName,
		block:        5 * time.Second,
		logger:       logger.With(slog.String("component", "redis_queue")),
		backlog:      true,
		claimMinIdle: time.Minute,
		claimEvery:   30 * time.Second,
	}
}

// SetBlockTimeout overrides how long Fetch blocks waiting for a delivery.
func (q *RedisQueue) SetBlockTimeout(d time.Duration) {
	if d > 0 {
		q.block = d
	}
}

// Ping verifies the broker connection.
func (q *RedisQueue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return nil
}

// EnsureGroup creates the stream and consumer group if they do not exist.
// Safe to call from every process at startup.
func (q *RedisQueue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Publish implements Publisher.Publish
func (q *RedisQueue) Publish(ctx context.Context, msg *Message) error {
	body, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{bodyField: body},
	}).Err()
	if err != nil {
		q.logger.Error("failed to publish task message",
			"task_id", msg.TaskID,
			"stream", q.stream,
			"error", err)
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	q.logger.Debug("task message published",
		"task_id", msg.TaskID,
		"model", msg.Model,
		"stream", q.stream)
	return nil
}

// Fetch implements Consumer.Fetch.
//
// A fresh consumer first drains its own pending list — entries fetched but
// never acknowledged before a crash — then periodically claims entries
// abandoned by dead consumers, and only then blocks for new messages. An
// unacknowledged entry is therefore always redelivered somewhere, never
// stranded in a pending list.
func (q *RedisQueue) Fetch(ctx context.Context) (*Delivery, error) {
	if q.backlog {
		entries, err := q.readGroup(ctx, "0", -1)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			q.backlog = false
			q.logger.Debug("pending backlog drained")
		} else {
			d, err := q.toDelivery(ctx, entries[0])
			if err != nil {
				return nil, err
			}
			if d == nil {
				// Dead-lettered a malformed entry; the backlog may hold more.
				return nil, ErrNoMessage
			}
			q.logger.Info("redelivering own pending entry",
				"entry_id", d.EntryID,
				"task_id", d.Message.TaskID)
			return d, nil
		}
	}

	if d, err := q.claimAbandoned(ctx); err != nil || d != nil {
		return d, err
	}

	entries, err := q.readGroup(ctx, ">", q.block)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoMessage
	}
	d, err := q.toDelivery(ctx, entries[0])
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNoMessage
	}
	return d, nil
}

// readGroup reads up to one entry for this consumer. ID ">" delivers new
// messages and honors the block timeout; ID "0" returns the consumer's own
// pending entries immediately.
func (q *RedisQueue) readGroup(ctx context.Context, id string, block time.Duration) ([]redis.XMessage, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, id},
		Count:    1,
		Block:    block,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

// claimAbandoned takes over entries that have sat unacknowledged past the
// idle threshold — the pending list of a consumer that died mid-task. The
// scan runs at most once per claimEvery; a claimed entry re-enters delivery
// through the normal decode path.
func (q *RedisQueue) claimAbandoned(ctx context.Context) (*Delivery, error) {
	now := time.Now()
	if now.Before(q.nextClaim) {
		return nil, nil
	}
	q.nextClaim = now.Add(q.claimEvery)

	entries, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.claimMinIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	q.logger.Warn("claimed abandoned entry from a dead consumer",
		"entry_id", entries[0].ID)
	return q.toDelivery(ctx, entries[0])
}

// toDelivery decodes a stream entry into a Delivery. A malformed entry is
// moved to the dead-letter stream and (nil, nil) is returned so it stops
// being redelivered.
func (q *RedisQueue) toDelivery(ctx context.Context, entry redis.XMessage) (*Delivery, error) {
	body, ok := entry.Values[bodyField].(string)
	if !ok {
		q.logger.Error("stream entry missing body field, dead-lettering",
			"entry_id", entry.ID)
		if dlErr := q.deadLetterEntry(ctx, entry.ID, ""); dlErr != nil {
			return nil, dlErr
		}
		return nil, nil
	}

	msg, err := DecodeMessage([]byte(body))
	if err != nil {
		q.logger.Error("undecodable stream entry, dead-lettering",
			"entry_id", entry.ID,
			"error", err)
		if dlErr := q.deadLetterEntry(ctx, entry.ID, body); dlErr != nil {
			return nil, dlErr
		}
		return nil, nil
	}

	return &Delivery{Message: msg, EntryID: entry.ID}, nil
}

// Ack implements Consumer.Ack
func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.XAck(ctx, q.stream, q.group, d.EntryID).Err(); err != nil {
		return fmt.Errorf("failed to ack entry %s: %w", d.EntryID, err)
	}
	return nil
}

// Nack implements Consumer.Nack.
//
// Redis streams have no native negative acknowledgment, so requeueing is
// re-append-then-ack: the message body is appended as a fresh entry before
// the old one is acknowledged. If the process dies between the two steps the
// old entry is redelivered as well — a duplicate, which the at-least-once
// contract already allows and the result collector absorbs idempotently.
func (q *RedisQueue) Nack(ctx context.Context, d *Delivery, requeue bool) error {
	if requeue {
		body, err := d.Message.Encode()
		if err != nil {
			return err
		}
		err = q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: q.stream,
			Values: map[string]interface{}{bodyField: body},
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to requeue entry %s: %w", d.EntryID, err)
		}
		q.logger.Debug("entry requeued",
			"task_id", d.Message.TaskID,
			"entry_id", d.EntryID)
		return q.Ack(ctx, d)
	}

	body, err := d.Message.Encode()
	if err != nil {
		return err
	}
	if err := q.deadLetterEntry(ctx, d.EntryID, string(body)); err != nil {
		return err
	}
	q.logger.Warn("entry dead-lettered",
		"task_id", d.Message.TaskID,
		"entry_id", d.EntryID)
	return nil
}

// deadLetterEntry moves an entry out of normal redelivery: the body is
// appended to the dead-letter stream for manual inspection, then the
// original entry is acknowledged.
func (q *RedisQueue) deadLetterEntry(ctx context.Context, entryID, body string) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.deadLetter,
		Values: map[string]interface{}{
			bodyField:  body,
			"entry_id": entryID,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to dead-letter entry %s: %w", entryID, err)
	}

	if err := q.client.XAck(ctx, q.stream, q.group, entryID).Err(); err != nil {
		return fmt.Errorf("failed to ack dead-lettered entry %s: %w", entryID, err)
	}
	return nil
}
