package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
	"github.com/ariefcatur/go-petshop-orders.git/internal/redisx"
)

// RedisBroker is the durable-queue transport: one Redis list per destination,
// RPUSH to send, BLPOP to consume. The client's lifetime is owned by the
// caller because the same connection serves the processed-message ledger.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func queueKey(dest string) string {
	return fmt.Sprintf(redisx.KeyQueue, dest)
}

func (b *RedisBroker) Send(ctx context.Context, destination string, payload any) error {
	dest := Normalize(destination)
	body, err := marshalPayload(dest, payload)
	if err != nil {
		return err
	}
	if err := b.rdb.RPush(ctx, queueKey(dest), body).Err(); err != nil {
		return errors.Wrapf(errs.ErrMessaging, "send to %s: %s", dest, err)
	}
	return nil
}

func (b *RedisBroker) SendBatch(ctx context.Context, destination string, payloads []any) error {
	dest := Normalize(destination)
	pipe := b.rdb.Pipeline()
	for _, p := range payloads {
		body, err := marshalPayload(dest, p)
		if err != nil {
			return err
		}
		pipe.RPush(ctx, queueKey(dest), body)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(errs.ErrMessaging, "send batch to %s: %s", dest, err)
	}
	return nil
}

func (b *RedisBroker) Healthy(ctx context.Context) bool {
	return b.rdb.Ping(ctx).Err() == nil
}

func (b *RedisBroker) Close() error { return nil }

// RedisConsumer pops messages off a destination list.
type RedisConsumer struct {
	rdb *redis.Client
}

func NewRedisConsumer(rdb *redis.Client) *RedisConsumer {
	return &RedisConsumer{rdb: rdb}
}

// Consume BLPOPs with a short timeout so cancellation is observed promptly.
// On handler failure the message goes back to the head of the list.
func (c *RedisConsumer) Consume(ctx context.Context, destination string, h Handler) error {
	dest := Normalize(destination)
	key := queueKey(dest)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		res, err := c.rdb.BLPop(ctx, time.Second, key).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrapf(errs.ErrMessaging, "blpop %s: %s", dest, err)
		}
		if len(res) < 2 {
			continue
		}
		m := Message{Destination: dest, Payload: []byte(res[1])}
		if err := h(ctx, m); err != nil {
			logrus.WithError(err).WithField("destination", dest).Warn("handler failed, requeueing")
			if perr := c.rdb.LPush(ctx, key, m.Payload).Err(); perr != nil {
				logrus.WithError(perr).WithField("destination", dest).Error("requeue failed, message lost")
			}
		}
	}
}
