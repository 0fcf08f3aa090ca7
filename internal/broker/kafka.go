package broker

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

// KafkaBroker is the topic transport. Writers are created lazily per
// destination, cached under the broker's mutex and torn down with the broker.
// Writes are synchronous so a failed publish surfaces to the caller instead
// of vanishing in an async buffer.
type KafkaBroker struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  bool
}

func NewKafkaBroker(brokers []string) *KafkaBroker {
	return &KafkaBroker{brokers: brokers, writers: make(map[string]*kafka.Writer)}
}

func (b *KafkaBroker) writer(topic string) (*kafka.Writer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.Wrapf(errs.ErrMessaging, "send to %s: broker closed", topic)
	}
	w, ok := b.writers[topic]
	if !ok {
		w = &kafka.Writer{
			Addr:         kafka.TCP(b.brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
		b.writers[topic] = w
	}
	return w, nil
}

func (b *KafkaBroker) Send(ctx context.Context, destination string, payload any) error {
	dest := Normalize(destination)
	body, err := marshalPayload(dest, payload)
	if err != nil {
		return err
	}
	w, err := b.writer(dest)
	if err != nil {
		return err
	}
	if err := w.WriteMessages(ctx, kafka.Message{Value: body, Time: time.Now()}); err != nil {
		return errors.Wrapf(errs.ErrMessaging, "send to %s: %s", dest, err)
	}
	return nil
}

func (b *KafkaBroker) SendBatch(ctx context.Context, destination string, payloads []any) error {
	dest := Normalize(destination)
	msgs := make([]kafka.Message, 0, len(payloads))
	for _, p := range payloads {
		body, err := marshalPayload(dest, p)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Value: body, Time: time.Now()})
	}
	w, err := b.writer(dest)
	if err != nil {
		return err
	}
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrapf(errs.ErrMessaging, "send batch to %s: %s", dest, err)
	}
	return nil
}

func (b *KafkaBroker) Healthy(ctx context.Context) bool {
	if len(b.brokers) == 0 {
		return false
	}
	conn, err := kafka.DialContext(ctx, "tcp", b.brokers[0])
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (b *KafkaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	var first error
	for topic, w := range b.writers {
		if err := w.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close writer %s", topic)
		}
	}
	b.writers = make(map[string]*kafka.Writer)
	return first
}

// KafkaConsumer reads one topic with a consumer group and fans messages out
// to a small worker pool. Offsets are committed manually, only after the
// handler succeeds.
type KafkaConsumer struct {
	brokers []string
	group   string
	workers int
}

func NewKafkaConsumer(brokers []string, group string, workers int) *KafkaConsumer {
	if workers <= 0 {
		workers = 1
	}
	return &KafkaConsumer{brokers: brokers, group: group, workers: workers}
}

func (c *KafkaConsumer) Consume(ctx context.Context, destination string, h Handler) error {
	topic := Normalize(destination)
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.brokers,
		GroupID:        c.group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	defer r.Close()

	jobs := make(chan kafka.Message, 256)
	errsCh := make(chan error, c.workers)

	for i := 0; i < c.workers; i++ {
		go func() {
			for m := range jobs {
				if err := h(ctx, Message{Destination: topic, Payload: m.Value}); err != nil {
					errsCh <- err
					continue
				}
				if err := r.CommitMessages(ctx, m); err != nil {
					errsCh <- err
				}
			}
		}()
	}

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			select {
			case <-ctx.Done():
				return nil
			default:
				return errors.Wrapf(errs.ErrMessaging, "read %s: %s", topic, err)
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			return nil
		}

		// drain worker errors without blocking the dispatch loop
		select {
		case e := <-errsCh:
			logrus.WithError(e).WithField("topic", topic).Warn("worker error")
			time.Sleep(200 * time.Millisecond)
		default:
		}
	}
}
