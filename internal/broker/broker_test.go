package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-petshop-orders.git/internal/config"
	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"stock-deduction", "stock-deduction"},
		{"Stock Deduction", "stock-deduction"},
		{"stock_deduction", "stock-deduction"},
		{"order.stock.restore", "order-stock-restore"},
		{"  Weird__Name!! ", "weird-name"},
		{"UPPER", "upper"},
		{"a--b", "a-b"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "input %q", tc.in)
	}
}

func TestSelectProvider(t *testing.T) {
	t.Run("explicit choice wins", func(t *testing.T) {
		p, err := SelectProvider(config.Config{BrokerProvider: "memory", KafkaBrokers: []string{"kafka:9092"}})
		require.NoError(t, err)
		assert.Equal(t, ProviderMemory, p)
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		_, err := SelectProvider(config.Config{BrokerProvider: "rabbitmq"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("auto-detect kafka before redis", func(t *testing.T) {
		p, err := SelectProvider(config.Config{KafkaBrokers: []string{"kafka:9092"}, RedisAddr: "redis:6379"})
		require.NoError(t, err)
		assert.Equal(t, ProviderKafka, p)
	})

	t.Run("auto-detect redis", func(t *testing.T) {
		p, err := SelectProvider(config.Config{RedisAddr: "redis:6379"})
		require.NoError(t, err)
		assert.Equal(t, ProviderRedis, p)
	})

	t.Run("falls through to memory", func(t *testing.T) {
		p, err := SelectProvider(config.Config{})
		require.NoError(t, err)
		assert.Equal(t, ProviderMemory, p)
	})

	t.Run("redis provider requires an address", func(t *testing.T) {
		_, err := Open(config.Config{BrokerProvider: "redis"}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestMemoryBrokerRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker(8)
	defer b.Close()

	type payload struct {
		OrderID int64 `json:"order_id"`
	}

	require.NoError(t, b.Send(ctx, "Stock Deduction", payload{OrderID: 7}))
	require.NoError(t, b.SendBatch(ctx, "stock-deduction", []any{payload{OrderID: 8}, payload{OrderID: 9}}))
	assert.True(t, b.Healthy(ctx))

	got := make(chan Message, 3)
	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Consume(cctx, "stock_deduction", func(ctx context.Context, m Message) error {
			got <- m
			return nil
		})
	}()

	var seen []Message
	for i := 0; i < 3; i++ {
		select {
		case m := <-got:
			seen = append(seen, m)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
	cancel()
	<-done

	require.Len(t, seen, 3)
	assert.Equal(t, "stock-deduction", seen[0].Destination)
	assert.JSONEq(t, `{"order_id":7}`, string(seen[0].Payload))
}

func TestMemoryBrokerExplicitFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("full queue errors instead of dropping", func(t *testing.T) {
		b := NewMemoryBroker(1)
		defer b.Close()
		require.NoError(t, b.Send(ctx, "d", 1))
		err := b.Send(ctx, "d", 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrMessaging)
	})

	t.Run("closed broker errors", func(t *testing.T) {
		b := NewMemoryBroker(1)
		require.NoError(t, b.Close())
		err := b.Send(ctx, "d", 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrMessaging)
		assert.False(t, b.Healthy(ctx))
	})

	t.Run("unmarshalable payload errors", func(t *testing.T) {
		b := NewMemoryBroker(1)
		defer b.Close()
		err := b.Send(ctx, "d", make(chan int))
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrMessaging)
	})
}

func TestMemoryBrokerRedeliversOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewMemoryBroker(8)
	defer b.Close()

	require.NoError(t, b.Send(ctx, "d", map[string]int{"n": 1}))

	attempts := make(chan int, 4)
	n := 0
	go func() {
		_ = b.Consume(ctx, "d", func(ctx context.Context, m Message) error {
			n++
			attempts <- n
			if n == 1 {
				return errs.ErrMessaging
			}
			return nil
		})
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected redelivery, saw %d attempts", i)
		}
	}
}
