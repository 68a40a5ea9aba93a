package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryBusDeliver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewMemoryBus(testLogger())

	got := make(chan []byte, 1)
	require.NoError(t, b.Subscribe(ctx, "t", func(ctx context.Context, payload []byte) error {
		got <- payload
		return nil
	}))
	require.NoError(t, b.Publish(ctx, "t", []byte("hello")))

	select {
	case p := <-got:
		require.Equal(t, []byte("hello"), p)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

// Опоздавший подписчик получает накопленный backlog, как
// durable-подписка с DeliverAllAvailable.
func TestMemoryBusReplaysBacklog(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewMemoryBus(testLogger())

	require.NoError(t, b.Publish(ctx, "t", []byte("one")))
	require.NoError(t, b.Publish(ctx, "t", []byte("two")))

	got := make(chan []byte, 2)
	require.NoError(t, b.Subscribe(ctx, "t", func(ctx context.Context, payload []byte) error {
		got <- payload
		return nil
	}))

	require.Equal(t, []byte("one"), <-got)
	require.Equal(t, []byte("two"), <-got)
}

// Ошибка обработчика означает «не подтверждено»: сообщение
// доставляется повторно, пока обработчик не справится.
func TestMemoryBusRedelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewMemoryBus(testLogger())

	var attempts atomic.Int64
	done := make(chan struct{})
	require.NoError(t, b.Subscribe(ctx, "t", func(ctx context.Context, payload []byte) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	}))
	require.NoError(t, b.Publish(ctx, "t", []byte("x")))

	select {
	case <-done:
		require.EqualValues(t, 3, attempts.Load())
	case <-time.After(time.Second):
		t.Fatal("message was not redelivered")
	}
}

func TestRetryWrapSucceedsWithoutDLQ(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewMemoryBus(testLogger())
	r := &Retry{Bus: b, Attempts: 3, Backoff: time.Millisecond, Log: testLogger()}

	var calls atomic.Int64
	h := r.Wrap("t", func(ctx context.Context, payload []byte) error {
		if calls.Add(1) < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, h(ctx, []byte("x")))
	require.EqualValues(t, 2, calls.Load())
}

// После исчерпания попыток сообщение уходит в <топик>.dlq и
// подтверждается, чтобы не блокировать очередь.
func TestRetryWrapDeadLetters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewMemoryBus(testLogger())
	r := &Retry{Bus: b, Attempts: 2, Backoff: time.Millisecond, Log: testLogger()}

	dead := make(chan []byte, 1)
	require.NoError(t, b.Subscribe(ctx, "t"+DLQSuffix, func(ctx context.Context, payload []byte) error {
		dead <- payload
		return nil
	}))

	h := r.Wrap("t", func(ctx context.Context, payload []byte) error {
		return errors.New("permanent failure")
	})
	require.NoError(t, h(ctx, []byte("poison")))

	select {
	case p := <-dead:
		require.Equal(t, []byte("poison"), p)
	case <-time.After(time.Second):
		t.Fatal("payload not dead-lettered")
	}
}
