package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestHandle_RetriesFailedMessageInPlace(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	h := func(_ context.Context, m kafka.Message) error {
		if calls.Add(1) == 1 {
			return errors.New("redis down")
		}
		assert.EqualValues(t, 7, m.Offset, "the same message comes back")
		return nil
	}

	ok := handle(context.Background(), kafka.Message{Topic: "storefront.order.status", Offset: 7}, h, slog.Default())
	assert.True(t, ok)
	assert.EqualValues(t, 2, calls.Load())
}

func TestHandle_GivesUpOnlyWhenContextEnds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var calls atomic.Int32
	h := func(context.Context, kafka.Message) error {
		calls.Add(1)
		return errors.New("still down")
	}

	assert.False(t, handle(ctx, kafka.Message{Offset: 3}, h, slog.Default()))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestLane_PinsPartitionToOneWorker(t *testing.T) {
	t.Parallel()

	m := kafka.Message{Topic: "storefront.order.status", Partition: 2}
	first := lane(m, 4)
	for i := 0; i < 10; i++ {
		m.Offset = int64(i)
		assert.Equal(t, first, lane(m, 4))
	}
	assert.Zero(t, lane(m, 1))
}
