package kafka

import (
	"context"
	"hash/fnv"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-storefront/internal/logkey"
)

// Handler returns nil only when the message was handled and its offset may
// be committed. A failing message is retried in place; later messages of the
// same partition wait behind it.
type Handler func(ctx context.Context, m kafka.Message) error

const (
	retryBackoff    = 200 * time.Millisecond
	maxRetryBackoff = 10 * time.Second
)

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *slog.Logger
}

// NewConsumer joins group and reads every topic in topics.
func NewConsumer(brokers []string, group string, topics []string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{r: r, workers: workers, log: log}
}

// Start fans messages out to the workers. Every partition is pinned to one
// worker, so offsets are committed in order.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup

	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 256)
		wg.Add(1)
		go func(jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if !handle(ctx, m, h, c.log) {
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					c.log.Error("consumer commit", logkey.ERROR, err, "topic", m.Topic)
				}
			}
		}(lanes[i])
	}
	stop := func() {
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case lanes[lane(m, c.workers)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

func lane(m kafka.Message, workers int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(m.Topic + "/" + strconv.Itoa(m.Partition)))
	return int(h.Sum32() % uint32(workers))
}

// handle runs h until it succeeds, backing off between attempts. It reports
// false only when ctx ended first; the message is then left uncommitted for
// the next member of the group.
func handle(ctx context.Context, m kafka.Message, h Handler, log *slog.Logger) bool {
	wait := retryBackoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		log.Error("consumer handler", logkey.ERROR, err,
			"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "attempt", attempt)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		if wait *= 2; wait > maxRetryBackoff {
			wait = maxRetryBackoff
		}
	}
}
