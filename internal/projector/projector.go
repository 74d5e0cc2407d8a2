// Package projector consumes storefront events and keeps the latest order
// and tracking status of each order in a cache the API can read cheaply.
package projector

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-storefront/internal/events"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logkey"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

// Topics the projector subscribes to.
var Topics = []string{events.TopicOrderPlaced, events.TopicOrderStatus, events.TopicTrackingUpdated}

type Deduper interface {
	First(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type Cache interface {
	Get(ctx context.Context, orderID string) (redisx.OrderStatus, bool, error)
	Put(ctx context.Context, st redisx.OrderStatus) error
}

type Service struct {
	Dedup Deduper
	Cache Cache
	Log   *slog.Logger
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// HandleMessage is the consumer handler. Each event id is applied at most
// once; a failed apply releases the id so the redelivery is processed.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m)
	if err != nil {
		// a poison message would block the partition forever
		s.log().Error("skip undecodable message", logkey.ERROR, err)
		return nil
	}
	if env.EventVersion > events.Version {
		s.log().Warn("skip newer event version", logkey.EventType, env.EventType, "version", env.EventVersion)
		return nil
	}

	first, err := s.Dedup.First(ctx, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}
	if err := s.Apply(ctx, env); err != nil {
		if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
			s.log().Error("release dedup key", logkey.ERROR, ferr)
		}
		return err
	}
	return nil
}

// Apply folds one envelope into the cache. Events older than the cached
// projection are ignored.
func (s *Service) Apply(ctx context.Context, env events.Envelope) error {
	log := s.log().With(logkey.TraceID, env.TraceID, logkey.EventType, env.EventType)

	switch env.EventType {
	case events.EventOrderStatusChanged:
		p, err := events.Decode[events.OrderStatusChangedPayload](env)
		if err != nil {
			log.Error("decode payload", logkey.ERROR, err)
			return nil
		}
		if p.Forced {
			log.Warn("forced status change", logkey.OrderID, p.OrderID, "from", p.From, "to", p.To)
		}
		return s.update(ctx, p.OrderID, env, func(st *redisx.OrderStatus) {
			st.Status = p.To
		})

	case events.EventTrackingUpdated:
		p, err := events.Decode[events.TrackingUpdatedPayload](env)
		if err != nil {
			log.Error("decode payload", logkey.ERROR, err)
			return nil
		}
		return s.update(ctx, p.OrderID, env, func(st *redisx.OrderStatus) {
			if p.Status != "" {
				st.TrackingStatus = p.Status
			}
			if p.Courier != "" {
				st.Courier = p.Courier
			}
			if p.TrackingNumber != "" {
				st.TrackingNumber = p.TrackingNumber
			}
		})

	case events.EventOrderPlaced:
		p, err := events.Decode[events.OrderPlacedPayload](env)
		if err != nil {
			log.Error("decode payload", logkey.ERROR, err)
			return nil
		}
		log.Info("order placed", logkey.UserID, p.UserID, "total", p.Total, "method", p.PaymentMethod, "points", p.LoyaltyPoints)
		return nil
	}
	return nil
}

func (s *Service) update(ctx context.Context, orderID string, env events.Envelope, fn func(*redisx.OrderStatus)) error {
	if orderID == "" {
		return nil
	}
	st, ok, err := s.Cache.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if ok && st.UpdatedAt.After(env.OccurredAt) {
		return nil
	}
	st.OrderID = orderID
	fn(&st)
	st.UpdatedAt = env.OccurredAt
	return s.Cache.Put(ctx, st)
}
