package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/plateful/plateful/internal/constants"
	inErrors "github.com/plateful/plateful/internal/errors"
	"github.com/plateful/plateful/internal/log"
	"github.com/plateful/plateful/order/internal/client"
	"github.com/plateful/plateful/order/internal/otel"
	"github.com/plateful/plateful/order/pkg/lifecycle"
)

// Publisher is the slice of the redis client the watcher needs. *redis.Client
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// StatusChange is the message published when a tracked order moves.
type StatusChange struct {
	OrderId  string           `json:"orderId"`
	Previous lifecycle.Status `json:"previous"`
	Current  lifecycle.Status `json:"current"`
}

// Watcher polls tracked orders and publishes status changes. Each tracked
// order gets its own poll loop; the loop ends when the order reaches a
// terminal status or the context is cancelled.
type Watcher struct {
	base      context.Context
	client    *client.OrdersClient
	publisher Publisher
	interval  time.Duration

	mu      sync.Mutex
	tracked map[string]struct{}
}

// New creates a watcher whose poll loops live until base is cancelled.
func New(
	base context.Context,
	client *client.OrdersClient,
	publisher Publisher,
	interval time.Duration,
) *Watcher {
	return &Watcher{
		base:      base,
		client:    client,
		publisher: publisher,
		interval:  interval,
		tracked:   map[string]struct{}{},
	}
}

// Track starts watching an order. Tracking an already-tracked order is a
// no-op.
func (t *Watcher) Track(c context.Context, orderId string) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Watcher Track").
		Str(log.KeyOrderID, orderId).
		Logger()

	t.mu.Lock()
	if _, ok := t.tracked[orderId]; ok {
		t.mu.Unlock()
		logger.Info().Msg("order already tracked")
		return
	}
	t.tracked[orderId] = struct{}{}
	t.mu.Unlock()

	logger.Info().Msg("tracking order")
	go t.watch(logger.WithContext(t.base), orderId)
}

func (t *Watcher) untrack(orderId string) {
	t.mu.Lock()
	delete(t.tracked, orderId)
	t.mu.Unlock()
}

func (t *Watcher) watch(c context.Context, orderId string) {
	defer t.untrack(orderId)

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Watcher watch").
		Str(log.KeyOrderID, orderId).
		Logger()

	previous := lifecycle.Status("")
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			logger.Info().Msg("stopped watching order")
			return
		case <-ticker.C:
		}

		current, err := t.poll(c, orderId, previous)
		if err != nil {
			logger.Error().Err(err).Msg(err.Error())
			continue
		}
		previous = current
		if lifecycle.IsTerminal(current) {
			logger.Info().
				Str(log.KeyStatus, string(current)).
				Msg("order reached terminal status")
			return
		}
	}
}

func (t *Watcher) poll(
	c context.Context,
	orderId string,
	previous lifecycle.Status,
) (lifecycle.Status, error) {
	c, span := otel.Tracer.Start(c, "Watcher poll")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Watcher poll").
		Str(log.KeyOrderID, orderId).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding order").Logger()
	c = logger.WithContext(c)
	order, err := t.client.FindOrder(c, orderId)
	if err != nil {
		err = fmt.Errorf("failed polling order orderId=%s with error=%w", orderId, err)
		inErrors.HandleError(err, span)
		return previous, err
	}

	if order.Status == previous {
		return previous, nil
	}

	logger = logger.With().
		Str(log.KeyProcess, "publishing status change").
		Str(log.KeyStatus, string(order.Status)).
		Logger()
	logger.Info().Msg("publishing status change")
	change, err := json.Marshal(StatusChange{
		OrderId:  orderId,
		Previous: previous,
		Current:  order.Status,
	})
	if err != nil {
		err = fmt.Errorf("failed marshaling status change with error=%w", err)
		inErrors.HandleError(err, span)
		return order.Status, err
	}
	err = t.publisher.Publish(c, constants.CHANNEL_ORDER_STATUS_UPDATED, change).Err()
	if err != nil {
		err = fmt.Errorf("failed publishing status change with error=%w", err)
		inErrors.HandleError(err, span)
		return order.Status, err
	}
	logger.Info().Msg("published status change")

	return order.Status, nil
}
