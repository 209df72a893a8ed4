package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	inErrors "github.com/plateful/plateful/internal/errors"
	"github.com/plateful/plateful/internal/log"
	"github.com/plateful/plateful/order/internal/cache"
	"github.com/plateful/plateful/order/internal/client"
	"github.com/plateful/plateful/order/internal/otel"
	"github.com/plateful/plateful/order/pkg/lifecycle"
	"github.com/plateful/plateful/order/pkg/response"
)

type OrderService struct {
	client *client.OrdersClient
	cache  *redis.Client
}

func NewOrderService(client *client.OrdersClient, cache *redis.Client) *OrderService {
	return &OrderService{client: client, cache: cache}
}

func (t *OrderService) FindOrderById(
	c context.Context,
	orderId string,
) (response.OrderView, error) {
	c, span := otel.Tracer.Start(c, "OrderService FindOrderById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService FindOrderById").
		Str(log.KeyOrderID, orderId).
		Logger()

	cacheKey := fmt.Sprintf(cache.KeyOrder, orderId)
	logger = logger.With().
		Str(log.KeyProcess, "finding order in cache").
		Str(log.KeyCacheKey, cacheKey).
		Logger()
	logger.Info().Msg("finding order in cache")
	jsonOrder, err := t.cache.JSONGet(c, cacheKey).Result()
	if err == nil && jsonOrder != "" {
		order := response.Order{}
		if err := json.Unmarshal([]byte(jsonOrder), &order); err == nil {
			logger.Info().Msg("found order in cache")
			return response.View(order), nil
		}
	}
	logger.Info().Msg("order not found in cache")

	logger = logger.With().Str(log.KeyProcess, "finding order in orders api").Logger()
	logger.Info().Msg("finding order in orders api")
	c = logger.WithContext(c)
	order, err := t.client.FindOrder(c, orderId)
	if err != nil {
		err = fmt.Errorf("failed finding order orderId=%s with error=%w", orderId, err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.OrderView{}, err
	}
	logger.Info().Msg("found order in orders api")

	logger = logger.With().Str(log.KeyProcess, "inserting order to cache").Logger()
	logger.Info().Msg("inserting order to cache")
	if err := t.cache.JSONSet(c, cacheKey, "$", order).Err(); err != nil {
		err = fmt.Errorf("failed inserting order to cache with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	} else {
		t.cache.Expire(c, cacheKey, cache.TTLOrder)
		logger.Info().Msg("inserted order to cache")
	}

	return response.View(order), nil
}

func (t *OrderService) FindOrdersByCustomer(
	c context.Context,
	customerId string,
) (response.CustomerOrders, error) {
	c, span := otel.Tracer.Start(c, "OrderService FindOrdersByCustomer")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService FindOrdersByCustomer").
		Str(log.KeyCustomerID, customerId).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding orders in orders api").Logger()
	logger.Info().Msg("finding orders in orders api")
	c = logger.WithContext(c)
	orders, err := t.client.FindOrdersByCustomer(c, customerId)
	if err != nil {
		err = fmt.Errorf(
			"failed finding orders customerId=%s with error=%w",
			customerId,
			err,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.CustomerOrders{}, err
	}
	logger.Info().Int(log.KeyLineCount, len(orders)).Msg("found orders in orders api")

	result := response.CustomerOrders{
		Active:  []response.OrderView{},
		History: []response.OrderView{},
	}
	for _, order := range orders {
		view := response.View(order)
		if view.Active {
			result.Active = append(result.Active, view)
			continue
		}
		result.History = append(result.History, view)
	}
	return result, nil
}

func (t *OrderService) HasActiveOrder(c context.Context, customerId string) (bool, error) {
	c, span := otel.Tracer.Start(c, "OrderService HasActiveOrder")
	defer span.End()

	orders, err := t.FindOrdersByCustomer(c, customerId)
	if err != nil {
		err = fmt.Errorf(
			"failed checking active order customerId=%s with error=%w",
			customerId,
			err,
		)
		inErrors.HandleError(err, span)
		return false, err
	}
	return len(orders.Active) > 0, nil
}

// FindNextAction is advisory. It tells staff clients which transition to offer
// next; applying the transition stays with the upstream orders API.
func (t *OrderService) FindNextAction(
	c context.Context,
	orderId string,
) (*lifecycle.Action, error) {
	c, span := otel.Tracer.Start(c, "OrderService FindNextAction")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService FindNextAction").
		Str(log.KeyOrderID, orderId).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding order").Logger()
	logger.Info().Msg("finding order")
	c = logger.WithContext(c)
	view, err := t.FindOrderById(c, orderId)
	if err != nil {
		if errors.Is(err, inErrors.ErrOrderNotFound) {
			return nil, err
		}
		err = fmt.Errorf("failed finding order orderId=%s with error=%w", orderId, err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Str(log.KeyStatus, string(view.Status)).Msg("found order")

	return view.NextAction, nil
}
