package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/plateful/plateful/cart/internal/cache"
	"github.com/plateful/plateful/cart/internal/otel"
	"github.com/plateful/plateful/cart/internal/repository"
	"github.com/plateful/plateful/cart/pkg/engine"
	"github.com/plateful/plateful/cart/pkg/request"
	"github.com/plateful/plateful/cart/pkg/response"
	inErrors "github.com/plateful/plateful/internal/errors"
	inHttp "github.com/plateful/plateful/internal/http"
	"github.com/plateful/plateful/internal/log"
	"github.com/plateful/plateful/order/pkg/lifecycle"
	orderResponse "github.com/plateful/plateful/order/pkg/response"
)

type CartService struct {
	repo      *repository.Repository
	cache     *redis.Client
	ordersUrl string
}

func NewCartService(
	repo *repository.Repository,
	cache *redis.Client,
	ordersUrl string,
) *CartService {
	return &CartService{repo: repo, cache: cache, ordersUrl: ordersUrl}
}

// loadCart restores the customer's cart, cache first, database second. A
// missing or unreadable snapshot yields an empty cart; persisted totals are
// always discarded and recomputed by the engine.
func (s CartService) loadCart(c context.Context, customerID string) (*engine.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService loadCart")
	defer span.End()

	cacheKey := fmt.Sprintf(cache.KeyCartState, customerID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService loadCart").
		Str(log.KeyCustomerID, customerID).
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	logger.Info().Msg("finding cart in cache")
	cached, err := s.cache.JSONGet(c, cacheKey).Result()
	if err == nil && cached != "" {
		logger.Info().Msg("found cart in cache")
		return engine.RestoreJSON([]byte(cached)), nil
	}
	if err != nil {
		err = fmt.Errorf("failed finding cart in cache with error=%w", err)
		logger.Info().Err(err).Msg(err.Error())
	}

	logger = logger.With().Str(log.KeyProcess, "finding cart in db").Logger()
	logger.Info().Msg("finding cart in db")
	snapshot, err := s.repo.FindSnapshot(c, customerID)
	if err != nil {
		if errors.Is(err, inErrors.ErrCartNotFound) {
			logger.Info().Msg("no persisted cart, starting empty")
			return engine.New(), nil
		}
		err = fmt.Errorf("failed finding cart in db with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("found cart in db")

	cart := engine.RestoreJSON(snapshot)

	logger = logger.With().Str(log.KeyProcess, "inserting cart in cache").Logger()
	logger.Info().Msg("inserting cart in cache")
	err = s.cache.JSONSet(c, cacheKey, "$", cart.Snapshot()).Err()
	if err != nil {
		err = fmt.Errorf("failed inserting cart in cache with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}

	return cart, nil
}

// persist writes the snapshot to the database, then to the cache.
func (s CartService) persist(c context.Context, customerID string, cart *engine.Cart) error {
	c, span := otel.Tracer.Start(c, "CartService persist")
	defer span.End()

	cacheKey := fmt.Sprintf(cache.KeyCartState, customerID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService persist").
		Str(log.KeyCustomerID, customerID).
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	snapshot, err := json.Marshal(cart.Snapshot())
	if err != nil {
		err = fmt.Errorf("failed marshaling cart snapshot with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "upserting cart to db").Logger()
	logger.Info().Msg("upserting cart to db")
	err = s.repo.UpsertSnapshot(c, customerID, snapshot)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("upserted cart to db")

	logger = logger.With().Str(log.KeyProcess, "inserting cart to cache").Logger()
	logger.Info().Msg("inserting cart to cache")
	err = s.cache.JSONSet(c, cacheKey, "$", cart.Snapshot()).Err()
	if err != nil {
		err = fmt.Errorf("failed inserting cart to cache with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("inserted cart to cache")

	return nil
}

func (s CartService) FindCart(c context.Context, customerID string) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService FindCart")
	defer span.End()

	cart, err := s.loadCart(c, customerID)
	if err != nil {
		return response.Cart{}, err
	}
	return response.FromEngine(customerID, cart), nil
}

func (s CartService) AddLine(
	c context.Context,
	customerID string,
	param request.AddLine,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService AddLine")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService AddLine").
		Str(log.KeyCustomerID, customerID).
		Logger()

	cart, err := s.loadCart(c, customerID)
	if err != nil {
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "adding line").Logger()
	logger.Info().Msg("adding line")
	line, err := cart.AddLine(param.Candidate())
	if err != nil {
		err = fmt.Errorf("failed adding line with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger = logger.With().
		Str(log.KeyCartLineID, line.ID.String()).
		Int32(log.KeyItemCount, cart.ItemCount()).
		Logger()
	logger.Info().Msg("added line")

	if err := s.persist(c, customerID, cart); err != nil {
		return response.Cart{}, err
	}
	return response.FromEngine(customerID, cart), nil
}

func (s CartService) UpdateLine(
	c context.Context,
	customerID string,
	lineID uuid.UUID,
	param request.UpdateLine,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService UpdateLine")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService UpdateLine").
		Str(log.KeyCustomerID, customerID).
		Str(log.KeyCartLineID, lineID.String()).
		Logger()

	cart, err := s.loadCart(c, customerID)
	if err != nil {
		return response.Cart{}, err
	}

	logger.Info().Msg("updating line")
	cart.UpdateLine(lineID, param.Patch())
	logger.Info().Msg("updated line")

	if err := s.persist(c, customerID, cart); err != nil {
		return response.Cart{}, err
	}
	return response.FromEngine(customerID, cart), nil
}

func (s CartService) RemoveLine(
	c context.Context,
	customerID string,
	lineID uuid.UUID,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService RemoveLine")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RemoveLine").
		Str(log.KeyCustomerID, customerID).
		Str(log.KeyCartLineID, lineID.String()).
		Logger()

	cart, err := s.loadCart(c, customerID)
	if err != nil {
		return response.Cart{}, err
	}

	logger.Info().Msg("removing line")
	cart.RemoveLine(lineID)
	logger.Info().Msg("removed line")

	if err := s.persist(c, customerID, cart); err != nil {
		return response.Cart{}, err
	}
	return response.FromEngine(customerID, cart), nil
}

func (s CartService) SetTip(
	c context.Context,
	customerID string,
	param request.SetTip,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService SetTip")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService SetTip").
		Str(log.KeyCustomerID, customerID).
		Str(log.KeyTipAmount, param.TipAmount.String()).
		Logger()

	cart, err := s.loadCart(c, customerID)
	if err != nil {
		return response.Cart{}, err
	}

	logger.Info().Msg("setting tip")
	cart.SetTip(param.TipAmount)
	logger.Info().Msg("set tip")

	if err := s.persist(c, customerID, cart); err != nil {
		return response.Cart{}, err
	}
	return response.FromEngine(customerID, cart), nil
}

// ClearCart empties the cart and removes the persisted snapshot entirely so a
// corrupted or legacy entry cannot resurrect stale data.
func (s CartService) ClearCart(c context.Context, customerID string) error {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()

	cacheKey := fmt.Sprintf(cache.KeyCartState, customerID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService ClearCart").
		Str(log.KeyCustomerID, customerID).
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "deleting cart from db").Logger()
	logger.Info().Msg("deleting cart from db")
	err := s.repo.DeleteSnapshot(c, customerID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted cart from db")

	logger = logger.With().Str(log.KeyProcess, "deleting cart from cache").Logger()
	logger.Info().Msg("deleting cart from cache")
	err = s.cache.JSONDel(c, cacheKey, "$").Err()
	if err != nil {
		err = fmt.Errorf("failed deleting cart from cache with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted cart from cache")

	return nil
}

// CheckoutCart submits the cart to the external orders API. The cart is
// cleared only after the API confirms success; any failure leaves it intact.
func (s CartService) CheckoutCart(
	c context.Context,
	customerID string,
	param request.Checkout,
) (orderResponse.Order, error) {
	c, span := otel.Tracer.Start(c, "CartService CheckoutCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService CheckoutCart").
		Str(log.KeyCustomerID, customerID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "loading cart").Logger()
	logger.Info().Msg("loading cart")
	cart, err := s.loadCart(c, customerID)
	if err != nil {
		return orderResponse.Order{}, err
	}
	if cart.ItemCount() == 0 {
		err = inErrors.ErrEmptyCart
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	logger.Info().Msg("loaded cart")

	logger = logger.With().Str(log.KeyProcess, "checking active order").Logger()
	logger.Info().Msg("checking active order")
	span.AddEvent("checking active order")
	hasActive, err := s.hasActiveOrder(c, customerID)
	if err != nil {
		err = fmt.Errorf("failed checking active order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	if hasActive {
		err = inErrors.ErrActiveOrder
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	span.AddEvent("checked active order")
	logger.Info().Msg("checked active order")

	logger = logger.With().Str(log.KeyProcess, "submitting order").Logger()
	logger.Info().Msg("submitting order")
	span.AddEvent("submitting order")
	submission := response.FromEngine(customerID, cart).SubmitOrder(param.PaymentMethod)
	payload, err := json.Marshal(submission)
	if err != nil {
		err = fmt.Errorf("failed marshaling order submission with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	req, err := http.NewRequestWithContext(
		c,
		http.MethodPost,
		s.ordersUrl+"/orders",
		bytes.NewBuffer(payload),
	)
	if err != nil {
		err = fmt.Errorf("failed creating request to orders api with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	req.Header.Add(inHttp.HeaderContentType, inHttp.HeaderValueJson)
	req.Header.Add(inHttp.HeaderRequestID, log.RequestIDFromContext(c))
	resp, err := otelhttp.DefaultClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed submitting order to orders api with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	defer resp.Body.Close()

	envelope := orderResponse.Envelope{}
	err = json.NewDecoder(resp.Body).Decode(&envelope)
	if err != nil {
		err = fmt.Errorf("failed decoding orders api response with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		err = fmt.Errorf(
			"orders api returned status code=%d with error=%s",
			resp.StatusCode,
			envelope.Error,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	if !envelope.Success {
		err = fmt.Errorf("orders api rejected submission with error=%s", envelope.Error)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	order := orderResponse.Order{}
	err = json.Unmarshal(envelope.Data, &order)
	if err != nil {
		err = fmt.Errorf("failed decoding submitted order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	span.AddEvent("submitted order")
	logger = logger.With().Str(log.KeyOrderID, order.Id).Logger()
	logger.Info().Msg("submitted order")

	logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
	logger.Info().Msg("clearing cart")
	span.AddEvent("clearing cart")
	c = logger.WithContext(c)
	err = s.ClearCart(c, customerID)
	if err != nil {
		err = fmt.Errorf("failed clearing cart after checkout with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return orderResponse.Order{}, err
	}
	span.AddEvent("cleared cart")
	logger.Info().Msg("cleared cart")

	return order, nil
}

// hasActiveOrder asks the external orders API for the customer's orders and
// reports whether any is still active. Checkout is blocked while one is.
func (s CartService) hasActiveOrder(c context.Context, customerID string) (bool, error) {
	req, err := http.NewRequestWithContext(
		c,
		http.MethodGet,
		s.ordersUrl+"/customers/"+customerID+"/orders",
		nil,
	)
	if err != nil {
		return false, err
	}
	req.Header.Add(inHttp.HeaderRequestID, log.RequestIDFromContext(c))
	resp, err := otelhttp.DefaultClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("orders api returned status code=%d", resp.StatusCode)
	}

	envelope := orderResponse.Envelope{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return false, err
	}
	orders := []orderResponse.Order{}
	if err := json.Unmarshal(envelope.Data, &orders); err != nil {
		return false, err
	}
	for _, order := range orders {
		if lifecycle.IsActive(order.Status) {
			return true, nil
		}
	}
	return false, nil
}
