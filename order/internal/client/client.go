package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	inErrors "github.com/plateful/plateful/internal/errors"
	inHttp "github.com/plateful/plateful/internal/http"
	"github.com/plateful/plateful/internal/log"
	"github.com/plateful/plateful/order/internal/otel"
	"github.com/plateful/plateful/order/pkg/response"
)

// OrdersClient reads order projections from the external orders API.
type OrdersClient struct {
	baseUrl string
}

func NewOrdersClient(baseUrl string) *OrdersClient {
	return &OrdersClient{baseUrl: baseUrl}
}

func (t *OrdersClient) get(c context.Context, url string, out interface{}) error {
	c, span := otel.Tracer.Start(c, "OrdersClient get")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrdersClient get").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "creating request").Logger()
	logger.Info().Msg("creating request")
	req, err := http.NewRequestWithContext(c, http.MethodGet, url, nil)
	if err != nil {
		err = fmt.Errorf("failed creating request with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	req.Header.Add(inHttp.HeaderRequestID, log.RequestIDFromContext(c))
	logger.Info().Msg("created request")

	logger = logger.With().Str(log.KeyProcess, "sending request").Logger()
	logger.Info().Msg("sending request")
	resp, err := otelhttp.DefaultClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed sending request with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer resp.Body.Close()
	logger.Info().Msg("sent request")

	if resp.StatusCode == http.StatusNotFound {
		return inErrors.ErrOrderNotFound
	}

	logger = logger.With().Str(log.KeyProcess, "decoding response body").Logger()
	logger.Info().Msg("decoding response body")
	envelope := response.Envelope{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		err = fmt.Errorf("failed decoding response body with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if resp.StatusCode != http.StatusOK || !envelope.Success {
		err = fmt.Errorf(
			"orders api returned statusCode=%d error=%s",
			resp.StatusCode,
			envelope.Error,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		err = fmt.Errorf("failed unmarshaling response data with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("decoded response body")

	return nil
}

func (t *OrdersClient) FindOrder(c context.Context, orderId string) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrdersClient FindOrder")
	defer span.End()

	order := response.Order{}
	err := t.get(c, fmt.Sprintf("%s/orders/%s", t.baseUrl, orderId), &order)
	if err != nil {
		err = fmt.Errorf("failed finding order orderId=%s with error=%w", orderId, err)
		inErrors.HandleError(err, span)
		return response.Order{}, err
	}
	return order, nil
}

func (t *OrdersClient) FindOrdersByCustomer(
	c context.Context,
	customerId string,
) ([]response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrdersClient FindOrdersByCustomer")
	defer span.End()

	orders := []response.Order{}
	err := t.get(c, fmt.Sprintf("%s/customers/%s/orders", t.baseUrl, customerId), &orders)
	if err != nil {
		err = fmt.Errorf(
			"failed finding orders customerId=%s with error=%w",
			customerId,
			err,
		)
		inErrors.HandleError(err, span)
		return nil, err
	}
	return orders, nil
}
