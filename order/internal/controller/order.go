package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inErrors "github.com/plateful/plateful/internal/errors"
	inHttp "github.com/plateful/plateful/internal/http"
	"github.com/plateful/plateful/internal/log"
	"github.com/plateful/plateful/internal/middleware"
	"github.com/plateful/plateful/order/internal/otel"
	"github.com/plateful/plateful/order/internal/service"
	"github.com/plateful/plateful/order/internal/watcher"
)

type OrderController struct {
	service *service.OrderService
	watcher *watcher.Watcher
}

func AttachOrderController(
	mux *mux.Router,
	service *service.OrderService,
	watcher *watcher.Watcher,
	secretKey string,
) {
	controller := OrderController{service: service, watcher: watcher}

	orders := mux.PathPrefix("/orders").Subrouter()
	orders.HandleFunc("/{orderId}", controller.FindOrderById).Methods(http.MethodGet)
	orders.HandleFunc("/{orderId}/track", controller.TrackOrder).Methods(http.MethodPost)

	staff := mux.PathPrefix("/orders").Subrouter()
	staff.Use(middleware.Auth(secretKey))
	staff.HandleFunc("/{orderId}/next-action", controller.FindNextAction).
		Methods(http.MethodGet)

	customers := mux.PathPrefix("/customers").Subrouter()
	customers.HandleFunc("/{customerId}/orders", controller.FindOrdersByCustomer).
		Methods(http.MethodGet)
	customers.HandleFunc("/{customerId}/orders/active", controller.HasActiveOrder).
		Methods(http.MethodGet)
}

func (t OrderController) FindOrderById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController FindOrderById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderController FindOrderById").
		Logger()

	orderId := mux.Vars(r)["orderId"]
	logger = logger.With().Str(log.KeyOrderID, orderId).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding order").Logger()
	logger.Info().Msg("finding order")
	c = logger.WithContext(c)
	order, err := t.service.FindOrderById(c, orderId)
	if err != nil {
		err = fmt.Errorf("failed finding order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		statusCode := http.StatusInternalServerError
		if errors.Is(err, inErrors.ErrOrderNotFound) {
			statusCode = http.StatusNotFound
		}
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusCode,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("found order")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found order",
		"data": map[string]interface{}{
			"order": order,
		},
	})
}

func (t OrderController) FindNextAction(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController FindNextAction")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderController FindNextAction").
		Logger()

	orderId := mux.Vars(r)["orderId"]
	logger = logger.With().Str(log.KeyOrderID, orderId).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding next action").Logger()
	logger.Info().Msg("finding next action")
	c = logger.WithContext(c)
	action, err := t.service.FindNextAction(c, orderId)
	if err != nil {
		err = fmt.Errorf("failed finding next action with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		statusCode := http.StatusInternalServerError
		if errors.Is(err, inErrors.ErrOrderNotFound) {
			statusCode = http.StatusNotFound
		}
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusCode,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("found next action")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found next action",
		"data": map[string]interface{}{
			"nextAction": action,
		},
	})
}

func (t OrderController) TrackOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController TrackOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderController TrackOrder").
		Logger()

	orderId := mux.Vars(r)["orderId"]
	logger = logger.With().Str(log.KeyOrderID, orderId).Logger()

	logger = logger.With().Str(log.KeyProcess, "tracking order").Logger()
	logger.Info().Msg("tracking order")
	t.watcher.Track(logger.WithContext(c), orderId)
	logger.Info().Msg("tracked order")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusAccepted,
		"message":    "tracking order",
	})
}

func (t OrderController) FindOrdersByCustomer(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController FindOrdersByCustomer")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderController FindOrdersByCustomer").
		Logger()

	customerId := mux.Vars(r)["customerId"]
	logger = logger.With().Str(log.KeyCustomerID, customerId).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding orders").Logger()
	logger.Info().Msg("finding orders")
	c = logger.WithContext(c)
	orders, err := t.service.FindOrdersByCustomer(c, customerId)
	if err != nil {
		err = fmt.Errorf("failed finding orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusInternalServerError,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("found orders")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found orders",
		"data": map[string]interface{}{
			"orders": orders,
		},
	})
}

func (t OrderController) HasActiveOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController HasActiveOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderController HasActiveOrder").
		Logger()

	customerId := mux.Vars(r)["customerId"]
	logger = logger.With().Str(log.KeyCustomerID, customerId).Logger()

	logger = logger.With().Str(log.KeyProcess, "checking active order").Logger()
	logger.Info().Msg("checking active order")
	c = logger.WithContext(c)
	hasActive, err := t.service.HasActiveOrder(c, customerId)
	if err != nil {
		err = fmt.Errorf("failed checking active order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusInternalServerError,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Bool("hasActiveOrder", hasActive).Msg("checked active order")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "checked active order",
		"data": map[string]interface{}{
			"hasActiveOrder": hasActive,
		},
	})
}
