package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	inErrors "github.com/plateful/plateful/internal/errors"
	"github.com/plateful/plateful/order/internal/client"
	"github.com/plateful/plateful/order/pkg/lifecycle"
	"github.com/plateful/plateful/order/pkg/response"
)

// ordersStub fakes the external orders API with a mutable order table.
type ordersStub struct {
	server *httptest.Server

	mu     sync.Mutex
	orders map[string]response.Order
	hits   int
}

func newOrdersStub() *ordersStub {
	stub := &ordersStub{orders: map[string]response.Order{}}
	router := mux.NewRouter()
	router.HandleFunc("/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		stub.hits++
		order, ok := stub.orders[mux.Vars(r)["orderId"]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).
				Encode(response.Envelope{Success: false, Error: "order not found"})
			return
		}
		data, _ := json.Marshal(order)
		_ = json.NewEncoder(w).Encode(response.Envelope{Success: true, Data: data})
	}).Methods(http.MethodGet)
	router.HandleFunc(
		"/customers/{customerId}/orders",
		func(w http.ResponseWriter, r *http.Request) {
			stub.mu.Lock()
			defer stub.mu.Unlock()
			customerId := mux.Vars(r)["customerId"]
			orders := []response.Order{}
			for _, order := range stub.orders {
				if order.CustomerId == customerId {
					orders = append(orders, order)
				}
			}
			data, _ := json.Marshal(orders)
			_ = json.NewEncoder(w).Encode(response.Envelope{Success: true, Data: data})
		},
	).Methods(http.MethodGet)
	stub.server = httptest.NewServer(router)
	return stub
}

func (s *ordersStub) put(order response.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.Id] = order
}

func setup(
	t *testing.T,
	c context.Context,
	ordersUrl string,
) (*redis.Client, *testRedis.RedisContainer, *OrderService) {
	redisContainer, err := testRedis.Run(c, "redis/redis-stack-server:7.4.0-v3")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}

	redisConnStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}

	redisOpt, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}

	redisClient := redis.NewClient(redisOpt)
	if err = redisClient.Ping(c).Err(); err != nil {
		t.Fatalf("failed ping redis client with error: %s", err)
	}

	orderService := NewOrderService(client.NewOrdersClient(ordersUrl), redisClient)
	return redisClient, redisContainer, orderService
}

func teardown(
	t *testing.T,
	redisClient *redis.Client,
	redisContainer *testRedis.RedisContainer,
) {
	redisClient.Close()
	if err := testcontainers.TerminateContainer(redisContainer); err != nil {
		t.Fatalf("failed to terminate container: %s", err)
	}
}

func TestFindOrderByIdDecoratesView(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	stub.put(response.Order{
		Id:         "order-1",
		CustomerId: "customer-1",
		Status:     lifecycle.StatusReady,
	})
	redisClient, redisContainer, orderService := setup(t, c, stub.server.URL)
	defer teardown(t, redisClient, redisContainer)

	view, err := orderService.FindOrderById(c, "order-1")

	assert.NoError(t, err)
	assert.True(t, view.Active)
	assert.NotNil(t, view.NextAction)
	assert.Equal(t, lifecycle.StatusDelivered, view.NextAction.Next)
	assert.Equal(t, "Mark as Delivered", view.NextAction.Label)
	assert.Equal(t, "Ready", view.Style.Label)
}

func TestFindOrderByIdServesFromCache(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	stub.put(response.Order{
		Id:         "order-1",
		CustomerId: "customer-1",
		Status:     lifecycle.StatusPending,
	})
	redisClient, redisContainer, orderService := setup(t, c, stub.server.URL)
	defer teardown(t, redisClient, redisContainer)

	_, err := orderService.FindOrderById(c, "order-1")
	assert.NoError(t, err)
	_, err = orderService.FindOrderById(c, "order-1")
	assert.NoError(t, err)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, 1, stub.hits)
}

func TestFindOrderByIdNotFound(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	redisClient, redisContainer, orderService := setup(t, c, stub.server.URL)
	defer teardown(t, redisClient, redisContainer)

	_, err := orderService.FindOrderById(c, "order-missing")

	assert.ErrorIs(t, err, inErrors.ErrOrderNotFound)
}

func TestFindOrdersByCustomerSplitsActiveAndHistory(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	stub.put(response.Order{
		Id:         "order-1",
		CustomerId: "customer-1",
		Status:     lifecycle.StatusPreparing,
	})
	stub.put(response.Order{
		Id:         "order-2",
		CustomerId: "customer-1",
		Status:     lifecycle.StatusDelivered,
	})
	stub.put(response.Order{
		Id:         "order-3",
		CustomerId: "customer-2",
		Status:     lifecycle.StatusPending,
	})
	redisClient, redisContainer, orderService := setup(t, c, stub.server.URL)
	defer teardown(t, redisClient, redisContainer)

	orders, err := orderService.FindOrdersByCustomer(c, "customer-1")

	assert.NoError(t, err)
	assert.Len(t, orders.Active, 1)
	assert.Equal(t, "order-1", orders.Active[0].Id)
	assert.Len(t, orders.History, 1)
	assert.Equal(t, "order-2", orders.History[0].Id)
}

func TestHasActiveOrder(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	stub.put(response.Order{
		Id:         "order-1",
		CustomerId: "customer-1",
		Status:     lifecycle.StatusPendingPayment,
	})
	stub.put(response.Order{
		Id:         "order-2",
		CustomerId: "customer-2",
		Status:     lifecycle.StatusCancelled,
	})
	redisClient, redisContainer, orderService := setup(t, c, stub.server.URL)
	defer teardown(t, redisClient, redisContainer)

	hasActive, err := orderService.HasActiveOrder(c, "customer-1")
	assert.NoError(t, err)
	assert.True(t, hasActive)

	hasActive, err = orderService.HasActiveOrder(c, "customer-2")
	assert.NoError(t, err)
	assert.False(t, hasActive)
}

func TestFindNextActionTerminalStatusIsNil(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	stub.put(response.Order{
		Id:         "order-1",
		CustomerId: "customer-1",
		Status:     lifecycle.StatusCancelled,
	})
	redisClient, redisContainer, orderService := setup(t, c, stub.server.URL)
	defer teardown(t, redisClient, redisContainer)

	action, err := orderService.FindNextAction(c, "order-1")

	assert.NoError(t, err)
	assert.Nil(t, action)
}
