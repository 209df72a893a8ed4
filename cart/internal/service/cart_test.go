package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/plateful/plateful/cart/internal/cache"
	"github.com/plateful/plateful/cart/pkg/engine"
	"github.com/plateful/plateful/cart/pkg/request"
	inErrors "github.com/plateful/plateful/internal/errors"
	"github.com/plateful/plateful/order/pkg/lifecycle"
	orderResponse "github.com/plateful/plateful/order/pkg/response"
)

// ordersStub fakes the external orders API: POST /orders accepts submissions
// and GET /customers/{id}/orders serves whatever orders the test staged.
type ordersStub struct {
	server      *httptest.Server
	orders      []orderResponse.Order
	rejectNext  bool
	submissions int
}

func newOrdersStub() *ordersStub {
	stub := &ordersStub{}
	router := mux.NewRouter()
	router.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		if stub.rejectNext {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"success":false,"error":"payment declined"}`)
			return
		}
		stub.submissions++
		order := orderResponse.Order{
			Id:          "order-1",
			OrderNumber: "A-1001",
			Status:      lifecycle.StatusPending,
		}
		data, _ := json.Marshal(order)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(orderResponse.Envelope{Success: true, Data: data})
	}).Methods(http.MethodPost)
	router.HandleFunc(
		"/customers/{customerId}/orders",
		func(w http.ResponseWriter, r *http.Request) {
			data, _ := json.Marshal(stub.orders)
			_ = json.NewEncoder(w).Encode(orderResponse.Envelope{Success: true, Data: data})
		},
	).Methods(http.MethodGet)
	stub.server = httptest.NewServer(router)
	return stub
}

func addBurger(quantity int32) request.AddLine {
	return request.AddLine{
		ItemId:    "item-burger",
		Name:      "Classic Burger",
		UnitPrice: decimal.NewFromInt(10),
		Quantity:  quantity,
	}
}

func TestCartPersistsAcrossLoads(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	customerId := "customer-1"
	_, err := cartService.AddLine(c, customerId, addBurger(2))
	assert.NoError(t, err)

	// drop the cache entry so the next read must come from postgres
	cacheKey := fmt.Sprintf(cache.KeyCartState, customerId)
	assert.NoError(t, redisClient.JSONDel(c, cacheKey, "$").Err())

	cart, err := cartService.FindCart(c, customerId)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.EqualValues(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Subtotal.Equal(decimal.NewFromInt(20)), "subtotal=%s", cart.Subtotal)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(22)), "total=%s", cart.Total)
}

func TestFindCartUnknownCustomerIsEmpty(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	cart, err := cartService.FindCart(c, "customer-unknown")

	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

func TestStoredTotalsAreNeverTrusted(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	// a snapshot written by hand, with a tampered line total and no totals
	customerId := "customer-tampered"
	snapshot := fmt.Sprintf(
		`{"items":[{"id":%q,"itemId":"item-burger","name":"Classic Burger","unitPrice":"10","quantity":2,"selectedModifiers":null,"specialNotes":"","lineTotal":"999"}],"tipAmount":"-3"}`,
		"f47ac10b-58cc-4372-a567-0e02b2c3d479",
	)
	_, err := pool.Exec(
		c,
		"insert into cart_snapshots (customer_id, snapshot) values ($1, $2)",
		customerId,
		[]byte(snapshot),
	)
	assert.NoError(t, err)

	cart, err := cartService.FindCart(c, customerId)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.True(t, cart.Items[0].LineTotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, cart.TipAmount.IsZero())
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(22)), "total=%s", cart.Total)
}

func TestUpdateLineToZeroRemovesAndRemoveLine(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	customerId := "customer-2"
	cart, err := cartService.AddLine(c, customerId, addBurger(1))
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	zero := int32(0)
	cart, err = cartService.UpdateLine(
		c,
		customerId,
		cart.Items[0].ID,
		request.UpdateLine{Quantity: &zero},
	)
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

func TestSetTipClampsNegative(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	customerId := "customer-3"
	_, err := cartService.AddLine(c, customerId, addBurger(1))
	assert.NoError(t, err)

	cart, err := cartService.SetTip(
		c,
		customerId,
		request.SetTip{TipAmount: decimal.NewFromInt(-5)},
	)
	assert.NoError(t, err)
	assert.True(t, cart.TipAmount.IsZero())
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(11)), "total=%s", cart.Total)
}

func TestCheckoutClearsCart(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	customerId := "customer-4"
	_, err := cartService.AddLine(c, customerId, addBurger(2))
	assert.NoError(t, err)

	order, err := cartService.CheckoutCart(
		c,
		customerId,
		request.Checkout{PaymentMethod: "card"},
	)
	assert.NoError(t, err)
	assert.Equal(t, "order-1", order.Id)
	assert.Equal(t, 1, stub.submissions)

	cart, err := cartService.FindCart(c, customerId)
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckoutEmptyCartFails(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	_, err := cartService.CheckoutCart(
		c,
		"customer-5",
		request.Checkout{PaymentMethod: "card"},
	)

	assert.ErrorIs(t, err, inErrors.ErrEmptyCart)
	assert.Equal(t, 0, stub.submissions)
}

func TestCheckoutBlockedByActiveOrder(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	stub.orders = []orderResponse.Order{
		{Id: "order-0", CustomerId: "customer-6", Status: lifecycle.StatusPreparing},
	}
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	customerId := "customer-6"
	_, err := cartService.AddLine(c, customerId, addBurger(1))
	assert.NoError(t, err)

	_, err = cartService.CheckoutCart(c, customerId, request.Checkout{PaymentMethod: "card"})

	assert.ErrorIs(t, err, inErrors.ErrActiveOrder)
	assert.Equal(t, 0, stub.submissions)
}

func TestFailedCheckoutLeavesCartIntact(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	stub.rejectNext = true
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	customerId := "customer-7"
	_, err := cartService.AddLine(c, customerId, addBurger(1))
	assert.NoError(t, err)

	_, err = cartService.CheckoutCart(c, customerId, request.Checkout{PaymentMethod: "card"})
	assert.Error(t, err)

	cart, err := cartService.FindCart(c, customerId)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestMergeSurvivesPersistence(t *testing.T) {
	c := context.Background()
	stub := newOrdersStub()
	defer stub.server.Close()
	redisClient, pool, pgContainer, redisContainer, cartService := setup(t)(c, stub.server.URL)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	customerId := "customer-8"
	withCheese := addBurger(1)
	withCheese.SelectedModifiers = []engine.ModifierSelection{
		{
			GroupName: "Extras",
			SelectedOptions: []engine.ModifierOption{
				{Name: "Extra Cheese", Price: decimal.NewFromFloat(1.50)},
			},
		},
	}

	_, err := cartService.AddLine(c, customerId, withCheese)
	assert.NoError(t, err)
	cart, err := cartService.AddLine(c, customerId, withCheese)
	assert.NoError(t, err)

	assert.Len(t, cart.Items, 1)
	assert.EqualValues(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Subtotal.Equal(decimal.NewFromInt(23)), "subtotal=%s", cart.Subtotal)
}
