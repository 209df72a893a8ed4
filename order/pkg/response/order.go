package response

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/plateful/plateful/cart/pkg/engine"
	"github.com/plateful/plateful/order/pkg/lifecycle"
)

// Order is the read-only projection the external orders API returns. This
// service never mutates it; status transitions happen upstream.
type Order struct {
	Id          string           `json:"id"`
	OrderNumber string           `json:"orderNumber"`
	CustomerId  string           `json:"customerId"`
	Status      lifecycle.Status `json:"status"`
	Items       []engine.Line    `json:"items"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	Tax         decimal.Decimal  `json:"tax"`
	Tip         decimal.Decimal  `json:"tip"`
	Total       decimal.Decimal  `json:"total"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// OrderView is an Order decorated with the lifecycle view model for the UI.
type OrderView struct {
	Order
	Active     bool              `json:"active"`
	NextAction *lifecycle.Action `json:"nextAction,omitempty"`
	Style      lifecycle.Style   `json:"style"`
}

func View(o Order) OrderView {
	view := OrderView{
		Order:  o,
		Active: lifecycle.IsActive(o.Status),
		Style:  lifecycle.StyleFor(o.Status),
	}
	if action, ok := lifecycle.NextAction(o.Status); ok {
		view.NextAction = &action
	}
	return view
}

// CustomerOrders splits a customer's orders the way the UI renders them.
type CustomerOrders struct {
	Active  []OrderView `json:"active"`
	History []OrderView `json:"history"`
}
