package request

import (
	"github.com/shopspring/decimal"

	"github.com/plateful/plateful/cart/pkg/engine"
)

// SubmitOrder is the checkout payload sent to the external orders API. Items
// and totals are a point-in-time snapshot of the cart.
type SubmitOrder struct {
	CustomerId    string          `json:"customerId"`
	Items         []engine.Line   `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Tip           decimal.Decimal `json:"tip"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
}
