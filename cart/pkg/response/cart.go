package response

import (
	"github.com/shopspring/decimal"

	"github.com/plateful/plateful/cart/pkg/engine"
)

type Cart struct {
	CustomerId string          `json:"customerId"`
	Items      []engine.Line   `json:"items"`
	TipAmount  decimal.Decimal `json:"tipAmount"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxAmount  decimal.Decimal `json:"taxAmount"`
	Total      decimal.Decimal `json:"total"`
	ItemCount  int32           `json:"itemCount"`
}

func FromEngine(customerId string, cart *engine.Cart) Cart {
	return Cart{
		CustomerId: customerId,
		Items:      cart.Items,
		TipAmount:  cart.TipAmount,
		Subtotal:   cart.Subtotal,
		TaxAmount:  cart.TaxAmount,
		Total:      cart.Total,
		ItemCount:  cart.ItemCount(),
	}
}
