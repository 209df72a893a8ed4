package response

import (
	"github.com/plateful/plateful/order/pkg/request"
)

// SubmitOrder maps a cart to the submission payload the external orders API
// expects at checkout.
func (c Cart) SubmitOrder(paymentMethod string) request.SubmitOrder {
	return request.SubmitOrder{
		CustomerId:    c.CustomerId,
		Items:         c.Items,
		Subtotal:      c.Subtotal,
		Tax:           c.TaxAmount,
		Tip:           c.TipAmount,
		Total:         c.Total,
		PaymentMethod: paymentMethod,
	}
}
