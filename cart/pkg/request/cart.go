package request

import (
	"github.com/shopspring/decimal"

	"github.com/plateful/plateful/cart/pkg/engine"
)

type AddLine struct {
	ItemId            string                     `validate:"required"       json:"itemId"`
	Name              string                     `validate:"required"       json:"name"`
	UnitPrice         decimal.Decimal            `validate:"required"       json:"unitPrice"`
	Quantity          int32                      `validate:"required,gte=1" json:"quantity"`
	SelectedModifiers []engine.ModifierSelection `json:"selectedModifiers"`
	SpecialNotes      string                     `json:"specialNotes"`
}

func (r AddLine) Candidate() engine.Candidate {
	return engine.Candidate{
		ItemID:            r.ItemId,
		Name:              r.Name,
		UnitPrice:         r.UnitPrice,
		Quantity:          r.Quantity,
		SelectedModifiers: r.SelectedModifiers,
		SpecialNotes:      r.SpecialNotes,
	}
}

type UpdateLine struct {
	Quantity     *int32  `json:"quantity"`
	SpecialNotes *string `json:"specialNotes"`
}

func (r UpdateLine) Patch() engine.Patch {
	return engine.Patch{Quantity: r.Quantity, SpecialNotes: r.SpecialNotes}
}

// SetTip carries the raw tip input; negative amounts are clamped by the
// engine, not rejected here.
type SetTip struct {
	TipAmount decimal.Decimal `json:"tipAmount"`
}

type Checkout struct {
	PaymentMethod string `validate:"required" json:"paymentMethod"`
}
