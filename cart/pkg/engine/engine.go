// Package engine implements the shopping cart state machine: modifier-aware
// line merging, tip handling, and totals recomputation. It performs no I/O;
// persistence is layered on top through the snapshot codec.
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inErrors "github.com/plateful/plateful/internal/errors"
)

// TaxRate is applied to the cart subtotal. Catalog prices are tax-exclusive.
var TaxRate = decimal.NewFromFloat(0.10)

type ModifierOption struct {
	Name  string          `json:"optionName"`
	Price decimal.Decimal `json:"price"`
}

type ModifierSelection struct {
	GroupName       string           `json:"modifierGroupName"`
	SelectedOptions []ModifierOption `json:"selectedOptions"`
}

// Line is one purchasable unit in the cart. Name and UnitPrice are snapshots
// of the catalog at the time the line was added; later catalog changes do not
// affect lines already in the cart.
type Line struct {
	ID                uuid.UUID           `json:"id"`
	ItemID            string              `json:"itemId"`
	Name              string              `json:"name"`
	UnitPrice         decimal.Decimal     `json:"unitPrice"`
	Quantity          int32               `json:"quantity"`
	SelectedModifiers []ModifierSelection `json:"selectedModifiers"`
	SpecialNotes      string              `json:"specialNotes"`
	LineTotal         decimal.Decimal     `json:"lineTotal"`
}

// Candidate is the input to AddLine: a Line before it has an identity.
type Candidate struct {
	ItemID            string
	Name              string
	UnitPrice         decimal.Decimal
	Quantity          int32
	SelectedModifiers []ModifierSelection
	SpecialNotes      string
}

type Cart struct {
	Items     []Line
	TipAmount decimal.Decimal
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

func New() *Cart {
	return &Cart{
		Items:     []Line{},
		TipAmount: decimal.Zero,
		Subtotal:  decimal.Zero,
		TaxAmount: decimal.Zero,
		Total:     decimal.Zero,
	}
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// modifierKey is the serialized, order-sensitive identity of a modifier
// selection. Two lines merge iff itemId and this key match exactly.
func modifierKey(mods []ModifierSelection) string {
	b, err := json.Marshal(mods)
	if err != nil {
		return fmt.Sprintf("%+v", mods)
	}
	return string(b)
}

func surcharge(mods []ModifierSelection) decimal.Decimal {
	sum := decimal.Zero
	for _, group := range mods {
		for _, option := range group.SelectedOptions {
			sum = sum.Add(option.Price)
		}
	}
	return sum
}

// EffectiveUnitPrice is the per-unit price with modifier surcharges folded in.
// It is always the multiplicand for quantity, so quantity changes can never
// drop the surcharge.
func (l Line) EffectiveUnitPrice() decimal.Decimal {
	return l.UnitPrice.Add(surcharge(l.SelectedModifiers))
}

func (l *Line) recomputeTotal() {
	l.LineTotal = round2(l.EffectiveUnitPrice().Mul(decimal.NewFromInt32(l.Quantity)))
}

// AddLine adds a candidate to the cart. A candidate matching an existing
// line's itemId and exact modifier selection merges into that line with summed
// quantity; otherwise a new line with a fresh id is appended.
func (c *Cart) AddLine(candidate Candidate) (Line, error) {
	if candidate.Quantity <= 0 {
		return Line{}, inErrors.ErrNonPositiveQuantity
	}

	key := modifierKey(candidate.SelectedModifiers)
	for i := range c.Items {
		line := &c.Items[i]
		if line.ItemID != candidate.ItemID || modifierKey(line.SelectedModifiers) != key {
			continue
		}
		line.Quantity += candidate.Quantity
		line.recomputeTotal()
		c.RecomputeTotals()
		return *line, nil
	}

	line := Line{
		ID:                uuid.New(),
		ItemID:            candidate.ItemID,
		Name:              candidate.Name,
		UnitPrice:         candidate.UnitPrice,
		Quantity:          candidate.Quantity,
		SelectedModifiers: candidate.SelectedModifiers,
		SpecialNotes:      candidate.SpecialNotes,
	}
	line.recomputeTotal()
	c.Items = append(c.Items, line)
	c.RecomputeTotals()
	return line, nil
}

// Patch carries the mutable fields of UpdateLine; nil fields are untouched.
type Patch struct {
	Quantity     *int32
	SpecialNotes *string
}

// UpdateLine applies a patch to the identified line. A patched quantity of
// zero or below removes the line. An unknown id is a no-op.
func (c *Cart) UpdateLine(lineID uuid.UUID, patch Patch) {
	if patch.Quantity != nil && *patch.Quantity <= 0 {
		c.RemoveLine(lineID)
		return
	}
	for i := range c.Items {
		line := &c.Items[i]
		if line.ID != lineID {
			continue
		}
		if patch.Quantity != nil {
			line.Quantity = *patch.Quantity
			line.recomputeTotal()
		}
		if patch.SpecialNotes != nil {
			line.SpecialNotes = *patch.SpecialNotes
		}
		c.RecomputeTotals()
		return
	}
}

// RemoveLine deletes the identified line; absent ids are a no-op.
func (c *Cart) RemoveLine(lineID uuid.UUID) {
	for i := range c.Items {
		if c.Items[i].ID != lineID {
			continue
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		c.RecomputeTotals()
		return
	}
}

// Clear resets the cart to empty with a zero tip. Removing the persisted
// snapshot is the caller's responsibility.
func (c *Cart) Clear() {
	c.Items = []Line{}
	c.TipAmount = decimal.Zero
	c.RecomputeTotals()
}

// SetTip sets the tip, clamping negative input to zero.
func (c *Cart) SetTip(amount decimal.Decimal) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	c.TipAmount = round2(amount)
	c.RecomputeTotals()
}

// ItemCount is the sum of all line quantities.
func (c *Cart) ItemCount() int32 {
	var count int32
	for _, line := range c.Items {
		count += line.Quantity
	}
	return count
}

// RecomputeTotals rederives subtotal, tax, and total from the current items
// and tip. Every value is rounded to 2 places, so recomputing with no
// intervening mutation is idempotent.
func (c *Cart) RecomputeTotals() {
	subtotal := decimal.Zero
	for _, line := range c.Items {
		subtotal = subtotal.Add(line.LineTotal)
	}
	c.Subtotal = round2(subtotal)
	c.TaxAmount = round2(c.Subtotal.Mul(TaxRate))
	c.Total = round2(c.Subtotal.Add(c.TaxAmount).Add(c.TipAmount))
}
