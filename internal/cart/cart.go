package cart

import (
	"fmt"
	"math"

	"github.com/noah-isme/pos-gateway/internal/money"
)

// Line is a single cart entry. UnitPrice is captured when the item is added so
// a later catalog change never mutates an open cart.
type Line struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	UnitPrice money.Amount `json:"unitPrice"`
	Qty       int          `json:"qty"`
}

// Subtotal returns the exact line subtotal in minor units.
func (l Line) Subtotal() money.Amount {
	return l.UnitPrice * money.Amount(l.Qty)
}

// Cart is an ordered collection of lines. All mutating operations return a new
// Cart value; the total is always derived from the lines, never cached.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Add merges qty into an existing line with the same id or appends a new line.
// Insertion order is preserved for display.
func (c Cart) Add(item Line, qty int) Cart {
	if qty <= 0 {
		qty = 1
	}
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	for i := range lines {
		if lines[i].ID == item.ID {
			lines[i].Qty += qty
			return Cart{Lines: lines}
		}
	}
	item.Qty = qty
	return Cart{Lines: append(lines, item)}
}

// SetQty replaces the quantity for the given line. A quantity of zero or less
// removes the line.
func (c Cart) SetQty(id string, qty int) Cart {
	if qty <= 0 {
		return c.Remove(id)
	}
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	for i := range lines {
		if lines[i].ID == id {
			lines[i].Qty = qty
			break
		}
	}
	return Cart{Lines: lines}
}

// Remove drops the line with the given id.
func (c Cart) Remove(id string) Cart {
	lines := make([]Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.ID != id {
			lines = append(lines, l)
		}
	}
	return Cart{Lines: lines}
}

// Clear returns an empty cart.
func (c Cart) Clear() Cart {
	return Cart{}
}

// Empty reports whether the cart holds no lines.
func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Total sums all line subtotals. An empty cart totals 0.00.
func (c Cart) Total() money.Amount {
	var total money.Amount
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// CoerceQty converts a raw quantity input into an integer quantity, truncating
// toward zero. The second return reports whether the input was lossy, so the
// caller can warn the terminal. NaN and infinite input is rejected.
func CoerceQty(raw float64) (int, bool, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, false, fmt.Errorf("non-finite quantity: %w", money.ErrInvalidAmount)
	}
	truncated := math.Trunc(raw)
	return int(truncated), truncated != raw, nil
}
