// Package cart holds the shopping cart state, its reducer and the per-session
// controller that persists snapshots to durable storage.
package cart

import (
	"storefront-service/internal/models"
	"storefront-service/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxQuantity caps the quantity of a single cart line
const DefaultMaxQuantity = 10

var lineNamespace = uuid.MustParse("5b0f4c3e-8a0e-4d7c-9a53-2f9c1d7e6a10")

// LineID derives the stable line identifier for a product and variant selection.
// Two adds of the same (product, size, color) always land on the same line.
func LineID(productID, sizeID, colorID string) string {
	key := productID + "\x00" + sizeID + "\x00" + colorID
	return uuid.NewSHA1(lineNamespace, []byte(key)).String()
}

// State is the cart contents. Only Items is persisted.
type State struct {
	Items []models.CartLine `json:"items"`
}

// Line returns the line with the given id
func (s State) Line(lineID string) (models.CartLine, bool) {
	for _, line := range s.Items {
		if line.LineID == lineID {
			return line, true
		}
	}
	return models.CartLine{}, false
}

// ItemCount is the sum of all line quantities
func (s State) ItemCount() int {
	n := 0
	for _, line := range s.Items {
		n += line.Quantity
	}
	return n
}

// Total is the sum of price times quantity over all lines
func (s State) Total() decimal.Decimal {
	return pricing.Total(s.Items)
}

// Action is a cart mutation understood by Reduce
type Action interface {
	apply(state State, maxQuantity int) State
}

// AddItem adds one unit of a product with the given variant selection
type AddItem struct {
	Product models.Product
	SizeID  string
	ColorID string
}

// UpdateQuantity sets the quantity of a line, clamped to [1, max]
type UpdateQuantity struct {
	LineID   string
	Quantity int
}

// RemoveItem drops a line
type RemoveItem struct {
	LineID string
}

// Clear empties the cart
type Clear struct{}

// Reduce applies action to state and returns the new state.
// The input state is never modified.
func Reduce(state State, action Action, maxQuantity int) State {
	if maxQuantity < 1 {
		maxQuantity = DefaultMaxQuantity
	}
	return action.apply(state, maxQuantity)
}

func (a AddItem) apply(state State, maxQuantity int) State {
	id := LineID(a.Product.ID, a.SizeID, a.ColorID)
	items := cloneItems(state.Items)

	for i := range items {
		if items[i].LineID == id {
			items[i].Quantity = clamp(items[i].Quantity+1, maxQuantity)
			return State{Items: items}
		}
	}

	items = append(items, models.CartLine{
		LineID:          id,
		Product:         a.Product,
		Quantity:        1,
		SelectedSizeID:  a.SizeID,
		SelectedColorID: a.ColorID,
		Price:           pricing.ResolvePrice(&a.Product, a.SizeID),
	})
	return State{Items: items}
}

func (a UpdateQuantity) apply(state State, maxQuantity int) State {
	items := cloneItems(state.Items)
	for i := range items {
		if items[i].LineID == a.LineID {
			items[i].Quantity = clamp(a.Quantity, maxQuantity)
			break
		}
	}
	return State{Items: items}
}

func (a RemoveItem) apply(state State, _ int) State {
	items := make([]models.CartLine, 0, len(state.Items))
	for _, line := range state.Items {
		if line.LineID != a.LineID {
			items = append(items, line)
		}
	}
	return State{Items: items}
}

func (Clear) apply(State, int) State {
	return State{Items: []models.CartLine{}}
}

func clamp(quantity, maxQuantity int) int {
	if quantity < 1 {
		return 1
	}
	if quantity > maxQuantity {
		return maxQuantity
	}
	return quantity
}

func cloneItems(items []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, len(items))
	copy(out, items)
	return out
}
