// Package wishlist keeps each user's wishlist locally and mirrors every change
// to the remote user document through a background sync queue.
package wishlist

import "storefront-service/internal/models"

// State is a user's wishlist, unique by product id
type State struct {
	Items []models.Product `json:"items"`
}

// Contains reports whether productID is in the wishlist
func (s State) Contains(productID string) bool {
	for _, p := range s.Items {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// Action is a wishlist mutation understood by Reduce
type Action interface {
	apply(state State) State
}

// SetItems replaces the whole wishlist, used when the remote copy is loaded
type SetItems struct {
	Items []models.Product
}

// Add appends a product unless it is already present
type Add struct {
	Product models.Product
}

// Remove drops a product by id
type Remove struct {
	ProductID string
}

// Clear empties the wishlist
type Clear struct{}

// Reduce applies action to state and returns the new state
func Reduce(state State, action Action) State {
	return action.apply(state)
}

func (a SetItems) apply(State) State {
	items := make([]models.Product, 0, len(a.Items))
	seen := make(map[string]bool, len(a.Items))
	for _, p := range a.Items {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		items = append(items, p)
	}
	return State{Items: items}
}

func (a Add) apply(state State) State {
	if state.Contains(a.Product.ID) {
		return state
	}
	items := make([]models.Product, len(state.Items), len(state.Items)+1)
	copy(items, state.Items)
	return State{Items: append(items, a.Product)}
}

func (a Remove) apply(state State) State {
	items := make([]models.Product, 0, len(state.Items))
	for _, p := range state.Items {
		if p.ID != a.ProductID {
			items = append(items, p)
		}
	}
	return State{Items: items}
}

func (Clear) apply(State) State {
	return State{Items: []models.Product{}}
}
