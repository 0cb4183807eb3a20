// Package cart holds the shopping cart state and the stock-checked
// operations that mutate it.
package cart

import (
	"context"
	"errors"
)

// Product is a catalog entry. Once in a cart, Amount is the desired quantity.
type Product struct {
	ID     int     `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Image  string  `json:"image"`
	Amount int     `json:"amount"`
}

// Stock is the available quantity reported by the inventory service.
type Stock struct {
	ID     int `json:"id"`
	Amount int `json:"amount"`
}

// Cart is an ordered list of line items, unique by product ID.
type Cart []Product

// Find returns the index of the line item for id, or -1.
func (c Cart) Find(id int) int {
	for i, p := range c {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Catalog looks up live stock and product data.
type Catalog interface {
	Stock(ctx context.Context, id int) (Stock, error)
	Product(ctx context.Context, id int) (Product, error)
}

// Snapshots is a durable key-value slot for serialized carts.
type Snapshots interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Notifier surfaces user-facing error messages.
type Notifier interface {
	Error(ctx context.Context, message string)
}

var (
	// ErrOutOfStock indicates the requested quantity exceeds availability.
	ErrOutOfStock = errors.New("requested quantity is out of stock")
	// ErrNotInCart indicates the product has no line item in the cart.
	ErrNotInCart = errors.New("product not in cart")
	// ErrCorruptSnapshot indicates a persisted cart could not be restored.
	ErrCorruptSnapshot = errors.New("corrupt cart snapshot")
	// ErrStorage wraps failures of the snapshot slot itself.
	ErrStorage = errors.New("cart storage")
)

// User-facing messages.
const (
	MsgOutOfStock    = "Requested quantity is out of stock"
	MsgAddFailed     = "Error adding product"
	MsgRemoveFailed  = "Error removing product"
	MsgUpdateFailed  = "Error updating product quantity"
	DefaultKeyPrefix = "@RocketShoes:cart"
)
