// Package memory implements an in-process catalog and stock service.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"cartflow/pkg/cart"
	"cartflow/pkg/catalog"
)

// Catalog serves stock and products from memory.
type Catalog struct {
	mu       sync.RWMutex
	stock    map[int]int
	products map[int]cart.Product
	err      error
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		stock:    make(map[int]int),
		products: make(map[int]cart.Product),
	}
}

// Load reads a json-server style file: {"products": [...], "stock": [...]}.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Products []cart.Product `json:"products"`
		Stock    []cart.Stock   `json:"stock"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	c := New()
	for _, p := range doc.Products {
		c.PutProduct(p)
	}
	for _, s := range doc.Stock {
		c.SetStock(s.ID, s.Amount)
	}
	return c, nil
}

// PutProduct adds or replaces a product.
func (c *Catalog) PutProduct(p cart.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.Amount = 0
	c.products[p.ID] = p
}

// SetStock sets the available quantity for id.
func (c *Catalog) SetStock(id, amount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stock[id] = amount
}

// Fail makes every lookup return err until called again with nil.
func (c *Catalog) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Stock implements cart.Catalog.
func (c *Catalog) Stock(ctx context.Context, id int) (cart.Stock, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil {
		return cart.Stock{}, c.err
	}
	amount, ok := c.stock[id]
	if !ok {
		return cart.Stock{}, fmt.Errorf("%w: stock/%d", catalog.ErrUnknownProduct, id)
	}
	return cart.Stock{ID: id, Amount: amount}, nil
}

// Product implements cart.Catalog.
func (c *Catalog) Product(ctx context.Context, id int) (cart.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil {
		return cart.Product{}, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return cart.Product{}, fmt.Errorf("%w: products/%d", catalog.ErrUnknownProduct, id)
	}
	return p, nil
}
