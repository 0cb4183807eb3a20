// Package catalog talks to the product catalog and stock service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"cartflow/pkg/cart"
	"cartflow/pkg/otel"
)

// ErrUnknownProduct is returned when the service has no record for an id.
var ErrUnknownProduct = errors.New("unknown product")

const maxBody = 1 << 20

// Client implements cart.Catalog over HTTP:
//
//	GET {base}/stock/{id}    -> {"id": 1, "amount": 3}
//	GET {base}/products/{id} -> {"id": 1, "title": "...", "price": 179.9, "image": "..."}
type Client struct {
	base string
	http *http.Client
}

// New returns a client for the service rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Stock fetches the available quantity for id.
func (c *Client) Stock(ctx context.Context, id int) (cart.Stock, error) {
	var s cart.Stock
	if err := c.get(ctx, "stock", id, &s); err != nil {
		return cart.Stock{}, err
	}
	if s.ID != id || s.Amount < 0 {
		return cart.Stock{}, fmt.Errorf("malformed stock for %d: %+v", id, s)
	}
	return s, nil
}

// Product fetches catalog data for id.
func (c *Client) Product(ctx context.Context, id int) (cart.Product, error) {
	var p cart.Product
	if err := c.get(ctx, "products", id, &p); err != nil {
		return cart.Product{}, err
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, resource string, id int, out any) error {
	ctx, span := otel.AddSpan(ctx, "catalog.get",
		attribute.String("catalog.resource", resource),
		attribute.Int("catalog.id", id),
	)
	defer span.End()

	url := fmt.Sprintf("%s/%s/%d", c.base, resource, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	otel.InjectHTTP(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s/%d", ErrUnknownProduct, resource, id)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
