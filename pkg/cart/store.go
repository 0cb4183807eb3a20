package cart

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cartflow/pkg/logger"
	"cartflow/pkg/otel"
)

// Store holds one session's cart. Mutations are serialized: each one
// re-reads the snapshot, then holds the mutation lock across its stock
// lookups, so concurrent calls never lose updates. Every committed cart is
// written to the snapshot slot before it becomes visible.
type Store struct {
	key       string
	catalog   Catalog
	snapshots Snapshots
	notifier  Notifier
	log       *logger.Logger

	mu sync.Mutex

	state sync.RWMutex
	cart  Cart
}

// NewStore returns a Store persisting under key. Call Initialize before use.
func NewStore(key string, catalog Catalog, snapshots Snapshots, notifier Notifier, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		key:       key,
		catalog:   catalog,
		snapshots: snapshots,
		notifier:  notifier,
		log:       log,
		cart:      Cart{},
	}
}

// Key returns the snapshot key.
func (s *Store) Key() string { return s.key }

// Initialize seeds the cart from the persisted snapshot. A missing snapshot
// yields an empty cart, as does one that cannot be decoded. Only a storage
// failure is returned.
func (s *Store) Initialize(ctx context.Context) error {
	ctx, span := otel.AddSpan(ctx, "cart.Initialize", attribute.String("cart.key", s.key))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	s.log.Debug(ctx, "cart initialized", "key", s.key, "items", len(s.Cart()))
	return nil
}

// Refresh re-reads the snapshot so the store picks up writes made through
// another Store sharing the same key.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

// reload replaces the cart with the persisted snapshot. Must be called with
// s.mu held.
func (s *Store) reload(ctx context.Context) error {
	data, found, err := s.snapshots.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("%w: load snapshot %s: %w", ErrStorage, s.key, err)
	}

	restored := Cart{}
	if found {
		c, err := Decode(data)
		if err != nil {
			s.log.Warn(ctx, "discarding cart snapshot", "key", s.key, "error", err)
		} else {
			restored = c
		}
	}

	s.state.Lock()
	s.cart = restored
	s.state.Unlock()
	return nil
}

// Cart returns a copy of the current line items.
func (s *Store) Cart() Cart {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.cart.Clone()
}

// AddProduct puts one unit of id in the cart. A product already in the cart
// goes through the quantity update path with its amount plus one.
func (s *Store) AddProduct(ctx context.Context, id int) Result {
	ctx, span := otel.AddSpan(ctx, "cart.AddProduct", attribute.Int("product.id", id))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(ctx); err != nil {
		return s.report(ctx, failed(s.Cart(), MsgAddFailed, err))
	}
	current := s.Cart()
	if i := current.Find(id); i >= 0 {
		return s.report(ctx, s.setAmount(ctx, current, id, current[i].Amount+1))
	}

	stock, err := s.catalog.Stock(ctx, id)
	if err != nil {
		return s.report(ctx, failed(current, MsgAddFailed, fmt.Errorf("fetch stock %d: %w", id, err)))
	}
	if stock.Amount < 1 {
		return s.report(ctx, outOfStock(current))
	}

	product, err := s.catalog.Product(ctx, id)
	if err != nil {
		return s.report(ctx, failed(current, MsgAddFailed, fmt.Errorf("fetch product %d: %w", id, err)))
	}
	if product.ID != id {
		return s.report(ctx, failed(current, MsgAddFailed, fmt.Errorf("catalog returned product %d for %d", product.ID, id)))
	}
	product.Amount = 1

	next := append(current.Clone(), product)
	if err := s.commit(ctx, next); err != nil {
		return s.report(ctx, failed(current, MsgAddFailed, err))
	}
	return s.report(ctx, ok(next.Clone()))
}

// RemoveProduct drops the line item for id.
func (s *Store) RemoveProduct(ctx context.Context, id int) Result {
	ctx, span := otel.AddSpan(ctx, "cart.RemoveProduct", attribute.Int("product.id", id))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(ctx); err != nil {
		return s.report(ctx, failed(s.Cart(), MsgRemoveFailed, err))
	}
	current := s.Cart()
	if current.Find(id) < 0 {
		return s.report(ctx, Result{Outcome: NotFound, Message: MsgRemoveFailed, Err: ErrNotInCart, Cart: current})
	}

	next := make(Cart, 0, len(current)-1)
	for _, p := range current {
		if p.ID != id {
			next = append(next, p)
		}
	}
	if err := s.commit(ctx, next); err != nil {
		return s.report(ctx, failed(current, MsgRemoveFailed, err))
	}
	return s.report(ctx, ok(next.Clone()))
}

// UpdateProductAmount sets the quantity of id to amount if stock allows.
// Non-positive amounts are ignored.
func (s *Store) UpdateProductAmount(ctx context.Context, id, amount int) Result {
	ctx, span := otel.AddSpan(ctx, "cart.UpdateProductAmount",
		attribute.Int("product.id", id),
		attribute.Int("product.amount", amount),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if amount > 0 {
		if err := s.reload(ctx); err != nil {
			return s.report(ctx, failed(s.Cart(), MsgUpdateFailed, err))
		}
	}
	return s.report(ctx, s.setAmount(ctx, s.Cart(), id, amount))
}

// setAmount must be called with s.mu held.
func (s *Store) setAmount(ctx context.Context, current Cart, id, amount int) Result {
	if amount <= 0 {
		return ignored(current)
	}

	// Updates only apply to existing line items; skip the stock lookup.
	i := current.Find(id)
	if i < 0 {
		return Result{Outcome: NotFound, Message: MsgUpdateFailed, Err: ErrNotInCart, Cart: current}
	}

	stock, err := s.catalog.Stock(ctx, id)
	if err != nil {
		return failed(current, MsgUpdateFailed, fmt.Errorf("fetch stock %d: %w", id, err))
	}
	if amount > stock.Amount {
		return outOfStock(current)
	}

	next := current.Clone()
	next[i].Amount = amount
	if err := s.commit(ctx, next); err != nil {
		return failed(current, MsgUpdateFailed, err)
	}
	return ok(next.Clone())
}

// commit persists next and then publishes it. Must be called with s.mu held.
func (s *Store) commit(ctx context.Context, next Cart) error {
	data, err := Encode(next)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.snapshots.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: save snapshot %s: %w", ErrStorage, s.key, err)
	}

	s.state.Lock()
	s.cart = next
	s.state.Unlock()
	return nil
}

// report sends one notification for every result that is not OK or Ignored.
func (s *Store) report(ctx context.Context, r Result) Result {
	switch r.Outcome {
	case OK:
		s.log.Debug(ctx, "cart updated", "key", s.key, "items", len(r.Cart))
		return r
	case Ignored:
		return r
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("cart.outcome", r.Outcome.String()))
	if r.Outcome == Failed {
		span.RecordError(r.Err)
		span.SetStatus(codes.Error, r.Message)
		s.log.Error(ctx, "cart operation failed", "key", s.key, "outcome", r.Outcome.String(), "error", r.Err)
	} else {
		s.log.Info(ctx, "cart operation rejected", "key", s.key, "outcome", r.Outcome.String(), "error", r.Err)
	}

	if s.notifier != nil {
		s.notifier.Error(ctx, r.Message)
	}
	return r
}
