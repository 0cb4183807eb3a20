package cart_test

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"cartflow/pkg/cart"
	"cartflow/pkg/cart/memory"
	catalogmem "cartflow/pkg/catalog/memory"
	"cartflow/pkg/notify"
)

const key = "@RocketShoes:cart"

type countingSnapshots struct {
	*memory.Snapshots
	saves   atomic.Int32
	saveErr error
	loadErr error
}

func (c *countingSnapshots) Load(ctx context.Context, k string) ([]byte, bool, error) {
	if c.loadErr != nil {
		return nil, false, c.loadErr
	}
	return c.Snapshots.Load(ctx, k)
}

func (c *countingSnapshots) Save(ctx context.Context, k string, data []byte) error {
	c.saves.Add(1)
	if c.saveErr != nil {
		return c.saveErr
	}
	return c.Snapshots.Save(ctx, k, data)
}

type fixture struct {
	store     *cart.Store
	catalog   *catalogmem.Catalog
	snapshots *countingSnapshots
	notes     *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := catalogmem.New()
	cat.PutProduct(cart.Product{ID: 1, Title: "Sneaker", Price: 179.9, Image: "1.jpg"})
	cat.PutProduct(cart.Product{ID: 2, Title: "Runner", Price: 139.9, Image: "2.jpg"})
	cat.PutProduct(cart.Product{ID: 3, Title: "Trail", Price: 219.9, Image: "3.jpg"})
	cat.SetStock(1, 3)
	cat.SetStock(2, 5)
	cat.SetStock(3, 0)

	f := &fixture{
		catalog:   cat,
		snapshots: &countingSnapshots{Snapshots: memory.New()},
		notes:     &notify.Recorder{},
	}
	f.store = cart.NewStore(key, cat, f.snapshots, f.notes, nil)
	if err := f.store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return f
}

func (f *fixture) persisted(t *testing.T) cart.Cart {
	t.Helper()
	data, found, err := f.snapshots.Load(context.Background(), key)
	if err != nil || !found {
		t.Fatalf("expected snapshot, found=%v err=%v", found, err)
	}
	c, err := cart.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return c
}

func (f *fixture) expectNotes(t *testing.T, want ...string) {
	t.Helper()
	got := f.notes.Messages()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected notifications %v, got %v", want, got)
	}
}

func TestAddNewProduct(t *testing.T) {
	f := newFixture(t)

	res := f.store.AddProduct(context.Background(), 1)
	if res.Outcome != cart.OK {
		t.Fatalf("expected ok, got %v (%v)", res.Outcome, res.Err)
	}

	got := f.store.Cart()
	want := cart.Cart{{ID: 1, Title: "Sneaker", Price: 179.9, Image: "1.jpg", Amount: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if !reflect.DeepEqual(f.persisted(t), got) {
		t.Fatal("persisted snapshot differs from memory")
	}
	if !reflect.DeepEqual(res.Cart, got) {
		t.Fatal("result cart differs from store cart")
	}
	f.expectNotes(t)
}

func TestAddExistingIncrementsUpToStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if res := f.store.AddProduct(ctx, 1); res.Outcome != cart.OK {
			t.Fatalf("add %d: %v", i, res.Outcome)
		}
	}
	if got := f.store.Cart(); len(got) != 1 || got[0].Amount != 3 {
		t.Fatalf("expected one line with amount 3, got %+v", got)
	}

	res := f.store.AddProduct(ctx, 1)
	if res.Outcome != cart.OutOfStock || !errors.Is(res.Err, cart.ErrOutOfStock) {
		t.Fatalf("expected out of stock, got %v", res.Outcome)
	}
	if got := f.store.Cart(); got[0].Amount != 3 {
		t.Fatalf("amount changed to %d", got[0].Amount)
	}
	f.expectNotes(t, cart.MsgOutOfStock)
}

func TestAddWithoutStock(t *testing.T) {
	f := newFixture(t)

	res := f.store.AddProduct(context.Background(), 3)
	if res.Outcome != cart.OutOfStock {
		t.Fatalf("expected out of stock, got %v", res.Outcome)
	}
	if len(f.store.Cart()) != 0 {
		t.Fatal("cart should be empty")
	}
	if f.snapshots.saves.Load() != 0 {
		t.Fatal("no snapshot write expected")
	}
	f.expectNotes(t, cart.MsgOutOfStock)
}

func TestAddCatalogFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if res := f.store.AddProduct(ctx, 99); res.Outcome != cart.Failed {
		t.Fatalf("expected failure for unknown product, got %v", res.Outcome)
	}

	f.catalog.Fail(errors.New("connection refused"))
	res := f.store.AddProduct(ctx, 1)
	if res.Outcome != cart.Failed || res.Message != cart.MsgAddFailed {
		t.Fatalf("expected add failure, got %v %q", res.Outcome, res.Message)
	}
	if len(f.store.Cart()) != 0 {
		t.Fatal("cart should be unchanged")
	}
	f.expectNotes(t, cart.MsgAddFailed, cart.MsgAddFailed)
}

func TestRemoveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddProduct(ctx, 1)
	f.store.AddProduct(ctx, 2)

	res := f.store.RemoveProduct(ctx, 1)
	if res.Outcome != cart.OK {
		t.Fatalf("expected ok, got %v", res.Outcome)
	}
	got := f.store.Cart()
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected only product 2, got %+v", got)
	}
	if !reflect.DeepEqual(f.persisted(t), got) {
		t.Fatal("persisted snapshot differs from memory")
	}
	f.expectNotes(t)
}

func TestRemoveAbsentProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddProduct(ctx, 2)
	saves := f.snapshots.saves.Load()

	res := f.store.RemoveProduct(ctx, 1)
	if res.Outcome != cart.NotFound || !errors.Is(res.Err, cart.ErrNotInCart) {
		t.Fatalf("expected not found, got %v", res.Outcome)
	}
	if got := f.store.Cart(); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("cart changed: %+v", got)
	}
	if f.snapshots.saves.Load() != saves {
		t.Fatal("no snapshot write expected")
	}
	f.expectNotes(t, cart.MsgRemoveFailed)
}

func TestUpdateNonPositiveIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddProduct(ctx, 1)
	saves := f.snapshots.saves.Load()

	for _, amount := range []int{0, -1} {
		res := f.store.UpdateProductAmount(ctx, 1, amount)
		if res.Outcome != cart.Ignored {
			t.Fatalf("amount %d: expected ignored, got %v", amount, res.Outcome)
		}
	}
	if got := f.store.Cart(); got[0].Amount != 1 {
		t.Fatalf("amount changed to %d", got[0].Amount)
	}
	if f.snapshots.saves.Load() != saves {
		t.Fatal("no snapshot write expected")
	}
	f.expectNotes(t)
}

func TestUpdateAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddProduct(ctx, 2)

	res := f.store.UpdateProductAmount(ctx, 2, 5)
	if res.Outcome != cart.OK {
		t.Fatalf("expected ok, got %v", res.Outcome)
	}
	if got := f.store.Cart(); got[0].Amount != 5 {
		t.Fatalf("expected amount 5, got %d", got[0].Amount)
	}

	res = f.store.UpdateProductAmount(ctx, 2, 6)
	if res.Outcome != cart.OutOfStock {
		t.Fatalf("expected out of stock, got %v", res.Outcome)
	}
	if got := f.persisted(t); got[0].Amount != 5 {
		t.Fatalf("persisted amount changed to %d", got[0].Amount)
	}
	f.expectNotes(t, cart.MsgOutOfStock)
}

func TestUpdateAbsentProduct(t *testing.T) {
	f := newFixture(t)

	res := f.store.UpdateProductAmount(context.Background(), 1, 1)
	if res.Outcome != cart.NotFound || res.Message != cart.MsgUpdateFailed {
		t.Fatalf("expected not found, got %v %q", res.Outcome, res.Message)
	}
	f.expectNotes(t, cart.MsgUpdateFailed)
}

func TestUpdateStockLookupFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddProduct(ctx, 1)
	f.catalog.Fail(errors.New("timeout"))

	res := f.store.UpdateProductAmount(ctx, 1, 2)
	if res.Outcome != cart.Failed || res.Message != cart.MsgUpdateFailed {
		t.Fatalf("expected update failure, got %v %q", res.Outcome, res.Message)
	}
	f.expectNotes(t, cart.MsgUpdateFailed)
}

func TestUpdateAtStockCeilingStillPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.SetStock(1, 2)
	f.store.AddProduct(ctx, 1)
	f.store.AddProduct(ctx, 1)

	res := f.store.UpdateProductAmount(ctx, 1, 3)
	if res.Outcome != cart.OutOfStock {
		t.Fatalf("expected out of stock, got %v", res.Outcome)
	}
	f.expectNotes(t, cart.MsgOutOfStock)

	saves := f.snapshots.saves.Load()
	res = f.store.UpdateProductAmount(ctx, 1, 2)
	if res.Outcome != cart.OK {
		t.Fatalf("expected ok, got %v", res.Outcome)
	}
	if got := f.store.Cart(); len(got) != 1 || got[0].ID != 1 || got[0].Amount != 2 {
		t.Fatalf("unexpected cart %+v", got)
	}
	if f.snapshots.saves.Load() != saves+1 {
		t.Fatal("expected one snapshot write")
	}
}

func TestSaveFailureLeavesCartUnchanged(t *testing.T) {
	f := newFixture(t)
	f.snapshots.saveErr = errors.New("disk full")

	res := f.store.AddProduct(context.Background(), 1)
	if res.Outcome != cart.Failed || res.Message != cart.MsgAddFailed {
		t.Fatalf("expected add failure, got %v %q", res.Outcome, res.Message)
	}
	if len(f.store.Cart()) != 0 {
		t.Fatal("cart should be unchanged")
	}
	f.expectNotes(t, cart.MsgAddFailed)
}

func TestRoundTripThroughSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddProduct(ctx, 2)
	f.store.AddProduct(ctx, 1)
	f.store.UpdateProductAmount(ctx, 2, 4)

	restored := cart.NewStore(key, f.catalog, f.snapshots, f.notes, nil)
	if err := restored.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !reflect.DeepEqual(restored.Cart(), f.store.Cart()) {
		t.Fatalf("expected %+v, got %+v", f.store.Cart(), restored.Cart())
	}
}

func TestInitializeCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	for name, data := range map[string]string{
		"not json":     `{oops`,
		"zero amount":  `[{"id":1,"amount":0}]`,
		"duplicate id": `[{"id":1,"amount":1},{"id":1,"amount":2}]`,
	} {
		t.Run(name, func(t *testing.T) {
			snaps := memory.New()
			snaps.Save(ctx, key, []byte(data))

			s := cart.NewStore(key, catalogmem.New(), snaps, &notify.Recorder{}, nil)
			if err := s.Initialize(ctx); err != nil {
				t.Fatalf("expected fallback, got %v", err)
			}
			if got := s.Cart(); got == nil || len(got) != 0 {
				t.Fatalf("expected empty cart, got %+v", got)
			}
		})
	}
}

func TestInitializeLoadError(t *testing.T) {
	snaps := &countingSnapshots{Snapshots: memory.New(), loadErr: errors.New("connection refused")}
	s := cart.NewStore(key, catalogmem.New(), snaps, &notify.Recorder{}, nil)
	if err := s.Initialize(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	f := newFixture(t)
	const n = 40
	f.catalog.SetStock(2, n)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if res := f.store.AddProduct(ctx, 2); res.Outcome != cart.OK {
				return res.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent add failed: %v", err)
	}

	got := f.store.Cart()
	if len(got) != 1 || got[0].Amount != n {
		t.Fatalf("expected one line with amount %d, got %+v", n, got)
	}
	if persisted := f.persisted(t); persisted[0].Amount != n {
		t.Fatalf("persisted amount %d", persisted[0].Amount)
	}
}

func TestOutcomeString(t *testing.T) {
	if cart.OutOfStock.String() != "out_of_stock" || cart.Outcome(42).String() != "unknown" {
		t.Fatal("unexpected outcome names")
	}
}

func TestMutationSeesWritesFromAnotherStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddProduct(ctx, 1)

	// A second store on the same key, as another replica would hold.
	other := cart.NewStore(key, f.catalog, f.snapshots, f.notes, nil)
	if err := other.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	other.AddProduct(ctx, 2)

	res := f.store.AddProduct(ctx, 1)
	if res.Outcome != cart.OK {
		t.Fatalf("expected ok, got %v", res.Outcome)
	}
	want := cart.Cart{
		{ID: 1, Title: "Sneaker", Price: 179.9, Image: "1.jpg", Amount: 2},
		{ID: 2, Title: "Runner", Price: 139.9, Image: "2.jpg", Amount: 1},
	}
	if !reflect.DeepEqual(f.persisted(t), want) {
		t.Fatalf("lost a write from the other store: %+v", f.persisted(t))
	}

	other.RemoveProduct(ctx, 2)
	if err := f.store.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.store.Cart(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("refresh missed a removal: %+v", got)
	}
}

func TestStorageFailuresWrapErrStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddProduct(ctx, 1)
	f.notes.Reset()

	f.snapshots.loadErr = errors.New("connection refused")
	res := f.store.UpdateProductAmount(ctx, 1, 2)
	if res.Outcome != cart.Failed || res.Message != cart.MsgUpdateFailed || !errors.Is(res.Err, cart.ErrStorage) {
		t.Fatalf("expected storage failure, got %v %q %v", res.Outcome, res.Message, res.Err)
	}
	if got := f.store.Cart(); got[0].Amount != 1 {
		t.Fatalf("cart changed on failed load: %+v", got)
	}

	f.snapshots.loadErr = nil
	f.snapshots.saveErr = errors.New("disk full")
	if res := f.store.RemoveProduct(ctx, 1); !errors.Is(res.Err, cart.ErrStorage) {
		t.Fatalf("expected wrapped save error, got %v", res.Err)
	}

	f.snapshots.saveErr = nil
	f.catalog.Fail(errors.New("catalog down"))
	if res := f.store.UpdateProductAmount(ctx, 1, 2); errors.Is(res.Err, cart.ErrStorage) {
		t.Fatalf("catalog failure must not look like storage: %v", res.Err)
	}
	f.expectNotes(t, cart.MsgUpdateFailed, cart.MsgRemoveFailed, cart.MsgUpdateFailed)
}
