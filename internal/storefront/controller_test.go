package storefront

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pokemart/internal/cart"
	"github.com/roach88/pokemart/internal/catalog"
	"github.com/roach88/pokemart/internal/checkout"
	"github.com/roach88/pokemart/internal/filter"
	"github.com/roach88/pokemart/internal/stock"
	"github.com/roach88/pokemart/internal/store"
	"github.com/roach88/pokemart/internal/testutil"
)

type failingProvider struct{}

func (failingProvider) FetchCatalog(context.Context, int) ([]catalog.Item, error) {
	return nil, &catalog.LoadError{Op: "list", Err: errors.New("connection refused")}
}

func (failingProvider) FetchAvailableTypes(context.Context) ([]string, error) {
	return nil, &catalog.LoadError{Op: "types", Err: errors.New("connection refused")}
}

// startController runs a controller for the duration of the test.
func startController(t *testing.T, opts Options) *Controller {
	t.Helper()
	if opts.Provider == nil {
		opts.Provider = catalog.NewDemoProvider()
	}
	c := New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		c.Close()
		cancel()
		<-done
	})
	return c
}

func loadedController(t *testing.T, opts Options) *Controller {
	t.Helper()
	c := startController(t, opts)
	require.NoError(t, c.Load(context.Background()))
	return c
}

func singleItem(stock int) catalog.Provider {
	return &catalog.StaticProvider{Items: []catalog.Item{{
		ID:    1,
		Name:  "bulbasaur",
		Types: []string{"grass", "poison"},
		Price: decimal.NewFromInt(10),
		Stock: stock,
	}}}
}

func approvingProcessor(ids ...string) *checkout.Processor {
	return &checkout.Processor{
		SuccessRate: checkout.DefaultSuccessRate,
		Rand:        testutil.NewFixedRand().WithFloats(0.1),
		IDs:         testutil.NewFixedIDs(ids...),
	}
}

func validPayment() checkout.Payment {
	return checkout.Payment{
		Name:   "Misty",
		Email:  "misty@cerulean.gym",
		Card:   "5555 5555 5555 4444",
		Expiry: "12/30",
		CVV:    "321",
	}
}

func TestLoad_InstallsCatalog(t *testing.T) {
	c := loadedController(t, Options{})
	assert.True(t, c.Loaded())

	listings, err := c.Browse(context.Background(), filter.DefaultCriteria())
	require.NoError(t, err)
	require.Len(t, listings, 20)
	assert.Equal(t, 1, listings[0].ID)
	assert.Equal(t, 5, listings[0].Available)
	assert.Zero(t, listings[0].InCart)
}

func TestLoad_RespectsLimit(t *testing.T) {
	c := loadedController(t, Options{Limit: 5})
	assert.Equal(t, 5, c.Catalog().Len())
}

func TestLoad_FailurePropagates(t *testing.T) {
	c := startController(t, Options{Provider: failingProvider{}})

	err := c.Load(context.Background())
	assert.ErrorIs(t, err, catalog.ErrCatalogLoadFailed)
	assert.False(t, c.Loaded())

	_, err = c.StartStock(context.Background(), testutil.NewManualTicker())
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLoad_CancelledInstallsNothing(t *testing.T) {
	c := startController(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Load(ctx), context.Canceled)
	assert.Zero(t, c.Catalog().Len())
}

func TestTypes_Fallback(t *testing.T) {
	c := startController(t, Options{Provider: failingProvider{}})

	types, fallback := c.Types(context.Background())
	assert.True(t, fallback)
	assert.Equal(t, catalog.DefaultTypes, types)
}

func TestAddItem_UnknownItem(t *testing.T) {
	c := loadedController(t, Options{})
	assert.ErrorIs(t, c.AddItem(context.Background(), 999, 1), ErrUnknownItem)
}

func TestAddItem_AnnotatesListings(t *testing.T) {
	ctx := context.Background()
	c := loadedController(t, Options{})
	require.NoError(t, c.AddItem(ctx, 2, 4))

	crit := filter.DefaultCriteria()
	crit.Search = "pokemon-2"
	listings, err := c.Browse(ctx, crit)
	require.NoError(t, err)

	require.NotEmpty(t, listings)
	assert.Equal(t, 2, listings[0].ID)
	assert.Equal(t, 4, listings[0].InCart)
	assert.Equal(t, 2, listings[0].Available) // stock 6
}

// Stock 5, reserve 5, reserve 1 more fails, the oscillator raises stock to
// 8, then 3 more fit.
func TestStockRaisedByOscillator(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewFixedRand().
		WithFloats(0.1, 0.9). // change, positive
		WithInts(3)
	c := loadedController(t, Options{
		Provider:  singleItem(5),
		Stock:     stock.Config{Probability: 0.3, MaxStep: 4},
		StockRand: rng,
	})
	sub := c.Subscribe(4)

	require.NoError(t, c.AddItem(ctx, 1, 5))
	assert.ErrorIs(t, c.AddItem(ctx, 1, 1), cart.ErrInsufficientStock)

	ticker := testutil.NewManualTicker()
	started, err := c.StartStock(ctx, ticker)
	require.NoError(t, err)
	require.True(t, started)
	require.True(t, ticker.Tick())

	select {
	case change := <-sub.C:
		assert.Equal(t, stock.Change{ItemID: 1, NewStock: 8, Seq: 1}, change)
	case <-time.After(time.Second):
		t.Fatal("no stock change observed")
	}

	listings, err := c.Browse(ctx, filter.DefaultCriteria())
	require.NoError(t, err)
	assert.Equal(t, 3, listings[0].Available)
	require.NoError(t, c.AddItem(ctx, 1, 3))

	view, err := c.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, view.Count)
}

func TestUpdateQuantity_BoundedByStock(t *testing.T) {
	ctx := context.Background()
	c := loadedController(t, Options{Provider: singleItem(5)})
	require.NoError(t, c.AddItem(ctx, 1, 1))

	err := c.UpdateQuantity(ctx, 1, 6)
	var ise *cart.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 4, ise.Available())

	require.NoError(t, c.UpdateQuantity(ctx, 1, 5))
	view, err := c.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Count)

	require.NoError(t, c.UpdateQuantity(ctx, 1, 0))
	view, err = c.Cart(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	c := loadedController(t, Options{})
	require.NoError(t, c.AddItem(ctx, 1, 1))
	require.NoError(t, c.AddItem(ctx, 2, 2))

	require.NoError(t, c.RemoveItem(ctx, 1))
	view, err := c.Cart(ctx)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, decimal.NewFromInt(22).Equal(view.Total))

	require.NoError(t, c.ClearCart(ctx))
	view, err = c.Cart(ctx)
	require.NoError(t, err)
	assert.Zero(t, view.Count)
}

func TestCheckout_ApprovedClearsCart(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	crt, _ := cart.Restore(ctx, cart.NewStore(kv, "", nil))
	c := loadedController(t, Options{Cart: crt, Processor: approvingProcessor("order-1")})
	require.NoError(t, c.AddItem(ctx, 3, 2))

	receipt, err := c.Checkout(ctx, validPayment())
	require.NoError(t, err)
	assert.Equal(t, "order-1", receipt.OrderID)
	assert.Equal(t, 2, receipt.ItemCount)
	assert.True(t, decimal.NewFromInt(24).Equal(receipt.Total))

	view, err := c.Cart(ctx)
	require.NoError(t, err)
	assert.Zero(t, view.Count)
	_, err = kv.Get(ctx, cart.DefaultKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// gatedRand blocks the approval draw until released, holding a checkout in
// flight.
type gatedRand struct {
	entered chan struct{}
	release chan struct{}
	value   float64
}

func (r *gatedRand) Float64() float64 {
	close(r.entered)
	<-r.release
	return r.value
}

func TestCheckout_KeepsItemsAddedDuringPayment(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	crt, _ := cart.Restore(ctx, cart.NewStore(kv, "", nil))
	gate := &gatedRand{entered: make(chan struct{}), release: make(chan struct{}), value: 0.1}
	proc := &checkout.Processor{
		SuccessRate: checkout.DefaultSuccessRate,
		Rand:        gate,
		IDs:         testutil.NewFixedIDs("order-1"),
	}
	c := loadedController(t, Options{Cart: crt, Processor: proc})
	require.NoError(t, c.AddItem(ctx, 1, 1))

	type result struct {
		receipt checkout.Receipt
		err     error
	}
	done := make(chan result, 1)
	go func() {
		r, err := c.Checkout(ctx, validPayment())
		done <- result{r, err}
	}()

	<-gate.entered
	require.NoError(t, c.AddItem(ctx, 1, 1))
	require.NoError(t, c.AddItem(ctx, 2, 2))
	close(gate.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.receipt.ItemCount)

	view, err := c.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Count)
	got := map[int]int{}
	for _, it := range view.Items {
		got[it.ID] = it.Quantity
	}
	assert.Equal(t, map[int]int{1: 1, 2: 2}, got)

	_, err = kv.Get(ctx, cart.DefaultKey)
	assert.NoError(t, err, "unpaid reservations stay persisted")
}

func TestCheckout_DeclinedKeepsCart(t *testing.T) {
	ctx := context.Background()
	proc := &checkout.Processor{
		SuccessRate: checkout.DefaultSuccessRate,
		Rand:        testutil.NewFixedRand().WithFloats(0.99),
	}
	c := loadedController(t, Options{Processor: proc})
	require.NoError(t, c.AddItem(ctx, 1, 1))

	_, err := c.Checkout(ctx, validPayment())
	assert.ErrorIs(t, err, checkout.ErrPaymentDeclined)

	view, err := c.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Count)
}

func TestCheckout_EmptyCart(t *testing.T) {
	c := loadedController(t, Options{Processor: approvingProcessor()})
	_, err := c.Checkout(context.Background(), validPayment())
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestCheckout_CancelledLeavesCart(t *testing.T) {
	ctx := context.Background()
	proc := checkout.NewProcessor()
	proc.Delay = time.Minute
	c := loadedController(t, Options{Processor: proc})
	require.NoError(t, c.AddItem(ctx, 1, 1))

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := c.Checkout(cctx, validPayment())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	view, err := c.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Count)
}

func TestClose_RejectsWork(t *testing.T) {
	c := loadedController(t, Options{})
	sub := c.Subscribe(1)

	c.Close()

	assert.ErrorIs(t, c.AddItem(context.Background(), 1, 1), ErrClosed)
	_, open := <-sub.C
	assert.False(t, open)
}

func TestRun_ContextCancelStopsLoop(t *testing.T) {
	c := New(Options{Provider: catalog.NewDemoProvider()})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()
	require.NoError(t, c.Load(context.Background()))

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	assert.ErrorIs(t, c.RemoveItem(context.Background(), 1), ErrClosed)
	c.Close()
}

func TestCart_PersistsThroughController(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := cart.NewStore(kv, "", nil)
	crt, _ := cart.Restore(ctx, s)

	c := loadedController(t, Options{Cart: crt})
	require.NoError(t, c.AddItem(ctx, 5, 3))

	restored, report := cart.Restore(ctx, s)
	require.NoError(t, report.Err)
	assert.Equal(t, 3, restored.Quantity(5))
}
