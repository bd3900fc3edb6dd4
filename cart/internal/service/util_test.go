package service

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/internal/metric"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/lock"
	"github.com/Alturino/storefront/internal/repository"
)

type fixture struct {
	svc     *CartService
	carts   repository.CartRepository
	catalog *repository.MemoryCatalogRepository
	c       context.Context
}

func newFixture(t *testing.T, carts repository.CartRepository, cfg config.Cart) fixture {
	t.Helper()
	if carts == nil {
		carts = repository.NewMemoryCartRepository()
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	catalog := repository.NewMemoryCatalogRepository()
	svc := NewCartService(
		carts,
		catalog,
		lock.NewKeyedMutex(),
		cfg,
		metric.NewCartMetrics(prometheus.NewRegistry()),
	)
	return fixture{svc: svc, carts: carts, catalog: catalog, c: logger.WithContext(context.Background())}
}

func defaultConfig() config.Cart {
	return config.Cart{LegacyIDSwap: true, MaxSaveRetries: 3}
}

type variantOpt func(*repository.Variant)

func withStock(n int) variantOpt {
	return func(v *repository.Variant) { v.StockAvailable = n }
}

func withDiscount(percent int64) variantOpt {
	return func(v *repository.Variant) { v.DiscountPercent = decimal.NewFromInt(percent) }
}

func inactive() variantOpt {
	return func(v *repository.Variant) { v.Active = false }
}

func newVariant(name string, price string, opts ...variantOpt) repository.Variant {
	v := repository.Variant{
		ID:                uuid.New(),
		Name:              name,
		SKU:               "SKU-" + name,
		BasePrice:         decimal.RequireFromString(price),
		StockAvailable:    100,
		LowStockThreshold: 5,
		Active:            true,
	}
	for _, opt := range opts {
		opt(&v)
	}
	return v
}

func (f fixture) saveProduct(t *testing.T, name string, variants ...repository.Variant) repository.Product {
	t.Helper()
	p, err := f.catalog.SaveProduct(f.c, repository.Product{
		ID:       uuid.New(),
		Name:     name,
		Active:   true,
		Variants: variants,
	})
	require.NoError(t, err)
	return p
}

// seedCart stores items as-is, bypassing the add path, to simulate a snapshot
// that went stale.
func (f fixture) seedCart(t *testing.T, userID uuid.UUID, items ...repository.LineItem) repository.Cart {
	t.Helper()
	cart, err := f.carts.CreateCart(f.c, userID)
	require.NoError(t, err)
	cart.LineItems = items
	saved, err := f.carts.SaveCart(f.c, cart)
	require.NoError(t, err)
	return saved
}

func snapshotItem(p repository.Product, v repository.Variant, quantity int, price string) repository.LineItem {
	return repository.LineItem{
		ProductID: p.ID,
		Quantity:  quantity,
		Variant: repository.VariantSnapshot{
			VariantID:      v.ID,
			Name:           v.Name,
			Price:          decimal.RequireFromString(price),
			SKU:            v.SKU,
			StockAvailable: v.StockAvailable,
		},
	}
}

// conflictOnce makes the first SaveCart lose against a concurrent writer that
// re-saved the stored cart unchanged.
type conflictOnce struct {
	repository.CartRepository
	saves int
}

func (co *conflictOnce) SaveCart(c context.Context, cart repository.Cart) (repository.Cart, error) {
	co.saves++
	if co.saves == 1 {
		stored, err := co.CartRepository.FindCartByUserId(c, cart.UserID)
		if err != nil {
			return repository.Cart{}, err
		}
		if _, err := co.CartRepository.SaveCart(c, stored); err != nil {
			return repository.Cart{}, err
		}
	}
	return co.CartRepository.SaveCart(c, cart)
}
