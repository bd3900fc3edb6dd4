package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/product/internal/controller"
	"github.com/Alturino/storefront/product/internal/service"
)

func denyAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func newCatalogServer(t *testing.T) (*repository.MemoryCatalogRepository, *HTTPCatalog) {
	t.Helper()
	catalog := repository.NewMemoryCatalogRepository()
	router := mux.NewRouter()
	controller.AttachProductController(router, service.NewProductService(catalog), denyAll)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return catalog, NewHTTPCatalog(server.URL+"/", 5*time.Second)
}

func TestHTTPCatalogFindProductById(t *testing.T) {
	catalog, client := newCatalogServer(t)
	c := context.Background()

	saved, err := catalog.SaveProduct(c, repository.Product{
		Name:   "Mug",
		Active: true,
		Variants: []repository.Variant{{
			Name:              "Blue",
			SKU:               "MUG-BLUE",
			BasePrice:         decimal.RequireFromString("35.50"),
			DiscountPercent:   decimal.NewFromInt(10),
			StockAvailable:    4,
			LowStockThreshold: 5,
			Active:            true,
		}},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      uuid.UUID
		wantErr error
	}{
		{name: "existing product", id: saved.ID},
		{name: "missing product", id: uuid.New(), wantErr: inErrors.ErrProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, err := client.FindProductById(c, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, saved.ID, product.ID)
			assert.Equal(t, "Mug", product.Name)
			assert.True(t, product.Active)
			require.Len(t, product.Variants, 1)
			variant := product.Variants[0]
			assert.Equal(t, saved.Variants[0].ID, variant.ID)
			assert.True(t, variant.BasePrice.Equal(decimal.RequireFromString("35.50")))
			assert.True(t, variant.DiscountPercent.Equal(decimal.NewFromInt(10)))
			assert.Equal(t, 4, variant.StockAvailable)
			assert.Equal(t, 5, variant.LowStockThreshold)
			assert.True(t, variant.IsDefault)
		})
	}
}

func TestHTTPCatalogFindProducts(t *testing.T) {
	catalog, client := newCatalogServer(t)
	c := log.AttachRequestIDToContext(context.Background(), "request-1")

	for _, name := range []string{"Mug", "Plate"} {
		_, err := catalog.SaveProduct(c, repository.Product{Name: name, Active: true})
		require.NoError(t, err)
	}

	products, err := client.FindProducts(c)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestHTTPCatalogIsReadOnly(t *testing.T) {
	_, client := newCatalogServer(t)
	c := context.Background()

	_, err := client.SaveProduct(c, repository.Product{Name: "Mug"})
	assert.ErrorIs(t, err, inErrors.ErrUnsupportedSource)
	assert.ErrorIs(t, client.DeleteProduct(c, uuid.New()), inErrors.ErrUnsupportedSource)
}

func TestHTTPCatalogUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewHTTPCatalog(url, time.Second)
	_, err := client.FindProductById(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, inErrors.ErrProductNotFound)
}
