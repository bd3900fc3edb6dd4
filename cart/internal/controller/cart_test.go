package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/internal/metric"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/lock"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/internal/repository"
)

const secret = "test-secret"

type envelope struct {
	Status     string                     `json:"status"`
	StatusCode int                        `json:"statusCode"`
	Message    string                     `json:"message"`
	Data       map[string]json.RawMessage `json:"data"`
}

type testServer struct {
	router  *mux.Router
	catalog *repository.MemoryCatalogRepository
	token   string
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	catalog := repository.NewMemoryCatalogRepository()
	svc := service.NewCartService(
		repository.NewMemoryCartRepository(),
		catalog,
		lock.NewKeyedMutex(),
		config.Cart{LegacyIDSwap: true, MaxSaveRetries: 3},
		metric.NewCartMetrics(prometheus.NewRegistry()),
	)
	router := mux.NewRouter()
	AttachCartController(router, svc, middleware.Auth(secret))

	token, err := internal.SignToken(secret, uuid.New(), time.Hour)
	require.NoError(t, err)
	return testServer{router: router, catalog: catalog, token: token}
}

func (s testServer) do(t *testing.T, method string, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	result := envelope{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	return rec.Code, result
}

func decodeDecimal(t *testing.T, raw json.RawMessage) decimal.Decimal {
	t.Helper()
	d := decimal.Decimal{}
	require.NoError(t, json.Unmarshal(raw, &d))
	return d
}

func TestCartRoutes(t *testing.T) {
	s := newTestServer(t)
	variantID := uuid.New()
	product, err := s.catalog.SaveProduct(context.Background(), repository.Product{
		ID:     uuid.New(),
		Name:   "Kettle",
		Active: true,
		Variants: []repository.Variant{{
			ID:             variantID,
			Name:           "Steel",
			SKU:            "KET-ST",
			BasePrice:      decimal.NewFromInt(30),
			StockAvailable: 10,
			Active:         true,
		}},
	})
	require.NoError(t, err)
	itemPath := "/carts/items/" + product.ID.String() + "/" + variantID.String()

	code, body := s.do(t, http.MethodGet, "/carts", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "cart not found", body.Message)

	code, body = s.do(t, http.MethodPost, "/carts/items", map[string]interface{}{
		"productId": product.ID.String(),
		"variantId": variantID.String(),
		"quantity":  2,
	})
	require.Equal(t, http.StatusOK, code, body.Message)
	assert.True(t, decimal.NewFromInt(60).Equal(decodeDecimal(t, body.Data["subtotal"])))

	code, body = s.do(t, http.MethodPost, "/carts/items", map[string]interface{}{
		"productId": "bogus",
		"variantId": variantID.String(),
		"quantity":  2,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body.Data, "errors")

	code, body = s.do(t, http.MethodPost, "/carts/items", map[string]interface{}{
		"productId": product.ID.String(),
		"variantId": variantID.String(),
		"quantity":  math.MaxInt64,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body.Data, "errors")

	code, body = s.do(t, http.MethodPost, "/carts/items", map[string]interface{}{
		"productId": product.ID.String(),
		"variantId": variantID.String(),
		"quantity":  9999,
	})
	assert.Equal(t, http.StatusBadRequest, code, "merged quantity above the cap")
	assert.Contains(t, body.Data, "errors")

	code, body = s.do(t, http.MethodPut, itemPath, map[string]interface{}{"quantity": 20})
	require.Equal(t, http.StatusOK, code, body.Message)

	code, body = s.do(t, http.MethodGet, "/carts", nil)
	require.Equal(t, http.StatusOK, code, body.Message)
	assert.Equal(t, "true", string(body.Data["hasAdjustments"]), "quantity above stock should be clamped")
	assert.True(t, decimal.NewFromInt(300).Equal(decodeDecimal(t, body.Data["total"])))
	assert.NotContains(t, body.Data, "unavailableProducts")

	code, body = s.do(t, http.MethodPost, "/carts/coupon", map[string]interface{}{
		"code":     "TEN",
		"discount": "10",
		"type":     "PERCENTAGE",
	})
	require.Equal(t, http.StatusOK, code, body.Message)

	code, body = s.do(t, http.MethodGet, "/carts/total", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decimal.NewFromInt(270).Equal(decodeDecimal(t, body.Data["total"])))

	code, body = s.do(t, http.MethodGet, "/carts/subtotal", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decimal.NewFromInt(300).Equal(decodeDecimal(t, body.Data["subtotal"])))

	code, _ = s.do(t, http.MethodPut, "/carts/items/"+uuid.NewString()+"/"+uuid.NewString(), map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodDelete, itemPath, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodDelete, itemPath, nil)
	assert.Equal(t, http.StatusOK, code, "removing twice is not an error")

	code, body = s.do(t, http.MethodDelete, "/carts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body.Data, "cart")
}

func TestCartRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	s.token = "not-a-token"

	code, body := s.do(t, http.MethodGet, "/carts", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "failed", body.Status)
}
