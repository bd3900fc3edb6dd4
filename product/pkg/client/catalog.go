package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/product/internal/otel"
	"github.com/Alturino/storefront/product/pkg/response"
)

// HTTPCatalog reads products from the product service. It is read-only:
// writes fail with ErrUnsupportedSource.
type HTTPCatalog struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCatalog(baseURL string, timeout time.Duration) *HTTPCatalog {
	return &HTTPCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

type envelope[T any] struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

func (h *HTTPCatalog) get(c context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(c, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed creating request with error=%w", err)
	}
	if requestID := log.RequestIDFromContext(c); requestID != "" {
		req.Header.Set(inHttp.KEY_HEADER_REQUEST_ID, requestID)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed requesting product service with error=%w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed decoding product service response with error=%w", err)
	}
	return resp.StatusCode, nil
}

func (h *HTTPCatalog) FindProductById(c context.Context, id uuid.UUID) (repository.Product, error) {
	c, span := otel.Tracer.Start(c, "HTTPCatalog FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "HTTPCatalog FindProductById").
		Str(constants.KEY_PRODUCT_ID, id.String()).
		Str(constants.KEY_PROCESS, "requesting product").
		Logger()

	logger.Trace().Msg("requesting product")
	body := envelope[struct {
		Product response.Product `json:"product"`
	}]{}
	status, err := h.get(c, "/products/"+id.String(), &body)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Product{}, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		logger.Debug().Msg("product not found")
		return repository.Product{}, inErrors.ErrProductNotFound
	default:
		err = fmt.Errorf("failed requesting product with error=unexpected status %d", status)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Product{}, err
	}
	logger.Trace().Msg("requested product")
	return body.Data.Product.Product(), nil
}

func (h *HTTPCatalog) FindProducts(c context.Context) ([]repository.Product, error) {
	c, span := otel.Tracer.Start(c, "HTTPCatalog FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "HTTPCatalog FindProducts").
		Str(constants.KEY_PROCESS, "requesting products").
		Logger()

	logger.Trace().Msg("requesting products")
	body := envelope[struct {
		Products []response.Product `json:"products"`
	}]{}
	status, err := h.get(c, "/products", &body)
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("failed requesting products with error=unexpected status %d", status)
	}
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	products := make([]repository.Product, 0, len(body.Data.Products))
	for _, p := range body.Data.Products {
		products = append(products, p.Product())
	}
	logger.Trace().Int("count", len(products)).Msg("requested products")
	return products, nil
}

func (h *HTTPCatalog) SaveProduct(context.Context, repository.Product) (repository.Product, error) {
	return repository.Product{}, fmt.Errorf("failed saving product with error=%w", inErrors.ErrUnsupportedSource)
}

func (h *HTTPCatalog) DeleteProduct(context.Context, uuid.UUID) error {
	return fmt.Errorf("failed deleting product with error=%w", inErrors.ErrUnsupportedSource)
}
