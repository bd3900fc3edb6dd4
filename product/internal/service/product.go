package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/product/internal/otel"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

type ProductService struct {
	catalog repository.CatalogRepository
}

func NewProductService(catalog repository.CatalogRepository) *ProductService {
	return &ProductService{catalog: catalog}
}

func (svc *ProductService) InsertProduct(
	c context.Context,
	param request.Product,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductService InsertProduct").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request").Logger()
	logger.Trace().Msg("validating request")
	if err := validate.Struct(c, param); err != nil {
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Msg("validated request")

	logger = logger.With().Str(constants.KEY_PROCESS, "saving product").Logger()
	logger.Trace().Msg("saving product")
	product, err := svc.catalog.SaveProduct(c, param.ToProduct(uuid.Nil))
	if err != nil {
		err = fmt.Errorf("failed saving product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Str(constants.KEY_PRODUCT_ID, product.ID.String()).Msg("saved product")

	return response.FromProduct(product), nil
}

// UpdateProduct replaces the product. Variants sent without an id are treated as new.
func (svc *ProductService) UpdateProduct(
	c context.Context,
	id uuid.UUID,
	param request.Product,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService UpdateProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductService UpdateProduct").
		Str(constants.KEY_PRODUCT_ID, id.String()).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request").Logger()
	logger.Trace().Msg("validating request")
	if err := validate.Struct(c, param); err != nil {
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Msg("validated request")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product").Logger()
	logger.Trace().Msg("finding product")
	existing, err := svc.catalog.FindProductById(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Msg("found product")

	logger = logger.With().Str(constants.KEY_PROCESS, "saving product").Logger()
	logger.Trace().Msg("saving product")
	product := param.ToProduct(id)
	product.CreatedAt = existing.CreatedAt
	product, err = svc.catalog.SaveProduct(c, product)
	if err != nil {
		err = fmt.Errorf("failed saving product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Msg("saved product")

	return response.FromProduct(product), nil
}

func (svc *ProductService) FindProductById(c context.Context, id uuid.UUID) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductService FindProductById").
		Str(constants.KEY_PRODUCT_ID, id.String()).
		Str(constants.KEY_PROCESS, "finding product").
		Logger()

	logger.Trace().Msg("finding product")
	product, err := svc.catalog.FindProductById(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Msg("found product")
	return response.FromProduct(product), nil
}

func (svc *ProductService) GetProducts(c context.Context) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService GetProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductService GetProducts").
		Str(constants.KEY_PROCESS, "finding products").
		Logger()

	logger.Trace().Msg("finding products")
	products, err := svc.catalog.FindProducts(c)
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int("count", len(products)).Msg("found products")
	return response.FromProducts(products), nil
}

func (svc *ProductService) RemoveProduct(c context.Context, id uuid.UUID) error {
	c, span := otel.Tracer.Start(c, "ProductService RemoveProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductService RemoveProduct").
		Str(constants.KEY_PRODUCT_ID, id.String()).
		Str(constants.KEY_PROCESS, "deleting product").
		Logger()

	logger.Trace().Msg("deleting product")
	if err := svc.catalog.DeleteProduct(c, id); err != nil {
		err = fmt.Errorf("failed deleting product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted product")
	return nil
}
