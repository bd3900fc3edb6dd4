package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/internal/otel"
	"github.com/Alturino/storefront/product/internal/service"
	"github.com/Alturino/storefront/product/pkg/request"
)

type ProductController struct {
	service *service.ProductService
}

// AttachProductController mounts the catalog routes. Reads are public so the
// cart service can resolve products, writes require a bearer token.
func AttachProductController(router *mux.Router, service *service.ProductService, auth mux.MiddlewareFunc) {
	controller := ProductController{service: service}

	products := router.PathPrefix("/products").Subrouter()
	products.HandleFunc("", controller.GetProducts).Methods(http.MethodGet)
	products.HandleFunc("/{productId}", controller.FindProductById).Methods(http.MethodGet)
	products.Handle("", auth(http.HandlerFunc(controller.InsertProduct))).Methods(http.MethodPost)
	products.Handle("/{productId}", auth(http.HandlerFunc(controller.UpdateProduct))).
		Methods(http.MethodPut)
	products.Handle("/{productId}", auth(http.HandlerFunc(controller.RemoveProduct))).
		Methods(http.MethodDelete)
}

func productIdFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["productId"])
	if err != nil {
		return uuid.Nil, inErrors.ValidationErrors{{
			Field:   "productId",
			Tag:     "uuid",
			Message: "must be a valid id",
		}}
	}
	return id, nil
}

func (p ProductController) InsertProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductController InsertProduct").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	span.AddEvent("decoding request body")
	reqBody := request.Product{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	span.AddEvent("decoded request body")
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "inserting product").Logger()
	logger.Info().Msg("inserting product")
	c = logger.WithContext(c)
	product, err := p.service.InsertProduct(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed inserting product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("inserted product")

	inHttp.WriteSuccess(c, w, http.StatusCreated, "successfully inserted product", map[string]interface{}{
		"product": product,
	})
}

func (p ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController UpdateProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductController UpdateProduct").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting product id").Logger()
	id, err := productIdFromPath(r)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger = logger.With().Str(constants.KEY_PRODUCT_ID, id.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.Product{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "updating product").Logger()
	logger.Info().Msg("updating product")
	c = logger.WithContext(c)
	product, err := p.service.UpdateProduct(c, id, reqBody)
	if err != nil {
		err = fmt.Errorf("failed updating product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("updated product")

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully updated product", map[string]interface{}{
		"product": product,
	})
}

func (p ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController GetProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductController GetProducts").
		Str(constants.KEY_PROCESS, "get products").
		Logger()

	logger.Trace().Msg("get products")
	span.AddEvent("get products")
	c = logger.WithContext(c)
	products, err := p.service.GetProducts(c)
	if err != nil {
		err = fmt.Errorf("failed get products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	span.AddEvent("got products")
	logger.Info().Msg("got products")

	inHttp.WriteSuccess(c, w, http.StatusOK, "products found", map[string]interface{}{
		"products": products,
	})
}

func (p ProductController) FindProductById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductController FindProductById").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting product id").Logger()
	logger.Trace().Msg("getting product id from pathValues")
	id, err := productIdFromPath(r)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger = logger.With().Str(constants.KEY_PRODUCT_ID, id.String()).Logger()
	logger.Trace().Msg("got product id")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product").Logger()
	logger.Trace().Msg("finding product")
	c = logger.WithContext(c)
	product, err := p.service.FindProductById(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding product with id=%s with error=%w", id.String(), err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("found product")

	inHttp.WriteSuccess(c, w, http.StatusOK, "product found", map[string]interface{}{
		"product": product,
	})
}

func (p ProductController) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController RemoveProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductController RemoveProduct").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting product id").Logger()
	id, err := productIdFromPath(r)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger = logger.With().Str(constants.KEY_PRODUCT_ID, id.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "removing product").Logger()
	logger.Trace().Msg("removing product")
	c = logger.WithContext(c)
	if err = p.service.RemoveProduct(c, id); err != nil {
		err = fmt.Errorf("failed removing product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("removed product")

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully removed product", nil)
}
