package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	inOtel "github.com/Alturino/storefront/internal/otel"
)

type CartController struct {
	service *service.CartService
}

// AttachCartController mounts the cart routes on router behind auth. The cart
// owner is always the subject of the bearer token.
func AttachCartController(router *mux.Router, service *service.CartService, auth mux.MiddlewareFunc) {
	controller := CartController{service: service}

	carts := router.PathPrefix("/carts").Subrouter()
	carts.Use(auth)
	carts.HandleFunc("", controller.GetDetailedCart).Methods(http.MethodGet)
	carts.HandleFunc("", controller.ClearCart).Methods(http.MethodDelete)
	carts.HandleFunc("/subtotal", controller.CalculateSubtotal).Methods(http.MethodGet)
	carts.HandleFunc("/total", controller.CalculateTotal).Methods(http.MethodGet)
	carts.HandleFunc("/coupon", controller.ApplyCoupon).Methods(http.MethodPost)
	carts.HandleFunc("/items", controller.AddProductToCart).Methods(http.MethodPost)
	carts.HandleFunc("/items/{productId}/{variantId}", controller.UpdateProductQuantity).
		Methods(http.MethodPut)
	carts.HandleFunc("/items/{productId}/{variantId}", controller.RemoveProductFromCart).
		Methods(http.MethodDelete)
}

// writeCart keeps the DetailedCart omissions: no cart once it is empty and no
// unavailableProducts when nothing was dropped.
func writeCart(w http.ResponseWriter, r *http.Request, message string, cart response.DetailedCart) {
	data := map[string]interface{}{
		"subtotal":       cart.Subtotal,
		"total":          cart.Total,
		"hasAdjustments": cart.HasAdjustments,
	}
	if cart.Cart != nil {
		data["cart"] = cart.Cart
	}
	if cart.Message != "" {
		data["message"] = cart.Message
	}
	if len(cart.UnavailableProducts) > 0 {
		data["unavailableProducts"] = cart.UnavailableProducts
	}
	inHttp.WriteSuccess(r.Context(), w, http.StatusOK, message, data)
}

func (t CartController) GetDetailedCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController GetDetailedCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController GetDetailedCart").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting userId from jwtToken").Logger()
	logger.Trace().Msg("getting userId from jwtToken")
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, userId.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting detailed cart").Logger()
	logger.Trace().Msg("getting detailed cart")
	c = logger.WithContext(c)
	cart, err := t.service.GetDetailedCart(c, userId)
	if err != nil {
		err = fmt.Errorf("failed getting detailed cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("got detailed cart")

	writeCart(w, r.WithContext(c), "successfully found cart", cart)
}

func (t CartController) AddProductToCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddProductToCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController AddProductToCart").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.AddProductToCart{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	logger = logger.With().Any(constants.KEY_REQUEST_BODY, reqBody).Logger()
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "getting userId from jwtToken").Logger()
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, userId.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "adding product to cart").Logger()
	logger.Trace().Msg("adding product to cart")
	c = logger.WithContext(c)
	cart, err := t.service.AddProductToCart(c, userId, reqBody)
	if err != nil {
		err = fmt.Errorf("failed adding product to cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("added product to cart")

	writeCart(w, r.WithContext(c), "successfully added product to cart", cart)
}

type updateQuantityBody struct {
	Quantity int `json:"quantity"`
}

func (t CartController) UpdateProductQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateProductQuantity")
	defer span.End()

	pathValues := mux.Vars(r)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController UpdateProductQuantity").
		Any(constants.KEY_PATH_VALUES, pathValues).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	body := updateQuantityBody{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "getting userId from jwtToken").Logger()
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, userId.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "updating product quantity").Logger()
	logger.Trace().Msg("updating product quantity")
	c = logger.WithContext(c)
	cart, err := t.service.UpdateProductQuantity(c, userId, request.UpdateQuantity{
		ProductID: pathValues["productId"],
		VariantID: pathValues["variantId"],
		Quantity:  body.Quantity,
	})
	if err != nil {
		err = fmt.Errorf("failed updating product quantity with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("updated product quantity")

	writeCart(w, r.WithContext(c), "successfully updated product quantity", cart)
}

func (t CartController) RemoveProductFromCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveProductFromCart")
	defer span.End()

	pathValues := mux.Vars(r)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController RemoveProductFromCart").
		Any(constants.KEY_PATH_VALUES, pathValues).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting userId from jwtToken").Logger()
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, userId.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "removing product from cart").Logger()
	logger.Trace().Msg("removing product from cart")
	c = logger.WithContext(c)
	cart, err := t.service.RemoveProductFromCart(c, userId, request.RemoveProduct{
		ProductID: pathValues["productId"],
		VariantID: pathValues["variantId"],
	})
	if err != nil {
		err = fmt.Errorf("failed removing product from cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("removed product from cart")

	writeCart(w, r.WithContext(c), "successfully removed product from cart", cart)
}

func (t CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController ClearCart").
		Str(constants.KEY_PROCESS, "getting userId from jwtToken").
		Logger()

	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}

	logger = logger.With().
		Str(constants.KEY_USER_ID, userId.String()).
		Str(constants.KEY_PROCESS, "clearing cart").
		Logger()
	c = logger.WithContext(c)
	cart, err := t.service.ClearCart(c, userId)
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("cleared cart")

	writeCart(w, r.WithContext(c), "successfully cleared cart", cart)
}

func (t CartController) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ApplyCoupon")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController ApplyCoupon").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	reqBody := request.ApplyCoupon{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "getting userId from jwtToken").Logger()
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}

	logger = logger.With().
		Str(constants.KEY_USER_ID, userId.String()).
		Str(constants.KEY_PROCESS, "applying coupon").
		Logger()
	c = logger.WithContext(c)
	cart, err := t.service.ApplyCoupon(c, userId, reqBody)
	if err != nil {
		err = fmt.Errorf("failed applying coupon with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("applied coupon")

	writeCart(w, r.WithContext(c), "successfully applied coupon", cart)
}

func (t CartController) CalculateSubtotal(w http.ResponseWriter, r *http.Request) {
	t.writeAmount(w, r, "subtotal", t.service.CalculateSubtotal)
}

func (t CartController) CalculateTotal(w http.ResponseWriter, r *http.Request) {
	t.writeAmount(w, r, "total", t.service.CalculateTotal)
}

func (t CartController) writeAmount(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	calculate func(c context.Context, userID uuid.UUID) (decimal.Decimal, error),
) {
	c, span := otel.Tracer.Start(r.Context(), "CartController "+name)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController writeAmount").
		Str(constants.KEY_PROCESS, "calculating "+name).
		Logger()

	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}

	c = logger.With().Str(constants.KEY_USER_ID, userId.String()).Logger().WithContext(c)
	amount, err := calculate(c, userId)
	if err != nil {
		err = fmt.Errorf("failed calculating %s with error=%w", name, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully calculated "+name, map[string]interface{}{
		name: amount,
	})
}
