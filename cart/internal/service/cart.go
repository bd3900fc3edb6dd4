package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/internal/metric"
	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/pricing"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/lock"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/internal/validate"
)

const (
	OP_ADD_PRODUCT     = "add_product"
	OP_UPDATE_QUANTITY = "update_quantity"
	OP_REMOVE_PRODUCT  = "remove_product"
	OP_CLEAR_CART      = "clear_cart"
	OP_APPLY_COUPON    = "apply_coupon"
)

// errUnchanged lets a mutation skip the save when it changed nothing.
var errUnchanged = errors.New("cart unchanged")

type CartService struct {
	carts   repository.CartRepository
	catalog repository.CatalogReader
	locker  lock.Locker
	cfg     config.Cart
	metrics *metric.CartMetrics
}

func NewCartService(
	carts repository.CartRepository,
	catalog repository.CatalogReader,
	locker lock.Locker,
	cfg config.Cart,
	metrics *metric.CartMetrics,
) *CartService {
	if cfg.MaxSaveRetries < 0 {
		cfg.MaxSaveRetries = 0
	}
	return &CartService{carts: carts, catalog: catalog, locker: locker, cfg: cfg, metrics: metrics}
}

func lockKey(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

// mutate runs fn on the user's cart under the per-user lock and saves the
// result. fn is re-applied on a fresh copy if the save hits a stale revision.
func (svc *CartService) mutate(
	c context.Context,
	userID uuid.UUID,
	operation string,
	createIfMissing bool,
	fn func(cart *repository.Cart) error,
) (cart repository.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService mutate")
	defer span.End()
	defer func() { svc.metrics.Mutation(operation, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService mutate").
		Str(constants.KEY_USER_ID, userID.String()).
		Str("operation", operation).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "acquiring cart lock").Logger()
	logger.Trace().Msg("acquiring cart lock")
	release, err := svc.locker.Lock(c, lockKey(userID))
	if err != nil {
		err = fmt.Errorf("failed acquiring cart lock with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Cart{}, err
	}
	defer release()
	logger.Trace().Msg("acquired cart lock")

	for attempt := 0; ; attempt++ {
		lg := logger.With().Int(constants.KEY_RETRY, attempt).Logger()

		lg = lg.With().Str(constants.KEY_PROCESS, "finding cart").Logger()
		lg.Trace().Msg("finding cart")
		cart, err = svc.carts.FindCartByUserId(c, userID)
		if errors.Is(err, inErrors.ErrCartNotFound) && createIfMissing {
			lg = lg.With().Str(constants.KEY_PROCESS, "creating cart").Logger()
			lg.Debug().Msg("creating cart")
			cart, err = svc.carts.CreateCart(c, userID)
		}
		if err != nil {
			err = fmt.Errorf("failed finding cart with error=%w", err)
			inOtel.RecordError(err, span)
			lg.Error().Err(err).Msg(err.Error())
			return repository.Cart{}, err
		}
		lg = lg.With().
			Str(constants.KEY_CART_ID, cart.ID.String()).
			Int64(constants.KEY_CART_REVISION, cart.Revision).
			Logger()
		lg.Trace().Msg("found cart")

		if !cart.Status.Mutable() {
			err = fmt.Errorf("failed mutating cart in status=%s with error=%w", cart.Status, inErrors.ErrCartNotActive)
			inOtel.RecordError(err, span)
			lg.Warn().Err(err).Msg(err.Error())
			return repository.Cart{}, err
		}

		lg = lg.With().Str(constants.KEY_PROCESS, operation).Logger()
		err = fn(&cart)
		if errors.Is(err, errUnchanged) {
			lg.Debug().Msg("cart unchanged, skipping save")
			return cart, nil
		}
		if err != nil {
			inOtel.RecordError(err, span)
			lg.Warn().Err(err).Msg(err.Error())
			return repository.Cart{}, err
		}

		lg = lg.With().Str(constants.KEY_PROCESS, "saving cart").Logger()
		lg.Trace().Msg("saving cart")
		saved, err := svc.carts.SaveCart(c, cart)
		if errors.Is(err, inErrors.ErrRevisionConflict) && attempt < svc.cfg.MaxSaveRetries {
			svc.metrics.SaveConflicts.Inc()
			lg.Info().Err(err).Msg("cart changed while mutating, retrying")
			continue
		}
		if err != nil {
			err = fmt.Errorf("failed saving cart with error=%w", err)
			inOtel.RecordError(err, span)
			lg.Error().Err(err).Msg(err.Error())
			return repository.Cart{}, err
		}
		lg.Debug().Int64(constants.KEY_CART_REVISION, saved.Revision).Msg("saved cart")
		return saved, nil
	}
}

func detailed(cart repository.Cart) response.DetailedCart {
	subtotal, total := pricing.Totals(cart)
	mapped := response.FromCart(cart)
	return response.DetailedCart{Cart: &mapped, Subtotal: subtotal, Total: total}
}

func emptyCart() response.DetailedCart {
	return response.DetailedCart{
		Message:  inErrors.ErrCartEmpty.Error(),
		Subtotal: decimal.Zero,
		Total:    decimal.Zero,
	}
}

// AddProductToCart captures a fresh snapshot of the variant and merges it into
// an existing line item for the same product and variant. Stock is not checked
// here; the next read clamps it.
func (svc *CartService) AddProductToCart(
	c context.Context,
	userID uuid.UUID,
	param request.AddProductToCart,
) (response.DetailedCart, error) {
	c, span := otel.Tracer.Start(c, "CartService AddProductToCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService AddProductToCart").
		Str(constants.KEY_USER_ID, userID.String()).
		Any(constants.KEY_REQUEST_BODY, param).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request").Logger()
	logger.Trace().Msg("validating request")
	if err := validate.Struct(c, param); err != nil {
		svc.metrics.Mutation(OP_ADD_PRODUCT, err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	productID, variantID := param.IDs()
	logger = logger.With().
		Str(constants.KEY_PRODUCT_ID, productID.String()).
		Str(constants.KEY_VARIANT_ID, variantID.String()).
		Logger()
	logger.Trace().Msg("validated request")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product").Logger()
	logger.Debug().Msg("finding product")
	product, err := svc.catalog.FindProductById(c, productID)
	if err != nil {
		svc.metrics.Mutation(OP_ADD_PRODUCT, err)
		err = fmt.Errorf("failed finding productId=%s with error=%w", productID, err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	if len(product.Variants) == 0 {
		svc.metrics.Mutation(OP_ADD_PRODUCT, inErrors.ErrNoVariants)
		err = fmt.Errorf("failed adding productId=%s with error=%w", productID, inErrors.ErrNoVariants)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	variant, ok := product.FindVariant(variantID)
	if !ok {
		svc.metrics.Mutation(OP_ADD_PRODUCT, inErrors.ErrVariantNotFound)
		err = fmt.Errorf("failed adding variantId=%s with error=%w", variantID, inErrors.ErrVariantNotFound)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	snapshot := repository.VariantSnapshot{
		VariantID:      variant.ID,
		Name:           variant.Name,
		Price:          pricing.VariantPrice(variant),
		SKU:            variant.SKU,
		StockAvailable: variant.StockAvailable,
	}
	logger.Debug().Msg("found product")

	logger = logger.With().Str(constants.KEY_PROCESS, "adding line item").Logger()
	logger.Trace().Msg("adding line item")
	c = logger.WithContext(c)
	cart, err := svc.mutate(c, userID, OP_ADD_PRODUCT, true, func(cart *repository.Cart) error {
		if i := cart.FindLineItem(productID, variantID); i >= 0 {
			if cart.LineItems[i].Quantity > request.MAX_QUANTITY-param.Quantity {
				return inErrors.ValidationErrors{{
					Field:   "quantity",
					Tag:     "lte",
					Message: fmt.Sprintf("must be less than or equal to %d in total, cart already holds %d", request.MAX_QUANTITY, cart.LineItems[i].Quantity),
				}}
			}
			cart.LineItems[i].Quantity += param.Quantity
			cart.LineItems[i].Variant = snapshot
			return nil
		}
		cart.LineItems = append(cart.LineItems, repository.LineItem{
			ProductID: productID,
			Quantity:  param.Quantity,
			Variant:   snapshot,
		})
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed adding line item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	logger.Info().Msg("added line item")
	return detailed(cart), nil
}

// UpdateProductQuantity overwrites the quantity of an existing line item.
func (svc *CartService) UpdateProductQuantity(
	c context.Context,
	userID uuid.UUID,
	param request.UpdateQuantity,
) (response.DetailedCart, error) {
	c, span := otel.Tracer.Start(c, "CartService UpdateProductQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService UpdateProductQuantity").
		Str(constants.KEY_USER_ID, userID.String()).
		Any(constants.KEY_REQUEST_BODY, param).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request").Logger()
	if err := validate.Struct(c, param); err != nil {
		svc.metrics.Mutation(OP_UPDATE_QUANTITY, err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	productID, variantID := param.IDs()

	logger = logger.With().Str(constants.KEY_PROCESS, "updating line item quantity").Logger()
	logger.Trace().Msg("updating line item quantity")
	c = logger.WithContext(c)
	cart, err := svc.mutate(c, userID, OP_UPDATE_QUANTITY, false, func(cart *repository.Cart) error {
		i := cart.FindLineItem(productID, variantID)
		if i < 0 {
			return fmt.Errorf(
				"failed finding productId=%s variantId=%s with error=%w",
				productID,
				variantID,
				inErrors.ErrLineItemNotFound,
			)
		}
		cart.LineItems[i].Quantity = param.Quantity
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed updating line item quantity with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	logger.Info().Msg("updated line item quantity")
	return detailed(cart), nil
}

// RemoveProductFromCart is idempotent: a missing line item or a missing cart is
// not an error.
func (svc *CartService) RemoveProductFromCart(
	c context.Context,
	userID uuid.UUID,
	param request.RemoveProduct,
) (response.DetailedCart, error) {
	c, span := otel.Tracer.Start(c, "CartService RemoveProductFromCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService RemoveProductFromCart").
		Str(constants.KEY_USER_ID, userID.String()).
		Any(constants.KEY_REQUEST_BODY, param).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request").Logger()
	if err := validate.Struct(c, param); err != nil {
		svc.metrics.Mutation(OP_REMOVE_PRODUCT, err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	productID, variantID := param.IDs()

	logger = logger.With().Str(constants.KEY_PROCESS, "removing line item").Logger()
	logger.Trace().Msg("removing line item")
	c = logger.WithContext(c)
	cart, err := svc.mutate(c, userID, OP_REMOVE_PRODUCT, false, func(cart *repository.Cart) error {
		i := svc.findLineItemForRemoval(c, *cart, productID, variantID)
		if i < 0 {
			logger.Debug().Msg("line item already absent")
			return errUnchanged
		}
		cart.LineItems = append(cart.LineItems[:i], cart.LineItems[i+1:]...)
		return nil
	})
	if errors.Is(err, inErrors.ErrCartNotFound) {
		logger.Debug().Msg("cart already absent")
		return emptyCart(), nil
	}
	if err != nil {
		err = fmt.Errorf("failed removing line item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	logger.Info().Msg("removed line item")
	return detailed(cart), nil
}

// ClearCart empties the line items but keeps the cart, its status and coupon.
func (svc *CartService) ClearCart(c context.Context, userID uuid.UUID) (response.DetailedCart, error) {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService ClearCart").
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_PROCESS, "clearing cart").
		Logger()

	logger.Trace().Msg("clearing cart")
	c = logger.WithContext(c)
	cart, err := svc.mutate(c, userID, OP_CLEAR_CART, false, func(cart *repository.Cart) error {
		cart.LineItems = []repository.LineItem{}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	logger.Info().Msg("cleared cart")
	return detailed(cart), nil
}

// ApplyCoupon replaces the applied coupon. A coupon of type NONE removes it.
func (svc *CartService) ApplyCoupon(
	c context.Context,
	userID uuid.UUID,
	param request.ApplyCoupon,
) (response.DetailedCart, error) {
	c, span := otel.Tracer.Start(c, "CartService ApplyCoupon")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService ApplyCoupon").
		Str(constants.KEY_USER_ID, userID.String()).
		Any(constants.KEY_COUPON, param).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating coupon").Logger()
	logger.Trace().Msg("validating coupon")
	if err := validateCoupon(c, param); err != nil {
		svc.metrics.Mutation(OP_APPLY_COUPON, err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	coupon := param.Coupon()
	logger.Trace().Msg("validated coupon")

	logger = logger.With().Str(constants.KEY_PROCESS, "applying coupon").Logger()
	c = logger.WithContext(c)
	cart, err := svc.mutate(c, userID, OP_APPLY_COUPON, false, func(cart *repository.Cart) error {
		if coupon.Type == repository.CouponTypeNone {
			cart.AppliedCoupon = nil
			return nil
		}
		cart.AppliedCoupon = &coupon
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed applying coupon with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.DetailedCart{}, err
	}
	logger.Info().Msg("applied coupon")
	return detailed(cart), nil
}

func validateCoupon(c context.Context, param request.ApplyCoupon) error {
	if err := validate.Struct(c, param); err != nil {
		return err
	}
	if repository.CouponType(param.Type) == repository.CouponTypePercentage &&
		param.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return inErrors.ValidationErrors{{
			Field:   "discount",
			Tag:     "lte",
			Message: "must be less than or equal to 100",
		}}
	}
	return nil
}

// CalculateSubtotal uses the snapshot prices as they were last reconciled.
func (svc *CartService) CalculateSubtotal(c context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	c, span := otel.Tracer.Start(c, "CartService CalculateSubtotal")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService CalculateSubtotal").
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_PROCESS, "finding cart").
		Logger()

	cart, err := svc.carts.FindCartByUserId(c, userID)
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return decimal.Zero, err
	}
	subtotal := pricing.Subtotal(cart.LineItems)
	logger.Debug().Str("subtotal", subtotal.StringFixed(2)).Msg("calculated subtotal")
	return subtotal, nil
}

func (svc *CartService) CalculateTotal(c context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	c, span := otel.Tracer.Start(c, "CartService CalculateTotal")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService CalculateTotal").
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_PROCESS, "finding cart").
		Logger()

	cart, err := svc.carts.FindCartByUserId(c, userID)
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return decimal.Zero, err
	}
	_, total := pricing.Totals(cart)
	logger.Debug().Str("total", total.StringFixed(2)).Msg("calculated total")
	return total, nil
}
