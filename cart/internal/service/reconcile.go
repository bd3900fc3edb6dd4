package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/pricing"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
)

const maxConcurrentProductLookups = 8

// reconciliation is the outcome of checking one cart against the catalog.
type reconciliation struct {
	cart        repository.Cart
	items       []response.LineItem
	unavailable []response.UnavailableProduct
	removed     int
	clamped     int
	repriced    int
	// adjusted is set by removals, clamps and price updates.
	adjusted bool
	// dirty means the corrected cart differs from the stored one and must be saved.
	dirty bool
}

func mergeDuplicateLineItems(items []repository.LineItem) ([]repository.LineItem, bool) {
	merged := make([]repository.LineItem, 0, len(items))
	index := map[[2]uuid.UUID]int{}
	changed := false
	for _, item := range items {
		key := [2]uuid.UUID{item.ProductID, item.Variant.VariantID}
		if i, ok := index[key]; ok {
			merged[i].Quantity += item.Quantity
			changed = true
			continue
		}
		index[key] = len(merged)
		merged = append(merged, item)
	}
	return merged, changed
}

// reconcile checks every line item of cart against products, in this order:
// product missing or inactive, no variants, variant missing or inactive, out of
// stock, stock below quantity, then snapshot refresh. A nil product means it was
// not found. The stored cart is never modified.
func reconcile(cart repository.Cart, products map[uuid.UUID]*repository.Product) reconciliation {
	result := reconciliation{cart: cart.Clone()}
	lineItems, merged := mergeDuplicateLineItems(result.cart.LineItems)
	result.dirty = merged

	kept := make([]repository.LineItem, 0, len(lineItems))
	for _, item := range lineItems {
		product := products[item.ProductID]
		unavailable := func(name string, reason string) {
			if name == "" {
				name = item.Variant.Name
			}
			result.unavailable = append(result.unavailable, response.UnavailableProduct{
				ProductID: item.ProductID,
				VariantID: item.Variant.VariantID,
				Name:      name,
				Reason:    reason,
			})
			result.removed++
		}

		if product == nil || !product.Active {
			unavailable("", response.REASON_PRODUCT_UNAVAILABLE)
			continue
		}
		if len(product.Variants) == 0 {
			unavailable(product.Name, response.REASON_NO_VARIANTS)
			continue
		}
		variant, ok := product.FindVariant(item.Variant.VariantID)
		if !ok || !variant.Active {
			unavailable(product.Name, response.REASON_VARIANT_UNAVAILABLE)
			continue
		}
		if variant.StockAvailable <= 0 {
			unavailable(product.Name, response.REASON_OUT_OF_STOCK)
			continue
		}

		line := response.LineItem{}
		if variant.StockAvailable < item.Quantity {
			item.Quantity = variant.StockAvailable
			line.AdjustedQuantity = true
			result.clamped++
		}

		price := pricing.VariantPrice(variant)
		if !price.Equal(item.Variant.Price) {
			item.Variant.Price = price
			line.PriceUpdated = true
			result.repriced++
		}
		if item.Variant.SKU != variant.SKU || item.Variant.Name != variant.Name {
			item.Variant.SKU = variant.SKU
			item.Variant.Name = variant.Name
			result.dirty = true
		}
		item.Variant.StockAvailable = variant.StockAvailable
		line.LowStock = variant.StockAvailable <= variant.LowStockThreshold

		mapped := response.FromLineItem(item)
		mapped.AdjustedQuantity = line.AdjustedQuantity
		mapped.PriceUpdated = line.PriceUpdated
		mapped.LowStock = line.LowStock
		result.items = append(result.items, mapped)
		kept = append(kept, item)
	}

	result.cart.LineItems = kept
	result.adjusted = result.removed > 0 || result.clamped > 0 || result.repriced > 0
	result.dirty = result.dirty || result.adjusted
	return result
}

// findProducts looks up every distinct product referenced by cart concurrently.
// Unknown products map to nil; any other lookup failure fails the whole read.
func (svc *CartService) findProducts(
	c context.Context,
	cart repository.Cart,
) (map[uuid.UUID]*repository.Product, error) {
	c, span := otel.Tracer.Start(c, "CartService findProducts")
	defer span.End()

	ids := make([]uuid.UUID, 0, len(cart.LineItems))
	seen := map[uuid.UUID]bool{}
	for _, item := range cart.LineItems {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}

	found := make([]*repository.Product, len(ids))
	g, gc := errgroup.WithContext(c)
	g.SetLimit(maxConcurrentProductLookups)
	for i, id := range ids {
		g.Go(func() error {
			product, err := svc.catalog.FindProductById(gc, id)
			if errors.Is(err, inErrors.ErrProductNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed finding productId=%s with error=%w", id, err)
			}
			found[i] = &product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		inOtel.RecordError(err, span)
		return nil, err
	}

	products := make(map[uuid.UUID]*repository.Product, len(ids))
	for i, id := range ids {
		products[id] = found[i]
	}
	return products, nil
}

// GetDetailedCart reconciles the user's cart with the live catalog, persists the
// corrected cart only when something changed and reports what changed. Reads
// are not locked; a concurrent mutation makes the save fail on its revision and
// the whole read is retried.
func (svc *CartService) GetDetailedCart(c context.Context, userID uuid.UUID) (response.DetailedCart, error) {
	c, span := otel.Tracer.Start(c, "CartService GetDetailedCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService GetDetailedCart").
		Str(constants.KEY_USER_ID, userID.String()).
		Logger()

	for attempt := 0; ; attempt++ {
		lg := logger.With().Int(constants.KEY_RETRY, attempt).Logger()

		lg = lg.With().Str(constants.KEY_PROCESS, "finding cart").Logger()
		lg.Trace().Msg("finding cart")
		cart, err := svc.carts.FindCartByUserId(c, userID)
		if err != nil {
			err = fmt.Errorf("failed finding cart with error=%w", err)
			inOtel.RecordError(err, span)
			lg.Warn().Err(err).Msg(err.Error())
			return response.DetailedCart{}, err
		}
		lg = lg.With().
			Str(constants.KEY_CART_ID, cart.ID.String()).
			Int64(constants.KEY_CART_REVISION, cart.Revision).
			Int(constants.KEY_LINE_ITEMS, len(cart.LineItems)).
			Logger()
		lg.Trace().Msg("found cart")

		lg = lg.With().Str(constants.KEY_PROCESS, "finding products").Logger()
		lg.Trace().Msg("finding products")
		products, err := svc.findProducts(lg.WithContext(c), cart)
		if err != nil {
			err = fmt.Errorf("failed finding products with error=%w", err)
			inOtel.RecordError(err, span)
			lg.Error().Err(err).Msg(err.Error())
			return response.DetailedCart{}, err
		}
		lg.Trace().Msg("found products")

		lg = lg.With().Str(constants.KEY_PROCESS, "reconciling cart").Logger()
		result := reconcile(cart, products)
		svc.metrics.Reconciliations.Inc()
		for _, u := range result.unavailable {
			svc.metrics.RemovedLineItems.WithLabelValues(u.Reason).Inc()
		}
		svc.metrics.ClampedLineItems.Add(float64(result.clamped))
		svc.metrics.PriceRefreshes.Add(float64(result.repriced))
		lg.Debug().
			Int("removed", result.removed).
			Int("clamped", result.clamped).
			Int("repriced", result.repriced).
			Bool("dirty", result.dirty).
			Any(constants.KEY_UNAVAILABLE_PRODUCTS, result.unavailable).
			Msg("reconciled cart")

		if !cart.Status.Mutable() {
			lg.Debug().Str("status", string(cart.Status)).Msg("cart is not active, skipping write")
			return svc.detailedResult(result, cart), nil
		}

		if len(result.cart.LineItems) == 0 {
			if result.removed == 0 {
				return emptyResult(result), nil
			}
			lg = lg.With().Str(constants.KEY_PROCESS, "deleting emptied cart").Logger()
			err = svc.deleteIfUnchanged(lg.WithContext(c), cart)
			if errors.Is(err, inErrors.ErrRevisionConflict) && attempt < svc.cfg.MaxSaveRetries {
				svc.metrics.SaveConflicts.Inc()
				lg.Info().Err(err).Msg("cart changed while reconciling, retrying")
				continue
			}
			if err != nil {
				err = fmt.Errorf("failed deleting emptied cart with error=%w", err)
				inOtel.RecordError(err, span)
				lg.Error().Err(err).Msg(err.Error())
				return response.DetailedCart{}, err
			}
			lg.Info().Msg("deleted emptied cart")
			return emptyResult(result), nil
		}

		if !result.dirty {
			return svc.detailedResult(result, cart), nil
		}

		lg = lg.With().Str(constants.KEY_PROCESS, "saving reconciled cart").Logger()
		lg.Trace().Msg("saving reconciled cart")
		saved, err := svc.carts.SaveCart(c, result.cart)
		if errors.Is(err, inErrors.ErrRevisionConflict) && attempt < svc.cfg.MaxSaveRetries {
			svc.metrics.SaveConflicts.Inc()
			lg.Info().Err(err).Msg("cart changed while reconciling, retrying")
			continue
		}
		if err != nil {
			err = fmt.Errorf("failed saving reconciled cart with error=%w", err)
			inOtel.RecordError(err, span)
			lg.Error().Err(err).Msg(err.Error())
			return response.DetailedCart{}, err
		}
		lg.Info().Int64(constants.KEY_CART_REVISION, saved.Revision).Msg("saved reconciled cart")
		return svc.detailedResult(result, saved), nil
	}
}

// deleteIfUnchanged deletes cart under the user lock, but only if nobody
// saved it since it was read.
func (svc *CartService) deleteIfUnchanged(c context.Context, cart repository.Cart) error {
	release, err := svc.locker.Lock(c, lockKey(cart.UserID))
	if err != nil {
		return fmt.Errorf("failed acquiring cart lock with error=%w", err)
	}
	defer release()

	current, err := svc.carts.FindCartByUserId(c, cart.UserID)
	if errors.Is(err, inErrors.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed finding cart with error=%w", err)
	}
	if current.ID != cart.ID || current.Revision != cart.Revision {
		return inErrors.ErrRevisionConflict
	}
	return svc.carts.DeleteCart(c, cart.ID)
}

func (svc *CartService) detailedResult(result reconciliation, stored repository.Cart) response.DetailedCart {
	corrected := result.cart
	corrected.Revision = stored.Revision
	corrected.UpdatedAt = stored.UpdatedAt

	mapped := response.FromCart(corrected)
	mapped.LineItems = result.items
	subtotal, total := pricing.Totals(corrected)
	return response.DetailedCart{
		Cart:                &mapped,
		Subtotal:            subtotal,
		Total:               total,
		UnavailableProducts: result.unavailable,
		HasAdjustments:      result.adjusted,
	}
}

func emptyResult(result reconciliation) response.DetailedCart {
	empty := emptyCart()
	empty.UnavailableProducts = result.unavailable
	empty.HasAdjustments = result.adjusted
	return empty
}
