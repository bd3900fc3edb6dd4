package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/repository"
)

// findLineItemForRemoval finds the line item to remove. Older clients sent the
// product and variant ids swapped, so while cart.legacy_id_swap is on an
// inverted match is accepted too and logged.
// TODO: drop the inverted match once the legacy_id_swap warning stops showing up in logs.
func (svc *CartService) findLineItemForRemoval(
	c context.Context,
	cart repository.Cart,
	productID uuid.UUID,
	variantID uuid.UUID,
) int {
	if i := cart.FindLineItem(productID, variantID); i >= 0 || !svc.cfg.LegacyIDSwap {
		return i
	}

	i := cart.FindLineItem(variantID, productID)
	if i >= 0 {
		logger := zerolog.Ctx(c).
			With().
			Str(constants.KEY_TAG, "CartService findLineItemForRemoval").
			Str(constants.KEY_CART_ID, cart.ID.String()).
			Str(constants.KEY_PRODUCT_ID, productID.String()).
			Str(constants.KEY_VARIANT_ID, variantID.String()).
			Logger()
		logger.Warn().Msg("legacy_id_swap: removed line item matched with swapped product and variant ids")
	}
	return i
}
