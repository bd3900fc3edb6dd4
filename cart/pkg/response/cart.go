package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/internal/repository"
)

const (
	REASON_PRODUCT_UNAVAILABLE = "product not available or deleted"
	REASON_NO_VARIANTS         = "no variants available"
	REASON_VARIANT_UNAVAILABLE = "variant not available"
	REASON_OUT_OF_STOCK        = "out of stock"
)

type LineItem struct {
	ProductID        uuid.UUID                  `json:"productId"`
	Quantity         int                        `json:"quantity"`
	Variant          repository.VariantSnapshot `json:"variant"`
	LineTotal        decimal.Decimal            `json:"lineTotal"`
	AdjustedQuantity bool                       `json:"adjustedQuantity"`
	PriceUpdated     bool                       `json:"priceUpdated"`
	LowStock         bool                       `json:"lowStock"`
}

type Cart struct {
	ID            uuid.UUID             `json:"id"`
	UserID        uuid.UUID             `json:"userId"`
	Status        repository.CartStatus `json:"status"`
	LineItems     []LineItem            `json:"lineItems"`
	AppliedCoupon *repository.Coupon    `json:"appliedCoupon,omitempty"`
	Revision      int64                 `json:"revision"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

type UnavailableProduct struct {
	ProductID uuid.UUID `json:"productId"`
	VariantID uuid.UUID `json:"variantId"`
	Name      string    `json:"name"`
	Reason    string    `json:"reason"`
}

// DetailedCart is the reconciled view of a cart. Cart is nil and Message is set
// when nothing is left in the cart.
type DetailedCart struct {
	Cart                *Cart                `json:"cart,omitempty"`
	Message             string               `json:"message,omitempty"`
	Subtotal            decimal.Decimal      `json:"subtotal"`
	Total               decimal.Decimal      `json:"total"`
	UnavailableProducts []UnavailableProduct `json:"unavailableProducts,omitempty"`
	HasAdjustments      bool                 `json:"hasAdjustments"`
}
