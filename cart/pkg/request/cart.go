package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/internal/repository"
)

// MAX_QUANTITY caps a single line item. Keep in sync with the lte tags below.
const MAX_QUANTITY = 10000

type AddProductToCart struct {
	ProductID string `validate:"required,uuid"            json:"productId"`
	VariantID string `validate:"required,uuid"            json:"variantId"`
	Quantity  int    `validate:"required,gte=1,lte=10000" json:"quantity"`
}

func (a AddProductToCart) IDs() (productID uuid.UUID, variantID uuid.UUID) {
	return uuid.MustParse(a.ProductID), uuid.MustParse(a.VariantID)
}

type UpdateQuantity struct {
	ProductID string `validate:"required,uuid"            json:"productId"`
	VariantID string `validate:"required,uuid"            json:"variantId"`
	Quantity  int    `validate:"required,gte=1,lte=10000" json:"quantity"`
}

func (u UpdateQuantity) IDs() (productID uuid.UUID, variantID uuid.UUID) {
	return uuid.MustParse(u.ProductID), uuid.MustParse(u.VariantID)
}

type RemoveProduct struct {
	ProductID string `validate:"required,uuid" json:"productId"`
	VariantID string `validate:"required,uuid" json:"variantId"`
}

func (r RemoveProduct) IDs() (productID uuid.UUID, variantID uuid.UUID) {
	return uuid.MustParse(r.ProductID), uuid.MustParse(r.VariantID)
}

// ApplyCoupon with type NONE clears the applied coupon.
type ApplyCoupon struct {
	Code     string          `validate:"required_unless=Type NONE"                   json:"code"`
	Discount decimal.Decimal `validate:"gte=0"                                       json:"discount"`
	Type     string          `validate:"required,oneof=PERCENTAGE FIXED_AMOUNT NONE" json:"type"`
}

func (a ApplyCoupon) Coupon() repository.Coupon {
	return repository.Coupon{
		Code:     a.Code,
		Discount: a.Discount,
		Type:     repository.CouponType(a.Type),
	}
}
