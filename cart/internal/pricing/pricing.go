// Package pricing holds the money math of the cart: effective variant prices
// and the subtotal/total of a cart. All results are rounded to 2 decimals.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/internal/repository"
)

const places = 2

var hundred = decimal.NewFromInt(100)

// EffectivePrice is basePrice minus discountPercent percent of it.
func EffectivePrice(basePrice, discountPercent decimal.Decimal) decimal.Decimal {
	if discountPercent.IsZero() {
		return basePrice
	}
	discount := basePrice.Mul(discountPercent).Div(hundred)
	return basePrice.Sub(discount).Round(places)
}

func VariantPrice(v repository.Variant) decimal.Decimal {
	return EffectivePrice(v.BasePrice, v.DiscountPercent)
}

// Subtotal uses the cached snapshot prices, not the live catalog.
func Subtotal(items []repository.LineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Variant.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal.Round(places)
}

// Total applies coupon to subtotal. A FIXED_AMOUNT coupon never takes the total
// below zero.
func Total(subtotal decimal.Decimal, coupon *repository.Coupon) decimal.Decimal {
	if coupon == nil {
		return subtotal.Round(places)
	}
	switch coupon.Type {
	case repository.CouponTypePercentage:
		factor := decimal.NewFromInt(1).Sub(coupon.Discount.Div(hundred))
		return subtotal.Mul(factor).Round(places)
	case repository.CouponTypeFixedAmount:
		total := subtotal.Sub(coupon.Discount)
		if total.IsNegative() {
			return decimal.Zero
		}
		return total.Round(places)
	default:
		return subtotal.Round(places)
	}
}

func Totals(cart repository.Cart) (subtotal decimal.Decimal, total decimal.Decimal) {
	subtotal = Subtotal(cart.LineItems)
	return subtotal, Total(subtotal, cart.AppliedCoupon)
}
