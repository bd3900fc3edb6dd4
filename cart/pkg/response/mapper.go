package response

import (
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/internal/repository"
)

// FromCart maps a stored cart without any reconciliation flags set.
func FromCart(cart repository.Cart) Cart {
	items := make([]LineItem, 0, len(cart.LineItems))
	for _, item := range cart.LineItems {
		items = append(items, FromLineItem(item))
	}
	return Cart{
		ID:            cart.ID,
		UserID:        cart.UserID,
		Status:        cart.Status,
		LineItems:     items,
		AppliedCoupon: cart.AppliedCoupon,
		Revision:      cart.Revision,
		CreatedAt:     cart.CreatedAt,
		UpdatedAt:     cart.UpdatedAt,
	}
}

func FromLineItem(item repository.LineItem) LineItem {
	return LineItem{
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Variant:   item.Variant,
		LineTotal: item.Variant.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
	}
}
