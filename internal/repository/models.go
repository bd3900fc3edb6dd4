package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusSaved      CartStatus = "SAVED"
	CartStatusProcessing CartStatus = "PROCESSING"
	CartStatusCompleted  CartStatus = "COMPLETED"
)

// Mutable reports whether line items and coupons may still change.
func (s CartStatus) Mutable() bool {
	return s == CartStatusActive || s == CartStatusSaved || s == ""
}

type CouponType string

const (
	CouponTypePercentage  CouponType = "PERCENTAGE"
	CouponTypeFixedAmount CouponType = "FIXED_AMOUNT"
	CouponTypeNone        CouponType = "NONE"
)

type Coupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Type     CouponType      `json:"type"`
}

type Variant struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	BasePrice         decimal.Decimal `json:"basePrice"`
	DiscountPercent   decimal.Decimal `json:"discountPercent"`
	StockAvailable    int             `json:"stockAvailable"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	Active            bool            `json:"active"`
	IsDefault         bool            `json:"isDefault"`
}

type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	Variants    []Variant `json:"variants"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p Product) FindVariant(id uuid.UUID) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

func (p Product) Clone() Product {
	clone := p
	if p.Variants != nil {
		clone.Variants = make([]Variant, len(p.Variants))
		copy(clone.Variants, p.Variants)
	}
	return clone
}

// VariantSnapshot is the denormalized copy of a variant kept inside a line item.
// It may be stale relative to the catalog until the cart is reconciled.
type VariantSnapshot struct {
	VariantID      uuid.UUID       `json:"variantId"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	SKU            string          `json:"sku"`
	StockAvailable int             `json:"stockAvailable"`
}

type LineItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Variant   VariantSnapshot `json:"variant"`
}

// Cart is owned by exactly one user. Revision increases on every successful save.
type Cart struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"userId"`
	LineItems     []LineItem `json:"lineItems"`
	Status        CartStatus `json:"status"`
	AppliedCoupon *Coupon    `json:"appliedCoupon,omitempty"`
	Revision      int64      `json:"revision"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (c Cart) Clone() Cart {
	clone := c
	clone.LineItems = make([]LineItem, len(c.LineItems))
	copy(clone.LineItems, c.LineItems)
	if c.AppliedCoupon != nil {
		coupon := *c.AppliedCoupon
		clone.AppliedCoupon = &coupon
	}
	return clone
}

// FindLineItem returns the index of the line item for (productID, variantID) or -1.
func (c Cart) FindLineItem(productID, variantID uuid.UUID) int {
	for i, item := range c.LineItems {
		if item.ProductID == productID && item.Variant.VariantID == variantID {
			return i
		}
	}
	return -1
}
