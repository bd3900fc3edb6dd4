package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/internal/repository"
)

// Variant without an id gets one generated on save. Active defaults to true.
type Variant struct {
	ID                string          `validate:"omitempty,uuid"  json:"id"`
	Name              string          `validate:"required"        json:"name"`
	SKU               string          `validate:"required"        json:"sku"`
	BasePrice         decimal.Decimal `validate:"gte=0"           json:"basePrice"`
	DiscountPercent   decimal.Decimal `validate:"gte=0,lte=100"   json:"discountPercent"`
	StockAvailable    int             `validate:"gte=0"           json:"stockAvailable"`
	LowStockThreshold int             `validate:"gte=0"           json:"lowStockThreshold"`
	Active            *bool           `                           json:"active"`
	IsDefault         bool            `                           json:"isDefault"`
}

type Product struct {
	Name        string    `validate:"required" json:"name"`
	Description string    `                    json:"description"`
	Active      *bool     `                    json:"active"`
	Variants    []Variant `validate:"dive"     json:"variants"`
}

func boolOrTrue(b *bool) bool {
	return b == nil || *b
}

func (p Product) ToProduct(id uuid.UUID) repository.Product {
	product := repository.Product{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		Active:      boolOrTrue(p.Active),
		Variants:    make([]repository.Variant, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		variantID := uuid.Nil
		if v.ID != "" {
			variantID = uuid.MustParse(v.ID)
		}
		product.Variants = append(product.Variants, repository.Variant{
			ID:                variantID,
			Name:              v.Name,
			SKU:               v.SKU,
			BasePrice:         v.BasePrice,
			DiscountPercent:   v.DiscountPercent,
			StockAvailable:    v.StockAvailable,
			LowStockThreshold: v.LowStockThreshold,
			Active:            boolOrTrue(v.Active),
			IsDefault:         v.IsDefault,
		})
	}
	return product
}
