package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/internal/repository"
)

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

func FromProduct(p repository.Product) Product {
	result := Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		Variants:    make([]Variant, 0, len(p.Variants)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variants {
		result.Variants = append(result.Variants, Variant(v))
	}
	return result
}

func FromProducts(products []repository.Product) []Product {
	result := make([]Product, 0, len(products))
	for _, p := range products {
		result = append(result, FromProduct(p))
	}
	return result
}

// Product maps the wire shape back onto the catalog model.
func (p Product) Product() repository.Product {
	result := repository.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		Variants:    make([]repository.Variant, 0, len(p.Variants)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variants {
		result.Variants = append(result.Variants, repository.Variant(v))
	}
	return result
}
