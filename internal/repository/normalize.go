package repository

import (
	"time"

	"github.com/google/uuid"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

// NormalizeDefaultVariant keeps exactly one default variant: the first variant
// flagged as default wins, and when none is flagged the first variant is promoted.
func NormalizeDefaultVariant(p *Product) {
	if len(p.Variants) == 0 {
		return
	}
	found := false
	for i := range p.Variants {
		if p.Variants[i].IsDefault {
			if found {
				p.Variants[i].IsDefault = false
				continue
			}
			found = true
		}
	}
	if !found {
		p.Variants[0].IsDefault = true
	}
}

// checkUniqueVariantIds rejects a product whose variants share an id. Variants
// without an id are skipped, they get a fresh one on save.
func checkUniqueVariantIds(p Product) error {
	seen := make(map[uuid.UUID]struct{}, len(p.Variants))
	for _, v := range p.Variants {
		if v.ID == uuid.Nil {
			continue
		}
		if _, ok := seen[v.ID]; ok {
			return inErrors.ValidationErrors{{
				Field:   "variants",
				Tag:     "unique",
				Message: "must not repeat variant id " + v.ID.String(),
			}}
		}
		seen[v.ID] = struct{}{}
	}
	return nil
}

// prepareProduct is the pre-persist step shared by every catalog adapter.
func prepareProduct(p Product, now time.Time) (Product, error) {
	if err := checkUniqueVariantIds(p); err != nil {
		return Product{}, err
	}
	p = p.Clone()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for i := range p.Variants {
		if p.Variants[i].ID == uuid.Nil {
			p.Variants[i].ID = uuid.New()
		}
	}
	NormalizeDefaultVariant(&p)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return p, nil
}
