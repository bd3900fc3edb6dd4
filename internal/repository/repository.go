package repository

import (
	"context"

	"github.com/google/uuid"
)

// CartRepository persists one cart document per user.
type CartRepository interface {
	// FindCartByUserId returns errors.ErrCartNotFound when the user has no cart.
	FindCartByUserId(c context.Context, userID uuid.UUID) (Cart, error)
	// CreateCart creates an empty ACTIVE cart, or returns the existing one if the
	// user already owns a cart.
	CreateCart(c context.Context, userID uuid.UUID) (Cart, error)
	// SaveCart writes cart if its Revision matches the stored one and returns the
	// stored cart with the incremented revision. A stale revision yields
	// errors.ErrRevisionConflict.
	SaveCart(c context.Context, cart Cart) (Cart, error)
	// DeleteCart is a no-op for unknown ids.
	DeleteCart(c context.Context, cartID uuid.UUID) error
}

type CatalogReader interface {
	// FindProductById returns errors.ErrProductNotFound for unknown ids.
	FindProductById(c context.Context, id uuid.UUID) (Product, error)
}

type CatalogRepository interface {
	CatalogReader
	FindProducts(c context.Context) ([]Product, error)
	// SaveProduct inserts or replaces p after enforcing the default-variant invariant.
	SaveProduct(c context.Context, p Product) (Product, error)
	DeleteProduct(c context.Context, id uuid.UUID) error
}
