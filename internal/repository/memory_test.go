package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func TestMemoryCartRepository(t *testing.T) {
	c := context.Background()
	repo := NewMemoryCartRepository()
	userID := uuid.New()

	_, err := repo.FindCartByUserId(c, userID)
	require.ErrorIs(t, err, inErrors.ErrCartNotFound)

	created, err := repo.CreateCart(c, userID)
	require.NoError(t, err)
	assert.Equal(t, CartStatusActive, created.Status)
	assert.Empty(t, created.LineItems)
	assert.EqualValues(t, 0, created.Revision)

	again, err := repo.CreateCart(c, userID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID, "creating twice should return the existing cart")

	created.LineItems = append(created.LineItems, LineItem{
		ProductID: uuid.New(),
		Quantity:  2,
		Variant:   VariantSnapshot{VariantID: uuid.New(), Price: decimal.NewFromInt(10)},
	})
	saved, err := repo.SaveCart(c, created)
	require.NoError(t, err)
	assert.EqualValues(t, 1, saved.Revision)
	assert.Len(t, saved.LineItems, 1)

	_, err = repo.SaveCart(c, created)
	assert.ErrorIs(t, err, inErrors.ErrRevisionConflict, "saving a stale revision should conflict")

	saved.LineItems[0].Quantity = 99
	found, err := repo.FindCartByUserId(c, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.LineItems[0].Quantity, "store should not share slices with callers")

	require.NoError(t, repo.DeleteCart(c, saved.ID))
	require.NoError(t, repo.DeleteCart(c, saved.ID), "deleting twice should be a no-op")
	_, err = repo.FindCartByUserId(c, userID)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)

	_, err = repo.SaveCart(c, saved)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}

func TestMemoryCatalogRepositoryNormalizesOnSave(t *testing.T) {
	c := context.Background()
	repo := NewMemoryCatalogRepository()

	saved, err := repo.SaveProduct(c, Product{
		Name:   "hoodie",
		Active: true,
		Variants: []Variant{
			{Name: "S", IsDefault: true, Active: true},
			{Name: "M", IsDefault: true, Active: true},
		},
	})
	require.NoError(t, err)
	assert.True(t, saved.Variants[0].IsDefault)
	assert.False(t, saved.Variants[1].IsDefault)

	found, err := repo.FindProductById(c, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, found)

	saved.Variants[0].IsDefault = false
	saved.Variants[1].IsDefault = false
	updated, err := repo.SaveProduct(c, saved)
	require.NoError(t, err)
	assert.True(t, updated.Variants[0].IsDefault, "first variant should be promoted when none is default")
	assert.Equal(t, found.CreatedAt, updated.CreatedAt)

	products, err := repo.FindProducts(c)
	require.NoError(t, err)
	assert.Len(t, products, 1)

	require.NoError(t, repo.DeleteProduct(c, saved.ID))
	_, err = repo.FindProductById(c, saved.ID)
	assert.ErrorIs(t, err, inErrors.ErrProductNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(c, saved.ID), inErrors.ErrProductNotFound)
}
