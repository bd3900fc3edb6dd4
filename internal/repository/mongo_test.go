package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo container test in short mode")
	}
	c := context.Background()

	mongoContainer, err := mongodb.Run(c, "mongo:7.0.16")
	if err != nil {
		t.Fatalf("failed running mongo container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(mongoContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting mongo connection string with error: %s", err)
	}

	client, err := mongo.Connect(c, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed connecting to mongo with error: %s", err)
	}
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})
	return client.Database("storefront")
}

func TestMongoCartRepository(t *testing.T) {
	db := setupMongo(t)
	c := context.Background()
	repo := NewMongoCartRepository(db)
	require.NoError(t, repo.EnsureIndexes(c))
	userID := uuid.New()

	_, err := repo.FindCartByUserId(c, userID)
	require.ErrorIs(t, err, inErrors.ErrCartNotFound)

	created, err := repo.CreateCart(c, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, created.UserID)
	assert.Equal(t, CartStatusActive, created.Status)

	again, err := repo.CreateCart(c, userID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	created.LineItems = []LineItem{{
		ProductID: uuid.New(),
		Quantity:  2,
		Variant: VariantSnapshot{
			VariantID: uuid.New(),
			Name:      "Blue",
			Price:     decimal.RequireFromString("15.50"),
			SKU:       "BLUE",
		},
	}}
	created.AppliedCoupon = &Coupon{Code: "FIVE", Discount: decimal.NewFromInt(5), Type: CouponTypeFixedAmount}
	saved, err := repo.SaveCart(c, created)
	require.NoError(t, err)
	assert.EqualValues(t, 1, saved.Revision)
	require.Len(t, saved.LineItems, 1)
	assert.True(t, decimal.RequireFromString("15.5").Equal(saved.LineItems[0].Variant.Price))
	require.NotNil(t, saved.AppliedCoupon)
	assert.Equal(t, CouponTypeFixedAmount, saved.AppliedCoupon.Type)

	_, err = repo.SaveCart(c, created)
	assert.ErrorIs(t, err, inErrors.ErrRevisionConflict)

	found, err := repo.FindCartByUserId(c, userID)
	require.NoError(t, err)
	assert.Equal(t, saved.Revision, found.Revision)
	assert.True(t, created.CreatedAt.Equal(found.CreatedAt))

	require.NoError(t, repo.DeleteCart(c, found.ID))
	require.NoError(t, repo.DeleteCart(c, found.ID))
	_, err = repo.SaveCart(c, found)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}

func TestMongoCatalogRepository(t *testing.T) {
	db := setupMongo(t)
	c := context.Background()
	repo := NewMongoCatalogRepository(db)

	saved, err := repo.SaveProduct(c, Product{
		Name:   "Tea",
		Active: true,
		Variants: []Variant{
			{Name: "Green", BasePrice: decimal.NewFromInt(8), DiscountPercent: decimal.NewFromInt(25), Active: true, IsDefault: true},
			{Name: "Black", BasePrice: decimal.NewFromInt(9), Active: true, IsDefault: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved.Variants, 2)
	assert.True(t, saved.Variants[0].IsDefault)
	assert.False(t, saved.Variants[1].IsDefault, "only the first default should survive the save")

	found, err := repo.FindProductById(c, saved.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(found.Variants[0].DiscountPercent))

	found.Description = "loose leaf"
	updated, err := repo.SaveProduct(c, Product{
		ID:          found.ID,
		Name:        found.Name,
		Description: found.Description,
		Active:      found.Active,
		Variants:    found.Variants,
	})
	require.NoError(t, err)
	assert.True(t, saved.CreatedAt.Equal(updated.CreatedAt))

	products, err := repo.FindProducts(c)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "loose leaf", products[0].Description)

	require.NoError(t, repo.DeleteProduct(c, saved.ID))
	assert.ErrorIs(t, repo.DeleteProduct(c, saved.ID), inErrors.ErrProductNotFound)
	_, err = repo.FindProductById(c, saved.ID)
	assert.ErrorIs(t, err, inErrors.ErrProductNotFound)
}
