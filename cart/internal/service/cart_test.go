package service

import (
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/pkg/request"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/repository"
)

func TestAddProductToCartMergesSameVariant(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	variant := newVariant("M", "20", withDiscount(25))
	product := f.saveProduct(t, "Shirt", variant)
	userID := uuid.New()

	for _, quantity := range []int{2, 3} {
		_, err := f.svc.AddProductToCart(f.c, userID, request.AddProductToCart{
			ProductID: product.ID.String(),
			VariantID: variant.ID.String(),
			Quantity:  quantity,
		})
		require.NoError(t, err)
	}

	cart, err := f.carts.FindCartByUserId(f.c, userID)
	require.NoError(t, err)
	require.Len(t, cart.LineItems, 1)
	assert.Equal(t, 5, cart.LineItems[0].Quantity)
	assert.True(t, decimal.NewFromInt(15).Equal(cart.LineItems[0].Variant.Price))
	assert.Equal(t, "SKU-M", cart.LineItems[0].Variant.SKU)
	assert.Equal(t, repository.CartStatusActive, cart.Status)
}

func TestAddProductToCartDoesNotCheckStock(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	variant := newVariant("Only", "5", withStock(1))
	product := f.saveProduct(t, "Sticker", variant)

	detailed, err := f.svc.AddProductToCart(f.c, uuid.New(), request.AddProductToCart{
		ProductID: product.ID.String(),
		VariantID: variant.ID.String(),
		Quantity:  10,
	})
	require.NoError(t, err)
	require.NotNil(t, detailed.Cart)
	assert.Equal(t, 10, detailed.Cart.LineItems[0].Quantity)
	assert.True(t, decimal.NewFromInt(50).Equal(detailed.Subtotal))
}

func TestAddProductToCartErrors(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	variant := newVariant("S", "10")
	product := f.saveProduct(t, "Hat", variant)
	bare, err := f.catalog.SaveProduct(f.c, repository.Product{ID: uuid.New(), Name: "Bare", Active: true})
	require.NoError(t, err)

	tests := []struct {
		name        string
		param       request.AddProductToCart
		expectedErr error
		validation  bool
	}{
		{
			name:        "unknown product",
			param:       request.AddProductToCart{ProductID: uuid.NewString(), VariantID: variant.ID.String(), Quantity: 1},
			expectedErr: inErrors.ErrProductNotFound,
		},
		{
			name:        "product without variants",
			param:       request.AddProductToCart{ProductID: bare.ID.String(), VariantID: variant.ID.String(), Quantity: 1},
			expectedErr: inErrors.ErrNoVariants,
		},
		{
			name:        "unknown variant",
			param:       request.AddProductToCart{ProductID: product.ID.String(), VariantID: uuid.NewString(), Quantity: 1},
			expectedErr: inErrors.ErrVariantNotFound,
		},
		{
			name:       "invalid product id",
			param:      request.AddProductToCart{ProductID: "not-an-id", VariantID: variant.ID.String(), Quantity: 1},
			validation: true,
		},
		{
			name:       "zero quantity",
			param:      request.AddProductToCart{ProductID: product.ID.String(), VariantID: variant.ID.String(), Quantity: 0},
			validation: true,
		},
		{
			name:       "negative quantity",
			param:      request.AddProductToCart{ProductID: product.ID.String(), VariantID: variant.ID.String(), Quantity: -2},
			validation: true,
		},
		{
			name:       "quantity above the cap",
			param:      request.AddProductToCart{ProductID: product.ID.String(), VariantID: variant.ID.String(), Quantity: request.MAX_QUANTITY + 1},
			validation: true,
		},
		{
			name:       "max int quantity",
			param:      request.AddProductToCart{ProductID: product.ID.String(), VariantID: variant.ID.String(), Quantity: math.MaxInt},
			validation: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := uuid.New()
			_, err := f.svc.AddProductToCart(f.c, userID, tt.param)
			require.Error(t, err)
			if tt.validation {
				assert.True(t, inErrors.IsValidation(err), "expected validation error got %s", err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
			_, err = f.carts.FindCartByUserId(f.c, userID)
			assert.ErrorIs(t, err, inErrors.ErrCartNotFound, "failed add must not create a cart")
		})
	}
}

func TestAddProductToCartRejectsMergeAboveCap(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	variant := newVariant("M", "2")
	product := f.saveProduct(t, "Button", variant)
	userID := uuid.New()

	_, err := f.svc.AddProductToCart(f.c, userID, request.AddProductToCart{
		ProductID: product.ID.String(),
		VariantID: variant.ID.String(),
		Quantity:  request.MAX_QUANTITY,
	})
	require.NoError(t, err)

	_, err = f.svc.AddProductToCart(f.c, userID, request.AddProductToCart{
		ProductID: product.ID.String(),
		VariantID: variant.ID.String(),
		Quantity:  1,
	})
	var validationErrs inErrors.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	assert.Equal(t, "quantity", validationErrs[0].Field)
	assert.Equal(t, "lte", validationErrs[0].Tag)

	cart, err := f.carts.FindCartByUserId(f.c, userID)
	require.NoError(t, err)
	require.Len(t, cart.LineItems, 1)
	assert.Equal(t, request.MAX_QUANTITY, cart.LineItems[0].Quantity)

	subtotal, err := f.svc.CalculateSubtotal(f.c, userID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2*request.MAX_QUANTITY).Equal(subtotal))
}

func TestConcurrentAddsDoNotLoseIncrements(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	variant := newVariant("L", "3")
	product := f.saveProduct(t, "Sock", variant)
	userID := uuid.New()

	wg := sync.WaitGroup{}
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddProductToCart(f.c, userID, request.AddProductToCart{
				ProductID: product.ID.String(),
				VariantID: variant.ID.String(),
				Quantity:  1,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cart, err := f.carts.FindCartByUserId(f.c, userID)
	require.NoError(t, err)
	require.Len(t, cart.LineItems, 1)
	assert.Equal(t, 40, cart.LineItems[0].Quantity)
}

func TestUpdateProductQuantity(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	variant := newVariant("XL", "8", withStock(1))
	product := f.saveProduct(t, "Scarf", variant)
	userID := uuid.New()
	f.seedCart(t, userID, snapshotItem(product, variant, 1, "8"))

	detailed, err := f.svc.UpdateProductQuantity(f.c, userID, request.UpdateQuantity{
		ProductID: product.ID.String(),
		VariantID: variant.ID.String(),
		Quantity:  7,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, detailed.Cart.LineItems[0].Quantity, "stock is not re-validated on update")

	_, err = f.svc.UpdateProductQuantity(f.c, userID, request.UpdateQuantity{
		ProductID: uuid.NewString(),
		VariantID: variant.ID.String(),
		Quantity:  1,
	})
	assert.ErrorIs(t, err, inErrors.ErrLineItemNotFound)

	_, err = f.svc.UpdateProductQuantity(f.c, userID, request.UpdateQuantity{
		ProductID: product.ID.String(),
		VariantID: variant.ID.String(),
		Quantity:  0,
	})
	assert.True(t, inErrors.IsValidation(err))

	_, err = f.svc.UpdateProductQuantity(f.c, userID, request.UpdateQuantity{
		ProductID: product.ID.String(),
		VariantID: variant.ID.String(),
		Quantity:  request.MAX_QUANTITY + 1,
	})
	assert.True(t, inErrors.IsValidation(err))

	_, err = f.svc.UpdateProductQuantity(f.c, uuid.New(), request.UpdateQuantity{
		ProductID: product.ID.String(),
		VariantID: variant.ID.String(),
		Quantity:  1,
	})
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}

func TestRemoveProductFromCart(t *testing.T) {
	variantA := newVariant("A", "10")
	variantB := newVariant("B", "12")

	tests := []struct {
		name              string
		legacyIDSwap      bool
		param             func(p repository.Product) request.RemoveProduct
		expectedRemaining int
	}{
		{
			name:         "direct orientation",
			legacyIDSwap: true,
			param: func(p repository.Product) request.RemoveProduct {
				return request.RemoveProduct{ProductID: p.ID.String(), VariantID: variantA.ID.String()}
			},
			expectedRemaining: 1,
		},
		{
			name:         "inverted orientation with legacy id swap",
			legacyIDSwap: true,
			param: func(p repository.Product) request.RemoveProduct {
				return request.RemoveProduct{ProductID: variantA.ID.String(), VariantID: p.ID.String()}
			},
			expectedRemaining: 1,
		},
		{
			name:         "inverted orientation without legacy id swap is a no-op",
			legacyIDSwap: false,
			param: func(p repository.Product) request.RemoveProduct {
				return request.RemoveProduct{ProductID: variantA.ID.String(), VariantID: p.ID.String()}
			},
			expectedRemaining: 2,
		},
		{
			name:         "absent pair is a no-op",
			legacyIDSwap: true,
			param: func(p repository.Product) request.RemoveProduct {
				return request.RemoveProduct{ProductID: uuid.NewString(), VariantID: uuid.NewString()}
			},
			expectedRemaining: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.LegacyIDSwap = tt.legacyIDSwap
			f := newFixture(t, nil, cfg)
			product := f.saveProduct(t, "Bag", variantA, variantB)
			userID := uuid.New()
			seeded := f.seedCart(t, userID, snapshotItem(product, variantA, 1, "10"), snapshotItem(product, variantB, 1, "12"))

			detailed, err := f.svc.RemoveProductFromCart(f.c, userID, tt.param(product))
			require.NoError(t, err)
			require.NotNil(t, detailed.Cart)
			assert.Len(t, detailed.Cart.LineItems, tt.expectedRemaining)

			cart, err := f.carts.FindCartByUserId(f.c, userID)
			require.NoError(t, err)
			assert.Len(t, cart.LineItems, tt.expectedRemaining)
			if tt.expectedRemaining == 2 {
				assert.Equal(t, seeded.Revision, cart.Revision, "a no-op removal must not write")
			}
		})
	}
}

func TestRemoveProductFromMissingCart(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	detailed, err := f.svc.RemoveProductFromCart(f.c, uuid.New(), request.RemoveProduct{
		ProductID: uuid.NewString(),
		VariantID: uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Nil(t, detailed.Cart)
	assert.Equal(t, inErrors.ErrCartEmpty.Error(), detailed.Message)
}

func TestClearCartKeepsCouponAndStatus(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	variant := newVariant("One", "10")
	product := f.saveProduct(t, "Cup", variant)
	userID := uuid.New()
	f.seedCart(t, userID, snapshotItem(product, variant, 2, "10"))
	_, err := f.svc.ApplyCoupon(f.c, userID, request.ApplyCoupon{
		Code:     "TEN",
		Discount: decimal.NewFromInt(10),
		Type:     string(repository.CouponTypePercentage),
	})
	require.NoError(t, err)

	detailed, err := f.svc.ClearCart(f.c, userID)
	require.NoError(t, err)
	require.NotNil(t, detailed.Cart)
	assert.Empty(t, detailed.Cart.LineItems)
	assert.True(t, decimal.Zero.Equal(detailed.Total))

	cart, err := f.carts.FindCartByUserId(f.c, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.LineItems)
	require.NotNil(t, cart.AppliedCoupon)
	assert.Equal(t, "TEN", cart.AppliedCoupon.Code)
	assert.Equal(t, repository.CartStatusActive, cart.Status)

	read, err := f.svc.GetDetailedCart(f.c, userID)
	require.NoError(t, err)
	assert.Nil(t, read.Cart)
	_, err = f.carts.FindCartByUserId(f.c, userID)
	assert.NoError(t, err, "a cleared cart is reported empty but kept")

	_, err = f.svc.ClearCart(f.c, uuid.New())
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}

func TestApplyCoupon(t *testing.T) {
	tests := []struct {
		name          string
		param         request.ApplyCoupon
		expectedTotal decimal.Decimal
		validation    bool
	}{
		{
			name:          "percentage",
			param:         request.ApplyCoupon{Code: "TEN", Discount: decimal.NewFromInt(10), Type: "PERCENTAGE"},
			expectedTotal: decimal.RequireFromString("31.95"),
		},
		{
			name:          "fixed amount above subtotal",
			param:         request.ApplyCoupon{Code: "FIFTY", Discount: decimal.NewFromInt(50), Type: "FIXED_AMOUNT"},
			expectedTotal: decimal.Zero,
		},
		{
			name:          "none clears coupon",
			param:         request.ApplyCoupon{Type: "NONE"},
			expectedTotal: decimal.RequireFromString("35.50"),
		},
		{
			name:       "percentage above 100",
			param:      request.ApplyCoupon{Code: "BAD", Discount: decimal.NewFromInt(150), Type: "PERCENTAGE"},
			validation: true,
		},
		{
			name:       "negative discount",
			param:      request.ApplyCoupon{Code: "BAD", Discount: decimal.NewFromInt(-1), Type: "FIXED_AMOUNT"},
			validation: true,
		},
		{
			name:       "unknown type",
			param:      request.ApplyCoupon{Code: "BAD", Discount: decimal.NewFromInt(1), Type: "BOGO"},
			validation: true,
		},
		{
			name:       "missing code",
			param:      request.ApplyCoupon{Discount: decimal.NewFromInt(1), Type: "PERCENTAGE"},
			validation: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, defaultConfig())
			first := newVariant("First", "10")
			second := newVariant("Second", "15.50")
			product := f.saveProduct(t, "Combo", first, second)
			userID := uuid.New()
			f.seedCart(t, userID, snapshotItem(product, first, 2, "10.00"), snapshotItem(product, second, 1, "15.50"))

			detailed, err := f.svc.ApplyCoupon(f.c, userID, tt.param)
			if tt.validation {
				require.Error(t, err)
				assert.True(t, inErrors.IsValidation(err), "expected validation error got %s", err)
				return
			}
			require.NoError(t, err)
			assert.Truef(t, decimal.RequireFromString("35.50").Equal(detailed.Subtotal), "subtotal %s", detailed.Subtotal)
			assert.Truef(t, tt.expectedTotal.Equal(detailed.Total), "total %s", detailed.Total)

			total, err := f.svc.CalculateTotal(f.c, userID)
			require.NoError(t, err)
			assert.True(t, tt.expectedTotal.Equal(total))
		})
	}
}

func TestMutationsRejectInactiveCart(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	variant := newVariant("Std", "4")
	product := f.saveProduct(t, "Pencil", variant)
	userID := uuid.New()
	cart := f.seedCart(t, userID, snapshotItem(product, variant, 1, "4"))
	cart.Status = repository.CartStatusProcessing
	_, err := f.carts.SaveCart(f.c, cart)
	require.NoError(t, err)

	_, err = f.svc.AddProductToCart(f.c, userID, request.AddProductToCart{
		ProductID: product.ID.String(),
		VariantID: variant.ID.String(),
		Quantity:  1,
	})
	assert.ErrorIs(t, err, inErrors.ErrCartNotActive)

	_, err = f.svc.ClearCart(f.c, userID)
	assert.ErrorIs(t, err, inErrors.ErrCartNotActive)
}

func TestCalculateSubtotalUsesSnapshotPrices(t *testing.T) {
	f := newFixture(t, nil, defaultConfig())
	variant := newVariant("V", "99")
	product := f.saveProduct(t, "Stale", variant)
	userID := uuid.New()
	f.seedCart(t, userID, snapshotItem(product, variant, 2, "10.00"))

	subtotal, err := f.svc.CalculateSubtotal(f.c, userID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(subtotal))

	_, err = f.svc.CalculateSubtotal(f.c, uuid.New())
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}
