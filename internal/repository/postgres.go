package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

const cartColumns = `id, user_id, status, line_items, COALESCE(applied_coupon, 'null'::JSONB), revision, created_at, updated_at`

const productColumns = `id, name, description, active, variants, created_at, updated_at`

// PostgresCartRepository stores each cart as one row with its line items in a
// JSONB document column.
type PostgresCartRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCartRepository(pool *pgxpool.Pool) *PostgresCartRepository {
	return &PostgresCartRepository{pool: pool}
}

func scanCart(row pgx.Row) (Cart, error) {
	var (
		cart      Cart
		status    string
		lineItems []byte
		coupon    []byte
	)
	err := row.Scan(
		&cart.ID,
		&cart.UserID,
		&status,
		&lineItems,
		&coupon,
		&cart.Revision,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		return Cart{}, err
	}
	cart.Status = CartStatus(status)
	if err := json.Unmarshal(lineItems, &cart.LineItems); err != nil {
		return Cart{}, fmt.Errorf("failed unmarshaling line items with error=%w", err)
	}
	if cart.LineItems == nil {
		cart.LineItems = []LineItem{}
	}
	if err := json.Unmarshal(coupon, &cart.AppliedCoupon); err != nil {
		return Cart{}, fmt.Errorf("failed unmarshaling applied coupon with error=%w", err)
	}
	return cart, nil
}

func (r *PostgresCartRepository) FindCartByUserId(c context.Context, userID uuid.UUID) (Cart, error) {
	row := r.pool.QueryRow(c, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID)
	cart, err := scanCart(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, inErrors.ErrCartNotFound
	}
	if err != nil {
		return Cart{}, fmt.Errorf("failed finding cart by userId=%s with error=%w", userID, err)
	}
	return cart, nil
}

func (r *PostgresCartRepository) CreateCart(c context.Context, userID uuid.UUID) (Cart, error) {
	_, err := r.pool.Exec(
		c,
		`INSERT INTO carts (id, user_id, status, line_items, revision)
		VALUES ($1, $2, $3, '[]'::JSONB, 0)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.New(),
		userID,
		string(CartStatusActive),
	)
	if err != nil {
		return Cart{}, fmt.Errorf("failed inserting cart for userId=%s with error=%w", userID, err)
	}
	return r.FindCartByUserId(c, userID)
}

func (r *PostgresCartRepository) SaveCart(c context.Context, cart Cart) (Cart, error) {
	lineItems := cart.LineItems
	if lineItems == nil {
		lineItems = []LineItem{}
	}
	lineItemsJson, err := json.Marshal(lineItems)
	if err != nil {
		return Cart{}, fmt.Errorf("failed marshaling line items with error=%w", err)
	}
	var couponJson []byte
	if cart.AppliedCoupon != nil {
		couponJson, err = json.Marshal(cart.AppliedCoupon)
		if err != nil {
			return Cart{}, fmt.Errorf("failed marshaling applied coupon with error=%w", err)
		}
	}
	status := cart.Status
	if status == "" {
		status = CartStatusActive
	}

	row := r.pool.QueryRow(
		c,
		`UPDATE carts
		SET status = $3, line_items = $4, applied_coupon = $5, revision = revision + 1, updated_at = NOW()
		WHERE id = $1 AND revision = $2
		RETURNING `+cartColumns,
		cart.ID,
		cart.Revision,
		string(status),
		lineItemsJson,
		couponJson,
	)
	saved, err := scanCart(row)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, fmt.Errorf("failed saving cartId=%s with error=%w", cart.ID, err)
	}

	var exists bool
	err = r.pool.QueryRow(c, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cart.ID).Scan(&exists)
	if err != nil {
		return Cart{}, fmt.Errorf("failed checking cartId=%s with error=%w", cart.ID, err)
	}
	if !exists {
		return Cart{}, inErrors.ErrCartNotFound
	}
	return Cart{}, inErrors.ErrRevisionConflict
}

func (r *PostgresCartRepository) DeleteCart(c context.Context, cartID uuid.UUID) error {
	_, err := r.pool.Exec(c, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed deleting cartId=%s with error=%w", cartID, err)
	}
	return nil
}

type PostgresCatalogRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCatalogRepository(pool *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{pool: pool}
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		variants []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Active, &variants, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if err := json.Unmarshal(variants, &p.Variants); err != nil {
		return Product{}, fmt.Errorf("failed unmarshaling variants with error=%w", err)
	}
	return p, nil
}

func (r *PostgresCatalogRepository) FindProductById(c context.Context, id uuid.UUID) (Product, error) {
	row := r.pool.QueryRow(c, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, inErrors.ErrProductNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("failed finding productId=%s with error=%w", id, err)
	}
	return p, nil
}

func (r *PostgresCatalogRepository) FindProducts(c context.Context) ([]Product, error) {
	rows, err := r.pool.Query(c, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed finding products with error=%w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed scanning product with error=%w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating products with error=%w", err)
	}
	return products, nil
}

func (r *PostgresCatalogRepository) SaveProduct(c context.Context, p Product) (Product, error) {
	p, err := prepareProduct(p, time.Now())
	if err != nil {
		return Product{}, err
	}
	variants := p.Variants
	if variants == nil {
		variants = []Variant{}
	}
	variantsJson, err := json.Marshal(variants)
	if err != nil {
		return Product{}, fmt.Errorf("failed marshaling variants with error=%w", err)
	}

	row := r.pool.QueryRow(
		c,
		`INSERT INTO products (id, name, description, active, variants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			active = EXCLUDED.active,
			variants = EXCLUDED.variants,
			updated_at = NOW()
		RETURNING `+productColumns,
		p.ID,
		p.Name,
		p.Description,
		p.Active,
		variantsJson,
	)
	saved, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("failed saving productId=%s with error=%w", p.ID, err)
	}
	return saved, nil
}

func (r *PostgresCatalogRepository) DeleteProduct(c context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(c, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed deleting productId=%s with error=%w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return inErrors.ErrProductNotFound
	}
	return nil
}
