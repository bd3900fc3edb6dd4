package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

const (
	collectionCarts    = "carts"
	collectionProducts = "products"
)

type couponDocument struct {
	Code     string `bson:"code"`
	Discount string `bson:"discount"`
	Type     string `bson:"type"`
}

type snapshotDocument struct {
	VariantID      string `bson:"variant_id"`
	Name           string `bson:"name"`
	Price          string `bson:"price"`
	SKU            string `bson:"sku"`
	StockAvailable int    `bson:"stock_available"`
}

type lineItemDocument struct {
	ProductID string           `bson:"product_id"`
	Quantity  int              `bson:"quantity"`
	Variant   snapshotDocument `bson:"variant"`
}

type cartDocument struct {
	ID            string             `bson:"_id"`
	UserID        string             `bson:"user_id"`
	LineItems     []lineItemDocument `bson:"line_items"`
	Status        string             `bson:"status"`
	AppliedCoupon *couponDocument    `bson:"applied_coupon"`
	Revision      int64              `bson:"revision"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

type variantDocument struct {
	ID                string `bson:"id"`
	Name              string `bson:"name"`
	SKU               string `bson:"sku"`
	BasePrice         string `bson:"base_price"`
	DiscountPercent   string `bson:"discount_percent"`
	StockAvailable    int    `bson:"stock_available"`
	LowStockThreshold int    `bson:"low_stock_threshold"`
	Active            bool   `bson:"active"`
	IsDefault         bool   `bson:"is_default"`
}

type productDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Description string            `bson:"description"`
	Active      bool              `bson:"active"`
	Variants    []variantDocument `bson:"variants"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

func toCartDocument(cart Cart) cartDocument {
	doc := cartDocument{
		ID:        cart.ID.String(),
		UserID:    cart.UserID.String(),
		LineItems: make([]lineItemDocument, 0, len(cart.LineItems)),
		Status:    string(cart.Status),
		Revision:  cart.Revision,
		CreatedAt: cart.CreatedAt.UTC(),
		UpdatedAt: cart.UpdatedAt.UTC(),
	}
	for _, item := range cart.LineItems {
		doc.LineItems = append(doc.LineItems, lineItemDocument{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Variant: snapshotDocument{
				VariantID:      item.Variant.VariantID.String(),
				Name:           item.Variant.Name,
				Price:          item.Variant.Price.String(),
				SKU:            item.Variant.SKU,
				StockAvailable: item.Variant.StockAvailable,
			},
		})
	}
	if cart.AppliedCoupon != nil {
		doc.AppliedCoupon = &couponDocument{
			Code:     cart.AppliedCoupon.Code,
			Discount: cart.AppliedCoupon.Discount.String(),
			Type:     string(cart.AppliedCoupon.Type),
		}
	}
	return doc
}

func (d cartDocument) toCart() (Cart, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Cart{}, fmt.Errorf("failed parsing cart id=%s with error=%w", d.ID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return Cart{}, fmt.Errorf("failed parsing user id=%s with error=%w", d.UserID, err)
	}
	cart := Cart{
		ID:        id,
		UserID:    userID,
		LineItems: make([]LineItem, 0, len(d.LineItems)),
		Status:    CartStatus(d.Status),
		Revision:  d.Revision,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, item := range d.LineItems {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return Cart{}, fmt.Errorf("failed parsing product id=%s with error=%w", item.ProductID, err)
		}
		variantID, err := uuid.Parse(item.Variant.VariantID)
		if err != nil {
			return Cart{}, fmt.Errorf("failed parsing variant id=%s with error=%w", item.Variant.VariantID, err)
		}
		price, err := decimal.NewFromString(item.Variant.Price)
		if err != nil {
			return Cart{}, fmt.Errorf("failed parsing price=%s with error=%w", item.Variant.Price, err)
		}
		cart.LineItems = append(cart.LineItems, LineItem{
			ProductID: productID,
			Quantity:  item.Quantity,
			Variant: VariantSnapshot{
				VariantID:      variantID,
				Name:           item.Variant.Name,
				Price:          price,
				SKU:            item.Variant.SKU,
				StockAvailable: item.Variant.StockAvailable,
			},
		})
	}
	if d.AppliedCoupon != nil {
		discount, err := decimal.NewFromString(d.AppliedCoupon.Discount)
		if err != nil {
			return Cart{}, fmt.Errorf("failed parsing coupon discount=%s with error=%w", d.AppliedCoupon.Discount, err)
		}
		cart.AppliedCoupon = &Coupon{
			Code:     d.AppliedCoupon.Code,
			Discount: discount,
			Type:     CouponType(d.AppliedCoupon.Type),
		}
	}
	return cart, nil
}

func toProductDocument(p Product) productDocument {
	doc := productDocument{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		Variants:    make([]variantDocument, 0, len(p.Variants)),
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
	for _, v := range p.Variants {
		doc.Variants = append(doc.Variants, variantDocument{
			ID:                v.ID.String(),
			Name:              v.Name,
			SKU:               v.SKU,
			BasePrice:         v.BasePrice.String(),
			DiscountPercent:   v.DiscountPercent.String(),
			StockAvailable:    v.StockAvailable,
			LowStockThreshold: v.LowStockThreshold,
			Active:            v.Active,
			IsDefault:         v.IsDefault,
		})
	}
	return doc
}

func (d productDocument) toProduct() (Product, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Product{}, fmt.Errorf("failed parsing product id=%s with error=%w", d.ID, err)
	}
	p := Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Active:      d.Active,
		Variants:    make([]Variant, 0, len(d.Variants)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, v := range d.Variants {
		variantID, err := uuid.Parse(v.ID)
		if err != nil {
			return Product{}, fmt.Errorf("failed parsing variant id=%s with error=%w", v.ID, err)
		}
		basePrice, err := decimal.NewFromString(v.BasePrice)
		if err != nil {
			return Product{}, fmt.Errorf("failed parsing base price=%s with error=%w", v.BasePrice, err)
		}
		discount, err := decimal.NewFromString(v.DiscountPercent)
		if err != nil {
			return Product{}, fmt.Errorf("failed parsing discount=%s with error=%w", v.DiscountPercent, err)
		}
		p.Variants = append(p.Variants, Variant{
			ID:                variantID,
			Name:              v.Name,
			SKU:               v.SKU,
			BasePrice:         basePrice,
			DiscountPercent:   discount,
			StockAvailable:    v.StockAvailable,
			LowStockThreshold: v.LowStockThreshold,
			Active:            v.Active,
			IsDefault:         v.IsDefault,
		})
	}
	return p, nil
}

// MongoCartRepository keeps one document per cart in the carts collection.
// EnsureIndexes must run once so user_id stays unique.
type MongoCartRepository struct {
	carts *mongo.Collection
	now   func() time.Time
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{carts: db.Collection(collectionCarts), now: time.Now}
}

func (r *MongoCartRepository) EnsureIndexes(c context.Context) error {
	_, err := r.carts.Indexes().CreateOne(c, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed creating carts user_id index with error=%w", err)
	}
	return nil
}

func (r *MongoCartRepository) FindCartByUserId(c context.Context, userID uuid.UUID) (Cart, error) {
	doc := cartDocument{}
	err := r.carts.FindOne(c, bson.M{"user_id": userID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Cart{}, inErrors.ErrCartNotFound
	}
	if err != nil {
		return Cart{}, fmt.Errorf("failed finding cart by userId=%s with error=%w", userID, err)
	}
	return doc.toCart()
}

func (r *MongoCartRepository) CreateCart(c context.Context, userID uuid.UUID) (Cart, error) {
	now := r.now().UTC().Truncate(time.Millisecond)
	fresh := toCartDocument(Cart{
		ID:        uuid.New(),
		UserID:    userID,
		LineItems: []LineItem{},
		Status:    CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})

	doc := cartDocument{}
	err := r.carts.FindOneAndUpdate(
		c,
		bson.M{"user_id": userID.String()},
		bson.M{"$setOnInsert": fresh},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return Cart{}, fmt.Errorf("failed creating cart for userId=%s with error=%w", userID, err)
	}
	return doc.toCart()
}

func (r *MongoCartRepository) SaveCart(c context.Context, cart Cart) (Cart, error) {
	existing := cartDocument{}
	err := r.carts.FindOne(c, bson.M{"_id": cart.ID.String()}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Cart{}, inErrors.ErrCartNotFound
	}
	if err != nil {
		return Cart{}, fmt.Errorf("failed finding cartId=%s with error=%w", cart.ID, err)
	}

	next := cart.Clone()
	if next.Status == "" {
		next.Status = CartStatusActive
	}
	next.Revision = cart.Revision + 1
	next.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	doc := toCartDocument(next)
	doc.UserID = existing.UserID
	doc.CreatedAt = existing.CreatedAt

	result, err := r.carts.ReplaceOne(c, bson.M{"_id": doc.ID, "revision": cart.Revision}, doc)
	if err != nil {
		return Cart{}, fmt.Errorf("failed saving cartId=%s with error=%w", cart.ID, err)
	}
	if result.MatchedCount == 0 {
		return Cart{}, inErrors.ErrRevisionConflict
	}
	return doc.toCart()
}

func (r *MongoCartRepository) DeleteCart(c context.Context, cartID uuid.UUID) error {
	_, err := r.carts.DeleteOne(c, bson.M{"_id": cartID.String()})
	if err != nil {
		return fmt.Errorf("failed deleting cartId=%s with error=%w", cartID, err)
	}
	return nil
}

type MongoCatalogRepository struct {
	products *mongo.Collection
	now      func() time.Time
}

func NewMongoCatalogRepository(db *mongo.Database) *MongoCatalogRepository {
	return &MongoCatalogRepository{products: db.Collection(collectionProducts), now: time.Now}
}

func (r *MongoCatalogRepository) FindProductById(c context.Context, id uuid.UUID) (Product, error) {
	doc := productDocument{}
	err := r.products.FindOne(c, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Product{}, inErrors.ErrProductNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("failed finding productId=%s with error=%w", id, err)
	}
	return doc.toProduct()
}

func (r *MongoCatalogRepository) FindProducts(c context.Context) ([]Product, error) {
	cursor, err := r.products.Find(
		c,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed finding products with error=%w", err)
	}
	defer cursor.Close(c)

	docs := []productDocument{}
	if err := cursor.All(c, &docs); err != nil {
		return nil, fmt.Errorf("failed decoding products with error=%w", err)
	}
	products := make([]Product, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *MongoCatalogRepository) SaveProduct(c context.Context, p Product) (Product, error) {
	if p.ID != uuid.Nil && p.CreatedAt.IsZero() {
		existing, err := r.FindProductById(c, p.ID)
		switch {
		case err == nil:
			p.CreatedAt = existing.CreatedAt
		case !errors.Is(err, inErrors.ErrProductNotFound):
			return Product{}, err
		}
	}
	saved, err := prepareProduct(p, r.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return Product{}, err
	}
	doc := toProductDocument(saved)

	_, err = r.products.ReplaceOne(c, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return Product{}, fmt.Errorf("failed saving productId=%s with error=%w", saved.ID, err)
	}
	return doc.toProduct()
}

func (r *MongoCatalogRepository) DeleteProduct(c context.Context, id uuid.UUID) error {
	result, err := r.products.DeleteOne(c, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed deleting productId=%s with error=%w", id, err)
	}
	if result.DeletedCount == 0 {
		return inErrors.ErrProductNotFound
	}
	return nil
}
