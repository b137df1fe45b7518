package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

type ProductRepository struct {
	collection *mongo.Collection
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(repository.CollectionProducts)}
}

var notDeleted = bson.M{"$ne": true}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	p.RefreshStockStatus()

	if _, err := r.collection.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var p models.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "isDeleted": notDeleted}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context, f repository.ProductFilter) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	filter := bson.M{"isDeleted": notDeleted}
	if !f.IncludeInactive {
		filter["isActive"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.InStockOnly {
		filter["stock"] = bson.M{"$gt": 0}
	}
	if f.Search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	p.UpdatedAt = time.Now().UTC()
	p.RefreshStockStatus()

	set := bson.M{
		"name":                 p.Name,
		"description":          p.Description,
		"category":             p.Category,
		"brand":                p.Brand,
		"price":                p.Price,
		"discount":             p.Discount,
		"stock":                p.Stock,
		"stockStatus":          p.StockStatus,
		"requiresPrescription": p.RequiresPrescription,
		"images":               p.Images,
		"batches":              p.Batches,
		"isActive":             p.IsActive,
		"updatedAt":            p.UpdatedAt,
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": p.ID, "isDeleted": notDeleted}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// stockStatusExpr mirrors models.StockStatusFor inside an update pipeline.
func stockStatusExpr() bson.M {
	return bson.M{"$switch": bson.M{
		"branches": bson.A{
			bson.M{"case": bson.M{"$lte": bson.A{"$stock", 0}}, "then": models.StockOutOfStock},
			bson.M{"case": bson.M{"$lt": bson.A{"$stock", models.LowStockThreshold}}, "then": models.StockLowStock},
		},
		"default": models.StockInStock,
	}}
}

func (r *ProductRepository) AdjustStock(ctx context.Context, id primitive.ObjectID, op models.StockOperation, qty int) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "isDeleted": notDeleted}
	if qty > models.MaxStock {
		return nil, repository.ErrStockLimit
	}
	var stock interface{}
	switch op {
	case models.StockSet:
		stock = qty
	case models.StockIncrement:
		filter["stock"] = bson.M{"$lte": models.MaxStock - qty}
		stock = bson.M{"$add": bson.A{"$stock", qty}}
	case models.StockDecrement:
		// the conditional filter makes the check and the decrement one atomic step
		filter["stock"] = bson.M{"$gte": qty}
		stock = bson.M{"$subtract": bson.A{"$stock", qty}}
	default:
		return nil, fmt.Errorf("unsupported stock operation %q", op)
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "stock", Value: stock}}}},
		{{Key: "$set", Value: bson.D{
			{Key: "stockStatus", Value: stockStatusExpr()},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}

	var p models.Product
	err := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	if op == models.StockSet {
		return nil, repository.ErrNotFound
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	if op == models.StockIncrement {
		return nil, repository.ErrStockLimit
	}
	return nil, repository.ErrInsufficientStock
}

func (r *ProductRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	now := time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": notDeleted},
		bson.M{"$set": bson.M{"isDeleted": true, "isActive": false, "deletedAt": now, "updatedAt": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
