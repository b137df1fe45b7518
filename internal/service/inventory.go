package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

type InventoryService struct {
	products repository.ProductRepository
	logger   *zap.SugaredLogger
}

func NewInventoryService(products repository.ProductRepository, logger *zap.SugaredLogger) *InventoryService {
	return &InventoryService{products: products, logger: logger}
}

type StockResult struct {
	ProductID   string             `json:"productId"`
	Quantity    int                `json:"quantity"`
	StockStatus models.StockStatus `json:"stockStatus"`
}

// AdjustStock applies a stock change and returns the stored quantity with the
// status derived from it.
func (s *InventoryService) AdjustStock(ctx context.Context, productID string, qty int, op models.StockOperation) (*StockResult, error) {
	if qty < 0 {
		return nil, invalidInput("quantity must not be negative")
	}
	if qty > models.MaxStock {
		return nil, invalidInput("quantity must not exceed %d", models.MaxStock)
	}
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, ProductNotFoundError{ProductID: productID}
	}

	p, err := s.products.AdjustStock(ctx, id, op, qty)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ProductNotFoundError{ProductID: productID}
	case errors.Is(err, repository.ErrStockLimit):
		return nil, invalidInput("stock for product %s would exceed %d", productID, models.MaxStock)
	case errors.Is(err, repository.ErrInsufficientStock):
		available := 0
		if current, getErr := s.products.GetByID(ctx, id); getErr == nil {
			available = current.Stock
		}
		return nil, InsufficientStockError{ProductID: productID, Available: available, Requested: qty}
	case err != nil:
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	s.logger.Infow("stock adjusted",
		"product_id", productID,
		"operation", op,
		"quantity", qty,
		"stock", p.Stock,
		"stock_status", p.StockStatus,
	)
	return &StockResult{ProductID: productID, Quantity: p.Stock, StockStatus: p.StockStatus}, nil
}

// ProductPatch carries the fields an update may change. Nil fields are kept.
type ProductPatch struct {
	Name                 *string        `json:"name"`
	Description          *string        `json:"description"`
	Category             []string       `json:"category"`
	Brand                *string        `json:"brand"`
	Price                *float64       `json:"price"`
	Discount             *float64       `json:"discount"`
	Stock                *int           `json:"stock"`
	RequiresPrescription *bool          `json:"requiresPrescription"`
	Images               []string       `json:"images"`
	Batches              []models.Batch `json:"batches"`
	IsActive             *bool          `json:"isActive"`
}

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return invalidInput("name is required")
	case p.Price < 0:
		return invalidInput("price must not be negative")
	case p.Discount < 0 || p.Discount > 100:
		return invalidInput("discount must be between 0 and 100")
	case p.Stock < 0:
		return invalidInput("stock must not be negative")
	case p.Stock > models.MaxStock:
		return invalidInput("stock must not exceed %d", models.MaxStock)
	}
	for _, b := range p.Batches {
		if b.Quantity < 0 {
			return invalidInput("batch %s has a negative quantity", b.Number)
		}
	}
	return nil
}

func (s *InventoryService) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	p.ID = primitive.NilObjectID
	p.Category = models.NewStringList(p.Category)
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Infow("product created", "product_id", p.ID.Hex(), "name", p.Name, "stock", p.Stock)
	return p, nil
}

func (s *InventoryService) UpdateProduct(ctx context.Context, id primitive.ObjectID, patch ProductPatch) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Category != nil {
		p.Category = models.NewStringList(patch.Category)
	}
	if patch.Brand != nil {
		p.Brand = *patch.Brand
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Discount != nil {
		p.Discount = *patch.Discount
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.RequiresPrescription != nil {
		p.RequiresPrescription = *patch.RequiresPrescription
	}
	if patch.Images != nil {
		p.Images = patch.Images
	}
	if patch.Batches != nil {
		p.Batches = patch.Batches
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}

	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *InventoryService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	if err := s.products.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("product deleted", "product_id", id.Hex())
	return nil
}

func (s *InventoryService) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *InventoryService) List(ctx context.Context, f repository.ProductFilter) ([]models.Product, error) {
	products, err := s.products.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListPublic returns the storefront projection of active products.
func (s *InventoryService) ListPublic(ctx context.Context, category string, inStockOnly bool) ([]models.PublicProduct, error) {
	products, err := s.List(ctx, repository.ProductFilter{
		Category:    strings.TrimSpace(category),
		InStockOnly: inStockOnly,
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicProduct, 0, len(products))
	for _, p := range products {
		out = append(out, p.Public())
	}
	return out, nil
}
