package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LowStockThreshold is the smallest quantity still reported as in-stock.
const LowStockThreshold = 10

// MaxStock caps the quantity a product may hold.
const MaxStock = 1_000_000_000

type StockStatus string

const (
	StockInStock    StockStatus = "in-stock"
	StockLowStock   StockStatus = "low-stock"
	StockOutOfStock StockStatus = "out-of-stock"
)

// StockStatusFor derives the stock label from a quantity.
func StockStatusFor(quantity int) StockStatus {
	switch {
	case quantity <= 0:
		return StockOutOfStock
	case quantity < LowStockThreshold:
		return StockLowStock
	default:
		return StockInStock
	}
}

type StockOperation string

const (
	StockSet       StockOperation = "set"
	StockIncrement StockOperation = "increment"
	StockDecrement StockOperation = "decrement"
)

func ParseStockOperation(value string) (StockOperation, error) {
	switch op := StockOperation(strings.ToLower(strings.TrimSpace(value))); op {
	case StockSet, StockIncrement, StockDecrement:
		return op, nil
	case "":
		return StockSet, nil
	default:
		return "", fmt.Errorf("invalid stock operation: %q", value)
	}
}

// Batch tracks a received lot of a medicine.
type Batch struct {
	Number    string    `bson:"number" json:"number"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}

type Product struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name"`
	Description          string             `bson:"description,omitempty" json:"description,omitempty"`
	Category             StringList         `bson:"category" json:"category"`
	Brand                string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Price                float64            `bson:"price" json:"price"`
	Discount             float64            `bson:"discount" json:"discount"`
	Stock                int                `bson:"stock" json:"stock"`
	StockStatus          StockStatus        `bson:"stockStatus" json:"stockStatus"`
	RequiresPrescription bool               `bson:"requiresPrescription" json:"requiresPrescription"`
	Images               []string           `bson:"images,omitempty" json:"images,omitempty"`
	Batches              []Batch            `bson:"batches,omitempty" json:"batches,omitempty"`
	IsActive             bool               `bson:"isActive" json:"isActive"`
	IsDeleted            bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt            *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RefreshStockStatus re-derives StockStatus from Stock. Call it after every stock change.
func (p *Product) RefreshStockStatus() {
	p.StockStatus = StockStatusFor(p.Stock)
}

// FinalPrice applies the percentage discount and rounds to cents.
func (p Product) FinalPrice() float64 {
	return DiscountedPrice(p.Price, p.Discount)
}

func DiscountedPrice(price, discountPercent float64) float64 {
	base := decimal.NewFromFloat(price)
	if discountPercent <= 0 || discountPercent > 100 {
		return base.Round(2).InexactFloat64()
	}
	off := base.Mul(decimal.NewFromFloat(discountPercent)).Div(decimal.NewFromInt(100))
	return base.Sub(off).Round(2).InexactFloat64()
}

// NearestExpiry returns the earliest batch expiry, if any batch is tracked.
func (p Product) NearestExpiry() *time.Time {
	var nearest *time.Time
	for i := range p.Batches {
		exp := p.Batches[i].ExpiresAt
		if exp.IsZero() {
			continue
		}
		if nearest == nil || exp.Before(*nearest) {
			nearest = &exp
		}
	}
	return nearest
}

// PublicProduct is the storefront-safe projection of a product.
type PublicProduct struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Category             []string    `json:"category"`
	Price                float64     `json:"price"`
	Discount             float64     `json:"discount"`
	FinalPrice           float64     `json:"finalPrice"`
	Stock                int         `json:"stock"`
	StockStatus          StockStatus `json:"stockStatus"`
	InStock              bool        `json:"inStock"`
	RequiresPrescription bool        `json:"requiresPrescription"`
	Images               []string    `json:"images"`
	NearestExpiry        *time.Time  `json:"nearestExpiry,omitempty"`
}

func (p Product) Public() PublicProduct {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	category := []string(p.Category)
	if category == nil {
		category = []string{}
	}
	return PublicProduct{
		ID:                   p.ID.Hex(),
		Name:                 p.Name,
		Category:             category,
		Price:                p.Price,
		Discount:             p.Discount,
		FinalPrice:           p.FinalPrice(),
		Stock:                p.Stock,
		StockStatus:          StockStatusFor(p.Stock),
		InStock:              p.Stock > 0,
		RequiresPrescription: p.RequiresPrescription,
		Images:               images,
		NearestExpiry:        p.NearestExpiry(),
	}
}
