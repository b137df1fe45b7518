package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pharmacrm/internal/models"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned by a conditional decrement that did not apply.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockLimit is returned when a change would push stock above models.MaxStock.
	ErrStockLimit = errors.New("stock limit exceeded")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
)

type ProductFilter struct {
	Category        string
	Search          string
	InStockOnly     bool
	IncludeInactive bool
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, f ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	// AdjustStock applies op atomically and stores the re-derived stock status.
	// A decrement larger than the current stock returns ErrInsufficientStock and
	// leaves the product untouched. A set or increment beyond models.MaxStock
	// returns ErrStockLimit.
	AdjustStock(ctx context.Context, id primitive.ObjectID, op models.StockOperation, qty int) (*models.Product, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

type OrderFilter struct {
	UserID string
	Status models.OrderStatus
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, error)
	Update(ctx context.Context, o *models.Order) error
}

type LeadFilter struct {
	Stage models.LeadStage
}

type LeadRepository interface {
	Create(ctx context.Context, l *models.Lead) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lead, error)
	List(ctx context.Context, f LeadFilter) ([]models.Lead, error)
	Update(ctx context.Context, l *models.Lead) error
}

type EventRepository interface {
	Create(ctx context.Context, ev *models.CalendarEvent) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.CalendarEvent, error)
	Update(ctx context.Context, ev *models.CalendarEvent) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ListRange returns events that may intersect [from, to). Zero bounds are open.
	ListRange(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context) (int64, error)
}

type CustomerRepository interface {
	List(ctx context.Context) ([]models.Customer, error)
	Upsert(ctx context.Context, c *models.Customer) error
}

type StaffRepository interface {
	Create(ctx context.Context, s *models.Staff) error
	GetByEmail(ctx context.Context, email string) (*models.Staff, error)
}

// TxManager runs fn so that all repository calls made with the ctx it receives
// commit or fail together.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories bundles every repository the services need.
type Repositories struct {
	Products      ProductRepository
	Orders        OrderRepository
	Leads         LeadRepository
	Events        EventRepository
	Notifications NotificationRepository
	Customers     CustomerRepository
	Staff         StaffRepository
	Tx            TxManager
}
