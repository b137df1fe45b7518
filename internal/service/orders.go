package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

// Order sources recorded on created orders.
const (
	SourceIntegration = "integration"
	SourceWebhook     = "webhook"
	SourceDashboard   = "dashboard"
)

type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	tx       repository.TxManager
	logger   *zap.SugaredLogger
}

func NewOrderService(products repository.ProductRepository, orders repository.OrderRepository, tx repository.TxManager, logger *zap.SugaredLogger) *OrderService {
	return &OrderService{products: products, orders: orders, tx: tx, logger: logger}
}

type OrderLine struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	UserID               string      `json:"userId" binding:"required"`
	Products             []OrderLine `json:"products" binding:"required,min=1,dive"`
	TotalAmount          *float64    `json:"totalAmount"`
	PrescriptionVerified bool        `json:"prescriptionVerified"`
	Source               string      `json:"-"`
}

type lineRequest struct {
	id       primitive.ObjectID
	raw      string
	quantity int
}

// mergeLines folds repeated products into one line, keeping first-seen order,
// so the stock check sees the full quantity asked for each product.
func mergeLines(lines []OrderLine) ([]lineRequest, error) {
	merged := make([]lineRequest, 0, len(lines))
	index := make(map[primitive.ObjectID]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, invalidInput("quantity must be positive for product %s", line.ProductID)
		}
		raw := strings.TrimSpace(line.ProductID)
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, ProductNotFoundError{ProductID: raw}
		}
		if i, ok := index[id]; ok {
			merged[i].quantity += line.Quantity
			continue
		}
		index[id] = len(merged)
		merged = append(merged, lineRequest{id: id, raw: raw, quantity: line.Quantity})
	}
	return merged, nil
}

// CreateOrder checks every line against current stock before touching any of
// it, then decrements all lines and inserts the order in one transaction. The
// decrements are conditional, so a concurrent order that drained the stock in
// between makes this one fail instead of overselling.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, invalidInput("userId is required")
	}
	if len(req.Products) == 0 {
		return nil, invalidInput("products must not be empty")
	}
	if req.TotalAmount != nil && *req.TotalAmount < 0 {
		return nil, invalidInput("totalAmount must not be negative")
	}
	lines, err := mergeLines(req.Products)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		products := make([]*models.Product, len(lines))
		for i, line := range lines {
			p, err := s.products.GetByID(ctx, line.id)
			if errors.Is(err, repository.ErrNotFound) || (err == nil && !p.IsActive) {
				return ProductNotFoundError{ProductID: line.raw}
			}
			if err != nil {
				return err
			}
			if p.Stock < line.quantity {
				return InsufficientStockError{ProductID: line.raw, Name: p.Name, Available: p.Stock, Requested: line.quantity}
			}
			products[i] = p
		}

		items := make([]models.OrderItem, 0, len(lines))
		total := decimal.Zero
		for i, line := range lines {
			p := products[i]
			if _, err := s.products.AdjustStock(ctx, line.id, models.StockDecrement, line.quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					available := 0
					if current, getErr := s.products.GetByID(ctx, line.id); getErr == nil {
						available = current.Stock
					}
					return InsufficientStockError{ProductID: line.raw, Name: p.Name, Available: available, Requested: line.quantity}
				}
				return err
			}
			unit := p.FinalPrice()
			total = total.Add(decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(line.quantity))))
			items = append(items, models.OrderItem{
				ProductID:            line.id,
				Name:                 p.Name,
				Quantity:             line.quantity,
				UnitPrice:            unit,
				RequiresPrescription: p.RequiresPrescription,
			})
		}

		amount := total.Round(2).InexactFloat64()
		if req.TotalAmount != nil {
			amount = *req.TotalAmount
		}
		source := req.Source
		if source == "" {
			source = SourceIntegration
		}

		o := &models.Order{
			UserID:               userID,
			Items:                items,
			TotalAmount:          amount,
			Status:               models.OrderPending,
			DeliveryStatus:       models.DeliveryProcessing,
			PrescriptionVerified: req.PrescriptionVerified,
			Source:               source,
		}
		if err := s.orders.Create(ctx, o); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		var stockErr InsufficientStockError
		var missingErr ProductNotFoundError
		if errors.As(err, &stockErr) || errors.As(err, &missingErr) {
			s.logger.Infow("order rejected", "user_id", userID, "reason", err.Error())
			return nil, err
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Infow("order created",
		"order_id", created.ID.Hex(),
		"user_id", created.UserID,
		"items", len(created.Items),
		"total", created.TotalAmount,
		"source", created.Source,
	)
	return created, nil
}

// UpdateStatus moves an order along its lifecycle. Setting the current status
// again is a no-op. Cancelling returns every line to stock. Once an order is
// delivered or cancelled its delivery status is fixed.
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus, delivery *models.DeliveryStatus) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}

		from := o.Status
		if from == status {
			if delivery == nil || *delivery == o.DeliveryStatus {
				updated = o
				return nil
			}
			if from.Terminal() {
				return fmt.Errorf("%w: %s order keeps delivery status %s", ErrInvalidTransition, from, o.DeliveryStatus)
			}
		} else {
			if !from.CanTransition(status) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
			}
			derived := models.DeliveryStatusAfter(from, status, o.DeliveryStatus)
			if status.Terminal() && delivery != nil && *delivery != derived {
				return fmt.Errorf("%w: %s order must have delivery status %s", ErrInvalidTransition, status, derived)
			}
			if status == models.OrderCancelled {
				if err := s.restock(ctx, o); err != nil {
					return err
				}
			}
			o.Status = status
			o.DeliveryStatus = derived
		}
		if delivery != nil {
			o.DeliveryStatus = *delivery
		}

		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("order status updated",
		"order_id", id.Hex(),
		"status", updated.Status,
		"delivery_status", updated.DeliveryStatus,
	)
	return updated, nil
}

func (s *OrderService) restock(ctx context.Context, o *models.Order) error {
	for _, item := range o.Items {
		_, err := s.products.AdjustStock(ctx, item.ProductID, models.StockIncrement, item.Quantity)
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warnw("restock skipped for missing product", "order_id", o.ID.Hex(), "product_id", item.ProductID.Hex())
			continue
		}
		if err != nil {
			return fmt.Errorf("restock %s: %w", item.ProductID.Hex(), err)
		}
	}
	return nil
}

// VerifyPrescription marks an order's prescription as checked by a pharmacist.
func (s *OrderService) VerifyPrescription(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.HasPrescriptionItems() {
		return nil, invalidInput("order has no prescription items")
	}
	if o.PrescriptionVerified {
		return o, nil
	}
	o.PrescriptionVerified = true
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("verify prescription: %w", err)
	}
	return o, nil
}

func (s *OrderService) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) List(ctx context.Context, f repository.OrderFilter) ([]models.Order, error) {
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
