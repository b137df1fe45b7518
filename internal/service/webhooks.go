package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

// Webhook events accepted from the storefront.
const (
	EventOrderCreated        = "order.created"
	EventOrderUpdated        = "order.updated"
	EventProductStockUpdated = "product.stock.updated"
	EventLeadCreated         = "lead.created"
)

type WebhookService struct {
	inventory *InventoryService
	orders    *OrderService
	leads     *LeadService
	customers repository.CustomerRepository
	validate  *validator.Validate
	logger    *zap.SugaredLogger
}

func NewWebhookService(inventory *InventoryService, orders *OrderService, leads *LeadService, customers repository.CustomerRepository, logger *zap.SugaredLogger) *WebhookService {
	v := validator.New()
	// payload structs share their tags with gin binding
	v.SetTagName("binding")
	return &WebhookService{
		inventory: inventory,
		orders:    orders,
		leads:     leads,
		customers: customers,
		validate:  v,
		logger:    logger,
	}
}

type WebhookCustomer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone"`
}

type OrderCreatedPayload struct {
	CreateOrderRequest
	Customer *WebhookCustomer `json:"customer"`
}

type OrderUpdatedPayload struct {
	OrderID        string `json:"orderId" binding:"required"`
	Status         string `json:"status" binding:"required"`
	DeliveryStatus string `json:"deliveryStatus"`
}

type StockUpdatedPayload struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required,gte=0,lte=1000000000"`
	Operation string `json:"operation"`
}

// Dispatch applies one storefront event. The event name is checked before the
// payload is touched, so an unknown event has no side effects.
func (s *WebhookService) Dispatch(ctx context.Context, event string, data json.RawMessage) (interface{}, error) {
	event = strings.TrimSpace(event)
	switch event {
	case EventOrderCreated, EventOrderUpdated, EventProductStockUpdated, EventLeadCreated:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	s.logger.Infow("webhook received", "event", event)
	switch event {
	case EventOrderCreated:
		return s.orderCreated(ctx, data)
	case EventOrderUpdated:
		return s.orderUpdated(ctx, data)
	case EventProductStockUpdated:
		return s.stockUpdated(ctx, data)
	default:
		return s.leadCreated(ctx, data)
	}
}

func (s *WebhookService) decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return invalidInput("data is required")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return invalidInput("malformed data: %v", err)
	}
	if err := s.validate.Struct(v); err != nil {
		return invalidInput("%v", err)
	}
	return nil
}

func (s *WebhookService) orderCreated(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var payload OrderCreatedPayload
	if err := s.decode(data, &payload); err != nil {
		return nil, err
	}
	payload.Source = SourceWebhook
	order, err := s.orders.CreateOrder(ctx, payload.CreateOrderRequest)
	if err != nil {
		return nil, err
	}

	if c := payload.Customer; c != nil {
		customer := &models.Customer{
			UserID:    order.UserID,
			FirstName: strings.TrimSpace(c.FirstName),
			LastName:  strings.TrimSpace(c.LastName),
			Email:     strings.ToLower(strings.TrimSpace(c.Email)),
			Phone:     strings.TrimSpace(c.Phone),
		}
		if err := s.customers.Upsert(ctx, customer); err != nil {
			// the order is already stored; an upsert failure is only logged
			s.logger.Errorw("failed to upsert webhook customer", "user_id", order.UserID, "error", err)
		}
	}
	return order, nil
}

func (s *WebhookService) orderUpdated(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var payload OrderUpdatedPayload
	if err := s.decode(data, &payload); err != nil {
		return nil, err
	}
	id, err := ParseID(payload.OrderID)
	if err != nil {
		return nil, err
	}
	status, err := models.ParseOrderStatus(payload.Status)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	var delivery *models.DeliveryStatus
	if payload.DeliveryStatus != "" {
		d, err := models.ParseDeliveryStatus(payload.DeliveryStatus)
		if err != nil {
			return nil, invalidInput("%v", err)
		}
		delivery = &d
	}
	return s.orders.UpdateStatus(ctx, id, status, delivery)
}

func (s *WebhookService) stockUpdated(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var payload StockUpdatedPayload
	if err := s.decode(data, &payload); err != nil {
		return nil, err
	}
	op, err := models.ParseStockOperation(payload.Operation)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	return s.inventory.AdjustStock(ctx, payload.ProductID, *payload.Quantity, op)
}

func (s *WebhookService) leadCreated(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var payload CreateLeadRequest
	if err := s.decode(data, &payload); err != nil {
		return nil, err
	}
	if payload.Source == "" {
		payload.Source = SourceWebhook
	}
	return s.leads.Create(ctx, payload, "")
}
