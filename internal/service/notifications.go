package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/queue"
	"pharmacrm/internal/realtime"
	"pharmacrm/internal/repository"
)

const defaultNotificationLimit = 50

type NotificationService struct {
	notifications repository.NotificationRepository
	broker        queue.Broker
	logger        *zap.SugaredLogger
}

func NewNotificationService(notifications repository.NotificationRepository, broker queue.Broker, logger *zap.SugaredLogger) *NotificationService {
	return &NotificationService{notifications: notifications, broker: broker, logger: logger}
}

// Notify stores n and publishes it on the notifications queue. A failed
// publish is logged and does not undo the stored notification.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Errorw("failed to encode notification", "notification_id", n.ID.Hex(), "error", err)
		return nil
	}
	if err := s.broker.Publish(ctx, queue.QueueNotifications, payload); err != nil {
		s.logger.Errorw("failed to publish notification", "notification_id", n.ID.Hex(), "type", n.Type, "error", err)
		return nil
	}
	s.logger.Infow("notification raised", "notification_id", n.ID.Hex(), "type", n.Type)
	return nil
}

func (s *NotificationService) List(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return s.notifications.List(ctx, unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	return s.notifications.MarkRead(ctx, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	return s.notifications.MarkAllRead(ctx)
}

/* =========================
   CHANGE HANDLERS
========================= */

// Subscribe registers the order, lead and product handlers on hub.
func (s *NotificationService) Subscribe(hub *realtime.Hub) error {
	handlers := []struct {
		name       string
		collection string
		handler    realtime.Handler
	}{
		{"notifications.orders", repository.CollectionOrders, s.HandleOrderChanges},
		{"notifications.leads", repository.CollectionLeads, s.HandleLeadChanges},
		{"notifications.products", repository.CollectionProducts, s.HandleProductChanges},
	}
	for _, h := range handlers {
		if _, err := hub.Subscribe(h.name, h.collection, h.handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleOrderChanges raises order.created for every inserted order.
func (s *NotificationService) HandleOrderChanges(ctx context.Context, batch []realtime.Change) error {
	var errs []error
	for _, change := range batch {
		if change.OperationType != realtime.OpInsert {
			continue
		}
		var o models.Order
		if err := change.DecodeDocument(&o); err != nil {
			errs = append(errs, fmt.Errorf("decode order %s: %w", change.DocumentKey.ID.Hex(), err))
			continue
		}
		n := &models.Notification{
			Type:  models.NotifyOrderCreated,
			Title: fmt.Sprintf("New order with %d item(s), total %.2f", len(o.Items), o.TotalAmount),
			Link:  "/admin/orders/" + o.ID.Hex(),
			Metadata: map[string]interface{}{
				"orderId":      o.ID.Hex(),
				"userId":       o.UserID,
				"totalAmount":  o.TotalAmount,
				"prescription": o.HasPrescriptionItems(),
			},
		}
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandleLeadChanges raises lead.created for every inserted lead.
func (s *NotificationService) HandleLeadChanges(ctx context.Context, batch []realtime.Change) error {
	var errs []error
	for _, change := range batch {
		if change.OperationType != realtime.OpInsert {
			continue
		}
		var l models.Lead
		if err := change.DecodeDocument(&l); err != nil {
			errs = append(errs, fmt.Errorf("decode lead %s: %w", change.DocumentKey.ID.Hex(), err))
			continue
		}
		n := &models.Notification{
			Type:  models.NotifyLeadCreated,
			Title: "New lead: " + l.Name,
			Link:  "/admin/leads/" + l.ID.Hex(),
			Metadata: map[string]interface{}{
				"leadId":   l.ID.Hex(),
				"source":   l.Source,
				"priority": string(l.Priority),
			},
		}
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandleProductChanges raises stock.low or stock.out when a product is
// inserted in that state or an update moves its stock status into it. Updates
// that leave the status alone raise nothing.
func (s *NotificationService) HandleProductChanges(ctx context.Context, batch []realtime.Change) error {
	var errs []error
	for _, change := range batch {
		switch change.OperationType {
		case realtime.OpInsert, realtime.OpReplace:
		case realtime.OpUpdate:
			if !change.Updated("stockStatus") {
				continue
			}
		default:
			continue
		}

		var p models.Product
		if err := change.DecodeDocument(&p); err != nil {
			errs = append(errs, fmt.Errorf("decode product %s: %w", change.DocumentKey.ID.Hex(), err))
			continue
		}
		if p.IsDeleted {
			continue
		}

		var kind, title string
		switch models.StockStatusFor(p.Stock) {
		case models.StockOutOfStock:
			kind, title = models.NotifyStockOut, p.Name+" is out of stock"
		case models.StockLowStock:
			kind, title = models.NotifyStockLow, fmt.Sprintf("%s is low on stock (%d left)", p.Name, p.Stock)
		default:
			continue
		}
		n := &models.Notification{
			Type:  kind,
			Title: title,
			Link:  "/admin/products/" + p.ID.Hex(),
			Metadata: map[string]interface{}{
				"productId": p.ID.Hex(),
				"name":      p.Name,
				"stock":     p.Stock,
			},
		}
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
