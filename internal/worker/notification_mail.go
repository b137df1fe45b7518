package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"pharmacrm/internal/mailer"
	"pharmacrm/internal/models"
	"pharmacrm/internal/queue"
)

// NotificationMailWorker emails the pharmacy inbox for notifications a
// pharmacist must act on: orders with prescription items and products that
// ran out.
type NotificationMailWorker struct {
	mailer    mailer.Mailer
	broker    queue.Broker
	recipient string
	logger    *zap.SugaredLogger
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewNotificationMailWorker(m mailer.Mailer, broker queue.Broker, recipient string, logger *zap.SugaredLogger) *NotificationMailWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &NotificationMailWorker{
		mailer:    m,
		broker:    broker,
		recipient: strings.TrimSpace(recipient),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (w *NotificationMailWorker) Start() error {
	if w.recipient == "" {
		w.logger.Info("notification mail worker disabled: no recipient configured")
		return nil
	}
	w.logger.Infow("starting notification mail worker", "recipient", w.recipient)

	return w.broker.Subscribe(w.ctx, queue.QueueNotifications, w.handleMessage)
}

func (w *NotificationMailWorker) Stop() {
	w.logger.Info("stopping notification mail worker")
	w.cancel()
}

func (w *NotificationMailWorker) handleMessage(ctx context.Context, message []byte) error {
	var n models.Notification
	if err := json.Unmarshal(message, &n); err != nil {
		w.logger.Errorw("failed to unmarshal notification", "error", err)
		return fmt.Errorf("failed to unmarshal notification: %w", err)
	}

	if !needsMail(n) {
		return nil
	}

	res, err := w.mailer.Send(ctx, mailer.Message{
		To:      []string{w.recipient},
		Subject: "[Pharmacy CRM] " + n.Title,
		HTML:    renderNotification(n),
	})
	if err != nil {
		w.logger.Errorw("failed to mail notification", "notification_id", n.ID.Hex(), "type", n.Type, "error", err)
		return err
	}

	w.logger.Infow("notification mailed",
		"notification_id", n.ID.Hex(),
		"type", n.Type,
		"message_id", res.MessageID,
		"simulated", res.Simulated,
	)
	return nil
}

func needsMail(n models.Notification) bool {
	switch n.Type {
	case models.NotifyStockOut:
		return true
	case models.NotifyOrderCreated:
		rx, _ := n.Metadata["prescription"].(bool)
		return rx
	default:
		return false
	}
}

func renderNotification(n models.Notification) string {
	var b strings.Builder
	b.WriteString("<h2>" + html.EscapeString(n.Title) + "</h2>")
	if n.Link != "" {
		b.WriteString(`<p><a href="` + html.EscapeString(n.Link) + `">Open in dashboard</a></p>`)
	}
	b.WriteString("<p>Raised at " + n.CreatedAt.UTC().Format("2006-01-02 15:04 MST") + "</p>")
	return b.String()
}
