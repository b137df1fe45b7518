package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/queue"
	"pharmacrm/internal/repository"
)

type fixture struct {
	store         *repository.MemoryStore
	repos         repository.Repositories
	broker        *queue.MemoryBroker
	inventory     *InventoryService
	orders        *OrderService
	calendar      *CalendarService
	leads         *LeadService
	segments      *SegmentService
	notifications *NotificationService
	webhooks      *WebhookService
	staff         *StaffService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop().Sugar()
	store := repository.NewMemoryStore()
	repos := store.Repositories()
	broker := queue.NewMemoryBroker()

	f := &fixture{store: store, repos: repos, broker: broker}
	f.inventory = NewInventoryService(repos.Products, logger)
	f.orders = NewOrderService(repos.Products, repos.Orders, repos.Tx, logger)
	f.calendar = NewCalendarService(repos.Events, logger)
	f.leads = NewLeadService(repos.Leads, logger)
	f.segments = NewSegmentService(repos.Orders, repos.Customers)
	f.notifications = NewNotificationService(repos.Notifications, broker, logger)
	f.webhooks = NewWebhookService(f.inventory, f.orders, f.leads, repos.Customers, logger)
	f.staff = NewStaffService(repos.Staff, logger)
	return f
}

func (f *fixture) product(t *testing.T, name string, price float64, stock int, rx bool) *models.Product {
	t.Helper()
	p, err := f.inventory.CreateProduct(context.Background(), &models.Product{
		Name:                 name,
		Price:                price,
		Stock:                stock,
		RequiresPrescription: rx,
		IsActive:             true,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stockOf(t *testing.T, p *models.Product) int {
	t.Helper()
	got, err := f.repos.Products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Stock
}
