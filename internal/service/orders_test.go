package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

func TestCreateOrderDecrementsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.product(t, "Paracetamol", 4.5, 12, false)
	b := f.product(t, "Amoxicillin", 10, 3, true)

	o, err := f.orders.CreateOrder(ctx, CreateOrderRequest{
		UserID: "u-1",
		Products: []OrderLine{
			{ProductID: a.ID.Hex(), Quantity: 2},
			{ProductID: b.ID.Hex(), Quantity: 1},
			{ProductID: a.ID.Hex(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, o.Status)
	assert.Equal(t, models.DeliveryProcessing, o.DeliveryStatus)
	assert.Equal(t, SourceIntegration, o.Source)
	require.Len(t, o.Items, 2, "repeated products are merged")
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, 23.5, o.TotalAmount)
	assert.True(t, o.HasPrescriptionItems())

	assert.Equal(t, 9, f.stockOf(t, a))
	assert.Equal(t, 2, f.stockOf(t, b))

	stored, err := f.repos.Products.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StockLowStock, stored.StockStatus)
}

func TestCreateOrderKeepsProvidedTotal(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "Vitamin D", 8, 5, false)
	total := 7.0

	o, err := f.orders.CreateOrder(context.Background(), CreateOrderRequest{
		UserID:      "u-1",
		Products:    []OrderLine{{ProductID: a.ID.Hex(), Quantity: 1}},
		TotalAmount: &total,
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, o.TotalAmount)
}

func TestCreateOrderInsufficientStockHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.product(t, "Ibuprofen", 3, 10, false)
	b := f.product(t, "Insulin", 40, 1, true)

	_, err := f.orders.CreateOrder(ctx, CreateOrderRequest{
		UserID: "u-2",
		Products: []OrderLine{
			{ProductID: a.ID.Hex(), Quantity: 5},
			{ProductID: b.ID.Hex(), Quantity: 2},
		},
	})
	var stockErr InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "got %v", err)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	assert.Equal(t, 10, f.stockOf(t, a), "earlier lines must not be decremented")
	assert.Equal(t, 1, f.stockOf(t, b))

	orders, err := f.orders.List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

// drainingProducts lowers a product's stock right before the order's
// conditional decrement runs, as a concurrent writer would.
type drainingProducts struct {
	repository.ProductRepository
	leave int
}

func (d drainingProducts) AdjustStock(ctx context.Context, id primitive.ObjectID, op models.StockOperation, qty int) (*models.Product, error) {
	if op == models.StockDecrement {
		if _, err := d.ProductRepository.AdjustStock(ctx, id, models.StockSet, d.leave); err != nil {
			return nil, err
		}
	}
	return d.ProductRepository.AdjustStock(ctx, id, op, qty)
}

func TestCreateOrderReportsCurrentStockWhenDecrementLoses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Loratadine", 5, 8, false)
	orders := NewOrderService(drainingProducts{ProductRepository: f.repos.Products, leave: 1}, f.repos.Orders, f.repos.Tx, zap.NewNop().Sugar())

	_, err := orders.CreateOrder(ctx, CreateOrderRequest{UserID: "u", Products: []OrderLine{{ProductID: p.ID.Hex(), Quantity: 3}}})
	var stockErr InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "got %v", err)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
}

func TestCreateOrderMissingProduct(t *testing.T) {
	f := newFixture(t)
	missing := primitive.NewObjectID().Hex()

	for _, id := range []string{missing, "not-an-id"} {
		_, err := f.orders.CreateOrder(context.Background(), CreateOrderRequest{
			UserID:   "u-3",
			Products: []OrderLine{{ProductID: id, Quantity: 1}},
		})
		var notFound ProductNotFoundError
		require.True(t, errors.As(err, &notFound), "got %v", err)
		assert.Equal(t, id, notFound.ProductID)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "Zinc", 2, 5, false)

	_, err := f.orders.CreateOrder(context.Background(), CreateOrderRequest{Products: []OrderLine{{ProductID: a.ID.Hex(), Quantity: 1}}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.orders.CreateOrder(context.Background(), CreateOrderRequest{UserID: "u"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.orders.CreateOrder(context.Background(), CreateOrderRequest{UserID: "u", Products: []OrderLine{{ProductID: a.ID.Hex(), Quantity: 0}}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConcurrentOrdersForLastUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Epinephrine auto-injector", 90, 1, true)

	const buyers = 2
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	start := make(chan struct{})
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.orders.CreateOrder(ctx, CreateOrderRequest{
				UserID:   "buyer",
				Products: []OrderLine{{ProductID: p.ID.Hex(), Quantity: 1}},
			})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr InsufficientStockError
		assert.True(t, errors.As(err, &stockErr), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, f.stockOf(t, p))

	orders, err := f.orders.List(ctx, repository.OrderFilter{UserID: "buyer"})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestUpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Cough syrup", 6, 10, false)
	o, err := f.orders.CreateOrder(ctx, CreateOrderRequest{UserID: "u", Products: []OrderLine{{ProductID: p.ID.Hex(), Quantity: 4}}})
	require.NoError(t, err)

	t.Run("same status is a no-op", func(t *testing.T) {
		got, err := f.orders.UpdateStatus(ctx, o.ID, models.OrderPending, nil)
		require.NoError(t, err)
		assert.Equal(t, models.OrderPending, got.Status)
	})

	t.Run("cannot skip shipping", func(t *testing.T) {
		_, err := f.orders.UpdateStatus(ctx, o.ID, models.OrderDelivered, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("ship then cancel restocks", func(t *testing.T) {
		got, err := f.orders.UpdateStatus(ctx, o.ID, models.OrderShipped, nil)
		require.NoError(t, err)
		assert.Equal(t, models.DeliveryInTransit, got.DeliveryStatus)
		assert.Equal(t, 6, f.stockOf(t, p))

		got, err = f.orders.UpdateStatus(ctx, o.ID, models.OrderCancelled, nil)
		require.NoError(t, err)
		assert.Equal(t, models.OrderCancelled, got.Status)
		assert.Equal(t, models.DeliveryReturned, got.DeliveryStatus)
		assert.Equal(t, 10, f.stockOf(t, p))
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		_, err := f.orders.UpdateStatus(ctx, o.ID, models.OrderShipped, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cancelled keeps its delivery status", func(t *testing.T) {
		delivered := models.DeliveryDelivered
		_, err := f.orders.UpdateStatus(ctx, o.ID, models.OrderCancelled, &delivered)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		stored, err := f.orders.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderCancelled, stored.Status)
		assert.Equal(t, models.DeliveryReturned, stored.DeliveryStatus)

		returned := models.DeliveryReturned
		got, err := f.orders.UpdateStatus(ctx, o.ID, models.OrderCancelled, &returned)
		require.NoError(t, err, "restating the stored delivery status is a no-op")
		assert.Equal(t, models.DeliveryReturned, got.DeliveryStatus)
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := f.orders.UpdateStatus(ctx, primitive.NewObjectID(), models.OrderShipped, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTerminalStatusRejectsConflictingDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Ibuprofen", 3, 5, false)
	o, err := f.orders.CreateOrder(ctx, CreateOrderRequest{UserID: "u", Products: []OrderLine{{ProductID: p.ID.Hex(), Quantity: 2}}})
	require.NoError(t, err)

	delivered := models.DeliveryDelivered
	_, err = f.orders.UpdateStatus(ctx, o.ID, models.OrderCancelled, &delivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 3, f.stockOf(t, p), "a rejected cancel does not restock")

	inTransit := models.DeliveryInTransit
	got, err := f.orders.UpdateStatus(ctx, o.ID, models.OrderPending, &inTransit)
	require.NoError(t, err, "open orders accept an explicit delivery status")
	assert.Equal(t, models.DeliveryInTransit, got.DeliveryStatus)
}

func TestVerifyPrescription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rx := f.product(t, "Metformin", 5, 20, true)
	otc := f.product(t, "Plasters", 1, 20, false)

	withRx, err := f.orders.CreateOrder(ctx, CreateOrderRequest{UserID: "u", Products: []OrderLine{{ProductID: rx.ID.Hex(), Quantity: 1}}})
	require.NoError(t, err)
	plain, err := f.orders.CreateOrder(ctx, CreateOrderRequest{UserID: "u", Products: []OrderLine{{ProductID: otc.ID.Hex(), Quantity: 1}}})
	require.NoError(t, err)

	got, err := f.orders.VerifyPrescription(ctx, withRx.ID)
	require.NoError(t, err)
	assert.True(t, got.PrescriptionVerified)

	_, err = f.orders.VerifyPrescription(ctx, plain.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
