package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pharmacrm/internal/mailer"
	"pharmacrm/internal/middleware"
	"pharmacrm/internal/models"
	"pharmacrm/internal/queue"
	"pharmacrm/internal/repository"
	"pharmacrm/internal/service"
)

const (
	testAPIKey  = "integration-key"
	testSecret  = "webhook-secret"
	testJWTKey  = "jwt-secret"
	adminEmail  = "admin@pharmacy.test"
	adminPass   = "correct-horse"
	pharmaEmail = "rx@pharmacy.test"
)

type testServer struct {
	engine    *gin.Engine
	repos     repository.Repositories
	inventory *service.InventoryService
	staff     *service.StaffService
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop().Sugar()
	repos := repository.NewMemoryStore().Repositories()

	inventory := service.NewInventoryService(repos.Products, logger)
	orders := service.NewOrderService(repos.Products, repos.Orders, repos.Tx, logger)
	leads := service.NewLeadService(repos.Leads, logger)
	staff := service.NewStaffService(repos.Staff, logger)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	Register(engine, Deps{
		Inventory:         inventory,
		Orders:            orders,
		Calendar:          service.NewCalendarService(repos.Events, logger),
		Leads:             leads,
		Segments:          service.NewSegmentService(repos.Orders, repos.Customers),
		Staff:             staff,
		Notifications:     service.NewNotificationService(repos.Notifications, queue.NoopBroker{}, logger),
		Webhooks:          service.NewWebhookService(inventory, orders, leads, repos.Customers, logger),
		Mailer:            mailer.NewLogMailer(logger),
		JWTSecret:         testJWTKey,
		AccessTokenTTL:    time.Hour,
		IntegrationAPIKey: testAPIKey,
		WebhookSecret:     testSecret,
		Logger:            logger,
	})

	return &testServer{engine: engine, repos: repos, inventory: inventory, staff: staff}
}

func (s *testServer) doJSON(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) product(t *testing.T, name string, stock int) *models.Product {
	t.Helper()
	p, err := s.inventory.CreateProduct(context.Background(), &models.Product{
		Name:     name,
		Price:    10,
		Stock:    stock,
		Category: models.StringList{"vitamins"},
		IsActive: true,
	})
	require.NoError(t, err)
	return p
}

func (s *testServer) login(t *testing.T, email string, role models.Role) string {
	t.Helper()
	_, err := s.staff.Create(context.Background(), email, "Staff", adminPass, role)
	require.NoError(t, err)

	w := s.doJSON(t, http.MethodPost, "/admin/login", gin.H{"email": email, "password": adminPass}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func apiKey() map[string]string {
	return map[string]string{middleware.HeaderAPIKey: testAPIKey}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (s *testServer) stockOf(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := s.repos.Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

/* ===== integration ===== */

func TestIntegrationRequiresAPIKey(t *testing.T) {
	s := setupServer(t)

	w := s.doJSON(t, http.MethodGet, "/api/integration/products", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.doJSON(t, http.MethodGet, "/api/integration/products", nil, map[string]string{middleware.HeaderAPIKey: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIntegrationListProducts(t *testing.T) {
	s := setupServer(t)
	s.product(t, "Vitamin C", 12)
	s.product(t, "Zinc", 0)

	w := s.doJSON(t, http.MethodGet, "/api/integration/products?inStockOnly=true", nil, apiKey())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data  []models.PublicProduct `json:"data"`
		Count int                    `json:"count"`
	}
	decode(t, w, &resp)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Vitamin C", resp.Data[0].Name)
}

func TestIntegrationStockUpdate(t *testing.T) {
	s := setupServer(t)
	p := s.product(t, "Ibuprofen", 20)

	w := s.doJSON(t, http.MethodPut, "/api/integration/products", gin.H{
		"productId": p.ID.Hex(), "quantity": 5, "operation": "set",
	}, apiKey())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res service.StockResult
	decode(t, w, &res)
	assert.Equal(t, 5, res.Quantity)
	assert.Equal(t, models.StockLowStock, res.StockStatus)

	w = s.doJSON(t, http.MethodPut, "/api/integration/products", gin.H{
		"productId": p.ID.Hex(), "quantity": 6, "operation": "decrement",
	}, apiKey())
	require.Equal(t, http.StatusBadRequest, w.Code)
	var stockErr struct {
		Available int `json:"available"`
		Requested int `json:"requested"`
	}
	decode(t, w, &stockErr)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, s.stockOf(t, p.ID))

	w = s.doJSON(t, http.MethodPut, "/api/integration/products", gin.H{
		"productId": primitive.NewObjectID().Hex(), "quantity": 1, "operation": "increment",
	}, apiKey())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.doJSON(t, http.MethodPut, "/api/integration/products", gin.H{
		"productId": p.ID.Hex(), "quantity": 1, "operation": "multiply",
	}, apiKey())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPut, "/api/integration/products", gin.H{
		"productId": p.ID.Hex(), "quantity": -1,
	}, apiKey())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntegrationCreateOrder(t *testing.T) {
	s := setupServer(t)
	a := s.product(t, "Aspirin", 10)
	b := s.product(t, "Bandage", 2)

	t.Run("missing product leaves stock untouched", func(t *testing.T) {
		w := s.doJSON(t, http.MethodPost, "/api/integration/orders", gin.H{
			"userId": "u1",
			"products": []gin.H{
				{"productId": a.ID.Hex(), "quantity": 1},
				{"productId": primitive.NewObjectID().Hex(), "quantity": 1},
			},
		}, apiKey())
		require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
		assert.Equal(t, 10, s.stockOf(t, a.ID))
	})

	t.Run("insufficient stock is rejected", func(t *testing.T) {
		w := s.doJSON(t, http.MethodPost, "/api/integration/orders", gin.H{
			"userId": "u1",
			"products": []gin.H{
				{"productId": a.ID.Hex(), "quantity": 1},
				{"productId": b.ID.Hex(), "quantity": 3},
			},
		}, apiKey())
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 10, s.stockOf(t, a.ID))
		assert.Equal(t, 2, s.stockOf(t, b.ID))
	})

	t.Run("empty product list is a validation error", func(t *testing.T) {
		w := s.doJSON(t, http.MethodPost, "/api/integration/orders", gin.H{
			"userId": "u1", "products": []gin.H{},
		}, apiKey())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("created", func(t *testing.T) {
		w := s.doJSON(t, http.MethodPost, "/api/integration/orders", gin.H{
			"userId": "u1",
			"products": []gin.H{
				{"productId": a.ID.Hex(), "quantity": 4},
				{"productId": b.ID.Hex(), "quantity": 2},
			},
		}, apiKey())
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var order models.Order
		decode(t, w, &order)
		assert.Equal(t, models.OrderPending, order.Status)
		assert.Equal(t, service.SourceIntegration, order.Source)
		assert.InDelta(t, 60.0, order.TotalAmount, 0.001)
		assert.Equal(t, 6, s.stockOf(t, a.ID))
		assert.Equal(t, 0, s.stockOf(t, b.ID))

		w = s.doJSON(t, http.MethodGet, "/api/integration/orders?userId=u1", nil, apiKey())
		require.Equal(t, http.StatusOK, w.Code)
		var list struct {
			Count int `json:"count"`
		}
		decode(t, w, &list)
		assert.Equal(t, 1, list.Count)
	})

	t.Run("bad status filter", func(t *testing.T) {
		w := s.doJSON(t, http.MethodGet, "/api/integration/orders?status=lost", nil, apiKey())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

/* ===== webhooks ===== */

func TestWebhookRequiresSignature(t *testing.T) {
	s := setupServer(t)
	w := s.doJSON(t, http.MethodPost, "/api/integration/webhooks", gin.H{"event": "lead.created", "data": gin.H{"name": "x"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the API key does not open the webhook route
	w = s.doJSON(t, http.MethodPost, "/api/integration/webhooks", gin.H{"event": "lead.created", "data": gin.H{"name": "x"}}, apiKey())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookDispatch(t *testing.T) {
	s := setupServer(t)
	sig := map[string]string{middleware.HeaderWebhookSignature: testSecret}
	p := s.product(t, "Cough Syrup", 3)

	w := s.doJSON(t, http.MethodPost, "/api/integration/webhooks", gin.H{
		"event": "product.deleted", "data": gin.H{"productId": p.ID.Hex()},
	}, sig)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3, s.stockOf(t, p.ID))

	w = s.doJSON(t, http.MethodPost, "/api/integration/webhooks", gin.H{
		"event": "product.stock.updated",
		"data":  gin.H{"productId": p.ID.Hex(), "quantity": 40, "operation": "set"},
	}, sig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 40, s.stockOf(t, p.ID))

	var resp struct {
		Received bool   `json:"received"`
		Event    string `json:"event"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Received)
	assert.Equal(t, "product.stock.updated", resp.Event)

	w = s.doJSON(t, http.MethodPost, "/api/integration/webhooks", gin.H{
		"event": "lead.created", "data": gin.H{"name": "Walk-in", "email": "walkin@example.com"},
	}, sig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	leads, err := s.repos.Leads.List(context.Background(), repository.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

/* ===== email ===== */

func TestSendEmail(t *testing.T) {
	s := setupServer(t)

	w := s.doJSON(t, http.MethodPost, "/api/send-email", gin.H{"to": "a@b.test", "subject": "s", "html": "<p>x</p>"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.login(t, adminEmail, models.RoleAdmin)

	w = s.doJSON(t, http.MethodPost, "/api/send-email", gin.H{"to": "a@b.test", "subject": "Refill ready", "html": "<p>x</p>"}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Success   bool   `json:"success"`
		MessageID string `json:"messageId"`
		Simulated bool   `json:"simulated"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Success)
	assert.True(t, resp.Simulated)
	assert.NotEmpty(t, resp.MessageID)

	w = s.doJSON(t, http.MethodPost, "/api/send-email", gin.H{"to": []string{"a@b.test", "c@d.test"}, "subject": "s", "html": "x"}, bearer(token))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodPost, "/api/send-email", gin.H{"to": "not-an-address", "subject": "s", "html": "x"}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPost, "/api/send-email", gin.H{"to": "a@b.test", "html": "x"}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

/* ===== dashboard ===== */

func TestStaffLogin(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, adminEmail, models.RoleAdmin)

	w := s.doJSON(t, http.MethodGet, "/admin/api/me", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	}
	decode(t, w, &me)
	assert.Equal(t, adminEmail, me.Email)
	assert.Equal(t, models.RoleAdmin, me.Role)

	w = s.doJSON(t, http.MethodPost, "/admin/login", gin.H{"email": adminEmail, "password": "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.doJSON(t, http.MethodGet, "/admin/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleRestrictions(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, pharmaEmail, models.RolePharmacist)

	w := s.doJSON(t, http.MethodPost, "/admin/api/products", gin.H{"name": "Syrup", "price": 4, "stock": 1}, bearer(token))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.doJSON(t, http.MethodGet, "/admin/api/products", nil, bearer(token))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminProductNearestExpiry(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, adminEmail, models.RoleAdmin)

	w := s.doJSON(t, http.MethodPost, "/admin/api/products", gin.H{
		"name": "Amoxicillin 500mg", "price": 9, "stock": 20,
		"batches": []gin.H{
			{"number": "A-2", "quantity": 10, "expiresAt": "2027-06-30T00:00:00Z"},
			{"number": "A-1", "quantity": 10, "expiresAt": "2027-01-31T00:00:00Z"},
		},
	}, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID            string     `json:"id"`
		NearestExpiry *time.Time `json:"nearestExpiry"`
	}
	decode(t, w, &created)
	require.NotNil(t, created.NearestExpiry)
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), created.NearestExpiry.UTC())

	w = s.doJSON(t, http.MethodGet, "/api/integration/products", nil, apiKey())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"nearestExpiry":"2027-01-31T00:00:00Z"`)
}

func TestAdminProductLifecycle(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, adminEmail, models.RoleAdmin)

	w := s.doJSON(t, http.MethodPost, "/admin/api/products", gin.H{
		"name": "Allergy Relief", "price": 12.5, "stock": 15, "category": []string{"allergy"},
	}, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Product
	decode(t, w, &created)
	assert.Equal(t, models.StockInStock, created.StockStatus)
	assert.True(t, created.IsActive)

	w = s.doJSON(t, http.MethodPatch, "/admin/api/products/"+created.ID.Hex(), gin.H{"stock": 0}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Product
	decode(t, w, &updated)
	assert.Equal(t, models.StockOutOfStock, updated.StockStatus)
	assert.Equal(t, "Allergy Relief", updated.Name)

	w = s.doJSON(t, http.MethodPut, "/admin/api/products/"+created.ID.Hex()+"/stock", gin.H{"quantity": 3, "operation": "increment"}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, s.stockOf(t, created.ID))

	w = s.doJSON(t, http.MethodGet, "/admin/api/products?page=1&limit=10", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data       []models.Product `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Pagination.Total)

	w = s.doJSON(t, http.MethodDelete, "/admin/api/products/"+created.ID.Hex(), nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodGet, "/admin/api/products/"+created.ID.Hex(), nil, bearer(token))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.doJSON(t, http.MethodGet, "/admin/api/products/not-an-id", nil, bearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodGet, "/admin/api/products?page=0", nil, bearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminOrderStatus(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, adminEmail, models.RoleAdmin)
	p := s.product(t, "Antibiotic", 5)

	w := s.doJSON(t, http.MethodPost, "/api/integration/orders", gin.H{
		"userId": "u9", "products": []gin.H{{"productId": p.ID.Hex(), "quantity": 2}},
	}, apiKey())
	require.Equal(t, http.StatusCreated, w.Code)
	var order models.Order
	decode(t, w, &order)
	path := "/admin/api/orders/" + order.ID.Hex() + "/status"

	w = s.doJSON(t, http.MethodPatch, path, gin.H{"status": "delivered"}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPatch, path, gin.H{"status": "shipped"}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &order)
	assert.Equal(t, models.DeliveryInTransit, order.DeliveryStatus)

	w = s.doJSON(t, http.MethodPatch, path, gin.H{"status": "cancelled"}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, s.stockOf(t, p.ID))

	w = s.doJSON(t, http.MethodPatch, "/admin/api/orders/"+primitive.NewObjectID().Hex()+"/status", gin.H{"status": "shipped"}, bearer(token))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCalendarConflicts(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, adminEmail, models.RoleAdmin)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	w := s.doJSON(t, http.MethodPost, "/admin/api/calendar", gin.H{
		"title": "Flu clinic", "start": start, "end": start.Add(time.Hour), "participants": []string{"ana", "ben"},
	}, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.doJSON(t, http.MethodPost, "/admin/api/calendar", gin.H{
		"title": "Stock take", "start": start.Add(30 * time.Minute), "end": start.Add(90 * time.Minute), "participants": []string{"ben"},
	}, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Event     models.CalendarEvent   `json:"event"`
		Conflicts []models.CalendarEvent `json:"conflicts"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "Flu clinic", resp.Conflicts[0].Title)

	// back-to-back does not conflict
	q := "/admin/api/calendar/conflicts?participants=ana&start=" + start.Add(time.Hour).Format(time.RFC3339) +
		"&end=" + start.Add(2*time.Hour).Format(time.RFC3339)
	w = s.doJSON(t, http.MethodGet, q, nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var check struct {
		HasConflicts bool `json:"hasConflicts"`
	}
	decode(t, w, &check)
	assert.False(t, check.HasConflicts)

	w = s.doJSON(t, http.MethodGet, "/admin/api/calendar/conflicts?start=yesterday", nil, bearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	w := s.doJSON(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["database"])
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, meta := paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, int64(3), meta["totalPages"])

	page, _ = paginate(items, 4, 2)
	assert.Empty(t, page)

	_, _, err := parsePaginationParams("1", "x")
	assert.ErrorIs(t, err, errInvalidPagination)

	_, limit, err := parsePaginationParams("", "500")
	require.NoError(t, err)
	assert.Equal(t, int64(maxPageLimit), limit)
}
