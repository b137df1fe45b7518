package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/mailer"
	"pharmacrm/internal/middleware"
	"pharmacrm/internal/models"
	"pharmacrm/internal/service"
)

// Deps is everything the HTTP layer needs. DB and Subscriptions may be nil.
type Deps struct {
	Inventory     *service.InventoryService
	Orders        *service.OrderService
	Calendar      *service.CalendarService
	Leads         *service.LeadService
	Segments      *service.SegmentService
	Staff         *service.StaffService
	Notifications *service.NotificationService
	Webhooks      *service.WebhookService
	Mailer        mailer.Mailer

	DB            Pinger
	Subscriptions SubscriptionLister

	JWTSecret         string
	AccessTokenTTL    time.Duration
	IntegrationAPIKey string
	WebhookSecret     string

	Logger *zap.SugaredLogger
}

func Register(r *gin.Engine, d Deps) {
	log := d.Logger

	r.GET("/health", Health(d.DB, d.Subscriptions, log))

	/* ===== INTEGRATION (API key) ===== */

	integration := r.Group("/api/integration")
	{
		keyed := integration.Group("")
		keyed.Use(middleware.APIKey(d.IntegrationAPIKey, log))
		keyed.GET("/products", ListIntegrationProducts(d.Inventory, log))
		keyed.PUT("/products", UpdateIntegrationStock(d.Inventory, log))
		keyed.GET("/orders", ListIntegrationOrders(d.Orders, log))
		keyed.POST("/orders", CreateIntegrationOrder(d.Orders, log))

		integration.POST("/webhooks", middleware.WebhookSignature(d.WebhookSecret, log), ReceiveWebhook(d.Webhooks, log))
	}

	r.POST("/api/send-email", middleware.AuthGuard(d.JWTSecret, log), SendEmail(d.Mailer, log))

	/* ===== DASHBOARD (staff JWT) ===== */

	r.POST("/admin/login", StaffLogin(d.Staff, d.JWTSecret, d.AccessTokenTTL, log))

	admin := r.Group("/admin/api")
	admin.Use(middleware.AuthGuard(d.JWTSecret, log))
	{
		admin.GET("/me", AdminMe())

		admin.GET("/products", AdminListProducts(d.Inventory, log))
		admin.GET("/products/:id", AdminGetProduct(d.Inventory, log))
		admin.PUT("/products/:id/stock", AdminUpdateStock(d.Inventory, log))

		catalog := admin.Group("", middleware.RequireRole(models.RoleAdmin, models.RoleManager))
		catalog.POST("/products", AdminCreateProduct(d.Inventory, log))
		catalog.PATCH("/products/:id", AdminUpdateProduct(d.Inventory, log))
		catalog.DELETE("/products/:id", AdminDeleteProduct(d.Inventory, log))

		admin.GET("/orders", AdminListOrders(d.Orders, log))
		admin.GET("/orders/:id", AdminGetOrder(d.Orders, log))
		admin.PATCH("/orders/:id/status", AdminUpdateOrderStatus(d.Orders, log))
		admin.POST("/orders/:id/verify-prescription",
			middleware.RequireRole(models.RoleAdmin, models.RolePharmacist),
			AdminVerifyPrescription(d.Orders, log))

		admin.GET("/leads", AdminListLeads(d.Leads, log))
		admin.POST("/leads", AdminCreateLead(d.Leads, log))
		admin.GET("/leads/:id", AdminGetLead(d.Leads, log))
		admin.PATCH("/leads/:id/stage", AdminUpdateLeadStage(d.Leads, log))
		admin.POST("/leads/:id/notes", AdminAddLeadNote(d.Leads, log))

		admin.GET("/calendar", AdminListEvents(d.Calendar, log))
		admin.GET("/calendar/conflicts", AdminCheckConflicts(d.Calendar, log))
		admin.POST("/calendar", AdminCreateEvent(d.Calendar, log))
		admin.PUT("/calendar/:id", AdminUpdateEvent(d.Calendar, log))
		admin.DELETE("/calendar/:id", AdminDeleteEvent(d.Calendar, log))

		admin.GET("/segments", AdminSegmentReport(d.Segments, log))
		admin.GET("/segments/:segment", AdminSegmentCustomers(d.Segments, log))

		admin.GET("/notifications", AdminListNotifications(d.Notifications, log))
		admin.POST("/notifications/read-all", AdminMarkAllNotificationsRead(d.Notifications, log))
		admin.POST("/notifications/:id/read", AdminMarkNotificationRead(d.Notifications, log))
	}
}
