package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"pharmacrm/internal/config"
	"pharmacrm/internal/database"
	"pharmacrm/internal/handlers"
	"pharmacrm/internal/mailer"
	"pharmacrm/internal/middleware"
	"pharmacrm/internal/queue"
	"pharmacrm/internal/realtime"
	"pharmacrm/internal/repository"
	"pharmacrm/internal/service"
	"pharmacrm/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the notification pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), memory)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "keep all data in process memory instead of MongoDB")
	return cmd
}

func serve(parent context.Context, memory bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.AppEnv
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty; staff tokens are signed with an empty key")
	}

	/* ===== storage ===== */

	var (
		repos   repository.Repositories
		watcher realtime.Watcher
		pinger  handlers.Pinger
	)
	if memory {
		store := repository.NewMemoryStore()
		feed := realtime.NewFeed()
		store.SetChangeHook(func(collection, op string, doc interface{}, updatedFields ...string) {
			if _, err := feed.Publish(collection, op, doc, updatedFields...); err != nil {
				log.Warnw("in-memory change not published", "collection", collection, "error", err)
			}
		})
		repos, watcher = store.Repositories(), feed
		log.Info("running on the in-memory store")
	} else {
		storage, err := connectStorage()
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := storage.Close(closeCtx); err != nil {
				log.Errorw("closing MongoDB failed", "error", err)
			}
		}()
		if err := database.EnsureIndexes(ctx, storage.Database(), log); err != nil {
			log.Warnw("index setup incomplete", "error", err)
		}
		repos, watcher, pinger = storage.Repositories(), storage.Watcher(), storage
	}

	/* ===== broker + mail ===== */

	var broker queue.Broker = queue.NoopBroker{}
	switch {
	case cfg.RabbitMQURL != "":
		rmq, err := queue.NewRabbitMQBroker(queue.Config{URL: cfg.RabbitMQURL, PrefetchCount: cfg.RabbitMQPrefetch}, log)
		if err != nil {
			return err
		}
		broker = rmq
	case memory:
		broker = queue.NewMemoryBroker()
	}
	defer func() {
		if err := broker.Close(); err != nil {
			log.Errorw("closing broker failed", "error", err)
		}
	}()

	var mail mailer.Mailer = mailer.NewLogMailer(log)
	if cfg.SMTP.Enabled() {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, log)
	} else {
		log.Info("SMTP not configured; emails are simulated")
	}

	mailWorker := worker.NewNotificationMailWorker(mail, broker, cfg.NotifyEmail, log)
	if err := mailWorker.Start(); err != nil {
		return fmt.Errorf("start notification mail worker: %w", err)
	}
	defer mailWorker.Stop()

	/* ===== services ===== */

	inventory := service.NewInventoryService(repos.Products, log)
	orders := service.NewOrderService(repos.Products, repos.Orders, repos.Tx, log)
	leads := service.NewLeadService(repos.Leads, log)
	notifications := service.NewNotificationService(repos.Notifications, broker, log)

	var subs handlers.SubscriptionLister
	if cfg.RealtimeEnabled {
		hub := realtime.NewHub(watcher, log)
		defer hub.Close()
		if err := notifications.Subscribe(hub); err != nil {
			return err
		}
		subs = hub
	}

	/* ===== http ===== */

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.RequestLogger(log), gin.Recovery())

	handlers.Register(engine, handlers.Deps{
		Inventory:         inventory,
		Orders:            orders,
		Calendar:          service.NewCalendarService(repos.Events, log),
		Leads:             leads,
		Segments:          service.NewSegmentService(repos.Orders, repos.Customers),
		Staff:             service.NewStaffService(repos.Staff, log),
		Notifications:     notifications,
		Webhooks:          service.NewWebhookService(inventory, orders, leads, repos.Customers, log),
		Mailer:            mail,
		DB:                pinger,
		Subscriptions:     subs,
		JWTSecret:         cfg.JWTSecret,
		AccessTokenTTL:    cfg.AccessTokenTTL,
		IntegrationAPIKey: cfg.IntegrationAPIKey,
		WebhookSecret:     cfg.WebhookSecret,
		Logger:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
