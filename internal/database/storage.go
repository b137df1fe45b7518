package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"pharmacrm/internal/repository"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

type Config struct {
	URI          string
	Database     string
	Timeout      time.Duration
	Transactions bool
}

// Storage owns the Mongo client and hands out the repositories built on it.
type Storage struct {
	client   *mongo.Client
	database *mongo.Database
	config   Config
}

func Connect(cfg Config) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Storage{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Storage) Database() *mongo.Database {
	return s.database
}

// Repositories wires every Mongo repository over this storage.
func (s *Storage) Repositories() repository.Repositories {
	return repository.Repositories{
		Products:      NewProductRepository(s.database),
		Orders:        NewOrderRepository(s.database),
		Leads:         NewLeadRepository(s.database),
		Events:        NewEventRepository(s.database),
		Notifications: NewNotificationRepository(s.database),
		Customers:     NewCustomerRepository(s.database),
		Staff:         NewStaffRepository(s.database),
		Tx:            NewTxManager(s.client, s.config.Transactions),
	}
}

// Watcher opens change streams on this storage's database.
func (s *Storage) Watcher() *ChangeStreamWatcher {
	return NewChangeStreamWatcher(s.database)
}
