package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

type CustomerRepository struct {
	collection *mongo.Collection
}

var _ repository.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{collection: db.Collection(repository.CollectionCustomers)}
}

func (r *CustomerRepository) List(ctx context.Context) ([]models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "userId", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer cursor.Close(ctx)

	customers := make([]models.Customer, 0)
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("failed to decode customers: %w", err)
	}
	return customers, nil
}

// Upsert inserts or refreshes a customer keyed by the storefront user id.
func (r *CustomerRepository) Upsert(ctx context.Context, c *models.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"firstName": c.FirstName,
			"lastName":  c.LastName,
			"email":     c.Email,
			"phone":     c.Phone,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"createdAt": time.Now().UTC(),
		},
	}
	var stored models.Customer
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"userId": c.UserID}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	*c = stored
	return nil
}

type StaffRepository struct {
	collection *mongo.Collection
}

var _ repository.StaffRepository = (*StaffRepository)(nil)

func NewStaffRepository(db *mongo.Database) *StaffRepository {
	return &StaffRepository{collection: db.Collection(repository.CollectionStaff)}
}

func (r *StaffRepository) Create(ctx context.Context, s *models.Staff) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))

	if _, err := r.collection.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create staff: %w", err)
	}
	return nil
}

func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*models.Staff, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var s models.Staff
	err := r.collection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	return &s, nil
}
