package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

type LeadRepository struct {
	collection *mongo.Collection
}

var _ repository.LeadRepository = (*LeadRepository)(nil)

func NewLeadRepository(db *mongo.Database) *LeadRepository {
	return &LeadRepository{collection: db.Collection(repository.CollectionLeads)}
}

func (r *LeadRepository) Create(ctx context.Context, l *models.Lead) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	l.UpdatedAt = l.CreatedAt
	if l.Notes == nil {
		l.Notes = []models.LeadNote{}
	}

	if _, err := r.collection.InsertOne(ctx, l); err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var l models.Lead
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &l, nil
}

func (r *LeadRepository) List(ctx context.Context, f repository.LeadFilter) ([]models.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Stage != "" {
		filter["stage"] = f.Stage
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer cursor.Close(ctx)

	leads := make([]models.Lead, 0)
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("failed to decode leads: %w", err)
	}
	return leads, nil
}

func (r *LeadRepository) Update(ctx context.Context, l *models.Lead) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	l.UpdatedAt = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": l.ID}, bson.M{"$set": bson.M{
		"name":      l.Name,
		"email":     l.Email,
		"phone":     l.Phone,
		"stage":     l.Stage,
		"priority":  l.Priority,
		"notes":     l.Notes,
		"updatedAt": l.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
