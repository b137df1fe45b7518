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

type EventRepository struct {
	collection *mongo.Collection
}

var _ repository.EventRepository = (*EventRepository)(nil)

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{collection: db.Collection(repository.CollectionEvents)}
}

func (r *EventRepository) Create(ctx context.Context, ev *models.CalendarEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	ev.UpdatedAt = ev.CreatedAt

	if _, err := r.collection.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CalendarEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var ev models.CalendarEvent
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &ev, nil
}

func (r *EventRepository) Update(ctx context.Context, ev *models.CalendarEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	ev.UpdatedAt = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": ev.ID}, bson.M{"$set": bson.M{
		"title":        ev.Title,
		"description":  ev.Description,
		"start":        ev.Start,
		"end":          ev.End,
		"participants": ev.Participants,
		"recurrence":   ev.Recurrence,
		"status":       ev.Status,
		"updatedAt":    ev.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *EventRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	filter := bson.M{}
	if !to.IsZero() {
		filter["start"] = bson.M{"$lt": to}
	}
	if !from.IsZero() {
		filter["end"] = bson.M{"$gt": from}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]models.CalendarEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}
