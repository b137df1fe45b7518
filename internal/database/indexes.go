package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"pharmacrm/internal/repository"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func indexPlan() []collectionIndexes {
	return []collectionIndexes{
		{repository.CollectionProducts, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("name_index")},
			{Keys: bson.D{{Key: "stockStatus", Value: 1}}, Options: options.Index().SetName("stockStatus_index")},
		}},
		{repository.CollectionOrders, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("userId_createdAt_index")},
			{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status_index")},
		}},
		{repository.CollectionEvents, []mongo.IndexModel{
			{Keys: bson.D{{Key: "start", Value: 1}, {Key: "end", Value: 1}}, Options: options.Index().SetName("start_end_index")},
			{Keys: bson.D{{Key: "participants", Value: 1}}, Options: options.Index().SetName("participants_index")},
		}},
		{repository.CollectionLeads, []mongo.IndexModel{
			{Keys: bson.D{{Key: "stage", Value: 1}}, Options: options.Index().SetName("stage_index")},
		}},
		{repository.CollectionNotifications, []mongo.IndexModel{
			{Keys: bson.D{{Key: "read", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("read_createdAt_index")},
		}},
		{repository.CollectionCustomers, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("userId_unique").SetUnique(true)},
		}},
		{repository.CollectionStaff, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_unique").SetUnique(true)},
		}},
	}
}

// EnsureIndexes creates every index the repositories rely on. Existing
// indexes with the same definition are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.SugaredLogger) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, plan := range indexPlan() {
		names, err := db.Collection(plan.collection).Indexes().CreateMany(ctx, plan.models)
		if err != nil {
			logger.Errorw("index creation failed", "collection", plan.collection, "error", err)
			return fmt.Errorf("failed to create %s indexes: %w", plan.collection, err)
		}
		logger.Infow("indexes ensured", "collection", plan.collection, "indexes", names)
	}
	return nil
}
