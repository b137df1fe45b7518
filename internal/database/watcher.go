package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pharmacrm/internal/realtime"
)

// ChangeStreamWatcher opens Mongo change streams for the realtime hub. It
// needs a replica set or sharded cluster.
type ChangeStreamWatcher struct {
	db *mongo.Database
}

var _ realtime.Watcher = (*ChangeStreamWatcher)(nil)

func NewChangeStreamWatcher(db *mongo.Database) *ChangeStreamWatcher {
	return &ChangeStreamWatcher{db: db}
}

func (w *ChangeStreamWatcher) Watch(ctx context.Context, collection string) (realtime.Stream, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{
			realtime.OpInsert, realtime.OpUpdate, realtime.OpReplace,
		}}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := w.db.Collection(collection).Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", collection, err)
	}
	return stream, nil
}
