package realtime

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OpInsert  = "insert"
	OpUpdate  = "update"
	OpReplace = "replace"
)

// Change is one decoded change-stream event.
type Change struct {
	OperationType string `bson:"operationType"`
	Namespace     struct {
		DB   string `bson:"db"`
		Coll string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument      bson.Raw `bson:"fullDocument,omitempty"`
	UpdateDescription *struct {
		UpdatedFields bson.M `bson:"updatedFields"`
	} `bson:"updateDescription,omitempty"`
}

var ErrNoDocument = errors.New("change carries no full document")

// DecodeDocument decodes the post-change document into v.
func (c Change) DecodeDocument(v interface{}) error {
	if len(c.FullDocument) == 0 {
		return ErrNoDocument
	}
	return bson.Unmarshal(c.FullDocument, v)
}

// Updated reports whether an update event touched field.
func (c Change) Updated(field string) bool {
	if c.UpdateDescription == nil {
		return false
	}
	_, ok := c.UpdateDescription.UpdatedFields[field]
	return ok
}

// Stream is the cursor side of a change stream. *mongo.ChangeStream satisfies it.
type Stream interface {
	Next(ctx context.Context) bool
	TryNext(ctx context.Context) bool
	Decode(v interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// Watcher opens a change stream over one collection.
type Watcher interface {
	Watch(ctx context.Context, collection string) (Stream, error)
}

// Handler receives every change that was immediately available as one batch.
type Handler func(ctx context.Context, batch []Change) error
