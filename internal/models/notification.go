package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types raised by the change-stream handlers.
const (
	NotifyOrderCreated = "order.created"
	NotifyLeadCreated  = "lead.created"
	NotifyStockLow     = "stock.low"
	NotifyStockOut     = "stock.out"
)

type Notification struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Type      string                 `bson:"type" json:"type"`
	Title     string                 `bson:"title" json:"title"`
	Read      bool                   `bson:"read" json:"read"`
	Link      string                 `bson:"link,omitempty" json:"link,omitempty"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time              `bson:"createdAt" json:"createdAt"`
}
