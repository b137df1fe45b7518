package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

func ParseEventStatus(value string) (EventStatus, error) {
	switch s := EventStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case EventScheduled, EventCompleted, EventCancelled:
		return s, nil
	case "":
		return EventScheduled, nil
	default:
		return "", fmt.Errorf("invalid event status: %q", value)
	}
}

// CalendarEvent is a scheduled slot on the staff calendar. Start must not be after End.
type CalendarEvent struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Start        time.Time          `bson:"start" json:"start"`
	End          time.Time          `bson:"end" json:"end"`
	Participants StringList         `bson:"participants" json:"participants"`
	Recurrence   string             `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	Status       EventStatus        `bson:"status" json:"status"`
	CreatedBy    string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
