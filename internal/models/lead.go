package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LeadStage string

const (
	LeadNew       LeadStage = "new"
	LeadContacted LeadStage = "contacted"
	LeadQualified LeadStage = "qualified"
	LeadConverted LeadStage = "converted"
)

func ParseLeadStage(value string) (LeadStage, error) {
	switch s := LeadStage(strings.ToLower(strings.TrimSpace(value))); s {
	case LeadNew, LeadContacted, LeadQualified, LeadConverted:
		return s, nil
	case "":
		return LeadNew, nil
	default:
		return "", fmt.Errorf("invalid lead stage: %q", value)
	}
}

type LeadPriority string

const (
	PriorityLow    LeadPriority = "low"
	PriorityMedium LeadPriority = "medium"
	PriorityHigh   LeadPriority = "high"
)

func ParseLeadPriority(value string) (LeadPriority, error) {
	switch p := LeadPriority(strings.ToLower(strings.TrimSpace(value))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	case "":
		return PriorityMedium, nil
	default:
		return "", fmt.Errorf("invalid lead priority: %q", value)
	}
}

type LeadNote struct {
	Text      string    `bson:"text" json:"text"`
	Author    string    `bson:"author,omitempty" json:"author,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type Lead struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Source    string             `bson:"source,omitempty" json:"source,omitempty"`
	Stage     LeadStage          `bson:"stage" json:"stage"`
	Priority  LeadPriority       `bson:"priority" json:"priority"`
	Notes     []LeadNote         `bson:"notes" json:"notes"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
