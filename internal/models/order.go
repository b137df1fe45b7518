package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func ParseOrderStatus(value string) (OrderStatus, error) {
	switch s := OrderStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case OrderPending, OrderShipped, OrderDelivered, OrderCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("invalid order status: %q", value)
	}
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderShipped, OrderCancelled},
	OrderShipped: {OrderDelivered, OrderCancelled},
}

// CanTransition reports whether an order may move from one status to another.
// Delivered and cancelled are terminal.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

type DeliveryStatus string

const (
	DeliveryProcessing DeliveryStatus = "processing"
	DeliveryInTransit  DeliveryStatus = "in-transit"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryReturned   DeliveryStatus = "returned"
)

func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	switch s := DeliveryStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case DeliveryProcessing, DeliveryInTransit, DeliveryDelivered, DeliveryReturned:
		return s, nil
	default:
		return "", fmt.Errorf("invalid delivery status: %q", value)
	}
}

// DeliveryStatusAfter returns the delivery status implied by moving an order
// from one status to the next.
func DeliveryStatusAfter(from, to OrderStatus, current DeliveryStatus) DeliveryStatus {
	switch to {
	case OrderShipped:
		return DeliveryInTransit
	case OrderDelivered:
		return DeliveryDelivered
	case OrderCancelled:
		if from == OrderShipped {
			return DeliveryReturned
		}
	}
	return current
}

// OrderItem represents a single product entry within an order.
type OrderItem struct {
	ProductID            primitive.ObjectID `bson:"productId" json:"productId"`
	Name                 string             `bson:"name" json:"name"`
	Quantity             int                `bson:"quantity" json:"quantity"`
	UnitPrice            float64            `bson:"unitPrice" json:"unitPrice"`
	RequiresPrescription bool               `bson:"requiresPrescription" json:"requiresPrescription"`
}

// Order defines the persisted order document. Orders are never hard-deleted;
// cancellation is a status change.
type Order struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID               string             `bson:"userId" json:"userId"`
	Items                []OrderItem        `bson:"items" json:"items"`
	TotalAmount          float64            `bson:"totalAmount" json:"totalAmount"`
	Status               OrderStatus        `bson:"status" json:"status"`
	DeliveryStatus       DeliveryStatus     `bson:"deliveryStatus" json:"deliveryStatus"`
	PrescriptionVerified bool               `bson:"prescriptionVerified" json:"prescriptionVerified"`
	Source               string             `bson:"source,omitempty" json:"source,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasPrescriptionItems reports whether any line needs a prescription.
func (o Order) HasPrescriptionItems() bool {
	for _, item := range o.Items {
		if item.RequiresPrescription {
			return true
		}
	}
	return false
}
