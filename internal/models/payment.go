package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TransactionStatusInitiated = "initiated"
	TransactionStatusCompleted = "completed"
)

// PaymentTransaction records one checkout-session attempt against an order.
// Retried checkouts produce additional transactions; SessionID is unique.
type PaymentTransaction struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID       primitive.ObjectID `bson:"order_id" json:"order_id"`
	SessionID     string             `bson:"session_id" json:"session_id"`
	Amount        float64            `bson:"amount" json:"amount"`
	Currency      string             `bson:"currency" json:"currency"`
	Status        string             `bson:"status" json:"status"`
	PaymentStatus string             `bson:"payment_status" json:"payment_status"`
	Metadata      map[string]string  `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}
