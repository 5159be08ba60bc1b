package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"

	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// OrderItem is a price/name snapshot of a product at the moment the order
// was placed. It is never updated when the product changes.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Order is the persisted order document. Items and TotalAmount are fixed at
// creation; only status fields and timestamps change afterwards.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Items            []OrderItem        `bson:"items" json:"items"`
	TotalAmount      float64            `bson:"total_amount" json:"total_amount"`
	CustomerName     string             `bson:"customer_name" json:"customer_name"`
	CustomerEmail    string             `bson:"customer_email" json:"customer_email"`
	CustomerPhone    string             `bson:"customer_phone" json:"customer_phone"`
	CustomerAddress  string             `bson:"customer_address" json:"customer_address"`
	Status           string             `bson:"status" json:"status"`
	PaymentStatus    string             `bson:"payment_status" json:"payment_status"`
	PaymentSessionID string             `bson:"payment_session_id" json:"payment_session_id"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
