package payments

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

// Store is the storage surface the reconciliation flow depends on. The two
// compare-and-set operations (MarkOrderPaid, CancelOrder) and the atomic
// quantity adjustment are the guarantees the flow's correctness rests on.
type Store interface {
	OrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	OrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	SetOrderSessionID(ctx context.Context, id primitive.ObjectID, sessionID string) error

	// MarkOrderPaid atomically transitions payment_status to paid and status
	// to confirmed, but only when the order is not already paid. It returns
	// the order as it was before the transition; ErrAlreadySettled when a
	// previous delivery won; ErrOrderNotFound when no such order exists.
	MarkOrderPaid(ctx context.Context, id primitive.ObjectID) (*models.Order, error)

	// CancelOrder atomically sets status to cancelled unless it already is,
	// returning the pre-transition order so the caller can decide whether
	// inventory was ever decremented. A second cancel is a no-op (nil, nil).
	CancelOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)

	SetOrderStatus(ctx context.Context, id primitive.ObjectID, status string) error

	InsertTransaction(ctx context.Context, tx *models.PaymentTransaction) error
	TransactionBySessionID(ctx context.Context, sessionID string) (*models.PaymentTransaction, error)
	UpdateTransactionStatus(ctx context.Context, sessionID, status, paymentStatus string) error

	// AdjustProductQuantity applies an atomic increment; concurrent
	// settlements against the same product must not lose updates.
	AdjustProductQuantity(ctx context.Context, productID primitive.ObjectID, delta int) error
}

// MongoStore implements Store over the application database.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) OrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) OrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, bson.M{"payment_session_id": sessionID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) SetOrderSessionID(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	res, err := s.db.Collection("orders").UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"payment_session_id": sessionID,
			"payment_status":     models.PaymentStatusPending,
			"updated_at":         time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *MongoStore) MarkOrderPaid(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	// The filter is the idempotency barrier: only one caller can match an
	// order whose payment_status is not yet paid.
	var prior models.Order
	err := s.db.Collection("orders").FindOneAndUpdate(
		ctx,
		bson.M{
			"_id":            id,
			"payment_status": bson.M{"$ne": models.PaymentStatusPaid},
		},
		bson.M{"$set": bson.M{
			"payment_status": models.PaymentStatusPaid,
			"status":         models.OrderStatusConfirmed,
			"updated_at":     time.Now().UTC(),
		}},
	).Decode(&prior)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, lookupErr := s.OrderByID(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, ErrAlreadySettled
	}
	if err != nil {
		return nil, err
	}
	return &prior, nil
}

func (s *MongoStore) CancelOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var prior models.Order
	err := s.db.Collection("orders").FindOneAndUpdate(
		ctx,
		bson.M{
			"_id":    id,
			"status": bson.M{"$ne": models.OrderStatusCancelled},
		},
		bson.M{"$set": bson.M{
			"status":     models.OrderStatusCancelled,
			"updated_at": time.Now().UTC(),
		}},
	).Decode(&prior)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, lookupErr := s.OrderByID(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prior, nil
}

func (s *MongoStore) SetOrderStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.db.Collection("orders").UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *MongoStore) InsertTransaction(ctx context.Context, tx *models.PaymentTransaction) error {
	_, err := s.db.Collection("payment_transactions").InsertOne(ctx, tx)
	return err
}

func (s *MongoStore) TransactionBySessionID(ctx context.Context, sessionID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := s.db.Collection("payment_transactions").FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *MongoStore) UpdateTransactionStatus(ctx context.Context, sessionID, status, paymentStatus string) error {
	_, err := s.db.Collection("payment_transactions").UpdateOne(
		ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"status":         status,
			"payment_status": paymentStatus,
		}},
	)
	return err
}

func (s *MongoStore) AdjustProductQuantity(ctx context.Context, productID primitive.ObjectID, delta int) error {
	_, err := s.db.Collection("products").UpdateOne(
		ctx,
		bson.M{"_id": productID},
		bson.M{"$inc": bson.M{"quantity": delta}},
	)
	return err
}
