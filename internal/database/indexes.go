package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("products").Indexes()

	sortIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "sort_order", Value: 1}},
		Options: options.Index().SetName("sort_order_index"),
	}
	categoryIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}},
		Options: options.Index().SetName("category_index"),
	}

	log.Println("EnsureProductIndexes: creating product indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{sortIndex, categoryIndex})
	if err != nil {
		log.Println("EnsureProductIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	createdIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("created_at_index"),
	}
	sessionIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "payment_session_id", Value: 1}},
		Options: options.Index().
			SetName("payment_session_id_index").
			SetPartialFilterExpression(bson.M{
				"payment_session_id": bson.M{"$gt": ""},
			}),
	}

	log.Println("EnsureOrderIndexes: creating order indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{createdIndex, sessionIndex})
	if err != nil {
		log.Println("EnsureOrderIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureTransactionIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("payment_transactions").Indexes()

	// One transaction per gateway session; duplicate inserts for the same
	// session must fail rather than fork the payment record.
	sessionIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().
			SetName("session_id_unique").
			SetUnique(true),
	}

	log.Println("EnsureTransactionIndexes: creating session_id_unique index")
	_, err := indexes.CreateOne(ctx, sessionIndex)
	if err != nil {
		log.Println("EnsureTransactionIndexes: session index error:", err)
		return err
	}
	return nil
}

func EnsureAdminIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("admins").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureAdminIndexes: creating email_unique index")
	_, err := indexes.CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureAdminIndexes: email index error:", err)
		return err
	}
	return nil
}
