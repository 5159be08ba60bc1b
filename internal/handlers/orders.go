package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/payments"
)

type createOrderItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Price     float64 `json:"price" binding:"gte=0"`
	Quantity  int     `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	Items           []createOrderItemRequest `json:"items" binding:"required"`
	CustomerName    string                   `json:"customer_name" binding:"required"`
	CustomerEmail   string                   `json:"customer_email" binding:"required,email"`
	CustomerPhone   string                   `json:"customer_phone" binding:"required"`
	CustomerAddress string                   `json:"customer_address" binding:"required"`
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// buildOrderFromRequest validates the submitted items and fixes the order's
// price/name snapshots and total. The total is computed here, once, and is
// never recomputed afterwards.
func buildOrderFromRequest(req createOrderRequest) (models.Order, error) {
	if len(req.Items) == 0 {
		return models.Order{}, errors.New("at least one item is required")
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	var total float64

	for _, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return models.Order{}, errors.New("invalid product_id")
		}
		if item.Quantity <= 0 {
			return models.Order{}, errors.New("quantity must be greater than zero")
		}

		items = append(items, models.OrderItem{
			ProductID: productID,
			Name:      strings.TrimSpace(item.Name),
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
		total += item.Price * float64(item.Quantity)
	}

	now := time.Now().UTC()
	return models.Order{
		Items:           items,
		TotalAmount:     total,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusUnpaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func CreateOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		order, err := buildOrderFromRequest(req)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		order.ID = primitive.NewObjectID()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := db.Collection("orders").InsertOne(ctx, order); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":           order.ID.Hex(),
			"total_amount": order.TotalAmount,
		})
	}
}

func GetOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		filter := bson.M{}
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter["status"] = status
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(1000)

		cursor, err := db.Collection("orders").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

func GetOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err = db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// UpdateOrderStatus applies an admin status transition. Transitions to
// cancelled go through the reconciliation flow so inventory is restored
// only when the order had actually been paid.
func UpdateOrderStatus(store payments.Store, rec *payments.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/status"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req orderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		status := strings.TrimSpace(req.Status)
		if status == "" {
			respondWithError(c, http.StatusBadRequest, route, "status is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if status == models.OrderStatusCancelled {
			err = rec.Cancel(ctx, orderID)
		} else {
			err = store.SetOrderStatus(ctx, orderID, status)
		}
		if errors.Is(err, payments.ErrOrderNotFound) {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "order status updated"})
	}
}
