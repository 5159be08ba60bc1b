package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

const lowStockThreshold = 5

// GetAnalytics assembles the admin dashboard: order/product counts, revenue
// over paid orders, the most recent orders, low-stock products and paid
// sales grouped by product category.
func GetAnalytics(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /analytics"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		orders := db.Collection("orders")
		products := db.Collection("products")

		totalProducts, err := products.CountDocuments(ctx, bson.M{})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		totalOrders, err := orders.CountDocuments(ctx, bson.M{})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		pendingOrders, err := orders.CountDocuments(ctx, bson.M{"status": models.OrderStatusPending})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		confirmedOrders, err := orders.CountDocuments(ctx, bson.M{"status": models.OrderStatusConfirmed})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		paidOrders, err := findOrders(ctx, orders, bson.M{"payment_status": models.PaymentStatusPaid}, nil)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		var totalRevenue float64
		for _, order := range paidOrders {
			totalRevenue += order.TotalAmount
		}

		recentOpts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(5)
		recentOrders, err := findOrders(ctx, orders, bson.M{}, recentOpts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		lowStock, err := findProducts(ctx, products, bson.M{"quantity": bson.M{"$lte": lowStockThreshold}})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		categorySales, err := computeCategorySales(ctx, products, paidOrders)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total_products":     totalProducts,
			"total_orders":       totalOrders,
			"pending_orders":     pendingOrders,
			"confirmed_orders":   confirmedOrders,
			"total_revenue":      totalRevenue,
			"recent_orders":      recentOrders,
			"low_stock_products": lowStock,
			"category_sales":     categorySales,
		})
	}
}

// computeCategorySales sums paid line-item revenue per product category.
// Products are resolved in one batched query rather than per item.
func computeCategorySales(ctx context.Context, products *mongo.Collection, paidOrders []models.Order) (map[string]float64, error) {
	idSet := make(map[primitive.ObjectID]struct{})
	for _, order := range paidOrders {
		for _, item := range order.Items {
			idSet[item.ProductID] = struct{}{}
		}
	}

	sales := make(map[string]float64)
	if len(idSet) == 0 {
		return sales, nil
	}

	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	matched, err := findProducts(ctx, products, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	categoryByID := make(map[primitive.ObjectID]string, len(matched))
	for _, product := range matched {
		categoryByID[product.ID] = product.Category
	}

	for _, order := range paidOrders {
		for _, item := range order.Items {
			category, ok := categoryByID[item.ProductID]
			if !ok {
				continue
			}
			sales[category] += item.Price * float64(item.Quantity)
		}
	}
	return sales, nil
}

func findOrders(ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]models.Order, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = coll.Find(ctx, filter, opts)
	} else {
		cursor, err = coll.Find(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func findProducts(ctx context.Context, coll *mongo.Collection, filter bson.M) ([]models.Product, error) {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}
