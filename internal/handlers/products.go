package handlers

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type productRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gte=0"`
	Category    string  `json:"category" binding:"required"`
	Quantity    int     `json:"quantity"`
	SKU         string  `json:"sku"`
	ImageURL    string  `json:"image_url"`
}

type productSortUpdate struct {
	ProductID string `json:"product_id" binding:"required"`
	SortOrder int    `json:"sort_order"`
}

// buildProductFilter assembles the listing query: optional exact category
// match plus case-insensitive substring search over name and description.
func buildProductFilter(category, search string) bson.M {
	filter := bson.M{}
	if category = strings.TrimSpace(category); category != "" {
		filter["category"] = category
	}
	if search = strings.TrimSpace(search); search != "" {
		pattern := regexp.QuoteMeta(search)
		filter["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return filter
}

func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		filter := buildProductFilter(c.Query("category"), c.Query("search"))
		opts := options.Find().
			SetSort(bson.D{{Key: "sort_order", Value: 1}}).
			SetLimit(1000)

		cursor, err := db.Collection("products").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0)
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, products)
	}
}

func GetProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, product)
	}
}

func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products"
		defer handlePanic(c, route)

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		now := time.Now().UTC()
		product := models.Product{
			ID:          primitive.NewObjectID(),
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Price:       req.Price,
			Category:    strings.TrimSpace(req.Category),
			Quantity:    req.Quantity,
			SKU:         strings.TrimSpace(req.SKU),
			ImageURL:    strings.TrimSpace(req.ImageURL),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := db.Collection("products").InsertOne(ctx, product); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": product.ID.Hex(), "message": "product created"})
	}
}

func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		update := bson.M{"$set": bson.M{
			"name":        strings.TrimSpace(req.Name),
			"description": req.Description,
			"price":       req.Price,
			"category":    strings.TrimSpace(req.Category),
			"quantity":    req.Quantity,
			"sku":         strings.TrimSpace(req.SKU),
			"image_url":   strings.TrimSpace(req.ImageURL),
			"updated_at":  time.Now().UTC(),
		}}

		res, err := db.Collection("products").UpdateOne(ctx, bson.M{"_id": productID}, update)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "product updated"})
	}
}

func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").DeleteOne(ctx, bson.M{"_id": productID})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if res.DeletedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}

// UpdateProductSort applies a batch of manual ordering positions. Each pair
// is applied independently; unknown ids are skipped rather than failing the
// batch.
func UpdateProductSort(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /products/sort/update"
		defer handlePanic(c, route)

		var updates []productSortUpdate
		if err := c.ShouldBindJSON(&updates); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		for _, update := range updates {
			productID, err := primitive.ObjectIDFromHex(update.ProductID)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid product_id: "+update.ProductID)
				return
			}
			_, err = db.Collection("products").UpdateOne(
				ctx,
				bson.M{"_id": productID},
				bson.M{"$set": bson.M{"sort_order": update.SortOrder}},
			)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "sort order updated"})
	}
}

func GetCategories(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		values, err := db.Collection("products").Distinct(ctx, "category", bson.M{})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		categories := make([]string, 0, len(values))
		for _, v := range values {
			if name, ok := v.(string); ok && name != "" {
				categories = append(categories, name)
			}
		}

		c.JSON(http.StatusOK, categories)
	}
}
