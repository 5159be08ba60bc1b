package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func CreateContact(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /contact"
		defer handlePanic(c, route)

		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		contact := models.ContactMessage{
			ID:        primitive.NewObjectID(),
			Name:      strings.TrimSpace(req.Name),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:     strings.TrimSpace(req.Phone),
			Message:   req.Message,
			CreatedAt: time.Now().UTC(),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := db.Collection("contacts").InsertOne(ctx, contact); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "message sent successfully"})
	}
}

func GetContacts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /contacts"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(1000)

		cursor, err := db.Collection("contacts").Find(ctx, bson.M{}, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		contacts := make([]models.ContactMessage, 0)
		if err := cursor.All(ctx, &contacts); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, contacts)
	}
}
