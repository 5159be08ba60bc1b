package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

const (
	settingsTypeContact = "contact"
	settingsTypeAbout   = "about"
)

// Settings documents are singletons keyed by type, upserted on write. Reads
// fall back to compiled-in defaults when nothing has been saved yet.

func GetContactSettings(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var settings models.SiteSettings
		if err := loadSettings(c.Request.Context(), db, settingsTypeContact, &settings); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				c.JSON(http.StatusOK, models.DefaultSiteSettings())
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func UpdateContactSettings(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /settings/contact"
		defer handlePanic(c, route)

		var settings models.SiteSettings
		if err := c.ShouldBindJSON(&settings); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		if err := saveSettings(c.Request.Context(), db, settingsTypeContact, settings); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "contact settings updated"})
	}
}

func GetAboutSettings(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var content models.AboutContent
		if err := loadSettings(c.Request.Context(), db, settingsTypeAbout, &content); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				c.JSON(http.StatusOK, models.DefaultAboutContent())
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		c.JSON(http.StatusOK, content)
	}
}

func UpdateAboutSettings(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /settings/about"
		defer handlePanic(c, route)

		var content models.AboutContent
		if err := c.ShouldBindJSON(&content); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		if err := saveSettings(c.Request.Context(), db, settingsTypeAbout, content); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "about content updated"})
	}
}

func loadSettings(parent context.Context, db *mongo.Database, settingsType string, out interface{}) error {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()

	var doc struct {
		Data bson.Raw `bson:"data"`
	}
	err := db.Collection("site_settings").
		FindOne(ctx, bson.M{"type": settingsType}).
		Decode(&doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(doc.Data, out)
}

func saveSettings(parent context.Context, db *mongo.Database, settingsType string, data interface{}) error {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()

	_, err := db.Collection("site_settings").UpdateOne(
		ctx,
		bson.M{"type": settingsType},
		bson.M{"$set": bson.M{"type": settingsType, "data": data}},
		options.Update().SetUpsert(true),
	)
	return err
}
