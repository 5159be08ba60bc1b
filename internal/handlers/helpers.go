package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		zap.L().Error("panic recovered", zap.String("route", route), zap.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	zap.L().Warn("request failed",
		zap.String("route", route),
		zap.Int("status", status),
		zap.String("message", message),
	)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
