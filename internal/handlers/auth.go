package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CanRegister reports whether the one-time admin registration is still open.
func CanRegister(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("admins").CountDocuments(ctx, bson.M{})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, "GET /auth/can-register", "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"can_register": count == 0})
	}
}

// Register creates the single admin account. Once one admin exists the
// endpoint is permanently closed.
func Register(db *mongo.Database, jwtSecret string, accessTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/register"
		defer handlePanic(c, route)

		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("admins").CountDocuments(ctx, bson.M{})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if count > 0 {
			respondWithError(c, http.StatusForbidden, route, "registration is disabled, admin already exists")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "could not hash password")
			return
		}

		admin := models.Admin{
			Email:        email,
			PasswordHash: string(hash),
			Name:         strings.TrimSpace(req.Name),
			CreatedAt:    time.Now().UTC(),
		}
		if _, err := db.Collection("admins").InsertOne(ctx, admin); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		token, err := issueToken(email, jwtSecret, accessTTL)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"admin": gin.H{"email": admin.Email, "name": admin.Name},
		})
	}
}

func Login(db *mongo.Database, jwtSecret string, accessTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var admin models.Admin
		err := db.Collection("admins").FindOne(ctx, bson.M{"email": email}).Decode(&admin)
		if err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		token, err := issueToken(admin.Email, jwtSecret, accessTTL)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"admin": gin.H{"email": admin.Email, "name": admin.Name},
		})
	}
}

// Me returns the identity resolved by the auth middleware.
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := middleware.CurrentAdmin(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": admin.Email, "name": admin.Name})
	}
}

func issueToken(email, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
