package main

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/payments"
)

func main() {
	config.Load()
	logger.Initialize(config.AppEnv.Environment)
	defer logger.Log.Sync()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		logger.Log.Fatal("MongoDB connection failed", zap.Error(err))
	}
	defer database.Disconnect(client)

	db := client.Database(config.AppEnv.DBName)
	logger.Log.Info("MongoDB connected", zap.String("database", db.Name()))

	if err := database.EnsureProductIndexes(db); err != nil {
		logger.Log.Warn("product index warning", zap.Error(err))
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		logger.Log.Warn("order index warning", zap.Error(err))
	}
	if err := database.EnsureTransactionIndexes(db); err != nil {
		logger.Log.Warn("transaction index warning", zap.Error(err))
	}
	if err := database.EnsureAdminIndexes(db); err != nil {
		logger.Log.Warn("admin index warning", zap.Error(err))
	}

	if err := os.MkdirAll(config.AppEnv.UploadsDir, 0o755); err != nil {
		logger.Log.Fatal("uploads directory unavailable", zap.Error(err))
	}

	gateway := payments.NewStripeGateway(config.AppEnv.StripeAPIKey, config.AppEnv.StripeWebhookSecret)
	store := payments.NewMongoStore(db)
	reconciler := payments.NewReconciler(store, gateway, logger.Log)

	if config.AppEnv.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.AppEnv.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Static("/uploads", config.AppEnv.UploadsDir)

	api := r.Group("/api")

	api.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Storefront API"})
	})
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api.GET("/auth/can-register", handlers.CanRegister(db))
	api.POST("/auth/register", handlers.Register(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	api.POST("/auth/login", handlers.Login(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	api.GET("/auth/me", middleware.AdminAuth(db, config.AppEnv.JWTSecret), handlers.Me())

	api.GET("/products", handlers.GetProducts(db))
	api.GET("/products/:id", handlers.GetProduct(db))
	api.GET("/categories", handlers.GetCategories(db))

	api.POST("/orders", handlers.CreateOrder(db))
	api.GET("/orders/:id", handlers.GetOrder(db))

	api.POST("/payments/checkout", handlers.CreateCheckout(reconciler, config.AppEnv.PublicBaseURL))
	api.GET("/payments/status/:session_id", handlers.PaymentStatus(reconciler))
	api.POST("/webhook/stripe", handlers.StripeWebhook(reconciler))

	api.POST("/contact", handlers.CreateContact(db))
	api.GET("/settings/contact", handlers.GetContactSettings(db))
	api.GET("/settings/about", handlers.GetAboutSettings(db))

	admin := api.Group("")
	admin.Use(middleware.AdminAuth(db, config.AppEnv.JWTSecret))
	{
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))
		admin.POST("/products/import", handlers.ImportProducts(db))
		admin.PUT("/products/sort/update", handlers.UpdateProductSort(db))

		admin.GET("/orders", handlers.GetOrders(db))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(store, reconciler))

		admin.GET("/contacts", handlers.GetContacts(db))

		admin.PUT("/settings/contact", handlers.UpdateContactSettings(db))
		admin.PUT("/settings/about", handlers.UpdateAboutSettings(db))

		admin.GET("/analytics", handlers.GetAnalytics(db))

		admin.POST("/upload/image", handlers.UploadImage(config.AppEnv.UploadsDir))
	}

	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		logger.Log.Fatal("server exited", zap.Error(err))
	}
}
