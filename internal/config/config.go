package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI            string
	DBName              string
	JWTSecret           string
	AccessTokenTTL      time.Duration
	StripeAPIKey        string
	StripeWebhookSecret string
	PublicBaseURL       string
	CORSOrigins         []string
	UploadsDir          string
	Environment         string
	Port                string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:            getEnvOrDefault("MONGO_URI", ""),
		DBName:              getEnvOrDefault("DB_NAME", "storefront"),
		JWTSecret:           getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:      getDurationEnv("ACCESS_TOKEN_TTL", 7, 24*time.Hour),
		StripeAPIKey:        getEnvOrDefault("STRIPE_API_KEY", ""),
		StripeWebhookSecret: getEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		PublicBaseURL:       getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		CORSOrigins:         getListEnv("CORS_ORIGINS", "*"),
		UploadsDir:          getEnvOrDefault("UPLOADS_DIR", "./uploads"),
		Environment:         getEnvOrDefault("APP_ENV", "development"),
		Port:                getEnvOrDefault("PORT", "8080"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getListEnv(key, defaultValue string) []string {
	raw := getEnvOrDefault(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
