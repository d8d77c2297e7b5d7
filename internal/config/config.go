package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"genfity-pricing-service/internal/storage"
)

type Config struct {
	Env                      string
	LogLevel                 string
	HTTPAddr                 string
	DatabaseURL              string
	DBMaxConns               int32
	DBMaxConnLifetime        time.Duration
	JWTSecret                string
	OrderTrackingTokenSecret string
	RabbitMQURL              string
	RabbitMQWorkerMode       string
	CorsAllowedOrigins       []string
	WSHeartbeatInterval      time.Duration

	// drop or fail; anything else is rejected at startup.
	DiscountRevalidationPolicy string
	// DefaultTimezone applies to merchants with no timezone on record.
	DefaultTimezone string

	// Receipt archive. Disabled unless endpoint, bucket and public URL are set.
	ObjectStore storage.Config
}

func Load() Config {
	cfg := Config{
		Env:                        getEnv("APP_ENV", "development"),
		LogLevel:                   getEnv("LOG_LEVEL", ""),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8086"),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		DBMaxConns:                 int32(getEnvInt64("DB_MAX_CONNS", 10)),
		DBMaxConnLifetime:          getEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		JWTSecret:                  getEnv("JWT_SECRET", ""),
		OrderTrackingTokenSecret:   getEnv("ORDER_TRACKING_TOKEN_SECRET", "dev-insecure-tracking-secret"),
		RabbitMQURL:                getEnv("RABBITMQ_URL", ""),
		RabbitMQWorkerMode:         getEnv("RABBITMQ_WORKER_MODE", "daemon"),
		CorsAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		WSHeartbeatInterval:        getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
		DiscountRevalidationPolicy: strings.ToLower(getEnv("DISCOUNT_REVALIDATION_POLICY", "drop")),
		DefaultTimezone:            getEnv("DEFAULT_TIMEZONE", "Australia/Sydney"),
		ObjectStore:                loadObjectStore(),
	}

	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 10
	}
	if cfg.WSHeartbeatInterval <= 0 {
		cfg.WSHeartbeatInterval = 30 * time.Second
	}
	return cfg
}

// loadObjectStore accepts the generic OBJECT_STORE_* names and the older R2_*
// ones, in that order.
func loadObjectStore() storage.Config {
	store := storage.Config{
		Endpoint:        getEnvFirst([]string{"OBJECT_STORE_ENDPOINT", "R2_S3_ENDPOINT"}, ""),
		Region:          getEnvFirst([]string{"OBJECT_STORE_REGION", "R2_REGION"}, "auto"),
		AccessKeyID:     getEnvFirst([]string{"OBJECT_STORE_ACCESS_KEY_ID", "R2_ACCESS_KEY_ID"}, ""),
		SecretAccessKey: getEnvFirst([]string{"OBJECT_STORE_SECRET_ACCESS_KEY", "R2_SECRET_ACCESS_KEY"}, ""),
		Bucket:          getEnvFirst([]string{"OBJECT_STORE_BUCKET", "R2_BUCKET"}, ""),
		PublicBaseURL:   getEnvFirst([]string{"OBJECT_STORE_PUBLIC_BASE_URL", "R2_PUBLIC_BASE_URL"}, ""),
		StorageClass:    getEnvFirst([]string{"OBJECT_STORE_STORAGE_CLASS", "R2_STORAGE_CLASS"}, "STANDARD"),
		KeyPrefix:       getEnv("OBJECT_STORE_KEY_PREFIX", ""),
	}
	if store.Endpoint == "" {
		if accountID := getEnv("R2_ACCOUNT_ID", ""); accountID != "" {
			store.Endpoint = "https://" + accountID + ".r2.cloudflarestorage.com"
		}
	}
	return store
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvFirst(keys []string, fallback string) string {
	for _, k := range keys {
		value := strings.TrimSpace(os.Getenv(k))
		if value != "" {
			return value
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
