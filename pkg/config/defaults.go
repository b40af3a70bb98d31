package config

import "time"

const (
	Development = "development"
	Production  = "production"
)

const (
	DefaultEnvironment = Development
	DefaultPort        = "8080"
	DefaultLogLevel    = "info"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "tourbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultJWTExpiry           = 90 * 24 * time.Hour
	DefaultJWTCookieExpiryDays = 90

	DefaultKafkaNotificationsTopic = "tourbook.notifications"

	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 1 * time.Hour

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
