package config

import "time"

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvKafkaBrokers       = "KAFKA_BROKERS"
	EnvBookingEventsTopic = "BOOKING_EVENTS_TOPIC"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockTTL = "BOOKING_LOCK_TTL"

	EnvDefaultIncrementMin   = "DEFAULT_INCREMENT_MIN"
	EnvDefaultMinNoticeHours = "DEFAULT_MIN_NOTICE_HOURS"
	EnvDefaultMaxBookingDays = "DEFAULT_MAX_BOOKING_DAYS"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "orari"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultBookingEventsTopic = "booking-events"

	DefaultRateLimitRequests = 20
	DefaultRateLimitWindow   = time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLockTTL = 10 * time.Second

	DefaultDefaultIncrementMin   = 30
	DefaultDefaultMinNoticeHours = 0
	DefaultDefaultMaxBookingDays = 60

	// MinCallerStepMin is the floor for the caller-supplied step override
	// on availability queries. Overrides may narrow the grid, never widen
	// it below this.
	MinCallerStepMin = 5
)
