package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// Enabled reports whether a secret is configured.
func (c JWTConfig) Enabled() bool {
	return len(c.Secret) > 0
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr                  string
	Environment           string
	MongoURI              string
	MongoDatabase         string
	Timeout               time.Duration
	BusinessCollection    string
	EmployeeCollection    string
	OrderedItemCollection string
	LaborEntryCollection  string
	EGSCollection         string
	FCPCollection         string
	LCPCollection         string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ReportCacheTTL        time.Duration
	GenerationLockTTL     time.Duration
	DefaultBusinessID     string
	StrictParams          bool
	JWT                   JWTConfig
	JWTAudience           string
	AveroAPIURL           string
	AveroAPIKey           string
	AveroTimeout          time.Duration
	AveroPageSize         int
	InsertBatchSize       int
	AllowedOrigins        []string
	Logger                *logrus.Logger
}

// Load reads environment variables and returns a fully populated Config.
// A .env file in the working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:                  envOrDefault("HTTP_ADDR", ":8080"),
		Environment:           envOrDefault("APP_ENV", "development"),
		MongoURI:              envOrDefault("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase:         envOrDefault("MONGO_DB", "avero"),
		Timeout:               envDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		BusinessCollection:    envOrDefault("BUSINESS_COLLECTION", "businesses"),
		EmployeeCollection:    envOrDefault("EMPLOYEE_COLLECTION", "employees"),
		OrderedItemCollection: envOrDefault("ORDERED_ITEM_COLLECTION", "orderedItems"),
		LaborEntryCollection:  envOrDefault("LABOR_ENTRY_COLLECTION", "laborEntries"),
		EGSCollection:         envOrDefault("EGS_COLLECTION", "egs"),
		FCPCollection:         envOrDefault("FCP_COLLECTION", "fcp"),
		LCPCollection:         envOrDefault("LCP_COLLECTION", "lcp"),
		RedisAddr:             strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               envInt("REDIS_DB", 0),
		ReportCacheTTL:        envDuration("REPORT_CACHE_TTL", 5*time.Minute),
		GenerationLockTTL:     envDuration("GENERATION_LOCK_TTL", 2*time.Hour),
		DefaultBusinessID:     envOrDefault("DEFAULT_BUSINESS_ID", "e0b6683d-5efc-4b7a-836d-f3a3fe16ebae"),
		StrictParams:          strings.EqualFold(strings.TrimSpace(os.Getenv("REPORT_STRICT_PARAMS")), "true"),
		JWT: JWTConfig{
			Issuer: envOrDefault("AUTH_JWT_ISSUER", "avero-reporting-admin"),
			Secret: []byte(strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET"))),
		},
		JWTAudience:     strings.TrimSpace(os.Getenv("AUTH_JWT_AUDIENCE")),
		AveroAPIURL:     strings.TrimSpace(os.Getenv("AVERO_API_URL")),
		AveroAPIKey:     strings.TrimSpace(os.Getenv("AVERO_API_KEY")),
		AveroTimeout:    envDuration("AVERO_API_TIMEOUT", 30*time.Second),
		AveroPageSize:   envInt("AVERO_PAGE_SIZE", 500),
		InsertBatchSize: envInt("INSERT_BATCH_SIZE", 500),
		AllowedOrigins:  parseList("API_ALLOWED_ORIGINS", []string{"*"}),
	}
	cfg.Logger = NewLogger(envOrDefault("LOG_LEVEL", "info"))

	if !cfg.JWT.Enabled() {
		cfg.Logger.Warn("AUTH_JWT_SECRET is not set; admin endpoints are disabled")
	}
	cfg.Logger.WithFields(logrus.Fields{
		"mongo_db":      cfg.MongoDatabase,
		"redis":         cfg.RedisAddr != "",
		"strict_params": cfg.StrictParams,
	}).Info("loaded config")

	return cfg
}

// NewLogger returns a JSON logger writing to stdout. Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
