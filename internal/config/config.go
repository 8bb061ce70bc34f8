package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/repository/dynamo"
)

const (
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"

	devJWTSecret = "dev-only-secret"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string `validate:"required"`
	HTTPAddr              string `validate:"required"`
	GRPCPort              int    `validate:"gte=0,lte=65535"`
	GRPCReflectionEnabled bool

	StoreDriver string `validate:"oneof=sqlite dynamodb"`
	DBDriver    string
	DBPath      string

	RedisAddr     string `validate:"required"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	JWTSecret      string        `validate:"required"`
	TokenTTL       time.Duration `validate:"gt=0"`
	PINMaxAttempts int           `validate:"gte=1"`
	PINLockout     time.Duration `validate:"gt=0"`
	AllowedOrigins []string

	Dynamo dynamo.Config

	SeedOrganizationName string
	SeedAdminLogin       string
	SeedAdminPassword    string
}

// Load reads the given .env files when present, then the environment, and
// validates the result. Real environment variables win over file values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables. Unparseable
// values fall back to their defaults.
func LoadFromEnv() *Config {
	appEnv := getEnv("APP_ENV", "development")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" && appEnv != "production" {
		jwtSecret = devJWTSecret
	}

	return &Config{
		AppEnv:                appEnv,
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		GRPCPort:              getEnvInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getEnvBool("GRPC_REFLECTION_ENABLED", false),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		DBDriver:    getEnv("DB_DRIVER", "sqlite3"),
		DBPath:      getEnv("DB_PATH", "./data/staff-perf.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:      jwtSecret,
		TokenTTL:       getEnvDuration("TOKEN_TTL", 12*time.Hour),
		PINMaxAttempts: getEnvInt("PIN_MAX_ATTEMPTS", 5),
		PINLockout:     getEnvDuration("PIN_LOCKOUT", 15*time.Minute),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),

		Dynamo: dynamo.Config{
			Mode:        dynamo.Mode(getEnv("DYNAMO_MODE", string(dynamo.ModeLocal))),
			Endpoint:    getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
			Region:      getEnv("DYNAMO_REGION", "us-east-1"),
			TablePrefix: getEnv("DYNAMO_TABLE_PREFIX", "staffperf_"),
		},

		SeedOrganizationName: getEnv("SEED_ORGANIZATION_NAME", "Default Organization"),
		SeedAdminLogin:       os.Getenv("SEED_ADMIN_LOGIN"),
		SeedAdminPassword:    os.Getenv("SEED_ADMIN_PASSWORD"),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.StoreDriver {
	case StoreSQLite:
		if c.DBDriver == "" || c.DBPath == "" {
			return errors.New("invalid config: DB_DRIVER and DB_PATH are required for the sqlite store")
		}
	case StoreDynamoDB:
		if err := c.Dynamo.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return errors.New("invalid config: JWT_SECRET must be set in production")
	}
	if (c.SeedAdminLogin == "") != (c.SeedAdminPassword == "") {
		return errors.New("invalid config: SEED_ADMIN_LOGIN and SEED_ADMIN_PASSWORD must be set together")
	}
	return nil
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
