package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Downstreams holds the base URLs of the resource services the gateway
// forwards to. They are environment-provided and never hard-coded inside
// request handling logic.
type Downstreams struct {
	Team        string
	ClientStore string
	Order       string
	Rider       string
	Vehicle     string
	SpareParts  string
}

// Config is the validated process configuration, loaded once at startup
// and injected everywhere it is needed.
type Config struct {
	Port            string
	DatabaseDSN     string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ProxyTimeout    time.Duration
	AllowedOrigins  []string
	Downstreams     Downstreams
}

// Load reads configuration from environment variables with development
// fallbacks, mirroring how the rest of the deployment is configured.
func Load() (*Config, error) {
	dbHost := getEnvOr("DB_HOST", "localhost")
	dbPort := getEnvOr("DB_PORT", "5432")
	dbUser := getEnvOr("DB_USER", "postgres")
	dbPassword := getEnvOr("DB_PASSWORD", "postgres")
	dbName := getEnvOr("DB_NAME", "postgres")
	dbSslMode := getEnvOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			return nil, errors.New("JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}

	accessTTL, err := parseDurationOr("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := parseDurationOr("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	proxyTimeout, err := parseDurationOr("PROXY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            getEnvOr("PORT", "8080"),
		DatabaseDSN:     dsn,
		JWTSecret:       secret,
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		ProxyTimeout:    proxyTimeout,
		AllowedOrigins:  []string{getEnvOr("FRONTEND_URL", "http://localhost:5173")},
		Downstreams: Downstreams{
			Team:        getEnvOr("TEAM_SERVICE_URL", "http://localhost:8081"),
			ClientStore: getEnvOr("CLIENT_STORE_SERVICE_URL", "http://localhost:8082"),
			Order:       getEnvOr("ORDER_SERVICE_URL", "http://localhost:8083"),
			Rider:       getEnvOr("RIDER_SERVICE_URL", "http://localhost:8084"),
			Vehicle:     getEnvOr("VEHICLE_SERVICE_URL", "http://localhost:8085"),
			SpareParts:  getEnvOr("SPARE_PARTS_SERVICE_URL", "http://localhost:8086"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ProxyTimeout <= 0 {
		return errors.New("token TTLs and proxy timeout must be positive")
	}
	// An access token must always die before its parent refresh token.
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return fmt.Errorf("access token TTL (%s) must be strictly shorter than refresh token TTL (%s)", c.AccessTokenTTL, c.RefreshTokenTTL)
	}
	return nil
}

func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseDurationOr(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
