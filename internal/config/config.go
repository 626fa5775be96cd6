// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	JWTSecret       string
	SessionTokenTTL time.Duration

	// Portal user（単一テナントの固定資格情報）
	PortalUserEmail    string
	PortalUserPassword string

	// Ingram Micro API
	IngramAPIURL         string
	IngramTokenURL       string
	IngramClientID       string
	IngramClientSecret   string
	IngramCustomerNumber string
	IngramCountryCode    string

	// Catalog cache
	CatalogRefreshInterval time.Duration

	// Upstream transport
	UpstreamTimeout time.Duration

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitQuote   int

	// Server
	ServerPort  string
	MetricsPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.PortalUserEmail = os.Getenv("PORTAL_USER_EMAIL")
	if cfg.PortalUserEmail == "" {
		missing = append(missing, "PORTAL_USER_EMAIL")
	}

	cfg.PortalUserPassword = os.Getenv("PORTAL_USER_PASSWORD")
	if cfg.PortalUserPassword == "" {
		missing = append(missing, "PORTAL_USER_PASSWORD")
	}

	cfg.IngramClientID = os.Getenv("INGRAM_CLIENT_ID")
	if cfg.IngramClientID == "" {
		missing = append(missing, "INGRAM_CLIENT_ID")
	}

	cfg.IngramClientSecret = os.Getenv("INGRAM_CLIENT_SECRET")
	if cfg.IngramClientSecret == "" {
		missing = append(missing, "INGRAM_CLIENT_SECRET")
	}

	cfg.IngramCustomerNumber = os.Getenv("INGRAM_CUSTOMER_NUMBER")
	if cfg.IngramCustomerNumber == "" {
		missing = append(missing, "INGRAM_CUSTOMER_NUMBER")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionTokenTTL = getEnvDuration("SESSION_TOKEN_TTL", time.Hour)
	cfg.IngramAPIURL = getEnvString("INGRAM_API_URL", "https://api.ingrammicro.com/resellers/v6")
	cfg.IngramTokenURL = getEnvString("INGRAM_TOKEN_URL", "https://api.ingrammicro.com/oauth/oauth20/token")
	cfg.IngramCountryCode = getEnvString("INGRAM_COUNTRY_CODE", "US")
	cfg.CatalogRefreshInterval = getEnvDuration("CATALOG_REFRESH_INTERVAL", 30*time.Minute)
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitQuote = getEnvInt("RATE_LIMIT_QUOTE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
