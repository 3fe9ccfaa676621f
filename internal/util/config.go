package util

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	defaultIPWindow          = 1 * time.Hour
	defaultIPMaxAttempts     = 100
	defaultLoginWindow       = 15 * time.Minute
	defaultLoginMaxAttempts  = 10
	defaultAccountLockTTL    = 1 * time.Hour
	defaultBlacklistSweep    = 1 * time.Hour
	defaultCsrfTokenTTL      = 24 * time.Hour
	defaultDocsRateLimit     = 30
	defaultDocsRateWindow    = 15 * time.Minute
	defaultRapidRequestLimit = 30

	JWTLeeWay = 5 * time.Second
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	Production      bool
	SentryDSN       string
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	return &ServerConfig{
		ServerAddr:      addr,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
		Production:      os.Getenv("APP_ENV") == "production",
		SentryDSN:       os.Getenv("SENTRY_DSN"),
	}
}

type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewTokenConfig() *TokenConfig {
	accessSecret := os.Getenv("JWT_SECRET")
	if accessSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	refreshSecret := os.Getenv("REFRESH_TOKEN_SECRET")
	if refreshSecret == "" {
		log.Fatal("REFRESH_TOKEN_SECRET is not set")
	}
	return &TokenConfig{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL:    parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
	}
}

// BruteForceConfig holds the counter limits and windows for the login guard:
// 100 attempts per IP per hour, 10 consecutive fails per username+IP per
// 15 minutes, 1 hour account lock.
type BruteForceConfig struct {
	IPWindow          time.Duration
	IPMaxAttempts     int64
	LoginWindow       time.Duration
	LoginMaxAttempts  int64
	AccountLockTTL    time.Duration
	RapidRequestLimit int64
}

func NewBruteForceConfig() *BruteForceConfig {
	return &BruteForceConfig{
		IPWindow:          parseDurationOrDefault("BRUTEFORCE_IP_WINDOW", defaultIPWindow),
		IPMaxAttempts:     parseIntOrDefault("BRUTEFORCE_IP_MAX_ATTEMPTS", defaultIPMaxAttempts),
		LoginWindow:       parseDurationOrDefault("BRUTEFORCE_LOGIN_WINDOW", defaultLoginWindow),
		LoginMaxAttempts:  parseIntOrDefault("BRUTEFORCE_LOGIN_MAX_ATTEMPTS", defaultLoginMaxAttempts),
		AccountLockTTL:    parseDurationOrDefault("BRUTEFORCE_ACCOUNT_LOCK_TTL", defaultAccountLockTTL),
		RapidRequestLimit: parseIntOrDefault("BRUTEFORCE_RAPID_REQUEST_LIMIT", defaultRapidRequestLimit),
	}
}

// BlacklistConfig selects the revocation store. "memory" fits a single
// instance; "redis" shares one revocation set across instances.
type BlacklistConfig struct {
	Backend       string
	SweepInterval time.Duration
}

func NewBlacklistConfig() *BlacklistConfig {
	backend := os.Getenv("BLACKLIST_BACKEND")
	if backend == "" {
		backend = "memory"
	}

	return &BlacklistConfig{
		Backend:       backend,
		SweepInterval: parseDurationOrDefault("BLACKLIST_SWEEP_INTERVAL", defaultBlacklistSweep),
	}
}

type CsrfConfig struct {
	TokenTTL time.Duration
	Secure   bool
}

func NewCsrfConfig(production bool) *CsrfConfig {
	return &CsrfConfig{
		TokenTTL: parseDurationOrDefault("CSRF_TOKEN_TTL", defaultCsrfTokenTTL),
		Secure:   production,
	}
}

/// DocsConfig protects the OpenAPI documentation endpoint in production:
// basic auth plus a per-IP rate limit.
type DocsConfig struct {
	Username   string
	Password   string
	RateLimit  int64
	RateWindow time.Duration
	Protected  bool
}

func NewDocsConfig(production bool) *DocsConfig {
	return &DocsConfig{
		Username:   os.Getenv("DOCS_USERNAME"),
		Password:   os.Getenv("DOCS_PASSWORD"),
		RateLimit:  parseIntOrDefault("DOCS_RATE_LIMIT", defaultDocsRateLimit),
		RateWindow: parseDurationOrDefault("DOCS_RATE_WINDOW", defaultDocsRateWindow),
		Protected:  production,
	}
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}

func parseIntOrDefault(varName string, def int64) int64 {
	if v := os.Getenv(varName); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		log.Printf("Invalid integer in %s: %s, using default %d", varName, v, def)
	}
	return def
}
