package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"dubnacoin/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	DBMaxConns  int32
	BotToken    string
	JWTSecret   string
	TokenTTL    time.Duration // 0 = capability tokens never expire

	InitDataMaxAge     time.Duration
	AccrualInterval    time.Duration
	SkinsDir           string
	AutoclickerPricing string
	AllowedOrigins     []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limits
	APIRateLimit    int
	APIRateWindow   time.Duration
	AuthRateLimit   int
	AuthRateWindow  time.Duration
	ClickRateLimit  int
	ClickRateWindow time.Duration

	LogLevel string
	LogJSON  bool
}

// Load reads configuration from the environment (and .env if present).
// Missing secrets are fatal: the server must never run partially authenticated.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	cfg := defaults()
	cfg.DatabaseURL = dbURL
	cfg.JWTSecret = jwtSecret
	cfg.BotToken = botToken
	applyOptional(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		AppPort:            "8080",
		DBMaxConns:         20,
		InitDataMaxAge:     24 * time.Hour,
		AccrualInterval:    10 * time.Second,
		SkinsDir:           "./static/images",
		AutoclickerPricing: "scaled",
		APIRateLimit:       120,
		APIRateWindow:      time.Minute,
		AuthRateLimit:      10,
		AuthRateWindow:     time.Minute,
		ClickRateLimit:     25,
		ClickRateWindow:    time.Second,
		LogLevel:           "info",
	}
}

func applyOptional(cfg *Config) {
	if v := os.Getenv("APP_PORT"); v != "" {
		cfg.AppPort = v
	}
	if v := os.Getenv("SKINS_DIR"); v != "" {
		cfg.SkinsDir = v
	}
	if v := os.Getenv("AUTOCLICKER_PRICING"); v != "" {
		cfg.AutoclickerPricing = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.LogJSON = os.Getenv("LOG_JSON") == "true"

	// Comma separated, e.g. https://app.example.com,https://web.telegram.org
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = envInt("REDIS_DB", 0)

	cfg.DBMaxConns = int32(envInt("DB_MAX_CONNS", int(cfg.DBMaxConns)))
	cfg.TokenTTL = envDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.InitDataMaxAge = envDuration("INIT_DATA_MAX_AGE", cfg.InitDataMaxAge)
	cfg.AccrualInterval = envDuration("ACCRUAL_INTERVAL", cfg.AccrualInterval)

	cfg.APIRateLimit = envInt("API_RATE_LIMIT", cfg.APIRateLimit)
	cfg.APIRateWindow = envSeconds("API_RATE_WINDOW_SECONDS", cfg.APIRateWindow)
	cfg.AuthRateLimit = envInt("AUTH_RATE_LIMIT", cfg.AuthRateLimit)
	cfg.AuthRateWindow = envSeconds("AUTH_RATE_WINDOW_SECONDS", cfg.AuthRateWindow)
	cfg.ClickRateLimit = envInt("CLICK_RATE_LIMIT", cfg.ClickRateLimit)
	cfg.ClickRateWindow = envSeconds("CLICK_RATE_WINDOW_SECONDS", cfg.ClickRateWindow)
}

// envInt returns a positive integer from env, or def.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Warn("ignoring invalid integer setting", "key", key, "value", v)
		return def
	}
	return n
}

// envDuration accepts Go durations ("10s", "24h") or bare seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	logger.Warn("ignoring invalid duration setting", "key", key, "value", v)
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	n := envInt(key, -1)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
