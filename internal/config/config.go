package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SessionStorageFile   = "file"
	SessionStorageMemory = "memory"
	SessionStorageRedis  = "redis"
)

type Config struct {
	APIBaseURL string
	APITimeout time.Duration

	SessionStorage string
	SessionDir     string
	TerminalID     string

	TaxRate            float64
	DiscountRate       float64
	LateFeePerDayCents int64
	CacheTTL           time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	LogLevel           string

	// MetricsFile, when set, receives the client's request metrics in
	// the prometheus text format after every posctl run.
	MetricsFile string

	Port                  string
	AllowedOrigins        []string
	DatabaseURL           string
	AuthSecret            string
	AccessTokenTTLMinutes int
}

// Load layers environment (POS_ prefix), an optional yaml file named by
// POS_CONFIG_FILE, a .env file and defaults, in that order of precedence.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path := strings.TrimSpace(os.Getenv("POS_CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		// A missing or broken file leaves env and defaults in effect.
		_ = v.ReadInConfig()
	}

	timeout := v.GetDuration("api.timeout")
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cacheTTL := v.GetDuration("cache.ttl")
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	taxRate := v.GetFloat64("pricing.tax_rate")
	if taxRate < 0 || taxRate >= 1 {
		taxRate = 0.07
	}
	discountRate := v.GetFloat64("pricing.discount_rate")
	if discountRate < 0 || discountRate > 1 {
		discountRate = 0.10
	}
	lateFee := v.GetInt64("pricing.late_fee_per_day_cents")
	if lateFee < 0 {
		lateFee = 1000
	}
	tokenTTL := v.GetInt("server.access_token_ttl_minutes")
	if tokenTTL < 1 {
		tokenTTL = 480
	}
	storage := strings.ToLower(strings.TrimSpace(v.GetString("session.storage")))
	switch storage {
	case SessionStorageFile, SessionStorageMemory, SessionStorageRedis:
	default:
		storage = SessionStorageFile
	}

	return Config{
		APIBaseURL:            strings.TrimRight(v.GetString("api.base_url"), "/"),
		APITimeout:            timeout,
		SessionStorage:        storage,
		SessionDir:            v.GetString("session.dir"),
		TerminalID:            v.GetString("session.terminal_id"),
		TaxRate:               taxRate,
		DiscountRate:          discountRate,
		LateFeePerDayCents:    lateFee,
		CacheTTL:              cacheTTL,
		RedisAddr:             v.GetString("redis.addr"),
		RedisPassword:         v.GetString("redis.password"),
		RedisDB:               v.GetInt("redis.db"),
		LogLevel:              v.GetString("log.level"),
		MetricsFile:           strings.TrimSpace(v.GetString("metrics.file")),
		Port:                  v.GetString("server.port"),
		AllowedOrigins:        splitOrigins(v.GetString("server.allowed_origins")),
		DatabaseURL:           v.GetString("server.database_url"),
		AuthSecret:            strings.TrimSpace(v.GetString("server.auth_secret")),
		AccessTokenTTLMinutes: tokenTTL,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://127.0.0.1:8080")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("session.storage", SessionStorageFile)
	v.SetDefault("session.dir", defaultSessionDir())
	v.SetDefault("session.terminal_id", "terminal-1")
	v.SetDefault("pricing.tax_rate", 0.07)
	v.SetDefault("pricing.discount_rate", 0.10)
	v.SetDefault("pricing.late_fee_per_day_cents", 1000)
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.file", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", "http://127.0.0.1:3000")
	v.SetDefault("server.database_url", "")
	v.SetDefault("server.auth_secret", "")
	v.SetDefault("server.access_token_ttl_minutes", 480)
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".storepos"
	}
	return filepath.Join(home, ".storepos")
}

func splitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
