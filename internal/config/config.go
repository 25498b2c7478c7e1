package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort               = "8080"
	defaultSteamBaseURL       = "https://store.steampowered.com"
	defaultSteamLanguage      = "en"
	defaultDetailsCountry     = "us"
	defaultGeolocationURL     = "https://ipapi.co/json/"
	defaultCountry            = "US"
	defaultUpstreamTimeout    = 10 * time.Second
	defaultGeolocationTimeout = 5 * time.Second
	defaultCacheTTL           = 1 * time.Hour
	defaultPurgeInterval      = 10 * time.Minute
	defaultRateLimitBurst     = 20
	defaultUserAgent          = "GameRadar/1.0"
)

// Config holds all runtime settings. Everything comes from the environment,
// optionally seeded from a .env file in the working directory.
type Config struct {
	Port    string
	GinMode string

	LogLevel  string
	LogFormat string

	SteamBaseURL        string
	SteamLanguage       string
	SteamDetailsCountry string
	UserAgent           string
	UpstreamTimeout     time.Duration

	GeolocationURL     string
	GeolocationTimeout time.Duration
	DefaultCountry     string

	CacheTTL           time.Duration
	CachePurgeInterval time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CacheDBPath        string

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string
}

// Load reads .env (if present) and the process environment.
// Malformed values are logged and replaced by their defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config: could not load .env file", "error", err)
	}

	return &Config{
		Port:    getString("PORT", defaultPort),
		GinMode: getString("GIN_MODE", "release"),

		LogLevel:  getString("LOG_LEVEL", "info"),
		LogFormat: getString("LOG_FORMAT", "text"),

		SteamBaseURL:        strings.TrimRight(getString("STEAM_BASE_URL", defaultSteamBaseURL), "/"),
		SteamLanguage:       getString("STEAM_LANGUAGE", defaultSteamLanguage),
		SteamDetailsCountry: strings.ToLower(getString("STEAM_DETAILS_COUNTRY", defaultDetailsCountry)),
		UserAgent:           getString("USER_AGENT", defaultUserAgent),
		UpstreamTimeout:     getDuration("UPSTREAM_TIMEOUT", defaultUpstreamTimeout),

		GeolocationURL:     getString("GEOLOCATION_URL", defaultGeolocationURL),
		GeolocationTimeout: getDuration("GEOLOCATION_TIMEOUT", defaultGeolocationTimeout),
		DefaultCountry:     strings.ToUpper(getString("DEFAULT_COUNTRY", defaultCountry)),

		CacheTTL:           getDuration("CACHE_TTL", defaultCacheTTL),
		CachePurgeInterval: getDuration("CACHE_PURGE_INTERVAL", defaultPurgeInterval),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getInt("REDIS_DB", 0),
		CacheDBPath:        os.Getenv("CACHE_DB_PATH"),

		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", defaultRateLimitBurst),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

// CacheBackend names the cache backend the settings select.
// Redis wins over SQLite, and memory is the fallback.
func (c *Config) CacheBackend() string {
	switch {
	case c.RedisAddr != "":
		return "redis"
	case c.CacheDBPath != "":
		return "sqlite"
	default:
		return "memory"
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		slog.Warn("config: invalid integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		slog.Warn("config: invalid number, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("config: invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
