package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	RequestTimeout time.Duration
	CatalogSource  string // file | mysql
	CatalogFile    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	RedisPrefix    string
	CacheTTL       time.Duration
	AMQPURL        string
	NotifyTimeout  time.Duration
	SessionTTL     time.Duration
	FeedBase       string
	FeedKey        string
	FeedRPS        int
	Workers        int
	Currency       string
}

// Load reads the environment, seeded from a .env file when one exists.
// Variables already set in the environment win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be read")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("not an integer, using default")
		}
		return def
	}
	secs := func(k string, def int) time.Duration { return time.Duration(atoi(k, def)) * time.Second }

	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		RequestTimeout: secs("HTTP_REQUEST_TIMEOUT_SECONDS", 15),
		CatalogSource:  strings.ToLower(env("CATALOG_SOURCE", "file")),
		CatalogFile:    env("CATALOG_FILE", "data/catalog.json"),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/travel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		RedisPrefix:    env("REDIS_PREFIX", "travel:"),
		CacheTTL:       secs("CACHE_TTL_SECONDS", 900),
		AMQPURL:        env("AMQP_URL", ""),
		NotifyTimeout:  secs("NOTIFY_TIMEOUT_SECONDS", 5),
		SessionTTL:     secs("SESSION_TTL_SECONDS", 1800),
		FeedBase:       env("FEED_BASE_URL", "http://localhost:8090/v1"),
		FeedKey:        env("FEED_API_KEY", ""),
		FeedRPS:        atoi("FEED_RPS", 5),
		Workers:        atoi("INGEST_WORKERS", 8),
		Currency:       strings.ToUpper(env("CURRENCY", "INR")),
	}
	if c.CatalogSource != "file" && c.CatalogSource != "mysql" {
		log.Warn().Str("source", c.CatalogSource).Msg("unknown CATALOG_SOURCE, using file")
		c.CatalogSource = "file"
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
