package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// 缓存驱动
const (
	CacheDriverMemory   = "memory"
	CacheDriverLRU      = "lru"
	CacheDriverRedis    = "redis"
	CacheDriverPostgres = "postgres"
)

// Config 应用配置
type Config struct {
	Env      string
	Port     string `validate:"required,numeric"`
	LogLevel string

	CORSAllowOrigins []string `validate:"min=1"`

	// 缓存
	CacheDriver    string `validate:"oneof=memory lru redis postgres"`
	CacheWriteOnly bool
	CacheLRUSize   int    `validate:"gt=0"`
	RedisURL       string `validate:"required_if=CacheDriver redis"`
	DatabaseURL    string `validate:"required_if=CacheDriver postgres"`

	WatchlistTTL time.Duration `validate:"gt=0"`
	BechdelTTL   time.Duration `validate:"gt=0"`
	JustWatchTTL time.Duration `validate:"gt=0"`
	NetflixTTL   time.Duration `validate:"gt=0"`

	// 批处理与限流
	BatchSize       int           `validate:"gt=0"`
	BechdelRPS      float64       `validate:"gt=0"`
	NetflixRPS      float64       `validate:"gt=0"`
	UpstreamTimeout time.Duration `validate:"gt=0"`

	// JustWatch 匹配阈值
	JustWatchLocale        string `validate:"required"`
	JustWatchExactDistance int    `validate:"gte=0"`
	JustWatchFuzzyDistance int    `validate:"gtefield=JustWatchExactDistance"`

	// 地区 Netflix
	NetflixLocale    string `validate:"required"`
	NetflixCountries map[string]string

	// 上游地址
	IMDbURL      string `validate:"required,url"`
	BechdelURL   string `validate:"required,url"`
	JustWatchURL string `validate:"required,url"`
	FlixlistURL  string `validate:"required,contains=%s"`
	NetflixURL   string `validate:"required,url"`
}

// Load 加载配置
func Load() *Config {
	return &Config{
		Env:      getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "3001"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CORSAllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),

		CacheDriver:    getEnv("CACHE_DRIVER", CacheDriverMemory),
		CacheWriteOnly: getBool("CACHE_WRITE_ONLY", false),
		CacheLRUSize:   getInt("CACHE_LRU_SIZE", 10000),
		RedisURL:       getEnv("REDIS_URL", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		WatchlistTTL: getDuration("WATCHLIST_TTL", time.Hour),
		BechdelTTL:   getDuration("BECHDEL_TTL", 7*24*time.Hour),
		JustWatchTTL: getDuration("JUSTWATCH_TTL", 24*time.Hour),
		NetflixTTL:   getDuration("NETFLIX_TTL", 24*time.Hour),

		BatchSize:       getInt("BATCH_SIZE", 50),
		BechdelRPS:      getFloat("BECHDEL_RPS", 10),
		NetflixRPS:      getFloat("NETFLIX_RPS", 5),
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 15*time.Second),

		JustWatchLocale:        getEnv("JUSTWATCH_LOCALE", "en_US"),
		JustWatchExactDistance: getInt("JUSTWATCH_EXACT_DISTANCE", 0),
		JustWatchFuzzyDistance: getInt("JUSTWATCH_FUZZY_DISTANCE", 5),

		NetflixLocale:    getEnv("NETFLIX_LOCALE", "is"),
		NetflixCountries: parseCountries(getEnv("NETFLIX_COUNTRIES", "is:denmark,de:germany")),

		IMDbURL:      getEnv("IMDB_URL", "http://www.imdb.com"),
		BechdelURL:   getEnv("BECHDEL_URL", "http://bechdeltest.com"),
		JustWatchURL: getEnv("JUSTWATCH_URL", "https://api.justwatch.com"),
		FlixlistURL:  getEnv("FLIXLIST_URL", "http://%s.flixlist.co"),
		NetflixURL:   getEnv("NETFLIX_URL", "https://www.netflix.com"),
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if _, ok := c.NetflixCountries[c.NetflixLocale]; !ok {
		return fmt.Errorf("配置校验失败: NETFLIX_LOCALE %q 没有对应的 NETFLIX_COUNTRIES", c.NetflixLocale)
	}
	return nil
}

// parseCountries 解析 "is:denmark,de:germany"
func parseCountries(s string) map[string]string {
	countries := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		locale, country, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || locale == "" || country == "" {
			continue
		}
		countries[locale] = country
	}
	return countries
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
