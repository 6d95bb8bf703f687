package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string
	BlockTime    time.Duration

	// Search jobs
	Marketplace    string
	SearchKeywords []string
	SearchCategory string
	SearchLimit    int
	CrawlInterval  time.Duration

	// Scraper behaviour
	Concurrency       int
	Timeout           time.Duration
	SinglePageOnly    bool
	RandomUserAgent   bool
	UserAgent         string
	Referers          []string
	Cookie            string
	Proxies           []string
	ProxyListURL      string
	RequestsPerSecond float64

	// Search result cache
	SearchCacheSize int
	SearchCacheTTL  time.Duration

	HTTPAddr     string
	ErrorLogFile string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "products"),
		RedisStreamCount:     getInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getInt("REDIS_STREAM_MAX_LENGTH", 1000),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		BlockTime:            time.Duration(getInt("BLOCK_TIME_SECONDS", 300)) * time.Second,
		Marketplace:          getEnv("MARKETPLACE", "US"),
		SearchKeywords:       getStringSlice("SEARCH_KEYWORDS", nil),
		SearchCategory:       getEnv("SEARCH_CATEGORY", ""),
		SearchLimit:          getInt("SEARCH_LIMIT", 20),
		CrawlInterval:        time.Duration(getInt("CRAWL_INTERVAL_SECONDS", 600)) * time.Second,
		Concurrency:          getInt("SCRAPER_CONCURRENCY", 5),
		Timeout:              time.Duration(getInt("SCRAPER_TIMEOUT_MS", 500)) * time.Millisecond,
		SinglePageOnly:       getBool("SCRAPER_SINGLE_PAGE", false),
		RandomUserAgent:      getBool("SCRAPER_RANDOM_UA", true),
		UserAgent:            getEnv("SCRAPER_USER_AGENT", ""),
		Referers:             getStringSlice("SCRAPER_REFERERS", nil),
		Cookie:               getEnv("SCRAPER_COOKIE", ""),
		Proxies:              getStringSlice("SCRAPER_PROXIES", nil),
		ProxyListURL:         getEnv("PROXY_LIST_URL", ""),
		RequestsPerSecond:    getFloat("SCRAPER_REQUESTS_PER_SECOND", 0),
		SearchCacheSize:      getInt("SEARCH_CACHE_SIZE", 128),
		SearchCacheTTL:       time.Duration(getInt("SEARCH_CACHE_TTL_SECONDS", 300)) * time.Second,
		HTTPAddr:             getEnv("HTTP_ADDR", ""),
		ErrorLogFile:         getEnv("ERROR_LOG_FILE", "error.log"),
		Environment:          getEnv("APP_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.SearchLimit <= 0 || c.SearchLimit > 1000 {
		return fmt.Errorf("SEARCH_LIMIT must be between 1 and 1000, got %d", c.SearchLimit)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("SCRAPER_CONCURRENCY must be at least 1")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("SCRAPER_TIMEOUT_MS must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("SCRAPER_REQUESTS_PER_SECOND cannot be negative")
	}
	if c.RedisStreamCount < 1 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be at least 1")
	}
	if c.CrawlInterval <= 0 {
		return fmt.Errorf("CRAWL_INTERVAL_SECONDS must be positive")
	}
	if c.SearchCacheSize < 0 {
		return fmt.Errorf("SEARCH_CACHE_SIZE cannot be negative")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getStringSlice splits a comma separated variable, dropping empty entries
func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
