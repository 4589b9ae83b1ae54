package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	SearchTimeout      time.Duration
	HTTPRateLimitRPS   int
	HTTPRateLimitBurst int
	TMDBAPIKey         string
	TMDBBaseURL        string
	TMDBLanguage       string
	TMDBTimeout        time.Duration
	TMDBRateLimitRPS   int
	TMDBRetryAttempts  int
	TMDBRetryBase      time.Duration
	RedisURL           string
	CacheDisabled      bool
	CacheSweepInterval time.Duration
	CacheMaxEntries    int
	MongoURI           string
	MongoDatabase      string
	RosterFile         string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8000"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		SearchTimeout:      time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 25)) * time.Second,
		HTTPRateLimitRPS:   getEnvInt("HTTP_RATE_LIMIT_RPS", 20),
		HTTPRateLimitBurst: getEnvInt("HTTP_RATE_LIMIT_BURST", 40),
		TMDBAPIKey:         strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:        getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBLanguage:       getEnv("TMDB_LANGUAGE", "en-US"),
		TMDBTimeout:        time.Duration(getEnvInt("TMDB_TIMEOUT_SECONDS", 10)) * time.Second,
		TMDBRateLimitRPS:   getEnvInt("TMDB_RATE_LIMIT_RPS", 35),
		TMDBRetryAttempts:  getEnvInt("TMDB_RETRY_ATTEMPTS", 3),
		TMDBRetryBase:      time.Duration(getEnvInt("TMDB_RETRY_BASE_MS", 500)) * time.Millisecond,
		RedisURL:           getEnv("REDIS_URL", ""),
		CacheDisabled:      getEnvBool("SEARCH_CACHE_DISABLED", false),
		CacheSweepInterval: time.Duration(getEnvInt("CACHE_SWEEP_MINUTES", 10)) * time.Minute,
		CacheMaxEntries:    getEnvInt("CACHE_MAX_ENTRIES", 5000),
		MongoURI:           getEnv("MONGO_URI", ""),
		MongoDatabase:      getEnv("MONGO_DATABASE", "findingmovie"),
		RosterFile:         getEnv("ROSTER_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
