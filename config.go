package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"contest-rooms/code"

	"github.com/joho/godotenv"
)

type StoreBackend string

const (
	StoreMemory   StoreBackend = "memory"
	StoreRedis    StoreBackend = "redis"
	StorePostgres StoreBackend = "postgres"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type GitHubConfig struct {
	APIURL string
	Repo   string
	Path   string
	Ref    string
	Token  string
}

type Config struct {
	Port               string
	JwtSecret          string
	TokenTTL           time.Duration
	LogLevel           string
	LogFormat          string
	AllowedOrigins     []string
	RateLimitPerMinute int

	StoreBackend    StoreBackend
	Redis           RedisConfig
	DatabaseURL     string
	CodeLength      int
	CodeMaxAttempts int

	Problems   []string
	GitHub     GitHubConfig
	CatalogTTL time.Duration
}

func MustLoadConfig() *Config {
	godotenv.Load()
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		panic("JWT_SECRET is not provided!")
	}
	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		JwtSecret:          jwtSecret,
		TokenTTL:           getDuration("TOKEN_TTL", 24*time.Hour),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		AllowedOrigins:     getList("ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 60),
		StoreBackend:       StoreBackend(getEnv("STORE_BACKEND", string(StoreMemory))),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        getInt("REDIS_DB", 0),
			KeyPrefix: os.Getenv("REDIS_KEY_PREFIX"),
		},
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CodeLength:      getInt("CODE_LENGTH", code.DefaultLength),
		CodeMaxAttempts: getInt("CODE_MAX_ATTEMPTS", code.DefaultMaxAttempts),
		Problems:        getList("PROBLEMS", nil),
		GitHub: GitHubConfig{
			APIURL: os.Getenv("GITHUB_API_URL"),
			Repo:   os.Getenv("GITHUB_REPO"),
			Path:   getEnv("GITHUB_PROBLEMS_PATH", "problems"),
			Ref:    os.Getenv("GITHUB_REF"),
			Token:  os.Getenv("GITHUB_TOKEN"),
		},
		CatalogTTL: getDuration("CATALOG_TTL", 5*time.Minute),
	}
	switch cfg.StoreBackend {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required for the postgres store!")
		}
	default:
		panic("unknown STORE_BACKEND: " + string(cfg.StoreBackend))
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
