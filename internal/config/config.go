package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	CartStoreSQL    = "sql"
	CartStoreMongo  = "mongo"
	CartStoreMemory = "memory"
)

type Config struct {
	ServiceName     string        `mapstructure:"SERVICE_NAME"`
	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// DBDriver is "sqlite" or "postgres".
	DBDriver     string `mapstructure:"DB_DRIVER"`
	DBPath       string `mapstructure:"DB_PATH"`
	DBHost       string `mapstructure:"DB_HOST"`
	DBPort       string `mapstructure:"DB_PORT"`
	DBUser       string `mapstructure:"DB_USER"`
	DBPassword   string `mapstructure:"DB_PASSWORD"`
	DBName       string `mapstructure:"DB_NAME"`
	DBSSLMode    string `mapstructure:"DB_SSLMODE"`
	MigrationDir string `mapstructure:"MIGRATIONS_PATH"`

	// CartStore selects the cart backend: sql, mongo or memory.
	CartStore     string        `mapstructure:"CART_STORE"`
	MongoURI      string        `mapstructure:"MONGO_URI"`
	MongoDatabase string        `mapstructure:"MONGO_DATABASE"`
	MongoCartTTL  time.Duration `mapstructure:"MONGO_CART_TTL"`
	MongoMaxPool  uint64        `mapstructure:"MONGO_MAX_POOL"`
	MongoMinPool  uint64        `mapstructure:"MONGO_MIN_POOL"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CartCacheTTL  time.Duration `mapstructure:"CART_CACHE_TTL"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	NotifyWorkers    int    `mapstructure:"NOTIFY_WORKERS"`
	NotifyBufferSize int    `mapstructure:"NOTIFY_BUFFER"`
	MailFrom         string `mapstructure:"MAIL_FROM"`
	ShopName         string `mapstructure:"SHOP_NAME"`
	TrackingURL      string `mapstructure:"TRACKING_URL"`

	BreakerFailures int           `mapstructure:"BREAKER_FAILURES"`
	BreakerTimeout  time.Duration `mapstructure:"BREAKER_TIMEOUT"`
}

var defaults = map[string]any{
	"SERVICE_NAME":     "go-shop",
	"HTTP_PORT":        "8080",
	"REQUEST_TIMEOUT":  "30s",
	"SHUTDOWN_TIMEOUT": "10s",
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "json",
	"DB_DRIVER":        "sqlite",
	"DB_PATH":          "shop.db",
	"DB_HOST":          "localhost",
	"DB_PORT":          "5432",
	"DB_USER":          "postgres",
	"DB_PASSWORD":      "postgres",
	"DB_NAME":          "shop",
	"DB_SSLMODE":       "disable",
	"MIGRATIONS_PATH":  "internal/repository/migrations",
	"CART_STORE":       CartStoreSQL,
	"MONGO_URI":        "mongodb://localhost:27017",
	"MONGO_DATABASE":   "shop",
	"MONGO_CART_TTL":   "720h",
	"MONGO_MAX_POOL":   100,
	"MONGO_MIN_POOL":   10,
	"REDIS_ADDR":       "",
	"REDIS_PASSWORD":   "",
	"REDIS_DB":         0,
	"CART_CACHE_TTL":   "15m",
	"KAFKA_BROKERS":    "",
	"KAFKA_TOPIC":      "order-events",
	"NOTIFY_WORKERS":   2,
	"NOTIFY_BUFFER":    256,
	"MAIL_FROM":        "orders@go-shop.local",
	"SHOP_NAME":        "Go Shop",
	"TRACKING_URL":     "https://go-shop.local/track",
	"BREAKER_FAILURES": 5,
	"BREAKER_TIMEOUT":  "30s",
}

// Load reads defaults, then the optional file named by CONFIG_FILE, then environment variables.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.CartStore {
	case CartStoreSQL, CartStoreMongo, CartStoreMemory:
	default:
		return fmt.Errorf("unsupported CART_STORE %q", c.CartStore)
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be at least 1, got %d", c.NotifyWorkers)
	}
	return nil
}

func (c *Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
