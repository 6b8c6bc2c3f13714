package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort        string `mapstructure:"HTTP_PORT"`
	Currency        string `mapstructure:"CURRENCY"`
	RequestTimeout  int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	ShutdownTimeout int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`

	RedisAddr string `mapstructure:"REDIS_ADDR"`

	MongoURI         string `mapstructure:"MONGO_URI"`
	MongoDatabase    string `mapstructure:"MONGO_DATABASE"`
	CouponCollection string `mapstructure:"COUPON_COLLECTION"`

	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         int    `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`

	ProcessorBaseURL string `mapstructure:"PROCESSOR_BASE_URL"`
	ProcessorAPIKey  string `mapstructure:"PROCESSOR_API_KEY"`

	CRMBaseURL string `mapstructure:"CRM_BASE_URL"`
	CRMAPIKey  string `mapstructure:"CRM_API_KEY"`

	BuilderBaseURL string `mapstructure:"BUILDER_BASE_URL"`
}

func (c *Config) Brokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// Load reads configuration from app.env (when present) with environment
// variables taking precedence.
func Load(path string) (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("env")
	viper.AddConfigPath(path)

	setDefaults()
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// env-only configuration is fine
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("CURRENCY", "USD")
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	viper.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "portal")
	viper.SetDefault("COUPON_COLLECTION", "coupons")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "portal")
	viper.SetDefault("MIGRATIONS_PATH", "./internal/repository/migrations")
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("PROCESSOR_BASE_URL", "http://localhost:9680")
	viper.SetDefault("CRM_BASE_URL", "http://localhost:9681")
	viper.SetDefault("BUILDER_BASE_URL", "http://localhost:9682")
}
