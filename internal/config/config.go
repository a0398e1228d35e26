package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Mongo     Mongo     `yaml:"mongo"`
	Redis     Redis     `yaml:"redis"`
	Catalog   Catalog   `yaml:"catalog"`
	Store     Store     `yaml:"store"`
	Cart      Cart      `yaml:"cart"`
	Order     Order     `yaml:"order"`
	Auth      Auth      `yaml:"auth"`
	Kafka     Kafka     `yaml:"kafka"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type HTTP struct {
	Port               string        `yaml:"port"                  env:"HTTP_PORT"                  env-default:"8080"`
	RequestTimeout     time.Duration `yaml:"request_timeout"       env:"HTTP_REQUEST_TIMEOUT"       env-default:"30s"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"      env:"HTTP_SHUTDOWN_TIMEOUT"      env-default:"10s"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size" env:"HTTP_MAX_REQUEST_BODY_SIZE" env-default:"1048576"`
}

type Mongo struct {
	URI            string        `yaml:"uri"             env:"MONGO_URI"             env-default:"mongodb://localhost:27017"`
	Database       string        `yaml:"database"        env:"MONGO_DB_NAME"         env-default:"shopdb"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT" env-default:"10s"`
}

type Redis struct {
	Addr     string        `yaml:"addr"     env:"REDIS_ADDR"     env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
	CartTTL  time.Duration `yaml:"cart_ttl" env:"REDIS_CART_TTL" env-default:"15m"`
}

type Catalog struct {
	Timeout        time.Duration `yaml:"timeout"          env:"CATALOG_TIMEOUT"          env-default:"2s"`
	CBMaxFailures  uint32        `yaml:"cb_max_failures"  env:"CATALOG_CB_MAX_FAILURES"  env-default:"5"`
	CBResetTimeout time.Duration `yaml:"cb_reset_timeout" env:"CATALOG_CB_RESET_TIMEOUT" env-default:"15s"`
}

type Store struct {
	Timeout time.Duration `yaml:"timeout" env:"STORE_TIMEOUT" env-default:"5s"`
}

type Cart struct {
	DefaultCurrency   string `yaml:"default_currency"    env:"CART_DEFAULT_CURRENCY"    env-default:"INR"`
	FallbackImagePath string `yaml:"fallback_image_path" env:"CART_FALLBACK_IMAGE_PATH" env-default:"/static/images/placeholder.png"`
}

type Order struct {
	CodeAttempts int `yaml:"code_attempts" env:"ORDER_CODE_ATTEMPTS" env-default:"3"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic"   env:"KAFKA_ORDER_TOPIC" env-default:"order-placed"`
}

type Telemetry struct {
	ServiceName  string `yaml:"service_name"  env:"SERVICE_NAME"                env-default:"shop-service"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel     string `yaml:"log_level"     env:"LOG_LEVEL"                   env-default:"info"`
}

// Load reads the YAML file at path when one is given, otherwise the
// environment alone. Environment variables always win over the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("reading env config: %w", err)
		}
		return &cfg, cfg.validate()
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Order.CodeAttempts < 1 {
		return fmt.Errorf("order code attempts must be at least 1, got %d", c.Order.CodeAttempts)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store timeout must be positive")
	}
	return nil
}
