package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"DripView/pkg/util"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendRedis      = "redis"
	BackendMemory     = "memory"
)

type Config struct {
	App struct {
		Env  string `yaml:"env" default:"development"`
		Name string `yaml:"name" default:"dripview"`
	} `yaml:"app"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowOrigins    []string      `yaml:"allow_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		// Collect ships aggregated error logs to kafka.logs_topic.
		Collect bool `yaml:"collect"`
	} `yaml:"log"`
	Auth struct {
		Secret          string `yaml:"secret"`
		Issuer          string `yaml:"issuer"`
		TrustUserHeader bool   `yaml:"trust_user_header"`
	} `yaml:"auth"`
	Redis struct {
		Addr        string        `yaml:"addr" default:"localhost:6379"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		Prefix      string        `yaml:"prefix" default:"dripview"`
		PoolSize    int           `yaml:"pool_size" default:"20"`
		MinIdle     int           `yaml:"min_idle" default:"4"`
		PoolTimeout time.Duration `yaml:"pool_timeout" default:"4s"`
	} `yaml:"redis"`
	Provider struct {
		BaseURL          string        `yaml:"base_url" default:"https://yh-finance.p.rapidapi.com"`
		Host             string        `yaml:"host" default:"yh-finance.p.rapidapi.com"`
		Timeout          time.Duration `yaml:"timeout" default:"15s"`
		Retries          int           `yaml:"retries" default:"3"`
		Backoff          time.Duration `yaml:"backoff" default:"300ms"`
		CacheTTL         time.Duration `yaml:"cache_ttl" default:"15m"`
		LocalCacheSize   int           `yaml:"local_cache_size" default:"256"`
		BreakerRequests  uint32        `yaml:"breaker_min_requests" default:"5"`
		BreakerRatio     float64       `yaml:"breaker_failure_ratio" default:"0.5"`
		BreakerOpenFor   time.Duration `yaml:"breaker_open_for" default:"30s"`
		ServiceKey       string        `yaml:"service_key"`
		MaxConcurrentReq int           `yaml:"max_concurrent" default:"5"`
	} `yaml:"provider"`
	RateLimit struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		Backend string        `yaml:"backend" default:"redis"`
		Limit   int           `yaml:"limit" default:"30"`
		Window  time.Duration `yaml:"window" default:"60s"`
	} `yaml:"ratelimit"`
	Archive struct {
		Enabled      bool          `yaml:"enabled"`
		Backend      string        `yaml:"backend" default:"clickhouse"`
		BatchSize    int           `yaml:"batch_size" default:"1000"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
		BufferSize   int           `yaml:"buffer_size" default:"64"`
	} `yaml:"archive"`
	Kafka struct {
		Brokers   []string `yaml:"brokers"`
		BarsTopic string   `yaml:"bars_topic" default:"daily_bars"`
		LogsTopic string   `yaml:"logs_topic" default:"logs"`
		Producer  struct {
			RequiredAcks int           `yaml:"required_acks" default:"1"`
			Compression  string        `yaml:"compression" default:"snappy"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"500"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled     bool          `yaml:"enabled"`
			GroupID     string        `yaml:"group_id" default:"dripview-archive"`
			OffsetReset string        `yaml:"offset_reset" default:"earliest"` // earliest or latest
			Workers     int           `yaml:"workers" default:"2"`
			BufferSize  int           `yaml:"buffer_size" default:"256"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic    string        `yaml:"dlq_topic" default:"daily_bars_dlq"`
			MinBytes    int           `yaml:"min_bytes" default:"1"`
			MaxBytes    int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"dripview"`
		Username    string        `yaml:"username" default:"default"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
		AsyncInsert bool          `yaml:"async_insert"`
		InitSchema  bool          `yaml:"init_schema" default:"true"`
	} `yaml:"clickhouse"`
	Refresher struct {
		Enabled    bool          `yaml:"enabled"`
		Schedule   string        `yaml:"schedule" default:"30 17 * * 1-5"`
		Symbols    []string      `yaml:"symbols"`
		Workers    int           `yaml:"workers" default:"2"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
		JobTimeout time.Duration `yaml:"job_timeout" default:"60s"`
	} `yaml:"refresher"`
}

// Load reads and parses a YAML configuration file. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (when present), then the YAML file, then applies
// environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := read(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if path == "" {
		return &c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("APP_ENV"); v != "" {
		c.App.Env = v
	}
	if v := getenv("AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	} else if v := getenv("NEXTAUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("RAPIDAPI_SERVICE_KEY"); v != "" {
		c.Provider.ServiceKey = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
}

// IsProduction reports whether error details should be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, EnvProduction)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.App.Env == "" {
		return fmt.Errorf("app.env is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.IsProduction() && c.Auth.TrustUserHeader {
		return fmt.Errorf("auth.trust_user_header must be off in production")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.Retries < 1 {
		return fmt.Errorf("provider.retries must be >= 1, got %d", c.Provider.Retries)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Backend != BackendRedis && c.RateLimit.Backend != BackendMemory {
			return fmt.Errorf("ratelimit.backend must be 'redis' or 'memory', got '%s'", c.RateLimit.Backend)
		}
		if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
			return fmt.Errorf("ratelimit.limit and ratelimit.window must be positive")
		}
	}

	if c.Archive.Enabled {
		switch c.Archive.Backend {
		case BackendKafka:
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers cannot be empty when archive.backend is kafka")
			}
		case BackendClickHouse:
		default:
			return fmt.Errorf("archive.backend must be 'kafka' or 'clickhouse', got '%s'", c.Archive.Backend)
		}
		if c.Archive.BatchSize <= 0 {
			return fmt.Errorf("archive.batch_size must be positive")
		}
	}
	if c.Log.Collect && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when log.collect is enabled")
	}
	if c.Kafka.Consumer.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka.consumer is enabled")
		}
		if r := c.Kafka.Consumer.OffsetReset; r != "earliest" && r != "latest" {
			return fmt.Errorf("kafka.consumer.offset_reset must be 'earliest' or 'latest', got '%s'", r)
		}
	}

	if c.Refresher.Enabled && len(c.Refresher.Symbols) == 0 {
		return fmt.Errorf("refresher.symbols cannot be empty when refresher is enabled")
	}
	return nil
}
