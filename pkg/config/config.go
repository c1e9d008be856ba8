package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Redis struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size"`
		MinIdleConns int           `yaml:"min_idle_conns"`
		PoolTimeout  time.Duration `yaml:"pool_timeout"`
		Prefix       string        `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		AuditTopic   string   `yaml:"audit_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Providers struct {
		RateURL          string        `yaml:"rate_url"`
		VolatilityURL    string        `yaml:"volatility_url"`
		EventRiskURL     string        `yaml:"event_risk_url"`
		APIKey           string        `yaml:"api_key"`
		Timeout          time.Duration `yaml:"timeout"`
		VolatilitySource string        `yaml:"volatility_source"` // http or stream
	} `yaml:"providers"`
	VolStream struct {
		Enabled        bool          `yaml:"enabled"`
		URL            string        `yaml:"url"`
		APIKey         string        `yaml:"api_key"`
		Tickers        []string      `yaml:"tickers"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxSampleAge   time.Duration `yaml:"max_sample_age"`
	} `yaml:"volstream"`
	Resolver struct {
		RetryMax     int           `yaml:"retry_max"`
		BackoffBase  time.Duration `yaml:"backoff_base"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
		Breaker      struct {
			FailureThreshold uint32        `yaml:"failure_threshold"`
			Cooldown         time.Duration `yaml:"cooldown"`
		} `yaml:"breaker"`
	} `yaml:"resolver"`
	Pricing struct {
		DaysInYear             int     `yaml:"days_in_year"`
		VolatilityFactor       string  `yaml:"volatility_factor"`
		EventRiskFactor        string  `yaml:"event_risk_factor"`
		DefaultMinRate         string  `yaml:"default_min_rate"`
		DefaultVolatilityIndex string  `yaml:"default_volatility_index"`
		DefaultEventRisk       int     `yaml:"default_event_risk"`
	} `yaml:"pricing"`
	Cache struct {
		MemoryMaxSize int `yaml:"memory_max_size"`
		TTL           struct {
			Rate         time.Duration `yaml:"rate"`
			Volatility   time.Duration `yaml:"volatility"`
			EventRisk    time.Duration `yaml:"event_risk"`
			StockRef     time.Duration `yaml:"stock_ref"`
			BrokerConfig time.Duration `yaml:"broker_config"`
			Calculation  time.Duration `yaml:"calculation"`
		} `yaml:"ttl"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		c.Providers.APIKey = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("VOLSTREAM_TICKERS"); v != "" {
		c.VolStream.Tickers = strings.Split(v, ",")
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Providers.RateURL == "" {
		return fmt.Errorf("providers.rate_url is required")
	}
	switch c.Providers.VolatilitySource {
	case "", "http", "stream":
	default:
		return fmt.Errorf("providers.volatility_source must be 'http' or 'stream', got '%s'", c.Providers.VolatilitySource)
	}
	if c.Providers.VolatilitySource == "stream" && !c.VolStream.Enabled {
		return fmt.Errorf("providers.volatility_source=stream requires volstream.enabled")
	}
	if c.Pricing.DaysInYear < 0 {
		return fmt.Errorf("pricing.days_in_year must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
