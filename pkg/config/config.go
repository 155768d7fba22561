package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Stream struct {
		Symbol         string        `yaml:"symbol" validate:"required"`
		Timeframe      string        `yaml:"timeframe" default:"5m" validate:"oneof=1m 5m 15m 1h 4h"`
		BootstrapCount int           `yaml:"bootstrap_count" default:"300" validate:"gt=0"`
		WindowSize     int           `yaml:"window_size" default:"1000" validate:"gt=0"`
		Debounce       time.Duration `yaml:"debounce" default:"1s"`
		BackoffBase    time.Duration `yaml:"backoff_base" default:"1s"`
		BackoffMax     time.Duration `yaml:"backoff_max" default:"30s"`
		BackoffFactor  float64       `yaml:"backoff_factor" default:"2"`
		StableAfter    time.Duration `yaml:"stable_after" default:"60s"`
	} `yaml:"stream"`
	Binance struct {
		WebSocketURL string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443/ws"`
		RestURL      string        `yaml:"rest_url" default:"https://api.binance.com"`
		PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
		HTTPTimeout  time.Duration `yaml:"http_timeout" default:"15s"`
	} `yaml:"binance"`
	Evaluator struct {
		Deadline time.Duration `yaml:"deadline" default:"200ms"`
	} `yaml:"evaluator"`
	Confluence struct {
		Mode            string  `yaml:"mode" default:"WEIGHTED" validate:"oneof=ALL MAJORITY WEIGHTED ANY"`
		BuyThreshold    float64 `yaml:"buy_threshold" default:"0.3" validate:"gte=0"`
		SellThreshold   float64 `yaml:"sell_threshold" default:"0.3" validate:"gte=0"`
		ConflictPenalty float64 `yaml:"conflict_penalty" default:"0.6" validate:"gt=0,lte=1"`
		HistorySize     int     `yaml:"history_size" default:"100" validate:"gt=0"`
	} `yaml:"confluence"`
	Regime struct {
		ADXPeriod     int     `yaml:"adx_period" default:"14" validate:"gt=0"`
		ATRPeriod     int     `yaml:"atr_period" default:"14" validate:"gt=0"`
		BollPeriod    int     `yaml:"boll_period" default:"20" validate:"gt=0"`
		BollMult      float64 `yaml:"boll_mult" default:"2.0" validate:"gt=0"`
		MinTrend      float64 `yaml:"min_trend" validate:"gte=0"`
		MinVolatility float64 `yaml:"min_volatility" validate:"gte=0"`
		MinBandWidth  float64 `yaml:"min_band_width" validate:"gte=0"`
	} `yaml:"regime"`
	Detectors map[string]DetectorConfig `yaml:"detectors"`
	Simulator struct {
		InitialEquity   float64 `yaml:"initial_equity" default:"10000" validate:"gt=0"`
		PositionSizePct float64 `yaml:"position_size_pct" default:"0.02" validate:"gt=0,lte=1"`
		StopATRMult     float64 `yaml:"stop_atr_mult" default:"1.5" validate:"gt=0"`
		TargetATRMult   float64 `yaml:"target_atr_mult" default:"3.0" validate:"gt=0"`
		StopFirst       bool    `yaml:"stop_first" default:"true"`
		EntryNextOpen   bool    `yaml:"entry_next_open"`
		MakerFeeRate    float64 `yaml:"maker_fee_rate" default:"0.001" validate:"gte=0"`
		TakerFeeRate    float64 `yaml:"taker_fee_rate" default:"0.001" validate:"gte=0"`
		SlippageRate    float64 `yaml:"slippage_rate" default:"0.0005" validate:"gte=0"`
	} `yaml:"simulator"`
	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		DecisionsTopic string   `yaml:"decisions_topic" default:"conflux.decisions"`
		TradesTopic    string   `yaml:"trades_topic" default:"conflux.trades"`
		RequiredAcks   int      `yaml:"required_acks" default:"1"`
		Compression    string   `yaml:"compression" default:"snappy"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"conflux"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Cache struct {
		HistoryTTL time.Duration `yaml:"history_ttl" default:"60s"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// DetectorConfig enables one detector and sets its weight and parameters.
type DetectorConfig struct {
	Enabled bool               `yaml:"enabled"`
	Weight  float64            `yaml:"weight" default:"1.0"`
	Params  map[string]float64 `yaml:"params"`
}

// Load reads and parses a YAML configuration file. Defaults are applied
// before validation; an invalid config refuses to load.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
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

	if v := os.Getenv("SYMBOL"); v != "" {
		c.Stream.Symbol = v
	}
	if v := os.Getenv("TIMEFRAME"); v != "" {
		c.Stream.Timeframe = v
	}
	if v := os.Getenv("CONFLUENCE_MODE"); v != "" {
		c.Confluence.Mode = strings.ToUpper(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for id, dc := range c.Detectors {
		if dc.Weight < 0 {
			return fmt.Errorf("detectors.%s.weight must be >= 0, got %v", id, dc.Weight)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
