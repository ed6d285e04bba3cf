package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mentorhub/internal/refund"
)

type Config struct {
	SlotAPI struct {
		BaseURL         string  `yaml:"base_url"`
		APIKey          string  `yaml:"api_key"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		RateBurst       int     `yaml:"rate_burst"`
	} `yaml:"slot_api"`

	OrderAPI struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"order_api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Server struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"server"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Scheduling struct {
		HorizonDays          int `yaml:"horizon_days"`
		ProbeBatchSize       int `yaml:"probe_batch_size"`
		RescheduleAttempts   int `yaml:"reschedule_attempts"`
		ApprovalTimeoutHours int `yaml:"approval_timeout_hours"`
		SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	} `yaml:"scheduling"`

	Refund struct {
		Tiers             []refund.Tier `yaml:"tiers"`
		BlockZeroFraction bool          `yaml:"block_zero_fraction"`
	} `yaml:"refund"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.SlotAPI.BaseURL == "" {
		return nil, fmt.Errorf("slot_api.base_url is required")
	}
	if cfg.OrderAPI.BaseURL == "" {
		return nil, fmt.Errorf("order_api.base_url is required")
	}

	return &cfg, nil
}

func (c *Config) HorizonDays() int {
	if c.Scheduling.HorizonDays <= 0 {
		return 30
	}
	return c.Scheduling.HorizonDays
}

func (c *Config) ProbeBatchSize() int {
	if c.Scheduling.ProbeBatchSize <= 0 {
		return 5
	}
	return c.Scheduling.ProbeBatchSize
}

func (c *Config) RescheduleAttempts() int {
	if c.Scheduling.RescheduleAttempts <= 0 {
		return 3
	}
	return c.Scheduling.RescheduleAttempts
}

func (c *Config) ApprovalTimeout() time.Duration {
	if c.Scheduling.ApprovalTimeoutHours <= 0 {
		return 48 * time.Hour
	}
	return time.Duration(c.Scheduling.ApprovalTimeoutHours) * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	if c.Scheduling.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Scheduling.SweepIntervalSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.SlotAPI.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.SlotAPI.CacheTTLSeconds) * time.Second
}

// RefundTiers returns the configured tier table, falling back to the
// default table when the config omits one.
func (c *Config) RefundTiers() []refund.Tier {
	if len(c.Refund.Tiers) == 0 {
		return refund.DefaultTiers()
	}
	return c.Refund.Tiers
}
