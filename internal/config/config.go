package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Telegram struct {
		BotToken      string        `yaml:"bot_token"`
		Proxy         string        `yaml:"proxy"`
		PollTimeout   time.Duration `yaml:"poll_timeout" default:"30s" validate:"gte=0"`
		RatePerSecond float64       `yaml:"rate_per_second" default:"20" validate:"gt=0"`
	} `yaml:"telegram"`
	Dataset struct {
		TrainPath   string `yaml:"train_path" default:"data/train.xlsx" validate:"required"`
		TestPath    string `yaml:"test_path" default:"data/test.xlsx"`
		Sheet       string `yaml:"sheet"`
		DateColumn  string `yaml:"date_column" default:"dt"`
		PriceColumn string `yaml:"price_column" default:"Цена на арматуру"`
	} `yaml:"dataset"`
	Model struct {
		ArtifactPath    string  `yaml:"artifact_path" default:"data/armature_price_model.gob" validate:"required"`
		Kind            string  `yaml:"kind" default:"random_forest" validate:"oneof=random_forest gradient_boosting"`
		Trees           int     `yaml:"trees" validate:"gte=0"`
		MaxDepth        int     `yaml:"max_depth" validate:"gte=0"`
		MinSamplesLeaf  int     `yaml:"min_samples_leaf" default:"1" validate:"gte=1"`
		LearningRate    float64 `yaml:"learning_rate" validate:"gte=0,lte=1"`
		ValidationRatio float64 `yaml:"validation_ratio" default:"0.2" validate:"gte=0,lt=1"`
		Seed            int64   `yaml:"seed" default:"42"`
		ForceRetrain    bool    `yaml:"force_retrain"`
	} `yaml:"model"`
	Forecast struct {
		AutoPeriods int `yaml:"auto_periods" default:"6" validate:"gte=1"`
		MaxPeriods  int `yaml:"max_periods" default:"12" validate:"gte=1"`
	} `yaml:"forecast"`
	Schedule struct {
		BroadcastCron string `yaml:"broadcast_cron" default:"0 0 9 * * 1"`
		SweepCron     string `yaml:"sweep_cron" default:"0 */10 * * * *"`
	} `yaml:"schedule"`
	Session struct {
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		TTL     time.Duration `yaml:"ttl" default:"30m" validate:"gt=0"`
	} `yaml:"session"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		Prefix   string `yaml:"prefix" default:"rebar:session:"`
	} `yaml:"redis"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/rebar_forecast.db"`
	} `yaml:"database"`
	Subscribers struct {
		StateFile string `yaml:"state_file" default:"data/subscribers.json"`
	} `yaml:"subscribers"`
	HTTP struct {
		Addr    string `yaml:"addr" default:":8080"`
		Enabled *bool  `yaml:"enabled" default:"true"`
	} `yaml:"http"`
}

// Path returns the config file location, honouring CONFIG_PATH.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" && cfg.Telegram.Proxy == "" {
		cfg.Telegram.Proxy = v
	}
	if v := os.Getenv("TRAIN_PATH"); v != "" {
		cfg.Dataset.TrainPath = v
	}
	if v := os.Getenv("TEST_PATH"); v != "" {
		cfg.Dataset.TestPath = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.Model.ArtifactPath = v
	}
	if v := os.Getenv("FORCE_RETRAIN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Model.ForceRetrain = b
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Forecast.MaxPeriods < c.Forecast.AutoPeriods {
		return fmt.Errorf("forecast.max_periods (%d) must be >= forecast.auto_periods (%d)",
			c.Forecast.MaxPeriods, c.Forecast.AutoPeriods)
	}
	return nil
}

// HTTPEnabled reports whether the HTTP API should be served.
func (c *Config) HTTPEnabled() bool {
	return c.HTTP.Enabled == nil || *c.HTTP.Enabled
}

// ValidateBot checks the settings needed to run the Telegram bot.
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	return nil
}
