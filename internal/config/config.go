package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Feed    FeedConfig    `yaml:"feed"`
	Catalog CatalogConfig `yaml:"catalog"`
	Gemini  GeminiConfig  `yaml:"gemini"`
}

type HTTPConfig struct {
	Address      string   `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	PublicURL    string   `yaml:"public_url" env:"PUBLIC_URL"`
	AllowOrigins []string `yaml:"allow_origins" env:"ALLOW_ORIGINS" env-separator:","`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	DSN    string `yaml:"dsn" env:"DATABASE_DSN"`
}

type FeedConfig struct {
	Driver   string `yaml:"driver" env:"FEED_DRIVER" env-default:"memory"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	// PostgresDSN defaults to the storage DSN.
	PostgresDSN string `yaml:"pg_dsn" env:"FEED_PG_DSN"`
}

type CatalogConfig struct {
	// Source is a file path or an http(s) URL.
	Source string `yaml:"source" env:"CATALOG_SOURCE"`
}

type GeminiConfig struct {
	APIKey    string        `yaml:"api_key" env:"GEMINI_API_KEY"`
	BaseURL   string        `yaml:"base_url" env:"GEMINI_BASE_URL"`
	Model     string        `yaml:"model" env:"GEMINI_MODEL"`
	FastModel string        `yaml:"fast_model" env:"GEMINI_FAST_MODEL"`
	Timeout   time.Duration `yaml:"timeout" env-default:"60s"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.PublicURL == "" {
		c.HTTP.PublicURL = "http://localhost:3000"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Feed.Driver == "" {
		c.Feed.Driver = DriverMemory
	}
	if c.Feed.PostgresDSN == "" {
		c.Feed.PostgresDSN = c.Storage.DSN
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = "data/opportunities.json"
	}
}
