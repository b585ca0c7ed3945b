package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the gateway configuration.
type Config struct {
	AppName string
	Host    string
	Port    string
	Debug   bool

	WrapperBaseURL  string
	WrapperAPIKey   string
	OrtoolsLocalURL string
	MapMatchingURL  string

	DatabaseURL string
	RedisURL    string
	FrontendDir string

	RateRPS   float64
	RateBurst int
	// TrustProxy makes the rate limiter key on X-Forwarded-For; set only behind a proxy that rewrites it.
	TrustProxy bool

	JobWorkers int
	JobQueue   int

	WebhookSecret      string
	WebhookMaxAttempts int

	// Backends extends or overrides the stock backend registry.
	Backends []BackendConfig
}

// BackendConfig is one entry of the backends list in the YAML file.
type BackendConfig struct {
	ID          string `yaml:"id"`
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Description string `yaml:"description"`
}

// FileConfig is the structure of the optional YAML config file.
type FileConfig struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`
	Wrapper struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"wrapper"`
	OrtoolsLocalURL string `yaml:"ortools_local_url"`
	MapMatchingURL  string `yaml:"map_matching_url"`
	FrontendDir     string `yaml:"frontend_dir"`
	Jobs            struct {
		Workers int `yaml:"workers"`
		Queue   int `yaml:"queue"`
	} `yaml:"jobs"`
	Backends []BackendConfig `yaml:"backends"`
}

const (
	DefaultWrapperBaseURL = "http://vroom-wrapper-v3:8000"
	DefaultWrapperAPIKey  = "demo-key-12345"
	EmbeddedURL           = "embedded"
)

// Load reads the YAML file named by ROUTEPLAY_CONFIG (if any) and then the environment.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	path := os.Getenv("ROUTEPLAY_CONFIG")
	if path == "" {
		path = os.Getenv("BACKENDS_FILE")
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	fc := &FileConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	base := strings.TrimRight(getEnvOrDefault("WRAPPER_BASE_URL", orDefault(fc.Wrapper.BaseURL, DefaultWrapperBaseURL)), "/")
	cfg := &Config{
		AppName:            getEnvOrDefault("APP_NAME", "Route Playground"),
		Host:               getEnvOrDefault("API_HOST", orDefault(fc.Server.Host, "0.0.0.0")),
		Port:               getEnvOrDefault("API_PORT", getEnvOrDefault("PORT", orDefault(fc.Server.Port, "8080"))),
		Debug:              getBool("DEBUG", false),
		WrapperBaseURL:     base,
		WrapperAPIKey:      getEnvOrDefault("WRAPPER_API_KEY", orDefault(fc.Wrapper.APIKey, DefaultWrapperAPIKey)),
		OrtoolsLocalURL:    getEnvOrDefault("ORTOOLS_LOCAL_URL", orDefault(fc.OrtoolsLocalURL, EmbeddedURL)),
		MapMatchingURL:     getEnvOrDefault("MAP_MATCHING_URL", orDefault(fc.MapMatchingURL, base+"/map-matching/match")),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		FrontendDir:        getEnvOrDefault("FRONTEND_DIR", orDefault(fc.FrontendDir, "frontend/build")),
		RateRPS:            getFloat("RATE_RPS", 5),
		RateBurst:          getInt("RATE_BURST", 10),
		TrustProxy:         getBool("TRUST_PROXY", false),
		JobWorkers:         getInt("JOB_WORKERS", orDefaultInt(fc.Jobs.Workers, 4)),
		JobQueue:           getInt("JOB_QUEUE", orDefaultInt(fc.Jobs.Queue, 256)),
		WebhookSecret:      os.Getenv("WEBHOOK_SECRET"),
		WebhookMaxAttempts: getInt("WEBHOOK_MAX_ATTEMPTS", 10),
		Backends:           fc.Backends,
	}
	for i, b := range cfg.Backends {
		if strings.TrimSpace(b.ID) == "" || strings.TrimSpace(b.URL) == "" {
			return nil, fmt.Errorf("config backends[%d]: id and url are required", i)
		}
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string { return c.Host + ":" + c.Port }

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orDefaultInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
