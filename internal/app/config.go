package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/puzzleplan-backend/internal/platform/anthropic"
	"github.com/yungbote/puzzleplan-backend/internal/platform/envutil"
	"github.com/yungbote/puzzleplan-backend/internal/realtime/bus"
)

// Config is the process configuration. Values come from an optional YAML
// file named by CONFIG_FILE, then environment variables, then defaults.
type Config struct {
	Port            string        `yaml:"port"`
	LogMode         string        `yaml:"log_mode"`
	DevMode         bool          `yaml:"dev_mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	PromptsDir      string        `yaml:"prompts_dir"`

	DB      DBConfig      `yaml:"db"`
	Auth    AuthConfig    `yaml:"auth"`
	LLM     LLMConfig     `yaml:"llm"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
	OTel    OTelConfig    `yaml:"otel"`
}

type DBConfig struct {
	Driver           string        `yaml:"driver"`
	PostgresHost     string        `yaml:"postgres_host"`
	PostgresPort     string        `yaml:"postgres_port"`
	PostgresUser     string        `yaml:"postgres_user"`
	PostgresPassword string        `yaml:"postgres_password"`
	PostgresName     string        `yaml:"postgres_name"`
	PostgresSSLMode  string        `yaml:"postgres_sslmode"`
	SQLitePath       string        `yaml:"sqlite_path"`
	MaxOpenConns     int           `yaml:"max_open_conns"`
	MaxIdleConns     int           `yaml:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate      bool          `yaml:"auto_migrate"`
}

// AuthConfig describes the identity provider whose tokens the API accepts.
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTAudience string        `yaml:"jwt_audience"`
	Leeway      time.Duration `yaml:"leeway"`
}

type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	MaxRetries  int           `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Environment string  `yaml:"environment"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoadConfig reads CONFIG_FILE when set, overlays the environment and
// returns a validated Config.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if cfg, err = decode(data); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse unmarshals YAML bytes into a validated Config without consulting
// the environment.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

// applyEnv lets environment variables override file values. Unset variables
// keep whatever the file said.
func (c *Config) applyEnv() {
	c.Port = envutil.String("PORT", c.Port)
	c.LogMode = envutil.String("LOG_MODE", c.LogMode)
	c.DevMode = envutil.Bool("DEV_MODE", c.DevMode)
	c.ShutdownTimeout = envutil.Duration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.CORSOrigins = envutil.List("CORS_ORIGINS", c.CORSOrigins)
	c.PromptsDir = envutil.String("PROMPTS_DIR", c.PromptsDir)

	c.DB.Driver = envutil.String("DB_DRIVER", c.DB.Driver)
	c.DB.PostgresHost = envutil.String("POSTGRES_HOST", c.DB.PostgresHost)
	c.DB.PostgresPort = envutil.String("POSTGRES_PORT", c.DB.PostgresPort)
	c.DB.PostgresUser = envutil.String("POSTGRES_USER", c.DB.PostgresUser)
	c.DB.PostgresPassword = envutil.String("POSTGRES_PASSWORD", c.DB.PostgresPassword)
	c.DB.PostgresName = envutil.String("POSTGRES_NAME", c.DB.PostgresName)
	c.DB.PostgresSSLMode = envutil.String("POSTGRES_SSLMODE", c.DB.PostgresSSLMode)
	c.DB.SQLitePath = envutil.String("SQLITE_PATH", c.DB.SQLitePath)
	c.DB.MaxOpenConns = envutil.Int("DB_MAX_OPEN_CONNS", c.DB.MaxOpenConns)
	c.DB.MaxIdleConns = envutil.Int("DB_MAX_IDLE_CONNS", c.DB.MaxIdleConns)
	c.DB.ConnMaxLifetime = envutil.Duration("DB_CONN_MAX_LIFETIME", c.DB.ConnMaxLifetime)
	c.DB.AutoMigrate = envutil.Bool("DB_AUTO_MIGRATE", c.DB.AutoMigrate)

	c.Auth.JWTSecret = envutil.String("AUTH_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.JWTIssuer = envutil.String("AUTH_JWT_ISSUER", c.Auth.JWTIssuer)
	c.Auth.JWTAudience = envutil.String("AUTH_JWT_AUDIENCE", c.Auth.JWTAudience)
	c.Auth.Leeway = envutil.Duration("AUTH_JWT_LEEWAY", c.Auth.Leeway)

	c.LLM.APIKey = envutil.String("ANTHROPIC_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = envutil.String("ANTHROPIC_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = envutil.String("LLM_MODEL", c.LLM.Model)
	c.LLM.Temperature = envutil.Float("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxTokens = envutil.Int("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.MaxRetries = envutil.Int("LLM_MAX_RETRIES", c.LLM.MaxRetries)
	c.LLM.Timeout = envutil.Duration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Redis.Addr = envutil.String("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envutil.String("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envutil.Int("REDIS_DB", c.Redis.DB)
	c.Redis.Channel = envutil.String("REDIS_CHANNEL", c.Redis.Channel)

	c.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", c.Metrics.Enabled)

	c.OTel.Enabled = envutil.Bool("OTEL_ENABLED", c.OTel.Enabled)
	c.OTel.ServiceName = envutil.String("OTEL_SERVICE_NAME", c.OTel.ServiceName)
	c.OTel.Environment = envutil.String("OTEL_ENVIRONMENT", c.OTel.Environment)
	c.OTel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTel.Endpoint)
	c.OTel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", c.OTel.Headers)
	c.OTel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", c.OTel.Insecure)
	c.OTel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", c.OTel.SampleRatio)
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LogMode == "" {
		c.LogMode = "development"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.DB.Driver == "" {
		c.DB.Driver = "postgres"
	}
	if c.DB.PostgresHost == "" {
		c.DB.PostgresHost = "localhost"
	}
	if c.DB.PostgresPort == "" {
		c.DB.PostgresPort = "5432"
	}
	if c.DB.PostgresName == "" {
		c.DB.PostgresName = "puzzleplan"
	}
	if c.DB.SQLitePath == "" {
		c.DB.SQLitePath = "puzzleplan.db"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = anthropic.DefaultModel
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = anthropic.DefaultTemperature
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = anthropic.DefaultMaxTokens
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 2
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 2 * time.Minute
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = bus.DefaultChannel
	}
	if c.OTel.ServiceName == "" {
		c.OTel.ServiceName = "puzzleplan"
	}
	if c.OTel.SampleRatio == 0 {
		c.OTel.SampleRatio = 1
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, "auth.jwt_secret (AUTH_JWT_SECRET) is required")
	}
	switch c.DB.Driver {
	case "postgres":
		if c.DB.PostgresUser == "" {
			errs = append(errs, "db.postgres_user (POSTGRES_USER) is required for the postgres driver")
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("db.driver must be postgres or sqlite, got %q", c.DB.Driver))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errs = append(errs, "llm.temperature must be between 0 and 1")
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, "llm.max_tokens must be positive")
	}
	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		errs = append(errs, "otel.sample_ratio must be between 0 and 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
