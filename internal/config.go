package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server" envconfig:"HTTP"`
	Database      DatabaseConfig      `mapstructure:"database" envconfig:"DB"`
	Security      SecurityConfig      `mapstructure:"security" envconfig:"SECURITY" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability" envconfig:"OBSERVABILITY"`
	Redis         RedisConfig         `mapstructure:"redis" envconfig:"REDIS"`
	Translations  TranslationsConfig  `mapstructure:"translations" envconfig:"TRANSLATIONS"`
	Authorization AuthorizationConfig `mapstructure:"authorization" envconfig:"AUTHORIZATION"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" envconfig:"PORT" default:"8080" validate:"required,min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url" envconfig:"BASE_URL" default:"http://localhost:8080"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"MAX_OPEN_CONNS" default:"20" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"MAX_IDLE_CONNS" default:"5" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME" default:"30m" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" envconfig:"CONN_MAX_IDLE_TIME" default:"5m" validate:"required,min=1m"`
	Source          string        `mapstructure:"source" envconfig:"SOURCE" validate:"required"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" envconfig:"ACCESS_TOKEN_SECRET" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" envconfig:"REFRESH_TOKEN_SECRET" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" envconfig:"ACCESS_TOKEN_DURATION" default:"15m" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" envconfig:"REFRESH_TOKEN_DURATION" default:"168h" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" envconfig:"BCRYPT_COST" default:"12" validate:"required,min=10,max=15"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envconfig:"METRICS"`
	Logging LoggingConfig `mapstructure:"logging" envconfig:"LOGGING"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" envconfig:"ENABLED" default:"true"`
	Path    string `mapstructure:"path" envconfig:"METRICS_PATH" default:"/metrics" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" envconfig:"LEVEL" default:"info" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" envconfig:"FORMAT" default:"json" validate:"required,oneof=json text"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled" envconfig:"ENABLED"`
	Addr     string        `mapstructure:"addr" envconfig:"ADDR" default:"127.0.0.1:6379" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password" envconfig:"PASSWORD"`
	DB       int           `mapstructure:"db" envconfig:"DB" validate:"min=0"`
	TTL      time.Duration `mapstructure:"ttl" envconfig:"TTL" default:"5m"`
}

// TranslationsConfig drives the namespace cache, the publish pipeline and exports.
type TranslationsConfig struct {
	ExportDir        string        `mapstructure:"export_dir" envconfig:"EXPORT_DIR" default:"locales" validate:"required"`
	Storage          string        `mapstructure:"storage" envconfig:"STORAGE" default:"fs" validate:"required,oneof=fs s3"`
	S3               S3Config      `mapstructure:"s3" envconfig:"S3"`
	DeployHookURL    string        `mapstructure:"deploy_hook_url" envconfig:"VERCEL_DEPLOY_HOOK_URL" validate:"omitempty,url"`
	DeployRef        string        `mapstructure:"deploy_ref" envconfig:"DEPLOY_REF" default:"main"`
	DeployTimeout    time.Duration `mapstructure:"deploy_timeout" envconfig:"DEPLOY_TIMEOUT" default:"10s"`
	ExportSchedule   string        `mapstructure:"export_schedule" envconfig:"EXPORT_SCHEDULE" default:"@hourly"`
	PublishRateLimit int           `mapstructure:"publish_rate_limit" envconfig:"PUBLISH_RATE_LIMIT" default:"5" validate:"min=0"`
}

type S3Config struct {
	Bucket       string `mapstructure:"bucket" envconfig:"BUCKET"`
	Prefix       string `mapstructure:"prefix" envconfig:"PREFIX" default:"locales"`
	Region       string `mapstructure:"region" envconfig:"REGION" default:"us-east-1"`
	Endpoint     string `mapstructure:"endpoint" envconfig:"ENDPOINT"`
	AccessKey    string `mapstructure:"access_key" envconfig:"ACCESS_KEY"`
	SecretKey    string `mapstructure:"secret_key" envconfig:"SECRET_KEY"`
	UsePathStyle bool   `mapstructure:"use_path_style" envconfig:"USE_PATH_STYLE"`
}

type AuthorizationConfig struct {
	// EnforceAssignmentExpiry drops role assignments whose expires_at has passed.
	EnforceAssignmentExpiry bool `mapstructure:"enforce_assignment_expiry" envconfig:"ENFORCE_ASSIGNMENT_EXPIRY"`
	// HideUnauthorizedResources answers 404 instead of 403 when a resource check denies.
	HideUnauthorizedResources bool `mapstructure:"hide_unauthorized_resources" envconfig:"HIDE_UNAUTHORIZED_RESOURCES"`
}

// LoadConfigFromEnv builds the configuration purely from environment variables.
// Keys are prefixed by section (HTTP_PORT, DB_SOURCE, ...); a bare key such as
// VERCEL_DEPLOY_HOOK_URL is accepted as a fallback.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}

// ----------------- VALIDATION -----------------

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	var errs []string

	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Translations.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("translations config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	return nil
}

func (c *TranslationsConfig) Validate() error {
	if c.Storage == "s3" && c.S3.Bucket == "" {
		return errors.New("s3.bucket is required when storage is s3")
	}
	if c.DeployHookURL != "" && c.DeployTimeout <= 0 {
		return errors.New("deploy_timeout must be positive when a deploy hook is configured")
	}
	return nil
}

// DeployEnabled reports whether publishing can trigger a redeploy.
func (c *TranslationsConfig) DeployEnabled() bool {
	return c.DeployHookURL != ""
}
