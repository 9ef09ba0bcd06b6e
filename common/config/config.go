package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all gateway configuration
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Files     FilesConfig     `mapstructure:"files"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServiceConfig holds service-wide settings
type ServiceConfig struct {
	Port      int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`
}

// UpstreamConfig points at the SPARQL engine the gateway fronts
type UpstreamConfig struct {
	// URL is the base URL; /query and /update are resolved against it
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig holds session and credential settings
type AuthConfig struct {
	// SecureCookies gates the Secure flag on session cookies.
	// Disable only for non-TLS development.
	SecureCookies bool `mapstructure:"secure_cookies"`

	// AdminToken, when non-empty, is a locally-held credential granted
	// edit rank without consulting the policy graph
	AdminToken string `mapstructure:"admin_token"`
}

// FilesConfig holds blob storage settings
type FilesConfig struct {
	// Dir is the directory uploaded blobs are written to
	Dir string `mapstructure:"dir" validate:"required"`

	// MaxUploadBytes is the cumulative per-request upload ceiling
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"required,gt=0"`
}

// RateLimitConfig controls login-attempt throttling.
// Rate limiting is disabled when RedisAddr is empty.
type RateLimitConfig struct {
	RedisAddr      string `mapstructure:"redis_addr"`
	LoginLimit     int64  `mapstructure:"login_limit" validate:"gt=0"`
	LoginWindowSec int    `mapstructure:"login_window_sec" validate:"gt=0"`
}

const envPrefix = "GATE"

// Load reads configuration from an optional YAML file and GATE_* environment
// variables, applies defaults, and validates the result. Called once at
// process start; the gateway never reloads configuration.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.port", 8080)
	v.SetDefault("service.log_level", "info")
	v.SetDefault("service.log_format", "text")
	v.SetDefault("upstream.url", "http://localhost:7878")
	v.SetDefault("auth.secure_cookies", true)
	v.SetDefault("auth.admin_token", "")
	v.SetDefault("files.dir", "./files")
	v.SetDefault("files.max_upload_bytes", int64(4)<<30)
	v.SetDefault("ratelimit.redis_addr", "")
	v.SetDefault("ratelimit.login_limit", 10)
	v.SetDefault("ratelimit.login_window_sec", 60)
}
