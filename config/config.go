package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig holds all configuration for the self-care client core.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type ClientConfig struct {
	APIBaseURL         string `mapstructure:"API_BASE_URL"`
	HTTPTimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	LogPretty          bool   `mapstructure:"LOG_PRETTY"`

	// Payment flow settings.
	ProcessorDomain string `mapstructure:"PROCESSOR_DOMAIN"`   // substring marker for processor-domain URL rules
	ResolveDelayMS  int    `mapstructure:"RESOLVE_DELAY_MS"`   // delay before finalizing success/cancel outcomes
	SurfaceAddr     string `mapstructure:"SURFACE_LISTEN_ADDR"` // loopback address for the payment surface

	// Credential store selection: "file", "memory", "redis" or "mongodb".
	CredentialBackend string `mapstructure:"CREDENTIAL_BACKEND"`
	CredentialFile    string `mapstructure:"CREDENTIAL_FILE"`
	CredentialKey     string `mapstructure:"CREDENTIAL_KEY"` // hex-encoded 32-byte sealing key; generated beside the credential file when empty

	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
}

// HTTPTimeout returns the configured gateway timeout as a duration. The
// upstream API imposes no timeout of its own, so the client always sets one
// to guarantee that validating and requesting states resolve.
func (c *ClientConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// ResolveDelay returns the deferred-resolution delay as a duration.
func (c *ClientConfig) ResolveDelay() time.Duration {
	return time.Duration(c.ResolveDelayMS) * time.Millisecond
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ClientConfig, error) {
	v := viper.New()

	// Set configuration file name and type
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Set search paths for the configuration file
	v.AddConfigPath("/etc/selfcare/")
	v.AddConfigPath("$HOME/.selfcare")
	v.AddConfigPath(".")

	// Read environment variables
	v.AutomaticEnv()
	// For nested env vars like PARENT.CHILD -> PARENT_CHILD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("API_BASE_URL", "https://app.ctecg.co.za/api")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("PROCESSOR_DOMAIN", "payfast")
	v.SetDefault("RESOLVE_DELAY_MS", 1000)
	v.SetDefault("SURFACE_LISTEN_ADDR", "127.0.0.1:0")
	v.SetDefault("CREDENTIAL_BACKEND", "file")
	v.SetDefault("CREDENTIAL_FILE", "$HOME/.selfcare/credential.sealed")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PREFIX", "selfcare")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/selfcare_dev")
	v.SetDefault("MONGO_DB_NAME", "selfcare_dev")

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		// ConfigFileNotFoundError is acceptable, means we use defaults/env vars.
		// Other errors (e.g., permission issues, malformed config) should be returned.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the configuration into the ClientConfig struct
	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
