package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type AuthConfig struct {
	SigningKey           string   `mapstructure:"signing_key"`
	SigningMethod        string   `mapstructure:"signing_method"`
	ContextKey           string   `mapstructure:"context_key"`
	TokenExpiration      int      `mapstructure:"token_expiration"`
	ExtendedTokenDuration int     `mapstructure:"extended_token_duration"`
	TokenLookup          string   `mapstructure:"token_lookup"`
	AuthScheme           string   `mapstructure:"auth_scheme"`
	Issuer               string   `mapstructure:"issuer"`
	Audience             []string `mapstructure:"audience"`
}

type BootstrapConfig struct {
	SuperAdminEmail    string `mapstructure:"super_admin_email"`
	SuperAdminPassword string `mapstructure:"super_admin_password"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Log       LogConfig       `mapstructure:"log"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load loads configuration from the given file path (e.g. "config.yaml").
// If path is empty it defaults to "config.yaml" in the current working
// directory. Environment variables prefixed with VOUCH override file values.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		if path == "" {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
		} else {
			v.SetConfigFile(path)
		}

		v.SetDefault("server.address", ":8572")
		v.SetDefault("database.dsn", "file:vouch.db?cache=shared&_fk=1")
		v.SetDefault("auth.signing_method", "HS256")
		v.SetDefault("auth.context_key", "user")
		v.SetDefault("auth.token_expiration", 1)
		v.SetDefault("auth.extended_token_duration", 1440)
		v.SetDefault("auth.auth_scheme", "Bearer")
		v.SetDefault("auth.issuer", "vouch")
		v.SetDefault("log.level", "debug")

		// environment overrides, e.g. VOUCH_AUTH_SIGNING_KEY
		v.SetEnvPrefix("VOUCH")
		v.AutomaticEnv()

		if err = v.ReadInConfig(); err != nil {
			// config file is optional as long as env vars carry the secrets
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("read config: %w", err)
				return
			}
			err = nil
		}

		var c Config
		if err = v.Unmarshal(&c); err != nil {
			err = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		appConfig = &c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}

func (c *Config) Validate() error {
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	return nil
}

// The getters below satisfy the library configuration interface.

func (c *Config) GetSigningKey() string         { return c.Auth.SigningKey }
func (c *Config) GetSigningMethod() string      { return c.Auth.SigningMethod }
func (c *Config) GetContextKey() string         { return c.Auth.ContextKey }
func (c *Config) GetAccessTokenDuration() int   { return c.Auth.TokenExpiration }
func (c *Config) GetRefreshTokenDuration() int  { return c.Auth.ExtendedTokenDuration }
func (c *Config) GetTokenLookup() string        { return c.Auth.TokenLookup }
func (c *Config) GetAuthScheme() string         { return c.Auth.AuthScheme }
func (c *Config) GetIssuer() string             { return c.Auth.Issuer }
func (c *Config) GetAudience() []string         { return c.Auth.Audience }
