package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Keys     KeysConfig     `mapstructure:"keys"`
	Tokens   TokensConfig   `mapstructure:"tokens"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Users    UsersConfig    `mapstructure:"users"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Address returns the listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the server runs with production defaults.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// KeysConfig describes where the signing keys come from and how they age.
type KeysConfig struct {
	// Source selects the ConfigSource implementation: "env" or "vault".
	Source         string   `mapstructure:"source"`
	SigningKey     string   `mapstructure:"signing_key"`
	SigningKeyFile string   `mapstructure:"signing_key_file"`
	OldKeys        []string `mapstructure:"old_keys"`
	OldKeysFile    string   `mapstructure:"old_keys_file"`
	Debug          bool     `mapstructure:"debug"`
	MinLength      int      `mapstructure:"min_length"`
	GenerateBytes  int      `mapstructure:"generate_bytes"`
	MaxRetired     int      `mapstructure:"max_retired"`
	GraceDays      int      `mapstructure:"grace_days"`
	// WatchFile enables hot rotation when SigningKeyFile changes on disk.
	WatchFile bool `mapstructure:"watch_file"`
}

type TokensConfig struct {
	Algorithm    string        `mapstructure:"algorithm"`
	Issuer       string        `mapstructure:"issuer"`
	TTL          time.Duration `mapstructure:"ttl"`
	Leeway       time.Duration `mapstructure:"leeway"`
	CacheTimeout time.Duration `mapstructure:"cache_timeout"`
}

type RedisConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Mode     string   `mapstructure:"mode"`
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Password string   `mapstructure:"password"`
	DB       int      `mapstructure:"db"`
	Addrs    []string `mapstructure:"addrs"`
	Master   string   `mapstructure:"master"`
	PoolSize int      `mapstructure:"pool_size"`
}

type DatabaseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	Path            string `mapstructure:"path"` // sqlite only
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // in minutes
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// UsersConfig tunes the user lookup decorator.
type UsersConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// NumericSubjects requires token subjects to be positive integer user ids.
	NumericSubjects bool `mapstructure:"numeric_subjects"`
}

type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	AuditTopic   string        `mapstructure:"audit_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	// ConsumeRevocations replays token.revoked events from AuditTopic into the local revocation store.
	ConsumeRevocations bool `mapstructure:"consume_revocations"`
	// ConsumerGroup should be unique per revocation store, e.g. one per region.
	ConsumerGroup string `mapstructure:"consumer_group"`
	// SigningSecret, when set, signs every audit event with HMAC-SHA256.
	SigningSecret string `mapstructure:"signing_secret"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	switch c.Keys.Source {
	case "env", "vault":
	default:
		return errors.ErrConfiguration.WithMessage("unsupported key source %q", c.Keys.Source)
	}
	if c.Keys.Source == "vault" && (c.Vault.Address == "" || c.Vault.SecretPath == "") {
		return errors.ErrConfiguration.WithMessage("vault key source requires vault.address and vault.secret_path")
	}
	if c.Keys.MaxRetired < 0 {
		return errors.ErrConfiguration.WithMessage("keys.max_retired must not be negative")
	}
	if c.Keys.MinLength <= 0 {
		c.Keys.MinLength = constants.DefaultMinKeyLength
	}
	if c.Keys.GenerateBytes <= 0 {
		c.Keys.GenerateBytes = constants.DefaultKeyLengthBytes
	}
	// base64url without padding encodes n bytes as ceil(4n/3) characters.
	if (4*c.Keys.GenerateBytes+2)/3 < c.Keys.MinLength {
		return errors.ErrConfiguration.WithMessage("keys.generate_bytes %d encodes shorter than keys.min_length %d",
			c.Keys.GenerateBytes, c.Keys.MinLength)
	}
	switch constants.JWTAlgorithm(strings.ToUpper(c.Tokens.Algorithm)) {
	case constants.AlgorithmHS256, constants.AlgorithmHS384, constants.AlgorithmHS512:
		c.Tokens.Algorithm = strings.ToUpper(c.Tokens.Algorithm)
	default:
		return errors.ErrConfiguration.WithMessage("unsupported token algorithm %q", c.Tokens.Algorithm)
	}
	if c.Tokens.TTL <= 0 {
		return errors.ErrConfiguration.WithMessage("tokens.ttl must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.ErrConfiguration.WithMessage("kafka.enabled requires at least one broker")
	}
	return nil
}
