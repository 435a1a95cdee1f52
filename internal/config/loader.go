package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
)

// EnvPrefix is prepended to every environment variable, e.g. AUTHCORE_KEYS_SIGNING_KEY.
const EnvPrefix = "AUTHCORE"

// LoadConfig loads the configuration from file, environment variables, and a .env file.
func LoadConfig() (*Config, error) {
	loadDotEnv()
	return LoadFromViper(viper.New(), true)
}

// LoadFromViper unmarshals configuration from v after applying defaults.
// Tests pass a pre-populated viper instance with readFile=false.
func LoadFromViper(v *viper.Viper, readFile bool) (*Config, error) {
	setDefaults(v)

	if readFile {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/authcore/")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.ErrConfiguration.WithError(err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrConfiguration.WithMessage("failed to unmarshal config").WithError(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "production")
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)

	v.SetDefault("keys.source", "env")
	v.SetDefault("keys.debug", false)
	v.SetDefault("keys.min_length", constants.DefaultMinKeyLength)
	v.SetDefault("keys.generate_bytes", constants.DefaultKeyLengthBytes)
	v.SetDefault("keys.max_retired", constants.DefaultMaxRetiredKeys)
	v.SetDefault("keys.grace_days", constants.DefaultGracePeriodDays)
	v.SetDefault("keys.watch_file", true)

	v.SetDefault("tokens.algorithm", string(constants.DefaultJWTAlgorithm))
	v.SetDefault("tokens.issuer", constants.ServiceName)
	v.SetDefault("tokens.ttl", constants.AccessTokenDefaultTTL)
	v.SetDefault("tokens.leeway", 0)
	v.SetDefault("tokens.cache_timeout", constants.DefaultCacheTimeout)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 30)

	v.SetDefault("users.cache_ttl", "15s")
	v.SetDefault("users.numeric_subjects", true)

	v.SetDefault("vault.mount_path", "secret")

	v.SetDefault("kafka.audit_topic", "authcore.audit")
	v.SetDefault("kafka.write_timeout", "5s")
	v.SetDefault("kafka.batch_timeout", "50ms")
	v.SetDefault("kafka.required_acks", 1)
	v.SetDefault("kafka.consume_revocations", false)
	v.SetDefault("kafka.consumer_group", "authcore-revocations")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.service_name", constants.ServiceName)
	v.SetDefault("tracing.sampling_rate", 0.1)
}

// bindEnvs makes keys without defaults visible to AutomaticEnv during Unmarshal.
func bindEnvs(v *viper.Viper) {
	for _, key := range []string{
		"keys.signing_key",
		"keys.signing_key_file",
		"keys.old_keys",
		"keys.old_keys_file",
		"redis.password",
		"database.host",
		"database.user",
		"database.password",
		"database.database",
		"database.path",
		"vault.address",
		"vault.token",
		"vault.secret_path",
		"kafka.enabled",
		"kafka.brokers",
		"kafka.signing_secret",
		"admin.token",
		"tracing.enabled",
		"tracing.jaeger_endpoint",
	} {
		_ = v.BindEnv(key)
	}
}

// loadDotEnv searches for a .env file from the current directory up to the root
// and loads the first one found. Existing environment variables are not overridden.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
