// Package redis provides the Redis connection manager and the shared revocation cache.
// It supports standalone, cluster, and sentinel deployment modes with connection pooling.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/pkg/logger"
)

// ConnectionMode defines Redis deployment mode
type ConnectionMode string

const (
	// ModeStandalone represents single Redis instance
	ModeStandalone ConnectionMode = "standalone"
	// ModeCluster represents Redis cluster mode
	ModeCluster ConnectionMode = "cluster"
	// ModeSentinel represents Redis sentinel mode for high availability
	ModeSentinel ConnectionMode = "sentinel"
)

// ErrUnreachable is returned by Connect when the client was built but the first ping failed.
// The client stays usable and reconnects on later calls.
var ErrUnreachable = errors.New("redis unreachable")

// Config holds Redis connection configuration parameters.
type Config struct {
	Mode     ConnectionMode
	Host     string
	Port     int
	Password string
	DB       int

	// Addrs lists cluster nodes or sentinels depending on Mode.
	Addrs          []string
	SentinelMaster string

	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
}

// ConfigFromSettings maps the application configuration onto a connection Config.
func ConfigFromSettings(cfg config.RedisConfig) *Config {
	return &Config{
		Mode:           ConnectionMode(cfg.Mode),
		Host:           cfg.Host,
		Port:           cfg.Port,
		Password:       cfg.Password,
		DB:             cfg.DB,
		Addrs:          cfg.Addrs,
		SentinelMaster: cfg.Master,
		PoolSize:       cfg.PoolSize,
	}
}

// Connection manages Redis client lifecycle and health monitoring.
type Connection struct {
	config        *Config
	client        redis.UniversalClient
	logger        logger.Logger
	isInitialized bool
}

// NewConnection creates a new Redis connection manager instance.
//
// Parameters:
//   - config: Redis configuration
//   - log: Logger instance
//
// Returns:
//   - *Connection: Connection manager, not yet connected
func NewConnection(config *Config, log logger.Logger) *Connection {
	return &Connection{
		config: config,
		logger: log.WithComponent("RedisConnection"),
	}
}

// Connect builds the client for the configured mode and pings it. A failed ping returns
// ErrUnreachable but keeps the client; any other error means no client was built.
func (rc *Connection) Connect(ctx context.Context) error {
	if rc.isInitialized {
		rc.logger.Warn(ctx, "Redis connection already initialized")
		return nil
	}

	rc.setDefaults()

	var client redis.UniversalClient
	switch rc.config.Mode {
	case ModeStandalone:
		client = redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", rc.config.Host, rc.config.Port),
			Password:     rc.config.Password,
			DB:           rc.config.DB,
			PoolSize:     rc.config.PoolSize,
			MinIdleConns: rc.config.MinIdleConns,
			DialTimeout:  rc.config.DialTimeout,
			ReadTimeout:  rc.config.ReadTimeout,
			WriteTimeout: rc.config.WriteTimeout,
			MaxRetries:   rc.config.MaxRetries,
		})
	case ModeCluster:
		if len(rc.config.Addrs) == 0 {
			return fmt.Errorf("cluster addresses not configured")
		}
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        rc.config.Addrs,
			Password:     rc.config.Password,
			PoolSize:     rc.config.PoolSize,
			MinIdleConns: rc.config.MinIdleConns,
			DialTimeout:  rc.config.DialTimeout,
			ReadTimeout:  rc.config.ReadTimeout,
			WriteTimeout: rc.config.WriteTimeout,
			MaxRetries:   rc.config.MaxRetries,
		})
	case ModeSentinel:
		if len(rc.config.Addrs) == 0 || rc.config.SentinelMaster == "" {
			return fmt.Errorf("sentinel addresses or master name not configured")
		}
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    rc.config.SentinelMaster,
			SentinelAddrs: rc.config.Addrs,
			Password:      rc.config.Password,
			DB:            rc.config.DB,
			PoolSize:      rc.config.PoolSize,
			MinIdleConns:  rc.config.MinIdleConns,
			DialTimeout:   rc.config.DialTimeout,
			ReadTimeout:   rc.config.ReadTimeout,
			WriteTimeout:  rc.config.WriteTimeout,
			MaxRetries:    rc.config.MaxRetries,
		})
	default:
		return fmt.Errorf("unsupported Redis mode: %s", rc.config.Mode)
	}

	rc.client = client
	rc.isInitialized = true

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		rc.logger.Warn(ctx, "Redis ping failed, client will reconnect on demand",
			logger.String("mode", string(rc.config.Mode)), logger.Error(err))
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	rc.logger.Info(ctx, "Redis connection established successfully",
		logger.String("mode", string(rc.config.Mode)),
		logger.Int("pool_size", rc.config.PoolSize),
	)
	return nil
}

// setDefaults sets default configuration values if not specified.
func (rc *Connection) setDefaults() {
	if rc.config.Mode == "" {
		rc.config.Mode = ModeStandalone
	}
	if rc.config.Host == "" {
		rc.config.Host = "localhost"
	}
	if rc.config.Port == 0 {
		rc.config.Port = 6379
	}
	if rc.config.PoolSize == 0 {
		rc.config.PoolSize = 10
	}
	if rc.config.MinIdleConns == 0 {
		rc.config.MinIdleConns = 2
	}
	if rc.config.DialTimeout == 0 {
		rc.config.DialTimeout = 2 * time.Second
	}
	if rc.config.ReadTimeout == 0 {
		rc.config.ReadTimeout = time.Second
	}
	if rc.config.WriteTimeout == 0 {
		rc.config.WriteTimeout = time.Second
	}
	if rc.config.MaxRetries == 0 {
		// Retries disabled; callers bound each call with their own deadline.
		rc.config.MaxRetries = -1
	}
}

// GetClient returns the Redis client instance, nil if the connection is not initialized.
func (rc *Connection) GetClient() redis.UniversalClient {
	if !rc.isInitialized {
		return nil
	}
	return rc.client
}

// HealthCheck pings Redis and reports latency and pool statistics.
func (rc *Connection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	if !rc.isInitialized {
		return nil, fmt.Errorf("redis connection not initialized")
	}

	health := make(map[string]interface{})
	start := time.Now()
	err := rc.client.Ping(ctx).Err()
	health["connected"] = err == nil
	health["latency_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		health["error"] = err.Error()
		return health, err
	}

	stats := rc.client.PoolStats()
	health["total_conns"] = stats.TotalConns
	health["idle_conns"] = stats.IdleConns
	health["pool_timeouts"] = stats.Timeouts
	return health, nil
}

// Close gracefully closes Redis connection and releases resources.
func (rc *Connection) Close() error {
	if !rc.isInitialized {
		return nil
	}
	if err := rc.client.Close(); err != nil {
		rc.logger.Error(context.Background(), "Failed to close Redis connection", err)
		return err
	}
	rc.isInitialized = false
	rc.logger.Info(context.Background(), "Redis connection closed successfully")
	return nil
}
