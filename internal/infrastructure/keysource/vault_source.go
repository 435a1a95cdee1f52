package keysource

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

const (
	vaultFieldCurrent  = "current"
	vaultFieldPrevious = "previous"
)

// VaultSource reads signing keys from a KV v2 secret with the fields "current" and
// "previous". The secret is read once per Load; both values come from the same version.
type VaultSource struct {
	client     *vault.Client
	mountPath  string
	secretPath string
	debug      bool
	log        logger.Logger

	data map[string]interface{}
}

// NewVaultClient creates and configures a new Vault client.
func NewVaultClient(cfg config.VaultConfig) (*vault.Client, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return client, nil
}

// NewVaultSource creates a source reading cfg.SecretPath under cfg.MountPath.
func NewVaultSource(client *vault.Client, cfg config.VaultConfig, debug bool, log logger.Logger) *VaultSource {
	mount := cfg.MountPath
	if mount == "" {
		mount = "secret"
	}
	return &VaultSource{
		client:     client,
		mountPath:  mount,
		secretPath: cfg.SecretPath,
		debug:      debug,
		log:        log.WithComponent("VaultSource"),
	}
}

// CurrentKeyValue returns the "current" field of the secret.
func (s *VaultSource) CurrentKeyValue(ctx context.Context) (string, bool, error) {
	data, err := s.read(ctx)
	if err != nil {
		return "", false, err
	}
	value, _ := data[vaultFieldCurrent].(string)
	value = strings.TrimSpace(value)
	return value, value != "", nil
}

// OldKeyValues returns the "previous" field split on commas or newlines.
func (s *VaultSource) OldKeyValues(ctx context.Context) ([]string, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	switch v := data[vaultFieldPrevious].(type) {
	case string:
		return splitKeys(v), nil
	case []interface{}:
		keys := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				keys = append(keys, strings.TrimSpace(s))
			}
		}
		return keys, nil
	default:
		return nil, nil
	}
}

// IsDebugMode reports the keys.debug flag.
func (s *VaultSource) IsDebugMode() bool {
	return s.debug
}

func (s *VaultSource) read(ctx context.Context) (map[string]interface{}, error) {
	if s.data != nil {
		return s.data, nil
	}
	secret, err := s.client.KVv2(s.mountPath).Get(ctx, s.secretPath)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			s.log.Warn(ctx, "signing key secret not found in vault", logger.String("path", s.secretPath))
			s.data = map[string]interface{}{}
			return s.data, nil
		}
		return nil, fmt.Errorf("read vault secret %s/%s: %w", s.mountPath, s.secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		s.data = map[string]interface{}{}
		return s.data, nil
	}
	s.data = secret.Data
	return s.data, nil
}
