// Package keysource provides ConfigSource implementations that feed the KeyLoader.
package keysource

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/turtacn/authcore/internal/config"
)

// EnvSource reads signing keys from the viper-loaded configuration. A mounted key file
// takes precedence over the plain value when both are present.
type EnvSource struct {
	cfg config.KeysConfig
}

// NewEnvSource creates a source over cfg.
func NewEnvSource(cfg config.KeysConfig) *EnvSource {
	return &EnvSource{cfg: cfg}
}

// CurrentKeyValue returns the signing key from SigningKeyFile, falling back to SigningKey.
func (s *EnvSource) CurrentKeyValue(ctx context.Context) (string, bool, error) {
	if s.cfg.SigningKeyFile != "" {
		value, err := ReadKeyFile(s.cfg.SigningKeyFile)
		if err != nil {
			return "", false, err
		}
		if value != "" {
			return value, true, nil
		}
	}
	value := strings.TrimSpace(s.cfg.SigningKey)
	return value, value != "", nil
}

// OldKeyValues returns the entries of OldKeysFile, falling back to the OldKeys list.
func (s *EnvSource) OldKeyValues(ctx context.Context) ([]string, error) {
	if s.cfg.OldKeysFile != "" {
		keys, err := readKeyList(s.cfg.OldKeysFile)
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			return keys, nil
		}
	}
	return splitKeys(strings.Join(s.cfg.OldKeys, ",")), nil
}

// IsDebugMode reports the keys.debug flag.
func (s *EnvSource) IsDebugMode() bool {
	return s.cfg.Debug
}

// SigningKeyFile returns the watched file path, empty when the key is not file backed.
func (s *EnvSource) SigningKeyFile() string {
	return s.cfg.SigningKeyFile
}

// ReadKeyFile returns the trimmed content of a mounted secret file.
func ReadKeyFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file %s: %w", path, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func readKeyList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open old keys file %s: %w", path, err)
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read old keys file %s: %w", path, err)
	}
	return keys, nil
}

// splitKeys accepts comma or newline separated values.
func splitKeys(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		if v := strings.TrimSpace(f); v != "" {
			keys = append(keys, v)
		}
	}
	return keys
}
