package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ExtractBearer extracts the token from an Authorization header value.
func ExtractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// HashToken returns the hex SHA-256 digest of a raw token so it can be stored without the token itself.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
