package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/turtacn/authcore/internal/domain/models"
)

// SignatureHeader carries the payload signature on Kafka messages.
const SignatureHeader = "x-audit-signature"

// SignPayload calculates the base64 HMAC-SHA256 signature of payload.
func SignPayload(payload []byte, secretKey string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VerifyPayload reports whether signature matches payload under secretKey.
func VerifyPayload(payload []byte, signature, secretKey string) bool {
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	return hmac.Equal(expected, h.Sum(nil))
}

// SignAuditEvent calculates the HMAC-SHA256 signature of the event's JSON encoding.
func SignAuditEvent(event models.AuditEvent, secretKey string) (string, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return SignPayload(eventBytes, secretKey), nil
}
