package crypto

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
)

var registeredClaims = map[string]struct{}{
	"sub": {}, "iss": {}, "jti": {}, "iat": {}, "exp": {},
}

var hmacMethods = map[string]*jwt.SigningMethodHMAC{
	string(constants.AlgorithmHS256): jwt.SigningMethodHS256,
	string(constants.AlgorithmHS384): jwt.SigningMethodHS384,
	string(constants.AlgorithmHS512): jwt.SigningMethodHS512,
}

// DecodeOptions tunes a single Decode call.
type DecodeOptions struct {
	// SkipExpiry accepts tokens whose exp is in the past.
	SkipExpiry bool
	// Algorithms restricts accepted alg headers. Empty means the codec's own algorithm.
	// Only HMAC algorithms are ever honored.
	Algorithms []string
	Leeway     time.Duration
}

// TokenCodec signs and parses HMAC JWTs against a single key. It holds no key state.
type TokenCodec struct {
	method *jwt.SigningMethodHMAC
}

// NewTokenCodec creates a codec for one of HS256, HS384 or HS512.
func NewTokenCodec(algorithm constants.JWTAlgorithm) (*TokenCodec, error) {
	method, ok := hmacMethods[string(algorithm)]
	if !ok {
		return nil, errors.ErrConfiguration.WithMessage("unsupported token algorithm %q", algorithm)
	}
	return &TokenCodec{method: method}, nil
}

// Algorithm returns the alg header written by Encode.
func (c *TokenCodec) Algorithm() string {
	return c.method.Alg()
}

// Encode signs claims with key. IssuedAt defaults to now; Extra never overrides registered claims.
func (c *TokenCodec) Encode(claims *models.Claims, key models.KeyMaterial) (string, error) {
	if key.IsZero() {
		return "", errors.ErrValidation.WithMessage("cannot sign with an empty key")
	}
	if claims == nil {
		claims = &models.Claims{}
	}

	mc := jwt.MapClaims{}
	for k, v := range claims.Extra {
		if _, reserved := registeredClaims[k]; reserved {
			continue
		}
		mc[k] = v
	}
	if claims.Subject != "" {
		mc["sub"] = claims.Subject
	}
	if claims.Issuer != "" {
		mc["iss"] = claims.Issuer
	}
	if claims.JTI != "" {
		mc["jti"] = claims.JTI
	}
	issuedAt := claims.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	mc["iat"] = jwt.NewNumericDate(issuedAt)
	if !claims.ExpiresAt.IsZero() {
		mc["exp"] = jwt.NewNumericDate(claims.ExpiresAt)
	}

	signed, err := jwt.NewWithClaims(c.method, mc).SignedString(key.SigningKey())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies token against key and returns its claims.
// Errors are errors.ErrTokenMalformed, errors.ErrTokenExpired or errors.ErrTokenSignature.
func (c *TokenCodec) Decode(token string, key models.KeyMaterial, opts DecodeOptions) (*models.Claims, error) {
	if key.IsZero() {
		return nil, errors.ErrTokenSignature.WithMessage("no verification key")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(c.acceptedAlgorithms(opts.Algorithms)),
	}
	if opts.Leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(opts.Leeway))
	}
	if opts.SkipExpiry {
		parserOpts = append(parserOpts, jwt.WithoutClaimsValidation())
	}

	mc := jwt.MapClaims{}
	_, err := jwt.NewParser(parserOpts...).ParseWithClaims(token, mc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key.SigningKey(), nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	return claimsFromMap(mc)
}

func (c *TokenCodec) acceptedAlgorithms(requested []string) []string {
	if len(requested) == 0 {
		return []string{c.method.Alg()}
	}
	accepted := make([]string, 0, len(requested))
	for _, alg := range requested {
		if _, ok := hmacMethods[alg]; ok {
			accepted = append(accepted, alg)
		}
	}
	if len(accepted) == 0 {
		return []string{c.method.Alg()}
	}
	return accepted
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errors.ErrTokenMalformed.WithError(err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.ErrTokenExpired.WithError(err)
	default:
		return errors.ErrTokenSignature.WithError(err)
	}
}

func claimsFromMap(mc jwt.MapClaims) (*models.Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil {
		return nil, errors.ErrTokenMalformed.WithError(err)
	}
	iss, err := mc.GetIssuer()
	if err != nil {
		return nil, errors.ErrTokenMalformed.WithError(err)
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, errors.ErrTokenMalformed.WithError(err)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, errors.ErrTokenMalformed.WithError(err)
	}

	claims := &models.Claims{
		Subject: sub,
		Issuer:  iss,
		Extra:   make(map[string]interface{}),
	}
	if jti, ok := mc["jti"].(string); ok {
		claims.JTI = jti
	}
	if iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	for k, v := range mc {
		if _, reserved := registeredClaims[k]; !reserved {
			claims.Extra[k] = v
		}
	}
	return claims, nil
}
