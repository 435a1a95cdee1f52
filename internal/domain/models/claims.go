package models

import "time"

// Claims is the decoded content of a signed token.
// Registered names (sub, iss, jti, iat, exp) live in typed fields; everything else
// the caller added at issue time is kept in Extra.
// Claims 是已签名令牌的解码内容。
type Claims struct {
	Subject   string                 `json:"sub"`
	Issuer    string                 `json:"iss,omitempty"`
	JTI       string                 `json:"jti,omitempty"`
	IssuedAt  time.Time              `json:"iat"`
	ExpiresAt time.Time              `json:"exp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// HasExpiry reports whether the token carried an exp claim.
func (c *Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// AsMap flattens the claims back into a JWT-style claim set.
func (c *Claims) AsMap() map[string]interface{} {
	out := make(map[string]interface{}, len(c.Extra)+5)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.Subject != "" {
		out["sub"] = c.Subject
	}
	if c.Issuer != "" {
		out["iss"] = c.Issuer
	}
	if c.JTI != "" {
		out["jti"] = c.JTI
	}
	if !c.IssuedAt.IsZero() {
		out["iat"] = c.IssuedAt.Unix()
	}
	if !c.ExpiresAt.IsZero() {
		out["exp"] = c.ExpiresAt.Unix()
	}
	return out
}
