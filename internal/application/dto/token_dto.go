package dto

import (
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
)

// IssueTokenRequest 令牌签发请求 DTO
type IssueTokenRequest struct {
	Subject string                 `json:"subject" binding:"required"`
	Claims  map[string]interface{} `json:"claims,omitempty"`
}

// IssueTokenResponse 令牌签发响应 DTO
type IssueTokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	JTI         string    `json:"jti"`
}

// NewIssueTokenResponse builds the response for a freshly signed token.
func NewIssueTokenResponse(token string, claims *models.Claims) *IssueTokenResponse {
	return &IssueTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(claims.ExpiresAt.Sub(claims.IssuedAt).Seconds()),
		ExpiresAt:   claims.ExpiresAt.UTC(),
		JTI:         claims.JTI,
	}
}

// RevokeTokenRequest 令牌吊销请求 DTO
type RevokeTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RevokeTokenResponse 令牌吊销响应 DTO
type RevokeTokenResponse struct {
	Revoked   bool      `json:"revoked"`
	ExpiresAt time.Time `json:"expires_at"`
	Degraded  bool      `json:"degraded,omitempty"`
}

// NewRevokeTokenResponse maps a ledger entry. The revocation key itself is not exposed.
func NewRevokeTokenResponse(entry *models.RevocationEntry) *RevokeTokenResponse {
	return &RevokeTokenResponse{
		Revoked:   true,
		ExpiresAt: entry.ExpiresAt.UTC(),
		Degraded:  entry.Degraded,
	}
}

// PrincipalResponse 已认证调用者信息 DTO
type PrincipalResponse struct {
	Subject                string   `json:"subject"`
	UserID                 uint     `json:"user_id"`
	Username               string   `json:"username"`
	Email                  string   `json:"email,omitempty"`
	Roles                  []string `json:"roles,omitempty"`
	VerifiedWithRetiredKey bool     `json:"verified_with_retired_key"`
	ShouldReauthenticate   bool     `json:"should_reauthenticate"`
	DegradedLookup         bool     `json:"degraded_lookup,omitempty"`
}

// NewPrincipalResponse flattens a principal for the wire.
func NewPrincipalResponse(p *models.Principal) *PrincipalResponse {
	resp := &PrincipalResponse{
		Subject:                p.Subject,
		VerifiedWithRetiredKey: p.VerifiedWithRetiredKey,
		ShouldReauthenticate:   p.ShouldReauthenticate,
		DegradedLookup:         p.DegradedLookup,
	}
	if p.User != nil {
		resp.UserID = p.User.ID
		resp.Username = p.User.Username
		resp.Email = p.User.Email
		for _, r := range p.User.Roles {
			resp.Roles = append(resp.Roles, r.Name)
		}
	}
	return resp
}
