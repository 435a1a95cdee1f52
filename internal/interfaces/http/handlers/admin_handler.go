package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// KeyManager is the administrative surface of the key rotation controller.
type KeyManager interface {
	Rotate(ctx context.Context, newKey string) (*models.RotationResult, error)
	CleanupExpired(ctx context.Context, graceDays int) int
	KeyInfo() models.KeyInfo
}

// TokenMinter signs new tokens.
type TokenMinter interface {
	Issue(ctx context.Context, subject string, extra map[string]interface{}) (string, *models.Claims, error)
}

// AdminHandler serves operator-only key and token endpoints.
// AdminHandler 提供仅限运维人员使用的密钥与令牌接口。
type AdminHandler struct {
	keys    KeyManager
	tokens  TokenMinter
	revoker TokenRevoker
	log     logger.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(keys KeyManager, tokens TokenMinter, revoker TokenRevoker, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		keys:    keys,
		tokens:  tokens,
		revoker: revoker,
		log:     log.WithComponent("AdminHandler"),
	}
}

// RotateKey installs a supplied key or generates one. The response is the only place
// the full new key is ever returned.
func (h *AdminHandler) RotateKey(c *gin.Context) {
	var req dto.RotateKeyRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.keys.Rotate(c.Request.Context(), req.NewKey)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	dto.SendSuccess(c, http.StatusOK, dto.NewRotateKeyResponse(result))
}

// CleanupKeys clears retired keys once the grace period has elapsed.
func (h *AdminHandler) CleanupKeys(c *gin.Context) {
	var req dto.CleanupRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	graceDays := constants.UseDefaultGraceDays
	if req.GraceDays != nil {
		if *req.GraceDays < 0 {
			dto.SendError(c, errors.ErrInvalidRequest.WithMessage("grace_days must not be negative"))
			return
		}
		graceDays = *req.GraceDays
	}
	removed := h.keys.CleanupExpired(c.Request.Context(), graceDays)
	dto.SendSuccess(c, http.StatusOK, &dto.CleanupResponse{Removed: removed})
}

// KeyInfo returns the operator-safe key summary.
func (h *AdminHandler) KeyInfo(c *gin.Context) {
	dto.SendSuccess(c, http.StatusOK, h.keys.KeyInfo())
}

// IssueToken mints a token for a subject.
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req dto.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithMessage("subject is required").WithError(err))
		return
	}

	token, claims, err := h.tokens.Issue(c.Request.Context(), req.Subject, req.Claims)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	dto.SendSuccess(c, http.StatusCreated, dto.NewIssueTokenResponse(token, claims))
}

// RevokeToken revokes an arbitrary token on behalf of its holder.
func (h *AdminHandler) RevokeToken(c *gin.Context) {
	var req dto.RevokeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithMessage("token is required").WithError(err))
		return
	}

	entry, err := h.revoker.Logout(c.Request.Context(), req.Token)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, dto.NewRevokeTokenResponse(entry))
}

// bindOptionalJSON decodes the body when one is present. An empty body leaves req untouched.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		dto.SendError(c, errors.ErrInvalidRequest.WithMessage("malformed JSON body").WithError(err))
		return false
	}
	return true
}
