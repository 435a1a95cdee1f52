package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/interfaces/http/middleware"
	"github.com/turtacn/authcore/pkg/errors"
)

// TokenRevoker revokes a presented token.
type TokenRevoker interface {
	Logout(ctx context.Context, rawToken string) (*models.RevocationEntry, error)
}

// AuthHandler handles HTTP requests for authenticated callers.
type AuthHandler struct {
	revoker TokenRevoker
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(revoker TokenRevoker) *AuthHandler {
	return &AuthHandler{revoker: revoker}
}

// Me returns the principal resolved by RequireAuth.
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		dto.SendError(c, errors.ErrInvalidCredentials)
		return
	}
	dto.SendSuccess(c, http.StatusOK, dto.NewPrincipalResponse(principal))
}

// Logout revokes the bearer token used for this request.
func (h *AuthHandler) Logout(c *gin.Context) {
	entry, err := h.revoker.Logout(c.Request.Context(), middleware.RawTokenFrom(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, dto.NewRevokeTokenResponse(entry))
}
