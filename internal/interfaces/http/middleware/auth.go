package middleware

import (
	"context"
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
	"github.com/turtacn/authcore/pkg/utils"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*models.Principal, error)
}

// RequireAuth protects routes that need an authenticated caller.
// Every failure produces the same 401 body; the cause is only visible in logs and metrics.
// RequireAuth 保护需要已认证调用者的路由。
func RequireAuth(auth Authenticator, log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("RequireAuth")
	return func(c *gin.Context) {
		tokenStr := utils.ExtractBearer(c.GetHeader(constants.HeaderAuthorization))

		principal, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			log.Debug(c.Request.Context(), "Request rejected", logger.String("path", c.FullPath()))
			dto.AbortWithError(c, errors.ErrInvalidCredentials)
			return
		}

		if principal.ShouldReauthenticate {
			c.Header(constants.HeaderReauthenticate, "true")
		}
		c.Set(string(constants.ContextKeyPrincipal), principal)
		c.Set(string(constants.ContextKeyRawToken), tokenStr)
		c.Next()
	}
}

// RequireAdmin guards operator routes with a shared admin token.
// An empty configured token rejects every request.
// RequireAdmin 使用共享管理令牌保护运维路由。
func RequireAdmin(adminToken string, log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("RequireAdmin")
	want := []byte(adminToken)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(constants.HeaderAdminToken))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			log.Warn(c.Request.Context(), "Admin request rejected",
				logger.String("path", c.FullPath()),
				logger.String("client_ip", c.ClientIP()),
			)
			dto.AbortWithError(c, errors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by RequireAuth.
func PrincipalFrom(c *gin.Context) (*models.Principal, bool) {
	v, ok := c.Get(string(constants.ContextKeyPrincipal))
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Principal)
	return p, ok
}

// RawTokenFrom returns the bearer token accepted by RequireAuth.
func RawTokenFrom(c *gin.Context) string {
	return c.GetString(string(constants.ContextKeyRawToken))
}
