package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/authcore/pkg/errors"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message,omitempty"`
}

// NewErrorResponse 将错误转换为响应体和 HTTP 状态码
// Authentication failures always collapse to the same body so callers cannot tell causes apart.
func NewErrorResponse(err error) (int, *ErrorResponse) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.ErrInternal
	}

	if errors.IsAuthenticationError(err) ||
		(appErr.HTTPStatus == http.StatusUnauthorized && appErr.Code != errors.ErrCodeUnauthorized) {
		appErr = errors.ErrInvalidCredentials
	}

	resp := &ErrorResponse{
		Error:            appErr.Code,
		ErrorDescription: appErr.Description,
	}
	// 客户端错误附带具体信息，服务端错误不暴露内部细节
	if appErr.HTTPStatus == http.StatusBadRequest && appErr.Message != "" {
		resp.Message = appErr.Message
	}
	return appErr.HTTPStatus, resp
}

// SendError 发送错误响应
func SendError(c *gin.Context, err error) {
	status, body := NewErrorResponse(err)
	c.JSON(status, body)
}

// AbortWithError 发送错误响应并终止中间件链
func AbortWithError(c *gin.Context, err error) {
	status, body := NewErrorResponse(err)
	c.AbortWithStatusJSON(status, body)
}

// SendSuccess 发送成功响应
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
