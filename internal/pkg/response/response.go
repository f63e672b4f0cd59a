// Package response provides the JSON envelope shared by all HTTP handlers.
package response

import (
	"net/http"

	infraerrors "github.com/biatec-io/gdrive-account/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Body{
		Code:    status,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// ErrorFrom maps a service error onto the envelope using its carried status
// and message.
func ErrorFrom(c *gin.Context, err error) {
	ae := infraerrors.FromError(err)
	if ae == nil {
		Success(c, nil)
		return
	}
	Error(c, ae.Status, ae.Message)
}
