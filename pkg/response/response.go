package response

import (
	"spacehub/internal/models"

	"github.com/gin-gonic/gin"
)

// message
var msg = map[int]string{
	400: "Invalid input data",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not found",
	409: "Conflict",
	429: "Too many requests",
	500: "Internal server error",
	503: "Service unavailable",
}

// Message returns the default message for an HTTP status code
func Message(code int) string {
	if m, ok := msg[code]; ok {
		return m
	}
	return "Error"
}

// Error aborts the request with a models.ErrorResponse body.
// An empty message falls back to the default for the status code.
func Error(c *gin.Context, code int, message, details string) {
	if message == "" {
		message = Message(code)
	}
	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
