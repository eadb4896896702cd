package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// LogApi writes one access line per request. Health probes are skipped.
func LogApi(skipPaths ...string) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: skipPaths,
		Formatter: func(param gin.LogFormatterParams) string {
			userID, _ := param.Keys[ContextUserID].(string)
			return fmt.Sprintf("[%s] | %s | %d | %s | %s | user=%s | %s | %s\n",
				param.TimeStamp.Format("2006-01-02 15:04:05"),
				param.ClientIP,
				param.StatusCode,
				param.Method,
				param.Path,
				userID,
				param.ErrorMessage,
				param.Latency,
			)
		},
	})
}
