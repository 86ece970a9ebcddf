package middleware

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const redacted = "REDACTED"

// RequestLogger is gin's access logger with the "token" query parameter
// masked, so bearer tokens passed in the URL never reach the logs.
func RequestLogger() gin.HandlerFunc {
	return requestLogger(nil)
}

// requestLogger writes to out, or gin.DefaultWriter when out is nil.
func requestLogger(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{Formatter: accessLogLine, Output: out})
}

// accessLogLine keeps gin's default line layout.
func accessLogLine(p gin.LogFormatterParams) string {
	var statusColor, methodColor, resetColor string
	if p.IsOutputColor() {
		statusColor = p.StatusCodeColor()
		methodColor = p.MethodColor()
		resetColor = p.ResetColor()
	}
	if p.Latency > time.Minute {
		p.Latency = p.Latency.Truncate(time.Second)
	}
	return fmt.Sprintf("[GIN] %v |%s %3d %s| %13v | %15s |%s %-7s %s %#v\n%s",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		statusColor, p.StatusCode, resetColor,
		p.Latency,
		p.ClientIP,
		methodColor, p.Method, resetColor,
		redactToken(p.Path),
		p.ErrorMessage,
	)
}

func redactToken(path string) string {
	i := strings.IndexByte(path, '?')
	if i < 0 {
		return path
	}
	query, err := url.ParseQuery(path[i+1:])
	if err != nil {
		// keep the path, drop a query we cannot mask
		return path[:i]
	}
	if _, ok := query["token"]; !ok {
		return path
	}
	query.Set("token", redacted)
	return path[:i+1] + query.Encode()
}
