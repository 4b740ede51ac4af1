package middleware

import (
	"net/http"

	"propdesk/internal/services"
	"propdesk/internal/transport/httpdto"
	"propdesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error attached with c.Error when the handler
// did not write a response itself.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Ctx(c.Request.Context()).Errorf("request error: %s", err.Error())
		}
		if c.Writer.Written() {
			return
		}
		status := services.HTTPStatus(err)
		code := "INTERNAL_ERROR"
		if status < http.StatusInternalServerError {
			code = "REQUEST_FAILED"
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}
