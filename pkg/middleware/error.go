package middleware

import (
	"errors"

	"kudos-controlplane/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type jsonError interface {
	JSON() any
}

// Error renders the last error attached by a handler. Errors that carry a
// Status() are mapped to its HTTP code; anything else is a 500.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		err := last.Err

		status := errutil.StatusOf(err)
		if status == errutil.StatusInternal {
			zap.L().Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}

		var body jsonError
		if errors.As(err, &body) {
			c.JSON(status.HTTPStatus(), body.JSON())
			return
		}

		c.JSON(status.HTTPStatus(), errutil.BaseError{Code: status, Message: message(status, err)}.JSON())
	}
}

// message hides internal error text from clients.
func message(status errutil.CoreStatus, err error) string {
	if status == errutil.StatusInternal {
		return "internal error"
	}
	return err.Error()
}
