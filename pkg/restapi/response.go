package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"subtitle-hub/pkg/errno"
)

// Success writes a 200 response with the payload as body.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, data)
}

// Failed maps an error to an HTTP status. *Errno codes are HTTP-aligned and
// pass through directly; anything else is a 500.
func Failed(ctx *gin.Context, err error) {
	var e *errno.Errno
	if errors.As(err, &e) {
		status := e.Code
		if status < 400 || status > 599 {
			status = http.StatusInternalServerError
		}
		ctx.JSON(status, gin.H{"code": e.Code, "detail": e.Message})
		return
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "detail": err.Error()})
}
