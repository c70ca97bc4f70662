package api

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
)

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, internalerr.ErrInvalidInput), errors.Is(err, internalerr.ErrInvalidYield):
		return http.StatusBadRequest
	case errors.Is(err, internalerr.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, internalerr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body. Store outages keep their message;
// messages of unexpected errors stay in the log.
func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusServiceUnavailable {
		h.log.Warn("store unavailable",
			zap.String("request_id", requestid.Get(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	if status == http.StatusInternalServerError {
		h.log.Error("rpc failed",
			zap.String("request_id", requestid.Get(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (h *handlers) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request: " + err.Error()})
}
