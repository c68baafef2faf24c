package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCartNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrOwnerInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotMember), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTransactionAborted), errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNetworkFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and answers with the notice for op. Error details stay
// in the log.
func (h *handlers) writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	h.logger.Printf("httpserver: %s %s status=%d err=%v", c.Request.Method, c.FullPath(), status, err)
	c.JSON(status, gin.H{"error": domain.NoticeFor(op, err)})
}

func (h *handlers) badRequest(c *gin.Context, op string, err error) {
	h.writeError(c, op, errors.Join(err, domain.ErrValidation))
}
