package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/sweeper/core"
)

// statusFor maps a service error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorizedCaller):
		return http.StatusForbidden
	case errors.Is(err, core.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	}

	kind, ok := core.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindAuthorization:
		return http.StatusUnauthorized
	case core.KindInitialization, core.KindAccountState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as {"error", "code"}. Errors that did not come
// from the protocol are logged and hidden behind a generic message.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)

	e, ok := core.AsError(err)
	if !ok {
		log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}

	log.Debugf("%s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": e.Code})
}

func abortBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
