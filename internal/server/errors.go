package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/llehouerou/vibeflow/internal/errmsg"
)

// respondError writes err as {"error": msg} with a status derived from its kind.
// Errors of unknown kind are logged and reported as a generic failure of op.
func (s *Server) respondError(c *gin.Context, op errmsg.Op, err error) {
	status, msg := http.StatusInternalServerError, "Failed to "+string(op)

	switch kind := errmsg.Kind(err); {
	case errors.Is(kind, errmsg.ErrNotAuthenticated):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(kind, errmsg.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(kind, errmsg.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(kind, errmsg.ErrExternalAuthRequired):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(kind, errmsg.ErrRemoteUnavailable):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(errmsg.Format(op, err), "path", c.Request.URL.Path)
	}
	c.JSON(status, gin.H{"error": msg})
}

// badRequest reports a malformed request body.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
