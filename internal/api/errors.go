package api

import (
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/gin-gonic/gin"
)

// httpStatus maps a Connect error code to the REST status code.
func httpStatus(code connect.Code) int {
	switch code {
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest
	case connect.CodeAlreadyExists, connect.CodeFailedPrecondition, connect.CodeAborted:
		return http.StatusConflict
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as { "error": message }.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		status = httpStatus(connectErr.Code())
		msg = connectErr.Message()
	} else {
		s.deps.Logger.Error("Unclassified handler error", "path", c.Request.URL.Path, "error", err)
	}

	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
