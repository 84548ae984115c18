package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/parking-lot/pkg/logger"
	"go.uber.org/zap"
)

// HandleServiceError writes the response for a failed service call.
// Returns true if an error was handled (and a response was sent).
//
// Usage:
//
//	result, err := h.service.DoSomething(ctx, req)
//	if HandleServiceError(c, err, "failed to do something") {
//	    return
//	}
func HandleServiceError(c *gin.Context, err error, fallbackMessage string) bool {
	if err == nil {
		return false
	}

	if appErr, ok := AsAppError(err); ok {
		if appErr.Code >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		AppErrorResponse(c, appErr)
		return true
	}

	logger.ErrorContext(c.Request.Context(), fallbackMessage, zap.Error(err))
	_ = c.Error(err)
	ErrorResponse(c, http.StatusInternalServerError, fallbackMessage)
	return true
}
