package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/65160020/swapup-backend/pkg/errors"
	"github.com/65160020/swapup-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// respondError maps service-layer errors onto HTTP responses. State
// conflicts include the authoritative session state so the client can
// resync its view without an extra fetch.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body := gin.H{"error": appErr.Message}
		if appErr.State != "" {
			body["state"] = appErr.State
		}
		c.JSON(appErr.Code, body)
		return
	}

	logger.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled handler error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
}
