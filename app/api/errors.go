package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feed-curator/app/feed"
)

func statusFor(err error) int {
	var (
		parseErr       *feed.ParseError
		validationErr  *feed.ValidationError
		notFoundErr    *feed.NotFoundError
		unsupportedErr *feed.UnsupportedFormatError
		serviceErr     *feed.ExternalServiceError
	)

	switch {
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &unsupportedErr):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &serviceErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, operation string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "error", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	slog.Debug("Request rejected", "operation", operation, "status", status, "error", err)

	body := gin.H{"error": err.Error()}
	var serviceErr *feed.ExternalServiceError
	if errors.As(err, &serviceErr) {
		body["kind"] = serviceErr.Kind
	}
	c.JSON(status, body)
}
