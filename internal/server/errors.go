package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/scopeview/internal/capture"
	"github.com/verte-zerg/scopeview/internal/session"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

var errBadRequest = errors.New("invalid request")

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, capture.ErrEmptyDataset), errors.Is(err, capture.ErrMalformedInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, capture.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, capture.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrNoCapture):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidSettings), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, message string, err error) {
	c.AbortWithStatusJSON(statusFor(err), ErrorResponse{
		Error:   message,
		Details: err.Error(),
	})
}
