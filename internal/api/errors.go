package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Epistemic-Technology/paper-assistant/internal/processing"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

// statusFor maps a pipeline error to its HTTP status code.
func statusFor(err error) int {
	var validationErr *models.ValidationError
	var extractionErr *models.ExtractionError
	var modelErr *models.ModelCallError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &maxBytesErr):
		return http.StatusBadRequest
	case errors.As(err, &extractionErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &modelErr):
		return http.StatusBadGateway
	case errors.Is(err, processing.ErrPaperNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the text shown to the client for err.
func messageFor(err error) string {
	if errors.Is(err, processing.ErrPaperNotFound) {
		return "Paper not found"
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return "Request body too large"
	}
	return models.UserMessage(err)
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": messageFor(err)})
}
