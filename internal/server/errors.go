package server

import (
	"errors"
	"net/http"

	accountdomain "github.com/airfieldhq/clubops/internal/account/domain"
	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	billingdomain "github.com/airfieldhq/clubops/internal/billing/domain"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	flightdomain "github.com/airfieldhq/clubops/internal/flight/domain"
	"github.com/airfieldhq/clubops/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: err.Error()}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, clubdomain.ErrInvalidClub),
		errors.Is(err, clubdomain.ErrInvalidName),
		errors.Is(err, clubdomain.ErrInvalidMember),
		errors.Is(err, clubdomain.ErrInvalidRole),
		errors.Is(err, aircraftdomain.ErrInvalidClub),
		errors.Is(err, aircraftdomain.ErrInvalidTailNumber),
		errors.Is(err, aircraftdomain.ErrInvalidHourlyRate),
		errors.Is(err, aircraftdomain.ErrInvalidID),
		errors.Is(err, aircraftdomain.ErrInvalidMeterReading),
		errors.Is(err, flightdomain.ErrInvalidRecordID),
		errors.Is(err, accountdomain.ErrInvalidMember),
		errors.Is(err, accountdomain.ErrInvalidEmail),
		errors.Is(err, accountdomain.ErrInvalidAmount),
		errors.Is(err, accountdomain.ErrInvalidCustomer),
		errors.Is(err, billingdomain.ErrInvalidRunID),
		errors.Is(err, billingdomain.ErrInvalidInvoiceID),
		errors.Is(err, pagination.ErrInvalidPageToken):
		return true
	}
	return false
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, clubdomain.ErrNotMember),
		errors.Is(err, clubdomain.ErrAdminRequired),
		errors.Is(err, flightdomain.ErrForbidden):
		return true
	}
	return false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, clubdomain.ErrNotFound),
		errors.Is(err, aircraftdomain.ErrNotFound),
		errors.Is(err, flightdomain.ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, billingdomain.ErrRunNotFound),
		errors.Is(err, billingdomain.ErrInvoiceNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	}
	return false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, aircraftdomain.ErrConflict),
		errors.Is(err, aircraftdomain.ErrDuplicateTail),
		errors.Is(err, clubdomain.ErrAlreadyMember),
		errors.Is(err, accountdomain.ErrDuplicate),
		errors.Is(err, flightdomain.ErrAlreadyClosed),
		errors.Is(err, billingdomain.ErrRunInProgress),
		errors.Is(err, billingdomain.ErrInvoiceNotPending):
		return true
	}
	return false
}

// classifyErrorForLog feeds the request logger's error fields.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Message
}
