package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sendhub/sendhub/logger"
)

// AppError is an error with an HTTP status and an optional structured detail
// object for the response envelope.
type AppError struct {
	Status  int
	Message string
	Detail  interface{}
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Message: message}
}

func NewValidation(message string, detail interface{}) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message, Detail: detail}
}

// QuotaDetail is the numeric triple carried by every quota-exceeded response
// so clients can back off intelligently.
type QuotaDetail struct {
	Limit     int `json:"limit"`
	Sent      int `json:"sent"`
	Remaining int `json:"remaining"`
}

// NewQuotaExceeded builds the 429 response for a rejected usage check.
func NewQuotaExceeded(limit, sent, remaining int) *AppError {
	return &AppError{
		Status:  http.StatusTooManyRequests,
		Message: "Daily email limit reached (" + strconv.Itoa(sent) + "/" + strconv.Itoa(limit) + ")",
		Detail:  QuotaDetail{Limit: limit, Sent: sent, Remaining: remaining},
	}
}

// NewTransportError maps a synchronous SMTP failure (the test-config path) to 502.
func NewTransportError(err error) *AppError {
	return &AppError{
		Status:  http.StatusBadGateway,
		Message: "Email sending failed",
		Detail:  map[string]string{"type": "EmailError", "details": err.Error()},
	}
}

// development controls whether 500 responses include error detail. Set once at
// startup from config.
var development bool

func SetDevelopment(dev bool) {
	development = dev
}

// HandleError maps an error onto the response envelope per the error taxonomy:
// AppError statuses pass through, Mongo duplicate keys become 409, anything
// else is a 500 with detail suppressed outside development.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		Error(w, appErr.Status, appErr.Message, appErr.Detail)
		return
	}
	if mongo.IsDuplicateKeyError(err) {
		Error(w, http.StatusConflict, "Duplicate value", map[string]string{
			"type":    "DuplicateKeyError",
			"details": err.Error(),
		})
		return
	}
	logger.Sugar.Errorw("unhandled API error", "error", err)
	detail := interface{}(map[string]string{"type": "InternalError", "details": "Internal server error"})
	if development {
		detail = map[string]string{"type": "InternalError", "details": err.Error()}
	}
	Error(w, http.StatusInternalServerError, "An unexpected error occurred", detail)
}

func atoiPositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("not positive: %d", n)
	}
	return n, nil
}
