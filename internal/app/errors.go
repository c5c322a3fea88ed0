package app

import (
	"fmt"
	"net/http"
)

// DomainError is an error that already knows its HTTP status and the
// machine-readable code written to the {"code","error"} payload.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func serverError(message string) *DomainError {
	return domainError(http.StatusInternalServerError, "SERVER_ERROR", message, nil)
}

var errHistoryDisabled = domainError(http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Todo history is not enabled", nil)
