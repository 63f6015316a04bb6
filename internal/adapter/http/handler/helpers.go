package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/emiledger/internal/adapter/http/dto"
	"github.com/iho/emiledger/internal/domain"
)

// Error codes carried in dto.ErrorResponse.Code.
const (
	CodeNotFound       = "not_found"
	CodeInvalidAmount  = "invalid_amount"
	CodeOverpayment    = "overpayment_rejected"
	CodeLockTimeout    = "lock_timeout"
	CodeStorageFailure = "storage_failure"
	CodeAlreadyExists  = "already_exists"
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal_error"
)

// lockTimeoutRetryAfter is the Retry-After value, in seconds, sent with lock_timeout.
const lockTimeoutRetryAfter = "1"

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Code:    code,
		Message: details,
	})
}

// writeDomainError maps err to a status and code and writes it.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := mapDomainError(err)
	if code == CodeLockTimeout {
		w.Header().Set("Retry-After", lockTimeoutRetryAfter)
	}
	writeError(w, status, code, message, err.Error())
}

// mapDomainError maps domain errors to HTTP status codes and error codes.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, CodeInvalidAmount
	case errors.Is(err, domain.ErrOverpaymentRejected):
		return http.StatusUnprocessableEntity, CodeOverpayment
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusConflict, CodeLockTimeout
	case errors.Is(err, domain.ErrCustomerAlreadyExists):
		return http.StatusConflict, CodeAlreadyExists
	case errors.Is(err, domain.ErrStorageFailure):
		return http.StatusServiceUnavailable, CodeStorageFailure
	case errors.Is(err, domain.ErrInvalidAccountNumber),
		errors.Is(err, domain.ErrInvalidCustomerName),
		errors.Is(err, domain.ErrInvalidInterestRate),
		errors.Is(err, domain.ErrInvalidTenure),
		errors.Is(err, domain.ErrInvalidIssueDate),
		errors.Is(err, domain.ErrInvalidLoanAmount):
		return http.StatusBadRequest, CodeInvalidRequest
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
