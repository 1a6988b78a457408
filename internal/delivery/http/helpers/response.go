package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Codes carried in APIError.Code. Most callers let WriteError derive them from the status.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodePayloadTooLarge = "payload_too_large"
	ErrCodeBadGateway      = "bad_gateway"
	ErrCodeInternalError   = "internal_error"
)

var statusCodes = map[int]string{
	http.StatusBadRequest:            ErrCodeBadRequest,
	http.StatusUnauthorized:          ErrCodeUnauthorized,
	http.StatusForbidden:             ErrCodeForbidden,
	http.StatusNotFound:              ErrCodeNotFound,
	http.StatusConflict:              ErrCodeConflict,
	http.StatusRequestEntityTooLarge: ErrCodePayloadTooLarge,
	http.StatusBadGateway:            ErrCodeBadGateway,
	http.StatusInternalServerError:   ErrCodeInternalError,
}

// ErrorCode returns the API error code for an HTTP status.
// Unlisted 4xx statuses report bad_request and everything else internal_error.
func ErrorCode(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	if status >= 400 && status < 500 {
		return ErrCodeBadRequest
	}
	return ErrCodeInternalError
}

// APIError describes why a request failed.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse wraps every body the API writes. Exactly one of Data and Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess writes data inside the envelope with the given status.
func WriteJSONSuccess(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, APIResponse{Data: data})
}

// WriteError writes message as an error envelope whose code follows from status.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, APIResponse{Error: &APIError{Code: ErrorCode(status), Message: message}})
}

// WriteErrorf is WriteError with a formatted message.
func WriteErrorf(w http.ResponseWriter, status int, format string, args ...any) {
	WriteError(w, status, fmt.Sprintf(format, args...))
}

// writeEnvelope encodes resp before writing any header. A payload that cannot
// be encoded is answered with a 500 envelope.
func writeEnvelope(w http.ResponseWriter, status int, resp APIResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(APIResponse{Error: &APIError{Code: ErrCodeInternalError, Message: "response could not be encoded"}})
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
