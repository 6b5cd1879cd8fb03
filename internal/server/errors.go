package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/fractal/pkg/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

var statusByCode = map[errors.Code]int{
	errors.ErrCodeOutOfRange:           http.StatusBadRequest,
	errors.ErrCodeInvalidArgument:      http.StatusBadRequest,
	errors.ErrCodeInvalidConfiguration: http.StatusBadRequest,
	errors.ErrCodeInvalidInput:         http.StatusBadRequest,
	errors.ErrCodeInvalidFormat:        http.StatusBadRequest,
	errors.ErrCodeInvalidPath:          http.StatusBadRequest,
	errors.ErrCodeNotFound:             http.StatusNotFound,
	errors.ErrCodeTaskNotFound:         http.StatusNotFound,
	errors.ErrCodeConflict:             http.StatusConflict,
	errors.ErrCodeUnauthorized:         http.StatusUnauthorized,
	errors.ErrCodeRateLimited:          http.StatusTooManyRequests,
	errors.ErrCodeNetwork:              http.StatusBadGateway,
	errors.ErrCodeTimeout:              http.StatusGatewayTimeout,
	errors.ErrCodeUnsupported:          http.StatusNotImplemented,
	errors.ErrCodeInternal:             http.StatusInternalServerError,
}

// statusFor maps an error to its HTTP status and public body. Errors
// without a code are reported as internal without leaking their text.
func statusFor(err error) (int, errorBody) {
	code := errors.GetCode(err)
	status, ok := statusByCode[code]
	if !ok {
		return http.StatusInternalServerError, errorBody{Code: errors.ErrCodeInternal, Message: "internal error"}
	}
	return status, errorBody{Code: code, Message: errors.UserMessage(err)}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := statusFor(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(path string) error {
	return errors.New(errors.ErrCodeNotFound, "no route for %s", path)
}

func methodNotAllowed(method, path string) error {
	return errors.New(errors.ErrCodeUnsupported, "%s not allowed on %s", method, path)
}
