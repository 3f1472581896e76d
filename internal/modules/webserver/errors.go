package webserver

import (
	"encoding/json"
	"net/http"

	"botd/pkg/types"
)

// HTTPError lets a route handler choose the status code of its error.
type HTTPError interface {
	error
	StatusCode() int
}

type statusError struct {
	code int
	msg  string
}

func (e statusError) Error() string   { return e.msg }
func (e statusError) StatusCode() int { return e.code }

// Error returns an HTTPError with the given status.
func Error(code int, msg string) error { return statusError{code: code, msg: msg} }

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
