package httpapi

import (
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-permissions/pkg/types"
)

type errorBody struct {
	Error    string         `json:"error"`
	Code     int            `json:"code"`
	TextCode string         `json:"text_code,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: msg, Code: http.StatusUnauthorized, TextCode: "UNAUTHORIZED"})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case types.IsPermissionDenied(err):
		return http.StatusForbidden
	case types.IsNotFound(err):
		return http.StatusNotFound
	case types.IsIllegalTransition(err):
		return http.StatusConflict
	case types.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: "internal error", Code: status, TextCode: types.TextCodePersistence}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		body.TextCode = rich.TextCode
		if status < http.StatusInternalServerError {
			body.Error = rich.Message
			if status == http.StatusBadRequest {
				body.Metadata = rich.Metadata
			}
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", err, "method", r.Method, "path", r.URL.Path)
	}
	writeJSON(w, status, body)
}
