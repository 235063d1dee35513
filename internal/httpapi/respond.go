package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nikbrunner/minitab/internal/apperr"
)

const (
	maxBodySize   = 1 << 20
	maxImportSize = 16 << 20
)

type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Details any         `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = &apperr.Error{Code: apperr.CodeBackend, Message: "internal error"}
	}

	body := errorBody{Code: e.Code, Message: e.Message, Details: e.Details}
	if e.Code == apperr.CodeBackend {
		// substrate errors stay in the log
		body.Message = "internal error"
	}
	writeJSON(w, e.HTTPStatus(), body)
}

// decode reads a JSON body of at most limit bytes into v.
func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid JSON: " + err.Error())
	}
	return nil
}

// orEmpty makes nil slices encode as [].
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
