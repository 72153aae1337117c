// Package httpx holds the JSON response helpers shared by all HTTP handlers.
package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tabletap/tabletap/pkg/apperr"
)

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps a classified error onto its HTTP status and stable code.
// Unclassified errors are logged and reported as a generic internal error;
// verbose mode (development) includes the raw message in the body.
func Error(w http.ResponseWriter, log *slog.Logger, err error, verbose bool) {
	status := apperr.HTTPStatus(err)
	body := errorBody{Code: apperr.Code(err), Error: err.Error()}
	if status == http.StatusInternalServerError {
		log.Error("unclassified error", "err", err)
		if !verbose {
			body.Error = "internal error"
		}
	}
	JSON(w, status, body)
}
