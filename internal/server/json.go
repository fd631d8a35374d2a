package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roach88/mentu/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// writeError reports err as its apperr JSON form. Foreign errors are logged
// and surface as E_INTERNAL without their message.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		slog.Error("request failed", slog.String("error", err.Error()))
		ae = apperr.New(apperr.CodeInternal, "Internal server error")
	}
	writeJSON(w, apperr.HTTPStatus(ae.Code), ae)
}
