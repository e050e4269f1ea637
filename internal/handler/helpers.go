// Package handler implements the JSON API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/luminapp/lumina/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError maps a domain error to its HTTP status and a JSON body carrying
// the error code and message.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	msg := err.Error()
	if code == apperr.Internal {
		msg = "internal error"
	}
	writeJSON(w, apperr.HTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": msg,
	})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":   string(apperr.InvalidArgument),
		"message": msg,
	})
}

// parseIDParam reads a path value as an int64 id.
func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
