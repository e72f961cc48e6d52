// Package httputil writes JSON responses in the shape every endpoint uses.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"loanmanager/apperrors"
)

// JSON writes v as the JSON body with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to encode response body")
	}
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Error renders err as {"message": ...} with the status of its kind.
func Error(w http.ResponseWriter, err error) {
	Message(w, apperrors.StatusOf(err), apperrors.MessageOf(err))
}
