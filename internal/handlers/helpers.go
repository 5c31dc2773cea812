package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/smart-snippets/internal/apperror"
	logpkg "github.com/benvon/smart-snippets/internal/logger"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError sends an error JSON response
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	writeErrorBody(w, status, errorType, message, nil)
}

func writeErrorBody(w http.ResponseWriter, status int, errorType, message string, fields []apperror.FieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   logpkg.SanitizeString(message, maxErrorMessageLength),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if len(fields) > 0 {
		response["fields"] = fields
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondAppError maps a service error onto a status code. Anything that is
// not a known kind is logged and answered with a generic 500.
func respondAppError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		writeErrorBody(w, http.StatusBadRequest, "Bad Request", err.Error(), apperror.FieldsOf(err))
	case errors.Is(err, apperror.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, apperror.ErrUnauthenticated):
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		var appErr *apperror.AppError
		message := "An unexpected error occurred"
		if errors.As(err, &appErr) && errors.Is(err, apperror.ErrStorage) {
			message = appErr.Message
		}
		logger.Error("request_failed",
			zap.String("method", r.Method),
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", message)
	}
}

// decodeJSON reads the request body into dst. On failure the response has
// already been written and false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

// pathID parses the {id} route variable. On failure a 400 has been written.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, "Bad Request", "Invalid snippet id",
			[]apperror.FieldError{{Field: "id", Message: "must be a UUID"}})
		return uuid.Nil, false
	}
	return id, true
}
