package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// RespondValidation writes a 400 with one entry per failed field when err is a validator error,
// and a generic invalid body message otherwise.
func RespondValidation(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string, len(validationErrors))
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
		return
	}
	logger.WarnContext(r.Context(), "Invalid request body", "error", err)
	RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
}

// DecodeJSON decodes the request body into dst and answers 400 on malformed input.
func DecodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// ParseID extracts and validates the {id} path value. label names the resource in the error message.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger, label string) (uuid.UUID, bool) {
	pathValueID := r.PathValue("id")
	id, err := uuid.Parse(pathValueID)
	if err != nil {
		logger.WarnContext(r.Context(), "Malformed id in path", "id", pathValueID)
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s id", label))
		return uuid.Nil, false
	}
	return id, true
}

// GetUserID returns the authenticated user id placed in the context by Authenticate.
func GetUserID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, logger, http.StatusUnauthorized, UnauthorizedMessage)
		return uuid.Nil, false
	}
	return userID, true
}

// NotFound answers unknown routes with the standard error body.
func NotFound(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, logger, http.StatusNotFound, "Route not found: "+r.URL.Path)
	}
}
