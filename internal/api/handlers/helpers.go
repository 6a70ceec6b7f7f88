package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	apperrors "github.com/zatekoja/Receptionqueue/backend/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps service errors to status codes. Anything that is
// not an AppError is reported as an internal error without its details.
func respondWithAppError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		log.Error().Err(err).Msg("Unhandled request error")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("error_type", string(appErr.Type)).Msg("Request failed")
	}
	respondWithError(w, status, appErr.Message)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
