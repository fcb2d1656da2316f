package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/talentscout/scout/internal/interview"
	"github.com/talentscout/scout/internal/ollama"
)

// errorResponse is the JSON error envelope returned by all endpoints.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func httpError(w http.ResponseWriter, status int, errType, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{
		Error: errorDetail{
			Message: fmt.Sprintf(format, args...),
			Type:    errType,
		},
	})
}

// classify maps controller and gateway errors onto HTTP status codes and
// error types. Transport, timeout, and storage failures all surface as a
// visible error for the single request; the session is retryable.
func classify(err error) (status int, errType string) {
	var ve *interview.ValidationError
	var te *ollama.TimeoutError
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, interview.ErrSessionDone):
		return http.StatusConflict, "session_done"
	case errors.Is(err, interview.ErrProfileLocked):
		return http.StatusConflict, "profile_locked"
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.As(err, &te):
		return http.StatusGatewayTimeout, "timeout_error"
	default:
		return http.StatusBadGateway, "api_error"
	}
}
