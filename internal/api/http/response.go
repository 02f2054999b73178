package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
)

type errorBody struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// StatusOf maps a domain error kind to an HTTP status code.
func StatusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidRange, domain.KindUnknownCategory, domain.KindDiscountInvalid:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAvailabilityConflict, domain.KindInvalidTransition, domain.KindTerminalState:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		logger.Error("Unhandled error in HTTP handler", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
		return
	}
	code := StatusOf(derr.Kind)
	msg := derr.Message
	if derr.Kind == domain.KindUnavailable {
		w.Header().Set("Retry-After", "1")
		msg = "service temporarily unavailable, retry later"
	}
	writeJSON(w, code, errorBody{Error: http.StatusText(code), Kind: string(derr.Kind), Message: msg})
}

func writeStatus(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: http.StatusText(code), Message: msg})
}
