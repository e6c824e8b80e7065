package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"mediplus/internal/alertrules"
	"mediplus/internal/auth"
	"mediplus/internal/database"
	"mediplus/internal/fhir"
	"mediplus/internal/medication"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondError maps err to a status code. Server errors are logged and
// answered with a generic message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		respondMessage(w, http.StatusBadRequest, verr.msg)
	case errors.Is(err, database.ErrNotFound):
		respondMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrDuplicate):
		respondMessage(w, http.StatusConflict, "already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, medication.ErrInvalidSchedule),
		errors.Is(err, alertrules.ErrCompile):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, fhir.ErrNoData):
		respondMessage(w, http.StatusNotFound, "No FHIR data found")
	case errors.Is(err, fhir.ErrFetchFailed):
		respondMessage(w, http.StatusBadGateway, "Failed to fetch FHIR data")
	default:
		s.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("❌ request failed")
		respondMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decode reads a JSON body into req and validates it.
func decode(r *http.Request, req interface{ Validate() error }) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil {
		return invalid("invalid JSON body")
	}
	return req.Validate()
}
