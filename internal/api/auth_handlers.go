package api

import (
	"errors"
	"net/http"

	"mediplus/internal/auth"
	"mediplus/internal/database"
	"mediplus/pkg/models"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	user := &models.User{Email: req.Email, PasswordHash: hash}
	profile := req.Profile()
	if err := s.store.CreatePatient(r.Context(), user, profile); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			respondMessage(w, http.StatusConflict, "User already registered")
			return
		}
		s.respondError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Role, user.Email)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("👤 patient registered")
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user,
		"profile": profile,
		"token":   token,
	})
}

func (s *Server) handleDoctorSignup(w http.ResponseWriter, r *http.Request) {
	var req doctorSignupRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	user := &models.User{Email: req.Email, PasswordHash: hash}
	doctor := &models.Doctor{
		Name:                req.Name,
		LicenseNumber:       req.LicenseNumber,
		Specialization:      trimmed(req.Specialization),
		HospitalAffiliation: trimmed(req.HospitalAffiliation),
		Phone:               trimmed(req.Phone),
	}
	if err := s.store.CreateDoctor(r.Context(), user, doctor); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			respondMessage(w, http.StatusConflict, "User already registered")
			return
		}
		s.respondError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Role, user.Email)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("🩺 doctor registered")
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Doctor account created successfully",
		"user":    user,
		"doctor":  doctor,
		"token":   token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, database.ErrNotFound) {
		s.respondError(w, r, auth.ErrInvalidCredentials)
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.respondError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Role, user.Email)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
}
