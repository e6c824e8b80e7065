package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"mediplus/internal/database"
	"mediplus/internal/middleware"
	"mediplus/internal/vitals"
	"mediplus/pkg/models"
)

type patientOverview struct {
	Patient        models.Profile         `json:"patient"`
	LatestVital    *models.Vital          `json:"latestVital"`
	Classification *vitals.Classification `json:"classification"`
}

func (s *Server) currentDoctor(r *http.Request) (*models.Doctor, error) {
	return s.store.GetDoctorByUserID(r.Context(), middleware.UserIDFromContext(r.Context()))
}

// linkedPatient resolves {patientId} and checks the doctor's relationship.
func (s *Server) linkedPatient(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	patientID, err := pathUUID(r, "patientId")
	if err != nil {
		s.respondError(w, r, err)
		return uuid.Nil, false
	}
	doctor, err := s.currentDoctor(r)
	if err != nil {
		s.respondError(w, r, err)
		return uuid.Nil, false
	}
	ok, err := s.store.IsDoctorOfPatient(r.Context(), doctor.ID, patientID)
	if err != nil {
		s.respondError(w, r, err)
		return uuid.Nil, false
	}
	if !ok {
		respondMessage(w, http.StatusForbidden, "Patient is not in your care")
		return uuid.Nil, false
	}
	return patientID, true
}

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	doctor, err := s.currentDoctor(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	patients, err := s.store.ListPatientsForDoctor(r.Context(), doctor.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]patientOverview, 0, len(patients))
	for _, p := range patients {
		o := patientOverview{Patient: p}
		v, err := s.store.LatestVital(r.Context(), p.ID)
		switch {
		case err == nil:
			o.LatestVital = v
			o.Classification = vitals.ClassifyReading(v)
		case !errors.Is(err, database.ErrNotFound):
			s.respondError(w, r, err)
			return
		}
		out = append(out, o)
	}
	respondJSON(w, http.StatusOK, map[string]any{"patients": out})
}

func (s *Server) handleAddPatient(w http.ResponseWriter, r *http.Request) {
	var req addPatientRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	doctor, err := s.currentDoctor(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	patient, err := s.store.GetProfileByEmail(r.Context(), req.PatientEmail)
	if errors.Is(err, database.ErrNotFound) {
		respondMessage(w, http.StatusNotFound, "Patient not found. Please ensure the patient has registered on the platform.")
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rel := &models.DoctorPatientRelationship{
		DoctorID:         doctor.ID,
		PatientID:        patient.ID,
		RelationshipType: req.RelationshipType,
		CreatedBy:        doctor.UserID,
	}
	if err := s.store.CreateRelationship(r.Context(), rel); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			respondMessage(w, http.StatusConflict, "Patient is already in your care")
			return
		}
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":      "Patient added successfully",
		"relationship": rel,
		"patient": map[string]any{
			"id":    patient.ID,
			"email": patient.Email,
			"name":  patient.Name,
		},
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	patientID, ok := s.linkedPatient(w, r)
	if !ok {
		return
	}
	rules, err := s.store.ListAlertRules(r.Context(), patientID, false)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	patientID, ok := s.linkedPatient(w, r)
	if !ok {
		return
	}
	var req alertRuleRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.rules.Check(req.Expression); err != nil {
		s.respondError(w, r, err)
		return
	}

	doctor, err := s.currentDoctor(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rule := &models.AlertRule{
		PatientID:  patientID,
		DoctorID:   doctor.ID,
		Name:       req.Name,
		Expression: req.Expression,
		Severity:   req.Severity,
	}
	if err := s.store.CreateAlertRule(r.Context(), rule); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"rule": rule})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	patientID, ok := s.linkedPatient(w, r)
	if !ok {
		return
	}
	ruleID, err := pathUUID(r, "ruleId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.DeactivateAlertRule(r.Context(), ruleID, patientID); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.rules.Forget(ruleID)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Rule deactivated"})
}

func (s *Server) handleDoctorWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, middleware.UserIDFromContext(r.Context()))
}
