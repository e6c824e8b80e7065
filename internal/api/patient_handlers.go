package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"mediplus/internal/database"
	"mediplus/internal/medication"
	"mediplus/internal/middleware"
	"mediplus/internal/vitals"
	"mediplus/pkg/models"
)

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, invalid("invalid %s", name)
	}
	return id, nil
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetProfile(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	profile, err := s.store.GetProfile(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	req.Apply(profile)
	if err := s.store.UpdateProfile(r.Context(), profile); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"profile": profile,
	})
}

func (s *Server) handleLogVital(w http.ResponseWriter, r *http.Request) {
	var req vitalRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.vitals.LogReading(r.Context(), middleware.UserIDFromContext(r.Context()), req.Vital())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListVitals(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := s.store.ListVitals(r.Context(), middleware.UserIDFromContext(r.Context()), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"vitals": list})
}

func (s *Server) handleSOSAlert(w http.ResponseWriter, r *http.Request) {
	var req sosRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.vitals.SOSAlert(r.Context(), middleware.UserIDFromContext(r.Context()), *req.Temperature, *req.HeartRate)
	switch {
	case errors.Is(err, vitals.ErrAlertDelivery) && result != nil:
		respondJSON(w, http.StatusInternalServerError, result)
	case err != nil:
		s.respondError(w, r, err)
	default:
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleListMedications(w http.ResponseWriter, r *http.Request) {
	meds, err := s.store.ListMedications(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"medications": meds})
}

func (s *Server) handleCreateMedication(w http.ResponseWriter, r *http.Request) {
	var req medicationRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	m := req.Medication(middleware.UserIDFromContext(r.Context()))
	if err := s.store.CreateMedication(r.Context(), m); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"medication": m})
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.ListSchedules(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	sch := &models.MedicationSchedule{UserID: middleware.UserIDFromContext(r.Context())}
	if err := s.checkMedicationOwner(r.Context(), sch.UserID, req.MedicationID); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.ApplyTo(sch)
	if err := s.store.CreateSchedule(r.Context(), sch); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"schedule": sch})
}

// checkMedicationOwner rejects a schedule that links a medication the caller
// does not own.
func (s *Server) checkMedicationOwner(ctx context.Context, userID uuid.UUID, medicationID *uuid.UUID) error {
	if medicationID == nil {
		return nil
	}
	_, err := s.store.GetMedication(ctx, *medicationID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return invalid("medicationId does not match any of your medications")
	}
	return err
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req scheduleRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	sch, err := s.store.GetSchedule(r.Context(), id, userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.checkMedicationOwner(r.Context(), userID, req.MedicationID); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.ApplyTo(sch)
	if err := s.store.UpdateSchedule(r.Context(), sch); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"schedule": sch})
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.DeleteSchedule(r.Context(), id, middleware.UserIDFromContext(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Schedule deleted"})
}

func (s *Server) handleLogMedication(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req medicationLogRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if _, err := s.store.GetSchedule(r.Context(), id, userID); err != nil {
		s.respondError(w, r, err)
		return
	}

	entry := &models.MedicationLog{
		UserID:     userID,
		ScheduleID: id,
		Status:     req.Status,
		Notes:      trimmed(req.Notes),
		LoggedAt:   s.now(),
	}
	if err := s.store.InsertMedicationLog(r.Context(), entry); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"log": entry})
}

// handleScheduleDue reports what a reminder pass would decide for the
// schedule right now.
func (s *Server) handleScheduleDue(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	sch, err := s.store.GetSchedule(r.Context(), id, userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	now := s.now().In(s.loc)
	decision, err := medication.Evaluate(medication.Schedule{
		ScheduledTime: sch.ScheduledTime,
		DaysOfWeek:    sch.DaysOfWeek,
		IsActive:      sch.IsActive,
	}, now)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	taken, err := s.store.HasTakenSince(r.Context(), userID, id, midnight)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"scheduleId": sch.ID,
		"now":        now.Format(time.RFC3339),
		"weekday":    medication.WeekdayName(now),
		"decision":   decision,
		"takenToday": taken,
	})
}

func (s *Server) handleFHIRImport(w http.ResponseWriter, r *http.Request) {
	var req fhirImportRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	rec, err := s.importer.Import(r.Context(), middleware.UserIDFromContext(r.Context()), req.FHIRID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "FHIR data imported successfully",
		"data":    rec,
	})
}
