package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mediplus/internal/middleware"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	respondJSON(w, httpStatus, map[string]string{
		"status": status,
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	dbStatus := s.store.Ping(ctx) == nil

	activeClients := 0
	if s.hub != nil {
		activeClients = s.hub.ActiveClients()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"active_clients": activeClients,
		"uptime":         formatDuration(s.now().Sub(s.startTime)),
		"db_status":      dbStatus,
		"firebase_ok":    s.avail.Firebase,
		"email_ok":       s.avail.Email,
		"sms_ok":         s.avail.SMS,
		"workers":        s.workers(),
		"timestamp":      s.now().Unix(),
	})
}

func (s *Server) handleCheckMedications(w http.ResponseWriter, r *http.Request) {
	report, err := s.reminders.Run(r.Context(), s.now())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.UpsertFCMToken(r.Context(), middleware.UserIDFromContext(r.Context()), req.Token, req.DeviceType); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Token saved successfully"})
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
