package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediplus/internal/alertrules"
	"mediplus/internal/auth"
	"mediplus/internal/fhir"
	"mediplus/internal/signaling"
	"mediplus/internal/vitals"
	"mediplus/pkg/models"
)

type harness struct {
	t         *testing.T
	srv       *Server
	handler   http.Handler
	store     *memStore
	vitals    *stubVitals
	importer  *stubImporter
	reminders *stubReminders
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	engine, err := alertrules.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	h := &harness{
		t:         t,
		store:     newMemStore(),
		vitals:    &stubVitals{},
		importer:  &stubImporter{},
		reminders: &stubReminders{},
	}
	h.srv = NewServer(Deps{
		Store:      h.store,
		Tokens:     auth.NewTokenIssuer("test-secret", time.Hour),
		Vitals:     h.vitals,
		Importer:   h.importer,
		Reminders:  h.reminders,
		Rules:      engine,
		Hub:        signaling.NewHub(zerolog.Nop()),
		Location:   time.UTC,
		CronSecret: "cron-secret",
		Logger:     zerolog.Nop(),
	})
	h.handler = h.srv.Handler()
	return h
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *harness) signupPatient(email string) (string, uuid.UUID) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Ana Patient", "email": email, "password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		h.t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(h.t, rec, &resp)
	return resp.Token, resp.User.ID
}

func (h *harness) signupDoctor(email string) (string, uuid.UUID) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/doctor-signup", "", map[string]string{
		"name": "Dr. House", "email": email, "password": "secret123", "licenseNumber": "LIC-1",
	})
	if rec.Code != http.StatusCreated {
		h.t.Fatalf("doctor signup: %d %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(h.t, rec, &resp)
	return resp.Token, resp.User.ID
}

func TestSignupAndLogin(t *testing.T) {
	h := newHarness(t)
	h.signupPatient("Ana@Example.com")

	rec := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Other", "email": "ana@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup = %d, want 409", rec.Code)
	}

	rec = h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Short", "email": "short@example.com", "password": "123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("weak password = %d, want 400", rec.Code)
	}

	rec = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ANA@example.com", "password": "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" || resp.User.Role != models.RolePatient {
		t.Errorf("login response = %+v", resp)
	}

	for _, creds := range []map[string]string{
		{"email": "ana@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "secret123"},
	} {
		if rec := h.do(http.MethodPost, "/api/auth/login", "", creds); rec.Code != http.StatusUnauthorized {
			t.Errorf("login %v = %d, want 401", creds, rec.Code)
		}
	}
}

func TestRoleGuards(t *testing.T) {
	h := newHarness(t)
	patientToken, _ := h.signupPatient("p@example.com")
	doctorToken, _ := h.signupDoctor("d@example.com")

	tests := []struct {
		name, method, path, token string
		want                      int
	}{
		{"no token", http.MethodGet, "/api/profile", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/profile", "nope", http.StatusUnauthorized},
		{"doctor on patient route", http.MethodGet, "/api/profile", doctorToken, http.StatusForbidden},
		{"patient on doctor route", http.MethodGet, "/api/doctor/patients", patientToken, http.StatusForbidden},
		{"patient profile", http.MethodGet, "/api/profile", patientToken, http.StatusOK},
		{"doctor patients", http.MethodGet, "/api/doctor/patients", doctorToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := h.do(tt.method, tt.path, tt.token, nil); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	token, id := h.signupPatient("p@example.com")

	rec := h.do(http.MethodPut, "/api/profile", token, map[string]any{
		"phone":                 "+15550001111",
		"dateOfBirth":           "1980-02-03",
		"medicalConditions":     []string{"Hypertension"},
		"emergencyContactPhone": "+15559998888",
		"smsRemindersEnabled":   true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d %s", rec.Code, rec.Body.String())
	}

	p := h.store.profiles[id]
	if p.Name != "Ana Patient" {
		t.Errorf("name changed to %q", p.Name)
	}
	if p.Phone == nil || *p.Phone != "+15550001111" || !p.SMSRemindersEnabled {
		t.Errorf("profile = %+v", p)
	}
	if p.DateOfBirth == nil || p.DateOfBirth.Format("2006-01-02") != "1980-02-03" {
		t.Errorf("dob = %v", p.DateOfBirth)
	}
	if len(p.MedicalConditions) != 1 {
		t.Errorf("conditions = %v", p.MedicalConditions)
	}

	if rec := h.do(http.MethodPut, "/api/profile", token, map[string]any{"dateOfBirth": "03/02/1980"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", rec.Code)
	}
}

func TestLogVital(t *testing.T) {
	h := newHarness(t)
	token, id := h.signupPatient("p@example.com")

	rec := h.do(http.MethodPost, "/api/vitals", token, map[string]any{"temperature": 39.2, "heartRate": 88})
	if rec.Code != http.StatusCreated {
		t.Fatalf("log vital = %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Classification vitals.Classification `json:"classification"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Classification.IsCritical || resp.Classification.AlertType != vitals.AlertTemperature {
		t.Errorf("classification = %+v", resp.Classification)
	}
	if len(h.vitals.logged) != 1 || h.vitals.logged[0].UserID != id || h.vitals.logged[0].MeasurementSource != models.SourceManual {
		t.Errorf("logged = %+v", h.vitals.logged)
	}

	rec = h.do(http.MethodPost, "/api/vitals", token, map[string]any{"heartRate": -1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("negative heart rate = %d %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &resp)
	if !resp.Classification.IsCritical || resp.Classification.AlertType != vitals.AlertHeartRate {
		t.Errorf("negative heart rate classification = %+v", resp.Classification)
	}
	if rec := h.do(http.MethodPost, "/api/vitals", token, map[string]any{"weight": -70}); rec.Code != http.StatusBadRequest {
		t.Errorf("negative weight = %d, want 400", rec.Code)
	}

	if rec := h.do(http.MethodPost, "/api/vitals", token, map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty reading = %d, want 400", rec.Code)
	}
	if rec := h.do(http.MethodPost, "/api/vitals", token, "{not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/vitals?limit=abc", token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", rec.Code)
	}
}

func TestSOSAlert(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signupPatient("p@example.com")

	rec := h.do(http.MethodPost, "/api/vitals/sos-alert", token, map[string]any{"temperature": 36.8, "heartRate": 70})
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"critical":false`)) {
		t.Errorf("normal sos = %d %s", rec.Code, rec.Body.String())
	}

	rec = h.do(http.MethodPost, "/api/vitals/sos-alert", token, map[string]any{"temperature": 39})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing heart rate = %d, want 400", rec.Code)
	}

	h.vitals.sosErr = vitals.ErrAlertDelivery
	rec = h.do(http.MethodPost, "/api/vitals/sos-alert", token, map[string]any{"temperature": 39, "heartRate": 130})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("failed sos = %d, want 500", rec.Code)
	}
	var resp vitals.SOSResult
	decodeBody(t, rec, &resp)
	if resp.AlertSent == nil || *resp.AlertSent || resp.AlertType != vitals.AlertBoth {
		t.Errorf("failed sos body = %s", rec.Body.String())
	}
}

func TestSchedules(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signupPatient("p@example.com")
	otherToken, _ := h.signupPatient("other@example.com")

	rec := h.do(http.MethodPost, "/api/medications/schedules", token, map[string]any{
		"medicationName": "Aspirin", "dosage": "100mg", "scheduledTime": "9:00", "daysOfWeek": []string{"Monday", "monday", "friday"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Schedule models.MedicationSchedule `json:"schedule"`
	}
	decodeBody(t, rec, &created)
	s := created.Schedule
	if s.ScheduledTime != "09:00" || len(s.DaysOfWeek) != 2 || s.DaysOfWeek[0] != "monday" || !s.IsActive {
		t.Errorf("schedule = %+v", s)
	}

	for _, body := range []map[string]any{
		{"medicationName": "A", "dosage": "1", "scheduledTime": "25:00", "daysOfWeek": []string{"monday"}},
		{"medicationName": "A", "dosage": "1", "scheduledTime": "09:00", "daysOfWeek": []string{"mon"}},
		{"medicationName": "A", "dosage": "1", "scheduledTime": "09:00"},
	} {
		if rec := h.do(http.MethodPost, "/api/medications/schedules", token, body); rec.Code != http.StatusBadRequest {
			t.Errorf("create %v = %d, want 400", body, rec.Code)
		}
	}

	path := "/api/medications/schedules/" + s.ID.String()
	if rec := h.do(http.MethodDelete, path, otherToken, nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete = %d, want 404", rec.Code)
	}

	// Monday 09:05 UTC.
	h.srv.now = func() time.Time { return time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC) }
	rec = h.do(http.MethodGet, path+"/due", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("due = %d %s", rec.Code, rec.Body.String())
	}
	var due struct {
		Weekday    string `json:"weekday"`
		TakenToday bool   `json:"takenToday"`
		Decision   struct {
			IsDue                bool `json:"isDue"`
			MinutesPastScheduled int  `json:"minutesPastScheduled"`
		} `json:"decision"`
	}
	decodeBody(t, rec, &due)
	if due.Weekday != "monday" || !due.Decision.IsDue || due.Decision.MinutesPastScheduled != 5 || due.TakenToday {
		t.Errorf("due = %+v", due)
	}

	if rec := h.do(http.MethodPost, path+"/logs", token, map[string]string{"status": "taken"}); rec.Code != http.StatusCreated {
		t.Fatalf("log = %d %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, h.do(http.MethodGet, path+"/due", token, nil), &due)
	if !due.TakenToday {
		t.Error("takenToday = false after logging a dose")
	}
	if rec := h.do(http.MethodPost, path+"/logs", token, map[string]string{"status": "missed"}); rec.Code != http.StatusBadRequest {
		t.Errorf("missed log = %d, want 400", rec.Code)
	}

	rec = h.do(http.MethodPut, path, token, map[string]any{
		"medicationName": "Aspirin", "dosage": "200mg", "scheduledTime": "10:30", "daysOfWeek": []string{"sunday"}, "isActive": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d %s", rec.Code, rec.Body.String())
	}
	if got := h.store.schedules[s.ID]; got.Dosage != "200mg" || got.IsActive {
		t.Errorf("updated = %+v", got)
	}

	if rec := h.do(http.MethodDelete, path, token, nil); rec.Code != http.StatusOK {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := h.do(http.MethodDelete, "/api/medications/schedules/not-a-uuid", token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", rec.Code)
	}
}

func TestScheduleMedicationOwnership(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signupPatient("p@example.com")
	otherToken, _ := h.signupPatient("other@example.com")

	createMed := func(token string) uuid.UUID {
		rec := h.do(http.MethodPost, "/api/medications", token, map[string]any{"name": "Aspirin", "dosage": "100mg"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create medication = %d %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Medication models.Medication `json:"medication"`
		}
		decodeBody(t, rec, &resp)
		return resp.Medication.ID
	}
	own := createMed(token)
	foreign := createMed(otherToken)

	schedule := func(medID uuid.UUID) map[string]any {
		return map[string]any{
			"medicationId": medID, "medicationName": "Aspirin", "dosage": "100mg",
			"scheduledTime": "09:00", "daysOfWeek": []string{"monday"},
		}
	}

	if rec := h.do(http.MethodPost, "/api/medications/schedules", token, schedule(foreign)); rec.Code != http.StatusBadRequest {
		t.Errorf("foreign medication create = %d, want 400", rec.Code)
	}
	if len(h.store.schedules) != 0 {
		t.Fatalf("schedules stored = %d, want 0", len(h.store.schedules))
	}

	rec := h.do(http.MethodPost, "/api/medications/schedules", token, schedule(own))
	if rec.Code != http.StatusCreated {
		t.Fatalf("own medication create = %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Schedule models.MedicationSchedule `json:"schedule"`
	}
	decodeBody(t, rec, &created)

	path := "/api/medications/schedules/" + created.Schedule.ID.String()
	if rec := h.do(http.MethodPut, path, token, schedule(foreign)); rec.Code != http.StatusBadRequest {
		t.Errorf("foreign medication update = %d, want 400", rec.Code)
	}
	if got := h.store.schedules[created.Schedule.ID]; got.MedicationID == nil || *got.MedicationID != own {
		t.Errorf("medication id = %v, want %v", got.MedicationID, own)
	}
}

func TestDoctorPatientsAndRules(t *testing.T) {
	h := newHarness(t)
	_, patientID := h.signupPatient("p@example.com")
	doctorToken, _ := h.signupDoctor("d@example.com")

	if rec := h.do(http.MethodPost, "/api/doctor/patients", doctorToken, map[string]string{"patientEmail": "ghost@example.com"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown patient = %d, want 404", rec.Code)
	}
	rulesPath := "/api/doctor/patients/" + patientID.String() + "/rules"
	if rec := h.do(http.MethodGet, rulesPath, doctorToken, nil); rec.Code != http.StatusForbidden {
		t.Errorf("rules before link = %d, want 403", rec.Code)
	}

	if rec := h.do(http.MethodPost, "/api/doctor/patients", doctorToken, map[string]string{"patientEmail": "P@example.com"}); rec.Code != http.StatusCreated {
		t.Fatalf("add patient = %d %s", rec.Code, rec.Body.String())
	}
	if rec := h.do(http.MethodPost, "/api/doctor/patients", doctorToken, map[string]string{"patientEmail": "p@example.com"}); rec.Code != http.StatusConflict {
		t.Errorf("re-add = %d, want 409", rec.Code)
	}

	temp := 39.5
	h.store.vitals = append(h.store.vitals, models.Vital{UserID: patientID, TemperatureCelsius: &temp})
	rec := h.do(http.MethodGet, "/api/doctor/patients", doctorToken, nil)
	var list struct {
		Patients []struct {
			Patient        models.Profile         `json:"patient"`
			Classification *vitals.Classification `json:"classification"`
		} `json:"patients"`
	}
	decodeBody(t, rec, &list)
	if len(list.Patients) != 1 || list.Patients[0].Classification == nil || !list.Patients[0].Classification.IsCritical {
		t.Errorf("patients = %s", rec.Body.String())
	}

	if rec := h.do(http.MethodPost, rulesPath, doctorToken, map[string]string{"name": "bad", "expression": "vitals.oxygen <"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad expression = %d, want 400", rec.Code)
	}
	rec = h.do(http.MethodPost, rulesPath, doctorToken, map[string]string{"name": "low oxygen", "expression": "vitals.oxygen < 92.0"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create rule = %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Rule models.AlertRule `json:"rule"`
	}
	decodeBody(t, rec, &created)
	if created.Rule.Severity != "warning" || created.Rule.PatientID != patientID {
		t.Errorf("rule = %+v", created.Rule)
	}

	if rec := h.do(http.MethodDelete, rulesPath+"/"+created.Rule.ID.String(), doctorToken, nil); rec.Code != http.StatusOK {
		t.Errorf("delete rule = %d", rec.Code)
	}
	if h.store.rules[created.Rule.ID].IsActive {
		t.Error("rule still active")
	}
}

func TestFHIRImport(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signupPatient("p@example.com")

	if rec := h.do(http.MethodPost, "/api/fhir/import", token, map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing id = %d, want 400", rec.Code)
	}
	rec := h.do(http.MethodPost, "/api/fhir/import", token, map[string]string{"fhirId": "592011"})
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("John Smith")) {
		t.Errorf("import = %d %s", rec.Code, rec.Body.String())
	}

	h.importer.err = fhir.ErrFetchFailed
	if rec := h.do(http.MethodPost, "/api/fhir/import", token, map[string]string{"fhirId": "1"}); rec.Code != http.StatusBadGateway {
		t.Errorf("fetch failure = %d, want 502", rec.Code)
	}
	h.importer.err = fhir.ErrNoData
	if rec := h.do(http.MethodPost, "/api/fhir/import", token, map[string]string{"fhirId": "1"}); rec.Code != http.StatusNotFound {
		t.Errorf("no data = %d, want 404", rec.Code)
	}
	h.importer.err = errBoom
	rec = h.do(http.MethodPost, "/api/fhir/import", token, map[string]string{"fhirId": "1"})
	if rec.Code != http.StatusInternalServerError || bytes.Contains(rec.Body.Bytes(), []byte("boom")) {
		t.Errorf("internal error = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t)
	token, id := h.signupDoctor("d@example.com")

	if rec := h.do(http.MethodPost, "/api/notifications/subscribe", token, map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing token = %d, want 400", rec.Code)
	}
	if rec := h.do(http.MethodPost, "/api/notifications/subscribe", token, map[string]string{"token": "fcm-1"}); rec.Code != http.StatusOK {
		t.Errorf("subscribe = %d", rec.Code)
	}
	if h.store.tokens["fcm-1"] != id {
		t.Error("token not stored for the caller")
	}
}

func TestCronCheckMedications(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(http.MethodGet, "/api/cron/check-medications", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no secret = %d, want 401", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/cron/check-medications", "wrong", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret = %d, want 401", rec.Code)
	}
	rec := h.do(http.MethodGet, "/api/cron/check-medications", "cron-secret", nil)
	if rec.Code != http.StatusOK || h.reminders.calls != 1 {
		t.Errorf("cron = %d calls = %d", rec.Code, h.reminders.calls)
	}
}

func TestHealthAndStats(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(http.MethodGet, "/api/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
	h.store.pingErr = errBoom
	if rec := h.do(http.MethodGet, "/api/health", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy = %d, want 503", rec.Code)
	}

	rec := h.do(http.MethodGet, "/api/stats", "", nil)
	var stats map[string]any
	decodeBody(t, rec, &stats)
	if stats["db_status"] != false || stats["active_clients"] != float64(0) {
		t.Errorf("stats = %v", stats)
	}
}

func TestFormatDuration(t *testing.T) {
	for d, want := range map[time.Duration]string{
		42 * time.Second:                  "42s",
		3*time.Minute + 5*time.Second:     "3m 5s",
		2*time.Hour + 1*time.Minute + 9e9: "2h 1m 9s",
	} {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
