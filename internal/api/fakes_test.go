package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediplus/internal/database"
	"mediplus/internal/fhir"
	"mediplus/internal/scheduler"
	"mediplus/internal/vitals"
	"mediplus/pkg/models"
)

type memStore struct {
	mu        sync.Mutex
	pingErr   error
	users     map[string]*models.User
	profiles  map[uuid.UUID]*models.Profile
	doctors   map[uuid.UUID]*models.Doctor
	links     map[[2]uuid.UUID]bool
	vitals    []models.Vital
	meds      []models.Medication
	schedules map[uuid.UUID]*models.MedicationSchedule
	logs      []models.MedicationLog
	tokens    map[string]uuid.UUID
	rules     map[uuid.UUID]*models.AlertRule
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*models.User{},
		profiles:  map[uuid.UUID]*models.Profile{},
		doctors:   map[uuid.UUID]*models.Doctor{},
		links:     map[[2]uuid.UUID]bool{},
		schedules: map[uuid.UUID]*models.MedicationSchedule{},
		tokens:    map[string]uuid.UUID{},
		rules:     map[uuid.UUID]*models.AlertRule{},
	}
}

func (m *memStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *memStore) addUser(u *models.User) error {
	key := strings.ToLower(u.Email)
	if _, ok := m.users[key]; ok {
		return database.ErrDuplicate
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[key] = u
	return nil
}

func (m *memStore) CreatePatient(ctx context.Context, u *models.User, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Role = models.RolePatient
	if err := m.addUser(u); err != nil {
		return err
	}
	p.ID, p.Email = u.ID, u.Email
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *memStore) CreateDoctor(ctx context.Context, u *models.User, d *models.Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Role = models.RoleDoctor
	if err := m.addUser(u); err != nil {
		return err
	}
	d.ID, d.UserID, d.Email = uuid.New(), u.ID, u.Email
	m.doctors[u.ID] = d
	return nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) UpdateProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; !ok {
		return database.ErrNotFound
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *memStore) ListVitals(ctx context.Context, userID uuid.UUID, limit int) ([]models.Vital, error) {
	out := []models.Vital{}
	for _, v := range m.vitals {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) LatestVital(ctx context.Context, userID uuid.UUID) (*models.Vital, error) {
	for i := len(m.vitals) - 1; i >= 0; i-- {
		if m.vitals[i].UserID == userID {
			v := m.vitals[i]
			return &v, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) CreateMedication(ctx context.Context, med *models.Medication) error {
	med.ID = uuid.New()
	m.meds = append(m.meds, *med)
	return nil
}

func (m *memStore) ListMedications(ctx context.Context, userID uuid.UUID) ([]models.Medication, error) {
	out := []models.Medication{}
	for _, med := range m.meds {
		if med.UserID == userID {
			out = append(out, med)
		}
	}
	return out, nil
}

func (m *memStore) GetMedication(ctx context.Context, id, userID uuid.UUID) (*models.Medication, error) {
	for _, med := range m.meds {
		if med.ID == id && med.UserID == userID {
			cp := med
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) CreateSchedule(ctx context.Context, s *models.MedicationSchedule) error {
	s.ID = uuid.New()
	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

func (m *memStore) GetSchedule(ctx context.Context, id, userID uuid.UUID) (*models.MedicationSchedule, error) {
	s, ok := m.schedules[id]
	if !ok || s.UserID != userID {
		return nil, database.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSchedules(ctx context.Context, userID uuid.UUID) ([]models.MedicationSchedule, error) {
	out := []models.MedicationSchedule{}
	for _, s := range m.schedules {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) UpdateSchedule(ctx context.Context, s *models.MedicationSchedule) error {
	if cur, ok := m.schedules[s.ID]; !ok || cur.UserID != s.UserID {
		return database.ErrNotFound
	}
	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

func (m *memStore) DeleteSchedule(ctx context.Context, id, userID uuid.UUID) error {
	s, ok := m.schedules[id]
	if !ok || s.UserID != userID {
		return database.ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *memStore) InsertMedicationLog(ctx context.Context, l *models.MedicationLog) error {
	l.ID = uuid.New()
	m.logs = append(m.logs, *l)
	return nil
}

func (m *memStore) HasTakenSince(ctx context.Context, userID, scheduleID uuid.UUID, since time.Time) (bool, error) {
	for _, l := range m.logs {
		if l.UserID == userID && l.ScheduleID == scheduleID && l.Status == models.LogTaken && !l.LoggedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpsertFCMToken(ctx context.Context, userID uuid.UUID, token, deviceType string) error {
	m.tokens[token] = userID
	return nil
}

func (m *memStore) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*models.Doctor, error) {
	d, ok := m.doctors[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return d, nil
}

func (m *memStore) CreateRelationship(ctx context.Context, rel *models.DoctorPatientRelationship) error {
	key := [2]uuid.UUID{rel.DoctorID, rel.PatientID}
	if m.links[key] {
		return database.ErrDuplicate
	}
	m.links[key] = true
	rel.ID, rel.IsActive = uuid.New(), true
	return nil
}

func (m *memStore) ListPatientsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.Profile, error) {
	out := []models.Profile{}
	for key := range m.links {
		if key[0] == doctorID {
			out = append(out, *m.profiles[key[1]])
		}
	}
	return out, nil
}

func (m *memStore) IsDoctorOfPatient(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	return m.links[[2]uuid.UUID{doctorID, patientID}], nil
}

func (m *memStore) CreateAlertRule(ctx context.Context, r *models.AlertRule) error {
	r.ID, r.IsActive = uuid.New(), true
	cp := *r
	m.rules[r.ID] = &cp
	return nil
}

func (m *memStore) ListAlertRules(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]models.AlertRule, error) {
	out := []models.AlertRule{}
	for _, r := range m.rules {
		if r.PatientID == patientID && (r.IsActive || !activeOnly) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) DeactivateAlertRule(ctx context.Context, ruleID, patientID uuid.UUID) error {
	r, ok := m.rules[ruleID]
	if !ok || r.PatientID != patientID {
		return database.ErrNotFound
	}
	r.IsActive = false
	return nil
}

type stubVitals struct {
	sosErr error
	logged []*models.Vital
}

func (f *stubVitals) LogReading(ctx context.Context, userID uuid.UUID, v *models.Vital) (*vitals.LogResult, error) {
	v.UserID = userID
	f.logged = append(f.logged, v)
	return &vitals.LogResult{Vital: v, Classification: vitals.ClassifyReading(v)}, nil
}

func (f *stubVitals) SOSAlert(ctx context.Context, userID uuid.UUID, temperature, heartRate float64) (*vitals.SOSResult, error) {
	c := vitals.Classify(temperature, heartRate)
	if !c.IsCritical {
		return &vitals.SOSResult{Message: "Vitals are within normal range"}, nil
	}
	sent := f.sosErr == nil
	res := &vitals.SOSResult{Critical: true, AlertSent: &sent, AlertType: c.AlertType}
	if f.sosErr != nil {
		res.Message = vitals.ErrAlertDelivery.Error()
		return res, f.sosErr
	}
	res.Message = "Critical vitals detected - SOS email sent"
	return res, nil
}

type stubImporter struct{ err error }

func (f *stubImporter) Import(ctx context.Context, userID uuid.UUID, fhirID string) (*fhir.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fhir.Record{Patient: fhir.PatientInfo{Name: "John Smith", FHIRID: fhirID}}, nil
}

type stubReminders struct{ calls int }

func (f *stubReminders) Run(ctx context.Context, now time.Time) (*scheduler.Report, error) {
	f.calls++
	return &scheduler.Report{CheckedAt: now, Results: []scheduler.Result{}}, nil
}

var errBoom = errors.New("boom")
