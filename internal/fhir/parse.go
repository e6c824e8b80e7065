package fhir

import (
	"strings"
	"time"
)

const (
	CategoryVital = "vital"
	CategoryLab   = "lab"
)

var (
	labKeywords   = []string{"hba1c", "glucose", "cholesterol"}
	vitalKeywords = []string{"blood pressure", "heart rate", "temperature", "weight", "height"}
)

type PatientInfo struct {
	Name      string `json:"name"`
	Gender    string `json:"gender,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
	FHIRID    string `json:"fhirId"`
}

type MedicationInfo struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	AuthoredOn string `json:"authoredOn,omitempty"`
	FHIRID     string `json:"fhirId"`
}

// ObservationInfo is one observation. Systolic and Diastolic are filled
// from blood pressure components.
type ObservationInfo struct {
	Name      string   `json:"name"`
	Value     *float64 `json:"value,omitempty"`
	Unit      string   `json:"unit,omitempty"`
	Date      string   `json:"date,omitempty"`
	Status    string   `json:"status,omitempty"`
	FHIRID    string   `json:"fhirId"`
	Category  string   `json:"-"`
	Systolic  *float64 `json:"-"`
	Diastolic *float64 `json:"-"`
}

type EncounterInfo struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	Type   string `json:"type,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Reason string `json:"reason"`
}

type Summary struct {
	TotalConditions   int `json:"totalConditions"`
	TotalMedications  int `json:"totalMedications"`
	TotalObservations int `json:"totalObservations"`
	TotalEncounters   int `json:"totalEncounters"`
	VitalSigns        int `json:"vitalSigns"`
	LabResults        int `json:"labResults"`
}

// Record is the parsed view of a patient bundle. Medications holds active
// requests only.
type Record struct {
	Patient      PatientInfo       `json:"patient"`
	Conditions   []string          `json:"conditions"`
	Medications  []MedicationInfo  `json:"medications"`
	Observations []ObservationInfo `json:"observations"`
	Encounters   []EncounterInfo   `json:"encounters"`
	Summary      Summary           `json:"summary"`
}

func (r *Record) VitalSigns() []ObservationInfo {
	var out []ObservationInfo
	for _, o := range r.Observations {
		if o.Category == CategoryVital {
			out = append(out, o)
		}
	}
	return out
}

// Parse extracts the patient record from a bundle. The last Patient entry wins.
func Parse(fhirID string, b *Bundle) *Record {
	rec := &Record{
		Patient:      PatientInfo{FHIRID: fhirID},
		Conditions:   []string{},
		Medications:  []MedicationInfo{},
		Observations: []ObservationInfo{},
		Encounters:   []EncounterInfo{},
	}

	for _, e := range b.Entry {
		res := e.Resource
		switch res.ResourceType {
		case "Patient":
			rec.Patient.Name = patientName(res.Name)
			rec.Patient.Gender = res.Gender
			rec.Patient.BirthDate = res.BirthDate
		case "Condition":
			rec.Summary.TotalConditions++
			name := res.Code.displayFirst()
			if name == "" {
				name = "Unknown condition"
			}
			rec.Conditions = append(rec.Conditions, name)
		case "MedicationRequest":
			if res.Status != "active" {
				continue
			}
			name := res.MedicationCodeableConcept.displayFirst()
			if name == "" {
				name = "Unknown medication"
			}
			rec.Medications = append(rec.Medications, MedicationInfo{
				Name:       name,
				Status:     res.Status,
				AuthoredOn: res.AuthoredOn,
				FHIRID:     res.ID,
			})
		case "Observation":
			obs := parseObservation(res)
			if obs.Category == CategoryVital {
				rec.Summary.VitalSigns++
			} else {
				rec.Summary.LabResults++
			}
			rec.Observations = append(rec.Observations, obs)
		case "Encounter":
			rec.Encounters = append(rec.Encounters, parseEncounter(res))
		}
	}

	rec.Summary.TotalMedications = len(rec.Medications)
	rec.Summary.TotalObservations = len(rec.Observations)
	rec.Summary.TotalEncounters = len(rec.Encounters)
	return rec
}

func patientName(names []HumanName) string {
	if len(names) == 0 {
		return ""
	}
	n := names[0]
	return strings.TrimSpace(strings.Join(n.Given, " ") + " " + n.Family)
}

func parseObservation(res Resource) ObservationInfo {
	name := res.Code.textFirst()
	if name == "" {
		name = "Unknown observation"
	}

	obs := ObservationInfo{
		Name:     name,
		Date:     res.EffectiveDateTime,
		Status:   res.Status,
		FHIRID:   res.ID,
		Category: Categorize(name),
	}
	if res.ValueQuantity != nil {
		obs.Value = res.ValueQuantity.Value
		obs.Unit = res.ValueQuantity.Unit
	}

	for _, c := range res.Component {
		if c.ValueQuantity == nil || c.ValueQuantity.Value == nil {
			continue
		}
		label := strings.ToLower(c.Code.textFirst())
		switch {
		case strings.Contains(label, "systolic"):
			obs.Systolic = c.ValueQuantity.Value
		case strings.Contains(label, "diastolic"):
			obs.Diastolic = c.ValueQuantity.Value
		}
	}
	return obs
}

// Categorize sorts an observation name into vital signs or lab results.
// Anything unrecognised counts as a lab result.
func Categorize(name string) string {
	lower := strings.ToLower(name)
	for _, k := range labKeywords {
		if strings.Contains(lower, k) {
			return CategoryLab
		}
	}
	for _, k := range vitalKeywords {
		if strings.Contains(lower, k) {
			return CategoryVital
		}
	}
	return CategoryLab
}

func parseEncounter(res Resource) EncounterInfo {
	enc := EncounterInfo{ID: res.ID, Status: res.Status, Reason: "Unknown reason"}
	if res.Class != nil {
		enc.Type = res.Class.Code
	}
	if res.Period != nil {
		enc.Start = res.Period.Start
		enc.End = res.Period.End
	}
	if len(res.ReasonCode) > 0 && res.ReasonCode[0].Text != "" {
		enc.Reason = res.ReasonCode[0].Text
	}
	return enc
}

// ParseDate accepts FHIR date and dateTime values.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
