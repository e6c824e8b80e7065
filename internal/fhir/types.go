package fhir

// Bundle is the subset of a FHIR R4 searchset/$everything bundle the
// importer reads.
type Bundle struct {
	ResourceType string  `json:"resourceType"`
	Entry        []Entry `json:"entry"`
}

type Entry struct {
	Resource Resource `json:"resource"`
}

// Resource flattens the fields of the resource types the importer reads.
// Fields that do not apply to a resource type stay empty.
type Resource struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Status       string `json:"status,omitempty"`

	// Patient
	Name      []HumanName `json:"name,omitempty"`
	Gender    string      `json:"gender,omitempty"`
	BirthDate string      `json:"birthDate,omitempty"`

	// Condition, Observation
	Code *CodeableConcept `json:"code,omitempty"`

	// MedicationRequest
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	AuthoredOn                string           `json:"authoredOn,omitempty"`

	// Observation
	EffectiveDateTime string      `json:"effectiveDateTime,omitempty"`
	ValueQuantity     *Quantity   `json:"valueQuantity,omitempty"`
	Component         []Component `json:"component,omitempty"`

	// Encounter
	Class      *Coding           `json:"class,omitempty"`
	Period     *Period           `json:"period,omitempty"`
	ReasonCode []CodeableConcept `json:"reasonCode,omitempty"`
}

type HumanName struct {
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Quantity struct {
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

type Component struct {
	Code          *CodeableConcept `json:"code,omitempty"`
	ValueQuantity *Quantity        `json:"valueQuantity,omitempty"`
}

type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// displayFirst prefers the first coding's display over the free text.
func (c *CodeableConcept) displayFirst() string {
	if c == nil {
		return ""
	}
	if len(c.Coding) > 0 && c.Coding[0].Display != "" {
		return c.Coding[0].Display
	}
	return c.Text
}

// textFirst prefers the free text over the first coding's display.
func (c *CodeableConcept) textFirst() string {
	if c == nil {
		return ""
	}
	if c.Text != "" {
		return c.Text
	}
	if len(c.Coding) > 0 {
		return c.Coding[0].Display
	}
	return ""
}
