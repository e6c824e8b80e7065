package fhir

const sampleBundle = `{
  "resourceType": "Bundle",
  "entry": [
    {"resource": {"resourceType": "Patient", "id": "592011", "name": [{"family": "Silva", "given": ["Ana", "Maria"]}], "gender": "female", "birthDate": "1950-04-12"}},
    {"resource": {"resourceType": "Condition", "id": "c1", "code": {"coding": [{"display": "Hypertension"}], "text": "High blood pressure"}}},
    {"resource": {"resourceType": "Condition", "id": "c2", "code": {"text": "Type 2 diabetes"}}},
    {"resource": {"resourceType": "Condition", "id": "c3"}},
    {"resource": {"resourceType": "MedicationRequest", "id": "m1", "status": "active", "medicationCodeableConcept": {"coding": [{"display": "Lisinopril 10 MG"}]}, "authoredOn": "2023-06-01"}},
    {"resource": {"resourceType": "MedicationRequest", "id": "m2", "status": "stopped", "medicationCodeableConcept": {"text": "Old drug"}}},
    {"resource": {"resourceType": "Observation", "id": "o1", "status": "final", "code": {"text": "Body temperature"}, "effectiveDateTime": "2024-01-05T08:30:00+00:00", "valueQuantity": {"value": 37.2, "unit": "Cel"}}},
    {"resource": {"resourceType": "Observation", "id": "o2", "status": "final", "code": {"coding": [{"display": "Heart rate"}]}, "effectiveDateTime": "2024-01-05T08:30:00+00:00", "valueQuantity": {"value": 72, "unit": "/min"}}},
    {"resource": {"resourceType": "Observation", "id": "o3", "status": "final", "code": {"text": "Blood pressure panel"}, "effectiveDateTime": "2024-01-05T08:30:00+00:00",
      "component": [
        {"code": {"text": "Systolic blood pressure"}, "valueQuantity": {"value": 130, "unit": "mm[Hg]"}},
        {"code": {"coding": [{"display": "Diastolic blood pressure"}]}, "valueQuantity": {"value": 85, "unit": "mm[Hg]"}}
      ]}},
    {"resource": {"resourceType": "Observation", "id": "o4", "status": "final", "code": {"text": "Hemoglobin A1c"}, "valueQuantity": {"value": 6.1, "unit": "%"}}},
    {"resource": {"resourceType": "Observation", "id": "o5", "status": "final", "code": {"text": "Glucose"}, "effectiveDateTime": "2024-01-05", "valueQuantity": {"value": 5.4}}},
    {"resource": {"resourceType": "Observation", "id": "o6", "status": "final", "code": {"text": "Body height"}, "effectiveDateTime": "2024-01-05", "valueQuantity": {"value": 165, "unit": "cm"}}},
    {"resource": {"resourceType": "Observation", "id": "o7", "code": {"text": "Body weight"}, "valueQuantity": {"value": 70}}},
    {"resource": {"resourceType": "Encounter", "id": "e1", "status": "finished", "class": {"code": "AMB"}, "period": {"start": "2024-01-05T08:00:00Z", "end": "2024-01-05T09:00:00Z"}, "reasonCode": [{"text": "Checkup"}]}},
    {"resource": {"resourceType": "Encounter", "id": "e2", "status": "finished"}}
  ]
}`
