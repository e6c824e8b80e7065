package vitals

import "encoding/json"

// Clinical thresholds. A reading exactly on a bound is not critical.
const (
	TemperatureHigh = 38.0
	TemperatureLow  = 35.5
	HeartRateHigh   = 120.0
	HeartRateLow    = 50.0
)

// AlertType tags which vital(s) made a reading critical. The string values
// are matched exactly by the alert email renderer.
type AlertType string

const (
	AlertNone        AlertType = ""
	AlertTemperature AlertType = "temperature"
	AlertHeartRate   AlertType = "heartRate"
	AlertBoth        AlertType = "both"
)

// MarshalJSON encodes AlertNone as null.
func (a AlertType) MarshalJSON() ([]byte, error) {
	if a == AlertNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts null as AlertNone.
func (a *AlertType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = AlertNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = AlertType(s)
	return nil
}

type Classification struct {
	IsCritical          bool      `json:"isCritical"`
	AlertType           AlertType `json:"alertType"`
	IsTempCritical      bool      `json:"isTempCritical"`
	IsHeartRateCritical bool      `json:"isHeartRateCritical"`
}

// Classify checks a temperature (°C) and heart rate (bpm) against the
// clinical thresholds. It never fails; out-of-range values are classified
// like any other.
func Classify(temperature, heartRate float64) Classification {
	tempCritical := temperature > TemperatureHigh || temperature < TemperatureLow
	hrCritical := heartRate > HeartRateHigh || heartRate < HeartRateLow

	c := Classification{
		IsCritical:          tempCritical || hrCritical,
		IsTempCritical:      tempCritical,
		IsHeartRateCritical: hrCritical,
	}

	switch {
	case tempCritical && hrCritical:
		c.AlertType = AlertBoth
	case tempCritical:
		c.AlertType = AlertTemperature
	case hrCritical:
		c.AlertType = AlertHeartRate
	default:
		c.AlertType = AlertNone
	}

	return c
}
