package email

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
)

const SOSSubject = "🚨 CRITICAL HEALTH ALERT - Immediate Attention Required"

// SOSData feeds the critical vitals email. A zero reading is treated as not
// measured.
type SOSData struct {
	UserName    string
	Temperature float64
	HeartRate   float64
	AlertType   string
	Timestamp   time.Time
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AlertDetails returns the headline describing which vitals are critical.
func AlertDetails(data SOSData) string {
	switch data.AlertType {
	case "temperature":
		if data.Temperature > 38.0 {
			return fmt.Sprintf("🌡️ HIGH FEVER DETECTED: %s°C (Normal: 35.5-37.5°C)", formatReading(data.Temperature))
		}
		if data.Temperature != 0 && data.Temperature < 35.5 {
			return fmt.Sprintf("🧊 HYPOTHERMIA DETECTED: %s°C (Normal: 35.5-37.5°C)", formatReading(data.Temperature))
		}
	case "heartRate":
		if data.HeartRate > 120 {
			return fmt.Sprintf("💓 TACHYCARDIA DETECTED: %s BPM (Normal: 60-100 BPM)", formatReading(data.HeartRate))
		}
		if data.HeartRate != 0 && data.HeartRate < 50 {
			return fmt.Sprintf("💔 BRADYCARDIA DETECTED: %s BPM (Normal: 60-100 BPM)", formatReading(data.HeartRate))
		}
	case "both":
		var b strings.Builder
		b.WriteString("🚨 MULTIPLE CRITICAL VITALS:\n")
		if data.Temperature != 0 {
			fmt.Fprintf(&b, "   🌡️ Temperature: %s°C\n", formatReading(data.Temperature))
		}
		if data.HeartRate != 0 {
			fmt.Fprintf(&b, "   💓 Heart Rate: %s BPM\n", formatReading(data.HeartRate))
		}
		return b.String()
	}
	return ""
}

// RenderSOS builds the subject plus HTML and plain-text bodies.
func RenderSOS(data SOSData) Content {
	details := AlertDetails(data)
	timestamp := data.Timestamp.Format("Jan 2, 2006 3:04:05 PM MST")
	name := data.UserName
	if name == "" {
		name = "User"
	}

	return Content{
		Subject: SOSSubject,
		HTML:    sosHTML(html.EscapeString(name), strings.ReplaceAll(html.EscapeString(details), "\n", "<br>"), timestamp),
		Text:    sosText(name, details, timestamp),
	}
}

func sosHTML(name, details, timestamp string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Critical Health Alert</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .alert-header { background: #dc2626; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .alert-body { background: #fef2f2; border: 2px solid #dc2626; padding: 20px; border-radius: 0 0 8px 8px; }
        .vital-reading { background: white; padding: 15px; margin: 10px 0; border-left: 4px solid #dc2626; }
        .timestamp { color: #666; font-size: 14px; }
        .action-required { background: #fee2e2; padding: 15px; border-radius: 6px; margin: 15px 0; }
        .footer { text-align: center; margin-top: 20px; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="alert-header">
            <h1>🚨 CRITICAL HEALTH ALERT</h1>
            <p>Immediate Medical Attention Required</p>
        </div>
        <div class="alert-body">
            <h2>Dear %s,</h2>
            <p><strong>Your MediMe health monitoring system has detected critical vital signs that require immediate attention.</strong></p>

            <div class="vital-reading">
                <h3>⚠️ Critical Reading Detected:</h3>
                <p>%s</p>
                <p class="timestamp">📅 Time: %s</p>
            </div>

            <div class="action-required">
                <h3>🏥 IMMEDIATE ACTION REQUIRED:</h3>
                <ul>
                    <li><strong>Seek immediate medical attention</strong></li>
                    <li>Contact your healthcare provider or emergency services</li>
                    <li>Do not ignore these symptoms</li>
                    <li>Keep monitoring your vitals</li>
                </ul>
            </div>

            <p><strong>This is an automated alert from your MediMe health monitoring system. Please take this seriously and seek appropriate medical care.</strong></p>
        </div>
        <div class="footer">
            <p>This email was sent by MediMe Health Monitoring System</p>
            <p>If you believe this is an error, please check your device readings and consult with a healthcare professional.</p>
        </div>
    </div>
</body>
</html>
`, name, details, timestamp)
}

func sosText(name, details, timestamp string) string {
	return fmt.Sprintf(`🚨 CRITICAL HEALTH ALERT - IMMEDIATE ATTENTION REQUIRED

Dear %s,

Your MediMe health monitoring system has detected critical vital signs:

%s
Time: %s

IMMEDIATE ACTION REQUIRED:
- Seek immediate medical attention
- Contact your healthcare provider or emergency services
- Do not ignore these symptoms
- Keep monitoring your vitals

Emergency Contacts:
🚑 Emergency Services: 911 (US) / 999 (UK) / 112 (EU)
🏥 Your Doctor: Contact your primary healthcare provider

This is an automated alert from your MediMe health monitoring system.
Please take this seriously and seek appropriate medical care.
`, name, details, timestamp)
}
