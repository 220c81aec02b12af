package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/safeqr/emergency-backend/internal/models"
)

const mapsURL = "https://www.google.com/maps?q=%.6f,%.6f"

// EmergencyMessage holds everything shown to an emergency contact
type EmergencyMessage struct {
	EmployeeName     string
	EmployeeCode     string
	OrganizationName string
	Critical         models.CriticalMedicalInfo
	Location         *models.Location
	Reporter         *models.Reporter
	Time             time.Time
}

// ComposeEmergencyMessage renders the alert text. The output depends only on
// its input, including the supplied time.
func ComposeEmergencyMessage(m EmergencyMessage) string {
	var b strings.Builder

	b.WriteString("EMERGENCY ALERT\n\n")
	fmt.Fprintf(&b, "%s (%s) from %s needs help.\n\n", m.EmployeeName, m.EmployeeCode, m.OrganizationName)

	bloodGroup := m.Critical.BloodGroup
	if bloodGroup == "" {
		bloodGroup = "Unknown"
	}
	fmt.Fprintf(&b, "Blood Group: %s\n", bloodGroup)
	if len(m.Critical.Allergies) > 0 {
		fmt.Fprintf(&b, "Allergies: %s\n", strings.Join(m.Critical.Allergies, ", "))
	}
	if len(m.Critical.ChronicConditions) > 0 {
		fmt.Fprintf(&b, "Chronic Conditions: %s\n", strings.Join(m.Critical.ChronicConditions, ", "))
	}
	b.WriteString("\n")

	hasAddress := m.Location != nil && strings.TrimSpace(m.Location.Address) != ""
	switch {
	case m.Location.HasCoordinates():
		fmt.Fprintf(&b, "Location: "+mapsURL+"\n", *m.Location.Latitude, *m.Location.Longitude)
		if hasAddress {
			fmt.Fprintf(&b, "Address: %s\n", strings.TrimSpace(m.Location.Address))
		}
	case hasAddress:
		fmt.Fprintf(&b, "Address: %s\n", strings.TrimSpace(m.Location.Address))
	default:
		b.WriteString("Location: Not available\n")
	}

	if m.Reporter != nil && (m.Reporter.Name != "" || m.Reporter.Phone != "") {
		switch {
		case m.Reporter.Name != "" && m.Reporter.Phone != "":
			fmt.Fprintf(&b, "Reported by: %s (%s)\n", m.Reporter.Name, m.Reporter.Phone)
		case m.Reporter.Name != "":
			fmt.Fprintf(&b, "Reported by: %s\n", m.Reporter.Name)
		default:
			fmt.Fprintf(&b, "Reported by: %s\n", m.Reporter.Phone)
		}
	}

	fmt.Fprintf(&b, "Time: %s", m.Time.UTC().Format("2006-01-02 15:04:05 MST"))
	return b.String()
}
