package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// SOSStatus is the aggregate outcome of an SOS trigger
type SOSStatus string

const (
	SOSStatusSent         SOSStatus = "sent"
	SOSStatusFailed       SOSStatus = "failed"
	SOSStatusAcknowledged SOSStatus = "acknowledged"
)

// Location is where the QR code was scanned. Every field is optional.
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// Value implements the driver.Valuer interface
func (l Location) Value() (driver.Value, error) {
	return jsonValue(l)
}

// Scan implements the sql.Scanner interface
func (l *Location) Scan(value interface{}) error {
	return jsonScan(value, l, "Location")
}

// Reporter identifies whoever scanned the QR code
type Reporter struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Value implements the driver.Valuer interface
func (r Reporter) Value() (driver.Value, error) {
	return jsonValue(r)
}

// Scan implements the sql.Scanner interface
func (r *Reporter) Scan(value interface{}) error {
	return jsonScan(value, r, "Reporter")
}

// Acknowledgment records a contact confirming they received the alert
type Acknowledgment struct {
	ContactName    string    `json:"contactName"`
	AcknowledgedAt time.Time `json:"acknowledgedAt"`
	Message        string    `json:"message"`
}

// Acknowledgments is stored as JSONB
type Acknowledgments []Acknowledgment

// Value implements the driver.Valuer interface
func (a Acknowledgments) Value() (driver.Value, error) {
	if a == nil {
		return jsonValue([]Acknowledgment{})
	}
	return jsonValue([]Acknowledgment(a))
}

// Scan implements the sql.Scanner interface
func (a *Acknowledgments) Scan(value interface{}) error {
	if value == nil {
		*a = Acknowledgments{}
		return nil
	}
	return jsonScan(value, a, "Acknowledgments")
}

// DeliveryAttempt is one channel send for one contact
type DeliveryAttempt struct {
	Channel    string    `json:"channel"`
	Provider   string    `json:"provider,omitempty"`
	Success    bool      `json:"success"`
	DeliveryID string    `json:"deliveryId,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
}

// ContactResult is the final delivery outcome for one emergency contact.
// Attempts keeps every channel outcome, including a failed primary that
// was followed by a successful fallback.
type ContactResult struct {
	ContactName string            `json:"contactName"`
	Phone       string            `json:"phone"`
	Success     bool              `json:"success"`
	DeliveryID  string            `json:"deliveryId,omitempty"`
	Error       string            `json:"error,omitempty"`
	ChannelUsed string            `json:"channelUsed,omitempty"`
	Attempts    []DeliveryAttempt `json:"attempts"`
}

// ContactResults is stored as JSONB on the incident
type ContactResults []ContactResult

// Value implements the driver.Valuer interface
func (r ContactResults) Value() (driver.Value, error) {
	if r == nil {
		return jsonValue([]ContactResult{})
	}
	return jsonValue([]ContactResult(r))
}

// Scan implements the sql.Scanner interface
func (r *ContactResults) Scan(value interface{}) error {
	if value == nil {
		*r = ContactResults{}
		return nil
	}
	return jsonScan(value, r, "ContactResults")
}

// SuccessCount returns how many contacts were reached
func (r ContactResults) SuccessCount() int {
	n := 0
	for _, result := range r {
		if result.Success {
			n++
		}
	}
	return n
}

// Incident records one SOS trigger
type Incident struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	EmployeeID      uuid.UUID       `json:"employeeId" db:"employee_id"`
	OrganizationID  uuid.UUID       `json:"organizationId" db:"organization_id"`
	ScannedAt       time.Time       `json:"scannedAt" db:"scanned_at"`
	Location        Location        `json:"location" db:"location"`
	ScannedBy       Reporter        `json:"scannedBy" db:"scanned_by"`
	SOSStatus       SOSStatus       `json:"sosStatus" db:"sos_status"`
	Acknowledgments Acknowledgments `json:"acknowledgments" db:"acknowledgments"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	Results         ContactResults  `json:"results" db:"results"`
	FinalizedAt     *time.Time      `json:"finalizedAt,omitempty" db:"finalized_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}

// StatusFor derives the aggregate status from per-contact results:
// sent iff at least one contact was reached
func StatusFor(results ContactResults) SOSStatus {
	if results.SuccessCount() > 0 {
		return SOSStatusSent
	}
	return SOSStatusFailed
}

// IncidentWithEmployee is an incident joined with its employee summary
type IncidentWithEmployee struct {
	Incident
	EmployeeSummary `json:"employee"`
}
