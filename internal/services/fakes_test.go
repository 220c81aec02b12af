package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/pkg/notify"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

type fakeEmployees struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.Employee
	lookupErr error
	updateErr error
	createErr error
}

func newFakeEmployees(employees ...*models.Employee) *fakeEmployees {
	f := &fakeEmployees{byID: map[uuid.UUID]*models.Employee{}}
	for _, e := range employees {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEmployees) Create(ctx context.Context, emp *models.Employee) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if emp.ID == uuid.Nil {
		emp.ID = uuid.New()
	}
	for _, e := range f.byID {
		if e.OrganizationID == emp.OrganizationID && e.EmployeeCode == emp.EmployeeCode {
			return database.ErrDuplicateEmployeeCode
		}
		if e.Email == emp.Email {
			return database.ErrDuplicate
		}
	}
	if emp.Status == "" {
		emp.Status = models.EmployeeStatusActive
	}
	copied := *emp
	f.byID[emp.ID] = &copied
	return nil
}

func (f *fakeEmployees) GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeEmployees) GetActiveByEmail(ctx context.Context, email string) (*models.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.Email == email && e.IsActive() {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeEmployees) GetActiveByQRToken(ctx context.Context, token string) (*models.Employee, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.QRToken == token && e.IsActive() {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeEmployees) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	employees := []models.Employee{}
	for _, e := range f.byID {
		if e.OrganizationID == orgID {
			employees = append(employees, *e)
		}
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].EmployeeCode < employees[j].EmployeeCode })
	return employees, nil
}

func (f *fakeEmployees) Update(ctx context.Context, emp *models.Employee) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[emp.ID]; !ok {
		return sql.ErrNoRows
	}
	emp.LastUpdated = time.Now()
	copied := *emp
	f.byID[emp.ID] = &copied
	return nil
}

func (f *fakeEmployees) UpdateStatus(ctx context.Context, id uuid.UUID, status models.EmployeeStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	return nil
}

func (f *fakeEmployees) UpdateQRToken(ctx context.Context, id uuid.UUID, token string, generatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.QRToken = token
	e.QRGeneratedAt = &generatedAt
	return nil
}

func (f *fakeEmployees) ExistsCode(ctx context.Context, orgID uuid.UUID, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.OrganizationID == orgID && e.EmployeeCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEmployees) ExistsEmail(ctx context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type fakeOrganizations struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.Organization
	stats   *models.DashboardStats
	deleted []uuid.UUID
}

func newFakeOrganizations(orgs ...*models.Organization) *fakeOrganizations {
	f := &fakeOrganizations{byID: map[uuid.UUID]*models.Organization{}}
	for _, o := range orgs {
		f.byID[o.ID] = o
	}
	return f
}

func (f *fakeOrganizations) Create(ctx context.Context, org *models.Organization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.Email == org.Email {
			return database.ErrDuplicate
		}
	}
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if org.Plan == "" {
		org.Plan = models.PlanFree
	}
	copied := *org
	f.byID[org.ID] = &copied
	return nil
}

func (f *fakeOrganizations) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.byID[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeOrganizations) GetByEmail(ctx context.Context, email string) (*models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.Email == email {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeOrganizations) UpdateSettings(ctx context.Context, id uuid.UUID, name string, settings models.OrganizationSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	o.Name = name
	o.Settings = settings
	return nil
}

func (f *fakeOrganizations) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	o.PasswordHash = passwordHash
	return nil
}

func (f *fakeOrganizations) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeOrganizations) CountActiveEmployees(ctx context.Context, id uuid.UUID) (int, error) {
	return 4, nil
}

func (f *fakeOrganizations) CountIncidents(ctx context.Context, id uuid.UUID, since time.Time) (int, error) {
	return 2, nil
}

func (f *fakeOrganizations) GetDashboardStats(ctx context.Context, id uuid.UUID, updatedSince, recentSince time.Time) (*models.DashboardStats, error) {
	if f.stats == nil {
		return &models.DashboardStats{DepartmentBreakdown: []models.DepartmentCount{}}, nil
	}
	return f.stats, nil
}

type fakeIncidents struct {
	mu          sync.Mutex
	created     []*models.Incident
	outcomes    map[uuid.UUID]models.SOSStatus
	results     map[uuid.UUID]models.ContactResults
	failedNotes map[uuid.UUID]string
	unfinalized []models.Incident
	byOrg       []models.IncidentWithEmployee
	createErr   error
	updateErr   error
	updateCalls int
}

func newFakeIncidents() *fakeIncidents {
	return &fakeIncidents{
		outcomes:    map[uuid.UUID]models.SOSStatus{},
		results:     map[uuid.UUID]models.ContactResults{},
		failedNotes: map[uuid.UUID]string{},
	}
}

func (f *fakeIncidents) Create(ctx context.Context, incident *models.Incident) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	copied := *incident
	f.created = append(f.created, &copied)
	return nil
}

func (f *fakeIncidents) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inc := range f.created {
		if inc.ID == id {
			copied := *inc
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeIncidents) UpdateOutcome(ctx context.Context, id uuid.UUID, status models.SOSStatus, results models.ContactResults) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, done := f.outcomes[id]; done {
		return sql.ErrNoRows
	}
	f.outcomes[id] = status
	f.results[id] = results
	return nil
}

func (f *fakeIncidents) ListByEmployee(ctx context.Context, employeeID uuid.UUID, limit int) ([]models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	incidents := []models.Incident{}
	for _, inc := range f.created {
		if inc.EmployeeID == employeeID && len(incidents) < limit {
			incidents = append(incidents, *inc)
		}
	}
	return incidents, nil
}

func (f *fakeIncidents) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit int) ([]models.IncidentWithEmployee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	incidents := []models.IncidentWithEmployee{}
	for _, inc := range f.byOrg {
		if inc.OrganizationID == orgID && len(incidents) < limit {
			incidents = append(incidents, inc)
		}
	}
	return incidents, nil
}

func (f *fakeIncidents) ListUnfinalized(ctx context.Context, olderThan time.Time, limit int) ([]models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stale := []models.Incident{}
	for _, inc := range f.unfinalized {
		if inc.CreatedAt.Before(olderThan) && len(stale) < limit {
			stale = append(stale, inc)
		}
	}
	return stale, nil
}

func (f *fakeIncidents) MarkFailed(ctx context.Context, id uuid.UUID, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, done := f.outcomes[id]; done {
		return sql.ErrNoRows
	}
	f.outcomes[id] = models.SOSStatusFailed
	f.failedNotes[id] = note
	return nil
}

// sendCall is one recorded Messenger.Send
type sendCall struct {
	Channel notify.Channel
	To      string
	Message string
}

// scriptedMessenger answers sends per channel and phone number. Unscripted
// sends succeed.
type scriptedMessenger struct {
	mu       sync.Mutex
	calls    []sendCall
	failures map[string]error
	block    map[notify.Channel]bool
	counter  int
}

func newScriptedMessenger() *scriptedMessenger {
	return &scriptedMessenger{failures: map[string]error{}, block: map[notify.Channel]bool{}}
}

func (m *scriptedMessenger) fail(channel notify.Channel, to string, err error) {
	m.failures[string(channel)+"|"+to] = err
}

func (m *scriptedMessenger) Send(ctx context.Context, channel notify.Channel, to, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls = append(m.calls, sendCall{Channel: channel, To: to, Message: message})
	m.counter++
	n := m.counter
	err := m.failures[string(channel)+"|"+to]
	block := m.block[channel]
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d", channel, n), nil
}

func (m *scriptedMessenger) Provider(channel notify.Channel) string {
	return "fake " + string(channel)
}

type fakeDeliveryLog struct {
	entries []database.DeliveryLogEntry
	err     error
}

func (f *fakeDeliveryLog) Record(ctx context.Context, entries []database.DeliveryLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeDeliveryLog) ListByIncident(ctx context.Context, incidentID string) ([]database.DeliveryLogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	entries := []database.DeliveryLogEntry{}
	for _, e := range f.entries {
		if e.IncidentID == incidentID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
