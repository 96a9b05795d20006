package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"university-portal-api/models"
)

var testNow = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// facultyStore keeps faculty applications in memory. holdReads makes the
// next n FindByID calls wait for each other, so callers observe the same state.
type facultyStore struct {
	mu      sync.Mutex
	apps    map[string]models.FacultyApplication
	gate    int
	gateWG  sync.WaitGroup
	updates int
}

func newFacultyStore(apps ...models.FacultyApplication) *facultyStore {
	s := &facultyStore{apps: make(map[string]models.FacultyApplication)}
	for _, app := range apps {
		s.apps[app.ID] = app
	}
	return s
}

func (s *facultyStore) holdReads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = n
	s.gateWG.Add(n)
}

func (s *facultyStore) FindByID(_ context.Context, id string) (*models.FacultyApplication, error) {
	s.mu.Lock()
	held := s.gate > 0
	if held {
		s.gate--
	}
	s.mu.Unlock()
	if held {
		s.gateWG.Done()
		s.gateWG.Wait()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &app, nil
}

func (s *facultyStore) ConditionalUpdate(_ context.Context, id string, expected models.OfferStatus, expectedToken string, change OfferChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok || app.Status != expected {
		return false, nil
	}
	if expectedToken != "" && (app.ConfirmationToken == nil || *app.ConfirmationToken != expectedToken) {
		return false, nil
	}

	app.Status = change.Status
	app.ConfirmationToken = change.ConfirmationToken
	app.TokenExpiry = change.TokenExpiry
	app.RejectedBy = change.RejectedBy
	for col, value := range change.Fields {
		switch col {
		case "offered_department":
			app.OfferedDepartment = stringValue(value)
		case "offered_position":
			app.OfferedPosition = stringValue(value)
		case "offered_start_date":
			app.OfferedStartDate = stringValue(value)
		case "offered_salary":
			if f, ok := value.(float64); ok {
				app.OfferedSalary = &f
			} else {
				app.OfferedSalary = nil
			}
		default:
			return false, fmt.Errorf("unknown column %s", col)
		}
	}
	s.apps[id] = app
	s.updates++
	return true, nil
}

func (s *facultyStore) DeletePending(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok || app.Status != models.OfferStatusPending {
		return false, nil
	}
	delete(s.apps, id)
	return true, nil
}

func (s *facultyStore) get(id string) models.FacultyApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apps[id]
}

func stringValue(v interface{}) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

// memoryAccounts enforces the same uniqueness as the users table. Lookups
// skip soft-deleted rows, the unique checks do not.
type memoryAccounts struct {
	mu        sync.Mutex
	accounts  []models.Account
	createErr error
	updateErr error
	nextID    int
}

func (m *memoryAccounts) Create(_ context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return ErrDuplicateAccount
		}
		if existing.ApplicationID != nil && account.ApplicationID != nil && *existing.ApplicationID == *account.ApplicationID {
			return ErrDuplicateAccount
		}
	}
	m.nextID++
	account.UserID = m.nextID
	m.accounts = append(m.accounts, *account)
	return nil
}

func (m *memoryAccounts) FindByApplicationID(_ context.Context, applicationID string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.DeleteAt == nil && existing.ApplicationID != nil && *existing.ApplicationID == applicationID {
			found := existing
			return &found, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.DeleteAt == nil && strings.EqualFold(existing.Email, email) {
			found := existing
			return &found, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *memoryAccounts) UpdatePassword(_ context.Context, userID int, hashedPassword string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.accounts {
		if m.accounts[i].UserID == userID {
			m.accounts[i].Password = hashedPassword
			m.accounts[i].UpdateAt = &now
			return nil
		}
	}
	return ErrAccountNotFound
}

func (m *memoryAccounts) all() []models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Account(nil), m.accounts...)
}

type recordingNotifier struct {
	mu           sync.Mutex
	offers       []OfferNotice
	credentials  []CredentialsNotice
	rejections   []RejectionNotice
	offerErr     error
	credentialsE error
	rejectionErr error
}

func (n *recordingNotifier) SendOffer(_ context.Context, notice OfferNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.offerErr != nil {
		return n.offerErr
	}
	n.offers = append(n.offers, notice)
	return nil
}

func (n *recordingNotifier) SendCredentials(_ context.Context, notice CredentialsNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.credentialsE != nil {
		return n.credentialsE
	}
	n.credentials = append(n.credentials, notice)
	return nil
}

func (n *recordingNotifier) SendRejection(_ context.Context, notice RejectionNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rejectionErr != nil {
		return n.rejectionErr
	}
	n.rejections = append(n.rejections, notice)
	return nil
}

// prefixHasher stands in for bcrypt where the hash itself is not under test.
type prefixHasher struct{}

func (prefixHasher) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

type sequencePasswords struct {
	mu sync.Mutex
	n  int
}

func (g *sequencePasswords) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("Generated-Pass-%d!", g.n), nil
}

type failingPasswords struct{}

func (failingPasswords) Generate() (string, error) {
	return "", errors.New("entropy unavailable")
}

func pendingFacultyApplication(id string) models.FacultyApplication {
	return models.FacultyApplication{
		ID:         id,
		FullName:   "Grace Brewster Hopper",
		Email:      "grace@example.edu",
		Department: "Computer Science",
		Position:   "Lecturer",
		OfferState: models.OfferState{Status: models.OfferStatusPending},
		CreatedAt:  testNow.Add(-48 * time.Hour),
	}
}

func offeredFacultyApplication(id, token string, expiry time.Time) models.FacultyApplication {
	app := pendingFacultyApplication(id)
	app.Status = models.OfferStatusOffered
	app.ConfirmationToken = &token
	app.TokenExpiry = &expiry
	dept := "Computer Science"
	start := "2025-02-01"
	app.OfferedDepartment = &dept
	app.OfferedStartDate = &start
	return app
}
