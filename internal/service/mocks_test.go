package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/clinic-identity-service/internal/domain"
	"github.com/spec-kit/clinic-identity-service/internal/mailer"
	"github.com/spec-kit/clinic-identity-service/internal/repository"
	apperrors "github.com/spec-kit/clinic-identity-service/pkg/util"
)

// assertCode fails unless err is a DomainError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

// memoryAccounts is an in-memory AccountRepository with the same
// conditional-update semantics as the Postgres implementation: consume
// operations only succeed while the digest still matches and has not
// expired at the time of the write.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	nextID   int
	now      func() time.Time

	failTouchLastLogin bool
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{
		accounts: make(map[string]*domain.Account),
		now:      time.Now,
	}
}

func (m *memoryAccounts) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account.Email = strings.ToLower(account.Email)
	for _, existing := range m.accounts {
		if existing.Email == account.Email {
			return fmt.Errorf("duplicate email %s", account.Email)
		}
	}

	m.nextID++
	account.ID = fmt.Sprintf("acc-%d", m.nextID)
	account.CreatedAt = m.now()
	account.UpdatedAt = account.CreatedAt
	if account.CVStatus == "" {
		account.CVStatus = domain.ReviewPending
	}
	if account.ProfileImageStatus == "" {
		account.ProfileImageStatus = domain.ReviewPending
	}

	stored := *account
	m.accounts[account.ID] = &stored
	return nil
}

func (m *memoryAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return redacted(account), nil
}

func (m *memoryAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account := m.findByEmail(email)
	if account == nil {
		return nil, pgx.ErrNoRows
	}
	return redacted(account), nil
}

func (m *memoryAccounts) GetByEmailWithCredentials(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account := m.findByEmail(email)
	if account == nil {
		return nil, pgx.ErrNoRows
	}
	clone := *account
	return &clone, nil
}

func (m *memoryAccounts) List(_ context.Context, filter repository.ListFilter) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Account
	for _, account := range m.accounts {
		switch filter.Status {
		case domain.StatusActive:
			if !account.IsActive || account.IsBlocked {
				continue
			}
		case domain.StatusInactive:
			if account.IsActive {
				continue
			}
		case domain.StatusLocked:
			if !account.IsBlocked {
				continue
			}
		}
		if filter.Role != "" && account.Role != filter.Role {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(account.FirstName), needle) &&
				!strings.Contains(strings.ToLower(account.LastName), needle) &&
				!strings.Contains(account.Email, needle) {
				continue
			}
		}
		out = append(out, redacted(account))
	}
	return out, nil
}

func (m *memoryAccounts) SetVerificationToken(_ context.Context, id, digest string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.EmailVerificationDigest = &digest
	account.EmailVerificationExpiry = &expiry
	return nil
}

func (m *memoryAccounts) ConsumeVerificationToken(_ context.Context, digest string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, account := range m.accounts {
		if account.EmailVerificationDigest != nil &&
			*account.EmailVerificationDigest == digest &&
			account.EmailVerificationExpiry != nil &&
			account.EmailVerificationExpiry.After(m.now()) {
			account.EmailVerified = true
			account.EmailVerificationDigest = nil
			account.EmailVerificationExpiry = nil
			return redacted(account), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryAccounts) SetResetToken(_ context.Context, id, digest string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordResetDigest = &digest
	account.PasswordResetExpiry = &expiry
	return nil
}

func (m *memoryAccounts) ClearResetToken(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordResetDigest = nil
	account.PasswordResetExpiry = nil
	return nil
}

func (m *memoryAccounts) ConsumeResetToken(_ context.Context, digest, newPasswordHash string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, account := range m.accounts {
		if account.PasswordResetDigest != nil &&
			*account.PasswordResetDigest == digest &&
			account.PasswordResetExpiry != nil &&
			account.PasswordResetExpiry.After(m.now()) {
			account.PasswordHash = newPasswordHash
			account.PasswordResetDigest = nil
			account.PasswordResetExpiry = nil
			return redacted(account), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryAccounts) TouchLastLogin(_ context.Context, id string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failTouchLastLogin {
		return pgx.ErrNoRows
	}
	account, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.LastLogin = &when
	return nil
}

func (m *memoryAccounts) UpdateProfile(_ context.Context, id string, fields map[string]string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	for name, value := range fields {
		switch name {
		case "first_name":
			account.FirstName = value
		case "last_name":
			account.LastName = value
		case "phone":
			account.Phone = value
		case "address":
			account.Address = value
		case "city":
			account.City = value
		case "postal_code":
			account.PostalCode = value
		case "country":
			account.Country = value
		}
	}
	return redacted(account), nil
}

func (m *memoryAccounts) SetStanding(_ context.Context, id string, isActive, isBlocked bool) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	account.IsActive = isActive
	account.IsBlocked = isBlocked
	return redacted(account), nil
}

// stored returns the live record for test assertions.
func (m *memoryAccounts) stored(id string) *domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id]
}

func (m *memoryAccounts) findByEmail(email string) *domain.Account {
	email = strings.ToLower(email)
	for _, account := range m.accounts {
		if account.Email == email {
			return account
		}
	}
	return nil
}

// redacted mirrors the default projection: no credential material.
func redacted(account *domain.Account) *domain.Account {
	clone := *account
	clone.PasswordHash = ""
	return &clone
}

// sentMail records one delivery attempt.
type sentMail struct {
	Kind mailer.Kind
	To   string
	Raw  string
	Name string
}

// recordingMailer captures every delivery attempt, including ones it is
// configured to fail.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingMailer) Send(_ context.Context, kind mailer.Kind, to, rawToken, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{Kind: kind, To: to, Raw: rawToken, Name: displayName})
	return r.err
}

func (r *recordingMailer) last() (sentMail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return sentMail{}, false
	}
	return r.sent[len(r.sent)-1], true
}

func (r *recordingMailer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
