package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/clinic-identity-service/internal/auth"
	"github.com/spec-kit/clinic-identity-service/internal/domain"
	"github.com/spec-kit/clinic-identity-service/internal/repository"
)

func newAdminFixture(t *testing.T) (*AdminService, *memoryAccounts, *recordingMailer) {
	t.Helper()

	repo := newMemoryAccounts()
	mail := &recordingMailer{}
	tokens := NewTokenService(TokenDependencies{
		Accounts: repo,
		Hasher:   auth.NewPasswordHasher(bcrypt.MinCost),
		Mail:     mail,
	}, 24*time.Hour, time.Hour)

	return NewAdminService(repo, tokens, nil, nil), repo, mail
}

func TestUpdateAccountStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		wantActive  bool
		wantBlocked bool
		wantLabel   domain.AccountStatus
	}{
		{"activate", "active", true, false, domain.StatusActive},
		{"deactivate", "inactive", false, false, domain.StatusInactive},
		{"lock", "locked", true, true, domain.StatusLocked},
		// Suspension flips both flags off-and-on; once written it reads
		// back as locked because the blocked flag dominates.
		{"suspend", "suspended", false, true, domain.StatusLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newAdminFixture(t)
			seeded := seedLoginAccount(t, repo, "kari@example.com", "correct-password", nil)

			updated, err := svc.UpdateAccount(context.Background(), seeded.ID,
				AdminUpdateInput{Status: tt.status})
			require.NoError(t, err)

			assert.Equal(t, tt.wantActive, updated.IsActive)
			assert.Equal(t, tt.wantBlocked, updated.IsBlocked)
			assert.Equal(t, tt.wantLabel, updated.Status())
		})
	}
}

func TestUpdateAccountUnknownStatus(t *testing.T) {
	svc, repo, _ := newAdminFixture(t)
	seeded := seedLoginAccount(t, repo, "kari@example.com", "correct-password", nil)

	_, err := svc.UpdateAccount(context.Background(), seeded.ID,
		AdminUpdateInput{Status: "banished"})
	assertCode(t, err, "VALIDATION_FAILED")

	stored := repo.stored(seeded.ID)
	assert.True(t, stored.IsActive, "flags are untouched on rejection")
	assert.False(t, stored.IsBlocked)
}

func TestUpdateAccountAdminStatusForbidden(t *testing.T) {
	svc, repo, _ := newAdminFixture(t)
	seeded := seedLoginAccount(t, repo, "admin@example.com", "correct-password", func(a *domain.Account) {
		a.Role = domain.RoleAdmin
	})

	_, err := svc.UpdateAccount(context.Background(), seeded.ID,
		AdminUpdateInput{Status: "locked"})
	assertCode(t, err, "FORBIDDEN")

	stored := repo.stored(seeded.ID)
	assert.True(t, stored.IsActive)
	assert.False(t, stored.IsBlocked)
}

func TestUpdateAccountAdminProfileFieldsAllowed(t *testing.T) {
	svc, repo, _ := newAdminFixture(t)
	seeded := seedLoginAccount(t, repo, "admin@example.com", "correct-password", func(a *domain.Account) {
		a.Role = domain.RoleAdmin
	})

	updated, err := svc.UpdateAccount(context.Background(), seeded.ID,
		AdminUpdateInput{Fields: map[string]string{"first_name": "Astrid"}})
	require.NoError(t, err, "profile edits on admins are fine, only standing is off-limits")
	assert.Equal(t, "Astrid", updated.FirstName)
}

func TestUpdateAccountProfileFields(t *testing.T) {
	svc, repo, _ := newAdminFixture(t)
	seeded := seedLoginAccount(t, repo, "kari@example.com", "correct-password", nil)
	ctx := context.Background()

	updated, err := svc.UpdateAccount(ctx, seeded.ID, AdminUpdateInput{
		Fields: map[string]string{"city": "Bergen", "phone": "+47 900 00 000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bergen", updated.City)
	assert.Equal(t, "+47 900 00 000", updated.Phone)

	_, err = svc.UpdateAccount(ctx, seeded.ID, AdminUpdateInput{
		Fields: map[string]string{"role": "admin"},
	})
	assertCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, domain.RolePatient, repo.stored(seeded.ID).Role)

	_, err = svc.UpdateAccount(ctx, seeded.ID, AdminUpdateInput{
		Fields: map[string]string{"password_hash": "x"},
	})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestUpdateAccountNotFound(t *testing.T) {
	svc, _, _ := newAdminFixture(t)

	_, err := svc.UpdateAccount(context.Background(), "missing", AdminUpdateInput{Status: "active"})
	assertCode(t, err, "NOT_FOUND")
}

func TestListAccountsFilters(t *testing.T) {
	svc, repo, _ := newAdminFixture(t)
	ctx := context.Background()

	seedLoginAccount(t, repo, "active@example.com", "correct-password", nil)
	seedLoginAccount(t, repo, "blocked@example.com", "correct-password", func(a *domain.Account) {
		a.IsBlocked = true
	})
	seedLoginAccount(t, repo, "lege@example.com", "correct-password", func(a *domain.Account) {
		a.Role = domain.RoleSpecialist
	})

	all, err := svc.ListAccounts(ctx, repository.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	locked, err := svc.ListAccounts(ctx, repository.ListFilter{Status: "locked"})
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, "blocked@example.com", locked[0].Email)

	specialists, err := svc.ListAccounts(ctx, repository.ListFilter{Role: domain.RoleSpecialist})
	require.NoError(t, err)
	require.Len(t, specialists, 1)
	assert.Equal(t, "lege@example.com", specialists[0].Email)
}

func TestAdminSendVerification(t *testing.T) {
	svc, repo, mail := newAdminFixture(t)
	ctx := context.Background()

	unverified := seedLoginAccount(t, repo, "ny@example.com", "correct-password", func(a *domain.Account) {
		a.EmailVerified = false
	})
	require.NoError(t, svc.SendVerification(ctx, unverified.ID))
	assert.Equal(t, 1, mail.count())

	verified := seedLoginAccount(t, repo, "kari@example.com", "correct-password", nil)
	err := svc.SendVerification(ctx, verified.ID)
	assertCode(t, err, "ALREADY_VERIFIED")
}

func TestAdminSendPasswordReset(t *testing.T) {
	svc, repo, mail := newAdminFixture(t)
	ctx := context.Background()

	seeded := seedLoginAccount(t, repo, "kari@example.com", "correct-password", nil)
	require.NoError(t, svc.SendPasswordReset(ctx, seeded.ID))

	sent, ok := mail.last()
	require.True(t, ok)
	assert.Equal(t, auth.DigestToken(sent.Raw), *repo.stored(seeded.ID).PasswordResetDigest)

	err := svc.SendPasswordReset(ctx, "missing")
	assertCode(t, err, "NOT_FOUND")
}
