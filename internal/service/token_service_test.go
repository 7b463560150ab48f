package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/clinic-identity-service/internal/auth"
	"github.com/spec-kit/clinic-identity-service/internal/domain"
)

func newTokenFixture(t *testing.T) (*TokenService, *memoryAccounts, *recordingMailer) {
	t.Helper()

	repo := newMemoryAccounts()
	mail := &recordingMailer{}
	svc := NewTokenService(TokenDependencies{
		Accounts: repo,
		Hasher:   auth.NewPasswordHasher(bcrypt.MinCost),
		Mail:     mail,
	}, 24*time.Hour, time.Hour)
	return svc, repo, mail
}

func seedAccount(t *testing.T, repo *memoryAccounts, email string, verified bool) *domain.Account {
	t.Helper()

	account := &domain.Account{
		Email:         email,
		PasswordHash:  "$2a$04$notausablehashbutnonempty0000000000000000000000000000",
		Role:          domain.RolePatient,
		FirstName:     "Kari",
		EmailVerified: verified,
		IsActive:      true,
	}
	require.NoError(t, repo.Create(context.Background(), account))
	return account
}

func TestIssueVerification(t *testing.T) {
	svc, repo, mail := newTokenFixture(t)
	account := seedAccount(t, repo, "kari@example.com", false)

	require.NoError(t, svc.IssueVerification(context.Background(), "kari@example.com"))

	stored := repo.stored(account.ID)
	assert.False(t, stored.EmailVerified, "issuing must not verify")
	require.NotNil(t, stored.EmailVerificationDigest)
	require.NotNil(t, stored.EmailVerificationExpiry)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *stored.EmailVerificationExpiry, 5*time.Second)

	sent, ok := mail.last()
	require.True(t, ok)
	assert.Equal(t, "kari@example.com", sent.To)
	assert.NotEqual(t, sent.Raw, *stored.EmailVerificationDigest, "raw token must never be stored")
	assert.Equal(t, auth.DigestToken(sent.Raw), *stored.EmailVerificationDigest)
}

func TestIssueVerificationAlreadyVerified(t *testing.T) {
	svc, repo, _ := newTokenFixture(t)
	seedAccount(t, repo, "done@example.com", true)

	err := svc.IssueVerification(context.Background(), "done@example.com")
	assertCode(t, err, "ALREADY_VERIFIED")
}

func TestIssueVerificationUnknownEmail(t *testing.T) {
	svc, _, mail := newTokenFixture(t)

	err := svc.IssueVerification(context.Background(), "nobody@example.com")
	assertCode(t, err, "NOT_FOUND")
	assert.Zero(t, mail.count())
}

func TestIssueVerificationSupersedesPrior(t *testing.T) {
	svc, repo, mail := newTokenFixture(t)
	seedAccount(t, repo, "kari@example.com", false)

	ctx := context.Background()
	require.NoError(t, svc.IssueVerification(ctx, "kari@example.com"))
	first, _ := mail.last()
	require.NoError(t, svc.IssueVerification(ctx, "kari@example.com"))
	second, _ := mail.last()
	require.NotEqual(t, first.Raw, second.Raw)

	_, err := svc.ConsumeVerification(ctx, first.Raw)
	assertCode(t, err, "INVALID_OR_EXPIRED_TOKEN")

	_, err = svc.ConsumeVerification(ctx, second.Raw)
	assert.NoError(t, err)
}

func TestConsumeVerificationTwice(t *testing.T) {
	svc, repo, mail := newTokenFixture(t)
	account := seedAccount(t, repo, "kari@example.com", false)

	ctx := context.Background()
	require.NoError(t, svc.IssueVerification(ctx, "kari@example.com"))
	sent, _ := mail.last()

	verified, err := svc.ConsumeVerification(ctx, sent.Raw)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	stored := repo.stored(account.ID)
	assert.True(t, stored.EmailVerified)
	assert.Nil(t, stored.EmailVerificationDigest, "token fields cleared atomically on success")
	assert.Nil(t, stored.EmailVerificationExpiry)

	_, err = svc.ConsumeVerification(ctx, sent.Raw)
	assertCode(t, err, "INVALID_OR_EXPIRED_TOKEN")
}

func TestConsumeVerificationUnknownToken(t *testing.T) {
	svc, _, _ := newTokenFixture(t)

	_, err := svc.ConsumeVerification(context.Background(), "deadbeef")
	assertCode(t, err, "INVALID_OR_EXPIRED_TOKEN")
}

func TestIssueVerificationMailFailureKeepsTokenRedeemable(t *testing.T) {
	svc, repo, mail := newTokenFixture(t)
	account := seedAccount(t, repo, "kari@example.com", false)
	mail.err = errors.New("smtp down")

	err := svc.IssueVerification(context.Background(), "kari@example.com")
	assertCode(t, err, "DEPENDENCY_FAILURE")

	// The persisted token survives the failed delivery so the link, had
	// it arrived, would still work and a resend points at a fresh secret.
	stored := repo.stored(account.ID)
	require.NotNil(t, stored.EmailVerificationDigest)

	sent, ok := mail.last()
	require.True(t, ok)
	_, err = svc.ConsumeVerification(context.Background(), sent.Raw)
	assert.NoError(t, err)
}

func TestIssueResetUnknownEmailReportsSuccess(t *testing.T) {
	svc, _, mail := newTokenFixture(t)

	assert.NoError(t, svc.IssueReset(context.Background(), "nobody@example.com"))
	assert.Zero(t, mail.count(), "no mail for unknown accounts")
}

func TestIssueResetAllowedForUnverifiedAccount(t *testing.T) {
	svc, repo, mail := newTokenFixture(t)
	account := seedAccount(t, repo, "kari@example.com", false)

	require.NoError(t, svc.IssueReset(context.Background(), "kari@example.com"))

	stored := repo.stored(account.ID)
	require.NotNil(t, stored.PasswordResetDigest)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *stored.PasswordResetExpiry, 5*time.Second)
	assert.Equal(t, 1, mail.count())
}

func TestIssueResetMailFailureRollsBack(t *testing.T) {
	svc, repo, mail := newTokenFixture(t)
	account := seedAccount(t, repo, "kari@example.com", true)
	mail.err = errors.New("smtp down")

	err := svc.IssueReset(context.Background(), "kari@example.com")
	assertCode(t, err, "DEPENDENCY_FAILURE")

	// A reset token must not outlive its email.
	stored := repo.stored(account.ID)
	assert.Nil(t, stored.PasswordResetDigest)
	assert.Nil(t, stored.PasswordResetExpiry)
}

func TestConsumeReset(t *testing.T) {
	svc, repo, mail := newTokenFixture(t)
	account := seedAccount(t, repo, "kari@example.com", true)

	ctx := context.Background()
	require.NoError(t, svc.IssueReset(ctx, "kari@example.com"))
	sent, _ := mail.last()

	require.NoError(t, svc.ConsumeReset(ctx, sent.Raw, "brand-new-password"))

	stored := repo.stored(account.ID)
	assert.Nil(t, stored.PasswordResetDigest)
	assert.Nil(t, stored.PasswordResetExpiry)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	assert.True(t, hasher.Verify("brand-new-password", stored.PasswordHash))
}

func TestConsumeResetExpired(t *testing.T) {
	svc, repo, mail := newTokenFixture(t)
	seedAccount(t, repo, "kari@example.com", true)

	ctx := context.Background()
	require.NoError(t, svc.IssueReset(ctx, "kari@example.com"))
	sent, _ := mail.last()

	// Jump the store's clock past the 1h expiry; the raw token is still
	// the correct one.
	repo.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	err := svc.ConsumeReset(ctx, sent.Raw, "brand-new-password")
	assertCode(t, err, "INVALID_OR_EXPIRED_TOKEN")
}

func TestConsumeResetValidation(t *testing.T) {
	svc, _, _ := newTokenFixture(t)

	assertCode(t, svc.ConsumeReset(context.Background(), "", "longenough"), "VALIDATION_FAILED")
	assertCode(t, svc.ConsumeReset(context.Background(), "sometoken", "short"), "VALIDATION_FAILED")
}

func TestConsumeResetConcurrent(t *testing.T) {
	svc, repo, mail := newTokenFixture(t)
	seedAccount(t, repo, "kari@example.com", true)

	ctx := context.Background()
	require.NoError(t, svc.IssueReset(ctx, "kari@example.com"))
	sent, _ := mail.last()

	const racers = 2
	results := make(chan error, racers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		go func() {
			start.Wait()
			results <- svc.ConsumeReset(ctx, sent.Raw, "brand-new-password")
		}()
	}
	start.Done()

	var succeeded, rejected int
	for i := 0; i < racers; i++ {
		err := <-results
		if err == nil {
			succeeded++
		} else {
			assertCode(t, err, "INVALID_OR_EXPIRED_TOKEN")
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent redemption wins")
	assert.Equal(t, 1, rejected)
}
