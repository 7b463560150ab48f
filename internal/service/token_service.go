package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/clinic-identity-service/internal/auth"
	"github.com/spec-kit/clinic-identity-service/internal/domain"
	"github.com/spec-kit/clinic-identity-service/internal/events"
	"github.com/spec-kit/clinic-identity-service/internal/mailer"
	"github.com/spec-kit/clinic-identity-service/internal/repository"
	apperrors "github.com/spec-kit/clinic-identity-service/pkg/util"
)

// TokenService coordinates the lifecycle of verification and reset
// tokens: minting, persistence, delivery, consumption and expiry
// enforcement.
//
// Delivery-failure policy is asymmetric. A verification token survives a
// failed send so a resend still points at a redeemable secret; a reset
// token is rolled back before the failure is reported, because an
// undelivered reset token grants password takeover, not just a resend
// nuisance.
type TokenService struct {
	accounts        repository.AccountRepository
	forge           *auth.TokenForge
	hasher          *auth.PasswordHasher
	mail            mailer.Mailer
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	verificationTTL time.Duration
	resetTTL        time.Duration
}

// TokenDependencies bundles collaborators for the token service.
type TokenDependencies struct {
	Accounts   repository.AccountRepository
	Forge      *auth.TokenForge
	Hasher     *auth.PasswordHasher
	Mail       mailer.Mailer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTokenService builds the service.
func NewTokenService(deps TokenDependencies, verificationTTL, resetTTL time.Duration) *TokenService {
	if deps.Forge == nil {
		deps.Forge = auth.NewTokenForge()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &TokenService{
		accounts:        deps.Accounts,
		forge:           deps.Forge,
		hasher:          deps.Hasher,
		mail:            deps.Mail,
		dispatcher:      deps.Dispatcher,
		logger:          deps.Logger,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
	}
}

// IssueVerification mints and delivers a verification token for the
// account with the given email. Unknown emails are reported as not
// found: this is the resend flow, and the caller has already proven
// knowledge of the address by registering it.
func (s *TokenService) IssueVerification(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("account", nil)
		}
		return apperrors.NewDependencyFailure("database", err)
	}
	return s.IssueVerificationFor(ctx, account)
}

// IssueVerificationFor mints and delivers a verification token for a
// loaded account. On delivery failure the persisted token is left in
// place and remains redeemable; the failure is still surfaced so the
// caller can prompt a retry.
func (s *TokenService) IssueVerificationFor(ctx context.Context, account *domain.Account) error {
	if account.EmailVerified {
		return apperrors.NewAlreadyVerified()
	}

	token, err := s.forge.Issue(s.verificationTTL)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.accounts.SetVerificationToken(ctx, account.ID, token.Digest, token.ExpiresAt); err != nil {
		return apperrors.NewDependencyFailure("database", err)
	}

	if err := s.mail.Send(ctx, mailer.KindVerification, account.Email, token.Raw, account.DisplayName()); err != nil {
		s.logger.Warn("verification email delivery failed; token remains redeemable",
			zap.String("account_id", account.ID), zap.Error(err))
		return apperrors.NewDependencyFailure("mailer", err)
	}
	return nil
}

// ConsumeVerification redeems a raw verification token. Wrong and
// expired tokens are indistinguishable to the caller. The underlying
// update is conditional on the digest still matching, so of two
// concurrent redemptions exactly one succeeds.
func (s *TokenService) ConsumeVerification(ctx context.Context, rawToken string) (*domain.Account, error) {
	if rawToken == "" {
		return nil, apperrors.NewValidationError("token is required", nil)
	}

	account, err := s.accounts.ConsumeVerificationToken(ctx, auth.DigestToken(rawToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidOrExpiredToken()
		}
		return nil, apperrors.NewDependencyFailure("database", err)
	}

	s.publish(ctx, events.NewEvent(events.EventEmailVerified, account.ID,
		events.EmailVerifiedPayload{Email: account.Email}))
	return account, nil
}

// IssueReset mints and delivers a reset token for the account with the
// given email. Unknown emails report success all the same, so callers
// cannot probe which addresses hold accounts.
func (s *TokenService) IssueReset(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("reset requested for unknown email")
			return nil
		}
		return apperrors.NewDependencyFailure("database", err)
	}
	return s.IssueResetFor(ctx, account)
}

// IssueResetFor mints and delivers a reset token for a loaded account.
// A failed delivery rolls the persisted token back before the failure
// is reported; a dangling reset token must not outlive its email.
func (s *TokenService) IssueResetFor(ctx context.Context, account *domain.Account) error {
	token, err := s.forge.Issue(s.resetTTL)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.accounts.SetResetToken(ctx, account.ID, token.Digest, token.ExpiresAt); err != nil {
		return apperrors.NewDependencyFailure("database", err)
	}

	if err := s.mail.Send(ctx, mailer.KindReset, account.Email, token.Raw, account.DisplayName()); err != nil {
		if clearErr := s.accounts.ClearResetToken(ctx, account.ID); clearErr != nil {
			s.logger.Error("failed to roll back reset token after delivery failure",
				zap.String("account_id", account.ID), zap.Error(clearErr))
		}
		return apperrors.NewDependencyFailure("mailer", err)
	}
	return nil
}

// ConsumeReset redeems a raw reset token and installs the new password.
// Same compare-and-swap discipline as verification consumption.
func (s *TokenService) ConsumeReset(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" || newPassword == "" {
		return apperrors.NewValidationError("token and password are required", nil)
	}
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	account, err := s.accounts.ConsumeResetToken(ctx, auth.DigestToken(rawToken), hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewInvalidOrExpiredToken()
		}
		return apperrors.NewDependencyFailure("database", err)
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordReset, account.ID,
		events.PasswordResetPayload{Email: account.Email}))
	return nil
}

func (s *TokenService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
