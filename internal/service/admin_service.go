package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/clinic-identity-service/internal/domain"
	"github.com/spec-kit/clinic-identity-service/internal/events"
	"github.com/spec-kit/clinic-identity-service/internal/repository"
	apperrors "github.com/spec-kit/clinic-identity-service/pkg/util"
)

// AdminUpdateInput carries an administrative account update. Status, if
// set, is a presentation label that is mapped back onto the standing
// flags; Fields are profile columns checked against the allow-list.
type AdminUpdateInput struct {
	Status string
	Fields map[string]string
}

// AdminService exposes the account management surface for
// administrators: listing, inspection, field updates and re-sending
// account tokens.
type AdminService struct {
	accounts   repository.AccountRepository
	tokens     *TokenService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAdminService builds the service.
func NewAdminService(accounts repository.AccountRepository, tokens *TokenService, dispatcher events.Dispatcher, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{accounts: accounts, tokens: tokens, dispatcher: dispatcher, logger: logger}
}

// ListAccounts returns accounts matching the filter.
func (s *AdminService) ListAccounts(ctx context.Context, filter repository.ListFilter) ([]*domain.Account, error) {
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewDependencyFailure("database", err)
	}
	return accounts, nil
}

// GetAccount loads a single account.
func (s *AdminService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", nil)
		}
		return nil, apperrors.NewDependencyFailure("database", err)
	}
	return account, nil
}

// UpdateAccount applies an administrative update. Status labels map back
// onto the standing flags (active, inactive, locked, suspended); profile
// fields must be on the allow-list. Password, role and identity are not
// reachable from this surface, and the standing of admin accounts cannot
// be touched at all.
func (s *AdminService) UpdateAccount(ctx context.Context, id string, input AdminUpdateInput) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != "" && account.Role == domain.RoleAdmin {
		return nil, apperrors.NewForbidden("cannot modify admin account status")
	}

	if input.Status != "" {
		isActive, isBlocked, ok := domain.StandingFor(domain.AccountStatus(input.Status))
		if !ok {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": input.Status})
		}
		if isActive != account.IsActive || isBlocked != account.IsBlocked {
			oldStatus := account.Status()
			account, err = s.accounts.SetStanding(ctx, id, isActive, isBlocked)
			if err != nil {
				return nil, apperrors.NewDependencyFailure("database", err)
			}
			s.publish(ctx, events.NewEvent(events.EventAccountStatusChanged, account.ID,
				events.AccountStatusChangedPayload{OldStatus: oldStatus, NewStatus: account.Status()}))
		}
	}

	if len(input.Fields) > 0 {
		if err := domain.EnsureMutable(input.Fields); err != nil {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		account, err = s.accounts.UpdateProfile(ctx, id, input.Fields)
		if err != nil {
			return nil, apperrors.NewDependencyFailure("database", err)
		}
	}

	return account, nil
}

// SendVerification re-issues and delivers a verification token for the
// account. Fails with AlreadyVerified when there is nothing to verify.
func (s *AdminService) SendVerification(ctx context.Context, id string) error {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	return s.tokens.IssueVerificationFor(ctx, account)
}

// SendPasswordReset issues and delivers a reset token for the account.
// Unlike the self-service flow there is no enumeration concern here: the
// caller is an administrator reading from the account list.
func (s *AdminService) SendPasswordReset(ctx context.Context, id string) error {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	return s.tokens.IssueResetFor(ctx, account)
}

func (s *AdminService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
