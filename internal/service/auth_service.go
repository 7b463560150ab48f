package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/clinic-identity-service/internal/auth"
	"github.com/spec-kit/clinic-identity-service/internal/domain"
	"github.com/spec-kit/clinic-identity-service/internal/events"
	"github.com/spec-kit/clinic-identity-service/internal/repository"
	apperrors "github.com/spec-kit/clinic-identity-service/pkg/util"
)

// RegisterPatientInput carries the patient signup payload.
type RegisterPatientInput struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Address     string
	City        string
	PostalCode  string
	Country     string
	DateOfBirth *time.Time
	Password    string
}

// RegisterSpecialistInput carries the specialist signup payload.
type RegisterSpecialistInput struct {
	RegisterPatientInput
	MedicalSpecialty    string
	ProfessionalSummary string
	WorkExperience      []domain.WorkExperience
	Education           []domain.Education
	Languages           []domain.Language
	ProfileImageURL     string
	CVDocumentURL       string
}

// SessionGrant is the result of a successful login.
type SessionGrant struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService covers registration and the login decision: a login
// attempt is evaluated against the account state before the credential,
// and each denial carries a distinct code.
type AuthService struct {
	accounts   repository.AccountRepository
	hasher     *auth.PasswordHasher
	sessions   *auth.TokenManager
	tokens     *TokenService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	Accounts   repository.AccountRepository
	Hasher     *auth.PasswordHasher
	Sessions   *auth.TokenManager
	Tokens     *TokenService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AuthService{
		accounts:   deps.Accounts,
		hasher:     deps.Hasher,
		sessions:   deps.Sessions,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// RegisterPatient creates a patient account and issues its verification
// token. Email delivery is best-effort here: the account and its token
// are committed either way, and the resend flow covers a lost mail.
func (s *AuthService) RegisterPatient(ctx context.Context, input RegisterPatientInput) (*domain.Account, error) {
	account := &domain.Account{
		Email:       normalizeEmail(input.Email),
		Role:        domain.RolePatient,
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Phone:       strings.TrimSpace(input.Phone),
		Address:     strings.TrimSpace(input.Address),
		City:        strings.TrimSpace(input.City),
		PostalCode:  strings.TrimSpace(input.PostalCode),
		Country:     defaultCountry(input.Country),
		DateOfBirth: input.DateOfBirth,
		IsActive:    true,
	}
	return s.register(ctx, account, input.Password)
}

// RegisterSpecialist creates a specialist account pending document
// review, and issues its verification token.
func (s *AuthService) RegisterSpecialist(ctx context.Context, input RegisterSpecialistInput) (*domain.Account, error) {
	account := &domain.Account{
		Email:               normalizeEmail(input.Email),
		Role:                domain.RoleSpecialist,
		FirstName:           strings.TrimSpace(input.FirstName),
		LastName:            strings.TrimSpace(input.LastName),
		Phone:               strings.TrimSpace(input.Phone),
		Address:             strings.TrimSpace(input.Address),
		City:                strings.TrimSpace(input.City),
		PostalCode:          strings.TrimSpace(input.PostalCode),
		Country:             defaultCountry(input.Country),
		DateOfBirth:         input.DateOfBirth,
		IsActive:            true,
		MedicalSpecialty:    strings.TrimSpace(input.MedicalSpecialty),
		ProfessionalSummary: strings.TrimSpace(input.ProfessionalSummary),
		WorkExperience:      input.WorkExperience,
		Education:           input.Education,
		Languages:           input.Languages,
		CVStatus:            domain.ReviewPending,
		ProfileImageStatus:  domain.ReviewPending,
		ProfileImageURL:     input.ProfileImageURL,
		CVDocumentURL:       input.CVDocumentURL,
	}
	return s.register(ctx, account, input.Password)
}

func (s *AuthService) register(ctx context.Context, account *domain.Account, password string) (*domain.Account, error) {
	if account.Email == "" {
		return nil, apperrors.NewValidationError("email is required", nil)
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if missing := domain.ValidateProfile(account); len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields",
			map[string]any{"fields": missing})
	}

	if _, err := s.accounts.GetByEmail(ctx, account.Email); err == nil {
		return nil, apperrors.NewConflict("an account with this email address already exists", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewDependencyFailure("database", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	account.PasswordHash = hash

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.NewDependencyFailure("database", err)
	}

	if err := s.tokens.IssueVerificationFor(ctx, account); err != nil {
		// Registration already committed; the resend flow covers a lost
		// verification mail.
		s.logger.Warn("verification token delivery failed during registration",
			zap.String("account_id", account.ID), zap.Error(err))
	}

	s.publish(ctx, events.NewEvent(events.EventAccountRegistered, account.ID,
		events.AccountRegisteredPayload{Email: account.Email, Role: account.Role}))
	return account, nil
}

// Login evaluates a login attempt. Checks run in a fixed order and the
// first failure decides the outcome: existence, email verification,
// active flag, blocked flag, password, requested role. State checks run
// before the password so a disabled account never learns whether its
// password was correct, while unknown email and wrong password stay
// indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password, requestedRole string) (*domain.Account, *SessionGrant, error) {
	if email == "" || password == "" {
		return nil, nil, apperrors.NewValidationError("email and password are required", nil)
	}
	if requestedRole != "" && !domain.ValidRole(requestedRole) {
		return nil, nil, apperrors.NewValidationError("invalid role specified", nil)
	}

	account, err := s.accounts.GetByEmailWithCredentials(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewInvalidCredentials()
		}
		return nil, nil, apperrors.NewDependencyFailure("database", err)
	}

	if !account.EmailVerified {
		return nil, nil, apperrors.NewEmailNotVerified()
	}
	if !account.IsActive {
		return nil, nil, apperrors.NewAccountInactive()
	}
	if account.IsBlocked {
		return nil, nil, apperrors.NewAccountBlocked()
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, nil, apperrors.NewInvalidCredentials()
	}

	if requestedRole != "" {
		expected := domain.RoleAlias[requestedRole]
		if account.Role != expected {
			return nil, nil, apperrors.NewRoleMismatch(string(expected))
		}
	}

	now := time.Now()
	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("failed to stamp last login", zap.String("account_id", account.ID), zap.Error(err))
	} else {
		account.LastLogin = &now
	}

	token, expiresAt, err := s.sessions.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	account.PasswordHash = ""
	return account, &SessionGrant{Token: token, ExpiresAt: expiresAt}, nil
}

// GetAccount loads an account by id with the default projection.
func (s *AuthService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", nil)
		}
		return nil, apperrors.NewDependencyFailure("database", err)
	}
	return account, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func defaultCountry(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return "Norge"
	}
	return country
}
