package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-identity-service/internal/api/dto"
	"github.com/spec-kit/clinic-identity-service/internal/auth"
	"github.com/spec-kit/clinic-identity-service/internal/service"
	apperrors "github.com/spec-kit/clinic-identity-service/pkg/util"
)

// AccountsHandler exposes registration, login and token endpoints.
type AccountsHandler struct {
	auth   *service.AuthService
	tokens *service.TokenService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(authService *service.AuthService, tokenService *service.TokenService) *AccountsHandler {
	return &AccountsHandler{auth: authService, tokens: tokenService}
}

// RegisterPatient handles POST /auth/register/patient.
func (h *AccountsHandler) RegisterPatient(c *fiber.Ctx) error {
	var req dto.RegisterPatientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	account, err := h.auth.RegisterPatient(c.UserContext(), service.RegisterPatientInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
		DateOfBirth: req.DateOfBirth,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "registration complete, check your email to confirm your account",
		"data": fiber.Map{
			"userId": account.ID,
			"email":  account.Email,
			"role":   account.Role,
		},
	})
}

// RegisterSpecialist handles POST /auth/register/specialist.
func (h *AccountsHandler) RegisterSpecialist(c *fiber.Ctx) error {
	var req dto.RegisterSpecialistRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	account, err := h.auth.RegisterSpecialist(c.UserContext(), service.RegisterSpecialistInput{
		RegisterPatientInput: service.RegisterPatientInput{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			Phone:       req.Phone,
			Address:     req.Address,
			City:        req.City,
			PostalCode:  req.PostalCode,
			Country:     req.Country,
			DateOfBirth: req.DateOfBirth,
			Password:    req.Password,
		},
		MedicalSpecialty:    req.MedicalSpecialty,
		ProfessionalSummary: req.ProfessionalSummary,
		WorkExperience:      req.WorkExperience,
		Education:           req.Education,
		Languages:           req.Languages,
		ProfileImageURL:     req.ProfileImage,
		CVDocumentURL:       req.CVDocument,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "registration complete, check your email to confirm your account; your CV will be reviewed by an administrator",
		"data": fiber.Map{
			"userId": account.ID,
			"email":  account.Email,
			"role":   account.Role,
		},
	})
}

// Login handles POST /auth/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	account, grant, err := h.auth.Login(c.UserContext(), req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "login successful",
		"data": fiber.Map{
			"auth": dto.AuthResponse{Token: grant.Token, ExpiresAt: grant.ExpiresAt},
			"user": fiber.Map{
				"id":            account.ID,
				"firstName":     account.FirstName,
				"lastName":      account.LastName,
				"email":         account.Email,
				"role":          account.Role,
				"emailVerified": account.EmailVerified,
			},
		},
	})
}

// VerifyEmail handles GET /auth/verify-email?token=...
func (h *AccountsHandler) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return apperrors.NewValidationError("token is required", nil)
	}

	if _, err := h.tokens.ConsumeVerification(c.UserContext(), token); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "email confirmed, you can now log in"})
}

// ResendVerification handles POST /auth/resend-verification.
func (h *AccountsHandler) ResendVerification(c *fiber.Ctx) error {
	var req dto.ResendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}

	if err := h.tokens.IssueVerification(c.UserContext(), req.Email); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "verification email sent"})
}

// ForgotPassword handles POST /auth/forgot-password. The response is
// identical whether or not the email names an account.
func (h *AccountsHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}

	if err := h.tokens.IssueReset(c.UserContext(), req.Email); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "if an account exists with this email, a password reset link has been sent",
	})
}

// ResetPassword handles POST /auth/reset-password.
func (h *AccountsHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.tokens.ConsumeReset(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "password reset, you can now log in with your new password"})
}

// Me handles GET /auth/me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	account, err := h.auth.GetAccount(c.UserContext(), principal.Account.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewAccountView(account)}})
}
