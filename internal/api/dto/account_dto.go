package dto

import (
	"time"

	"github.com/spec-kit/clinic-identity-service/internal/domain"
)

// RegisterPatientRequest payload for patient signup.
type RegisterPatientRequest struct {
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	PostalCode  string     `json:"postalCode"`
	Country     string     `json:"country"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Password    string     `json:"password"`
}

// RegisterSpecialistRequest payload for specialist signup.
type RegisterSpecialistRequest struct {
	RegisterPatientRequest
	MedicalSpecialty    string                  `json:"medicalSpecialty"`
	ProfessionalSummary string                  `json:"professionalSummary"`
	WorkExperience      []domain.WorkExperience `json:"workExperience"`
	Education           []domain.Education      `json:"education"`
	Languages           []domain.Language       `json:"languages"`
	ProfileImage        string                  `json:"profileImage"`
	CVDocument          string                  `json:"cvDocument"`
}

// LoginRequest payload for login. Role is optional; the alias "users"
// is accepted for patient.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ResendVerificationRequest payload.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordRequest payload.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest payload.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccountView is the self-service projection of an account. Credential
// material never appears here.
type AccountView struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	Phone         string     `json:"phone,omitempty"`
	Address       string     `json:"address,omitempty"`
	City          string     `json:"city,omitempty"`
	PostalCode    string     `json:"postalCode,omitempty"`
	Country       string     `json:"country,omitempty"`
	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewAccountView projects a domain account.
func NewAccountView(a *domain.Account) AccountView {
	return AccountView{
		ID:            a.ID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Email:         a.Email,
		Role:          string(a.Role),
		EmailVerified: a.EmailVerified,
		Phone:         a.Phone,
		Address:       a.Address,
		City:          a.City,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
		DateOfBirth:   a.DateOfBirth,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
	}
}
