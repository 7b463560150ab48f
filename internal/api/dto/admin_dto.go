package dto

import (
	"time"

	"github.com/spec-kit/clinic-identity-service/internal/domain"
)

// AdminAccountView is the listing projection used by the account
// management surface. Status is the derived presentation label and the
// role of patients reads as the legacy "users" alias.
type AdminAccountView struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	Country       string     `json:"country"`
	Status        string     `json:"status"`
	Role          string     `json:"role"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLogin     *time.Time `json:"lastLogin"`
	EmailVerified bool       `json:"emailVerified"`
}

// NewAdminAccountView projects a domain account for listing.
func NewAdminAccountView(a *domain.Account) AdminAccountView {
	return AdminAccountView{
		ID:            a.ID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Email:         a.Email,
		Phone:         a.Phone,
		Address:       a.Address,
		City:          a.City,
		Country:       a.Country,
		Status:        string(a.Status()),
		Role:          a.ExternalRole(),
		CreatedAt:     a.CreatedAt,
		LastLogin:     a.LastLogin,
		EmailVerified: a.EmailVerified,
	}
}

// AdminUpdateRequest is the administrative account update payload.
// Only a status label and allow-listed profile fields are accepted;
// password, role and identity have no representation here.
type AdminUpdateRequest struct {
	Status     *string `json:"status"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	PostalCode *string `json:"postalCode"`
	Country    *string `json:"country"`
}

// Fields collects the set profile fields keyed by column name.
func (r AdminUpdateRequest) Fields() map[string]string {
	fields := map[string]string{}
	set := func(name string, val *string) {
		if val != nil {
			fields[name] = *val
		}
	}
	set("first_name", r.FirstName)
	set("last_name", r.LastName)
	set("phone", r.Phone)
	set("address", r.Address)
	set("city", r.City)
	set("postal_code", r.PostalCode)
	set("country", r.Country)
	return fields
}
