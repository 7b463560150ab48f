package domain

import "time"

// Role tags the account kind. Immutable after creation.
type Role string

const (
	RolePatient    Role = "patient"
	RoleSpecialist Role = "specialist"
	RoleAdmin      Role = "admin"
)

// RoleAlias maps externally-used role labels onto canonical roles. The
// frontend historically sends "users" for patient logins.
var RoleAlias = map[string]Role{
	"patient":    RolePatient,
	"specialist": RoleSpecialist,
	"admin":      RoleAdmin,
	"users":      RolePatient,
}

// ValidRole reports whether the label names a role, directly or via alias.
func ValidRole(label string) bool {
	_, ok := RoleAlias[label]
	return ok
}

// ReviewStatus tracks admin review of specialist-submitted documents.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// WorkExperience is one entry of a specialist's employment history.
type WorkExperience struct {
	Company     string     `json:"company"`
	Position    string     `json:"position"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description,omitempty"`
}

// Education is one entry of a specialist's education history.
type Education struct {
	Institution string     `json:"institution"`
	Degree      string     `json:"degree"`
	Field       string     `json:"field"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	GPA         string     `json:"gpa,omitempty"`
}

// Language is a spoken language with proficiency level.
type Language struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

// Account is the domain model for every principal: patients, specialists
// and administrators. Email is unique and stored lowercased.
//
// PasswordHash and the token digest/expiry pairs are credential material:
// repositories exclude them from default read projections and they never
// appear in API responses. Tokens are stored only as their sha256 digest;
// the raw token exists in transit alone.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role

	FirstName   string
	LastName    string
	Phone       string
	Address     string
	City        string
	PostalCode  string
	Country     string
	DateOfBirth *time.Time

	EmailVerified           bool
	EmailVerificationDigest *string
	EmailVerificationExpiry *time.Time

	PasswordResetDigest *string
	PasswordResetExpiry *time.Time

	IsActive  bool
	IsBlocked bool

	MedicalSpecialty    string
	ProfessionalSummary string
	WorkExperience      []WorkExperience
	Education           []Education
	Languages           []Language
	CVStatus            ReviewStatus
	ProfileImageStatus  ReviewStatus
	ProfileImageURL     string
	CVDocumentURL       string

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is the name used when addressing the account holder in
// outbound mail. Admin accounts carry no profile name.
func (a *Account) DisplayName() string {
	if a.FirstName != "" {
		return a.FirstName
	}
	return "User"
}

// ExternalRole returns the role label used by listing surfaces, which
// report patients under the legacy "users" label.
func (a *Account) ExternalRole() string {
	if a.Role == RolePatient {
		return "users"
	}
	return string(a.Role)
}
