package domain

import (
	"fmt"
	"sort"
)

// requiredProfileFields is the per-role configuration of profile fields
// that must be present before an account may be constructed. Admin
// accounts carry no profile, so they have no required fields.
var requiredProfileFields = map[Role][]string{
	RolePatient: {
		"first_name", "last_name", "phone", "address",
		"city", "postal_code", "date_of_birth",
	},
	RoleSpecialist: {
		"first_name", "last_name", "phone", "address",
		"city", "postal_code", "date_of_birth", "medical_specialty",
	},
	RoleAdmin: {},
}

// RequiredProfileFields returns the profile fields mandatory for a role.
func RequiredProfileFields(role Role) []string {
	fields := requiredProfileFields[role]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// ValidateProfile checks the account's profile fields against the role's
// requirement table and returns the missing field names, sorted.
func ValidateProfile(a *Account) []string {
	present := map[string]bool{
		"first_name":        a.FirstName != "",
		"last_name":         a.LastName != "",
		"phone":             a.Phone != "",
		"address":           a.Address != "",
		"city":              a.City != "",
		"postal_code":       a.PostalCode != "",
		"date_of_birth":     a.DateOfBirth != nil,
		"medical_specialty": a.MedicalSpecialty != "",
	}

	var missing []string
	for _, field := range requiredProfileFields[a.Role] {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	sort.Strings(missing)
	return missing
}

// MutableProfileFields is the allow-list of fields the administrative
// update surface may touch. Password, role and identity are excluded by
// construction: anything not listed here cannot be written.
var MutableProfileFields = map[string]struct{}{
	"first_name":  {},
	"last_name":   {},
	"phone":       {},
	"address":     {},
	"city":        {},
	"postal_code": {},
	"country":     {},
}

// EnsureMutable returns an error naming the first field that is not on
// the administrative allow-list.
func EnsureMutable(fields map[string]string) error {
	for name := range fields {
		if _, ok := MutableProfileFields[name]; !ok {
			return fmt.Errorf("field %q is not updatable", name)
		}
	}
	return nil
}
