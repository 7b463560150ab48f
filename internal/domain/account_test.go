package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	for _, label := range []string{"patient", "specialist", "admin", "users"} {
		assert.True(t, ValidRole(label), "label %q", label)
	}
	assert.False(t, ValidRole("doctor"))
	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("Patient"))
}

func TestRoleAlias(t *testing.T) {
	assert.Equal(t, RolePatient, RoleAlias["users"])
	assert.Equal(t, RolePatient, RoleAlias["patient"])
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Kari", (&Account{FirstName: "Kari"}).DisplayName())
	assert.Equal(t, "User", (&Account{}).DisplayName())
}

func TestExternalRole(t *testing.T) {
	assert.Equal(t, "users", (&Account{Role: RolePatient}).ExternalRole())
	assert.Equal(t, "specialist", (&Account{Role: RoleSpecialist}).ExternalRole())
	assert.Equal(t, "admin", (&Account{Role: RoleAdmin}).ExternalRole())
}
