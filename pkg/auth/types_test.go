package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole(t *testing.T) {
	tests := []struct {
		role    Role
		valid   bool
		isCoach bool
	}{
		{RoleMember, true, false},
		{RoleAdmin, true, true},
		{RoleOwner, true, true},
		{Role("viewer"), false, false},
		{Role(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.Valid())
			assert.Equal(t, tt.isCoach, tt.role.IsCoach())
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("owner")
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, r)

	_, err = ParseRole("superuser")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRole))
}

func TestRolesIsStable(t *testing.T) {
	assert.Equal(t, []Role{RoleMember, RoleAdmin, RoleOwner}, Roles())
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Minute)}).Expired(now))
}

func TestAuthContext(t *testing.T) {
	var nilCtx *AuthContext
	assert.False(t, nilCtx.HasUser())
	assert.False(t, nilCtx.HasOrganization())

	ac := &AuthContext{UserID: "u1"}
	assert.True(t, ac.HasUser())
	assert.False(t, ac.HasOrganization())

	ac.OrganizationID = "o1"
	assert.True(t, ac.HasOrganization())
}
