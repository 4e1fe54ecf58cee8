package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRole_AtLeast(t *testing.T) {
	tests := []struct {
		name string
		role Role
		min  Role
		want bool
	}{
		{"user meets user", RoleUser, RoleUser, true},
		{"user below manager", RoleUser, RoleManager, false},
		{"user below admin", RoleUser, RoleAdmin, false},
		{"manager meets manager", RoleManager, RoleManager, true},
		{"manager below admin", RoleManager, RoleAdmin, false},
		{"admin meets manager", RoleAdmin, RoleManager, true},
		{"admin meets admin", RoleAdmin, RoleAdmin, true},
		{"unknown role clears nothing", Role("superuser"), RoleUser, false},
		{"unknown minimum clears nothing", RoleAdmin, Role("root"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.AtLeast(tt.min))
		})
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleManager.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("Admin").Valid())
}

func TestUser_Locked(t *testing.T) {
	future := time.Now().Add(1 * time.Hour)
	past := time.Now().Add(-1 * time.Minute)

	u := &User{}
	assert.False(t, u.Locked(), "no lock set")

	u.LockedUntil = &future
	assert.True(t, u.Locked(), "active lock")

	u.LockedUntil = &past
	assert.False(t, u.Locked(), "elapsed lock counts as unlocked")
}
