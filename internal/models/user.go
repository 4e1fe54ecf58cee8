package models

import (
	"time"
)

// Role is the closed set of access levels. There is no hierarchy object;
// elevation checks go through the clearance table below.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var roleClearance = map[Role]int{
	RoleUser:    0,
	RoleManager: 1,
	RoleAdmin:   2,
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	_, ok := roleClearance[r]
	return ok
}

// AtLeast reports whether r clears the given minimum role.
// Unknown roles never clear anything.
func (r Role) AtLeast(min Role) bool {
	rc, ok := roleClearance[r]
	if !ok {
		return false
	}
	mc, ok := roleClearance[min]
	if !ok {
		return false
	}
	return rc >= mc
}

// Profile holds the free-form contact fields attached to an account.
type Profile struct {
	Department string `json:"department,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Language   string `json:"language,omitempty"`
}

type User struct {
	ID           string
	Email        string // stored lowercase, unique case-insensitively
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	Avatar       string
	IsActive     bool
	Permissions  []string
	Profile      Profile

	// Lockout state. LoginAttempts counts consecutive failures; LockedUntil,
	// when set and in the future, blocks authentication regardless of the
	// password supplied.
	LoginAttempts int
	LockedUntil   *time.Time

	// Activity counters, updated opportunistically.
	LastLogin      *time.Time
	TotalLogins    int
	LastActivity   time.Time
	IssuesCreated  int
	IssuesResolved int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Locked reports whether the account is under an active temporary lock.
// An elapsed LockedUntil counts as unlocked.
func (u *User) Locked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}
